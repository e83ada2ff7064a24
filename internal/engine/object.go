package engine

import (
	"fmt"
	"sort"
)

// Object is an instance: a class reference, a private eigen module and a
// bag of instance variables.
type Object struct {
	id    int
	klass *Class
	eigen *Module
	ivars map[string]Value
}

// Class returns the object's class.
func (o *Object) Class() *Class {
	return o.klass
}

// Eigen returns the object's singleton module, or nil for a nil object.
func (o *Object) Eigen() *Module {
	if o == nil {
		return nil
	}
	return o.eigen
}

// Get returns an instance variable.
func (o *Object) Get(name string) (Value, bool) {
	v, ok := o.ivars[name]
	return v, ok
}

// Set assigns an instance variable.
func (o *Object) Set(name string, v Value) {
	o.ivars[name] = v
}

// Ivars returns the sorted instance variable names.
func (o *Object) Ivars() []string {
	names := make([]string, 0, len(o.ivars))
	for name := range o.ivars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Send dispatches name to the object through the registry.
func (o *Object) Send(name string, args ...Value) (Value, error) {
	if o == nil {
		return nil, NewNoSuchMethod(name, "nil")
	}
	return o.klass.eng.Send(o, name, args...)
}

// RespondTo reports whether dispatching name would find an implementation
// (methodMissing aside).
func (o *Object) RespondTo(name string) bool {
	if o == nil {
		return false
	}
	fn, err := o.klass.eng.Resolve(o, name)
	return err == nil && fn != nil
}

// Extend mixes mixin into this object only.
func (o *Object) Extend(mixin *Module) error {
	return o.eigen.Include(mixin)
}

// Unextend removes a mixin previously added with Extend.
func (o *Object) Unextend(mixin *Module) error {
	return o.eigen.Uninclude(mixin)
}

// Inspect returns "#<Class:id>", or "nil" for a nil object.
func (o *Object) Inspect() string {
	if o == nil {
		return "nil"
	}
	return fmt.Sprintf("#<%s:%d>", o.klass.Name(), o.id)
}

// String implements fmt.Stringer.
func (o *Object) String() string {
	return o.Inspect()
}

// lookupChain is the eigen module and its mixins, followed by the class
// ancestors. Kernel appears once, at the end.
func (o *Object) lookupChain() []*Module {
	own := o.eigen.Ancestors()
	own = own[:len(own)-1]
	chain := make([]*Module, 0, len(own)+8)
	seen := make(map[*Module]bool)
	for _, m := range append(own, o.klass.Ancestors()...) {
		if !seen[m] {
			seen[m] = true
			chain = append(chain, m)
		}
	}
	return chain
}

// LookupChain returns the modules consulted, in order, when dispatching to recv.
func LookupChain(recv Receiver) []*Module {
	return recv.lookupChain()
}
