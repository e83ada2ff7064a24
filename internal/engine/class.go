package engine

import (
	"slices"
	"sort"
)

// Methods maps message names to implementations for bulk definition.
type Methods map[string]Impl

// Class is an instantiable module. Its eigen module holds class-level
// methods and has the class itself as superclass, so a class receiver sees
// its own class methods first, then its instance-side ancestors, then the
// engine's Class module.
type Class struct {
	*Module

	super *Class
	eigen *Module
}

// DefineClass creates a named class deriving from superclass (Object when
// nil) and defines methods on it in name order.
//
// Fails with DUPLICATE_DEFINITION when the name is already taken.
func (e *Engine) DefineClass(name string, superclass *Class, methods ...Methods) (*Class, error) {
	if err := e.claimName(name); err != nil {
		return nil, err
	}
	if superclass == nil {
		superclass = e.object
	}

	mod := e.newModule(name)
	c := &Class{Module: mod, super: superclass}
	mod.class = c
	if superclass != nil {
		mod.superclass = superclass.Module
	}

	c.eigen = e.newModule("#<Class:" + mod.Name() + ">")
	c.eigen.singleton = true
	c.eigen.superclass = mod

	if name != "" {
		e.namespace[name] = mod
	}
	for _, set := range methods {
		if err := c.DefineAll(set); err != nil {
			return nil, err
		}
	}

	e.logger.Debug("class defined", "class", mod.Name(), "superclass", superName(superclass))
	return c, nil
}

func superName(c *Class) string {
	if c == nil {
		return ""
	}
	return c.Name()
}

// DefineAll defines every method in set, in name order.
func (c *Class) DefineAll(set Methods) error {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := c.Define(name, set[name]); err != nil {
			return err
		}
	}
	return nil
}

// Superclass returns the parent class, or nil for Object.
func (c *Class) Superclass() *Class {
	return c.super
}

// Eigen returns the class's singleton module.
func (c *Class) Eigen() *Module {
	return c.eigen
}

// DefineClassMethod defines name on the class's eigen module.
func (c *Class) DefineClassMethod(name string, impl Impl) error {
	return c.eigen.Define(name, impl)
}

// Extend mixes mixin into the class's eigen module.
func (c *Class) Extend(mixin *Module) error {
	return c.eigen.Include(mixin)
}

// Unextend removes a mixin previously added with Extend.
func (c *Class) Unextend(mixin *Module) error {
	return c.eigen.Uninclude(mixin)
}

// Allocate creates an uninitialized instance with its own eigen module.
func (c *Class) Allocate() *Object {
	e := c.eng
	e.objectSeq++
	eigen := e.newModule("")
	eigen.singleton = true
	o := &Object{
		id:    e.objectSeq,
		klass: c,
		eigen: eigen,
		ivars: make(map[string]Value),
	}
	eigen.name = "#<Eigen:" + o.Inspect() + ">"
	return o
}

// Construct allocates an instance and dispatches initialize(args...) to it.
// The instance is returned even if initialize fails.
func (c *Class) Construct(args ...Value) (*Object, error) {
	o := c.Allocate()
	_, err := c.eng.Send(o, Initialize, args...)
	return o, err
}

// Send dispatches name to the class itself.
func (c *Class) Send(name string, args ...Value) (Value, error) {
	return c.eng.Send(c, name, args...)
}

// Inspect returns the class name.
func (c *Class) Inspect() string {
	return c.Name()
}

// lookupChain is the class eigen's ancestors with the engine's Class module
// placed right before Kernel, so every class answers new and allocate.
func (c *Class) lookupChain() []*Module {
	chain := c.eigen.Ancestors()
	return slices.Insert(chain, len(chain)-1, c.eng.classSide)
}
