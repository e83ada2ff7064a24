package engine

import "fmt"

// Value is any value flowing through dispatch: arguments, results and
// instance variables. Objects, classes and modules are values too.
type Value = any

// Impl is the Go signature of a method body. The Call carries the receiver,
// the arguments and the frame needed for super.
type Impl func(c *Call) (Value, error)

// Function is a concrete method implementation.
//
// Functions are compared by identity: the super chain locates the running
// implementation by pointer, so defining the same Impl twice yields two
// distinct Functions.
type Function struct {
	name  string
	owner *Module
	impl  Impl
}

// Name returns the message name the function was defined under.
func (f *Function) Name() string {
	return f.name
}

// Owner returns the module the function was defined on.
func (f *Function) Owner() *Module {
	return f.owner
}

// String returns "Owner#name".
func (f *Function) String() string {
	if f.owner == nil {
		return f.name
	}
	return fmt.Sprintf("%s#%s", f.owner.Name(), f.name)
}

// MessageID indexes a module-owned Message in the engine arena. Zero is never
// a valid id.
type MessageID int

// BindingKind discriminates Binding.
type BindingKind uint8

const (
	// Unresolved bindings answer nothing.
	Unresolved BindingKind = iota

	// Direct bindings hold a concrete Function.
	Direct

	// Delegated bindings forward to another module's Message.
	Delegated
)

// String returns the kind name.
func (k BindingKind) String() string {
	switch k {
	case Direct:
		return "direct"
	case Delegated:
		return "delegate"
	default:
		return "unresolved"
	}
}

// Binding is what a message answers: nothing, a Function, or whatever another
// message answers.
type Binding struct {
	kind BindingKind
	fn   *Function
	ref  MessageID
}

// Unbound returns the zero Binding.
func Unbound() Binding {
	return Binding{}
}

// Bind returns a Direct binding to fn.
func Bind(fn *Function) Binding {
	if fn == nil {
		return Binding{}
	}
	return Binding{kind: Direct, fn: fn}
}

// Delegate returns a binding forwarding to the message with the given id.
func Delegate(id MessageID) Binding {
	return Binding{kind: Delegated, ref: id}
}

// Kind returns the binding's kind.
func (b Binding) Kind() BindingKind {
	return b.kind
}

// Function returns the bound function for Direct bindings, nil otherwise.
func (b Binding) Function() *Function {
	return b.fn
}

// Ref returns the delegate target for Delegated bindings, zero otherwise.
func (b Binding) Ref() MessageID {
	return b.ref
}

// IsFunction reports whether the binding holds a concrete Function.
func (b Binding) IsFunction() bool {
	return b.kind == Direct && b.fn != nil
}
