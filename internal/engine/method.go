package engine

import (
	"fmt"
	"slices"
)

// Method is an implementation bound to a receiver, with optional leading
// arguments fixed by Curry. Bind and Curry return new Methods; the original
// is never changed.
type Method struct {
	eng  *Engine
	recv Receiver
	name string
	fn   *Function
	args []Value
}

// Method resolves name on recv and binds the result to it.
// Fails with NO_SUCH_METHOD when nothing answers; methodMissing does not
// count.
func (e *Engine) Method(recv Receiver, name string) (*Method, error) {
	if isNil(recv) {
		return nil, NewNoSuchMethod(name, "nil")
	}
	fn, err := e.Resolve(recv, name)
	if err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, NewNoSuchMethod(name, recv.Inspect())
	}
	return &Method{eng: e, recv: recv, name: name, fn: fn}, nil
}

// Receiver returns the bound receiver.
func (m *Method) Receiver() Receiver {
	return m.recv
}

// Name returns the message name.
func (m *Method) Name() string {
	return m.name
}

// Args returns the curried arguments.
func (m *Method) Args() []Value {
	return slices.Clone(m.args)
}

// Call runs the implementation on the bound receiver with the curried
// arguments followed by args. Super inside it walks the bound receiver's
// chain.
func (m *Method) Call(args ...Value) (Value, error) {
	all := append(slices.Clone(m.args), args...)
	return m.eng.invoke(KindSend, &Message{name: m.name}, m.recv, m.fn, all)
}

// Bind returns the same implementation bound to recv.
func (m *Method) Bind(recv Receiver) *Method {
	out := *m
	out.recv = recv
	out.args = slices.Clone(m.args)
	return &out
}

// Unbind returns the underlying implementation.
func (m *Method) Unbind() *Function {
	return m.fn
}

// Curry returns a Method with args appended to the fixed arguments.
func (m *Method) Curry(args ...Value) *Method {
	out := *m
	out.args = append(slices.Clone(m.args), args...)
	return &out
}

// String returns "#<Method:receiver.name(Owner#name)>".
func (m *Method) String() string {
	return fmt.Sprintf("#<Method:%s.%s(%s)>", m.recv.Inspect(), m.name, m.fn)
}

// kernel and class-side methods

func kernelMethod(c *Call) (Value, error) {
	name, err := nameArg(c, 0)
	if err != nil {
		return nil, err
	}
	m, err := c.engine.Method(c.self, name)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// kernelSend dispatches the message named by the first argument with the
// remaining arguments.
func kernelSend(c *Call) (Value, error) {
	name, err := nameArg(c, 0)
	if err != nil {
		return nil, err
	}
	return c.engine.Send(c.self, name, c.args[1:]...)
}

// kernelSendSplat dispatches the message named by the first argument with
// the elements of the second argument, a list, as arguments.
func kernelSendSplat(c *Call) (Value, error) {
	name, err := nameArg(c, 0)
	if err != nil {
		return nil, err
	}
	var args []Value
	switch v := c.Arg(1).(type) {
	case nil:
	case []Value:
		args = v
	default:
		return nil, newInvalidName("%s: arguments must be a list, got %T", c.Name(), v)
	}
	return c.engine.Send(c.self, name, args...)
}

func kernelExtend(c *Call) (Value, error) {
	mixin, err := moduleArg(c, 0)
	if err != nil {
		return nil, err
	}
	if err := c.self.Eigen().Include(mixin); err != nil {
		return nil, err
	}
	return c.self, nil
}

func kernelUnextend(c *Call) (Value, error) {
	mixin, err := moduleArg(c, 0)
	if err != nil {
		return nil, err
	}
	if err := c.self.Eigen().Uninclude(mixin); err != nil {
		return nil, err
	}
	return c.self, nil
}

func classNew(c *Call) (Value, error) {
	class, err := classSelf(c)
	if err != nil {
		return nil, err
	}
	return class.Construct(c.args...)
}

func classAllocate(c *Call) (Value, error) {
	class, err := classSelf(c)
	if err != nil {
		return nil, err
	}
	return class.Allocate(), nil
}

func classInstanceMethod(c *Call) (Value, error) {
	class, err := classSelf(c)
	if err != nil {
		return nil, err
	}
	name, err := nameArg(c, 0)
	if err != nil {
		return nil, err
	}
	fn, err := class.InstanceMethod(name)
	if err != nil {
		return nil, err
	}
	return fn, nil
}

func classSelf(c *Call) (*Class, error) {
	class, ok := c.self.(*Class)
	if !ok {
		return nil, NewNoSuchMethod(c.Name(), c.self.Inspect())
	}
	return class, nil
}

func nameArg(c *Call, i int) (string, error) {
	name, ok := c.Arg(i).(string)
	if !ok || name == "" {
		return "", newInvalidName("%s: argument %d must be a message name, got %T", c.Name(), i, c.Arg(i))
	}
	return name, nil
}

// moduleArg accepts a *Module or the name of one.
func moduleArg(c *Call, i int) (*Module, error) {
	switch v := c.Arg(i).(type) {
	case *Module:
		return v, nil
	case string:
		if m, ok := c.engine.Lookup(v); ok {
			return m, nil
		}
		return nil, newInvalidModule("no module named %q", v)
	default:
		return nil, newInvalidModule("%s: argument %d must be a module, got %T", c.Name(), i, v)
	}
}
