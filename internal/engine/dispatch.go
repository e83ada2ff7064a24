package engine

import "slices"

// Receiver is anything messages can be sent to: an *Object or a *Class.
type Receiver interface {
	// Eigen returns the receiver's singleton module.
	Eigen() *Module

	// Inspect returns a short human-readable description.
	Inspect() string

	lookupChain() []*Module
}

// Send dispatches name to recv through the registry thunk for name,
// registering the name on first use.
func (e *Engine) Send(recv Receiver, name string, args ...Value) (Value, error) {
	return e.registry.Thunk(name)(recv, args...)
}

// Resolve returns the function recv would run for name, or nil.
//
// Results are cached on the receiver's eigen module and trusted only while
// the engine epoch is unchanged. The cache is dropped wholesale on the first
// lookup after the epoch moves, and goes away with the receiver.
func (e *Engine) Resolve(recv Receiver, name string) (*Function, error) {
	if isNil(recv) {
		return nil, nil
	}
	eigen := recv.Eigen()
	epoch := e.epoch.Current()
	if eigen.resolvedEpoch != epoch || eigen.resolved == nil {
		eigen.resolved = make(map[string]*Function)
		eigen.resolvedEpoch = epoch
	}
	if fn, ok := eigen.resolved[name]; ok {
		return fn, nil
	}

	var found *Function
	for _, mod := range recv.lookupChain() {
		msg, ok := mod.methods[name]
		if !ok {
			continue
		}
		fn, err := e.liveFunction(msg, 0)
		if err != nil {
			return nil, err
		}
		if fn != nil {
			found = fn
			break
		}
		// every frame was a stale delegate
		mod.forget(name, msg)
	}

	eigen.resolved[name] = found
	return found, nil
}

// isNil reports a missing receiver, including typed nil pointers.
func isNil(recv Receiver) bool {
	switch r := recv.(type) {
	case nil:
		return true
	case *Object:
		return r == nil
	case *Class:
		return r == nil || r.Module == nil
	}
	return false
}

// send runs one dispatch from a fresh send site.
func (e *Engine) send(site *Message, recv Receiver, args []Value) (Value, error) {
	if isNil(recv) {
		return nil, NewNoSuchMethod(site.name, "nil")
	}
	fn, err := e.Resolve(recv, site.name)
	if err != nil {
		return nil, err
	}
	if fn != nil {
		return e.invoke(KindSend, site, recv, fn, args)
	}
	return e.missing(KindSend, recv, site.name, args)
}

// missing hands an unanswered message to methodMissing(name, args...).
// Without a hook the send is traced with a "missing" reply and fails.
func (e *Engine) missing(kind EventKind, recv Receiver, name string, args []Value) (Value, error) {
	if name != MethodMissing {
		hook, err := e.Resolve(recv, MethodMissing)
		if err != nil {
			return nil, err
		}
		if hook != nil {
			site := &Message{name: MethodMissing}
			return e.invoke(KindMissing, site, recv, hook, append([]Value{name}, args...))
		}
	}
	e.logger.Debug("no such method", "name", name, "receiver", recv.Inspect())
	err := NewNoSuchMethod(name, recv.Inspect())
	e.traceSend(kind, recv, name, nil, args)
	e.traceReply(kind, name, nil, err)
	return nil, err
}

// invoke runs fn with a fresh Call frame. The frame goes inactive when fn
// returns, after which its Super fails.
func (e *Engine) invoke(kind EventKind, site *Message, recv Receiver, fn *Function, args []Value) (Value, error) {
	if err := e.quota.enter(site.name); err != nil {
		return nil, err
	}
	defer e.quota.leave()

	c := &Call{
		engine:   e,
		self:     recv,
		message:  site,
		function: fn,
		args:     args,
		active:   true,
	}
	defer func() { c.active = false }()

	e.logger.Debug("dispatch", "kind", kind, "name", site.name, "receiver", recv.Inspect(), "function", fn.String(), "depth", e.quota.current)
	e.traceSend(kind, recv, site.name, fn, args)
	v, err := fn.impl(c)
	e.traceReply(kind, site.name, v, err)
	return v, err
}

// Call is the dispatch frame handed to every Impl.
type Call struct {
	engine   *Engine
	self     Receiver
	message  *Message
	function *Function
	args     []Value
	active   bool
}

// Self returns the receiver.
func (c *Call) Self() Receiver {
	return c.self
}

// Object returns the receiver as an *Object when it is one.
func (c *Call) Object() (*Object, bool) {
	o, ok := c.self.(*Object)
	return o, ok
}

// Engine returns the dispatching engine.
func (c *Call) Engine() *Engine {
	return c.engine
}

// Name returns the message name being answered.
func (c *Call) Name() string {
	if c.message == nil {
		return ""
	}
	return c.message.name
}

// Function returns the running implementation.
func (c *Call) Function() *Function {
	return c.function
}

// Args returns the call arguments.
func (c *Call) Args() []Value {
	return c.args
}

// Arg returns argument i, or nil when absent.
func (c *Call) Arg(i int) Value {
	if i < 0 || i >= len(c.args) {
		return nil
	}
	return c.args[i]
}

// Send dispatches a new message to the receiver.
func (c *Call) Send(name string, args ...Value) (Value, error) {
	return c.engine.Send(c.self, name, args...)
}

// Super invokes the next implementation of the current message with the
// current arguments.
func (c *Call) Super() (Value, error) {
	if c == nil {
		return nil, newSuperWithoutContext("")
	}
	return c.super(c.args)
}

// SuperWith invokes the next implementation of the current message with an
// explicit argument list. SuperWith() passes no arguments.
func (c *Call) SuperWith(args ...Value) (Value, error) {
	if c == nil {
		return nil, newSuperWithoutContext("")
	}
	if args == nil {
		args = []Value{}
	}
	return c.super(args)
}

func (c *Call) super(args []Value) (Value, error) {
	if c.engine == nil || c.message == nil || c.function == nil || !c.active {
		return nil, newSuperWithoutContext(c.Name())
	}
	return c.engine.callSuper(c, args)
}

// kernel methods

func kernelRespondTo(c *Call) (Value, error) {
	name, _ := c.Arg(0).(string)
	fn, err := c.engine.Resolve(c.self, name)
	if err != nil {
		return nil, err
	}
	return fn != nil, nil
}

func kernelInspect(c *Call) (Value, error) {
	return c.self.Inspect(), nil
}

func kernelIsA(c *Call) (Value, error) {
	var target *Module
	switch v := c.Arg(0).(type) {
	case *Module:
		target = v
	case *Class:
		target = v.Module
	case string:
		target, _ = c.engine.Lookup(v)
	}
	if target == nil {
		return false, nil
	}
	return slices.Contains(c.self.lookupChain(), target), nil
}
