package engine

import "slices"

// frame is one layer of a message's override stack. source is nil for the
// owning module's own definition and the mixin for frames pushed by Include.
type frame struct {
	source  *Module
	binding Binding
}

// Message is a named dispatch entry.
//
// Module-owned messages live in the engine arena and carry an override stack:
// the module's own definition and one delegate frame per included mixin that
// provides the name, most recent on top. Target() is the top frame.
//
// Send-site messages are created fresh for every dispatch (see Engine.Send).
// They have no owner and no id; they only carry the name and the super chain
// cached for that send.
type Message struct {
	id       MessageID
	name     string
	owner    *Module
	frames   []frame
	original Binding

	// super chain cache (send sites only)
	superEpoch int64
	superFrom  *Module
	superChain []*Function
}

// ID returns the arena id, or zero for send sites.
func (m *Message) ID() MessageID {
	return m.id
}

// Name returns the message name.
func (m *Message) Name() string {
	return m.name
}

// Owner returns the owning module, or nil for send sites.
func (m *Message) Owner() *Module {
	return m.owner
}

// Original returns the binding the message was created with.
func (m *Message) Original() Binding {
	return m.original
}

// Depth returns the number of frames on the override stack.
func (m *Message) Depth() int {
	return len(m.frames)
}

// Target returns the binding on top of the override stack.
func (m *Message) Target() Binding {
	if len(m.frames) == 0 {
		return Unbound()
	}
	return m.frames[len(m.frames)-1].binding
}

// Retarget replaces the binding on top of the override stack.
// An empty stack gains an own frame.
//
// Fails with DELEGATION_CYCLE, leaving the message unchanged, when b
// delegates to a message whose chain leads back to m.
func (m *Message) Retarget(b Binding) error {
	if m.owner != nil && m.owner.eng.reaches(b, m) {
		return newDelegationCycle(m.name)
	}
	if len(m.frames) == 0 {
		m.frames = append(m.frames, frame{binding: b})
	} else {
		m.frames[len(m.frames)-1].binding = b
	}
	m.changed("retarget")
	return nil
}

// Restore resets the message to its original binding when that binding was a
// concrete function. Messages created by Include start out as delegates and
// are left untouched.
func (m *Message) Restore() {
	if !m.original.IsFunction() {
		return
	}
	m.frames = []frame{{binding: m.original}}
	m.changed("restore")
}

// Real follows delegation until it reaches a concrete Function.
// Returns nil when the chain ends in nothing.
func (m *Message) Real() (*Function, error) {
	if m.owner == nil {
		return nil, nil
	}
	return m.owner.eng.liveFunction(m, 0)
}

func (m *Message) changed(reason string) {
	if m.owner != nil {
		m.owner.eng.bump(reason)
	}
}

// setOwn places fn as the own frame on top of the stack, replacing any older
// own definition.
func (m *Message) setOwn(fn *Function) {
	m.frames = slices.DeleteFunc(m.frames, func(f frame) bool { return f.source == nil })
	m.frames = append(m.frames, frame{binding: Bind(fn)})
}

// push places a mixin delegate on top of the stack.
func (m *Message) push(source *Module, b Binding) {
	m.frames = append(m.frames, frame{source: source, binding: b})
}

// drop removes every frame contributed by source and reports whether any were removed.
func (m *Message) drop(source *Module) bool {
	before := len(m.frames)
	m.frames = slices.DeleteFunc(m.frames, func(f frame) bool { return f.source == source })
	return len(m.frames) != before
}

// hasOwn reports whether the owning module defines the name itself.
func (m *Message) hasOwn() bool {
	for _, f := range m.frames {
		if f.source == nil && f.binding.IsFunction() {
			return true
		}
	}
	return false
}

// newMessage allocates a module-owned message in the arena.
func (e *Engine) newMessage(name string, owner *Module, b Binding, source *Module) *Message {
	msg := &Message{
		id:       MessageID(len(e.arena) + 1),
		name:     name,
		owner:    owner,
		frames:   []frame{{source: source, binding: b}},
		original: b,
	}
	e.arena = append(e.arena, msg)
	return msg
}

// message returns the live arena message for id, or nil.
func (e *Engine) message(id MessageID) *Message {
	if id <= 0 || int(id) > len(e.arena) {
		return nil
	}
	return e.arena[id-1]
}

// discard removes msg from the arena. Delegates that still point at it are
// evicted the next time they are resolved.
func (e *Engine) discard(msg *Message) {
	if msg.id > 0 && int(msg.id) <= len(e.arena) {
		e.arena[msg.id-1] = nil
	}
	msg.frames = nil
}

// liveFunction returns the function answering for msg: the first frame, from
// the top, whose binding resolves to something. Delegate frames whose target
// was discarded or answers nothing are evicted on the way.
//
// depth counts delegate hops; more hops than there are arena slots means the
// chain loops.
func (e *Engine) liveFunction(msg *Message, depth int) (*Function, error) {
	if depth > len(e.arena) {
		return nil, newDelegationCycle(msg.name)
	}
	for i := len(msg.frames) - 1; i >= 0; i-- {
		fn, err := e.bindingFunction(msg.frames[i].binding, depth)
		if err != nil {
			return nil, err
		}
		if fn != nil {
			return fn, nil
		}
		if msg.frames[i].binding.kind == Delegated {
			msg.frames = slices.Delete(msg.frames, i, i+1)
		}
	}
	return nil, nil
}

// reaches reports whether following b through every frame of every message
// it delegates to arrives at target.
func (e *Engine) reaches(b Binding, target *Message) bool {
	seen := make(map[*Message]bool)
	var walk func(b Binding) bool
	walk = func(b Binding) bool {
		if b.kind != Delegated {
			return false
		}
		next := e.message(b.ref)
		if next == nil || seen[next] {
			return false
		}
		if next == target {
			return true
		}
		seen[next] = true
		for _, f := range next.frames {
			if walk(f.binding) {
				return true
			}
		}
		return false
	}
	return walk(b)
}

// frameFunctions resolves every frame of msg, top first.
func (e *Engine) frameFunctions(msg *Message) ([]*Function, error) {
	var out []*Function
	for i := len(msg.frames) - 1; i >= 0; i-- {
		fn, err := e.bindingFunction(msg.frames[i].binding, 0)
		if err != nil {
			return nil, err
		}
		if fn != nil {
			out = append(out, fn)
		}
	}
	return out, nil
}

func (e *Engine) bindingFunction(b Binding, depth int) (*Function, error) {
	switch b.kind {
	case Direct:
		return b.fn, nil
	case Delegated:
		target := e.message(b.ref)
		if target == nil {
			return nil, nil
		}
		return e.liveFunction(target, depth+1)
	default:
		return nil, nil
	}
}
