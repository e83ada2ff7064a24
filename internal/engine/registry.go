package engine

import "sort"

// Thunk sends one fixed message name to any receiver.
type Thunk func(recv Receiver, args ...Value) (Value, error)

// Registry holds one dispatch thunk per message name ever defined, included
// or sent, plus the reserved structural names that can never be defined.
//
// Thunks are created once and reused. Each invocation builds a fresh
// send-site Message, so super chains cached by one send never leak into
// another.
type Registry struct {
	eng      *Engine
	thunks   map[string]Thunk
	reserved map[string]bool
}

func newRegistry(e *Engine) *Registry {
	return &Registry{
		eng:      e,
		thunks:   make(map[string]Thunk),
		reserved: make(map[string]bool),
	}
}

// RegisterName installs the thunk for name if missing. Returns true when a
// new thunk was installed. Reserved and empty names are ignored.
func (r *Registry) RegisterName(name string) bool {
	if name == "" || r.reserved[name] {
		return false
	}
	if _, ok := r.thunks[name]; ok {
		return false
	}
	r.thunks[name] = r.makeThunk(name)
	return true
}

// RegisterBulk registers every name and returns how many were new.
func (r *Registry) RegisterBulk(names []string) int {
	added := 0
	for _, name := range names {
		if r.RegisterName(name) {
			added++
		}
	}
	return added
}

// Registered reports whether name has a thunk.
func (r *Registry) Registered(name string) bool {
	_, ok := r.thunks[name]
	return ok
}

// Thunk returns the thunk for name, registering it on first use.
//
// Reserved and empty names get a thunk that always fails with NO_SUCH_METHOD:
// nothing can ever be defined under them.
func (r *Registry) Thunk(name string) Thunk {
	if t, ok := r.thunks[name]; ok {
		return t
	}
	if name == "" || r.reserved[name] {
		return func(recv Receiver, _ ...Value) (Value, error) {
			desc := "nil"
			if !isNil(recv) {
				desc = recv.Inspect()
			}
			return nil, NewNoSuchMethod(name, desc)
		}
	}
	r.RegisterName(name)
	return r.thunks[name]
}

// Reserve marks structural names that Define must reject.
func (r *Registry) Reserve(names ...string) {
	for _, name := range names {
		r.reserved[name] = true
		delete(r.thunks, name)
	}
}

// IsReserved reports whether name is structural.
func (r *Registry) IsReserved(name string) bool {
	return r.reserved[name]
}

// Names returns the sorted registered names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.thunks))
	for name := range r.thunks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) makeThunk(name string) Thunk {
	e := r.eng
	return func(recv Receiver, args ...Value) (Value, error) {
		return e.send(&Message{name: name}, recv, args)
	}
}
