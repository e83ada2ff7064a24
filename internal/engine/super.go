package engine

import "slices"

// callSuper runs the implementation that precedes c's function in the super
// chain of c's send site. With nothing before it, the message falls through
// to methodMissing and then NO_SUCH_METHOD, just like an unanswered send.
func (e *Engine) callSuper(c *Call, args []Value) (Value, error) {
	chain, err := e.superChain(c.message, c.self)
	if err != nil {
		return nil, err
	}
	if idx := slices.Index(chain, c.function); idx > 0 {
		return e.invoke(KindSuper, c.message, c.self, chain[idx-1], args)
	}
	if c.message.name == MethodMissing {
		name, _ := c.Arg(0).(string)
		if name == "" {
			name = MethodMissing
		}
		return nil, NewNoSuchMethod(name, c.self.Inspect())
	}
	return e.missing(KindSuper, c.self, c.message.name, args)
}

// superChain lists every implementation of the site's name reachable from
// recv, ancestral first and most derived last.
//
// Modules are scanned in lookup order and every frame of each module's
// override stack is visited top-down; each newly seen function is prepended.
// The chain is cached on the send site for the current epoch.
func (e *Engine) superChain(site *Message, recv Receiver) ([]*Function, error) {
	epoch := e.epoch.Current()
	from := recv.Eigen()
	if site.superChain != nil && site.superEpoch == epoch && site.superFrom == from {
		return site.superChain, nil
	}

	var found []*Function
	seen := make(map[*Function]bool)
	for _, mod := range recv.lookupChain() {
		msg, ok := mod.methods[site.name]
		if !ok {
			continue
		}
		fns, err := e.frameFunctions(msg)
		if err != nil {
			return nil, err
		}
		for _, fn := range fns {
			if !seen[fn] {
				seen[fn] = true
				found = append(found, fn)
			}
		}
	}
	slices.Reverse(found)

	site.superChain = found
	site.superEpoch = epoch
	site.superFrom = from
	return found, nil
}

// SuperChain returns the implementations of name reachable from recv,
// ancestral first. Useful for introspection; dispatch keeps its own copy.
func (e *Engine) SuperChain(recv Receiver, name string) ([]*Function, error) {
	return e.superChain(&Message{name: name}, recv)
}
