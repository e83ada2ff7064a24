package engine

import (
	"fmt"
	"slices"
	"sort"
)

// Hooks are optional callbacks fired after structural changes to a module.
type Hooks struct {
	// MethodAdded fires after Define on the module.
	MethodAdded func(m *Module, name string)

	// MethodRemoved fires after Undefine on the module.
	MethodRemoved func(m *Module, name string)

	// Included fires on the mixin after it is included into base.
	Included func(mixin, base *Module)

	// Unincluded fires on the mixin after it is removed from base.
	Unincluded func(mixin, base *Module)
}

// Module is a named table of messages with ordered mixins and an optional
// superclass link.
//
// Classes embed a Module; eigen (singleton) modules are plain modules whose
// superclass is the class they belong to (or nothing, for objects).
type Module struct {
	Hooks Hooks

	eng        *Engine
	id         int
	name       string
	methods    map[string]*Message
	order      []string  // names in first-definition order
	includes   []*Module // most recent first
	superclass *Module
	class      *Class
	singleton  bool
	root       bool

	// resolution cache for receivers whose eigen this is
	resolved      map[string]*Function
	resolvedEpoch int64
}

func (e *Engine) newModule(name string) *Module {
	e.moduleSeq++
	return &Module{
		eng:     e,
		id:      e.moduleSeq,
		name:    name,
		methods: make(map[string]*Message),
	}
}

// DefineModule creates a named module. Anonymous modules (empty name) are
// allowed and never collide.
func (e *Engine) DefineModule(name string) (*Module, error) {
	if err := e.claimName(name); err != nil {
		return nil, err
	}
	m := e.newModule(name)
	if name != "" {
		e.namespace[name] = m
	}
	e.logger.Debug("module defined", "module", name)
	return m, nil
}

// Name returns the module name.
func (m *Module) Name() string {
	if m.name == "" {
		return fmt.Sprintf("#<Module:%d>", m.id)
	}
	return m.name
}

// String implements fmt.Stringer.
func (m *Module) String() string {
	return m.Name()
}

// Engine returns the engine owning the module.
func (m *Module) Engine() *Engine {
	return m.eng
}

// Class returns the class this module belongs to, or nil for plain modules.
func (m *Module) Class() *Class {
	return m.class
}

// IsSingleton reports whether the module is an eigen module.
func (m *Module) IsSingleton() bool {
	return m.singleton
}

// Superclass returns the superclass link, or nil.
func (m *Module) Superclass() *Module {
	return m.superclass
}

// Includes returns the directly included mixins, most recent first.
func (m *Module) Includes() []*Module {
	return slices.Clone(m.includes)
}

// Message returns the module's own entry for name.
func (m *Module) Message(name string) (*Message, bool) {
	msg, ok := m.methods[name]
	return msg, ok
}

// Define installs fn as the module's own implementation of name.
//
// An existing own definition is replaced and the new one moves to the top of
// the override stack, shadowing mixins included earlier. The name is
// registered with the dispatch registry.
func (m *Module) Define(name string, impl Impl) error {
	if name == "" {
		return newInvalidName("method name must not be empty")
	}
	if impl == nil {
		return newInvalidName("method %q has no implementation", name)
	}
	if m.eng.registry.IsReserved(name) {
		return NewDuplicateDefinition(name, "reserved name")
	}

	fn := &Function{name: name, owner: m, impl: impl}
	if msg, ok := m.methods[name]; ok {
		msg.setOwn(fn)
	} else {
		m.methods[name] = m.eng.newMessage(name, m, Bind(fn), nil)
		m.order = append(m.order, name)
	}
	m.eng.registry.RegisterName(name)
	m.eng.bump("define")

	m.eng.logger.Debug("method defined", "module", m.Name(), "name", name)
	if m.Hooks.MethodAdded != nil {
		m.Hooks.MethodAdded(m, name)
	}
	return nil
}

// Undefine removes the module's own definition of name. Frames contributed
// by mixins stay, so an included implementation answers again; the entry is
// dropped once nothing is left. Returns false, without firing MethodRemoved,
// when the module does not define name itself.
func (m *Module) Undefine(name string) bool {
	msg, ok := m.methods[name]
	if !ok || !msg.drop(nil) {
		return false
	}
	if len(msg.frames) == 0 {
		m.forget(name, msg)
	}
	m.eng.bump("undefine")

	m.eng.logger.Debug("method removed", "module", m.Name(), "name", name)
	if m.Hooks.MethodRemoved != nil {
		m.Hooks.MethodRemoved(m, name)
	}
	return true
}

func (m *Module) forget(name string, msg *Message) {
	delete(m.methods, name)
	m.order = slices.DeleteFunc(m.order, func(n string) bool { return n == name })
	m.eng.discard(msg)
}

// Include mixes mixin into the module.
//
// Every name the mixin currently answers gets a delegate frame on top of the
// module's entry for that name; names the module lacks get a fresh entry.
// Including a mixin twice is a no-op.
//
// Fails with INVALID_MODULE when mixin is nil, the module itself, a class,
// eigen or built-in module, from another engine, or already has the module
// among its ancestors. Fails with DELEGATION_CYCLE when a delegate frame
// would lead back to the module's own entry; nothing is changed then.
func (m *Module) Include(mixin *Module) error {
	if err := m.checkMixin(mixin); err != nil {
		return err
	}
	if slices.Contains(m.includes, mixin) {
		return nil
	}
	if m.root {
		return newInvalidModule("cannot include %s into the root module", mixin.Name())
	}
	if slices.Contains(mixin.Ancestors(), m) {
		return newInvalidModule("including %s into %s would create a cycle", mixin.Name(), m.Name())
	}

	for _, name := range mixin.order {
		if msg, ok := m.methods[name]; ok && m.eng.reaches(Delegate(mixin.methods[name].id), msg) {
			return newDelegationCycle(name)
		}
	}

	m.includes = append([]*Module{mixin}, m.includes...)
	for _, name := range mixin.order {
		src := mixin.methods[name]
		if msg, ok := m.methods[name]; ok {
			msg.push(mixin, Delegate(src.id))
		} else {
			m.methods[name] = m.eng.newMessage(name, m, Delegate(src.id), mixin)
			m.order = append(m.order, name)
		}
		m.eng.registry.RegisterName(name)
	}
	m.eng.bump("include")

	m.eng.logger.Debug("module included", "module", m.Name(), "mixin", mixin.Name())
	if mixin.Hooks.Included != nil {
		mixin.Hooks.Included(mixin, m)
	}
	return nil
}

// Uninclude removes a previously included mixin and pops exactly the frames
// it contributed. Entries left with no frames are removed.
func (m *Module) Uninclude(mixin *Module) error {
	if mixin == nil {
		return newInvalidModule("cannot uninclude nil module from %s", m.Name())
	}
	idx := slices.Index(m.includes, mixin)
	if idx < 0 {
		return newInvalidModule("%s is not included in %s", mixin.Name(), m.Name())
	}
	m.includes = slices.Delete(m.includes, idx, idx+1)

	for _, name := range slices.Clone(m.order) {
		msg := m.methods[name]
		if msg.drop(mixin) && len(msg.frames) == 0 {
			m.forget(name, msg)
		}
	}
	m.eng.bump("uninclude")

	m.eng.logger.Debug("module unincluded", "module", m.Name(), "mixin", mixin.Name())
	if mixin.Hooks.Unincluded != nil {
		mixin.Hooks.Unincluded(mixin, m)
	}
	return nil
}

func (m *Module) checkMixin(mixin *Module) error {
	switch {
	case mixin == nil:
		return newInvalidModule("cannot include nil module into %s", m.Name())
	case mixin == m:
		return newInvalidModule("%s cannot include itself", m.Name())
	case mixin.eng != m.eng:
		return newInvalidModule("%s belongs to another engine", mixin.Name())
	case mixin.class != nil:
		return newInvalidModule("cannot include class %s", mixin.Name())
	case mixin.singleton:
		return newInvalidModule("cannot include eigen module %s", mixin.Name())
	case mixin.root, mixin == m.eng.classSide:
		return newInvalidModule("cannot include the built-in module %s", mixin.Name())
	}
	return nil
}

// Ancestors returns the module, its mixins (recursively, most recent first),
// then its superclass chain, deduplicated, ending with Kernel.
//
// Kernel's own ancestor list is just [Kernel].
func (m *Module) Ancestors() []*Module {
	root := m.eng.kernel
	if m == root {
		return []*Module{root}
	}

	var out []*Module
	seen := map[*Module]bool{root: true}
	var walk func(mod *Module)
	walk = func(mod *Module) {
		if mod == nil || seen[mod] {
			return
		}
		seen[mod] = true
		out = append(out, mod)
		for _, inc := range mod.includes {
			walk(inc)
		}
		walk(mod.superclass)
	}
	walk(m)
	return append(out, root)
}

// AncestorNames is Ancestors mapped to names.
func (m *Module) AncestorNames() []string {
	anc := m.Ancestors()
	names := make([]string, len(anc))
	for i, a := range anc {
		names[i] = a.Name()
	}
	return names
}

// MethodDefined reports whether any ancestor answers name.
func (m *Module) MethodDefined(name string) bool {
	for _, mod := range m.Ancestors() {
		msg, ok := mod.methods[name]
		if !ok {
			continue
		}
		if fn, err := m.eng.liveFunction(msg, 0); err == nil && fn != nil {
			return true
		}
	}
	return false
}

// InstanceMethod returns the function instances would run for name, found
// along the module's ancestors. Fails with NO_SUCH_METHOD when nothing
// answers.
func (m *Module) InstanceMethod(name string) (*Function, error) {
	for _, mod := range m.Ancestors() {
		msg, ok := mod.methods[name]
		if !ok {
			continue
		}
		fn, err := m.eng.liveFunction(msg, 0)
		if err != nil {
			return nil, err
		}
		if fn != nil {
			return fn, nil
		}
	}
	return nil, NewNoSuchMethod(name, m.Name())
}

// InstanceMethods returns the sorted names answered anywhere in the ancestors.
func (m *Module) InstanceMethods() []string {
	set := make(map[string]bool)
	for _, mod := range m.Ancestors() {
		for name, msg := range mod.methods {
			if fn, err := m.eng.liveFunction(msg, 0); err == nil && fn != nil {
				set[name] = true
			}
		}
	}
	return sortedSet(set)
}

// OwnMethods returns the sorted names the module defines itself.
func (m *Module) OwnMethods() []string {
	set := make(map[string]bool)
	for name, msg := range m.methods {
		if msg.hasOwn() {
			set[name] = true
		}
	}
	return sortedSet(set)
}

func sortedSet(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
