package engine

import (
	"fmt"
	"sort"
)

// Library is a catalogue of named host implementations. Declarative bundles
// refer to method bodies by library name since they cannot carry Go code.
type Library map[string]Impl

// Get returns the implementation registered under name.
func (l Library) Get(name string) (Impl, bool) {
	impl, ok := l[name]
	return impl, ok
}

// MustGet is Get that panics on unknown names.
func (l Library) MustGet(name string) Impl {
	impl, ok := l[name]
	if !ok {
		panic(fmt.Sprintf("library: unknown function %q", name))
	}
	return impl
}

// Names returns the sorted function names.
func (l Library) Names() []string {
	names := make([]string, 0, len(l))
	for name := range l {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Merge returns a new library with other's entries added. Entries already
// present fail with DUPLICATE_DEFINITION.
func (l Library) Merge(other Library) (Library, error) {
	out := make(Library, len(l)+len(other))
	for name, impl := range l {
		out[name] = impl
	}
	for name, impl := range other {
		if _, exists := out[name]; exists {
			return nil, NewDuplicateDefinition(name, "library function")
		}
		out[name] = impl
	}
	return out, nil
}
