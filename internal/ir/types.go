package ir

import "sort"

// Bundle is a compiled declaration bundle: the modules and classes to build,
// each method bound to a host function name.
type Bundle struct {
	Modules []ModuleSpec `json:"modules"`
	Classes []ClassSpec  `json:"classes"`
}

// ModuleSpec declares a mixin module.
type ModuleSpec struct {
	Name    string            `json:"name"`
	Include []string          `json:"include,omitempty"` // mixins, in include order
	Methods map[string]string `json:"methods,omitempty"` // message name -> host function
}

// ClassSpec declares a class.
type ClassSpec struct {
	Name         string            `json:"name"`
	Superclass   string            `json:"superclass,omitempty"` // empty means Object
	Include      []string          `json:"include,omitempty"`
	Extend       []string          `json:"extend,omitempty"` // mixins for the class eigen
	Methods      map[string]string `json:"methods,omitempty"`
	ClassMethods map[string]string `json:"class_methods,omitempty"`
}

// Module returns the module spec with the given name.
func (b *Bundle) Module(name string) (*ModuleSpec, bool) {
	for i := range b.Modules {
		if b.Modules[i].Name == name {
			return &b.Modules[i], true
		}
	}
	return nil, false
}

// Class returns the class spec with the given name.
func (b *Bundle) Class(name string) (*ClassSpec, bool) {
	for i := range b.Classes {
		if b.Classes[i].Name == name {
			return &b.Classes[i], true
		}
	}
	return nil, false
}

// Names returns every declared module and class name, sorted.
func (b *Bundle) Names() []string {
	names := make([]string, 0, len(b.Modules)+len(b.Classes))
	for _, m := range b.Modules {
		names = append(names, m.Name)
	}
	for _, c := range b.Classes {
		names = append(names, c.Name)
	}
	sort.Strings(names)
	return names
}

// Merge appends other's declarations. Name clashes are left for the
// compiler's validation to report.
func (b *Bundle) Merge(other *Bundle) {
	b.Modules = append(b.Modules, other.Modules...)
	b.Classes = append(b.Classes, other.Classes...)
}

// SortedMethodNames returns the keys of a method table in order.
func SortedMethodNames(methods map[string]string) []string {
	names := make([]string, 0, len(methods))
	for name := range methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Send records one invocation in a dispatch trace.
type Send struct {
	ID            string  `json:"id"` // content-addressed, see SendID
	RunToken      string  `json:"run_token"`
	Seq           int64   `json:"seq"`
	Kind          string  `json:"kind"` // send, super or missing
	Receiver      string  `json:"receiver"`
	Message       string  `json:"message"`
	Function      string  `json:"function"` // "Owner#name", empty when unanswered
	Args          IRArray `json:"args"`
	Depth         int64   `json:"depth"`
	BundleHash    string  `json:"bundle_hash"`
	EngineVersion string  `json:"engine_version"`
	IRVersion     string  `json:"ir_version"`
}

// Reply records how a Send finished.
type Reply struct {
	ID      string  `json:"id"`
	SendID  string  `json:"send_id"`
	Seq     int64   `json:"seq"`
	Outcome string  `json:"outcome"` // ok, missing or error
	Result  IRValue `json:"result"`
	Error   string  `json:"error,omitempty"`
}
