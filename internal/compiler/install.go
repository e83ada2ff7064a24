package compiler

import (
	"fmt"

	"github.com/roach88/eigen/internal/engine"
	"github.com/roach88/eigen/internal/ir"
)

// Install builds a validated bundle into e, binding methods to lib.
//
// Declarations are installed dependencies first: superclasses and mixins
// exist before anything that names them. Mixins are included in list order,
// so the last one listed takes precedence. Within a declaration, methods
// are defined before mixins are included.
func Install(b *ir.Bundle, e *engine.Engine, lib engine.Library) error {
	if errs := Validate(b, lib); len(errs) > 0 {
		return fmt.Errorf("bundle is invalid: %w", errs[0])
	}

	order, err := installOrder(b)
	if err != nil {
		return err
	}

	for _, name := range order {
		if spec, ok := b.Module(name); ok {
			if err := installModule(spec, e, lib); err != nil {
				return fmt.Errorf("module %s: %w", name, err)
			}
			continue
		}
		spec, _ := b.Class(name)
		if err := installClass(spec, e, lib); err != nil {
			return fmt.Errorf("class %s: %w", name, err)
		}
	}

	e.Logger().Debug("bundle installed", "modules", len(b.Modules), "classes", len(b.Classes))
	return nil
}

// installOrder is a depth-first post-order over the hierarchy graph, rooted
// in declaration order.
func installOrder(b *ir.Bundle) ([]string, error) {
	graph, decl := buildHierarchyGraph(b)

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int)
	var order []string

	var visit func(name string) error
	visit = func(name string) error {
		if _, declared := graph[name]; !declared {
			return nil
		}
		switch state[name] {
		case visiting:
			return fmt.Errorf("hierarchy cycle through %s", name)
		case done:
			return nil
		}
		state[name] = visiting
		for _, dep := range graph[name] {
			if err := visit(dep); err != nil {
				return err
			}
		}
		state[name] = done
		order = append(order, name)
		return nil
	}

	for _, name := range decl {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return order, nil
}

func installModule(spec *ir.ModuleSpec, e *engine.Engine, lib engine.Library) error {
	m, err := e.DefineModule(spec.Name)
	if err != nil {
		return err
	}
	if err := defineAll(m, spec.Methods, lib); err != nil {
		return err
	}
	return includeAll(e, m.Include, spec.Include)
}

func installClass(spec *ir.ClassSpec, e *engine.Engine, lib engine.Library) error {
	var super *engine.Class
	if spec.Superclass != "" {
		var ok bool
		if super, ok = e.LookupClass(spec.Superclass); !ok {
			return fmt.Errorf("superclass %s is not installed", spec.Superclass)
		}
	}

	c, err := e.DefineClass(spec.Name, super)
	if err != nil {
		return err
	}
	if err := defineAll(c.Module, spec.Methods, lib); err != nil {
		return err
	}
	if err := defineAll(c.Eigen(), spec.ClassMethods, lib); err != nil {
		return err
	}
	if err := includeAll(e, c.Include, spec.Include); err != nil {
		return err
	}
	return includeAll(e, c.Extend, spec.Extend)
}

func defineAll(m *engine.Module, methods map[string]string, lib engine.Library) error {
	for _, name := range ir.SortedMethodNames(methods) {
		impl, ok := lib.Get(methods[name])
		if !ok {
			return fmt.Errorf("method %s: unknown host function %q", name, methods[name])
		}
		if err := m.Define(name, impl); err != nil {
			return fmt.Errorf("method %s: %w", name, err)
		}
	}
	return nil
}

func includeAll(e *engine.Engine, include func(*engine.Module) error, names []string) error {
	for _, name := range names {
		mixin, ok := e.Lookup(name)
		if !ok {
			return fmt.Errorf("mixin %s is not installed", name)
		}
		if err := include(mixin); err != nil {
			return fmt.Errorf("include %s: %w", name, err)
		}
	}
	return nil
}
