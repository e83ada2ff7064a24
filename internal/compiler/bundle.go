package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/eigen/internal/ir"
)

// CompileBundle parses a CUE value holding `module:` and/or `class:` structs
// into an ir.Bundle. Declarations keep their source order.
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`
//		module: Greeter: methods: hello: "hello.extra"
//		class: A: methods: hello: "hello.base"
//		class: B: { superclass: "A", include: ["Greeter"] }
//	`)
//	bundle, err := CompileBundle(v)
func CompileBundle(v cue.Value) (*ir.Bundle, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	bundle := &ir.Bundle{}

	if mods := v.LookupPath(cue.ParsePath("module")); mods.Exists() {
		iter, err := mods.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			spec, err := CompileModule(iter.Label(), iter.Value())
			if err != nil {
				return nil, err
			}
			bundle.Modules = append(bundle.Modules, *spec)
		}
	}

	if classes := v.LookupPath(cue.ParsePath("class")); classes.Exists() {
		iter, err := classes.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			spec, err := CompileClass(iter.Label(), iter.Value())
			if err != nil {
				return nil, err
			}
			bundle.Classes = append(bundle.Classes, *spec)
		}
	}

	return bundle, nil
}

// CompileModule parses one module declaration.
func CompileModule(name string, v cue.Value) (*ir.ModuleSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if err := onlyFields(v, "include", "methods"); err != nil {
		return nil, err
	}

	spec := &ir.ModuleSpec{Name: name}
	var err error
	if spec.Include, err = stringList(v, "include"); err != nil {
		return nil, err
	}
	if spec.Methods, err = methodTable(v, "methods"); err != nil {
		return nil, err
	}
	return spec, nil
}

// CompileClass parses one class declaration.
func CompileClass(name string, v cue.Value) (*ir.ClassSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if err := onlyFields(v, "superclass", "include", "extend", "methods", "class_methods"); err != nil {
		return nil, err
	}

	spec := &ir.ClassSpec{Name: name}
	if sv := v.LookupPath(cue.ParsePath("superclass")); sv.Exists() {
		s, err := sv.String()
		if err != nil {
			return nil, &CompileError{Field: "superclass", Message: "superclass must be a string", Pos: sv.Pos()}
		}
		spec.Superclass = s
	}

	var err error
	if spec.Include, err = stringList(v, "include"); err != nil {
		return nil, err
	}
	if spec.Extend, err = stringList(v, "extend"); err != nil {
		return nil, err
	}
	if spec.Methods, err = methodTable(v, "methods"); err != nil {
		return nil, err
	}
	if spec.ClassMethods, err = methodTable(v, "class_methods"); err != nil {
		return nil, err
	}
	return spec, nil
}

// onlyFields rejects unknown keys so typos like `includes:` fail loudly.
func onlyFields(v cue.Value, allowed ...string) error {
	iter, err := v.Fields()
	if err != nil {
		return &CompileError{Field: "declaration", Message: "declaration must be a struct", Pos: v.Pos()}
	}
	for iter.Next() {
		label := iter.Label()
		known := false
		for _, a := range allowed {
			if label == a {
				known = true
				break
			}
		}
		if !known {
			return &CompileError{
				Field:   label,
				Message: fmt.Sprintf("unknown field (allowed: %v)", allowed),
				Pos:     iter.Value().Pos(),
			}
		}
	}
	return nil
}

func stringList(v cue.Value, field string) ([]string, error) {
	lv := v.LookupPath(cue.ParsePath(field))
	if !lv.Exists() {
		return nil, nil
	}
	iter, err := lv.List()
	if err != nil {
		return nil, &CompileError{Field: field, Message: "must be a list of names", Pos: lv.Pos()}
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{Field: field, Message: "list entries must be strings", Pos: iter.Value().Pos()}
		}
		out = append(out, s)
	}
	return out, nil
}

// methodTable reads `methods: { name: "host.function" }`.
func methodTable(v cue.Value, field string) (map[string]string, error) {
	mv := v.LookupPath(cue.ParsePath(field))
	if !mv.Exists() {
		return nil, nil
	}
	iter, err := mv.Fields()
	if err != nil {
		return nil, &CompileError{Field: field, Message: "must map message names to host functions", Pos: mv.Pos()}
	}
	table := make(map[string]string)
	for iter.Next() {
		name := iter.Label()
		fn, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{
				Field:   field + "." + name,
				Message: "host function reference must be a string",
				Pos:     iter.Value().Pos(),
			}
		}
		table[name] = fn
	}
	return table, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError keeps the first CUE error and its position.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{Field: "cue", Message: first.Error(), Pos: positions[0]}
	}
	return err
}
