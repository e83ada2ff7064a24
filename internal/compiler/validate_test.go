package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/eigen/internal/engine"
	"github.com/roach88/eigen/internal/ir"
)

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func testLibrary() engine.Library {
	noop := func(*engine.Call) (engine.Value, error) { return nil, nil }
	return engine.Library{"noop": noop, "num.base": noop}
}

func TestValidate_Valid(t *testing.T) {
	b := &ir.Bundle{
		Modules: []ir.ModuleSpec{{Name: "M", Methods: map[string]string{"hello": "noop"}}},
		Classes: []ir.ClassSpec{
			{Name: "A", Superclass: "Object", Methods: map[string]string{"num": "num.base"}},
			{Name: "B", Superclass: "A", Include: []string{"M"}},
		},
	}
	assert.Empty(t, Validate(b, testLibrary()))
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		bundle ir.Bundle
		code   string
	}{
		{"bad module name", ir.Bundle{Modules: []ir.ModuleSpec{{Name: "my-mod"}}}, ErrInvalidName},
		{"bad method name", ir.Bundle{Modules: []ir.ModuleSpec{{Name: "M", Methods: map[string]string{"a b": "noop"}}}}, ErrInvalidName},
		{"duplicate", ir.Bundle{Modules: []ir.ModuleSpec{{Name: "A"}}, Classes: []ir.ClassSpec{{Name: "A"}}}, ErrDuplicateName},
		{"builtin redeclared", ir.Bundle{Classes: []ir.ClassSpec{{Name: "Object"}}}, ErrDuplicateName},
		{"builtin module redeclared", ir.Bundle{Modules: []ir.ModuleSpec{{Name: "Class"}}}, ErrDuplicateName},
		{"ivars as method", ir.Bundle{Modules: []ir.ModuleSpec{{Name: "M", Methods: map[string]string{"ivars": "noop"}}}}, ErrReservedName},
		{"unknown superclass", ir.Bundle{Classes: []ir.ClassSpec{{Name: "B", Superclass: "A"}}}, ErrUnknownSuperclass},
		{"module as superclass", ir.Bundle{Modules: []ir.ModuleSpec{{Name: "M"}}, Classes: []ir.ClassSpec{{Name: "B", Superclass: "M"}}}, ErrUnknownSuperclass},
		{"class as mixin", ir.Bundle{Classes: []ir.ClassSpec{{Name: "A"}, {Name: "B", Include: []string{"A"}}}}, ErrUnknownMixin},
		{"unknown extend", ir.Bundle{Classes: []ir.ClassSpec{{Name: "B", Extend: []string{"Nope"}}}}, ErrUnknownMixin},
		{"unknown function", ir.Bundle{Classes: []ir.ClassSpec{{Name: "B", Methods: map[string]string{"x": "nope"}}}}, ErrUnknownFunction},
		{"reserved method", ir.Bundle{Classes: []ir.ClassSpec{{Name: "B", ClassMethods: map[string]string{"super": "noop"}}}}, ErrReservedName},
		{"cycle", ir.Bundle{Modules: []ir.ModuleSpec{{Name: "M", Include: []string{"N"}}, {Name: "N", Include: []string{"M"}}}}, ErrHierarchyCycle},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			errs := Validate(&tc.bundle, testLibrary())
			assert.Contains(t, codes(errs), tc.code, "got %v", errs)
		})
	}
}

func TestValidate_NilLibrarySkipsFunctions(t *testing.T) {
	b := &ir.Bundle{Classes: []ir.ClassSpec{{Name: "B", Methods: map[string]string{"x": "anything"}}}}
	assert.Empty(t, Validate(b, nil))
}

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{Field: "class.B", Code: ErrUnknownSuperclass, Message: `"A" is not a declared class`}
	assert.Equal(t, `[E103] class.B: "A" is not a declared class`, err.Error())
}
