package compiler

import (
	"fmt"
	"regexp"
	"slices"

	"github.com/roach88/eigen/internal/engine"
	"github.com/roach88/eigen/internal/ir"
)

// Validation error codes (E100-E199)
const (
	ErrInvalidName       = "E101" // module, class or method name is not an identifier
	ErrDuplicateName     = "E102" // two declarations share a name
	ErrUnknownSuperclass = "E103" // superclass is not a declared class
	ErrUnknownMixin      = "E104" // include/extend names something that is not a declared module
	ErrUnknownFunction   = "E105" // host function missing from the library
	ErrReservedName      = "E106" // method name is structural
	ErrHierarchyCycle    = "E107" // superclass/include graph loops
)

// ValidationError represents a bundle validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// builtinClasses can be named as superclasses without being declared.
var builtinClasses = []string{"Object"}

// builtinModules exist in every engine and cannot be redeclared.
var builtinModules = []string{"Kernel", "Class"}

// Validate checks a compiled bundle. Returns all errors found (does not
// fail-fast). Host function references are only checked when lib is non-nil.
func Validate(b *ir.Bundle, lib engine.Library) []ValidationError {
	var errs []ValidationError
	add := func(field, code, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Code: code, Message: fmt.Sprintf(format, args...)})
	}

	seen := make(map[string]string)
	claim := func(kind, name string) {
		field := kind + "." + name
		if !identPattern.MatchString(name) {
			add(field, ErrInvalidName, "%q is not a valid name", name)
		}
		if prev, dup := seen[name]; dup || slices.Contains(builtinClasses, name) || slices.Contains(builtinModules, name) {
			if prev == "" {
				prev = "builtin"
			}
			add(field, ErrDuplicateName, "%q is already declared as %s", name, prev)
			return
		}
		seen[name] = kind
	}
	for _, m := range b.Modules {
		claim("module", m.Name)
	}
	for _, c := range b.Classes {
		claim("class", c.Name)
	}

	checkMethods := func(field string, table map[string]string) {
		for _, name := range ir.SortedMethodNames(table) {
			mfield := field + "." + name
			if !identPattern.MatchString(name) {
				add(mfield, ErrInvalidName, "%q is not a valid method name", name)
			}
			if slices.Contains(engine.ReservedNames, name) {
				add(mfield, ErrReservedName, "%q is reserved", name)
			}
			if lib != nil {
				if _, ok := lib.Get(table[name]); !ok {
					add(mfield, ErrUnknownFunction, "unknown host function %q", table[name])
				}
			}
		}
	}
	checkMixins := func(field string, names []string) {
		for _, name := range names {
			if seen[name] != "module" {
				add(field, ErrUnknownMixin, "%q is not a declared module", name)
			}
		}
	}

	for _, m := range b.Modules {
		field := "module." + m.Name
		checkMixins(field+".include", m.Include)
		checkMethods(field+".methods", m.Methods)
	}
	for _, c := range b.Classes {
		field := "class." + c.Name
		if c.Superclass != "" && seen[c.Superclass] != "class" && !slices.Contains(builtinClasses, c.Superclass) {
			add(field+".superclass", ErrUnknownSuperclass, "%q is not a declared class", c.Superclass)
		}
		checkMixins(field+".include", c.Include)
		checkMixins(field+".extend", c.Extend)
		checkMethods(field+".methods", c.Methods)
		checkMethods(field+".class_methods", c.ClassMethods)
	}

	for _, cyc := range AnalyzeCycles(b) {
		add("hierarchy", ErrHierarchyCycle, "%s", cyc.Message)
	}
	return errs
}
