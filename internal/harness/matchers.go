package harness

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/eigen/internal/engine"
	"github.com/roach88/eigen/internal/ir"
)

// Matcher checks one expectation against a step's outcome. It returns nil
// when the outcome matches and a description of the mismatch otherwise.
type Matcher func(actual engine.Value, err error, expected any) error

// Built-in matcher names.
const (
	MatchEqual   = "equal"
	MatchContain = "contain"
	MatchError   = "error"
	MatchNil     = "nil"
)

// Matchers is a registry of named matchers used by `expect:` clauses.
type Matchers struct {
	byName map[string]Matcher
}

// NewMatchers returns a registry holding the built-in matchers.
func NewMatchers() *Matchers {
	m := &Matchers{byName: make(map[string]Matcher)}
	m.byName[MatchEqual] = matchEqual
	m.byName[MatchContain] = matchContain
	m.byName[MatchError] = matchError
	m.byName[MatchNil] = matchNil
	return m
}

// Register adds a matcher. Registering a name twice fails with
// DUPLICATE_DEFINITION.
func (m *Matchers) Register(name string, fn Matcher) error {
	if _, exists := m.byName[name]; exists {
		return engine.NewDuplicateDefinition(name, "matcher")
	}
	m.byName[name] = fn
	return nil
}

// Lookup returns the named matcher.
func (m *Matchers) Lookup(name string) (Matcher, bool) {
	fn, ok := m.byName[name]
	return fn, ok
}

// Names returns the registered matcher names, sorted.
func (m *Matchers) Names() []string {
	names := make([]string, 0, len(m.byName))
	for name := range m.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Check applies every matcher in expect, in name order. An error outcome
// fails unless the "error" matcher is among them.
func (m *Matchers) Check(expect map[string]any, actual engine.Value, err error) []string {
	var failures []string
	if _, wantsError := expect[MatchError]; err != nil && !wantsError {
		failures = append(failures, fmt.Sprintf("unexpected error: %v", err))
	}

	names := make([]string, 0, len(expect))
	for name := range expect {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fn, ok := m.byName[name]
		if !ok {
			failures = append(failures, fmt.Sprintf("unknown matcher %q", name))
			continue
		}
		if name != MatchError && err != nil {
			continue // already reported
		}
		if mismatch := fn(actual, err, expect[name]); mismatch != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", name, mismatch))
		}
	}
	return failures
}

// canonical encodes a dispatch or YAML value as canonical JSON.
func canonical(v any) ([]byte, error) {
	iv, err := ir.FromGo(v)
	if err != nil {
		return nil, err
	}
	return ir.MarshalCanonical(iv)
}

func sameValue(a, b any) (bool, error) {
	ca, err := canonical(a)
	if err != nil {
		return false, err
	}
	cb, err := canonical(b)
	if err != nil {
		return false, err
	}
	return bytes.Equal(ca, cb), nil
}

// matchEqual compares canonical encodings, so 6 equals int64(6) and map key
// order never matters.
func matchEqual(actual engine.Value, _ error, expected any) error {
	ok, err := sameValue(actual, expected)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("expected %s, got %s", describe(expected), describe(actual))
	}
	return nil
}

// matchContain checks for a substring of a string result or an element of a
// list result.
func matchContain(actual engine.Value, _ error, expected any) error {
	switch a := actual.(type) {
	case string:
		want, ok := expected.(string)
		if !ok {
			return fmt.Errorf("expected a string to look for, got %T", expected)
		}
		if !strings.Contains(a, want) {
			return fmt.Errorf("%q does not contain %q", a, want)
		}
		return nil
	case []any:
		for _, elem := range a {
			if ok, _ := sameValue(elem, expected); ok {
				return nil
			}
		}
		return fmt.Errorf("%s does not contain %s", describe(actual), describe(expected))
	default:
		return fmt.Errorf("cannot look inside %T", actual)
	}
}

// matchError expects a failure. The expected value is an error code such as
// NO_SUCH_METHOD, or else a substring of the error message.
func matchError(_ engine.Value, err error, expected any) error {
	if err == nil {
		return fmt.Errorf("expected error %v, got success", expected)
	}
	want := fmt.Sprintf("%v", expected)
	if code, ok := engine.CodeOf(err); ok && string(code) == want {
		return nil
	}
	if strings.Contains(err.Error(), want) {
		return nil
	}
	return fmt.Errorf("expected error %s, got %v", want, err)
}

// matchNil expects a nil result when given true and a non-nil one when given false.
func matchNil(actual engine.Value, _ error, expected any) error {
	want, ok := expected.(bool)
	if !ok {
		return fmt.Errorf("expected true or false, got %v", expected)
	}
	if (actual == nil) != want {
		return fmt.Errorf("expected nil=%t, got %s", want, describe(actual))
	}
	return nil
}

func describe(v any) string {
	c, err := canonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(c)
}
