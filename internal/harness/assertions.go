package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/eigen/internal/engine"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			if event.IsSend() {
				fmt.Fprintf(&buf, "  [%d] %s%s %s %s %s\n", event.Seq,
					strings.Repeat("  ", int(max(event.Depth-1, 0))),
					event.Kind, event.Receiver, event.Message, describe(event.Args))
			}
		}
	}

	return buf.String()
}

// AssertionContext gives assertions access to the engine the scenario ran on.
type AssertionContext struct {
	Engine  *engine.Engine
	Objects map[string]*engine.Object
}

// assertTraceContains checks for a send matching every filter the assertion sets.
func assertTraceContains(trace []TraceEvent, a Assertion) error {
	for _, event := range trace {
		if matchesSend(event, a) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: describeFilter(a),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

func matchesSend(event TraceEvent, a Assertion) bool {
	if !event.IsSend() {
		return false
	}
	if a.Message != "" && event.Message != a.Message {
		return false
	}
	if a.Function != "" && event.Function != a.Function {
		return false
	}
	if a.Kind != "" && event.Kind != a.Kind {
		return false
	}
	if a.Args != nil {
		ok, err := sameValue(event.Args, a.Args)
		if err != nil || !ok {
			return false
		}
	}
	return true
}

func describeFilter(a Assertion) string {
	var parts []string
	if a.Kind != "" {
		parts = append(parts, "kind "+a.Kind)
	}
	if a.Message != "" {
		parts = append(parts, "message "+a.Message)
	}
	if a.Function != "" {
		parts = append(parts, "function "+a.Function)
	}
	if a.Args != nil {
		parts = append(parts, "args "+describe(a.Args))
	}
	return "send with " + strings.Join(parts, ", ")
}

// assertTraceOrder checks that functions were first entered in the given order.
// Other sends may come in between.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	positions := make(map[string]int)
	for i, event := range trace {
		if !event.IsSend() || event.Function == "" {
			continue
		}
		if _, seen := positions[event.Function]; !seen {
			positions[event.Function] = i + 1 // 1-indexed for readability
		}
	}

	for _, fn := range a.Functions {
		if positions[fn] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all functions present: %v", a.Functions),
				Actual:   fmt.Sprintf("missing function: %s", fn),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(a.Functions); i++ {
		prev, curr := a.Functions[i-1], a.Functions[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("functions in order: %v", a.Functions),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

// assertTraceCount checks that message was sent exactly Count times.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, event := range trace {
		if event.IsSend() && event.Message == a.Message && (a.Kind == "" || event.Kind == a.Kind) {
			count++
		}
	}

	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d sends of %s", a.Count, a.Message),
			Actual:   fmt.Sprintf("%d sends", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertAncestors compares the lookup chain of a bound object, or the
// ancestors of a class or module, against the expected names.
func assertAncestors(actx *AssertionContext, a Assertion) error {
	var got []string
	if obj, ok := actx.Objects[a.Of]; ok {
		for _, m := range engine.LookupChain(obj) {
			got = append(got, m.Name())
		}
	} else if m, ok := actx.Engine.Lookup(a.Of); ok {
		got = m.AncestorNames()
	} else {
		return fmt.Errorf("ancestors: unknown object or module %q", a.Of)
	}

	if !slices.Equal(got, a.Expect) {
		return &AssertionError{
			Type:     AssertAncestors,
			Expected: fmt.Sprintf("%s ancestors %v", a.Of, a.Expect),
			Actual:   fmt.Sprintf("%v", got),
		}
	}
	return nil
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, a := range assertions {
		var err error

		switch a.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, a)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, a)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		case AssertAncestors:
			if actx == nil || actx.Engine == nil {
				err = fmt.Errorf("assertion[%d]: ancestors requires an engine", i)
			} else {
				err = assertAncestors(actx, a)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
