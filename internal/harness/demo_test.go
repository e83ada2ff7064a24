package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDemoScenarios runs every checked-in scenario. They double as worked
// examples of the object model:
//
//   - super_chain: B.new.num(2) is 6 via B#num = n * super and A#num = 1 + n
//   - extend_forward: extend M then N; hello("world") is "x world, extra"
//   - method_missing: foo(1, 2) answers [foo, 1, 2]; a bare object fails
//   - redefine: define, undefine, include and uninclude at runtime
//   - shapes: a bundle directory with mixins, initialize and class methods
func TestDemoScenarios(t *testing.T) {
	tests := []struct {
		name       string
		objects    map[string]string
		traceLen   int
		lastResult any
	}{
		{"super_chain", map[string]string{"b": "#<B:1>"}, 6, 6},
		{"extend_forward", map[string]string{"a": "#<A:1>"}, 8, "x world, extra"},
		{"method_missing", map[string]string{"ghost": "#<Ghost:1>", "plain": "#<Object:2>"}, 8, nil},
		{"redefine", map[string]string{"a": "#<A:1>"}, 12, nil},
		{"shapes", map[string]string{"sq": "#<Square:1>"}, 12, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scenario, err := LoadScenario("testdata/scenarios/" + tt.name + ".yaml")
			require.NoError(t, err)

			result, err := Run(scenario)
			require.NoError(t, err)
			require.True(t, result.Pass, "errors: %v", result.Errors)

			assert.Equal(t, tt.objects, result.Objects)
			assert.Len(t, result.Trace, tt.traceLen)

			if tt.lastResult != nil {
				last := result.Trace[len(result.Trace)-1]
				assert.Equal(t, "ok", last.Outcome)
				ok, err := sameValue(last.Result, tt.lastResult)
				require.NoError(t, err)
				assert.True(t, ok, "last result %s", describe(last.Result))
			}
		})
	}
}
