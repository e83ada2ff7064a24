package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/eigen/internal/ir"
)

func TestRunWithGolden(t *testing.T) {
	for _, name := range []string{"super_chain", "extend_forward", "method_missing"} {
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario("testdata/scenarios/" + name + ".yaml")
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestMarshalSnapshot_Shape(t *testing.T) {
	result := NewResult("run-7")
	result.Trace = []TraceEvent{
		{Type: "send", Seq: 1, Kind: "send", Receiver: "#<A:1>", Message: "bar"},
		{Type: "reply", Seq: 2, Kind: "send", Message: "bar", Outcome: "missing", Error: "NO_SUCH_METHOD: boom"},
	}

	got, err := MarshalSnapshot("shape", result)
	require.NoError(t, err)

	want := `{"run_token":"run-7","scenario_name":"shape","trace":[` +
		`{"args":[],"depth":0,"kind":"send","message":"bar","receiver":"#<A:1>","seq":1,"type":"send"},` +
		`{"error":"NO_SUCH_METHOD: boom","kind":"send","message":"bar","outcome":"missing","result":null,"seq":2,"type":"reply"}]}`
	assert.Equal(t, want, string(got))
}

func TestMarshalSnapshot_OmitsEmptyRunToken(t *testing.T) {
	result := NewResult("")
	got, err := MarshalSnapshot("empty", result)
	require.NoError(t, err)
	assert.Equal(t, `{"scenario_name":"empty","trace":[]}`, string(got))

	snap := TraceSnapshot{ScenarioName: "x"}
	assert.Equal(t, ir.IRString("x"), snap.toIR()["scenario_name"])
}
