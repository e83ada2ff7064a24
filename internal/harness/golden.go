package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/eigen/internal/ir"
)

// TraceSnapshot captures the complete trace of a scenario run.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	RunToken     string       `json:"run_token,omitempty"`
	Trace        []TraceEvent `json:"trace"`
}

// toIR converts the snapshot to an IR object so it serializes canonically.
// Sends keep receiver, function, args and depth; replies keep outcome,
// result and error.
func (s *TraceSnapshot) toIR() ir.IRObject {
	events := make(ir.IRArray, len(s.Trace))
	for i, ev := range s.Trace {
		obj := ir.IRObject{
			"type":    ir.IRString(ev.Type),
			"seq":     ir.IRInt(ev.Seq),
			"kind":    ir.IRString(ev.Kind),
			"message": ir.IRString(ev.Message),
		}
		if ev.IsSend() {
			obj["receiver"] = ir.IRString(ev.Receiver)
			obj["depth"] = ir.IRInt(ev.Depth)
			args := ev.Args
			if args == nil {
				args = ir.IRArray{}
			}
			obj["args"] = args
			if ev.Function != "" {
				obj["function"] = ir.IRString(ev.Function)
			}
		} else {
			obj["outcome"] = ir.IRString(ev.Outcome)
			result := ev.Result
			if result == nil {
				result = ir.IRNull{}
			}
			obj["result"] = result
			if ev.Error != "" {
				obj["error"] = ir.IRString(ev.Error)
			}
		}
		events[i] = obj
	}

	out := ir.IRObject{
		"scenario_name": ir.IRString(s.ScenarioName),
		"trace":         events,
	}
	if s.RunToken != "" {
		out["run_token"] = ir.IRString(s.RunToken)
	}
	return out
}

// MarshalSnapshot renders a result's trace as canonical JSON.
func MarshalSnapshot(name string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{
		ScenarioName: name,
		RunToken:     result.RunToken,
		Trace:        result.Trace,
	}
	return ir.MarshalCanonical(snapshot.toIR())
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(scenario, opts...)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	traceJSON, err := MarshalSnapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)
	return nil
}
