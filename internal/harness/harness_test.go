package harness

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/eigen/internal/engine"
	"github.com/roach88/eigen/internal/hostlib"
	"github.com/roach88/eigen/internal/store"
)

func writeBundle(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bundle.cue")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestRun_SuperChain(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/super_chain.yaml")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)

	assert.Equal(t, "test-run-default", result.RunToken)
	assert.NotEmpty(t, result.BundleHash)
	assert.Equal(t, map[string]string{"b": "#<B:1>"}, result.Objects)

	require.Len(t, result.Trace, 6)
	for i, ev := range result.Trace {
		assert.Equal(t, int64(i+1), ev.Seq, "seq is contiguous from 1")
	}
	assert.Equal(t, "reply", result.Trace[5].Type)
	assert.Equal(t, "num", result.Trace[5].Message)
}

func TestRun_FailedExpectationIsReported(t *testing.T) {
	scenario := &Scenario{
		Name:        "wrong_answer",
		Description: "expects the wrong result",
		Bundles:     []string{"testdata/bundles/num.cue"},
		Steps: []Step{
			{New: &NewStep{Class: "B", As: "b"}},
			{Send: &SendStep{To: "b", Message: "num", Args: []any{2}}, Expect: map[string]any{"equal": 7}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "steps[1] (send): equal: expected 7, got 6")
}

func TestRun_UnknownNamesFailSteps(t *testing.T) {
	scenario := &Scenario{
		Name:        "unknowns",
		Description: "refers to things that do not exist",
		Bundles:     []string{"testdata/bundles/num.cue"},
		Steps: []Step{
			{New: &NewStep{Class: "Nope", As: "x"}},
			{Send: &SendStep{To: "ghost", Message: "num"}},
			{Extend: &MixinStep{Target: "A", Module: "Missing"}},
			{Define: &DefineStep{Target: "A", Message: "m", Function: "no.such.function"}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 4)
	assert.Contains(t, result.Errors[0], `unknown class "Nope"`)
	assert.Contains(t, result.Errors[1], `unknown receiver "ghost"`)
	assert.Contains(t, result.Errors[2], `unknown module "Missing"`)
	assert.Contains(t, result.Errors[3], `unknown host function "no.such.function"`)
}

func TestRun_MaxDepth(t *testing.T) {
	scenario := &Scenario{
		Name:        "depth",
		Description: "a depth limit of one leaves no room for super",
		Bundles:     []string{"testdata/bundles/num.cue"},
		MaxDepth:    1,
		Steps: []Step{
			{New: &NewStep{Class: "B", As: "b"}},
			{
				Send:   &SendStep{To: "b", Message: "num", Args: []any{2}},
				Expect: map[string]any{"error": string(engine.ErrCodeDepthExceeded)},
			},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_BadBundle(t *testing.T) {
	path := writeBundle(t, `class: A: superclass: "Missing"`)
	scenario := &Scenario{
		Name:        "bad",
		Description: "superclass is never declared",
		Bundles:     []string{path},
		Steps:       []Step{{New: &NewStep{Class: "A", As: "a"}}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "install bundle")
}

func TestRun_WithLibrary(t *testing.T) {
	lib := hostlib.Default()
	lib["answer"] = func(*engine.Call) (engine.Value, error) { return 42, nil }

	path := writeBundle(t, `class: Oracle: methods: ask: "answer"`)
	scenario := &Scenario{
		Name:        "custom_library",
		Description: "bundles bind to caller-supplied host functions",
		Bundles:     []string{path},
		Steps: []Step{
			{New: &NewStep{Class: "Oracle", As: "o"}},
			{Send: &SendStep{To: "o", Message: "ask"}, Expect: map[string]any{"equal": 42}},
		},
	}

	result, err := Run(scenario, WithLibrary(lib))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_WithStorePersistsTrace(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "trace.db"))
	require.NoError(t, err)
	defer st.Close()

	scenario, err := LoadScenario("testdata/scenarios/super_chain.yaml")
	require.NoError(t, err)

	result, err := Run(scenario, WithStore(st))
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	sends, replies, err := st.ReadRun(context.Background(), result.RunToken)
	require.NoError(t, err)
	assert.Len(t, sends, 3)
	assert.Len(t, replies, 3)
	for _, s := range sends {
		assert.Equal(t, result.BundleHash, s.BundleHash)
	}
}

func TestRun_IsDeterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/extend_forward.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	a, err := MarshalSnapshot(scenario.Name, first)
	require.NoError(t, err)
	b, err := MarshalSnapshot(scenario.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}
