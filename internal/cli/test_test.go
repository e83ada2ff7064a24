package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const superScenario = `name: super_chain
description: B#num reaches A#num through super
steps:
  - new: { class: B, as: b }
  - send: { to: b, message: num, args: [2] }
    expect: { equal: 6 }
assertions:
  - type: trace_order
    functions: ["B#num", "A#num"]
`

const missingScenario = `name: missing_method
description: unknown messages fail without methodMissing
steps:
  - new: { class: A, as: a }
  - send: { to: a, message: nope }
    expect: { error: NO_SUCH_METHOD }
`

const failingScenario = `name: wrong_answer
description: expects the wrong product
steps:
  - new: { class: B, as: b }
  - send: { to: b, message: num, args: [2] }
    expect: { equal: 7 }
`

// testDirs returns a bundle directory holding numBundle and a scenarios
// directory holding the given files.
func testDirs(t *testing.T, scenarios map[string]string) (string, string) {
	t.Helper()
	return writeBundleDir(t, map[string]string{"num.cue": numBundle}), writeBundleDir(t, scenarios)
}

func decodeTest(t *testing.T, out string) (CLIResponse, TestResult) {
	t.Helper()
	var raw struct {
		CLIResponse
		Data TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &raw))
	return raw.CLIResponse, raw.Data
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, _, err := execute(t, "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 2 arg")
}

func TestTestCommandNonExistentBundleDir(t *testing.T) {
	_, _, err := execute(t, "test", "/nonexistent/bundle", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	bundle, _ := testDirs(t, nil)

	out, _, err := execute(t, "test", bundle, "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
	assert.Contains(t, out, ErrCodeNotFound)
}

func TestTestCommandEmptyScenariosDir(t *testing.T) {
	bundle, scenarios := testDirs(t, nil)

	out, _, err := execute(t, "test", bundle, scenarios)
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")

	out, _, err = execute(t, "test", bundle, scenarios, "--format", "json")
	require.NoError(t, err)
	resp, result := decodeTest(t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.Empty(t, result.Scenarios)
}

func TestTestCommandPasses(t *testing.T) {
	bundle, scenarios := testDirs(t, map[string]string{
		"super.yaml":   superScenario,
		"missing.yaml": missingScenario,
	})

	out, _, err := execute(t, "test", bundle, scenarios)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ super_chain")
	assert.Contains(t, out, "✓ missing_method")
	assert.Contains(t, out, "Test Summary: 2 passed, 0 failed, 2 total")
	assert.Contains(t, out, "All scenarios passed")
}

func TestTestCommandFailures(t *testing.T) {
	bundle, scenarios := testDirs(t, map[string]string{
		"super.yaml": superScenario,
		"wrong.yaml": failingScenario,
	})

	out, _, err := execute(t, "test", bundle, scenarios, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp, result := decodeTest(t, out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeTestFailures, resp.Error.Code)
	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, 1, result.Failed)

	for _, s := range result.Scenarios {
		if s.Name == "wrong_answer" {
			assert.False(t, s.Pass)
			assert.NotEmpty(t, s.Errors)
		}
	}
}

func TestTestCommandBrokenScenarioFile(t *testing.T) {
	bundle, scenarios := testDirs(t, map[string]string{
		"super.yaml":  superScenario,
		"broken.yaml": "name: [unterminated",
	})

	out, _, err := execute(t, "test", bundle, scenarios)
	require.Error(t, err)
	assert.Contains(t, out, "✗ broken")
	assert.Contains(t, out, "1 passed, 1 failed")
}

func TestTestCommandFilter(t *testing.T) {
	bundle, scenarios := testDirs(t, map[string]string{
		"super.yaml":   superScenario,
		"missing.yaml": missingScenario,
	})

	out, _, err := execute(t, "test", bundle, scenarios, "--filter", "super")
	require.NoError(t, err)
	assert.Contains(t, out, "1 passed, 0 failed, 1 total (1 filtered out)")
	assert.NotContains(t, out, "missing_method")
}

func TestTestCommandInvalidBundle(t *testing.T) {
	bundle := writeBundleDir(t, map[string]string{"bad.cue": `class: B: superclass: "Nope"`})
	scenarios := writeBundleDir(t, map[string]string{"super.yaml": superScenario})

	_, _, err := execute(t, "test", bundle, scenarios)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestTestCommandGolden(t *testing.T) {
	bundle, scenarios := testDirs(t, map[string]string{"super.yaml": superScenario})
	golden := filepath.Join(scenarios, "golden", "super.golden")

	out, _, err := execute(t, "test", bundle, scenarios, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "(golden updated)")
	require.FileExists(t, golden)

	out, _, err = execute(t, "test", bundle, scenarios, "--format", "json")
	require.NoError(t, err)
	_, result := decodeTest(t, out)
	require.Len(t, result.Scenarios, 1)
	assert.Equal(t, "match", result.Scenarios[0].Golden)

	require.NoError(t, os.WriteFile(golden, []byte(`{"stale":true}`), 0o644))
	out, _, err = execute(t, "test", bundle, scenarios, "--format", "json")
	require.Error(t, err)
	_, result = decodeTest(t, out)
	assert.Equal(t, "mismatch", result.Scenarios[0].Golden)
	assert.False(t, result.Scenarios[0].Pass)
}

func TestTestHelpText(t *testing.T) {
	out, _, err := execute(t, "test", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "--update")
	assert.Contains(t, out, "--filter")
	assert.Contains(t, out, "bundle-dir")
	assert.Contains(t, out, "scenarios-dir")
}

func TestGoldenFilePath(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"/path/to/scenario.yaml", "/path/to/golden/scenario.golden"},
		{"/path/to/scenario.yml", "/path/to/golden/scenario.golden"},
		{"scenarios/test.yaml", "scenarios/golden/test.golden"},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, goldenFilePath(tc.input))
	}
}
