package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/eigen/internal/engine"
)

func decodeSend(t *testing.T, out string) (CLIResponse, SendResult) {
	t.Helper()
	var raw struct {
		CLIResponse
		Data SendResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &raw))
	return raw.CLIResponse, raw.Data
}

func TestSendText(t *testing.T) {
	dir := writeBundleDir(t, map[string]string{"num.cue": numBundle})

	out, _, err := execute(t, "send", dir, "B", "num", "--args", "[2]")
	require.NoError(t, err)
	assert.Equal(t, "=> 6\n", out)
}

func TestSendJSON(t *testing.T) {
	dir := writeBundleDir(t, map[string]string{"num.cue": numBundle})

	out, _, err := execute(t, "send", dir, "B", "num", "--args", "[2]", "--format", "json")
	require.NoError(t, err)

	resp, result := decodeSend(t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "#<B:1>", result.Receiver)
	assert.Equal(t, "num", result.Message)
	assert.Equal(t, engine.OutcomeOK, result.Outcome)
	assert.JSONEq(t, "6", string(result.Result))
	assert.NotEmpty(t, result.RunToken)
	// initialize, num and the super call into A#num
	assert.Equal(t, 3, result.Sends)
}

func TestSendInitArgs(t *testing.T) {
	dir := writeBundleDir(t, map[string]string{"point.cue": `
class: Point: methods: {
	initialize: "ivars.init"
	get:        "ivars.get"
}
`})

	out, _, err := execute(t, "send", dir, "Point", "get", "--init", `[3, "y"]`, "--args", `["arg1"]`)
	require.NoError(t, err)
	assert.Equal(t, "=> \"y\"\n", out)
}

func TestSendToClass(t *testing.T) {
	dir := writeBundleDir(t, map[string]string{"hello.cue": helloBundle})

	out, _, err := execute(t, "send", dir, "Greeter", "count", "--class", "--args", "[1, 2, 3]", "--format", "json")
	require.NoError(t, err)

	_, result := decodeSend(t, out)
	assert.Equal(t, "Greeter", result.Receiver)
	assert.JSONEq(t, "3", string(result.Result))
	assert.Equal(t, 1, result.Sends)
}

func TestSendThroughMixin(t *testing.T) {
	dir := writeBundleDir(t, map[string]string{"hello.cue": helloBundle})

	out, _, err := execute(t, "send", dir, "Greeter", "hello", "--args", `["world"]`)
	require.NoError(t, err)
	assert.Equal(t, "=> \"world, extra\"\n", out)
}

func TestSendNoSuchMethod(t *testing.T) {
	dir := writeBundleDir(t, map[string]string{"num.cue": numBundle})

	out, _, err := execute(t, "send", dir, "A", "nope", "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp, result := decodeSend(t, out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, string(engine.ErrCodeNoSuchMethod), resp.Error.Code)
	assert.Equal(t, engine.OutcomeMissing, result.Outcome)
	assert.Contains(t, result.Error, `undefined method "nope"`)
}

func TestSendMethodMissing(t *testing.T) {
	dir := writeBundleDir(t, map[string]string{"ghost.cue": `class: Ghost: methods: methodMissing: "missing.echo"`})

	out, _, err := execute(t, "send", dir, "Ghost", "foo", "--args", "[1, 2]")
	require.NoError(t, err)
	assert.Equal(t, "=> [\"foo\",1,2]\n", out)
}

func TestSendUnknownClass(t *testing.T) {
	dir := writeBundleDir(t, map[string]string{"num.cue": numBundle})

	out, _, err := execute(t, "send", dir, "Nope", "num")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, ErrCodeUnknownName)
}

func TestSendInvalidArgs(t *testing.T) {
	dir := writeBundleDir(t, map[string]string{"num.cue": numBundle})

	for _, args := range []string{`{"n": 2}`, `[2`, `2`} {
		t.Run(args, func(t *testing.T) {
			out, _, err := execute(t, "send", dir, "B", "num", "--args", args)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, out, ErrCodeInvalidArgs)
		})
	}
}

func TestSendVerboseTimeline(t *testing.T) {
	dir := writeBundleDir(t, map[string]string{"num.cue": numBundle})

	out, _, err := execute(t, "send", dir, "B", "num", "--args", "[2]", "--verbose")
	require.NoError(t, err)
	assert.Contains(t, out, "send #<B:1>.num(2) -> B#num")
	assert.Contains(t, out, "  [4] super #<B:1>.num(2) -> A#num")
	assert.Contains(t, out, "=> 6")
}

func TestSendRecordsToDatabase(t *testing.T) {
	dir := writeBundleDir(t, map[string]string{"num.cue": numBundle})
	db := filepath.Join(t.TempDir(), "trace.db")

	out, _, err := execute(t, "send", dir, "B", "num", "--args", "[2]", "--db", db, "--format", "json")
	require.NoError(t, err)
	_, first := decodeSend(t, out)

	out, _, err = execute(t, "send", dir, "B", "num", "--args", "[3]", "--db", db, "--format", "json")
	require.NoError(t, err)
	_, second := decodeSend(t, out)
	assert.NotEqual(t, first.RunToken, second.RunToken)

	out, _, err = execute(t, "trace", "--db", db, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Data []struct {
			RunToken string `json:"run_token"`
			Sends    int    `json:"sends"`
			FirstSeq int64  `json:"first_seq"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, first.RunToken, resp.Data[0].RunToken)
	assert.Equal(t, int64(1), resp.Data[0].FirstSeq)
	assert.Equal(t, 3, resp.Data[0].Sends)
	// sequence numbers continue across runs in one database
	assert.Equal(t, int64(7), resp.Data[1].FirstSeq)
}

func TestParseArgs(t *testing.T) {
	args, err := ParseArgs(`[1, "a", true, null, [2], {"k": "v"}]`)
	require.NoError(t, err)
	assert.Equal(t, []engine.Value{1, "a", true, nil, []any{2}, map[string]any{"k": "v"}}, args)

	args, err = ParseArgs("")
	require.NoError(t, err)
	assert.Empty(t, args)

	_, err = ParseArgs(`{"k": 1}`)
	assert.Error(t, err)
}
