package testutil

import (
	"io"
	"log/slog"
	"testing"

	"github.com/roach88/eigen/internal/engine"
)

// DefaultRunToken is used by FixedRunGenerator when no token is given.
const DefaultRunToken = "test-run-default"

// FixedRunGenerator generates the same run token every time.
//
// Unlike engine.FixedGenerator, which hands out a list of tokens in order,
// this generator never runs out. Scenarios use it so every trace record
// shares the token written in the scenario file:
//
//	run_token: "test-run-00000000-0000-0000-0000-000000000001"
//
// Thread-safety: FixedRunGenerator is stateless and safe for concurrent use.
type FixedRunGenerator struct {
	token string
}

var _ engine.RunTokenGenerator = (*FixedRunGenerator)(nil)

// NewFixedRunGenerator creates a generator returning token, or
// DefaultRunToken when token is empty.
func NewFixedRunGenerator(token string) *FixedRunGenerator {
	if token == "" {
		token = DefaultRunToken
	}
	return &FixedRunGenerator{token: token}
}

// Generate returns the fixed run token.
func (g *FixedRunGenerator) Generate() string {
	return g.token
}

// DiscardLogger returns a logger that drops every record.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewEngine creates an engine with logging discarded, for tests.
func NewEngine(t testing.TB, opts ...engine.EngineOption) *engine.Engine {
	t.Helper()
	return engine.New(append([]engine.EngineOption{engine.WithLogger(DiscardLogger())}, opts...)...)
}
