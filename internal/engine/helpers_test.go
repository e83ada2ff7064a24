package engine

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
)

func newTestEngine(t *testing.T, opts ...EngineOption) *Engine {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(append([]EngineOption{WithLogger(logger)}, opts...)...)
}

func constant(v Value) Impl {
	return func(*Call) (Value, error) { return v, nil }
}

func toInt(v Value) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	default:
		return 0
	}
}

// joinArgs formats every argument with %v, space separated.
func joinArgs(c *Call) (Value, error) {
	parts := make([]string, len(c.Args()))
	for i, a := range c.Args() {
		parts[i] = fmt.Sprintf("%v", a)
	}
	return strings.Join(parts, " "), nil
}

// recorder is a Tracer keeping events as strings.
type recorder struct {
	events []string
}

func (r *recorder) Send(ev SendEvent) {
	r.events = append(r.events, fmt.Sprintf("%s %s %s%v", ev.Kind, ev.Function, ev.Message, ev.Args))
}

func (r *recorder) Reply(ev ReplyEvent) {
	r.events = append(r.events, fmt.Sprintf("reply %s %s %v", ev.Message, ev.Outcome, ev.Value))
}
