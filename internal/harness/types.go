package harness

import (
	"github.com/roach88/eigen/internal/ir"
	"github.com/roach88/eigen/internal/store"
)

// TraceEvent is one send or reply of a scenario run, flattened for
// assertions and golden files.
type TraceEvent struct {
	Type     string     `json:"type"` // "send" or "reply"
	Seq      int64      `json:"seq"`
	Kind     string     `json:"kind"` // send, super or missing
	Receiver string     `json:"receiver,omitempty"`
	Message  string     `json:"message"`
	Function string     `json:"function,omitempty"`
	Args     ir.IRArray `json:"args,omitempty"`
	Depth    int64      `json:"depth,omitempty"`
	Outcome  string     `json:"outcome,omitempty"`
	Result   ir.IRValue `json:"result,omitempty"`
	Error    string     `json:"error,omitempty"`
}

// IsSend reports whether the event is a send.
func (ev TraceEvent) IsSend() bool {
	return ev.Type == store.EventSend.String()
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// RunToken groups the run's trace records.
	RunToken string `json:"run_token"`

	// BundleHash identifies the installed declarations.
	BundleHash string `json:"bundle_hash,omitempty"`

	// Trace contains every send and reply in seq order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Objects maps each `as:` binding to the object's inspect string.
	Objects map[string]string `json:"objects,omitempty"`
}

// NewResult creates a new passing result.
func NewResult(runToken string) *Result {
	return &Result{
		Pass:     true,
		RunToken: runToken,
		Trace:    []TraceEvent{},
		Errors:   []string{},
		Objects:  make(map[string]string),
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// traceFromEvents flattens recorder events. Replies carry the kind and
// message of the send they answer.
func traceFromEvents(events []store.RunEvent) []TraceEvent {
	sends := make(map[string]*ir.Send)
	trace := make([]TraceEvent, 0, len(events))
	for _, ev := range events {
		if s := ev.Send; s != nil {
			sends[s.ID] = s
			trace = append(trace, TraceEvent{
				Type:     ev.Type.String(),
				Seq:      s.Seq,
				Kind:     s.Kind,
				Receiver: s.Receiver,
				Message:  s.Message,
				Function: s.Function,
				Args:     s.Args,
				Depth:    s.Depth,
			})
			continue
		}
		r := ev.Reply
		te := TraceEvent{
			Type:    ev.Type.String(),
			Seq:     r.Seq,
			Outcome: r.Outcome,
			Result:  r.Result,
			Error:   r.Error,
		}
		if s, ok := sends[r.SendID]; ok {
			te.Kind = s.Kind
			te.Message = s.Message
		}
		trace = append(trace, te)
	}
	return trace
}
