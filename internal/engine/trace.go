package engine

// EventKind tells how an invocation was reached.
type EventKind string

const (
	// KindSend is a regular dispatch.
	KindSend EventKind = "send"

	// KindSuper is a super call.
	KindSuper EventKind = "super"

	// KindMissing is a methodMissing fallback.
	KindMissing EventKind = "missing"
)

// Reply outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeMissing = "missing"
	OutcomeError   = "error"
)

// SendEvent is emitted right before an implementation runs, and for sends
// nobody answers (with an empty Function).
type SendEvent struct {
	Kind     EventKind
	Receiver string
	Message  string
	Function string
	Args     []Value
	Depth    int
}

// ReplyEvent is emitted right after an implementation returns. Replies pair
// with sends in LIFO order.
type ReplyEvent struct {
	Kind    EventKind
	Message string
	Outcome string
	Value   Value
	Err     error
	Depth   int
}

// Tracer observes dispatch. Implementations must not dispatch on the engine
// that calls them.
type Tracer interface {
	Send(ev SendEvent)
	Reply(ev ReplyEvent)
}

// SetTracer replaces the tracer; nil disables tracing.
func (e *Engine) SetTracer(t Tracer) {
	e.tracer = t
}

func (e *Engine) traceSend(kind EventKind, recv Receiver, name string, fn *Function, args []Value) {
	if e.tracer == nil {
		return
	}
	var function string
	if fn != nil {
		function = fn.String()
	}
	e.tracer.Send(SendEvent{
		Kind:     kind,
		Receiver: recv.Inspect(),
		Message:  name,
		Function: function,
		Args:     args,
		Depth:    e.quota.current,
	})
}

func (e *Engine) traceReply(kind EventKind, name string, v Value, err error) {
	if e.tracer == nil {
		return
	}
	outcome := OutcomeOK
	switch {
	case IsNoSuchMethod(err):
		outcome = OutcomeMissing
	case err != nil:
		outcome = OutcomeError
	}
	e.tracer.Reply(ReplyEvent{
		Kind:    kind,
		Message: name,
		Outcome: outcome,
		Value:   v,
		Err:     err,
		Depth:   e.quota.current,
	})
}
