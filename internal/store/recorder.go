package store

import (
	"context"
	"fmt"

	"github.com/roach88/eigen/internal/engine"
	"github.com/roach88/eigen/internal/ir"
)

// Sequencer hands out the logical seq numbers of a run.
// engine.Clock and testutil.DeterministicClock both satisfy it.
type Sequencer interface {
	Next() int64
}

// Recorder is an engine.Tracer that turns dispatch events into content-addressed
// ir.Send and ir.Reply records. It always keeps the run in memory and, when
// given a store, appends every record to it as well.
//
// Replies are paired with sends through a stack: the engine brackets nested
// dispatch, so each reply answers the most recent unanswered send.
//
// A Recorder cannot return errors through the Tracer interface. The first
// failure is kept and reported by Err; later events are still recorded in
// memory.
type Recorder struct {
	ctx        context.Context
	store      *Store
	seq        Sequencer
	runToken   string
	bundleHash string

	open   []*ir.Send
	events []RunEvent
	err    error
}

var _ engine.Tracer = (*Recorder)(nil)

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithStore persists every record to s.
func WithStore(s *Store) RecorderOption {
	return func(r *Recorder) {
		r.store = s
	}
}

// WithSequencer sets the seq source. Default: a fresh engine.Clock starting at 1.
func WithSequencer(seq Sequencer) RecorderOption {
	return func(r *Recorder) {
		if seq != nil {
			r.seq = seq
		}
	}
}

// WithBundleHash stamps sends with the hash of the installed bundle.
func WithBundleHash(hash string) RecorderOption {
	return func(r *Recorder) {
		r.bundleHash = hash
	}
}

// WithContext sets the context used for store writes.
func WithContext(ctx context.Context) RecorderOption {
	return func(r *Recorder) {
		if ctx != nil {
			r.ctx = ctx
		}
	}
}

// NewRecorder creates a recorder for one run.
func NewRecorder(runToken string, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		ctx:      context.Background(),
		seq:      engine.NewClock(),
		runToken: runToken,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunToken returns the token grouping this run's records.
func (r *Recorder) RunToken() string {
	return r.runToken
}

// Send implements engine.Tracer.
func (r *Recorder) Send(ev engine.SendEvent) {
	seq := r.seq.Next()
	args := ir.FromGoArgs(ev.Args)

	id, err := ir.SendID(r.runToken, seq, ev.Receiver, ev.Message, args)
	if err != nil {
		r.fail(err)
		id = fmt.Sprintf("unhashed-%d", seq)
	}

	send := &ir.Send{
		ID:            id,
		RunToken:      r.runToken,
		Seq:           seq,
		Kind:          string(ev.Kind),
		Receiver:      ev.Receiver,
		Message:       ev.Message,
		Function:      ev.Function,
		Args:          args,
		Depth:         int64(ev.Depth),
		BundleHash:    r.bundleHash,
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
	}
	r.open = append(r.open, send)
	r.events = append(r.events, RunEvent{Type: EventSend, Seq: seq, ID: id, Send: send})

	if r.store != nil {
		r.fail(r.store.WriteSend(r.ctx, *send))
	}
}

// Reply implements engine.Tracer.
func (r *Recorder) Reply(ev engine.ReplyEvent) {
	if len(r.open) == 0 {
		r.fail(fmt.Errorf("reply to %q without an open send", ev.Message))
		return
	}
	send := r.open[len(r.open)-1]
	r.open = r.open[:len(r.open)-1]

	seq := r.seq.Next()
	result, err := ir.FromGo(ev.Value)
	if err != nil {
		result = ir.IRString(fmt.Sprintf("%v", ev.Value))
	}

	id, err := ir.ReplyID(send.ID, ev.Outcome, result, seq)
	if err != nil {
		r.fail(err)
		id = fmt.Sprintf("unhashed-%d", seq)
	}

	reply := &ir.Reply{
		ID:      id,
		SendID:  send.ID,
		Seq:     seq,
		Outcome: ev.Outcome,
		Result:  result,
	}
	if ev.Err != nil {
		reply.Error = ev.Err.Error()
	}
	r.events = append(r.events, RunEvent{Type: EventReply, Seq: seq, ID: id, Reply: reply})

	if r.store != nil {
		r.fail(r.store.WriteReply(r.ctx, *reply))
	}
}

// Events returns the recorded run in emission order.
func (r *Recorder) Events() []RunEvent {
	return r.events
}

// Sends returns the recorded sends in seq order.
func (r *Recorder) Sends() []ir.Send {
	var out []ir.Send
	for _, ev := range r.events {
		if ev.Send != nil {
			out = append(out, *ev.Send)
		}
	}
	return out
}

// Replies returns the recorded replies in seq order.
func (r *Recorder) Replies() []ir.Reply {
	var out []ir.Reply
	for _, ev := range r.events {
		if ev.Reply != nil {
			out = append(out, *ev.Reply)
		}
	}
	return out
}

// Pending returns how many sends are still waiting for their reply.
func (r *Recorder) Pending() int {
	return len(r.open)
}

// Err returns the first error met while recording, if any.
func (r *Recorder) Err() error {
	return r.err
}

func (r *Recorder) fail(err error) {
	if err == nil || r.err != nil {
		return
	}
	r.err = fmt.Errorf("record run %s: %w", r.runToken, err)
}
