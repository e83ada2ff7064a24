package store

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/eigen/internal/engine"
	"github.com/roach88/eigen/internal/ir"
	"github.com/roach88/eigen/internal/testutil"
)

// scaledPair builds A#num (doubles) and B < A whose num triples super's answer.
func scaledPair(t *testing.T) (*engine.Engine, *engine.Object) {
	t.Helper()
	e := engine.New(engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	a, err := e.DefineClass("A", nil, engine.Methods{
		"num": func(c *engine.Call) (engine.Value, error) {
			n, _ := c.Arg(0).(int)
			return n * 2, nil
		},
	})
	require.NoError(t, err)
	b, err := e.DefineClass("B", a, engine.Methods{
		"num": func(c *engine.Call) (engine.Value, error) {
			v, err := c.Super()
			if err != nil {
				return nil, err
			}
			return v.(int) * 3, nil
		},
	})
	require.NoError(t, err)

	obj, err := b.Construct()
	require.NoError(t, err)
	return e, obj
}

func TestRecorder_PairsNestedReplies(t *testing.T) {
	e, obj := scaledPair(t)
	rec := NewRecorder("run-1")
	e.SetTracer(rec)

	v, err := obj.Send("num", 2)
	require.NoError(t, err)
	assert.Equal(t, 12, v)
	require.NoError(t, rec.Err())
	assert.Zero(t, rec.Pending())

	events := rec.Events()
	require.Len(t, events, 4)
	assert.Equal(t, []RunEventType{EventSend, EventSend, EventReply, EventReply},
		[]RunEventType{events[0].Type, events[1].Type, events[2].Type, events[3].Type})

	outer, inner := events[0].Send, events[1].Send
	assert.Equal(t, "send", outer.Kind)
	assert.Equal(t, "B#num", outer.Function)
	assert.Equal(t, ir.IRArray{ir.IRInt(2)}, outer.Args)
	assert.Equal(t, "super", inner.Kind)
	assert.Equal(t, "A#num", inner.Function)
	assert.Greater(t, inner.Depth, outer.Depth)

	// Innermost send is answered first.
	assert.Equal(t, inner.ID, events[2].Reply.SendID)
	assert.Equal(t, ir.IRInt(4), events[2].Reply.Result)
	assert.Equal(t, outer.ID, events[3].Reply.SendID)
	assert.Equal(t, ir.IRInt(12), events[3].Reply.Result)

	for i, ev := range events {
		assert.Equal(t, int64(i+1), ev.Seq)
	}
}

func TestRecorder_ContentAddressedIDs(t *testing.T) {
	e, obj := scaledPair(t)
	rec := NewRecorder("run-1")
	e.SetTracer(rec)

	_, err := obj.Send("num", 2)
	require.NoError(t, err)

	send := rec.Sends()[0]
	want, err := ir.SendID("run-1", send.Seq, send.Receiver, "num", ir.IRArray{ir.IRInt(2)})
	require.NoError(t, err)
	assert.Equal(t, want, send.ID)

	reply := rec.Replies()[1]
	wantReply, err := ir.ReplyID(send.ID, engine.OutcomeOK, ir.IRInt(12), reply.Seq)
	require.NoError(t, err)
	assert.Equal(t, wantReply, reply.ID)
}

func TestRecorder_UnansweredSend(t *testing.T) {
	e, obj := scaledPair(t)
	rec := NewRecorder("run-1")
	e.SetTracer(rec)

	_, err := obj.Send("frob")
	require.Error(t, err)
	assert.True(t, engine.IsNoSuchMethod(err))

	sends, replies := rec.Sends(), rec.Replies()
	require.Len(t, sends, 1)
	require.Len(t, replies, 1)
	assert.Empty(t, sends[0].Function)
	assert.Equal(t, engine.OutcomeMissing, replies[0].Outcome)
	assert.Contains(t, replies[0].Error, "NO_SUCH_METHOD")
	assert.Equal(t, ir.IRNull{}, replies[0].Result)
}

func TestRecorder_Sequencer(t *testing.T) {
	e, obj := scaledPair(t)
	rec := NewRecorder("run-1", WithSequencer(engine.NewClockAt(10)))
	e.SetTracer(rec)

	_, err := obj.Send("num", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(11), rec.Events()[0].Seq)
}

func TestRecorder_ReplayIsByteIdentical(t *testing.T) {
	clock := testutil.NewDeterministicClock()
	record := func() []RunEvent {
		clock.Reset()
		e, obj := scaledPair(t)
		rec := NewRecorder("run-1", WithSequencer(clock))
		e.SetTracer(rec)
		_, err := obj.Send("num", 3)
		require.NoError(t, err)
		return rec.Events()
	}

	first, second := record(), record()
	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}
}

func TestRecorder_PersistsToStore(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	e, obj := scaledPair(t)
	rec := NewRecorder("run-1", WithStore(s), WithBundleHash("bundle-abc"), WithContext(ctx))
	e.SetTracer(rec)

	_, err := obj.Send("num", 2)
	require.NoError(t, err)
	_, err = obj.Send("frob")
	require.Error(t, err)
	require.NoError(t, rec.Err())

	events, err := s.ReadRunEvents(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, events, len(rec.Events()))
	for i, ev := range events {
		assert.Equal(t, rec.Events()[i].ID, ev.ID, "event %d", i)
		assert.Equal(t, rec.Events()[i].Type, ev.Type, "event %d", i)
	}
	assert.Equal(t, "bundle-abc", events[0].Send.BundleHash)

	state, err := s.GetRunState(ctx, "run-1")
	require.NoError(t, err)
	assert.True(t, state.IsComplete)
	assert.Equal(t, int64(6), state.LastSeq)
}

func TestRecorder_KeepsFirstError(t *testing.T) {
	s := createTestStore(t)
	require.NoError(t, s.Close())

	e, obj := scaledPair(t)
	rec := NewRecorder("run-1", WithStore(s))
	e.SetTracer(rec)

	v, err := obj.Send("num", 2)
	require.NoError(t, err, "recording failures must not break dispatch")
	assert.Equal(t, 12, v)

	require.Error(t, rec.Err())
	assert.Contains(t, rec.Err().Error(), "record run run-1")
	assert.Len(t, rec.Events(), 4, "events are still kept in memory")
}

func TestRecorder_ReplyWithoutSend(t *testing.T) {
	rec := NewRecorder("run-1")
	rec.Reply(engine.ReplyEvent{Kind: engine.KindSend, Message: "num", Outcome: engine.OutcomeOK})

	require.Error(t, rec.Err())
	assert.Empty(t, rec.Events())
}
