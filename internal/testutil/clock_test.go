package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/eigen/internal/engine"
	"github.com/roach88/eigen/internal/store"
)

func TestDeterministicClock_Sequence(t *testing.T) {
	clock := NewDeterministicClock()
	assert.Equal(t, int64(0), clock.Current())

	for want := int64(1); want <= 3; want++ {
		assert.Equal(t, want, clock.Next())
	}
	assert.Equal(t, int64(3), clock.Current())

	clock.ResetTo(41)
	assert.Equal(t, int64(42), clock.Next())

	clock.Reset()
	assert.Equal(t, int64(1), clock.Next())
}

func TestDeterministicClock_ConcurrentNextIsUnique(t *testing.T) {
	clock := NewDeterministicClock()
	const workers, calls = 20, 50

	var mu sync.Mutex
	seen := make(map[int64]bool, workers*calls)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < calls; j++ {
				v := clock.Next()
				mu.Lock()
				seen[v] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*calls)
	assert.Equal(t, int64(workers*calls), clock.Current())
}

// A rewound clock makes a recorder reproduce the same content IDs.
func TestDeterministicClock_ReproducibleTrace(t *testing.T) {
	clock := NewDeterministicClock()
	record := func() []string {
		clock.Reset()
		rec := store.NewRecorder("run-1", store.WithSequencer(clock))
		rec.Send(engine.SendEvent{Kind: engine.KindSend, Receiver: "#<A:1>", Message: "num", Function: "A#num", Args: []engine.Value{2}, Depth: 1})
		rec.Reply(engine.ReplyEvent{Kind: engine.KindSend, Message: "num", Outcome: engine.OutcomeOK, Value: 3})

		var ids []string
		for _, s := range rec.Sends() {
			ids = append(ids, s.ID)
		}
		for _, r := range rec.Replies() {
			ids = append(ids, r.ID)
		}
		return ids
	}

	first := record()
	assert.Len(t, first, 2)
	assert.Equal(t, first, record())
}
