package testutil

import "sync"

// DeterministicClock is a resettable seq source for trace recorders in tests.
//
// Unlike engine.Clock it can be rewound, so one scenario can be run twice and
// produce byte-identical traces both times. It satisfies store.Sequencer.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu  sync.Mutex
	seq int64
}

// NewDeterministicClock creates a clock whose first Next() returns 1.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{}
}

// Next increments and returns the next sequence number.
func (c *DeterministicClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Current returns the current sequence number without incrementing.
func (c *DeterministicClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Reset rewinds the clock so the next call to Next() returns 1.
func (c *DeterministicClock) Reset() {
	c.ResetTo(0)
}

// ResetTo rewinds (or advances) the clock so the next call to Next() returns seq+1.
// Used to continue a run recorded into an existing store.
func (c *DeterministicClock) ResetTo(seq int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = seq
}
