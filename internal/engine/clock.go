package engine

import "sync/atomic"

// Clock is the engine epoch: a monotonic counter advanced on every
// structural mutation of the module graph.
//
// Cached lookups record the epoch they were computed at. A cache entry is
// only trusted while its epoch equals Current(), so any define, undefine,
// include or uninclude invalidates every cached resolution at once.
//
// The same type doubles as a sequence source for trace recorders.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a new clock starting at a specific sequence number.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
