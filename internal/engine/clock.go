package engine

import "sync/atomic"

// Clock is a monotonic logical clock for trace ordering.
//
// Every trace entry is stamped with a strictly increasing seq number from
// this clock, so the audit trail has a total order even when parallel
// stages append concurrently. Wall-clock time is recorded separately and
// never used for ordering.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
// Calls are linearizable - each call returns a unique, increasing value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
