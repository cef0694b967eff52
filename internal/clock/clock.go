package clock

import (
	"sync/atomic"
	"time"
)

// Timer is a handle to a callback armed with Scheduler.AfterFunc.
type Timer interface {
	// Stop prevents the callback from running. It returns false if the
	// callback already ran or the timer was already stopped.
	Stop() bool
}

// Scheduler runs callbacks serially on a single goroutine.
//
// Callbacks must not block. Work that suspends (network calls) happens off
// the scheduler and posts its continuation back with Post.
type Scheduler interface {
	// Now returns the scheduler's current time.
	Now() time.Time

	// AfterFunc arms f to run on the scheduler after d.
	AfterFunc(d time.Duration, f func()) Timer

	// Post queues f to run on the scheduler as soon as possible.
	// Returns false if the scheduler no longer accepts work.
	Post(f func()) bool
}

// StopAll stops every timer and returns how many were still pending.
func StopAll(timers []Timer) int {
	stopped := 0
	for _, t := range timers {
		if t != nil && t.Stop() {
			stopped++
		}
	}
	return stopped
}

// Sequence is a monotonic logical counter for ordering events.
//
// Transitions and session events are stamped with Next() so observers can
// order them without relying on wall-clock timestamps.
//
// Thread-safety: Sequence is safe for concurrent use (atomic operations).
type Sequence struct {
	seq atomic.Int64
}

// NewSequence creates a sequence starting at 0. The first Next() returns 1.
func NewSequence() *Sequence {
	return &Sequence{}
}

// Next returns the next sequence number.
func (s *Sequence) Next() int64 {
	return s.seq.Add(1)
}

// Current returns the last issued sequence number without incrementing.
func (s *Sequence) Current() int64 {
	return s.seq.Load()
}
