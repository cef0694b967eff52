package clock

import (
	"sort"
	"sync"
	"time"
)

// Manual is a simulated-time Scheduler for tests.
//
// Time starts at the given instant and only moves forward through Advance.
// Due timers fire on the goroutine calling Advance, in deadline order, with
// ties broken by arming order. Posted tasks run inline; a Post issued from
// inside a running callback is queued and runs right after it.
//
// Thread-safety: all methods are safe for concurrent use, but callbacks run
// on whichever goroutine calls Post or Advance. Tests normally drive a
// Manual from a single goroutine.
type Manual struct {
	mu          sync.Mutex
	now         time.Time
	start       time.Time
	nextID      int64
	timers      []*manualTimer
	tasks       []func()
	dispatching bool
}

// NewManual creates a manual scheduler whose clock reads start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start, start: start}
}

// Now returns the simulated time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Elapsed returns how far the clock has advanced since NewManual.
func (m *Manual) Elapsed() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now.Sub(m.start)
}

// AfterFunc arms f to fire once the clock reaches Now()+d.
func (m *Manual) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	t := &manualTimer{
		owner:    m,
		id:       m.nextID,
		deadline: m.now.Add(d),
		f:        f,
	}
	m.timers = append(m.timers, t)
	return t
}

// Post runs f now, or after the currently running callback returns.
func (m *Manual) Post(f func()) bool {
	m.mu.Lock()
	m.tasks = append(m.tasks, f)
	if m.dispatching {
		m.mu.Unlock()
		return true
	}
	m.dispatching = true
	m.mu.Unlock()

	m.drain()
	return true
}

// Advance moves the clock forward by d, firing every timer that comes due.
//
// Timers armed by callbacks during Advance fire in the same call if their
// deadline is within the window.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		t := m.popDueLocked(target)
		if t == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		m.now = t.deadline
		m.dispatching = true
		m.mu.Unlock()

		t.f()
		m.drain()
	}
}

// AdvanceTo moves the clock to start+offset. It never moves backwards.
func (m *Manual) AdvanceTo(offset time.Duration) {
	d := offset - m.Elapsed()
	if d > 0 {
		m.Advance(d)
	}
}

// Pending returns the number of armed timers that have neither fired nor
// been stopped.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// NextDeadline returns the earliest pending deadline.
func (m *Manual) NextDeadline() (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.timers) == 0 {
		return time.Time{}, false
	}
	m.sortLocked()
	return m.timers[0].deadline, true
}

// drain runs queued tasks until none remain. The caller must have set
// dispatching.
func (m *Manual) drain() {
	for {
		m.mu.Lock()
		if len(m.tasks) == 0 {
			m.dispatching = false
			m.mu.Unlock()
			return
		}
		f := m.tasks[0]
		m.tasks[0] = nil
		m.tasks = m.tasks[1:]
		m.mu.Unlock()

		f()
	}
}

func (m *Manual) sortLocked() {
	sort.SliceStable(m.timers, func(i, j int) bool {
		a, b := m.timers[i], m.timers[j]
		if !a.deadline.Equal(b.deadline) {
			return a.deadline.Before(b.deadline)
		}
		return a.id < b.id
	})
}

func (m *Manual) popDueLocked(target time.Time) *manualTimer {
	if len(m.timers) == 0 {
		return nil
	}
	m.sortLocked()
	t := m.timers[0]
	if t.deadline.After(target) {
		return nil
	}
	m.timers = m.timers[1:]
	t.done = true
	return t
}

func (m *Manual) removeLocked(t *manualTimer) {
	for i, pending := range m.timers {
		if pending == t {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			return
		}
	}
}

type manualTimer struct {
	owner    *Manual
	id       int64
	deadline time.Time
	f        func()
	done     bool // fired or stopped; guarded by owner.mu
}

func (t *manualTimer) Stop() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	t.owner.removeLocked(t)
	return true
}
