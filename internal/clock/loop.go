package clock

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ErrLoopRunning is returned when Run is called on a loop that is already running.
var ErrLoopRunning = errors.New("clock: loop already running")

// Loop is the single-writer scheduler.
//
// Thread-safety model:
//   - Post(), AfterFunc(), Stop(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
//   - callbacks: always run on the Run goroutine, one at a time
type Loop struct {
	queue    *taskQueue
	running  atomic.Bool
	done     chan struct{}
	doneOnce sync.Once
}

// NewLoop creates a loop. Nothing runs until Run is called.
func NewLoop() *Loop {
	return &Loop{
		queue: newTaskQueue(),
		done:  make(chan struct{}),
	}
}

// Now returns the wall-clock time.
func (l *Loop) Now() time.Time {
	return time.Now()
}

// Post queues f for the Run goroutine.
// Returns false once the loop has stopped.
func (l *Loop) Post(f func()) bool {
	return l.queue.Enqueue(f)
}

// AfterFunc arms f to run on the Run goroutine after d.
func (l *Loop) AfterFunc(d time.Duration, f func()) Timer {
	t := &loopTimer{}
	t.timer = time.AfterFunc(d, func() {
		l.queue.Enqueue(func() {
			// Stop may have won the race after the wall-clock fire.
			if t.state.CompareAndSwap(timerPending, timerFired) {
				f()
			}
		})
	})
	return t
}

// Run drains the task queue until ctx is cancelled or Stop is called.
//
// Returns ctx.Err() on cancellation and nil after Stop. Tasks still queued
// when the loop exits are dropped; later Posts return false.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrLoopRunning
	}
	defer l.doneOnce.Do(func() { close(l.done) })

	slog.Debug("scheduler loop starting")

	for {
		if f, ok := l.queue.TryDequeue(); ok {
			f()
			continue
		}

		select {
		case <-ctx.Done():
			slog.Debug("scheduler loop stopping: context cancelled")
			l.queue.Close()
			return ctx.Err()

		case <-l.queue.Wait():
			if l.queue.Closed() {
				slog.Debug("scheduler loop stopping: stopped")
				return nil
			}
		}
	}
}

// Stop closes the queue, which makes Run return.
func (l *Loop) Stop() {
	l.queue.Close()
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

const (
	timerPending int32 = iota
	timerFired
	timerStopped
)

type loopTimer struct {
	timer *time.Timer
	state atomic.Int32
}

func (t *loopTimer) Stop() bool {
	t.timer.Stop()
	return t.state.CompareAndSwap(timerPending, timerStopped)
}
