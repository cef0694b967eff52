package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/microsync/internal/clock"
)

// Transition describes one stage change.
type Transition struct {
	RunID     string        `json:"run_id"`
	Seq       int64         `json:"seq"`
	From      Stage         `json:"from"`
	To        Stage         `json:"to"`
	At        time.Time     `json:"at"`
	Elapsed   time.Duration `json:"elapsed"`
	Cancelled bool          `json:"cancelled,omitempty"`
}

// Observer receives transitions on the scheduler goroutine.
// Observers must not block.
type Observer func(Transition)

// Engine is the staged simulation state machine.
//
// CRITICAL: every method must be called on the engine's scheduler. Timer
// callbacks run there too, so stage state needs no locking.
//
// INVARIANTS:
//   - At most one run is current
//   - A run's transitions are delivered in plan order
//   - onComplete is called exactly once per run that reaches Idle naturally,
//     and never for a cancelled run
type Engine struct {
	sched  clock.Scheduler
	choreo Choreography
	plan   []Step
	runIDs RunIDGenerator
	seq    *clock.Sequence
	logger *slog.Logger

	stage     Stage
	current   *run
	observers []observerEntry
	nextObsID int
}

type run struct {
	id         string
	started    time.Time
	timers     []clock.Timer
	onComplete func()
	completed  bool
}

type observerEntry struct {
	id int
	fn Observer
}

// Option configures an Engine.
type Option func(*Engine)

// WithChoreography sets the stage pacing. Default: DefaultChoreography().
func WithChoreography(c Choreography) Option {
	return func(e *Engine) {
		e.choreo = c
	}
}

// WithRunIDGenerator sets the run id source. Default: UUIDv7Generator.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(e *Engine) {
		e.runIDs = g
	}
}

// WithSequence shares a logical sequence with other components so their
// events interleave in one order.
func WithSequence(s *clock.Sequence) Option {
	return func(e *Engine) {
		e.seq = s
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates an idle engine scheduled on sched.
func New(sched clock.Scheduler, opts ...Option) (*Engine, error) {
	e := &Engine{
		sched:  sched,
		choreo: DefaultChoreography(),
		runIDs: UUIDv7Generator{},
		seq:    clock.NewSequence(),
		logger: slog.Default(),
		stage:  StageIdle,
	}

	for _, opt := range opts {
		opt(e)
	}

	if err := e.choreo.Validate(); err != nil {
		return nil, fmt.Errorf("new engine: %w", err)
	}
	e.plan = e.choreo.Plan()

	return e, nil
}

// Stage returns the current stage.
func (e *Engine) Stage() Stage {
	return e.stage
}

// Running reports whether a run is in flight.
func (e *Engine) Running() bool {
	return e.current != nil
}

// RunID returns the id of the run in flight, or "".
func (e *Engine) RunID() string {
	if e.current == nil {
		return ""
	}
	return e.current.id
}

// Choreography returns the engine's pacing.
func (e *Engine) Choreography() Choreography {
	return e.choreo
}

// Subscribe registers an observer and returns a function that removes it.
func (e *Engine) Subscribe(fn Observer) (unsubscribe func()) {
	e.nextObsID++
	id := e.nextObsID
	e.observers = append(e.observers, observerEntry{id: id, fn: fn})

	return func() {
		for i, o := range e.observers {
			if o.id == id {
				e.observers = append(e.observers[:i:i], e.observers[i+1:]...)
				return
			}
		}
	}
}

// Start begins a run and returns its id.
//
// The run enters Producing immediately and every later transition is armed
// at once. If a run is still pending, it is torn down first (its timers are
// stopped and its onComplete is never called).
func (e *Engine) Start(onComplete func()) string {
	if e.current != nil {
		e.logger.Warn("restarting with a run still pending",
			"run_id", e.current.id,
			"stage", e.stage.String(),
		)
		e.teardown()
	}

	r := &run{
		id:         e.runIDs.Generate(),
		started:    e.sched.Now(),
		onComplete: onComplete,
	}
	e.current = r

	e.logger.Info("run started", "run_id", r.id, "duration", e.choreo.Total())
	e.transition(r, StageProducing, false)

	r.timers = make([]clock.Timer, 0, len(e.plan))
	for _, step := range e.plan {
		step := step
		r.timers = append(r.timers, e.sched.AfterFunc(step.At, func() {
			e.advance(r, step)
		}))
	}

	return r.id
}

// SetRunning adapts a boolean "is running" input to Start and Cancel.
// Setting it to its current value does nothing.
func (e *Engine) SetRunning(running bool, onComplete func()) {
	switch {
	case running && e.current == nil:
		e.Start(onComplete)
	case !running && e.current != nil:
		e.Cancel()
	}
}

// Cancel stops the run in flight and returns the stage to Idle.
// Returns false if no run was in flight.
func (e *Engine) Cancel() bool {
	if e.current == nil {
		return false
	}
	id := e.current.id
	stopped := e.teardown()
	e.logger.Info("run cancelled", "run_id", id, "timers_stopped", stopped)
	return true
}

// teardown stops the current run's timers and returns to Idle.
// Safe to call repeatedly.
func (e *Engine) teardown() int {
	r := e.current
	if r == nil {
		return 0
	}
	stopped := clock.StopAll(r.timers)
	r.timers = nil
	e.current = nil
	if e.stage != StageIdle {
		e.transition(r, StageIdle, true)
	}
	return stopped
}

// advance handles one timer fire.
func (e *Engine) advance(r *run, step Step) {
	if e.current != r {
		e.logger.Debug("ignoring stale transition",
			"run_id", r.id,
			"stage", step.Stage.String(),
		)
		return
	}

	if step.Stage != StageIdle {
		e.transition(r, step.Stage, false)
		return
	}

	// Clear current before notifying so observers and onComplete see an
	// idle engine and may start the next run.
	e.current = nil
	r.timers = nil
	e.transition(r, StageIdle, false)
	e.logger.Info("run completed", "run_id", r.id)

	if !r.completed {
		r.completed = true
		if r.onComplete != nil {
			r.onComplete()
		}
	}
}

func (e *Engine) transition(r *run, to Stage, cancelled bool) {
	now := e.sched.Now()
	tr := Transition{
		RunID:     r.id,
		Seq:       e.seq.Next(),
		From:      e.stage,
		To:        to,
		At:        now,
		Elapsed:   now.Sub(r.started),
		Cancelled: cancelled,
	}
	e.stage = to

	e.logger.Debug("stage transition",
		"run_id", tr.RunID,
		"from", tr.From.String(),
		"to", tr.To.String(),
		"elapsed", tr.Elapsed,
		"cancelled", tr.Cancelled,
	)

	// Copy so observers may unsubscribe while being notified.
	observers := make([]observerEntry, len(e.observers))
	copy(observers, e.observers)
	for _, o := range observers {
		o.fn(tr)
	}
}
