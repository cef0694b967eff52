package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/microsync/internal/clock"
	"github.com/roach88/microsync/internal/engine"
	"github.com/roach88/microsync/internal/registration"
	"github.com/roach88/microsync/internal/store"
)

// DefaultRecentLimit is how many records each View list carries.
const DefaultRecentLimit = 3

// Registrar makes one registration attempt. *registration.Client is the
// production implementation.
type Registrar interface {
	Register(ctx context.Context, name, email string) registration.Outcome
}

// Session drives one demo user's runs.
//
// INVARIANTS:
//   - At most one run is in flight; busy is set from submit until the run
//     completes, is cancelled, or its submission is abandoned
//   - A synced record is appended only after the same run appended its
//     local record
//   - Timer callbacks of a run that is no longer current do nothing
type Session struct {
	sched  clock.Scheduler
	engine *engine.Engine
	store  *store.Store
	client Registrar
	logger *slog.Logger

	timing   Timing
	recent   int
	layout   string
	location *time.Location
	seq      *clock.Sequence

	// engine options collected before the engine is built
	engineOpts []engine.Option

	// scheduler-owned state
	form       Form
	busy       bool
	closed     bool
	epoch      uint64
	run        *activeRun
	lastSource string

	subMu     sync.Mutex
	subs      []subscriber
	nextSubID int
}

type activeRun struct {
	id      string
	epoch   uint64
	started time.Time
	outcome registration.Outcome
	timers  []clock.Timer
}

type subscriber struct {
	id int
	fn func(Event)
}

// Option configures a Session.
type Option func(*Session)

// WithTiming sets the append delays. Default: DefaultTiming().
func WithTiming(t Timing) Option {
	return func(s *Session) {
		s.timing = t
	}
}

// WithChoreography sets the engine's stage pacing.
func WithChoreography(c engine.Choreography) Option {
	return func(s *Session) {
		s.engineOpts = append(s.engineOpts, engine.WithChoreography(c))
	}
}

// WithRunIDGenerator sets the engine's run id source.
func WithRunIDGenerator(g engine.RunIDGenerator) Option {
	return func(s *Session) {
		s.engineOpts = append(s.engineOpts, engine.WithRunIDGenerator(g))
	}
}

// WithRecentLimit sets how many records View lists carry. Default: 3.
func WithRecentLimit(n int) Option {
	return func(s *Session) {
		s.recent = n
	}
}

// WithTimeFormat sets the layout of syncedAt. Default: registration.DisplayLayout.
func WithTimeFormat(layout string) Option {
	return func(s *Session) {
		s.layout = layout
	}
}

// WithLocation sets the zone syncedAt is rendered in. Default: time.Local.
func WithLocation(loc *time.Location) Option {
	return func(s *Session) {
		s.location = loc
	}
}

// WithLogger sets the logger for the session and its engine.
// Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// New creates an idle session on sched.
//
// The caller keeps ownership of st and client; Close does not close them.
func New(sched clock.Scheduler, st *store.Store, client Registrar, opts ...Option) (*Session, error) {
	s := &Session{
		sched:    sched,
		store:    st,
		client:   client,
		logger:   slog.Default(),
		timing:   DefaultTiming(),
		recent:   DefaultRecentLimit,
		layout:   registration.DisplayLayout,
		location: time.Local,
		seq:      clock.NewSequence(),
	}
	for _, opt := range opts {
		opt(s)
	}

	eng, err := engine.New(sched, append(s.engineOpts, engine.WithLogger(s.logger))...)
	if err != nil {
		return nil, fmt.Errorf("new session: %w", err)
	}
	if err := s.timing.Validate(eng.Choreography().Total()); err != nil {
		return nil, fmt.Errorf("new session: %w", err)
	}
	if s.recent < 0 {
		return nil, fmt.Errorf("new session: recent limit %d must not be negative", s.recent)
	}
	s.engine = eng

	// The engine is not shared yet, so subscribing off the scheduler is safe.
	eng.Subscribe(s.onTransition)

	return s, nil
}

// Subscribe registers fn for every event and returns a function that
// removes it. fn runs on the scheduler and must not block or call back into
// the Session.
func (s *Session) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	s.nextSubID++
	id := s.nextSubID
	s.subs = append(s.subs, subscriber{id: id, fn: fn})

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// Submit registers name and email and starts a run.
//
// Both fields are NFC-normalized and trimmed; an empty field fails with
// ErrCodeInvalidInput before any network call. The registration attempt
// runs on the calling goroutine. Whatever its outcome, the run starts with
// the resulting record.
func (s *Session) Submit(ctx context.Context, name, email string) (Run, error) {
	name, email = normalize(name), normalize(email)
	if name == "" {
		return Run{}, invalidInput("name")
	}
	if email == "" {
		return Run{}, invalidInput("email")
	}

	var (
		epoch    uint64
		claimErr error
	)
	if err := s.call(ctx, func() { epoch, claimErr = s.claim(name, email) }); err != nil {
		return Run{}, err
	}
	if claimErr != nil {
		return Run{}, claimErr
	}

	outcome := s.client.Register(ctx, name, email)
	if err := ctx.Err(); err != nil {
		s.abandon(epoch)
		return Run{}, fmt.Errorf("submit: %w", err)
	}

	var (
		run      Run
		startErr error
	)
	if err := s.call(ctx, func() { run, startErr = s.start(epoch, outcome) }); err != nil {
		s.abandon(epoch)
		return Run{}, err
	}
	return run, startErr
}

// SetForm replaces the pending input. It is refused while a run is in
// flight.
func (s *Session) SetForm(ctx context.Context, name, email string) error {
	var opErr error
	err := s.call(ctx, func() {
		switch {
		case s.closed:
			opErr = errClosed
		case s.busy:
			opErr = errRunInProgress
		default:
			s.form = Form{Name: norm.NFC.String(name), Email: norm.NFC.String(email)}
		}
	})
	if err != nil {
		return err
	}
	return opErr
}

// Snapshot returns the current view.
func (s *Session) Snapshot(ctx context.Context) (View, error) {
	var (
		view    View
		viewErr error
	)
	if err := s.call(ctx, func() { view, viewErr = s.view(ctx) }); err != nil {
		return View{}, err
	}
	return view, viewErr
}

// Cancel stops the run in flight, if any. The form is kept.
func (s *Session) Cancel(ctx context.Context) error {
	var opErr error
	err := s.call(ctx, func() {
		if s.closed {
			opErr = errClosed
			return
		}
		s.cancelRun("cancelled")
	})
	if err != nil {
		return err
	}
	return opErr
}

// Reset cancels the run in flight and clears the form and both record
// collections.
func (s *Session) Reset(ctx context.Context) error {
	var opErr error
	err := s.call(ctx, func() {
		if s.closed {
			opErr = errClosed
			return
		}
		s.cancelRun("reset")
		s.form = Form{}
		s.lastSource = ""
		if err := s.store.Reset(ctx); err != nil {
			opErr = fmt.Errorf("reset session: %w", err)
			return
		}
		s.logger.Info("session reset")
		s.emit(Event{Kind: EventReset})
	})
	if err != nil {
		return err
	}
	return opErr
}

// Close cancels the run in flight and refuses further work. Closing twice
// is a no-op.
func (s *Session) Close(ctx context.Context) error {
	err := s.call(ctx, func() {
		if s.closed {
			return
		}
		s.cancelRun("closed")
		s.closed = true
		s.logger.Info("session closed")
	})
	if IsSessionClosed(err) {
		return nil
	}
	return err
}

// claim reserves the session for a submission.
func (s *Session) claim(name, email string) (uint64, error) {
	if s.closed {
		return 0, errClosed
	}
	if s.busy {
		s.logger.Debug("submission rejected", "run_id", s.engine.RunID())
		return 0, errRunInProgress
	}
	s.busy = true
	s.form = Form{Name: name, Email: email}
	return s.epoch, nil
}

// abandon releases a claim whose run never started.
func (s *Session) abandon(epoch uint64) {
	s.sched.Post(func() {
		if s.busy && s.run == nil && s.epoch == epoch {
			s.busy = false
			s.epoch++
		}
	})
}

// start begins the run for a resolved outcome.
func (s *Session) start(epoch uint64, outcome registration.Outcome) (Run, error) {
	if s.closed {
		return Run{}, errClosed
	}
	if !s.busy || s.epoch != epoch {
		return Run{}, errRunCancelled
	}

	r := &activeRun{
		epoch:   epoch,
		started: s.sched.Now(),
		outcome: outcome,
	}
	s.run = r
	s.lastSource = outcome.Source.String()

	// Appends are armed before the engine so an append due at the same
	// instant as a transition lands first.
	r.timers = []clock.Timer{
		s.sched.AfterFunc(s.timing.LocalAppend, func() { s.appendLocal(r) }),
		s.sched.AfterFunc(s.timing.SyncedAppend, func() { s.appendSynced(r) }),
	}
	s.engine.Start(func() { s.complete(r) })

	return Run{ID: r.id, StartedAt: r.started, Outcome: outcome}, nil
}

func (s *Session) onTransition(tr engine.Transition) {
	r := s.run
	if r != nil && r.id == "" && tr.To == engine.StageProducing {
		r.id = tr.RunID
		outcome := r.outcome
		ev := Event{Kind: EventSubmitted, RunID: r.id, Outcome: &outcome}
		if outcome.Reason != nil {
			ev.Reason = outcome.Reason.Error()
		}
		s.logger.Info("registration submitted",
			"run_id", r.id,
			"source", outcome.Source.String(),
			"id", outcome.Registration.ID,
		)
		s.emit(ev)
	}

	t := tr
	s.emit(Event{Kind: EventStage, RunID: tr.RunID, Elapsed: tr.Elapsed, Transition: &t})
}

func (s *Session) appendLocal(r *activeRun) {
	if s.run != r {
		return
	}

	reg := r.outcome.Registration
	rec := store.LocalRecord{
		ID:        reg.ID,
		Name:      reg.Name,
		Email:     reg.Email,
		CreatedAt: reg.CreatedAt,
		RunID:     r.id,
	}
	seq, err := s.store.AppendLocal(context.Background(), rec)
	if err != nil {
		s.logger.Error("local append failed", "run_id", r.id, "error", err)
		return
	}
	rec.Seq = seq

	s.emit(Event{Kind: EventLocalAppended, RunID: r.id, Elapsed: s.elapsed(r), Local: &rec})
}

func (s *Session) appendSynced(r *activeRun) {
	if s.run != r {
		return
	}
	ctx := context.Background()
	reason, err := s.unsyncable(ctx, r)
	if err != nil {
		s.logger.Error("synced append check failed", "run_id", r.id, "error", err)
		return
	}
	if reason != "" {
		s.logger.Warn("skipping synced append", "run_id", r.id, "reason", reason)
		return
	}

	reg := r.outcome.Registration
	rec := store.SyncedRecord{
		UserID:   reg.ID,
		Name:     reg.Name,
		Email:    reg.Email,
		SyncedAt: s.sched.Now().In(s.location).Format(s.layout),
		RunID:    r.id,
	}
	seq, err := s.store.AppendSynced(ctx, rec)
	if err != nil {
		s.logger.Error("synced append failed", "run_id", r.id, "error", err)
		return
	}
	rec.Seq = seq

	s.emit(Event{Kind: EventSyncedAppended, RunID: r.id, Elapsed: s.elapsed(r), Synced: &rec})
}

// unsyncable returns why r must not produce a synced record, or "" if it
// may. A run syncs only the single local record it appended, and only once.
func (s *Session) unsyncable(ctx context.Context, r *activeRun) (string, error) {
	id := r.outcome.Registration.ID

	locals, err := s.store.LocalByID(ctx, id)
	if err != nil {
		return "", err
	}
	owned := 0
	for _, rec := range locals {
		if rec.RunID == r.id {
			owned++
		}
	}
	switch owned {
	case 0:
		return "no local record", nil
	case 1:
	default:
		return fmt.Sprintf("%d local records", owned), nil
	}

	synced, err := s.store.SyncedFor(ctx, id)
	if err != nil {
		return "", err
	}
	for _, rec := range synced {
		if rec.RunID == r.id {
			return "already synced", nil
		}
	}
	return "", nil
}

// complete is the engine's completion callback for r.
func (s *Session) complete(r *activeRun) {
	if s.run != r {
		return
	}
	clock.StopAll(r.timers)
	s.run = nil
	s.busy = false
	s.form = Form{}

	s.emit(Event{Kind: EventCompleted, RunID: r.id, Elapsed: s.elapsed(r)})
}

// cancelRun tears down the run in flight and invalidates any pending
// submission. Returns false if the session was not busy.
func (s *Session) cancelRun(reason string) bool {
	if !s.busy {
		return false
	}
	s.busy = false
	s.epoch++

	r := s.run
	s.run = nil
	if r == nil {
		s.logger.Info("pending submission abandoned", "reason", reason)
		return true
	}

	stopped := clock.StopAll(r.timers)
	s.engine.Cancel()
	s.logger.Info("run cancelled", "run_id", r.id, "reason", reason, "append_timers_stopped", stopped)
	s.emit(Event{Kind: EventCancelled, RunID: r.id, Elapsed: s.elapsed(r), Reason: reason})
	return true
}

func (s *Session) view(ctx context.Context) (View, error) {
	v := View{
		Stage:     s.engine.Stage(),
		Running:   s.busy,
		CanSubmit: !s.busy && !s.closed,
		Closed:    s.closed,
		Form:      s.form,
		RunID:     s.engine.RunID(),
		Source:    s.lastSource,
		Seq:       s.seq.Current(),
	}

	var err error
	if v.Local, err = s.store.RecentLocal(ctx, s.recent); err != nil {
		return View{}, fmt.Errorf("snapshot: %w", err)
	}
	if v.Synced, err = s.store.RecentSynced(ctx, s.recent); err != nil {
		return View{}, fmt.Errorf("snapshot: %w", err)
	}
	if v.LocalCount, err = s.store.CountLocal(ctx); err != nil {
		return View{}, fmt.Errorf("snapshot: %w", err)
	}
	if v.SyncedCount, err = s.store.CountSynced(ctx); err != nil {
		return View{}, fmt.Errorf("snapshot: %w", err)
	}
	return v, nil
}

func (s *Session) elapsed(r *activeRun) time.Duration {
	return s.sched.Now().Sub(r.started)
}

func (s *Session) emit(ev Event) {
	ev.Seq = s.seq.Next()
	ev.At = s.sched.Now()

	s.subMu.Lock()
	subs := make([]subscriber, len(s.subs))
	copy(subs, s.subs)
	s.subMu.Unlock()

	for _, sub := range subs {
		sub.fn(ev)
	}
}

// call runs fn on the scheduler and waits for it.
//
// If ctx ends before the scheduler picks fn up, fn never runs. Once fn has
// started, call waits for it to finish regardless of ctx.
func (s *Session) call(ctx context.Context, fn func()) error {
	var claimed atomic.Bool
	done := make(chan struct{})

	posted := s.sched.Post(func() {
		if !claimed.CompareAndSwap(false, true) {
			return
		}
		defer close(done)
		fn()
	})
	if !posted {
		return errClosed
	}

	var stopped <-chan struct{}
	if d, ok := s.sched.(interface{ Done() <-chan struct{} }); ok {
		stopped = d.Done()
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
	case <-stopped:
	}

	if claimed.CompareAndSwap(false, true) {
		if err := ctx.Err(); err != nil {
			return err
		}
		return errClosed
	}
	<-done
	return nil
}

func normalize(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}
