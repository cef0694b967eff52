package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/microsync/internal/clock"
	"github.com/roach88/microsync/internal/registration"
	"github.com/roach88/microsync/internal/session"
	"github.com/roach88/microsync/internal/store"
	"github.com/roach88/microsync/internal/testutil"
)

// scenarioEndpoint is never dialled; the stub transport answers instead.
const scenarioEndpoint = "http://user-service.scenario/register"

// Harness is the scenario execution engine.
// It runs one scenario on simulated time with deterministic ids.
type Harness struct {
	clock   *clock.Manual
	store   *store.Store
	backend *testutil.StubBackend
	session *session.Session
	result  *Result
	logger  *slog.Logger

	unsubscribe func()
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Deterministic helpers ensure reproducible results.
//
// Execution flow:
// 1. Create fresh in-memory database, manual clock and stub backend
// 2. Build a session whose run and fallback ids are sequential
// 3. For each step, advance the clock to its offset, act, then check
// 4. Return result with pass/fail, trace, and errors
//
// The error return is reserved for harness failures; scenario mismatches
// are reported through Result.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(store.MemoryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h, err := newHarness(scenario, st)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	defer h.session.Close(ctx)

	for i := range scenario.Steps {
		if err := h.executeStep(ctx, i, &scenario.Steps[i]); err != nil {
			return nil, fmt.Errorf("failed to execute step %d: %w", i, err)
		}
	}

	// Teardown on Close is not part of the scenario's trace.
	h.unsubscribe()
	return h.result, nil
}

func newHarness(scenario *Scenario, st *store.Store) (*Harness, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in scenarios

	var backend *testutil.StubBackend
	switch scenario.Backend.Mode {
	case BackendRespond:
		backend = testutil.NewRespondingBackend(scenario.Backend.Status, scenario.Backend.Body)
	default:
		backend = testutil.NewOfflineBackend()
	}

	clk := testutil.NewManualClock()
	client := registration.NewClient(scenarioEndpoint,
		registration.WithHTTPClient(backend.Client()),
		registration.WithNow(clk.Now),
		registration.WithLocation(time.UTC),
		registration.WithIDGenerator(testutil.NewSequentialIDs(registration.LocalIDPrefix)),
		registration.WithLogger(logger),
	)

	sess, err := session.New(clk, st, client,
		session.WithRunIDGenerator(testutil.NewSequentialIDs("run-")),
		session.WithLocation(time.UTC),
		session.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	h := &Harness{
		clock:   clk,
		store:   st,
		backend: backend,
		session: sess,
		result:  NewResult(),
		logger:  logger,
	}
	h.unsubscribe = sess.Subscribe(h.record)
	return h, nil
}

func (h *Harness) executeStep(ctx context.Context, index int, st *Step) error {
	h.clock.AdvanceTo(st.At)
	where := fmt.Sprintf("steps[%d] at %s", index, st.At)

	switch {
	case st.Submit != nil:
		_, err := h.session.Submit(ctx, st.Submit.Name, st.Submit.Email)
		h.checkSubmit(where, st.Submit.ExpectError, err)

	case st.Form != nil:
		if err := h.session.SetForm(ctx, st.Form.Name, st.Form.Email); err != nil {
			h.result.AddError(fmt.Sprintf("%s: form: %v", where, err))
		}

	case st.Cancel:
		if err := h.session.Cancel(ctx); err != nil {
			h.result.AddError(fmt.Sprintf("%s: cancel: %v", where, err))
		}

	case st.Reset:
		if err := h.session.Reset(ctx); err != nil {
			h.result.AddError(fmt.Sprintf("%s: reset: %v", where, err))
		}
	}

	if st.Expect == nil {
		return nil
	}

	view, err := h.session.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	obs := Observation{
		View:          view,
		NetworkCalls:  h.backend.Calls(),
		PendingTimers: h.clock.Pending(),
	}
	if deadline, ok := h.clock.NextDeadline(); ok {
		next := h.clock.Elapsed() + deadline.Sub(h.clock.Now())
		obs.NextTimer = &next
	}
	for _, msg := range CheckExpect(st.Expect, obs) {
		h.result.AddError(fmt.Sprintf("%s: %s", where, msg))
	}
	return nil
}

func (h *Harness) checkSubmit(where, expectCode string, err error) {
	if expectCode == "" {
		if err != nil {
			h.result.AddError(fmt.Sprintf("%s: submit failed: %v", where, err))
		}
		return
	}

	if err == nil {
		h.result.AddError(fmt.Sprintf("%s: submit: expected error %s, got success", where, expectCode))
		return
	}
	code, _ := session.CodeOf(err)
	if string(code) != expectCode {
		h.result.AddError(fmt.Sprintf("%s: submit: expected error %s, got %v", where, expectCode, err))
	}
}

// record appends a session event to the trace.
func (h *Harness) record(ev session.Event) {
	te := TraceEvent{
		Seq:   ev.Seq,
		At:    h.clock.Elapsed().String(),
		Kind:  string(ev.Kind),
		RunID: ev.RunID,
	}

	switch ev.Kind {
	case session.EventSubmitted:
		te.ID = ev.Outcome.Registration.ID
		te.Name = ev.Outcome.Registration.Name
		te.Source = ev.Outcome.Source.String()
	case session.EventStage:
		te.From = ev.Transition.From.String()
		te.To = ev.Transition.To.String()
		te.Cancelled = ev.Transition.Cancelled
	case session.EventLocalAppended:
		te.ID = ev.Local.ID
		te.Name = ev.Local.Name
	case session.EventSyncedAppended:
		te.ID = ev.Synced.UserID
		te.Name = ev.Synced.Name
	case session.EventCancelled:
		te.Reason = ev.Reason
	}

	h.result.Trace = append(h.result.Trace, te)
}
