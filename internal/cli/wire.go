package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/roach88/microsync/internal/clock"
	"github.com/roach88/microsync/internal/config"
	"github.com/roach88/microsync/internal/registration"
	"github.com/roach88/microsync/internal/session"
	"github.com/roach88/microsync/internal/store"
)

// runtime is one wired session on a real scheduler loop.
type runtime struct {
	store   *store.Store
	loop    *clock.Loop
	session *session.Session

	stopLoop context.CancelFunc
}

// startRuntime opens the store, starts the loop and builds the session.
// hc, if non-nil, replaces the registration transport.
func startRuntime(cfg config.Config, hc *http.Client) (*runtime, error) {
	slog.Info("opening database", "path", cfg.Database)
	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	// Records never outlive a process: a file-backed store starts empty too.
	if err := st.Reset(context.Background()); err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to reset database", err)
	}

	loop := clock.NewLoop()
	loopCtx, stopLoop := context.WithCancel(context.Background())
	go func() {
		if err := loop.Run(loopCtx); err != nil && err != context.Canceled {
			slog.Error("scheduler loop failed", "error", err)
		}
	}()

	clientOpts := []registration.ClientOption{
		registration.WithDisplayLayout(cfg.TimeFormat),
		registration.WithLogger(slog.Default()),
	}
	if hc != nil {
		clientOpts = append(clientOpts, registration.WithHTTPClient(hc))
	}
	client := registration.NewClient(cfg.Endpoint, clientOpts...)

	sess, err := session.New(loop, st, client,
		session.WithChoreography(cfg.Choreography()),
		session.WithTiming(cfg.SessionTiming()),
		session.WithRecentLimit(cfg.RecentLimit),
		session.WithTimeFormat(cfg.TimeFormat),
		session.WithLogger(slog.Default()),
	)
	if err != nil {
		stopLoop()
		<-loop.Done()
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to create session", err)
	}

	slog.Info("session ready", "endpoint", client.Endpoint(), "run_window", cfg.RunWindow())
	return &runtime{store: st, loop: loop, session: sess, stopLoop: stopLoop}, nil
}

// Close tears down the session, then the loop, then the store.
func (r *runtime) Close() error {
	if err := r.session.Close(context.Background()); err != nil {
		slog.Warn("error closing session", "error", err)
	}
	r.stopLoop()
	<-r.loop.Done()

	if err := r.store.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	return nil
}
