package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/microsync/internal/session"
)

// simulateBuffer bounds the events queued between the loop and the printer.
const simulateBuffer = 64

// SimulateOptions holds flags for the simulate command.
type SimulateOptions struct {
	*RootOptions
	Name      string
	Email     string
	TimeScale float64
	Database  string

	// HTTPClient overrides the registration transport (for testing).
	HTTPClient *http.Client
}

// SimulateResult is the JSON payload printed after the run.
type SimulateResult struct {
	Run       session.Run  `json:"run"`
	View      session.View `json:"view"`
	Cancelled bool         `json:"cancelled,omitempty"`
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	return newSimulateCommand(&SimulateOptions{RootOptions: rootOpts})
}

func newSimulateCommand(opts *SimulateOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Submit one registration and print the run",
		Long: `Submit one registration and follow its run in real time.

Every session event is printed as it happens (one line of text, or one JSON
object per line with --format json), followed by the final contents of both
stores. Ctrl-C cancels the run.

Examples:
  microsync simulate --name "Ada Lovelace" --email ada@example.com
  microsync simulate --name Ada --email ada@example.com --time-scale 0.1
  microsync simulate --name Ada --email ada@example.com --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "registrant name (required)")
	cmd.Flags().StringVar(&opts.Email, "email", "", "registrant email (required)")
	cmd.Flags().Float64Var(&opts.TimeScale, "time-scale", 1, "multiply every stage and append delay")
	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite database path (overrides config)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func runSimulate(opts *SimulateOptions, cmd *cobra.Command) error {
	if opts.TimeScale <= 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("time scale %v must be positive", opts.TimeScale))
	}

	cfg, err := opts.LoadConfig()
	if err != nil {
		return err
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}
	cfg = cfg.Scaled(opts.TimeScale)
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid time scale", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := startRuntime(cfg, opts.HTTPClient)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := rt.Close(); closeErr != nil {
			slog.Error("error closing runtime", "error", closeErr)
		}
	}()

	// The subscriber runs on the loop and must not block it.
	events := make(chan session.Event, simulateBuffer)
	unsubscribe := rt.session.Subscribe(func(ev session.Event) {
		select {
		case events <- ev:
		default:
			slog.Warn("event dropped", "seq", ev.Seq, "kind", ev.Kind)
		}
	})
	defer unsubscribe()

	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	out.VerboseLog("submitting %q <%s> to %s", opts.Name, opts.Email, cfg.Endpoint)

	run, err := rt.session.Submit(ctx, opts.Name, opts.Email)
	if err != nil {
		if code, ok := session.CodeOf(err); ok {
			_ = out.Error(string(code), err.Error(), nil)
			if session.IsInvalidInput(err) {
				return WrapExitError(ExitCommandError, "invalid input", err)
			}
		}
		return WrapExitError(ExitFailure, "submit failed", err)
	}

	cancelled := false
	interrupt := ctx.Done()
	for done := false; !done; {
		select {
		case ev := <-events:
			if err := out.Event(ev); err != nil {
				return err
			}
			done = ev.Kind == session.EventCompleted || ev.Kind == session.EventCancelled
			if ev.Kind == session.EventCancelled {
				cancelled = true
			}

		case <-interrupt:
			// A completion that raced the signal is already queued.
			slog.Info("interrupted, cancelling run", "run_id", run.ID)
			interrupt = nil
			if err := rt.session.Cancel(context.Background()); err != nil {
				return WrapExitError(ExitFailure, "cancel failed", err)
			}
		}
	}

	view, err := rt.session.Snapshot(context.Background())
	if err != nil {
		return WrapExitError(ExitFailure, "snapshot failed", err)
	}

	if opts.Format == "json" {
		if err := out.Success(SimulateResult{Run: run, View: view, Cancelled: cancelled}); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(cmd.OutOrStdout())
		fmt.Fprintln(cmd.OutOrStdout(), formatView(view))
	}

	if cancelled {
		return NewExitError(ExitFailure, "run cancelled")
	}
	return nil
}
