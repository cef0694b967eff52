package cli

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/microsync/internal/server"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Listen   string
	Database string
	Origins  []string

	// Listener replaces --listen (for testing).
	Listener net.Listener

	// HTTPClient overrides the registration transport (for testing).
	HTTPClient *http.Client
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return newServeCommand(&ServeOptions{RootOptions: rootOpts})
}

func newServeCommand(opts *ServeOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the session over HTTP and WebSocket",
		Long: `Serve one simulation session over HTTP.

Routes:
  GET  /api/state     session view (stage, form, both stores)
  POST /api/register  submit {name, email} and start a run
  PUT  /api/form      replace the pending form
  POST /api/cancel    cancel the current run
  POST /api/reset     cancel and clear everything
  GET  /api/events    WebSocket stream of session events
  GET  /healthz       liveness

Examples:
  microsync serve
  microsync serve --listen :9090 --db ./microsync.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", "", "HTTP listen address (overrides config)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite database path (overrides config)")
	cmd.Flags().StringSliceVar(&opts.Origins, "origin", nil, "extra origin patterns allowed to open the event stream")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	cfg, err := opts.LoadConfig()
	if err != nil {
		return err
	}
	if opts.Listen != "" {
		cfg.Listen = opts.Listen
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
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

	srv := server.New(rt.session,
		server.WithLogger(slog.Default()),
		server.WithOriginPatterns(opts.Origins...),
	)

	addr := cfg.Listen
	serve := func() error { return srv.ListenAndServe(ctx, addr) }
	if opts.Listener != nil {
		addr = opts.Listener.Addr().String()
		serve = func() error { return srv.Serve(ctx, opts.Listener) }
	}

	slog.Info("server starting", "addr", addr, "db", cfg.Database)
	fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s\n", addr)
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")

	if err := serve(); err != nil {
		return WrapExitError(ExitFailure, "server error", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}
