package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/roach88/microsync/internal/session"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Scenario failed, run cancelled, server error
	ExitCommandError = 2 // Bad flags, config or input
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// nil maps to ExitSuccess; errors that are not an ExitError map to ExitFailure.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // session error code or E_* for CLI failures
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Event writes one session event: a JSON line, or one text line.
func (f *OutputFormatter) Event(ev session.Event) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(ev)
	}
	_, err := fmt.Fprintln(f.Writer, formatEvent(ev))
	return err
}

// VerboseLog outputs a message only if verbose mode is enabled.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// formatEvent renders ev as "[elapsed] kind details".
func formatEvent(ev session.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%6s] %-15s", ev.Elapsed, ev.Kind)

	switch {
	case ev.Outcome != nil:
		fmt.Fprintf(&b, " id=%s source=%s", ev.Outcome.Registration.ID, ev.Outcome.Source)
		if ev.Reason != "" {
			fmt.Fprintf(&b, " reason=%q", ev.Reason)
		}
	case ev.Transition != nil:
		fmt.Fprintf(&b, " %s -> %s", ev.Transition.From, ev.Transition.To)
		if ev.Transition.Cancelled {
			b.WriteString(" (cancelled)")
		}
	case ev.Local != nil:
		fmt.Fprintf(&b, " id=%s name=%q email=%s", ev.Local.ID, ev.Local.Name, ev.Local.Email)
	case ev.Synced != nil:
		fmt.Fprintf(&b, " userId=%s name=%q email=%s", ev.Synced.UserID, ev.Synced.Name, ev.Synced.Email)
	case ev.Reason != "":
		fmt.Fprintf(&b, " reason=%s", ev.Reason)
	}

	if ev.RunID != "" {
		fmt.Fprintf(&b, " run=%s", ev.RunID)
	}
	return b.String()
}

// formatView renders the store views the way the demo page lays them out.
func formatView(v session.View) string {
	var b strings.Builder
	fmt.Fprintf(&b, "stage: %s\n", v.Stage)
	if v.Source != "" {
		fmt.Fprintf(&b, "last source: %s\n", v.Source)
	}

	fmt.Fprintf(&b, "user service (%d records):\n", v.LocalCount)
	if len(v.Local) == 0 {
		b.WriteString("  (empty)\n")
	}
	for _, r := range v.Local {
		fmt.Fprintf(&b, "  {id: %s, name: %q, email: %s, createdAt: %s}\n", r.ID, r.Name, r.Email, r.CreatedAt)
	}

	fmt.Fprintf(&b, "profile service (%d records):\n", v.SyncedCount)
	if len(v.Synced) == 0 {
		b.WriteString("  (empty)\n")
	}
	for _, r := range v.Synced {
		fmt.Fprintf(&b, "  {userId: %s, name: %q, email: %s, syncedAt: %s}\n", r.UserID, r.Name, r.Email, r.SyncedAt)
	}
	return strings.TrimSuffix(b.String(), "\n")
}
