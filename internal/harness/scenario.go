package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/microsync/internal/engine"
)

// Scenario defines a timed script against one simulated session.
// Each step runs at its offset from scenario start on simulated time, so a
// scenario spanning several runs executes instantly and deterministically.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Backend configures the stub user service.
	Backend Backend `yaml:"backend"`

	// Steps run in order. Offsets must not decrease.
	Steps []Step `yaml:"steps"`
}

// Backend modes.
const (
	BackendOffline = "offline"
	BackendRespond = "respond"
)

// Backend describes the stub user service.
type Backend struct {
	// Mode is "offline" (every request fails) or "respond". Default: offline.
	Mode string `yaml:"mode"`

	// Status and Body are the canned response in respond mode.
	Status int    `yaml:"status,omitempty"`
	Body   string `yaml:"body,omitempty"`
}

// Step is one point on the scenario timeline.
//
// At most one action (submit, form, cancel, reset) runs per step; the
// expectation, if any, is checked after the action.
type Step struct {
	// At is the offset from scenario start ("1500ms").
	At time.Duration `yaml:"at"`

	Submit *SubmitStep `yaml:"submit,omitempty"`
	Form   *FormStep   `yaml:"form,omitempty"`
	Cancel bool        `yaml:"cancel,omitempty"`
	Reset  bool        `yaml:"reset,omitempty"`

	Expect *Expect `yaml:"expect,omitempty"`
}

// SubmitStep submits the registration form.
type SubmitStep struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`

	// ExpectError is the session error code the submission must fail with,
	// e.g. RUN_IN_PROGRESS. Empty means the submission must succeed.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// FormStep replaces the pending input.
type FormStep struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}

// Expect is a subset match against the session view. Unset fields are not
// checked.
type Expect struct {
	Stage         string     `yaml:"stage,omitempty"`
	Running       *bool      `yaml:"running,omitempty"`
	CanSubmit     *bool      `yaml:"can_submit,omitempty"`
	Form          *FormStep  `yaml:"form,omitempty"`
	LocalCount    *int       `yaml:"local_count,omitempty"`
	SyncedCount   *int       `yaml:"synced_count,omitempty"`
	LatestLocal   *RecordExp `yaml:"latest_local,omitempty"`
	LatestSynced  *RecordExp `yaml:"latest_synced,omitempty"`
	Source        string     `yaml:"source,omitempty"`
	NetworkCalls  *int       `yaml:"network_calls,omitempty"`
	PendingTimers *int       `yaml:"pending_timers,omitempty"`

	// NextTimer is when the earliest pending timer fires, as an offset
	// from the scenario start.
	NextTimer *time.Duration `yaml:"next_timer,omitempty"`
}

// RecordExp matches fields of the newest local or synced record.
type RecordExp struct {
	IDPrefix string `yaml:"id_prefix,omitempty"`
	Name     string `yaml:"name,omitempty"`
	Email    string `yaml:"email,omitempty"`

	// UserIDMatchesLocal requires a synced record's userId to equal the
	// newest local record's id.
	UserIDMatchesLocal bool `yaml:"user_id_matches_local,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "expects:" vs "expect:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Backend.Mode == "" {
		scenario.Backend.Mode = BackendOffline
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	switch s.Backend.Mode {
	case BackendOffline:
	case BackendRespond:
		if s.Backend.Status < 100 || s.Backend.Status > 599 {
			return fmt.Errorf("backend: status %d is not an HTTP status", s.Backend.Status)
		}
	default:
		return fmt.Errorf("backend: unknown mode %q", s.Backend.Mode)
	}

	var last time.Duration
	for i, step := range s.Steps {
		if err := validateStep(i, &step, last); err != nil {
			return err
		}
		last = step.At
	}

	return nil
}

func validateStep(index int, st *Step, last time.Duration) error {
	if st.At < 0 {
		return fmt.Errorf("steps[%d]: at must not be negative", index)
	}
	if st.At < last {
		return fmt.Errorf("steps[%d]: at %s is before the previous step (%s)", index, st.At, last)
	}

	actions := 0
	if st.Submit != nil {
		actions++
	}
	if st.Form != nil {
		actions++
	}
	if st.Cancel {
		actions++
	}
	if st.Reset {
		actions++
	}
	if actions > 1 {
		return fmt.Errorf("steps[%d]: at most one of submit, form, cancel, reset", index)
	}
	if actions == 0 && st.Expect == nil {
		return fmt.Errorf("steps[%d]: an action or expect is required", index)
	}

	if st.Expect != nil && st.Expect.Stage != "" {
		if _, err := engine.ParseStage(st.Expect.Stage); err != nil {
			return fmt.Errorf("steps[%d].expect: %w", index, err)
		}
	}
	if st.Expect != nil && st.Expect.NextTimer != nil && *st.Expect.NextTimer < st.At {
		return fmt.Errorf("steps[%d].expect: next_timer %s is before the step (%s)", index, *st.Expect.NextTimer, st.At)
	}
	if st.Expect != nil && st.Expect.LatestLocal != nil && st.Expect.LatestLocal.UserIDMatchesLocal {
		return fmt.Errorf("steps[%d].expect.latest_local: user_id_matches_local applies to latest_synced only", index)
	}

	return nil
}
