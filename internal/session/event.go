package session

import (
	"time"

	"github.com/roach88/microsync/internal/engine"
	"github.com/roach88/microsync/internal/registration"
	"github.com/roach88/microsync/internal/store"
)

// EventKind names what happened.
type EventKind string

const (
	EventSubmitted      EventKind = "submitted"
	EventStage          EventKind = "stage"
	EventLocalAppended  EventKind = "local_appended"
	EventSyncedAppended EventKind = "synced_appended"
	EventCompleted      EventKind = "completed"
	EventCancelled      EventKind = "cancelled"
	EventReset          EventKind = "reset"
)

// Event is one entry of the session's feed.
//
// Seq is assigned at emission and is strictly increasing per session.
// Elapsed is measured from the start of RunID's run and is zero for events
// outside a run.
type Event struct {
	Kind    EventKind     `json:"kind"`
	RunID   string        `json:"run_id,omitempty"`
	Seq     int64         `json:"seq"`
	At      time.Time     `json:"at"`
	Elapsed time.Duration `json:"elapsed"`

	Transition *engine.Transition    `json:"transition,omitempty"`
	Local      *store.LocalRecord    `json:"local,omitempty"`
	Synced     *store.SyncedRecord   `json:"synced,omitempty"`
	Outcome    *registration.Outcome `json:"outcome,omitempty"`

	// Reason explains a fallback outcome.
	Reason string `json:"reason,omitempty"`
}

// Form is the pending user input.
type Form struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Run describes a started run.
type Run struct {
	ID        string               `json:"run_id"`
	StartedAt time.Time            `json:"started_at"`
	Outcome   registration.Outcome `json:"outcome"`
}

// View is a point-in-time snapshot of the session.
type View struct {
	Stage     engine.Stage `json:"stage"`
	Running   bool         `json:"running"`
	CanSubmit bool         `json:"can_submit"`
	Closed    bool         `json:"closed,omitempty"`
	Form      Form         `json:"form"`
	RunID     string       `json:"run_id,omitempty"`

	// Source of the most recent registration outcome; empty before the
	// first run.
	Source string `json:"source,omitempty"`

	// Seq is the last event seq emitted before the snapshot; events that
	// follow it carry a greater seq.
	Seq int64 `json:"seq"`

	// Local and Synced hold the most recent records, newest first.
	Local       []store.LocalRecord  `json:"local"`
	Synced      []store.SyncedRecord `json:"synced"`
	LocalCount  int                  `json:"local_count"`
	SyncedCount int                  `json:"synced_count"`
}
