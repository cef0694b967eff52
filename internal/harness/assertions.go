package harness

import (
	"fmt"
	"strings"
	"time"

	"github.com/roach88/microsync/internal/session"
)

// Observation is everything an Expect can be checked against.
type Observation struct {
	View          session.View
	NetworkCalls  int
	PendingTimers int

	// NextTimer is the offset from the scenario start of the earliest
	// pending timer; nil when none is pending.
	NextTimer *time.Duration
}

// CheckExpect compares obs against e and returns one message per mismatch.
// Only fields set in e are checked.
func CheckExpect(e *Expect, obs Observation) []string {
	if e == nil {
		return nil
	}

	var errs []string
	fail := func(field string, expected, actual any) {
		errs = append(errs, fmt.Sprintf("%s: expected %v, got %v", field, expected, actual))
	}

	v := obs.View
	if e.Stage != "" && e.Stage != v.Stage.String() {
		fail("stage", e.Stage, v.Stage.String())
	}
	if e.Running != nil && *e.Running != v.Running {
		fail("running", *e.Running, v.Running)
	}
	if e.CanSubmit != nil && *e.CanSubmit != v.CanSubmit {
		fail("can_submit", *e.CanSubmit, v.CanSubmit)
	}
	if e.Form != nil {
		if e.Form.Name != v.Form.Name {
			fail("form.name", quote(e.Form.Name), quote(v.Form.Name))
		}
		if e.Form.Email != v.Form.Email {
			fail("form.email", quote(e.Form.Email), quote(v.Form.Email))
		}
	}
	if e.LocalCount != nil && *e.LocalCount != v.LocalCount {
		fail("local_count", *e.LocalCount, v.LocalCount)
	}
	if e.SyncedCount != nil && *e.SyncedCount != v.SyncedCount {
		fail("synced_count", *e.SyncedCount, v.SyncedCount)
	}
	if e.Source != "" && e.Source != v.Source {
		fail("source", quote(e.Source), quote(v.Source))
	}
	if e.NetworkCalls != nil && *e.NetworkCalls != obs.NetworkCalls {
		fail("network_calls", *e.NetworkCalls, obs.NetworkCalls)
	}
	if e.PendingTimers != nil && *e.PendingTimers != obs.PendingTimers {
		fail("pending_timers", *e.PendingTimers, obs.PendingTimers)
	}
	if e.NextTimer != nil {
		switch {
		case obs.NextTimer == nil:
			fail("next_timer", *e.NextTimer, "none")
		case *obs.NextTimer != *e.NextTimer:
			fail("next_timer", *e.NextTimer, *obs.NextTimer)
		}
	}

	if e.LatestLocal != nil {
		if len(v.Local) == 0 {
			errs = append(errs, "latest_local: no local records")
		} else {
			r := v.Local[0]
			errs = append(errs, matchRecord("latest_local", e.LatestLocal, r.ID, r.Name, r.Email)...)
		}
	}

	if e.LatestSynced != nil {
		if len(v.Synced) == 0 {
			errs = append(errs, "latest_synced: no synced records")
		} else {
			r := v.Synced[0]
			errs = append(errs, matchRecord("latest_synced", e.LatestSynced, r.UserID, r.Name, r.Email)...)

			if e.LatestSynced.UserIDMatchesLocal {
				switch {
				case len(v.Local) == 0:
					errs = append(errs, "latest_synced.user_id_matches_local: no local records")
				case v.Local[0].ID != r.UserID:
					errs = append(errs, fmt.Sprintf("latest_synced.user_id_matches_local: userId %q != local id %q",
						r.UserID, v.Local[0].ID))
				}
			}
		}
	}

	return errs
}

func matchRecord(field string, e *RecordExp, id, name, email string) []string {
	var errs []string
	if e.IDPrefix != "" && !strings.HasPrefix(id, e.IDPrefix) {
		errs = append(errs, fmt.Sprintf("%s.id: expected prefix %q, got %q", field, e.IDPrefix, id))
	}
	if e.Name != "" && e.Name != name {
		errs = append(errs, fmt.Sprintf("%s.name: expected %q, got %q", field, e.Name, name))
	}
	if e.Email != "" && e.Email != email {
		errs = append(errs, fmt.Sprintf("%s.email: expected %q, got %q", field, e.Email, email))
	}
	return errs
}

func quote(s string) string {
	return fmt.Sprintf("%q", s)
}
