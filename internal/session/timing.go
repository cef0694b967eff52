package session

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTiming is returned when append delays fall outside the run.
var ErrInvalidTiming = errors.New("invalid session timing")

// Timing places the two store appends relative to run start.
type Timing struct {
	// LocalAppend is when the registration is written to the local store.
	LocalAppend time.Duration

	// SyncedAppend is when the consumer's copy lands in the synced store.
	SyncedAppend time.Duration
}

// DefaultTiming returns the demo's append delays.
func DefaultTiming() Timing {
	return Timing{
		LocalAppend:  1500 * time.Millisecond,
		SyncedAppend: 5000 * time.Millisecond,
	}
}

// Validate checks 0 < LocalAppend <= SyncedAppend <= total.
func (t Timing) Validate(total time.Duration) error {
	switch {
	case t.LocalAppend <= 0:
		return fmt.Errorf("%w: local append %s must be positive", ErrInvalidTiming, t.LocalAppend)
	case t.SyncedAppend < t.LocalAppend:
		return fmt.Errorf("%w: synced append %s before local append %s", ErrInvalidTiming, t.SyncedAppend, t.LocalAppend)
	case t.SyncedAppend > total:
		return fmt.Errorf("%w: synced append %s after run end %s", ErrInvalidTiming, t.SyncedAppend, total)
	}
	return nil
}

// Scaled multiplies both delays by factor.
func (t Timing) Scaled(factor float64) Timing {
	return Timing{
		LocalAppend:  time.Duration(float64(t.LocalAppend) * factor),
		SyncedAppend: time.Duration(float64(t.SyncedAppend) * factor),
	}
}
