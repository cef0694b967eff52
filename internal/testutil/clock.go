package testutil

import (
	"time"

	"github.com/roach88/microsync/internal/clock"
)

// Epoch is the fixed start instant used by deterministic tests and scenarios.
var Epoch = time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

// NewManualClock returns a manual scheduler starting at Epoch.
//
// Two runs of the same scenario on fresh manual clocks produce identical
// timestamps, which golden traces rely on.
func NewManualClock() *clock.Manual {
	return clock.NewManual(Epoch)
}
