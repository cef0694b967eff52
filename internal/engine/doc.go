// Package engine implements the staged simulation engine.
//
// A run walks a fixed stage sequence on a schedule:
//
//	idle → producing → persisted → publishing → consuming → idle
//
// The engine does not depend on whether the registration backend answered;
// the pacing is purely illustrative and fully determined by the
// Choreography.
//
// ARCHITECTURE:
//
// Single-Writer Scheduling:
// The engine owns no goroutines. Every method and every timer callback runs
// on one clock.Scheduler, which serializes them. This gives:
//   - No locks around stage state
//   - Reproducible transition order under clock.Manual
//   - Trivial reasoning about cancellation
//
// Run Lifecycle:
//  1. Start enters Producing and arms one timer per remaining step, all at
//     once, anchored to the same instant
//  2. Each timer enters its step's stage and notifies observers
//  3. The final timer returns to Idle and calls onComplete exactly once
//
// Cancellation:
// Cancel, SetRunning(false) and a restarting Start stop every pending timer
// of the current run and return the stage to Idle. A timer callback whose
// run is no longer current is ignored, so a stale transition can never land
// on a newer run.
package engine
