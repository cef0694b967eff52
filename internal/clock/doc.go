// Package clock provides the scheduling port used by the simulation.
//
// Every timer and every state mutation in microsync runs through a
// Scheduler. A Scheduler runs its callbacks serially on one goroutine, so
// the engine, the session and the store never see concurrent mutation.
//
// Two implementations exist:
//
//   - Loop: the production scheduler. A FIFO task queue drained by Run on
//     exactly one goroutine. Timers are wall-clock time.AfterFunc handles
//     that enqueue their callback when they fire.
//   - Manual: a simulated-time scheduler for tests. Time only moves when the
//     test calls Advance, and due timers fire on the calling goroutine.
//
// A stopped timer never runs its callback under either implementation, even
// if the wall-clock fire already raced into the Loop's queue.
package clock
