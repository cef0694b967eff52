// Package session is the trigger surface of the simulation.
//
// A Session owns one engine, one record store view and the form state of a
// single demo user. It turns a submission into a registration attempt, a
// staged engine run and the two delayed store appends, and publishes every
// step as an Event.
//
// All state lives on the session's clock.Scheduler. Exported methods are
// safe to call from any goroutine: each posts its work to the scheduler and
// waits for it. They must not be called from an event subscriber, which
// already runs on the scheduler.
//
// Typical usage:
//
//	loop := clock.NewLoop()
//	go loop.Run(ctx)
//
//	s, err := session.New(loop, st, registration.NewClient(endpoint))
//	if err != nil {
//		return err
//	}
//	unsubscribe := s.Subscribe(func(ev session.Event) { ... })
//	defer unsubscribe()
//
//	run, err := s.Submit(ctx, "Ada Lovelace", "ada@example.com")
package session
