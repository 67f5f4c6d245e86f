// Package coordinator schedules synchronization ticks in the background.
//
// The coordinator fires the sync engine at a fixed interval, starting with one
// tick right away. Each tick runs in its own goroutine so the schedule stays
// fixed when a tick overruns; the engine's single-flight guard then rejects the
// overlapping tick and the coordinator logs it as skipped.
//
// A failed or panicking tick is logged and never stops the loop. The next
// attempt happens on the next interval.
//
// # Usage
//
//	c := coordinator.New(engine, cfg, coordinator.WithSyncMetrics(metrics))
//	go func() { _ = c.Start(ctx) }()
//	// ... serve ...
//	_ = c.Stop() // waits for the in-flight tick
package coordinator
