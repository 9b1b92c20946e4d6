// Package coordinator schedules department synchronization and records its status.
//
// The Coordinator owns the only timer. It calls Manager.Synchronize once on
// Start and then on every interval, with a ±10% jitter, until Stop is called
// or its context is cancelled. A failed run is logged and the next tick tries again.
//
// NewTrackedManager wraps any Manager so that each run, scheduled or not,
// moves the persisted status through Syncing to Complete, Failed or Disabled,
// and records the run duration labelled with the trigger found in the context.
//
//	tracked := coordinator.NewTrackedManager(manager, stateSvc, syncMetrics)
//	coord := coordinator.New(tracked, cfg.GetSyncInterval())
//	go coord.Start(ctx)
//	defer coord.Stop()
package coordinator
