// Package retention enforces age and count limits on the persisted
// telemetry event log.
//
// A Pruner runs two phases per cycle: first it deletes events older than
// the configured retention window, then it trims the table down to the
// configured maximum row count, oldest first. Either phase can be
// disabled by leaving its limit at zero.
//
// A Scheduler drives the pruner from a cron expression so deployments
// can run the cleanup off-peak:
//
//	pruner := retention.NewPruner(eventStore, &retention.Config{
//		RetentionDays: 30,
//		Schedule:      "0 3 * * *",
//	})
//	if err := pruner.Start(ctx); err != nil {
//		return err
//	}
//	defer pruner.Stop()
package retention
