// Package ledger accumulates per-model daily usage totals in SQLite.
//
// While the telemetry event log records one row per request, the ledger
// keeps a compact running aggregate keyed by (day, model): request and
// error counts plus summed prompt, completion, reasoning, and total
// tokens. Days are UTC calendar dates. The ledger is what the usage
// report command reads, so it stays small and queryable even when the
// full event log has been pruned.
//
// # Components
//
//   - Store: the SQLite-backed aggregate table with upsert accumulation
//   - Sink: a telemetry sink adapter that feeds completed responses and
//     raised errors into a Store
//
// # Usage
//
//	store, err := ledger.NewStore(ledger.Config{Path: "data/ledger.db"})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer store.Close()
//
//	pipeline := telemetry.NewPipeline(ledger.NewSink(store))
//
// Reading it back:
//
//	rows, err := store.TotalsSince(ctx, time.Now().AddDate(0, 0, -7))
//	for _, row := range rows {
//		fmt.Printf("%s %-30s %d requests, %d tokens\n",
//			row.Day, row.Model, row.Requests, row.TotalTokens)
//	}
package ledger
