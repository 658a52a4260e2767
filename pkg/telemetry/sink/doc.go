// Package sink provides the built-in telemetry sinks.
//
// Every sink implements telemetry.Sink and can be freely combined in a
// telemetry.Pipeline. Sinks are independent: they never call each other,
// and a failure in one is contained by the pipeline.
//
// # Available Sinks
//
//   - ConsoleSink: one human-readable line per event on standard output.
//   - MemorySink: ordered in-memory buffer, intended for test assertions.
//   - LoggerSink: one structured slog line per completed response; the
//     line downstream log processors scrape for token accounting.
//   - PrometheusSink: request, duration, token and error metrics on a
//     dedicated Prometheus registry.
//   - SQLiteSink: durable event log with asynchronous writes.
//
// # Usage
//
//	logSink := sink.NewLoggerSink(slog.Default())
//	memSink := sink.NewMemorySink()
//	pipeline := telemetry.NewPipeline([]telemetry.Sink{logSink, memSink}, nil)
package sink
