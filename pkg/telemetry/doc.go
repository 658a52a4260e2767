// Package telemetry defines the lifecycle event model and the fan-out
// pipeline that delivers events to sinks.
//
// # Event Model
//
// Event is a closed sum with exactly three variants, one per request
// lifecycle stage:
//
//   - RequestReceived: an observed request entered the middleware
//   - ResponseCompleted: the upstream answered; carries duration, status
//     and normalized token usage
//   - ErrorRaised: the upstream call failed; carries the error's type name
//     and message
//
// Per observed request, RequestReceived is published at most once, before
// exactly one of ResponseCompleted or ErrorRaised. The sum is sealed so
// every sink switch over variants is exhaustive.
//
// # Pipeline
//
// Pipeline fans each event out to an ordered list of sinks. Sinks are
// isolated from each other: a sink returning an error or panicking is
// logged as a warning naming the sink and never affects later sinks or the
// request being observed. There are no retries; a persistently failing
// sink produces a warning per event.
//
// # Usage
//
//	pipe := telemetry.NewPipeline([]telemetry.Sink{
//		sink.NewConsole(),
//		sink.NewLogger(nil),
//	}, nil)
//	pipe.Publish(ctx, &telemetry.RequestReceived{
//		Common:     telemetry.NewCommon(reqID, remoteAddr),
//		Method:     "POST",
//		Path:       "/v1/chat/completions",
//		ModelAlias: "fast",
//	})
//
// Sinks must be safe for concurrent use: the pipeline does not serialize
// Publish calls across requests.
package telemetry
