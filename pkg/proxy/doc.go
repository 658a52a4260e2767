// Package proxy implements the telemetry round tripper that fronts an
// OpenAI-compatible completions upstream.
//
// The package's center is Transport, an http.RoundTripper decorator:
// it watches one exchange pass through, publishes telemetry events
// about it, and hands the response back untouched byte-for-byte. The
// surrounding pieces are the capabilities the transport composes:
//
//   - Toggle: per-request on/off switch (EnvToggle, StaticToggle)
//   - ReasoningPolicy: optional request rewriting with metadata
//   - ExtractRequestInfo: client address, request id, model alias
//   - DrainBody / ReplayBody: streaming capture with identical replay
//   - StripFieldFilter / ForceNonStreamingFilter: request body rewrites
//     applied before the telemetry transport
//
// # Event flow
//
// For each observed request the transport publishes RequestReceived,
// then exactly one of ResponseCompleted or ErrorRaised. A disabled
// toggle publishes nothing and returns the downstream result verbatim.
// A downstream error is returned to the caller unchanged after the
// ErrorRaised event; the transport never swallows a failure.
//
// # Streaming
//
// Streaming responses are drained to completion before the caller sees
// the first byte, then replayed chunk-for-chunk. Usage data sits in
// the final SSE frame, so the whole stream has to be read to find it;
// the added time-to-first-byte equals the full upstream duration. If
// the drain fails partway, the caller gets the already-read bytes
// followed by the original reader, so the visible bytes and the final
// error match an unobserved exchange.
//
// # Usage
//
//	transport := proxy.NewTransport(nil, proxy.TelemetryConfig{
//		Toggle:   proxy.EnvToggle{Key: "CALLISTO_TELEMETRY_ENABLED"},
//		Resolver: store,
//		Sinks:    []telemetry.Sink{sink.NewLoggerSink(nil)},
//	})
//
//	reverseProxy.Transport = transport
package proxy
