// Package middleware provides HTTP middleware for the callisto server.
//
// The middleware wrap the proxy handler with cross-cutting concerns that
// belong to the inbound HTTP surface rather than to the upstream round
// trip:
//
//   - RequestIDMiddleware: propagates the client's X-Request-ID into the
//     request context and echoes it on the response. It never invents an
//     ID; requests without one stay anonymous.
//   - LoggingMiddleware: structured request/response logging with status
//     and latency.
//   - RecoveryMiddleware: converts handler panics into a 500 response in
//     the OpenAI error format instead of tearing down the connection.
//
// # Ordering
//
// Middleware apply inside-out, so the outermost wrap runs first:
//
//	handler = middleware.RecoveryMiddleware(
//		middleware.RequestIDMiddleware(
//			middleware.LoggingMiddleware(mux)))
//
// Recovery sits outermost so a panic anywhere below is still caught.
// Request ID wraps outside logging so the logger finds the ID already
// in the context.
package middleware
