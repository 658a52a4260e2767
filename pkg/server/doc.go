// Package server provides the HTTP serving shell of the callisto sidecar.
//
// The server fronts a single upstream completions server with a
// catch-all reverse proxy. All observation happens in the proxy's
// transport (see package proxy); the server itself only adds the
// inbound HTTP surface:
//
//   - /healthz: liveness of the sidecar process itself
//   - /readyz: readiness, probing the upstream's health endpoint
//   - /metrics: Prometheus exposition (optional, path configurable)
//   - everything else: reverse-proxied to the upstream base URL
//
// # Usage
//
//	srv, err := server.NewServer(&cfg.Server, &cfg.Upstream, server.Options{
//		Transport: transport,
//		Metrics:   promSink.Handler(),
//	})
//	if err != nil {
//		return err
//	}
//	return srv.Start(ctx) // blocks until signal or shutdown
//
// Start installs SIGINT/SIGTERM handlers and performs a graceful
// shutdown bounded by the configured shutdown timeout.
package server
