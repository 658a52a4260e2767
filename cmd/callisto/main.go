// Callisto is a telemetry sidecar for OpenAI-compatible completions servers.
//
// It fronts a single upstream with a reverse proxy that forwards traffic
// byte-for-byte while observing it: per-request usage extraction (JSON and
// SSE streams), structured usage logging, Prometheus metrics, optional
// SQLite event persistence with scheduled retention, and a cumulative
// per-model usage ledger.
//
// Usage:
//
//	# Start the sidecar with default configuration
//	callisto run
//
//	# Start with a custom configuration file
//	callisto run --config /etc/callisto/config.yaml
//
//	# Start and supervise the upstream process itself
//	callisto run --launch-upstream
//
//	# Validate configuration and the models file
//	callisto validate
//
//	# Report accumulated usage from the ledger
//	callisto usage --since 2026-08-01 --format json
//
//	# Show version information
//	callisto version
package main

func main() {
	Execute()
}
