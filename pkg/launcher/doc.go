// Package launcher supervises the upstream completions server as a
// child process.
//
// The sidecar is most useful next to a locally run inference server
// (llama.cpp, vLLM, an OpenAI-compatible shim). With the launcher
// enabled, `callisto run` starts that server itself, waits for its
// health endpoint to answer, and shuts it down again when the sidecar
// exits:
//
//	l, err := launcher.New(launcher.Config{
//		Command:   "llama-server",
//		Args:      []string{"-m", "model.gguf", "--port", "4000"},
//		HealthURL: "http://127.0.0.1:4000/health",
//	}, logger)
//	if err != nil {
//		return err
//	}
//	if err := l.Start(ctx); err != nil {
//		return err
//	}
//	defer l.Stop()
//
//	if err := l.WaitReady(ctx); err != nil {
//		return err
//	}
//
// A launcher is single-shot: one Start, one process, one Stop. Stop
// sends SIGTERM, waits the configured grace period, then kills. The
// Done channel closes when the child exits for any reason, so callers
// can treat an upstream crash as a reason to shut down themselves.
package launcher
