package proxy

import (
	"log/slog"
	"net/http"
)

// ReasoningPolicy can rewrite a request before it reaches the upstream
// and attach metadata describing what it did. The metadata travels on
// the RequestReceived event.
type ReasoningPolicy interface {
	Apply(r *http.Request) (*http.Request, map[string]any, error)
}

// NoopReasoningPolicy leaves every request untouched.
type NoopReasoningPolicy struct{}

// Apply returns the request unchanged with empty metadata.
func (NoopReasoningPolicy) Apply(r *http.Request) (*http.Request, map[string]any, error) {
	return r, map[string]any{}, nil
}

// applyReasoningPolicy runs the policy guarded. An error return or a
// panic falls back to the unmodified request for this call; a policy
// problem is never request-fatal.
func applyReasoningPolicy(policy ReasoningPolicy, r *http.Request, logger *slog.Logger) (req *http.Request, metadata map[string]any) {
	req = r
	metadata = map[string]any{}

	if policy == nil {
		return req, metadata
	}

	defer func() {
		if rec := recover(); rec != nil {
			logger.Warn("reasoning policy panicked, continuing without it", "panic", rec)
			req = r
			metadata = map[string]any{}
		}
	}()

	applied, meta, err := policy.Apply(r)
	if err != nil {
		logger.Warn("reasoning policy failed, continuing without it", "error", err)
		return r, map[string]any{}
	}

	if applied != nil {
		req = applied
	}
	if meta != nil {
		metadata = meta
	}
	return req, metadata
}
