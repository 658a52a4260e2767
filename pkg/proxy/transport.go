package proxy

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"mercator-hq/callisto/pkg/aliases"
	"mercator-hq/callisto/pkg/telemetry"
	"mercator-hq/callisto/pkg/usage"
)

// TelemetryConfig is the immutable composition root for the telemetry
// transport. Build it once at startup; never mutate it afterwards.
type TelemetryConfig struct {
	// Toggle decides per request whether telemetry observes it.
	// Nil observes everything.
	Toggle Toggle

	// Resolver maps the request's model alias to the upstream model
	// identifier. Nil leaves aliases unresolved.
	Resolver aliases.Resolver

	// Sinks receive events in construction order. Empty publishes
	// nothing.
	Sinks []telemetry.Sink

	// Reasoning optionally rewrites requests before the upstream.
	// Nil applies no rewriting.
	Reasoning ReasoningPolicy

	// Logger receives transport diagnostics.
	// Default: slog.Default() with component "proxy.transport"
	Logger *slog.Logger
}

// Transport is an http.RoundTripper decorator that publishes telemetry
// about each completions exchange and returns the response unchanged.
// Safe for concurrent use; it holds no per-request state.
type Transport struct {
	next      http.RoundTripper
	toggle    Toggle
	resolver  aliases.Resolver
	pipeline  *telemetry.Pipeline
	reasoning ReasoningPolicy
	logger    *slog.Logger
}

// NewTransport wraps next with telemetry. A nil next uses
// http.DefaultTransport.
func NewTransport(next http.RoundTripper, config TelemetryConfig) *Transport {
	if next == nil {
		next = http.DefaultTransport
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default().With("component", "proxy.transport")
	}

	return &Transport{
		next:      next,
		toggle:    config.Toggle,
		resolver:  config.Resolver,
		pipeline:  telemetry.NewPipeline(config.Sinks, logger),
		reasoning: config.Reasoning,
		logger:    logger,
	}
}

// RoundTrip observes one exchange. With the toggle off it delegates
// and returns the downstream result verbatim. Otherwise it publishes
// RequestReceived, invokes the downstream round tripper, and publishes
// exactly one of ResponseCompleted or ErrorRaised. Downstream errors
// come back to the caller unchanged.
func (t *Transport) RoundTrip(r *http.Request) (*http.Response, error) {
	if !t.enabled(r) {
		return t.next.RoundTrip(r)
	}

	ctx := r.Context()
	req := r.Clone(ctx)

	req, reasoningMeta := applyReasoningPolicy(t.reasoning, req, t.logger)

	info := ExtractRequestInfo(req)

	t.pipeline.Publish(ctx, &telemetry.RequestReceived{
		Common:            telemetry.NewCommon(info.ClientRequestID, info.RemoteAddr),
		Method:            info.Method,
		Path:              info.Path,
		ModelAlias:        info.ModelAlias,
		ReasoningMetadata: reasoningMeta,
	})

	upstreamModel := info.ModelAlias
	if t.resolver != nil {
		upstreamModel = t.resolver.Resolve(info.ModelAlias)
	}

	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		t.pipeline.Publish(ctx, &telemetry.ErrorRaised{
			Common:          telemetry.NewCommon(info.ClientRequestID, info.RemoteAddr),
			DurationSeconds: time.Since(start).Seconds(),
			StatusCode:      StatusFromError(err),
			ErrorType:       ErrorTypeName(err),
			ErrorMessage:    err.Error(),
			Streaming:       info.Streaming,
		})
		return resp, err
	}

	streaming := info.Streaming || isEventStream(resp)

	completed := &telemetry.ResponseCompleted{
		Common:        telemetry.NewCommon(info.ClientRequestID, info.RemoteAddr),
		StatusCode:    resp.StatusCode,
		UpstreamModel: upstreamModel,
		Streaming:     streaming,
	}

	if streaming {
		t.observeStream(ctx, resp, completed)
	} else {
		t.observeBody(resp, completed)
	}

	completed.DurationSeconds = time.Since(start).Seconds()
	completed.MissingUsage = completed.Usage == nil

	t.pipeline.Publish(ctx, completed)

	return resp, nil
}

// enabled runs the toggle guarded: an error or panic counts as
// enabled.
func (t *Transport) enabled(r *http.Request) (on bool) {
	if t.toggle == nil {
		return true
	}

	on = true
	defer func() {
		if rec := recover(); rec != nil {
			t.logger.Warn("telemetry toggle panicked, defaulting to enabled", "panic", rec)
			on = true
		}
	}()

	enabled, err := t.toggle.Enabled(r)
	if err != nil {
		t.logger.Warn("telemetry toggle failed, defaulting to enabled", "error", err)
		return true
	}

	return enabled
}

// observeStream drains the body, parses usage out of the captured
// chunks, and replaces the body with an identical replay. A mid-drain
// failure or cancellation hands the original body on fail-safe and
// marks the event parse_error; usage is never fabricated from a
// partial stream.
func (t *Transport) observeStream(ctx context.Context, resp *http.Response, completed *telemetry.ResponseCompleted) {
	chunks, err := DrainBody(ctx, resp.Body)
	if err != nil {
		resp.Body = FailSafeBody(chunks, resp.Body)
		completed.ParseError = true
		return
	}

	resp.Body.Close()
	resp.Body = ReplayBody(chunks)

	for _, chunk := range chunks {
		if tokens := usage.ParseStreamChunk(chunk); tokens != nil {
			completed.Usage = tokens
			return
		}
	}

	// A usage frame can straddle a chunk boundary; retry over the
	// joined stream.
	if len(chunks) > 1 {
		completed.Usage = usage.ParseStreamChunk(bytes.Join(chunks, nil))
	}
}

// observeBody reads a non-streaming body, parses usage, and restores
// the bytes for the caller.
func (t *Transport) observeBody(resp *http.Response, completed *telemetry.ResponseCompleted) {
	if resp.Body == nil || resp.Body == http.NoBody {
		return
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		resp.Body = FailSafeBody([][]byte{body}, resp.Body)
		completed.ParseError = true
		return
	}

	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))

	if !gjson.ValidBytes(body) {
		completed.ParseError = true
		return
	}

	completed.Usage = usage.ParseResponse(body)
}

// isEventStream reports whether the response announces SSE framing.
func isEventStream(resp *http.Response) bool {
	contentType := resp.Header.Get("Content-Type")
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "text/event-stream")
}
