package sink

import (
	"context"
	"log/slog"

	"mercator-hq/callisto/pkg/telemetry"
)

// LoggerSink emits one structured log line per completed response. All
// other event kinds are dropped on purpose: the single info line per
// request is what downstream log processors parse for token accounting,
// and request/error noise would dilute it.
//
// The line carries status_code, duration_s, streaming and upstream_model
// on every record. Token counts are flattened into prompt_tokens,
// completion_tokens, reasoning_tokens and total_tokens; a count that was
// not reported upstream is omitted entirely, never logged as null or
// zero. client_request_id and remote_addr appear when known, and the
// missing_usage / parse_error flags appear only when true.
type LoggerSink struct {
	logger *slog.Logger
}

// NewLoggerSink creates a logger sink. A nil logger falls back to
// slog.Default.
func NewLoggerSink(logger *slog.Logger) *LoggerSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggerSink{logger: logger}
}

// Name implements telemetry.Sink.
func (s *LoggerSink) Name() string {
	return "logger"
}

// Emit logs ResponseCompleted events at info level and ignores the rest.
func (s *LoggerSink) Emit(ctx context.Context, event telemetry.Event) error {
	completed, ok := event.(*telemetry.ResponseCompleted)
	if !ok {
		return nil
	}

	attrs := make([]slog.Attr, 0, 12)
	attrs = append(attrs,
		slog.Int("status_code", completed.StatusCode),
		slog.Float64("duration_s", completed.DurationSeconds),
		slog.Bool("streaming", completed.Streaming),
		slog.String("upstream_model", completed.UpstreamModel),
	)

	if u := completed.Usage; u != nil {
		if u.Prompt != nil {
			attrs = append(attrs, slog.Int("prompt_tokens", *u.Prompt))
		}
		if u.Completion != nil {
			attrs = append(attrs, slog.Int("completion_tokens", *u.Completion))
		}
		if u.Reasoning != nil {
			attrs = append(attrs, slog.Int("reasoning_tokens", *u.Reasoning))
		}
		if u.Total != nil {
			attrs = append(attrs, slog.Int("total_tokens", *u.Total))
		}
	}

	if completed.ClientRequestID != "" {
		attrs = append(attrs, slog.String("client_request_id", completed.ClientRequestID))
	}
	if completed.RemoteAddr != "" {
		attrs = append(attrs, slog.String("remote_addr", completed.RemoteAddr))
	}
	if completed.MissingUsage {
		attrs = append(attrs, slog.Bool("missing_usage", true))
	}
	if completed.ParseError {
		attrs = append(attrs, slog.Bool("parse_error", true))
	}

	s.logger.LogAttrs(ctx, slog.LevelInfo, "llm request completed", attrs...)
	return nil
}
