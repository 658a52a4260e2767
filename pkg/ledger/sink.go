package ledger

import (
	"context"
	"time"

	"mercator-hq/callisto/pkg/telemetry"
)

// Sink feeds telemetry events into a Store. It implements
// telemetry.Sink.
type Sink struct {
	store *Store
}

// NewSink wraps a Store as a telemetry sink.
func NewSink(store *Store) *Sink {
	return &Sink{store: store}
}

// Name identifies the sink in pipeline warnings.
func (s *Sink) Name() string {
	return "ledger"
}

// Emit accumulates ResponseCompleted and ErrorRaised events; other
// kinds are ignored. Completed responses count under their upstream
// model. Raised errors count under "unknown" because no upstream
// response ever named one.
func (s *Sink) Emit(ctx context.Context, event telemetry.Event) error {
	meta := event.Meta()

	switch ev := event.(type) {
	case *telemetry.ResponseCompleted:
		model := ev.UpstreamModel
		if model == "" {
			model = "unknown"
		}
		entry := Entry{Requests: 1}
		if u := ev.Usage; u != nil {
			entry.PromptTokens = tokenCount(u.Prompt)
			entry.CompletionTokens = tokenCount(u.Completion)
			entry.ReasoningTokens = tokenCount(u.Reasoning)
			entry.TotalTokens = tokenCount(u.Total)
		}
		return s.store.Add(ctx, eventTime(meta), model, entry)

	case *telemetry.ErrorRaised:
		return s.store.Add(ctx, eventTime(meta), "unknown", Entry{Errors: 1})

	default:
		return nil
	}
}

func tokenCount(v *int) int64 {
	if v == nil {
		return 0
	}
	return int64(*v)
}

// eventTime recovers the event's own timestamp so aggregates land on
// the day the request happened, falling back to now when the stamp
// fails to parse.
func eventTime(meta telemetry.Common) time.Time {
	if ts, err := time.Parse(time.RFC3339, meta.Timestamp); err == nil {
		return ts
	}
	return time.Now()
}
