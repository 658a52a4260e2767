package telemetry

import (
	"context"
	"log/slog"
)

// Sink consumes telemetry events. Implementations must be safe for
// concurrent use from multiple requests; stateful sinks synchronize their
// own mutations.
type Sink interface {
	// Name identifies the sink in warnings about its failures.
	Name() string

	// Emit delivers one event. A returned error is logged by the pipeline
	// and never propagated to the request path.
	Emit(ctx context.Context, event Event) error
}

// Pipeline fans events out to an ordered list of sinks with per-sink
// failure isolation. The sink list is fixed at construction; Pipeline
// itself holds no other state and is safe for concurrent use.
type Pipeline struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewPipeline creates a pipeline over the given sinks. Order is preserved:
// every Publish delivers to the sinks in this order. A nil logger falls
// back to the process default.
func NewPipeline(sinks []Sink, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default().With("component", "telemetry.pipeline")
	}
	p := &Pipeline{
		sinks:  make([]Sink, len(sinks)),
		logger: logger,
	}
	copy(p.sinks, sinks)
	return p
}

// Publish delivers the event to every sink in order. With zero sinks it is
// a no-op. A sink that returns an error or panics is logged as a warning
// naming the sink; delivery to the remaining sinks continues. Sinks are
// never retried within a single publish.
func (p *Pipeline) Publish(ctx context.Context, event Event) {
	for _, s := range p.sinks {
		p.emit(ctx, s, event)
	}
}

// SinkCount returns the number of configured sinks.
func (p *Pipeline) SinkCount() int {
	return len(p.sinks)
}

func (p *Pipeline) emit(ctx context.Context, s Sink, event Event) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.WarnContext(ctx, "telemetry sink panicked",
				"sink", s.Name(),
				"event_kind", event.Kind(),
				"panic", r,
			)
		}
	}()

	if err := s.Emit(ctx, event); err != nil {
		p.logger.WarnContext(ctx, "telemetry sink failed",
			"sink", s.Name(),
			"event_kind", event.Kind(),
			"error", err,
		)
	}
}
