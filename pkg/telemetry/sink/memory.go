package sink

import (
	"context"
	"sync"

	"mercator-hq/callisto/pkg/telemetry"
)

// MemorySink buffers events in arrival order. It exists for test
// assertions: tests publish through a real pipeline, then inspect the
// captured events.
type MemorySink struct {
	mu     sync.RWMutex
	events []telemetry.Event
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Name implements telemetry.Sink.
func (s *MemorySink) Name() string {
	return "memory"
}

// Emit appends the event to the buffer.
func (s *MemorySink) Emit(ctx context.Context, event telemetry.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Events returns a copy of the buffered events. Mutating the returned
// slice does not affect the sink.
func (s *MemorySink) Events() []telemetry.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]telemetry.Event, len(s.events))
	copy(out, s.events)
	return out
}

// Len returns the number of buffered events.
func (s *MemorySink) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// Clear discards all buffered events.
func (s *MemorySink) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}
