package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"mercator-hq/callisto/pkg/telemetry"
)

// ConsoleSink writes one line per event to standard output. It is meant
// for interactive runs and demos; production deployments use LoggerSink
// or SQLiteSink instead.
type ConsoleSink struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleSink creates a sink writing to standard output.
func NewConsoleSink() *ConsoleSink {
	return &ConsoleSink{out: os.Stdout}
}

// NewConsoleSinkWriter creates a sink writing to w.
func NewConsoleSinkWriter(w io.Writer) *ConsoleSink {
	return &ConsoleSink{out: w}
}

// Name implements telemetry.Sink.
func (s *ConsoleSink) Name() string {
	return "console"
}

// Emit writes the event kind followed by its JSON form. Events that fail
// to marshal are written with a best-effort fmt representation instead of
// returning an error.
func (s *ConsoleSink) Emit(ctx context.Context, event telemetry.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		payload = []byte(fmt.Sprintf("%+v", event))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := fmt.Fprintf(s.out, "%s %s\n", event.Kind(), payload); err != nil {
		return fmt.Errorf("console sink write failed: %w", err)
	}
	return nil
}
