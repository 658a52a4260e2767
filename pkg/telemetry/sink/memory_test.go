package sink

import (
	"context"
	"sync"
	"testing"

	"mercator-hq/callisto/pkg/telemetry"
)

func TestMemorySink_RecordsInOrder(t *testing.T) {
	s := NewMemorySink()
	ctx := context.Background()

	if s.Name() != "memory" {
		t.Errorf("expected name %q, got %q", "memory", s.Name())
	}

	first := &telemetry.RequestReceived{Common: telemetry.NewCommon("", ""), Method: "POST"}
	second := &telemetry.ResponseCompleted{Common: telemetry.NewCommon("", ""), StatusCode: 200}

	if err := s.Emit(ctx, first); err != nil {
		t.Fatalf("emit failed: %v", err)
	}
	if err := s.Emit(ctx, second); err != nil {
		t.Fatalf("emit failed: %v", err)
	}

	events := s.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0] != first || events[1] != second {
		t.Error("expected events in emission order")
	}
	if s.Len() != 2 {
		t.Errorf("expected Len 2, got %d", s.Len())
	}
}

func TestMemorySink_EventsReturnsCopy(t *testing.T) {
	s := NewMemorySink()
	ctx := context.Background()

	original := &telemetry.RequestReceived{Common: telemetry.NewCommon("", "")}
	if err := s.Emit(ctx, original); err != nil {
		t.Fatalf("emit failed: %v", err)
	}

	snapshot := s.Events()
	snapshot[0] = &telemetry.ErrorRaised{Common: telemetry.NewCommon("", "")}

	events := s.Events()
	if events[0] != original {
		t.Error("mutating the snapshot must not affect the sink")
	}
}

func TestMemorySink_Clear(t *testing.T) {
	s := NewMemorySink()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := s.Emit(ctx, &telemetry.RequestReceived{Common: telemetry.NewCommon("", "")}); err != nil {
			t.Fatalf("emit failed: %v", err)
		}
	}

	s.Clear()

	if s.Len() != 0 {
		t.Errorf("expected empty sink after Clear, got %d events", s.Len())
	}
	if len(s.Events()) != 0 {
		t.Error("expected empty snapshot after Clear")
	}
}

func TestMemorySink_ConcurrentEmit(t *testing.T) {
	s := NewMemorySink()
	ctx := context.Background()

	const goroutines = 20
	const perGoroutine = 50

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				s.Emit(ctx, &telemetry.RequestReceived{Common: telemetry.NewCommon("", "")})
			}
		}()
	}
	wg.Wait()

	if s.Len() != goroutines*perGoroutine {
		t.Errorf("expected %d events, got %d", goroutines*perGoroutine, s.Len())
	}
}
