package sink

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"mercator-hq/callisto/pkg/telemetry"
	"mercator-hq/callisto/pkg/usage"
)

// SQLiteConfig contains configuration for the SQLite event log sink.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// BufferSize is the capacity of the async write channel. Events
	// arriving while the buffer is full are dropped and counted.
	// Default: 1000
	BufferSize int

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration

	// WriteTimeout is the per-event timeout for storage writes.
	// Default: 5 seconds
	WriteTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite sink configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/telemetry.db",
		BufferSize:   1000,
		BusyTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
}

// SQLiteSink persists every event to a SQLite database. Writes happen on
// a background worker so Emit never blocks the request path; a full
// buffer drops the event and increments the drop counter instead.
type SQLiteSink struct {
	db      *sql.DB
	config  *SQLiteConfig
	eventCh chan telemetry.Event
	done    chan struct{}
	wg      sync.WaitGroup
	dropped atomic.Int64
	logger  *slog.Logger
}

// StoredEvent is one row of the event log. Columns that do not apply to
// the row's kind are left at their zero values; token counts that were
// absent upstream stay nil inside Usage.
type StoredEvent struct {
	ID              int64
	EventID         string
	Kind            telemetry.Kind
	Timestamp       string
	RecordedUnix    int64
	ClientRequestID string
	RemoteAddr      string
	Method          string
	Path            string
	Model           string
	StatusCode      int
	DurationSeconds float64
	Streaming       bool
	Usage           *usage.Tokens
	ParseError      bool
	MissingUsage    bool
	ErrorType       string
	ErrorMessage    string
}

// NewSQLiteSink opens (or creates) the event database and starts the
// background write worker.
func NewSQLiteSink(config *SQLiteConfig) (*SQLiteSink, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	logger := slog.Default().With("component", "telemetry.sink.sqlite")

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		config.Path, config.BusyTimeout.Milliseconds())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open event database: %w", err)
	}

	s := &SQLiteSink{
		db:      db,
		config:  config,
		eventCh: make(chan telemetry.Event, config.BufferSize),
		done:    make(chan struct{}),
		logger:  logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	s.wg.Add(1)
	go s.worker()

	logger.Info("sqlite event sink initialized",
		"path", config.Path,
		"buffer_size", config.BufferSize,
	)

	return s, nil
}

// initialize creates the schema and verifies the schema version.
func (s *SQLiteSink) initialize() error {
	if _, err := s.db.Exec(Schema); err != nil {
		return fmt.Errorf("failed to create event schema: %w", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return fmt.Errorf("failed to insert schema version: %w", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if version != SchemaVersion {
		return fmt.Errorf("event schema version mismatch: expected %d, got %d", SchemaVersion, version)
	}

	return nil
}

// Name implements telemetry.Sink.
func (s *SQLiteSink) Name() string {
	return "sqlite"
}

// Emit enqueues the event for async persistence. A full buffer drops the
// event: telemetry must never apply backpressure to the request path.
func (s *SQLiteSink) Emit(ctx context.Context, event telemetry.Event) error {
	select {
	case <-s.done:
		return fmt.Errorf("sqlite sink is closed")
	default:
	}

	select {
	case s.eventCh <- event:
		return nil
	default:
		dropped := s.dropped.Add(1)
		return fmt.Errorf("event buffer full (capacity %d), %d events dropped so far",
			s.config.BufferSize, dropped)
	}
}

// Dropped returns the number of events dropped due to a full buffer.
func (s *SQLiteSink) Dropped() int64 {
	return s.dropped.Load()
}

// Close drains the write buffer, waits for pending writes and closes the
// database.
func (s *SQLiteSink) Close() error {
	close(s.done)
	s.wg.Wait()

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close event database: %w", err)
	}

	s.logger.Info("sqlite event sink closed", "dropped", s.dropped.Load())
	return nil
}

// worker drains the event channel and writes rows until Close.
func (s *SQLiteSink) worker() {
	defer s.wg.Done()

	for {
		select {
		case event := <-s.eventCh:
			s.writeEvent(event)

		case <-s.done:
			// Drain remaining events before exit.
			for {
				select {
				case event := <-s.eventCh:
					s.writeEvent(event)
				default:
					return
				}
			}
		}
	}
}

// writeEvent inserts a single event row.
func (s *SQLiteSink) writeEvent(event telemetry.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.WriteTimeout)
	defer cancel()

	meta := event.Meta()

	var (
		method, path, model         any
		statusCode, durationSeconds any
		streaming                   bool
		parseError, missingUsage    bool
		errorType, errorMessage     any

		promptTokens, completionTokens, reasoningTokens, totalTokens any
	)

	switch e := event.(type) {
	case *telemetry.RequestReceived:
		method = e.Method
		path = e.Path
		model = nullable(e.ModelAlias)

	case *telemetry.ResponseCompleted:
		model = nullable(e.UpstreamModel)
		statusCode = e.StatusCode
		durationSeconds = e.DurationSeconds
		streaming = e.Streaming
		parseError = e.ParseError
		missingUsage = e.MissingUsage
		if u := e.Usage; u != nil {
			promptTokens = u.Prompt
			completionTokens = u.Completion
			reasoningTokens = u.Reasoning
			totalTokens = u.Total
		}

	case *telemetry.ErrorRaised:
		statusCode = e.StatusCode
		durationSeconds = e.DurationSeconds
		streaming = e.Streaming
		errorType = nullable(e.ErrorType)
		errorMessage = nullable(e.ErrorMessage)
	}

	_, err := s.db.ExecContext(ctx, insertEventSQL,
		meta.EventID, string(event.Kind()), meta.Timestamp, time.Now().Unix(),
		nullable(meta.ClientRequestID), nullable(meta.RemoteAddr), method, path, model,
		statusCode, durationSeconds, streaming,
		promptTokens, completionTokens, reasoningTokens, totalTokens,
		parseError, missingUsage,
		errorType, errorMessage,
	)
	if err != nil {
		s.logger.Error("failed to store telemetry event",
			"event_id", meta.EventID,
			"event_kind", event.Kind(),
			"error", err,
		)
	}
}

// CountEvents returns the total number of stored events.
func (s *SQLiteSink) CountEvents(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM telemetry_events").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

// EventsSince returns events recorded at or after since, oldest first.
// A non-positive limit defaults to 100.
func (s *SQLiteSink) EventsSince(ctx context.Context, since time.Time, limit int) ([]*StoredEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	query := selectEventSQL + " WHERE recorded_unix >= ? ORDER BY id ASC LIMIT ?"
	rows, err := s.db.QueryContext(ctx, query, since.Unix(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	events := []*StoredEvent{}
	for rows.Next() {
		ev, err := scanStoredEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate event rows: %w", err)
	}

	return events, nil
}

// PruneBefore deletes events recorded before cutoff and returns the
// number of rows removed.
func (s *SQLiteSink) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM telemetry_events WHERE recorded_unix < ?", cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune events by age: %w", err)
	}
	return result.RowsAffected()
}

// PruneToCount deletes the oldest events until at most max remain and
// returns the number of rows removed.
func (s *SQLiteSink) PruneToCount(ctx context.Context, max int64) (int64, error) {
	if max < 0 {
		max = 0
	}
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM telemetry_events WHERE id NOT IN (
			SELECT id FROM telemetry_events ORDER BY id DESC LIMIT ?
		)`, max)
	if err != nil {
		return 0, fmt.Errorf("failed to prune events by count: %w", err)
	}
	return result.RowsAffected()
}

// scanStoredEvent scans one event log row.
func scanStoredEvent(rows *sql.Rows) (*StoredEvent, error) {
	var (
		ev   StoredEvent
		kind string

		clientRequestID, remoteAddr, method, path, model sql.NullString
		errorType, errorMessage                          sql.NullString
		statusCode                                       sql.NullInt64
		durationSeconds                                  sql.NullFloat64

		promptTokens, completionTokens, reasoningTokens, totalTokens sql.NullInt64
	)

	err := rows.Scan(
		&ev.ID, &ev.EventID, &kind, &ev.Timestamp, &ev.RecordedUnix,
		&clientRequestID, &remoteAddr, &method, &path, &model,
		&statusCode, &durationSeconds, &ev.Streaming,
		&promptTokens, &completionTokens, &reasoningTokens, &totalTokens,
		&ev.ParseError, &ev.MissingUsage,
		&errorType, &errorMessage,
	)
	if err != nil {
		return nil, err
	}

	ev.Kind = telemetry.Kind(kind)
	ev.ClientRequestID = clientRequestID.String
	ev.RemoteAddr = remoteAddr.String
	ev.Method = method.String
	ev.Path = path.String
	ev.Model = model.String
	ev.StatusCode = int(statusCode.Int64)
	ev.DurationSeconds = durationSeconds.Float64
	ev.ErrorType = errorType.String
	ev.ErrorMessage = errorMessage.String

	if promptTokens.Valid || completionTokens.Valid || reasoningTokens.Valid || totalTokens.Valid {
		tokens := &usage.Tokens{}
		if promptTokens.Valid {
			tokens.Prompt = usage.Int(int(promptTokens.Int64))
		}
		if completionTokens.Valid {
			tokens.Completion = usage.Int(int(completionTokens.Int64))
		}
		if reasoningTokens.Valid {
			tokens.Reasoning = usage.Int(int(reasoningTokens.Int64))
		}
		if totalTokens.Valid {
			tokens.Total = usage.Int(int(totalTokens.Int64))
		}
		ev.Usage = tokens
	}

	return &ev, nil
}

// nullable maps the empty string to NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
