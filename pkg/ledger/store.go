package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const (
	// DefaultBusyTimeout is how long SQLite waits on a locked database
	// before returning SQLITE_BUSY.
	DefaultBusyTimeout = 5 * time.Second

	dayFormat = "2006-01-02"
)

const schema = `
CREATE TABLE IF NOT EXISTS usage_ledger (
    day               TEXT NOT NULL,
    model             TEXT NOT NULL,
    requests          INTEGER NOT NULL DEFAULT 0,
    prompt_tokens     INTEGER NOT NULL DEFAULT 0,
    completion_tokens INTEGER NOT NULL DEFAULT 0,
    reasoning_tokens  INTEGER NOT NULL DEFAULT 0,
    total_tokens      INTEGER NOT NULL DEFAULT 0,
    errors            INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (day, model)
);

CREATE INDEX IF NOT EXISTS idx_usage_ledger_day ON usage_ledger (day);
`

// Config holds settings for the ledger store.
type Config struct {
	// Path is the SQLite database file location.
	Path string

	// BusyTimeout is the SQLite busy timeout.
	// Default: 5s
	BusyTimeout time.Duration
}

// Entry is one accumulation step: the deltas added to a (day, model)
// row by a single request.
type Entry struct {
	Requests         int64
	PromptTokens     int64
	CompletionTokens int64
	ReasoningTokens  int64
	TotalTokens      int64
	Errors           int64
}

// Row is one (day, model) aggregate read back from the ledger.
type Row struct {
	Day   string
	Model string
	Entry
}

// Store persists daily per-model usage aggregates in SQLite.
// All methods are safe for concurrent use.
type Store struct {
	db *sql.DB
	mu sync.RWMutex

	addStmt   *sql.Stmt
	sinceStmt *sql.Stmt

	closeOnce sync.Once
}

// NewStore opens (creating if necessary) the ledger database at the
// configured path and prepares it for writes.
func NewStore(config Config) (*Store, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("ledger path cannot be empty")
	}
	if config.BusyTimeout <= 0 {
		config.BusyTimeout = DefaultBusyTimeout
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
		config.Path, config.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}

	// SQLite allows a single writer; funnel everything through one
	// connection so concurrent sinks queue instead of failing.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to ledger database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize ledger schema: %w", err)
	}

	s := &Store{db: db}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) prepareStatements() error {
	var err error

	s.addStmt, err = s.db.Prepare(`
		INSERT INTO usage_ledger (day, model, requests, prompt_tokens, completion_tokens, reasoning_tokens, total_tokens, errors)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (day, model) DO UPDATE SET
			requests          = requests + excluded.requests,
			prompt_tokens     = prompt_tokens + excluded.prompt_tokens,
			completion_tokens = completion_tokens + excluded.completion_tokens,
			reasoning_tokens  = reasoning_tokens + excluded.reasoning_tokens,
			total_tokens      = total_tokens + excluded.total_tokens,
			errors            = errors + excluded.errors
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare add statement: %w", err)
	}

	s.sinceStmt, err = s.db.Prepare(`
		SELECT day, model, requests, prompt_tokens, completion_tokens, reasoning_tokens, total_tokens, errors
		FROM usage_ledger
		WHERE day >= ?
		ORDER BY day DESC, model ASC
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare since statement: %w", err)
	}

	return nil
}

// Add accumulates an entry into the (day, model) row, creating the row
// on first use. The day is the UTC calendar date of at.
func (s *Store) Add(ctx context.Context, at time.Time, model string, entry Entry) error {
	if model == "" {
		return fmt.Errorf("model cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.addStmt.ExecContext(ctx,
		at.UTC().Format(dayFormat),
		model,
		entry.Requests,
		entry.PromptTokens,
		entry.CompletionTokens,
		entry.ReasoningTokens,
		entry.TotalTokens,
		entry.Errors,
	)
	if err != nil {
		return fmt.Errorf("failed to record usage: %w", err)
	}

	return nil
}

// Totals returns every (day, model) aggregate, most recent day first,
// models in alphabetical order within a day.
func (s *Store) Totals(ctx context.Context) ([]Row, error) {
	return s.TotalsSince(ctx, time.Time{})
}

// TotalsSince returns aggregates for days on or after the UTC calendar
// date of since. A zero since returns everything.
func (s *Store) TotalsSince(ctx context.Context, since time.Time) ([]Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	day := ""
	if !since.IsZero() {
		day = since.UTC().Format(dayFormat)
	}

	rows, err := s.sinceStmt.QueryContext(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var row Row
		if err := rows.Scan(
			&row.Day,
			&row.Model,
			&row.Requests,
			&row.PromptTokens,
			&row.CompletionTokens,
			&row.ReasoningTokens,
			&row.TotalTokens,
			&row.Errors,
		); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return out, nil
}

// Sum collapses rows into a single grand-total entry.
func Sum(rows []Row) Entry {
	var total Entry
	for _, row := range rows {
		total.Requests += row.Requests
		total.PromptTokens += row.PromptTokens
		total.CompletionTokens += row.CompletionTokens
		total.ReasoningTokens += row.ReasoningTokens
		total.TotalTokens += row.TotalTokens
		total.Errors += row.Errors
	}
	return total
}

// Close releases the database handle. Close is idempotent.
func (s *Store) Close() error {
	var closeErr error

	s.closeOnce.Do(func() {
		if s.addStmt != nil {
			s.addStmt.Close()
		}
		if s.sinceStmt != nil {
			s.sinceStmt.Close()
		}
		closeErr = s.db.Close()
	})

	return closeErr
}
