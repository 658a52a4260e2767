package sink

// SchemaVersion is the current event log schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the event log schema.
// One row per event; columns that do not apply to an event kind are NULL.
const Schema = `
CREATE TABLE IF NOT EXISTS telemetry_events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,

    -- Identity
    event_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    timestamp TEXT NOT NULL,
    recorded_unix INTEGER NOT NULL,

    -- Request context
    client_request_id TEXT,
    remote_addr TEXT,
    method TEXT,
    path TEXT,
    model TEXT,

    -- Response outcome
    status_code INTEGER,
    duration_seconds REAL,
    streaming BOOLEAN NOT NULL DEFAULT 0,

    -- Token usage
    prompt_tokens INTEGER,
    completion_tokens INTEGER,
    reasoning_tokens INTEGER,
    total_tokens INTEGER,
    parse_error BOOLEAN NOT NULL DEFAULT 0,
    missing_usage BOOLEAN NOT NULL DEFAULT 0,

    -- Error info
    error_type TEXT,
    error_message TEXT
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_telemetry_events_kind ON telemetry_events(kind);
CREATE INDEX IF NOT EXISTS idx_telemetry_events_recorded_unix ON telemetry_events(recorded_unix);
CREATE INDEX IF NOT EXISTS idx_telemetry_events_model ON telemetry_events(model);
`

// InsertSchemaVersion inserts the schema version into the schema_version table.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the current schema version from the database.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`

const insertEventSQL = `
INSERT INTO telemetry_events (
    event_id, kind, timestamp, recorded_unix,
    client_request_id, remote_addr, method, path, model,
    status_code, duration_seconds, streaming,
    prompt_tokens, completion_tokens, reasoning_tokens, total_tokens,
    parse_error, missing_usage,
    error_type, error_message
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const selectEventSQL = `
SELECT id, event_id, kind, timestamp, recorded_unix,
    client_request_id, remote_addr, method, path, model,
    status_code, duration_seconds, streaming,
    prompt_tokens, completion_tokens, reasoning_tokens, total_tokens,
    parse_error, missing_usage,
    error_type, error_message
FROM telemetry_events
`
