package config

import "time"

// Config is the root configuration for the Callisto sidecar.
type Config struct {
	// Server configures the HTTP listener that fronts the upstream.
	Server ServerConfig `yaml:"server"`

	// Upstream configures the observed completions server.
	Upstream UpstreamConfig `yaml:"upstream"`

	// Telemetry configures the event pipeline and its sinks.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Aliases configures the model alias mapping.
	Aliases AliasesConfig `yaml:"aliases"`

	// Retention configures pruning of the persistent event sink.
	Retention RetentionConfig `yaml:"retention"`

	// Logging configures process-wide structured logging.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics configures the Prometheus exposition endpoint.
	Metrics MetricsConfig `yaml:"metrics"`

	// Launcher configures optional supervision of the upstream process.
	Launcher LauncherConfig `yaml:"launcher"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	// ListenAddress is the host:port the sidecar listens on.
	// Default: "127.0.0.1:8088"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading an entire request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out response
	// writes. Streaming completions can run long; keep this generous.
	// Default: 5m
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits request header size.
	// Default: 1MB
	MaxHeaderBytes int `yaml:"max_header_bytes"`
}

// UpstreamConfig describes the observed completions server.
type UpstreamConfig struct {
	// BaseURL is the upstream origin all traffic is forwarded to.
	// Default: "http://127.0.0.1:4000"
	BaseURL string `yaml:"base_url"`

	// HealthPath is the upstream path probed by /readyz and the launcher.
	// Default: "/health"
	HealthPath string `yaml:"health_path"`

	// ProbeTimeout bounds a single readiness probe request.
	// Default: 5s
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
}

// TelemetryConfig controls the event pipeline.
type TelemetryConfig struct {
	// Enabled turns observation on. The runtime toggle (ToggleEnv) can
	// still disable it per process without a config change.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// ToggleEnv names the environment variable consulted per request to
	// gate observation. Unset or unparsable values leave telemetry
	// enabled (observation fails open).
	// Default: "CALLISTO_TELEMETRY_ENABLED"
	ToggleEnv string `yaml:"toggle_env"`

	// Sinks configures the individual event consumers.
	Sinks SinksConfig `yaml:"sinks"`
}

// SinksConfig enables and configures each sink. Sinks are independent;
// any combination may be enabled.
type SinksConfig struct {
	// Console prints events to stdout. Intended for development.
	Console ConsoleSinkConfig `yaml:"console"`

	// Logger emits one structured log line per completed response.
	Logger LoggerSinkConfig `yaml:"logger"`

	// SQLite persists every event to a local database.
	SQLite SQLiteSinkConfig `yaml:"sqlite"`

	// Prometheus records request/usage metrics for the /metrics endpoint.
	Prometheus PrometheusSinkConfig `yaml:"prometheus"`

	// Ledger accumulates per-model daily usage totals.
	Ledger LedgerSinkConfig `yaml:"ledger"`
}

// ConsoleSinkConfig configures the console sink.
type ConsoleSinkConfig struct {
	// Enabled turns the sink on. Default: false
	Enabled bool `yaml:"enabled"`
}

// LoggerSinkConfig configures the structured log sink.
type LoggerSinkConfig struct {
	// Enabled turns the sink on. Default: true
	Enabled bool `yaml:"enabled"`
}

// SQLiteSinkConfig configures the persistent event sink.
type SQLiteSinkConfig struct {
	// Enabled turns the sink on. Default: false
	Enabled bool `yaml:"enabled"`

	// Path is the database file location.
	// Default: "data/telemetry.db"
	Path string `yaml:"path"`

	// BufferSize is the async write queue length. Events beyond it are
	// dropped with a warning rather than blocking requests.
	// Default: 1000
	BufferSize int `yaml:"buffer_size"`

	// BusyTimeout is how long SQLite waits for locks.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// PrometheusSinkConfig configures the metrics sink.
type PrometheusSinkConfig struct {
	// Enabled turns the sink on. Default: true
	Enabled bool `yaml:"enabled"`
}

// LedgerSinkConfig configures the usage ledger sink.
type LedgerSinkConfig struct {
	// Enabled turns the sink on. Default: false
	Enabled bool `yaml:"enabled"`

	// Path is the ledger database file location.
	// Default: "data/ledger.db"
	Path string `yaml:"path"`

	// BusyTimeout is how long SQLite waits for locks.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// AliasesConfig configures the model alias mapping.
type AliasesConfig struct {
	// Path is the models file location. Empty disables alias resolution:
	// events then carry the request's model name unchanged.
	Path string `yaml:"path"`

	// Watch reloads the models file on change.
	// Default: false
	Watch bool `yaml:"watch"`

	// DebounceInterval coalesces rapid file change events.
	// Default: 100ms
	DebounceInterval time.Duration `yaml:"debounce_interval"`
}

// RetentionConfig controls pruning of the SQLite event sink.
type RetentionConfig struct {
	// Enabled turns scheduled pruning on. Only meaningful when the
	// SQLite sink is enabled. Default: false
	Enabled bool `yaml:"enabled"`

	// RetentionDays is how many days of events to keep. 0 keeps forever.
	// Default: 30
	RetentionDays int `yaml:"retention_days"`

	// MaxRecords caps the number of stored events. 0 means unlimited.
	// Default: 0
	MaxRecords int64 `yaml:"max_records"`

	// Schedule is a cron expression for pruning runs.
	// Default: "0 3 * * *" (daily at 3 AM)
	Schedule string `yaml:"schedule"`
}

// LoggingConfig controls process-wide structured logging.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	// Default: "info"
	Level string `yaml:"level"`

	// Format is one of json, text.
	// Default: "json"
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus exposition endpoint.
type MetricsConfig struct {
	// Enabled mounts the exposition handler. Default: true
	Enabled bool `yaml:"enabled"`

	// Namespace is the metric name prefix.
	// Default: "mercator"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric name subsystem.
	// Default: "callisto"
	Subsystem string `yaml:"subsystem"`

	// Path is where the exposition handler is mounted.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// RequestDurationBuckets are histogram buckets in seconds.
	// Default: buckets tuned for LLM latencies (100ms - 5m)
	RequestDurationBuckets []float64 `yaml:"request_duration_buckets"`
}

// LauncherConfig controls optional supervision of the upstream process.
type LauncherConfig struct {
	// Enabled makes `callisto run` start and supervise the upstream.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Command is the upstream executable.
	Command string `yaml:"command"`

	// Args are the upstream's command-line arguments.
	Args []string `yaml:"args"`

	// HealthURL is polled until the upstream is ready. Empty derives
	// upstream.base_url + upstream.health_path.
	HealthURL string `yaml:"health_url"`

	// HealthInterval is the poll interval while waiting for readiness.
	// Default: 1s
	HealthInterval time.Duration `yaml:"health_interval"`

	// StartupTimeout bounds the wait for upstream readiness.
	// Default: 60s
	StartupTimeout time.Duration `yaml:"startup_timeout"`

	// StopGrace is how long the upstream gets to exit after SIGTERM
	// before being killed.
	// Default: 10s
	StopGrace time.Duration `yaml:"stop_grace"`
}
