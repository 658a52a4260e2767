package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8088"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 5 * time.Minute
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB

	// Upstream defaults
	DefaultUpstreamBaseURL    = "http://127.0.0.1:4000"
	DefaultUpstreamHealthPath = "/health"
	DefaultProbeTimeout       = 5 * time.Second

	// Telemetry defaults
	DefaultTelemetryEnabled  = true
	DefaultToggleEnv         = "CALLISTO_TELEMETRY_ENABLED"
	DefaultLoggerSinkEnabled = true
	DefaultSQLiteSinkPath    = "data/telemetry.db"
	DefaultSinkBufferSize    = 1000
	DefaultSinkBusyTimeout   = 5 * time.Second
	DefaultPromSinkEnabled   = true
	DefaultLedgerPath        = "data/ledger.db"

	// Aliases defaults
	DefaultAliasDebounce = 100 * time.Millisecond

	// Retention defaults
	DefaultRetentionDays     = 30
	DefaultRetentionSchedule = "0 3 * * *"
	DefaultRetentionMax      = int64(0)

	// Logging defaults
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	// Metrics defaults
	DefaultMetricsEnabled   = true
	DefaultMetricsNamespace = "mercator"
	DefaultMetricsSubsystem = "callisto"
	DefaultMetricsPath      = "/metrics"

	// Launcher defaults
	DefaultLauncherHealthInterval = time.Second
	DefaultLauncherStartupTimeout = 60 * time.Second
	DefaultLauncherStopGrace      = 10 * time.Second
)

// DefaultRequestDurationBuckets are histogram buckets tuned for LLM
// request latencies (sub-second cache hits through multi-minute streams).
func DefaultRequestDurationBuckets() []float64 {
	return []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0, 120.0, 300.0}
}

// DefaultConfig returns a configuration populated with all defaults.
func DefaultConfig() *Config {
	cfg := Preset()
	ApplyDefaults(cfg)
	return cfg
}

// Preset returns a Config carrying the defaults that are indistinguishable
// from the zero value after unmarshaling: booleans that default to true.
// The loader unmarshals into this value so only an explicit `false` in the
// file disables them.
func Preset() *Config {
	cfg := &Config{}
	cfg.Telemetry.Enabled = DefaultTelemetryEnabled
	cfg.Telemetry.Sinks.Logger.Enabled = DefaultLoggerSinkEnabled
	cfg.Telemetry.Sinks.Prometheus.Enabled = DefaultPromSinkEnabled
	cfg.Metrics.Enabled = DefaultMetricsEnabled
	return cfg
}

// ApplyDefaults fills zero-valued fields with their defaults. Booleans
// whose default is true are handled by the loader before unmarshaling, so
// only explicit `false` in the file disables them.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}

	if cfg.Upstream.BaseURL == "" {
		cfg.Upstream.BaseURL = DefaultUpstreamBaseURL
	}
	if cfg.Upstream.HealthPath == "" {
		cfg.Upstream.HealthPath = DefaultUpstreamHealthPath
	}
	if cfg.Upstream.ProbeTimeout == 0 {
		cfg.Upstream.ProbeTimeout = DefaultProbeTimeout
	}

	if cfg.Telemetry.ToggleEnv == "" {
		cfg.Telemetry.ToggleEnv = DefaultToggleEnv
	}
	if cfg.Telemetry.Sinks.SQLite.Path == "" {
		cfg.Telemetry.Sinks.SQLite.Path = DefaultSQLiteSinkPath
	}
	if cfg.Telemetry.Sinks.SQLite.BufferSize == 0 {
		cfg.Telemetry.Sinks.SQLite.BufferSize = DefaultSinkBufferSize
	}
	if cfg.Telemetry.Sinks.SQLite.BusyTimeout == 0 {
		cfg.Telemetry.Sinks.SQLite.BusyTimeout = DefaultSinkBusyTimeout
	}
	if cfg.Telemetry.Sinks.Ledger.Path == "" {
		cfg.Telemetry.Sinks.Ledger.Path = DefaultLedgerPath
	}
	if cfg.Telemetry.Sinks.Ledger.BusyTimeout == 0 {
		cfg.Telemetry.Sinks.Ledger.BusyTimeout = DefaultSinkBusyTimeout
	}

	if cfg.Aliases.DebounceInterval == 0 {
		cfg.Aliases.DebounceInterval = DefaultAliasDebounce
	}

	if cfg.Retention.RetentionDays == 0 {
		cfg.Retention.RetentionDays = DefaultRetentionDays
	}
	if cfg.Retention.Schedule == "" {
		cfg.Retention.Schedule = DefaultRetentionSchedule
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLogFormat
	}

	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Subsystem == "" {
		cfg.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
	if len(cfg.Metrics.RequestDurationBuckets) == 0 {
		cfg.Metrics.RequestDurationBuckets = DefaultRequestDurationBuckets()
	}

	if cfg.Launcher.HealthInterval == 0 {
		cfg.Launcher.HealthInterval = DefaultLauncherHealthInterval
	}
	if cfg.Launcher.StartupTimeout == 0 {
		cfg.Launcher.StartupTimeout = DefaultLauncherStartupTimeout
	}
	if cfg.Launcher.StopGrace == 0 {
		cfg.Launcher.StopGrace = DefaultLauncherStopGrace
	}
}
