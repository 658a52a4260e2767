package config

import (
	"fmt"
	"net/url"
	"strings"
)

// FieldError is a validation error for one configuration field.
type FieldError struct {
	// Field is the dotted path to the field (e.g. "server.listen_address").
	Field string

	// Message is a human-readable description of the problem.
	Message string
}

// Error returns the formatted field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError aggregates every validation problem found in a
// configuration so a broken deployment reports all mistakes at once.
type ValidationError struct {
	// Errors contains all field errors found.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate checks the entire configuration and returns a ValidationError
// when any rule fails, nil otherwise.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateUpstream(&cfg.Upstream)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)
	errs = append(errs, validateAliases(&cfg.Aliases)...)
	errs = append(errs, validateRetention(&cfg.Retention)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)
	errs = append(errs, validateMetrics(&cfg.Metrics)...)
	errs = append(errs, validateLauncher(&cfg.Launcher)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError
	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{"server.listen_address", "must not be empty"})
	}
	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{"server.read_timeout", "must not be negative"})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{"server.write_timeout", "must not be negative"})
	}
	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{"server.shutdown_timeout", "must not be negative"})
	}
	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{"server.max_header_bytes", "must not be negative"})
	}
	return errs
}

func validateUpstream(cfg *UpstreamConfig) []FieldError {
	var errs []FieldError
	if cfg.BaseURL == "" {
		errs = append(errs, FieldError{"upstream.base_url", "must not be empty"})
		return errs
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		errs = append(errs, FieldError{"upstream.base_url", fmt.Sprintf("invalid URL: %v", err)})
		return errs
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		errs = append(errs, FieldError{"upstream.base_url", fmt.Sprintf("scheme must be http or https, got %q", u.Scheme)})
	}
	if u.Host == "" {
		errs = append(errs, FieldError{"upstream.base_url", "must include a host"})
	}
	if cfg.HealthPath != "" && !strings.HasPrefix(cfg.HealthPath, "/") {
		errs = append(errs, FieldError{"upstream.health_path", "must start with /"})
	}
	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError
	if cfg.Sinks.SQLite.Enabled {
		if cfg.Sinks.SQLite.Path == "" {
			errs = append(errs, FieldError{"telemetry.sinks.sqlite.path", "must not be empty when the sink is enabled"})
		}
		if cfg.Sinks.SQLite.BufferSize <= 0 {
			errs = append(errs, FieldError{"telemetry.sinks.sqlite.buffer_size", "must be positive"})
		}
	}
	if cfg.Sinks.Ledger.Enabled && cfg.Sinks.Ledger.Path == "" {
		errs = append(errs, FieldError{"telemetry.sinks.ledger.path", "must not be empty when the sink is enabled"})
	}
	return errs
}

func validateAliases(cfg *AliasesConfig) []FieldError {
	var errs []FieldError
	if cfg.Watch && cfg.Path == "" {
		errs = append(errs, FieldError{"aliases.watch", "requires aliases.path to be set"})
	}
	if cfg.DebounceInterval < 0 {
		errs = append(errs, FieldError{"aliases.debounce_interval", "must not be negative"})
	}
	return errs
}

func validateRetention(cfg *RetentionConfig) []FieldError {
	var errs []FieldError
	if cfg.RetentionDays < 0 {
		errs = append(errs, FieldError{"retention.retention_days", "must not be negative"})
	}
	if cfg.MaxRecords < 0 {
		errs = append(errs, FieldError{"retention.max_records", "must not be negative"})
	}
	if cfg.Enabled && cfg.Schedule == "" {
		errs = append(errs, FieldError{"retention.schedule", "must not be empty when retention is enabled"})
	}
	return errs
}

func validateLogging(cfg *LoggingConfig) []FieldError {
	var errs []FieldError
	switch cfg.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{"logging.level", fmt.Sprintf("must be one of debug, info, warn, error; got %q", cfg.Level)})
	}
	switch cfg.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{"logging.format", fmt.Sprintf("must be one of json, text; got %q", cfg.Format)})
	}
	return errs
}

func validateMetrics(cfg *MetricsConfig) []FieldError {
	var errs []FieldError
	if cfg.Enabled && !strings.HasPrefix(cfg.Path, "/") {
		errs = append(errs, FieldError{"metrics.path", "must start with /"})
	}
	for i, b := range cfg.RequestDurationBuckets {
		if b <= 0 {
			errs = append(errs, FieldError{"metrics.request_duration_buckets", fmt.Sprintf("bucket %d must be positive", i)})
			break
		}
	}
	return errs
}

func validateLauncher(cfg *LauncherConfig) []FieldError {
	var errs []FieldError
	if !cfg.Enabled {
		return errs
	}
	if cfg.Command == "" {
		errs = append(errs, FieldError{"launcher.command", "must not be empty when the launcher is enabled"})
	}
	if cfg.HealthURL != "" {
		if _, err := url.Parse(cfg.HealthURL); err != nil {
			errs = append(errs, FieldError{"launcher.health_url", fmt.Sprintf("invalid URL: %v", err)})
		}
	}
	if cfg.StartupTimeout < 0 {
		errs = append(errs, FieldError{"launcher.startup_timeout", "must not be negative"})
	}
	return errs
}
