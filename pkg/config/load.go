package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file, applies defaults and
// validates the result. Environment variables are not consulted; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg := Preset()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and
// applies environment variable overrides. Variables follow the naming
// convention CALLISTO_SECTION_FIELD (e.g. CALLISTO_SERVER_LISTEN_ADDRESS)
// and always take precedence over file values.
//
// The loading sequence is:
//  1. Load YAML from file
//  2. Apply default values
//  3. Apply environment variable overrides
//  4. Validate the final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies CALLISTO_SECTION_FIELD environment overrides.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	if val := os.Getenv("CALLISTO_SERVER_LISTEN_ADDRESS"); val != "" {
		cfg.Server.ListenAddress = val
	}
	if val := os.Getenv("CALLISTO_SERVER_READ_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if val := os.Getenv("CALLISTO_SERVER_WRITE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}
	if val := os.Getenv("CALLISTO_SERVER_SHUTDOWN_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.ShutdownTimeout = d
		}
	}

	// Upstream overrides
	if val := os.Getenv("CALLISTO_UPSTREAM_BASE_URL"); val != "" {
		cfg.Upstream.BaseURL = val
	}
	if val := os.Getenv("CALLISTO_UPSTREAM_HEALTH_PATH"); val != "" {
		cfg.Upstream.HealthPath = val
	}

	// Telemetry overrides
	if val := os.Getenv("CALLISTO_TELEMETRY_TOGGLE_ENV"); val != "" {
		cfg.Telemetry.ToggleEnv = val
	}
	if val := os.Getenv("CALLISTO_TELEMETRY_SQLITE_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Sinks.SQLite.Enabled = b
		}
	}
	if val := os.Getenv("CALLISTO_TELEMETRY_SQLITE_PATH"); val != "" {
		cfg.Telemetry.Sinks.SQLite.Path = val
	}
	if val := os.Getenv("CALLISTO_TELEMETRY_CONSOLE_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Sinks.Console.Enabled = b
		}
	}
	if val := os.Getenv("CALLISTO_TELEMETRY_LOGGER_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Sinks.Logger.Enabled = b
		}
	}
	if val := os.Getenv("CALLISTO_TELEMETRY_LEDGER_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Sinks.Ledger.Enabled = b
		}
	}
	if val := os.Getenv("CALLISTO_TELEMETRY_LEDGER_PATH"); val != "" {
		cfg.Telemetry.Sinks.Ledger.Path = val
	}

	// Aliases overrides
	if val := os.Getenv("CALLISTO_ALIASES_PATH"); val != "" {
		cfg.Aliases.Path = val
	}
	if val := os.Getenv("CALLISTO_ALIASES_WATCH"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Aliases.Watch = b
		}
	}

	// Retention overrides
	if val := os.Getenv("CALLISTO_RETENTION_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Retention.Enabled = b
		}
	}
	if val := os.Getenv("CALLISTO_RETENTION_DAYS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Retention.RetentionDays = i
		}
	}
	if val := os.Getenv("CALLISTO_RETENTION_MAX_RECORDS"); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.Retention.MaxRecords = i
		}
	}
	if val := os.Getenv("CALLISTO_RETENTION_SCHEDULE"); val != "" {
		cfg.Retention.Schedule = val
	}

	// Logging overrides
	if val := os.Getenv("CALLISTO_LOGGING_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv("CALLISTO_LOGGING_FORMAT"); val != "" {
		cfg.Logging.Format = val
	}

	// Metrics overrides
	if val := os.Getenv("CALLISTO_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Metrics.Enabled = b
		}
	}
	if val := os.Getenv("CALLISTO_METRICS_NAMESPACE"); val != "" {
		cfg.Metrics.Namespace = val
	}

	// Launcher overrides
	if val := os.Getenv("CALLISTO_LAUNCHER_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Launcher.Enabled = b
		}
	}
	if val := os.Getenv("CALLISTO_LAUNCHER_COMMAND"); val != "" {
		cfg.Launcher.Command = val
	}
}
