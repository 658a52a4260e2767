package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfig_ValidFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  listen_address: "0.0.0.0:9090"
  read_timeout: "60s"

upstream:
  base_url: "http://127.0.0.1:4000"
  health_path: "/health/liveliness"

telemetry:
  sinks:
    sqlite:
      enabled: true
      path: "./test-telemetry.db"

aliases:
  path: "./models.yaml"
  watch: true

logging:
  level: "debug"
  format: "text"
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:9090" {
		t.Errorf("expected listen address %q, got %q", "0.0.0.0:9090", cfg.Server.ListenAddress)
	}
	if cfg.Server.ReadTimeout != 60*time.Second {
		t.Errorf("expected read timeout %v, got %v", 60*time.Second, cfg.Server.ReadTimeout)
	}
	if cfg.Upstream.HealthPath != "/health/liveliness" {
		t.Errorf("expected health path %q, got %q", "/health/liveliness", cfg.Upstream.HealthPath)
	}
	if !cfg.Telemetry.Sinks.SQLite.Enabled {
		t.Error("expected sqlite sink to be enabled")
	}
	if cfg.Telemetry.Sinks.SQLite.Path != "./test-telemetry.db" {
		t.Errorf("expected sqlite path %q, got %q", "./test-telemetry.db", cfg.Telemetry.Sinks.SQLite.Path)
	}
	if !cfg.Aliases.Watch {
		t.Error("expected aliases watch to be enabled")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected logging level %q, got %q", "debug", cfg.Logging.Level)
	}

	// Unspecified fields fall back to defaults.
	if cfg.Server.WriteTimeout != DefaultWriteTimeout {
		t.Errorf("expected default write timeout %v, got %v", DefaultWriteTimeout, cfg.Server.WriteTimeout)
	}
	if cfg.Telemetry.ToggleEnv != DefaultToggleEnv {
		t.Errorf("expected default toggle env %q, got %q", DefaultToggleEnv, cfg.Telemetry.ToggleEnv)
	}
}

func TestLoadConfig_DefaultTrueBooleans(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	t.Run("absent keeps default", func(t *testing.T) {
		configContent := `
server:
  listen_address: "127.0.0.1:8088"
`
		if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}

		cfg, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}
		if !cfg.Telemetry.Enabled {
			t.Error("expected telemetry to default to enabled")
		}
		if !cfg.Telemetry.Sinks.Logger.Enabled {
			t.Error("expected logger sink to default to enabled")
		}
		if !cfg.Metrics.Enabled {
			t.Error("expected metrics to default to enabled")
		}
	})

	t.Run("explicit false wins", func(t *testing.T) {
		configContent := `
telemetry:
  enabled: false
  sinks:
    logger:
      enabled: false

metrics:
  enabled: false
`
		if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}

		cfg, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}
		if cfg.Telemetry.Enabled {
			t.Error("expected telemetry to be disabled")
		}
		if cfg.Telemetry.Sinks.Logger.Enabled {
			t.Error("expected logger sink to be disabled")
		}
		if cfg.Metrics.Enabled {
			t.Error("expected metrics to be disabled")
		}
	})
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig("/nonexistent/config.yaml")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
	if !strings.Contains(err.Error(), "no such file or directory") {
		t.Errorf("expected file not found error, got: %v", err)
	}
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	malformedContent := `
server:
  listen_address: "0.0.0.0:8088"
  invalid yaml here: [
`

	if err := os.WriteFile(configPath, []byte(malformedContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	_, err := LoadConfig(configPath)
	if err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestLoadConfig_ValidationFailure(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	invalidContent := `
upstream:
  base_url: "ftp://not-http.example.com"

logging:
  level: "loud"
  format: "json"
`

	if err := os.WriteFile(configPath, []byte(invalidContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	_, err := LoadConfig(configPath)
	if err == nil {
		t.Fatal("expected validation error")
	}

	var validationErr ValidationError
	if !errors.As(err, &validationErr) {
		t.Errorf("expected ValidationError in error chain, got %T: %v", err, err)
	}
}

func TestLoadConfigWithEnvOverrides_BasicOverrides(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  listen_address: "127.0.0.1:8088"

upstream:
  base_url: "http://127.0.0.1:4000"

logging:
  level: "info"
  format: "json"
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	os.Setenv("CALLISTO_SERVER_LISTEN_ADDRESS", "0.0.0.0:9090")
	os.Setenv("CALLISTO_UPSTREAM_BASE_URL", "http://10.0.0.5:4000")
	os.Setenv("CALLISTO_LOGGING_LEVEL", "debug")
	defer func() {
		os.Unsetenv("CALLISTO_SERVER_LISTEN_ADDRESS")
		os.Unsetenv("CALLISTO_UPSTREAM_BASE_URL")
		os.Unsetenv("CALLISTO_LOGGING_LEVEL")
	}()

	cfg, err := LoadConfigWithEnvOverrides(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:9090" {
		t.Errorf("expected listen address %q from env, got %q", "0.0.0.0:9090", cfg.Server.ListenAddress)
	}
	if cfg.Upstream.BaseURL != "http://10.0.0.5:4000" {
		t.Errorf("expected base URL %q from env, got %q", "http://10.0.0.5:4000", cfg.Upstream.BaseURL)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected logging level %q from env, got %q", "debug", cfg.Logging.Level)
	}
}

func TestLoadConfigWithEnvOverrides_DurationParsing(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  listen_address: "127.0.0.1:8088"
  read_timeout: "30s"
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	os.Setenv("CALLISTO_SERVER_READ_TIMEOUT", "120s")
	os.Setenv("CALLISTO_SERVER_WRITE_TIMEOUT", "10m")
	defer func() {
		os.Unsetenv("CALLISTO_SERVER_READ_TIMEOUT")
		os.Unsetenv("CALLISTO_SERVER_WRITE_TIMEOUT")
	}()

	cfg, err := LoadConfigWithEnvOverrides(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.ReadTimeout != 120*time.Second {
		t.Errorf("expected read timeout %v, got %v", 120*time.Second, cfg.Server.ReadTimeout)
	}
	if cfg.Server.WriteTimeout != 10*time.Minute {
		t.Errorf("expected write timeout %v, got %v", 10*time.Minute, cfg.Server.WriteTimeout)
	}
}

func TestLoadConfigWithEnvOverrides_BooleanParsing(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
telemetry:
  sinks:
    sqlite:
      enabled: false
      path: "./telemetry.db"

retention:
  enabled: false
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	os.Setenv("CALLISTO_TELEMETRY_SQLITE_ENABLED", "true")
	os.Setenv("CALLISTO_RETENTION_ENABLED", "true")
	defer func() {
		os.Unsetenv("CALLISTO_TELEMETRY_SQLITE_ENABLED")
		os.Unsetenv("CALLISTO_RETENTION_ENABLED")
	}()

	cfg, err := LoadConfigWithEnvOverrides(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if !cfg.Telemetry.Sinks.SQLite.Enabled {
		t.Error("expected sqlite sink enabled to be true from env")
	}
	if !cfg.Retention.Enabled {
		t.Error("expected retention enabled to be true from env")
	}
}

func TestLoadConfigWithEnvOverrides_InvalidEnvValues(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  listen_address: "127.0.0.1:8088"

logging:
  level: "info"
  format: "json"
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	// An unparseable duration is ignored; an invalid logging level fails
	// the post-override validation pass.
	os.Setenv("CALLISTO_SERVER_READ_TIMEOUT", "not-a-duration")
	os.Setenv("CALLISTO_LOGGING_LEVEL", "invalid-level")
	defer func() {
		os.Unsetenv("CALLISTO_SERVER_READ_TIMEOUT")
		os.Unsetenv("CALLISTO_LOGGING_LEVEL")
	}()

	_, err := LoadConfigWithEnvOverrides(configPath)
	if err == nil {
		t.Error("expected validation error for invalid env values")
	}
}
