//go:build integration

package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mercator-hq/callisto/internal/upstream"
)

// TestSidecarStartStop starts the built binary against a mock upstream,
// proxies one request through it, and shuts it down gracefully.
func TestSidecarStartStop(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	tmpDir := t.TempDir()

	mock := upstream.NewMockServer()
	defer mock.Close()
	mock.SetResponse("/v1/chat/completions", upstream.MockResponse{
		StatusCode: http.StatusOK,
		Body:       upstream.CompletionResponse("openai/gpt-oss-120b", 100, 50),
	})

	configFile := filepath.Join(tmpDir, "config.yaml")
	createTestConfig(t, configFile, fmt.Sprintf(`
server:
  listen_address: "127.0.0.1:18090"

upstream:
  base_url: "%s"

telemetry:
  sinks:
    logger:
      enabled: false

logging:
  level: "info"
  format: "json"

metrics:
  enabled: false
`, mock.URL()))

	binaryPath := buildCallistoBinary(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, binaryPath, "run", "--config", configFile)
	cmd.Dir = tmpDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		t.Fatalf("failed to start sidecar: %v", err)
	}
	defer func() {
		if cmd.Process != nil {
			cmd.Process.Kill()
		}
	}()

	if !waitForHealthy("http://127.0.0.1:18090/healthz", 10*time.Second) {
		t.Fatalf("sidecar failed to start\nStdout: %s\nStderr: %s", stdout.String(), stderr.String())
	}

	// Proxy a completion through the running binary
	resp, err := http.Post("http://127.0.0.1:18090/v1/chat/completions",
		"application/json", strings.NewReader(`{"model":"gpt-local"}`))
	if err != nil {
		t.Fatalf("completion request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("completion status = %d, want 200", resp.StatusCode)
	}
	if mock.RequestCount() == 0 {
		t.Error("mock upstream saw no requests")
	}

	// Graceful shutdown on SIGINT
	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		t.Errorf("failed to send SIGINT: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Logf("shutdown output - Stdout: %s\nStderr: %s", stdout.String(), stderr.String())
			t.Errorf("expected clean exit after SIGINT, got: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Error("sidecar did not shut down within 5 seconds")
	}
}

// TestUsagePipeline drives a request through the binary with the ledger
// sink enabled, then reads the totals back with the usage command.
func TestUsagePipeline(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	tmpDir := t.TempDir()
	ledgerPath := filepath.Join(tmpDir, "ledger.db")

	mock := upstream.NewMockServer()
	defer mock.Close()
	mock.SetResponse("/v1/chat/completions", upstream.MockResponse{
		StatusCode: http.StatusOK,
		Body:       upstream.CompletionResponse("openai/gpt-oss-120b", 100, 50),
	})

	modelsFile := filepath.Join(tmpDir, "models.yaml")
	createTestConfig(t, modelsFile, `
models:
  - alias: gpt-local
    provider: openai
    model: gpt-oss-120b
`)

	configFile := filepath.Join(tmpDir, "config.yaml")
	createTestConfig(t, configFile, fmt.Sprintf(`
server:
  listen_address: "127.0.0.1:18091"

upstream:
  base_url: "%s"

telemetry:
  sinks:
    logger:
      enabled: false
    prometheus:
      enabled: false
    ledger:
      enabled: true
      path: "%s"

aliases:
  path: "%s"

logging:
  level: "warn"
  format: "json"

metrics:
  enabled: false
`, mock.URL(), ledgerPath, modelsFile))

	binaryPath := buildCallistoBinary(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := exec.CommandContext(ctx, binaryPath, "run", "--config", configFile)
	cmd.Dir = tmpDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		t.Fatalf("failed to start sidecar: %v", err)
	}
	defer cmd.Process.Kill()

	if !waitForHealthy("http://127.0.0.1:18091/healthz", 10*time.Second) {
		t.Fatalf("sidecar failed to start\nStdout: %s\nStderr: %s", stdout.String(), stderr.String())
	}

	t.Log("Sending completion to populate the ledger...")
	resp, err := http.Post("http://127.0.0.1:18091/v1/chat/completions",
		"application/json", strings.NewReader(`{"model":"gpt-local"}`))
	if err != nil {
		t.Fatalf("completion request failed: %v", err)
	}
	resp.Body.Close()

	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		t.Fatalf("failed to stop sidecar: %v", err)
	}
	cmd.Wait()

	t.Log("Querying usage totals...")
	usageCmd := exec.Command(binaryPath, "usage",
		"--config", configFile,
		"--format", "json")

	output, err := usageCmd.CombinedOutput()
	if err != nil {
		t.Fatalf("usage command failed: %v\nOutput: %s", err, output)
	}

	var report struct {
		Rows []struct {
			Day         string `json:"day"`
			Model       string `json:"model"`
			Requests    int64  `json:"requests"`
			TotalTokens int64  `json:"total_tokens"`
		} `json:"rows"`
		Totals struct {
			Requests    int64 `json:"requests"`
			TotalTokens int64 `json:"total_tokens"`
		} `json:"totals"`
	}
	if err := json.Unmarshal(output, &report); err != nil {
		t.Fatalf("failed to parse usage JSON: %v\nOutput: %s", err, output)
	}

	if len(report.Rows) != 1 {
		t.Fatalf("got %d ledger rows, want 1\nOutput: %s", len(report.Rows), output)
	}
	if report.Rows[0].Model != "openai/gpt-oss-120b" {
		t.Errorf("row model = %q, want openai/gpt-oss-120b", report.Rows[0].Model)
	}
	if report.Totals.Requests != 1 {
		t.Errorf("total requests = %d, want 1", report.Totals.Requests)
	}
	if report.Totals.TotalTokens != 150 {
		t.Errorf("total tokens = %d, want 150", report.Totals.TotalTokens)
	}

	// A --since date in the future must exclude everything.
	future := time.Now().UTC().AddDate(0, 0, 2).Format("2006-01-02")
	sinceCmd := exec.Command(binaryPath, "usage",
		"--config", configFile,
		"--since", future,
		"--format", "json")

	output, err = sinceCmd.CombinedOutput()
	if err != nil {
		t.Fatalf("usage --since failed: %v\nOutput: %s", err, output)
	}
	if err := json.Unmarshal(output, &report); err != nil {
		t.Fatalf("failed to parse usage JSON: %v\nOutput: %s", err, output)
	}
	if len(report.Rows) != 0 {
		t.Errorf("got %d rows for future --since, want 0", len(report.Rows))
	}
}

// TestValidateCommand checks config validation through the binary.
func TestValidateCommand(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	tmpDir := t.TempDir()
	binaryPath := buildCallistoBinary(t)

	t.Run("valid config", func(t *testing.T) {
		configFile := filepath.Join(tmpDir, "valid.yaml")
		createTestConfig(t, configFile, `
server:
  listen_address: "127.0.0.1:18092"

upstream:
  base_url: "http://127.0.0.1:4000"
`)

		cmd := exec.Command(binaryPath, "validate", "--config", configFile)
		output, err := cmd.CombinedOutput()
		if err != nil {
			t.Errorf("validate should succeed: %v\nOutput: %s", err, output)
		}
		if !bytes.Contains(output, []byte("Configuration valid")) {
			t.Errorf("expected 'Configuration valid' in output, got: %s", output)
		}
	})

	t.Run("invalid upstream scheme", func(t *testing.T) {
		configFile := filepath.Join(tmpDir, "invalid.yaml")
		createTestConfig(t, configFile, `
upstream:
  base_url: "ftp://example.com"
`)

		cmd := exec.Command(binaryPath, "validate", "--config", configFile)
		output, err := cmd.CombinedOutput()
		if err == nil {
			t.Errorf("validate should fail for ftp scheme\nOutput: %s", output)
		}
	})

	t.Run("missing config file", func(t *testing.T) {
		cmd := exec.Command(binaryPath, "validate", "--config", filepath.Join(tmpDir, "nope.yaml"))
		output, err := cmd.CombinedOutput()
		if err == nil {
			t.Errorf("validate should fail for missing file\nOutput: %s", output)
		}
	})
}

// TestDryRunValidation checks run --dry-run exits without serving.
func TestDryRunValidation(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	tmpDir := t.TempDir()
	binaryPath := buildCallistoBinary(t)

	t.Run("valid config", func(t *testing.T) {
		configFile := filepath.Join(tmpDir, "config.yaml")
		createTestConfig(t, configFile, `
server:
  listen_address: "127.0.0.1:18093"

upstream:
  base_url: "http://127.0.0.1:4000"
`)

		cmd := exec.Command(binaryPath, "run", "--config", configFile, "--dry-run")
		cmd.Dir = tmpDir

		output, err := cmd.CombinedOutput()
		if err != nil {
			t.Errorf("dry-run should succeed with valid config: %v\nOutput: %s", err, output)
		}
		if !bytes.Contains(output, []byte("Configuration valid")) {
			t.Errorf("expected 'Configuration valid' in output, got: %s", output)
		}
	})

	t.Run("invalid config", func(t *testing.T) {
		configFile := filepath.Join(tmpDir, "invalid.yaml")
		createTestConfig(t, configFile, `
logging:
  level: "loud"
`)

		cmd := exec.Command(binaryPath, "run", "--config", configFile, "--dry-run")
		output, err := cmd.CombinedOutput()
		if err == nil {
			t.Errorf("dry-run should fail with invalid config\nOutput: %s", output)
		}
	})
}

// TestCommandVersionOutput tests the version command.
func TestCommandVersionOutput(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	binaryPath := buildCallistoBinary(t)

	cmd := exec.Command(binaryPath, "version")
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("version command failed: %v\nOutput: %s", err, output)
	}

	if !bytes.Contains(output, []byte("Callisto")) {
		t.Errorf("version output should contain 'Callisto', got: %s", output)
	}
}

// Helper functions

// buildCallistoBinary builds the callisto binary for testing.
func buildCallistoBinary(t *testing.T) string {
	t.Helper()

	binaryPath := "../bin/callisto"
	if _, err := os.Stat(binaryPath); err == nil {
		return binaryPath
	}

	t.Log("Building callisto binary...")
	cmd := exec.Command("go", "build", "-o", binaryPath, "../cmd/callisto")
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("failed to build callisto: %v\nOutput: %s", err, output)
	}

	return binaryPath
}

// waitForHealthy waits for a health endpoint to return 200.
func waitForHealthy(url string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: 1 * time.Second}

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil && resp.StatusCode == http.StatusOK {
			resp.Body.Close()
			return true
		}
		if resp != nil {
			resp.Body.Close()
		}
		time.Sleep(100 * time.Millisecond)
	}
	return false
}

// createTestConfig writes a YAML fixture.
func createTestConfig(t *testing.T, path, content string) {
	t.Helper()

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create config file: %v", err)
	}
}
