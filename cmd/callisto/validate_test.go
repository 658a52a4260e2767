package main

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestRunValidateValidConfig(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "validate-test-*")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	configPath := filepath.Join(tmpDir, "config.yaml")
	configContent := `server:
  listen_address: "127.0.0.1:18095"
upstream:
  base_url: "http://127.0.0.1:9000"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatal(err)
	}

	// Point the command at the temp config
	origCfgFile := cfgFile
	defer func() { cfgFile = origCfgFile }()
	cfgFile = configPath

	if err := runValidate(nil, []string{}); err != nil {
		t.Errorf("runValidate() with valid config returned error: %v", err)
	}
}

func TestRunValidateInvalidUpstream(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "validate-test-*")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	configPath := filepath.Join(tmpDir, "config.yaml")
	configContent := `upstream:
  base_url: "ftp://example.com"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatal(err)
	}

	origCfgFile := cfgFile
	defer func() { cfgFile = origCfgFile }()
	cfgFile = configPath

	// Run validate command - should return error for non-http scheme
	if err := runValidate(nil, []string{}); err == nil {
		t.Error("runValidate() with ftp upstream should return error")
	}
}

func TestRunValidateMissingConfigFile(t *testing.T) {
	origCfgFile := cfgFile
	defer func() { cfgFile = origCfgFile }()
	cfgFile = filepath.Join(os.TempDir(), "callisto-validate-nonexistent.yaml")

	// Only the default config path falls back to built-in defaults
	if err := runValidate(nil, []string{}); err == nil {
		t.Error("runValidate() with missing explicit config should return error")
	}
}

func TestRunValidateModelsFile(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "validate-test-*")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	modelsPath := filepath.Join(tmpDir, "models.yaml")
	modelsContent := `models:
  - alias: gpt-local
    provider: openai
    model: gpt-oss-120b
`
	if err := os.WriteFile(modelsPath, []byte(modelsContent), 0644); err != nil {
		t.Fatal(err)
	}

	configPath := filepath.Join(tmpDir, "config.yaml")
	configContent := fmt.Sprintf(`upstream:
  base_url: "http://127.0.0.1:9000"
aliases:
  path: %q
`, modelsPath)
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatal(err)
	}

	origCfgFile := cfgFile
	defer func() { cfgFile = origCfgFile }()
	cfgFile = configPath

	if err := runValidate(nil, []string{}); err != nil {
		t.Errorf("runValidate() with valid models file returned error: %v", err)
	}
}

func TestRunValidateBrokenModelsFile(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "validate-test-*")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	// Empty alias fails models file validation
	modelsPath := filepath.Join(tmpDir, "models.yaml")
	modelsContent := `models:
  - alias: ""
    provider: openai
    model: gpt-oss-120b
`
	if err := os.WriteFile(modelsPath, []byte(modelsContent), 0644); err != nil {
		t.Fatal(err)
	}

	configPath := filepath.Join(tmpDir, "config.yaml")
	configContent := fmt.Sprintf(`upstream:
  base_url: "http://127.0.0.1:9000"
aliases:
  path: %q
`, modelsPath)
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatal(err)
	}

	origCfgFile := cfgFile
	defer func() { cfgFile = origCfgFile }()
	cfgFile = configPath

	if err := runValidate(nil, []string{}); err == nil {
		t.Error("runValidate() with broken models file should return error")
	}
}

func TestEnabledWord(t *testing.T) {
	if got := enabledWord(true); got != "enabled" {
		t.Errorf("enabledWord(true) = %q, want %q", got, "enabled")
	}
	if got := enabledWord(false); got != "disabled" {
		t.Errorf("enabledWord(false) = %q, want %q", got, "disabled")
	}
}
