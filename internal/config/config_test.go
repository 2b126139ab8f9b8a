package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"sortbook/internal/config"
)

func TestLoadDefaultConfigUsesEnvWorkflowURLAndExpandsPaths(t *testing.T) {
	t.Setenv("SORTBOOK_WORKFLOW_URL", "https://workflows.example/webhook/sortbook")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "sortbook")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.EPUBDir != filepath.Join(tempHome, "books", "incoming") {
		t.Fatalf("unexpected epub dir: %q", cfg.Paths.EPUBDir)
	}
	if cfg.Workflow.URL != "https://workflows.example/webhook/sortbook" {
		t.Fatalf("expected workflow URL from env, got %q", cfg.Workflow.URL)
	}
	if !cfg.Workflow.VerifyTLS {
		t.Fatal("expected TLS verification on by default")
	}
	if cfg.Workflow.Source != "sortbook" {
		t.Fatalf("unexpected workflow source: %q", cfg.Workflow.Source)
	}
	if cfg.Extraction.TextPreviewChars != 2000 {
		t.Fatalf("unexpected preview budget: %d", cfg.Extraction.TextPreviewChars)
	}
	if cfg.OCR.Enabled {
		t.Fatal("expected OCR disabled by default")
	}
	if cfg.Batch.Workers != 2 {
		t.Fatalf("unexpected worker default: %d", cfg.Batch.Workers)
	}
	if cfg.DatabasePath() != filepath.Join(wantData, "catalog.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "sortbook.toml")

	doc := map[string]any{
		"paths": map[string]any{
			"epub_dir": filepath.Join(tempDir, "books"),
			"data_dir": filepath.Join(tempDir, "data"),
		},
		"workflow": map[string]any{
			"url":             "https://workflows.example/webhook/prod",
			"test_url":        "https://workflows.example/webhook-test/prod",
			"timeout_seconds": 5,
			"verify_tls":      false,
		},
		"logging": map[string]any{
			"format": "json",
		},
	}
	encoded, err := toml.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, encoded, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected config at %q, got %q exists=%v", configPath, resolved, exists)
	}
	if cfg.Workflow.TimeoutSeconds != 5 {
		t.Fatalf("unexpected timeout: %d", cfg.Workflow.TimeoutSeconds)
	}
	if cfg.Workflow.VerifyTLS {
		t.Fatal("expected TLS verification off")
	}
	if cfg.WorkflowEndpoint(true) != "https://workflows.example/webhook-test/prod" {
		t.Fatalf("unexpected test endpoint: %q", cfg.WorkflowEndpoint(true))
	}
	if cfg.WorkflowEndpoint(false) != "https://workflows.example/webhook/prod" {
		t.Fatalf("unexpected prod endpoint: %q", cfg.WorkflowEndpoint(false))
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("unexpected log format: %q", cfg.Logging.Format)
	}
}

func TestValidateRejectsMissingWorkflowURL(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.EPUBDir = t.TempDir()
	cfg.Workflow.URL = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "workflow.url") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsRelativeWorkflowURL(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.EPUBDir = t.TempDir()
	cfg.Workflow.URL = "webhook/sortbook"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for relative URL")
	}
}

func TestSampleConfigParses(t *testing.T) {
	cfg := config.Default()
	if err := toml.Unmarshal([]byte(config.SampleConfig()), &cfg); err != nil {
		t.Fatalf("sample config does not parse: %v", err)
	}
}
