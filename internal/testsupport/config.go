package testsupport

import (
	"path/filepath"
	"testing"

	"sortbook/internal/config"
)

// ConfigOption allows callers to customize the generated test
// configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per
// test. It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.EPUBDir = filepath.Join(base, "incoming")
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.ResumePath = filepath.Join(base, "data", "resume.json")
	cfg.Workflow.URL = "http://127.0.0.1:1/webhook/sortbook"
	cfg.Workflow.RetryAttempts = 1
	cfg.OCR.Enabled = false
	cfg.Batch.Workers = 1

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithWorkflowURL points the config at a test server.
func WithWorkflowURL(url string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Workflow.URL = url
	}
}

// WithWorkers sets the batch worker count.
func WithWorkers(workers int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Batch.Workers = workers
	}
}
