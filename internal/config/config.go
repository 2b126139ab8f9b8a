package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	EPUBDir    string `toml:"epub_dir"`
	DataDir    string `toml:"data_dir"`
	LogDir     string `toml:"log_dir"`
	ResumePath string `toml:"resume_path"`
}

// Workflow contains configuration for the external enrichment workflow.
type Workflow struct {
	URL            string `toml:"url"`
	TestURL        string `toml:"test_url"`
	Source         string `toml:"source"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	VerifyTLS      bool   `toml:"verify_tls"`
	RetryAttempts  int    `toml:"retry_attempts"`
}

// Extraction contains knobs for local signal extraction.
type Extraction struct {
	TextPreviewChars int `toml:"text_preview_chars"`
	MinCoverEdge     int `toml:"min_cover_edge"`
}

// OCR contains configuration for cover-image text recognition.
type OCR struct {
	Enabled   bool     `toml:"enabled"`
	Binary    string   `toml:"binary"`
	Languages []string `toml:"languages"`
	UseGPU    bool     `toml:"use_gpu"`
	MaxChars  int      `toml:"max_chars"`
}

// Batch contains configuration for the batch driver.
type Batch struct {
	Workers int `toml:"workers"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for sortbook.
//
// Configuration sections by subsystem:
//   - Paths: source directory, data directory, logs, resume store
//   - Workflow: enrichment workflow endpoints and transport policy
//   - Extraction: text preview budget and cover size threshold
//   - OCR: tesseract binary, languages, output budget
//   - Batch: worker pool size
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Workflow   Workflow   `toml:"workflow"`
	Extraction Extraction `toml:"extraction"`
	OCR        OCR        `toml:"ocr"`
	Batch      Batch      `toml:"batch"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/sortbook/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. Environment variables
// (optionally sourced from a .env file in the working directory) override
// file values for endpoint and path settings.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// applyEnvOverrides layers environment variables over file values. A .env
// file in the working directory is loaded first when present; variables
// already set in the environment win over .env entries.
func (c *Config) applyEnvOverrides() {
	_ = godotenv.Load()

	overrides := []struct {
		key    string
		target *string
	}{
		{"SORTBOOK_EPUB_DIR", &c.Paths.EPUBDir},
		{"SORTBOOK_DATA_DIR", &c.Paths.DataDir},
		{"SORTBOOK_WORKFLOW_URL", &c.Workflow.URL},
		{"SORTBOOK_WORKFLOW_TEST_URL", &c.Workflow.TestURL},
	}
	for _, o := range overrides {
		if value := strings.TrimSpace(os.Getenv(o.key)); value != "" {
			*o.target = value
		}
	}
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("sortbook.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the pipeline writes to.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the location of the catalog database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "catalog.db")
}

// WorkflowEndpoint returns the enrichment endpoint for the requested mode.
func (c *Config) WorkflowEndpoint(testMode bool) string {
	if testMode && strings.TrimSpace(c.Workflow.TestURL) != "" {
		return c.Workflow.TestURL
	}
	return c.Workflow.URL
}

// SampleConfig returns the embedded annotated sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// WriteSample writes the sample configuration to the provided path,
// refusing to overwrite an existing file.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		return home, nil
	}
	if strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		return filepath.Join(home, trimmed[2:]), nil
	}
	return filepath.Abs(trimmed)
}
