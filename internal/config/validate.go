package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateBatch(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.EPUBDir) == "" {
		return errors.New("paths.epub_dir must be set")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if strings.TrimSpace(c.Workflow.URL) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/sortbook/config.toml"
		}
		return fmt.Errorf("workflow.url is required. Set SORTBOOK_WORKFLOW_URL or edit %s (create with 'sortbook config init')", defaultPath)
	}
	for _, endpoint := range []struct {
		key   string
		value string
	}{
		{"workflow.url", c.Workflow.URL},
		{"workflow.test_url", c.Workflow.TestURL},
	} {
		if endpoint.value == "" {
			continue
		}
		parsed, err := url.Parse(endpoint.value)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("%s must be an absolute URL, got %q", endpoint.key, endpoint.value)
		}
	}
	return nil
}

func (c *Config) validateBatch() error {
	if c.Batch.Workers > 64 {
		return errors.New("batch.workers must be 64 or fewer")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be \"console\" or \"json\", got %q", c.Logging.Format)
	}
	return nil
}
