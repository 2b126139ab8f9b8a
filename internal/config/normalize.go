package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeWorkflow()
	c.normalizeExtraction()
	c.normalizeOCR()
	c.normalizeBatch()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.EPUBDir, err = expandPath(c.Paths.EPUBDir); err != nil {
		return fmt.Errorf("paths.epub_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ResumePath) == "" {
		c.Paths.ResumePath = defaultResumePath
	}
	if c.Paths.ResumePath, err = expandPath(c.Paths.ResumePath); err != nil {
		return fmt.Errorf("paths.resume_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeWorkflow() {
	c.Workflow.URL = strings.TrimSpace(c.Workflow.URL)
	c.Workflow.TestURL = strings.TrimSpace(c.Workflow.TestURL)
	if strings.TrimSpace(c.Workflow.Source) == "" {
		c.Workflow.Source = defaultWorkflowSource
	}
	if c.Workflow.TimeoutSeconds <= 0 {
		c.Workflow.TimeoutSeconds = defaultWorkflowTimeout
	}
	if c.Workflow.RetryAttempts <= 0 {
		c.Workflow.RetryAttempts = defaultWorkflowRetries
	}
}

func (c *Config) normalizeExtraction() {
	if c.Extraction.TextPreviewChars <= 0 {
		c.Extraction.TextPreviewChars = defaultTextPreviewChars
	}
	if c.Extraction.MinCoverEdge <= 0 {
		c.Extraction.MinCoverEdge = defaultMinCoverEdge
	}
}

func (c *Config) normalizeOCR() {
	if strings.TrimSpace(c.OCR.Binary) == "" {
		c.OCR.Binary = defaultOCRBinary
	}
	if len(c.OCR.Languages) == 0 {
		c.OCR.Languages = []string{"eng", "fra"}
	}
	if c.OCR.MaxChars <= 0 {
		c.OCR.MaxChars = defaultOCRMaxChars
	}
}

func (c *Config) normalizeBatch() {
	if c.Batch.Workers <= 0 {
		c.Batch.Workers = defaultBatchWorkers
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
