package config

const (
	defaultEPUBDir          = "~/books/incoming"
	defaultDataDir          = "~/.local/share/sortbook"
	defaultLogDir           = "~/.local/share/sortbook/logs"
	defaultResumePath       = "~/.local/share/sortbook/resume.json"
	defaultWorkflowSource   = "sortbook"
	defaultWorkflowTimeout  = 60
	defaultWorkflowRetries  = 3
	defaultTextPreviewChars = 2000
	defaultMinCoverEdge     = 300
	defaultOCRBinary        = "tesseract"
	defaultOCRMaxChars      = 2000
	defaultBatchWorkers     = 2
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			EPUBDir:    defaultEPUBDir,
			DataDir:    defaultDataDir,
			LogDir:     defaultLogDir,
			ResumePath: defaultResumePath,
		},
		Workflow: Workflow{
			Source:         defaultWorkflowSource,
			TimeoutSeconds: defaultWorkflowTimeout,
			VerifyTLS:      true,
			RetryAttempts:  defaultWorkflowRetries,
		},
		Extraction: Extraction{
			TextPreviewChars: defaultTextPreviewChars,
			MinCoverEdge:     defaultMinCoverEdge,
		},
		OCR: OCR{
			Enabled:   false,
			Binary:    defaultOCRBinary,
			Languages: []string{"eng", "fra"},
			MaxChars:  defaultOCRMaxChars,
		},
		Batch: Batch{
			Workers: defaultBatchWorkers,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
