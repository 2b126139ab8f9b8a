package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"sortbook/internal/batch"
	"sortbook/internal/catalog"
	"sortbook/internal/enrich"
	"sortbook/internal/extract"
	"sortbook/internal/logging"
	"sortbook/internal/ocr"
	"sortbook/internal/pipeline"
	"sortbook/internal/resume"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		dryRun       bool
		testFile     string
		limit        int
		offset       int
		noResume     bool
		reset        bool
		testEndpoint bool
		workers      int
		verbose      bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process EPUB files from the configured directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger(verbose)
			if err != nil {
				return err
			}

			endpoint := cfg.WorkflowEndpoint(testEndpoint)
			if endpoint == "" {
				return fmt.Errorf("workflow url is not configured; set workflow.url or SORTBOOK_WORKFLOW_URL")
			}

			store, err := catalog.Open(cfg)
			if err != nil {
				return fmt.Errorf("open catalog: %w", err)
			}
			defer store.Close()

			var engine ocr.Engine
			if cfg.OCR.Enabled {
				if ocr.Available(cfg.OCR.Binary) {
					engine = ocr.EngineFor(cfg.OCR.Binary, cfg.OCR.Languages, cfg.OCR.UseGPU,
						ocr.WithMaxChars(cfg.OCR.MaxChars))
				} else {
					logger.Warn("ocr binary not found, cover recognition disabled",
						logging.String("binary", cfg.OCR.Binary))
				}
			}

			extractor := extract.NewExtractor(
				extract.WithEngine(engine),
				extract.WithLogger(logger),
				extract.WithPreviewChars(cfg.Extraction.TextPreviewChars),
				extract.WithMinCoverEdge(cfg.Extraction.MinCoverEdge),
			)

			client := enrich.NewClient(endpoint,
				enrich.WithSource(cfg.Workflow.Source),
				enrich.WithAttempts(cfg.Workflow.RetryAttempts),
				enrich.WithTimeout(time.Duration(cfg.Workflow.TimeoutSeconds)*time.Second),
				enrich.WithInsecureTLS(!cfg.Workflow.VerifyTLS),
				enrich.WithClientLogger(logger),
			)

			pipe := pipeline.New(store, extractor, client,
				pipeline.WithPipelineLogger(logger),
				pipeline.WithDryRun(dryRun),
			)

			out := cmd.OutOrStdout()

			if testFile != "" {
				path, err := filepath.Abs(testFile)
				if err != nil {
					return fmt.Errorf("resolve test file: %w", err)
				}
				outcome := pipe.Process(cmd.Context(), path)
				fmt.Fprintln(out, outcome.SummaryLine())
				return nil
			}

			var resumeStore *resume.Store
			if !noResume {
				resumeStore = resume.NewStore(cfg.Paths.ResumePath, logger)
				if reset {
					if err := resumeStore.Clear(); err != nil {
						return fmt.Errorf("reset resume state: %w", err)
					}
				}
			}

			runner := batch.NewRunner(cfg, pipe, resumeStore,
				batch.WithRunnerLogger(logger),
				batch.WithWorkers(workers),
				batch.WithDryRun(dryRun),
			)

			result, err := runner.Run(cmd.Context(), batch.Request{Offset: offset, Limit: limit})
			if err != nil {
				return err
			}

			for _, line := range result.SummaryLines() {
				fmt.Fprintln(out, line)
			}
			if result.SkippedResume > 0 {
				fmt.Fprintf(out, "Skipped %d previously completed file(s)\n", result.SkippedResume)
			}
			fmt.Fprintf(out, "%d file(s): %d processed\n", len(result.Outcomes), result.Processed())
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Run the full pipeline without persisting outcomes")
	cmd.Flags().StringVar(&testFile, "test-file", "", "Process a single file instead of the configured directory")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of files to process (0 for all)")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of files to skip before processing")
	cmd.Flags().BoolVar(&noResume, "no-resume", false, "Ignore the resume file and process everything")
	cmd.Flags().BoolVar(&reset, "reset", false, "Clear the resume file before processing")
	cmd.Flags().BoolVar(&testEndpoint, "test-endpoint", false, "Send enrichment calls to the test workflow URL")
	cmd.Flags().IntVar(&workers, "workers", 0, "Override the configured worker count")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	return cmd
}
