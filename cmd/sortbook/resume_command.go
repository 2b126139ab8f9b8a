package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sortbook/internal/logging"
	"sortbook/internal/resume"
)

func newResumeCommand(ctx *commandContext) *cobra.Command {
	resumeCmd := &cobra.Command{
		Use:   "resume",
		Short: "Inspect or reset the resume file",
	}

	resumeCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show how many files the next run will skip",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store := resume.NewStore(cfg.Paths.ResumePath, logging.NewNop())
			out := cmd.OutOrStdout()
			if cfg.Paths.ResumePath == "" {
				fmt.Fprintln(out, "Resume tracking is disabled (no resume_path configured)")
				return nil
			}
			fmt.Fprintf(out, "Resume file: %s\n", cfg.Paths.ResumePath)
			fmt.Fprintf(out, "Completed entries: %d\n", store.Count())
			return nil
		},
	})

	resumeCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Forget completed files so the next run reprocesses everything",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store := resume.NewStore(cfg.Paths.ResumePath, logging.NewNop())
			if err := store.Clear(); err != nil {
				return fmt.Errorf("clear resume file: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Resume file cleared")
			return nil
		},
	})

	return resumeCmd
}
