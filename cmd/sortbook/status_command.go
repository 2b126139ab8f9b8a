package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"sortbook/internal/catalog"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show catalog statistics and recent records",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return fmt.Errorf("load stats: %w", err)
			}
			health, err := store.Health(cmd.Context())
			if err != nil {
				return fmt.Errorf("load health: %w", err)
			}

			out := cmd.OutOrStdout()

			countRows := make([][]string, 0, len(catalog.Statuses())+1)
			for _, status := range catalog.Statuses() {
				countRows = append(countRows, []string{string(status), strconv.Itoa(stats[status])})
			}
			countRows = append(countRows, []string{"total", strconv.Itoa(health.Total)})
			fmt.Fprintln(out, renderTable([]string{"Status", "Count"}, countRows))

			records, err := store.ListRecent(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("load recent records: %w", err)
			}
			if len(records) == 0 {
				fmt.Fprintln(out, "No records yet")
				return nil
			}

			rows := make([][]string, 0, len(records))
			for _, record := range records {
				completed := ""
				if record.CompletedAt != nil {
					completed = record.CompletedAt.Format("2006-01-02 15:04:05")
				}
				rows = append(rows, []string{
					strconv.FormatInt(record.ID, 10),
					record.Filename,
					string(record.Status),
					record.ISBN,
					record.FinalTitle,
					completed,
				})
			}
			fmt.Fprintln(out, renderTable([]string{"ID", "File", "Status", "ISBN", "Title", "Completed"}, rows))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of recent records to show")
	return cmd
}
