package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"sortbook/internal/catalog"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <record-id>",
		Short: "Display one catalog record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid record id %q", args[0])
			}

			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			record, err := store.GetByID(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("load record: %w", err)
			}
			if record == nil {
				return fmt.Errorf("record %d not found", id)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				return encoder.Encode(recordDocument(record))
			}

			fmt.Fprintf(out, "Record #%d\n", record.ID)
			fmt.Fprintf(out, "  File:       %s\n", record.Filename)
			fmt.Fprintf(out, "  Path:       %s\n", record.FilePath)
			fmt.Fprintf(out, "  Size:       %d bytes\n", record.FileSize)
			fmt.Fprintf(out, "  Hash:       %s\n", record.FileHash)
			fmt.Fprintf(out, "  Status:     %s\n", record.Status)
			fmt.Fprintf(out, "  ISBN:       %s (%s)\n", orDash(record.ISBN), orDash(record.ISBNSource))
			fmt.Fprintf(out, "  Cover:      %s\n", yesNo(record.HasCover))
			fmt.Fprintf(out, "  Title:      %s\n", orDash(record.FinalTitle))
			fmt.Fprintf(out, "  Author:     %s\n", orDash(record.FinalAuthor))
			fmt.Fprintf(out, "  Via:        %s\n", orDash(record.ChoiceSource))
			fmt.Fprintf(out, "  Started:    %s\n", record.StartedAt.Format("2006-01-02 15:04:05"))
			if record.CompletedAt != nil {
				fmt.Fprintf(out, "  Completed:  %s (%d ms)\n",
					record.CompletedAt.Format("2006-01-02 15:04:05"), record.ProcessingTimeMS)
			}
			if record.ErrorMessage != "" {
				fmt.Fprintf(out, "  Error:      %s\n", record.ErrorMessage)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the full record as JSON, including extraction payloads")
	return cmd
}

// recordDocument reshapes a record for JSON output, inlining the stored
// extraction and response payloads instead of quoting them.
func recordDocument(record *catalog.Record) map[string]any {
	doc := map[string]any{
		"id":                 record.ID,
		"file_hash":          record.FileHash,
		"filename":           record.Filename,
		"file_path":          record.FilePath,
		"file_size":          record.FileSize,
		"status":             record.Status,
		"isbn":               record.ISBN,
		"isbn_source":        record.ISBNSource,
		"has_cover":          record.HasCover,
		"choice_source":      record.ChoiceSource,
		"final_title":        record.FinalTitle,
		"final_author":       record.FinalAuthor,
		"error_message":      record.ErrorMessage,
		"started_at":         record.StartedAt,
		"completed_at":       record.CompletedAt,
		"processing_time_ms": record.ProcessingTimeMS,
	}
	for key, raw := range map[string]string{
		"isbn_detail": record.ISBNJSON,
		"metadata":    record.MetadataJSON,
		"cover":       record.CoverJSON,
		"response":    record.ResponseJSON,
	} {
		if raw != "" {
			doc[key] = json.RawMessage(raw)
		}
	}
	return doc
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
