package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"scribe/internal/history"
	"scribe/internal/output"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List archived jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := history.Open(filepath.Join(cfg.Paths.LogDir, "history.db"))
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			entries, err := store.List(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list history: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No archived jobs")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				title := entry.Title
				if title == "" {
					title = entry.URL
				}
				rows = append(rows, []string{
					entry.ID,
					title,
					string(entry.Status),
					entry.Source,
					output.FormatDuration(entry.DurationSeconds),
					entry.CompletedAt.Local().Format("2006-01-02 15:04"),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Title", "Status", "Source", "Duration", "Completed"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum entries to show")
	return cmd
}
