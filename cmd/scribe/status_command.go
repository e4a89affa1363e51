package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"scribe/internal/api"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon health and job counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			client := &http.Client{Timeout: 5 * time.Second}
			resp, err := client.Get("http://" + cfg.Paths.APIBind + "/api/health")
			if err != nil {
				return fmt.Errorf("daemon not reachable at %s (start it with `scribe serve`): %w", cfg.Paths.APIBind, err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("daemon health returned status %d", resp.StatusCode)
			}

			var health api.HealthResponse
			if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
				return fmt.Errorf("decode health response: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s (%s)\n\n", health.Service, health.Version, health.Status)
			rows := [][]string{
				{"Total", strconv.Itoa(health.Jobs.Total)},
				{"Pending", strconv.Itoa(health.Jobs.Pending)},
				{"Processing", strconv.Itoa(health.Jobs.Processing)},
				{"Complete", strconv.Itoa(health.Jobs.Complete)},
				{"Error", strconv.Itoa(health.Jobs.Error)},
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Jobs", "Count"},
				rows,
				[]columnAlignment{alignLeft, alignRight},
			))

			if len(health.History) > 0 {
				statuses := make([]string, 0, len(health.History))
				for status := range health.History {
					statuses = append(statuses, status)
				}
				sort.Strings(statuses)
				histRows := make([][]string, 0, len(statuses))
				for _, status := range statuses {
					histRows = append(histRows, []string{status, strconv.Itoa(health.History[status])})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"History", "Count"},
					histRows,
					[]columnAlignment{alignLeft, alignRight},
				))
			}
			return nil
		},
	}
}
