package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"sdpublish/internal/config"
	"sdpublish/internal/journal"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded publishing runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJournal(func(_ *config.Config, store *journal.Store) error {
				runs, err := store.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if jsonOutput {
					views := make([]runJSON, 0, len(runs))
					for _, run := range runs {
						views = append(views, newRunJSON(run, nil))
					}
					return writeJSON(cmd, views)
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Run", "Started", "Status", "Items", "OK", "Failed", "Duration"},
					historyRows(runs),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list (0 = all)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func historyRows(runs []journal.Run) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		status := humanLabel(string(run.Status))
		if run.ParentRunID != "" {
			status += " (retry)"
		}
		rows = append(rows, []string{
			shortRunID(run.ID),
			formatTimestamp(run.StartedAt),
			status,
			strconv.Itoa(run.Total),
			strconv.Itoa(run.Succeeded),
			strconv.Itoa(run.Failed),
			formatDuration(run.Duration()),
		})
	}
	return rows
}
