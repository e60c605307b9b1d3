package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sdpublish/internal/config"
	"sdpublish/internal/journal"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var failedOnly bool
	var logOpts runLogOptions

	cmd := &cobra.Command{
		Use:   "show [run-id]",
		Short: "Show one run and the outcome of each item",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJournal(func(_ *config.Config, store *journal.Store) error {
				run, err := lookupRun(cmd, store, args)
				if err != nil {
					return err
				}
				if logOpts.show {
					return printRunLog(cmd, store, *run, logOpts)
				}
				items, err := store.ListItems(cmd.Context(), run.ID)
				if err != nil {
					return err
				}
				if failedOnly {
					items = unsuccessful(items)
				}
				if jsonOutput {
					return writeJSON(cmd, newRunJSON(*run, items))
				}

				out := cmd.OutOrStdout()
				renderRunSummary(out, *run, shouldColorize(out))
				if len(items) == 0 {
					return nil
				}
				fmt.Fprintln(out)
				fmt.Fprintln(out, renderTable([]string{"Artifact", "Status", "Job", "Reason", "Detail"}, itemRows(items), nil))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&failedOnly, "failed", false, "Only list items that did not succeed")
	cmd.Flags().BoolVar(&logOpts.show, "log", false, "Print the run log instead of the item table")
	cmd.Flags().IntVarP(&logOpts.lines, "lines", "n", 40, "Number of log lines to print with --log")
	cmd.Flags().BoolVarP(&logOpts.follow, "follow", "f", false, "Keep printing log lines while the run is in progress")
	return cmd
}

func itemRows(items []journal.Item) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			item.Path,
			humanLabel(string(item.Status)),
			valueOrDash(item.JobID),
			humanLabel(item.Reason),
			truncate(valueOrDash(item.ErrorMessage), maxDetailWidth),
		})
	}
	return rows
}

func unsuccessful(items []journal.Item) []journal.Item {
	out := items[:0]
	for _, item := range items {
		if item.Status != journal.ItemSucceeded {
			out = append(out, item)
		}
	}
	return out
}
