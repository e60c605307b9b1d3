package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"sdpublish/internal/journal"
	"sdpublish/internal/logs"
)

const followWait = 2 * time.Second

type runLogOptions struct {
	show   bool
	lines  int
	follow bool
}

// printRunLog prints the tail of a run's log. With follow it keeps reading
// until the journal reports the run finished and no new lines arrive.
func printRunLog(cmd *cobra.Command, store *journal.Store, run journal.Run, opts runLogOptions) error {
	if run.LogPath == "" {
		return fmt.Errorf("run %s has no log file", shortRunID(run.ID))
	}
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	result, err := logs.Tail(ctx, run.LogPath, logs.TailOptions{Offset: -1, Limit: opts.lines})
	if err != nil {
		return err
	}
	for _, line := range logs.FormatLines(result.Lines) {
		fmt.Fprintln(out, line)
	}
	if !opts.follow {
		return nil
	}

	offset := result.Offset
	for {
		current, err := store.GetRun(ctx, run.ID)
		if err != nil {
			return err
		}
		result, err := logs.Tail(ctx, run.LogPath, logs.TailOptions{Offset: offset, Follow: true, Wait: followWait})
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		offset = result.Offset
		for _, line := range logs.FormatLines(result.Lines) {
			fmt.Fprintln(out, line)
		}
		if len(result.Lines) == 0 && current.Status != journal.RunRunning {
			return nil
		}
	}
}
