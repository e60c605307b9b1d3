package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sdpublish/internal/discovery"
	"sdpublish/internal/logging"
)

func newRetryCommand(ctx *commandContext) *cobra.Command {
	var flags publishFlags

	cmd := &cobra.Command{
		Use:   "retry [run-id]",
		Short: "Publish the items a previous run did not finish",
		Long: `Start a new run with every item of an earlier run that failed or never
finished. Without a run id the most recent run is used; a unique id prefix
is accepted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			opts := flags.options(cmd, cfg)
			if err := flags.validate(opts); err != nil {
				return err
			}
			logger, err := ctx.logger(cmd)
			if err != nil {
				return err
			}
			sess, err := openSession(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer sess.Close()

			parent, err := lookupRun(cmd, sess.store, args)
			if err != nil {
				return err
			}
			paths, err := sess.store.UnfinishedPaths(cmd.Context(), parent.ID)
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Run %s has no items to retry\n", shortRunID(parent.ID))
				return nil
			}
			items, err := discovery.Normalize(paths)
			if err != nil {
				return err
			}

			if !flags.skipPreflight {
				if err := sess.runPreflight(cmd.Context(), cmd, ""); err != nil {
					return err
				}
			}
			logger.Info("retrying unfinished items",
				logging.String("parent_run_id", parent.ID),
				logging.Int("count", len(items)),
			)

			return sess.publish(cmd.Context(), cmd, runRequest{
				input:    parent.InputPath,
				parentID: parent.ID,
				items:    items,
				opts:     opts,
				json:     flags.jsonOutput,
			})
		},
	}

	flags.register(cmd)
	return cmd
}
