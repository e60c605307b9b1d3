package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sdpublish/internal/config"
	"sdpublish/internal/discovery"
	"sdpublish/internal/logging"
)

func newPublishCommand(ctx *commandContext) *cobra.Command {
	var flags publishFlags

	cmd := &cobra.Command{
		Use:   "publish <path>",
		Short: "Upload and publish every service definition under a path",
		Long: `Upload every matching artifact under <path> (or <path> itself when it is
a file), submit a Publish Service Definition job for each, and wait for all
jobs to finish. The command exits non-zero when any item failed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			opts := flags.options(cmd, cfg)
			if err := flags.validate(opts); err != nil {
				return err
			}
			input, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve input path: %w", err)
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

			if !flags.skipPreflight {
				if err := sess.runPreflight(cmd.Context(), cmd, input); err != nil {
					return err
				}
			}

			items, err := discovery.Find(cmd.Context(), input, cfg.Publish.Extension)
			if err != nil {
				return err
			}
			logger.Info("artifacts discovered",
				logging.String("input", input),
				logging.Int("count", len(items)),
			)

			return sess.publish(cmd.Context(), cmd, runRequest{
				input: input,
				items: items,
				opts:  opts,
				json:  flags.jsonOutput,
			})
		},
	}

	flags.register(cmd)
	return cmd
}
