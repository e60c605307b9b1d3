package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"sdpublish/internal/arcgis"
	"sdpublish/internal/config"
	"sdpublish/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check [path]",
		Short: "Verify directories, credentials and server access",
		Long: `Run the preflight checks without publishing anything. When a path is
given it is scanned for artifacts as publish would.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var input string
			if len(args) == 1 {
				if input, err = config.ExpandPath(args[0]); err != nil {
					return fmt.Errorf("resolve input path: %w", err)
				}
			}

			results := preflight.RunAll(cmd.Context(), cfg, input, arcgis.NewHTTPClient(cfg))

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("Preflight", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, r := range results {
				fmt.Fprintln(out, renderStatusLine(r.Name, checkKind(r), r.Detail, colorize))
			}
			if !preflight.AllPassed(results) {
				return errors.New("one or more checks failed")
			}
			return nil
		},
	}
}
