package preflight

import (
	"context"
	"strings"

	"sdpublish/internal/arcgis"
	"sdpublish/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the preflight checks for publishing input with cfg.
// The input check is skipped when input is empty.
func RunAll(ctx context.Context, cfg *config.Config, input string, client arcgis.HTTPDoer) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	if strings.TrimSpace(input) != "" {
		results = append(results, CheckInput(ctx, input, cfg.Publish.Extension))
	}

	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	results = append(results, CheckCredentials(cfg))

	server := CheckServer(ctx, client, cfg.ServerContextURL())
	results = append(results, server)

	// Token generation only makes sense once the site answered.
	if server.Passed {
		results = append(results, CheckAuthentication(ctx, arcgis.NewTokenProvider(cfg, client)))
	}
	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}
