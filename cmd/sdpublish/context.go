package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"sdpublish/internal/config"
	"sdpublish/internal/journal"
	"sdpublish/internal/logging"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// logger builds the console logger for a command. It writes to the
// command's stderr so reports on stdout stay machine readable.
func (c *commandContext) logger(cmd *cobra.Command) (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return logging.NewFromConfig(cfg, cmd.ErrOrStderr())
}

// withJournal opens the run journal read-only for the duration of fn.
func (c *commandContext) withJournal(fn func(*config.Config, *journal.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := journal.Open(cfg)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer store.Close()
	return fn(cfg, store)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func lookupRun(cmd *cobra.Command, store *journal.Store, args []string) (*journal.Run, error) {
	if len(args) == 0 {
		run, err := store.LatestRun(cmd.Context())
		if errors.Is(err, journal.ErrRunNotFound) {
			return nil, errors.New("no runs recorded yet; start one with 'sdpublish publish <path>'")
		}
		return run, err
	}
	return store.GetRun(cmd.Context(), args[0])
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
