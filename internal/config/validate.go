package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validatePublish(); err != nil {
		return err
	}
	return nil
}

// ValidateCredentials ensures either a static token or a username/password
// pair is available. It is separate from Validate so read-only commands
// (history, show) work without credentials.
func (c *Config) ValidateCredentials() error {
	if c.Server.Token != "" {
		return nil
	}
	if c.Server.Username == "" || c.Server.Password == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/sdpublish/config.toml"
		}
		return fmt.Errorf("server.token or server.username/server.password is required. Set SDPUBLISH_TOKEN or SDPUBLISH_USERNAME/SDPUBLISH_PASSWORD, or edit %s (create with 'sdpublish config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.URL == "" {
		return nil
	}
	parsed, err := url.Parse(c.Server.URL)
	if err != nil {
		return fmt.Errorf("server.url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("server.url must use http or https, got %q", c.Server.URL)
	}
	if strings.TrimSpace(parsed.Host) == "" {
		return errors.New("server.url must include a host")
	}
	return nil
}

// ValidateServerURL ensures a site URL has been configured.
func (c *Config) ValidateServerURL() error {
	if c.Server.URL == "" {
		return errors.New("server.url is required (set SDPUBLISH_SERVER_URL or edit the config file)")
	}
	return nil
}

func (c *Config) validatePublish() error {
	if c.Publish.Workers <= 0 {
		return errors.New("publish.workers must be positive")
	}
	if c.Publish.Workers > maxWorkers {
		return fmt.Errorf("publish.workers must be at most %d", maxWorkers)
	}
	if c.Publish.PollInterval <= 0 {
		return errors.New("publish.poll_interval must be positive (seconds)")
	}
	if c.Publish.MaxPollRounds < 0 {
		return errors.New("publish.max_poll_rounds must be >= 0")
	}
	if c.Publish.MaxWait < 0 {
		return errors.New("publish.max_wait must be >= 0 (seconds)")
	}
	if c.Publish.MaxWait > 0 && c.Publish.MaxWait < c.Publish.PollInterval {
		return errors.New("publish.max_wait must be at least publish.poll_interval")
	}
	return nil
}
