package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeServer()
	c.normalizePublish()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeServer() {
	c.Server.URL = strings.TrimRight(strings.TrimSpace(c.Server.URL), "/")
	if c.Server.URL == "" {
		if value, ok := os.LookupEnv("SDPUBLISH_SERVER_URL"); ok {
			c.Server.URL = strings.TrimRight(strings.TrimSpace(value), "/")
		}
	}
	c.Server.Context = strings.Trim(strings.TrimSpace(c.Server.Context), "/")
	c.Server.Username = strings.TrimSpace(c.Server.Username)
	if c.Server.Username == "" {
		if value, ok := os.LookupEnv("SDPUBLISH_USERNAME"); ok {
			c.Server.Username = strings.TrimSpace(value)
		}
	}
	if c.Server.Password == "" {
		if value, ok := os.LookupEnv("SDPUBLISH_PASSWORD"); ok {
			c.Server.Password = value
		}
	}
	c.Server.Token = strings.TrimSpace(c.Server.Token)
	if c.Server.Token == "" {
		if value, ok := os.LookupEnv("SDPUBLISH_TOKEN"); ok {
			c.Server.Token = strings.TrimSpace(value)
		}
	}
	c.Server.Referer = strings.TrimSpace(c.Server.Referer)
	if c.Server.Referer == "" {
		c.Server.Referer = defaultReferer()
	}
	if c.Server.TokenExpiration <= 0 {
		c.Server.TokenExpiration = defaultTokenExpiration
	}
	if c.Server.RequestTimeout <= 0 {
		c.Server.RequestTimeout = defaultRequestTimeout
	}
}

func (c *Config) normalizePublish() {
	if c.Publish.Workers <= 0 {
		c.Publish.Workers = defaultWorkers
	}
	ext := strings.ToLower(strings.TrimSpace(c.Publish.Extension))
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = defaultExtension
	}
	c.Publish.Extension = ext
	if c.Publish.PollInterval <= 0 {
		c.Publish.PollInterval = defaultPollInterval
	}
	if c.Publish.MaxPollRounds < 0 {
		c.Publish.MaxPollRounds = 0
	}
	if c.Publish.MaxWait < 0 {
		c.Publish.MaxWait = 0
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

// defaultReferer mirrors the referer-client token flow: the token is bound to
// the local host name.
func defaultReferer() string {
	host, err := os.Hostname()
	if err != nil || strings.TrimSpace(host) == "" {
		return defaultRefererHostPrefix
	}
	return host
}
