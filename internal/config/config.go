package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Server contains connection settings for the ArcGIS Server site.
type Server struct {
	URL             string `toml:"url"`
	Context         string `toml:"context"`
	Username        string `toml:"username"`
	Password        string `toml:"password"`
	Token           string `toml:"token"`
	Referer         string `toml:"referer"`
	TokenExpiration int    `toml:"token_expiration"`
	RequestTimeout  int    `toml:"request_timeout"`
	TLSSkipVerify   bool   `toml:"tls_skip_verify"`
}

// Publish contains settings for the batch publishing pipeline.
type Publish struct {
	Workers       int    `toml:"workers"`
	Extension     string `toml:"extension"`
	PollInterval  int    `toml:"poll_interval"`
	MaxPollRounds int    `toml:"max_poll_rounds"`
	MaxWait       int    `toml:"max_wait"`
}

// Paths contains directory configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for sdpublish.
//
// Configuration sections by subsystem:
//   - Server: ArcGIS Server site URL, credentials and HTTP behaviour
//   - Publish: worker count, artifact extension and polling bounds
//   - Paths: journal/lock state and log directories
//   - Logging: log format, level, and per-run log retention
type Config struct {
	Server  Server  `toml:"server"`
	Publish Publish `toml:"publish"`
	Paths   Paths   `toml:"paths"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/sdpublish/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("sdpublish.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// JournalPath returns the location of the SQLite run journal.
func (c *Config) JournalPath() string {
	return filepath.Join(c.Paths.StateDir, "journal.db")
}

// LockPath returns the location of the single-publisher lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "sdpublish.lock")
}

// ServerContextURL returns the site URL joined with the web adaptor context,
// e.g. https://gis.example.com:6443/arcgis.
func (c *Config) ServerContextURL() string {
	base := strings.TrimRight(c.Server.URL, "/")
	ctxPath := strings.Trim(c.Server.Context, "/")
	if ctxPath == "" {
		return base
	}
	return base + "/" + ctxPath
}

// PollInterval returns the delay between job status rounds.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Publish.PollInterval) * time.Second
}

// MaxWait returns the wall-clock bound on job polling; zero means unbounded.
func (c *Config) MaxWait() time.Duration {
	return time.Duration(c.Publish.MaxWait) * time.Second
}

// RequestTimeout returns the per-request HTTP timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeout) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
