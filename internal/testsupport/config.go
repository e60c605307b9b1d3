package testsupport

import (
	"path/filepath"
	"testing"

	"sdpublish/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Server.URL = "https://gis.invalid"
	cfgVal.Server.Token = "test-token"
	cfgVal.Server.Referer = "sdpublish-test"
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Publish.PollInterval = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithServerURL points the config at a test server, typically httptest.
func WithServerURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Server.URL = url
	}
}

// WithWorkers overrides the worker count.
func WithWorkers(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Publish.Workers = n
	}
}

// WithCredentials replaces the static token with admin credentials.
func WithCredentials(username, password string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Server.Token = ""
		b.cfg.Server.Username = username
		b.cfg.Server.Password = password
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
