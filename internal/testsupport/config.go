package testsupport

import (
	"path/filepath"
	"testing"

	"podvision/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config whose download directory lives in a per-test
// temp dir. Polling is fast and retries are disabled unless an option says
// otherwise.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Download.Dir = filepath.Join(base, "downloads")
	cfgVal.Polling.IntervalMillis = 100
	cfgVal.Retry.MaxAttempts = 1
	cfgVal.Logging.Format = "console"
	cfgVal.Logging.Level = "error"

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

// WithAPIURL points the config at a test server.
func WithAPIURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.API.BaseURL = url
	}
}

// WithRetries enables retry with the given attempt budget and tiny backoff.
func WithRetries(attempts int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Retry.MaxAttempts = attempts
		b.cfg.Retry.InitialBackoffMillis = 1
		b.cfg.Retry.MaxBackoffMillis = 5
	}
}

// WithSpeaker adds or replaces a default speaker assignment.
func WithSpeaker(label, model string) ConfigOption {
	return func(b *configBuilder) {
		if b.cfg.Avatars.DefaultMapping == nil {
			b.cfg.Avatars.DefaultMapping = map[string]string{}
		}
		b.cfg.Avatars.DefaultMapping[label] = model
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Download.Dir)
}
