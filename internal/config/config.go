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

// API contains connection settings for the rendering service.
type API struct {
	BaseURL        string `toml:"base_url"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Polling controls the job status polling cadence.
type Polling struct {
	IntervalMillis int `toml:"interval_ms"`
}

// Retry configures the optional bounded retry policy applied at the API client
// boundary. MaxAttempts of 1 disables retries.
type Retry struct {
	MaxAttempts          int     `toml:"max_attempts"`
	InitialBackoffMillis int     `toml:"initial_backoff_ms"`
	MaxBackoffMillis     int     `toml:"max_backoff_ms"`
	Multiplier           float64 `toml:"multiplier"`
}

// Avatars lists the selectable avatar models and the speaker mapping a new
// submission starts from.
type Avatars struct {
	Models         []string          `toml:"models"`
	DefaultMapping map[string]string `toml:"default_mapping"`
}

// Download controls where rendered output is saved.
type Download struct {
	Dir string `toml:"dir"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Reporting contains error reporting settings.
type Reporting struct {
	SentryDSN   string `toml:"sentry_dsn"`
	Environment string `toml:"environment"`
}

// Config encapsulates all configuration values for the PodVision client.
//
// Configuration sections by subsystem:
//   - API: service base URL and request timeout
//   - Polling: status polling interval
//   - Retry: optional backoff for idempotent calls
//   - Avatars: avatar catalog and default speaker mapping
//   - Download: local destination for rendered output
//   - Logging: log format and level
//   - Reporting: Sentry error reporting
type Config struct {
	API       API       `toml:"api"`
	Polling   Polling   `toml:"polling"`
	Retry     Retry     `toml:"retry"`
	Avatars   Avatars   `toml:"avatars"`
	Download  Download  `toml:"download"`
	Logging   Logging   `toml:"logging"`
	Reporting Reporting `toml:"reporting"`
}

// Overrides holds command-line values that take precedence over file and
// environment settings. Empty fields are ignored.
type Overrides struct {
	APIURL    string
	LogLevel  string
	LogFormat string
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file, then applies the
// PODVISION_* environment overlay. The returned config has all path fields
// expanded and normalized.
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

		// Decoding merges into existing maps; file-provided catalogs replace
		// the defaults instead. normalize restores them when left empty.
		cfg.Avatars.Models = nil
		cfg.Avatars.DefaultMapping = nil
		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// Override applies command-line overrides and re-validates the result.
func (c *Config) Override(o Overrides) error {
	if v := strings.TrimSpace(o.APIURL); v != "" {
		c.API.BaseURL = v
	}
	if v := strings.TrimSpace(o.LogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := strings.TrimSpace(o.LogFormat); v != "" {
		c.Logging.Format = v
	}
	if err := c.normalize(); err != nil {
		return err
	}
	return c.Validate()
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

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigName)
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

// PollInterval returns the status polling interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Polling.IntervalMillis) * time.Millisecond
}

// RequestTimeout returns the per-request HTTP timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.API.RequestTimeout) * time.Second
}

// InitialBackoff returns the wait before the first retry.
func (c *Config) InitialBackoff() time.Duration {
	return time.Duration(c.Retry.InitialBackoffMillis) * time.Millisecond
}

// MaxBackoff returns the upper bound for any single retry wait.
func (c *Config) MaxBackoff() time.Duration {
	return time.Duration(c.Retry.MaxBackoffMillis) * time.Millisecond
}

// SpeakerMapping returns a copy of the configured default speaker mapping.
func (c *Config) SpeakerMapping() map[string]string {
	out := make(map[string]string, len(c.Avatars.DefaultMapping))
	for label, model := range c.Avatars.DefaultMapping {
		out[label] = model
	}
	return out
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

// Encode renders the effective configuration as TOML.
func (c *Config) Encode() (string, error) {
	var b strings.Builder
	enc := toml.NewEncoder(&b)
	if err := enc.Encode(c); err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return b.String(), nil
}
