package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// envOverlay lists the PODVISION_* variables that override file settings.
// Zero values leave the file (or default) value untouched.
type envOverlay struct {
	APIURL         string `envconfig:"API_URL"`
	RequestTimeout int    `envconfig:"REQUEST_TIMEOUT"`
	PollIntervalMS int    `envconfig:"POLL_INTERVAL_MS"`
	RetryAttempts  int    `envconfig:"RETRY_MAX_ATTEMPTS"`
	DownloadDir    string `envconfig:"DOWNLOAD_DIR"`
	LogLevel       string `envconfig:"LOG_LEVEL"`
	LogFormat      string `envconfig:"LOG_FORMAT"`
	SentryDSN      string `envconfig:"SENTRY_DSN"`
}

func (c *Config) applyEnv() error {
	var env envOverlay
	if err := envconfig.Process(envPrefix, &env); err != nil {
		return fmt.Errorf("read %s_* environment: %w", envPrefix, err)
	}
	if v := strings.TrimSpace(env.APIURL); v != "" {
		c.API.BaseURL = v
	}
	if env.RequestTimeout > 0 {
		c.API.RequestTimeout = env.RequestTimeout
	}
	if env.PollIntervalMS > 0 {
		c.Polling.IntervalMillis = env.PollIntervalMS
	}
	if env.RetryAttempts > 0 {
		c.Retry.MaxAttempts = env.RetryAttempts
	}
	if v := strings.TrimSpace(env.DownloadDir); v != "" {
		c.Download.Dir = v
	}
	if v := strings.TrimSpace(env.LogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := strings.TrimSpace(env.LogFormat); v != "" {
		c.Logging.Format = v
	}
	if v := strings.TrimSpace(env.SentryDSN); v != "" {
		c.Reporting.SentryDSN = v
	}
	return nil
}

// LoadDotEnv loads KEY=value files into the process environment without
// overriding variables that are already set. Missing files are skipped; with no
// arguments ./.env is tried.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		info, err := os.Stat(p)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("stat env file %q: %w", p, err)
		}
		if info.IsDir() {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load env file %q: %w", p, err)
		}
	}
	return nil
}
