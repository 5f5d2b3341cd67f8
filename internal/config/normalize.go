package config

import (
	"fmt"
	"sort"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeAPI()
	c.normalizePolling()
	c.normalizeRetry()
	c.normalizeAvatars()
	if err := c.normalizeDownload(); err != nil {
		return err
	}
	c.normalizeLogging()
	c.normalizeReporting()
	return nil
}

func (c *Config) normalizeAPI() {
	c.API.BaseURL = strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")
	if c.API.BaseURL == "" {
		c.API.BaseURL = defaultAPIBaseURL
	}
	if !strings.Contains(c.API.BaseURL, "://") {
		c.API.BaseURL = "http://" + c.API.BaseURL
	}
	if c.API.RequestTimeout <= 0 {
		c.API.RequestTimeout = defaultRequestTimeout
	}
}

func (c *Config) normalizePolling() {
	if c.Polling.IntervalMillis <= 0 {
		c.Polling.IntervalMillis = defaultPollIntervalMillis
	}
}

func (c *Config) normalizeRetry() {
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = defaultRetryMaxAttempts
	}
	if c.Retry.InitialBackoffMillis <= 0 {
		c.Retry.InitialBackoffMillis = defaultRetryInitialBackoff
	}
	if c.Retry.MaxBackoffMillis <= 0 {
		c.Retry.MaxBackoffMillis = defaultRetryMaxBackoff
	}
	if c.Retry.MaxBackoffMillis < c.Retry.InitialBackoffMillis {
		c.Retry.MaxBackoffMillis = c.Retry.InitialBackoffMillis
	}
	if c.Retry.Multiplier < 1 {
		c.Retry.Multiplier = defaultRetryMultiplier
	}
}

func (c *Config) normalizeAvatars() {
	models := make([]string, 0, len(c.Avatars.Models))
	seen := make(map[string]struct{}, len(c.Avatars.Models))
	for _, model := range c.Avatars.Models {
		model = strings.TrimSpace(model)
		if model == "" {
			continue
		}
		if _, exists := seen[model]; exists {
			continue
		}
		seen[model] = struct{}{}
		models = append(models, model)
	}
	if len(models) == 0 {
		models = defaultAvatarModels()
	}
	c.Avatars.Models = models

	mapping := make(map[string]string, len(c.Avatars.DefaultMapping))
	for label, model := range c.Avatars.DefaultMapping {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		mapping[label] = strings.TrimSpace(model)
	}
	if len(mapping) == 0 {
		mapping = defaultSpeakerMapping()
	}
	c.Avatars.DefaultMapping = mapping
}

func (c *Config) normalizeDownload() error {
	var err error
	if c.Download.Dir, err = expandPath(strings.TrimSpace(c.Download.Dir)); err != nil {
		return fmt.Errorf("download.dir: %w", err)
	}
	return nil
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
}

func (c *Config) normalizeReporting() {
	c.Reporting.SentryDSN = strings.TrimSpace(c.Reporting.SentryDSN)
	c.Reporting.Environment = strings.TrimSpace(c.Reporting.Environment)
	if c.Reporting.Environment == "" {
		c.Reporting.Environment = defaultReportingEnv
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
