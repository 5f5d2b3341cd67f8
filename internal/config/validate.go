package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validatePolling(); err != nil {
		return err
	}
	if err := c.validateRetry(); err != nil {
		return err
	}
	if err := c.validateAvatars(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateAPI() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return fmt.Errorf("api.base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api.base_url must use http or https, got %q", c.API.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("api.base_url must include a host, got %q", c.API.BaseURL)
	}
	return nil
}

func (c *Config) validatePolling() error {
	if c.Polling.IntervalMillis < minPollIntervalMillis {
		return fmt.Errorf("polling.interval_ms must be at least %d", minPollIntervalMillis)
	}
	return nil
}

func (c *Config) validateRetry() error {
	if c.Retry.MaxAttempts > maxRetryAttempts {
		return fmt.Errorf("retry.max_attempts must be at most %d", maxRetryAttempts)
	}
	return nil
}

func (c *Config) validateAvatars() error {
	if len(c.Avatars.Models) == 0 {
		return errors.New("avatars.models must list at least one model")
	}
	for _, label := range sortedKeys(c.Avatars.DefaultMapping) {
		model := c.Avatars.DefaultMapping[label]
		if !slices.Contains(c.Avatars.Models, model) {
			return fmt.Errorf("avatars.default_mapping.%s: model %q is not listed in avatars.models", label, model)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
}
