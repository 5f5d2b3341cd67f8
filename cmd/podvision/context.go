package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"podvision/internal/api"
	"podvision/internal/avatar"
	"podvision/internal/config"
	"podvision/internal/exceptions"
	"podvision/internal/logging"
	"podvision/internal/monitor"
)

type globalFlags struct {
	configPath string
	apiURL     string
	logLevel   string
	logFormat  string
}

type commandContext struct {
	flags  *globalFlags
	errOut io.Writer

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.flags != nil {
			path = strings.TrimSpace(c.flags.configPath)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.flags != nil {
			err = cfg.Override(config.Overrides{
				APIURL:    c.flags.apiURL,
				LogLevel:  c.flags.logLevel,
				LogFormat: c.flags.logFormat,
			})
			if err != nil {
				c.configErr = err
				return
			}
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

// loggerValue returns the CLI logger. Log output goes to the command's error
// stream so stdout stays clean for --json.
func (c *commandContext) loggerValue() *slog.Logger {
	c.loggerOnce.Do(func() {
		out := c.errOut
		if out == nil {
			out = os.Stderr
		}
		opts := logging.Options{Level: "info", Format: "console", Writer: out}
		if c.config != nil {
			opts.Level = c.config.Logging.Level
			opts.Format = c.config.Logging.Format
		}
		logger, err := logging.New(opts)
		if err != nil {
			logger = logging.NewNop()
		}
		c.logger = logger
	})
	return c.logger
}

func (c *commandContext) client() (*api.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return api.NewFromConfig(cfg, c.loggerValue())
}

func (c *commandContext) catalog() avatar.Catalog {
	if c.config == nil {
		return avatar.DefaultCatalog()
	}
	return avatar.NewCatalog(c.config.Avatars.Models...)
}

func (c *commandContext) defaultMapping() avatar.Mapping {
	if c.config == nil {
		return avatar.DefaultMapping()
	}
	return avatar.Mapping(c.config.SpeakerMapping())
}

func (c *commandContext) reporter() exceptions.Reporter {
	reporter, err := exceptions.NewFromConfig(c.config)
	if err != nil {
		logging.WarnWithContext(c.loggerValue(), "error reporting disabled", "reporter_init_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check reporting.sentry_dsn"),
		)
		return exceptions.NoopReporter{}
	}
	return reporter
}

// newMonitor builds a job monitor; callers must Stop it.
func (c *commandContext) newMonitor(client monitor.Client) (*monitor.Monitor, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	m, err := monitor.New(monitor.Options{
		Client:       client,
		PollInterval: cfg.PollInterval(),
		Logger:       c.loggerValue(),
		Reporter:     c.reporter(),
	})
	if err != nil {
		return nil, fmt.Errorf("create job monitor: %w", err)
	}
	return m, nil
}

func commandContextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
