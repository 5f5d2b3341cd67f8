// Package exceptions reports client-side failures to an external tracker.
package exceptions

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"

	"podvision/internal/config"
	"podvision/internal/services"
)

const defaultFlushTimeout = 5 * time.Second

// Reporter sends exceptions to an external source.
type Reporter interface {
	ReportException(ctx context.Context, err error)
}

// NoopReporter is a no-op exception reporter.
type NoopReporter struct{}

// ReportException does nothing.
func (NoopReporter) ReportException(context.Context, error) {}

// SentryReporter sends error information to Sentry, tagged with the job and
// request identifiers carried by the context.
type SentryReporter struct {
	flushTimeout time.Duration
}

// NewSentryReporter initializes the Sentry client and returns a reporter.
func NewSentryReporter(dsn, env string) (*SentryReporter, error) {
	if err := sentry.Init(sentry.ClientOptions{Dsn: dsn, Environment: env}); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "sentry", "init client", err)
	}
	return &SentryReporter{flushTimeout: defaultFlushTimeout}, nil
}

// ReportException captures err and waits for delivery.
func (r *SentryReporter) ReportException(ctx context.Context, err error) {
	if err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		if ctx != nil {
			if id, ok := services.JobIDFromContext(ctx); ok {
				scope.SetTag("job_id", id)
			}
			if rid, ok := services.RequestIDFromContext(ctx); ok {
				scope.SetTag("request_id", rid)
			}
		}
		if marker := services.Classify(err); marker != nil {
			scope.SetTag("error_kind", marker.Error())
		}
		sentry.CaptureException(err)
	})
	sentry.Flush(r.flushTimeout)
}

// NewFromConfig returns a SentryReporter when a DSN is configured and a
// NoopReporter otherwise.
func NewFromConfig(cfg *config.Config) (Reporter, error) {
	if cfg == nil || cfg.Reporting.SentryDSN == "" {
		return NoopReporter{}, nil
	}
	return NewSentryReporter(cfg.Reporting.SentryDSN, cfg.Reporting.Environment)
}
