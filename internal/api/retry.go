package api

import (
	"context"
	"errors"
	"math"
	"net/http"
	"time"

	"podvision/internal/logging"
)

// RetryPolicy bounds retries of idempotent calls. MaxAttempts counts the first
// try, so 1 disables retrying.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
}

// DefaultRetryPolicy performs a single attempt.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    1,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		Multiplier:     2,
	}
}

func (p RetryPolicy) normalized() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = def.InitialBackoff
	}
	if p.MaxBackoff < p.InitialBackoff {
		p.MaxBackoff = p.InitialBackoff
	}
	if p.Multiplier < 1 {
		p.Multiplier = def.Multiplier
	}
	return p
}

// Backoff returns the wait before retry number n (1-based), capped at MaxBackoff.
func (p RetryPolicy) Backoff(n int) time.Duration {
	p = p.normalized()
	if n < 1 {
		n = 1
	}
	wait := float64(p.InitialBackoff) * math.Pow(p.Multiplier, float64(n-1))
	if wait > float64(p.MaxBackoff) || math.IsInf(wait, 0) {
		return p.MaxBackoff
	}
	return time.Duration(wait)
}

// Retryable reports whether err is worth another attempt: transport failures,
// 5xx responses and 429. Context cancellation never is.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code >= http.StatusInternalServerError || statusErr.Code == http.StatusTooManyRequests
	}
	return errors.Is(err, ErrTransport)
}

func (c *Client) withRetry(ctx context.Context, operation string, fn func(context.Context) error) error {
	policy := c.retry.normalized()
	var err error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		err = fn(ctx)
		if err == nil || attempt == policy.MaxAttempts || !Retryable(err) {
			return err
		}
		wait := policy.Backoff(attempt)
		logging.WarnWithContext(logging.WithContext(ctx, c.logger), "retrying request", "request_retry",
			logging.String("operation", operation),
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", policy.MaxAttempts),
			logging.Duration("backoff", wait),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the service may be restarting; raise retry.max_attempts if this persists"),
		)
		if sleepErr := c.sleep(ctx, wait); sleepErr != nil {
			return err
		}
	}
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
