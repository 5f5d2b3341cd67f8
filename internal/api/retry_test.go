package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"podvision/internal/logging"
	"podvision/internal/services"
)

func TestBackoffGrowsAndCaps(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 6, InitialBackoff: 500 * time.Millisecond, MaxBackoff: 3 * time.Second, Multiplier: 2}
	want := []time.Duration{500 * time.Millisecond, time.Second, 2 * time.Second, 3 * time.Second, 3 * time.Second}
	for i, w := range want {
		if got := p.Backoff(i + 1); got != w {
			t.Errorf("Backoff(%d) = %s, want %s", i+1, got, w)
		}
	}
}

func TestRetryPolicyNormalizesZeroValue(t *testing.T) {
	p := RetryPolicy{}.normalized()
	if p.MaxAttempts != 1 || p.InitialBackoff != 500*time.Millisecond || p.Multiplier != 2 {
		t.Fatalf("unexpected normalized policy %+v", p)
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"transport", services.Wrap(ErrTransport, "op", "", errors.New("reset")), true},
		{"5xx", &StatusError{Code: 503}, true},
		{"429", fmt.Errorf("wrapped: %w", &StatusError{Code: 429}), true},
		{"404", &StatusError{Code: 404}, false},
		{"malformed body", services.Wrap(ErrServer, "op", "malformed", nil), false},
		{"validation", services.Wrap(ErrValidation, "op", "bad", nil), false},
		{"canceled", fmt.Errorf("op: %w", context.Canceled), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Retryable(tt.err); got != tt.want {
				t.Fatalf("Retryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestWithRetryStopsWhenContextEnds(t *testing.T) {
	client, err := NewClient(Options{BaseURL: "http://localhost:1", Retry: RetryPolicy{MaxAttempts: 5}})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	client.sleep = func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}
	err = client.withRetry(ctx, "op", func(context.Context) error {
		calls++
		return services.Wrap(ErrTransport, "op", "", errors.New("boom"))
	})
	if !errors.Is(err, ErrTransport) || calls != 1 {
		t.Fatalf("expected last error after one call, got %v after %d calls", err, calls)
	}
}

func TestRetryLogsStructuredAttempt(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = io.WriteString(w, `{"error":"warming up"}`)
			return
		}
		_, _ = io.WriteString(w, `{"status":"processing","progress":5}`)
	}), RetryPolicy{MaxAttempts: 2})

	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "warn", Writer: &buf})
	if err != nil {
		t.Fatalf("logging.New: %v", err)
	}
	client.logger = logger

	ctx := services.WithRequestID(context.Background(), "req-9")
	if _, err := client.FetchJobStatus(ctx, "job-1"); err != nil {
		t.Fatalf("FetchJobStatus returned error: %v", err)
	}

	line := strings.TrimSpace(buf.String())
	var record map[string]any
	if err := json.Unmarshal([]byte(line), &record); err != nil {
		t.Fatalf("decode log record: %v (%q)", err, line)
	}
	if record["msg"] != "retrying request" || record[logging.FieldEventType] != "request_retry" {
		t.Fatalf("unexpected record %v", record)
	}
	if record["operation"] != "fetch job status" || record["attempt"] != float64(1) || record["max_attempts"] != float64(2) {
		t.Fatalf("expected typed attempt fields, got %v", record)
	}
	if record[logging.FieldCorrelationID] != "req-9" {
		t.Fatalf("expected correlation id from context, got %v", record)
	}
	if _, ok := record["error"]; !ok {
		t.Fatalf("expected error field, got %v", record)
	}
}
