package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"podvision/internal/config"
	"podvision/internal/logging"
	"podvision/internal/services"
)

const (
	submitPath   = "/submit-job"
	statusPath   = "/job-status/"
	downloadPath = "/download/"

	requestIDHeader = "X-Request-ID"
	userAgent       = "podvision-cli"
	maxJSONBody     = 1 << 20
)

// HTTPDoer describes the HTTP client used by the API client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Options configures a Client.
type Options struct {
	BaseURL string
	// Timeout applies when HTTPClient is nil; zero means no client timeout.
	Timeout    time.Duration
	HTTPClient HTTPDoer
	Retry      RetryPolicy
	Logger     *slog.Logger
}

// Client talks to the rendering service.
type Client struct {
	baseURL string
	http    HTTPDoer
	retry   RetryPolicy
	logger  *slog.Logger
	sleep   func(context.Context, time.Duration) error
}

// NewClient validates the base URL and constructs a Client.
func NewClient(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	u, err := url.Parse(base)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, services.Wrap(services.ErrConfiguration, "api client", fmt.Sprintf("invalid base url %q", opts.BaseURL), err)
	}
	doer := opts.HTTPClient
	if doer == nil {
		doer = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{
		baseURL: base,
		http:    doer,
		retry:   opts.Retry.normalized(),
		logger:  logging.NewComponentLogger(opts.Logger, "api"),
		sleep:   sleepContext,
	}, nil
}

// NewFromConfig builds a Client from application configuration.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "api client", "config is required", nil)
	}
	return NewClient(Options{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.RequestTimeout(),
		Retry: RetryPolicy{
			MaxAttempts:    cfg.Retry.MaxAttempts,
			InitialBackoff: cfg.InitialBackoff(),
			MaxBackoff:     cfg.MaxBackoff(),
			Multiplier:     cfg.Retry.Multiplier,
		},
		Logger: logger,
	})
}

// ArtifactURL returns the download location for a job's rendered output.
func (c *Client) ArtifactURL(jobID string) string {
	return c.baseURL + downloadPath + url.PathEscape(jobID)
}

// SubmitJob uploads the audio and speaker mapping and returns the new job's
// handle. Submissions are never retried.
func (c *Client) SubmitJob(ctx context.Context, sub JobSubmission) (JobHandle, error) {
	const op = "submit job"
	if sub.Audio == nil {
		return JobHandle{}, services.Wrap(ErrValidation, op, "audio file is required", nil)
	}
	name := strings.TrimSpace(sub.AudioName)
	if name == "" {
		name = "audio"
	}

	body, writer := io.Pipe()
	form := multipart.NewWriter(writer)
	go func() {
		err := writeSubmission(form, name, sub)
		if err == nil {
			err = form.Close()
		}
		writer.CloseWithError(err)
	}()
	defer body.Close()

	req, err := c.newRequest(ctx, http.MethodPost, submitPath, body)
	if err != nil {
		return JobHandle{}, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.do(req, op)
	if err != nil {
		return JobHandle{}, err
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return JobHandle{}, newStatusError(op, resp)
	}

	var payload submitResponse
	if err := decodeJSON(resp.Body, &payload); err != nil {
		return JobHandle{}, services.Wrap(ErrServer, op, "malformed response body", err)
	}
	id := strings.TrimSpace(payload.JobID)
	if id == "" {
		id = strings.TrimSpace(payload.JobIDAlt)
	}
	if id == "" {
		return JobHandle{}, services.Wrap(ErrServer, op, "response missing job identifier", nil)
	}
	c.logger.Info("job submitted",
		logging.String(logging.FieldJobID, id),
		logging.String("audio", name),
		logging.String(logging.FieldCorrelationID, req.Header.Get(requestIDHeader)),
	)
	return JobHandle{JobID: id}, nil
}

func writeSubmission(form *multipart.Writer, name string, sub JobSubmission) error {
	part, err := form.CreateFormFile("audio_file", name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, sub.Audio); err != nil {
		return fmt.Errorf("stream audio: %w", err)
	}
	mapping := sub.SpeakerMapping
	if strings.TrimSpace(mapping) == "" {
		mapping = "{}"
	}
	return form.WriteField("speaker_mapping", mapping)
}

// FetchJobStatus retrieves the current status of jobID.
func (c *Client) FetchJobStatus(ctx context.Context, jobID string) (JobStatusSnapshot, error) {
	const op = "fetch job status"
	if strings.TrimSpace(jobID) == "" {
		return JobStatusSnapshot{}, services.Wrap(ErrValidation, op, "job id is required", nil)
	}
	var snapshot JobStatusSnapshot
	err := c.withRetry(ctx, op, func(ctx context.Context) error {
		var err error
		snapshot, err = c.fetchJobStatusOnce(ctx, jobID)
		return err
	})
	return snapshot, err
}

func (c *Client) fetchJobStatusOnce(ctx context.Context, jobID string) (JobStatusSnapshot, error) {
	const op = "fetch job status"
	req, err := c.newRequest(ctx, http.MethodGet, statusPath+url.PathEscape(jobID), nil)
	if err != nil {
		return JobStatusSnapshot{}, err
	}
	resp, err := c.do(req, op)
	if err != nil {
		return JobStatusSnapshot{}, err
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return JobStatusSnapshot{}, newStatusError(op, resp)
	}

	var payload statusResponse
	if err := decodeJSON(resp.Body, &payload); err != nil {
		return JobStatusSnapshot{}, services.Wrap(ErrServer, op, "malformed response body", err)
	}
	if payload.Status == nil || strings.TrimSpace(*payload.Status) == "" {
		return JobStatusSnapshot{}, services.Wrap(ErrServer, op, "response missing status", nil)
	}

	snapshot := JobStatusSnapshot{
		JobID:      jobID,
		Status:     Status(strings.ToLower(strings.TrimSpace(*payload.Status))),
		OutputPath: strings.TrimSpace(payload.OutputPath),
	}
	if payload.Progress != nil {
		snapshot.Progress = clampPercent(*payload.Progress)
		snapshot.ProgressReported = true
	}
	return snapshot, nil
}

func clampPercent(v float64) int {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return int(math.Round(v))
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "build request", path, err)
	}
	rid, ok := services.RequestIDFromContext(ctx)
	if !ok {
		rid = uuid.NewString()
	}
	req.Header.Set(requestIDHeader, rid)
	req.Header.Set("User-Agent", userAgent)
	if method == http.MethodGet {
		req.Header.Set("Accept", "application/json")
	}
	return req, nil
}

func (c *Client) do(req *http.Request, operation string) (*http.Response, error) {
	ctx := services.WithRequestID(req.Context(), req.Header.Get(requestIDHeader))
	logger := logging.WithContext(ctx, c.logger)
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		logger.Debug("api request failed",
			logging.String("operation", operation),
			logging.String("method", req.Method),
			logging.String("path", req.URL.Path),
			logging.Duration("elapsed", time.Since(start)),
			logging.Error(err),
		)
		if ctxErr := req.Context().Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, fmt.Errorf("%s: %w", operation, ctxErr)
		}
		return nil, services.Wrap(ErrTransport, operation, "", err)
	}
	logger.Debug("api request",
		logging.String("operation", operation),
		logging.String("method", req.Method),
		logging.String("path", req.URL.Path),
		logging.Int("status", resp.StatusCode),
		logging.Duration("elapsed", time.Since(start)),
	)
	return resp, nil
}

// decodeJSON requires a single JSON object body.
func decodeJSON(r io.Reader, dst any) error {
	data, err := io.ReadAll(io.LimitReader(r, maxJSONBody))
	if err != nil {
		return err
	}
	trimmed := strings.TrimSpace(string(data))
	if !strings.HasPrefix(trimmed, "{") {
		return errors.New("expected a JSON object")
	}
	return json.Unmarshal([]byte(trimmed), dst)
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, maxErrorBody))
	_ = body.Close()
}
