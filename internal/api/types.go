package api

import (
	"io"

	"podvision/internal/services"
)

// Re-exported markers so callers classifying API failures need only this package.
var (
	ErrValidation = services.ErrValidation
	ErrTransport  = services.ErrTransport
	ErrServer     = services.ErrServer
)

// Status is the server-reported job status.
type Status string

const (
	// StatusSubmitted is the server's state before processing starts.
	StatusSubmitted  Status = "submitted"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further status changes are expected.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

func (s Status) String() string { return string(s) }

// JobSubmission is one audio payload plus its serialized speaker mapping.
type JobSubmission struct {
	AudioName string
	Audio     io.Reader
	// AudioSize is informational; -1 or 0 when unknown.
	AudioSize      int64
	SpeakerMapping string
}

// JobHandle identifies a job accepted by the server.
type JobHandle struct {
	JobID string `json:"job_id"`
}

// JobStatusSnapshot is one status observation for a job.
type JobStatusSnapshot struct {
	JobID  string `json:"job_id"`
	Status Status `json:"status"`
	// Progress is a 0-100 percentage; meaningful only when ProgressReported.
	Progress         int    `json:"progress"`
	ProgressReported bool   `json:"-"`
	OutputPath       string `json:"output_path,omitempty"`
}

type submitResponse struct {
	JobID    string `json:"job_id"`
	JobIDAlt string `json:"jobId"`
}

type statusResponse struct {
	Status     *string  `json:"status"`
	Progress   *float64 `json:"progress"`
	OutputPath string   `json:"output_path"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail any    `json:"detail"`
}
