package monitor

import (
	"time"

	"podvision/internal/api"
)

// State is the monitor's lifecycle state.
type State int

const (
	Idle State = iota
	Submitting
	Polling
	Completed
	Failed
	Errored
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Submitting:
		return "submitting"
	case Polling:
		return "polling"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	case Errored:
		return "errored"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further polling happens for the current job.
func (s State) Terminal() bool {
	return s == Completed || s == Failed || s == Errored
}

// Snapshot is an immutable view of the tracked job.
type Snapshot struct {
	State      State      `json:"-"`
	StateName  string     `json:"state"`
	JobID      string     `json:"job_id,omitempty"`
	Status     api.Status `json:"status,omitempty"`
	Progress   int        `json:"progress"`
	OutputPath string     `json:"output_path,omitempty"`
	// Message carries the user-visible error text in Errored.
	Message      string    `json:"message,omitempty"`
	Generation   uint64    `json:"generation"`
	Polls        int       `json:"polls"`
	SkippedTicks int       `json:"skipped_ticks"`
	UpdatedAt    time.Time `json:"updated_at"`
}
