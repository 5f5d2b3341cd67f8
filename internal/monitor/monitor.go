package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"podvision/internal/api"
	"podvision/internal/exceptions"
	"podvision/internal/logging"
	"podvision/internal/services"
)

const (
	// DefaultPollInterval matches the service's expected polling cadence.
	DefaultPollInterval = 2 * time.Second

	submitErrorPrefix = "Error submitting job: "
	fetchErrorPrefix  = "Error fetching status: "
)

var (
	// ErrStopped is returned once the monitor has been torn down.
	ErrStopped = errors.New("monitor stopped")
	// ErrSuperseded is returned by Submit when a newer submission replaced it.
	ErrSuperseded = errors.New("submission superseded by a newer job")
	// ErrNoJob is returned by Wait when no job has been started.
	ErrNoJob = errors.New("no job to wait for")
)

// Client is the subset of the API client the monitor drives.
type Client interface {
	SubmitJob(ctx context.Context, sub api.JobSubmission) (api.JobHandle, error)
	FetchJobStatus(ctx context.Context, jobID string) (api.JobStatusSnapshot, error)
}

// Options configures a Monitor.
type Options struct {
	Client       Client
	PollInterval time.Duration
	Logger       *slog.Logger
	Reporter     exceptions.Reporter
	// ManualTick disables the background poll task; callers drive Tick.
	ManualTick bool
}

// Monitor tracks exactly one job at a time.
type Monitor struct {
	client     Client
	interval   time.Duration
	logger     *slog.Logger
	reporter   exceptions.Reporter
	manualTick bool
	sampler    *logging.ProgressSampler

	rootCtx    context.Context
	rootCancel context.CancelFunc
	stopOnce   sync.Once
	// workers tracks poll goroutines across jobs, including ones whose
	// task was already cancelled by a terminal transition.
	workers    sync.WaitGroup

	mu        sync.Mutex
	snap      Snapshot
	inFlight  bool
	closed    bool
	task      *pollTask
	jobCtx    context.Context
	jobCancel context.CancelFunc
	subs      map[int]chan Snapshot
	nextSubID int
	discarded int
}

// New constructs an idle Monitor.
func New(opts Options) (*Monitor, error) {
	if opts.Client == nil {
		return nil, services.Wrap(services.ErrConfiguration, "monitor", "api client is required", nil)
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	reporter := opts.Reporter
	if reporter == nil {
		reporter = exceptions.NoopReporter{}
	}
	rootCtx, rootCancel := context.WithCancel(context.Background())
	m := &Monitor{
		client:     opts.Client,
		interval:   interval,
		logger:     logging.NewComponentLogger(opts.Logger, "monitor"),
		reporter:   reporter,
		manualTick: opts.ManualTick,
		sampler:    logging.NewProgressSampler(10),
		rootCtx:    rootCtx,
		rootCancel: rootCancel,
		subs:       make(map[int]chan Snapshot),
	}
	m.snap = Snapshot{State: Idle, StateName: Idle.String(), UpdatedAt: time.Now()}
	return m, nil
}

// Discarded reports how many status responses were dropped as stale across
// the monitor's lifetime. The count is kept off Snapshot so a late response
// for a replaced job leaves the new job's state untouched.
func (m *Monitor) Discarded() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.discarded
}

// Snapshot returns the current job state.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

// Submit discards any prior job, submits sub and, on success, starts polling
// the new job. Failures leave the monitor Errored with a descriptive message.
func (m *Monitor) Submit(ctx context.Context, sub api.JobSubmission) (api.JobHandle, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return api.JobHandle{}, ErrStopped
	}
	gen := m.resetLocked(Submitting)
	m.mu.Unlock()

	handle, err := m.client.SubmitJob(ctx, sub)

	m.mu.Lock()
	if m.closed || m.snap.Generation != gen {
		m.mu.Unlock()
		m.logger.Info("discarding submit result for replaced job", logging.Int64("generation", int64(gen)))
		if err != nil {
			return api.JobHandle{}, err
		}
		return handle, ErrSuperseded
	}
	if err == nil && strings.TrimSpace(handle.JobID) == "" {
		err = services.Wrap(services.ErrServer, "submit job", "response missing job identifier", nil)
	}
	if err != nil {
		m.setErroredLocked(submitErrorPrefix + err.Error())
		m.mu.Unlock()
		m.report(ctx, err, "")
		logging.ErrorWithContext(m.logger, "job submission failed", "submit_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the service address and that the service is running"),
		)
		return api.JobHandle{}, err
	}
	m.startPollingLocked(handle.JobID, api.StatusProcessing)
	m.mu.Unlock()

	m.logger.Info("job accepted", logging.String(logging.FieldJobID, handle.JobID))
	return handle, nil
}

// Attach starts polling an existing job without submitting anything.
func (m *Monitor) Attach(jobID string) error {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return services.Wrap(services.ErrValidation, "attach", "job id is required", nil)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStopped
	}
	m.resetLocked(Submitting)
	m.startPollingLocked(jobID, api.StatusSubmitted)
	m.logger.Info("attached to job", logging.String(logging.FieldJobID, jobID))
	return nil
}

// resetLocked cancels the current poll task, discards all job state and
// returns the new generation.
func (m *Monitor) resetLocked(state State) uint64 {
	m.cancelTaskLocked()
	m.inFlight = false
	m.sampler.Reset()
	gen := m.snap.Generation + 1
	m.snap = Snapshot{Generation: gen}
	m.setStateLocked(state)
	return gen
}

func (m *Monitor) startPollingLocked(jobID string, status api.Status) {
	m.snap.JobID = jobID
	m.snap.Status = status
	m.snap.Progress = 0
	m.jobCtx, m.jobCancel = context.WithCancel(services.WithJobID(m.rootCtx, jobID))
	m.setStateLocked(Polling)
	if !m.manualTick {
		m.task = startPollTask(m.jobCtx, m.jobCancel, m.interval, &m.workers, m.runTick)
	}
}

// cancelTaskLocked stops the active poll task and cancels requests still in
// flight for the current job. Safe to call repeatedly.
func (m *Monitor) cancelTaskLocked() {
	if m.task != nil {
		m.task.stop()
		m.task = nil
	}
	if m.jobCancel != nil {
		m.jobCancel()
		m.jobCancel = nil
	}
}

func (m *Monitor) setStateLocked(state State) {
	m.snap.State = state
	m.snap.StateName = state.String()
	m.snap.UpdatedAt = time.Now()
	m.publishLocked()
}

func (m *Monitor) setErroredLocked(message string) {
	m.snap.Message = message
	m.cancelTaskLocked()
	m.setStateLocked(Errored)
}

// Tick performs one poll cycle for the current job and reports whether a
// status request was issued. It is a no-op outside Polling and skips while a
// previous fetch is outstanding.
func (m *Monitor) Tick(ctx context.Context) bool {
	req, ok := m.beginFetch()
	if !ok {
		return false
	}
	m.completeFetch(ctx, req)
	return true
}

type fetchRequest struct {
	generation uint64
	jobID      string
}

func (m *Monitor) beginFetch() (fetchRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.snap.State != Polling {
		return fetchRequest{}, false
	}
	if m.inFlight {
		m.snap.SkippedTicks++
		m.logger.Debug("skipping poll tick; previous fetch outstanding",
			logging.String(logging.FieldJobID, m.snap.JobID),
			logging.Int("skipped", m.snap.SkippedTicks),
		)
		return fetchRequest{}, false
	}
	m.inFlight = true
	m.snap.Polls++
	return fetchRequest{generation: m.snap.Generation, jobID: m.snap.JobID}, true
}

func (m *Monitor) completeFetch(ctx context.Context, req fetchRequest) {
	ctx = services.WithJobID(ctx, req.jobID)
	status, err := m.client.FetchJobStatus(ctx, req.jobID)

	m.mu.Lock()
	if m.closed || req.generation != m.snap.Generation || req.jobID != m.snap.JobID {
		m.discarded++
		m.mu.Unlock()
		m.logger.Debug("discarding stale status response",
			logging.String(logging.FieldJobID, req.jobID),
			logging.Int64("generation", int64(req.generation)),
		)
		return
	}
	m.inFlight = false
	if m.snap.State != Polling {
		m.discarded++
		m.mu.Unlock()
		return
	}
	if err != nil {
		m.setErroredLocked(fetchErrorPrefix + err.Error())
		m.mu.Unlock()
		m.report(ctx, err, req.jobID)
		logging.ErrorWithContext(logging.WithContext(ctx, m.logger), "status poll failed; polling stopped", "status_poll_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "resubmit the job or run watch once the service is reachable"),
		)
		return
	}
	if status.JobID != "" && status.JobID != req.jobID {
		m.discarded++
		m.mu.Unlock()
		return
	}
	m.applyStatusLocked(status)
	snap := m.snap
	logProgress := m.sampler.ShouldLog(snap.Progress, string(snap.Status))
	m.mu.Unlock()

	if logProgress {
		logging.WithContext(ctx, m.logger).Info("job status",
			logging.String("status", string(snap.Status)),
			logging.Int("progress", snap.Progress),
			logging.String("state", snap.StateName),
		)
	}
}

func (m *Monitor) applyStatusLocked(status api.JobStatusSnapshot) {
	m.snap.Status = status.Status
	if status.ProgressReported {
		m.snap.Progress = clampProgress(status.Progress)
	}
	switch status.Status {
	case api.StatusCompleted:
		m.snap.OutputPath = status.OutputPath
		m.cancelTaskLocked()
		m.setStateLocked(Completed)
	case api.StatusFailed:
		m.cancelTaskLocked()
		m.setStateLocked(Failed)
	default:
		m.snap.UpdatedAt = time.Now()
		m.publishLocked()
	}
}

func clampProgress(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}

// runTick is the poll task's per-tick callback.
func (m *Monitor) runTick(ctx context.Context, wg *sync.WaitGroup) {
	req, ok := m.beginFetch()
	if !ok {
		return
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		m.completeFetch(ctx, req)
	}()
}

func (m *Monitor) report(ctx context.Context, err error, jobID string) {
	if errors.Is(err, context.Canceled) {
		return
	}
	m.reporter.ReportException(services.WithJobID(ctx, jobID), fmt.Errorf("monitor: %w", err))
}

// Stop tears the monitor down: the poll task is cancelled, outstanding
// responses are ignored and subscribers are closed. It returns once every poll
// goroutine, including error reporting for a job that already ended, has
// finished. Stop is idempotent.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		m.cancelTaskLocked()
		m.rootCancel()
		for id, ch := range m.subs {
			close(ch)
			delete(m.subs, id)
		}
		m.mu.Unlock()
		m.workers.Wait()
		m.logger.Debug("monitor stopped")
	})
}

// Wait blocks until the current job reaches a terminal state, ctx ends or the
// monitor stops.
func (m *Monitor) Wait(ctx context.Context) (Snapshot, error) {
	updates, cancel := m.Subscribe()
	defer cancel()
	for {
		snap := m.Snapshot()
		switch {
		case snap.State.Terminal():
			return snap, nil
		case snap.State == Idle:
			return snap, ErrNoJob
		}
		select {
		case <-ctx.Done():
			return m.Snapshot(), ctx.Err()
		case _, ok := <-updates:
			if !ok {
				return m.Snapshot(), ErrStopped
			}
		}
	}
}
