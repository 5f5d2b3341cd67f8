package view

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"

	"podvision/internal/api"
	"podvision/internal/logging"
	"podvision/internal/monitor"
	"podvision/internal/upload"
)

// JobSource is the read side of the job monitor.
type JobSource interface {
	Snapshot() monitor.Snapshot
	Subscribe() (<-chan monitor.Snapshot, func())
}

// Submitter starts a job; *monitor.Monitor implements it.
type Submitter interface {
	Submit(ctx context.Context, sub api.JobSubmission) (api.JobHandle, error)
}

// Downloader delivers a completed job's artifact; *api.Client implements it.
type Downloader interface {
	DownloadArtifact(ctx context.Context, jobID string, sink api.Sink) (string, error)
	ArtifactURL(jobID string) string
}

// Options configures a View.
type Options struct {
	Out io.Writer
	// Color and ShowProgress default to whether Out is a terminal.
	Color        *bool
	ShowProgress *bool
	Downloader   Downloader
	// Sink, when set with AutoDownload, receives the artifact on completion.
	Sink         api.Sink
	AutoDownload bool
	Logger       *slog.Logger
}

// View renders form and job state.
type View struct {
	out          io.Writer
	color        bool
	showProgress bool
	downloader   Downloader
	sink         api.Sink
	autoDownload bool
	logger       *slog.Logger

	last rendered
	bar  *progressbar.ProgressBar
}

type rendered struct {
	generation uint64
	state      monitor.State
	status     api.Status
	progress   int
	valid      bool
}

// New constructs a View.
func New(opts Options) *View {
	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	tty := IsTerminal(out)
	color, progress := tty, tty
	if opts.Color != nil {
		color = *opts.Color
	}
	if opts.ShowProgress != nil {
		progress = *opts.ShowProgress
	}
	return &View{
		out:          out,
		color:        color,
		showProgress: progress,
		downloader:   opts.Downloader,
		sink:         opts.Sink,
		autoDownload: opts.AutoDownload,
		logger:       logging.NewComponentLogger(opts.Logger, "view"),
	}
}

func (v *View) println(line string) {
	fmt.Fprintln(v.out, line)
}

// RenderForm prints the pending submission.
func (v *View) RenderForm(st upload.State) {
	for _, line := range renderSectionHeader("PodVision submission", v.color) {
		v.println(line)
	}
	if st.File != nil {
		v.println(renderStatusLine("Audio", statusInfo,
			fmt.Sprintf("%s (%s, blake3 %s)", st.File.Name, humanize.IBytes(uint64(max(st.File.Size, 0))), st.File.ShortDigest()), v.color))
	} else {
		v.println(renderStatusLine("Audio", statusWarn, "none selected", v.color))
	}
	v.println(MappingTable(st.Mapping))
	v.renderOutcome(st.Outcome)
}

func (v *View) renderOutcome(o upload.Outcome) {
	switch o.Kind {
	case upload.OutcomeSuccess:
		v.println(renderStatusLine("Submit", statusOK, o.Message, v.color))
	case upload.OutcomeError:
		v.println(renderStatusLine("Submit", statusError, o.Message, v.color))
	}
}

// Run submits the form through sub and follows the job to a terminal state.
func (v *View) Run(ctx context.Context, form *upload.Form, sub Submitter, jobs JobSource) (monitor.Snapshot, error) {
	v.RenderForm(form.State())
	err := form.Submit(ctx, func(ctx context.Context, payload api.JobSubmission) error {
		_, err := sub.Submit(ctx, payload)
		return err
	})
	v.renderOutcome(form.State().Outcome)
	if err != nil {
		snap := jobs.Snapshot()
		if snap.State == monitor.Errored {
			v.Render(snap)
		}
		return snap, err
	}
	return v.Follow(ctx, jobs)
}

// Follow renders monitor updates until the job is terminal, then downloads
// the artifact when configured to.
func (v *View) Follow(ctx context.Context, jobs JobSource) (monitor.Snapshot, error) {
	updates, cancel := jobs.Subscribe()
	defer cancel()

	snap := jobs.Snapshot()
	for {
		v.Render(snap)
		if snap.State.Terminal() {
			break
		}
		if snap.State == monitor.Idle {
			return snap, monitor.ErrNoJob
		}
		select {
		case <-ctx.Done():
			v.finishBar(false)
			return jobs.Snapshot(), ctx.Err()
		case next, ok := <-updates:
			if !ok {
				v.finishBar(false)
				return jobs.Snapshot(), monitor.ErrStopped
			}
			snap = next
		}
	}

	if snap.State == monitor.Completed && v.autoDownload {
		if _, err := v.Download(ctx, snap.JobID); err != nil {
			return snap, err
		}
	}
	return snap, nil
}

// Render prints snap if it differs from what was last shown.
func (v *View) Render(snap monitor.Snapshot) {
	cur := rendered{generation: snap.Generation, state: snap.State, status: snap.Status, progress: snap.Progress, valid: true}
	if v.last == cur {
		return
	}
	prev := v.last
	v.last = cur
	stateChanged := !prev.valid || prev.generation != cur.generation || prev.state != cur.state

	switch snap.State {
	case monitor.Idle:
		if stateChanged {
			v.println(renderStatusLine("Job", statusInfo, "no job submitted", v.color))
		}
	case monitor.Submitting:
		if stateChanged {
			v.println(renderStatusLine("Job", statusInfo, "submitting...", v.color))
		}
	case monitor.Polling:
		if stateChanged {
			for _, line := range renderSectionHeader("Job ID: "+snap.JobID, v.color) {
				v.println(line)
			}
			v.println(renderStatusLine("Status", statusInfo, statusLabel(snap.Status), v.color))
		} else if prev.status != cur.status && !v.showProgress {
			v.println(renderStatusLine("Status", statusInfo, statusLabel(snap.Status), v.color))
		}
		v.renderProgress(snap, prev)
	case monitor.Completed:
		v.finishBar(true)
		v.println(renderStatusLine("Status", statusOK, "completed", v.color))
		if snap.OutputPath != "" {
			v.println(renderStatusLine("Output", statusInfo, snap.OutputPath, v.color))
		}
		if v.downloader != nil {
			v.println(renderStatusLine("Download", statusInfo, v.downloader.ArtifactURL(snap.JobID), v.color))
		}
	case monitor.Failed:
		v.finishBar(false)
		v.println(renderStatusLine("Status", statusError, "failed: the service could not render this job", v.color))
	case monitor.Errored:
		v.finishBar(false)
		v.println(renderStatusLine("Status", statusError, snap.Message, v.color))
	}
}

// RenderJobStatus prints a single status response without tracking it.
func (v *View) RenderJobStatus(s api.JobStatusSnapshot) {
	for _, line := range renderSectionHeader("Job ID: "+s.JobID, v.color) {
		v.println(line)
	}
	kind := statusInfo
	if s.Status.Terminal() {
		kind = statusOK
		if s.Status == api.StatusFailed {
			kind = statusError
		}
	}
	v.println(renderStatusLine("Status", kind, statusLabel(s.Status), v.color))
	if s.ProgressReported {
		v.println(renderStatusLine("Progress", statusInfo, fmt.Sprintf("%d%%", s.Progress), v.color))
	}
	if s.OutputPath != "" {
		v.println(renderStatusLine("Output", statusInfo, s.OutputPath, v.color))
	}
	if s.Status == api.StatusCompleted && v.downloader != nil {
		v.println(renderStatusLine("Download", statusInfo, v.downloader.ArtifactURL(s.JobID), v.color))
	}
}

func (v *View) renderProgress(snap monitor.Snapshot, prev rendered) {
	if v.showProgress {
		if v.bar == nil {
			v.bar = progressbar.NewOptions(100,
				progressbar.OptionSetWriter(v.out),
				progressbar.OptionSetDescription("rendering"),
				progressbar.OptionSetWidth(30),
				progressbar.OptionSetPredictTime(false),
				progressbar.OptionSetRenderBlankState(true),
			)
		}
		v.bar.Describe(statusLabel(snap.Status))
		if err := v.bar.Set(snap.Progress); err != nil {
			v.logger.Debug("progress bar update failed", logging.Error(err))
		}
		return
	}
	if !prev.valid || prev.generation != snap.Generation || prev.state != snap.State || prev.progress != snap.Progress {
		v.println(renderStatusLine("Progress", statusInfo, fmt.Sprintf("%d%%", snap.Progress), v.color))
	}
}

func (v *View) finishBar(complete bool) {
	if v.bar == nil {
		return
	}
	if complete {
		_ = v.bar.Finish()
	}
	fmt.Fprintln(v.out)
	v.bar = nil
}

// Download delivers the artifact of jobID through the configured sink (the
// browser when none is set) and reports where it went.
func (v *View) Download(ctx context.Context, jobID string) (string, error) {
	if v.downloader == nil {
		return "", errors.New("no downloader configured")
	}
	sink := v.sink
	if fs, ok := sink.(api.FileSink); ok && fs.Progress == nil && v.showProgress {
		fs.Progress = v.downloadProgress
		sink = fs
	}
	location, err := v.downloader.DownloadArtifact(ctx, jobID, sink)
	if err != nil {
		v.println(renderStatusLine("Download", statusError, err.Error(), v.color))
		return "", err
	}
	label := "saved to " + location
	if _, isFile := sink.(api.FileSink); !isFile {
		label = "opened " + location
	}
	v.println(renderStatusLine("Download", statusOK, label, v.color))
	return location, nil
}

func (v *View) downloadProgress(total int64) io.Writer {
	return progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(v.out),
		progressbar.OptionSetDescription("downloading"),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(30),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(v.out) }),
	)
}

func statusLabel(s api.Status) string {
	if s == "" {
		return "pending"
	}
	return strings.ToLower(string(s))
}
