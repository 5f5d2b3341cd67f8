package view

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"podvision/internal/api"
	"podvision/internal/avatar"
	"podvision/internal/monitor"
	"podvision/internal/services"
	"podvision/internal/upload"
)

func plainView(buf *bytes.Buffer, d Downloader, sink api.Sink, auto bool) *View {
	off := false
	return New(Options{Out: buf, Color: &off, ShowProgress: &off, Downloader: d, Sink: sink, AutoDownload: auto})
}

type fakeDownloader struct {
	mu    sync.Mutex
	calls []string
	sinks []api.Sink
	err   error
}

func (f *fakeDownloader) DownloadArtifact(_ context.Context, jobID string, sink api.Sink) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, jobID)
	f.sinks = append(f.sinks, sink)
	if f.err != nil {
		return "", f.err
	}
	return filepath.Join("/downloads", api.DefaultArtifactName(jobID)), nil
}

func (f *fakeDownloader) ArtifactURL(jobID string) string {
	return "http://render.local/download/" + jobID
}

type scriptedClient struct {
	mu       sync.Mutex
	statuses []api.JobStatusSnapshot
}

func (c *scriptedClient) SubmitJob(context.Context, api.JobSubmission) (api.JobHandle, error) {
	return api.JobHandle{JobID: "job-9"}, nil
}

func (c *scriptedClient) FetchJobStatus(_ context.Context, jobID string) (api.JobStatusSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.statuses) == 0 {
		return api.JobStatusSnapshot{JobID: jobID, Status: api.StatusProcessing}, nil
	}
	next := c.statuses[0]
	c.statuses = c.statuses[1:]
	next.JobID = jobID
	return next, nil
}

func requireContains(t *testing.T, output string, parts ...string) {
	t.Helper()
	for _, part := range parts {
		if !strings.Contains(output, part) {
			t.Fatalf("expected %q in output:\n%s", part, output)
		}
	}
}

func TestRenderPollingAndCompletion(t *testing.T) {
	var buf bytes.Buffer
	v := plainView(&buf, &fakeDownloader{}, nil, false)

	v.Render(monitor.Snapshot{State: monitor.Polling, Generation: 1, JobID: "j1", Status: api.StatusProcessing})
	v.Render(monitor.Snapshot{State: monitor.Polling, Generation: 1, JobID: "j1", Status: api.StatusProcessing})
	v.Render(monitor.Snapshot{State: monitor.Polling, Generation: 1, JobID: "j1", Status: api.StatusProcessing, Progress: 40})
	v.Render(monitor.Snapshot{State: monitor.Completed, Generation: 1, JobID: "j1", Status: api.StatusCompleted, Progress: 40, OutputPath: "outputs/podcast_j1.mp4"})

	out := buf.String()
	requireContains(t, out,
		"== Job ID: j1 ==",
		"[INFO] processing",
		"[INFO] 0%",
		"[INFO] 40%",
		"[OK] completed",
		"outputs/podcast_j1.mp4",
		"http://render.local/download/j1",
	)
	if strings.Count(out, "[INFO] 0%") != 1 {
		t.Fatalf("duplicate snapshot should not re-render:\n%s", out)
	}
}

func TestRenderFailureStates(t *testing.T) {
	var buf bytes.Buffer
	v := plainView(&buf, nil, nil, false)

	v.Render(monitor.Snapshot{State: monitor.Failed, Generation: 1, JobID: "j1", Status: api.StatusFailed})
	v.Render(monitor.Snapshot{State: monitor.Errored, Generation: 2, Message: "Error fetching status: transport error"})

	requireContains(t, buf.String(), "[ERROR] failed", "[ERROR] Error fetching status: transport error")
}

func TestRunWithoutFileShowsValidationMessage(t *testing.T) {
	var buf bytes.Buffer
	v := plainView(&buf, nil, nil, false)
	client := &scriptedClient{}
	mon, err := monitor.New(monitor.Options{Client: client, ManualTick: true})
	if err != nil {
		t.Fatalf("monitor.New returned error: %v", err)
	}
	defer mon.Stop()
	form := upload.NewForm(avatar.DefaultCatalog(), nil, nil)

	_, err = v.Run(context.Background(), form, mon, mon)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	requireContains(t, buf.String(), "none selected", upload.MsgNoFile, "SPEAKER_00", "Male Avatar")
	if mon.Snapshot().State != monitor.Idle {
		t.Fatal("monitor must stay idle after a local validation failure")
	}
}

func TestRunFollowsJobAndDownloads(t *testing.T) {
	var buf bytes.Buffer
	downloader := &fakeDownloader{}
	sink := api.FileSink{Dir: t.TempDir()}
	v := plainView(&buf, downloader, sink, true)

	client := &scriptedClient{statuses: []api.JobStatusSnapshot{
		{Status: api.StatusProcessing, Progress: 25, ProgressReported: true},
		{Status: api.StatusCompleted, Progress: 100, ProgressReported: true, OutputPath: "outputs/podcast_job-9.mp4"},
	}}
	mon, err := monitor.New(monitor.Options{Client: client, PollInterval: 5 * time.Millisecond})
	if err != nil {
		t.Fatalf("monitor.New returned error: %v", err)
	}
	defer mon.Stop()

	audioPath := filepath.Join(t.TempDir(), "talk.mp3")
	if err := os.WriteFile(audioPath, []byte("ID3"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	form := upload.NewForm(avatar.DefaultCatalog(), nil, nil)
	if err := form.SelectFile(audioPath); err != nil {
		t.Fatalf("SelectFile returned error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap, err := v.Run(ctx, form, mon, mon)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if snap.State != monitor.Completed || snap.JobID != "job-9" {
		t.Fatalf("unexpected final snapshot %+v", snap)
	}
	if len(downloader.calls) != 1 || downloader.calls[0] != "job-9" {
		t.Fatalf("expected one download for job-9, got %v", downloader.calls)
	}
	if _, ok := downloader.sinks[0].(api.FileSink); !ok {
		t.Fatalf("expected the configured file sink, got %T", downloader.sinks[0])
	}
	requireContains(t, buf.String(),
		"talk.mp3 (3 B",
		upload.MsgSubmitted,
		"== Job ID: job-9 ==",
		"[OK] completed",
		"saved to /downloads/podcast_job-9.mp4",
	)
}

func TestDownloadReportsFailure(t *testing.T) {
	var buf bytes.Buffer
	downloader := &fakeDownloader{err: errors.New("Video not available")}
	v := plainView(&buf, downloader, api.BrowserSink{}, false)

	if _, err := v.Download(context.Background(), "j1"); err == nil {
		t.Fatal("expected download error")
	}
	requireContains(t, buf.String(), "[ERROR] Video not available")
}

func TestFollowStopsWhenMonitorStops(t *testing.T) {
	var buf bytes.Buffer
	v := plainView(&buf, nil, nil, false)
	mon, err := monitor.New(monitor.Options{Client: &scriptedClient{}, ManualTick: true})
	if err != nil {
		t.Fatalf("monitor.New returned error: %v", err)
	}
	if err := mon.Attach("job-1"); err != nil {
		t.Fatalf("Attach returned error: %v", err)
	}
	go func() {
		time.Sleep(10 * time.Millisecond)
		mon.Stop()
	}()
	if _, err := v.Follow(context.Background(), mon); !errors.Is(err, monitor.ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
}

func TestRenderStatusLineColorize(t *testing.T) {
	plain := renderStatusLine("Status", statusOK, "completed", false)
	if strings.Contains(plain, "\x1b[") {
		t.Fatalf("unexpected ANSI codes in %q", plain)
	}
	colored := renderStatusLine("Status", statusError, "failed", true)
	if !strings.HasPrefix(colored, ansiRed) || !strings.HasSuffix(colored, ansiReset) {
		t.Fatalf("expected red status line, got %q", colored)
	}
}

func TestCatalogTableMarksDefaults(t *testing.T) {
	out := CatalogTable(avatar.NewCatalog(avatar.MaleModel, avatar.FemaleModel, "robot.glb"), avatar.DefaultMapping())
	requireContains(t, out, "Male Avatar", "SPEAKER_00", "SPEAKER_01", "Robot")
}

func TestRenderJobStatus(t *testing.T) {
	var buf bytes.Buffer
	v := plainView(&buf, &fakeDownloader{}, nil, false)

	v.RenderJobStatus(api.JobStatusSnapshot{JobID: "abc", Status: api.StatusProcessing})
	out := buf.String()
	requireContains(t, out, "Job ID: abc", "[INFO] processing")
	if strings.Contains(out, "Progress:") {
		t.Fatalf("expected progress to be omitted when unreported:\n%s", out)
	}

	buf.Reset()
	v.RenderJobStatus(api.JobStatusSnapshot{JobID: "abc", Status: api.StatusCompleted, Progress: 100, ProgressReported: true, OutputPath: "/out/abc.mp4"})
	requireContains(t, buf.String(), "[OK] completed", "100%", "/out/abc.mp4", "http://render.local/download/abc")
}

func TestRenderJobStatusFlagsTerminalStates(t *testing.T) {
	var buf bytes.Buffer
	v := plainView(&buf, &fakeDownloader{}, nil, false)

	v.RenderJobStatus(api.JobStatusSnapshot{JobID: "f1", Status: api.StatusFailed})
	requireContains(t, buf.String(), "[ERROR] failed")
	if strings.Contains(buf.String(), "Download:") {
		t.Fatalf("failed job must not offer a download:\n%s", buf.String())
	}

	buf.Reset()
	v.RenderJobStatus(api.JobStatusSnapshot{JobID: "s1", Status: api.StatusSubmitted})
	requireContains(t, buf.String(), "[INFO] submitted")
}
