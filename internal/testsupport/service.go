package testsupport

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// StatusStep is one scripted /job-status response. A non-zero Code sends an
// error body instead of a status payload.
type StatusStep struct {
	Status     string
	Progress   *float64
	OutputPath string
	Code       int
	Message    string
}

// Progress is a helper for building StatusStep values.
func Progress(v float64) *float64 { return &v }

// Submission records what a client posted to /submit-job.
type Submission struct {
	Filename       string
	Audio          []byte
	SpeakerMapping string
	RequestID      string
}

// FakeService is an httptest server speaking the rendering service protocol.
// Status responses follow the script; the last step repeats once exhausted.
type FakeService struct {
	Server *httptest.Server

	mu          sync.Mutex
	jobID       string
	submitCode  int
	script      []StatusStep
	polls       int
	submissions []Submission
	artifact    []byte
	downloads   int
}

// NewFakeService starts a fake service that issues jobID on submission.
func NewFakeService(t testing.TB, jobID string, script ...StatusStep) *FakeService {
	t.Helper()
	f := &FakeService{
		jobID:    jobID,
		script:   script,
		artifact: []byte("fake-mp4-bytes"),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /submit-job", f.handleSubmit)
	mux.HandleFunc("GET /job-status/{id}", f.handleStatus)
	mux.HandleFunc("GET /download/{id}", f.handleDownload)
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the base URL of the fake service.
func (f *FakeService) URL() string { return f.Server.URL }

// FailSubmissions makes /submit-job answer with code.
func (f *FakeService) FailSubmissions(code int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitCode = code
}

// SetArtifact replaces the bytes served by /download.
func (f *FakeService) SetArtifact(data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.artifact = append([]byte(nil), data...)
}

// Submissions returns the recorded submissions.
func (f *FakeService) Submissions() []Submission {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Submission(nil), f.submissions...)
}

// Polls reports how many status requests were served.
func (f *FakeService) Polls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls
}

// Downloads reports how many artifact requests were served.
func (f *FakeService) Downloads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.downloads
}

func (f *FakeService) handleSubmit(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	code := f.submitCode
	f.mu.Unlock()
	if code != 0 {
		writeJSONError(w, code, "submission rejected")
		return
	}
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid form")
		return
	}
	file, header, err := r.FormFile("audio_file")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "audio_file is required")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "read audio_file")
		return
	}

	f.mu.Lock()
	f.submissions = append(f.submissions, Submission{
		Filename:       header.Filename,
		Audio:          data,
		SpeakerMapping: r.FormValue("speaker_mapping"),
		RequestID:      r.Header.Get("X-Request-ID"),
	})
	id := f.jobID
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"job_id": id})
}

func (f *FakeService) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	f.mu.Lock()
	if id != f.jobID {
		f.mu.Unlock()
		writeJSONError(w, http.StatusNotFound, "Job not found")
		return
	}
	step := StatusStep{Status: "processing"}
	if len(f.script) > 0 {
		idx := min(f.polls, len(f.script)-1)
		step = f.script[idx]
	}
	f.polls++
	f.mu.Unlock()

	if step.Code != 0 {
		writeJSONError(w, step.Code, step.Message)
		return
	}
	body := map[string]any{"status": step.Status}
	if step.Progress != nil {
		body["progress"] = *step.Progress
	}
	if step.OutputPath != "" {
		body["output_path"] = step.OutputPath
	}
	writeJSON(w, http.StatusOK, body)
}

func (f *FakeService) handleDownload(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	f.mu.Lock()
	if id != f.jobID {
		f.mu.Unlock()
		writeJSONError(w, http.StatusNotFound, "Job not found")
		return
	}
	f.downloads++
	data := f.artifact
	f.mu.Unlock()

	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="podcast_%s.mp4"`, id))
	w.Header().Set("Content-Length", fmt.Sprint(len(data)))
	_, _ = w.Write(data)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, code int, message string) {
	if strings.TrimSpace(message) == "" {
		message = http.StatusText(code)
	}
	writeJSON(w, code, map[string]string{"detail": message})
}
