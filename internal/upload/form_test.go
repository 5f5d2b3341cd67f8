package upload_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"podvision/internal/api"
	"podvision/internal/avatar"
	"podvision/internal/services"
	"podvision/internal/upload"
)

func writeAudio(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "episode.wav")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	return path
}

func newForm() *upload.Form {
	return upload.NewForm(avatar.DefaultCatalog(), nil, nil)
}

func TestSubmitWithoutFileNeverCallsSubmitter(t *testing.T) {
	form := newForm()
	called := false

	err := form.Submit(context.Background(), func(context.Context, api.JobSubmission) error {
		called = true
		return nil
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if called {
		t.Fatal("submitter must not be called without a file")
	}
	st := form.State()
	if st.Outcome.Kind != upload.OutcomeError || st.Outcome.Message != upload.MsgNoFile {
		t.Fatalf("unexpected outcome %+v", st.Outcome)
	}
}

func TestSubmitPackagesFileAndMapping(t *testing.T) {
	form := newForm()
	if err := form.SelectFile(writeAudio(t, "RIFF")); err != nil {
		t.Fatalf("SelectFile returned error: %v", err)
	}

	var got api.JobSubmission
	var body string
	err := form.Submit(context.Background(), func(_ context.Context, sub api.JobSubmission) error {
		got = sub
		data, _ := io.ReadAll(sub.Audio)
		body = string(data)
		return nil
	})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if got.AudioName != "episode.wav" || got.AudioSize != 4 || body != "RIFF" {
		t.Fatalf("unexpected submission %+v body=%q", got, body)
	}
	if got.SpeakerMapping != `{"SPEAKER_00":"male_avatar.glb","SPEAKER_01":"female_avatar.glb"}` {
		t.Fatalf("unexpected mapping %s", got.SpeakerMapping)
	}
	st := form.State()
	if st.Outcome.Kind != upload.OutcomeSuccess || st.Outcome.Message != upload.MsgSubmitted {
		t.Fatalf("unexpected outcome %+v", st.Outcome)
	}
}

func TestSubmitFailureRecordsGenericMessage(t *testing.T) {
	form := newForm()
	if err := form.SelectFile(writeAudio(t, "x")); err != nil {
		t.Fatalf("SelectFile returned error: %v", err)
	}
	boom := errors.New("connection refused")
	err := form.Submit(context.Background(), func(context.Context, api.JobSubmission) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected submitter error, got %v", err)
	}
	st := form.State()
	if st.Outcome.Kind != upload.OutcomeError || st.Outcome.Message != upload.MsgSubmitFailed {
		t.Fatalf("unexpected outcome %+v", st.Outcome)
	}
	if st.Submitting {
		t.Fatal("expected form to leave the submitting state")
	}
}

func TestSetAvatarClearsErrorWithoutNetwork(t *testing.T) {
	form := newForm()
	path := writeAudio(t, "x")
	if err := form.SelectFile(path); err != nil {
		t.Fatalf("SelectFile returned error: %v", err)
	}
	calls := 0
	_ = form.Submit(context.Background(), func(context.Context, api.JobSubmission) error {
		calls++
		return errors.New("down")
	})

	if err := form.SetAvatar("SPEAKER_01", avatar.MaleModel); err != nil {
		t.Fatalf("SetAvatar returned error: %v", err)
	}
	st := form.State()
	if st.Outcome.Kind != upload.OutcomeNone {
		t.Fatalf("expected outcome cleared, got %+v", st.Outcome)
	}
	if calls != 1 {
		t.Fatalf("editing must not submit, saw %d calls", calls)
	}
	want := avatar.Mapping{"SPEAKER_00": avatar.MaleModel, "SPEAKER_01": avatar.MaleModel}
	if diff := cmp.Diff(want, st.Mapping); diff != "" {
		t.Fatalf("mapping mismatch (-want +got):\n%s", diff)
	}
	if st.File == nil || st.File.Path != path {
		t.Fatalf("file selection should be untouched, got %+v", st.File)
	}
}

func TestSetAvatarRejectsUnknownModel(t *testing.T) {
	form := newForm()
	err := form.SetAvatar("SPEAKER_00", "dragon.glb")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if form.State().Mapping["SPEAKER_00"] != avatar.MaleModel {
		t.Fatal("mapping changed despite validation failure")
	}
}

func TestSubmitWhileInFlightIsRejected(t *testing.T) {
	form := newForm()
	if err := form.SelectFile(writeAudio(t, "x")); err != nil {
		t.Fatalf("SelectFile returned error: %v", err)
	}
	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- form.Submit(context.Background(), func(context.Context, api.JobSubmission) error {
			close(entered)
			<-release
			return nil
		})
	}()

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("submitter was not called")
	}
	if !form.State().Submitting {
		t.Fatal("expected submitting state while in flight")
	}
	second := form.Submit(context.Background(), func(context.Context, api.JobSubmission) error {
		t.Error("second submitter must not run")
		return nil
	})
	if !errors.Is(second, upload.ErrSubmitInFlight) {
		t.Fatalf("expected ErrSubmitInFlight, got %v", second)
	}
	if err := form.SetAvatar("SPEAKER_00", avatar.FemaleModel); !errors.Is(err, upload.ErrFormBusy) {
		t.Fatalf("expected ErrFormBusy for edits in flight, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first submit returned error: %v", err)
	}
}

func TestSelectFileFingerprintsContent(t *testing.T) {
	form := newForm()
	path := writeAudio(t, "hello podcast")
	if err := form.SelectFile(path); err != nil {
		t.Fatalf("SelectFile returned error: %v", err)
	}
	file := form.State().File
	if file == nil {
		t.Fatal("expected file selection")
	}
	if file.Size != int64(len("hello podcast")) || len(file.Digest) != 64 {
		t.Fatalf("unexpected audio metadata %+v", file)
	}
	if len(file.ShortDigest()) != 12 || !strings.HasPrefix(file.Digest, file.ShortDigest()) {
		t.Fatalf("unexpected short digest %q", file.ShortDigest())
	}

	other, err := upload.AudioFromFile(writeAudio(t, "different"))
	if err != nil {
		t.Fatalf("AudioFromFile returned error: %v", err)
	}
	if other.Digest == file.Digest {
		t.Fatal("different content should produce different digests")
	}
}

func TestSelectFileRejectsMissingAndDirectories(t *testing.T) {
	form := newForm()
	if err := form.SelectFile(filepath.Join(t.TempDir(), "nope.wav")); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for missing file, got %v", err)
	}
	if err := form.SelectFile(t.TempDir()); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for directory, got %v", err)
	}
	if form.State().File != nil {
		t.Fatal("failed selection must not change the form")
	}
}

func TestNewFormCopiesMapping(t *testing.T) {
	seed := avatar.Mapping{"HOST": avatar.FemaleModel}
	form := upload.NewForm(avatar.DefaultCatalog(), seed, nil)
	seed["HOST"] = avatar.MaleModel
	if form.State().Mapping["HOST"] != avatar.FemaleModel {
		t.Fatal("form must not alias the seed mapping")
	}
}
