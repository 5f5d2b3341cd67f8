package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"podvision/internal/api"
	"podvision/internal/avatar"
	"podvision/internal/logging"
	"podvision/internal/services"
)

// User-facing outcome messages.
const (
	MsgNoFile       = "Please select an audio file."
	MsgSubmitFailed = "Failed to submit. Please try again."
	MsgSubmitted    = "Job submitted successfully!"
)

var (
	// ErrSubmitInFlight rejects a second submission while one is pending.
	ErrSubmitInFlight = errors.New("submission already in flight")
	// ErrFormBusy rejects edits while a submission is pending.
	ErrFormBusy = errors.New("form is busy submitting")
)

// OutcomeKind classifies the result of the last submission attempt.
type OutcomeKind int

const (
	OutcomeNone OutcomeKind = iota
	OutcomeSuccess
	OutcomeError
)

// Outcome is the user-visible result of the last submission attempt.
type Outcome struct {
	Kind    OutcomeKind
	Message string
}

// State is an immutable snapshot of the form for rendering.
type State struct {
	File       *Audio
	Mapping    avatar.Mapping
	Submitting bool
	Outcome    Outcome
}

// SubmitFunc performs the actual submission, usually the job monitor.
type SubmitFunc func(ctx context.Context, sub api.JobSubmission) error

// Form collects an audio file and speaker mapping.
type Form struct {
	mu         sync.Mutex
	catalog    avatar.Catalog
	file       *Audio
	mapping    avatar.Mapping
	submitting bool
	outcome    Outcome
	logger     *slog.Logger
}

// NewForm returns a form seeded with mapping (the default mapping when empty).
func NewForm(catalog avatar.Catalog, mapping avatar.Mapping, logger *slog.Logger) *Form {
	if len(mapping) == 0 {
		mapping = avatar.DefaultMapping()
	}
	return &Form{
		catalog: catalog,
		mapping: mapping.Clone(),
		logger:  logging.NewComponentLogger(logger, "upload"),
	}
}

// SelectFile selects the audio file at path.
func (f *Form) SelectFile(path string) error {
	audio, err := AudioFromFile(path)
	if err != nil {
		return err
	}
	return f.SelectAudio(audio)
}

// SelectAudio replaces the file selection and clears the last outcome.
func (f *Form) SelectAudio(audio Audio) error {
	if audio.Open == nil {
		return services.Wrap(services.ErrValidation, "select audio", "audio source is not readable", nil)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitting {
		return ErrFormBusy
	}
	f.file = &audio
	f.outcome = Outcome{}
	f.logger.Debug("audio selected",
		logging.String("name", audio.Name),
		logging.Int64("size", audio.Size),
		logging.String("digest", audio.ShortDigest()),
	)
	return nil
}

// SetAvatar assigns model to speaker, leaving every other entry and the file
// selection untouched. The last outcome is cleared.
func (f *Form) SetAvatar(speaker, model string) error {
	if speaker == "" {
		return services.Wrap(services.ErrValidation, "set avatar", "speaker label is required", nil)
	}
	if !f.catalog.Contains(model) {
		return services.Wrap(services.ErrValidation, "set avatar", fmt.Sprintf("unknown avatar model %q", model), nil)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitting {
		return ErrFormBusy
	}
	f.mapping[speaker] = model
	f.outcome = Outcome{}
	return nil
}

// Submit validates the form and hands the payload to fn. Without a file it
// records MsgNoFile and returns an ErrValidation error without calling fn.
func (f *Form) Submit(ctx context.Context, fn SubmitFunc) error {
	f.mu.Lock()
	if f.submitting {
		f.mu.Unlock()
		return ErrSubmitInFlight
	}
	if f.file == nil {
		f.outcome = Outcome{Kind: OutcomeError, Message: MsgNoFile}
		f.mu.Unlock()
		return services.Wrap(services.ErrValidation, "submit", MsgNoFile, nil)
	}
	if err := f.mapping.Validate(f.catalog); err != nil {
		f.outcome = Outcome{Kind: OutcomeError, Message: err.Error()}
		f.mu.Unlock()
		return err
	}
	mapping, err := f.mapping.Serialize()
	if err != nil {
		f.mu.Unlock()
		return err
	}
	audio := *f.file
	f.submitting = true
	f.mu.Unlock()

	err = f.send(ctx, fn, audio, mapping)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitting = false
	if err != nil {
		f.outcome = Outcome{Kind: OutcomeError, Message: MsgSubmitFailed}
		f.logger.Warn("submission failed",
			logging.String("audio", audio.Name),
			logging.Error(err),
			logging.String(logging.FieldEventType, "submit_failed"),
		)
		return err
	}
	f.outcome = Outcome{Kind: OutcomeSuccess, Message: MsgSubmitted}
	return nil
}

func (f *Form) send(ctx context.Context, fn SubmitFunc, audio Audio, mapping string) error {
	reader, err := audio.Open()
	if err != nil {
		return services.Wrap(services.ErrValidation, "submit", fmt.Sprintf("open %s", audio.Name), err)
	}
	defer reader.Close()
	return fn(ctx, api.JobSubmission{
		AudioName:      audio.Name,
		Audio:          reader,
		AudioSize:      audio.Size,
		SpeakerMapping: mapping,
	})
}

// State returns a snapshot of the form.
func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := State{
		Mapping:    f.mapping.Clone(),
		Submitting: f.submitting,
		Outcome:    f.outcome,
	}
	if f.file != nil {
		file := *f.file
		st.File = &file
	}
	return st
}

// Catalog returns the avatar catalog the form validates against.
func (f *Form) Catalog() avatar.Catalog { return f.catalog }
