// Package upload implements the submission form: one audio file plus a
// speaker-to-avatar mapping, validated locally before anything reaches the
// network.
//
// A Form is safe for concurrent use. While a submission is in flight the form
// rejects edits and further submissions, mirroring a disabled input.
package upload
