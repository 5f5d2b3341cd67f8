// Package main hosts the PodVision CLI entrypoint and command graph.
//
// The Cobra-based command tree turns terminal invocations into calls against
// the rendering service: submitting an audio file with its speaker-to-avatar
// mapping, following a job until it finishes, and fetching the rendered video.
// It centralizes configuration resolution and logger setup so subcommands can
// focus on presentation.
//
// Keep this package lean: behavior lives in the internal packages and is only
// surfaced here through commands and flags.
package main
