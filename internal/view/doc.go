// Package view renders the client's state to a terminal: the submission form,
// the job monitor's progress and the download action once a job completes.
//
// Output is line oriented so it stays readable when redirected; ANSI colors and
// the live progress bar are only used when the writer is a terminal.
package view
