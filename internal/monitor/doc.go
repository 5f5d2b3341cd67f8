// Package monitor owns the lifecycle of the single job the client tracks.
//
// A Monitor moves through Idle, Submitting, Polling and one of the terminal
// states Completed, Failed or Errored. While Polling, a background task asks
// the service for the job's status every PollInterval. The task is
// single-flight: a tick that fires while the previous fetch is outstanding is
// skipped rather than stacked.
//
// Every fetch remembers the job generation it was issued for. Results that
// arrive after the job was replaced, reached a terminal state or the monitor
// was stopped are discarded, so a late response can never mutate a newer job.
//
// Observers read immutable Snapshots via Snapshot, Subscribe or Wait; only the
// monitor mutates job state.
package monitor
