// Package api is the HTTP client for the PodVision rendering service.
//
// It wraps the three remote calls the client needs:
//
//	POST /submit-job           multipart audio_file + speaker_mapping -> {"job_id"}
//	GET  /job-status/{jobId}   -> {"status", "progress", "output_path"}
//	GET  /download/{jobId}     -> rendered video
//
// Failures are tagged with the services markers: ErrTransport for network
// problems, ErrServer for non-2xx responses (as *StatusError) and malformed
// bodies. Status fetches and downloads may be retried with bounded exponential
// backoff when a RetryPolicy allows more than one attempt; submissions never
// are, because the endpoint is not idempotent.
//
// Downloads are delivered through a Sink: BrowserSink opens the artifact URL,
// FileSink streams the body to a local file atomically.
package api
