// Package services defines the shared error markers and context helpers used by
// the API client, the job monitor and the CLI.
//
// Key responsibilities:
//   - Structured error markers (validation, transport, server) plus the Wrap
//     helper so every layer reports failures in the same shape and callers can
//     classify them with errors.Is.
//   - Context helpers that stamp job identifiers and request correlation IDs
//     for logging.
package services
