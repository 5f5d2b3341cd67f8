// Package config loads, normalizes, and validates PodVision client configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and overlays PODVISION_* environment settings
// (optionally sourced from a .env file). The Config type centralizes every knob
// the CLI needs: the API base URL, polling cadence, the optional retry policy,
// the avatar catalog and default speaker mapping, download placement, logging
// and error reporting.
//
// Always obtain settings through this package so downstream code receives
// trimmed URLs, canonical log formats, and clear validation errors.
package config
