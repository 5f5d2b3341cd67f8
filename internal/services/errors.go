package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks local input problems; these never reach the network.
	ErrValidation = errors.New("validation error")
	// ErrTransport marks network or connectivity failures talking to the API.
	ErrTransport = errors.New("transport error")
	// ErrServer marks non-success HTTP statuses and malformed response bodies.
	ErrServer        = errors.New("server error")
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes operation context while tagging it
// with the provided marker for later classification. The marker should be one of
// the exported sentinel errors above.
func Wrap(marker error, operation, message string, err error) error {
	detail := buildDetail(operation, message)
	if marker == nil {
		marker = ErrTransport
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify returns the marker carried by err, or nil when err is untagged.
func Classify(err error) error {
	for _, marker := range []error{ErrValidation, ErrTransport, ErrServer, ErrConfiguration} {
		if errors.Is(err, marker) {
			return marker
		}
	}
	return nil
}

func buildDetail(operation, message string) string {
	parts := make([]string, 0, 2)
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "request failed"
	}
	return strings.Join(parts, ": ")
}
