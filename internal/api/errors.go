package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const maxErrorBody = 4 << 10

// StatusError reports a non-success HTTP response. It matches ErrServer
// under errors.Is.
type StatusError struct {
	Operation string
	Code      int
	Message   string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s: %s (HTTP %d)", ErrServer, e.Operation, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s: HTTP %d", ErrServer, e.Operation, e.Code)
}

func (e *StatusError) Unwrap() error { return ErrServer }

func newStatusError(operation string, resp *http.Response) *StatusError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{
		Operation: operation,
		Code:      resp.StatusCode,
		Message:   errorMessage(body, resp.StatusCode),
	}
}

// errorMessage extracts {"error": ...} or a FastAPI-style {"detail": ...}
// from body, falling back to the trimmed text or the status text.
func errorMessage(body []byte, code int) string {
	var payload errorResponse
	if err := json.Unmarshal(body, &payload); err == nil {
		if msg := strings.TrimSpace(payload.Error); msg != "" {
			return msg
		}
		if detail, ok := payload.Detail.(string); ok && strings.TrimSpace(detail) != "" {
			return strings.TrimSpace(detail)
		}
	}
	text := strings.TrimSpace(string(body))
	if text != "" && !strings.HasPrefix(text, "{") && !strings.HasPrefix(text, "<") {
		if len(text) > 200 {
			text = text[:200] + "..."
		}
		return text
	}
	return http.StatusText(code)
}
