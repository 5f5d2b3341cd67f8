package services_test

import (
	"errors"
	"strings"
	"testing"

	"podvision/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("connection refused")
	err := services.Wrap(services.ErrTransport, "submit job", "post multipart", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"submit job", "post multipart", "connection refused"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithoutDetail(t *testing.T) {
	err := services.Wrap(nil, "", "", nil)
	if !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected nil marker to default to transport, got %v", err)
	}
	if !strings.Contains(err.Error(), "request failed") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"validation", services.Wrap(services.ErrValidation, "form", "no file", nil), services.ErrValidation},
		{"server", services.Wrap(services.ErrServer, "status", "bad body", nil), services.ErrServer},
		{"untagged", errors.New("plain"), nil},
		{"nil", nil, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := services.Classify(tc.err); got != tc.want {
				t.Fatalf("Classify() = %v, want %v", got, tc.want)
			}
		})
	}
}
