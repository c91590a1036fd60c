package services_test

import (
	"errors"
	"strings"
	"testing"

	"repurpose/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "twitter", "complete", "request failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"twitter", "complete", "request failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected placeholder detail, got %q", err.Error())
	}
}

func TestDetailsClassification(t *testing.T) {
	cases := []struct {
		err  error
		kind string
	}{
		{services.Wrap(services.ErrConfiguration, "llm", "init", "missing api key", nil), "configuration"},
		{services.Wrap(services.ErrValidation, "job", "input", "empty", nil), "validation"},
		{services.Wrap(services.ErrTimeout, "pexels", "search", "deadline", nil), "timeout"},
		{errors.New("plain"), "unknown"},
	}
	for _, tc := range cases {
		details := services.Details(tc.err)
		if details.Kind != tc.kind {
			t.Fatalf("kind for %v = %q, want %q", tc.err, details.Kind, tc.kind)
		}
		if details.Hint == "" {
			t.Fatalf("expected hint for %v", tc.err)
		}
		if details.Message != tc.err.Error() {
			t.Fatalf("unexpected message %q", details.Message)
		}
	}
	if got := services.Details(nil); got != (services.ErrorDetails{}) {
		t.Fatalf("expected zero details for nil error, got %+v", got)
	}
}

func TestRetryable(t *testing.T) {
	if !services.Retryable(services.Wrap(services.ErrTransient, "", "", "x", nil)) {
		t.Fatal("expected transient error to be retryable")
	}
	if services.Retryable(services.Wrap(services.ErrValidation, "", "", "x", nil)) {
		t.Fatal("expected validation error to be terminal")
	}
}
