package main

import (
	"errors"
	"io"
	"log/slog"
	"testing"
)

func testHandler() *ErrorHandler {
	return NewErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestGetExitCode(t *testing.T) {
	h := testHandler()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"configuration error", errors.New("configuration file unreadable"), ExitConfig},
		{"missing api key", errors.New("no API key configured (set OPENROUTER_API_KEY or api.api_key)"), ExitAuth},
		{"network failure", errors.New("network unreachable"), ExitNetwork},
		{"connection refused", errors.New("connection refused"), ExitNetwork},
		{"timeout", errors.New("request timeout exceeded"), ExitTimeout},
		{"interrupted", errors.New("interrupted"), ExitInterrupted},
		{"invalid input", errors.New("invalid session id"), ExitUsage},
		{"anything else", errors.New("boom"), ExitError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := h.getExitCode(tt.err); got != tt.want {
				t.Errorf("getExitCode(%q) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
