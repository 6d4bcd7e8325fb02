package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"term not found", ErrTermNotFound, http.StatusNotFound},
		{"user not found", ErrUserNotFound, http.StatusNotFound},
		{"invalid input", ErrInvalidInput, http.StatusBadRequest},
		{"duplicate award", ErrDuplicateAward, http.StatusConflict},
		{"rate limited", ErrRateLimited, http.StatusTooManyRequests},
		{"unauthorized", ErrUnauthorized, http.StatusUnauthorized},
		{"store unavailable", ErrStoreUnavailable, http.StatusServiceUnavailable},
		{"timeout", ErrTimeout, http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
		{"wrapped sentinel", fmt.Errorf("awarding xp: %w", ErrTermNotFound), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatusCode(tt.err); got != tt.want {
				t.Errorf("HTTPStatusCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestAppErrorOverridesSentinelMapping(t *testing.T) {
	err := New(ErrInvalidInput, http.StatusUnprocessableEntity, "points must be non-negative")
	if got := HTTPStatusCode(err); got != http.StatusUnprocessableEntity {
		t.Errorf("expected AppError status %d to win, got %d", http.StatusUnprocessableEntity, got)
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("AppError should unwrap to its sentinel")
	}
}

func TestNewfFormatsMessage(t *testing.T) {
	err := Newf(ErrTermNotFound, http.StatusNotFound, "term %q does not exist", "abc-123")
	want := `glossary term not found: term "abc-123" does not exist`
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}
