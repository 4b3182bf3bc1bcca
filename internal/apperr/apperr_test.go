package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

// TestIsMatchesKind verifies that classified errors match their sentinel
// through fmt.Errorf wrapping and do not match other kinds.
func TestIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("approving plan: %w", Conflict("student already has an active plan"))

	if !errors.Is(err, ErrConflict) {
		t.Error("wrapped conflict should match ErrConflict")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("conflict should not match ErrNotFound")
	}
	if got := KindOf(err); got != KindConflict {
		t.Errorf("KindOf = %v, want conflict", got)
	}
}

// TestErrorMessage verifies the caller-facing message is preserved verbatim.
func TestErrorMessage(t *testing.T) {
	err := Conflict("student already has an active plan")
	if err.Error() != "student already has an active plan" {
		t.Errorf("Error() = %q", err.Error())
	}

	up := Upstream(errors.New("dial tcp: refused"), "notifying AI pipeline")
	if up.Error() != "notifying AI pipeline: dial tcp: refused" {
		t.Errorf("Error() = %q", up.Error())
	}
	if !errors.Is(up, ErrUpstreamUnavailable) {
		t.Error("upstream error should match ErrUpstreamUnavailable")
	}
}

// TestHTTPStatus verifies the status mapping for every kind.
func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{NotFound("plan %s", "x"), http.StatusNotFound},
		{Conflict("dup"), http.StatusConflict},
		{Invalid("bad"), http.StatusBadRequest},
		{Forbidden("no"), http.StatusForbidden},
		{DataIntegrity("null weight"), http.StatusUnprocessableEntity},
		{Upstream(errors.New("x"), "ai"), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
