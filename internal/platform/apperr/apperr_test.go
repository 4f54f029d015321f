package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{Validation("symptoms are required"), http.StatusBadRequest},
		{NotFound("visit %d not found", 999999), http.StatusNotFound},
		{Conflict("patient exists"), http.StatusConflict},
		{InvalidState("visit already completed"), http.StatusConflict},
		{Unauthorized("bad code"), http.StatusUnauthorized},
		{Forbidden("wrong tier"), http.StatusForbidden},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestKindOf_ThroughWrapping(t *testing.T) {
	base := InvalidState("visit 7 is already COMPLETED")
	wrapped := fmt.Errorf("complete visit: %w", base)

	if !IsKind(wrapped, KindInvalidState) {
		t.Fatalf("expected invalid_state through %%w wrapping, got %s", KindOf(wrapped))
	}
	if IsKind(nil, KindInvalidState) {
		t.Error("nil must not match any kind")
	}
}

func TestWrap_KeepsCause(t *testing.T) {
	cause := errors.New("duplicate key")
	err := Wrap(KindConflict, cause, "patient already exists")

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
	if err.Error() != "patient already exists: duplicate key" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestToHTTP_HidesInternalDetail(t *testing.T) {
	he := ToHTTP(errors.New("pq: connection refused"))
	if he.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", he.Code)
	}
	if he.Message != "internal server error" {
		t.Errorf("internal detail leaked: %v", he.Message)
	}
	if he.Internal == nil {
		t.Error("expected cause kept as internal error")
	}

	he = ToHTTP(NotFound("visit 3 not found"))
	if he.Code != http.StatusNotFound || he.Message != "visit 3 not found" {
		t.Errorf("unexpected %d %v", he.Code, he.Message)
	}
}
