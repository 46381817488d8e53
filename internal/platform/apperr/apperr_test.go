package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("submit log: %w", Validation("no answers provided"))
	if KindOf(err) != KindValidation {
		t.Errorf("expected validation kind, got %s", KindOf(err))
	}
	if !errors.Is(err, ErrValidation) {
		t.Error("expected errors.Is to match ErrValidation")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("did not expect errors.Is to match ErrNotFound")
	}
}

func TestKindOf_PlainError(t *testing.T) {
	if KindOf(errors.New("boom")) != KindInternal {
		t.Error("expected internal kind for plain errors")
	}
}

func TestCollaborator_Unwrap(t *testing.T) {
	cause := errors.New("deadline exceeded")
	err := Collaborator(cause, "plan generation failed")
	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable through Unwrap")
	}
	if err.Error() != "plan generation failed: deadline exceeded" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{Validation("x"), http.StatusBadRequest},
		{Authorization("x"), http.StatusForbidden},
		{NotFound("x"), http.StatusNotFound},
		{Collaborator(nil, "x"), http.StatusBadGateway},
		{Deserialization(nil, "x"), http.StatusBadRequest},
		{errors.New("x"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusCode(tt.err); got != tt.want {
			t.Errorf("StatusCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestHTTPError_HidesInternal(t *testing.T) {
	he := HTTPError(errors.New("connection reset by peer"))
	if he.Message != "internal server error" {
		t.Errorf("expected generic message, got %v", he.Message)
	}
	if he.Internal == nil {
		t.Error("expected internal error to be preserved")
	}
}
