package apperror

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestGenerationErrorClassification(t *testing.T) {
	base := NewGeneration("scenario", GenerationTimeout, context.DeadlineExceeded)
	wrapped := fmt.Errorf("start failed: %w", base)

	var genErr *GenerationError
	if !errors.As(wrapped, &genErr) {
		t.Fatal("expected errors.As to find GenerationError through wrapping")
	}
	if genErr.Kind != GenerationTimeout {
		t.Errorf("Kind = %q, want %q", genErr.Kind, GenerationTimeout)
	}
	if !errors.Is(wrapped, context.DeadlineExceeded) {
		t.Error("expected underlying DeadlineExceeded to be reachable")
	}
}

func TestNotFoundVsInvalidState(t *testing.T) {
	notFound := fmt.Errorf("respond: %w", NewNotFound("session", "abc"))
	invalidState := fmt.Errorf("respond: %w", NewInvalidState("abc", "complete", "respond"))

	var nf *NotFoundError
	var is *InvalidStateError

	if !errors.As(notFound, &nf) {
		t.Error("NotFoundError not classified")
	}
	if errors.As(notFound, &is) {
		t.Error("NotFoundError misclassified as InvalidStateError")
	}
	if !errors.As(invalidState, &is) {
		t.Error("InvalidStateError not classified")
	}
	if errors.As(invalidState, &nf) {
		t.Error("InvalidStateError misclassified as NotFoundError")
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := NewValidation("userResponse", "too long")
	if err.Error() != `validation failed on "userResponse": too long` {
		t.Errorf("unexpected message: %s", err.Error())
	}
}

func TestRetrievalErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewRetrieval("refund policy", cause)
	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable via Unwrap")
	}
}
