// Package apperror defines the typed error taxonomy shared by the training
// core. Collaborator failures are tagged once at the call site so downstream
// classification uses errors.As, never message parsing.
package apperror

import "fmt"

// GenerationKind tags why a content-generation call failed.
type GenerationKind string

const (
	GenerationTimeout         GenerationKind = "timeout"
	GenerationUnavailable     GenerationKind = "service_unavailable"
	GenerationInvalidResponse GenerationKind = "invalid_response"
)

// ValidationError signals bad or missing caller input. Never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed on %q: %s", e.Field, e.Reason)
}

func NewValidation(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError signals an unknown, expired, or archived resource.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// InvalidStateError signals an action attempted against a session in the
// wrong status. Distinct from NotFound so callers can tell "doesn't exist"
// from "exists but can't do that right now".
type InvalidStateError struct {
	SessionID string
	Status    string
	Action    string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s session %q in status %q", e.Action, e.SessionID, e.Status)
}

func NewInvalidState(sessionID, status, action string) *InvalidStateError {
	return &InvalidStateError{SessionID: sessionID, Status: status, Action: action}
}

// GenerationError signals a failed or timed-out content-generation call.
// Retryable by the caller.
type GenerationError struct {
	Stage string
	Kind  GenerationKind
	Err   error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("generation failed at %s stage (%s): %v", e.Stage, e.Kind, e.Err)
	}
	return fmt.Sprintf("generation failed at %s stage (%s)", e.Stage, e.Kind)
}

func (e *GenerationError) Unwrap() error { return e.Err }

func NewGeneration(stage string, kind GenerationKind, err error) *GenerationError {
	return &GenerationError{Stage: stage, Kind: kind, Err: err}
}

// RetrievalError signals a failed knowledge lookup. Consumers degrade
// gracefully; it is never fatal to session progress.
type RetrievalError struct {
	Query string
	Err   error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieval failed for query %q: %v", e.Query, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

func NewRetrieval(query string, err error) *RetrievalError {
	return &RetrievalError{Query: query, Err: err}
}

// InternalError wraps unexpected failures.
type InternalError struct {
	Op  string
	Err error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error in %s: %v", e.Op, e.Err)
}

func (e *InternalError) Unwrap() error { return e.Err }

func NewInternal(op string, err error) *InternalError {
	return &InternalError{Op: op, Err: err}
}
