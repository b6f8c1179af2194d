// Package apierr carries the error taxonomy shared by every remote call and
// handler: validation issues, deadline expiry, caller aborts, and everything
// else. Handlers return a discriminated envelope instead of leaking raw
// errors across the HTTP boundary.
package apierr

import (
	"context"
	"errors"
	"fmt"
)

type ErrorType string

const (
	TypeValidation ErrorType = "validation"
	TypeTimeout    ErrorType = "timeout"
	TypeAborted    ErrorType = "aborted"
	TypeConflict   ErrorType = "conflict"
	TypeUnknown    ErrorType = "unknown"
)

// Issue is one structured validation problem, addressed by a JSON-ish path.
type Issue struct {
	Path    []any  `json:"path"`
	Message string `json:"message"`
}

type Error struct {
	Type      ErrorType `json:"errorType"`
	Message   string    `json:"error"`
	Issues    []Issue   `json:"issues,omitempty"`
	SessionID string    `json:"sessionId,omitempty"`
}

func (e *Error) Error() string {
	if len(e.Issues) > 0 {
		return fmt.Sprintf("%s: %d issue(s)", e.Type, len(e.Issues))
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func Validation(issues []Issue) *Error {
	return &Error{Type: TypeValidation, Message: "validation failed", Issues: issues}
}

func Conflict(message string) *Error {
	return &Error{Type: TypeConflict, Message: message}
}

func Unknown(err error) *Error {
	return &Error{Type: TypeUnknown, Message: err.Error()}
}

// Classify maps an error from a remote call to the taxonomy. parent is the
// caller's context; when it fired, the failure is an abort regardless of the
// internal deadline, which is how a user navigating away is told apart from
// a slow provider.
func Classify(parent context.Context, err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}
	if parent.Err() != nil && errors.Is(err, context.Canceled) {
		return &Error{Type: TypeAborted, Message: "request aborted"}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Type: TypeTimeout, Message: "request timed out"}
	}
	return Unknown(err)
}

// Result is the envelope returned by every handler.
type Result struct {
	Success   bool      `json:"success"`
	Data      any       `json:"data,omitempty"`
	ErrorType ErrorType `json:"errorType,omitempty"`
	Message   string    `json:"error,omitempty"`
	Issues    []Issue   `json:"issues,omitempty"`
	SessionID string    `json:"sessionId,omitempty"`
}

func OK(data any) Result {
	return Result{Success: true, Data: data}
}

func Fail(e *Error) Result {
	return Result{
		Success:   false,
		ErrorType: e.Type,
		Message:   e.Message,
		Issues:    e.Issues,
		SessionID: e.SessionID,
	}
}
