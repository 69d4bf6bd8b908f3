// Package apperror defines the typed errors exchanged between components.
// Every boundary (service, repository, scheduler) returns *Error values so
// the HTTP layer can map them to status codes without string matching.
package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies an error for boundary handling.
type Kind string

// Error kinds.
const (
	KindValidation         Kind = "VALIDATION"
	KindUnauthenticated    Kind = "UNAUTHENTICATED"
	KindForbidden          Kind = "FORBIDDEN"
	KindNotFound           Kind = "NOT_FOUND"
	KindConflict           Kind = "CONFLICT"
	KindPolicyViolation    Kind = "POLICY_VIOLATION"
	KindTerminalState      Kind = "TERMINAL_STATE"
	KindDeadlineExceeded   Kind = "DEADLINE_EXCEEDED"
	KindStorageUnavailable Kind = "STORAGE_UNAVAILABLE"
	KindInternal           Kind = "INTERNAL"
)

// Error is the structured error carried across component boundaries.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error { return e.cause }

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause to a new error of the given kind.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// WithDetails returns a copy of e carrying the given details map.
func (e *Error) WithDetails(details map[string]any) *Error {
	clone := *e
	clone.Details = details
	return &clone
}

// Validation reports a malformed request.
func Validation(message string) *Error { return New(KindValidation, message) }

// Unauthenticated reports a missing or invalid credential.
func Unauthenticated(message string) *Error { return New(KindUnauthenticated, message) }

// Forbidden reports a failed role or scope check.
func Forbidden(message string) *Error { return New(KindForbidden, message) }

// NotFound reports an unknown entity id.
func NotFound(entity string) *Error { return Newf(KindNotFound, "%s not found", entity) }

// Conflict reports an overlap with existing reservations.
func Conflict(conflictingIDs []uint) *Error {
	return New(KindConflict, "interval overlaps existing reservations").
		WithDetails(map[string]any{"conflictingIds": conflictingIDs})
}

// PolicyViolation reports a scheduling policy failure with its violation code.
func PolicyViolation(code, message string) *Error {
	return New(KindPolicyViolation, message).
		WithDetails(map[string]any{"violation": code})
}

// TerminalState reports an operation against a finished or cancelled reservation.
func TerminalState(status string) *Error {
	return Newf(KindTerminalState, "reservation is %s and cannot be modified", status)
}

// DeadlineExceeded reports that the request deadline elapsed.
func DeadlineExceeded(op string) *Error {
	return Newf(KindDeadlineExceeded, "deadline exceeded while %s", op)
}

// StorageUnavailable reports a persistence failure that survived retries.
func StorageUnavailable(cause error) *Error {
	return Wrap(KindStorageUnavailable, "storage unavailable", cause)
}

// Internal reports an unexpected fault. The correlation id is attached by the
// HTTP layer, not here.
func Internal(cause error) *Error {
	return Wrap(KindInternal, "internal error", cause)
}

// KindOf extracts the kind from an error chain, defaulting to INTERNAL.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// Is reports whether the error chain contains an *Error of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
