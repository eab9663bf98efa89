// Package apperror defines the error taxonomy shared by the services and the HTTP gateway.
package apperror

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	// ErrValidation marks input rejected before any persistence call.
	ErrValidation = errors.New("validation error")

	// ErrInvalidLineItem marks a line item with a non-positive quantity or a negative price.
	ErrInvalidLineItem = errors.New("invalid line item")

	// ErrNotFound marks a record that does not exist or is not owned by the requesting user.
	ErrNotFound = errors.New("not found")

	// ErrNumberGenerationExhausted is returned when the uniqueness loop hits its attempt cap.
	ErrNumberGenerationExhausted = errors.New("number generation exhausted")

	// ErrPersistence wraps any failed transaction.
	ErrPersistence = errors.New("persistence error")

	// ErrInvalidPayment marks a payment with a non-positive amount.
	ErrInvalidPayment = errors.New("invalid payment")

	// ErrUnauthorized marks missing or rejected credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrConflict marks a unique constraint the caller can fix (e.g. a taken username).
	ErrConflict = errors.New("conflict")
)

// Error carries the operation that failed, its taxonomy kind, a caller-facing
// message and the underlying cause, if any.
type Error struct {
	Op      string
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Message != "":
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// GRPCStatus lets status.FromError classify the error without a type switch at every call site.
func (e *Error) GRPCStatus() *status.Status {
	return status.New(codeOf(e.Kind), e.Message)
}

func codeOf(kind error) codes.Code {
	switch kind {
	case ErrValidation, ErrInvalidLineItem, ErrInvalidPayment:
		return codes.InvalidArgument
	case ErrNotFound:
		return codes.NotFound
	case ErrUnauthorized:
		return codes.Unauthenticated
	case ErrConflict:
		return codes.AlreadyExists
	case ErrNumberGenerationExhausted:
		return codes.ResourceExhausted
	default:
		return codes.Internal
	}
}

func New(op string, kind error, message string) *Error {
	return &Error{Op: op, Kind: kind, Message: message}
}

func Validation(op, format string, args ...any) *Error {
	return New(op, ErrValidation, fmt.Sprintf(format, args...))
}

func NotFound(op, what string) *Error {
	return New(op, ErrNotFound, what+" not found")
}

// Persistence wraps a store failure. Errors that are already classified pass through unchanged.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}
	return &Error{Op: op, Kind: ErrPersistence, Message: "failed to persist changes", Err: err}
}
