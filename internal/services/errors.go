package services

import "fmt"

// Custom errors
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return "Validation error" }

type ConflictError struct{ Message string }

func (e *ConflictError) Error() string { return e.Message }

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

type UnauthorizedError struct{ Message string }

func (e *UnauthorizedError) Error() string { return e.Message }

type ForbiddenError struct{ Message string }

func (e *ForbiddenError) Error() string { return e.Message }

type RateLimitError struct{ Message string }

func (e *RateLimitError) Error() string { return e.Message }

// UpstreamError is a failure of an external collaborator: identity
// provider, completion provider or text extraction.
type UpstreamError struct {
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

const notFoundMessage = "not found or access denied"

// errNotFound is returned both for missing rows and for rows owned by
// someone else.
func errNotFound() error {
	return &NotFoundError{Message: notFoundMessage}
}
