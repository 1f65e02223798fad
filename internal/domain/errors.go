package domain

import (
	"errors"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
type HTTPError interface {
	error
	StatusCode() int
}

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("already exists")
	ErrValidation = errors.New("validation failed")

	// ErrInvalidArgument marks structurally impossible requests (e.g. linking a
	// node to itself). It matches ErrValidation so handlers map it to 400.
	ErrInvalidArgument error = &invalidArgument{}

	// ErrNoSlide is returned when a generation finished without rendering a slide.
	ErrNoSlide = errors.New("no slide generated")
)

type invalidArgument struct{}

func (e *invalidArgument) Error() string { return "invalid argument" }
func (e *invalidArgument) Is(target error) bool { return target == ErrValidation }
func (e *invalidArgument) StatusCode() int { return http.StatusBadRequest }

// ValidationError indicates invalid input on a specific field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// StatusCode implements the HTTPError interface
func (e *ValidationError) StatusCode() int { return http.StatusBadRequest }

// Is allows errors.Is() to match against ErrValidation
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ConflictError represents a resource conflict with details about the existing resource
type ConflictError struct {
	Message      string // Human-readable error message
	ResourceType string // Type of resource (slide, link, chat)
	ResourceID   string // ID of the existing/conflicting resource, if known
}

// Error implements the error interface
func (e *ConflictError) Error() string {
	return e.Message
}

// StatusCode implements the HTTPError interface
func (e *ConflictError) StatusCode() int {
	return http.StatusConflict
}

// Is allows errors.Is() to match against ErrConflict
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}
