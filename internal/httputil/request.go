package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// MaxBodyBytes bounds request bodies. Replayed conversation histories are
// the largest payloads the API accepts.
const MaxBodyBytes = 4 << 20

// BodyError is a request body that could not be decoded. It carries the
// status to answer with: 413 for an oversized body, 400 otherwise.
type BodyError struct {
	Status int
	Err    error
}

func (e *BodyError) Error() string { return e.Err.Error() }

func (e *BodyError) Unwrap() error { return e.Err }

// StatusCode lets error handlers map the failure without knowing its type
func (e *BodyError) StatusCode() int { return e.Status }

// ParseJSON decodes the request body into dest. Unknown members are ignored
// so clients can send back documents they received, such as conversation
// histories, unchanged.
func ParseJSON(w http.ResponseWriter, r *http.Request, dest any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return &BodyError{
				Status: http.StatusRequestEntityTooLarge,
				Err:    fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit),
			}
		case errors.Is(err, io.EOF):
			return &BodyError{Status: http.StatusBadRequest, Err: errors.New("request body is empty")}
		default:
			return &BodyError{Status: http.StatusBadRequest, Err: fmt.Errorf("invalid JSON: %w", err)}
		}
	}
	return nil
}
