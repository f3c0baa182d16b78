package domain

import (
	"errors"
	"fmt"
)

// Validation sentinels for request-level input checks.
var (
	ErrEmptyText          = errors.New("text cannot be empty")
	ErrEmptyRunID         = errors.New("run id cannot be empty")
	ErrNegativeDialogueID = errors.New("dialogue id must be non-negative")
)

// ErrorKind classifies a failed request into exactly one of two kinds.
type ErrorKind string

const (
	// KindInput marks a client-side failure; never retried.
	KindInput ErrorKind = "input"
	// KindSynthesis marks a failure of the external engine or of artifact
	// storage; the original cause is preserved for diagnostics.
	KindSynthesis ErrorKind = "synthesis"
)

// RequestError is the only error type the generation boundary returns.
// Callers branch on Kind instead of unwrapping internal errors.
type RequestError struct {
	Kind  ErrorKind
	cause error
}

// NewInputError wraps cause as a client-side input failure.
func NewInputError(cause error) *RequestError {
	return &RequestError{Kind: KindInput, cause: cause}
}

// NewSynthesisError wraps cause as a server-side synthesis failure.
func NewSynthesisError(cause error) *RequestError {
	return &RequestError{Kind: KindSynthesis, cause: cause}
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s error: %v", e.Kind, e.cause)
}

// Unwrap exposes the original cause to errors.Is and errors.As.
func (e *RequestError) Unwrap() error {
	return e.cause
}

// KindOf reports the classification of err. The second return is false when
// err is not a RequestError.
func KindOf(err error) (ErrorKind, bool) {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Kind, true
	}

	return "", false
}
