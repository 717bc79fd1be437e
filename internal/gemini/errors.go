package gemini

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout is returned when an attempt exceeds the configured timeout.
	ErrTimeout = errors.New("gemini request timed out")
	// ErrBlocked is returned when the prompt or the answer was blocked.
	ErrBlocked = errors.New("gemini response blocked")
	// ErrEmptyResponse is returned when the model produced no text.
	ErrEmptyResponse = errors.New("gemini returned empty response")
	// ErrInvalidRequest is returned for requests that cannot be sent.
	ErrInvalidRequest = errors.New("invalid gemini request")
)

// ProviderError is a failure reported by the Gemini API.
type ProviderError struct {
	Code    int
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Code == 0 {
		return fmt.Sprintf("gemini provider error: %s", e.Message)
	}
	return fmt.Sprintf("gemini provider error %d: %s", e.Code, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is transient. Code 0 marks a
// transport failure that never reached the API.
func (e *ProviderError) Retryable() bool {
	switch e.Code {
	case 0, 429, 500, 503:
		return true
	default:
		return false
	}
}
