package genai

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrEmptyResponse = errors.New("no content in response")
	ErrNoImage       = errors.New("response contained no image part")
	ErrNoAudio       = errors.New("response contained no audio part")
	ErrNoSegments    = errors.New("no segments extracted from text")
	ErrNotConfigured = errors.New("provider not configured")
)

// APIError is a non-2xx answer from a provider.
type APIError struct {
	Provider string
	Status   int
	Body     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API request failed with status %d: %s", e.Provider, e.Status, e.Body)
}

// Retryable reports whether repeating the request could succeed: rate
// limits and server errors are, other client errors are not.
func (e *APIError) Retryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err so Retry gives up immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err (or anything it wraps) was marked
// Permanent or is a non-retryable APIError.
func IsPermanent(err error) bool {
	var p *permanentError
	if errors.As(err, &p) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return !apiErr.Retryable()
	}
	return false
}
