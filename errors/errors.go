package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnauthorized         = errors.New("unauthorized")
	ErrServiceUnavailable   = errors.New("remote service unavailable")
	ErrInvalidResponse      = errors.New("invalid response from remote service")
	ErrInvalidInput         = errors.New("invalid input")
	ErrNoTransport          = errors.New("no live channel transport available")
	ErrPreferenceNotFound   = errors.New("preference not found")
	ErrUnsupportedMediaType = errors.New("unsupported media type")
)

// APIError is a non-2xx answer of the remote service.
// Message holds the "message" field of the body when the server sent one.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote service answered %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("remote service answered %d: %s", e.Status, e.Message)
}

// Is lets a 401 APIError match ErrUnauthorized.
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// ValidationError is a refused precondition. Message is shown as is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// IsUnauthorized reports whether err is an expected-unauthenticated answer.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// MessageOf picks the text shown to the user: a validation message, the
// server supplied message when there is one, the fallback otherwise.
func MessageOf(err error, fallback string) string {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Message
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
