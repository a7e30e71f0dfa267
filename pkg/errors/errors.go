// Package errors defines the sentinel errors shared across the library,
// the search pipeline and the HTTP surface, plus an AppError type that
// carries an HTTP status alongside a wrapped sentinel.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrMalformedQuery      = errors.New("malformed query")
	ErrOpusNotFound        = errors.New("opus not found")
	ErrDuplicateOpus       = errors.New("opus already cataloged")
	ErrInvalidInput        = errors.New("invalid input")
	ErrUnsupportedSnapshot = errors.New("unsupported snapshot file")
	ErrCorruptSnapshot     = errors.New("corrupt snapshot file")
	ErrInternal            = errors.New("internal error")
	ErrTimeout             = errors.New("operation timed out")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// HTTPStatusCode maps err onto the status the HTTP layer should answer
// with. An AppError anywhere in the chain wins over sentinel matching.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrMalformedQuery), errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrOpusNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicateOpus):
		return http.StatusConflict
	case errors.Is(err, ErrUnsupportedSnapshot), errors.Is(err, ErrCorruptSnapshot):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
