package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"malformed query", fmt.Errorf("evaluating: %w", ErrMalformedQuery), http.StatusBadRequest},
		{"invalid input", ErrInvalidInput, http.StatusBadRequest},
		{"not found", fmt.Errorf("removing opus 3: %w", ErrOpusNotFound), http.StatusNotFound},
		{"duplicate", ErrDuplicateOpus, http.StatusConflict},
		{"corrupt snapshot", ErrCorruptSnapshot, http.StatusUnprocessableEntity},
		{"timeout", ErrTimeout, http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
		{"app error wins", New(ErrOpusNotFound, http.StatusGone, "gone"), http.StatusGone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatusCode(tt.err))
		})
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	err := Newf(ErrDuplicateOpus, http.StatusConflict, "opus %q by %q", "Moby Dick", "Melville")
	assert.ErrorIs(t, err, ErrDuplicateOpus)
	assert.Equal(t, `opus already cataloged: opus "Moby Dick" by "Melville"`, err.Error())
}
