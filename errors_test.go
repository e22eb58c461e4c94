package tracker_test

import (
	"errors"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"

	tracker "github.com/goliatone/go-tracker"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
		{"not found", tracker.NewNotFoundError("project", nil), http.StatusNotFound},
		{"conflict", tracker.NewConflictError(nil, nil), http.StatusConflict},
		{"delivery", tracker.NewDeliveryError(errors.New("smtp down")), http.StatusBadGateway},
		{"validation", tracker.NewFieldError("name", "required"), http.StatusBadRequest},
		{"internal", tracker.NewInternalError(errors.New("disk"), "storage"), http.StatusInternalServerError},
		{"principal not found", tracker.ErrPrincipalNotFound.Clone(), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tracker.StatusCode(tt.err))
		})
	}
}

func TestIsError(t *testing.T) {
	err := tracker.NewNotFoundError("task", map[string]any{"id": "x"})
	assert.True(t, tracker.IsError(err, tracker.ErrNotFound))
	assert.False(t, tracker.IsError(err, tracker.ErrConflict))
	assert.False(t, tracker.IsError(nil, tracker.ErrNotFound))
	assert.False(t, tracker.IsError(errors.New("plain"), tracker.ErrNotFound))

	wrapped := goerrors.Wrap(tracker.ErrTokenExpired.Clone(), goerrors.CategoryAuth, "outer")
	assert.True(t, tracker.IsTokenExpiredError(wrapped))
}

func TestFormatValidationErrorToMap(t *testing.T) {
	err := tracker.ValidationFromOzzo(tracker.RequestSignupMessage{Username: "me", Email: "nope"}.Validate())

	fields := tracker.FormatValidationErrorToMap(err)
	assert.Contains(t, fields, "username")
	assert.Contains(t, fields, "email")
	assert.Equal(t, http.StatusBadRequest, tracker.StatusCode(err))

	assert.Nil(t, tracker.FormatValidationErrorToMap(errors.New("plain")))
	assert.Nil(t, tracker.ValidationFromOzzo(nil))
}
