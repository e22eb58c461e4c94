package tracker_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	tracker "github.com/goliatone/go-tracker"
)

func TestErrorResponse(t *testing.T) {
	t.Run("validation errors render as field map", func(t *testing.T) {
		status, body := tracker.ErrorResponse(tracker.NewFieldError("name", "this field is required"))
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, map[string][]string{"name": {"this field is required"}}, body)
	})

	t.Run("policy denials keep their message", func(t *testing.T) {
		status, body := tracker.ErrorResponse(tracker.ErrForbidden.Clone())
		assert.Equal(t, http.StatusForbidden, status)
		assert.Equal(t, tracker.ErrorBody{
			Detail: "you do not have permission to perform this action",
			Code:   tracker.TextCodeForbidden,
		}, body)
	})

	t.Run("internal errors are masked", func(t *testing.T) {
		status, body := tracker.ErrorResponse(tracker.NewInternalError(errors.New("connection reset"), "storage failure on user"))
		assert.Equal(t, http.StatusInternalServerError, status)
		assert.Equal(t, "an unexpected server error occurred", body.(tracker.ErrorBody).Detail)
	})

	t.Run("delivery failures are reported", func(t *testing.T) {
		status, body := tracker.ErrorResponse(tracker.NewDeliveryError(errors.New("smtp timeout")))
		assert.Equal(t, http.StatusBadGateway, status)
		assert.Equal(t, tracker.TextCodeDeliveryFailed, body.(tracker.ErrorBody).Code)
	})

	t.Run("plain errors", func(t *testing.T) {
		status, body := tracker.ErrorResponse(errors.New("boom"))
		assert.Equal(t, http.StatusInternalServerError, status)
		assert.Equal(t, tracker.TextCodeInternal, body.(tracker.ErrorBody).Code)
	})
}

func TestNewErrorHandler(t *testing.T) {
	handler := tracker.NewErrorHandler(discardLogger())

	ctx := router.NewMockContext()
	var payload any
	ctx.On("JSON", http.StatusNotFound, mock.Anything).Run(func(args mock.Arguments) {
		payload = args.Get(1)
	}).Return(nil)

	err := handler(ctx, tracker.NewNotFoundError("project", map[string]any{"id": "x"}))
	require.NoError(t, err)

	body, ok := payload.(tracker.ErrorBody)
	require.True(t, ok)
	assert.Equal(t, tracker.TextCodeNotFound, body.Code)
	ctx.AssertExpectations(t)
}
