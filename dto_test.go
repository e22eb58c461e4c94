package tracker_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tracker "github.com/goliatone/go-tracker"
)

func TestOptionalDistinguishesNullFromAbsent(t *testing.T) {
	var update tracker.TaskUpdate
	require.NoError(t, json.Unmarshal([]byte(`{"assignee":null,"title":"Ship it"}`), &update))

	assert.True(t, update.Assignee.Set)
	assert.True(t, update.Assignee.Null)
	assert.True(t, update.Title.Set)
	assert.Equal(t, "Ship it", update.Title.Value)
	assert.False(t, update.DueDate.Set)
	assert.False(t, update.Priority.Set)
}

func TestTaskPayloadValidate(t *testing.T) {
	bad := "01/02/2024"
	err := tracker.ValidationFromOzzo(tracker.TaskPayload{Status: "blocked", Priority: 9, DueDate: &bad}.Validate())
	fields := tracker.FormatValidationErrorToMap(err)

	assert.Contains(t, fields, "title")
	assert.Contains(t, fields, "status")
	assert.Contains(t, fields, "priority")
	assert.Contains(t, fields, "due_date")

	good := "2024-02-01"
	assert.NoError(t, tracker.TaskPayload{Title: "Write docs", DueDate: &good}.Validate())
}

func TestProfileUpdateValidate(t *testing.T) {
	assert.NoError(t, tracker.ProfileUpdate{}.Validate())
	assert.NoError(t, tracker.ProfileUpdate{Bio: tracker.Some("hi")}.Validate())

	err := tracker.ValidationFromOzzo(tracker.ProfileUpdate{Username: tracker.Some("ME")}.Validate())
	assert.Contains(t, tracker.FormatValidationErrorToMap(err), "username")

	err = tracker.ValidationFromOzzo(tracker.ProfileUpdate{Email: tracker.Some("not-an-email")}.Validate())
	assert.Contains(t, tracker.FormatValidationErrorToMap(err), "email")
}

func TestCreateUserPayloadValidate(t *testing.T) {
	assert.NoError(t, tracker.CreateUserPayload{Username: "bob", Email: "bob@example.com", Role: "moderator"}.Validate())

	err := tracker.ValidationFromOzzo(tracker.CreateUserPayload{Username: "bob", Email: "bob@example.com", Role: "owner"}.Validate())
	assert.Contains(t, tracker.FormatValidationErrorToMap(err), "role")

	err = tracker.ValidationFromOzzo(tracker.CreateUserPayload{Username: "bad name!", Email: "bob@example.com"}.Validate())
	assert.Contains(t, tracker.FormatValidationErrorToMap(err), "username")
}

func TestNewTaskResponse(t *testing.T) {
	due := time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC)
	task := &tracker.Task{
		ID:        uuid.New(),
		ProjectID: uuid.New(),
		Title:     "Fix login",
		Status:    tracker.TaskStatusInProgress,
		Priority:  tracker.TaskPriorityHigh,
		Author:    &tracker.User{Username: "alice"},
		Assignee:  &tracker.User{Username: "bob"},
		DueDate:   &due,
	}

	out := tracker.NewTaskResponse(task)
	assert.Equal(t, "alice", out.Author)
	require.NotNil(t, out.Assignee)
	assert.Equal(t, "bob", *out.Assignee)
	require.NotNil(t, out.DueDate)
	assert.Equal(t, "2024-05-17", *out.DueDate)
	assert.Equal(t, "in_progress", out.Status)
	assert.Equal(t, 3, out.Priority)

	task.Assignee = nil
	task.DueDate = nil
	out = tracker.NewTaskResponse(task)
	assert.Nil(t, out.Assignee)
	assert.Nil(t, out.DueDate)
}
