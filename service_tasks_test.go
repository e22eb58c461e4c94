package tracker_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tracker "github.com/goliatone/go-tracker"
)

func TestTaskServiceOnlyAuthorMayWrite(t *testing.T) {
	ctx := context.Background()
	f := newWorkspaceFixture(t)
	p := f.project(t, f.alice, "Launch")

	task, err := f.projects.CreateTask(ctx, f.bob, p.ID.String(), tracker.TaskPayload{Title: "Draft"})
	require.NoError(t, err)
	id := task.ID.String()

	got, err := f.tasks.Get(ctx, tracker.Anonymous(), id)
	require.NoError(t, err)
	assert.Equal(t, "Draft", got.Title)

	_, err = f.tasks.Update(ctx, f.alice, id, tracker.TaskUpdate{Title: tracker.Some("Mine")})
	assert.Equal(t, http.StatusForbidden, tracker.StatusCode(err), "project author does not own the task")

	_, err = f.tasks.Update(ctx, f.admin, id, tracker.TaskUpdate{Title: tracker.Some("Mine")})
	assert.Equal(t, http.StatusForbidden, tracker.StatusCode(err))

	updated, err := f.tasks.Update(ctx, f.bob, id, tracker.TaskUpdate{
		Status:   tracker.Some(string(tracker.TaskStatusDone)),
		Assignee: tracker.Some("alice"),
		DueDate:  tracker.Some("2024-12-24"),
	})
	require.NoError(t, err)
	assert.Equal(t, tracker.TaskStatusDone, updated.Status)
	assert.Equal(t, "Draft", updated.Title)
	require.NotNil(t, updated.Assignee)
	assert.Equal(t, "alice", updated.Assignee.Username)
	assert.Equal(t, p.ID, updated.ProjectID)

	cleared, err := f.tasks.Update(ctx, f.bob, id, tracker.TaskUpdate{
		Assignee: tracker.Optional[string]{Set: true, Null: true},
		DueDate:  tracker.Optional[string]{Set: true, Null: true},
	})
	require.NoError(t, err)
	assert.Nil(t, cleared.AssigneeID)
	assert.Nil(t, cleared.DueDate)

	_, err = f.tasks.Update(ctx, f.bob, id, tracker.TaskUpdate{Priority: tracker.Some(7)})
	assert.Equal(t, http.StatusBadRequest, tracker.StatusCode(err))

	_, err = f.tasks.Update(ctx, tracker.Anonymous(), id, tracker.TaskUpdate{Title: tracker.Some("Anon")})
	assert.Equal(t, http.StatusUnauthorized, tracker.StatusCode(err))

	require.NoError(t, f.projects.Remove(ctx, f.alice, p.ID.String()))
	_, err = f.tasks.Get(ctx, f.bob, id)
	assert.Equal(t, http.StatusNotFound, tracker.StatusCode(err))
}

func TestDeletingUserCascades(t *testing.T) {
	ctx := context.Background()
	f := newWorkspaceFixture(t)

	alicesProject := f.project(t, f.alice, "Launch")
	bobsProject := f.project(t, f.bob, "Backlog")

	inAlicesProject, err := f.projects.CreateTask(ctx, f.bob, alicesProject.ID.String(), tracker.TaskPayload{Title: "goes with the project"})
	require.NoError(t, err)

	authoredByAlice, err := f.projects.CreateTask(ctx, f.alice, bobsProject.ID.String(), tracker.TaskPayload{Title: "goes with the author"})
	require.NoError(t, err)

	assignee := "alice"
	assignedToAlice, err := f.projects.CreateTask(ctx, f.bob, bobsProject.ID.String(), tracker.TaskPayload{Title: "stays", Assignee: &assignee})
	require.NoError(t, err)
	require.NotNil(t, assignedToAlice.AssigneeID)

	require.NoError(t, f.users.Remove(ctx, f.alice, "me"))

	_, err = f.projects.Get(ctx, f.bob, alicesProject.ID.String())
	assert.True(t, tracker.IsError(err, tracker.ErrNotFound))

	_, err = f.tasks.Get(ctx, f.bob, inAlicesProject.ID.String())
	assert.True(t, tracker.IsError(err, tracker.ErrNotFound))

	_, err = f.tasks.Get(ctx, f.bob, authoredByAlice.ID.String())
	assert.True(t, tracker.IsError(err, tracker.ErrNotFound))

	kept, err := f.tasks.Get(ctx, f.bob, assignedToAlice.ID.String())
	require.NoError(t, err)
	assert.Nil(t, kept.AssigneeID)
	assert.Nil(t, tracker.NewTaskResponse(kept).Assignee)
}
