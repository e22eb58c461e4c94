package tracker

import (
	"context"
	"strings"

	"github.com/uptrace/bun"
)

// TaskService serves single tasks. Tasks are created through their
// project, see ProjectService.CreateTask.
type TaskService struct {
	repo RepositoryManager
	gate
}

func NewTaskService(repo RepositoryManager, opts ...ServiceOption) *TaskService {
	return &TaskService{repo: repo, gate: applyServiceOptions(opts)}
}

func (s *TaskService) Get(ctx context.Context, p Principal, rawID string) (*Task, error) {
	task, err := s.find(ctx, rawID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, p, VerbRead, TaskTarget(task)); err != nil {
		return nil, err
	}
	return task, nil
}

// Update applies a partial update. Project, author and timestamps are not
// part of the update surface.
func (s *TaskService) Update(ctx context.Context, p Principal, rawID string, update TaskUpdate) (*Task, error) {
	task, err := s.find(ctx, rawID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, p, VerbWrite, TaskTarget(task)); err != nil {
		return nil, err
	}
	if err := ValidationFromOzzo(update.Validate()); err != nil {
		return nil, err
	}

	columns := []string{}
	if update.Title.Set {
		task.Title = strings.TrimSpace(update.Title.Value)
		columns = append(columns, "title")
	}
	if update.Description.Set {
		task.Description = update.Description.Value
		columns = append(columns, "description")
	}
	if update.Status.Set {
		task.Status = TaskStatus(update.Status.Value)
		columns = append(columns, "status")
	}
	if update.Priority.Set {
		task.Priority = TaskPriority(update.Priority.Value)
		columns = append(columns, "priority")
	}
	if update.Assignee.Set {
		task.AssigneeID = nil
		if !update.Assignee.Null && update.Assignee.Value != "" {
			id, err := lookupAssignee(ctx, s.repo, update.Assignee.Value)
			if err != nil {
				return nil, err
			}
			task.AssigneeID = &id
		}
		columns = append(columns, "assignee_id")
	}
	if update.DueDate.Set {
		task.DueDate = nil
		if !update.DueDate.Null {
			if task.DueDate, err = parseDate(update.DueDate.Value); err != nil {
				return nil, NewFieldError("due_date", "date has wrong format, use YYYY-MM-DD")
			}
		}
		columns = append(columns, "due_date")
	}
	if len(columns) == 0 {
		return task, nil
	}

	var updated *Task
	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		updated, err = s.repo.Tasks().UpdateTx(ctx, tx, task, columns...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *TaskService) find(ctx context.Context, rawID string) (*Task, error) {
	id, err := parseResourceID("task", rawID)
	if err != nil {
		return nil, err
	}
	return s.repo.Tasks().GetByID(ctx, id)
}
