package tracker

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ProjectService serves projects and their nested task collection under
// the ownership scope policy.
type ProjectService struct {
	repo RepositoryManager
	gate
}

func NewProjectService(repo RepositoryManager, opts ...ServiceOption) *ProjectService {
	return &ProjectService{repo: repo, gate: applyServiceOptions(opts)}
}

func (s *ProjectService) List(ctx context.Context, p Principal, req PageRequest) (Page[*Project], error) {
	if err := s.authorize(ctx, p, VerbRead, NewProjectTarget()); err != nil {
		return Page[*Project]{}, err
	}
	records, count, err := s.repo.Projects().List(ctx, req)
	if err != nil {
		return Page[*Project]{}, err
	}
	return NewPage(req, count, records)
}

func (s *ProjectService) Get(ctx context.Context, p Principal, rawID string) (*Project, error) {
	project, err := s.find(ctx, rawID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, p, VerbRead, ProjectTarget(project)); err != nil {
		return nil, err
	}
	return project, nil
}

// Create assigns the caller as author whatever the payload says.
func (s *ProjectService) Create(ctx context.Context, p Principal, payload ProjectPayload) (*Project, error) {
	if err := s.authorize(ctx, p, VerbWrite, NewProjectTarget()); err != nil {
		return nil, err
	}
	payload.Name = strings.TrimSpace(payload.Name)
	if err := ValidationFromOzzo(payload.Validate()); err != nil {
		return nil, err
	}

	record := &Project{
		Name:        payload.Name,
		Description: payload.Description,
		AuthorID:    p.ID(),
	}

	err := s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := s.repo.Projects().CreateTx(ctx, tx, record)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Projects().GetByID(ctx, record.ID)
}

func (s *ProjectService) Update(ctx context.Context, p Principal, rawID string, update ProjectUpdate) (*Project, error) {
	project, err := s.find(ctx, rawID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, p, VerbWrite, ProjectTarget(project)); err != nil {
		return nil, err
	}
	if err := ValidationFromOzzo(update.Validate()); err != nil {
		return nil, err
	}

	columns := []string{}
	if update.Name.Set {
		project.Name = strings.TrimSpace(update.Name.Value)
		columns = append(columns, "name")
	}
	if update.Description.Set {
		project.Description = update.Description.Value
		columns = append(columns, "description")
	}
	if len(columns) == 0 {
		return project, nil
	}

	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := s.repo.Projects().UpdateTx(ctx, tx, project, columns...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}

func (s *ProjectService) Remove(ctx context.Context, p Principal, rawID string) error {
	project, err := s.find(ctx, rawID)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, p, VerbWrite, ProjectTarget(project)); err != nil {
		return err
	}
	return s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return s.repo.Projects().DeleteTx(ctx, tx, project.ID)
	})
}

func (s *ProjectService) ListTasks(ctx context.Context, p Principal, rawProjectID string, req PageRequest) (Page[*Task], error) {
	project, err := s.find(ctx, rawProjectID)
	if err != nil {
		return Page[*Task]{}, err
	}
	if err := s.authorize(ctx, p, VerbRead, NewTaskTarget()); err != nil {
		return Page[*Task]{}, err
	}
	records, count, err := s.repo.Tasks().ListByProject(ctx, project.ID, req)
	if err != nil {
		return Page[*Task]{}, err
	}
	return NewPage(req, count, records)
}

// CreateTask adds a task to the project. Any authenticated caller may do
// so; the caller becomes the task author.
func (s *ProjectService) CreateTask(ctx context.Context, p Principal, rawProjectID string, payload TaskPayload) (*Task, error) {
	project, err := s.find(ctx, rawProjectID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, p, VerbWrite, NewTaskTarget()); err != nil {
		return nil, err
	}

	payload.Title = strings.TrimSpace(payload.Title)
	if err := ValidationFromOzzo(payload.Validate()); err != nil {
		return nil, err
	}

	record := &Task{
		ProjectID:   project.ID,
		Title:       payload.Title,
		Description: payload.Description,
		Status:      TaskStatus(payload.Status),
		Priority:    TaskPriority(payload.Priority),
		AuthorID:    p.ID(),
	}

	if payload.Assignee != nil && *payload.Assignee != "" {
		assignee, err := lookupAssignee(ctx, s.repo, *payload.Assignee)
		if err != nil {
			return nil, err
		}
		record.AssigneeID = &assignee
	}
	if payload.DueDate != nil {
		if record.DueDate, err = parseDate(*payload.DueDate); err != nil {
			return nil, NewFieldError("due_date", "date has wrong format, use YYYY-MM-DD")
		}
	}

	var created *Task
	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		created, err = s.repo.Tasks().CreateTx(ctx, tx, record)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *ProjectService) find(ctx context.Context, rawID string) (*Project, error) {
	id, err := parseResourceID("project", rawID)
	if err != nil {
		return nil, err
	}
	return s.repo.Projects().GetByID(ctx, id)
}

// lookupAssignee resolves an assignee username, an unknown one is a
// validation error on the assignee field.
func lookupAssignee(ctx context.Context, repo RepositoryManager, username string) (uuid.UUID, error) {
	user, err := repo.Users().GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if IsError(err, ErrNotFound) {
			return uuid.Nil, NewFieldError("assignee", "object with username="+username+" does not exist")
		}
		return uuid.Nil, err
	}
	return user.ID, nil
}
