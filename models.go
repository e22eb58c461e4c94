package tracker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the principal record
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID        uuid.UUID `bun:"id,pk,type:uuid" json:"id,omitempty"`
	Username  string    `bun:"username,notnull,unique" json:"username"`
	Email     string    `bun:"email,notnull,unique" json:"email"`
	FirstName string    `bun:"first_name,notnull" json:"first_name"`
	LastName  string    `bun:"last_name,notnull" json:"last_name"`
	Bio       string    `bun:"bio,notnull" json:"bio"`
	Role      UserRole  `bun:"role,notnull" json:"role"`
	// ConfirmationCodeHash is empty until a code has been issued.
	ConfirmationCodeHash string     `bun:"confirmation_code_hash,notnull" json:"-"`
	CreatedAt            *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt            *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

var _ bun.BeforeAppendModelHook = (*User)(nil)

func (u *User) BeforeAppendModel(_ context.Context, query bun.Query) error {
	touch(query, &u.CreatedAt, &u.UpdatedAt)
	if u.Role == 0 {
		u.Role = RoleUser
	}
	return nil
}

// HasConfirmationCode reports whether a code was ever issued for the user.
func (u *User) HasConfirmationCode() bool {
	return u != nil && u.ConfirmationCodeHash != ""
}

// TaskStatus is the workflow state of a task
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
)

func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone:
		return true
	default:
		return false
	}
}

// TaskPriority orders tasks, higher is more urgent
type TaskPriority int

const (
	TaskPriorityLow    TaskPriority = 1
	TaskPriorityMedium TaskPriority = 2
	TaskPriorityHigh   TaskPriority = 3
)

func (p TaskPriority) IsValid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	default:
		return false
	}
}

// Project groups tasks and is owned by its author
type Project struct {
	bun.BaseModel `bun:"table:projects,alias:prj"`

	ID          uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	Name        string     `bun:"name,notnull" json:"name"`
	Description string     `bun:"description,notnull" json:"description"`
	AuthorID    uuid.UUID  `bun:"author_id,notnull,type:uuid" json:"-"`
	Author      *User      `bun:"rel:belongs-to,join:author_id=id" json:"-"`
	CreatedAt   *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt   *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

var _ bun.BeforeAppendModelHook = (*Project)(nil)

func (p *Project) BeforeAppendModel(_ context.Context, query bun.Query) error {
	touch(query, &p.CreatedAt, &p.UpdatedAt)
	return nil
}

// Task belongs to exactly one project. ProjectID never changes after insert.
type Task struct {
	bun.BaseModel `bun:"table:tasks,alias:tsk"`

	ID          uuid.UUID    `bun:"id,pk,type:uuid" json:"id"`
	ProjectID   uuid.UUID    `bun:"project_id,notnull,type:uuid" json:"project"`
	Project     *Project     `bun:"rel:belongs-to,join:project_id=id" json:"-"`
	Title       string       `bun:"title,notnull" json:"title"`
	Description string       `bun:"description,notnull" json:"description"`
	Status      TaskStatus   `bun:"status,notnull" json:"status"`
	Priority    TaskPriority `bun:"priority,notnull" json:"priority"`
	AuthorID    uuid.UUID    `bun:"author_id,notnull,type:uuid" json:"-"`
	Author      *User        `bun:"rel:belongs-to,join:author_id=id" json:"-"`
	AssigneeID  *uuid.UUID   `bun:"assignee_id,type:uuid" json:"-"`
	Assignee    *User        `bun:"rel:belongs-to,join:assignee_id=id" json:"-"`
	DueDate     *time.Time   `bun:"due_date" json:"due_date,omitempty"`
	CreatedAt   *time.Time   `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt   *time.Time   `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

var _ bun.BeforeAppendModelHook = (*Task)(nil)

func (t *Task) BeforeAppendModel(_ context.Context, query bun.Query) error {
	touch(query, &t.CreatedAt, &t.UpdatedAt)
	if t.Status == "" {
		t.Status = TaskStatusTodo
	}
	if t.Priority == 0 {
		t.Priority = TaskPriorityMedium
	}
	return nil
}

func touch(query bun.Query, createdAt, updatedAt **time.Time) {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if *createdAt == nil {
			*createdAt = &now
		}
		*updatedAt = &now
	case *bun.UpdateQuery:
		*updatedAt = &now
	}
}
