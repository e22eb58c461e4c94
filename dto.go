package tracker

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// DateLayout is the wire format of task due dates.
const DateLayout = "2006-01-02"

// Optional distinguishes an absent JSON field from an explicit null.
type Optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Some returns a present, non null Optional.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		o.Null = true
		return nil
	}
	return json.Unmarshal(b, &o.Value)
}

// ProfileUpdate is a partial profile update. Role is only honoured for
// admins addressing a profile by username.
type ProfileUpdate struct {
	Username  Optional[string] `json:"username"`
	Email     Optional[string] `json:"email"`
	FirstName Optional[string] `json:"first_name"`
	LastName  Optional[string] `json:"last_name"`
	Bio       Optional[string] `json:"bio"`
	Role      Optional[string] `json:"role"`
}

func (p ProfileUpdate) Validate() error {
	errs := validation.Errors{}
	if p.Username.Set {
		errs["username"] = validation.Validate(strings.TrimSpace(p.Username.Value), usernameRules()...)
	}
	if p.Email.Set {
		errs["email"] = validation.Validate(strings.TrimSpace(p.Email.Value), emailRules()...)
	}
	if p.FirstName.Set {
		errs["first_name"] = validation.Validate(p.FirstName.Value, validation.Length(0, 150))
	}
	if p.LastName.Set {
		errs["last_name"] = validation.Validate(p.LastName.Value, validation.Length(0, 150))
	}
	return errs.Filter()
}

// CreateUserPayload is the admin level user creation request.
type CreateUserPayload struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Bio       string `json:"bio"`
	Role      string `json:"role"`
}

func (p CreateUserPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Username, usernameRules()...),
		validation.Field(&p.Email, emailRules()...),
		validation.Field(&p.FirstName, validation.Length(0, 150)),
		validation.Field(&p.LastName, validation.Length(0, 150)),
		validation.Field(&p.Role, validation.By(validRoleName)),
	)
}

func validRoleName(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := ParseRole(s); err != nil {
		return validation.NewError("validation_role_invalid", "must be one of user, moderator, admin")
	}
	return nil
}

type ProjectPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (p ProjectPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Required, validation.Length(1, 255)),
	)
}

type ProjectUpdate struct {
	Name        Optional[string] `json:"name"`
	Description Optional[string] `json:"description"`
}

func (p ProjectUpdate) Validate() error {
	errs := validation.Errors{}
	if p.Name.Set {
		errs["name"] = validation.Validate(p.Name.Value, validation.Required, validation.Length(1, 255))
	}
	return errs.Filter()
}

// TaskPayload creates a task. Project and author come from the request
// context, never from the body.
type TaskPayload struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	Priority    int     `json:"priority"`
	Assignee    *string `json:"assignee"`
	DueDate     *string `json:"due_date"`
}

func (p TaskPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Title, validation.Required, validation.Length(1, 255)),
		validation.Field(&p.Status, validation.By(validStatus)),
		validation.Field(&p.Priority, validation.By(validPriority)),
		validation.Field(&p.DueDate, validation.By(validDate)),
	)
}

// TaskUpdate is a partial task update.
type TaskUpdate struct {
	Title       Optional[string] `json:"title"`
	Description Optional[string] `json:"description"`
	Status      Optional[string] `json:"status"`
	Priority    Optional[int]    `json:"priority"`
	Assignee    Optional[string] `json:"assignee"`
	DueDate     Optional[string] `json:"due_date"`
}

func (p TaskUpdate) Validate() error {
	errs := validation.Errors{}
	if p.Title.Set {
		errs["title"] = validation.Validate(p.Title.Value, validation.Required, validation.Length(1, 255))
	}
	if p.Status.Set {
		errs["status"] = validation.Validate(p.Status.Value, validation.Required, validation.By(validStatus))
	}
	if p.Priority.Set {
		errs["priority"] = validation.Validate(p.Priority.Value, validation.Required, validation.By(validPriority))
	}
	if p.DueDate.Set && !p.DueDate.Null {
		errs["due_date"] = validation.Validate(p.DueDate.Value, validation.By(validDate))
	}
	return errs.Filter()
}

func validStatus(value any) error {
	s, _ := value.(string)
	if s == "" || TaskStatus(s).IsValid() {
		return nil
	}
	return validation.NewError("validation_status_invalid", "must be one of todo, in_progress, done")
}

func validPriority(value any) error {
	n, _ := value.(int)
	if n == 0 || TaskPriority(n).IsValid() {
		return nil
	}
	return validation.NewError("validation_priority_invalid", "must be 1, 2 or 3")
}

func validDate(value any) error {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case *string:
		if v == nil {
			return nil
		}
		s = *v
	}
	if s == "" {
		return nil
	}
	if _, err := time.Parse(DateLayout, s); err != nil {
		return validation.NewError("validation_date_invalid", "date has wrong format, use YYYY-MM-DD")
	}
	return nil
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// UserResponse is the public shape of a user.
type UserResponse struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Bio       string `json:"bio"`
	Role      string `json:"role"`
}

func NewUserResponse(u *User) UserResponse {
	return UserResponse{
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Bio:       u.Bio,
		Role:      u.Role.String(),
	}
}

type ProjectResponse struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Author      string     `json:"author"`
	CreatedAt   *time.Time `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

func NewProjectResponse(p *Project) ProjectResponse {
	out := ProjectResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if p.Author != nil {
		out.Author = p.Author.Username
	}
	return out
}

type TaskResponse struct {
	ID          uuid.UUID  `json:"id"`
	Project     uuid.UUID  `json:"project"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    int        `json:"priority"`
	Author      string     `json:"author"`
	Assignee    *string    `json:"assignee"`
	DueDate     *string    `json:"due_date"`
	CreatedAt   *time.Time `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

func NewTaskResponse(t *Task) TaskResponse {
	out := TaskResponse{
		ID:          t.ID,
		Project:     t.ProjectID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		Priority:    int(t.Priority),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.Author != nil {
		out.Author = t.Author.Username
	}
	if t.Assignee != nil {
		name := t.Assignee.Username
		out.Assignee = &name
	}
	if t.DueDate != nil {
		d := t.DueDate.Format(DateLayout)
		out.DueDate = &d
	}
	return out
}
