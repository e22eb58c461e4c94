package tracker

import (
	"context"
	"strings"

	"github.com/uptrace/bun"
)

// UserDirectory serves user profiles under the identity scope policy.
type UserDirectory struct {
	repo RepositoryManager
	gate
}

func NewUserDirectory(repo RepositoryManager, opts ...ServiceOption) *UserDirectory {
	return &UserDirectory{repo: repo, gate: applyServiceOptions(opts)}
}

// resolve loads the profile named by ref. The "me" alias always resolves to
// the caller and is never looked up by name. Only admins learn that a name
// is unknown, everyone else is denied as for an existing profile.
func (s *UserDirectory) resolve(ctx context.Context, p Principal, verb Verb, ref string) (*User, error) {
	if p.IsAnonymous() {
		return nil, s.authorize(ctx, p, verb, ProfileCollection())
	}
	if IsSelfAlias(ref) {
		return s.repo.Users().GetByID(ctx, p.ID().String())
	}
	user, err := s.repo.Users().GetByUsername(ctx, strings.TrimSpace(ref))
	if err != nil && !p.IsAdmin() && IsError(err, ErrNotFound) {
		return nil, s.authorize(ctx, p, verb, ProfileCollection())
	}
	return user, err
}

func (s *UserDirectory) Profile(ctx context.Context, p Principal, ref string) (*User, error) {
	user, err := s.resolve(ctx, p, VerbRead, ref)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, p, VerbRead, ProfileTarget(user)); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateProfile applies a partial update. A role change is only applied for
// admins addressing the profile by username, never through the alias.
func (s *UserDirectory) UpdateProfile(ctx context.Context, p Principal, ref string, update ProfileUpdate) (*User, error) {
	user, err := s.resolve(ctx, p, VerbWrite, ref)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, p, VerbWrite, ProfileTarget(user)); err != nil {
		return nil, err
	}

	roleAllowed := p.IsAdmin() && !IsSelfAlias(ref)
	if err := ValidationFromOzzo(update.Validate()); err != nil {
		return nil, err
	}

	var role UserRole
	if roleAllowed && update.Role.Set && !update.Role.Null {
		if role, err = ParseRole(update.Role.Value); err != nil {
			return nil, NewFieldError("role", "must be one of user, moderator, admin")
		}
	}

	columns := []string{}
	if update.Username.Set && !update.Username.Null {
		user.Username = strings.TrimSpace(update.Username.Value)
		columns = append(columns, "username")
	}
	if update.Email.Set && !update.Email.Null {
		user.Email = strings.TrimSpace(update.Email.Value)
		columns = append(columns, "email")
	}
	if update.FirstName.Set {
		user.FirstName = update.FirstName.Value
		columns = append(columns, "first_name")
	}
	if update.LastName.Set {
		user.LastName = update.LastName.Value
		columns = append(columns, "last_name")
	}
	if update.Bio.Set {
		user.Bio = update.Bio.Value
		columns = append(columns, "bio")
	}
	if role.IsValid() {
		user.Role = role
		columns = append(columns, "role")
	}

	if len(columns) == 0 {
		return user, nil
	}

	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err = s.repo.Users().UpdateTx(ctx, tx, user, columns...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// List is admin only.
func (s *UserDirectory) List(ctx context.Context, p Principal, req PageRequest) (Page[*User], error) {
	if err := s.authorize(ctx, p, VerbRead, ProfileCollection()); err != nil {
		return Page[*User]{}, err
	}
	records, count, err := s.repo.Users().Search(ctx, req)
	if err != nil {
		return Page[*User]{}, err
	}
	return NewPage(req, count, records)
}

// Create is the admin level operation that may choose a role.
func (s *UserDirectory) Create(ctx context.Context, p Principal, payload CreateUserPayload) (*User, error) {
	if err := s.authorize(ctx, p, VerbWrite, ProfileCollection()); err != nil {
		return nil, err
	}

	payload.Username = strings.TrimSpace(payload.Username)
	payload.Email = strings.TrimSpace(payload.Email)
	if err := ValidationFromOzzo(payload.Validate()); err != nil {
		return nil, err
	}

	role := RoleUser
	if payload.Role != "" {
		role, _ = ParseRole(payload.Role)
	}

	record := &User{
		Username:  payload.Username,
		Email:     payload.Email,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Bio:       payload.Bio,
		Role:      role,
	}

	var created *User
	err := s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		created, err = s.repo.Users().CreateTx(ctx, tx, record)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Remove deletes the profile, cascading to owned projects and authored
// tasks.
func (s *UserDirectory) Remove(ctx context.Context, p Principal, ref string) error {
	user, err := s.resolve(ctx, p, VerbWrite, ref)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, p, VerbWrite, ProfileTarget(user)); err != nil {
		return err
	}
	return s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return s.repo.Users().DeleteTx(ctx, tx, user.ID)
	})
}
