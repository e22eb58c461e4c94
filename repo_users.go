package tracker

import (
	"context"
	"strings"

	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the credential store
type Users interface {
	GetByID(ctx context.Context, id string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*User, error)
	GetByCredentialPair(ctx context.Context, username, email string) (*User, error)
	GetByCredentialPairTx(ctx context.Context, tx bun.IDB, username, email string) (*User, error)

	// EnsureSignupTx returns the record for the exact (username, email)
	// pair, creating it when absent. A clash on username or email alone is
	// a ConflictError.
	EnsureSignupTx(ctx context.Context, tx bun.IDB, username, email string) (*User, error)
	StoreConfirmationHashTx(ctx context.Context, tx bun.IDB, id uuid.UUID, hash string) error

	CreateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error)
	UpdateTx(ctx context.Context, tx bun.IDB, record *User, columns ...string) (*User, error)
	DeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
	Search(ctx context.Context, req PageRequest) ([]*User, int, error)
}

type users struct {
	repo repository.Repository[*User]
	db   *bun.DB
}

var _ Users = (*users)(nil)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "username"
		},
	})

	return &users{
		repo: repo,
		db:   db,
	}
}

// SignupID derives the stable id of the record created by a signup for the
// given pair, so concurrent identical signups converge on one row.
func SignupID(username, email string) (uuid.UUID, error) {
	return hashid.NewUUID(username + ":" + strings.ToLower(email))
}

func (a *users) GetByID(ctx context.Context, id string) (*User, error) {
	user, err := a.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "user", map[string]any{"id": id})
	}
	return user, nil
}

func (a *users) GetByUsername(ctx context.Context, username string) (*User, error) {
	return a.GetByUsernameTx(ctx, a.db, username)
}

func (a *users) GetByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.username = ?", username).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, storeError(err, "user", map[string]any{"username": username})
	}
	return record, nil
}

func (a *users) GetByCredentialPair(ctx context.Context, username, email string) (*User, error) {
	return a.GetByCredentialPairTx(ctx, a.db, username, email)
}

func (a *users) GetByCredentialPairTx(ctx context.Context, tx bun.IDB, username, email string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.username = ?", username).
		Where("?TableAlias.email = ?", email).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, storeError(err, "user", map[string]any{"username": username})
	}
	return record, nil
}

func (a *users) EnsureSignupTx(ctx context.Context, tx bun.IDB, username, email string) (*User, error) {
	id, err := SignupID(username, email)
	if err != nil {
		return nil, NewInternalError(err, "unable to derive user id")
	}

	record := &User{
		ID:       id,
		Username: username,
		Email:    email,
		Role:     RoleUser,
	}

	_, err = tx.NewInsert().
		Model(record).
		On("CONFLICT (id) DO NOTHING").
		Returning("NULL").
		Exec(ctx)
	if err != nil {
		return nil, storeError(err, "user", map[string]any{"username": username})
	}

	found, err := a.GetByCredentialPairTx(ctx, tx, username, email)
	if err == nil || !IsError(err, ErrNotFound) {
		return found, err
	}

	// the derived id belongs to a user who renamed since, a random id is
	// free and a real username or email clash still fails as a conflict
	record.ID = uuid.New()
	if _, err := tx.NewInsert().Model(record).Returning("NULL").Exec(ctx); err != nil {
		return nil, storeError(err, "user", map[string]any{"username": username})
	}
	return a.GetByCredentialPairTx(ctx, tx, username, email)
}

func (a *users) StoreConfirmationHashTx(ctx context.Context, tx bun.IDB, id uuid.UUID, hash string) error {
	record := &User{ID: id, ConfirmationCodeHash: hash}
	res, err := tx.NewUpdate().
		Model(record).
		Column("confirmation_code_hash", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return storeError(err, "user", map[string]any{"id": id.String()})
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return NewNotFoundError("user", map[string]any{"id": id.String()})
	}
	return nil
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	created, err := a.repo.CreateTx(ctx, tx, record)
	if err != nil {
		return nil, storeError(err, "user", map[string]any{"username": record.Username})
	}
	return created, nil
}

// UpdateTx writes the given columns, or every mutable profile column when
// none are named.
func (a *users) UpdateTx(ctx context.Context, tx bun.IDB, record *User, columns ...string) (*User, error) {
	if len(columns) == 0 {
		columns = []string{"username", "email", "first_name", "last_name", "bio", "role"}
	}
	columns = append(columns, "updated_at")

	_, err := tx.NewUpdate().
		Model(record).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, storeError(err, "user", map[string]any{"id": record.ID.String()})
	}
	return record, nil
}

// DeleteTx removes the user, projects and authored tasks go with it.
func (a *users) DeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	res, err := tx.NewDelete().
		Model((*User)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return storeError(err, "user", map[string]any{"id": id.String()})
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return NewNotFoundError("user", map[string]any{"id": id.String()})
	}
	return nil
}

// Search lists users ordered by username, filtered by a case insensitive
// substring of the username.
func (a *users) Search(ctx context.Context, req PageRequest) ([]*User, int, error) {
	records := []*User{}
	q := a.db.NewSelect().
		Model(&records).
		OrderExpr("?TableAlias.username ASC").
		Limit(req.Limit()).
		Offset(req.Offset())

	if term := strings.TrimSpace(req.Search); term != "" {
		q = q.Where("LOWER(?TableAlias.username) LIKE ? ESCAPE '\\'", "%"+likeEscape(strings.ToLower(term))+"%")
	}

	count, err := q.ScanAndCount(ctx)
	if err != nil {
		return nil, 0, storeError(err, "user", nil)
	}
	return records, count, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func likeEscape(s string) string {
	return likeEscaper.Replace(s)
}
