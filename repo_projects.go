package tracker

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Projects stores projects
type Projects interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Project, error)
	List(ctx context.Context, req PageRequest) ([]*Project, int, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Project) (*Project, error)
	UpdateTx(ctx context.Context, tx bun.IDB, record *Project, columns ...string) (*Project, error)
	DeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
}

type projects struct {
	db *bun.DB
}

var _ Projects = (*projects)(nil)

func NewProjectsRepository(db *bun.DB) Projects {
	return &projects{db: db}
}

func (r *projects) GetByID(ctx context.Context, id uuid.UUID) (*Project, error) {
	record := &Project{}
	err := r.db.NewSelect().
		Model(record).
		Relation("Author").
		Where("?TableAlias.id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, storeError(err, "project", map[string]any{"id": id.String()})
	}
	return record, nil
}

// List orders projects by name.
func (r *projects) List(ctx context.Context, req PageRequest) ([]*Project, int, error) {
	records := []*Project{}
	count, err := r.db.NewSelect().
		Model(&records).
		Relation("Author").
		OrderExpr("?TableAlias.name ASC").
		Limit(req.Limit()).
		Offset(req.Offset()).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, storeError(err, "project", nil)
	}
	return records, count, nil
}

func (r *projects) CreateTx(ctx context.Context, tx bun.IDB, record *Project) (*Project, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if _, err := tx.NewInsert().Model(record).Returning("NULL").Exec(ctx); err != nil {
		return nil, storeError(err, "project", map[string]any{"name": record.Name})
	}
	return record, nil
}

func (r *projects) UpdateTx(ctx context.Context, tx bun.IDB, record *Project, columns ...string) (*Project, error) {
	if len(columns) == 0 {
		columns = []string{"name", "description"}
	}
	columns = append(columns, "updated_at")

	if _, err := tx.NewUpdate().Model(record).Column(columns...).WherePK().Exec(ctx); err != nil {
		return nil, storeError(err, "project", map[string]any{"id": record.ID.String()})
	}
	return record, nil
}

// DeleteTx removes the project and its tasks.
func (r *projects) DeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	res, err := tx.NewDelete().Model((*Project)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return storeError(err, "project", map[string]any{"id": id.String()})
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return NewNotFoundError("project", map[string]any{"id": id.String()})
	}
	return nil
}
