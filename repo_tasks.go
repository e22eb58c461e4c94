package tracker

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Tasks stores tasks
type Tasks interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Task, error)
	ListByProject(ctx context.Context, projectID uuid.UUID, req PageRequest) ([]*Task, int, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Task) (*Task, error)
	UpdateTx(ctx context.Context, tx bun.IDB, record *Task, columns ...string) (*Task, error)
}

type tasks struct {
	db *bun.DB
}

var _ Tasks = (*tasks)(nil)

func NewTasksRepository(db *bun.DB) Tasks {
	return &tasks{db: db}
}

func (r *tasks) GetByID(ctx context.Context, id uuid.UUID) (*Task, error) {
	return r.getByIDTx(ctx, r.db, id)
}

func (r *tasks) getByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Task, error) {
	record := &Task{}
	err := tx.NewSelect().
		Model(record).
		Relation("Author").
		Relation("Assignee").
		Where("?TableAlias.id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, storeError(err, "task", map[string]any{"id": id.String()})
	}
	return record, nil
}

// ListByProject orders tasks newest first.
func (r *tasks) ListByProject(ctx context.Context, projectID uuid.UUID, req PageRequest) ([]*Task, int, error) {
	records := []*Task{}
	count, err := r.db.NewSelect().
		Model(&records).
		Relation("Author").
		Relation("Assignee").
		Where("?TableAlias.project_id = ?", projectID).
		OrderExpr("?TableAlias.created_at DESC").
		Limit(req.Limit()).
		Offset(req.Offset()).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, storeError(err, "task", nil)
	}
	return records, count, nil
}

func (r *tasks) CreateTx(ctx context.Context, tx bun.IDB, record *Task) (*Task, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if _, err := tx.NewInsert().Model(record).Returning("NULL").Exec(ctx); err != nil {
		return nil, storeError(err, "task", map[string]any{"title": record.Title})
	}
	return r.getByIDTx(ctx, tx, record.ID)
}

// UpdateTx never writes project_id or author_id.
func (r *tasks) UpdateTx(ctx context.Context, tx bun.IDB, record *Task, columns ...string) (*Task, error) {
	if len(columns) == 0 {
		columns = []string{"title", "description", "status", "priority", "assignee_id", "due_date"}
	}
	columns = append(filterColumns(columns, "project_id", "author_id", "created_at"), "updated_at")

	if _, err := tx.NewUpdate().Model(record).Column(columns...).WherePK().Exec(ctx); err != nil {
		return nil, storeError(err, "task", map[string]any{"id": record.ID.String()})
	}
	return r.getByIDTx(ctx, tx, record.ID)
}

func filterColumns(columns []string, drop ...string) []string {
	out := make([]string, 0, len(columns))
outer:
	for _, c := range columns {
		for _, d := range drop {
			if c == d {
				continue outer
			}
		}
		out = append(out, c)
	}
	return out
}
