package tracker

import (
	"database/sql"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// IsUniqueViolation detects unique constraint failures from both the sqlite
// and postgres drivers.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsRecordNotFound covers both the repository and database/sql flavours.
func IsRecordNotFound(err error) bool {
	if err == nil {
		return false
	}
	return repository.IsRecordNotFound(err) || errors.Is(err, sql.ErrNoRows)
}

// storeError maps storage failures to domain errors.
func storeError(err error, resource string, meta map[string]any) error {
	switch {
	case err == nil:
		return nil
	case IsRecordNotFound(err):
		return NewNotFoundError(resource, meta)
	case IsUniqueViolation(err):
		return NewConflictError(err, meta)
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.Code != 0 {
		return richErr
	}
	return NewInternalError(err, "storage failure on "+resource)
}
