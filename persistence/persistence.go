// Package persistence opens the tracker database and applies its schema.
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/goliatone/go-errors"
	tracker "github.com/goliatone/go-tracker"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is the subset of the application configuration needed to open
// the database.
type Config interface {
	GetDriver() string
	GetDSN() string
	GetDebug() bool
}

// Open connects to the configured database. SQLite connections are limited
// to a single open connection, which is what makes ":memory:" databases
// usable across a pool, and enable foreign keys through the DSN so any
// replacement connection gets them too.
func Open(ctx context.Context, cfg Config) (*bun.DB, error) {
	var db *bun.DB

	switch strings.ToLower(cfg.GetDriver()) {
	case DriverSQLite, "sqlite3":
		sqldb, err := sql.Open(sqliteshim.ShimName, sqliteDSN(cfg.GetDSN()))
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "open sqlite database")
		}
		sqldb.SetMaxOpenConns(1)
		db = bun.NewDB(sqldb, sqlitedialect.New())
	case DriverPostgres, "pg", "pgx":
		sqldb, err := sql.Open("pgx", cfg.GetDSN())
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "open postgres database")
		}
		db = bun.NewDB(sqldb, pgdialect.New())
	default:
		return nil, errors.New(fmt.Sprintf("unsupported database driver %q", cfg.GetDriver()), errors.CategoryBadInput)
	}

	if cfg.GetDebug() {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.CategoryInternal, "ping database")
	}

	return db, nil
}

// sqliteDSN turns foreign key enforcement on for every connection. Both
// spellings are set since sqliteshim may pick the cgo or the pure Go
// driver, each ignores the other's parameter.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "foreign_keys") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_foreign_keys=1"
}

// Migrate applies every pending migration for the dialect of db.
func Migrate(ctx context.Context, db *bun.DB, logger tracker.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		name  string
		gdial goose.Dialect
	)
	switch db.Dialect().Name() {
	case dialect.SQLite:
		name, gdial = DriverSQLite, goose.DialectSQLite3
	case dialect.PG:
		name, gdial = DriverPostgres, goose.DialectPostgres
	default:
		return errors.New("no migrations for dialect "+db.Dialect().Name().String(), errors.CategoryInternal)
	}

	fsys, err := tracker.MigrationsFor(name)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "load migrations")
	}

	provider, err := goose.NewProvider(gdial, db.DB, fsys)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "create migration provider")
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "apply migrations")
	}

	for _, r := range results {
		logger.Info("migration applied", "dialect", name, "version", r.Source.Version, "duration", r.Duration)
	}
	return nil
}
