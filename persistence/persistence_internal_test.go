package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sqliteConfig string

func (c sqliteConfig) GetDriver() string { return DriverSQLite }
func (c sqliteConfig) GetDSN() string    { return string(c) }
func (c sqliteConfig) GetDebug() bool    { return false }

func TestSQLiteDSNEnablesForeignKeys(t *testing.T) {
	tests := []struct {
		dsn    string
		expect string
	}{
		{"file::memory:", "file::memory:?_pragma=foreign_keys(1)&_foreign_keys=1"},
		{"file:tracker.db?cache=shared", "file:tracker.db?cache=shared&_pragma=foreign_keys(1)&_foreign_keys=1"},
		{"tracker.db?_pragma=foreign_keys(0)", "tracker.db?_pragma=foreign_keys(0)"},
		{"tracker.db?_fk=1", "tracker.db?_fk=1"},
	}

	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			assert.Equal(t, tt.expect, sqliteDSN(tt.dsn))
		})
	}
}

func TestOpenSQLiteEnforcesForeignKeysOnNewConnections(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, sqliteConfig("file::memory:"))
	require.NoError(t, err)
	defer db.Close()

	var enabled int
	require.NoError(t, db.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&enabled))
	assert.Equal(t, 1, enabled)

	// drop the pooled connection, the next one is opened from the DSN alone
	db.SetMaxIdleConns(0)
	db.SetMaxIdleConns(1)

	require.NoError(t, db.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&enabled))
	assert.Equal(t, 1, enabled)
}
