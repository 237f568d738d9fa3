package migrations

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	createNotes = Migration{
		Version:     1,
		Description: "create notes table",
		Up:          `CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT NOT NULL)`,
		Down:        `DROP TABLE notes`,
	}
	indexNotes = Migration{
		Version:     2,
		Description: "index notes body",
		Up:          `CREATE INDEX idx_notes_body ON notes(body)`,
		Down:        `DROP INDEX idx_notes_body`,
	}
)

func openMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestApplyAndRollback(t *testing.T) {
	ctx := context.Background()
	db := openMemoryDB(t)

	// Registered out of order on purpose
	m := NewManager(indexNotes, createNotes)
	assert.Equal(t, 2, m.Latest())

	applied, err := m.Apply(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 2, applied)

	version, err := m.Version(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 2, version)

	_, err = db.ExecContext(ctx, "INSERT INTO notes (body) VALUES ('hello')")
	require.NoError(t, err)

	// Applying again is a no-op
	applied, err = m.Apply(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 0, applied)

	require.NoError(t, m.Rollback(ctx, db))
	version, err = m.Version(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 1, version)

	pending, err := m.Pending(ctx, db)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 2, pending[0].Version)

	require.NoError(t, m.Rollback(ctx, db))
	_, err = db.ExecContext(ctx, "INSERT INTO notes (body) VALUES ('gone')")
	assert.Error(t, err, "notes table should be dropped")

	err = m.Rollback(ctx, db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no migrations to rollback")
}

func TestApplyStopsOnFailure(t *testing.T) {
	ctx := context.Background()
	db := openMemoryDB(t)

	broken := Migration{Version: 2, Description: "broken", Up: `CREATE TABLE`}
	m := NewManager(createNotes, broken)

	applied, err := m.Apply(ctx, db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to apply migration 2")
	assert.Equal(t, 1, applied)

	version, err := m.Version(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 1, version, "failed migration must not be recorded")
}

func TestRegisterReplacesVersion(t *testing.T) {
	m := NewManager(createNotes)
	m.Register(Migration{Version: 1, Description: "replacement", Up: "SELECT 1"})

	require.Len(t, m.migrations, 1)
	assert.Equal(t, "replacement", m.migrations[0].Description)
	assert.Equal(t, 0, NewManager().Latest())
}
