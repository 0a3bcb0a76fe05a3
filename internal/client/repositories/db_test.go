package repositories

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"
)

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n)
	require.NoError(t, err)
	return n > 0
}

func TestOpen_CreatesAllTables(t *testing.T) {
	ctx := context.Background()
	repos, err := Open(ctx, filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	defer repos.Close()

	for _, name := range []string{"goose_db_version", "metadata", "trips", "earnings",
		"expenses", "schedule", "notes", "heatmap_points"} {
		require.True(t, tableExists(t, repos.DB, name), name)
	}
}

func TestRunMigrations_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	repos, err := Open(ctx, filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	defer repos.Close()

	require.NoError(t, RunMigrations(ctx, repos.DB))
}

func TestOpen_MigrationErrorClosesDB(t *testing.T) {
	orig := gooseUpContext
	t.Cleanup(func() { gooseUpContext = orig })
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("bad migration")
	}

	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "ledger.db"))
	require.ErrorContains(t, err, "migrate local store: bad migration")
}
