// Package repositories opens the local SQLite database, applies the
// migrations and hands out the repositories built on it.
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/taxiledger/internal/client/migrations"
	"github.com/dmitrijs2005/taxiledger/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/taxiledger/internal/client/repositories/records"
)

type Repositories struct {
	DB       *sql.DB
	Records  *records.SQLiteRepository
	Metadata *metadata.SQLiteRepository
}

func (r *Repositories) Close() error {
	return r.DB.Close()
}

var gooseUpContext = goose.UpContext

// RunMigrations applies the embedded SQLite migrations. Safe to repeat.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migrate local store: %w", err)
	}
	return nil
}

// Open opens (creating if needed) the SQLite database at dsn and migrates it.
func Open(ctx context.Context, dsn string) (*Repositories, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	// One writer keeps record visibility atomic and makes ":memory:" usable.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure local store: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Repositories{
		DB:       db,
		Records:  records.NewSQLiteRepository(db),
		Metadata: metadata.NewSQLiteRepository(db),
	}, nil
}
