package records

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/taxiledger/internal/client/models"
	"github.com/dmitrijs2005/taxiledger/internal/common"
	"github.com/dmitrijs2005/taxiledger/internal/dbx"
	"github.com/dmitrijs2005/taxiledger/internal/timex"
)

// SQLiteRepository implements Repository over a DBTX (*sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// WithDB returns a repository bound to another handle, typically a transaction.
func (r *SQLiteRepository) WithDB(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const columns = `id, user_id, created_at, updated_at, deleted_at, sync_status, data`

func table(c models.Collection) (string, error) {
	if _, err := models.ParseCollection(string(c)); err != nil {
		return "", err
	}
	return string(c), nil
}

func (r *SQLiteRepository) Upsert(ctx context.Context, c models.Collection, rec models.Record) error {
	t, err := table(c)
	if err != nil {
		return err
	}

	data := rec.Data
	if data == nil {
		data = models.Values{}
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode %s[%s]: %w", t, rec.ID, err)
	}

	query := `INSERT INTO ` + t + ` (` + columns + `) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			deleted_at = excluded.deleted_at,
			sync_status = excluded.sync_status,
			data = excluded.data`

	_, err = r.db.ExecContext(ctx, query,
		rec.ID, rec.UserID,
		timex.Format(rec.CreatedAt), timex.Format(rec.UpdatedAt),
		timex.NullString(rec.DeletedAt),
		string(rec.SyncStatus), string(payload))
	if err != nil {
		return fmt.Errorf("failed to upsert %s[%s]: %w", t, rec.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, c models.Collection, id string) (*models.Record, error) {
	t, err := table(c)
	if err != nil {
		return nil, err
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM `+t+` WHERE id = ?`, id)
	rec, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s[%s]: %w", t, id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s[%s]: %w", t, id, err)
	}
	return rec, nil
}

func (r *SQLiteRepository) List(ctx context.Context, c models.Collection, f Filter) ([]models.Record, error) {
	t, err := table(c)
	if err != nil {
		return nil, err
	}

	var (
		where []string
		args  []any
	)
	if !f.IncludeDeleted {
		where = append(where, "deleted_at IS NULL")
	}
	if f.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, f.UserID)
	}
	if f.Status != "" {
		where = append(where, "sync_status = ?")
		args = append(args, string(f.Status))
	}
	if f.UpdatedSince != nil {
		where = append(where, "updated_at >= ?")
		args = append(args, timex.Format(*f.UpdatedSince))
	}

	query := `SELECT ` + columns + ` FROM ` + t
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", t, err)
	}
	defer rows.Close()

	var out []models.Record
	for rows.Next() {
		rec, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", t, err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s rows: %w", t, err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (*models.Record, error) {
	var (
		rec              models.Record
		created, updated string
		deleted          sql.NullString
		status, payload  string
	)
	if err := s.Scan(&rec.ID, &rec.UserID, &created, &updated, &deleted, &status, &payload); err != nil {
		return nil, err
	}

	var err error
	if rec.CreatedAt, err = timex.Parse(created); err != nil {
		return nil, err
	}
	if rec.UpdatedAt, err = timex.Parse(updated); err != nil {
		return nil, err
	}
	if rec.DeletedAt, err = timex.FromNullString(deleted); err != nil {
		return nil, err
	}
	rec.SyncStatus = models.SyncStatus(status)

	dec := json.NewDecoder(bytes.NewReader([]byte(payload)))
	dec.UseNumber()
	if err := dec.Decode(&rec.Data); err != nil {
		return nil, fmt.Errorf("decode data: %w", err)
	}
	if rec.Data == nil {
		rec.Data = models.Values{}
	}
	return &rec, nil
}
