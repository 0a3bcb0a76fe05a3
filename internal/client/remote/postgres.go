package remote

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/dmitrijs2005/taxiledger/internal/client/models"
	"github.com/dmitrijs2005/taxiledger/internal/client/remote/migrations"
	"github.com/dmitrijs2005/taxiledger/internal/dbx"
)

// PostgresStore implements Store over a Postgres database reached through
// the pgx stdlib driver.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres connects to dsn. The connection is lazy: an unreachable
// server only shows up on the first Ping or query.
func OpenPostgres(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return NewPostgresStore(db), nil
}

func (s *PostgresStore) Close() error { return s.db.Close() }

var gooseUpContext = goose.UpContext

// RunMigrations creates the collection tables when missing.
func (s *PostgresStore) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, s.db, "."); err != nil {
		return fmt.Errorf("migrate remote store: %w", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func table(c models.Collection) (string, error) {
	if _, err := models.ParseCollection(string(c)); err != nil {
		return "", err
	}
	return string(c), nil
}

func (s *PostgresStore) Upsert(ctx context.Context, c models.Collection, rows []Row) error {
	t, err := table(c)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	query := `INSERT INTO ` + t + ` (id, user_id, created_at, updated_at, deleted_at, data)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at,
			deleted_at = EXCLUDED.deleted_at,
			data = EXCLUDED.data`

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, row := range rows {
			data := row.Data
			if data == nil {
				data = map[string]any{}
			}
			payload, err := json.Marshal(data)
			if err != nil {
				return fmt.Errorf("encode %s[%s]: %w", t, row.ID, err)
			}

			var deleted sql.NullTime
			if row.DeletedAt != nil {
				deleted = sql.NullTime{Time: row.DeletedAt.UTC(), Valid: true}
			}

			if _, err := tx.ExecContext(ctx, query,
				row.ID, row.UserID, row.CreatedAt.UTC(), row.UpdatedAt.UTC(), deleted, string(payload),
			); err != nil {
				return fmt.Errorf("upsert %s[%s]: %w", t, row.ID, err)
			}
		}
		return nil
	})
}

func (s *PostgresStore) Select(ctx context.Context, c models.Collection, userID string, since *time.Time) ([]Row, error) {
	t, err := table(c)
	if err != nil {
		return nil, err
	}

	query := `SELECT id, user_id, created_at, updated_at, deleted_at, data FROM ` + t + ` WHERE user_id = $1`
	args := []any{userID}
	if since != nil {
		query += ` AND updated_at >= $2`
		args = append(args, since.UTC())
	}

	rs, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", t, err)
	}
	defer rs.Close()

	var out []Row
	for rs.Next() {
		var (
			row     Row
			deleted sql.NullTime
			payload []byte
		)
		if err := rs.Scan(&row.ID, &row.UserID, &row.CreatedAt, &row.UpdatedAt, &deleted, &payload); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", t, err)
		}
		if deleted.Valid {
			d := deleted.Time
			row.DeletedAt = &d
		}
		dec := json.NewDecoder(bytes.NewReader(payload))
		dec.UseNumber()
		if err := dec.Decode(&row.Data); err != nil {
			return nil, fmt.Errorf("decode %s[%s]: %w", t, row.ID, err)
		}
		out = append(out, row)
	}
	if err := rs.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s rows: %w", t, err)
	}
	return out, nil
}
