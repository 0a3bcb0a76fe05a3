// Package records persists collection records in the local SQLite store.
// Each collection has its own table; the entity payload is a JSON column.
package records

import (
	"context"
	"time"

	"github.com/dmitrijs2005/taxiledger/internal/client/models"
)

// Filter narrows List. Zero values mean "no constraint", except that
// tombstones are skipped unless IncludeDeleted is set.
type Filter struct {
	IncludeDeleted bool
	UserID         string
	Status         models.SyncStatus
	UpdatedSince   *time.Time
}

type Repository interface {
	// Upsert inserts r or replaces the row with the same id.
	Upsert(ctx context.Context, c models.Collection, r models.Record) error

	// Get returns common.ErrNotFound when no row has the id.
	Get(ctx context.Context, c models.Collection, id string) (*models.Record, error)

	List(ctx context.Context, c models.Collection, f Filter) ([]models.Record, error)
}
