// Package remote is the client side of the remote record store: the
// Store contract the sync engine talks to, the wire mapping between local
// records and remote rows, and a Postgres implementation.
package remote

import (
	"context"
	"time"

	"github.com/dmitrijs2005/taxiledger/internal/client/models"
)

// Row is the remote shape of a record. It carries no sync status: that
// field only means something on the device.
type Row struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
	Data      map[string]any
}

type Store interface {
	// Upsert inserts or replaces rows keyed by id. The batch is atomic.
	Upsert(ctx context.Context, c models.Collection, rows []Row) error

	// Select returns the rows of userID, limited to updated_at >= since
	// when since is not nil.
	Select(ctx context.Context, c models.Collection, userID string, since *time.Time) ([]Row, error)

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}

// WireMapper translates between local records and remote rows. It is the
// single place where the two schemas meet.
type WireMapper struct{}

// ToRemote drops the device-only sync status.
func (WireMapper) ToRemote(r models.Record) Row {
	c := r.Clone()
	return Row{
		ID:        c.ID,
		UserID:    c.UserID,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
		DeletedAt: c.DeletedAt,
		Data:      map[string]any(c.Data),
	}
}

// FromRemote builds the local record installed for a pulled row.
func (WireMapper) FromRemote(row Row) models.Record {
	r := models.Record{
		ID:         row.ID,
		UserID:     row.UserID,
		CreatedAt:  row.CreatedAt.UTC(),
		UpdatedAt:  row.UpdatedAt.UTC(),
		SyncStatus: models.StatusSynced,
		Data:       models.Values{},
	}
	if row.DeletedAt != nil {
		d := row.DeletedAt.UTC()
		r.DeletedAt = &d
	}
	// Metadata never travels inside the payload.
	r.Merge(models.Values(row.Data))
	return r
}
