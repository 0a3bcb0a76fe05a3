// Package models defines the client-side record envelope shared by every
// collection, plus typed views over the entity payloads.
package models

import (
	"fmt"
	"maps"
	"time"

	"github.com/dmitrijs2005/taxiledger/internal/common"
)

// Collection names a record collection.
type Collection string

const (
	Trips         Collection = "trips"
	Earnings      Collection = "earnings"
	Expenses      Collection = "expenses"
	Schedule      Collection = "schedule"
	Notes         Collection = "notes"
	HeatmapPoints Collection = "heatmap_points"
)

// SyncCollections lists every collection that takes part in sync, in the
// order a sync cycle visits them.
var SyncCollections = []Collection{Trips, Earnings, Expenses, Schedule, Notes, HeatmapPoints}

// ParseCollection validates a collection name.
func ParseCollection(s string) (Collection, error) {
	for _, c := range SyncCollections {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", common.ErrUnknownCollection, s)
}

// SyncStatus tells whether a record carries local changes not yet
// acknowledged by the remote store.
type SyncStatus string

const (
	StatusPending SyncStatus = "pending"
	StatusSynced  SyncStatus = "synced"
)

// Metadata keys. They live in Record fields, never in Data.
const (
	KeyID         = "id"
	KeyUserID     = "user_id"
	KeyCreatedAt  = "created_at"
	KeyUpdatedAt  = "updated_at"
	KeyDeletedAt  = "deleted_at"
	KeySyncStatus = "sync_status"
)

// IsReservedKey reports whether key is record metadata rather than payload.
func IsReservedKey(key string) bool {
	switch key {
	case KeyID, KeyUserID, KeyCreatedAt, KeyUpdatedAt, KeyDeletedAt, KeySyncStatus:
		return true
	}
	return false
}

// Record is the envelope stored for every entity.
type Record struct {
	ID         string
	UserID     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	DeletedAt  *time.Time
	SyncStatus SyncStatus
	Data       Values
}

// Deleted reports whether r is a tombstone.
func (r Record) Deleted() bool { return r.DeletedAt != nil }

// Clone returns a deep enough copy for the store to mutate safely.
func (r Record) Clone() Record {
	out := r
	if r.DeletedAt != nil {
		d := *r.DeletedAt
		out.DeletedAt = &d
	}
	out.Data = maps.Clone(r.Data)
	if out.Data == nil {
		out.Data = Values{}
	}
	return out
}

// Merge applies values over r.Data. Reserved keys are ignored and a nil
// value removes the key.
func (r *Record) Merge(values Values) {
	if r.Data == nil {
		r.Data = Values{}
	}
	for k, v := range values {
		if IsReservedKey(k) {
			continue
		}
		if v == nil {
			delete(r.Data, k)
			continue
		}
		r.Data[k] = v
	}
}

// Timestamp is the moment the record describes for recency purposes:
// created_at, falling back to updated_at.
func (r Record) Timestamp() time.Time {
	if !r.CreatedAt.IsZero() {
		return r.CreatedAt
	}
	return r.UpdatedAt
}
