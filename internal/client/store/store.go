// Package store is the local record store: the narrow API through which
// every record mutation goes. It stamps metadata, persists through the
// records repository and emits one change event per successful mutation.
package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dmitrijs2005/taxiledger/internal/client/models"
	"github.com/dmitrijs2005/taxiledger/internal/client/repositories/records"
	"github.com/dmitrijs2005/taxiledger/internal/common"
	"github.com/dmitrijs2005/taxiledger/internal/events"
	"github.com/dmitrijs2005/taxiledger/internal/hotspot"
	"github.com/dmitrijs2005/taxiledger/internal/timex"
)

// Publisher is the part of the change bus the store needs.
type Publisher interface {
	Publish(events.Event)
}

// PrecisionSource supplies the grid heatmap point coordinates are
// rounded to before they are stored.
type PrecisionSource interface {
	MapPrecision(ctx context.Context) (int, error)
}

// ListOptions controls List.
type ListOptions struct {
	IncludeDeleted bool
}

type Store struct {
	repo      records.Repository
	bus       Publisher
	clock     timex.Clock
	ids       timex.IDGenerator
	precision PrecisionSource
}

type Option func(*Store)

func WithClock(c timex.Clock) Option { return func(s *Store) { s.clock = c } }

func WithIDGenerator(g timex.IDGenerator) Option { return func(s *Store) { s.ids = g } }

// WithPointPrecision reads the heatmap grid from p. Without it points are
// rounded to hotspot.DefaultPrecision.
func WithPointPrecision(p PrecisionSource) Option { return func(s *Store) { s.precision = p } }

func New(repo records.Repository, bus Publisher, opts ...Option) *Store {
	s := &Store{
		repo:  repo,
		bus:   bus,
		clock: timex.RealClock{},
		ids:   timex.UUIDGenerator{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns the records of c, tombstones only when asked. No order is
// guaranteed; see SortByUpdatedDesc.
func (s *Store) List(ctx context.Context, c models.Collection, opts ListOptions) ([]models.Record, error) {
	return s.repo.List(ctx, c, records.Filter{IncludeDeleted: opts.IncludeDeleted})
}

// Query exposes the repository filter to the sync engine.
func (s *Store) Query(ctx context.Context, c models.Collection, f records.Filter) ([]models.Record, error) {
	return s.repo.List(ctx, c, f)
}

// Get returns common.ErrNotFound when id is absent.
func (s *Store) Get(ctx context.Context, c models.Collection, id string) (*models.Record, error) {
	return s.repo.Get(ctx, c, id)
}

// Create stores a new pending record owned by ownerID.
func (s *Store) Create(ctx context.Context, c models.Collection, values models.Values, ownerID string) (*models.Record, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner id is required", common.ErrValidation)
	}

	now := s.now()
	rec := models.Record{
		ID:         s.ids.New(),
		UserID:     ownerID,
		CreatedAt:  now,
		UpdatedAt:  now,
		SyncStatus: models.StatusPending,
		Data:       models.Values{},
	}
	rec.Merge(values)
	if err := s.snap(ctx, c, &rec); err != nil {
		return nil, err
	}

	if err := s.save(ctx, c, rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Update merges values over the stored record and marks it pending.
func (s *Store) Update(ctx context.Context, c models.Collection, id string, values models.Values) (*models.Record, error) {
	cur, err := s.repo.Get(ctx, c, id)
	if err != nil {
		return nil, err
	}

	rec := cur.Clone()
	rec.Merge(values)
	if err := s.snap(ctx, c, &rec); err != nil {
		return nil, err
	}
	rec.UpdatedAt = s.touch(cur.UpdatedAt)
	rec.SyncStatus = models.StatusPending

	if err := s.save(ctx, c, rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// SoftDelete turns the record into a pending tombstone.
func (s *Store) SoftDelete(ctx context.Context, c models.Collection, id string) (*models.Record, error) {
	cur, err := s.repo.Get(ctx, c, id)
	if err != nil {
		return nil, err
	}

	rec := cur.Clone()
	now := s.touch(cur.UpdatedAt)
	rec.DeletedAt = &now
	rec.UpdatedAt = now
	rec.SyncStatus = models.StatusPending

	if err := s.save(ctx, c, rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// UpsertRaw installs rec verbatim. A zero UpdatedAt is stamped with now and
// a zero CreatedAt takes UpdatedAt.
func (s *Store) UpsertRaw(ctx context.Context, c models.Collection, rec models.Record) (*models.Record, error) {
	rec = rec.Clone()
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = s.now()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = rec.UpdatedAt
	}
	if rec.SyncStatus == "" {
		rec.SyncStatus = models.StatusPending
	}

	if err := s.save(ctx, c, rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// snap rounds heatmap point coordinates to the map grid. Non-numeric
// values are left for validation to reject.
func (s *Store) snap(ctx context.Context, c models.Collection, rec *models.Record) error {
	if c != models.HeatmapPoints {
		return nil
	}
	precision := hotspot.DefaultPrecision
	if s.precision != nil {
		p, err := s.precision.MapPrecision(ctx)
		if err != nil {
			return fmt.Errorf("read map precision: %w", err)
		}
		precision = p
	}
	for _, k := range []string{"lat", "lng"} {
		if f, ok := rec.Data.Float(k); ok {
			rec.Data[k] = models.FloatNumber(hotspot.Round(f, precision))
		}
	}
	return nil
}

func (s *Store) save(ctx context.Context, c models.Collection, rec models.Record) error {
	if err := s.repo.Upsert(ctx, c, rec); err != nil {
		return err
	}
	if s.bus != nil {
		ev := rec.Clone()
		s.bus.Publish(events.Event{Type: events.TypeUpsert, Collection: string(c), Record: &ev})
	}
	return nil
}

// now is truncated to the precision timestamps are stored with, so a
// record read back compares equal to the one returned.
func (s *Store) now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Microsecond)
}

// touch returns a fresh updated_at that never precedes prev.
func (s *Store) touch(prev time.Time) time.Time {
	now := s.now()
	if now.Before(prev) {
		return prev
	}
	return now
}

// SortByUpdatedDesc orders records newest first, ties broken by id.
func SortByUpdatedDesc(rs []models.Record) {
	sort.SliceStable(rs, func(i, j int) bool {
		if !rs[i].UpdatedAt.Equal(rs[j].UpdatedAt) {
			return rs[i].UpdatedAt.After(rs[j].UpdatedAt)
		}
		return rs[i].ID < rs[j].ID
	})
}
