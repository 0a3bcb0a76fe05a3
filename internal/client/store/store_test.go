package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/taxiledger/internal/client/models"
	"github.com/dmitrijs2005/taxiledger/internal/client/repositories/records"
	"github.com/dmitrijs2005/taxiledger/internal/common"
	"github.com/dmitrijs2005/taxiledger/internal/events"
	"github.com/dmitrijs2005/taxiledger/internal/testutil"
)

type fixture struct {
	store  *Store
	clock  *testutil.StubClock
	events []events.Event
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{clock: testutil.FixedClock()}
	bus := events.NewBus(nil)
	bus.Subscribe(func(ev events.Event) { f.events = append(f.events, ev) })
	f.store = New(testutil.NewTestRepositories(t).Records, bus,
		WithClock(f.clock), WithIDGenerator(testutil.NewStubIDGenerator()))
	return f
}

func TestCreate_StampsMetadataAndEmits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec, err := f.store.Create(ctx, models.Expenses,
		models.Values{"category": "fuel", "amount": 20000, "sync_status": "synced", "id": "forged"}, "drv")
	require.NoError(t, err)

	assert.Equal(t, "id-1", rec.ID)
	assert.Equal(t, "drv", rec.UserID)
	assert.Equal(t, f.clock.Now(), rec.CreatedAt)
	assert.Equal(t, rec.CreatedAt, rec.UpdatedAt)
	assert.Nil(t, rec.DeletedAt)
	assert.Equal(t, models.StatusPending, rec.SyncStatus)
	assert.Equal(t, models.Values{"category": "fuel", "amount": 20000}, rec.Data)

	require.Len(t, f.events, 1)
	assert.Equal(t, events.TypeUpsert, f.events[0].Type)
	assert.Equal(t, "expenses", f.events[0].Collection)
	assert.Equal(t, "id-1", f.events[0].Record.ID)

	got, err := f.store.Get(ctx, models.Expenses, "id-1")
	require.NoError(t, err)
	assert.Equal(t, "fuel", got.Data.String("category"))
}

func TestCreate_RequiresOwner(t *testing.T) {
	f := newFixture(t)

	_, err := f.store.Create(context.Background(), models.Notes, models.Values{"title": "x"}, "")
	require.ErrorIs(t, err, common.ErrValidation)
	assert.Empty(t, f.events)
}

func TestUpdate_MergesAndForcesPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec, err := f.store.Create(ctx, models.Notes, models.Values{"title": "oil", "note": "change oil"}, "drv")
	require.NoError(t, err)

	synced := rec.Clone()
	synced.SyncStatus = models.StatusSynced
	_, err = f.store.UpsertRaw(ctx, models.Notes, synced)
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	up, err := f.store.Update(ctx, models.Notes, rec.ID, models.Values{"note": "done", "reminder": nil})
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, up.SyncStatus)
	assert.Equal(t, rec.CreatedAt, up.CreatedAt)
	assert.True(t, up.UpdatedAt.After(rec.UpdatedAt))
	assert.Equal(t, models.Values{"title": "oil", "note": "done"}, up.Data)
	assert.Len(t, f.events, 3)
}

func TestUpdate_UpdatedAtNeverMovesBackwards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec, err := f.store.Create(ctx, models.Trips, models.Values{"origin": "A"}, "drv")
	require.NoError(t, err)

	f.clock.Advance(-time.Hour)
	up, err := f.store.Update(ctx, models.Trips, rec.ID, models.Values{"origin": "B"})
	require.NoError(t, err)
	assert.False(t, up.UpdatedAt.Before(rec.UpdatedAt))
}

func TestUpdate_NotFoundDoesNotEmit(t *testing.T) {
	f := newFixture(t)

	_, err := f.store.Update(context.Background(), models.Trips, "missing", models.Values{"a": 1})
	require.ErrorIs(t, err, common.ErrNotFound)
	assert.Empty(t, f.events)
}

func TestSoftDelete_HidesFromDefaultList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	keep, err := f.store.Create(ctx, models.Earnings, models.Values{"amount": 1}, "drv")
	require.NoError(t, err)
	gone, err := f.store.Create(ctx, models.Earnings, models.Values{"amount": 2}, "drv")
	require.NoError(t, err)

	f.clock.Advance(time.Second)
	del, err := f.store.SoftDelete(ctx, models.Earnings, gone.ID)
	require.NoError(t, err)
	require.NotNil(t, del.DeletedAt)
	assert.Equal(t, *del.DeletedAt, del.UpdatedAt)

	list, err := f.store.List(ctx, models.Earnings, ListOptions{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, keep.ID, list[0].ID)

	all, err := f.store.List(ctx, models.Earnings, ListOptions{IncludeDeleted: true})
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, r := range all {
		if r.ID == gone.ID {
			assert.NotNil(t, r.DeletedAt)
			assert.Equal(t, models.StatusPending, r.SyncStatus)
		}
	}
}

func TestSoftDelete_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.store.SoftDelete(context.Background(), models.Schedule, "missing")
	require.ErrorIs(t, err, common.ErrNotFound)
	assert.Empty(t, f.events)
}

func TestUpsertRaw_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r := models.Record{
		ID: "remote-1", UserID: "drv",
		CreatedAt:  time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:  time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC),
		SyncStatus: models.StatusSynced,
		Data:       models.Values{"title": "shift"},
	}
	_, err := f.store.UpsertRaw(ctx, models.Schedule, r)
	require.NoError(t, err)
	first, err := f.store.Get(ctx, models.Schedule, "remote-1")
	require.NoError(t, err)

	_, err = f.store.UpsertRaw(ctx, models.Schedule, r)
	require.NoError(t, err)
	second, err := f.store.Get(ctx, models.Schedule, "remote-1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	all, err := f.store.List(ctx, models.Schedule, ListOptions{IncludeDeleted: true})
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Len(t, f.events, 2)
}

func TestUpsertRaw_StampsMissingTimestamps(t *testing.T) {
	f := newFixture(t)

	got, err := f.store.UpsertRaw(context.Background(), models.Notes, models.Record{ID: "n", UserID: "drv"})
	require.NoError(t, err)
	assert.Equal(t, f.clock.Now(), got.UpdatedAt)
	assert.Equal(t, got.UpdatedAt, got.CreatedAt)
	assert.Equal(t, models.StatusPending, got.SyncStatus)
}

type failingRepo struct {
	records.Repository
	err error
}

func (r failingRepo) Upsert(context.Context, models.Collection, models.Record) error { return r.err }

func TestStorageErrorPropagatesWithoutEvent(t *testing.T) {
	boom := errors.New("disk I/O error")
	calls := 0
	bus := events.NewBus(nil)
	bus.Subscribe(func(events.Event) { calls++ })

	s := New(failingRepo{err: boom}, bus)
	_, err := s.Create(context.Background(), models.Trips, models.Values{}, "drv")
	require.ErrorIs(t, err, boom)
	assert.Zero(t, calls)
}

func TestSortByUpdatedDesc(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rs := []models.Record{
		{ID: "b", UpdatedAt: t0},
		{ID: "c", UpdatedAt: t0.Add(time.Hour)},
		{ID: "a", UpdatedAt: t0},
	}
	SortByUpdatedDesc(rs)
	assert.Equal(t, "c", rs[0].ID)
	assert.Equal(t, "a", rs[1].ID)
	assert.Equal(t, "b", rs[2].ID)
}

type fixedPrecision int

func (p fixedPrecision) MapPrecision(context.Context) (int, error) { return int(p), nil }

func TestCreateAndUpdate_RoundHeatmapPoints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec, err := f.store.Create(ctx, models.HeatmapPoints, models.Values{"lat": -6.914712, "lng": 107.609849}, "drv")
	require.NoError(t, err)
	p := models.HeatmapPointFromValues(rec.Data)
	assert.Equal(t, -6.9147, p.Lat)
	assert.Equal(t, 107.6098, p.Lng)

	got, err := f.store.Get(ctx, models.HeatmapPoints, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, -6.9147, models.HeatmapPointFromValues(got.Data).Lat)

	f.store.precision = fixedPrecision(2)
	upd, err := f.store.Update(ctx, models.HeatmapPoints, rec.ID, models.Values{"lng": 107.6151})
	require.NoError(t, err)
	p = models.HeatmapPointFromValues(upd.Data)
	assert.Equal(t, -6.91, p.Lat)
	assert.Equal(t, 107.62, p.Lng)

	trip, err := f.store.Create(ctx, models.Trips, models.Values{"location_lat": -6.914712}, "drv")
	require.NoError(t, err)
	lat, _ := trip.Data.Float("location_lat")
	assert.Equal(t, -6.914712, lat)
}

type failingPrecision struct{}

func (failingPrecision) MapPrecision(context.Context) (int, error) {
	return 0, errors.New("metadata locked")
}

func TestCreate_PrecisionErrorStoresNothing(t *testing.T) {
	f := newFixture(t)
	f.store.precision = failingPrecision{}

	_, err := f.store.Create(context.Background(), models.HeatmapPoints, models.Values{"lat": -6.9, "lng": 107.6}, "drv")
	require.Error(t, err)
	assert.Empty(t, f.events)

	rs, err := f.store.List(context.Background(), models.HeatmapPoints, ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, rs)
}
