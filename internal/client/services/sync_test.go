package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/taxiledger/internal/client/models"
	"github.com/dmitrijs2005/taxiledger/internal/client/remote"
)

// recordingRemote logs the calls reaching the wrapped store.
type recordingRemote struct {
	*remote.MemoryStore
	calls []string
}

func (r *recordingRemote) Upsert(ctx context.Context, c models.Collection, rows []remote.Row) error {
	r.calls = append(r.calls, fmt.Sprintf("push %s %d", c, len(rows)))
	return r.MemoryStore.Upsert(ctx, c, rows)
}

func (r *recordingRemote) Select(ctx context.Context, c models.Collection, userID string, since *time.Time) ([]remote.Row, error) {
	r.calls = append(r.calls, "pull "+string(c))
	return r.MemoryStore.Select(ctx, c, userID, since)
}

func (e *testEnv) engine(rs remote.Store) *SyncEngine {
	if rs == nil {
		rs = e.remote
	}
	return NewSyncEngine(e.store, rs, e.settings, e.clock, nil)
}

func TestSyncEngine_PushesPendingRecordsOfUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.create(t, models.Trips, models.Values{"origin": "Dago"}, "u1")
	b := env.create(t, models.Earnings, models.Values{"amount": "50000"}, "u1")
	other := env.create(t, models.Trips, models.Values{"origin": "Braga"}, "u2")

	res, err := env.engine(nil).RunOnce(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Pushed)
	assert.Zero(t, res.Pulled)

	row, ok := env.remote.Row(models.Trips, a.ID)
	require.True(t, ok)
	assert.Equal(t, "u1", row.UserID)
	assert.Equal(t, "Dago", row.Data["origin"])
	assert.NotContains(t, row.Data, models.KeySyncStatus)
	assert.True(t, row.UpdatedAt.Equal(a.UpdatedAt))

	assert.Equal(t, models.StatusSynced, env.get(t, models.Trips, a.ID).SyncStatus)
	assert.Equal(t, models.StatusSynced, env.get(t, models.Earnings, b.ID).SyncStatus)
	assert.Equal(t, models.StatusPending, env.get(t, models.Trips, other.ID).SyncStatus)
	_, ok = env.remote.Row(models.Trips, other.ID)
	assert.False(t, ok)
}

func TestSyncEngine_CountsPushedAndPulledSeparately(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	eng := env.engine(nil)

	_, err := eng.RunOnce(ctx, "u1")
	require.NoError(t, err)

	env.clock.Advance(time.Minute)
	env.create(t, models.Notes, models.Values{"title": "tyres"}, "u1")
	env.create(t, models.Notes, models.Values{"title": "insurance"}, "u1")
	at := env.clock.Now()
	env.remote.Put(models.Trips, remote.Row{
		ID:        "from-phone",
		UserID:    "u1",
		CreatedAt: at,
		UpdatedAt: at,
		Data:      map[string]any{"origin": "Cihampelas"},
	})

	res, err := eng.RunOnce(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Pushed)
	assert.Equal(t, 1, res.Pulled)
	assert.Equal(t, models.StatusSynced, env.get(t, models.Trips, "from-phone").SyncStatus)
}

func TestSyncEngine_PullCountsRemoteEditOfPushedRecord(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rec := env.create(t, models.Notes, models.Values{"title": "draft"}, "u1")

	rs := &editingRemote{MemoryStore: env.remote, id: rec.ID, at: rec.UpdatedAt.Add(time.Second)}
	res, err := env.engine(rs).RunOnce(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Pushed)
	assert.Equal(t, 1, res.Pulled)
	assert.Equal(t, "edited", env.get(t, models.Notes, rec.ID).Data.String("title"))
}

// editingRemote rewrites one row right after it is pushed, as another
// device would between push and pull.
type editingRemote struct {
	*remote.MemoryStore
	id string
	at time.Time
}

func (r *editingRemote) Upsert(ctx context.Context, c models.Collection, rows []remote.Row) error {
	if err := r.MemoryStore.Upsert(ctx, c, rows); err != nil {
		return err
	}
	if row, ok := r.Row(c, r.id); ok {
		row.UpdatedAt = r.at
		row.Data = map[string]any{"title": "edited"}
		r.Put(c, row)
	}
	return nil
}

func TestSyncEngine_PushKeepsFieldsOtherThanStatus(t *testing.T) {
	env := newTestEnv(t)
	rec := env.create(t, models.Notes, models.Values{"title": "oil change"}, "u1")

	env.clock.Advance(time.Hour)
	_, err := env.engine(nil).RunOnce(context.Background(), "u1")
	require.NoError(t, err)

	got := env.get(t, models.Notes, rec.ID)
	assert.Equal(t, models.StatusSynced, got.SyncStatus)
	assert.True(t, got.UpdatedAt.Equal(rec.UpdatedAt))
	assert.True(t, got.CreatedAt.Equal(rec.CreatedAt))
	assert.Equal(t, "oil change", got.Data.String("title"))
}

func TestSyncEngine_PushesTombstones(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rec := env.create(t, models.Expenses, models.Values{"amount": "10000"}, "u1")
	_, err := env.store.SoftDelete(ctx, models.Expenses, rec.ID)
	require.NoError(t, err)

	res, err := env.engine(nil).RunOnce(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Pushed)

	row, ok := env.remote.Row(models.Expenses, rec.ID)
	require.True(t, ok)
	require.NotNil(t, row.DeletedAt)

	got := env.get(t, models.Expenses, rec.ID)
	assert.True(t, got.Deleted())
	assert.Equal(t, models.StatusSynced, got.SyncStatus)
}

func TestSyncEngine_PullOverwritesLocalCopy(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rec := env.create(t, models.Schedule, models.Values{"title": "morning shift"}, "u1")
	_, err := env.engine(nil).RunOnce(ctx, "u1")
	require.NoError(t, err)

	env.clock.Advance(time.Hour)
	changed := env.clock.Now()
	env.remote.Put(models.Schedule, remote.Row{
		ID:        rec.ID,
		UserID:    "u1",
		CreatedAt: rec.CreatedAt,
		UpdatedAt: changed,
		Data:      map[string]any{"title": "night shift", "target": "300000"},
	})
	env.remote.Put(models.Schedule, remote.Row{
		ID:        "from-phone",
		UserID:    "u1",
		CreatedAt: changed,
		UpdatedAt: changed,
		Data:      map[string]any{"title": "weekend"},
	})

	res, err := env.engine(nil).RunOnce(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, res.Pushed)
	assert.Equal(t, 2, res.Pulled)

	got := env.get(t, models.Schedule, rec.ID)
	assert.Equal(t, "night shift", got.Data.String("title"))
	assert.Equal(t, "300000", got.Data.String("target"))
	assert.Equal(t, models.StatusSynced, got.SyncStatus)
	assert.True(t, got.UpdatedAt.Equal(changed))

	fresh := env.get(t, models.Schedule, "from-phone")
	assert.Equal(t, models.StatusSynced, fresh.SyncStatus)
}

func TestSyncEngine_WatermarkLimitsPull(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	eng := env.engine(nil)

	first, err := eng.RunOnce(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, first.At.Equal(env.clock.Now()))

	mark, err := env.settings.LastSyncAt(ctx)
	require.NoError(t, err)
	require.NotNil(t, mark)
	assert.True(t, mark.Equal(env.clock.Now()))

	old := mark.Add(-time.Minute)
	env.remote.Put(models.Notes, remote.Row{ID: "old", UserID: "u1", CreatedAt: old, UpdatedAt: old, Data: map[string]any{}})
	env.remote.Put(models.Notes, remote.Row{ID: "edge", UserID: "u1", CreatedAt: *mark, UpdatedAt: *mark, Data: map[string]any{}})

	env.clock.Advance(10 * time.Minute)
	second, err := eng.RunOnce(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, second.Pulled)

	_, err = env.store.Get(ctx, models.Notes, "old")
	assert.Error(t, err)
	env.get(t, models.Notes, "edge")

	mark, err = env.settings.LastSyncAt(ctx)
	require.NoError(t, err)
	assert.True(t, mark.Equal(env.clock.Now()))
}

func TestSyncEngine_VisitsCollectionsInOrder(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, models.HeatmapPoints, models.Values{"lat": -6.9, "lng": 107.6}, "u1")
	env.create(t, models.Earnings, models.Values{"amount": 1}, "u1")

	rec := &recordingRemote{MemoryStore: env.remote}
	_, err := env.engine(rec).RunOnce(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"pull trips",
		"push earnings 1",
		"pull earnings",
		"pull expenses",
		"pull schedule",
		"pull notes",
		"push heatmap_points 1",
		"pull heatmap_points",
	}, rec.calls)
}

func TestSyncEngine_PushFailureAbortsCycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	trip := env.create(t, models.Trips, models.Values{"origin": "Dago"}, "u1")
	exp := env.create(t, models.Expenses, models.Values{"amount": "25000"}, "u1")
	note := env.create(t, models.Notes, models.Values{"title": "n"}, "u1")
	env.remote.FailUpsert[models.Expenses] = errors.New("connection reset by peer")

	_, err := env.engine(nil).RunOnce(ctx, "u1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "push expenses")
	assert.Contains(t, err.Error(), "connection reset by peer")

	// collections before the failure stay synced, the rest stay pending
	assert.Equal(t, models.StatusSynced, env.get(t, models.Trips, trip.ID).SyncStatus)
	assert.Equal(t, models.StatusPending, env.get(t, models.Expenses, exp.ID).SyncStatus)
	assert.Equal(t, models.StatusPending, env.get(t, models.Notes, note.ID).SyncStatus)
	assert.Zero(t, env.remote.Len(models.Notes))

	mark, err := env.settings.LastSyncAt(ctx)
	require.NoError(t, err)
	assert.Nil(t, mark)
}

func TestSyncEngine_PullFailureKeepsWatermark(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	eng := env.engine(nil)

	_, err := eng.RunOnce(ctx, "u1")
	require.NoError(t, err)
	before, err := env.settings.LastSyncAt(ctx)
	require.NoError(t, err)

	env.clock.Advance(time.Hour)
	wantErr := errors.New("permission denied for table notes")
	env.remote.FailSelect[models.Notes] = wantErr

	_, err = eng.RunOnce(ctx, "u1")
	require.ErrorIs(t, err, wantErr)
	assert.Contains(t, err.Error(), "pull notes")

	after, err := env.settings.LastSyncAt(ctx)
	require.NoError(t, err)
	assert.True(t, after.Equal(*before))
}
