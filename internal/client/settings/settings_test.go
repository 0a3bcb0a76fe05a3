package settings

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/taxiledger/internal/common"
	"github.com/dmitrijs2005/taxiledger/internal/events"
	"github.com/dmitrijs2005/taxiledger/internal/testutil"
)

func ptr[T any](v T) *T { return &v }

func newStore(t *testing.T) (*Store, *[]events.Event) {
	t.Helper()
	var got []events.Event
	bus := events.NewBus(nil)
	bus.Subscribe(func(ev events.Event) { got = append(got, ev) })
	return NewStore(testutil.NewTestRepositories(t).Metadata, bus), &got
}

func TestGet_ReturnsDefaultsWhenAbsent(t *testing.T) {
	s, _ := newStore(t)

	got, err := s.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Defaults(), got)
	assert.Equal(t, "app", got.ID)
	assert.Equal(t, 4, got.MapPrecision)
	assert.Equal(t, 2000.0, got.DeadheadCostPerKm)
	assert.Equal(t, GoalOrder, got.HeatmapGoal)
	assert.True(t, got.UseCurrentHour)
	assert.Nil(t, got.LastSyncAt)
}

func TestSave_MergesPartially(t *testing.T) {
	s, evs := newStore(t)
	ctx := context.Background()

	_, err := s.Save(ctx, Patch{HeatmapGoal: ptr(GoalEconomy), DeadheadCostPerKm: ptr(2500.0)})
	require.NoError(t, err)
	_, err = s.Save(ctx, Patch{UseWeather: ptr(false)})
	require.NoError(t, err)

	got, err := s.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, GoalEconomy, got.HeatmapGoal)
	assert.Equal(t, 2500.0, got.DeadheadCostPerKm)
	assert.False(t, got.UseWeather)
	assert.True(t, got.UseHoliday)

	require.Len(t, *evs, 2)
	assert.Equal(t, events.SettingsCollection, (*evs)[0].Collection)
	assert.Nil(t, (*evs)[0].Record)
}

func TestSave_Normalizes(t *testing.T) {
	tests := []struct {
		name  string
		patch Patch
		check func(t *testing.T, s Settings)
	}{
		{"unknown goal falls back to order", Patch{HeatmapGoal: ptr(Goal("fastest"))},
			func(t *testing.T, s Settings) { assert.Equal(t, GoalOrder, s.HeatmapGoal) }},
		{"non-positive distance penalty", Patch{DistancePenaltyKm: ptr(-1.0)},
			func(t *testing.T, s Settings) { assert.Equal(t, 3.0, s.DistancePenaltyKm) }},
		{"zero precision", Patch{MapPrecision: ptr(0)},
			func(t *testing.T, s Settings) { assert.Equal(t, 4, s.MapPrecision) }},
		{"precision beyond the finest grid", Patch{MapPrecision: ptr(17)},
			func(t *testing.T, s Settings) { assert.Equal(t, 4, s.MapPrecision) }},
		{"finest precision kept", Patch{MapPrecision: ptr(8)},
			func(t *testing.T, s Settings) { assert.Equal(t, 8, s.MapPrecision) }},
		{"follow me enables live location", Patch{FollowMe: ptr(true)},
			func(t *testing.T, s Settings) {
				assert.True(t, s.FollowMe)
				assert.True(t, s.LiveLocationEnabled)
			}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newStore(t)
			got, err := s.Save(context.Background(), tt.patch)
			require.NoError(t, err)
			tt.check(t, got)
		})
	}
}

func TestSave_DisablingLiveLocationStopsFollowing(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	_, err := s.Save(ctx, Patch{FollowMe: ptr(true)})
	require.NoError(t, err)
	got, err := s.Save(ctx, Patch{LiveLocationEnabled: ptr(false)})
	require.NoError(t, err)

	assert.False(t, got.LiveLocationEnabled)
	assert.False(t, got.FollowMe)
}

func TestLastSyncAt_RoundTrip(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	at, err := s.LastSyncAt(ctx)
	require.NoError(t, err)
	assert.Nil(t, at)

	now := time.Date(2026, 3, 2, 10, 0, 0, 123456000, time.FixedZone("WIB", 7*3600))
	require.NoError(t, s.SetLastSyncAt(ctx, now))

	at, err = s.LastSyncAt(ctx)
	require.NoError(t, err)
	require.NotNil(t, at)
	assert.True(t, at.Equal(now))

	_, err = s.Save(ctx, Patch{UseHoliday: ptr(false)})
	require.NoError(t, err)
	at, err = s.LastSyncAt(ctx)
	require.NoError(t, err)
	assert.True(t, at.Equal(now), "unrelated saves keep the watermark")
}

func TestParsePatch(t *testing.T) {
	p, err := ParsePatch("heatmapGoal", "Economy")
	require.NoError(t, err)
	assert.Equal(t, GoalEconomy, *p.HeatmapGoal)

	p, err = ParsePatch("deadheadRadiusKm", "4.5")
	require.NoError(t, err)
	assert.Equal(t, 4.5, *p.DeadheadRadiusKm)

	p, err = ParsePatch("useWeather", "false")
	require.NoError(t, err)
	assert.False(t, *p.UseWeather)

	_, err = ParsePatch("mapPrecision", "four")
	require.ErrorIs(t, err, common.ErrValidation)
	_, err = ParsePatch("mapPrecision", "17")
	require.ErrorIs(t, err, common.ErrValidation)
	_, err = ParsePatch("mapPrecision", "0")
	require.ErrorIs(t, err, common.ErrValidation)
	p, err = ParsePatch("mapPrecision", "5")
	require.NoError(t, err)
	assert.Equal(t, 5, *p.MapPrecision)
	_, err = ParsePatch("lastSyncAt", "2026-01-01")
	require.ErrorIs(t, err, common.ErrValidation)

	assert.Contains(t, Keys(), "followMe")
	assert.NotContains(t, Keys(), "lastSyncAt")
}
