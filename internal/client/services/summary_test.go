package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/taxiledger/internal/client/models"
)

var jakarta = time.FixedZone("WIB", 7*3600)

func assertAmount(t *testing.T, want int64, got decimal.Decimal, msg string) {
	t.Helper()
	assert.True(t, got.Equal(decimal.NewFromInt(want)), "%s: want %d, got %s", msg, want, got)
}

func TestSummaryService_TodayAndWeek(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	// the clock reads 2026-03-02 10:00 in Jakarta

	env.create(t, models.Earnings, models.Values{"amount": "100000", "date": "2026-03-02T08:00"}, "u1")
	env.create(t, models.Earnings, models.Values{"amount": "50000", "date": "2026-02-27T20:00"}, "u1")
	env.create(t, models.Earnings, models.Values{"amount": "70000", "date": "2026-02-20T20:00"}, "u1")
	env.create(t, models.Earnings, models.Values{"amount": "999999", "date": "2026-03-02T08:00"}, "u2")
	env.create(t, models.Expenses, models.Values{"amount": "20000", "date": "2026-03-02T07:30"}, "u1")
	// no date: falls back to the creation time, which is today
	env.create(t, models.Expenses, models.Values{"amount": "5000.50"}, "u1")
	gone := env.create(t, models.Expenses, models.Values{"amount": "40000", "date": "2026-03-02T06:00"}, "u1")
	_, err := env.store.SoftDelete(ctx, models.Expenses, gone.ID)
	require.NoError(t, err)

	svc := NewSummaryService(env.store, jakarta, env.clock)
	got, err := svc.Summary(ctx, "u1")
	require.NoError(t, err)

	assertAmount(t, 100000, got.Today.Income, "today income")
	assert.True(t, got.Today.Expense.Equal(decimal.RequireFromString("25000.5")), got.Today.Expense.String())
	assert.True(t, got.Today.Net.Equal(decimal.RequireFromString("74999.5")), got.Today.Net.String())

	assertAmount(t, 150000, got.Week.Income, "week income")
	assert.True(t, got.Week.Net.Equal(decimal.RequireFromString("124999.5")), got.Week.Net.String())
}

func TestSummaryService_DayFollowsReferenceZone(t *testing.T) {
	env := newTestEnv(t)
	// 18:00 UTC on the 1st is already 01:00 on the 2nd in Jakarta
	env.clock.Set(time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC))
	env.create(t, models.Earnings, models.Values{"amount": "30000", "date": "2026-03-02T00:30:00+07:00"}, "u1")
	env.create(t, models.Earnings, models.Values{"amount": "10000", "date": "2026-03-01T23:30"}, "u1")

	got, err := NewSummaryService(env.store, jakarta, env.clock).Summary(context.Background(), "u1")
	require.NoError(t, err)
	assertAmount(t, 30000, got.Today.Income, "today income")
	assertAmount(t, 40000, got.Week.Income, "week income")

	got, err = NewSummaryService(env.store, time.UTC, env.clock).Summary(context.Background(), "u1")
	require.NoError(t, err)
	// in UTC both entries fall on the 1st
	assertAmount(t, 40000, got.Today.Income, "today income in UTC")
}

func TestSummaryService_Empty(t *testing.T) {
	env := newTestEnv(t)
	got, err := NewSummaryService(env.store, jakarta, env.clock).Summary(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, got.Today.Net.IsZero())
	assert.True(t, got.Week.Income.IsZero())
}
