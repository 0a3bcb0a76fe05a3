package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dmitrijs2005/taxiledger/internal/client/models"
	"github.com/dmitrijs2005/taxiledger/internal/client/repositories/records"
	"github.com/dmitrijs2005/taxiledger/internal/timex"
)

// RecordQuerier lists records with a filter.
type RecordQuerier interface {
	Query(ctx context.Context, c models.Collection, f records.Filter) ([]models.Record, error)
}

// Totals is income against expense over a period.
type Totals struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
	Net     decimal.Decimal
}

func (t *Totals) add(income, expense decimal.Decimal) {
	t.Income = t.Income.Add(income)
	t.Expense = t.Expense.Add(expense)
	t.Net = t.Income.Sub(t.Expense)
}

type Summary struct {
	Today Totals
	Week  Totals
}

// SummaryService totals earnings and expenses for the dashboard.
type SummaryService struct {
	store RecordQuerier
	loc   *time.Location
	clock timex.Clock
}

func NewSummaryService(s RecordQuerier, loc *time.Location, clock timex.Clock) *SummaryService {
	if loc == nil {
		loc = time.UTC
	}
	if clock == nil {
		clock = timex.RealClock{}
	}
	return &SummaryService{store: s, loc: loc, clock: clock}
}

// Summary totals the calendar day of now in the reference timezone and
// the seven days up to now. Entries are dated by their date field, or by
// their record timestamp when it is missing or unparsable.
func (s *SummaryService) Summary(ctx context.Context, userID string) (Summary, error) {
	now := s.clock.Now().In(s.loc)
	today := now.Format(time.DateOnly)
	weekStart := now.Add(-7 * 24 * time.Hour)

	var out Summary
	for _, c := range []models.Collection{models.Earnings, models.Expenses} {
		rs, err := s.store.Query(ctx, c, records.Filter{UserID: userID})
		if err != nil {
			return Summary{}, fmt.Errorf("summary %s: %w", c, err)
		}
		for _, r := range rs {
			amount, ok := r.Data.Decimal("amount")
			if !ok {
				continue
			}
			income, expense := amount, decimal.Zero
			if c == models.Expenses {
				income, expense = decimal.Zero, amount
			}

			at := models.EntryTime(r, s.loc).In(s.loc)
			if at.Format(time.DateOnly) == today {
				out.Today.add(income, expense)
			}
			if !at.Before(weekStart) {
				out.Week.add(income, expense)
			}
		}
	}
	return out, nil
}
