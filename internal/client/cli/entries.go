package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/taxiledger/internal/client/models"
)

// List prints the records of a collection, newest first.
func (a *App) List(ctx context.Context, collection string) error {
	c, err := models.ParseCollection(collection)
	if err != nil {
		return err
	}
	uid, err := a.userID(ctx)
	if err != nil {
		return err
	}
	rs, err := a.entries.List(ctx, c, uid)
	if err != nil {
		return err
	}
	if len(rs) == 0 {
		fmt.Fprintln(a.out, "No records")
		return nil
	}
	for _, r := range rs {
		fmt.Fprintln(a.out, a.describe(c, r))
	}
	return nil
}

func (a *App) describe(c models.Collection, r models.Record) string {
	var b strings.Builder
	b.WriteString(r.ID)
	b.WriteString("  ")

	switch c {
	case models.Trips:
		t := models.TripFromValues(r.Data)
		fmt.Fprintf(&b, "%s  %s -> %s  %s", t.Date, t.Origin, t.Destination, t.Fare)
		if t.DistanceKm > 0 {
			fmt.Fprintf(&b, "  %.1f km", t.DistanceKm)
		}
	case models.Earnings:
		e := models.EarningFromValues(r.Data)
		fmt.Fprintf(&b, "%s  %s  +%s", e.Date, e.Source, e.Amount)
	case models.Expenses:
		e := models.ExpenseFromValues(r.Data)
		fmt.Fprintf(&b, "%s  %s  -%s", e.Date, e.Category, e.Amount)
		if e.Note != "" {
			fmt.Fprintf(&b, "  (%s)", e.Note)
		}
	case models.Schedule:
		s := models.ScheduleItemFromValues(r.Data)
		fmt.Fprintf(&b, "%s  %s", s.Date, s.Title)
		if s.Target != "" {
			fmt.Fprintf(&b, "  target %s", s.Target)
		}
	case models.Notes:
		n := models.NoteFromValues(r.Data)
		b.WriteString(n.Title)
		if n.Reminder != "" {
			fmt.Fprintf(&b, "  remind %s", n.Reminder)
		}
	case models.HeatmapPoints:
		p := models.HeatmapPointFromValues(r.Data)
		fmt.Fprintf(&b, "%.5f,%.5f  x%.2f  %s", p.Lat, p.Lng, p.Intensity, r.Timestamp().In(a.loc).Format(time.DateTime))
	}

	if r.SyncStatus == models.StatusPending {
		b.WriteString("  [pending]")
	}
	return b.String()
}

// AddTrip records a completed ride. Pickup coordinates are optional and
// feed the heatmap when given.
func (a *App) AddTrip(ctx context.Context) error {
	uid, err := a.userID(ctx)
	if err != nil {
		return err
	}

	var t models.Trip
	if t.Origin, err = GetSimpleText(a.reader, "Origin", a.out); err != nil {
		return err
	}
	if t.Destination, err = GetSimpleText(a.reader, "Destination", a.out); err != nil {
		return err
	}
	if t.Fare, err = GetAmount(a.reader, "Fare", a.out); err != nil {
		return err
	}
	km, err := GetOptionalFloat(a.reader, "Distance, km (optional)", a.out)
	if err != nil {
		return err
	}
	if km != nil {
		t.DistanceKm = *km
	}
	if t.Date, err = a.getDate(); err != nil {
		return err
	}
	if t.LocationLat, err = GetOptionalFloat(a.reader, "Pickup latitude (optional)", a.out); err != nil {
		return err
	}
	if t.LocationLat != nil {
		if t.LocationLng, err = GetOptionalFloat(a.reader, "Pickup longitude", a.out); err != nil {
			return err
		}
	}

	res, err := a.trips.Record(ctx, uid, t)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Trip saved:", res.Trip.ID)
	if res.Point != nil {
		fmt.Fprintln(a.out, "Heatmap point saved:", res.Point.ID)
	}
	return nil
}

func (a *App) AddEarning(ctx context.Context) error {
	uid, err := a.userID(ctx)
	if err != nil {
		return err
	}

	var e models.Earning
	if e.Source, err = GetSimpleText(a.reader, "Source", a.out); err != nil {
		return err
	}
	if e.Amount, err = GetAmount(a.reader, "Amount", a.out); err != nil {
		return err
	}
	if e.Date, err = a.getDate(); err != nil {
		return err
	}
	return a.add(ctx, models.Earnings, e.Values(), uid)
}

func (a *App) AddExpense(ctx context.Context) error {
	uid, err := a.userID(ctx)
	if err != nil {
		return err
	}

	var e models.Expense
	if e.Category, err = GetSimpleText(a.reader, "Category", a.out); err != nil {
		return err
	}
	if e.Amount, err = GetAmount(a.reader, "Amount", a.out); err != nil {
		return err
	}
	if e.Note, err = GetSimpleText(a.reader, "Note (optional)", a.out); err != nil {
		return err
	}
	if e.Date, err = a.getDate(); err != nil {
		return err
	}
	return a.add(ctx, models.Expenses, e.Values(), uid)
}

func (a *App) AddNote(ctx context.Context) error {
	uid, err := a.userID(ctx)
	if err != nil {
		return err
	}

	var n models.Note
	if n.Title, err = GetSimpleText(a.reader, "Title", a.out); err != nil {
		return err
	}
	if n.Note, err = GetMultiline(a.reader, "Text", a.out); err != nil {
		return err
	}
	if n.Reminder, err = GetSimpleText(a.reader, "Reminder (optional)", a.out); err != nil {
		return err
	}
	return a.add(ctx, models.Notes, n.Values(), uid)
}

func (a *App) AddSchedule(ctx context.Context) error {
	uid, err := a.userID(ctx)
	if err != nil {
		return err
	}

	var s models.ScheduleItem
	if s.Title, err = GetSimpleText(a.reader, "Title", a.out); err != nil {
		return err
	}
	if s.Target, err = GetSimpleText(a.reader, "Target (optional)", a.out); err != nil {
		return err
	}
	if s.Date, err = a.getDate(); err != nil {
		return err
	}
	return a.add(ctx, models.Schedule, s.Values(), uid)
}

func (a *App) add(ctx context.Context, c models.Collection, v models.Values, uid string) error {
	rec, err := a.entries.Add(ctx, c, v, uid)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Saved:", rec.ID)
	return nil
}

// getDate asks for a YYYY-MM-DD date, defaulting to today.
func (a *App) getDate() (string, error) {
	today := a.clock.Now().In(a.loc).Format(time.DateOnly)
	s, err := GetSimpleText(a.reader, "Date (default "+today+")", a.out)
	if err != nil {
		return "", err
	}
	if s == "" {
		return today, nil
	}
	if _, err := time.ParseInLocation(time.DateOnly, s, a.loc); err != nil {
		return "", fmt.Errorf("date %q: want YYYY-MM-DD", s)
	}
	return s, nil
}

// Delete soft-deletes a record. The tombstone is pushed on the next sync.
func (a *App) Delete(ctx context.Context, collection, id string) error {
	c, err := models.ParseCollection(collection)
	if err != nil {
		return err
	}
	uid, err := a.userID(ctx)
	if err != nil {
		return err
	}
	if err := a.entries.Delete(ctx, c, id, uid); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Deleted:", id)
	return nil
}
