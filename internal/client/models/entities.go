package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultIntensity is the base weight of a heatmap point that carries none.
const DefaultIntensity = 0.7

// Trip is a completed ride.
type Trip struct {
	Origin      string
	Destination string
	Fare        decimal.Decimal
	DistanceKm  float64
	Date        string
	LocationLat *float64
	LocationLng *float64
}

func TripFromValues(v Values) Trip {
	t := Trip{
		Origin:      v.String("origin"),
		Destination: v.String("destination"),
		Date:        v.String("date"),
	}
	t.Fare, _ = v.Decimal("fare")
	t.DistanceKm, _ = v.Float("distance")
	if lat, ok := v.Float("location_lat"); ok {
		t.LocationLat = &lat
	}
	if lng, ok := v.Float("location_lng"); ok {
		t.LocationLng = &lng
	}
	return t
}

func (t Trip) Values() Values {
	v := Values{
		"origin":      t.Origin,
		"destination": t.Destination,
		"fare":        Number(t.Fare),
		"distance":    FloatNumber(t.DistanceKm),
		"date":        t.Date,
	}
	if t.LocationLat != nil && t.LocationLng != nil {
		v["location_lat"] = FloatNumber(*t.LocationLat)
		v["location_lng"] = FloatNumber(*t.LocationLng)
	}
	return v
}

// Earning is money received.
type Earning struct {
	Source string
	Amount decimal.Decimal
	Date   string
}

func EarningFromValues(v Values) Earning {
	e := Earning{Source: v.String("source"), Date: v.String("date")}
	e.Amount, _ = v.Decimal("amount")
	return e
}

func (e Earning) Values() Values {
	return Values{"source": e.Source, "amount": Number(e.Amount), "date": e.Date}
}

// Expense is money spent.
type Expense struct {
	Category string
	Amount   decimal.Decimal
	Note     string
	Date     string
}

func ExpenseFromValues(v Values) Expense {
	e := Expense{Category: v.String("category"), Note: v.String("note"), Date: v.String("date")}
	e.Amount, _ = v.Decimal("amount")
	return e
}

func (e Expense) Values() Values {
	return Values{"category": e.Category, "amount": Number(e.Amount), "note": e.Note, "date": e.Date}
}

// ScheduleItem is a planned shift or target.
type ScheduleItem struct {
	Title  string
	Target string
	Date   string
}

func ScheduleItemFromValues(v Values) ScheduleItem {
	return ScheduleItem{Title: v.String("title"), Target: v.String("target"), Date: v.String("date")}
}

func (s ScheduleItem) Values() Values {
	return Values{"title": s.Title, "target": s.Target, "date": s.Date}
}

// Note is a free-form memo with an optional reminder.
type Note struct {
	Title    string
	Note     string
	Reminder string
}

func NoteFromValues(v Values) Note {
	return Note{Title: v.String("title"), Note: v.String("note"), Reminder: v.String("reminder")}
}

func (n Note) Values() Values {
	return Values{"title": n.Title, "note": n.Note, "reminder": n.Reminder}
}

// HeatmapPoint is a historical pickup location.
type HeatmapPoint struct {
	Lat       float64
	Lng       float64
	Intensity float64
	TripID    string
	// Valid is false when either coordinate is missing or not a number.
	Valid bool
}

func HeatmapPointFromValues(v Values) HeatmapPoint {
	lat, okLat := v.Float("lat")
	lng, okLng := v.Float("lng")
	p := HeatmapPoint{Lat: lat, Lng: lng, TripID: v.String("trip_id"), Valid: okLat && okLng}
	p.Intensity = DefaultIntensity
	if in, ok := v.Float("intensity"); ok {
		p.Intensity = in
	}
	return p
}

func (p HeatmapPoint) Values() Values {
	v := Values{
		"lat":       FloatNumber(p.Lat),
		"lng":       FloatNumber(p.Lng),
		"intensity": FloatNumber(p.Intensity),
	}
	if p.TripID != "" {
		v["trip_id"] = p.TripID
	}
	return v
}

// EntryTime resolves the date field of an earning or expense, falling
// back to the record timestamp.
func EntryTime(r Record, loc *time.Location) time.Time {
	if t, ok := ParseDate(r.Data.String("date"), loc); ok {
		return t
	}
	return r.Timestamp()
}
