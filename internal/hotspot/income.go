package hotspot

import "time"

// Entry is an earning or expense amount at a moment in time.
type Entry struct {
	Amount float64
	At     time.Time
}

// IncomeBucket aggregates the entries falling in one time bucket.
type IncomeBucket struct {
	Net     float64
	Count   int
	PerHour float64
}

// IncomeTable is indexed by Bucket.ID.
type IncomeTable [len(Buckets)]IncomeBucket

// FallbackNetPerHour is used for deadhead costing when no income is known.
const FallbackNetPerHour = 20000.0

// BuildIncomeTable sums earnings minus expenses per bucket of the entry's
// hour in loc. Entries without a time are ignored.
func BuildIncomeTable(earnings, expenses []Entry, loc *time.Location) IncomeTable {
	var t IncomeTable
	add := func(e Entry, sign float64) {
		if e.At.IsZero() || !finite(e.Amount) {
			return
		}
		b := BucketFor(e.At, loc)
		t[b.ID].Net += sign * e.Amount
		t[b.ID].Count++
	}
	for _, e := range earnings {
		add(e, 1)
	}
	for _, e := range expenses {
		add(e, -1)
	}
	for i := range t {
		if t[i].Count > 0 {
			t[i].PerHour = t[i].Net / float64(Buckets[i].Hours())
		}
	}
	return t
}

// OverallPerHour is the mean income per hour of the buckets that have
// entries. ok is false when none do.
func (t IncomeTable) OverallPerHour() (perHour float64, ok bool) {
	var sum float64
	n := 0
	for _, b := range t {
		if b.Count > 0 {
			sum += b.PerHour
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// Factor compares a bucket's income per hour with the overall average,
// clamped to [0.75, 1.35]. Buckets without entries, or a non-positive
// overall average, are neutral.
func (t IncomeTable) Factor(bucket int) float64 {
	if bucket < 0 || bucket >= len(t) || t[bucket].Count == 0 {
		return 1
	}
	overall, ok := t.OverallPerHour()
	if !ok || overall <= 0 {
		return 1
	}
	return clamp(t[bucket].PerHour/overall, 0.75, 1.35)
}

// EffectiveNetPerHour is the income per hour deadhead cost is weighed
// against: the bucket's own, then the overall average, then a fallback.
func (t IncomeTable) EffectiveNetPerHour(bucket int) float64 {
	if bucket >= 0 && bucket < len(t) && t[bucket].Count > 0 && t[bucket].PerHour > 0 {
		return t[bucket].PerHour
	}
	if overall, ok := t.OverallPerHour(); ok && overall > 0 {
		return overall
	}
	return FallbackNetPerHour
}
