package hotspot

import "time"

// Bucket is one of the fixed hour-of-day ranges activity is grouped by.
type Bucket struct {
	ID        int
	Label     string
	StartHour int
	EndHour   int
}

// Hours is the bucket length used to turn bucket income into income per hour.
func (b Bucket) Hours() int { return b.EndHour - b.StartHour + 1 }

// Buckets cover a full day without overlap.
var Buckets = [...]Bucket{
	{ID: 0, Label: "00-05", StartHour: 0, EndHour: 5},
	{ID: 1, Label: "06-10", StartHour: 6, EndHour: 10},
	{ID: 2, Label: "11-15", StartHour: 11, EndHour: 15},
	{ID: 3, Label: "16-20", StartHour: 16, EndHour: 20},
	{ID: 4, Label: "21-23", StartHour: 21, EndHour: 23},
}

// BucketForHour looks up the bucket of an hour of day. Hours outside 0-23
// fall back to the first bucket.
func BucketForHour(hour int) Bucket {
	for _, b := range Buckets {
		if hour >= b.StartHour && hour <= b.EndHour {
			return b
		}
	}
	return Buckets[0]
}

// BucketFor returns the bucket of t's wall-clock hour in loc.
func BucketFor(t time.Time, loc *time.Location) Bucket {
	if loc == nil {
		loc = time.UTC
	}
	return BucketForHour(t.In(loc).Hour())
}
