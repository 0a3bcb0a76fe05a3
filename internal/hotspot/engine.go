// Package hotspot turns historical pickup points and contextual signals
// into a normalized intensity surface and a short list of recommended
// cells. Everything here is pure and synchronous.
package hotspot

import (
	"math"
	"sort"
	"time"
)

// Goal selects which modifiers take part in scoring.
type Goal string

const (
	// GoalOrder ranks by order density only.
	GoalOrder Goal = "order"
	// GoalEconomy also weighs income, deadhead cost, time of day,
	// weather and holidays.
	GoalEconomy Goal = "economy"
)

// Point is one historical pickup. A zero At means the point has no
// timestamp.
type Point struct {
	Lat       float64
	Lng       float64
	Intensity float64
	At        time.Time
}

func (p Point) pos() LatLng { return LatLng{Lat: p.Lat, Lng: p.Lng} }

// Context carries everything scoring depends on besides the points.
type Context struct {
	Now      time.Time
	Location *time.Location

	// LookbackDays drops timestamped points older than this many days.
	// Zero disables the filter.
	LookbackDays   int
	UseCurrentHour bool

	Precision        int
	Goal             Goal
	HeatmapIntensity float64

	DeadheadCostPerKm float64
	DeadheadRadiusKm  float64
	DistancePenaltyKm float64

	// Live is the driver's current position, nil when unknown.
	Live *LatLng

	Income IncomeTable

	// Weather and holiday only count in economy mode with the toggle on.
	UseWeather bool
	Weather    *Weather
	UseHoliday bool
	IsHoliday  bool

	ConfidenceTarget int
	TopN             int
}

// WeightedPoint is one rendered cell.
type WeightedPoint struct {
	Lat    float64
	Lng    float64
	Weight float64
	Score  float64
	Count  int
}

// RankedCell is a recommended cell.
type RankedCell struct {
	Lat     float64
	Lng     float64
	Score   float64
	Count   int
	Factors []Factor
	// DistanceKm is set when a live location is known.
	DistanceKm *float64
}

type Result struct {
	Weighted []WeightedPoint
	Ranked   []RankedCell
}

// DefaultTopN is the number of recommended cells.
const DefaultTopN = 3

type cell struct {
	key         cellKey
	pos         LatLng
	sum         float64
	count       int
	incomeSum   float64
	deadheadSum float64
}

type env struct {
	live             *LatLng
	distanceRadius   float64
	confidenceTarget int
	timeFactor       float64
	weatherFactor    float64
	holidayFactor    float64
}

func (c Context) loc() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

func (c Context) economy() bool { return c.Goal == GoalEconomy }

// Filter applies the recency and current-bucket filters and drops points
// with unusable coordinates.
func Filter(points []Point, ctx Context) []Point {
	loc := ctx.loc()
	current := BucketFor(ctx.Now, loc)

	var cutoff time.Time
	if ctx.LookbackDays > 0 {
		cutoff = ctx.Now.Add(-time.Duration(ctx.LookbackDays) * 24 * time.Hour)
	}

	out := make([]Point, 0, len(points))
	for _, p := range points {
		if !p.pos().Valid() {
			continue
		}
		if !cutoff.IsZero() && !p.At.IsZero() && p.At.Before(cutoff) {
			continue
		}
		if ctx.UseCurrentHour {
			if p.At.IsZero() || BucketFor(p.At, loc).ID != current.ID {
				continue
			}
		}
		out = append(out, p)
	}
	return out
}

// Center is the mean position of points, DefaultCenter when there are none.
func Center(points []Point) LatLng {
	var lat, lng float64
	n := 0
	for _, p := range points {
		if !p.pos().Valid() {
			continue
		}
		lat += p.Lat
		lng += p.Lng
		n++
	}
	if n == 0 {
		return DefaultCenter
	}
	return LatLng{Lat: lat / float64(n), Lng: lng / float64(n)}
}

// Compute scores points under ctx.
func Compute(points []Point, ctx Context) Result {
	res := Result{Weighted: []WeightedPoint{}, Ranked: []RankedCell{}}

	loc := ctx.loc()
	recent := Filter(points, Context{Now: ctx.Now, Location: loc, LookbackDays: ctx.LookbackDays})
	active := recent
	if ctx.UseCurrentHour {
		active = Filter(recent, Context{Now: ctx.Now, Location: loc, UseCurrentHour: true})
	}
	if len(active) == 0 {
		return res
	}

	current := BucketFor(ctx.Now, loc)
	e := &env{
		live:             ctx.Live,
		distanceRadius:   ctx.DistancePenaltyKm,
		confidenceTarget: ctx.ConfidenceTarget,
		timeFactor:       1,
		weatherFactor:    1,
		holidayFactor:    1,
	}
	if ctx.economy() {
		e.timeFactor = timeFactor(recent, current, loc)
		if ctx.UseWeather {
			e.weatherFactor = WeatherModifier(ctx.Weather)
		}
		if ctx.UseHoliday {
			e.holidayFactor = HolidayModifier(ctx.IsHoliday)
		}
	}

	cells := aggregate(active, ctx, current)

	scores := make([]float64, len(cells))
	factors := make([][]Factor, len(cells))
	maxScore := 0.0
	for i, c := range cells {
		score := 1.0
		fs := make([]Factor, 0, len(pipeline))
		for _, m := range pipeline {
			v := m.fn(c, e)
			fs = append(fs, Factor{Name: m.name, Value: v})
			score *= v
		}
		scores[i], factors[i] = score, fs
		maxScore = math.Max(maxScore, score)
	}

	order := make([]int, len(cells))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ia, ib := order[a], order[b]
		if scores[ia] != scores[ib] {
			return scores[ia] > scores[ib]
		}
		ka, kb := cells[ia].key, cells[ib].key
		if ka.lat != kb.lat {
			return ka.lat < kb.lat
		}
		return ka.lng < kb.lng
	})

	topN := ctx.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}

	for rank, i := range order {
		c := cells[i]
		res.Weighted = append(res.Weighted, WeightedPoint{
			Lat:    c.pos.Lat,
			Lng:    c.pos.Lng,
			Weight: normalize(scores[i], maxScore) * ctx.HeatmapIntensity,
			Score:  scores[i],
			Count:  c.count,
		})
		if rank < topN {
			rc := RankedCell{Lat: c.pos.Lat, Lng: c.pos.Lng, Score: scores[i], Count: c.count, Factors: factors[i]}
			if ctx.Live != nil {
				d := Haversine(*ctx.Live, c.pos)
				rc.DistanceKm = &d
			}
			res.Ranked = append(res.Ranked, rc)
		}
	}
	return res
}

func normalize(score, maxScore float64) float64 {
	if maxScore <= 0 {
		return 0.4
	}
	return clamp(score/maxScore, 0.25, 1)
}

// aggregate groups points into cells and accumulates the per-point
// income and deadhead factors.
func aggregate(points []Point, ctx Context, current Bucket) []*cell {
	loc := ctx.loc()
	economy := ctx.economy()

	bucketOf := func(p Point) int {
		if p.At.IsZero() {
			return current.ID
		}
		return BucketFor(p.At, loc).ID
	}

	keys := make([]cellKey, len(points))
	buckets := make([]int, len(points))
	for i, p := range points {
		keys[i] = keyOf(p.pos(), ctx.Precision)
		buckets[i] = bucketOf(p)
	}

	byKey := make(map[cellKey]*cell)
	var cells []*cell
	for i, p := range points {
		c, ok := byKey[keys[i]]
		if !ok {
			c = &cell{key: keys[i], pos: keys[i].center(ctx.Precision)}
			byKey[keys[i]] = c
			cells = append(cells, c)
		}

		income, deadhead := 1.0, 1.0
		if economy {
			income = ctx.Income.Factor(buckets[i])
			deadhead = DeadheadPenalty(
				nearestCandidate(i, points, keys, buckets),
				ctx.DeadheadRadiusKm,
				ctx.DeadheadCostPerKm,
				ctx.Income.EffectiveNetPerHour(buckets[i]),
			)
		}

		c.sum += p.Intensity
		c.count++
		c.incomeSum += income
		c.deadheadSum += deadhead
	}
	return cells
}

// nearestCandidate returns the distance from points[i] to the closest
// point of the same bucket in another cell, or -1 when there is none.
func nearestCandidate(i int, points []Point, keys []cellKey, buckets []int) float64 {
	best := -1.0
	for j := range points {
		if j == i || buckets[j] != buckets[i] || keys[j] == keys[i] {
			continue
		}
		d := Haversine(points[i].pos(), points[j].pos())
		if best < 0 || d < best {
			best = d
		}
	}
	return best
}

// timeFactor weighs the current bucket's average intensity against the
// average over all recent timestamped points. Untimestamped points are
// ignored.
func timeFactor(points []Point, current Bucket, loc *time.Location) float64 {
	var (
		totalSum, bucketSum     float64
		totalCount, bucketCount int
	)
	for _, p := range points {
		if p.At.IsZero() {
			continue
		}
		totalSum += p.Intensity
		totalCount++
		if BucketFor(p.At, loc).ID == current.ID {
			bucketSum += p.Intensity
			bucketCount++
		}
	}

	overall := 0.7
	if totalCount > 0 {
		overall = totalSum / float64(totalCount)
	}
	bucketAvg := overall
	if bucketCount > 0 {
		bucketAvg = bucketSum / float64(bucketCount)
	}
	return TimeModifier(bucketAvg, overall)
}
