package hotspot

import "math"

// Weather is the current condition at the map center.
type Weather struct {
	PrecipitationMM float64
	WeatherCode     int
	TemperatureC    float64
}

// rainyCodes are WMO weather codes for rain showers and thunderstorms.
var rainyCodes = map[int]struct{}{61: {}, 63: {}, 65: {}, 80: {}, 81: {}, 82: {}, 95: {}}

// WeatherModifier boosts demand when it rains. A nil report is neutral.
func WeatherModifier(w *Weather) float64 {
	if w == nil {
		return 1
	}
	switch p := w.PrecipitationMM; {
	case p >= 5:
		return 1.25
	case p >= 2:
		return 1.18
	case p >= 0.2:
		return 1.08
	}
	if _, ok := rainyCodes[w.WeatherCode]; ok {
		return 1.1
	}
	return 1
}

// HolidayModifier boosts demand on public holidays.
func HolidayModifier(isHoliday bool) float64 {
	if isHoliday {
		return 1.1
	}
	return 1
}

// ConfidenceTarget is the sample count at which a cell gets full confidence.
const ConfidenceTarget = 6

// ConfidenceModifier dampens cells with little history.
func ConfidenceModifier(count, target int) float64 {
	if count <= 0 {
		return 0.2
	}
	if target <= 0 {
		target = ConfidenceTarget
	}
	return clamp(math.Log1p(float64(count))/math.Log1p(float64(target)), 0.2, 1)
}

// DistancePenalty decays with the distance from the driver to the cell.
func DistancePenalty(distanceKm, radiusKm float64) float64 {
	if radiusKm <= 0 {
		radiusKm = 3
	}
	return clamp(math.Exp(-0.55*distanceKm/radiusKm), 0.55, 1)
}

// NoCandidateDeadhead is the penalty used when no other pickup exists to
// measure empty travel against.
const NoCandidateDeadhead = 0.85

// DeadheadPenalty prices the empty drive to the nearest candidate pickup.
// nearestKm < 0 means there is no candidate.
func DeadheadPenalty(nearestKm, radiusKm, costPerKm, netPerHour float64) float64 {
	if nearestKm < 0 {
		return NoCandidateDeadhead
	}
	if radiusKm <= 0 {
		radiusKm = 3
	}
	if netPerHour <= 0 {
		netPerHour = FallbackNetPerHour
	}
	cost := math.Min(nearestKm, radiusKm) * costPerKm
	return clamp(1-cost/netPerHour, 0.6, 1)
}

// TimeModifier compares the current bucket's average point intensity with
// the overall average, clamped to [0.85, 1.2].
func TimeModifier(bucketAvg, overallAvg float64) float64 {
	if overallAvg <= 0 {
		return 1
	}
	return clamp(bucketAvg/overallAvg, 0.85, 1.2)
}

// Factor is one named multiplier applied to a cell.
type Factor struct {
	Name  string
	Value float64
}

// modifier computes one factor of a cell's score.
type modifier struct {
	name string
	fn   func(c *cell, e *env) float64
}

// pipeline is the ordered list of factors a cell score is the product of.
var pipeline = []modifier{
	{"intensity", func(c *cell, _ *env) float64 { return c.sum / float64(c.count) }},
	{"income", func(c *cell, _ *env) float64 { return c.incomeSum / float64(c.count) }},
	{"deadhead", func(c *cell, _ *env) float64 { return c.deadheadSum / float64(c.count) }},
	{"time", func(_ *cell, e *env) float64 { return e.timeFactor }},
	{"weather", func(_ *cell, e *env) float64 { return e.weatherFactor }},
	{"holiday", func(_ *cell, e *env) float64 { return e.holidayFactor }},
	{"confidence", func(c *cell, e *env) float64 { return ConfidenceModifier(c.count, e.confidenceTarget) }},
	{"distance", func(c *cell, e *env) float64 {
		if e.live == nil {
			return 1
		}
		return DistancePenalty(Haversine(*e.live, c.pos), e.distanceRadius)
	}},
}
