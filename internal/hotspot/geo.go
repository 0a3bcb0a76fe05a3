package hotspot

import "math"

// EarthRadiusKm is the mean Earth radius used by Haversine.
const EarthRadiusKm = 6371.0

// LatLng is a position in degrees.
type LatLng struct {
	Lat float64
	Lng float64
}

const (
	// DefaultPrecision is the grid used when a precision is out of range.
	DefaultPrecision = 4
	// MaxPrecision is the finest grid. Degrees scaled by 10^8 stay well
	// inside int64.
	MaxPrecision = 8
)

// GridPrecision returns p when it lies in [0, MaxPrecision] and
// DefaultPrecision otherwise.
func GridPrecision(p int) int {
	if p < 0 || p > MaxPrecision {
		return DefaultPrecision
	}
	return p
}

// DefaultCenter is the map center used when there is nothing to average
// (Bandung).
var DefaultCenter = LatLng{Lat: -6.9147, Lng: 107.6098}

// Haversine returns the great-circle distance between a and b in km.
func Haversine(a, b LatLng) float64 {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Round snaps v to precision decimal places. Out-of-range precisions are
// replaced as in GridPrecision.
func Round(v float64, precision int) float64 {
	p := math.Pow(10, float64(GridPrecision(precision)))
	return math.Round(v*p) / p
}

// Valid reports whether p is a finite, in-range coordinate.
func (p LatLng) Valid() bool {
	return finite(p.Lat) && finite(p.Lng) &&
		p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

// cellKey identifies a grid cell by its coordinates scaled to integers,
// so equal cells compare equal regardless of float noise.
type cellKey struct {
	lat, lng int64
}

func keyOf(p LatLng, precision int) cellKey {
	scale := math.Pow(10, float64(GridPrecision(precision)))
	return cellKey{lat: int64(math.Round(p.Lat * scale)), lng: int64(math.Round(p.Lng * scale))}
}

func (k cellKey) center(precision int) LatLng {
	scale := math.Pow(10, float64(GridPrecision(precision)))
	return LatLng{Lat: float64(k.lat) / scale, Lng: float64(k.lng) / scale}
}
