package geo

import "math"

// EarthRadiusKm is the mean Earth radius used by the haversine formula.
const EarthRadiusKm = 6371.0

// Point is a latitude/longitude pair in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// NewPoint returns a pointer to a point, or nil when either coordinate is
// missing. Rows scanned with nullable columns go through here.
func NewPoint(lat, lng *float64) *Point {
	if lat == nil || lng == nil {
		return nil
	}
	return &Point{Lat: *lat, Lng: *lng}
}

// Valid reports whether p holds a usable coordinate. Nil, NaN, infinite,
// zero and out-of-range values all count as unknown.
func (p *Point) Valid() bool {
	if p == nil {
		return false
	}
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return false
	}
	if p.Lat == 0 || p.Lng == 0 {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// DistanceKm returns the great-circle distance between a and b.
func DistanceKm(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusKm * c
}

// Distance is DistanceKm over optional points. ok is false when either side
// is not Valid; the distance is then meaningless and must not be used.
func Distance(a, b *Point) (km float64, ok bool) {
	if !a.Valid() || !b.Valid() {
		return 0, false
	}
	return DistanceKm(*a, *b), true
}
