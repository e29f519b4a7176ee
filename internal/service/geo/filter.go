package geo

import (
	"math"

	"courtmatch/internal/domain/geo"
)

// Filter implements geo.Filter with haversine distance on a spherical Earth.
// It is pure computation and safe for concurrent use.
type Filter struct{}

// NewFilter creates a geo filter.
func NewFilter() Filter {
	return Filter{}
}

// Distance returns the great-circle distance between a and b in miles.
// Identical coordinates return exactly 0.
func (Filter) Distance(a, b geo.Coordinate) float64 {
	if a == b {
		return 0
	}

	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return geo.EarthRadiusMiles * c
}

// WithinRadius reports whether b lies within radiusMiles of a.
func (f Filter) WithinRadius(a, b geo.Coordinate, radiusMiles float64) bool {
	return f.Distance(a, b) <= radiusMiles
}
