package geo

import (
	"fmt"

	"courtmatch/internal/domain/fault"
)

// EarthRadiusMiles is the spherical Earth radius used for all distance math.
const EarthRadiusMiles = 3958.8

// ErrInvalidCoordinate is returned for latitudes outside [-90, 90] or
// longitudes outside [-180, 180]. Out-of-range input is rejected, never
// clamped or wrapped.
var ErrInvalidCoordinate = fault.New(fault.KindValidation, "invalid_coordinate", "coordinate out of range")

// Coordinate is an immutable geographic point.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate checks that the coordinate lies on the globe.
func (c Coordinate) Validate() error {
	if c.Latitude < -90 || c.Latitude > 90 || c.Longitude < -180 || c.Longitude > 180 {
		return ErrInvalidCoordinate
	}
	return nil
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%f, %f)", c.Latitude, c.Longitude)
}

// Filter provides the distance primitives the candidate ranker filters with.
type Filter interface {
	// Distance returns the great-circle distance between a and b in miles.
	Distance(a, b Coordinate) float64

	// WithinRadius reports whether b lies within radiusMiles of a.
	WithinRadius(a, b Coordinate, radiusMiles float64) bool
}
