// Package geo holds the distance and containment primitives used by the
// matcher and the job listing. Distances are planar: degrees of latitude and
// longitude are treated as a flat grid, which is accurate enough inside a
// single metropolitan area and keeps nearest-neighbour ordering stable.
package geo

import (
	"math"

	"github.com/rotisserie/eris"

	"wastejobs-backend/pkg/errs"
)

// KmPerDegree converts a planar degree distance to kilometres.
const KmPerDegree = 111.0

// Location represents a geographic point in WGS84 degrees.
type Location struct {
	Latitude  float64 `json:"lat" db:"latitude"`
	Longitude float64 `json:"lon" db:"longitude"`
}

// Validate reports ErrInvalidCoordinate for NaN, infinite or out of range
// components.
func (l Location) Validate() error {
	if !finite(l.Latitude) || !finite(l.Longitude) {
		return eris.Wrapf(errs.ErrInvalidCoordinate, "non-finite coordinate (%v, %v)", l.Latitude, l.Longitude)
	}
	if l.Latitude < -90 || l.Latitude > 90 {
		return eris.Wrapf(errs.ErrInvalidCoordinate, "latitude %v out of range", l.Latitude)
	}
	if l.Longitude < -180 || l.Longitude > 180 {
		return eris.Wrapf(errs.ErrInvalidCoordinate, "longitude %v out of range", l.Longitude)
	}
	return nil
}

// Within reports whether l lies inside the circle of radiusKm around center.
func (l Location) Within(center Location, radiusKm float64) (bool, error) {
	d, err := Distance(l, center)
	if err != nil {
		return false, err
	}
	return Kilometers(d) <= radiusKm, nil
}

// Distance returns the planar Euclidean distance between a and b in degrees.
func Distance(a, b Location) (float64, error) {
	if err := a.Validate(); err != nil {
		return 0, err
	}
	if err := b.Validate(); err != nil {
		return 0, err
	}
	dLat := a.Latitude - b.Latitude
	dLon := a.Longitude - b.Longitude
	return math.Sqrt(dLat*dLat + dLon*dLon), nil
}

// Kilometers converts a degree distance returned by Distance.
func Kilometers(d float64) float64 {
	return d * KmPerDegree
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
