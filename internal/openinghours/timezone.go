package openinghours

import (
	"time"
	_ "time/tzdata"

	"github.com/bradfitz/latlong"

	"wastejobs-backend/internal/geo"
)

// LocalTime converts t to the wall clock of the time zone containing loc.
// When the zone cannot be resolved t is returned unchanged.
func LocalTime(loc geo.Location, t time.Time) time.Time {
	name := latlong.LookupZoneName(loc.Latitude, loc.Longitude)
	if name == "" {
		return t
	}
	zone, err := time.LoadLocation(name)
	if err != nil {
		return t
	}
	return t.In(zone)
}
