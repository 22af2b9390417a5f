package models

import (
	"time"

	"wastejobs-backend/internal/geo"
	"wastejobs-backend/internal/openinghours"
)

// DeliveryPoint is a fixed disposal location imported from the city map
// server. OpeningHours is nil when the schedule is unknown.
type DeliveryPoint struct {
	ID           string                `json:"id" db:"id"`
	Latitude     float64               `json:"lat" db:"latitude"`
	Longitude    float64               `json:"lon" db:"longitude"`
	Description  string                `json:"description" db:"description"`
	OpeningHours openinghours.Schedule `json:"openingHours" db:"opening_hours"`
	Category     Category              `json:"category" db:"category"`
}

func (p DeliveryPoint) Location() geo.Location {
	return geo.Location{Latitude: p.Latitude, Longitude: p.Longitude}
}

func (p DeliveryPoint) WasteCategory() Category {
	return p.Category
}

// OpenAt treats an unknown schedule as open.
func (p DeliveryPoint) OpenAt(local time.Time) bool {
	if p.OpeningHours == nil {
		return true
	}
	return p.OpeningHours.IsOpenAt(local)
}
