package models

import (
	"time"

	"wastejobs-backend/internal/geo"
)

// WasteJob is a single disposal request. Timestamps are unix seconds.
type WasteJob struct {
	ID                  int64    `json:"id" db:"id"`
	RequesterID         string   `json:"requester_id" db:"requester_id"`
	ContractorID        *string  `json:"contractor_id,omitempty" db:"contractor_id"`
	Category            Category `json:"category" db:"category"`
	Status              Status   `json:"status" db:"status"`
	Title               string   `json:"title" db:"title"`
	Description         *string  `json:"description,omitempty" db:"description"`
	PhotoURL            *string  `json:"photo_url,omitempty" db:"photo_url"`
	ImageData           string   `json:"-" db:"image_data"`
	PickupLatitude      float64  `json:"pickup_latitude" db:"pickup_latitude"`
	PickupLongitude     float64  `json:"pickup_longitude" db:"pickup_longitude"`
	CompletionLatitude  *float64 `json:"completion_latitude,omitempty" db:"completion_latitude"`
	CompletionLongitude *float64 `json:"completion_longitude,omitempty" db:"completion_longitude"`
	CompletionPhotoURL  *string  `json:"completion_photo_url,omitempty" db:"completion_photo_url"`
	CreatedAt           int64    `json:"created_at" db:"created_at"`
	UpdatedAt           int64    `json:"updated_at" db:"updated_at"`
}

func (j WasteJob) Location() geo.Location {
	return geo.Location{Latitude: j.PickupLatitude, Longitude: j.PickupLongitude}
}

func (j WasteJob) WasteCategory() Category {
	return j.Category
}

// CompletionLocation is nil until the job is completed.
func (j WasteJob) CompletionLocation() *geo.Location {
	if j.CompletionLatitude == nil || j.CompletionLongitude == nil {
		return nil
	}
	return &geo.Location{Latitude: *j.CompletionLatitude, Longitude: *j.CompletionLongitude}
}

// WasteJobResponse is what we send to the client with ISO timestamps
type WasteJobResponse struct {
	ID                 int64         `json:"id"`
	RequesterID        string        `json:"requesterId"`
	ContractorID       *string       `json:"contractorId"`
	Category           Category      `json:"category"`
	Status             Status        `json:"status"`
	Title              string        `json:"title"`
	Description        *string       `json:"description,omitempty"`
	PhotoURL           *string       `json:"photoUrl,omitempty"`
	PickupLocation     geo.Location  `json:"pickupLocation"`
	CompletionLocation *geo.Location `json:"completionLocation"`
	CompletionPhotoURL *string       `json:"completionPhotoUrl"`
	CreatedAtIso       string        `json:"createdAtIso"`
	UpdatedAtIso       string        `json:"updatedAtIso"`
}

func (j *WasteJob) ToResponse() WasteJobResponse {
	return WasteJobResponse{
		ID:                 j.ID,
		RequesterID:        j.RequesterID,
		ContractorID:       j.ContractorID,
		Category:           j.Category,
		Status:             j.Status,
		Title:              j.Title,
		Description:        j.Description,
		PhotoURL:           j.PhotoURL,
		PickupLocation:     j.Location(),
		CompletionLocation: j.CompletionLocation(),
		CompletionPhotoURL: j.CompletionPhotoURL,
		CreatedAtIso:       time.Unix(j.CreatedAt, 0).UTC().Format(time.RFC3339),
		UpdatedAtIso:       time.Unix(j.UpdatedAt, 0).UTC().Format(time.RFC3339),
	}
}

// JobEvent is pushed over the live feed after every successful transition.
type JobEvent struct {
	Type string           `json:"type"`
	Job  WasteJobResponse `json:"job"`
}

const (
	EventJobCreated   = "job_created"
	EventJobActivated = "job_activated"
	EventJobClaimed   = "job_claimed"
	EventJobCompleted = "job_completed"
)
