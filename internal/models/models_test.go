package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wastejobs-backend/pkg/errs"
)

func TestStatusNext(t *testing.T) {
	chain := []Status{StatusDraft, StatusActive, StatusClaimed, StatusCompleted}
	for i := 0; i < len(chain)-1; i++ {
		next, ok := chain[i].Next()
		require.True(t, ok)
		assert.Equal(t, chain[i+1], next)
	}
	_, ok := StatusCompleted.Next()
	assert.False(t, ok)
	_, ok = Status("cancelled").Next()
	assert.False(t, ok)
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory(" Electronics ")
	require.NoError(t, err)
	assert.Equal(t, CategoryElectronics, c)

	_, err = ParseCategory("ERROR")
	assert.ErrorIs(t, err, errs.ErrInvalidCategory)
	assert.False(t, Category(CategoryUnrecognized).Valid())
	assert.Len(t, Categories(), 4)
}

func TestWasteJobResponse(t *testing.T) {
	lat, lon := 52.1, 21.2
	job := WasteJob{
		ID:                  9,
		RequesterID:         "user_1",
		Category:            CategoryPSZOK,
		Status:              StatusCompleted,
		PickupLatitude:      52.0,
		PickupLongitude:     21.0,
		CompletionLatitude:  &lat,
		CompletionLongitude: &lon,
		CreatedAt:           0,
		UpdatedAt:           60,
	}
	resp := job.ToResponse()
	assert.Equal(t, "1970-01-01T00:00:00Z", resp.CreatedAtIso)
	assert.Equal(t, "1970-01-01T00:01:00Z", resp.UpdatedAtIso)
	require.NotNil(t, resp.CompletionLocation)
	assert.Equal(t, 52.1, resp.CompletionLocation.Latitude)
	assert.Equal(t, 21.0, resp.PickupLocation.Longitude)

	job.CompletionLongitude = nil
	assert.Nil(t, job.CompletionLocation())
}
