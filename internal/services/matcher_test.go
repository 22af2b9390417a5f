package services

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"wastejobs-backend/internal/database"
	"wastejobs-backend/internal/geo"
	"wastejobs-backend/internal/models"
	"wastejobs-backend/internal/openinghours"
	"wastejobs-backend/pkg/errs"
)

var origin = geo.Location{Latitude: 52.0, Longitude: 21.0}

func point(id string, dLat float64, c models.Category) models.DeliveryPoint {
	return models.DeliveryPoint{ID: id, Latitude: origin.Latitude + dLat, Longitude: origin.Longitude, Category: c}
}

func TestFindNearestPicksClosest(t *testing.T) {
	points := []models.DeliveryPoint{
		point("one", 1, models.CategoryPSZOK),
		point("two", 2, models.CategoryPSZOK),
		point("half", 0.5, models.CategoryPSZOK),
	}

	m, ok, err := FindNearest(origin, models.CategoryPSZOK, points)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "half", m.Candidate.ID)
	assert.InDelta(t, 0.5, m.Distance, 1e-9)
	assert.InDelta(t, 55.5, m.DistanceKm, 1e-6)
}

func TestFindNearestTieKeepsEarliest(t *testing.T) {
	points := []models.DeliveryPoint{
		point("north", 1, models.CategoryPSZOK),
		point("south", -1, models.CategoryPSZOK),
	}
	m, ok, err := FindNearest(origin, models.CategoryPSZOK, points)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "north", m.Candidate.ID)
}

func TestFindNearestNoMatch(t *testing.T) {
	_, ok, err := FindNearest(origin, models.CategoryPSZOK, []models.DeliveryPoint{})
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = FindNearest(origin, models.CategoryPSZOK, []models.DeliveryPoint{
		point("other", 0.1, models.CategoryElectronics),
	})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFindNearestValidation(t *testing.T) {
	_, _, err := FindNearest(geo.Location{Latitude: math.NaN()}, models.CategoryPSZOK, []models.DeliveryPoint{})
	assert.ErrorIs(t, err, errs.ErrInvalidCoordinate)

	_, _, err = FindNearest(origin, models.Category("glass"), []models.DeliveryPoint{})
	assert.ErrorIs(t, err, errs.ErrInvalidCategory)

	broken := point("broken", 0.1, models.CategoryPSZOK)
	broken.Longitude = math.Inf(1)
	m, ok, err := FindNearest(origin, models.CategoryPSZOK, []models.DeliveryPoint{broken, point("ok", 1, models.CategoryPSZOK)})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ok", m.Candidate.ID)
}

func TestNearestPointOpenFilter(t *testing.T) {
	ctx := context.Background()
	closedNow := point("closed", 0.1, models.CategoryPSZOK)
	closedNow.OpeningHours = openinghours.Schedule{openinghours.Monday: {"07:00", "08:00"}}
	unknown := point("unknown", 0.5, models.CategoryPSZOK)

	store := &mockPointStore{}
	store.On("ListByCategory", ctx, models.CategoryPSZOK).Return([]models.DeliveryPoint{closedNow, unknown}, nil)
	m := NewMatcher(store, nil, nil, false)

	got, ok, err := m.NearestPoint(ctx, PointQuery{Origin: origin, Category: models.CategoryPSZOK})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "closed", got.Candidate.ID, "no time filter without OpenAt")

	// Monday 2026-10-12 12:00 in Warsaw.
	noon := time.Date(2026, 10, 12, 10, 0, 0, 0, time.UTC)
	got, ok, err = m.NearestPoint(ctx, PointQuery{Origin: origin, Category: models.CategoryPSZOK, OpenAt: &noon})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "unknown", got.Candidate.ID)

	m.requireOpen = true
	m.now = func() time.Time { return time.Date(2026, 10, 12, 5, 30, 0, 0, time.UTC) }
	got, ok, err = m.NearestPoint(ctx, PointQuery{Origin: origin, Category: models.CategoryPSZOK})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "closed", got.Candidate.ID, "07:30 local is inside opening hours")
}

func TestNearestJob(t *testing.T) {
	ctx := context.Background()
	active := models.StatusActive
	category := models.CategoryElectronics

	jobs := &mockJobStore{}
	jobs.On("List", ctx, database.JobFilter{Status: &active, Category: &category}).Return([]models.WasteJob{
		{ID: 1, Category: category, Status: active, PickupLatitude: 52.3, PickupLongitude: 21.0},
		{ID: 2, Category: category, Status: active, PickupLatitude: 52.05, PickupLongitude: 21.0},
	}, nil)

	m := NewMatcher(nil, jobs, nil, false)
	got, ok, err := m.NearestJob(ctx, origin, category)
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 2, got.Candidate.ID)
	jobs.AssertExpectations(t)
}

func TestSuggestRoute(t *testing.T) {
	ctx := context.Background()
	target := point("target", 0.2, models.CategoryPSZOK)
	store := &mockPointStore{}
	store.On("ListByCategory", ctx, models.CategoryPSZOK).Return([]models.DeliveryPoint{target}, nil)

	line := geom.NewLineString(geom.XY).MustSetCoords([]geom.Coord{{21.0, 52.0}, {21.0, 52.2}})
	dirs := &mockDirections{}
	dirs.On("Route", ctx, origin, target.Location()).Return(line, nil).Once()

	m := NewMatcher(store, nil, dirs, false)
	q := PointQuery{Origin: origin, Category: models.CategoryPSZOK}

	s, ok, err := m.SuggestRoute(ctx, q)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "target", s.Point.Candidate.ID)
	assert.Same(t, line, s.Route)

	dirs.On("Route", ctx, origin, target.Location()).Return(nil, nil).Once()
	s, ok, err = m.SuggestRoute(ctx, q)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Nil(t, s.Route, "no route is not an error")

	dirs.On("Route", ctx, origin, target.Location()).Return(nil, errors.New("quota")).Once()
	_, _, err = m.SuggestRoute(ctx, q)
	assert.ErrorIs(t, err, errs.ErrDirectionsUnavailable)

	empty := &mockPointStore{}
	empty.On("ListByCategory", ctx, mock.Anything).Return([]models.DeliveryPoint{}, nil)
	s, ok, err = NewMatcher(empty, nil, dirs, false).SuggestRoute(ctx, q)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, s)
}
