package services

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"wastejobs-backend/internal/database"
	"wastejobs-backend/internal/geo"
	"wastejobs-backend/internal/models"
	"wastejobs-backend/internal/openinghours"
	"wastejobs-backend/pkg/errs"
)

// Distances closer than this are ties; the earlier candidate wins.
const tieTolerance = 1e-12

// Candidate is anything with a position and a waste category: disposal
// points and open jobs.
type Candidate interface {
	Location() geo.Location
	WasteCategory() models.Category
}

// Match pairs the chosen candidate with its planar distance.
type Match[T Candidate] struct {
	Candidate  T       `json:"candidate"`
	Distance   float64 `json:"distance"`
	DistanceKm float64 `json:"distanceKm"`
}

// FindNearest returns the candidate of the given category closest to origin.
// ok is false when no candidate qualifies. Candidates with invalid
// coordinates are skipped.
func FindNearest[T Candidate](origin geo.Location, category models.Category, candidates []T) (Match[T], bool, error) {
	var best Match[T]
	if err := origin.Validate(); err != nil {
		return best, false, err
	}
	if !category.Valid() {
		return best, false, eris.Wrapf(errs.ErrInvalidCategory, "category %q", category)
	}

	found := false
	for _, c := range candidates {
		if c.WasteCategory() != category {
			continue
		}
		d, err := geo.Distance(origin, c.Location())
		if err != nil {
			continue
		}
		if !found || d < best.Distance-tieTolerance {
			best = Match[T]{Candidate: c, Distance: d}
			found = true
		}
	}
	if !found {
		return Match[T]{}, false, nil
	}
	best.DistanceKm = geo.Kilometers(best.Distance)
	return best, true, nil
}

// PointStore is the read side of the disposal point catalog.
type PointStore interface {
	List(ctx context.Context) ([]models.DeliveryPoint, error)
	ListByCategory(ctx context.Context, category models.Category) ([]models.DeliveryPoint, error)
}

// Directions returns route geometry between two points. A nil line with a
// nil error means the provider has no route.
type Directions interface {
	Route(ctx context.Context, origin, destination geo.Location) (*geom.LineString, error)
}

// PointQuery asks for the nearest disposal point. When OpenAt is set only
// points open at that instant (in the point's local time) are considered;
// points with unknown hours always are.
type PointQuery struct {
	Origin   geo.Location
	Category models.Category
	OpenAt   *time.Time
}

// RouteSuggestion is the nearest point plus, when available, a route to it.
type RouteSuggestion struct {
	Point Match[models.DeliveryPoint] `json:"point"`
	Route *geom.LineString            `json:"-"`
}

// Matcher runs nearest-point, nearest-job and route queries against the stores.
type Matcher struct {
	points      PointStore
	jobs        JobStore
	directions  Directions
	requireOpen bool
	now         func() time.Time
}

// NewMatcher wires the matcher. directions may be nil. With requireOpen set,
// queries without an explicit OpenAt are checked against the current time.
func NewMatcher(points PointStore, jobs JobStore, directions Directions, requireOpen bool) *Matcher {
	return &Matcher{
		points:      points,
		jobs:        jobs,
		directions:  directions,
		requireOpen: requireOpen,
		now:         time.Now,
	}
}

// NearestPoint returns the closest point of the query category, honouring the open filter.
func (m *Matcher) NearestPoint(ctx context.Context, q PointQuery) (Match[models.DeliveryPoint], bool, error) {
	if err := q.Origin.Validate(); err != nil {
		return Match[models.DeliveryPoint]{}, false, err
	}
	if !q.Category.Valid() {
		return Match[models.DeliveryPoint]{}, false, eris.Wrapf(errs.ErrInvalidCategory, "category %q", q.Category)
	}

	points, err := m.points.ListByCategory(ctx, q.Category)
	if err != nil {
		return Match[models.DeliveryPoint]{}, false, err
	}

	at := q.OpenAt
	if at == nil && m.requireOpen {
		now := m.now()
		at = &now
	}
	if at != nil {
		open := make([]models.DeliveryPoint, 0, len(points))
		for _, p := range points {
			if p.OpenAt(openinghours.LocalTime(p.Location(), *at)) {
				open = append(open, p)
			}
		}
		points = open
	}

	return FindNearest(q.Origin, q.Category, points)
}

// NearestJob finds the closest active job of the category, for contractors
// looking for work.
func (m *Matcher) NearestJob(ctx context.Context, origin geo.Location, category models.Category) (Match[models.WasteJob], bool, error) {
	if err := origin.Validate(); err != nil {
		return Match[models.WasteJob]{}, false, err
	}
	active := models.StatusActive
	jobs, err := m.jobs.List(ctx, database.JobFilter{Status: &active, Category: &category})
	if err != nil {
		return Match[models.WasteJob]{}, false, err
	}
	return FindNearest(origin, category, jobs)
}

// SuggestRoute finds the nearest point and asks the directions provider for
// a route to it. ok is false when there is no point; a missing route is
// reported as a nil Route, not an error.
func (m *Matcher) SuggestRoute(ctx context.Context, q PointQuery) (*RouteSuggestion, bool, error) {
	match, ok, err := m.NearestPoint(ctx, q)
	if err != nil || !ok {
		return nil, ok, err
	}

	suggestion := &RouteSuggestion{Point: match}
	if m.directions == nil {
		return suggestion, true, nil
	}

	route, err := m.directions.Route(ctx, q.Origin, match.Candidate.Location())
	if err != nil {
		zap.L().Warn("directions lookup failed",
			zap.String("point_id", match.Candidate.ID),
			zap.Error(err),
		)
		return nil, true, eris.Wrapf(errs.ErrDirectionsUnavailable, "route to %s: %v", match.Candidate.ID, err)
	}
	suggestion.Route = route
	return suggestion, true, nil
}
