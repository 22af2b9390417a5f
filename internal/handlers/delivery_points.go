package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"

	"wastejobs-backend/internal/geo"
	"wastejobs-backend/internal/models"
	"wastejobs-backend/internal/services"
	"wastejobs-backend/pkg/errs"
	"wastejobs-backend/pkg/utils"
)

// Matcher answers nearest-point, nearest-job and route queries.
type Matcher interface {
	NearestPoint(ctx context.Context, q services.PointQuery) (services.Match[models.DeliveryPoint], bool, error)
	NearestJob(ctx context.Context, origin geo.Location, category models.Category) (services.Match[models.WasteJob], bool, error)
	SuggestRoute(ctx context.Context, q services.PointQuery) (*services.RouteSuggestion, bool, error)
}

// NearestPointResponse is the closest disposal point. Point is null and
// Found false when no point of the category qualifies.
type NearestPointResponse struct {
	Found      bool                  `json:"found"`
	Point      *models.DeliveryPoint `json:"point"`
	Distance   float64               `json:"distance"`
	DistanceKm float64               `json:"distanceKm"`
}

// RouteResponse adds the driving route as a GeoJSON LineString, or null
// when none is available.
type RouteResponse struct {
	NearestPointResponse
	Route json.RawMessage `json:"route"`
}

// ListDeliveryPoints handles GET /api/waste-delivery-points[?category=]
func ListDeliveryPoints(points services.PointStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			list []models.DeliveryPoint
			err  error
		)
		if c := r.URL.Query().Get("category"); c != "" {
			category, perr := models.ParseCategory(c)
			if perr != nil {
				writeServiceError(w, r, perr)
				return
			}
			list, err = points.ListByCategory(r.Context(), category)
		} else {
			list, err = points.List(r.Context())
		}
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		if list == nil {
			list = []models.DeliveryPoint{}
		}
		utils.RespondJSON(w, http.StatusOK, list)
	}
}

// parsePointQuery reads lat, lon, category and the optional open filter:
// open_now=true or at=<RFC3339>.
func parsePointQuery(r *http.Request) (services.PointQuery, error) {
	origin, err := requireLocation(r)
	if err != nil {
		return services.PointQuery{}, err
	}
	category, err := models.ParseCategory(r.URL.Query().Get("category"))
	if err != nil {
		return services.PointQuery{}, err
	}
	q := services.PointQuery{Origin: origin, Category: category}

	if raw := r.URL.Query().Get("at"); raw != "" {
		at, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return services.PointQuery{}, eris.Wrapf(errs.ErrInvalidInput, "at: %q is not RFC3339", raw)
		}
		q.OpenAt = &at
	} else if queryBool(r, "open_now") {
		now := time.Now()
		q.OpenAt = &now
	}
	return q, nil
}

// NearestDeliveryPoint handles GET /api/waste-delivery-points/nearest
func NearestDeliveryPoint(matcher Matcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := parsePointQuery(r)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		match, found, err := matcher.NearestPoint(r.Context(), q)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		if !found {
			utils.RespondJSON(w, http.StatusOK, NearestPointResponse{})
			return
		}
		utils.RespondJSON(w, http.StatusOK, NearestPointResponse{
			Found:      true,
			Point:      &match.Candidate,
			Distance:   match.Distance,
			DistanceKm: match.DistanceKm,
		})
	}
}

// DeliveryPointRoute handles GET /api/waste-delivery-points/route
func DeliveryPointRoute(matcher Matcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := parsePointQuery(r)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		suggestion, found, err := matcher.SuggestRoute(r.Context(), q)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		if !found {
			utils.RespondJSON(w, http.StatusOK, RouteResponse{Route: json.RawMessage("null")})
			return
		}

		resp := RouteResponse{
			NearestPointResponse: NearestPointResponse{
				Found:      true,
				Point:      &suggestion.Point.Candidate,
				Distance:   suggestion.Point.Distance,
				DistanceKm: suggestion.Point.DistanceKm,
			},
			Route: json.RawMessage("null"),
		}
		if suggestion.Route != nil {
			encoded, err := geojson.Marshal(suggestion.Route)
			if err != nil {
				writeServiceError(w, r, eris.Wrap(err, "encode route"))
				return
			}
			resp.Route = encoded
		}
		utils.RespondJSON(w, http.StatusOK, resp)
	}
}
