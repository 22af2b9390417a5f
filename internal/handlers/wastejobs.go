package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"

	"wastejobs-backend/internal/geo"
	"wastejobs-backend/internal/models"
	"wastejobs-backend/internal/services"
	"wastejobs-backend/pkg/errs"
	"wastejobs-backend/pkg/utils"
)

// JobService is the lifecycle surface the handlers use.
type JobService interface {
	Create(ctx context.Context, requesterID string, sub services.Submission) (*models.WasteJob, error)
	Activate(ctx context.Context, jobID int64, newPickup *geo.Location) (*models.WasteJob, error)
	Claim(ctx context.Context, jobID int64, contractorID string) (*models.WasteJob, error)
	Complete(ctx context.Context, jobID int64, photoURL string, at geo.Location) (*models.WasteJob, error)
	Get(ctx context.Context, jobID int64) (*models.WasteJob, error)
	List(ctx context.Context, q services.JobQuery) ([]models.WasteJob, error)
}

// CreateWasteJobRequest is a requester's submission. Coordinates are
// pointers so that 0 is not mistaken for missing.
type CreateWasteJobRequest struct {
	ImageData       string   `json:"imageData" validate:"required"`
	Description     *string  `json:"description" validate:"omitempty,max=2000"`
	Category        *string  `json:"category"`
	PhotoURL        *string  `json:"photoUrl" validate:"omitempty,url"`
	PickupLatitude  *float64 `json:"pickupLatitude" validate:"required"`
	PickupLongitude *float64 `json:"pickupLongitude" validate:"required"`
}

// ActivateWasteJobRequest may move the pickup point when lat and lon are set.
type ActivateWasteJobRequest struct {
	WastejobID int64    `json:"wastejobId" validate:"required,gt=0"`
	Lat        *float64 `json:"lat" validate:"required_with=Lon"`
	Lon        *float64 `json:"lon" validate:"required_with=Lat"`
}

type ClaimWasteJobRequest struct {
	WastejobID int64 `json:"wastejobId" validate:"required,gt=0"`
}

type CompleteWasteJobRequest struct {
	WastejobID int64    `json:"wastejobId" validate:"required,gt=0"`
	PhotoURL   string   `json:"photoUrl" validate:"required"`
	Lat        *float64 `json:"lat" validate:"required"`
	Lon        *float64 `json:"lon" validate:"required"`
}

// NearestJobResponse is the closest active job for a contractor. Job is
// null and Found false when no active job of the category exists.
type NearestJobResponse struct {
	Found      bool                     `json:"found"`
	Job        *models.WasteJobResponse `json:"job"`
	Distance   float64                  `json:"distance"`
	DistanceKm float64                  `json:"distanceKm"`
}

func toResponses(jobs []models.WasteJob) []models.WasteJobResponse {
	out := make([]models.WasteJobResponse, 0, len(jobs))
	for i := range jobs {
		out = append(out, jobs[i].ToResponse())
	}
	return out
}

// ListWasteJobs handles GET /api/wastejobs
// Query: status, category, mine=true, contractor=me, lat+lon+radiusKm, limit, offset.
func ListWasteJobs(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := requireUser(w, r)
		if !ok {
			return
		}

		q, err := parseJobQuery(r, user.UserID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		jobs, err := svc.List(r.Context(), q)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, toResponses(jobs))
	}
}

func parseJobQuery(r *http.Request, userID string) (services.JobQuery, error) {
	var q services.JobQuery
	values := r.URL.Query()

	if s := values.Get("status"); s != "" {
		status, ok := models.ParseStatus(s)
		if !ok {
			return q, eris.Wrapf(errs.ErrInvalidInput, "unknown status %q", s)
		}
		q.Filter.Status = &status
	}
	if c := values.Get("category"); c != "" {
		category, err := models.ParseCategory(c)
		if err != nil {
			return q, err
		}
		q.Filter.Category = &category
	}
	if queryBool(r, "mine") {
		q.Filter.RequesterID = userID
	}
	if values.Get("contractor") == "me" {
		q.Filter.ContractorID = userID
	}

	var err error
	if q.Filter.Limit, err = queryUint(r, "limit"); err != nil {
		return q, err
	}
	if q.Filter.Offset, err = queryUint(r, "offset"); err != nil {
		return q, err
	}

	near, ok, err := queryLocation(r)
	if err != nil {
		return q, err
	}
	if ok {
		radius, hasRadius, err := queryFloat(r, "radiusKm")
		if err != nil {
			return q, err
		}
		if !hasRadius || radius <= 0 {
			return q, eris.Wrap(errs.ErrInvalidInput, "radiusKm must be positive when lat and lon are set")
		}
		q.Near = &near
		q.RadiusKm = radius
	}
	return q, nil
}

// GetWasteJob handles GET /api/wastejobs/{id}
func GetWasteJob(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil || id <= 0 {
			writeServiceError(w, r, eris.Wrapf(errs.ErrInvalidInput, "invalid job id %q", chi.URLParam(r, "id")))
			return
		}

		job, err := svc.Get(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, job.ToResponse())
	}
}

// CreateWasteJob handles POST /api/wastejobs
func CreateWasteJob(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := requireUser(w, r)
		if !ok {
			return
		}

		var req CreateWasteJobRequest
		if err := decodeBody(r, &req); err != nil {
			writeServiceError(w, r, err)
			return
		}

		sub := services.Submission{
			ImageData:   req.ImageData,
			PhotoURL:    req.PhotoURL,
			Description: req.Description,
			Pickup:      geo.Location{Latitude: *req.PickupLatitude, Longitude: *req.PickupLongitude},
		}
		if req.Category != nil && *req.Category != "" {
			category, err := models.ParseCategory(*req.Category)
			if err != nil {
				writeServiceError(w, r, err)
				return
			}
			sub.Category = &category
		}

		job, err := svc.Create(r.Context(), user.UserID, sub)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		utils.RespondJSON(w, http.StatusCreated, job.ToResponse())
	}
}

// ActivateWasteJob handles PUT /api/wastejobs/activate
func ActivateWasteJob(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireUser(w, r); !ok {
			return
		}

		var req ActivateWasteJobRequest
		if err := decodeBody(r, &req); err != nil {
			writeServiceError(w, r, err)
			return
		}

		var pickup *geo.Location
		if req.Lat != nil && req.Lon != nil {
			pickup = &geo.Location{Latitude: *req.Lat, Longitude: *req.Lon}
		}

		job, err := svc.Activate(r.Context(), req.WastejobID, pickup)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, job.ToResponse())
	}
}

// ClaimWasteJob handles PUT /api/wastejobs/claim. The caller becomes the
// contractor.
func ClaimWasteJob(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := requireUser(w, r)
		if !ok {
			return
		}

		var req ClaimWasteJobRequest
		if err := decodeBody(r, &req); err != nil {
			writeServiceError(w, r, err)
			return
		}

		job, err := svc.Claim(r.Context(), req.WastejobID, user.UserID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, job.ToResponse())
	}
}

// CompleteWasteJob handles PUT /api/wastejobs/complete
func CompleteWasteJob(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireUser(w, r); !ok {
			return
		}

		var req CompleteWasteJobRequest
		if err := decodeBody(r, &req); err != nil {
			writeServiceError(w, r, err)
			return
		}

		at := geo.Location{Latitude: *req.Lat, Longitude: *req.Lon}
		job, err := svc.Complete(r.Context(), req.WastejobID, req.PhotoURL, at)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, job.ToResponse())
	}
}

// NearestWasteJob handles GET /api/wastejobs/nearest?lat&lon&category
func NearestWasteJob(matcher Matcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireUser(w, r); !ok {
			return
		}

		origin, err := requireLocation(r)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		category, err := models.ParseCategory(r.URL.Query().Get("category"))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		match, found, err := matcher.NearestJob(r.Context(), origin, category)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		if !found {
			utils.RespondJSON(w, http.StatusOK, NearestJobResponse{})
			return
		}
		job := match.Candidate.ToResponse()
		utils.RespondJSON(w, http.StatusOK, NearestJobResponse{
			Found:      true,
			Job:        &job,
			Distance:   match.Distance,
			DistanceKm: match.DistanceKm,
		})
	}
}
