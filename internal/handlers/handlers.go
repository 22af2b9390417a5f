// Package handlers exposes the job lifecycle, matcher and catalog over HTTP.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"wastejobs-backend/internal/geo"
	"wastejobs-backend/internal/middleware"
	"wastejobs-backend/pkg/errs"
	"wastejobs-backend/pkg/utils"
)

var validate = validator.New()

// Status per error kind; anything unmatched is a 500.
var errorStatus = []struct {
	kind   error
	status int
}{
	{errs.ErrInvalidCoordinate, http.StatusBadRequest},
	{errs.ErrInvalidCategory, http.StatusBadRequest},
	{errs.ErrInvalidInput, http.StatusBadRequest},
	{errs.ErrUnrecognizedItem, http.StatusUnprocessableEntity},
	{errs.ErrCategoryMismatch, http.StatusUnprocessableEntity},
	{errs.ErrNotFound, http.StatusNotFound},
	{errs.ErrInvalidTransition, http.StatusConflict},
	{errs.ErrStorageConflict, http.StatusConflict},
	{errs.ErrClassificationUnavailable, http.StatusServiceUnavailable},
	{errs.ErrDirectionsUnavailable, http.StatusServiceUnavailable},
}

// writeServiceError maps an error kind to its status and machine-readable
// code. Internal errors are logged and not echoed to the client.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		utils.RespondError(w, http.StatusBadRequest, errs.ErrInvalidInput.Error(), validationMessage(verrs))
		return
	}

	for _, e := range errorStatus {
		if errors.Is(err, e.kind) {
			utils.RespondError(w, e.status, e.kind.Error(), err.Error())
			return
		}
	}

	zap.L().Error("handler: internal error",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	utils.RespondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
}

func validationMessage(verrs validator.ValidationErrors) string {
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fe.Field()+" failed "+fe.Tag())
	}
	return strings.Join(parts, "; ")
}

// decodeBody decodes and validates a JSON request body into dst.
func decodeBody(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return eris.Wrapf(errs.ErrInvalidInput, "invalid request body: %v", err)
	}
	return validate.Struct(dst)
}

// requireUser returns the authenticated caller or writes a 401.
func requireUser(w http.ResponseWriter, r *http.Request) (middleware.UserClaims, bool) {
	user, ok := middleware.GetUserFromContext(r)
	if !ok || user.UserID == "" {
		utils.RespondError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return middleware.UserClaims{}, false
	}
	return user, true
}

func queryFloat(r *http.Request, key string) (float64, bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, true, eris.Wrapf(errs.ErrInvalidInput, "%s: %q is not a number", key, raw)
	}
	return v, true, nil
}

// queryLocation reads lat and lon. ok is false when both are absent.
func queryLocation(r *http.Request) (geo.Location, bool, error) {
	lat, hasLat, err := queryFloat(r, "lat")
	if err != nil {
		return geo.Location{}, false, err
	}
	lon, hasLon, err := queryFloat(r, "lon")
	if err != nil {
		return geo.Location{}, false, err
	}
	if !hasLat && !hasLon {
		return geo.Location{}, false, nil
	}
	if hasLat != hasLon {
		return geo.Location{}, false, eris.Wrap(errs.ErrInvalidInput, "lat and lon must be given together")
	}
	loc := geo.Location{Latitude: lat, Longitude: lon}
	if err := loc.Validate(); err != nil {
		return geo.Location{}, false, err
	}
	return loc, true, nil
}

func requireLocation(r *http.Request) (geo.Location, error) {
	loc, ok, err := queryLocation(r)
	if err != nil {
		return geo.Location{}, err
	}
	if !ok {
		return geo.Location{}, eris.Wrap(errs.ErrInvalidInput, "lat and lon are required")
	}
	return loc, nil
}

func queryUint(r *http.Request, key string) (uint64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, eris.Wrapf(errs.ErrInvalidInput, "%s: %q is not a non-negative integer", key, raw)
	}
	return v, nil
}

func queryBool(r *http.Request, key string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(key))
	return v
}
