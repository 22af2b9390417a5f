package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"wastejobs-backend/internal/geo"
	"wastejobs-backend/internal/services"
	"wastejobs-backend/pkg/errs"
	"wastejobs-backend/pkg/utils"
)

// Geocoder resolves addresses for the location picker.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*services.Address, error)
	ReverseGeocode(ctx context.Context, loc geo.Location) (*services.Address, error)
}

// GeocodeRequest represents a request to geocode an address
type GeocodeRequest struct {
	Address string `json:"address" validate:"required,max=500"`
}

// ReverseGeocodeRequest represents a request to reverse geocode coordinates
type ReverseGeocodeRequest struct {
	Lat *float64 `json:"lat" validate:"required"`
	Lon *float64 `json:"lon" validate:"required"`
}

// Geocode handles POST /api/geocoding/forward
func Geocode(geocoder Geocoder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req GeocodeRequest
		if err := decodeBody(r, &req); err != nil {
			writeServiceError(w, r, err)
			return
		}

		address, err := geocoder.Geocode(r.Context(), req.Address)
		if err != nil {
			writeGeocodingError(w, r, err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, address)
	}
}

// ReverseGeocode handles POST /api/geocoding/reverse
func ReverseGeocode(geocoder Geocoder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ReverseGeocodeRequest
		if err := decodeBody(r, &req); err != nil {
			writeServiceError(w, r, err)
			return
		}

		address, err := geocoder.ReverseGeocode(r.Context(), geo.Location{Latitude: *req.Lat, Longitude: *req.Lon})
		if err != nil {
			writeGeocodingError(w, r, err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, address)
	}
}

// Upstream failures are a bad gateway rather than our own 500.
func writeGeocodingError(w http.ResponseWriter, r *http.Request, err error) {
	if errs.Code(err) != "internal_error" {
		writeServiceError(w, r, err)
		return
	}
	zap.L().Warn("geocoding failed", zap.Error(err))
	utils.RespondError(w, http.StatusBadGateway, "geocoding_unavailable", "geocoding provider failed")
}
