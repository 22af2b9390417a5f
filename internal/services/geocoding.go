package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"

	"wastejobs-backend/internal/geo"
	"wastejobs-backend/pkg/errs"
)

const defaultGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"

// GeocodingService resolves addresses using the Google Geocoding API
type GeocodingService struct {
	apiKey  string
	baseURL string
	region  string
	client  *http.Client
}

// Address represents a full address
type Address struct {
	FormattedAddress string       `json:"formatted_address"`
	Location         geo.Location `json:"location"`
}

type googleGeocodeResponse struct {
	Results []struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
}

// NewGeocodingService creates the service. baseURL may be empty for the
// public endpoint. Results are biased towards region (a ccTLD such as "pl").
func NewGeocodingService(apiKey, baseURL, region string, timeout time.Duration) *GeocodingService {
	if baseURL == "" {
		baseURL = defaultGeocodeURL
	}
	return &GeocodingService{
		apiKey:  apiKey,
		baseURL: baseURL,
		region:  region,
		client:  &http.Client{Timeout: timeout},
	}
}

// Geocode converts an address string to coordinates
func (s *GeocodingService) Geocode(ctx context.Context, address string) (*Address, error) {
	if address == "" {
		return nil, eris.Wrap(errs.ErrInvalidInput, "address is required")
	}
	params := url.Values{}
	params.Add("address", address)
	if s.region != "" {
		params.Add("region", s.region)
	}
	return s.lookup(ctx, params)
}

// ReverseGeocode converts coordinates to an address
func (s *GeocodingService) ReverseGeocode(ctx context.Context, loc geo.Location) (*Address, error) {
	if err := loc.Validate(); err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Add("latlng", fmt.Sprintf("%f,%f", loc.Latitude, loc.Longitude))

	addr, err := s.lookup(ctx, params)
	if err != nil {
		return nil, err
	}
	addr.Location = loc
	return addr, nil
}

func (s *GeocodingService) lookup(ctx context.Context, params url.Values) (*Address, error) {
	if s.apiKey == "" {
		return nil, eris.New("geocoding: api key not configured")
	}
	params.Add("key", s.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocoding: build request")
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocoding: request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("geocoding: API returned status code %d", resp.StatusCode)
	}

	var result googleGeocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, eris.Wrap(err, "geocoding: decode response")
	}

	switch result.Status {
	case "OK":
	case "ZERO_RESULTS":
		return nil, eris.Wrap(errs.ErrNotFound, "geocoding: no results")
	default:
		return nil, eris.Errorf("geocoding: API returned status %s %s", result.Status, result.ErrorMessage)
	}
	if len(result.Results) == 0 {
		return nil, eris.Wrap(errs.ErrNotFound, "geocoding: no results")
	}

	first := result.Results[0]
	return &Address{
		FormattedAddress: first.FormattedAddress,
		Location: geo.Location{
			Latitude:  first.Geometry.Location.Lat,
			Longitude: first.Geometry.Location.Lng,
		},
	}, nil
}
