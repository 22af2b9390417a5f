package ingest

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"wastejobs-backend/internal/geo"
	"wastejobs-backend/internal/models"
	"wastejobs-backend/internal/openinghours"
	"wastejobs-backend/pkg/errs"
)

// FeatureCollection is the map server's response for one layer. Coordinates
// are EPSG:2178 eastings and northings.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

type Feature struct {
	ID       FeatureID `json:"_id"`
	Geometry struct {
		Type        string    `json:"type"`
		Coordinates []float64 `json:"coordinates"`
	} `json:"geometry"`
	Properties struct {
		Label string `json:"_label_"`
	} `json:"properties"`
}

// FeatureID accepts both string and numeric ids.
type FeatureID string

func (id *FeatureID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = FeatureID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return eris.Wrap(err, "feature id")
	}
	*id = FeatureID(n.String())
	return nil
}

// ToPoint projects the feature to WGS84 and parses its opening hours out of
// the label. A label without hours yields a nil schedule.
func (f Feature) ToPoint(category models.Category) (models.DeliveryPoint, error) {
	id := strings.TrimSpace(string(f.ID))
	if id == "" {
		return models.DeliveryPoint{}, eris.Wrap(errs.ErrInvalidInput, "feature without id")
	}
	if len(f.Geometry.Coordinates) < 2 {
		return models.DeliveryPoint{}, eris.Wrapf(errs.ErrInvalidCoordinate, "feature %s has no coordinates", id)
	}
	loc := geo.FromPUWG2000Zone7(f.Geometry.Coordinates[0], f.Geometry.Coordinates[1])
	if err := loc.Validate(); err != nil {
		return models.DeliveryPoint{}, eris.Wrapf(err, "feature %s", id)
	}
	return models.DeliveryPoint{
		ID:           id,
		Latitude:     loc.Latitude,
		Longitude:    loc.Longitude,
		Description:  f.Properties.Label,
		OpeningHours: openinghours.ParseLabel(f.Properties.Label),
		Category:     category,
	}, nil
}
