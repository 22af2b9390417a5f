package ingest

import (
	"github.com/rotisserie/eris"

	"wastejobs-backend/internal/models"
	"wastejobs-backend/pkg/errs"
)

// Layer is one map-server dataset and the waste category its points accept.
type Layer struct {
	Name     string
	Category models.Category
}

// Layers lists every source dataset in fetch order. The EKOPUNKY spelling is
// the server's own.
var Layers = []Layer{
	{Name: "EKOPUNKTY_PSZOK_N", Category: models.CategoryPSZOK},
	{Name: "EKOPUNKTY_MPSZOK_N", Category: models.CategoryPSZOK},
	{Name: "EKOPUNKTY_OPL_N", Category: models.CategoryExpiredMedications},
	{Name: "EKOPUNKY_MPE_N", Category: models.CategoryElectronics},
	{Name: "EKOPUNKTY_MPZE_N", Category: models.CategoryElectronics},
	{Name: "EKOPUNKTY_PME_N", Category: models.CategorySmallElectronics},
}

// SelectLayers returns the named layers in table order, or all of them when
// names is empty.
func SelectLayers(names []string) ([]Layer, error) {
	if len(names) == 0 {
		return Layers, nil
	}
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}
	var out []Layer
	for _, l := range Layers {
		if wanted[l.Name] {
			out = append(out, l)
			delete(wanted, l.Name)
		}
	}
	for n := range wanted {
		return nil, eris.Wrapf(errs.ErrInvalidInput, "unknown layer %q", n)
	}
	return out, nil
}
