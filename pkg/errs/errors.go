package errs

import "errors"

// Sentinel error kinds. Callers match them with errors.Is; lower layers
// attach context with eris.Wrap.
var (
	ErrInvalidCoordinate         = errors.New("invalid_coordinate")
	ErrInvalidCategory           = errors.New("invalid_category")
	ErrInvalidInput              = errors.New("invalid_input")
	ErrUnrecognizedItem          = errors.New("unrecognized_item")
	ErrCategoryMismatch          = errors.New("category_mismatch")
	ErrNotFound                  = errors.New("not_found")
	ErrInvalidTransition         = errors.New("invalid_transition")
	ErrStorageConflict           = errors.New("storage_conflict")
	ErrClassificationUnavailable = errors.New("classification_unavailable")
	ErrDirectionsUnavailable     = errors.New("directions_unavailable")
)

// Code returns the machine-readable code of the first sentinel err wraps,
// or "internal_error".
func Code(err error) string {
	for _, kind := range []error{
		ErrInvalidCoordinate,
		ErrInvalidCategory,
		ErrInvalidInput,
		ErrUnrecognizedItem,
		ErrCategoryMismatch,
		ErrNotFound,
		ErrInvalidTransition,
		ErrStorageConflict,
		ErrClassificationUnavailable,
		ErrDirectionsUnavailable,
	} {
		if errors.Is(err, kind) {
			return kind.Error()
		}
	}
	return "internal_error"
}
