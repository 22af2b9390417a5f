package models

import (
	"strings"

	"github.com/rotisserie/eris"

	"wastejobs-backend/pkg/errs"
)

// Category is the closed set of waste categories a job or disposal point
// can carry.
type Category string

const (
	CategoryPSZOK              Category = "pszok"
	CategorySmallElectronics   Category = "small_electronics"
	CategoryElectronics        Category = "electronics"
	CategoryExpiredMedications Category = "expired_medications"
)

// CategoryUnrecognized is what the classifier answers when the item fits no
// category. It is never a valid Category.
const CategoryUnrecognized = "ERROR"

// Categories lists every valid category in a stable order.
func Categories() []Category {
	return []Category{
		CategoryPSZOK,
		CategorySmallElectronics,
		CategoryElectronics,
		CategoryExpiredMedications,
	}
}

func (c Category) Valid() bool {
	switch c {
	case CategoryPSZOK, CategorySmallElectronics, CategoryElectronics, CategoryExpiredMedications:
		return true
	}
	return false
}

// ParseCategory accepts a category name in any case.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", eris.Wrapf(errs.ErrInvalidCategory, "unknown category %q", s)
	}
	return c, nil
}

// CategoryPrediction is the classifier's answer. Category holds either a
// valid Category name or CategoryUnrecognized.
type CategoryPrediction struct {
	Category string `json:"category"`
	Title    string `json:"title"`
}

func (p CategoryPrediction) Unrecognized() bool {
	return p.Category == CategoryUnrecognized
}
