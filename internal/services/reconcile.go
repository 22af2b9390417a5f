package services

import (
	"github.com/rotisserie/eris"

	"wastejobs-backend/internal/models"
	"wastejobs-backend/pkg/errs"
)

// Reconcile merges the category the requester picked (nil when they left it
// to the classifier) with the classifier's prediction. It returns the
// authoritative category and the job title.
func Reconcile(userCategory *models.Category, prediction models.CategoryPrediction) (models.Category, string, error) {
	if prediction.Unrecognized() {
		return "", "", eris.Wrap(errs.ErrUnrecognizedItem, "classifier could not categorise the item")
	}

	predicted := models.Category(prediction.Category)
	if !predicted.Valid() {
		return "", "", eris.Wrapf(errs.ErrUnrecognizedItem, "classifier answered unknown category %q", prediction.Category)
	}

	if userCategory != nil && *userCategory != predicted {
		return "", "", eris.Wrapf(errs.ErrCategoryMismatch, "requested %s, classifier saw %s", *userCategory, predicted)
	}
	return predicted, prediction.Title, nil
}
