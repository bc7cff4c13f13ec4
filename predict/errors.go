// Package predict trains and serves the price, rental and yield regressors.
package predict

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"property-intel/models"
)

var (
	// ErrModelUnavailable means no trained or loaded model backs the call.
	ErrModelUnavailable = errors.New("predict: model unavailable")
	// ErrInsufficientData means there were not enough usable rows to train or to build features.
	ErrInsufficientData = errors.New("predict: insufficient data")
)

// ListingSource provides the canonical listing table.
type ListingSource interface {
	LoadUnified() []*models.Listing
}

// ArtifactStore returns the most recent serialised artifact of a kind.
type ArtifactStore interface {
	LatestArtifact(kind string) ([]byte, error)
}

var validate = validator.New()

// ValidateFeatures checks the required fields of a pricing request.
func ValidateFeatures(f models.PropertyFeatures) error {
	return validate.Struct(f)
}
