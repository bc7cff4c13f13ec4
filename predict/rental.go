package predict

import (
	"fmt"
	"strings"

	"property-intel/models"
	"property-intel/utils"
)

// MinRentalRows is the smallest rent table the rental model will train on.
const MinRentalRows = 10

// RentalParams are the boosting settings of the rental model: a fixed 500 rounds,
// no early stopping.
var RentalParams = BoostParams{
	Rounds:       500,
	LearningRate: 0.05,
	MaxDepth:     5,
	MinLeaf:      10,
	MaxBins:      64,
}

// RentalModel regresses monthly rent in USD on the same features as the price model.
// It only answers for countries present in its rent training rows.
type RentalModel struct {
	state
	source ListingSource
	logger *utils.Logger
}

// NewRentalModel creates an unloaded rental model reading training rows from source.
func NewRentalModel(source ListingSource, logger *utils.Logger) *RentalModel {
	return &RentalModel{
		state:  state{kind: KindRental},
		source: source,
		logger: logger,
	}
}

// Train fits the model on the rent rows of the unified table. The 20% hold-out only
// scores the fit.
func (m *RentalModel) Train() (*TrainReport, error) {
	rows := rowsOf(m.source.LoadUnified(), models.Rent)
	if len(rows) < MinRentalRows {
		return nil, fmt.Errorf("%w: %d rent rows, need %d", ErrInsufficientData, len(rows), MinRentalRows)
	}

	art := fitEncoded(KindRental, rows, RentalParams)
	m.logger.Info("[rental-model] Trained on %d samples across %v: hold-out RMSE $%.2f, R² %.4f",
		art.Report.TrainRows, art.Price.Countries, art.Report.RMSE, art.Report.R2)
	m.set(art)
	report := art.Report
	return &report, nil
}

// PredictRent returns the estimated monthly rent in USD. Countries without rent
// training rows get ErrInsufficientData.
func (m *RentalModel) PredictRent(f models.PropertyFeatures) (float64, error) {
	art, err := m.current()
	if err != nil {
		return 0, err
	}
	if err := ValidateFeatures(f); err != nil {
		return 0, fmt.Errorf("predict: invalid features: %w", err)
	}
	if !hasLevel(art.Price.Countries, strings.TrimSpace(f.Country)) {
		return 0, fmt.Errorf("%w: no rental data for %s", ErrInsufficientData, f.Country)
	}
	return art.Ensemble.Predict(art.Price.featuresVector(f)), nil
}

func hasLevel(levels []string, v string) bool {
	for _, l := range levels {
		if strings.EqualFold(l, v) {
			return true
		}
	}
	return false
}
