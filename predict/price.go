package predict

import (
	"fmt"
	"time"

	"property-intel/models"
	"property-intel/stats"
	"property-intel/utils"
)

// MinPriceRows is the smallest sale table the price model will train on.
const MinPriceRows = 10

// PriceParams are the boosting settings of the price model.
var PriceParams = BoostParams{
	Rounds:        1000,
	LearningRate:  0.05,
	MaxDepth:      5,
	MinLeaf:       10,
	MaxBins:       64,
	EarlyStopping: 50,
}

const (
	holdoutFraction = 0.2
	splitSeed       = 42
)

// PriceModel regresses sale price in USD on location, size and category features.
type PriceModel struct {
	state
	source ListingSource
	logger *utils.Logger
}

// NewPriceModel creates an unloaded price model reading training rows from source.
func NewPriceModel(source ListingSource, logger *utils.Logger) *PriceModel {
	return &PriceModel{
		state:  state{kind: KindPrice},
		source: source,
		logger: logger,
	}
}

// Train fits the model on the sale rows of the unified table with an 80/20 hold-out
// split and early stopping on the hold-out RMSE.
func (m *PriceModel) Train() (*TrainReport, error) {
	rows := saleRows(m.source.LoadUnified())
	if len(rows) < MinPriceRows {
		return nil, fmt.Errorf("%w: %d sale rows, need %d", ErrInsufficientData, len(rows), MinPriceRows)
	}

	art := fitEncoded(KindPrice, rows, PriceParams)
	m.logger.Info("[price-model] Trained on %d samples (%d held out): RMSE $%.2f, R² %.4f after %d rounds",
		art.Report.TrainRows, art.Report.TestRows, art.Report.RMSE, art.Report.R2, art.Report.Rounds)
	m.set(art)
	report := art.Report
	return &report, nil
}

// fitEncoded encodes rows, fits price_usd on an 80/20 hold-out split and scores the
// hold-out set. Validation rows drive early stopping when params enable it.
func fitEncoded(kind string, rows []*models.Listing, params BoostParams) *Artifact {
	enc := fitPriceEncoding(rows)
	X := make([][]float64, len(rows))
	y := make([]float64, len(rows))
	for i, r := range rows {
		X[i] = enc.listingVector(r)
		y[i] = r.PriceUSD
	}

	trainIdx, testIdx := holdoutSplit(len(rows), holdoutFraction, splitSeed)
	trainX, trainY := pick(X, y, trainIdx)
	testX, testY := pick(X, y, testIdx)
	fit := Fit(trainX, trainY, testX, testY, params)

	pred := fit.Ensemble.PredictAll(testX)
	return &Artifact{
		Kind:      kind,
		TrainedAt: time.Now().UTC(),
		Report: TrainReport{
			Kind:      kind,
			Rows:      len(rows),
			TrainRows: len(trainX),
			TestRows:  len(testX),
			Rounds:    len(fit.Ensemble.Trees),
			RMSE:      stats.RMSE(pred, testY),
			R2:        stats.R2(pred, testY),
		},
		Ensemble: fit.Ensemble,
		Price:    enc,
	}
}

// Predict returns the estimated sale price in USD.
func (m *PriceModel) Predict(f models.PropertyFeatures) (float64, error) {
	art, err := m.current()
	if err != nil {
		return 0, err
	}
	if err := ValidateFeatures(f); err != nil {
		return 0, fmt.Errorf("predict: invalid features: %w", err)
	}
	return art.Ensemble.Predict(art.Price.featuresVector(f)), nil
}

func saleRows(rows []*models.Listing) []*models.Listing {
	return rowsOf(rows, models.Sale)
}

func rowsOf(rows []*models.Listing, tx models.TransactionType) []*models.Listing {
	out := make([]*models.Listing, 0, len(rows))
	for _, r := range rows {
		if r.TransactionType == tx {
			out = append(out, r)
		}
	}
	return out
}
