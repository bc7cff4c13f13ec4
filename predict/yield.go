package predict

import (
	"fmt"
	"math"
	"sort"
	"time"

	"property-intel/models"
	"property-intel/stats"
	"property-intel/utils"
)

// Yield bounds, as annual fractions.
const (
	MinYield      = 0.02
	MaxYield      = 0.12
	FloorYield    = 0.035
	yieldFloorCut = 0.01
)

// YieldParams are the boosting settings of the yield proxy model. Micro-market tables
// are small, so leaves are allowed to be small too.
var YieldParams = BoostParams{
	Rounds:       300,
	LearningRate: 0.1,
	MaxDepth:     3,
	MinLeaf:      3,
	MaxBins:      64,
}

// YieldImputation holds the training medians used for missing inputs.
type YieldImputation struct {
	MedianArea      float64 `json:"median_area"`
	MedianBedrooms  float64 `json:"median_bedrooms"`
	MedianBathrooms float64 `json:"median_bathrooms"`
}

// YieldProxyModel predicts annual gross yield from price per sqm, size and room counts.
type YieldProxyModel struct {
	state
	source ListingSource
	logger *utils.Logger
}

// NewYieldProxyModel creates an unloaded yield model reading training rows from source.
func NewYieldProxyModel(source ListingSource, logger *utils.Logger) *YieldProxyModel {
	return &YieldProxyModel{
		state:  state{kind: KindYield},
		source: source,
		logger: logger,
	}
}

type microMarket struct {
	country   string
	location  string
	bedrooms  float64
	sale      []float64
	rent      []float64
	areas     []*float64
	bathrooms []*float64
}

// microMarketSample is one training example: features and observed yield.
type microMarketSample struct {
	pricePerSqm float64
	area        float64
	bedrooms    float64
	bathrooms   *float64
	yield       float64
}

// Train builds (country, location, bedrooms) micro-markets that have both sale and rent
// listings, derives their observed yield, and fits the regressor on those within bounds.
func (m *YieldProxyModel) Train() (*TrainReport, error) {
	samples := microMarketSamples(m.source.LoadUnified())
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: no micro-market with both sale and rent data", ErrInsufficientData)
	}

	var baths []*float64
	areas := make([]float64, len(samples))
	beds := make([]float64, len(samples))
	for i, s := range samples {
		baths = append(baths, s.bathrooms)
		areas[i] = s.area
		beds[i] = s.bedrooms
	}
	imp := &YieldImputation{
		MedianArea:     stats.Median(areas),
		MedianBedrooms: stats.Median(beds),
	}
	imp.MedianBathrooms, _ = stats.MedianOf(baths)

	X := make([][]float64, len(samples))
	y := make([]float64, len(samples))
	for i, s := range samples {
		X[i] = []float64{s.pricePerSqm, s.area, s.bedrooms, orMedian(s.bathrooms, imp.MedianBathrooms)}
		y[i] = s.yield
	}

	fit := Fit(X, y, nil, nil, YieldParams)
	pred := fit.Ensemble.PredictAll(X)
	report := TrainReport{
		Kind:      KindYield,
		Rows:      len(samples),
		TrainRows: len(samples),
		Rounds:    len(fit.Ensemble.Trees),
		RMSE:      stats.RMSE(pred, y),
		R2:        stats.R2(pred, y),
	}
	m.logger.Info("[yield-model] Trained on %d micro-markets, in-sample RMSE %.4f", len(samples), report.RMSE)

	m.set(&Artifact{
		Kind:      KindYield,
		TrainedAt: time.Now().UTC(),
		Report:    report,
		Ensemble:  fit.Ensemble,
		Yield:     imp,
	})
	return &report, nil
}

// PredictYield returns an annual yield fraction for a property at the given price.
// Outputs at or below 1% become 3.5%; everything else is clamped to [2%, 12%].
func (m *YieldProxyModel) PredictYield(f models.PropertyFeatures, predictedPrice float64) (float64, error) {
	art, err := m.current()
	if err != nil {
		return 0, err
	}
	imp := art.Yield

	pps := 0.0
	area := imp.MedianArea
	if f.AreaSqm > 0 {
		pps = predictedPrice / f.AreaSqm
		area = f.AreaSqm
	}
	x := []float64{
		pps,
		area,
		orMedian(f.Bedrooms, imp.MedianBedrooms),
		orMedian(f.Bathrooms, imp.MedianBathrooms),
	}

	raw := art.Ensemble.Predict(x)
	m.logger.Debug("[yield-model] price/sqm %.2f → raw yield %.4f", pps, raw)
	return ClampYield(raw), nil
}

// ClampYield applies the output bounds of the yield model.
func ClampYield(raw float64) float64 {
	if math.IsNaN(raw) || raw <= yieldFloorCut {
		return FloorYield
	}
	return math.Max(MinYield, math.Min(MaxYield, raw))
}

func microMarketSamples(rows []*models.Listing) []microMarketSample {
	type key struct {
		country, location string
		bedrooms          float64
	}
	groups := make(map[key]*microMarket)
	for _, r := range rows {
		if r.Bedrooms == nil || math.IsNaN(*r.Bedrooms) {
			continue
		}
		k := key{r.Country, r.Location, *r.Bedrooms}
		g, ok := groups[k]
		if !ok {
			g = &microMarket{country: r.Country, location: r.Location, bedrooms: *r.Bedrooms}
			groups[k] = g
		}
		switch r.TransactionType {
		case models.Sale:
			g.sale = append(g.sale, r.PriceUSD)
		case models.Rent:
			g.rent = append(g.rent, r.PriceUSD)
		}
		if r.HasArea() {
			g.areas = append(g.areas, r.AreaSqm)
		}
		g.bathrooms = append(g.bathrooms, r.Bathrooms)
	}

	keys := make([]key, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].country != keys[j].country {
			return keys[i].country < keys[j].country
		}
		if keys[i].location != keys[j].location {
			return keys[i].location < keys[j].location
		}
		return keys[i].bedrooms < keys[j].bedrooms
	})

	var samples []microMarketSample
	for _, k := range keys {
		g := groups[k]
		if len(g.sale) == 0 || len(g.rent) == 0 {
			continue
		}
		sale := stats.Median(g.sale)
		if sale <= 0 {
			continue
		}
		yield := 12 * stats.Median(g.rent) / sale
		if yield < MinYield || yield > MaxYield {
			continue
		}
		area, ok := stats.MedianOf(g.areas)
		if !ok {
			continue
		}
		var bath *float64
		if v, ok := stats.MedianOf(g.bathrooms); ok {
			bath = models.Float(v)
		}
		samples = append(samples, microMarketSample{
			pricePerSqm: sale / area,
			area:        area,
			bedrooms:    g.bedrooms,
			bathrooms:   bath,
			yield:       yield,
		})
	}
	return samples
}
