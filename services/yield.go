package services

import (
	"errors"
	"fmt"
	"sort"

	"property-intel/models"
	"property-intel/predict"
	"property-intel/stats"
	"property-intel/utils"
)

// FallbackYieldPct is used when the proxy model cannot impute a sale-only location.
const FallbackYieldPct = 5.0

const (
	minYieldPct = 1.0
	maxYieldPct = 25.0
)

// YieldAnalyzer ranks locations by annual gross rental yield.
type YieldAnalyzer struct {
	source ListingSource
	proxy  YieldPredictor
	logger *utils.Logger
}

// NewYieldAnalyzer creates an analyzer imputing sale-only locations with proxy.
func NewYieldAnalyzer(source ListingSource, proxy YieldPredictor, logger *utils.Logger) *YieldAnalyzer {
	return &YieldAnalyzer{source: source, proxy: proxy, logger: logger}
}

// AnalyzeMarket computes yields for every (country, location) in the filtered table.
// Locations with both sale and rent medians get the observed yield; sale-only locations
// are imputed with the proxy model, falling back to 5% when the model is unavailable or
// the location has no area data. Rows outside (1%, 25%) and unknown locations are
// dropped. Results are sorted by yield, highest first.
func (a *YieldAnalyzer) AnalyzeMarket(countryFilter string) ([]models.YieldResult, error) {
	rows := filterCountry(a.source.LoadUnified(), countryFilter)
	if len(rows) == 0 {
		return []models.YieldResult{}, nil
	}

	groups, keys := locationGroups(rows)
	results := make([]models.YieldResult, 0, len(keys))

	for _, k := range keys {
		group := groups[k]
		agg := aggregate(k, group)
		if agg.SupplyCount == 0 {
			continue
		}
		sale := agg.MedianPrice

		res := models.YieldResult{Country: k.country, Location: k.location, SalePriceUSD: sale}
		if agg.MedianRent != nil {
			if sale <= 0 {
				continue
			}
			res.RentPriceUSD = *agg.MedianRent
			res.AnnualYieldPct = res.RentPriceUSD * 12 / sale * 100
			res.Method = models.YieldObserved
		} else {
			pct, method, err := a.impute(k, group, sale)
			if err != nil {
				return nil, err
			}
			res.AnnualYieldPct = pct
			res.Method = method
			res.RentPriceUSD = sale * pct / 100 / 12
		}

		if res.AnnualYieldPct <= minYieldPct || res.AnnualYieldPct >= maxYieldPct {
			continue
		}
		if models.IsUnknownLocation(res.Location) {
			continue
		}
		results = append(results, res)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].AnnualYieldPct > results[j].AnnualYieldPct
	})
	a.logger.Info("[yield] %d locations ranked (filter %q)", len(results), countryFilter)
	return results, nil
}

func (a *YieldAnalyzer) impute(k locationKey, group []*models.Listing, sale float64) (float64, models.YieldMethod, error) {
	f, err := locationFeatures(k, group)
	if err == nil {
		if a.proxy == nil {
			err = predict.ErrModelUnavailable
		} else {
			var y float64
			if y, err = a.proxy.PredictYield(f, sale); err == nil {
				return y * 100, models.YieldProxy, nil
			}
		}
	}
	if errors.Is(err, predict.ErrModelUnavailable) || errors.Is(err, predict.ErrInsufficientData) {
		a.logger.Debug("[yield] %s/%s: fallback yield: %v", k.country, k.location, err)
		return FallbackYieldPct, models.YieldFallback, nil
	}
	return 0, "", fmt.Errorf("services: impute yield for %s/%s: %w", k.country, k.location, err)
}

// locationFeatures builds proxy-model features from the medians of all the location's
// rows, regardless of transaction type.
func locationFeatures(k locationKey, group []*models.Listing) (models.PropertyFeatures, error) {
	var areas, beds, baths []*float64
	for _, r := range group {
		areas = append(areas, r.AreaSqm)
		beds = append(beds, r.Bedrooms)
		baths = append(baths, r.Bathrooms)
	}
	area, ok := stats.MedianOf(areas)
	if !ok {
		return models.PropertyFeatures{}, fmt.Errorf("%w: no area data for %s/%s", predict.ErrInsufficientData, k.country, k.location)
	}
	f := models.PropertyFeatures{Country: k.country, Location: k.location, AreaSqm: area}
	if v, ok := stats.MedianOf(beds); ok {
		f.Bedrooms = models.Float(v)
	}
	if v, ok := stats.MedianOf(baths); ok {
		f.Bathrooms = models.Float(v)
	}
	return f, nil
}
