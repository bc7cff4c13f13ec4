package services

import (
	"math"
	"sort"

	"property-intel/models"
	"property-intel/stats"
	"property-intel/utils"
)

const (
	minMEIListings = 5
	maxSVI         = 3.0
	meiScale       = 1000.0
	trimLow        = 0.05
	trimHigh       = 0.95
)

// MEICalculator computes the Market Efficiency Index: demand-signal proxies relative
// to the median price per sqm of a location.
type MEICalculator struct {
	source ListingSource
	logger *utils.Logger
}

// NewMEICalculator creates an MEICalculator.
func NewMEICalculator(source ListingSource, logger *utils.Logger) *MEICalculator {
	return &MEICalculator{source: source, logger: logger}
}

// CalculateMEI trims the filtered priced sales to the 5th-95th percentile of price per
// sqm, then scores each location with at least five listings:
//
//	SVI = min(supply / country average listings per location, 3)
//	ID  = tanh(supply / (country median supply + 1))
//	MEI = (SVI + ID) / (median price per sqm + 1) × 1000
//
// Labels are relative to the mean and sample standard deviation of this call's scores.
func (c *MEICalculator) CalculateMEI(countryFilter string) []models.MEIResult {
	sales := pricedSales(filterCountry(c.source.LoadUnified(), countryFilter))
	sales = trimPricePerSqm(sales, trimLow, trimHigh)
	if len(sales) == 0 {
		return []models.MEIResult{}
	}

	// Country baselines use every trimmed row, before the supply cut.
	totals := make(map[string]int)
	locations := make(map[string]*utils.KeySet)
	for _, r := range sales {
		totals[r.Country]++
		if locations[r.Country] == nil {
			locations[r.Country] = utils.NewKeySet()
		}
		locations[r.Country].Add(r.Location)
	}
	avgPerLocation := make(map[string]float64, len(totals))
	for country, total := range totals {
		avgPerLocation[country] = float64(total) / math.Max(float64(locations[country].Size()), 1)
	}

	groups, keys := locationGroups(sales)
	var kept []models.LocationAggregate
	supplies := make(map[string][]float64)
	for _, k := range keys {
		if agg := aggregate(k, groups[k]); agg.SupplyCount >= minMEIListings {
			kept = append(kept, agg)
			supplies[k.country] = append(supplies[k.country], float64(agg.SupplyCount))
		}
	}
	if len(kept) == 0 {
		return []models.MEIResult{}
	}

	medianSupply := make(map[string]float64, len(supplies))
	for country, s := range supplies {
		medianSupply[country] = stats.Median(s)
	}

	results := make([]models.MEIResult, 0, len(kept))
	scores := make([]float64, 0, len(kept))
	for _, agg := range kept {
		supply := float64(agg.SupplyCount)

		svi := math.Min(supply/avgPerLocation[agg.Country], maxSVI)
		density := math.Tanh(supply / (medianSupply[agg.Country] + 1))
		score := (svi + density) / (agg.MedianPricePerSqm + 1) * meiScale

		results = append(results, models.MEIResult{
			Country:           agg.Country,
			Location:          agg.Location,
			MEIScore:          score,
			SearchVolumeIndex: svi,
			InterestDensity:   density,
			MedianPricePerSqm: agg.MedianPricePerSqm,
			SupplyCount:       agg.SupplyCount,
		})
		scores = append(scores, score)
	}

	mean := stats.Mean(scores)
	std := stats.StdDev(scores)
	for i := range results {
		results[i].Interpretation = interpretMEI(results[i].MEIScore, mean, std)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].MEIScore > results[j].MEIScore
	})
	c.logger.Info("[mei] %d locations scored (mean %.3f, std %.3f)", len(results), mean, std)
	return results
}

func interpretMEI(score, mean, std float64) string {
	switch {
	case score > mean+std:
		return models.MEIHighDivergence
	case score > mean:
		return models.MEIModerate
	default:
		return models.MEIEfficient
	}
}
