package services

import (
	"math"
	"sort"

	"property-intel/models"
	"property-intel/utils"
)

const (
	minGapListings    = 5
	gapValueScale     = 10000.0
	gapSupplyScale    = 50.0
	gapSupplyBaseline = 0.5
)

// GapScorer ranks locations where price per sqm is low relative to market depth.
type GapScorer struct {
	source ListingSource
	logger *utils.Logger
}

// NewGapScorer creates a GapScorer.
func NewGapScorer(source ListingSource, logger *utils.Logger) *GapScorer {
	return &GapScorer{source: source, logger: logger}
}

// AnalyzeGap scores every known location with at least five priced sale listings:
// gap = 10000 / (median price per sqm + 1) × (tanh(supply / 50) + 0.5).
// An empty filter covers every country.
func (g *GapScorer) AnalyzeGap(countryFilter string) []models.GapResult {
	sales := pricedSales(filterCountry(g.source.LoadUnified(), countryFilter))
	groups, keys := locationGroups(sales)

	results := make([]models.GapResult, 0, len(keys))
	for _, k := range keys {
		agg := aggregate(k, groups[k])
		if agg.SupplyCount < minGapListings || models.IsUnknownLocation(k.location) {
			continue
		}

		valuePotential := gapValueScale / (agg.MedianPricePerSqm + 1)
		supplyFactor := math.Tanh(float64(agg.SupplyCount)/gapSupplyScale) + gapSupplyBaseline

		results = append(results, models.GapResult{
			Country:     agg.Country,
			Location:    agg.Location,
			GapScore:    valuePotential * supplyFactor,
			SupplyCount: agg.SupplyCount,
			AvgPriceUSD: agg.MedianPrice,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].GapScore > results[j].GapScore
	})
	g.logger.Info("[gap] %d locations scored", len(results))
	return results
}
