package services

import (
	"sort"

	"property-intel/models"
	"property-intel/stats"
	"property-intel/utils"
)

const (
	minHotspotListings = 5
	benchmarkTrimLow   = 0.01
	benchmarkTrimHigh  = 0.99
)

// MarketScanner surfaces cheap-entry locations and per-country price benchmarks.
type MarketScanner struct {
	source ListingSource
	logger *utils.Logger
}

// NewMarketScanner creates a MarketScanner.
func NewMarketScanner(source ListingSource, logger *utils.Logger) *MarketScanner {
	return &MarketScanner{source: source, logger: logger}
}

// Hotspots lists locations with more than five priced sale listings after trimming
// price per sqm to the 5th-95th percentile, cheapest median price per sqm first.
func (s *MarketScanner) Hotspots(countryFilter string) []models.Hotspot {
	sales := trimPricePerSqm(pricedSales(filterCountry(s.source.LoadUnified(), countryFilter)), trimLow, trimHigh)
	groups, keys := locationGroups(sales)

	out := make([]models.Hotspot, 0, len(keys))
	for _, k := range keys {
		agg := aggregate(k, groups[k])
		if agg.SupplyCount <= minHotspotListings {
			continue
		}
		out = append(out, models.Hotspot{
			Country:           agg.Country,
			Location:          agg.Location,
			MedianPricePerSqm: agg.MedianPricePerSqm,
			ListingsCount:     agg.SupplyCount,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].MedianPricePerSqm < out[j].MedianPricePerSqm
	})
	s.logger.Info("[hotspots] %d value-entry locations", len(out))
	return out
}

// CountryBenchmarks summarises price per sqm per country over priced sales trimmed to
// the 1st-99th percentile, most expensive median first.
func (s *MarketScanner) CountryBenchmarks() []models.CountryBenchmark {
	sales := trimPricePerSqm(pricedSales(s.source.LoadUnified()), benchmarkTrimLow, benchmarkTrimHigh)

	byCountry := make(map[string][]float64)
	for _, r := range sales {
		v, _ := r.PricePerSqm()
		byCountry[r.Country] = append(byCountry[r.Country], v)
	}

	out := make([]models.CountryBenchmark, 0, len(byCountry))
	for _, country := range countriesOf(sales) {
		pps := byCountry[country]
		out = append(out, models.CountryBenchmark{
			Country:           country,
			Listings:          len(pps),
			MedianPricePerSqm: stats.Median(pps),
			MeanPricePerSqm:   stats.Mean(pps),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].MedianPricePerSqm > out[j].MedianPricePerSqm
	})
	return out
}
