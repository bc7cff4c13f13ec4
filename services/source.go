package services

import (
	"sort"

	"property-intel/currency"
	"property-intel/loader"
	"property-intel/models"
	"property-intel/stats"
	"property-intel/utils"
)

// ListingSource provides the canonical listing table.
type ListingSource interface {
	LoadUnified() []*models.Listing
}

// MarketSource is a ListingSource that also knows per-country capabilities and rates.
// *loader.Loader satisfies it.
type MarketSource interface {
	ListingSource
	Capability(country string) loader.Capability
	CurrencyOf(country string) (string, bool)
	Rates() *currency.Rates
}

// YieldPredictor imputes an annual yield fraction for a property at a price.
type YieldPredictor interface {
	PredictYield(f models.PropertyFeatures, predictedPrice float64) (float64, error)
}

// PricePredictor estimates a sale price in USD.
type PricePredictor interface {
	Predict(f models.PropertyFeatures) (float64, error)
}

// RentPredictor estimates monthly rent in USD from rent history.
type RentPredictor interface {
	PredictRent(f models.PropertyFeatures) (float64, error)
}

type locationKey struct {
	country  string
	location string
}

// locationGroups buckets rows by (country, location) and returns the keys sorted.
func locationGroups(rows []*models.Listing) (map[locationKey][]*models.Listing, []locationKey) {
	groups := make(map[locationKey][]*models.Listing)
	for _, r := range rows {
		k := locationKey{r.Country, r.Location}
		groups[k] = append(groups[k], r)
	}
	keys := make([]locationKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].country != keys[j].country {
			return keys[i].country < keys[j].country
		}
		return keys[i].location < keys[j].location
	})
	return groups, keys
}

// aggregate summarises one location group: sale count and medians of sale price,
// price per sqm and rent. Medians over empty subsets stay zero, MedianRent stays nil.
func aggregate(k locationKey, group []*models.Listing) models.LocationAggregate {
	agg := models.LocationAggregate{Country: k.country, Location: k.location}
	var sales, pps, rents []float64
	for _, r := range group {
		switch r.TransactionType {
		case models.Sale:
			sales = append(sales, r.PriceUSD)
			if v, ok := r.PricePerSqm(); ok {
				pps = append(pps, v)
			}
		case models.Rent:
			rents = append(rents, r.PriceUSD)
		}
	}
	agg.SupplyCount = len(sales)
	if len(sales) > 0 {
		agg.MedianPrice = stats.Median(sales)
	}
	if len(pps) > 0 {
		agg.MedianPricePerSqm = stats.Median(pps)
	}
	if len(rents) > 0 {
		agg.MedianRent = models.Float(stats.Median(rents))
	}
	return agg
}

func filterCountry(rows []*models.Listing, country string) []*models.Listing {
	out := make([]*models.Listing, 0, len(rows))
	for _, r := range rows {
		if models.SameCountry(r.Country, country) {
			out = append(out, r)
		}
	}
	return out
}

// pricedSales keeps sale rows with a positive price and a positive area.
func pricedSales(rows []*models.Listing) []*models.Listing {
	out := make([]*models.Listing, 0, len(rows))
	for _, r := range rows {
		if r.TransactionType != models.Sale {
			continue
		}
		if _, ok := r.PricePerSqm(); ok {
			out = append(out, r)
		}
	}
	return out
}

// trimPricePerSqm keeps rows whose price per sqm lies within the [lo, hi] quantiles
// of the set, bounds inclusive.
func trimPricePerSqm(rows []*models.Listing, lo, hi float64) []*models.Listing {
	if len(rows) == 0 {
		return nil
	}
	pps := make([]float64, len(rows))
	for i, r := range rows {
		pps[i], _ = r.PricePerSqm()
	}
	bounds := stats.Quantiles(pps, lo, hi)
	out := make([]*models.Listing, 0, len(rows))
	for i, r := range rows {
		if pps[i] >= bounds[0] && pps[i] <= bounds[1] {
			out = append(out, r)
		}
	}
	return out
}

func countriesOf(rows []*models.Listing) []string {
	set := utils.NewKeySet()
	for _, r := range rows {
		set.Add(r.Country)
	}
	return set.Sorted()
}
