package predict

import (
	"sort"
	"strings"

	"property-intel/models"
	"property-intel/stats"
)

// PriceEncoding captures everything learned from the training rows that is needed
// to turn a PropertyFeatures value into a feature vector at prediction time.
type PriceEncoding struct {
	LocationFreq    map[string]float64 `json:"location_freq"`
	Countries       []string           `json:"countries"`
	PropertyTypes   []string           `json:"property_types"`
	MedianBedrooms  float64            `json:"median_bedrooms"`
	MedianBathrooms float64            `json:"median_bathrooms"`
	MedianArea      float64            `json:"median_area"`
}

// fitPriceEncoding learns location frequencies, category levels and imputation medians.
func fitPriceEncoding(rows []*models.Listing) *PriceEncoding {
	counts := make(map[string]int)
	countries := make(map[string]struct{})
	types := make(map[string]struct{})
	var beds, baths, areas []*float64

	for _, r := range rows {
		counts[r.Location]++
		countries[r.Country] = struct{}{}
		types[r.PropertyType] = struct{}{}
		beds = append(beds, r.Bedrooms)
		baths = append(baths, r.Bathrooms)
		if r.HasArea() {
			areas = append(areas, r.AreaSqm)
		}
	}

	freq := make(map[string]float64, len(counts))
	for loc, c := range counts {
		freq[loc] = float64(c) / float64(len(rows))
	}

	enc := &PriceEncoding{
		LocationFreq:  freq,
		Countries:     sortedKeys(countries),
		PropertyTypes: sortedKeys(types),
	}
	enc.MedianBedrooms, _ = stats.MedianOf(beds)
	enc.MedianBathrooms, _ = stats.MedianOf(baths)
	enc.MedianArea, _ = stats.MedianOf(areas)
	return enc
}

// Vector encodes one property. Unseen locations get frequency 0, unseen category
// levels encode as all zeros and missing numerics take the training medians.
func (e *PriceEncoding) Vector(country, location string, bedrooms, bathrooms *float64, area float64, propertyType string) []float64 {
	x := make([]float64, 0, 4+len(e.Countries)+len(e.PropertyTypes))
	x = append(x,
		e.LocationFreq[location],
		orMedian(bedrooms, e.MedianBedrooms),
		orMedian(bathrooms, e.MedianBathrooms),
	)
	if area > 0 {
		x = append(x, area)
	} else {
		x = append(x, e.MedianArea)
	}
	x = appendOneHot(x, e.Countries, country)
	x = appendOneHot(x, e.PropertyTypes, propertyType)
	return x
}

func (e *PriceEncoding) listingVector(l *models.Listing) []float64 {
	area := 0.0
	if l.HasArea() {
		area = *l.AreaSqm
	}
	return e.Vector(l.Country, l.Location, l.Bedrooms, l.Bathrooms, area, l.PropertyType)
}

func (e *PriceEncoding) featuresVector(f models.PropertyFeatures) []float64 {
	return e.Vector(strings.TrimSpace(f.Country), strings.TrimSpace(f.Location), f.Bedrooms, f.Bathrooms, f.AreaSqm, strings.TrimSpace(f.PropertyType))
}

func appendOneHot(x []float64, levels []string, v string) []float64 {
	for _, l := range levels {
		if strings.EqualFold(l, v) {
			x = append(x, 1)
		} else {
			x = append(x, 0)
		}
	}
	return x
}

func orMedian(v *float64, median float64) float64 {
	if v == nil {
		return median
	}
	return *v
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
