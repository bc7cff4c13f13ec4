package models

import (
	"strings"
)

// TransactionType tags a listing as a sale or a monthly rental.
type TransactionType string

const (
	Sale TransactionType = "sale"
	Rent TransactionType = "rent"
)

// UnknownLocation is the sentinel for listings whose location could not be derived.
const UnknownLocation = "Unknown"

// RawListing holds one source row after column mapping but before any numeric parsing.
// Adapters fill it from header-keyed records; the cleaner turns it into a Listing.
//
// When RawArea is empty and RawUnitPrice is set, area is derived as price / unit price.
type RawListing struct {
	Source          string
	Location        string
	RawPrice        string
	PriceMultiplier float64
	RawArea         string
	RawUnitPrice    string
	AreaDivisor     float64
	RawBedrooms     string
	RawBathrooms    string
	PropertyType    string
}

// Listing is the canonical, unified per-listing record. It is never mutated after creation.
type Listing struct {
	Country         string          `json:"country"`
	Location        string          `json:"location"`
	PriceLocal      float64         `json:"price_local"`
	PriceUSD        float64         `json:"price_usd"`
	AreaSqm         *float64        `json:"area_sqm"`
	Bedrooms        *float64        `json:"bedrooms"`
	Bathrooms       *float64        `json:"bathrooms"`
	PropertyType    string          `json:"property_type"`
	TransactionType TransactionType `json:"transaction_type"`
	Currency        string          `json:"currency"`
}

// Float returns a pointer to v, for populating nullable fields.
func Float(v float64) *float64 {
	return &v
}

// HasArea reports whether the listing carries a positive floor area.
func (l *Listing) HasArea() bool {
	return l.AreaSqm != nil && *l.AreaSqm > 0
}

// PricePerSqm returns price_usd / area_sqm, and false when either side is unusable.
func (l *Listing) PricePerSqm() (float64, bool) {
	if !l.HasArea() || l.PriceUSD <= 0 {
		return 0, false
	}
	return l.PriceUSD / *l.AreaSqm, true
}

// IsUnknownLocation reports whether a location is empty or the "unknown" sentinel,
// ignoring case and surrounding whitespace.
func IsUnknownLocation(location string) bool {
	clean := strings.ToLower(strings.TrimSpace(location))
	return clean == "" || clean == "unknown"
}

// SameCountry compares country names case-insensitively. An empty filter matches everything.
func SameCountry(country, filter string) bool {
	if strings.TrimSpace(filter) == "" {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(country), strings.TrimSpace(filter))
}

// PropertyFeatures is the attribute set used to price a property.
type PropertyFeatures struct {
	Country      string   `json:"country" validate:"required"`
	Location     string   `json:"location" validate:"required"`
	Bedrooms     *float64 `json:"bedrooms,omitempty" validate:"omitempty,gte=0"`
	Bathrooms    *float64 `json:"bathrooms,omitempty" validate:"omitempty,gte=0"`
	AreaSqm      float64  `json:"area_sqm" validate:"gte=0"`
	PropertyType string   `json:"property_type" validate:"required"`
}

// LocationAggregate summarises the listings of one (country, location) group.
type LocationAggregate struct {
	Country           string   `json:"country"`
	Location          string   `json:"location"`
	SupplyCount       int      `json:"supply_count"`
	MedianPrice       float64  `json:"median_price"`
	MedianPricePerSqm float64  `json:"median_price_per_sqm"`
	MedianRent        *float64 `json:"median_rent,omitempty"`
}
