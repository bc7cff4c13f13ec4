package models

import "time"

// YieldMethod records how a location's yield was obtained.
type YieldMethod string

const (
	YieldObserved YieldMethod = "observed"
	YieldProxy    YieldMethod = "proxy"
	YieldFallback YieldMethod = "fallback"
)

// YieldResult is one row of the yield ranking.
type YieldResult struct {
	Country        string      `json:"country"`
	Location       string      `json:"location"`
	SalePriceUSD   float64     `json:"sale_price_usd"`
	RentPriceUSD   float64     `json:"rent_price_usd"`
	AnnualYieldPct float64     `json:"annual_yield_pct"`
	Method         YieldMethod `json:"method"`
}

// GapResult is one row of the supply/demand gap ranking.
type GapResult struct {
	Country     string  `json:"country"`
	Location    string  `json:"location"`
	GapScore    float64 `json:"gap_score"`
	SupplyCount int     `json:"supply_count"`
	AvgPriceUSD float64 `json:"avg_price_usd"`
}

// MEI interpretation labels, relative to the distribution of one calculation.
const (
	MEIHighDivergence = "high divergence"
	MEIModerate       = "moderate"
	MEIEfficient      = "efficient"
)

// MEIResult is one row of the market efficiency index ranking.
type MEIResult struct {
	Country           string  `json:"country"`
	Location          string  `json:"location"`
	MEIScore          float64 `json:"mei_score"`
	SearchVolumeIndex float64 `json:"search_volume_index"`
	InterestDensity   float64 `json:"interest_density"`
	MedianPricePerSqm float64 `json:"median_price_per_sqm"`
	SupplyCount       int     `json:"supply_count"`
	Interpretation    string  `json:"interpretation"`
}

// Hotspot is a location with a low entry price per square meter.
type Hotspot struct {
	Country           string  `json:"country"`
	Location          string  `json:"location"`
	MedianPricePerSqm float64 `json:"median_price_per_sqm"`
	ListingsCount     int     `json:"listings_count"`
}

// CountryBenchmark summarises price per square meter for one country.
type CountryBenchmark struct {
	Country           string  `json:"country"`
	Listings          int     `json:"listings"`
	MedianPricePerSqm float64 `json:"median_price_per_sqm"`
	MeanPricePerSqm   float64 `json:"mean_price_per_sqm"`
}

// Valuation is a priced property with an estimated monthly rent.
type Valuation struct {
	Features             PropertyFeatures `json:"features"`
	PriceUSD             float64          `json:"price_usd"`
	PriceLocal           float64          `json:"price_local"`
	Currency             string           `json:"currency"`
	MonthlyRentUSD       float64          `json:"monthly_rent_usd"`
	MonthlyRentLocal     float64          `json:"monthly_rent_local"`
	AnnualYieldPct       float64          `json:"annual_yield_pct"`
	RentEstimationMethod string           `json:"rent_estimation_method"`
}

// MarketComparison prices the same property in another market.
type MarketComparison struct {
	Country       string  `json:"country"`
	Location      string  `json:"location"`
	PriceUSD      float64 `json:"price_usd"`
	DifferencePct float64 `json:"difference_pct"`
}

// MarketReport holds the computed analytics over the canonical table.
type MarketReport struct {
	RunID             string             `json:"run_id"`
	GeneratedAt       time.Time          `json:"generated_at"`
	CountryFilter     string             `json:"country_filter,omitempty"`
	TotalListings     int                `json:"total_listings"`
	SaleListings      int                `json:"sale_listings"`
	RentListings      int                `json:"rent_listings"`
	ListingsByCountry map[string]int     `json:"listings_by_country"`
	Benchmarks        []CountryBenchmark `json:"benchmarks"`
	Yields            []YieldResult      `json:"yields"`
	Gaps              []GapResult        `json:"gaps"`
	MEI               []MEIResult        `json:"mei"`
	Hotspots          []Hotspot          `json:"hotspots"`
}
