package services

import (
	"errors"
	"fmt"

	"property-intel/models"
	"property-intel/predict"
	"property-intel/utils"
)

// Rent estimation methods.
const (
	RentHistorical = "Historical Data"
	rentModelFmt   = "Yield Model (%.1f%%)"
	rentFallback   = "Fallback Yield (5.0%)"
)

const (
	minImpliedYield = 0.01
	maxImpliedYield = 0.15
)

// MarketTarget names a location to price a property in.
type MarketTarget struct {
	Country  string `json:"country"`
	Location string `json:"location"`
}

// Valuator prices a property and estimates its monthly rent.
type Valuator struct {
	source MarketSource
	price  PricePredictor
	rent   RentPredictor
	yield  YieldPredictor
	logger *utils.Logger
}

// NewValuator creates a Valuator. rent may be nil, in which case every rent comes
// from the yield model.
func NewValuator(source MarketSource, price PricePredictor, rent RentPredictor, yield YieldPredictor, logger *utils.Logger) *Valuator {
	return &Valuator{source: source, price: price, rent: rent, yield: yield, logger: logger}
}

// Estimate predicts the USD price, converts it to the country's currency and estimates
// monthly rent. The rental model answers for countries with rental data when its implied
// yield lies within (1%, 15%); otherwise rent comes from the yield model.
func (v *Valuator) Estimate(f models.PropertyFeatures) (*models.Valuation, error) {
	price, err := v.price.Predict(f)
	if err != nil {
		return nil, err
	}

	rent, method, err := v.estimateRent(f, price)
	if err != nil {
		return nil, err
	}

	code, ok := v.source.CurrencyOf(f.Country)
	if !ok {
		code = "USD"
	}
	priceLocal, err := v.source.Rates().FromUSD(price, code)
	if err != nil {
		code = "USD"
		priceLocal = price
	}
	rentLocal, err := v.source.Rates().FromUSD(rent, code)
	if err != nil {
		rentLocal = rent
	}

	val := &models.Valuation{
		Features:             f,
		PriceUSD:             price,
		PriceLocal:           priceLocal,
		Currency:             code,
		MonthlyRentUSD:       rent,
		MonthlyRentLocal:     rentLocal,
		RentEstimationMethod: method,
	}
	if price > 0 {
		val.AnnualYieldPct = rent * 12 / price * 100
	}
	return val, nil
}

func (v *Valuator) estimateRent(f models.PropertyFeatures, price float64) (float64, string, error) {
	if v.rent != nil && price > 0 && v.source.Capability(f.Country).HasRentalData {
		rent, err := v.rent.PredictRent(f)
		switch {
		case err == nil && rent > 0:
			implied := rent * 12 / price
			if implied > minImpliedYield && implied < maxImpliedYield {
				return rent, RentHistorical, nil
			}
			v.logger.Debug("[valuation] implied yield %.3f for %s outside bounds, using yield model", implied, f.Location)
		case err == nil:
		case errors.Is(err, predict.ErrModelUnavailable), errors.Is(err, predict.ErrInsufficientData):
			v.logger.Debug("[valuation] rental model skipped for %s: %v", f.Country, err)
		default:
			return 0, "", fmt.Errorf("services: estimate rent: %w", err)
		}
	}

	y, err := v.yield.PredictYield(f, price)
	if err != nil {
		if errors.Is(err, predict.ErrModelUnavailable) {
			y = FallbackYieldPct / 100
			return price * y / 12, rentFallback, nil
		}
		return 0, "", fmt.Errorf("services: estimate rent: %w", err)
	}
	return price * y / 12, fmt.Sprintf(rentModelFmt, y*100), nil
}

// Compare prices the base property, then the same property in each target market.
func (v *Valuator) Compare(base models.PropertyFeatures, targets []MarketTarget) (float64, []models.MarketComparison, error) {
	basePrice, err := v.price.Predict(base)
	if err != nil {
		return 0, nil, err
	}

	out := make([]models.MarketComparison, 0, len(targets))
	for _, t := range targets {
		f := base
		f.Country = t.Country
		f.Location = t.Location
		p, err := v.price.Predict(f)
		if err != nil {
			return 0, nil, fmt.Errorf("services: compare %s/%s: %w", t.Country, t.Location, err)
		}
		diff := 0.0
		if basePrice != 0 {
			diff = round2((p - basePrice) / basePrice * 100)
		}
		out = append(out, models.MarketComparison{
			Country:       t.Country,
			Location:      t.Location,
			PriceUSD:      p,
			DifferencePct: diff,
		})
	}
	return basePrice, out, nil
}
