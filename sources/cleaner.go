package sources

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"property-intel/currency"
	"property-intel/models"
	"property-intel/utils"
)

// currencyPrefix matches a leading currency symbol or code, e.g. "฿", "₱" or "RM ".
var currencyPrefix = regexp.MustCompile(`^(?:[A-Z]{2,3}|[^\w\s.,+\-])\s*`)

// Cleaner transforms RawListings into canonical Listings.
type Cleaner struct {
	rates  *currency.Rates
	logger *utils.Logger
}

// NewCleaner creates a Cleaner converting prices through the given rate table.
func NewCleaner(rates *currency.Rates, logger *utils.Logger) *Cleaner {
	return &Cleaner{rates: rates, logger: logger}
}

// Clean converts the raw rows of one source. Rows without a usable price, and rows
// without an area when the source requires one, are dropped and counted.
func (c *Cleaner) Clean(src Source, raw []*models.RawListing) ([]*models.Listing, error) {
	if _, err := c.rates.Rate(src.Currency); err != nil {
		return nil, fmt.Errorf("sources: clean %s: %w", src.Name, err)
	}

	result := make([]*models.Listing, 0, len(raw))
	malformed, noArea := 0, 0

	for _, r := range raw {
		price, ok := parseNumber(r.RawPrice)
		if !ok {
			malformed++
			c.logger.Debug("[cleaner] %s: %v: price %q", src.Name, ErrMalformedRow, r.RawPrice)
			continue
		}
		if r.PriceMultiplier != 0 {
			price *= r.PriceMultiplier
		}

		area := c.parseArea(r, price)
		if area == nil && src.RequireArea {
			noArea++
			continue
		}
		usd, err := c.rates.ToUSD(price, src.Currency)
		if err != nil {
			return nil, fmt.Errorf("sources: clean %s: %w", src.Name, err)
		}

		result = append(result, &models.Listing{
			Country:         src.Country,
			Location:        normaliseLocation(r.Location),
			PriceLocal:      price,
			PriceUSD:        usd,
			AreaSqm:         area,
			Bedrooms:        parseOptional(r.RawBedrooms),
			Bathrooms:       parseOptional(r.RawBathrooms),
			PropertyType:    normaliseText(r.PropertyType),
			TransactionType: src.Transaction,
			Currency:        src.Currency,
		})
	}

	if malformed > 0 {
		c.logger.Warn("[cleaner] %s: dropped %d malformed rows", src.Name, malformed)
	}
	c.logger.Info("[cleaner] %s: cleaned %d → %d listings (malformed %d, missing area %d)",
		src.Name, len(raw), len(result), malformed, noArea)
	return result, nil
}

func (c *Cleaner) parseArea(r *models.RawListing, price float64) *float64 {
	divisor := r.AreaDivisor
	if divisor == 0 {
		divisor = 1
	}

	if v, ok := parseNumber(r.RawArea); ok {
		return models.Float(v / divisor)
	}
	if unit, ok := parseNumber(r.RawUnitPrice); ok && unit != 0 {
		return models.Float(price / unit / divisor)
	}
	return nil
}

// parseNumber parses a whole cell as a number after dropping thousands separators and
// a leading currency symbol or code. Cells with any other text are rejected.
func parseNumber(raw string) (float64, bool) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if loc := currencyPrefix.FindStringIndex(cleaned); loc != nil {
		cleaned = cleaned[loc[1]:]
	}
	if cleaned == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func parseOptional(raw string) *float64 {
	v, ok := parseNumber(raw)
	if !ok {
		return nil
	}
	return models.Float(v)
}

func normaliseLocation(s string) string {
	s = normaliseText(s)
	if s == "" || strings.EqualFold(s, "nan") {
		return models.UnknownLocation
	}
	return s
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	fields := strings.FieldsFunc(strings.TrimSpace(s), func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}
