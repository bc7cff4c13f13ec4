// Package loader assembles the canonical listing table from every registered source.
package loader

import (
	"strings"

	"github.com/shopspring/decimal"

	"property-intel/currency"
	"property-intel/models"
	"property-intel/sources"
	"property-intel/utils"
)

// Capability describes what data a country has in the unified table.
type Capability struct {
	HasSaleData   bool
	HasRentalData bool
}

// Loader runs adapters in a fixed priority order and concatenates their output.
type Loader struct {
	adapters    []sources.Adapter
	rates       *currency.Rates
	concurrency int
	logger      *utils.Logger
}

// New creates a Loader over the given adapters, in priority order.
func New(adapters []sources.Adapter, rates *currency.Rates, concurrency int, logger *utils.Logger) *Loader {
	return &Loader{
		adapters:    adapters,
		rates:       rates,
		concurrency: concurrency,
		logger:      logger,
	}
}

// NewDefault wires the built-in country adapters for dataDir.
func NewDefault(dataDir string, rates *currency.Rates, concurrency int, logger *utils.Logger) *Loader {
	return New(sources.Defaults(dataDir, rates, logger), rates, concurrency, logger)
}

// LoadUnified reads every source and returns the concatenation in priority order.
// Sources that are missing or fail are skipped. Calling it twice on unchanged files
// returns equal tables.
func (l *Loader) LoadUnified() []*models.Listing {
	results := make([][]*models.Listing, len(l.adapters))
	pool := utils.NewWorkerPool(l.concurrency, 0)

	for i, a := range l.adapters {
		i, a := i, a
		pool.Submit(func() {
			results[i] = a.Load()
		})
	}
	pool.Wait()

	total := 0
	for _, r := range results {
		total += len(r)
	}

	unified := make([]*models.Listing, 0, total)
	for i, r := range results {
		if len(r) == 0 {
			l.logger.Debug("[loader] %s contributed no rows", l.adapters[i].Name())
			continue
		}
		unified = append(unified, r...)
	}

	l.logger.Info("[loader] Unified %d listings from %d sources", len(unified), len(l.adapters))
	return unified
}

// ExchangeRates returns a copy of the rate-to-USD table.
func (l *Loader) ExchangeRates() map[string]decimal.Decimal {
	return l.rates.Table()
}

// Rates exposes the rate table for conversions.
func (l *Loader) Rates() *currency.Rates {
	return l.rates
}

// Capabilities reports, per country, which transaction types its adapters provide.
func (l *Loader) Capabilities() map[string]Capability {
	caps := make(map[string]Capability)
	for _, a := range l.adapters {
		c := caps[a.Country()]
		switch a.Transaction() {
		case models.Sale:
			c.HasSaleData = true
		case models.Rent:
			c.HasRentalData = true
		}
		caps[a.Country()] = c
	}
	return caps
}

// Capability looks up one country case-insensitively.
func (l *Loader) Capability(country string) Capability {
	for name, c := range l.Capabilities() {
		if strings.EqualFold(name, strings.TrimSpace(country)) {
			return c
		}
	}
	return Capability{}
}

// CurrencyOf returns the currency used by a country's sources, if any.
func (l *Loader) CurrencyOf(country string) (string, bool) {
	for _, a := range l.adapters {
		if strings.EqualFold(a.Country(), strings.TrimSpace(country)) {
			return a.Currency(), true
		}
	}
	return "", false
}

// Countries lists the distinct countries present in rows, sorted.
func Countries(rows []*models.Listing) []string {
	set := utils.NewKeySet()
	for _, r := range rows {
		set.Add(r.Country)
	}
	return set.Sorted()
}

// Locations lists the distinct known locations of one country, sorted.
func Locations(rows []*models.Listing, country string) []string {
	set := utils.NewKeySet()
	for _, r := range rows {
		if !models.SameCountry(r.Country, country) || models.IsUnknownLocation(r.Location) {
			continue
		}
		set.Add(r.Location)
	}
	return set.Sorted()
}
