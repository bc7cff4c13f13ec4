// Package currency holds the exchange-rate table used for every local/USD conversion.
package currency

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"
)

// ErrUnknownCurrency is returned when a currency code has no rate in the table.
var ErrUnknownCurrency = errors.New("currency: unknown currency")

// DefaultRates are the rate-to-USD values the listing datasets were priced against.
var DefaultRates = map[string]string{
	"USD": "1",
	"THB": "0.029",
	"PHP": "0.018",
	"MYR": "0.23",
	"VND": "0.000039",
}

// Rates is an immutable currency code -> rate-to-USD table.
type Rates struct {
	table map[string]decimal.Decimal
}

// NewRates builds a table from decimal strings. Codes are upper-cased.
func NewRates(raw map[string]string) (*Rates, error) {
	table := make(map[string]decimal.Decimal, len(raw))
	for code, val := range raw {
		d, err := decimal.NewFromString(strings.TrimSpace(val))
		if err != nil {
			return nil, fmt.Errorf("currency: parse rate for %s: %w", code, err)
		}
		if !d.IsPositive() {
			return nil, fmt.Errorf("currency: rate for %s must be positive, got %s", code, d)
		}
		table[normalise(code)] = d
	}
	return &Rates{table: table}, nil
}

// Default returns the built-in table.
func Default() *Rates {
	r, err := NewRates(DefaultRates)
	if err != nil {
		panic(err)
	}
	return r
}

type rateFile struct {
	Rates map[string]string `yaml:"rates"`
}

// LoadFile reads a YAML file of the form
//
//	rates:
//	  THB: "0.029"
//
// and layers it over the default table. An empty path returns the defaults.
func LoadFile(path string) (*Rates, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("currency: read %q: %w", path, err)
	}
	var rf rateFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("currency: decode %q: %w", path, err)
	}

	merged := make(map[string]string, len(DefaultRates)+len(rf.Rates))
	for k, v := range DefaultRates {
		merged[k] = v
	}
	for k, v := range rf.Rates {
		merged[normalise(k)] = v
	}
	return NewRates(merged)
}

// Rate returns the rate-to-USD for a currency code.
func (r *Rates) Rate(code string) (decimal.Decimal, error) {
	d, ok := r.table[normalise(code)]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnknownCurrency, code)
	}
	return d, nil
}

// ToUSD converts a local amount to USD.
func (r *Rates) ToUSD(amount float64, code string) (float64, error) {
	rate, err := r.Rate(code)
	if err != nil {
		return 0, err
	}
	return decimal.NewFromFloat(amount).Mul(rate).InexactFloat64(), nil
}

// FromUSD converts a USD amount into the local currency using the inverse rate.
func (r *Rates) FromUSD(amount float64, code string) (float64, error) {
	rate, err := r.Rate(code)
	if err != nil {
		return 0, err
	}
	return decimal.NewFromFloat(amount).DivRound(rate, 12).InexactFloat64(), nil
}

// Table returns a copy of the table; callers cannot modify the loader's rates.
func (r *Rates) Table() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(r.table))
	for k, v := range r.table {
		out[k] = v
	}
	return out
}

// Codes lists the currency codes present.
func (r *Rates) Codes() []string {
	codes := make([]string, 0, len(r.table))
	for k := range r.table {
		codes = append(codes, k)
	}
	return codes
}

func normalise(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
