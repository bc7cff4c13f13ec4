package sources

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"property-intel/currency"
	"property-intel/models"
	"property-intel/utils"
)

func newTestCleaner() *Cleaner {
	return NewCleaner(currency.Default(), utils.NewNopLogger())
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
		ok   bool
	}{
		{"3,500,000", 3500000, true},
		{"฿1,200.50", 1200.50, true},
		{" 42 ", 42, true},
		{"2.5e3", 2500, true},
		{"", 0, false},
		{"n/a", 0, false},
		{"NaN", 0, false},
		{"nan", 0, false},
		{"Inf", 0, false},
		{"RM 450,000", 450000, true},
		{"PHP 12,500,000", 12500000, true},
		{"$99", 99, true},
		{"-5", -5, true},
		{"5.2M", 0, false},
		{"₱5.2M", 0, false},
		{"PHP 12.5 Million", 0, false},
		{"1-2", 0, false},
		{"3,500,000 - 4,200,000", 0, false},
		{"Price on request 2", 0, false},
	}

	for _, tt := range tests {
		got, ok := parseNumber(tt.raw)
		assert.Equal(t, tt.ok, ok, "parseNumber(%q)", tt.raw)
		if tt.ok {
			assert.InDelta(t, tt.want, got, 1e-9, "parseNumber(%q)", tt.raw)
		}
	}
}

func TestNormaliseLocation(t *testing.T) {
	assert.Equal(t, "Sukhumvit", normaliseLocation("  Sukhumvit "))
	assert.Equal(t, "Ho Chi Minh City", normaliseLocation("Ho  Chi\tMinh City"))
	assert.Equal(t, models.UnknownLocation, normaliseLocation(""))
	assert.Equal(t, models.UnknownLocation, normaliseLocation("NaN"))
}

func TestCleanDropsMalformedPrice(t *testing.T) {
	src := Source{Name: "t", Country: "Thailand", Currency: "THB", Transaction: models.Sale}
	raw := []*models.RawListing{
		{Location: "Silom", RawPrice: "1,000,000", RawArea: "40"},
		{Location: "Silom", RawPrice: "call agent", RawArea: "40"},
		{Location: "Silom", RawPrice: "", RawArea: "40"},
	}

	got, err := newTestCleaner().Clean(src, raw)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 29000, got[0].PriceUSD, 1e-6)
	assert.Equal(t, "THB", got[0].Currency)
	assert.Equal(t, models.Sale, got[0].TransactionType)
}

func TestCleanRequiredArea(t *testing.T) {
	raw := []*models.RawListing{
		{Location: "A", RawPrice: "100"},
		{Location: "B", RawPrice: "100", RawArea: "50"},
	}

	required := Source{Name: "r", Country: "Vietnam", Currency: "VND", Transaction: models.Sale, RequireArea: true}
	got, err := newTestCleaner().Clean(required, raw)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "B", got[0].Location)

	optional := required
	optional.RequireArea = false
	got, err = newTestCleaner().Clean(optional, raw)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Nil(t, got[0].AreaSqm)
	assert.False(t, got[0].HasArea())
}

func TestCleanAreaFromUnitPrice(t *testing.T) {
	src := Source{Name: "m", Country: "Malaysia", Currency: "MYR", Transaction: models.Sale}
	raw := []*models.RawListing{
		{Location: "Cheras", RawPrice: "538200", RawUnitPrice: "500", AreaDivisor: sqftPerSqm},
		{Location: "Ampang", RawPrice: "538200", RawUnitPrice: "0", AreaDivisor: sqftPerSqm},
	}

	got, err := newTestCleaner().Clean(src, raw)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.NotNil(t, got[0].AreaSqm)
	assert.InDelta(t, 100.0, *got[0].AreaSqm, 1e-9)
	assert.Nil(t, got[1].AreaSqm)
}

func TestCleanUnknownCurrency(t *testing.T) {
	src := Source{Name: "x", Country: "Nowhere", Currency: "XXX", Transaction: models.Sale}
	_, err := newTestCleaner().Clean(src, nil)
	assert.ErrorIs(t, err, currency.ErrUnknownCurrency)
}

func TestCleanConvertsThroughRateTable(t *testing.T) {
	rates, err := currency.NewRates(map[string]string{"PHP": "0.02"})
	require.NoError(t, err)
	c := NewCleaner(rates, utils.NewNopLogger())

	src := Source{Name: "p", Country: "Philippines", Currency: "PHP", Transaction: models.Sale}
	raw := []*models.RawListing{
		{Location: "Makati", RawPrice: "PHP 12,500,000"},
		{Location: "Makati", RawPrice: "0"},
		{Location: "Makati", RawPrice: "₱5.2M"},
		{Location: "Taguig", RawPrice: "3,500,000 - 4,200,000"},
	}

	got, err := c.Clean(src, raw)
	require.NoError(t, err)
	require.Len(t, got, 2)

	want, err := rates.ToUSD(12500000, "PHP")
	require.NoError(t, err)
	assert.Equal(t, want, got[0].PriceUSD)
	assert.InDelta(t, 250000.0, got[0].PriceUSD, 1e-6)
	assert.Equal(t, 12500000.0, got[0].PriceLocal)
	assert.Zero(t, got[1].PriceUSD)
}
