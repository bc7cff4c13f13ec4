package services

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"property-intel/models"
	"property-intel/predict"
	"property-intel/utils"
)

type staticSource []*models.Listing

func (s staticSource) LoadUnified() []*models.Listing { return s }

type fixedYield struct {
	yield float64
	err   error
	calls int
}

func (f *fixedYield) PredictYield(models.PropertyFeatures, float64) (float64, error) {
	f.calls++
	return f.yield, f.err
}

func sale(country, location string, price, area float64) *models.Listing {
	return &models.Listing{
		Country: country, Location: location, PriceUSD: price,
		AreaSqm: models.Float(area), Bedrooms: models.Float(2), Bathrooms: models.Float(1),
		PropertyType: "Condo", TransactionType: models.Sale,
	}
}

func rent(country, location string, price float64) *models.Listing {
	return &models.Listing{
		Country: country, Location: location, PriceUSD: price,
		AreaSqm: models.Float(50), PropertyType: "Condo", TransactionType: models.Rent,
	}
}

func repeat(n int, l func() *models.Listing) []*models.Listing {
	out := make([]*models.Listing, n)
	for i := range out {
		out[i] = l()
	}
	return out
}

func TestAnalyzeMarketObservedYield(t *testing.T) {
	rows := []*models.Listing{
		sale("Vietnam", "District 1", 90000, 50),
		sale("Vietnam", "District 1", 100000, 50),
		sale("Vietnam", "District 1", 110000, 50),
		rent("Vietnam", "District 1", 500),
	}
	a := NewYieldAnalyzer(staticSource(rows), &fixedYield{yield: 0.07}, utils.NewNopLogger())

	got, err := a.AnalyzeMarket("")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 6.0, got[0].AnnualYieldPct, 1e-9)
	assert.Equal(t, 100000.0, got[0].SalePriceUSD)
	assert.Equal(t, 500.0, got[0].RentPriceUSD)
	assert.Equal(t, models.YieldObserved, got[0].Method)
}

func TestAnalyzeMarketProxyAndFilters(t *testing.T) {
	rows := []*models.Listing{
		sale("Vietnam", "District 1", 100000, 50),
		rent("Vietnam", "District 1", 500),
		sale("Vietnam", "District 2", 200000, 80),
		sale("Vietnam", "Unknown", 100000, 50),
		rent("Vietnam", "Unknown", 700),
		sale("Vietnam", "Luxury", 100000, 50),
		rent("Vietnam", "Luxury", 3000),
		rent("Vietnam", "RentOnly", 400),
		sale("Thailand", "Silom", 100000, 40),
	}
	proxy := &fixedYield{yield: 0.07}
	a := NewYieldAnalyzer(staticSource(rows), proxy, utils.NewNopLogger())

	got, err := a.AnalyzeMarket("vietnam")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "District 2", got[0].Location)
	assert.InDelta(t, 7.0, got[0].AnnualYieldPct, 1e-9)
	assert.Equal(t, models.YieldProxy, got[0].Method)
	assert.Equal(t, "District 1", got[1].Location)
	assert.Equal(t, 1, proxy.calls)
}

func TestAnalyzeMarketFallback(t *testing.T) {
	noArea := sale("Vietnam", "District 9", 150000, 0)
	noArea.AreaSqm = nil
	rows := []*models.Listing{
		sale("Vietnam", "District 2", 200000, 80),
		noArea,
	}

	a := NewYieldAnalyzer(staticSource(rows), &fixedYield{err: predict.ErrModelUnavailable}, utils.NewNopLogger())
	got, err := a.AnalyzeMarket("Vietnam")
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, r := range got {
		assert.Equal(t, FallbackYieldPct, r.AnnualYieldPct)
		assert.Equal(t, models.YieldFallback, r.Method)
	}

	proxy := &fixedYield{yield: 0.08}
	a = NewYieldAnalyzer(staticSource([]*models.Listing{noArea}), proxy, utils.NewNopLogger())
	got, err = a.AnalyzeMarket("")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.YieldFallback, got[0].Method)
	assert.Zero(t, proxy.calls)
}

func TestAnalyzeMarketPropagatesUnexpectedErrors(t *testing.T) {
	rows := []*models.Listing{sale("Vietnam", "District 2", 200000, 80)}
	a := NewYieldAnalyzer(staticSource(rows), &fixedYield{err: errors.New("boom")}, utils.NewNopLogger())

	_, err := a.AnalyzeMarket("")
	assert.Error(t, err)
}

func TestAnalyzeMarketEmpty(t *testing.T) {
	a := NewYieldAnalyzer(staticSource(nil), &fixedYield{}, utils.NewNopLogger())
	got, err := a.AnalyzeMarket("Atlantis")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestAnalyzeGap(t *testing.T) {
	var rows []*models.Listing
	rows = append(rows, repeat(5, func() *models.Listing { return sale("Vietnam", "District 1", 100000, 100) })...)
	rows = append(rows, repeat(60, func() *models.Listing { return sale("Vietnam", "Thu Duc", 50000, 100) })...)
	rows = append(rows, repeat(4, func() *models.Listing { return sale("Vietnam", "District 3", 10000, 100) })...)
	rows = append(rows, repeat(6, func() *models.Listing { return sale("Vietnam", " unknown ", 10000, 100) })...)
	rows = append(rows, repeat(6, func() *models.Listing { return rent("Vietnam", "District 7", 500) })...)
	rows = append(rows, repeat(6, func() *models.Listing { return sale("Thailand", "Silom", 0, 100) })...)

	g := NewGapScorer(staticSource(rows), utils.NewNopLogger())
	got := g.AnalyzeGap("")

	require.Len(t, got, 2)
	assert.Equal(t, "Thu Duc", got[0].Location)
	assert.Equal(t, 60, got[0].SupplyCount)
	assert.InDelta(t, 10000/501.0*(math.Tanh(60/50.0)+0.5), got[0].GapScore, 1e-9)
	assert.Equal(t, 50000.0, got[0].AvgPriceUSD)

	assert.Equal(t, "District 1", got[1].Location)
	assert.InDelta(t, 10000/1001.0*(math.Tanh(0.1)+0.5), got[1].GapScore, 1e-9)

	assert.Empty(t, g.AnalyzeGap("Thailand"))
}

func TestCalculateMEI(t *testing.T) {
	var rows []*models.Listing
	rows = append(rows, repeat(10, func() *models.Listing { return sale("Vietnam", "A", 100000, 100) })...)
	rows = append(rows, repeat(5, func() *models.Listing { return sale("Vietnam", "B", 200000, 100) })...)
	rows = append(rows, repeat(2, func() *models.Listing { return sale("Vietnam", "C", 150000, 100) })...)
	rows = append(rows, rent("Vietnam", "A", 800))

	c := NewMEICalculator(staticSource(rows), utils.NewNopLogger())
	got := c.CalculateMEI("Vietnam")
	require.Len(t, got, 2)

	avg := 17.0 / 3.0
	median := 7.5
	scoreA := (math.Min(10/avg, 3) + math.Tanh(10/(median+1))) / 1001 * 1000
	scoreB := (math.Min(5/avg, 3) + math.Tanh(5/(median+1))) / 2001 * 1000

	assert.Equal(t, "A", got[0].Location)
	assert.InDelta(t, scoreA, got[0].MEIScore, 1e-9)
	assert.InDelta(t, 10/avg, got[0].SearchVolumeIndex, 1e-9)
	assert.Equal(t, 1000.0, got[0].MedianPricePerSqm)
	assert.Equal(t, models.MEIModerate, got[0].Interpretation)

	assert.Equal(t, "B", got[1].Location)
	assert.InDelta(t, scoreB, got[1].MEIScore, 1e-9)
	assert.Equal(t, models.MEIEfficient, got[1].Interpretation)
}

func TestCalculateMEISVICap(t *testing.T) {
	var rows []*models.Listing
	rows = append(rows, repeat(40, func() *models.Listing { return sale("Thailand", "Big", 100000, 100) })...)
	for i := 0; i < 20; i++ {
		loc := string(rune('a' + i))
		rows = append(rows, sale("Thailand", loc, 100000, 100))
	}

	got := NewMEICalculator(staticSource(rows), utils.NewNopLogger()).CalculateMEI("")
	require.Len(t, got, 1)
	assert.Equal(t, 3.0, got[0].SearchVolumeIndex)
	assert.Equal(t, models.MEIEfficient, got[0].Interpretation)
}

func TestCalculateMEIEmpty(t *testing.T) {
	c := NewMEICalculator(staticSource(nil), utils.NewNopLogger())
	assert.Empty(t, c.CalculateMEI(""))
}

func TestInterpretMEI(t *testing.T) {
	assert.Equal(t, models.MEIHighDivergence, interpretMEI(10, 5, 2))
	assert.Equal(t, models.MEIModerate, interpretMEI(6, 5, 2))
	assert.Equal(t, models.MEIEfficient, interpretMEI(5, 5, 2))
}

func TestHotspots(t *testing.T) {
	var rows []*models.Listing
	rows = append(rows, repeat(6, func() *models.Listing { return sale("Vietnam", "X", 50000, 100) })...)
	rows = append(rows, repeat(5, func() *models.Listing { return sale("Vietnam", "Y", 40000, 100) })...)
	rows = append(rows, repeat(6, func() *models.Listing { return sale("Vietnam", "Z", 45000, 100) })...)

	got := NewMarketScanner(staticSource(rows), utils.NewNopLogger()).Hotspots("")
	require.Len(t, got, 2)
	assert.Equal(t, "Z", got[0].Location)
	assert.Equal(t, 450.0, got[0].MedianPricePerSqm)
	assert.Equal(t, "X", got[1].Location)
	assert.Equal(t, 6, got[1].ListingsCount)
}

func TestCountryBenchmarks(t *testing.T) {
	var rows []*models.Listing
	rows = append(rows, repeat(10, func() *models.Listing { return sale("Vietnam", "D1", 100000, 100) })...)
	rows = append(rows, repeat(10, func() *models.Listing { return sale("Thailand", "Silom", 300000, 100) })...)

	got := NewMarketScanner(staticSource(rows), utils.NewNopLogger()).CountryBenchmarks()
	require.Len(t, got, 2)
	assert.Equal(t, "Thailand", got[0].Country)
	assert.Equal(t, 3000.0, got[0].MedianPricePerSqm)
	assert.Equal(t, 3000.0, got[0].MeanPricePerSqm)
	assert.Equal(t, 10, got[0].Listings)
	assert.Equal(t, "Vietnam", got[1].Country)
}

func TestAggregate(t *testing.T) {
	noArea := sale("Vietnam", "District 1", 500000, 0)
	noArea.AreaSqm = nil
	group := []*models.Listing{
		sale("Vietnam", "District 1", 100000, 50),
		sale("Vietnam", "District 1", 300000, 100),
		noArea,
		rent("Vietnam", "District 1", 800),
		rent("Vietnam", "District 1", 1200),
	}

	agg := aggregate(locationKey{"Vietnam", "District 1"}, group)
	assert.Equal(t, "Vietnam", agg.Country)
	assert.Equal(t, "District 1", agg.Location)
	assert.Equal(t, 3, agg.SupplyCount)
	assert.Equal(t, 300000.0, agg.MedianPrice)
	assert.Equal(t, 2500.0, agg.MedianPricePerSqm)
	require.NotNil(t, agg.MedianRent)
	assert.Equal(t, 1000.0, *agg.MedianRent)

	rentOnly := aggregate(locationKey{"Vietnam", "District 5"}, []*models.Listing{rent("Vietnam", "District 5", 700)})
	assert.Zero(t, rentOnly.SupplyCount)
	assert.Zero(t, rentOnly.MedianPrice)
	require.NotNil(t, rentOnly.MedianRent)
	assert.Equal(t, 700.0, *rentOnly.MedianRent)
}
