package predict

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"property-intel/models"
	"property-intel/utils"
)

// rentListings generates Vietnam rent rows priced at $12 per sqm per month.
func rentListings(n int, seed int64) []*models.Listing {
	rng := rand.New(rand.NewSource(seed))
	locations := []string{"District 1", "District 3", "Thu Duc"}

	out := make([]*models.Listing, 0, n)
	for i := 0; i < n; i++ {
		area := 30 + rng.Float64()*120
		out = append(out, &models.Listing{
			Country:         "Vietnam",
			Location:        locations[rng.Intn(len(locations))],
			PriceUSD:        area * 12,
			AreaSqm:         models.Float(area),
			Bedrooms:        models.Float(float64(1 + rng.Intn(3))),
			Bathrooms:       models.Float(1),
			PropertyType:    "Condo",
			TransactionType: models.Rent,
		})
	}
	return out
}

func TestRentalModelUnloaded(t *testing.T) {
	m := NewRentalModel(staticSource(nil), utils.NewNopLogger())
	_, err := m.PredictRent(features("Vietnam", 60))
	assert.ErrorIs(t, err, ErrModelUnavailable)
}

func TestRentalModelIgnoresSaleRows(t *testing.T) {
	rows := append(saleListings(100, 1), rentListings(5, 1)...)
	m := NewRentalModel(staticSource(rows), utils.NewNopLogger())

	_, err := m.Train()
	assert.ErrorIs(t, err, ErrInsufficientData)
	assert.False(t, m.Loaded())
}

func TestRentalModelTrainAndPredict(t *testing.T) {
	rows := append(saleListings(100, 2), rentListings(200, 2)...)
	m := NewRentalModel(staticSource(rows), utils.NewNopLogger())

	report, err := m.Train()
	require.NoError(t, err)
	assert.Equal(t, KindRental, report.Kind)
	assert.Equal(t, 200, report.Rows)
	assert.Equal(t, 500, report.Rounds)
	assert.Greater(t, report.R2, 0.8)

	f := features("vietnam", 40)
	f.Location = "District 1"
	small, err := m.PredictRent(f)
	require.NoError(t, err)
	f.AreaSqm = 140
	large, err := m.PredictRent(f)
	require.NoError(t, err)
	assert.Greater(t, large, small)
	assert.Greater(t, small, 0.0)
}

func TestRentalModelRefusesCountriesWithoutRentData(t *testing.T) {
	m := NewRentalModel(staticSource(rentListings(50, 4)), utils.NewNopLogger())
	_, err := m.Train()
	require.NoError(t, err)

	_, err = m.PredictRent(features("Thailand", 60))
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestRentalArtifactRoundTrip(t *testing.T) {
	trained := NewRentalModel(staticSource(rentListings(80, 9)), utils.NewNopLogger())
	_, err := trained.Train()
	require.NoError(t, err)
	data, err := trained.MarshalArtifact()
	require.NoError(t, err)

	restored := NewRentalModel(staticSource(nil), utils.NewNopLogger())
	require.NoError(t, restored.EnsureLoaded(memStore{KindRental: data}))

	want, err := trained.PredictRent(features("Vietnam", 75))
	require.NoError(t, err)
	got, err := restored.PredictRent(features("Vietnam", 75))
	require.NoError(t, err)
	assert.Equal(t, want, got)

	price := NewPriceModel(staticSource(nil), utils.NewNopLogger())
	assert.Error(t, price.LoadArtifact(data))
}
