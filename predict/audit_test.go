package predict

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"property-intel/models"
)

func TestAuditGrades(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	var rows []*models.Listing
	for i := 0; i < 150; i++ {
		area := 30 + rng.Float64()*200
		rows = append(rows, &models.Listing{
			Country: "Thailand", Location: "Silom", PriceUSD: area * 3000,
			AreaSqm: models.Float(area), Bedrooms: models.Float(2), TransactionType: models.Sale,
		})
		rows = append(rows, &models.Listing{
			Country: "Malaysia", Location: "Cheras", PriceUSD: rng.Float64() * 500000,
			AreaSqm: models.Float(30 + rng.Float64()*200), TransactionType: models.Sale,
		})
	}
	rows = append(rows, &models.Listing{Country: "Vietnam", Location: "D1", PriceUSD: 1, TransactionType: models.Sale})

	results := Audit(rows, 5)
	require.Len(t, results, 2)
	assert.Equal(t, "Malaysia", results[0].Country)
	assert.Equal(t, "Thailand", results[1].Country)

	assert.Equal(t, GradeSparse, results[0].Grade)
	assert.Equal(t, GradeResearch, results[1].Grade)
	assert.Len(t, results[1].FoldR2, 5)
	assert.Equal(t, 150, results[1].SampleSize)

	md := AuditMarkdown(results)
	assert.Contains(t, md, "| Thailand | 150 |")
}
