package predict

import (
	"fmt"
	"math"
	"strings"

	"property-intel/models"
	"property-intel/stats"
)

// Audit grades.
const (
	GradeResearch = "research quality"
	GradeSparse   = "sparse data"
)

// AuditParams are the boosting settings used inside cross-validation.
var AuditParams = BoostParams{
	Rounds:       100,
	LearningRate: 0.05,
	MaxDepth:     5,
	MinLeaf:      20,
	MaxBins:      64,
}

// AuditResult is the cross-validated fit quality of a per-country price model.
type AuditResult struct {
	Country    string    `json:"country"`
	SampleSize int       `json:"sample_size"`
	FoldR2     []float64 `json:"fold_r2"`
	MeanR2     float64   `json:"mean_r2"`
	StdR2      float64   `json:"std_r2"`
	Grade      string    `json:"grade"`
}

// Audit runs k-fold cross-validation of a price regressor per country over the sale
// rows, using location frequency, area, bedrooms and bathrooms. Countries with fewer
// rows than folds are skipped.
func Audit(rows []*models.Listing, folds int) []AuditResult {
	if folds < 2 {
		folds = 5
	}
	byCountry := make(map[string][]*models.Listing)
	for _, r := range saleRows(rows) {
		byCountry[r.Country] = append(byCountry[r.Country], r)
	}

	countries := make(map[string]struct{}, len(byCountry))
	for c := range byCountry {
		countries[c] = struct{}{}
	}

	var results []AuditResult
	for _, country := range sortedKeys(countries) {
		group := byCountry[country]
		if len(group) < folds {
			continue
		}
		X, y := auditMatrix(group)
		scores := crossValidate(X, y, folds)

		res := AuditResult{
			Country:    country,
			SampleSize: len(group),
			FoldR2:     scores,
			MeanR2:     stats.Mean(scores),
			StdR2:      populationStd(scores),
		}
		res.Grade = GradeSparse
		if res.MeanR2 > 0.6 {
			res.Grade = GradeResearch
		}
		results = append(results, res)
	}
	return results
}

func auditMatrix(rows []*models.Listing) ([][]float64, []float64) {
	counts := make(map[string]int)
	var areas, beds, baths []*float64
	for _, r := range rows {
		counts[r.Location]++
		if r.HasArea() {
			areas = append(areas, r.AreaSqm)
		}
		beds = append(beds, r.Bedrooms)
		baths = append(baths, r.Bathrooms)
	}
	medArea, _ := stats.MedianOf(areas)
	medBeds, _ := stats.MedianOf(beds)
	medBaths, _ := stats.MedianOf(baths)

	X := make([][]float64, len(rows))
	y := make([]float64, len(rows))
	for i, r := range rows {
		area := medArea
		if r.HasArea() {
			area = *r.AreaSqm
		}
		X[i] = []float64{
			float64(counts[r.Location]) / float64(len(rows)),
			area,
			orMedian(r.Bedrooms, medBeds),
			orMedian(r.Bathrooms, medBaths),
		}
		y[i] = r.PriceUSD
	}
	return X, y
}

func crossValidate(X [][]float64, y []float64, k int) []float64 {
	folds := kFolds(len(y), k, splitSeed)
	scores := make([]float64, 0, k)
	for i, test := range folds {
		var train []int
		for j, f := range folds {
			if j != i {
				train = append(train, f...)
			}
		}
		trainX, trainY := pick(X, y, train)
		testX, testY := pick(X, y, test)
		fit := Fit(trainX, trainY, nil, nil, AuditParams)
		scores = append(scores, stats.R2(fit.Ensemble.PredictAll(testX), testY))
	}
	return scores
}

func populationStd(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := stats.Mean(xs)
	var ss float64
	for _, x := range xs {
		ss += (x - m) * (x - m)
	}
	return math.Sqrt(ss / float64(len(xs)))
}

// AuditMarkdown renders audit results as a Markdown table.
func AuditMarkdown(results []AuditResult) string {
	var b strings.Builder
	b.WriteString("# Market Model Performance Audit\n\n")
	b.WriteString("| Country | Sample Size | Mean R² | Stability (StdDev) | Grade |\n")
	b.WriteString("|---------|-------------|---------|--------------------|-------|\n")
	for _, r := range results {
		fmt.Fprintf(&b, "| %s | %d | %.4f | ±%.4f | %s |\n", r.Country, r.SampleSize, r.MeanR2, r.StdR2, r.Grade)
	}
	return b.String()
}
