package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"property-intel/models"
)

// Report file names written under the CSV writer's directory.
const (
	YieldsFile     = "yields.csv"
	GapsFile       = "gaps.csv"
	MEIFile        = "mei.csv"
	HotspotsFile   = "hotspots.csv"
	BenchmarksFile = "benchmarks.csv"
)

// CSVWriter writes each ranking of a report to its own CSV file.
// It is safe for concurrent use.
type CSVWriter struct {
	mu  sync.Mutex
	dir string
}

// NewCSVWriter creates the output directory. Intermediate directories are created automatically.
func NewCSVWriter(dir string) (*CSVWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}
	return &CSVWriter{dir: dir}, nil
}

// Dir returns the output directory.
func (c *CSVWriter) Dir() string {
	return c.dir
}

// Write (re)creates every ranking file from the report.
func (c *CSVWriter) Write(r *models.MarketReport) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	yields := make([][]string, 0, len(r.Yields))
	for _, y := range r.Yields {
		yields = append(yields, []string{
			y.Country, y.Location, ftoa(y.SalePriceUSD), ftoa(y.RentPriceUSD),
			ftoa(y.AnnualYieldPct), string(y.Method),
		})
	}
	gaps := make([][]string, 0, len(r.Gaps))
	for _, g := range r.Gaps {
		gaps = append(gaps, []string{
			g.Country, g.Location, ftoa(g.GapScore), strconv.Itoa(g.SupplyCount), ftoa(g.AvgPriceUSD),
		})
	}
	mei := make([][]string, 0, len(r.MEI))
	for _, m := range r.MEI {
		mei = append(mei, []string{
			m.Country, m.Location, ftoa(m.MEIScore), ftoa(m.SearchVolumeIndex), ftoa(m.InterestDensity),
			ftoa(m.MedianPricePerSqm), strconv.Itoa(m.SupplyCount), m.Interpretation,
		})
	}
	hotspots := make([][]string, 0, len(r.Hotspots))
	for _, h := range r.Hotspots {
		hotspots = append(hotspots, []string{
			h.Country, h.Location, ftoa(h.MedianPricePerSqm), strconv.Itoa(h.ListingsCount),
		})
	}
	benchmarks := make([][]string, 0, len(r.Benchmarks))
	for _, b := range r.Benchmarks {
		benchmarks = append(benchmarks, []string{
			b.Country, strconv.Itoa(b.Listings), ftoa(b.MedianPricePerSqm), ftoa(b.MeanPricePerSqm),
		})
	}

	files := []struct {
		name   string
		header []string
		rows   [][]string
	}{
		{YieldsFile, []string{"country", "location", "sale_price_usd", "rent_price_usd", "annual_yield_pct", "method"}, yields},
		{GapsFile, []string{"country", "location", "gap_score", "supply_count", "avg_price_usd"}, gaps},
		{MEIFile, []string{"country", "location", "mei_score", "search_volume_index", "interest_density", "median_price_per_sqm", "supply_count", "interpretation"}, mei},
		{HotspotsFile, []string{"country", "location", "median_price_per_sqm", "listings_count"}, hotspots},
		{BenchmarksFile, []string{"country", "listings", "median_price_per_sqm", "mean_price_per_sqm"}, benchmarks},
	}
	for _, f := range files {
		if err := c.writeFile(f.name, f.header, f.rows); err != nil {
			return err
		}
	}
	return nil
}

func (c *CSVWriter) writeFile(name string, header []string, rows [][]string) error {
	path := filepath.Join(c.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("csv: create file %q: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("csv: write rows to %s: %w", name, err)
	}
	return nil
}

// Close is a no-op; files are closed after each write.
func (c *CSVWriter) Close() error {
	return nil
}

func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}
