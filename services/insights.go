package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"property-intel/models"
	"property-intel/utils"
)

const printTopN = 10

// InsightService assembles and renders the market report.
type InsightService struct {
	source  ListingSource
	yields  *YieldAnalyzer
	gaps    *GapScorer
	mei     *MEICalculator
	scanner *MarketScanner
	logger  *utils.Logger
}

// NewInsightService wires the analyzers over one listing source.
func NewInsightService(source ListingSource, proxy YieldPredictor, logger *utils.Logger) *InsightService {
	return &InsightService{
		source:  source,
		yields:  NewYieldAnalyzer(source, proxy, logger),
		gaps:    NewGapScorer(source, logger),
		mei:     NewMEICalculator(source, logger),
		scanner: NewMarketScanner(source, logger),
		logger:  logger,
	}
}

// Generate runs every analyzer concurrently and collects the results.
func (s *InsightService) Generate(ctx context.Context, countryFilter string) (*models.MarketReport, error) {
	report := &models.MarketReport{
		RunID:             uuid.NewString(),
		GeneratedAt:       time.Now().UTC(),
		CountryFilter:     countryFilter,
		ListingsByCountry: make(map[string]int),
	}

	for _, l := range filterCountry(s.source.LoadUnified(), countryFilter) {
		report.TotalListings++
		report.ListingsByCountry[l.Country]++
		switch l.TransactionType {
		case models.Sale:
			report.SaleListings++
		case models.Rent:
			report.RentListings++
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		yields, err := s.yields.AnalyzeMarket(countryFilter)
		if err != nil {
			return fmt.Errorf("services: yield analysis: %w", err)
		}
		report.Yields = yields
		return ctx.Err()
	})
	g.Go(func() error {
		report.Gaps = s.gaps.AnalyzeGap(countryFilter)
		return ctx.Err()
	})
	g.Go(func() error {
		report.MEI = s.mei.CalculateMEI(countryFilter)
		return ctx.Err()
	})
	g.Go(func() error {
		report.Hotspots = s.scanner.Hotspots(countryFilter)
		return ctx.Err()
	})
	g.Go(func() error {
		benchmarks := s.scanner.CountryBenchmarks()
		if countryFilter != "" {
			kept := benchmarks[:0]
			for _, b := range benchmarks {
				if models.SameCountry(b.Country, countryFilter) {
					kept = append(kept, b)
				}
			}
			benchmarks = kept
		}
		report.Benchmarks = benchmarks
		return ctx.Err()
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	s.logger.Info("[insights] Report %s: %d listings, %d yields, %d gaps, %d MEI rows",
		report.RunID, report.TotalListings, len(report.Yields), len(report.Gaps), len(report.MEI))
	return report, nil
}

// Print renders the report to stdout.
func (s *InsightService) Print(r *models.MarketReport) {
	sep := strings.Repeat("═", 64)
	thin := strings.Repeat("─", 64)

	fmt.Printf("\n\033[1;35m%s\033[0m\n", sep)
	fmt.Printf("\033[1;35m  📊 SOUTHEAST ASIA PROPERTY MARKET REPORT\033[0m\n")
	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)

	fmt.Printf("\033[1;33m  Overview\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  Run ID          : %s\n", r.RunID)
	if r.CountryFilter != "" {
		fmt.Printf("  Country filter  : %s\n", r.CountryFilter)
	}
	fmt.Printf("  Total listings  : \033[1m%d\033[0m\n", r.TotalListings)
	fmt.Printf("  Sale / Rent     : \033[1m%d\033[0m / \033[1m%d\033[0m\n", r.SaleListings, r.RentListings)
	fmt.Println()

	fmt.Printf("\033[1;33m  Listings by Country\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if len(r.ListingsByCountry) == 0 {
		fmt.Printf("  No listings loaded\n")
	} else {
		type countryCount struct {
			country string
			count   int
		}
		var counts []countryCount
		for c, n := range r.ListingsByCountry {
			counts = append(counts, countryCount{c, n})
		}
		sort.Slice(counts, func(i, j int) bool {
			return counts[i].count > counts[j].count
		})
		for _, cc := range counts {
			fmt.Printf("  %-20s %8d\n", cc.country, cc.count)
		}
	}
	fmt.Println()

	fmt.Printf("\033[1;33m  Price per sqm Benchmarks (USD)\033[0m\n")
	fmt.Printf("  %s\n", thin)
	for _, b := range r.Benchmarks {
		fmt.Printf("  %-20s median \033[1;32m$%10.2f\033[0m  mean $%10.2f  (%d)\n",
			b.Country, round2(b.MedianPricePerSqm), round2(b.MeanPricePerSqm), b.Listings)
	}
	fmt.Println()

	fmt.Printf("\033[1;33m  Top Rental Yields\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if len(r.Yields) == 0 {
		fmt.Printf("  No yield data available\n")
	}
	for _, i := range head(len(r.Yields)) {
		row := r.Yields[i]
		fmt.Printf("  \033[1m%2d.\033[0m %-34s \033[1;32m%5.2f%%\033[0m  %s\n",
			i+1, truncate(row.Location+", "+row.Country, 34), row.AnnualYieldPct, row.Method)
	}
	fmt.Println()

	fmt.Printf("\033[1;33m  Supply/Demand Gaps\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if len(r.Gaps) == 0 {
		fmt.Printf("  No location has enough listings\n")
	}
	for _, i := range head(len(r.Gaps)) {
		row := r.Gaps[i]
		fmt.Printf("  \033[1m%2d.\033[0m %-34s gap %8.2f  (%d listings)\n",
			i+1, truncate(row.Location+", "+row.Country, 34), row.GapScore, row.SupplyCount)
	}
	fmt.Println()

	fmt.Printf("\033[1;33m  Market Efficiency Index\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if len(r.MEI) == 0 {
		fmt.Printf("  No location has enough listings\n")
	}
	for _, i := range head(len(r.MEI)) {
		row := r.MEI[i]
		fmt.Printf("  \033[1m%2d.\033[0m %-34s MEI %7.3f  %s\n",
			i+1, truncate(row.Location+", "+row.Country, 34), row.MEIScore, row.Interpretation)
	}
	fmt.Println()

	fmt.Printf("\033[1;33m  Value-Entry Hotspots\033[0m\n")
	fmt.Printf("  %s\n", thin)
	for _, i := range head(len(r.Hotspots)) {
		row := r.Hotspots[i]
		fmt.Printf("  \033[1m%2d.\033[0m %-34s \033[1;32m$%9.2f/sqm\033[0m  (%d)\n",
			i+1, truncate(row.Location+", "+row.Country, 34), row.MedianPricePerSqm, row.ListingsCount)
	}

	fmt.Printf("\n\033[1;35m%s\033[0m\n\n", sep)
}

// head returns the indices of the first printTopN entries.
func head(n int) []int {
	if n > printTopN {
		n = printTopN
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
