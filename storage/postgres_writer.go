package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"property-intel/models"
	"property-intel/utils"
)

const batchSize = 50

// PostgresWriter persists report snapshots to PostgreSQL, one row set per run.
type PostgresWriter struct {
	db     *sql.DB
	logger *utils.Logger
}

// NewPostgresWriter opens a connection to PostgreSQL, retrying the ping with back-off,
// runs schema migrations, and returns a ready-to-use PostgresWriter.
func NewPostgresWriter(dsn string, maxRetries int, logger *utils.Logger) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	retry := &utils.RetryConfig{MaxAttempts: maxRetries, BaseDelay: 2 * time.Second, Logger: logger}
	if err := retry.Do("postgres ping", db.Ping); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	pw := &PostgresWriter{db: db, logger: logger}
	if err := pw.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return pw, nil
}

func (pw *PostgresWriter) migrate() error {
	_, err := pw.db.Exec(`
		CREATE TABLE IF NOT EXISTS market_runs (
			run_id         UUID PRIMARY KEY,
			generated_at   TIMESTAMPTZ NOT NULL,
			country_filter TEXT        NOT NULL DEFAULT '',
			total_listings INTEGER     NOT NULL DEFAULT 0,
			sale_listings  INTEGER     NOT NULL DEFAULT 0,
			rent_listings  INTEGER     NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS yield_results (
			id               SERIAL PRIMARY KEY,
			run_id           UUID    NOT NULL REFERENCES market_runs(run_id) ON DELETE CASCADE,
			country          TEXT    NOT NULL,
			location         TEXT    NOT NULL,
			sale_price_usd   NUMERIC(18,2) NOT NULL,
			rent_price_usd   NUMERIC(18,2) NOT NULL,
			annual_yield_pct NUMERIC(8,4)  NOT NULL,
			method           VARCHAR(20)   NOT NULL
		);

		CREATE TABLE IF NOT EXISTS gap_results (
			id            SERIAL PRIMARY KEY,
			run_id        UUID NOT NULL REFERENCES market_runs(run_id) ON DELETE CASCADE,
			country       TEXT NOT NULL,
			location      TEXT NOT NULL,
			gap_score     DOUBLE PRECISION NOT NULL,
			supply_count  INTEGER NOT NULL,
			avg_price_usd NUMERIC(18,2) NOT NULL
		);

		CREATE TABLE IF NOT EXISTS mei_results (
			id                   SERIAL PRIMARY KEY,
			run_id               UUID NOT NULL REFERENCES market_runs(run_id) ON DELETE CASCADE,
			country              TEXT NOT NULL,
			location             TEXT NOT NULL,
			mei_score            DOUBLE PRECISION NOT NULL,
			search_volume_index  DOUBLE PRECISION NOT NULL,
			interest_density     DOUBLE PRECISION NOT NULL,
			median_price_per_sqm DOUBLE PRECISION NOT NULL,
			supply_count         INTEGER NOT NULL,
			interpretation       VARCHAR(30) NOT NULL
		);

		CREATE TABLE IF NOT EXISTS hotspots (
			id                   SERIAL PRIMARY KEY,
			run_id               UUID NOT NULL REFERENCES market_runs(run_id) ON DELETE CASCADE,
			country              TEXT NOT NULL,
			location             TEXT NOT NULL,
			median_price_per_sqm DOUBLE PRECISION NOT NULL,
			listings_count       INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_yield_results_run ON yield_results(run_id);
		CREATE INDEX IF NOT EXISTS idx_gap_results_run   ON gap_results(run_id);
		CREATE INDEX IF NOT EXISTS idx_mei_results_run   ON mei_results(run_id);
		CREATE INDEX IF NOT EXISTS idx_hotspots_run      ON hotspots(run_id);
	`)
	return err
}

// Write stores the run header and every ranking row in one transaction.
func (pw *PostgresWriter) Write(r *models.MarketReport) error {
	tx, err := pw.db.Begin()
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
		INSERT INTO market_runs (run_id, generated_at, country_filter, total_listings, sale_listings, rent_listings)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, r.RunID, r.GeneratedAt, r.CountryFilter, r.TotalListings, r.SaleListings, r.RentListings); err != nil {
		return fmt.Errorf("postgres: insert run: %w", err)
	}

	tables := []struct {
		name    string
		columns []string
		rows    [][]any
	}{
		{"yield_results", []string{"run_id", "country", "location", "sale_price_usd", "rent_price_usd", "annual_yield_pct", "method"}, yieldRows(r)},
		{"gap_results", []string{"run_id", "country", "location", "gap_score", "supply_count", "avg_price_usd"}, gapRows(r)},
		{"mei_results", []string{"run_id", "country", "location", "mei_score", "search_volume_index", "interest_density", "median_price_per_sqm", "supply_count", "interpretation"}, meiRows(r)},
		{"hotspots", []string{"run_id", "country", "location", "median_price_per_sqm", "listings_count"}, hotspotRows(r)},
	}
	for _, t := range tables {
		for i := 0; i < len(t.rows); i += batchSize {
			end := i + batchSize
			if end > len(t.rows) {
				end = len(t.rows)
			}
			query, args := insertBatch(t.name, t.columns, t.rows[i:end])
			if _, err := tx.Exec(query, args...); err != nil {
				return fmt.Errorf("postgres: insert %s: %w", t.name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	pw.logger.Info("[postgres] Stored run %s (%d yields, %d gaps, %d MEI rows, %d hotspots)",
		r.RunID, len(r.Yields), len(r.Gaps), len(r.MEI), len(r.Hotspots))
	return nil
}

// insertBatch builds a multi-row INSERT with positional placeholders.
func insertBatch(table string, columns []string, rows [][]any) (string, []any) {
	valueStrings := make([]string, 0, len(rows))
	valueArgs := make([]any, 0, len(rows)*len(columns))

	for idx, row := range rows {
		base := idx * len(columns)
		ph := make([]string, len(columns))
		for j := range columns {
			ph[j] = fmt.Sprintf("$%d", base+j+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(ph, ",")+")")
		valueArgs = append(valueArgs, row...)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		table, strings.Join(columns, ", "), strings.Join(valueStrings, ","))
	return query, valueArgs
}

func yieldRows(r *models.MarketReport) [][]any {
	out := make([][]any, 0, len(r.Yields))
	for _, y := range r.Yields {
		out = append(out, []any{r.RunID, y.Country, y.Location, y.SalePriceUSD, y.RentPriceUSD, y.AnnualYieldPct, string(y.Method)})
	}
	return out
}

func gapRows(r *models.MarketReport) [][]any {
	out := make([][]any, 0, len(r.Gaps))
	for _, g := range r.Gaps {
		out = append(out, []any{r.RunID, g.Country, g.Location, g.GapScore, g.SupplyCount, g.AvgPriceUSD})
	}
	return out
}

func meiRows(r *models.MarketReport) [][]any {
	out := make([][]any, 0, len(r.MEI))
	for _, m := range r.MEI {
		out = append(out, []any{r.RunID, m.Country, m.Location, m.MEIScore, m.SearchVolumeIndex,
			m.InterestDensity, m.MedianPricePerSqm, m.SupplyCount, m.Interpretation})
	}
	return out
}

func hotspotRows(r *models.MarketReport) [][]any {
	out := make([][]any, 0, len(r.Hotspots))
	for _, h := range r.Hotspots {
		out = append(out, []any{r.RunID, h.Country, h.Location, h.MedianPricePerSqm, h.ListingsCount})
	}
	return out
}

// FetchYields retrieves the stored yield ranking of one run, highest yield first.
func (pw *PostgresWriter) FetchYields(runID string) ([]models.YieldResult, error) {
	rows, err := pw.db.Query(`
		SELECT country, location, sale_price_usd, rent_price_usd, annual_yield_pct, method
		FROM yield_results
		WHERE run_id = $1
		ORDER BY annual_yield_pct DESC, id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch yields: %w", err)
	}
	defer rows.Close()

	var out []models.YieldResult
	for rows.Next() {
		var y models.YieldResult
		var method string
		if err := rows.Scan(&y.Country, &y.Location, &y.SalePriceUSD, &y.RentPriceUSD, &y.AnnualYieldPct, &method); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		y.Method = models.YieldMethod(method)
		out = append(out, y)
	}
	return out, rows.Err()
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}
