// Package sources reads the raw country datasets and maps them onto the canonical listing row.
package sources

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"property-intel/currency"
	"property-intel/models"
	"property-intel/utils"
)

// sqftPerSqm converts square feet to square meters.
const sqftPerSqm = 10.764

// Adapter loads one raw source into canonical listings.
type Adapter interface {
	Name() string
	Country() string
	Currency() string
	Transaction() models.TransactionType
	Load() []*models.Listing
}

// Source describes a raw dataset and how its rows are tagged.
type Source struct {
	Name        string
	File        string
	Country     string
	Currency    string
	Transaction models.TransactionType
	RequireArea bool
}

// RowMapper maps a header-keyed record onto a RawListing. The table is passed so
// mappers can branch on which columns exist.
type RowMapper func(t *Table, rec Record) *models.RawListing

// TableAdapter is an Adapter over a single csv/xlsx file.
type TableAdapter struct {
	source  Source
	dataDir string
	mapRow  RowMapper
	cleaner *Cleaner
	logger  *utils.Logger
}

// NewTableAdapter creates an adapter reading src.File under dataDir.
func NewTableAdapter(src Source, dataDir string, mapRow RowMapper, rates *currency.Rates, logger *utils.Logger) *TableAdapter {
	return &TableAdapter{
		source:  src,
		dataDir: dataDir,
		mapRow:  mapRow,
		cleaner: NewCleaner(rates, logger),
		logger:  logger,
	}
}

func (a *TableAdapter) Name() string                        { return a.source.Name }
func (a *TableAdapter) Country() string                     { return a.source.Country }
func (a *TableAdapter) Currency() string                    { return a.source.Currency }
func (a *TableAdapter) Transaction() models.TransactionType { return a.source.Transaction }

// Load reads the source. A missing or unreadable file yields an empty result.
func (a *TableAdapter) Load() []*models.Listing {
	listings, err := a.Read()
	if err != nil {
		if errors.Is(err, ErrMissingSource) {
			a.logger.Warn("[%s] source not found, skipping: %v", a.source.Name, err)
		} else {
			a.logger.Error("[%s] failed to load source: %v", a.source.Name, err)
		}
		return nil
	}
	return listings
}

// Read is Load with the error surfaced.
func (a *TableAdapter) Read() ([]*models.Listing, error) {
	table, err := ReadTable(a.resolvePath())
	if err != nil {
		return nil, err
	}

	raw := make([]*models.RawListing, 0, len(table.Rows))
	for _, rec := range table.Rows {
		r := a.mapRow(table, rec)
		if r == nil {
			continue
		}
		r.Source = a.source.Name
		raw = append(raw, r)
	}
	a.logger.Debug("[%s] read %d rows from %s", a.source.Name, len(raw), a.source.File)
	return a.cleaner.Clean(a.source, raw)
}

// resolvePath returns the configured file, or an .xlsx sibling when only that exists.
func (a *TableAdapter) resolvePath() string {
	path := filepath.Join(a.dataDir, a.source.File)
	if _, err := os.Stat(path); err == nil {
		return path
	}
	alt := strings.TrimSuffix(path, filepath.Ext(path)) + ".xlsx"
	if _, err := os.Stat(alt); err == nil {
		return alt
	}
	return path
}

var locationDelimiters = []string{" in ", " In ", " at ", " At ", " near ", " Near ", " in: "}

// ExtractLocation pulls a location out of a free-text listing title. The first delimiter
// present wins; the text after its last occurrence is cut at "|" and trimmed. When nothing
// matches, fallback is used if non-empty, else "Unknown".
func ExtractLocation(title, fallback string) string {
	for _, d := range locationDelimiters {
		if i := strings.LastIndex(title, d); i >= 0 {
			loc := title[i+len(d):]
			if j := strings.Index(loc, "|"); j >= 0 {
				loc = loc[:j]
			}
			return strings.TrimSpace(loc)
		}
	}
	if fb := strings.TrimSpace(fallback); fb != "" {
		return fb
	}
	return models.UnknownLocation
}
