package sources

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	// ErrMissingSource means the raw file for an adapter does not exist.
	ErrMissingSource = errors.New("sources: missing source")
	// ErrMalformedRow marks a row that could not be turned into a listing.
	ErrMalformedRow = errors.New("sources: malformed row")
)

// Record is one data row keyed by trimmed header name.
type Record map[string]string

// Get returns the first non-empty value among the given column names.
func (r Record) Get(cols ...string) string {
	for _, c := range cols {
		if v := strings.TrimSpace(r[c]); v != "" {
			return v
		}
	}
	return ""
}

// Table is a raw tabular source.
type Table struct {
	Headers []string
	Rows    []Record
	index   map[string]struct{}
}

// Has reports whether any of the given columns exists in the header row.
func (t *Table) Has(cols ...string) bool {
	for _, c := range cols {
		if _, ok := t.index[c]; ok {
			return true
		}
	}
	return false
}

// ReadTable reads a .csv or .xlsx file. For .xlsx the first sheet is used.
func ReadTable(path string) (*Table, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingSource, path)
		}
		return nil, fmt.Errorf("sources: stat %q: %w", path, err)
	}

	var rows [][]string
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		rows, err = readXLSX(path)
	default:
		rows, err = readCSV(path)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sources: %q has no header row", path)
	}
	return newTable(rows), nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sources: open %q: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("sources: parse %q: %w", path, err)
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("sources: open %q: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("sources: %q has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("sources: read sheet %q of %q: %w", sheets[0], path, err)
	}
	return rows, nil
}

func newTable(rows [][]string) *Table {
	headers := make([]string, len(rows[0]))
	index := make(map[string]struct{}, len(headers))
	for i, h := range rows[0] {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		headers[i] = h
		index[h] = struct{}{}
	}

	t := &Table{Headers: headers, index: index}
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		rec := make(Record, len(headers))
		for i, h := range headers {
			if i < len(row) {
				rec[h] = row[i]
			}
		}
		t.Rows = append(t.Rows, rec)
	}
	return t
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
