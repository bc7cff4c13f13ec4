package sources

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"property-intel/currency"
	"property-intel/models"
	"property-intel/utils"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestExtractLocation(t *testing.T) {
	tests := []struct {
		title, fallback, want string
	}{
		{"3BR House for sale in Quezon City | Lamudi", "", "Quezon City"},
		{"Townhouse in Pasig in Metro Manila", "", "Metro Manila"},
		{"Lot At Cebu", "", "Cebu"},
		{"Villa near Tagaytay|ref 12", "", "Tagaytay"},
		{"Brand new unit", "Ayala Alabang", "Ayala Alabang"},
		{"Brand new unit", "", models.UnknownLocation},
		{"Brand new unit", "   ", models.UnknownLocation},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractLocation(tt.title, tt.fallback), tt.title)
	}
}

func TestThailandAdapter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ThailandFile, ""+
		"Property Type, Location ,Area (sq. ft.),Bedrooms,Bathrooms,Price (THB)\n"+
		"Condo,Sukhumvit,1076.4,2,2,\"5,000,000\"\n"+
		"Condo,Silom,,1,1,3000000\n"+
		"Condo,,538.2,1,1,2000000\n")

	a := NewThailand(dir, currency.Default(), utils.NewNopLogger())
	got := a.Load()

	require.Len(t, got, 2)
	first := got[0]
	assert.Equal(t, "Thailand", first.Country)
	assert.Equal(t, "Sukhumvit", first.Location)
	assert.InDelta(t, 100.0, *first.AreaSqm, 1e-9)
	assert.InDelta(t, 145000.0, first.PriceUSD, 1e-6)
	assert.Equal(t, 2.0, *first.Bedrooms)
	assert.Equal(t, "Condo", first.PropertyType)
	assert.Equal(t, models.UnknownLocation, got[1].Location)
}

func TestPhilippinesAdapterTitleExtraction(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, PhilippinesFile, ""+
		"Title,Subdivision name,Price,Bedrooms,Bath,Floor_area\n"+
		"House for sale in Makati | Lamudi,,\"12,000,000\",3,2,120\n"+
		"Brand new house,Ayala Westgrove,8000000,4,3,\n"+
		"Brand new house,,7000000,,,\n"+
		"Broken,,,,,\n")

	got := NewPhilippines(dir, currency.Default(), utils.NewNopLogger()).Load()
	require.Len(t, got, 3)

	assert.Equal(t, "Makati", got[0].Location)
	assert.Equal(t, 2.0, *got[0].Bathrooms)
	assert.InDelta(t, 120.0, *got[0].AreaSqm, 1e-9)
	assert.Equal(t, "House", got[0].PropertyType)

	assert.Equal(t, "Ayala Westgrove", got[1].Location)
	assert.Nil(t, got[1].AreaSqm)

	assert.Equal(t, models.UnknownLocation, got[2].Location)
	assert.Nil(t, got[2].Bedrooms)
}

func TestPhilippinesAdapterLocationColumn(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, PhilippinesFile, ""+
		"Title,Location,Price,Bathrooms\n"+
		"House in Cebu,Davao,5000000,2\n")

	got := NewPhilippines(dir, currency.Default(), utils.NewNopLogger()).Load()
	require.Len(t, got, 1)
	assert.Equal(t, "Davao", got[0].Location)
	assert.Equal(t, 2.0, *got[0].Bathrooms)
}

func TestMalaysiaAdapter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, MalaysiaFile, ""+
		"Township,Area,State,Tenure,Type,Median_Price,Median_PSF,Transactions\n"+
		"T1,Cheras,Kuala Lumpur,Freehold,Terrace House,538200,500,10\n"+
		"T2,Ampang,Selangor,Freehold,Condominium,400000,,4\n")

	got := NewMalaysia(dir, currency.Default(), utils.NewNopLogger()).Load()
	require.Len(t, got, 2)
	assert.Equal(t, "Cheras", got[0].Location)
	assert.Equal(t, "Terrace House", got[0].PropertyType)
	assert.InDelta(t, 100.0, *got[0].AreaSqm, 1e-9)
	assert.Nil(t, got[0].Bedrooms)
	assert.Nil(t, got[0].Bathrooms)
	assert.Nil(t, got[1].AreaSqm)
	assert.Equal(t, "MYR", got[1].Currency)
}

func TestVietnamAdapters(t *testing.T) {
	dir := t.TempDir()
	body := "location,area_m2,bedrooms,bathrooms,price_million_vnd\n" +
		"District 1,50,2,1,2000\n" +
		"District 2,,2,1,3000\n"
	writeFile(t, dir, VietnamBuyingFile, body)
	writeFile(t, dir, VietnamRentalFile, body)

	rates := currency.Default()
	buy := NewVietnamBuying(dir, rates, utils.NewNopLogger()).Load()
	rent := NewVietnamRental(dir, rates, utils.NewNopLogger()).Load()

	require.Len(t, buy, 1)
	require.Len(t, rent, 1)
	assert.Equal(t, models.Sale, buy[0].TransactionType)
	assert.Equal(t, models.Rent, rent[0].TransactionType)
	assert.InDelta(t, 2_000_000_000.0, buy[0].PriceLocal, 1e-3)
	assert.InDelta(t, 78000.0, buy[0].PriceUSD, 1e-6)
	assert.Equal(t, "House/Apartment", rent[0].PropertyType)
}

func TestMissingSourceIsEmpty(t *testing.T) {
	a := NewThailand(t.TempDir(), currency.Default(), utils.NewNopLogger())
	assert.Empty(t, a.Load())

	_, err := a.Read()
	assert.ErrorIs(t, err, ErrMissingSource)
}

func TestUnreadableSourceIsEmpty(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "house_buying_dec29th_2025.xlsx", "\x8f\x02not a zip archive\x00\xff")
	writeFile(t, dir, ThailandFile, "")

	for _, a := range []*TableAdapter{
		NewVietnamBuying(dir, currency.Default(), utils.NewNopLogger()),
		NewThailand(dir, currency.Default(), utils.NewNopLogger()),
	} {
		assert.Empty(t, a.Load(), a.Name())

		_, err := a.Read()
		require.Error(t, err, a.Name())
		assert.NotErrorIs(t, err, ErrMissingSource, a.Name())
	}
}

func TestXLSXMatchesCSV(t *testing.T) {
	header := []string{"location", "area_m2", "bedrooms", "bathrooms", "price_million_vnd"}
	rows := [][]string{
		{"District 1", "50", "2", "1", "2000"},
		{"Thu Duc", "80.5", "3", "2", "4500"},
	}

	csvDir := t.TempDir()
	content := "location,area_m2,bedrooms,bathrooms,price_million_vnd\n"
	for _, r := range rows {
		content += r[0] + "," + r[1] + "," + r[2] + "," + r[3] + "," + r[4] + "\n"
	}
	writeFile(t, csvDir, VietnamBuyingFile, content)

	xlsxDir := t.TempDir()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	all := append([][]string{header}, rows...)
	for i, r := range all {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		vals := make([]interface{}, len(r))
		for j, v := range r {
			vals[j] = v
		}
		require.NoError(t, f.SetSheetRow(sheet, cell, &vals))
	}
	require.NoError(t, f.SaveAs(filepath.Join(xlsxDir, "house_buying_dec29th_2025.xlsx")))
	require.NoError(t, f.Close())

	rates := currency.Default()
	fromCSV := NewVietnamBuying(csvDir, rates, utils.NewNopLogger()).Load()
	fromXLSX := NewVietnamBuying(xlsxDir, rates, utils.NewNopLogger()).Load()

	require.Len(t, fromCSV, 2)
	assert.Equal(t, fromCSV, fromXLSX)
}

func TestReadTableSkipsBlankRows(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "t.csv", "\ufeffa, b\n1,2\n,\n3\n")

	tbl, err := ReadTable(filepath.Join(dir, "t.csv"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tbl.Headers)
	assert.True(t, tbl.Has("b"))
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, "", tbl.Rows[1].Get("b"))
	assert.Equal(t, "3", tbl.Rows[1].Get("a"))
}

func TestDefaultsPriorityOrder(t *testing.T) {
	adapters := Defaults(t.TempDir(), currency.Default(), utils.NewNopLogger())
	names := make([]string, len(adapters))
	for i, a := range adapters {
		names[i] = a.Name()
	}
	assert.Equal(t, []string{"thailand", "philippines", "malaysia", "vietnam_buying", "vietnam_rental"}, names)
}
