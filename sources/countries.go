package sources

import (
	"property-intel/currency"
	"property-intel/models"
	"property-intel/utils"
)

// Raw file names, relative to the data directory.
const (
	ThailandFile       = "Bangkok Housing Condo Apartment Prices.csv"
	PhilippinesFile    = "Housing Prices Philippines Lamudi.csv"
	MalaysiaFile       = "malaysia_house_price_data_2025.csv"
	VietnamBuyingFile  = "house_buying_dec29th_2025.csv"
	VietnamRentalFile  = "house_rental_dec29th_2025.csv"
	vietnamPriceFactor = 1_000_000
)

// NewThailand reads Bangkok condo/apartment sale listings priced in THB with areas in sq ft.
func NewThailand(dataDir string, rates *currency.Rates, logger *utils.Logger) *TableAdapter {
	src := Source{
		Name:        "thailand",
		File:        ThailandFile,
		Country:     "Thailand",
		Currency:    "THB",
		Transaction: models.Sale,
		RequireArea: true,
	}
	return NewTableAdapter(src, dataDir, mapThailand, rates, logger)
}

func mapThailand(_ *Table, rec Record) *models.RawListing {
	return &models.RawListing{
		Location:     rec.Get("Location"),
		RawPrice:     rec.Get("Price (THB)"),
		RawArea:      rec.Get("Area (sq. ft.)"),
		AreaDivisor:  sqftPerSqm,
		RawBedrooms:  rec.Get("Bedrooms"),
		RawBathrooms: rec.Get("Bathrooms"),
		PropertyType: rec.Get("Property Type"),
	}
}

// NewPhilippines reads Lamudi house sale listings priced in PHP.
func NewPhilippines(dataDir string, rates *currency.Rates, logger *utils.Logger) *TableAdapter {
	src := Source{
		Name:        "philippines",
		File:        PhilippinesFile,
		Country:     "Philippines",
		Currency:    "PHP",
		Transaction: models.Sale,
	}
	return NewTableAdapter(src, dataDir, mapPhilippines, rates, logger)
}

var philippinesAreaColumns = []string{"Floor area (m²)", "Floor area (mÂ²)", "Floor_area"}

func mapPhilippines(t *Table, rec Record) *models.RawListing {
	location := rec.Get("Location")
	if !t.Has("Location") {
		location = ExtractLocation(rec.Get("Title"), "")
		if models.IsUnknownLocation(location) {
			location = ExtractLocation("", rec.Get("Subdivision name"))
		}
	}
	return &models.RawListing{
		Location:     location,
		RawPrice:     rec.Get("Price"),
		RawArea:      rec.Get(philippinesAreaColumns...),
		RawBedrooms:  rec.Get("Bedrooms"),
		RawBathrooms: rec.Get("Bathrooms", "Bath"),
		PropertyType: "House",
	}
}

// NewMalaysia reads per-area median house prices in MYR. Area is derived from the
// median price per sq ft.
func NewMalaysia(dataDir string, rates *currency.Rates, logger *utils.Logger) *TableAdapter {
	src := Source{
		Name:        "malaysia",
		File:        MalaysiaFile,
		Country:     "Malaysia",
		Currency:    "MYR",
		Transaction: models.Sale,
	}
	return NewTableAdapter(src, dataDir, mapMalaysia, rates, logger)
}

func mapMalaysia(_ *Table, rec Record) *models.RawListing {
	return &models.RawListing{
		Location:     rec.Get("Area"),
		RawPrice:     rec.Get("Median_Price"),
		RawUnitPrice: rec.Get("Median_PSF"),
		AreaDivisor:  sqftPerSqm,
		PropertyType: rec.Get("Type"),
	}
}

// NewVietnamBuying reads Vietnamese sale listings priced in millions of VND.
func NewVietnamBuying(dataDir string, rates *currency.Rates, logger *utils.Logger) *TableAdapter {
	return newVietnam("vietnam_buying", VietnamBuyingFile, models.Sale, dataDir, rates, logger)
}

// NewVietnamRental reads Vietnamese monthly rental listings priced in millions of VND.
func NewVietnamRental(dataDir string, rates *currency.Rates, logger *utils.Logger) *TableAdapter {
	return newVietnam("vietnam_rental", VietnamRentalFile, models.Rent, dataDir, rates, logger)
}

func newVietnam(name, file string, tx models.TransactionType, dataDir string, rates *currency.Rates, logger *utils.Logger) *TableAdapter {
	src := Source{
		Name:        name,
		File:        file,
		Country:     "Vietnam",
		Currency:    "VND",
		Transaction: tx,
		RequireArea: true,
	}
	return NewTableAdapter(src, dataDir, mapVietnam, rates, logger)
}

func mapVietnam(_ *Table, rec Record) *models.RawListing {
	return &models.RawListing{
		Location:        rec.Get("location"),
		RawPrice:        rec.Get("price_million_vnd"),
		PriceMultiplier: vietnamPriceFactor,
		RawArea:         rec.Get("area_m2"),
		RawBedrooms:     rec.Get("bedrooms"),
		RawBathrooms:    rec.Get("bathrooms"),
		PropertyType:    "House/Apartment",
	}
}

// Defaults returns the built-in adapters in loader priority order.
func Defaults(dataDir string, rates *currency.Rates, logger *utils.Logger) []Adapter {
	return []Adapter{
		NewThailand(dataDir, rates, logger),
		NewPhilippines(dataDir, rates, logger),
		NewMalaysia(dataDir, rates, logger),
		NewVietnamBuying(dataDir, rates, logger),
		NewVietnamRental(dataDir, rates, logger),
	}
}
