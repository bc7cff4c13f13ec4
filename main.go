package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"property-intel/config"
	"property-intel/currency"
	"property-intel/loader"
	"property-intel/models"
	"property-intel/predict"
	"property-intel/services"
	"property-intel/storage"
	"property-intel/utils"
)

const auditFile = "model_audit.md"

// referenceUnit is valued in every country's first location after training.
var referenceUnit = models.PropertyFeatures{
	Bedrooms:     models.Float(2),
	Bathrooms:    models.Float(1),
	AreaSqm:      60,
	PropertyType: "Condo",
}

// trainable is satisfied by every predict model.
type trainable interface {
	Train() (*predict.TrainReport, error)
	EnsureLoaded(store predict.ArtifactStore) error
	MarshalArtifact() ([]byte, error)
}

func main() {
	cfg := config.Load()
	logger := utils.NewLoggerWithLevel(cfg.LogLevel)

	logger.Info("=== Property Market Pipeline starting ===")
	logger.Info("Config: data dir %s | concurrency %d | country filter %q | retrain %t",
		cfg.DataDir, cfg.MaxConcurrency, cfg.CountryFilter, cfg.RetrainModels)

	rates, err := currency.LoadFile(cfg.ExchangeRatesFile)
	if err != nil {
		logger.Error("Failed to load exchange rates: %v", err)
		os.Exit(1)
	}

	data := loader.NewDefault(cfg.DataDir, rates, cfg.MaxConcurrency, logger)
	rows := data.LoadUnified()
	if len(rows) == 0 {
		logger.Error("No listings were loaded from %s. Exiting.", cfg.DataDir)
		os.Exit(1)
	}
	for _, country := range loader.Countries(rows) {
		c := data.Capability(country)
		logger.Debug("[main] %s: %d locations, sale=%t rent=%t",
			country, len(loader.Locations(rows, country)), c.HasSaleData, c.HasRentalData)
	}

	store, err := storage.NewModelStore(cfg.ModelDBPath)
	if err != nil {
		logger.Error("Failed to open model store: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	priceModel := predict.NewPriceModel(data, logger)
	rentalModel := predict.NewRentalModel(data, logger)
	yieldModel := predict.NewYieldProxyModel(data, logger)
	prepareModel(predict.KindPrice, priceModel, store, cfg.RetrainModels, logger)
	prepareModel(predict.KindRental, rentalModel, store, cfg.RetrainModels, logger)
	prepareModel(predict.KindYield, yieldModel, store, cfg.RetrainModels, logger)

	if priceModel.Loaded() {
		valuator := services.NewValuator(data, priceModel, rentalModel, yieldModel, logger)
		valueReferenceUnits(valuator, rows, logger)
	}

	csvWriter, err := storage.NewCSVWriter(cfg.ReportDir)
	if err != nil {
		logger.Error("Failed to create CSV writer: %v", err)
		os.Exit(1)
	}
	defer csvWriter.Close()

	audit := predict.Audit(rows, cfg.AuditFolds)
	auditPath := filepath.Join(cfg.ReportDir, auditFile)
	if err := os.WriteFile(auditPath, []byte(predict.AuditMarkdown(audit)), 0644); err != nil {
		logger.Error("Failed to write audit: %v", err)
	} else {
		logger.Info("Model audit (%d countries) saved to %s", len(audit), auditPath)
	}

	insightSvc := services.NewInsightService(data, yieldModel, logger)
	report, err := insightSvc.Generate(context.Background(), cfg.CountryFilter)
	if err != nil {
		logger.Error("Report generation failed: %v", err)
		os.Exit(1)
	}
	insightSvc.Print(report)

	if err := csvWriter.Write(report); err != nil {
		logger.Error("CSV write failed: %v", err)
	} else {
		logger.Info("Rankings saved to %s", csvWriter.Dir())
	}

	if cfg.PostgresEnabled {
		pgWriter, err := storage.NewPostgresWriter(cfg.DSN(), cfg.MaxRetries, logger)
		if err != nil {
			logger.Error("Failed to connect to PostgreSQL: %v", err)
			logger.Error("Make sure Docker is running: docker compose up -d")
		} else {
			defer pgWriter.Close()
			if err := pgWriter.Write(report); err != nil {
				logger.Error("PostgreSQL write failed: %v", err)
			} else if stored, err := pgWriter.FetchYields(report.RunID); err != nil {
				logger.Error("Failed to read back run %s: %v", report.RunID, err)
			} else {
				logger.Info("Run %s stored in PostgreSQL (%d yield rows)", report.RunID, len(stored))
			}
		}
	}

	fmt.Printf("  Done. Run %s | Rankings → %s | Models → %s\n\n",
		report.RunID, cfg.ReportDir, cfg.ModelDBPath)
}

// prepareModel restores the latest stored artifact unless retraining is requested,
// otherwise trains and stores a fresh one. Failures leave the model unloaded.
func prepareModel(kind string, m trainable, store *storage.ModelStore, retrain bool, logger *utils.Logger) {
	if !retrain {
		err := m.EnsureLoaded(store)
		if err == nil {
			logger.Info("[main] %s model restored from store", kind)
			return
		}
		if !errors.Is(err, storage.ErrArtifactNotFound) {
			logger.Warn("[main] %s model restore failed, retraining: %v", kind, err)
		}
	}

	report, err := m.Train()
	if err != nil {
		if errors.Is(err, predict.ErrInsufficientData) {
			logger.Warn("[main] %s model not trained: %v", kind, err)
		} else {
			logger.Error("[main] %s model training failed: %v", kind, err)
		}
		return
	}

	payload, err := m.MarshalArtifact()
	if err != nil {
		logger.Error("[main] %s model serialise failed: %v", kind, err)
		return
	}
	id, err := store.SaveArtifact(kind, payload, storage.ArtifactMeta{Rows: report.Rows, RMSE: report.RMSE, R2: report.R2})
	if err != nil {
		logger.Error("[main] %s model save failed: %v", kind, err)
		return
	}
	logger.Info("[main] %s model trained on %d rows (R² %.3f), stored as %s", kind, report.Rows, report.R2, id)
}

// valueReferenceUnits logs a valuation of referenceUnit in each country's first location.
func valueReferenceUnits(v *services.Valuator, rows []*models.Listing, logger *utils.Logger) {
	for _, country := range loader.Countries(rows) {
		locations := loader.Locations(rows, country)
		if len(locations) == 0 {
			continue
		}
		f := referenceUnit
		f.Country = country
		f.Location = locations[0]

		val, err := v.Estimate(f)
		if err != nil {
			logger.Warn("[main] reference valuation for %s/%s failed: %v", country, f.Location, err)
			continue
		}
		logger.Info("[main] 60 sqm condo in %s, %s: $%.0f (%s %.0f), rent $%.0f/mo via %s, yield %.2f%%",
			f.Location, country, val.PriceUSD, val.Currency, val.PriceLocal,
			val.MonthlyRentUSD, val.RentEstimationMethod, val.AnnualYieldPct)
	}
}
