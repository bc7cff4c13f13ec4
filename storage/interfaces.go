// Package storage persists market reports and trained model artifacts.
package storage

import "property-intel/models"

// ReportWriter is the interface any report sink must satisfy.
type ReportWriter interface {
	Write(report *models.MarketReport) error
	Close() error
}
