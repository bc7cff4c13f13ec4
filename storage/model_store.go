package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrArtifactNotFound is returned when no artifact of the requested kind is stored.
var ErrArtifactNotFound = errors.New("storage: artifact not found")

// ModelArtifact is one serialised trained model.
type ModelArtifact struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Kind      string         `gorm:"column:kind;type:varchar(30);not null;index" json:"kind"`
	Rows      int            `gorm:"column:row_count" json:"rows"`
	RMSE      float64        `gorm:"column:rmse" json:"rmse"`
	R2        float64        `gorm:"column:r2" json:"r2"`
	Payload   datatypes.JSON `gorm:"column:payload;not null" json:"payload"`
	CreatedAt time.Time      `gorm:"column:created_at;index" json:"created_at"`
}

func (ModelArtifact) TableName() string {
	return "model_artifacts"
}

func (m *ModelArtifact) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// ArtifactMeta carries the training summary stored next to a payload.
type ArtifactMeta struct {
	Rows int
	RMSE float64
	R2   float64
}

// ModelStore keeps trained model artifacts in a sqlite database.
type ModelStore struct {
	db *gorm.DB
}

// NewModelStore opens (or creates) the sqlite database at path and migrates it.
// Use ":memory:" for a throwaway store.
func NewModelStore(path string) (*ModelStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("model store: create dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("model store: open: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("model store: handle: %w", err)
	}
	// sqlite allows one writer; an in-memory database exists per connection.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&ModelArtifact{}); err != nil {
		return nil, fmt.Errorf("model store: migrate: %w", err)
	}
	return &ModelStore{db: db}, nil
}

// SaveArtifact stores a serialised model and returns its ID.
func (s *ModelStore) SaveArtifact(kind string, payload []byte, meta ArtifactMeta) (uuid.UUID, error) {
	rec := &ModelArtifact{
		Kind:      kind,
		Rows:      meta.Rows,
		RMSE:      meta.RMSE,
		R2:        meta.R2,
		Payload:   datatypes.JSON(payload),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.db.Create(rec).Error; err != nil {
		return uuid.Nil, fmt.Errorf("model store: save %s: %w", kind, err)
	}
	return rec.ID, nil
}

// LatestArtifact returns the payload of the most recently saved artifact of kind.
func (s *ModelStore) LatestArtifact(kind string) ([]byte, error) {
	var rec ModelArtifact
	err := s.db.Where("kind = ?", kind).Order("created_at DESC").First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, kind)
	}
	if err != nil {
		return nil, fmt.Errorf("model store: latest %s: %w", kind, err)
	}
	return []byte(rec.Payload), nil
}

// History lists stored artifacts of kind, newest first, without payloads.
func (s *ModelStore) History(kind string) ([]ModelArtifact, error) {
	var recs []ModelArtifact
	err := s.db.Select("id", "kind", "row_count", "rmse", "r2", "created_at").
		Where("kind = ?", kind).Order("created_at DESC").Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("model store: history %s: %w", kind, err)
	}
	return recs, nil
}

// Close releases the database handle.
func (s *ModelStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
