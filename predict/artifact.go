package predict

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Artifact kinds.
const (
	KindPrice  = "price"
	KindRental = "rental"
	KindYield  = "yield"
)

// TrainReport summarises one training run.
type TrainReport struct {
	Kind      string  `json:"kind"`
	Rows      int     `json:"rows"`
	TrainRows int     `json:"train_rows"`
	TestRows  int     `json:"test_rows"`
	Rounds    int     `json:"rounds"`
	RMSE      float64 `json:"rmse"`
	R2        float64 `json:"r2"`
}

// Artifact is the persisted form of a trained model.
type Artifact struct {
	Kind      string           `json:"kind"`
	TrainedAt time.Time        `json:"trained_at"`
	Report    TrainReport      `json:"report"`
	Ensemble  *Ensemble        `json:"ensemble"`
	Price     *PriceEncoding   `json:"price_encoding,omitempty"` // price and rental models
	Yield     *YieldImputation `json:"yield_imputation,omitempty"`
}

// state holds the Unloaded/Loaded model state shared by all models.
type state struct {
	kind string
	mu   sync.RWMutex
	art  *Artifact
}

// Loaded reports whether a trained or restored artifact backs the model.
func (s *state) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.art != nil
}

// Report returns the training report of the loaded artifact.
func (s *state) Report() (TrainReport, error) {
	art, err := s.current()
	if err != nil {
		return TrainReport{}, err
	}
	return art.Report, nil
}

// MarshalArtifact serialises the loaded artifact.
func (s *state) MarshalArtifact() ([]byte, error) {
	art, err := s.current()
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(art)
	if err != nil {
		return nil, fmt.Errorf("predict: marshal %s artifact: %w", s.kind, err)
	}
	return data, nil
}

// LoadArtifact restores a previously marshalled artifact of the same kind.
func (s *state) LoadArtifact(data []byte) error {
	var art Artifact
	if err := json.Unmarshal(data, &art); err != nil {
		return fmt.Errorf("predict: decode %s artifact: %w", s.kind, err)
	}
	if art.Kind != s.kind {
		return fmt.Errorf("predict: artifact kind %q, want %q", art.Kind, s.kind)
	}
	if art.Ensemble == nil || ((s.kind == KindPrice || s.kind == KindRental) && art.Price == nil) || (s.kind == KindYield && art.Yield == nil) {
		return fmt.Errorf("predict: %s artifact is incomplete", s.kind)
	}
	s.set(&art)
	return nil
}

// EnsureLoaded restores the latest artifact from store when the model is unloaded.
// Any store failure surfaces as ErrModelUnavailable.
func (s *state) EnsureLoaded(store ArtifactStore) error {
	if s.Loaded() {
		return nil
	}
	data, err := store.LatestArtifact(s.kind)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrModelUnavailable, s.kind, err)
	}
	if err := s.LoadArtifact(data); err != nil {
		return fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}
	return nil
}

func (s *state) current() (*Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.art == nil {
		return nil, fmt.Errorf("%w: %s model not trained or loaded", ErrModelUnavailable, s.kind)
	}
	return s.art, nil
}

func (s *state) set(art *Artifact) {
	s.mu.Lock()
	s.art = art
	s.mu.Unlock()
}
