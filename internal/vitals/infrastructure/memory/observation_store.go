package memory

import (
	"context"
	"sync"

	vitals "respcare-monitor/internal/vitals/domain"
)

// ObservationStore is an in-memory persistence for demo/testing.
type ObservationStore struct {
	mu    sync.RWMutex
	data  []vitals.Observation
	saves int
	fail  error
}

// NewObservationStore constructs a store seeded with initial.
func NewObservationStore(initial ...vitals.Observation) *ObservationStore {
	return &ObservationStore{data: vitals.CloneAll(initial)}
}

// Load returns a copy of the stored log.
func (s *ObservationStore) Load(ctx context.Context) ([]vitals.Observation, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	return vitals.CloneAll(s.data), nil
}

// Save replaces the stored log.
func (s *ObservationStore) Save(ctx context.Context, observations []vitals.Observation) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.data = vitals.CloneAll(observations)
	s.saves++
	return nil
}

// FailWith makes subsequent saves return err; nil restores normal behaviour.
func (s *ObservationStore) FailWith(err error) {
	s.mu.Lock()
	s.fail = err
	s.mu.Unlock()
}

// Saves reports the number of successful saves.
func (s *ObservationStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}
