package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"respcare-monitor/internal/observability/metrics"
	vitals "respcare-monitor/internal/vitals/domain"
)

// ErrPersist wraps failures reported by the persistence collaborator.
var ErrPersist = errors.New("vitals store: persist failed")

// Persistence loads and saves the full observation collection.
type Persistence interface {
	Load(ctx context.Context) ([]vitals.Observation, error)
	Save(ctx context.Context, observations []vitals.Observation) error
}

// Store is the append-only observation collection. Reads are served from an
// in-memory snapshot that only advances after a successful save.
type Store struct {
	mu      sync.RWMutex
	items   []vitals.Observation
	persist Persistence
	backend string
	logger  *zap.Logger
}

// StoreOption customizes a store.
type StoreOption func(*Store)

// WithLogger assigns a logger.
func WithLogger(logger *zap.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithBackendName labels persistence metrics.
func WithBackendName(name string) StoreOption {
	return func(s *Store) {
		if name != "" {
			s.backend = name
		}
	}
}

// OpenStore loads the existing collection from persist.
func OpenStore(ctx context.Context, persist Persistence, opts ...StoreOption) (*Store, error) {
	if persist == nil {
		return nil, errors.New("vitals store: nil persistence")
	}
	s := &Store{persist: persist, backend: "unknown", logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	loaded, err := persist.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("vitals store: load: %w", err)
	}
	s.items = vitals.CloneAll(loaded)
	s.logger.Info("observation store opened",
		zap.String("backend", s.backend),
		zap.Int("observations", len(s.items)),
	)
	return s, nil
}

// Append persists the collection including o and then exposes it to readers.
// On failure the snapshot is left unchanged.
func (s *Store) Append(ctx context.Context, o vitals.Observation) error {
	if s == nil {
		return errors.New("vitals store: nil store")
	}
	if err := o.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]vitals.Observation, len(s.items), len(s.items)+1)
	copy(next, s.items)
	next = append(next, o.Clone())

	start := time.Now()
	if err := s.persist.Save(ctx, vitals.CloneAll(next)); err != nil {
		metrics.ObservePersist(s.backend, metrics.ResultError, time.Since(start))
		s.logger.Error("observation save failed",
			zap.String("backend", s.backend),
			zap.String("type", string(o.Type)),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	metrics.ObservePersist(s.backend, metrics.ResultSuccess, time.Since(start))
	s.items = next
	return nil
}

// AppendAll persists a batch with a single save. Either every observation is
// stored or none is.
func (s *Store) AppendAll(ctx context.Context, batch []vitals.Observation) error {
	if s == nil {
		return errors.New("vitals store: nil store")
	}
	if len(batch) == 0 {
		return nil
	}
	for _, o := range batch {
		if err := o.Validate(); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]vitals.Observation, len(s.items), len(s.items)+len(batch))
	copy(next, s.items)
	next = append(next, vitals.CloneAll(batch)...)

	start := time.Now()
	if err := s.persist.Save(ctx, vitals.CloneAll(next)); err != nil {
		metrics.ObservePersist(s.backend, metrics.ResultError, time.Since(start))
		s.logger.Error("observation batch save failed",
			zap.String("backend", s.backend),
			zap.Int("batch", len(batch)),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	metrics.ObservePersist(s.backend, metrics.ResultSuccess, time.Since(start))
	s.items = next
	return nil
}

// All returns every observation in insertion order.
func (s *Store) All() []vitals.Observation {
	if s == nil {
		return []vitals.Observation{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return vitals.CloneAll(s.items)
}

// OfType returns observations of signal in insertion order.
func (s *Store) OfType(signal vitals.SignalType) []vitals.Observation {
	if s == nil {
		return []vitals.Observation{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return vitals.OfType(s.items, signal)
}

// Len returns the number of stored observations.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
