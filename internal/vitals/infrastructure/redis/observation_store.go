package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"

	vitals "respcare-monitor/internal/vitals/domain"
)

const defaultKeyPrefix = "respcare:observations:"

// ObservationStore keeps one patient's observation log as a JSON document
// under a single key.
type ObservationStore struct {
	client *redis.Client
	key    string
}

// Option configures the store.
type Option func(*ObservationStore)

// WithKeyPrefix overrides the key prefix; the patient id is appended.
func WithKeyPrefix(prefix string) Option {
	return func(s *ObservationStore) {
		if prefix != "" {
			s.key = prefix
		}
	}
}

// NewObservationStore constructs a store for patientID.
func NewObservationStore(client *redis.Client, patientID string, opts ...Option) *ObservationStore {
	s := &ObservationStore{client: client, key: defaultKeyPrefix}
	for _, opt := range opts {
		opt(s)
	}
	s.key += patientID
	return s
}

// NewClient builds a go-redis client.
func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// Key returns the document key.
func (s *ObservationStore) Key() string { return s.key }

// Load returns the stored log, or an empty one when the key is absent.
func (s *ObservationStore) Load(ctx context.Context) ([]vitals.Observation, error) {
	if s == nil || s.client == nil {
		return nil, errors.New("observation redis: nil client")
	}
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return []vitals.Observation{}, nil
		}
		return nil, err
	}
	var out []vitals.Observation
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("observation redis: decode %s: %w", s.key, err)
	}
	if out == nil {
		out = []vitals.Observation{}
	}
	return out, nil
}

// Save overwrites the document with observations.
func (s *ObservationStore) Save(ctx context.Context, observations []vitals.Observation) error {
	if s == nil || s.client == nil {
		return errors.New("observation redis: nil client")
	}
	if observations == nil {
		observations = []vitals.Observation{}
	}
	payload, err := json.Marshal(observations)
	if err != nil {
		return fmt.Errorf("observation redis: encode: %w", err)
	}
	return s.client.Set(ctx, s.key, payload, 0).Err()
}
