package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"respcare-monitor/internal/storage/jsonfile"
	vitals "respcare-monitor/internal/vitals/domain"
)

// ErrPatientMismatch reports a record that belongs to another patient.
var ErrPatientMismatch = errors.New("observation file: patient mismatch")

// ObservationStore keeps one patient's observation log as a JSON array on
// disk. Each save replaces the whole document atomically.
type ObservationStore struct {
	mu        sync.Mutex
	path      string
	patientID string
	perm      os.FileMode
}

// NewObservationStore constructs a store at path scoped to patientID. A
// document holding any other patient's records fails to load rather than
// being overwritten by the next save. An empty patientID disables the check.
func NewObservationStore(path, patientID string) *ObservationStore {
	return &ObservationStore{path: path, patientID: patientID, perm: 0o600}
}

func (s *ObservationStore) checkPatient(observations []vitals.Observation) error {
	if s.patientID == "" {
		return nil
	}
	for i, o := range observations {
		if o.PatientID != s.patientID {
			return fmt.Errorf("%w: record %d is %q, store is %q", ErrPatientMismatch, i, o.PatientID, s.patientID)
		}
	}
	return nil
}

// Path returns the document location.
func (s *ObservationStore) Path() string { return s.path }

// Load reads the document; a missing file is an empty log.
func (s *ObservationStore) Load(ctx context.Context) ([]vitals.Observation, error) {
	if s == nil || s.path == "" {
		return nil, errors.New("observation file: empty path")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []vitals.Observation
	if _, err := jsonfile.Read(s.path, &out); err != nil {
		return nil, err
	}
	if err := s.checkPatient(out); err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	if out == nil {
		out = []vitals.Observation{}
	}
	return out, nil
}

// Save atomically replaces the document.
func (s *ObservationStore) Save(ctx context.Context, observations []vitals.Observation) error {
	if s == nil || s.path == "" {
		return errors.New("observation file: empty path")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.checkPatient(observations); err != nil {
		return err
	}
	if observations == nil {
		observations = []vitals.Observation{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return jsonfile.WriteAtomic(s.path, observations, s.perm)
}
