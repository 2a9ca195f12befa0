package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"respcare-monitor/internal/vitals/application"
	vitals "respcare-monitor/internal/vitals/domain"
)

func TestObservationStore_MissingFileIsEmpty(t *testing.T) {
	store := NewObservationStore(filepath.Join(t.TempDir(), "observations.json"), "patient-1")
	got, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestObservationStore_RoundTripThroughStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "observations.json")
	persist := NewObservationStore(path, "patient-1")
	ctx := context.Background()

	store, err := application.OpenStore(ctx, persist)
	require.NoError(t, err)

	at := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)
	want := make([]vitals.Observation, 0, 5)
	for i, signal := range vitals.SingleValueSignals {
		o := vitals.Observation{
			ID:        "obs-" + string(signal),
			PatientID: "patient-1",
			Type:      signal,
			Value:     vitals.Float(float64(90 + i)),
			Unit:      signal.DefaultUnit(),
			Timestamp: at.Add(time.Duration(i) * time.Minute),
			Zone:      vitals.ZoneNormal,
		}
		if signal == vitals.SignalEtCO2 {
			o.Value = nil
		}
		require.NoError(t, store.Append(ctx, o))
		want = append(want, o)
	}

	reopened, err := application.OpenStore(ctx, NewObservationStore(path, "patient-1"))
	require.NoError(t, err)
	assert.Equal(t, want, reopened.All())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestObservationStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "observations.json")
	require.NoError(t, os.WriteFile(path, []byte("[{"), 0o600))

	_, err := NewObservationStore(path, "patient-1").Load(context.Background())
	assert.Error(t, err)
}

func TestObservationStore_SaveFailureLeavesPriorDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "observations.json")
	store := NewObservationStore(path, "p")
	at := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)
	first := []vitals.Observation{{ID: "a", PatientID: "p", Type: vitals.SignalHR, Value: vitals.Float(70), Unit: "bpm", Timestamp: at, Zone: vitals.ZoneNormal}}
	require.NoError(t, store.Save(context.Background(), first))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, store.Save(ctx, append(first, first[0])))

	got, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, got)
}

func TestObservationStore_RejectsOtherPatient(t *testing.T) {
	path := filepath.Join(t.TempDir(), "observations.json")
	at := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)
	theirs := []vitals.Observation{{ID: "a", PatientID: "patient-2", Type: vitals.SignalHR, Value: vitals.Float(70), Unit: "bpm", Timestamp: at, Zone: vitals.ZoneNormal}}
	require.NoError(t, NewObservationStore(path, "patient-2").Save(context.Background(), theirs))

	mine := NewObservationStore(path, "patient-1")
	_, err := mine.Load(context.Background())
	assert.ErrorIs(t, err, ErrPatientMismatch)

	_, err = application.OpenStore(context.Background(), mine)
	assert.ErrorIs(t, err, ErrPatientMismatch)

	assert.ErrorIs(t, mine.Save(context.Background(), theirs), ErrPatientMismatch)

	got, err := NewObservationStore(path, "patient-2").Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, theirs, got, "the other patient's document is untouched")

	unscoped, err := NewObservationStore(path, "").Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, unscoped, 1)
}
