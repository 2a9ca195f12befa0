package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"respcare-monitor/internal/vitals/application"
	vitals "respcare-monitor/internal/vitals/domain"
)

func sampleReport() Report {
	at := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)
	spo2 := 89.0
	return Report{
		Dashboard: application.Dashboard{
			PatientID: "patient-1",
			Cards: []application.Card{
				{Type: vitals.SignalSpO2, Available: true, Value: &spo2, Unit: "%", At: at, Zone: vitals.ZoneDanger},
				{Type: vitals.SignalHR, Unit: "bpm", Zone: vitals.ZoneNormal},
			},
			BloodPressure: application.BloodPressureCard{Unit: "mmHg", Zone: vitals.ZoneNormal},
			Alerts: []vitals.Alert{
				{Code: "spo2_low", Type: vitals.SignalSpO2, Zone: vitals.ZoneDanger, Value: &spo2, Unit: "%", At: at, Message: "SpO2 低血氧 (89% < 92%)"},
			},
			GeneratedAt: at,
		},
		Observations: []vitals.Observation{
			{ID: "a", PatientID: "patient-1", Type: vitals.SignalSpO2, Value: vitals.Float(89), Unit: "%", Timestamp: at, Zone: vitals.ZoneDanger},
			{ID: "b", PatientID: "patient-1", Type: vitals.SignalRR, Unit: "次/分", Timestamp: at.Add(time.Minute), Zone: vitals.ZoneNormal},
		},
	}
}

func TestBuildObservationsXLSX(t *testing.T) {
	data, err := BuildObservationsXLSX(sampleReport(), Options{})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{summarySheet, observationsSheet}, f.GetSheetList())

	patient, err := f.GetCellValue(summarySheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "patient-1", patient)

	rows, err := f.GetRows(observationsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Timestamp", rows[0][0])
	assert.Equal(t, "SpO2", rows[1][1])
	assert.Equal(t, "89", rows[1][2])
	assert.Equal(t, "", rows[2][2])
	assert.Equal(t, "次/分", rows[2][3])
}

func TestBuildObservationsPDF(t *testing.T) {
	data, err := BuildObservationsPDF(sampleReport(), Options{Location: time.FixedZone("CST", 8*3600)})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestBuildObservationsPDF_MissingFont(t *testing.T) {
	_, err := BuildObservationsPDF(sampleReport(), Options{FontPath: "/nonexistent/font.ttf"})
	assert.Error(t, err)
}
