package vitals

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func classified(c *Classifier, o Observation) Observation {
	o.Zone = c.ClassifyValue(o.Type, o.Value)
	return o
}

func TestComputeAlerts_SpO2(t *testing.T) {
	c := NewClassifier(DefaultThresholdTable())
	agg := NewAlertAggregator(c)

	alerts := agg.ComputeAlerts([]Observation{classified(c, obs(SignalSpO2, 90, 0))})
	require.Len(t, alerts, 1)
	assert.Equal(t, "spo2_low", alerts[0].Code)
	assert.Contains(t, alerts[0].Message, "SpO2 低血氧")
	assert.Contains(t, alerts[0].Message, "< 92%")

	alerts = agg.ComputeAlerts([]Observation{classified(c, obs(SignalSpO2, 96, 0))})
	assert.Empty(t, alerts)
}

func TestComputeAlerts_UsesLatestStoredZone(t *testing.T) {
	c := NewClassifier(DefaultThresholdTable())
	agg := NewAlertAggregator(c)

	alerts := agg.ComputeAlerts([]Observation{
		classified(c, obs(SignalSpO2, 97, 10)),
		classified(c, obs(SignalSpO2, 85, 0)),
	})
	assert.Empty(t, alerts, "older danger reading is superseded")

	// Stored zone is authoritative; no reclassification on read.
	stale := obs(SignalRR, 16, 0)
	stale.Zone = ZoneDanger
	alerts = agg.ComputeAlerts([]Observation{stale})
	require.Len(t, alerts, 1)
	assert.Equal(t, "rr_high", alerts[0].Code)
}

func TestComputeAlerts_WordingAndOrder(t *testing.T) {
	c := NewClassifier(DefaultThresholdTable())
	agg := NewAlertAggregator(c)

	list := []Observation{
		classified(c, obs(SignalEtCO2, 50, 0)),
		classified(c, obs(SignalPulse, 150, 0)),
		classified(c, obs(SignalRR, 28, 0)),
		classified(c, obs(SignalHR, 35, 0)),
		classified(c, obs(SignalSpO2, 88, 0)),
		classified(c, obs(SignalBPSys, 170, 0)),
		classified(c, obs(SignalBPDia, 80, 0)),
	}
	alerts := agg.ComputeAlerts(list)
	require.Len(t, alerts, 6)

	codes := make([]string, 0, len(alerts))
	for _, a := range alerts {
		codes = append(codes, a.Code)
		assert.Equal(t, ZoneDanger, a.Zone)
	}
	assert.Equal(t, []string{"spo2_low", "hr_abnormal", "rr_high", "pulse_abnormal", "etco2_high", "bp_systolic"}, codes)
	assert.Equal(t, "HR abnormal (35 bpm)", alerts[1].Message)
	assert.Contains(t, alerts[2].Message, "RR 呼吸過速")
	assert.Contains(t, alerts[4].Message, "EtCO2 過高")
	assert.Contains(t, alerts[5].Message, "收縮壓異常 (170/80 mmHg)")
}

func TestComputeAlerts_BloodPressure(t *testing.T) {
	c := NewClassifier(DefaultThresholdTable())
	agg := NewAlertAggregator(c)

	normal := agg.ComputeAlerts([]Observation{
		classified(c, obs(SignalBPSys, 120, 0)),
		classified(c, obs(SignalBPDia, 80, 0)),
	})
	assert.Empty(t, normal)

	low := agg.ComputeAlerts([]Observation{
		classified(c, obs(SignalBPSys, 85, 0)),
		classified(c, obs(SignalBPDia, 60, 0)),
	})
	require.Len(t, low, 1)
	assert.Equal(t, "bp_systolic", low[0].Code)

	onlySys := agg.ComputeAlerts([]Observation{classified(c, obs(SignalBPSys, 200, 0))})
	assert.Empty(t, onlySys, "composite unavailable without diastolic")

	diastolic := agg.ComputeAlerts([]Observation{
		classified(c, obs(SignalBPSys, 120, 0)),
		classified(c, obs(SignalBPDia, 105, 0)),
	})
	assert.Empty(t, diastolic, "diastolic danger alone raises no alert")

	bp, ok := LatestBloodPressure([]Observation{obs(SignalBPSys, 120, 0), obs(SignalBPDia, 105, 0)})
	require.True(t, ok)
	zone, override := agg.BloodPressureZone(bp)
	assert.Equal(t, ZoneDanger, zone, "card zone still reflects diastolic")
	assert.False(t, override)
}

func TestComputeAlerts_SystolicDiastolicModeNormalReading(t *testing.T) {
	c := NewClassifier(DefaultThresholdTable(), WithDiastolicMode(DiastolicSystolic))
	agg := NewAlertAggregator(c)

	alerts := agg.ComputeAlerts([]Observation{
		classified(c, obs(SignalBPSys, 120, 0)),
		classified(c, obs(SignalBPDia, 80, 0)),
	})
	assert.Empty(t, alerts)

	alerts = agg.ComputeAlerts([]Observation{
		classified(c, obs(SignalBPSys, 170, 0)),
		classified(c, obs(SignalBPDia, 80, 0)),
	})
	require.Len(t, alerts, 1)
	assert.Equal(t, "bp_systolic", alerts[0].Code)
}

func TestBloodPressureZone_OverrideForcesDanger(t *testing.T) {
	// Relaxed systolic thresholds: the classifier alone would say normal.
	table, err := DefaultThresholdTable().With(map[SignalType]ThresholdSet{
		SignalBPSys: {DangerUpper: bound(250)},
	})
	require.NoError(t, err)
	c := NewClassifier(table)
	agg := NewAlertAggregator(c)

	bp, ok := LatestBloodPressure([]Observation{obs(SignalBPSys, 170, 0), obs(SignalBPDia, 80, 0)})
	require.True(t, ok)
	zone, override := agg.BloodPressureZone(bp)
	assert.Equal(t, ZoneDanger, zone)
	assert.True(t, override)

	alerts := agg.ComputeAlerts([]Observation{obs(SignalBPSys, 170, 0), obs(SignalBPDia, 80, 0)})
	require.Len(t, alerts, 1)
	assert.Equal(t, "bp_systolic", alerts[0].Code)
}

func TestComputeAlerts_IsStateless(t *testing.T) {
	c := NewClassifier(DefaultThresholdTable())
	agg := NewAlertAggregator(c)
	list := []Observation{classified(c, obs(SignalSpO2, 80, 0))}
	assert.Equal(t, agg.ComputeAlerts(list), agg.ComputeAlerts(list))
	assert.NotNil(t, agg.ComputeAlerts(nil))
}
