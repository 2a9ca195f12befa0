// Package demo produces plausible synthetic readings for seeding a dashboard.
package demo

import (
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	vitals "respcare-monitor/internal/vitals/domain"
)

// excursionRate is the share of readings drawn from the abnormal range.
const excursionRate = 0.08

type profile struct {
	signal    vitals.SignalType
	normalMin float64
	normalMax float64
	excMin    float64
	excMax    float64
	decimals  int
}

var profiles = []profile{
	{signal: vitals.SignalSpO2, normalMin: 95, normalMax: 99, excMin: 86, excMax: 94, decimals: 0},
	{signal: vitals.SignalHR, normalMin: 62, normalMax: 98, excMin: 101, excMax: 138, decimals: 0},
	{signal: vitals.SignalRR, normalMin: 12, normalMax: 20, excMin: 21, excMax: 28, decimals: 0},
	{signal: vitals.SignalEtCO2, normalMin: 35, normalMax: 44, excMin: 45.5, excMax: 52, decimals: 1},
	{signal: vitals.SignalBPSys, normalMin: 105, normalMax: 138, excMin: 141, excMax: 168, decimals: 0},
	{signal: vitals.SignalBPDia, normalMin: 62, normalMax: 88, excMin: 91, excMax: 104, decimals: 0},
}

// Generate returns days*perDay sampling rounds ending at end, one reading per
// signal per round, classified with classifier. The same rng seed yields the
// same output.
func Generate(rng *rand.Rand, patientID string, end time.Time, days, perDay int, classifier *vitals.Classifier) []vitals.Observation {
	if rng == nil || days <= 0 || perDay <= 0 || patientID == "" {
		return []vitals.Observation{}
	}
	if classifier == nil {
		classifier = vitals.NewClassifier(vitals.DefaultThresholdTable())
	}
	rounds := days * perDay
	step := 24 * time.Hour / time.Duration(perDay)
	start := end.UTC().Add(-time.Duration(rounds-1) * step)

	out := make([]vitals.Observation, 0, rounds*(len(profiles)+1))
	for i := 0; i < rounds; i++ {
		at := start.Add(time.Duration(i) * step)
		var hr float64
		for _, p := range profiles {
			value := sample(rng, p)
			if p.signal == vitals.SignalHR {
				hr = value
			}
			out = append(out, observation(rng, patientID, p.signal, value, at, classifier))
			if p.signal == vitals.SignalHR {
				pulse := round(hr+float64(rng.Intn(5)-2), 0)
				out = append(out, observation(rng, patientID, vitals.SignalPulse, pulse, at, classifier))
			}
		}
	}
	return out
}

func sample(rng *rand.Rand, p profile) float64 {
	lo, hi := p.normalMin, p.normalMax
	if rng.Float64() < excursionRate {
		lo, hi = p.excMin, p.excMax
	}
	return round(lo+rng.Float64()*(hi-lo), p.decimals)
}

func observation(rng *rand.Rand, patientID string, signal vitals.SignalType, value float64, at time.Time, classifier *vitals.Classifier) vitals.Observation {
	id, err := uuid.NewRandomFromReader(rng)
	if err != nil {
		id = uuid.New()
	}
	return vitals.Observation{
		ID:        id.String(),
		PatientID: patientID,
		Type:      signal,
		Value:     vitals.Float(value),
		Unit:      signal.DefaultUnit(),
		Timestamp: at,
		Zone:      classifier.Classify(signal, value),
	}
}

func round(v float64, decimals int) float64 {
	scale := math.Pow10(decimals)
	return math.Round(v*scale) / scale
}
