package vitals

import "time"

// BloodPressure is the composite of the latest systolic and diastolic readings.
type BloodPressure struct {
	Systolic  Observation `json:"systolic"`
	Diastolic Observation `json:"diastolic"`
	At        time.Time   `json:"at"`
}

// LatestOf returns the observation of signal with the greatest timestamp.
// Among equal timestamps the later-inserted record wins.
func LatestOf(list []Observation, signal SignalType) (Observation, bool) {
	var (
		best  Observation
		found bool
	)
	for _, o := range list {
		if o.Type != signal {
			continue
		}
		if !found || !o.Timestamp.Before(best.Timestamp) {
			best = o
			found = true
		}
	}
	if !found {
		return Observation{}, false
	}
	return best.Clone(), true
}

// LatestBloodPressure resolves systolic and diastolic independently. The
// composite is unavailable unless both exist; its time is the later of the two.
func LatestBloodPressure(list []Observation) (BloodPressure, bool) {
	sys, ok := LatestOf(list, SignalBPSys)
	if !ok {
		return BloodPressure{}, false
	}
	dia, ok := LatestOf(list, SignalBPDia)
	if !ok {
		return BloodPressure{}, false
	}
	at := sys.Timestamp
	if dia.Timestamp.After(at) {
		at = dia.Timestamp
	}
	return BloodPressure{Systolic: sys, Diastolic: dia, At: at}, true
}

// OfType filters list by signal, preserving order.
func OfType(list []Observation, signal SignalType) []Observation {
	out := make([]Observation, 0)
	for _, o := range list {
		if o.Type == signal {
			out = append(out, o.Clone())
		}
	}
	return out
}
