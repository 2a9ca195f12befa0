package vitals

import (
	"errors"
	"math"
)

// ThresholdSet holds optional bounds; a nil bound is never checked.
type ThresholdSet struct {
	DangerUpper  *float64 `json:"dangerUpper,omitempty" yaml:"danger_upper,omitempty"`
	DangerLower  *float64 `json:"dangerLower,omitempty" yaml:"danger_lower,omitempty"`
	WarningUpper *float64 `json:"warningUpper,omitempty" yaml:"warning_upper,omitempty"`
	WarningLower *float64 `json:"warningLower,omitempty" yaml:"warning_lower,omitempty"`
}

// Validate rejects sets whose warning band sits outside the danger band.
func (s ThresholdSet) Validate() error {
	for _, b := range []*float64{s.DangerUpper, s.DangerLower, s.WarningUpper, s.WarningLower} {
		if b != nil && (math.IsNaN(*b) || math.IsInf(*b, 0)) {
			return errors.New("threshold set: non-finite bound")
		}
	}
	if s.DangerUpper != nil && s.WarningUpper != nil && *s.WarningUpper > *s.DangerUpper {
		return errors.New("threshold set: warning upper above danger upper")
	}
	if s.DangerLower != nil && s.WarningLower != nil && *s.WarningLower < *s.DangerLower {
		return errors.New("threshold set: warning lower below danger lower")
	}
	return nil
}

func (s ThresholdSet) clone() ThresholdSet {
	return ThresholdSet{
		DangerUpper:  copyBound(s.DangerUpper),
		DangerLower:  copyBound(s.DangerLower),
		WarningUpper: copyBound(s.WarningUpper),
		WarningLower: copyBound(s.WarningLower),
	}
}

func copyBound(b *float64) *float64 {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}

func bound(v float64) *float64 { return &v }

// ThresholdTable maps signal types to threshold sets. It is immutable once built.
type ThresholdTable struct {
	sets map[SignalType]ThresholdSet
}

// NewThresholdTable copies sets into a new table.
func NewThresholdTable(sets map[SignalType]ThresholdSet) (ThresholdTable, error) {
	table := ThresholdTable{sets: make(map[SignalType]ThresholdSet, len(sets))}
	for t, s := range sets {
		if t == "" {
			return ThresholdTable{}, errors.New("threshold table: empty signal type")
		}
		if err := s.Validate(); err != nil {
			return ThresholdTable{}, err
		}
		table.sets[t] = s.clone()
	}
	return table, nil
}

// DefaultThresholdTable returns the built-in home respiratory-care thresholds.
func DefaultThresholdTable() ThresholdTable {
	table, _ := NewThresholdTable(DefaultThresholdSets())
	return table
}

// DefaultThresholdSets returns a fresh copy of the built-in sets.
func DefaultThresholdSets() map[SignalType]ThresholdSet {
	return map[SignalType]ThresholdSet{
		SignalSpO2:  {DangerLower: bound(92), WarningLower: bound(95)},
		SignalHR:    {DangerUpper: bound(130), DangerLower: bound(40), WarningUpper: bound(100), WarningLower: bound(60)},
		SignalRR:    {DangerUpper: bound(24), WarningUpper: bound(20), WarningLower: bound(12)},
		SignalPulse: {DangerUpper: bound(130), DangerLower: bound(40), WarningUpper: bound(100), WarningLower: bound(60)},
		SignalEtCO2: {DangerUpper: bound(45)},
		SignalBPSys: {DangerUpper: bound(160), DangerLower: bound(90), WarningUpper: bound(140)},
		SignalBPDia: {DangerUpper: bound(100), DangerLower: bound(50), WarningUpper: bound(90)},
	}
}

// Lookup returns the set for t; ok is false when t has no thresholds.
func (t ThresholdTable) Lookup(signal SignalType) (ThresholdSet, bool) {
	s, ok := t.sets[signal]
	if !ok {
		return ThresholdSet{}, false
	}
	return s.clone(), true
}

// Sets returns a copy of every entry.
func (t ThresholdTable) Sets() map[SignalType]ThresholdSet {
	out := make(map[SignalType]ThresholdSet, len(t.sets))
	for k, v := range t.sets {
		out[k] = v.clone()
	}
	return out
}

// With returns a new table where overrides replace whole per-type sets.
func (t ThresholdTable) With(overrides map[SignalType]ThresholdSet) (ThresholdTable, error) {
	merged := t.Sets()
	for k, v := range overrides {
		merged[k] = v
	}
	return NewThresholdTable(merged)
}
