package vitals

import "math"

// DiastolicMode selects which threshold set grades diastolic pressure.
type DiastolicMode string

const (
	// DiastolicDedicated grades BP_dia with its own set.
	DiastolicDedicated DiastolicMode = "dedicated"
	// DiastolicSystolic grades BP_dia with the BP_sys set, matching the
	// legacy dashboard's render-time behavior.
	DiastolicSystolic DiastolicMode = "systolic"
)

// Classifier maps readings to severity zones using an injected table.
type Classifier struct {
	table     ThresholdTable
	diastolic DiastolicMode
}

// ClassifierOption customizes a classifier.
type ClassifierOption func(*Classifier)

// WithDiastolicMode sets the diastolic grading mode.
func WithDiastolicMode(mode DiastolicMode) ClassifierOption {
	return func(c *Classifier) {
		if mode == DiastolicDedicated || mode == DiastolicSystolic {
			c.diastolic = mode
		}
	}
}

// NewClassifier constructs a classifier over table.
func NewClassifier(table ThresholdTable, opts ...ClassifierOption) *Classifier {
	c := &Classifier{table: table, diastolic: DiastolicDedicated}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Table returns the classifier's threshold table.
func (c *Classifier) Table() ThresholdTable { return c.table }

// DiastolicMode reports the configured diastolic grading mode.
func (c *Classifier) DiastolicMode() DiastolicMode { return c.diastolic }

// Classify grades value for signal. Non-finite values and unknown signals are normal.
func (c *Classifier) Classify(signal SignalType, value float64) Zone {
	if c == nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return ZoneNormal
	}
	if signal == SignalBPDia && c.diastolic == DiastolicSystolic {
		signal = SignalBPSys
	}
	set, ok := c.table.Lookup(signal)
	if !ok {
		return ZoneNormal
	}
	if above(value, set.DangerUpper) || below(value, set.DangerLower) {
		return ZoneDanger
	}
	if above(value, set.WarningUpper) || below(value, set.WarningLower) {
		return ZoneWarning
	}
	return ZoneNormal
}

// ClassifyValue grades an optional reading; nil is normal.
func (c *Classifier) ClassifyValue(signal SignalType, value *float64) Zone {
	if value == nil {
		return ZoneNormal
	}
	return c.Classify(signal, *value)
}

func above(value float64, limit *float64) bool {
	return limit != nil && value > *limit
}

func below(value float64, limit *float64) bool {
	return limit != nil && value < *limit
}
