package vitals

import (
	"errors"
	"math"
	"time"
)

// SignalType identifies a tracked vital sign.
type SignalType string

const (
	SignalSpO2  SignalType = "SpO2"
	SignalHR    SignalType = "HR"
	SignalRR    SignalType = "RR"
	SignalPulse SignalType = "Pulse"
	SignalEtCO2 SignalType = "EtCO2"
	SignalBPSys SignalType = "BP_sys"
	SignalBPDia SignalType = "BP_dia"
)

// SingleValueSignals is the fixed iteration order for cards and alerts.
var SingleValueSignals = []SignalType{SignalSpO2, SignalHR, SignalRR, SignalPulse, SignalEtCO2}

// AllSignals lists every recognized signal type.
var AllSignals = []SignalType{SignalSpO2, SignalHR, SignalRR, SignalPulse, SignalEtCO2, SignalBPSys, SignalBPDia}

// Known reports whether t is one of the recognized signal types.
func (t SignalType) Known() bool {
	for _, s := range AllSignals {
		if s == t {
			return true
		}
	}
	return false
}

// DefaultUnit returns the display unit used when a reading carries none.
func (t SignalType) DefaultUnit() string {
	switch t {
	case SignalSpO2:
		return "%"
	case SignalHR, SignalPulse:
		return "bpm"
	case SignalRR:
		return "次/分"
	case SignalEtCO2, SignalBPSys, SignalBPDia:
		return "mmHg"
	default:
		return ""
	}
}

// Zone is a severity classification outcome.
type Zone string

const (
	ZoneNormal  Zone = "normal"
	ZoneWarning Zone = "warning"
	ZoneDanger  Zone = "danger"
)

// Rank orders zones from least to most severe.
func (z Zone) Rank() int {
	switch z {
	case ZoneWarning:
		return 1
	case ZoneDanger:
		return 2
	default:
		return 0
	}
}

// Worse returns the more severe of two zones.
func Worse(a, b Zone) Zone {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// ErrInvalidObservation is returned for structurally unusable observations.
var ErrInvalidObservation = errors.New("observation: invalid")

// Observation is one reading of one signal for the patient.
type Observation struct {
	ID        string     `json:"id,omitempty"`
	PatientID string     `json:"patientId"`
	Type      SignalType `json:"type"`
	Value     *float64   `json:"value"`
	Unit      string     `json:"unit"`
	Timestamp time.Time  `json:"timestamp"`
	Zone      Zone       `json:"severityZone"`
}

// Validate checks the fields every stored observation needs.
func (o Observation) Validate() error {
	if o.PatientID == "" {
		return errors.Join(ErrInvalidObservation, errors.New("empty patient id"))
	}
	if o.Type == "" {
		return errors.Join(ErrInvalidObservation, errors.New("empty type"))
	}
	if o.Timestamp.IsZero() {
		return errors.Join(ErrInvalidObservation, errors.New("zero timestamp"))
	}
	return nil
}

// Float returns a pointer to v, or nil when v is not a finite number.
func Float(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// NumericValue returns the reading and whether it is usable.
func (o Observation) NumericValue() (float64, bool) {
	if o.Value == nil || math.IsNaN(*o.Value) || math.IsInf(*o.Value, 0) {
		return 0, false
	}
	return *o.Value, true
}

// Clone returns a deep copy.
func (o Observation) Clone() Observation {
	if o.Value != nil {
		v := *o.Value
		o.Value = &v
	}
	return o
}

// CloneAll copies a slice of observations.
func CloneAll(list []Observation) []Observation {
	out := make([]Observation, len(list))
	for i, o := range list {
		out[i] = o.Clone()
	}
	return out
}
