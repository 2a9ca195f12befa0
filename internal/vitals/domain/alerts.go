package vitals

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	defaultSystolicHigh = 160
	defaultSystolicLow  = 90
)

// Alert is a user-facing message for a latest value in the danger zone.
type Alert struct {
	Code    string     `json:"code"`
	Type    SignalType `json:"type"`
	Zone    Zone       `json:"zone"`
	Value   *float64   `json:"value"`
	Unit    string     `json:"unit"`
	At      time.Time  `json:"at"`
	Message string     `json:"message"`
}

// AlertAggregator derives alerts from the latest readings. It keeps no state
// between calls.
type AlertAggregator struct {
	classifier   *Classifier
	systolicHigh float64
	systolicLow  float64
}

// NewAlertAggregator constructs an aggregator. The systolic override limits
// are fixed at 160/90 mmHg.
func NewAlertAggregator(classifier *Classifier) *AlertAggregator {
	if classifier == nil {
		classifier = NewClassifier(DefaultThresholdTable())
	}
	return &AlertAggregator{
		classifier:   classifier,
		systolicHigh: defaultSystolicHigh,
		systolicLow:  defaultSystolicLow,
	}
}

// ComputeAlerts scans SpO2, HR, RR, Pulse, EtCO2 and then blood pressure.
func (a *AlertAggregator) ComputeAlerts(list []Observation) []Alert {
	alerts := make([]Alert, 0)
	for _, signal := range SingleValueSignals {
		latest, ok := LatestOf(list, signal)
		if !ok || latest.Zone != ZoneDanger {
			continue
		}
		alerts = append(alerts, a.singleAlert(latest))
	}
	if alert, ok := a.bloodPressureAlert(list); ok {
		alerts = append(alerts, alert)
	}
	return alerts
}

// BloodPressureZone grades the composite reading: the worse of both readings,
// forced to danger when systolic crosses the override limits.
func (a *AlertAggregator) BloodPressureZone(bp BloodPressure) (Zone, bool) {
	sysZone := a.classifier.ClassifyValue(SignalBPSys, bp.Systolic.Value)
	diaZone := a.classifier.ClassifyValue(SignalBPDia, bp.Diastolic.Value)
	zone := Worse(sysZone, diaZone)
	override := false
	if sys, ok := bp.Systolic.NumericValue(); ok && (sys > a.systolicHigh || sys < a.systolicLow) {
		zone = ZoneDanger
		override = true
	}
	return zone, override
}

// bloodPressureAlert fires on the systolic reading only: its own danger zone
// or the override limits. Diastolic affects the card zone, never the alert.
func (a *AlertAggregator) bloodPressureAlert(list []Observation) (Alert, bool) {
	bp, ok := LatestBloodPressure(list)
	if !ok {
		return Alert{}, false
	}
	_, override := a.BloodPressureZone(bp)
	sysZone := a.classifier.ClassifyValue(SignalBPSys, bp.Systolic.Value)
	if !override && sysZone != ZoneDanger {
		return Alert{}, false
	}
	return Alert{
		Code:  "bp_systolic",
		Type:  SignalBPSys,
		Zone:  ZoneDanger,
		Value: bp.Systolic.Clone().Value,
		Unit:  unitOf(bp.Systolic),
		At:    bp.At,
		Message: fmt.Sprintf("收縮壓異常 (%s/%s %s)",
			formatValue(bp.Systolic.Value), formatValue(bp.Diastolic.Value), unitOf(bp.Systolic)),
	}, true
}

func (a *AlertAggregator) singleAlert(o Observation) Alert {
	set, _ := a.classifier.Table().Lookup(o.Type)
	switch o.Type {
	case SignalSpO2:
		return Alert{
			Code: "spo2_low", Type: o.Type, Zone: ZoneDanger, Value: o.Value, Unit: unitOf(o), At: o.Timestamp,
			Message: fmt.Sprintf("SpO2 低血氧 (%s%% < %s%%)", formatValue(o.Value), formatBound(set.DangerLower, 92)),
		}
	case SignalRR:
		return Alert{
			Code: "rr_high", Type: o.Type, Zone: ZoneDanger, Value: o.Value, Unit: unitOf(o), At: o.Timestamp,
			Message: fmt.Sprintf("RR 呼吸過速 (%s 次/分 > %s)", formatValue(o.Value), formatBound(set.DangerUpper, 24)),
		}
	case SignalEtCO2:
		return Alert{
			Code: "etco2_high", Type: o.Type, Zone: ZoneDanger, Value: o.Value, Unit: unitOf(o), At: o.Timestamp,
			Message: fmt.Sprintf("EtCO2 過高 (%s mmHg > %s)", formatValue(o.Value), formatBound(set.DangerUpper, 45)),
		}
	default:
		return genericAlert(o)
	}
}

func genericAlert(o Observation) Alert {
	return Alert{
		Code:    strings.ToLower(string(o.Type)) + "_abnormal",
		Type:    o.Type,
		Zone:    ZoneDanger,
		Value:   o.Clone().Value,
		Unit:    unitOf(o),
		At:      o.Timestamp,
		Message: fmt.Sprintf("%s abnormal (%s %s)", o.Type, formatValue(o.Value), unitOf(o)),
	}
}

func unitOf(o Observation) string {
	if o.Unit != "" {
		return o.Unit
	}
	return o.Type.DefaultUnit()
}

func formatValue(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatBound(b *float64, fallback float64) string {
	if b == nil {
		return strconv.FormatFloat(fallback, 'f', -1, 64)
	}
	return strconv.FormatFloat(*b, 'f', -1, 64)
}
