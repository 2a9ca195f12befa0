package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"respcare-monitor/internal/observability/metrics"
	vitals "respcare-monitor/internal/vitals/domain"
)

const (
	EventRaised   = "raised"
	EventResolved = "resolved"
)

// AlertNotifier publishes alert lifecycle events.
type AlertNotifier interface {
	Notify(ctx context.Context, event AlertEvent)
}

// AlertEvent is a raised or resolved alert.
type AlertEvent struct {
	Type      string       `json:"type"`
	PatientID string       `json:"patientId"`
	Alert     vitals.Alert `json:"alert"`
}

// Clock provides time.
type Clock interface {
	Now() time.Time
}

// Palette maps zones to display colours.
type Palette struct {
	Normal  string `json:"normal"`
	Warning string `json:"warning"`
	Danger  string `json:"danger"`
}

// DefaultPalette returns the dashboard's stock colours.
func DefaultPalette() Palette {
	return Palette{Normal: "#2e7d32", Warning: "#f9a825", Danger: "#c62828"}
}

// Color returns the colour for zone.
func (p Palette) Color(zone vitals.Zone) string {
	switch zone {
	case vitals.ZoneDanger:
		return p.Danger
	case vitals.ZoneWarning:
		return p.Warning
	default:
		return p.Normal
	}
}

// EmergencyContact is the person called from the emergency action.
type EmergencyContact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Note  string `json:"note,omitempty"`
}

// RecordInput is a new reading submitted by the patient or caregiver.
type RecordInput struct {
	Type  vitals.SignalType `json:"type"`
	Value *float64          `json:"value"`
	Unit  string            `json:"unit"`
	At    time.Time         `json:"timestamp"`
}

// Card is the latest state of one signal.
type Card struct {
	Type      vitals.SignalType `json:"type"`
	Available bool              `json:"available"`
	Value     *float64          `json:"value"`
	Unit      string            `json:"unit"`
	At        time.Time         `json:"at,omitempty"`
	Zone      vitals.Zone       `json:"zone"`
	Color     string            `json:"color"`
}

// BloodPressureCard is the composite systolic/diastolic card.
type BloodPressureCard struct {
	Available bool        `json:"available"`
	Systolic  *float64    `json:"systolic"`
	Diastolic *float64    `json:"diastolic"`
	Unit      string      `json:"unit"`
	At        time.Time   `json:"at,omitempty"`
	Zone      vitals.Zone `json:"zone"`
	Color     string      `json:"color"`
}

// Dashboard is everything the presentation layer renders.
type Dashboard struct {
	PatientID     string            `json:"patientId"`
	Cards         []Card            `json:"cards"`
	BloodPressure BloodPressureCard `json:"bloodPressure"`
	Alerts        []vitals.Alert    `json:"alerts"`
	GeneratedAt   time.Time         `json:"generatedAt"`
}

// EmergencyView backs the emergency-contact action.
type EmergencyView struct {
	Contact EmergencyContact `json:"contact"`
	Urgent  bool             `json:"urgent"`
	Alerts  []vitals.Alert   `json:"alerts"`
}

// Service is the dashboard's entry point over the observation store.
type Service struct {
	// recordMu orders alert transitions: each Record sees the alerts left by
	// the previous one.
	recordMu sync.Mutex

	store      *Store
	classifier *vitals.Classifier
	alerts     *vitals.AlertAggregator
	notifier   AlertNotifier
	clock      Clock
	palette    Palette
	contact    EmergencyContact
	patientID  string
	newID      func() string
	logger     *zap.Logger
}

// ServiceOption customizes the service.
type ServiceOption func(*Service)

// WithNotifier assigns a notifier.
func WithNotifier(notifier AlertNotifier) ServiceOption {
	return func(s *Service) {
		s.notifier = notifier
	}
}

// WithClock assigns a clock.
func WithClock(clock Clock) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithPalette overrides the zone colours.
func WithPalette(p Palette) ServiceOption {
	return func(s *Service) {
		s.palette = p
	}
}

// WithEmergencyContact sets the emergency contact.
func WithEmergencyContact(c EmergencyContact) ServiceOption {
	return func(s *Service) {
		s.contact = c
	}
}

// WithIDGenerator overrides observation id generation.
func WithIDGenerator(fn func() string) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithServiceLogger assigns a logger.
func WithServiceLogger(logger *zap.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService constructs the dashboard service.
func NewService(store *Store, classifier *vitals.Classifier, patientID string, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("vitals service: nil store")
	}
	if classifier == nil {
		return nil, errors.New("vitals service: nil classifier")
	}
	if patientID == "" {
		return nil, errors.New("vitals service: empty patient id")
	}
	s := &Service{
		store:      store,
		classifier: classifier,
		alerts:     vitals.NewAlertAggregator(classifier),
		clock:      systemClock{},
		palette:    DefaultPalette(),
		patientID:  patientID,
		newID:      uuid.NewString,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// PatientID returns the monitored patient.
func (s *Service) PatientID() string { return s.patientID }

// Classifier returns the configured classifier.
func (s *Service) Classifier() *vitals.Classifier { return s.classifier }

// Record classifies and appends a reading, then notifies alert changes.
func (s *Service) Record(ctx context.Context, in RecordInput) (vitals.Observation, error) {
	if s == nil {
		return vitals.Observation{}, errors.New("vitals service: nil service")
	}
	if in.Type == "" {
		return vitals.Observation{}, errors.Join(vitals.ErrInvalidObservation, errors.New("type required"))
	}
	o := s.NewObservation(in)

	s.recordMu.Lock()
	defer s.recordMu.Unlock()
	before := s.alerts.ComputeAlerts(s.store.All())
	if err := s.store.Append(ctx, o); err != nil {
		return vitals.Observation{}, err
	}
	metrics.IncObservation(string(o.Type), string(o.Zone))
	if !o.Type.Known() {
		s.logger.Warn("unrecognized signal type stored", zap.String("type", string(o.Type)))
	}
	after := s.alerts.ComputeAlerts(s.store.All())
	s.publishChanges(ctx, before, after)
	return o, nil
}

// NewObservation builds a classified observation without storing it.
func (s *Service) NewObservation(in RecordInput) vitals.Observation {
	at := in.At
	if at.IsZero() {
		at = s.clock.Now()
	}
	unit := in.Unit
	if unit == "" {
		unit = in.Type.DefaultUnit()
	}
	var value *float64
	if in.Value != nil {
		value = vitals.Float(*in.Value)
	}
	return vitals.Observation{
		ID:        s.newID(),
		PatientID: s.patientID,
		Type:      in.Type,
		Value:     value,
		Unit:      unit,
		Timestamp: at.UTC(),
		Zone:      s.classifier.ClassifyValue(in.Type, value),
	}
}

// Observations returns stored observations, optionally filtered by type.
func (s *Service) Observations(signal vitals.SignalType) []vitals.Observation {
	if signal == "" {
		return s.store.All()
	}
	return s.store.OfType(signal)
}

// Latest returns the most recent observation of signal.
func (s *Service) Latest(signal vitals.SignalType) (vitals.Observation, bool) {
	return vitals.LatestOf(s.store.All(), signal)
}

// Alerts recomputes alerts from the current snapshot.
func (s *Service) Alerts() []vitals.Alert {
	return s.alerts.ComputeAlerts(s.store.All())
}

// Series returns the chart series for signal.
func (s *Service) Series(signal vitals.SignalType, from, to time.Time) []vitals.Point {
	return vitals.Window(vitals.SeriesFor(s.store.All(), signal), from, to)
}

// Dashboard builds cards and alerts from one snapshot.
func (s *Service) Dashboard() Dashboard {
	snapshot := s.store.All()
	cards := make([]Card, 0, len(vitals.SingleValueSignals))
	for _, signal := range vitals.SingleValueSignals {
		card := Card{Type: signal, Unit: signal.DefaultUnit(), Zone: vitals.ZoneNormal}
		if latest, ok := vitals.LatestOf(snapshot, signal); ok {
			card.Available = true
			card.Value = latest.Value
			card.Unit = latest.Unit
			card.At = latest.Timestamp
			card.Zone = latest.Zone
		}
		card.Color = s.palette.Color(card.Zone)
		cards = append(cards, card)
	}

	bpCard := BloodPressureCard{Unit: vitals.SignalBPSys.DefaultUnit(), Zone: vitals.ZoneNormal}
	if bp, ok := vitals.LatestBloodPressure(snapshot); ok {
		// Zones are recomputed here rather than read from storage.
		zone, _ := s.alerts.BloodPressureZone(bp)
		bpCard.Available = true
		bpCard.Systolic = bp.Systolic.Value
		bpCard.Diastolic = bp.Diastolic.Value
		bpCard.At = bp.At
		bpCard.Zone = zone
	}
	bpCard.Color = s.palette.Color(bpCard.Zone)

	return Dashboard{
		PatientID:     s.patientID,
		Cards:         cards,
		BloodPressure: bpCard,
		Alerts:        s.alerts.ComputeAlerts(snapshot),
		GeneratedAt:   s.clock.Now().UTC(),
	}
}

// Emergency returns the contact together with current alerts.
func (s *Service) Emergency() EmergencyView {
	alerts := s.Alerts()
	return EmergencyView{Contact: s.contact, Urgent: len(alerts) > 0, Alerts: alerts}
}

func (s *Service) publishChanges(ctx context.Context, before, after []vitals.Alert) {
	prev := make(map[string]vitals.Alert, len(before))
	for _, a := range before {
		prev[a.Code] = a
	}
	current := make(map[string]struct{}, len(after))
	for _, a := range after {
		current[a.Code] = struct{}{}
		if _, ok := prev[a.Code]; ok {
			continue
		}
		s.notify(ctx, EventRaised, a)
	}
	for _, a := range before {
		if _, ok := current[a.Code]; ok {
			continue
		}
		s.notify(ctx, EventResolved, a)
	}
}

func (s *Service) notify(ctx context.Context, eventType string, alert vitals.Alert) {
	metrics.IncAlertEvent(eventType, alert.Code)
	s.logger.Info("alert "+eventType,
		zap.String("code", alert.Code),
		zap.String("type", string(alert.Type)),
		zap.String("message", alert.Message),
	)
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, AlertEvent{Type: eventType, PatientID: s.patientID, Alert: alert})
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
