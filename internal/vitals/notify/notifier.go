package notify

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"respcare-monitor/internal/observability/metrics"
	"respcare-monitor/internal/vitals/application"
	vitals "respcare-monitor/internal/vitals/domain"
)

const eventEscalated = "escalated"

// AlertReader reports the alerts that are currently active.
type AlertReader interface {
	Alerts() []vitals.Alert
}

// AlertReaderFunc adapts a function to AlertReader.
type AlertReaderFunc func() []vitals.Alert

// Alerts implements AlertReader.
func (f AlertReaderFunc) Alerts() []vitals.Alert { return f() }

// Clock provides time for cooldown and escalation.
type Clock interface {
	Now() time.Time
}

type sendRecord struct {
	at   time.Time
	hash string
}

// Notifier renders alert events and delivers them through a channel. A raised
// alert that is still active after the escalation delay is sent again.
type Notifier struct {
	channel        Channel
	template       *Template
	active         AlertReader
	contact        string
	escalation     time.Duration
	clock          Clock
	mu             sync.Mutex
	timers         map[string]*time.Timer
	sent           map[string]sendRecord
	cooldown       time.Duration
	dedupeWindow   time.Duration
	requestTimeout time.Duration
	logger         *zap.Logger
}

// Option configures the notifier.
type Option func(*Notifier)

// WithEscalation re-sends alerts still active after the delay. It requires an
// AlertReader.
func WithEscalation(after time.Duration, active AlertReader) Option {
	return func(n *Notifier) {
		if after > 0 && active != nil {
			n.escalation = after
			n.active = active
		}
	}
}

// WithClock overrides the default clock.
func WithClock(clock Clock) Option {
	return func(n *Notifier) {
		if clock != nil {
			n.clock = clock
		}
	}
}

// WithRequestTimeout bounds each channel send.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(n *Notifier) {
		if timeout > 0 {
			n.requestTimeout = timeout
		}
	}
}

// WithCooldown sets a minimum interval between notifications for the same alert code and event.
func WithCooldown(interval time.Duration) Option {
	return func(n *Notifier) {
		if interval > 0 {
			n.cooldown = interval
		}
	}
}

// WithDedupeWindow suppresses identical notifications within the window.
func WithDedupeWindow(window time.Duration) Option {
	return func(n *Notifier) {
		if window > 0 {
			n.dedupeWindow = window
		}
	}
}

// WithContact adds the emergency contact line to rendered content.
func WithContact(contact string) Option {
	return func(n *Notifier) {
		n.contact = contact
	}
}

// WithLogger assigns a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(n *Notifier) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// NewNotifier constructs an alert notifier.
func NewNotifier(channel Channel, template *Template, opts ...Option) (*Notifier, error) {
	if channel == nil {
		return nil, errors.New("vitals notifier: nil channel")
	}
	if template == nil {
		defaultTemplate, err := NewTemplate("")
		if err != nil {
			return nil, err
		}
		template = defaultTemplate
	}
	n := &Notifier{
		channel:        channel,
		template:       template,
		clock:          systemClock{},
		timers:         make(map[string]*time.Timer),
		sent:           make(map[string]sendRecord),
		requestTimeout: 5 * time.Second,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// Notify implements application.AlertNotifier.
func (n *Notifier) Notify(ctx context.Context, event application.AlertEvent) {
	if n == nil || n.channel == nil {
		return
	}
	n.dispatch(ctx, event.Type, event.PatientID, event.Alert)

	switch event.Type {
	case application.EventRaised:
		n.scheduleEscalation(event.PatientID, event.Alert)
	case application.EventResolved:
		n.cancelEscalation(event.Alert.Code)
	}
}

// Close stops all pending escalation timers.
func (n *Notifier) Close() {
	if n == nil {
		return
	}
	n.mu.Lock()
	timers := n.timers
	n.timers = make(map[string]*time.Timer)
	n.mu.Unlock()
	for _, timer := range timers {
		if timer != nil {
			timer.Stop()
		}
	}
}

func (n *Notifier) dispatch(ctx context.Context, eventType, patientID string, alert vitals.Alert) {
	content, err := n.template.Render(n.buildTemplateData(eventType, patientID, alert))
	if err != nil {
		n.logger.Error("notification render failed", zap.String("code", alert.Code), zap.Error(err))
		metrics.IncNotification(metrics.NotifyFailed)
		return
	}
	if !n.shouldSend(alert.Code, eventType, content) {
		metrics.IncNotification(metrics.NotifySuppressed)
		return
	}
	if n.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.requestTimeout)
		defer cancel()
	}
	msg := Message{Event: eventType, PatientID: patientID, Alert: alert, Text: content}
	if err := n.channel.Send(ctx, msg); err != nil {
		n.logger.Warn("notification send failed",
			zap.String("code", alert.Code),
			zap.String("event", eventType),
			zap.Error(err),
		)
		metrics.IncNotification(metrics.NotifyFailed)
		return
	}
	metrics.IncNotification(metrics.NotifySent)
	n.markSent(alert.Code, eventType, content)
}

func (n *Notifier) scheduleEscalation(patientID string, alert vitals.Alert) {
	if n.escalation <= 0 || n.active == nil || alert.Code == "" {
		return
	}
	n.mu.Lock()
	if existing, ok := n.timers[alert.Code]; ok && existing != nil {
		existing.Stop()
	}
	n.timers[alert.Code] = time.AfterFunc(n.escalation, func() {
		n.runEscalation(patientID, alert.Code)
	})
	n.mu.Unlock()
}

func (n *Notifier) cancelEscalation(code string) {
	if code == "" {
		return
	}
	n.mu.Lock()
	timer := n.timers[code]
	delete(n.timers, code)
	n.mu.Unlock()
	if timer != nil {
		timer.Stop()
	}
}

func (n *Notifier) runEscalation(patientID, code string) {
	n.mu.Lock()
	delete(n.timers, code)
	n.mu.Unlock()

	for _, alert := range n.active.Alerts() {
		if alert.Code == code {
			n.dispatch(context.Background(), eventEscalated, patientID, alert)
			return
		}
	}
}

func (n *Notifier) buildTemplateData(eventType, patientID string, alert vitals.Alert) TemplateData {
	value := "-"
	if alert.Value != nil {
		value = strconv.FormatFloat(*alert.Value, 'f', -1, 64)
	}
	observedAt := ""
	if !alert.At.IsZero() {
		observedAt = alert.At.UTC().Format(time.RFC3339)
	}
	return TemplateData{
		Patient:    patientID,
		Signal:     string(alert.Type),
		Code:       alert.Code,
		Message:    alert.Message,
		Value:      value,
		Unit:       alert.Unit,
		ObservedAt: observedAt,
		Suggestion: suggestionFor(eventType, alert),
		Contact:    n.contact,
		Event:      eventType,
		EventLabel: eventLabel(eventType),
	}
}

func eventLabel(event string) string {
	switch event {
	case application.EventRaised:
		return "Alert"
	case application.EventResolved:
		return "Resolved"
	case eventEscalated:
		return "Escalated"
	default:
		return event
	}
}

func suggestionFor(eventType string, alert vitals.Alert) string {
	if eventType == application.EventResolved {
		return "Reading is back out of the danger zone. Keep monitoring."
	}
	switch alert.Type {
	case vitals.SignalSpO2:
		return "Check the oximeter placement and oxygen supply."
	case vitals.SignalRR, vitals.SignalEtCO2:
		return "Check the airway and ventilator settings."
	case vitals.SignalBPSys, vitals.SignalBPDia:
		return "Repeat the blood pressure measurement."
	default:
		return "Confirm the reading and contact the care team if it persists."
	}
}

func (n *Notifier) shouldSend(code, eventType, content string) bool {
	if n.cooldown <= 0 && n.dedupeWindow <= 0 {
		return true
	}
	now := n.clock.Now().UTC()

	n.mu.Lock()
	record, ok := n.sent[notificationKey(code, eventType)]
	n.mu.Unlock()
	if !ok {
		return true
	}
	if n.cooldown > 0 && now.Sub(record.at) < n.cooldown {
		return false
	}
	if n.dedupeWindow > 0 && record.hash == hashContent(content) && now.Sub(record.at) < n.dedupeWindow {
		return false
	}
	return true
}

func (n *Notifier) markSent(code, eventType, content string) {
	n.mu.Lock()
	n.sent[notificationKey(code, eventType)] = sendRecord{
		at:   n.clock.Now().UTC(),
		hash: hashContent(content),
	}
	n.mu.Unlock()
}

func notificationKey(code, eventType string) string {
	return code + "|" + eventType
}

func hashContent(content string) string {
	sum := sha1.Sum([]byte(content))
	return hex.EncodeToString(sum[:8])
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
