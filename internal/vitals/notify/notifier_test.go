package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"respcare-monitor/internal/vitals/application"
	vitals "respcare-monitor/internal/vitals/domain"
)

func spo2Alert(value float64, at time.Time) vitals.Alert {
	return vitals.Alert{
		Code:    "spo2_low",
		Type:    vitals.SignalSpO2,
		Zone:    vitals.ZoneDanger,
		Value:   &value,
		Unit:    "%",
		At:      at,
		Message: fmt.Sprintf("SpO2 低血氧 (%v%% < 92%%)", value),
	}
}

func captureWebhook(t *testing.T) (*httptest.Server, <-chan *http.Request, <-chan []byte) {
	t.Helper()
	reqCh := make(chan *http.Request, 1)
	bodyCh := make(chan []byte, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		reqCh <- r
		bodyCh <- body
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(server.Close)
	return server, reqCh, bodyCh
}

func TestWebhookNotifierAlertPayload(t *testing.T) {
	server, reqCh, bodyCh := captureWebhook(t)

	channel, err := NewWebhookChannel(server.URL, WithHeader("Authorization", "Bearer care-team"))
	if err != nil {
		t.Fatalf("new webhook channel: %v", err)
	}
	notifier, err := NewNotifier(channel, nil, WithContact("Dr. Lin +886-2-0000-0000"))
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}

	alert := spo2Alert(89, time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC))
	alert.Message = "SpO2 低血氧 (89% < 92%)"
	notifier.Notify(context.Background(), application.AlertEvent{Type: application.EventRaised, PatientID: "patient-1", Alert: alert})

	var req *http.Request
	var body []byte
	select {
	case req = <-reqCh:
		body = <-bodyCh
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for webhook payload")
	}
	if got := req.Header.Get("Authorization"); got != "Bearer care-team" {
		t.Fatalf("expected auth header, got %q", got)
	}
	if got := req.Header.Get("Content-Type"); got != "application/json" {
		t.Fatalf("expected json content type, got %q", got)
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	for _, key := range []string{"event", "patientId", "code", "signal", "zone", "value", "unit", "message", "observedAt", "text"} {
		if _, ok := raw[key]; !ok {
			t.Fatalf("payload missing %q: %s", key, body)
		}
	}
	if _, ok := raw["msgtype"]; ok {
		t.Fatalf("alert envelope must not carry msgtype: %s", body)
	}

	var payload AlertPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.Event != application.EventRaised || payload.PatientID != "patient-1" || payload.Code != "spo2_low" {
		t.Fatalf("unexpected identity fields: %+v", payload)
	}
	if payload.Signal != vitals.SignalSpO2 || payload.Zone != vitals.ZoneDanger {
		t.Fatalf("unexpected signal/zone: %+v", payload)
	}
	if payload.Value == nil || *payload.Value != 89 {
		t.Fatalf("unexpected value: %+v", payload.Value)
	}
	if payload.ObservedAt == nil || !payload.ObservedAt.Equal(alert.At) {
		t.Fatalf("unexpected observedAt: %v", payload.ObservedAt)
	}
	checks := []string{
		"[Vitals Alert]",
		"Patient: patient-1",
		"Signal: SpO2",
		"Alert: SpO2 低血氧 (89% < 92%)",
		"Value: 89 %",
		"Observed At: 2026-04-02T08:00:00Z",
		"Suggestion: Check the oximeter",
		"Contact: Dr. Lin +886-2-0000-0000",
	}
	for _, expected := range checks {
		if !strings.Contains(payload.Text, expected) {
			t.Fatalf("expected text to include %q, got %s", expected, payload.Text)
		}
	}
}

func TestWebhookChannelChatTextEnvelope(t *testing.T) {
	server, _, bodyCh := captureWebhook(t)

	channel, err := NewWebhookChannel(server.URL, WithEnvelope(EnvelopeChatText))
	if err != nil {
		t.Fatalf("new webhook channel: %v", err)
	}
	msg := Message{Event: application.EventResolved, PatientID: "patient-1", Alert: spo2Alert(96, time.Time{}), Text: "[Vitals Resolved]"}
	if err := channel.Send(context.Background(), msg); err != nil {
		t.Fatalf("send: %v", err)
	}

	var payload struct {
		MsgType string `json:"msgtype"`
		Text    struct {
			Content string `json:"content"`
		} `json:"text"`
	}
	if err := json.Unmarshal(<-bodyCh, &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.MsgType != "text" || payload.Text.Content != "[Vitals Resolved]" {
		t.Fatalf("unexpected chat payload: %+v", payload)
	}
}

func TestParseEnvelope(t *testing.T) {
	cases := map[string]Envelope{"": EnvelopeAlert, "alert": EnvelopeAlert, " CHAT_TEXT ": EnvelopeChatText}
	for in, want := range cases {
		got, err := ParseEnvelope(in)
		if err != nil || got != want {
			t.Fatalf("ParseEnvelope(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseEnvelope("markdown"); err == nil {
		t.Fatal("expected error for unknown envelope")
	}
	if _, err := NewWebhookChannel("http://example.invalid", WithEnvelope("markdown")); err == nil {
		t.Fatal("expected constructor to reject unknown envelope")
	}
}

func TestWebhookChannelNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	channel, err := NewWebhookChannel(server.URL)
	if err != nil {
		t.Fatalf("new webhook channel: %v", err)
	}
	if err := channel.Send(context.Background(), Message{Text: "hello"}); err == nil {
		t.Fatal("expected error for 502 response")
	}
	if _, err := NewWebhookChannel(""); err == nil {
		t.Fatal("expected error for empty url")
	}
}

type recordingChannel struct {
	mu       sync.Mutex
	contents []string
}

func (r *recordingChannel) Send(_ context.Context, msg Message) error {
	r.mu.Lock()
	r.contents = append(r.contents, msg.Text)
	r.mu.Unlock()
	return nil
}

func (r *recordingChannel) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.contents)
}

func (r *recordingChannel) Latest() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.contents) == 0 {
		return ""
	}
	return r.contents[len(r.contents)-1]
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Add(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

type stubAlerts struct {
	mu     sync.Mutex
	alerts []vitals.Alert
}

func (s *stubAlerts) Alerts() []vitals.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]vitals.Alert(nil), s.alerts...)
}

func TestNotifierCooldown(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)}
	channel := &recordingChannel{}
	notifier, err := NewNotifier(channel, nil, WithClock(clock), WithCooldown(10*time.Minute))
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}
	event := application.AlertEvent{Type: application.EventRaised, PatientID: "patient-1", Alert: spo2Alert(89, clock.Now())}

	notifier.Notify(context.Background(), event)
	notifier.Notify(context.Background(), event)
	if got := channel.Count(); got != 1 {
		t.Fatalf("expected 1 notification during cooldown, got %d", got)
	}

	resolved := event
	resolved.Type = application.EventResolved
	notifier.Notify(context.Background(), resolved)
	if got := channel.Count(); got != 2 {
		t.Fatalf("expected resolved event to use its own cooldown key, got %d", got)
	}

	clock.Add(11 * time.Minute)
	notifier.Notify(context.Background(), event)
	if got := channel.Count(); got != 3 {
		t.Fatalf("expected notification after cooldown, got %d", got)
	}
}

func TestNotifierDedupeWindow(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 4, 2, 11, 0, 0, 0, time.UTC)}
	channel := &recordingChannel{}
	notifier, err := NewNotifier(channel, nil, WithClock(clock), WithDedupeWindow(30*time.Minute))
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}
	at := clock.Now()
	event := application.AlertEvent{Type: application.EventRaised, PatientID: "patient-1", Alert: spo2Alert(89, at)}

	notifier.Notify(context.Background(), event)
	clock.Add(5 * time.Minute)
	notifier.Notify(context.Background(), event)
	if got := channel.Count(); got != 1 {
		t.Fatalf("expected 1 notification during dedupe window, got %d", got)
	}

	event.Alert = spo2Alert(85, at)
	notifier.Notify(context.Background(), event)
	if got := channel.Count(); got != 2 {
		t.Fatalf("expected notification when content changes, got %d", got)
	}
}

func TestNotifierEscalation(t *testing.T) {
	channel := &recordingChannel{}
	alert := spo2Alert(88, time.Date(2026, 4, 2, 12, 0, 0, 0, time.UTC))
	active := &stubAlerts{alerts: []vitals.Alert{alert}}
	notifier, err := NewNotifier(channel, nil, WithEscalation(20*time.Millisecond, active))
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}
	defer notifier.Close()

	notifier.Notify(context.Background(), application.AlertEvent{Type: application.EventRaised, PatientID: "patient-1", Alert: alert})

	deadline := time.After(500 * time.Millisecond)
	for channel.Count() < 2 {
		select {
		case <-deadline:
			t.Fatalf("expected escalation notification, got %d", channel.Count())
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	if !strings.Contains(channel.Latest(), "Escalated") {
		t.Fatalf("expected escalated notification content, got %s", channel.Latest())
	}
}

func TestNotifierEscalationCancelledOnResolve(t *testing.T) {
	channel := &recordingChannel{}
	alert := spo2Alert(88, time.Date(2026, 4, 2, 12, 0, 0, 0, time.UTC))
	active := &stubAlerts{alerts: []vitals.Alert{alert}}
	notifier, err := NewNotifier(channel, nil, WithEscalation(30*time.Millisecond, active))
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}
	defer notifier.Close()

	notifier.Notify(context.Background(), application.AlertEvent{Type: application.EventRaised, PatientID: "patient-1", Alert: alert})
	notifier.Notify(context.Background(), application.AlertEvent{Type: application.EventResolved, PatientID: "patient-1", Alert: alert})

	time.Sleep(100 * time.Millisecond)
	if got := channel.Count(); got != 2 {
		t.Fatalf("expected raised and resolved only, got %d", got)
	}
	if !strings.Contains(channel.Latest(), "Resolved") {
		t.Fatalf("expected resolved content, got %s", channel.Latest())
	}
}

type countingNotifier struct {
	mu    sync.Mutex
	count int
}

func (c *countingNotifier) Notify(context.Context, application.AlertEvent) {
	c.mu.Lock()
	c.count++
	c.mu.Unlock()
}

func TestMultiNotifierFansOut(t *testing.T) {
	a, b := &countingNotifier{}, &countingNotifier{}
	multi := NewMultiNotifier(a, nil, b)
	multi.Notify(context.Background(), application.AlertEvent{Type: application.EventRaised})
	if a.count != 1 || b.count != 1 {
		t.Fatalf("expected both notifiers called once, got %d and %d", a.count, b.count)
	}
}
