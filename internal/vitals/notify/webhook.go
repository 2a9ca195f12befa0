package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	vitals "respcare-monitor/internal/vitals/domain"
)

// Message is one outbound alert notification: the alert itself plus the
// rendered text for human readers.
type Message struct {
	Event     string
	PatientID string
	Alert     vitals.Alert
	Text      string
}

// Channel delivers notifications.
type Channel interface {
	Send(ctx context.Context, msg Message) error
}

// Envelope selects the webhook body format.
type Envelope string

const (
	// EnvelopeAlert posts the structured alert document.
	EnvelopeAlert Envelope = "alert"
	// EnvelopeChatText posts {"msgtype":"text","text":{"content":...}} for
	// group-chat bots that only accept text messages.
	EnvelopeChatText Envelope = "chat_text"
)

// ParseEnvelope validates a configured envelope name. Empty means EnvelopeAlert.
func ParseEnvelope(name string) (Envelope, error) {
	switch Envelope(strings.ToLower(strings.TrimSpace(name))) {
	case "", EnvelopeAlert:
		return EnvelopeAlert, nil
	case EnvelopeChatText:
		return EnvelopeChatText, nil
	default:
		return "", fmt.Errorf("webhook channel: unknown envelope %q", name)
	}
}

// AlertPayload is the EnvelopeAlert body.
type AlertPayload struct {
	Event      string            `json:"event"`
	PatientID  string            `json:"patientId"`
	Code       string            `json:"code"`
	Signal     vitals.SignalType `json:"signal"`
	Zone       vitals.Zone       `json:"zone"`
	Value      *float64          `json:"value"`
	Unit       string            `json:"unit,omitempty"`
	Message    string            `json:"message"`
	ObservedAt *time.Time        `json:"observedAt,omitempty"`
	Text       string            `json:"text"`
}

type chatTextPayload struct {
	MsgType string `json:"msgtype"`
	Text    struct {
		Content string `json:"content"`
	} `json:"text"`
}

func alertPayload(msg Message) AlertPayload {
	p := AlertPayload{
		Event:     msg.Event,
		PatientID: msg.PatientID,
		Code:      msg.Alert.Code,
		Signal:    msg.Alert.Type,
		Zone:      msg.Alert.Zone,
		Value:     msg.Alert.Value,
		Unit:      msg.Alert.Unit,
		Message:   msg.Alert.Message,
		Text:      msg.Text,
	}
	if !msg.Alert.At.IsZero() {
		at := msg.Alert.At.UTC()
		p.ObservedAt = &at
	}
	return p
}

// WebhookChannel posts notifications to an HTTP endpoint.
type WebhookChannel struct {
	url      string
	envelope Envelope
	headers  http.Header
	client   *http.Client
}

// WebhookOption configures the webhook channel.
type WebhookOption func(*WebhookChannel)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) WebhookOption {
	return func(ch *WebhookChannel) {
		if client != nil {
			ch.client = client
		}
	}
}

// WithEnvelope selects the body format.
func WithEnvelope(envelope Envelope) WebhookOption {
	return func(ch *WebhookChannel) {
		if envelope != "" {
			ch.envelope = envelope
		}
	}
}

// WithHeader adds a request header, e.g. an Authorization token for the receiver.
func WithHeader(key, value string) WebhookOption {
	return func(ch *WebhookChannel) {
		if key != "" {
			ch.headers.Set(key, value)
		}
	}
}

// NewWebhookChannel constructs a webhook channel.
func NewWebhookChannel(url string, opts ...WebhookOption) (*WebhookChannel, error) {
	if url == "" {
		return nil, errors.New("webhook channel: empty url")
	}
	ch := &WebhookChannel{
		url:      url,
		envelope: EnvelopeAlert,
		headers:  make(http.Header),
		client:   &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(ch)
	}
	if _, err := ParseEnvelope(string(ch.envelope)); err != nil {
		return nil, err
	}
	return ch, nil
}

func (w *WebhookChannel) body(msg Message) ([]byte, error) {
	if w.envelope == EnvelopeChatText {
		var p chatTextPayload
		p.MsgType = "text"
		p.Text.Content = msg.Text
		return json.Marshal(p)
	}
	return json.Marshal(alertPayload(msg))
}

// Send posts msg in the configured envelope. Any non-2xx status is an error.
func (w *WebhookChannel) Send(ctx context.Context, msg Message) error {
	if w == nil || w.url == "" {
		return errors.New("webhook channel: empty url")
	}
	body, err := w.body(msg)
	if err != nil {
		return fmt.Errorf("webhook channel: encode: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	for key, values := range w.headers {
		req.Header[key] = values
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook channel: %s responded %d", w.url, resp.StatusCode)
	}
	return nil
}
