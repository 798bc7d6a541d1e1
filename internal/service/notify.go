package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/openveg/directory-service/internal/domain/model"
)

// Notifier delivers an alert transition to one channel. Delivery is
// fire-and-forget: a failed channel is logged by the monitor and never
// blocks the monitoring loop or the other channels.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, alert model.AlertRecord, message string) error
}

// WebhookNotifier POSTs the alert record as JSON to a configured URL.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a webhook notifier with a bounded client.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

// Name implements Notifier.
func (n *WebhookNotifier) Name() string { return "webhook" }

// Notify implements Notifier.
func (n *WebhookNotifier) Notify(ctx context.Context, alert model.AlertRecord, message string) error {
	payload, err := json.Marshal(struct {
		model.AlertRecord
		Text string `json:"text"`
	}{AlertRecord: alert, Text: message})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
	return nil
}

// LogNotifier stands in for channels without a real transport yet
// (email, chat). It writes the alert to the structured log.
type LogNotifier struct {
	channel string
	log     zerolog.Logger
}

// NewLogNotifier creates a log-backed notifier for the named channel.
func NewLogNotifier(channel string, log zerolog.Logger) *LogNotifier {
	return &LogNotifier{channel: channel, log: log.With().Str("channel", channel).Logger()}
}

// Name implements Notifier.
func (n *LogNotifier) Name() string { return n.channel }

// Notify implements Notifier.
func (n *LogNotifier) Notify(_ context.Context, alert model.AlertRecord, message string) error {
	event := n.log.Warn()
	if alert.Severity == model.SeverityCritical {
		event = n.log.Error()
	}
	event.
		Str("alert_id", alert.ID).
		Str("type", string(alert.Type)).
		Str("severity", string(alert.Severity)).
		Float64("current_value", alert.CurrentValue).
		Float64("threshold", alert.Threshold).
		Bool("resolved", alert.Resolved).
		Msg(message)
	return nil
}
