package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// =============================================================================
// DISCORD NOTIFIER
// =============================================================================

// DiscordNotifier sends alerts via Discord webhook
type DiscordNotifier struct {
	webhookURL string
	enabled    bool
	client     *http.Client
}

// DiscordConfig holds Discord configuration
type DiscordConfig struct {
	WebhookURL string
	Enabled    bool
}

// NewDiscordNotifier creates a new Discord notifier
func NewDiscordNotifier(config DiscordConfig) *DiscordNotifier {
	return &DiscordNotifier{
		webhookURL: config.WebhookURL,
		enabled:    config.Enabled && config.WebhookURL != "",
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (d *DiscordNotifier) Name() string {
	return "discord"
}

func (d *DiscordNotifier) IsEnabled() bool {
	return d.enabled
}

func (d *DiscordNotifier) Send(alert *Alert) error {
	embed := map[string]interface{}{
		"title":       fmt.Sprintf("Price drop: %s", alert.Name),
		"description": FormatMessage(alert),
		"color":       0xFF0000,
		"timestamp":   alert.Timestamp.Format(time.RFC3339),
		"fields": []map[string]interface{}{
			{"name": "Drop", "value": fmt.Sprintf("%.1f%%", alert.DropPercent), "inline": true},
			{"name": "Price", "value": fmt.Sprintf("%d gp", alert.CurrentPrice), "inline": true},
			{"name": "24h avg", "value": fmt.Sprintf("%d gp", alert.AvgPrice), "inline": true},
		},
	}
	if alert.Link != "" {
		embed["url"] = alert.Link
	}

	payload := map[string]interface{}{
		"embeds": []map[string]interface{}{embed},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal discord payload: %w", err)
	}

	resp, err := d.client.Post(d.webhookURL, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to send discord message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("discord API returned status %d", resp.StatusCode)
	}

	return nil
}

// =============================================================================
// GENERIC WEBHOOK NOTIFIER
// =============================================================================

// WebhookNotifier posts alerts to an operator-supplied endpoint. The
// URL must match one of the configured allow-list prefixes; anything
// else is dropped and logged, never fetched.
type WebhookNotifier struct {
	url     string
	enabled bool
	client  *http.Client
	logger  zerolog.Logger
}

// WebhookConfig holds outbound webhook configuration
type WebhookConfig struct {
	URL           string
	Enabled       bool
	AllowPrefixes []string
}

// NewWebhookNotifier creates a new webhook notifier. A URL outside
// the allow list disables the notifier at construction.
func NewWebhookNotifier(config WebhookConfig, logger zerolog.Logger) *WebhookNotifier {
	n := &WebhookNotifier{
		url:     config.URL,
		enabled: config.Enabled && config.URL != "",
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger.With().Str("component", "webhook").Logger(),
	}
	if n.enabled && !urlAllowed(config.URL, config.AllowPrefixes) {
		n.logger.Warn().Str("url", config.URL).Msg("Webhook URL outside allow list, channel disabled")
		n.enabled = false
	}
	return n
}

func urlAllowed(url string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(url, p) {
			return true
		}
	}
	return false
}

func (w *WebhookNotifier) Name() string {
	return "webhook"
}

func (w *WebhookNotifier) IsEnabled() bool {
	return w.enabled
}

func (w *WebhookNotifier) Send(alert *Alert) error {
	payload := map[string]interface{}{
		"item_id":       alert.ItemID,
		"item_name":     alert.Name,
		"drop_percent":  alert.DropPercent,
		"current_price": alert.CurrentPrice,
		"link":          alert.Link,
		"timestamp":     alert.Timestamp.Format(time.RFC3339),
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	resp, err := w.client.Post(w.url, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook endpoint returned status %d", resp.StatusCode)
	}

	return nil
}
