package notification

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"osrs-trader/internal/events"
)

// Alert is a price-drop notification payload
type Alert struct {
	ItemID       int       `json:"item_id"`
	Name         string    `json:"name"`
	DropPercent  float64   `json:"drop_percent"`
	CurrentPrice int64     `json:"current_price"`
	AvgPrice     int64     `json:"avg_price"`
	Link         string    `json:"link"`
	Timestamp    time.Time `json:"timestamp"`
}

// Notifier interface for different notification providers
type Notifier interface {
	Send(alert *Alert) error
	Name() string
	IsEnabled() bool
}

// Manager fans an alert out to all enabled providers. Each provider
// runs in its own goroutine under a dispatch timeout so one slow or
// failing channel never delays the others.
type Manager struct {
	notifiers []Notifier
	timeout   time.Duration
	logger    zerolog.Logger
}

// NewManager creates a new notification manager
func NewManager(timeout time.Duration, logger zerolog.Logger) *Manager {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Manager{
		notifiers: make([]Notifier, 0),
		timeout:   timeout,
		logger:    logger.With().Str("component", "notification").Logger(),
	}
}

// AddNotifier adds a notification provider
func (m *Manager) AddNotifier(n Notifier) {
	m.notifiers = append(m.notifiers, n)
}

// Dispatch sends the alert to every enabled provider. Delivery is
// best-effort: failures and timeouts are logged and swallowed, and
// the call returns once every channel has finished or timed out.
func (m *Manager) Dispatch(alert *Alert) {
	var wg sync.WaitGroup
	for _, n := range m.notifiers {
		if !n.IsEnabled() {
			continue
		}
		wg.Add(1)
		go func(n Notifier) {
			defer wg.Done()
			m.sendWithTimeout(n, alert)
		}(n)
	}
	wg.Wait()
}

func (m *Manager) sendWithTimeout(n Notifier, alert *Alert) {
	done := make(chan error, 1)
	go func() {
		done <- n.Send(alert)
	}()

	select {
	case err := <-done:
		if err != nil {
			m.logger.Warn().Err(err).Str("channel", n.Name()).Int("item_id", alert.ItemID).Msg("Alert dispatch failed")
		}
	case <-time.After(m.timeout):
		m.logger.Warn().Str("channel", n.Name()).Int("item_id", alert.ItemID).Msg("Alert dispatch timed out")
	}
}

// FormatMessage renders the standard human-readable alert line
func FormatMessage(alert *Alert) string {
	return fmt.Sprintf("%s dropped %.1f%% to %d gp", alert.Name, alert.DropPercent, alert.CurrentPrice)
}

// =============================================================================
// IN-APP NOTIFIER
// =============================================================================

// InAppNotifier publishes the alert on the event bus so connected
// dashboard clients receive it over the websocket stream.
type InAppNotifier struct {
	bus     *events.EventBus
	enabled bool
}

// NewInAppNotifier creates a new in-app notifier
func NewInAppNotifier(bus *events.EventBus, enabled bool) *InAppNotifier {
	return &InAppNotifier{bus: bus, enabled: enabled && bus != nil}
}

func (n *InAppNotifier) Name() string {
	return "in_app"
}

func (n *InAppNotifier) IsEnabled() bool {
	return n.enabled
}

func (n *InAppNotifier) Send(alert *Alert) error {
	n.bus.PublishAlertFired(alert.ItemID, alert.Name, alert.DropPercent, alert.CurrentPrice)
	return nil
}

// =============================================================================
// SOUND NOTIFIER
// =============================================================================

// SoundNotifier asks connected clients to play an audible tone.
// Playback happens client-side; the server only publishes the cue.
type SoundNotifier struct {
	bus     *events.EventBus
	enabled bool
}

// NewSoundNotifier creates a new sound notifier
func NewSoundNotifier(bus *events.EventBus, enabled bool) *SoundNotifier {
	return &SoundNotifier{bus: bus, enabled: enabled && bus != nil}
}

func (n *SoundNotifier) Name() string {
	return "sound"
}

func (n *SoundNotifier) IsEnabled() bool {
	return n.enabled
}

func (n *SoundNotifier) Send(alert *Alert) error {
	n.bus.Publish(events.Event{
		Type: events.EventAlertSound,
		Data: map[string]interface{}{
			"item_id": alert.ItemID,
		},
	})
	return nil
}
