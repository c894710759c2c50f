// Package alerts watches tracked items for sharp price drops and
// fans qualifying ones out to the notification channels. It owns the
// per-item cooldown table, the only mutable state in the decision
// core.
package alerts

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"osrs-trader/internal/marketdata"
	"osrs-trader/internal/notification"
)

// Dispatcher delivers an alert to the configured channels
type Dispatcher interface {
	Dispatch(alert *notification.Alert)
}

// Config holds alert monitor tunables
type Config struct {
	Enabled       bool
	DropThreshold float64 // percent drop vs the 24h average buy price
	Cooldown      time.Duration
	TrackedItems  []int // empty means watch the whole catalog
}

// Monitor evaluates tracked items on every snapshot refresh.
// Dedup is by item id only: a second qualifying drop inside the
// cooldown window is suppressed even if it is deeper than the first.
type Monitor struct {
	config     Config
	dispatcher Dispatcher
	logger     zerolog.Logger

	mu        sync.Mutex
	lastFired map[int]time.Time

	now func() time.Time
}

// NewMonitor creates a new alert monitor
func NewMonitor(config Config, dispatcher Dispatcher, logger zerolog.Logger) *Monitor {
	return &Monitor{
		config:     config,
		dispatcher: dispatcher,
		logger:     logger.With().Str("component", "alerts").Logger(),
		lastFired:  make(map[int]time.Time),
		now:        time.Now,
	}
}

// Evaluate checks every tracked item against the drop threshold and
// dispatches an alert for each one that qualifies and is out of
// cooldown. Returns the number of alerts fired.
func (m *Monitor) Evaluate(snap *marketdata.Snapshot) int {
	cfg := m.Config()
	if !cfg.Enabled || snap == nil {
		return 0
	}

	fired := 0
	for _, id := range m.trackedIDs(cfg, snap) {
		quote, ok := snap.Quote(id)
		if !ok || quote.BuyPrice <= 0 {
			continue
		}
		stats, ok := snap.Stats[id]
		if !ok || stats.AvgBuyPrice <= 0 {
			continue
		}

		drop := float64(stats.AvgBuyPrice-quote.BuyPrice) / float64(stats.AvgBuyPrice) * 100
		if drop < cfg.DropThreshold {
			continue
		}
		if !m.tryFire(id, cfg.Cooldown) {
			continue
		}

		meta := snap.Catalog[id]
		name := meta.Name
		if name == "" {
			name = fmt.Sprintf("item %d", id)
		}
		alert := &notification.Alert{
			ItemID:       id,
			Name:         name,
			DropPercent:  drop,
			CurrentPrice: quote.BuyPrice,
			AvgPrice:     stats.AvgBuyPrice,
			Link:         fmt.Sprintf("https://prices.runescape.wiki/osrs/item/%d", id),
			Timestamp:    m.now(),
		}

		m.logger.Info().
			Int("item_id", id).
			Str("name", name).
			Float64("drop_percent", drop).
			Int64("price", quote.BuyPrice).
			Msg("Price drop alert")
		m.dispatcher.Dispatch(alert)
		fired++
	}
	return fired
}

// tryFire records the item as fired if its cooldown has elapsed.
// The timestamp is committed before dispatch, so channel failures
// never cause a re-fire.
func (m *Monitor) tryFire(itemID int, cooldown time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if last, ok := m.lastFired[itemID]; ok && now.Sub(last) <= cooldown {
		return false
	}
	m.lastFired[itemID] = now
	return true
}

// Config returns the current alert preferences
func (m *Monitor) Config() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config
}

// SetConfig replaces the alert preferences. The cooldown table is
// kept, so tightening the threshold cannot re-fire recent alerts.
func (m *Monitor) SetConfig(config Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config = config
}

// trackedIDs resolves the watch set for this pass
func (m *Monitor) trackedIDs(cfg Config, snap *marketdata.Snapshot) []int {
	if len(cfg.TrackedItems) > 0 {
		return cfg.TrackedItems
	}
	ids := make([]int, 0, len(snap.Catalog))
	for id := range snap.Catalog {
		ids = append(ids, id)
	}
	return ids
}

// LastFired returns when the item last produced an alert
func (m *Monitor) LastFired(itemID int) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.lastFired[itemID]
	return t, ok
}
