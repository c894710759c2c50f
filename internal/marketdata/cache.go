// Package marketdata owns the market snapshot cache: one background
// writer refreshes from the wiki feeds and atomically publishes a new
// immutable snapshot, any number of readers see either the old or the
// new value, never a partial one.
package marketdata

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"osrs-trader/internal/events"
	"osrs-trader/internal/osrs"

	"github.com/rs/zerolog"
)

// Fetcher is the upstream surface the cache refreshes from
type Fetcher interface {
	LatestPrices(ctx context.Context) (*osrs.LatestPricesResponse, error)
	DailyPrices(ctx context.Context) (*osrs.DailyPricesResponse, error)
	ItemCatalog(ctx context.Context) ([]osrs.ItemMapping, error)
}

// Config holds cache configuration
type Config struct {
	RefreshInterval time.Duration
}

// Cache publishes immutable market snapshots on a refresh interval.
// On upstream failure it keeps serving the previous snapshot.
type Cache struct {
	fetcher Fetcher
	bus     *events.EventBus
	mirror  *RedisMirror // optional, may be nil
	logger  zerolog.Logger
	config  Config

	snapshot atomic.Pointer[Snapshot]

	catalogMu sync.Mutex
	catalog   map[int]ItemMeta // loaded once, reused across refreshes

	refreshMu sync.Mutex // serializes concurrent refresh attempts
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

// NewCache creates a snapshot cache. mirror may be nil.
func NewCache(fetcher Fetcher, bus *events.EventBus, mirror *RedisMirror, logger zerolog.Logger, config Config) *Cache {
	return &Cache{
		fetcher:  fetcher,
		bus:      bus,
		mirror:   mirror,
		logger:   logger.With().Str("component", "marketdata").Logger(),
		config:   config,
		stopChan: make(chan struct{}),
	}
}

// Current returns the last published snapshot, or nil before the first
// successful refresh. O(1) and safe under any level of concurrency.
func (c *Cache) Current() *Snapshot {
	return c.snapshot.Load()
}

// Refresh fetches fresh data and atomically swaps the whole snapshot.
// On any fetch failure the previous snapshot stays published.
func (c *Cache) Refresh(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	catalog, err := c.loadCatalog(ctx)
	if err != nil {
		return fmt.Errorf("refreshing catalog: %w", err)
	}

	latest, err := c.fetcher.LatestPrices(ctx)
	if err != nil {
		return fmt.Errorf("refreshing quotes: %w", err)
	}

	// Daily stats are enrichment; a failed fetch downgrades the snapshot
	// rather than blocking it.
	daily, err := c.fetcher.DailyPrices(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("24h stats unavailable, refreshing quotes only")
		daily = nil
	}

	snap := buildSnapshot(latest, daily, catalog, time.Now())
	c.snapshot.Store(snap)

	if c.mirror != nil {
		if err := c.mirror.StoreSnapshot(ctx, snap); err != nil {
			c.logger.Debug().Err(err).Msg("snapshot mirror write skipped")
		}
	}

	c.logger.Info().
		Int("quotes", len(snap.Quotes)).
		Int("stats", len(snap.Stats)).
		Msg("snapshot refreshed")
	c.bus.PublishSnapshotRefreshed(len(snap.Quotes), snap.FetchedAt)

	return nil
}

// RefreshIfStale refreshes only when the current snapshot is older than
// the caller's TTL. Used by read paths with stricter freshness needs
// than the background interval.
func (c *Cache) RefreshIfStale(ctx context.Context, ttl time.Duration) error {
	if c.Current().FreshFor(ttl) {
		return nil
	}
	return c.Refresh(ctx)
}

// Start launches the background refresh loop
func (c *Cache) Start() {
	c.wg.Add(1)
	go c.runRefreshLoop()
	c.logger.Info().Dur("interval", c.config.RefreshInterval).Msg("snapshot refresher started")
}

// Stop tears down the refresh loop
func (c *Cache) Stop() {
	close(c.stopChan)
	c.wg.Wait()
}

func (c *Cache) runRefreshLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.RefreshInterval)
	defer ticker.Stop()

	// Run immediately so readers are not empty for a full interval
	c.refreshOnce()

	for {
		select {
		case <-ticker.C:
			c.refreshOnce()
		case <-c.stopChan:
			c.logger.Info().Msg("snapshot refresher stopped")
			return
		}
	}
}

func (c *Cache) refreshOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := c.Refresh(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("refresh failed, serving previous snapshot")
		c.bus.PublishError("marketdata", err.Error())

		// Warm-start from the mirror when we have nothing at all yet
		if c.Current() == nil && c.mirror != nil {
			if snap, merr := c.mirror.LoadSnapshot(ctx); merr == nil && snap != nil {
				c.snapshot.Store(snap)
				c.logger.Info().Time("fetched_at", snap.FetchedAt).Msg("recovered snapshot from mirror")
			}
		}
	}
}

func (c *Cache) loadCatalog(ctx context.Context) (map[int]ItemMeta, error) {
	c.catalogMu.Lock()
	defer c.catalogMu.Unlock()

	if c.catalog != nil {
		return c.catalog, nil
	}

	items, err := c.fetcher.ItemCatalog(ctx)
	if err != nil {
		return nil, err
	}

	catalog := make(map[int]ItemMeta, len(items))
	for _, item := range items {
		catalog[item.ID] = ItemMeta{
			ItemID:      item.ID,
			Name:        item.Name,
			BuyLimit:    item.BuyLimit,
			MembersOnly: item.Members,
			LowAlch:     item.LowAlch,
			HighAlch:    item.HighAlch,
		}
	}

	c.catalog = catalog
	c.logger.Info().Int("items", len(catalog)).Msg("item catalog loaded")
	return catalog, nil
}
