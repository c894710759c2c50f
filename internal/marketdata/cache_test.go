package marketdata

import (
	"context"
	"errors"
	"testing"
	"time"

	"osrs-trader/internal/events"
	"osrs-trader/internal/osrs"

	"github.com/rs/zerolog"
)

type fakeFetcher struct {
	latest       *osrs.LatestPricesResponse
	daily        *osrs.DailyPricesResponse
	catalog      []osrs.ItemMapping
	latestErr    error
	catalogCalls int
}

func (f *fakeFetcher) LatestPrices(ctx context.Context) (*osrs.LatestPricesResponse, error) {
	if f.latestErr != nil {
		return nil, f.latestErr
	}
	return f.latest, nil
}

func (f *fakeFetcher) DailyPrices(ctx context.Context) (*osrs.DailyPricesResponse, error) {
	return f.daily, nil
}

func (f *fakeFetcher) ItemCatalog(ctx context.Context) ([]osrs.ItemMapping, error) {
	f.catalogCalls++
	return f.catalog, nil
}

func int64Ptr(v int64) *int64 { return &v }

func newFakeFetcher() *fakeFetcher {
	now := time.Now().Unix()
	return &fakeFetcher{
		latest: &osrs.LatestPricesResponse{
			Data: map[string]osrs.PriceInfo{
				"4151": {High: int64Ptr(1500000), HighTime: int64Ptr(now), Low: int64Ptr(1480000), LowTime: int64Ptr(now - 30)},
			},
		},
		daily: &osrs.DailyPricesResponse{
			Data: map[string]osrs.DailyPricePoint{
				"4151": {AvgHighPrice: int64Ptr(1520000), HighPriceVolume: 4000, AvgLowPrice: int64Ptr(1490000), LowPriceVolume: 3500},
			},
		},
		catalog: []osrs.ItemMapping{
			{ID: 4151, Name: "Abyssal whip", BuyLimit: 70, Members: true, HighAlch: 72000},
		},
	}
}

func newTestCache(f Fetcher) *Cache {
	return NewCache(f, events.NewEventBus(), nil, zerolog.Nop(), Config{RefreshInterval: time.Minute})
}

// TestRefreshPublishesSnapshot verifies a refresh builds a complete snapshot
func TestRefreshPublishesSnapshot(t *testing.T) {
	fetcher := newFakeFetcher()
	cache := newTestCache(fetcher)

	if cache.Current() != nil {
		t.Fatal("expected nil snapshot before first refresh")
	}

	if err := cache.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	snap := cache.Current()
	if snap == nil {
		t.Fatal("expected snapshot after refresh")
	}

	quote, ok := snap.Quote(4151)
	if !ok {
		t.Fatal("expected quote for item 4151")
	}
	if quote.BuyPrice != 1480000 || quote.SellPrice != 1500000 {
		t.Errorf("unexpected quote prices: %+v", quote)
	}
	if quote.BuyVolume != 3500 || quote.SellVolume != 4000 {
		t.Errorf("expected daily volumes carried onto quote, got %+v", quote)
	}

	stats, ok := snap.Stats[4151]
	if !ok || stats.AvgBuyPrice != 1490000 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	meta, ok := snap.Catalog[4151]
	if !ok || meta.Name != "Abyssal whip" || meta.BuyLimit != 70 {
		t.Errorf("unexpected catalog entry: %+v", meta)
	}
}

// TestRefreshFailureKeepsPreviousSnapshot verifies stale-but-available behavior
func TestRefreshFailureKeepsPreviousSnapshot(t *testing.T) {
	fetcher := newFakeFetcher()
	cache := newTestCache(fetcher)

	if err := cache.Refresh(context.Background()); err != nil {
		t.Fatalf("initial refresh failed: %v", err)
	}
	first := cache.Current()

	fetcher.latestErr = errors.New("upstream down")
	if err := cache.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh error when upstream is down")
	}

	if cache.Current() != first {
		t.Error("failed refresh must keep serving the previous snapshot")
	}
}

// TestCatalogLoadedOnce verifies the static catalog is fetched a single time
func TestCatalogLoadedOnce(t *testing.T) {
	fetcher := newFakeFetcher()
	cache := newTestCache(fetcher)

	for i := 0; i < 3; i++ {
		if err := cache.Refresh(context.Background()); err != nil {
			t.Fatalf("refresh %d failed: %v", i, err)
		}
	}

	if fetcher.catalogCalls != 1 {
		t.Errorf("expected 1 catalog fetch, got %d", fetcher.catalogCalls)
	}
}

// TestFreshFor verifies per-consumer TTL checks
func TestFreshFor(t *testing.T) {
	var nilSnap *Snapshot
	if nilSnap.FreshFor(time.Hour) {
		t.Error("nil snapshot must never be fresh")
	}

	snap := &Snapshot{FetchedAt: time.Now().Add(-90 * time.Second)}
	if snap.FreshFor(time.Minute) {
		t.Error("snapshot older than TTL reported fresh")
	}
	if !snap.FreshFor(5 * time.Minute) {
		t.Error("snapshot younger than TTL reported stale")
	}
}

// TestRefreshIfStale verifies the on-demand refresh path
func TestRefreshIfStale(t *testing.T) {
	fetcher := newFakeFetcher()
	cache := newTestCache(fetcher)

	if err := cache.RefreshIfStale(context.Background(), time.Minute); err != nil {
		t.Fatalf("RefreshIfStale failed: %v", err)
	}
	first := cache.Current()
	if first == nil {
		t.Fatal("expected snapshot after stale refresh")
	}

	// Fresh snapshot: no refetch, same pointer
	if err := cache.RefreshIfStale(context.Background(), time.Minute); err != nil {
		t.Fatalf("RefreshIfStale failed: %v", err)
	}
	if cache.Current() != first {
		t.Error("fresh snapshot should not have been replaced")
	}
}
