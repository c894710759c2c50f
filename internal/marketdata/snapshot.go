package marketdata

import (
	"strconv"
	"time"

	"osrs-trader/internal/osrs"
)

// Quote is the best-available market quote for one item.
// BuyPrice is what a buy offer fills at right now (the wiki "low"),
// SellPrice is what a sell offer fills at (the wiki "high").
// BuyPrice <= SellPrice is NOT guaranteed; crossed quotes happen on
// thin items and must flow through as zero or negative profit.
type Quote struct {
	ItemID     int       `json:"item_id"`
	BuyPrice   int64     `json:"buy_price"`
	SellPrice  int64     `json:"sell_price"`
	BuyTime    time.Time `json:"buy_time"`
	SellTime   time.Time `json:"sell_time"`
	BuyVolume  int64     `json:"buy_volume,omitempty"`
	SellVolume int64     `json:"sell_volume,omitempty"`
}

// Newest returns the more recent of the two quote timestamps
func (q Quote) Newest() time.Time {
	if q.BuyTime.After(q.SellTime) {
		return q.BuyTime
	}
	return q.SellTime
}

// DailyStats is a 24h rolling aggregate for one item
type DailyStats struct {
	ItemID       int   `json:"item_id"`
	AvgBuyPrice  int64 `json:"avg_buy_price"`
	AvgSellPrice int64 `json:"avg_sell_price"`
	BuyVolume    int64 `json:"buy_volume"`
	SellVolume   int64 `json:"sell_volume"`
}

// TotalVolume returns the combined 24h traded volume
func (s DailyStats) TotalVolume() int64 {
	return s.BuyVolume + s.SellVolume
}

// ItemMeta is a static catalog entry
type ItemMeta struct {
	ItemID      int    `json:"item_id"`
	Name        string `json:"name"`
	BuyLimit    int    `json:"buy_limit"`
	MembersOnly bool   `json:"members_only"`
	LowAlch     int    `json:"low_alch"`
	HighAlch    int    `json:"high_alch"`
}

// Snapshot is an immutable point-in-time view of the market.
// It is wholly replaced on refresh; consumers must never mutate it.
type Snapshot struct {
	Quotes    map[int]Quote      `json:"quotes"`
	Stats     map[int]DailyStats `json:"stats"`
	Catalog   map[int]ItemMeta   `json:"catalog"`
	FetchedAt time.Time          `json:"fetched_at"`
}

// FreshFor reports whether the snapshot is younger than the given TTL.
// TTLs are per-consumer; the dashboard and the advisor pass their own.
func (s *Snapshot) FreshFor(ttl time.Duration) bool {
	if s == nil {
		return false
	}
	return time.Since(s.FetchedAt) < ttl
}

// Quote returns the quote for an item, if present
func (s *Snapshot) Quote(itemID int) (Quote, bool) {
	if s == nil {
		return Quote{}, false
	}
	q, ok := s.Quotes[itemID]
	return q, ok
}

// buildSnapshot assembles an immutable snapshot from raw upstream responses
func buildSnapshot(latest *osrs.LatestPricesResponse, daily *osrs.DailyPricesResponse, catalog map[int]ItemMeta, now time.Time) *Snapshot {
	snap := &Snapshot{
		Quotes:    make(map[int]Quote, len(latest.Data)),
		Stats:     make(map[int]DailyStats),
		Catalog:   catalog,
		FetchedAt: now,
	}

	for key, price := range latest.Data {
		id, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		q := Quote{ItemID: id}
		if price.Low != nil {
			q.BuyPrice = *price.Low
		}
		if price.High != nil {
			q.SellPrice = *price.High
		}
		if price.LowTime != nil {
			q.BuyTime = time.Unix(*price.LowTime, 0)
		}
		if price.HighTime != nil {
			q.SellTime = time.Unix(*price.HighTime, 0)
		}
		snap.Quotes[id] = q
	}

	if daily != nil {
		for key, point := range daily.Data {
			id, err := strconv.Atoi(key)
			if err != nil {
				continue
			}
			stats := DailyStats{
				ItemID:     id,
				BuyVolume:  point.LowPriceVolume,
				SellVolume: point.HighPriceVolume,
			}
			if point.AvgLowPrice != nil {
				stats.AvgBuyPrice = *point.AvgLowPrice
			}
			if point.AvgHighPrice != nil {
				stats.AvgSellPrice = *point.AvgHighPrice
			}
			snap.Stats[id] = stats

			// Carry daily volumes onto the quote so downstream filters
			// see a volume even when the realtime feed has none.
			if q, ok := snap.Quotes[id]; ok {
				q.BuyVolume = point.LowPriceVolume
				q.SellVolume = point.HighPriceVolume
				snap.Quotes[id] = q
			}
		}
	}

	return snap
}
