// Package scoring filters and ranks catalog items into dump and flip
// opportunity sets. A pass is a pure function over one snapshot; the
// scorer additionally caches the latest ranked result so concurrent
// readers get it O(1) instead of recomputing per request.
package scoring

import (
	"sort"
	"sync"
	"time"

	"osrs-trader/internal/events"
	"osrs-trader/internal/ge"
	"osrs-trader/internal/marketdata"

	"github.com/google/uuid"
)

// Config holds scoring pipeline tunables
type Config struct {
	FreshnessWindow    time.Duration
	TurnoverFloor      int64
	HighValueThreshold int64
	MaxSpreadRatio     float64
	PanicThreshold     float64
	VolatilityCeiling  float64
	VolatilityWeight   float64
	WorkerCount        int
}

// Scorer ranks snapshot items into dump and flip sets
type Scorer struct {
	config Config
	bus    *events.EventBus // optional, may be nil

	mu   sync.RWMutex
	last *Result
}

// NewScorer creates a scorer. bus may be nil when nothing consumes
// opportunity-update events.
func NewScorer(config Config, bus *events.EventBus) *Scorer {
	if config.WorkerCount <= 0 {
		config.WorkerCount = 4
	}
	return &Scorer{config: config, bus: bus}
}

// Latest returns the most recent ranked result, or nil before the
// first pass.
func (s *Scorer) Latest() *Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// Recompute runs a pass, stores it as the latest result, and announces
// it on the bus. Intended to run on every snapshot refresh.
func (s *Scorer) Recompute(snap *marketdata.Snapshot, strategy Strategy) *Result {
	result := s.Score(snap, strategy, time.Now())

	s.mu.Lock()
	s.last = result
	s.mu.Unlock()

	if s.bus != nil {
		s.bus.Publish(events.Event{
			Type: events.EventOpportunitiesUpdated,
			Data: map[string]interface{}{
				"scan_id": result.ScanID,
				"dumps":   len(result.Dumps),
				"flips":   len(result.Flips),
			},
		})
	}
	return result
}

// Score runs one pass over a snapshot. An empty or missing snapshot
// yields empty sets, never an error; callers render an analyzing state.
func (s *Scorer) Score(snap *marketdata.Snapshot, strategy Strategy, now time.Time) *Result {
	result := &Result{
		ScanID:      uuid.NewString(),
		Dumps:       []Opportunity{},
		Flips:       []Opportunity{},
		GeneratedAt: now,
	}
	start := time.Now()
	defer func() { result.Duration = time.Since(start) }()

	if snap == nil || len(snap.Quotes) == 0 {
		return result
	}
	result.SnapshotAt = snap.FetchedAt
	result.ItemsScanned = len(snap.Catalog)

	type classified struct {
		dump *Opportunity
		flip *Opportunity
	}

	itemChan := make(chan marketdata.ItemMeta, len(snap.Catalog))
	outChan := make(chan classified, len(snap.Catalog))

	var wg sync.WaitGroup
	for i := 0; i < s.config.WorkerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range itemChan {
				dump, flip := s.evaluate(snap, item, strategy, now)
				if dump != nil || flip != nil {
					outChan <- classified{dump: dump, flip: flip}
				}
			}
		}()
	}

	for _, item := range snap.Catalog {
		itemChan <- item
	}
	close(itemChan)

	go func() {
		wg.Wait()
		close(outChan)
	}()

	for c := range outChan {
		if c.dump != nil {
			result.Dumps = append(result.Dumps, *c.dump)
		}
		if c.flip != nil {
			result.Flips = append(result.Flips, *c.flip)
		}
	}

	sortOpportunities(result.Dumps)
	sortOpportunities(result.Flips)
	return result
}

// evaluate runs the filter pipeline and classification for one item.
// Returns nil, nil when the item survives no set.
func (s *Scorer) evaluate(snap *marketdata.Snapshot, item marketdata.ItemMeta, strategy Strategy, now time.Time) (dump, flip *Opportunity) {
	quote, ok := snap.Quote(item.ItemID)
	if !ok {
		return nil, nil
	}
	// Zero-priced sides are data anomalies, not errors
	if quote.BuyPrice <= 0 || quote.SellPrice <= 0 {
		return nil, nil
	}

	// 1. Staleness
	if now.Sub(quote.Newest()) > s.config.FreshnessWindow {
		return nil, nil
	}

	// 2. Price and volume floor
	volume := quote.BuyVolume + quote.SellVolume
	if quote.SellPrice < strategy.MinPrice || volume < strategy.MinVolume {
		return nil, nil
	}
	if strategy.MaxPrice > 0 && quote.SellPrice > strategy.MaxPrice {
		return nil, nil
	}

	// 3. Turnover floor; high-value items are exempt
	turnover := quote.SellPrice * volume
	if quote.SellPrice < s.config.HighValueThreshold && turnover < s.config.TurnoverFloor {
		return nil, nil
	}

	// 4. Spread sanity, guards against one-sided junk quotes
	spread := quote.SellPrice - quote.BuyPrice
	if float64(spread)/float64(quote.BuyPrice) > s.config.MaxSpreadRatio {
		return nil, nil
	}

	net := ge.NetProfit(quote.BuyPrice, quote.SellPrice)
	roi := float64(net) / float64(quote.BuyPrice) * 100
	mid := float64(quote.BuyPrice+quote.SellPrice) / 2
	volatility := float64(spread) / mid * 100
	limit := int64(ge.BuyLimitOrDefault(item.BuyLimit))

	stats := snap.Stats[item.ItemID]

	// Dump: price crashed against the 24h average
	if stats.AvgBuyPrice > 0 && quote.BuyPrice < stats.AvgBuyPrice {
		dropPercent := float64(stats.AvgBuyPrice-quote.BuyPrice) / float64(stats.AvgBuyPrice) * 100
		if dropPercent >= s.config.PanicThreshold {
			dump = &Opportunity{
				Item:            item,
				Quote:           quote,
				Stats:           stats,
				Metric:          dropPercent,
				SecondaryMetric: float64(net * min64(limit, volume)),
				Score:           dropPercent,
			}
		}
	}

	// Flip: profitable spread at acceptable ROI
	if roi >= strategy.MinROI {
		metric := float64(net * min64(volume, limit))
		flip = &Opportunity{
			Item:            item,
			Quote:           quote,
			Stats:           stats,
			Metric:          metric,
			SecondaryMetric: roi,
			Score:           metric * s.volatilityPenalty(volatility),
		}
	}

	return dump, flip
}

// volatilityPenalty scales scores down once volatility passes the
// configured ceiling. Monotonic: a higher metric always outranks a
// lower one at equal volatility.
func (s *Scorer) volatilityPenalty(volatility float64) float64 {
	if volatility <= s.config.VolatilityCeiling {
		return 1
	}
	excess := (volatility - s.config.VolatilityCeiling) / 100
	return 1 / (1 + excess*s.config.VolatilityWeight)
}

// sortOpportunities orders by score descending, ties broken by item id
// ascending so repeated passes over the same snapshot are identical.
func sortOpportunities(opps []Opportunity) {
	sort.Slice(opps, func(i, j int) bool {
		if opps[i].Score != opps[j].Score {
			return opps[i].Score > opps[j].Score
		}
		return opps[i].Item.ItemID < opps[j].Item.ItemID
	})
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
