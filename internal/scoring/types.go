package scoring

import (
	"time"

	"osrs-trader/internal/marketdata"
)

// Strategy is the per-user tuning for a scoring pass
type Strategy struct {
	MinPrice  int64   `json:"min_price"`
	MaxPrice  int64   `json:"max_price"` // 0 = no ceiling
	MinVolume int64   `json:"min_volume"`
	MinROI    float64 `json:"min_roi"`
}

// Opportunity is one ranked candidate from a scoring pass.
// Metric means "percent drop" for dumps and "achievable net profit"
// for flips; the two families are never compared to each other.
type Opportunity struct {
	Item            marketdata.ItemMeta   `json:"item"`
	Quote           marketdata.Quote      `json:"quote"`
	Stats           marketdata.DailyStats `json:"stats"`
	Metric          float64               `json:"metric"`
	SecondaryMetric float64               `json:"secondary_metric"`
	Score           float64               `json:"score"`
}

// Result aggregates one scoring pass over a snapshot
type Result struct {
	ScanID       string        `json:"scan_id"`
	Dumps        []Opportunity `json:"dumps"`
	Flips        []Opportunity `json:"flips"`
	ItemsScanned int           `json:"items_scanned"`
	SnapshotAt   time.Time     `json:"snapshot_at"`
	GeneratedAt  time.Time     `json:"generated_at"`
	Duration     time.Duration `json:"duration"`
}
