package osrs

// LatestPricesResponse matches the wiki /latest endpoint.
// Prices are pointers because items with no recent trades omit a side.
type LatestPricesResponse struct {
	Data map[string]PriceInfo `json:"data"`
}

// PriceInfo is the best-available quote for one item.
// "high" is the insta-buy price (what sellers receive immediately),
// "low" is the insta-sell price (what buyers pay immediately).
type PriceInfo struct {
	High     *int64 `json:"high"`
	HighTime *int64 `json:"highTime"`
	Low      *int64 `json:"low"`
	LowTime  *int64 `json:"lowTime"`
}

// ItemMapping is one catalog entry from the /mapping endpoint
type ItemMapping struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Examine  string `json:"examine"`
	Members  bool   `json:"members"`
	BuyLimit int    `json:"limit"`
	Value    int    `json:"value"`
	HighAlch int    `json:"highalch"`
	LowAlch  int    `json:"lowalch"`
	Icon     string `json:"icon"`
}

// DailyPricePoint is one item's 24h aggregate from the /24h endpoint
type DailyPricePoint struct {
	AvgHighPrice    *int64 `json:"avgHighPrice"`
	HighPriceVolume int64  `json:"highPriceVolume"`
	AvgLowPrice     *int64 `json:"avgLowPrice"`
	LowPriceVolume  int64  `json:"lowPriceVolume"`
}

// DailyPricesResponse matches the /24h endpoint; data is keyed by item id
type DailyPricesResponse struct {
	Data      map[string]DailyPricePoint `json:"data"`
	Timestamp int64                      `json:"timestamp"`
}
