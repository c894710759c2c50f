// Package ge holds Grand Exchange domain rules shared by the decision
// components: the sell tax, slot capacity, and buy-limit handling.
package ge

const (
	// CoinsItemID is the item id of coins, the base currency
	CoinsItemID = 995

	// SlotCount is the number of exchange slots available to one player
	SlotCount = 8

	// TaxRateDivisor implements the 1% levy on the sell side
	TaxRateDivisor = 100

	// TaxCap is the maximum tax charged per unit, in gp
	TaxCap = 5_000_000

	// DefaultBuyLimit substitutes for items whose catalog entry has no
	// limit (absent or <= 0 is a "no cap" sentinel)
	DefaultBuyLimit = 10_000
)

// Tax returns the per-unit exchange tax for a given sell price.
// The levy is 1% of the sell price, floored, capped at TaxCap.
// Sub-100 gp items are naturally exempt because the floor yields zero.
func Tax(sellPrice int64) int64 {
	if sellPrice <= 0 {
		return 0
	}
	tax := sellPrice / TaxRateDivisor
	if tax > TaxCap {
		return TaxCap
	}
	return tax
}

// NetProfit returns the after-tax profit per unit for a buy/sell pair.
// A crossed or stale quote yields zero or negative profit, never an error.
func NetProfit(buyPrice, sellPrice int64) int64 {
	return sellPrice - buyPrice - Tax(sellPrice)
}

// BuyLimitOrDefault resolves the catalog buy limit, treating absent or
// non-positive values as uncapped.
func BuyLimitOrDefault(limit int) int {
	if limit <= 0 {
		return DefaultBuyLimit
	}
	return limit
}
