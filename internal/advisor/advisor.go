// Package advisor recommends a single next action: liquidate inventory,
// open the best buy, or wait. It is a pure function of the request and
// the current market snapshot, with a strict priority order.
package advisor

import (
	"fmt"
	"math"

	"osrs-trader/internal/ge"
	"osrs-trader/internal/marketdata"
)

// Config holds advisor tunables
type Config struct {
	MinProfitPerUnit int64 // gp floor a buy candidate must clear
	MinCashPerSlot   int64 // gp per empty slot below which we wait
}

// Suggest returns the one recommended action for the given state.
// Priority: sell inventory, wait on full slots, wait on thin capital,
// buy the best-scoring candidate, otherwise wait.
func Suggest(req Request, snap *marketdata.Snapshot, config Config) Suggestion {
	if snap == nil || len(snap.Quotes) == 0 {
		return Suggestion{Type: KindWait, Message: "Market data is still loading."}
	}

	offered := offeredItems(req.Offers)

	// 1. Liquidate sellable inventory before opening new positions
	if s, ok := suggestSell(req, snap, offered); ok {
		return s
	}

	// 2. Nothing to sell and no room to buy
	emptySlots := emptySlotCount(req.Offers)
	if emptySlots == 0 {
		return Suggestion{Type: KindWait, Message: "All GE slots are full."}
	}

	// 3. Capital check per empty slot
	cashPerSlot := req.GP / int64(emptySlots)
	if cashPerSlot < config.MinCashPerSlot {
		return Suggestion{Type: KindWait, Message: "Not enough gp to open a new position."}
	}

	// 4. Best buy candidate across the catalog
	if s, ok := suggestBuy(req, snap, offered, cashPerSlot, config); ok {
		return s
	}

	// 5. Nothing clears the profit floor
	return Suggestion{Type: KindWait, Message: "No profitable opportunities right now."}
}

// suggestSell recommends selling the first inventory stack that has a
// valid quote and no open offer. Coins are not sellable.
func suggestSell(req Request, snap *marketdata.Snapshot, offered map[int]bool) (Suggestion, bool) {
	for _, inv := range req.Inventory {
		if inv.ID == ge.CoinsItemID || inv.Amount <= 0 {
			continue
		}
		if offered[inv.ID] {
			continue
		}
		quote, ok := snap.Quote(inv.ID)
		if !ok || quote.SellPrice <= 0 {
			continue
		}

		name := itemName(snap, inv.ID)
		return Suggestion{
			Type:     KindSell,
			ItemID:   inv.ID,
			Name:     name,
			Price:    quote.SellPrice,
			Quantity: inv.Amount,
			Message:  fmt.Sprintf("Sell %d x %s at %d gp.", inv.Amount, name, quote.SellPrice),
		}, true
	}
	return Suggestion{}, false
}

// suggestBuy scans the catalog for the highest-scoring buy candidate.
// Score is profit per unit weighted by log-scaled estimated daily
// volume, so thin items do not outrank liquid ones on spread alone.
func suggestBuy(req Request, snap *marketdata.Snapshot, offered map[int]bool, cashPerSlot int64, config Config) (Suggestion, bool) {
	var best *Suggestion
	bestScore := math.Inf(-1)

	for id, meta := range snap.Catalog {
		if offered[id] {
			continue
		}
		quote, ok := snap.Quote(id)
		if !ok || quote.BuyPrice <= 0 || quote.SellPrice <= 0 {
			continue
		}
		if quote.BuyPrice > cashPerSlot {
			continue
		}

		profit := ge.NetProfit(quote.BuyPrice, quote.SellPrice)
		if profit < config.MinProfitPerUnit {
			continue
		}

		score := float64(profit) * math.Log10(float64(estimatedDailyVolume(snap, meta))+1)
		if score > bestScore || (score == bestScore && best != nil && id < best.ItemID) {
			limit := int64(ge.BuyLimitOrDefault(meta.BuyLimit))
			qty := cashPerSlot / quote.BuyPrice
			if qty > limit {
				qty = limit
			}
			if qty <= 0 {
				continue
			}
			bestScore = score
			best = &Suggestion{
				Type:     KindBuy,
				ItemID:   id,
				Name:     meta.Name,
				Price:    quote.BuyPrice,
				Quantity: qty,
				Score:    score,
				Message:  fmt.Sprintf("Buy %d x %s at %d gp (%d gp margin).", qty, meta.Name, quote.BuyPrice, profit),
			}
		}
	}

	if best == nil {
		return Suggestion{}, false
	}
	return *best, true
}

// estimatedDailyVolume proxies liquidity from the buy limit when the
// snapshot carries no true volume for the item.
func estimatedDailyVolume(snap *marketdata.Snapshot, meta marketdata.ItemMeta) int64 {
	if stats, ok := snap.Stats[meta.ItemID]; ok && stats.TotalVolume() > 0 {
		return stats.TotalVolume()
	}
	return int64(ge.BuyLimitOrDefault(meta.BuyLimit)) * 4
}

// offeredItems returns the set of item ids with a non-empty open offer
func offeredItems(offers []Offer) map[int]bool {
	out := make(map[int]bool, len(offers))
	for _, o := range offers {
		if o.Status != "empty" {
			out[o.ItemID] = true
		}
	}
	return out
}

// emptySlotCount counts free exchange slots. Slots with no offer entry
// at all count as empty.
func emptySlotCount(offers []Offer) int {
	occupied := 0
	for _, o := range offers {
		if o.Status != "empty" {
			occupied++
		}
	}
	if occupied > ge.SlotCount {
		occupied = ge.SlotCount
	}
	return ge.SlotCount - occupied
}

func itemName(snap *marketdata.Snapshot, id int) string {
	if meta, ok := snap.Catalog[id]; ok {
		return meta.Name
	}
	return fmt.Sprintf("item %d", id)
}
