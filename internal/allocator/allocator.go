// Package allocator turns ranked flip opportunities into a
// budget-constrained purchase basket. The pass is a deterministic
// greedy heuristic, explicitly not an optimal knapsack solve.
package allocator

import (
	"osrs-trader/internal/ge"
	"osrs-trader/internal/scoring"
)

// Config holds allocation tunables
type Config struct {
	DiversificationCap float64 // Max fraction of the budget per item
	MinBudget          int64   // Budgets below this are refused
	DustThreshold      int64   // Remaining gp at which the pass stops
}

// BasketEntry is one committed purchase in a plan
type BasketEntry struct {
	Item           scoring.Opportunity `json:"item"`
	Quantity       int64               `json:"quantity"`
	Cost           int64               `json:"cost"`
	ExpectedProfit int64               `json:"expected_profit"`
}

// Basket is the ephemeral output of one allocation pass
type Basket struct {
	Entries        []BasketEntry `json:"entries"`
	TotalCost      int64         `json:"total_cost"`
	ExpectedProfit int64         `json:"expected_profit"`
	RemainingCash  int64         `json:"remaining_cash"`
	Budget         int64         `json:"budget"`
	BudgetTooLow   bool          `json:"budget_too_low"`
	Message        string        `json:"message,omitempty"`
}

// Build runs a single greedy pass over opportunities already ranked by
// score. A budget under the operational floor or an empty opportunity
// list yields an empty basket flagged budget-too-low, never an error.
func Build(opportunities []scoring.Opportunity, budget int64, config Config) Basket {
	basket := Basket{
		Entries:       []BasketEntry{},
		Budget:        budget,
		RemainingCash: budget,
	}

	if budget < config.MinBudget || len(opportunities) == 0 {
		basket.BudgetTooLow = true
		basket.Message = "Budget too low to build a purchase plan."
		return basket
	}

	perItemBudget := int64(float64(budget) * config.DiversificationCap)

	for _, opp := range opportunities {
		if basket.RemainingCash < config.DustThreshold {
			break
		}

		buyPrice := opp.Quote.BuyPrice
		if buyPrice <= 0 {
			continue
		}

		perItemCap := perItemBudget
		if basket.RemainingCash < perItemCap {
			perItemCap = basket.RemainingCash
		}

		limit := int64(ge.BuyLimitOrDefault(opp.Item.BuyLimit))
		qty := perItemCap / buyPrice
		if qty > limit {
			qty = limit
		}
		if qty <= 0 {
			continue
		}

		cost := qty * buyPrice
		net := ge.NetProfit(buyPrice, opp.Quote.SellPrice)

		basket.Entries = append(basket.Entries, BasketEntry{
			Item:           opp,
			Quantity:       qty,
			Cost:           cost,
			ExpectedProfit: qty * net,
		})
		basket.RemainingCash -= cost
		basket.TotalCost += cost
		basket.ExpectedProfit += qty * net
	}

	if len(basket.Entries) == 0 {
		basket.Message = "No opportunities fit the budget."
	}
	return basket
}
