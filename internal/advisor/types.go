package advisor

// InventoryItem is one stack in the player's inventory
type InventoryItem struct {
	ID     int   `json:"id"`
	Amount int64 `json:"amount"`
}

// Offer is one exchange slot's current state
type Offer struct {
	Slot   int    `json:"slot"`
	ItemID int    `json:"itemId"`
	Status string `json:"status"` // "empty", "buying", "selling", ...
	Type   string `json:"type"`
}

// Request is the advisor's input: inventory, open offers, and cash
type Request struct {
	Inventory []InventoryItem `json:"inventory"`
	Offers    []Offer         `json:"offers"`
	GP        int64           `json:"gp"`
}

// SuggestionKind enumerates the three possible actions
type SuggestionKind string

const (
	KindSell SuggestionKind = "sell"
	KindBuy  SuggestionKind = "buy"
	KindWait SuggestionKind = "wait"
)

// Suggestion is the single recommended next action. Stateless,
// recomputed per call.
type Suggestion struct {
	Type     SuggestionKind `json:"type"`
	Message  string         `json:"message"`
	ItemID   int            `json:"item_id,omitempty"`
	Name     string         `json:"name,omitempty"`
	Price    int64          `json:"price,omitempty"`
	Quantity int64          `json:"quantity,omitempty"`
	Score    float64        `json:"score,omitempty"`
	Error    bool           `json:"error,omitempty"`
}
