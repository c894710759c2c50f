package advisor

import (
	"encoding/json"
	"testing"
	"time"

	"osrs-trader/internal/ge"
	"osrs-trader/internal/marketdata"
)

func testConfig() Config {
	return Config{
		MinProfitPerUnit: 10,
		MinCashPerSlot:   1_000,
	}
}

type snapItem struct {
	id        int
	name      string
	limit     int
	buy, sell int64
	volume    int64
}

func testSnapshot(items ...snapItem) *marketdata.Snapshot {
	now := time.Now()
	snap := &marketdata.Snapshot{
		Quotes:    make(map[int]marketdata.Quote),
		Stats:     make(map[int]marketdata.DailyStats),
		Catalog:   make(map[int]marketdata.ItemMeta),
		FetchedAt: now,
	}
	for _, it := range items {
		snap.Quotes[it.id] = marketdata.Quote{
			ItemID: it.id, BuyPrice: it.buy, SellPrice: it.sell,
			BuyTime: now, SellTime: now,
		}
		if it.volume > 0 {
			snap.Stats[it.id] = marketdata.DailyStats{
				ItemID: it.id, BuyVolume: it.volume / 2, SellVolume: it.volume - it.volume/2,
			}
		}
		snap.Catalog[it.id] = marketdata.ItemMeta{ItemID: it.id, Name: it.name, BuyLimit: it.limit}
	}
	return snap
}

func fullOffers() []Offer {
	offers := make([]Offer, ge.SlotCount)
	for i := range offers {
		offers[i] = Offer{Slot: i, ItemID: 100 + i, Status: "buying", Type: "buy"}
	}
	return offers
}

// TestSellTakesPriority verifies liquidation precedes any buy
func TestSellTakesPriority(t *testing.T) {
	snap := testSnapshot(
		snapItem{id: 4151, name: "Abyssal whip", limit: 70, buy: 1_480_000, sell: 1_500_000},
		snapItem{id: 560, name: "Death rune", limit: 25_000, buy: 200, sell: 250, volume: 100_000},
	)
	req := Request{
		Inventory: []InventoryItem{{ID: 4151, Amount: 2}},
		GP:        10_000_000,
	}

	s := Suggest(req, snap, testConfig())
	if s.Type != KindSell {
		t.Fatalf("expected sell, got %s (%s)", s.Type, s.Message)
	}
	if s.ItemID != 4151 || s.Quantity != 2 || s.Price != 1_500_000 {
		t.Errorf("unexpected sell suggestion: %+v", s)
	}
}

// TestCoinsExcludedFromSell verifies a coins-only inventory falls
// through to the buy scan instead of trying to sell gp
func TestCoinsExcludedFromSell(t *testing.T) {
	snap := testSnapshot(
		snapItem{id: 560, name: "Death rune", limit: 25_000, buy: 200, sell: 250, volume: 100_000},
	)
	req := Request{
		Inventory: []InventoryItem{{ID: ge.CoinsItemID, Amount: 500_000}},
		GP:        500_000,
	}

	s := Suggest(req, snap, testConfig())
	if s.Type != KindBuy {
		t.Fatalf("expected buy after skipping coins, got %s (%s)", s.Type, s.Message)
	}
	if s.ItemID != 560 {
		t.Errorf("expected Death rune pick, got item %d", s.ItemID)
	}
}

// TestAllSlotsFull verifies the exact wait message on a full exchange
func TestAllSlotsFull(t *testing.T) {
	snap := testSnapshot(
		snapItem{id: 560, name: "Death rune", limit: 25_000, buy: 200, sell: 250, volume: 100_000},
	)
	req := Request{Offers: fullOffers(), GP: 10_000_000}

	s := Suggest(req, snap, testConfig())
	if s.Type != KindWait {
		t.Fatalf("expected wait, got %s", s.Type)
	}
	if s.Message != "All GE slots are full." {
		t.Errorf("unexpected message: %q", s.Message)
	}
}

// TestInsufficientCapital verifies the cash-per-slot floor
func TestInsufficientCapital(t *testing.T) {
	snap := testSnapshot(
		snapItem{id: 560, name: "Death rune", limit: 25_000, buy: 200, sell: 250, volume: 100_000},
	)
	req := Request{GP: 500} // 500 / 8 slots, well under the floor

	s := Suggest(req, snap, testConfig())
	if s.Type != KindWait {
		t.Fatalf("expected wait, got %s", s.Type)
	}
}

// TestNeverActsOnOfferedItems verifies items with open offers are
// excluded from both the sell check and the buy scan
func TestNeverActsOnOfferedItems(t *testing.T) {
	snap := testSnapshot(
		snapItem{id: 4151, name: "Abyssal whip", limit: 70, buy: 1_480_000, sell: 1_500_000},
		snapItem{id: 560, name: "Death rune", limit: 25_000, buy: 200, sell: 250, volume: 100_000},
	)
	req := Request{
		Inventory: []InventoryItem{{ID: 4151, Amount: 2}},
		Offers: []Offer{
			{Slot: 0, ItemID: 4151, Status: "selling", Type: "sell"},
			{Slot: 1, ItemID: 560, Status: "buying", Type: "buy"},
		},
		GP: 10_000_000,
	}

	s := Suggest(req, snap, testConfig())
	if s.ItemID == 4151 || s.ItemID == 560 {
		t.Errorf("suggested acting on an item with an open offer: %+v", s)
	}
}

// TestBuyPicksHighestScore verifies the volume-weighted profit score
func TestBuyPicksHighestScore(t *testing.T) {
	snap := testSnapshot(
		// Wider absolute margin but almost no liquidity (limit 8, no volume data)
		snapItem{id: 11802, name: "Armadyl godsword", limit: 8, buy: 9_000, sell: 9_200},
		// Moderate margin, deep liquidity
		snapItem{id: 560, name: "Death rune", limit: 25_000, buy: 200, sell: 250, volume: 500_000},
	)
	req := Request{GP: 80_000}

	s := Suggest(req, snap, testConfig())
	if s.Type != KindBuy {
		t.Fatalf("expected buy, got %s (%s)", s.Type, s.Message)
	}
	if s.ItemID != 560 {
		t.Errorf("expected the liquid item to win, got %d", s.ItemID)
	}
	// qty = min(cashPerSlot/buy, limit) = min(10000/200, 25000) = 50
	if s.Quantity != 50 {
		t.Errorf("expected qty 50, got %d", s.Quantity)
	}
}

// TestProfitFloorFiltersCandidates verifies thin margins yield a wait
func TestProfitFloorFiltersCandidates(t *testing.T) {
	snap := testSnapshot(
		// net = 250 - 245 - 2 = 3 gp, under the 10 gp floor
		snapItem{id: 560, name: "Death rune", limit: 25_000, buy: 245, sell: 250, volume: 100_000},
	)
	req := Request{GP: 1_000_000}

	s := Suggest(req, snap, testConfig())
	if s.Type != KindWait {
		t.Fatalf("expected wait, got %s", s.Type)
	}
	if s.Message != "No profitable opportunities right now." {
		t.Errorf("unexpected message: %q", s.Message)
	}
}

// TestNilSnapshot verifies a missing snapshot yields a wait, not a panic
func TestNilSnapshot(t *testing.T) {
	s := Suggest(Request{GP: 1_000_000}, nil, testConfig())
	if s.Type != KindWait {
		t.Fatalf("expected wait on nil snapshot, got %s", s.Type)
	}
}

// TestStateless verifies repeated identical calls agree
func TestStateless(t *testing.T) {
	snap := testSnapshot(
		snapItem{id: 560, name: "Death rune", limit: 25_000, buy: 200, sell: 250, volume: 100_000},
		snapItem{id: 561, name: "Nature rune", limit: 12_000, buy: 150, sell: 190, volume: 80_000},
	)
	req := Request{GP: 2_000_000}

	first := Suggest(req, snap, testConfig())
	for i := 0; i < 5; i++ {
		if again := Suggest(req, snap, testConfig()); again != first {
			t.Fatalf("run %d: suggestion changed: %+v vs %+v", i, again, first)
		}
	}
}

// TestSuggestionRoundTrip verifies the JSON contract is lossless
func TestSuggestionRoundTrip(t *testing.T) {
	original := Suggestion{
		Type:     KindBuy,
		Message:  "Buy 50 x Death rune at 200 gp (48 gp margin).",
		ItemID:   560,
		Name:     "Death rune",
		Price:    200,
		Quantity: 50,
		Score:    273.5,
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded Suggestion
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded != original {
		t.Errorf("round trip lost fields: %+v vs %+v", decoded, original)
	}
}
