package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"osrs-trader/internal/advisor"
	"osrs-trader/internal/alerts"
	"osrs-trader/internal/allocator"
	"osrs-trader/internal/marketdata"
	"osrs-trader/internal/notification"
	"osrs-trader/internal/scoring"
)

type fakeMarket struct {
	snap *marketdata.Snapshot
}

func (f *fakeMarket) Current() *marketdata.Snapshot {
	return f.snap
}

func (f *fakeMarket) RefreshIfStale(ctx context.Context, ttl time.Duration) error {
	return nil
}

type fakeScorer struct {
	result *scoring.Result
}

func (f *fakeScorer) Latest() *scoring.Result {
	return f.result
}

func testSnapshot() *marketdata.Snapshot {
	now := time.Now()
	return &marketdata.Snapshot{
		Quotes: map[int]marketdata.Quote{
			560: {ItemID: 560, BuyPrice: 200, SellPrice: 250, BuyTime: now, SellTime: now, BuyVolume: 50000, SellVolume: 50000},
		},
		Stats: map[int]marketdata.DailyStats{
			560: {ItemID: 560, AvgBuyPrice: 210, AvgSellPrice: 255, BuyVolume: 50000, SellVolume: 50000},
		},
		Catalog: map[int]marketdata.ItemMeta{
			560: {ItemID: 560, Name: "Death rune", BuyLimit: 25000},
		},
		FetchedAt: now,
	}
}

func newTestServer(market MarketSource, scorer OpportunitySource, monitor *alerts.Monitor) *Server {
	return NewServer(Config{
		Port:           0,
		ProductionMode: true,
		DashboardTTL:   time.Minute,
		SuggestionTTL:  time.Minute,
		Allocator: allocator.Config{
			DiversificationCap: 0.25,
			MinBudget:          10_000,
			DustThreshold:      1_000,
		},
		Advisor: advisor.Config{
			MinProfitPerUnit: 10,
			MinCashPerSlot:   1_000,
		},
	}, market, scorer, monitor, nil, zerolog.Nop())
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func TestSuggestionEndpoint(t *testing.T) {
	s := newTestServer(&fakeMarket{snap: testSnapshot()}, &fakeScorer{}, nil)

	w := doJSON(t, s, http.MethodPost, "/api/v1/suggestion", advisor.Request{GP: 1_000_000})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", w.Code, w.Body.String())
	}

	var got advisor.Suggestion
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if got.Type != advisor.KindBuy {
		t.Errorf("expected buy suggestion, got %s (%s)", got.Type, got.Message)
	}
	if got.Error {
		t.Errorf("unexpected error flag: %+v", got)
	}
}

func TestSuggestionInvalidBody(t *testing.T) {
	s := newTestServer(&fakeMarket{snap: testSnapshot()}, &fakeScorer{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/suggestion", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", w.Code)
	}

	var got advisor.Suggestion
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("malformed error body: %v", err)
	}
	if got.Type != advisor.KindWait || !got.Error {
		t.Errorf("error body should be a wait with error=true: %+v", got)
	}
}

func TestSuggestionWithoutSnapshot(t *testing.T) {
	s := newTestServer(&fakeMarket{}, &fakeScorer{}, nil)

	w := doJSON(t, s, http.MethodPost, "/api/v1/suggestion", advisor.Request{GP: 1_000_000})
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status %d, want 503", w.Code)
	}

	var got advisor.Suggestion
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("malformed error body: %v", err)
	}
	if got.Type != advisor.KindWait || !got.Error {
		t.Errorf("error body should be a wait with error=true: %+v", got)
	}
}

func TestOpportunitiesEmptyResult(t *testing.T) {
	s := newTestServer(&fakeMarket{snap: testSnapshot()}, &fakeScorer{}, nil)

	w := doJSON(t, s, http.MethodGet, "/api/v1/opportunities", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}

	var envelope struct {
		Success bool           `json:"success"`
		Data    scoring.Result `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if !envelope.Success {
		t.Error("expected success envelope")
	}
	if envelope.Data.Dumps == nil || envelope.Data.Flips == nil {
		t.Error("empty result must still carry both sets")
	}
}

func TestBasketEndpoint(t *testing.T) {
	flip := scoring.Opportunity{
		Item:  marketdata.ItemMeta{ItemID: 560, Name: "Death rune", BuyLimit: 25000},
		Quote: marketdata.Quote{ItemID: 560, BuyPrice: 200, SellPrice: 250},
		Score: 100,
	}
	s := newTestServer(&fakeMarket{snap: testSnapshot()}, &fakeScorer{
		result: &scoring.Result{Flips: []scoring.Opportunity{flip}},
	}, nil)

	w := doJSON(t, s, http.MethodPost, "/api/v1/basket", basketRequest{Budget: 1_000_000})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", w.Code, w.Body.String())
	}

	var envelope struct {
		Success bool             `json:"success"`
		Data    allocator.Basket `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if len(envelope.Data.Entries) != 1 {
		t.Fatalf("expected one basket entry, got %d", len(envelope.Data.Entries))
	}
	if envelope.Data.TotalCost > 1_000_000 {
		t.Errorf("basket cost %d exceeds budget", envelope.Data.TotalCost)
	}
}

func TestBasketRejectsNonPositiveBudget(t *testing.T) {
	s := newTestServer(&fakeMarket{snap: testSnapshot()}, &fakeScorer{}, nil)

	for _, budget := range []int64{0, -500} {
		w := doJSON(t, s, http.MethodPost, "/api/v1/basket", basketRequest{Budget: budget})
		if w.Code != http.StatusBadRequest {
			t.Errorf("budget %d: status %d, want 400", budget, w.Code)
		}
	}
}

func TestSnapshotStatus(t *testing.T) {
	s := newTestServer(&fakeMarket{snap: testSnapshot()}, &fakeScorer{}, nil)

	w := doJSON(t, s, http.MethodGet, "/api/v1/snapshot/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}

	var envelope struct {
		Data map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if envelope.Data["available"] != true || envelope.Data["fresh"] != true {
		t.Errorf("unexpected status payload: %v", envelope.Data)
	}
}

func TestHealthWhileLoading(t *testing.T) {
	s := newTestServer(&fakeMarket{}, &fakeScorer{}, nil)

	w := doJSON(t, s, http.MethodGet, "/health", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status %d, want 503 before first snapshot", w.Code)
	}
}

func TestAlertPreferencesRoundTrip(t *testing.T) {
	monitor := alerts.NewMonitor(alerts.Config{
		Enabled:       true,
		DropThreshold: 15,
		Cooldown:      5 * time.Minute,
	}, noopDispatcher{}, zerolog.Nop())
	s := newTestServer(&fakeMarket{snap: testSnapshot()}, &fakeScorer{}, monitor)

	update := alertPreferences{
		Enabled:         true,
		DropThreshold:   20,
		CooldownSeconds: 600,
		TrackedItems:    []int{4151},
	}
	if w := doJSON(t, s, http.MethodPut, "/api/v1/alerts/preferences", update); w.Code != http.StatusOK {
		t.Fatalf("put status %d, body %s", w.Code, w.Body.String())
	}

	w := doJSON(t, s, http.MethodGet, "/api/v1/alerts/preferences", nil)
	var envelope struct {
		Data alertPreferences `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if envelope.Data.DropThreshold != 20 || envelope.Data.CooldownSeconds != 600 {
		t.Errorf("preferences not applied: %+v", envelope.Data)
	}

	cfg := monitor.Config()
	if cfg.Cooldown != 10*time.Minute {
		t.Errorf("monitor cooldown %v, want 10m", cfg.Cooldown)
	}
}

func TestAlertPreferencesValidation(t *testing.T) {
	monitor := alerts.NewMonitor(alerts.Config{Enabled: true, DropThreshold: 15, Cooldown: time.Minute}, noopDispatcher{}, zerolog.Nop())
	s := newTestServer(&fakeMarket{snap: testSnapshot()}, &fakeScorer{}, monitor)

	bad := []alertPreferences{
		{DropThreshold: 0, CooldownSeconds: 60},
		{DropThreshold: 150, CooldownSeconds: 60},
		{DropThreshold: 15, CooldownSeconds: 0},
	}
	for i, prefs := range bad {
		if w := doJSON(t, s, http.MethodPut, "/api/v1/alerts/preferences", prefs); w.Code != http.StatusBadRequest {
			t.Errorf("case %d: status %d, want 400", i, w.Code)
		}
	}
}

type noopDispatcher struct{}

func (noopDispatcher) Dispatch(alert *notification.Alert) {}
