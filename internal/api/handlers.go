package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"osrs-trader/internal/advisor"
	"osrs-trader/internal/allocator"
	"osrs-trader/internal/scoring"
)

// handleSuggestion returns the single recommended next action for the
// posted player state. The response body is always a well-formed
// suggestion; internal failures carry error=true and a non-2xx status.
func (s *Server) handleSuggestion(c *gin.Context) {
	var req advisor.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, advisor.Suggestion{
			Type:    advisor.KindWait,
			Message: "Invalid request body.",
			Error:   true,
		})
		return
	}
	if req.GP < 0 {
		c.JSON(http.StatusBadRequest, advisor.Suggestion{
			Type:    advisor.KindWait,
			Message: "gp must not be negative.",
			Error:   true,
		})
		return
	}

	// Stale data is acceptable here; a refresh failure just means we
	// advise off the previous snapshot.
	if err := s.market.RefreshIfStale(c.Request.Context(), s.config.SuggestionTTL); err != nil {
		s.logger.Warn().Err(err).Msg("Snapshot refresh failed, serving previous data")
	}

	snap := s.market.Current()
	if snap == nil {
		c.JSON(http.StatusServiceUnavailable, advisor.Suggestion{
			Type:    advisor.KindWait,
			Message: "Market data is still loading.",
			Error:   true,
		})
		return
	}

	c.JSON(http.StatusOK, advisor.Suggest(req, snap, s.config.Advisor))
}

// handleOpportunities returns the latest ranked dump and flip sets
func (s *Server) handleOpportunities(c *gin.Context) {
	result := s.scorer.Latest()
	if result == nil {
		result = &scoring.Result{
			Dumps: []scoring.Opportunity{},
			Flips: []scoring.Opportunity{},
		}
	}
	successResponse(c, result)
}

type basketRequest struct {
	Budget int64 `json:"budget"`
}

// handleBasket builds a purchase basket from the latest flip set
func (s *Server) handleBasket(c *gin.Context) {
	var req basketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Budget <= 0 {
		errorResponse(c, http.StatusBadRequest, "budget must be positive")
		return
	}

	var flips []scoring.Opportunity
	if result := s.scorer.Latest(); result != nil {
		flips = result.Flips
	}

	successResponse(c, allocator.Build(flips, req.Budget, s.config.Allocator))
}

// handleSnapshotStatus reports snapshot age and size
func (s *Server) handleSnapshotStatus(c *gin.Context) {
	snap := s.market.Current()
	if snap == nil {
		successResponse(c, gin.H{"available": false})
		return
	}

	successResponse(c, gin.H{
		"available":  true,
		"fetched_at": snap.FetchedAt,
		"age_ms":     time.Since(snap.FetchedAt).Milliseconds(),
		"fresh":      snap.FreshFor(s.config.DashboardTTL),
		"item_count": len(snap.Quotes),
	})
}

type alertPreferences struct {
	Enabled         bool    `json:"enabled"`
	DropThreshold   float64 `json:"drop_threshold"`
	CooldownSeconds int     `json:"cooldown_seconds"`
	TrackedItems    []int   `json:"tracked_items"`
}

// handleGetAlertPreferences returns the live alert configuration
func (s *Server) handleGetAlertPreferences(c *gin.Context) {
	if s.monitor == nil {
		errorResponse(c, http.StatusServiceUnavailable, "Alerts are not configured")
		return
	}

	cfg := s.monitor.Config()
	successResponse(c, alertPreferences{
		Enabled:         cfg.Enabled,
		DropThreshold:   cfg.DropThreshold,
		CooldownSeconds: int(cfg.Cooldown / time.Second),
		TrackedItems:    cfg.TrackedItems,
	})
}

// handlePutAlertPreferences replaces the alert configuration
func (s *Server) handlePutAlertPreferences(c *gin.Context) {
	if s.monitor == nil {
		errorResponse(c, http.StatusServiceUnavailable, "Alerts are not configured")
		return
	}

	var prefs alertPreferences
	if err := c.ShouldBindJSON(&prefs); err != nil {
		errorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if prefs.DropThreshold <= 0 || prefs.DropThreshold > 100 {
		errorResponse(c, http.StatusBadRequest, "drop_threshold must be between 0 and 100")
		return
	}
	if prefs.CooldownSeconds <= 0 {
		errorResponse(c, http.StatusBadRequest, "cooldown_seconds must be positive")
		return
	}

	cfg := s.monitor.Config()
	cfg.Enabled = prefs.Enabled
	cfg.DropThreshold = prefs.DropThreshold
	cfg.Cooldown = time.Duration(prefs.CooldownSeconds) * time.Second
	cfg.TrackedItems = prefs.TrackedItems
	s.monitor.SetConfig(cfg)

	successResponse(c, prefs)
}
