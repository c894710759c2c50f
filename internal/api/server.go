package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"osrs-trader/internal/advisor"
	"osrs-trader/internal/alerts"
	"osrs-trader/internal/allocator"
	"osrs-trader/internal/events"
	"osrs-trader/internal/marketdata"
	"osrs-trader/internal/scoring"
)

// RateLimiter provides simple in-memory rate limiting per endpoint
type RateLimiter struct {
	requests map[string][]time.Time
	mu       sync.Mutex
	limit    int
	window   time.Duration
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

// Allow checks if a request is allowed for the given key
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-r.window)

	var recent []time.Time
	for _, t := range r.requests[key] {
		if t.After(windowStart) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= r.limit {
		r.requests[key] = recent
		return false
	}

	r.requests[key] = append(recent, now)
	return true
}

// MarketSource is the snapshot cache surface the server needs
type MarketSource interface {
	Current() *marketdata.Snapshot
	RefreshIfStale(ctx context.Context, ttl time.Duration) error
}

// OpportunitySource serves the latest ranked scoring result
type OpportunitySource interface {
	Latest() *scoring.Result
}

// Config holds server configuration
type Config struct {
	Port           int
	Host           string
	AllowedOrigins string // comma separated
	ProductionMode bool

	DashboardTTL  time.Duration
	SuggestionTTL time.Duration

	Allocator allocator.Config
	Advisor   advisor.Config
}

// Server is the HTTP API surface over the decision core
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	config     Config
	logger     zerolog.Logger

	market  MarketSource
	scorer  OpportunitySource
	monitor *alerts.Monitor

	hub         *WSHub
	rateLimiter *RateLimiter
}

// NewServer creates a new API server
func NewServer(config Config, market MarketSource, scorer OpportunitySource, monitor *alerts.Monitor, bus *events.EventBus, logger zerolog.Logger) *Server {
	if config.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = splitOrigins(config.AllowedOrigins)
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type"}
	corsConfig.ExposeHeaders = []string{"Content-Length"}
	router.Use(cors.New(corsConfig))

	server := &Server{
		router:      router,
		config:      config,
		logger:      logger.With().Str("component", "api").Logger(),
		market:      market,
		scorer:      scorer,
		monitor:     monitor,
		rateLimiter: NewRateLimiter(120, time.Minute),
	}

	if bus != nil {
		server.hub = NewWSHub(server.logger)
		go server.hub.Run()
		bus.SubscribeAll(func(event events.Event) {
			server.hub.BroadcastEvent(event)
		})
	}

	server.setupRoutes()

	return server
}

func splitOrigins(origins string) []string {
	if origins == "" {
		return []string{"http://localhost:5173", "http://localhost:8080"}
	}
	parts := strings.Split(origins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// rateLimitMiddleware rate limits requests by endpoint path
func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		if !s.rateLimiter.Allow(path) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   true,
				"message": "Rate limit exceeded. Please slow down.",
				"path":    path,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/ws", s.handleWebSocket)

	v1 := s.router.Group("/api/v1")
	v1.Use(s.rateLimitMiddleware())
	{
		v1.POST("/suggestion", s.handleSuggestion)
		v1.GET("/opportunities", s.handleOpportunities)
		v1.POST("/basket", s.handleBasket)
		v1.GET("/snapshot/status", s.handleSnapshotStatus)
		v1.GET("/alerts/preferences", s.handleGetAlertPreferences)
		v1.PUT("/alerts/preferences", s.handlePutAlertPreferences)
	}
}

// Start runs the HTTP server until Shutdown is called
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info().Str("addr", addr).Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down HTTP server")

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

// Router exposes the gin engine, mainly for tests
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) handleHealth(c *gin.Context) {
	snap := s.market.Current()

	status := "healthy"
	snapshot := "ready"
	code := http.StatusOK
	if snap == nil {
		status = "starting"
		snapshot = "loading"
		code = http.StatusServiceUnavailable
	} else if !snap.FreshFor(s.config.DashboardTTL) {
		snapshot = "stale"
	}

	c.JSON(code, gin.H{
		"status":   status,
		"snapshot": snapshot,
	})
}

// errorResponse is a helper to send error responses
func errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":   true,
		"message": message,
	})
}

// successResponse is a helper to send success responses
func successResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}
