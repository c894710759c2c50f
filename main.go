package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"osrs-trader/config"
	"osrs-trader/internal/advisor"
	"osrs-trader/internal/alerts"
	"osrs-trader/internal/allocator"
	"osrs-trader/internal/api"
	"osrs-trader/internal/events"
	"osrs-trader/internal/logging"
	"osrs-trader/internal/marketdata"
	"osrs-trader/internal/notification"
	"osrs-trader/internal/osrs"
	"osrs-trader/internal/scoring"
)

func main() {
	// .env is optional, real deployments use the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(logging.Config{
		Level:      cfg.LoggingConfig.Level,
		Output:     cfg.LoggingConfig.Output,
		JSONFormat: cfg.LoggingConfig.JSONFormat,
	})
	logger.Info().Msg("Logging initialized")

	eventBus := events.NewEventBus()

	// Optional Redis mirror for warm starts across restarts
	var mirror *marketdata.RedisMirror
	if cfg.RedisConfig.Enabled {
		mirror = marketdata.NewRedisMirror(marketdata.MirrorConfig{
			Address:  cfg.RedisConfig.Address,
			Password: cfg.RedisConfig.Password,
			DB:       cfg.RedisConfig.DB,
			PoolSize: cfg.RedisConfig.PoolSize,
		}, logger)
		defer mirror.Close()
	}

	wikiClient := osrs.NewClient(osrs.Config{
		BaseURL:       cfg.WikiConfig.BaseURL,
		UserAgent:     cfg.WikiConfig.UserAgent,
		Timeout:       time.Duration(cfg.WikiConfig.RequestTimeout) * time.Second,
		RetryCount:    cfg.WikiConfig.RetryCount,
		RatePerMinute: cfg.WikiConfig.RatePerMinute,
	})

	cache := marketdata.NewCache(wikiClient, eventBus, mirror, logger, marketdata.Config{
		RefreshInterval: time.Duration(cfg.CacheConfig.RefreshInterval) * time.Second,
	})

	scorer := scoring.NewScorer(scoring.Config{
		FreshnessWindow:    time.Duration(cfg.ScorerConfig.FreshnessWindow) * time.Second,
		TurnoverFloor:      cfg.ScorerConfig.TurnoverFloor,
		HighValueThreshold: cfg.ScorerConfig.HighValueThreshold,
		MaxSpreadRatio:     cfg.ScorerConfig.MaxSpreadRatio,
		PanicThreshold:     cfg.ScorerConfig.PanicThreshold,
		VolatilityCeiling:  cfg.ScorerConfig.VolatilityCeiling,
		VolatilityWeight:   cfg.ScorerConfig.VolatilityWeight,
		WorkerCount:        cfg.ScorerConfig.WorkerCount,
	}, eventBus)

	strategy := scoring.Strategy{
		MinPrice:  cfg.StrategyConfig.MinPrice,
		MaxPrice:  cfg.StrategyConfig.MaxPrice,
		MinVolume: cfg.StrategyConfig.MinVolume,
		MinROI:    cfg.StrategyConfig.MinROI,
	}

	notifyManager := notification.NewManager(cfg.AlertConfig.DispatchTimeoutDuration(), logger)
	notifyManager.AddNotifier(notification.NewInAppNotifier(eventBus, cfg.AlertConfig.InAppEnabled))
	notifyManager.AddNotifier(notification.NewSoundNotifier(eventBus, cfg.AlertConfig.SoundEnabled))
	notifyManager.AddNotifier(notification.NewDiscordNotifier(notification.DiscordConfig{
		WebhookURL: cfg.AlertConfig.DiscordWebhook,
		Enabled:    cfg.AlertConfig.DiscordEnabled,
	}))
	notifyManager.AddNotifier(notification.NewWebhookNotifier(notification.WebhookConfig{
		URL:           cfg.AlertConfig.WebhookURL,
		Enabled:       cfg.AlertConfig.WebhookEnabled,
		AllowPrefixes: cfg.AlertConfig.WebhookAllowList,
	}, logger))

	monitor := alerts.NewMonitor(alerts.Config{
		Enabled:       cfg.AlertConfig.Enabled,
		DropThreshold: cfg.AlertConfig.DropThreshold,
		Cooldown:      cfg.AlertConfig.CooldownDuration(),
		TrackedItems:  cfg.AlertConfig.TrackedItems,
	}, notifyManager, logger)

	// Every fresh snapshot re-ranks opportunities and re-checks alerts
	eventBus.Subscribe(events.EventSnapshotRefreshed, func(events.Event) {
		snap := cache.Current()
		scorer.Recompute(snap, strategy)
		monitor.Evaluate(snap)
	})

	server := api.NewServer(api.Config{
		Port:           cfg.ServerConfig.Port,
		Host:           cfg.ServerConfig.Host,
		AllowedOrigins: cfg.ServerConfig.AllowedOrigins,
		ProductionMode: os.Getenv("GIN_MODE") == "release",
		DashboardTTL:   time.Duration(cfg.CacheConfig.DashboardTTL) * time.Second,
		SuggestionTTL:  time.Duration(cfg.CacheConfig.SuggestionTTL) * time.Second,
		Allocator: allocator.Config{
			DiversificationCap: cfg.AllocatorConfig.DiversificationCap,
			MinBudget:          cfg.AllocatorConfig.MinBudget,
			DustThreshold:      cfg.AllocatorConfig.DustThreshold,
		},
		Advisor: advisor.Config{
			MinProfitPerUnit: cfg.SuggestionConfig.MinProfitPerUnit,
			MinCashPerSlot:   cfg.SuggestionConfig.MinCashPerSlot,
		},
	}, cache, scorer, monitor, eventBus, logger)

	cache.Start()

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	logger.Info().Int("port", cfg.ServerConfig.Port).Msg("osrs-trader started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down")
	cache.Stop()

	shutdownTimeout := time.Duration(cfg.ServerConfig.ShutdownTimeout) * time.Second
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown error")
	}

	logger.Info().Msg("Goodbye")
}
