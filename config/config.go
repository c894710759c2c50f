package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ServerConfig     ServerConfig     `json:"server"`
	WikiConfig       WikiConfig       `json:"wiki"`
	CacheConfig      CacheConfig      `json:"cache"`
	StrategyConfig   StrategyConfig   `json:"strategy"`
	ScorerConfig     ScorerConfig     `json:"scorer"`
	AllocatorConfig  AllocatorConfig  `json:"allocator"`
	SuggestionConfig SuggestionConfig `json:"suggestion"`
	AlertConfig      AlertConfig      `json:"alerts"`
	RedisConfig      RedisConfig      `json:"redis"`
	LoggingConfig    LoggingConfig    `json:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int    `json:"port"`
	Host            string `json:"host"`
	AllowedOrigins  string `json:"allowed_origins"`
	ReadTimeout     int    `json:"read_timeout"`     // Seconds
	WriteTimeout    int    `json:"write_timeout"`    // Seconds
	ShutdownTimeout int    `json:"shutdown_timeout"` // Seconds
}

// WikiConfig holds settings for the wiki real-time prices API
type WikiConfig struct {
	BaseURL        string `json:"base_url"`
	UserAgent      string `json:"user_agent"` // The wiki API requires a descriptive UA
	RequestTimeout int    `json:"request_timeout"` // Seconds
	RetryCount     int    `json:"retry_count"`
	RatePerMinute  int    `json:"rate_per_minute"` // Upstream request budget
}

// CacheConfig holds snapshot cache configuration.
// TTLs are per-consumer: the dashboard tolerates older data than the advisor.
type CacheConfig struct {
	RefreshInterval int `json:"refresh_interval"` // Seconds between background refreshes
	DashboardTTL    int `json:"dashboard_ttl"`    // Seconds a snapshot stays fresh for ranking reads
	SuggestionTTL   int `json:"suggestion_ttl"`   // Seconds a snapshot stays fresh for suggestions
}

// StrategyConfig holds the default per-user scoring strategy
type StrategyConfig struct {
	MinPrice  int64   `json:"min_price"`  // Minimum sell price in gp
	MaxPrice  int64   `json:"max_price"`  // 0 = no ceiling
	MinVolume int64   `json:"min_volume"` // Minimum combined 24h volume
	MinROI    float64 `json:"min_roi"`    // Minimum ROI percent for flips
}

// ScorerConfig holds scoring pipeline tunables
type ScorerConfig struct {
	FreshnessWindow    int     `json:"freshness_window"`     // Seconds before a quote is stale
	TurnoverFloor      int64   `json:"turnover_floor"`       // Minimum sellPrice*volume in gp
	HighValueThreshold int64   `json:"high_value_threshold"` // Items above this skip the turnover check
	MaxSpreadRatio     float64 `json:"max_spread_ratio"`     // Spread/buy ratio beyond which a quote is junk
	PanicThreshold     float64 `json:"panic_threshold"`      // Percent drop that qualifies as a dump
	VolatilityCeiling  float64 `json:"volatility_ceiling"`   // Percent volatility before score penalties apply
	VolatilityWeight   float64 `json:"volatility_weight"`    // Penalty steepness past the ceiling
	WorkerCount        int     `json:"worker_count"`         // Concurrent scoring workers
}

// AllocatorConfig holds purchase plan tunables
type AllocatorConfig struct {
	DiversificationCap float64 `json:"diversification_cap"` // Max fraction of budget per item
	MinBudget          int64   `json:"min_budget"`          // Below this, allocation is refused
	DustThreshold      int64   `json:"dust_threshold"`      // Remaining gp at which the pass stops
}

// SuggestionConfig holds suggestion engine tunables
type SuggestionConfig struct {
	MinProfitPerUnit int64 `json:"min_profit_per_unit"` // gp floor for buy candidates
	MinCashPerSlot   int64 `json:"min_cash_per_slot"`   // gp floor per empty slot before waiting
}

// AlertConfig holds price-drop alert preferences
type AlertConfig struct {
	Enabled          bool     `json:"enabled"`
	DropThreshold    float64  `json:"drop_threshold"`    // Percent drop, e.g. 15
	CooldownSeconds  int      `json:"cooldown_seconds"`  // Per-item dedup window
	TrackedItems     []int    `json:"tracked_items"`     // Empty = track the whole catalog
	InAppEnabled     bool     `json:"in_app_enabled"`
	SoundEnabled     bool     `json:"sound_enabled"`
	DiscordEnabled   bool     `json:"discord_enabled"`
	DiscordWebhook   string   `json:"discord_webhook"`
	WebhookEnabled   bool     `json:"webhook_enabled"`
	WebhookURL       string   `json:"webhook_url"`
	WebhookAllowList []string `json:"webhook_allow_list"` // URL prefixes dispatch is restricted to
	DispatchTimeout  int      `json:"dispatch_timeout"`   // Seconds per channel send
}

// RedisConfig holds Redis configuration for the optional snapshot mirror
type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

type LoggingConfig struct {
	Level      string `json:"level"`       // DEBUG, INFO, WARN, ERROR
	Output     string `json:"output"`      // stdout, stderr, or file path
	JSONFormat bool   `json:"json_format"` // Output as JSON
}

func Load() (*Config, error) {
	// First try to load base config from file
	cfg, err := loadFromFile("config.json")
	if err != nil {
		// If no config file, start with empty config
		cfg = &Config{}
	}

	// Apply environment variable overrides (these take precedence)
	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the config
func applyEnvOverrides(cfg *Config) {
	// Server config
	cfg.ServerConfig.Port = getEnvIntOrDefault("WEB_PORT", defaultInt(cfg.ServerConfig.Port, 8080))
	cfg.ServerConfig.Host = getEnvOrDefault("WEB_HOST", defaultStr(cfg.ServerConfig.Host, "0.0.0.0"))
	cfg.ServerConfig.AllowedOrigins = getEnvOrDefault("SERVER_ALLOWED_ORIGINS", defaultStr(cfg.ServerConfig.AllowedOrigins, "*"))
	cfg.ServerConfig.ReadTimeout = getEnvIntOrDefault("SERVER_READ_TIMEOUT", defaultInt(cfg.ServerConfig.ReadTimeout, 30))
	cfg.ServerConfig.WriteTimeout = getEnvIntOrDefault("SERVER_WRITE_TIMEOUT", defaultInt(cfg.ServerConfig.WriteTimeout, 30))
	cfg.ServerConfig.ShutdownTimeout = getEnvIntOrDefault("SERVER_SHUTDOWN_TIMEOUT", defaultInt(cfg.ServerConfig.ShutdownTimeout, 10))

	// Wiki upstream config
	cfg.WikiConfig.BaseURL = getEnvOrDefault("WIKI_BASE_URL", defaultStr(cfg.WikiConfig.BaseURL, "https://prices.runescape.wiki/api/v1/osrs"))
	cfg.WikiConfig.UserAgent = getEnvOrDefault("WIKI_USER_AGENT", defaultStr(cfg.WikiConfig.UserAgent, "osrs-trader price assistant"))
	cfg.WikiConfig.RequestTimeout = getEnvIntOrDefault("WIKI_REQUEST_TIMEOUT", defaultInt(cfg.WikiConfig.RequestTimeout, 15))
	cfg.WikiConfig.RetryCount = getEnvIntOrDefault("WIKI_RETRY_COUNT", defaultInt(cfg.WikiConfig.RetryCount, 2))
	cfg.WikiConfig.RatePerMinute = getEnvIntOrDefault("WIKI_RATE_PER_MINUTE", defaultInt(cfg.WikiConfig.RatePerMinute, 30))

	// Cache config
	cfg.CacheConfig.RefreshInterval = getEnvIntOrDefault("CACHE_REFRESH_INTERVAL", defaultInt(cfg.CacheConfig.RefreshInterval, 60))
	cfg.CacheConfig.DashboardTTL = getEnvIntOrDefault("CACHE_DASHBOARD_TTL", defaultInt(cfg.CacheConfig.DashboardTTL, 120))
	cfg.CacheConfig.SuggestionTTL = getEnvIntOrDefault("CACHE_SUGGESTION_TTL", defaultInt(cfg.CacheConfig.SuggestionTTL, 60))

	// Strategy defaults
	cfg.StrategyConfig.MinPrice = getEnvInt64OrDefault("STRATEGY_MIN_PRICE", defaultInt64(cfg.StrategyConfig.MinPrice, 100))
	cfg.StrategyConfig.MaxPrice = getEnvInt64OrDefault("STRATEGY_MAX_PRICE", cfg.StrategyConfig.MaxPrice)
	cfg.StrategyConfig.MinVolume = getEnvInt64OrDefault("STRATEGY_MIN_VOLUME", defaultInt64(cfg.StrategyConfig.MinVolume, 500))
	cfg.StrategyConfig.MinROI = getEnvFloatOrDefault("STRATEGY_MIN_ROI", defaultFloat(cfg.StrategyConfig.MinROI, 1.0))

	// Scorer config
	cfg.ScorerConfig.FreshnessWindow = getEnvIntOrDefault("SCORER_FRESHNESS_WINDOW", defaultInt(cfg.ScorerConfig.FreshnessWindow, 900))
	cfg.ScorerConfig.TurnoverFloor = getEnvInt64OrDefault("SCORER_TURNOVER_FLOOR", defaultInt64(cfg.ScorerConfig.TurnoverFloor, 250000))
	cfg.ScorerConfig.HighValueThreshold = getEnvInt64OrDefault("SCORER_HIGH_VALUE_THRESHOLD", defaultInt64(cfg.ScorerConfig.HighValueThreshold, 1000000))
	cfg.ScorerConfig.MaxSpreadRatio = getEnvFloatOrDefault("SCORER_MAX_SPREAD_RATIO", defaultFloat(cfg.ScorerConfig.MaxSpreadRatio, 1.5))
	cfg.ScorerConfig.PanicThreshold = getEnvFloatOrDefault("SCORER_PANIC_THRESHOLD", defaultFloat(cfg.ScorerConfig.PanicThreshold, 15.0))
	cfg.ScorerConfig.VolatilityCeiling = getEnvFloatOrDefault("SCORER_VOLATILITY_CEILING", defaultFloat(cfg.ScorerConfig.VolatilityCeiling, 10.0))
	cfg.ScorerConfig.VolatilityWeight = getEnvFloatOrDefault("SCORER_VOLATILITY_WEIGHT", defaultFloat(cfg.ScorerConfig.VolatilityWeight, 2.0))
	cfg.ScorerConfig.WorkerCount = getEnvIntOrDefault("SCORER_WORKER_COUNT", defaultInt(cfg.ScorerConfig.WorkerCount, 8))

	// Allocator config
	cfg.AllocatorConfig.DiversificationCap = getEnvFloatOrDefault("ALLOCATOR_DIVERSIFICATION_CAP", defaultFloat(cfg.AllocatorConfig.DiversificationCap, 0.25))
	cfg.AllocatorConfig.MinBudget = getEnvInt64OrDefault("ALLOCATOR_MIN_BUDGET", defaultInt64(cfg.AllocatorConfig.MinBudget, 10000))
	cfg.AllocatorConfig.DustThreshold = getEnvInt64OrDefault("ALLOCATOR_DUST_THRESHOLD", defaultInt64(cfg.AllocatorConfig.DustThreshold, 1000))

	// Suggestion config
	cfg.SuggestionConfig.MinProfitPerUnit = getEnvInt64OrDefault("SUGGESTION_MIN_PROFIT", defaultInt64(cfg.SuggestionConfig.MinProfitPerUnit, 10))
	cfg.SuggestionConfig.MinCashPerSlot = getEnvInt64OrDefault("SUGGESTION_MIN_CASH_PER_SLOT", defaultInt64(cfg.SuggestionConfig.MinCashPerSlot, 1000))

	// Alert config
	cfg.AlertConfig.Enabled = getEnvOrDefault("ALERTS_ENABLED", boolStr(cfg.AlertConfig.Enabled)) == "true"
	cfg.AlertConfig.DropThreshold = getEnvFloatOrDefault("ALERTS_DROP_THRESHOLD", defaultFloat(cfg.AlertConfig.DropThreshold, 15))
	cfg.AlertConfig.CooldownSeconds = getEnvIntOrDefault("ALERTS_COOLDOWN_SECONDS", defaultInt(cfg.AlertConfig.CooldownSeconds, 300))
	cfg.AlertConfig.InAppEnabled = getEnvOrDefault("ALERTS_IN_APP", boolStr(cfg.AlertConfig.InAppEnabled)) == "true"
	cfg.AlertConfig.SoundEnabled = getEnvOrDefault("ALERTS_SOUND", boolStr(cfg.AlertConfig.SoundEnabled)) == "true"
	cfg.AlertConfig.DiscordEnabled = getEnvOrDefault("ALERTS_DISCORD", boolStr(cfg.AlertConfig.DiscordEnabled)) == "true"
	cfg.AlertConfig.DiscordWebhook = getEnvOrDefault("ALERTS_DISCORD_WEBHOOK", cfg.AlertConfig.DiscordWebhook)
	cfg.AlertConfig.WebhookEnabled = getEnvOrDefault("ALERTS_WEBHOOK", boolStr(cfg.AlertConfig.WebhookEnabled)) == "true"
	cfg.AlertConfig.WebhookURL = getEnvOrDefault("ALERTS_WEBHOOK_URL", cfg.AlertConfig.WebhookURL)
	cfg.AlertConfig.DispatchTimeout = getEnvIntOrDefault("ALERTS_DISPATCH_TIMEOUT", defaultInt(cfg.AlertConfig.DispatchTimeout, 5))
	if allow := os.Getenv("ALERTS_WEBHOOK_ALLOW_LIST"); allow != "" {
		cfg.AlertConfig.WebhookAllowList = splitAndTrim(allow)
	}
	if len(cfg.AlertConfig.WebhookAllowList) == 0 {
		cfg.AlertConfig.WebhookAllowList = []string{"https://"}
	}

	// Redis config
	cfg.RedisConfig.Enabled = getEnvOrDefault("REDIS_ENABLED", boolStr(cfg.RedisConfig.Enabled)) == "true"
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDRESS", defaultStr(cfg.RedisConfig.Address, "localhost:6379"))
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)
	cfg.RedisConfig.DB = getEnvIntOrDefault("REDIS_DB", cfg.RedisConfig.DB)
	cfg.RedisConfig.PoolSize = getEnvIntOrDefault("REDIS_POOL_SIZE", defaultInt(cfg.RedisConfig.PoolSize, 10))

	// Logging config
	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", defaultStr(cfg.LoggingConfig.Level, "INFO"))
	cfg.LoggingConfig.Output = getEnvOrDefault("LOG_OUTPUT", defaultStr(cfg.LoggingConfig.Output, "stdout"))
	cfg.LoggingConfig.JSONFormat = getEnvOrDefault("LOG_JSON", "true") == "true"
}

func loadFromFile(filename string) (*Config, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return &config, nil
}

// GenerateSampleConfig writes a config.json populated with defaults
func GenerateSampleConfig(filename string) error {
	cfg := &Config{}
	applyEnvOverrides(cfg)

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshaling sample config: %w", err)
	}

	return os.WriteFile(filename, data, 0644)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func defaultStr(v, d string) string {
	if v == "" {
		return d
	}
	return v
}

func defaultInt(v, d int) int {
	if v == 0 {
		return d
	}
	return v
}

func defaultInt64(v, d int64) int64 {
	if v == 0 {
		return d
	}
	return v
}

func defaultFloat(v, d float64) float64 {
	if v == 0 {
		return d
	}
	return v
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// CooldownDuration returns the alert cooldown as a time.Duration
func (a AlertConfig) CooldownDuration() time.Duration {
	return time.Duration(a.CooldownSeconds) * time.Second
}

// DispatchTimeoutDuration returns the per-channel dispatch timeout
func (a AlertConfig) DispatchTimeoutDuration() time.Duration {
	if a.DispatchTimeout <= 0 {
		return 5 * time.Second
	}
	return time.Duration(a.DispatchTimeout) * time.Second
}
