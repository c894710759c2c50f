package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	snapshotKey = "osrs:snapshot:latest"
	snapshotTTL = 24 * time.Hour
)

// MirrorConfig holds Redis mirror settings
type MirrorConfig struct {
	Address  string
	Password string
	DB       int
	PoolSize int
}

// RedisMirror keeps a best-effort copy of the latest snapshot in Redis
// so a restart (or a sibling instance) can warm-start while the
// upstream feed is down. The in-memory snapshot stays authoritative;
// every mirror operation degrades gracefully when Redis is unhealthy.
type RedisMirror struct {
	client *redis.Client
	logger zerolog.Logger

	mu           sync.RWMutex
	healthy      bool
	failureCount int
	lastCheck    time.Time

	maxFailures   int
	checkInterval time.Duration
}

// NewRedisMirror connects to Redis. A failed initial ping returns the
// mirror in degraded mode rather than an error.
func NewRedisMirror(cfg MirrorConfig, logger zerolog.Logger) *RedisMirror {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	m := &RedisMirror{
		client:        client,
		logger:        logger.With().Str("component", "snapshot-mirror").Logger(),
		maxFailures:   3,
		checkInterval: 30 * time.Second,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		m.logger.Warn().Err(err).Msg("redis unavailable, mirror starts degraded")
		return m
	}

	m.healthy = true
	m.lastCheck = time.Now()
	m.logger.Info().Str("address", cfg.Address).Msg("redis snapshot mirror connected")
	return m
}

// IsHealthy returns whether Redis is currently usable
func (m *RedisMirror) IsHealthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.healthy
}

func (m *RedisMirror) recordFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.failureCount++
	if m.failureCount >= m.maxFailures {
		if m.healthy {
			m.logger.Warn().Int("failures", m.failureCount).Msg("mirror marked unhealthy")
		}
		m.healthy = false
	}
}

func (m *RedisMirror) recordSuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.healthy {
		m.logger.Info().Msg("mirror recovered")
	}
	m.healthy = true
	m.failureCount = 0
	m.lastCheck = time.Now()
}

// checkHealth re-pings Redis in the background once the check interval
// has elapsed since the mirror went unhealthy.
func (m *RedisMirror) checkHealth() {
	m.mu.RLock()
	shouldCheck := !m.healthy && time.Since(m.lastCheck) >= m.checkInterval
	m.mu.RUnlock()

	if !shouldCheck {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := m.client.Ping(ctx).Err(); err == nil {
			m.recordSuccess()
		} else {
			m.mu.Lock()
			m.lastCheck = time.Now()
			m.mu.Unlock()
		}
	}()
}

// StoreSnapshot writes the snapshot to Redis, best-effort
func (m *RedisMirror) StoreSnapshot(ctx context.Context, snap *Snapshot) error {
	m.checkHealth()

	if !m.IsHealthy() {
		return fmt.Errorf("redis unavailable")
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}

	if err := m.client.Set(ctx, snapshotKey, data, snapshotTTL).Err(); err != nil {
		m.recordFailure()
		return fmt.Errorf("mirror write failed: %w", err)
	}

	m.recordSuccess()
	return nil
}

// LoadSnapshot reads the last mirrored snapshot, if any
func (m *RedisMirror) LoadSnapshot(ctx context.Context) (*Snapshot, error) {
	m.checkHealth()

	if !m.IsHealthy() {
		return nil, fmt.Errorf("redis unavailable")
	}

	data, err := m.client.Get(ctx, snapshotKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		m.recordFailure()
		return nil, fmt.Errorf("mirror read failed: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshaling mirrored snapshot: %w", err)
	}

	m.recordSuccess()
	return &snap, nil
}

// Close closes the Redis connection
func (m *RedisMirror) Close() error {
	if m.client != nil {
		return m.client.Close()
	}
	return nil
}
