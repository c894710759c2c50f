// Package osrs is a typed client for the wiki real-time prices API,
// the upstream feed behind the market snapshot cache.
package osrs

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Config holds upstream client settings
type Config struct {
	BaseURL       string
	UserAgent     string
	Timeout       time.Duration
	RetryCount    int
	RatePerMinute int
}

// Client fetches latest quotes, daily aggregates, and the item catalog
type Client struct {
	http    *resty.Client
	limiter *RateLimiter
}

// NewClient creates a wiki API client
func NewClient(cfg Config) *Client {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("User-Agent", cfg.UserAgent).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond)

	return &Client{
		http:    client,
		limiter: NewRateLimiter(cfg.RatePerMinute),
	}
}

// LatestPrices fetches the current best quote for every item
func (c *Client) LatestPrices(ctx context.Context) (*LatestPricesResponse, error) {
	var out LatestPricesResponse
	if err := c.get(ctx, "/latest", &out); err != nil {
		return nil, fmt.Errorf("fetching latest prices: %w", err)
	}
	return &out, nil
}

// DailyPrices fetches 24h rolling price and volume aggregates
func (c *Client) DailyPrices(ctx context.Context) (*DailyPricesResponse, error) {
	var out DailyPricesResponse
	if err := c.get(ctx, "/24h", &out); err != nil {
		return nil, fmt.Errorf("fetching 24h prices: %w", err)
	}
	return &out, nil
}

// ItemCatalog fetches the static item mapping
func (c *Client) ItemCatalog(ctx context.Context) ([]ItemMapping, error) {
	var out []ItemMapping
	if err := c.get(ctx, "/mapping", &out); err != nil {
		return nil, fmt.Errorf("fetching item mapping: %w", err)
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	if ok, wait := c.limiter.TryAcquire(); !ok {
		return fmt.Errorf("upstream rate budget exhausted, retry in %s", wait.Round(time.Second))
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(out).
		Get(path)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("upstream returned status %d for %s", resp.StatusCode(), path)
	}
	return nil
}
