package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/prylval/affiliates/internal/domain"
)

// Config holds the retry and transport settings of the feed client
type Config struct {
	Timeout       time.Duration
	MaxAttempts   int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	RatePerSecond float64
	Burst         int
	UserAgent     string
}

// DefaultConfig returns the settings used when a field is left zero.
func DefaultConfig() Config {
	return Config{
		Timeout:       30 * time.Second,
		MaxAttempts:   3,
		BaseDelay:     time.Second,
		MaxDelay:      10 * time.Second,
		RatePerSecond: 2,
		Burst:         4,
		UserAgent:     "Prylval-Affiliate-Matcher/1.0",
	}
}

// Client downloads merchant product feeds
type Client struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	userAgent   string
	logger      zerolog.Logger
}

// NewClient creates a new feed client
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = def.BaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = def.MaxDelay
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = def.RatePerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = def.Burst
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		maxAttempts: cfg.MaxAttempts,
		baseDelay:   cfg.BaseDelay,
		maxDelay:    cfg.MaxDelay,
		userAgent:   cfg.UserAgent,
		logger:      logger,
	}
}

// exponentialBackoff returns the wait after a failed attempt (1-based):
// base, 2*base, 4*base, ... capped at limit.
func exponentialBackoff(attempt int, base, limit time.Duration) time.Duration {
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= limit {
			return limit
		}
	}
	return min(delay, limit)
}

// retryable reports whether a non-200 status is worth another attempt
func retryable(status int) bool {
	return status >= 500 || status == http.StatusTooManyRequests || status == http.StatusRequestTimeout
}

// Fetch downloads the feed at url and decodes its records. Transient failures
// are retried with exponential backoff; the last error is returned when every
// attempt fails.
func (c *Client) Fetch(ctx context.Context, url string) ([]domain.RawOffer, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		c.logger.Info().Str("url", url).Int("attempt", attempt).Int("max_attempts", c.maxAttempts).Msg("fetching feed")

		records, retry, err := c.fetchOnce(ctx, url)
		if err == nil {
			c.logger.Info().Str("url", url).Int("records", len(records)).Msg("feed fetched")
			return records, nil
		}
		lastErr = err
		c.logger.Warn().Err(err).Str("url", url).Int("attempt", attempt).Msg("feed attempt failed")

		if !retry || attempt == c.maxAttempts {
			break
		}

		delay := exponentialBackoff(attempt, c.baseDelay, c.maxDelay)
		c.logger.Debug().Dur("delay", delay).Msg("waiting before next attempt")
		if err := sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, lastErr
}

// fetchOnce performs a single request. The bool reports whether the failure is
// transient.
func (c *Client) fetchOnce(ctx context.Context, url string) ([]domain.RawOffer, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, true, fmt.Errorf("%w: %v", domain.ErrFeedUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, retryable(resp.StatusCode),
			fmt.Errorf("%w: status %d: %s", domain.ErrFeedUnavailable, resp.StatusCode, string(body))
	}

	records, err := c.decode(resp.Body)
	if err != nil {
		return nil, false, err
	}
	return records, false, nil
}

// decode reads a JSON array of offer records. A record of unexpected shape is
// skipped rather than failing the whole feed.
func (c *Client) decode(r io.Reader) ([]domain.RawOffer, error) {
	var raw []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	records := make([]domain.RawOffer, 0, len(raw))
	skipped := 0
	for _, item := range raw {
		var rec domain.RawOffer
		if err := json.Unmarshal(item, &rec); err != nil {
			skipped++
			continue
		}
		records = append(records, rec)
	}
	if skipped > 0 {
		c.logger.Warn().Int("skipped", skipped).Msg("skipped malformed feed records")
	}
	return records, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
