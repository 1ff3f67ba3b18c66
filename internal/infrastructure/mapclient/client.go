package mapclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/prylval/affiliates/internal/domain"
)

// Client fetches the published affiliate map over HTTP
type Client struct {
	url        string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a map client for url
func NewClient(url string, timeout time.Duration, logger zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Load downloads and decodes the map document, bypassing intermediate caches.
func (c *Client) Load(ctx context.Context) (domain.AffiliateMap, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMapUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", domain.ErrMapUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMapUnavailable, err)
	}

	var doc domain.MapDocument
	if err := doc.UnmarshalJSON(body); err != nil {
		return nil, err
	}

	c.logger.Debug().Str("url", c.url).Int("entries", len(doc.Entries)).Msg("affiliate map fetched")
	return doc.Entries, nil
}
