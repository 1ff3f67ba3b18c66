// Package infrastructure selects the concrete adapters named by configuration.
package infrastructure

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/prylval/affiliates/config"
	"github.com/prylval/affiliates/internal/domain"
	"github.com/prylval/affiliates/internal/infrastructure/mapclient"
	"github.com/prylval/affiliates/internal/infrastructure/redisstore"
	"github.com/prylval/affiliates/internal/infrastructure/storage"
)

// NewMapRepository returns the affiliate map store for storage.type.
func NewMapRepository(cfg config.StorageConfig, clock domain.Clock) (domain.AffiliateMapRepository, error) {
	switch cfg.Type {
	case "", "file":
		return storage.NewAffiliateMapRepository(cfg.MapPath, clock), nil
	case "redis":
		client, err := redisstore.Connect(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		return redisstore.New(client, cfg.RedisKey, clock), nil
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}

// NewMapReader returns where the decorator reads the map from: the published
// URL when one is configured, the matcher's own store otherwise.
func NewMapReader(cfg *config.Config, logger zerolog.Logger) (domain.AffiliateMapReader, error) {
	if cfg.Decorator.MapURL != "" {
		return mapclient.NewClient(cfg.Decorator.MapURL, 10*time.Second, logger), nil
	}
	return NewMapRepository(cfg.Storage, nil)
}
