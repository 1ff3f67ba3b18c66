package infrastructure

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prylval/affiliates/config"
	"github.com/prylval/affiliates/internal/infrastructure/mapclient"
	"github.com/prylval/affiliates/internal/infrastructure/redisstore"
	"github.com/prylval/affiliates/internal/infrastructure/storage"
)

func TestNewMapRepository(t *testing.T) {
	repo, err := NewMapRepository(config.StorageConfig{Type: "file", MapPath: filepath.Join(t.TempDir(), "m.json")}, nil)
	require.NoError(t, err)
	assert.IsType(t, &storage.AffiliateMapRepository{}, repo)

	repo, err = NewMapRepository(config.StorageConfig{Type: "redis", RedisURL: "localhost:6379"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &redisstore.Store{}, repo)

	_, err = NewMapRepository(config.StorageConfig{Type: "redis", RedisURL: "redis://host/notadb"}, nil)
	assert.Error(t, err)

	_, err = NewMapRepository(config.StorageConfig{Type: "s3"}, nil)
	assert.Error(t, err)
}

func TestNewMapReader(t *testing.T) {
	cfg := &config.Config{Storage: config.StorageConfig{Type: "file", MapPath: "data/affiliate-map.json"}}

	reader, err := NewMapReader(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &storage.AffiliateMapRepository{}, reader)

	cfg.Decorator.MapURL = "https://prylval.se/data/affiliate-map.json"
	reader, err = NewMapReader(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &mapclient.Client{}, reader)
}
