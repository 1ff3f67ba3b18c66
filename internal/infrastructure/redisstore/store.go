package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/prylval/affiliates/internal/domain"
)

// DefaultKey is the Redis key the affiliate map document is stored under.
const DefaultKey = "affiliates:map"

// commander is the subset of *redis.Client the store uses
type commander interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// Store keeps the affiliate map document in a single Redis string.
type Store struct {
	client commander
	key    string
	clock  domain.Clock
}

// Connect initializes a Redis client from URL or host:port input.
func Connect(redisURL string) (*redis.Client, error) {
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: redisURL}), nil
}

// New creates a store on client. Empty key means DefaultKey, nil clock the
// wall clock.
func New(client *redis.Client, key string, clock domain.Clock) *Store {
	return newStore(client, key, clock)
}

func newStore(client commander, key string, clock domain.Clock) *Store {
	if key == "" {
		key = DefaultKey
	}
	if clock == nil {
		clock = domain.SystemClock
	}
	return &Store{client: client, key: key, clock: clock}
}

// Load reads the document. A missing key is an empty map; a failed GET wraps
// domain.ErrMapUnavailable.
func (s *Store) Load(ctx context.Context) (domain.AffiliateMap, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.AffiliateMap{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: redis get %s: %w", domain.ErrMapUnavailable, s.key, err)
	}

	var doc domain.MapDocument
	if err := doc.UnmarshalJSON(raw); err != nil {
		return nil, err
	}
	return doc.Entries, nil
}

// Save replaces the document with entries and fresh metadata. SET is atomic,
// so readers never see a partial document.
func (s *Store) Save(ctx context.Context, entries domain.AffiliateMap) error {
	raw, err := domain.NewMapDocument(entries, s.clock.Now()).MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode affiliate map: %w", err)
	}
	if err := s.client.Set(ctx, s.key, raw, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}
