package domain

import (
	"context"
	"time"
)

// Clock abstracts time.Now so freshness and timestamps can be tested.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock is the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// FeedFetcher retrieves the raw records of one merchant feed.
type FeedFetcher interface {
	Fetch(ctx context.Context, url string) ([]RawOffer, error)
}

// CatalogRepository loads the editorial catalog.
type CatalogRepository interface {
	Load(ctx context.Context) ([]EditorialProduct, error)
}

// AffiliateMapReader loads the persisted affiliate map.
type AffiliateMapReader interface {
	Load(ctx context.Context) (AffiliateMap, error)
}

// AffiliateMapRepository loads and saves the persisted affiliate map.
type AffiliateMapRepository interface {
	AffiliateMapReader
	Save(ctx context.Context, entries AffiliateMap) error
}
