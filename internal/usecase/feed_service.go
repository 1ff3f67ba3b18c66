package usecase

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/prylval/affiliates/internal/domain"
)

// DefaultTrustedPrefix is the redirect domain prefix tracking links must start with.
const DefaultTrustedPrefix = "https://go."

// FeedSource describes one configured merchant feed.
type FeedSource struct {
	Name     string
	URL      string
	Merchant string
	Priority int
}

// FeedServiceConfig holds configuration for the feed service
type FeedServiceConfig struct {
	TrustedPrefix string
	Logger        zerolog.Logger
}

// FeedService retrieves all configured feeds and keeps the eligible offers.
type FeedService struct {
	fetcher       domain.FeedFetcher
	trustedPrefix string
	logger        zerolog.Logger
}

// NewFeedService creates a feed service on top of fetcher.
func NewFeedService(fetcher domain.FeedFetcher, config FeedServiceConfig) *FeedService {
	prefix := config.TrustedPrefix
	if prefix == "" {
		prefix = DefaultTrustedPrefix
	}
	return &FeedService{
		fetcher:       fetcher,
		trustedPrefix: prefix,
		logger:        config.Logger,
	}
}

// FetchAll fetches every feed concurrently and waits for all of them. A feed
// that fails is logged and contributes no offers; it never affects the others.
// The result has one entry per source, in source order.
func (s *FeedService) FetchAll(ctx context.Context, sources []FeedSource) []domain.Feed {
	feeds := make([]domain.Feed, len(sources))

	var g errgroup.Group
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			feeds[i] = s.fetchOne(ctx, src)
			return nil
		})
	}
	_ = g.Wait()

	return feeds
}

func (s *FeedService) fetchOne(ctx context.Context, src FeedSource) domain.Feed {
	feed := domain.Feed{
		Name:     src.Name,
		Merchant: src.Merchant,
		Priority: src.Priority,
	}
	if feed.Merchant == "" {
		feed.Merchant = src.Name
	}

	records, err := s.fetcher.Fetch(ctx, src.URL)
	if err != nil {
		s.logger.Warn().Err(err).Str("feed", src.Name).Msg("feed unavailable, continuing without it")
		return feed
	}

	feed.Offers = s.eligibleOffers(records)
	s.logger.Info().
		Str("feed", src.Name).
		Int("valid", len(feed.Offers)).
		Int("total", len(records)).
		Msg("feed loaded")
	return feed
}

// eligibleOffers keeps records with an image and a trusted tracking link.
func (s *FeedService) eligibleOffers(records []domain.RawOffer) []domain.FeedOffer {
	offers := make([]domain.FeedOffer, 0, len(records))
	for _, r := range records {
		if !r.IsEligible(s.trustedPrefix) {
			continue
		}
		offers = append(offers, domain.FeedOffer{
			Name:        r.DisplayName(),
			ImageURL:    r.ImageURL,
			TrackingURL: r.TrackingURL,
			SourceID:    r.SourceID(),
		})
	}
	return offers
}
