// Package decorator serves the persisted affiliate map at runtime: it keeps a
// cached copy, resolves editorial product names against it, and rewrites
// product cards in HTML pages with affiliate images and links.
package decorator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"
	"golang.org/x/sync/singleflight"

	"github.com/prylval/affiliates/internal/domain"
	"github.com/prylval/affiliates/internal/infrastructure/cache"
	"github.com/prylval/affiliates/internal/normalize"
)

// Stats summarizes one DecorateHTML call.
type Stats struct {
	Cards     int `json:"cards"`
	Decorated int `json:"decorated"`
}

// Decorator resolves product names to affiliate entries
type Decorator struct {
	reader       domain.AffiliateMapReader
	cache        *cache.MapCache
	group        singleflight.Group
	fetchTimeout time.Duration
	logger       zerolog.Logger
}

// DefaultFetchTimeout bounds one shared map refresh.
const DefaultFetchTimeout = 30 * time.Second

// New creates a decorator reading through reader and caching in c
func New(reader domain.AffiliateMapReader, c *cache.MapCache, logger zerolog.Logger) *Decorator {
	return &Decorator{
		reader:       reader,
		cache:        c,
		fetchTimeout: DefaultFetchTimeout,
		logger:       logger,
	}
}

// Load returns the displayable affiliate map. A fresh cached map is returned
// as is; otherwise the map is refetched. When the refetch fails a stale map
// is served if one exists.
func (d *Decorator) Load(ctx context.Context) (domain.AffiliateMap, error) {
	if d.cache.IsValid() {
		m, _ := d.cache.Get()
		return m, nil
	}

	ch := d.group.DoChan("map", func() (any, error) {
		// The fetch is shared by every waiting caller, so it must not end
		// when the first caller goes away.
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.fetchTimeout)
		defer cancel()

		m, err := d.reader.Load(fetchCtx)
		if err != nil {
			return nil, err
		}
		filtered := m.Displayable()
		d.cache.Set(filtered)
		d.logger.Info().Int("entries", len(filtered)).Int("skipped", m.Len()-len(filtered)).Msg("affiliate map cached")
		return filtered, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}

	v, err := res.Val, res.Err
	if err != nil {
		if stale, ok := d.cache.Get(); ok {
			d.logger.Warn().Err(err).Time("fetched_at", d.cache.FetchedAt()).Msg("serving stale affiliate map")
			return stale, nil
		}
		return nil, err
	}
	return v.(domain.AffiliateMap), nil
}

// Lookup finds the entry for an editorial product name. The name is
// normalized exactly as the matcher normalized catalog names. A miss, or a
// map that cannot be loaded, reports false.
func (d *Decorator) Lookup(ctx context.Context, name string) (*domain.AffiliateEntry, bool) {
	m, err := d.Load(ctx)
	if err != nil {
		d.logger.Warn().Err(err).Msg("affiliate map unavailable")
		return nil, false
	}
	return lookup(m, name)
}

func lookup(m domain.AffiliateMap, name string) (*domain.AffiliateEntry, bool) {
	key := normalize.Name(name)
	if key == "" || domain.IsMetadataKey(key) {
		return nil, false
	}
	entry, ok := m[key]
	if !ok {
		return nil, false
	}
	return &entry, true
}

// DecorateHTML parses an HTML document from r, decorates every product card
// with a matching affiliate entry, and renders the result to w.
func (d *Decorator) DecorateHTML(ctx context.Context, r io.Reader, w io.Writer) (Stats, error) {
	m, err := d.Load(ctx)
	if err != nil {
		return Stats{}, err
	}

	doc, err := html.Parse(r)
	if err != nil {
		return Stats{}, fmt.Errorf("%w: parse html: %w", domain.ErrInvalidRequest, err)
	}

	var stats Stats
	for _, card := range findAll(doc, isProductCard) {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Cards++

		name, _ := attr(card, attrProduct)
		entry, ok := lookup(m, name)
		if !ok {
			d.logger.Debug().Str("product", name).Msg("no affiliate entry")
			continue
		}

		d.logger.Debug().Str("product", name).Str("merchant", entry.Merchant).Str("matched_on", entry.MatchedOn).Msg("decorating card")
		decorateCard(card, name, *entry)
		stats.Decorated++
	}

	if err := html.Render(w, doc); err != nil {
		return stats, fmt.Errorf("render html: %w", err)
	}
	return stats, nil
}

// IsUnavailable reports whether err means no affiliate map could be loaded.
func IsUnavailable(err error) bool {
	return errors.Is(err, domain.ErrMapUnavailable) || errors.Is(err, domain.ErrMalformedMap)
}
