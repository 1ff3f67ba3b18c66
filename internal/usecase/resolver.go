package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/prylval/affiliates/internal/domain"
	"github.com/prylval/affiliates/internal/normalize"
)

const defaultMinConfidence = 0.7

// Matcher finds the best indexed candidate for one product name.
// *MatchingService is the production implementation.
type Matcher interface {
	Match(ctx context.Context, productName string, idx *KeyIndex) (*domain.MatchResult, error)
}

// ResolverConfig holds configuration for the resolver
type ResolverConfig struct {
	// MinConfidence is exclusive: a match must score above it to be used.
	MinConfidence float64
	Policy        OverwritePolicy
	Clock         domain.Clock
	Logger        zerolog.Logger
}

// Resolver maps every editorial product to its best offer and merges the
// result with the previously persisted affiliate map.
type Resolver struct {
	matcher       Matcher
	minConfidence float64
	policy        OverwritePolicy
	clock         domain.Clock
	logger        zerolog.Logger
}

// NewResolver creates a resolver around matcher. Without an explicit policy it
// uses PriorityThenConfidence.
func NewResolver(matcher Matcher, config ResolverConfig) *Resolver {
	minConfidence := config.MinConfidence
	if minConfidence <= 0 {
		minConfidence = defaultMinConfidence
	}

	policy := config.Policy
	if policy == nil {
		policy = PriorityThenConfidence{}
	}

	clock := config.Clock
	if clock == nil {
		clock = domain.SystemClock
	}

	return &Resolver{
		matcher:       matcher,
		minConfidence: minConfidence,
		policy:        policy,
		clock:         clock,
		logger:        config.Logger,
	}
}

// decision is the outcome for one product.
type decision struct {
	entry   domain.AffiliateEntry
	placed  bool
	warning string
}

// Resolve matches products (in catalog order) against the pooled feeds.
//
// A match above the confidence threshold is written when there is no existing
// entry or the overwrite policy allows it; otherwise the existing entry is kept
// verbatim. Without a usable match an existing entry is carried forward, since
// feeds are assumed to be incomplete rather than authoritative. Entries of
// products no longer in the catalog are not carried into the result.
func (r *Resolver) Resolve(
	ctx context.Context,
	products []domain.EditorialProduct,
	feeds []domain.Feed,
	existing domain.AffiliateMap,
) (*domain.Resolution, error) {
	pool := AggregateFeeds(feeds)
	idx := NewKeyIndex(pool)

	r.logger.Info().
		Int("products", len(products)).
		Int("candidates", idx.Len()).
		Int("existing", existing.Len()).
		Str("policy", r.policy.Name()).
		Msg("resolving affiliate matches")

	resolution := &domain.Resolution{
		Matches:  make(domain.AffiliateMap),
		Coverage: domain.NewCoverage(),
	}

	for _, product := range products {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resolution.Coverage.AddProduct(product.Category)

		key := product.Key
		if key == "" {
			key = normalize.Name(product.Name)
		}
		if key == "" || domain.IsMetadataKey(key) {
			r.logger.Warn().Str("product", product.Name).Msg("product name normalizes to an unusable key")
			continue
		}

		d, err := r.resolveProduct(ctx, product, key, idx, existing)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			r.logger.Error().Err(err).Str("product", product.Name).Msg("matching failed, keeping previous entry")
			d = carryForward(existing, key)
		}

		if !d.placed {
			continue
		}
		resolution.Matches[key] = d.entry
		resolution.Coverage.AddMatch(product.Category, d.entry.Merchant)
		if d.warning != "" {
			resolution.Warnings = append(resolution.Warnings, d.warning)
		}
	}

	overall := resolution.Coverage.Overall()
	r.logger.Info().
		Int("matched", overall.Matched).
		Int("total", overall.Total).
		Int("warnings", len(resolution.Warnings)).
		Msg("resolution complete")

	return resolution, nil
}

// resolveProduct applies the update policy for one product. A panic while
// handling a malformed candidate is turned into an error so the batch goes on.
func (r *Resolver) resolveProduct(
	ctx context.Context,
	product domain.EditorialProduct,
	key string,
	idx *KeyIndex,
	existing domain.AffiliateMap,
) (d decision, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic while matching %q: %v", product.Name, rec)
		}
	}()

	match, err := r.matcher.Match(ctx, product.Name, idx)
	if err != nil && !errors.Is(err, domain.ErrNoMatch) && !errors.Is(err, domain.ErrInvalidRequest) {
		return decision{}, err
	}

	previous, hasPrevious := existing[key]

	if match == nil || match.Confidence <= r.minConfidence {
		return carryForward(existing, key), nil
	}

	if hasPrevious && !r.policy.ShouldOverwrite(previous, match) {
		return decision{entry: previous, placed: true}, nil
	}

	d = decision{
		entry: domain.AffiliateEntry{
			Merchant:         match.Candidate.Merchant,
			TrackingURL:      match.Candidate.TrackingURL,
			ImageURL:         match.Candidate.ImageURL,
			SourceProductID:  match.Candidate.SourceID,
			MatchedOn:        match.MatchedOn,
			Confidence:       match.Confidence,
			MerchantPriority: match.Candidate.Priority,
			UpdatedAt:        r.clock.Now().UTC(),
		},
		placed: true,
	}

	if hasPrevious && previous.Merchant != match.Candidate.Merchant {
		reason := "higher confidence"
		if match.Candidate.Priority > previous.MerchantPriority {
			reason = "higher priority"
		}
		d.warning = fmt.Sprintf("%s: replaced %s with %s (%s)",
			product.Name, previous.Merchant, match.Candidate.Merchant, reason)
	}

	return d, nil
}

func carryForward(existing domain.AffiliateMap, key string) decision {
	previous, ok := existing[key]
	if !ok {
		return decision{}
	}
	return decision{entry: previous, placed: true}
}
