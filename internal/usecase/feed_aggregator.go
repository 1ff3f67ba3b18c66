package usecase

import (
	"sort"

	"github.com/prylval/affiliates/internal/domain"
)

// AggregateFeeds flattens feeds into one candidate pool. Empty feeds are
// dropped, the rest are ordered by priority (highest first, stable for equal
// priorities) and every offer is tagged with its feed's merchant and priority.
// Matching stages that stop at the first hit rely on this order.
func AggregateFeeds(feeds []domain.Feed) []domain.FeedOffer {
	nonEmpty := make([]domain.Feed, 0, len(feeds))
	total := 0
	for _, feed := range feeds {
		if len(feed.Offers) == 0 {
			continue
		}
		nonEmpty = append(nonEmpty, feed)
		total += len(feed.Offers)
	}

	sort.SliceStable(nonEmpty, func(i, j int) bool {
		return nonEmpty[i].Priority > nonEmpty[j].Priority
	})

	pool := make([]domain.FeedOffer, 0, total)
	for _, feed := range nonEmpty {
		for _, offer := range feed.Offers {
			offer.Merchant = feed.Merchant
			offer.Priority = feed.Priority
			pool = append(pool, offer)
		}
	}
	return pool
}
