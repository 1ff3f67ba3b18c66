package usecase

import (
	"testing"

	"github.com/prylval/affiliates/internal/domain"
)

func TestAggregateFeeds(t *testing.T) {
	t.Run("orders by priority and tags offers", func(t *testing.T) {
		feeds := []domain.Feed{
			feed("low", 1, offer("A", "", 0), offer("B", "", 0)),
			feed("high", 3, offer("C", "", 0)),
			feed("mid", 2, offer("D", "", 0)),
		}

		pool := AggregateFeeds(feeds)

		wantNames := []string{"C", "D", "A", "B"}
		wantMerchants := []string{"high", "mid", "low", "low"}
		if len(pool) != len(wantNames) {
			t.Fatalf("len(pool) = %d, want %d", len(pool), len(wantNames))
		}
		for i := range pool {
			if pool[i].Name != wantNames[i] || pool[i].Merchant != wantMerchants[i] {
				t.Errorf("pool[%d] = %s/%s, want %s/%s", i, pool[i].Name, pool[i].Merchant, wantNames[i], wantMerchants[i])
			}
		}
		if pool[0].Priority != 3 || pool[3].Priority != 1 {
			t.Errorf("priorities not tagged: %d, %d", pool[0].Priority, pool[3].Priority)
		}
	})

	t.Run("equal priorities keep configured order", func(t *testing.T) {
		feeds := []domain.Feed{
			feed("first", 1, offer("A", "", 0)),
			feed("second", 1, offer("B", "", 0)),
		}

		pool := AggregateFeeds(feeds)
		if pool[0].Merchant != "first" || pool[1].Merchant != "second" {
			t.Errorf("order = %s, %s, want first, second", pool[0].Merchant, pool[1].Merchant)
		}
	})

	t.Run("drops empty feeds", func(t *testing.T) {
		feeds := []domain.Feed{
			feed("empty", 5),
			feed("full", 1, offer("A", "", 0)),
		}

		pool := AggregateFeeds(feeds)
		if len(pool) != 1 || pool[0].Merchant != "full" {
			t.Errorf("pool = %+v, want only the full feed", pool)
		}
	})

	t.Run("does not mutate input offers", func(t *testing.T) {
		feeds := []domain.Feed{feed("m", 2, offer("A", "", 0))}
		AggregateFeeds(feeds)
		if feeds[0].Offers[0].Merchant != "" {
			t.Errorf("input offer merchant = %q, want untouched", feeds[0].Offers[0].Merchant)
		}
	})

	t.Run("nil input", func(t *testing.T) {
		if pool := AggregateFeeds(nil); len(pool) != 0 {
			t.Errorf("pool = %v, want empty", pool)
		}
	})
}
