package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/prylval/affiliates/internal/domain"
)

// mockFeedFetcher is a mock implementation of domain.FeedFetcher
type mockFeedFetcher struct {
	mu      sync.Mutex
	records map[string][]domain.RawOffer
	errors  map[string]error
	calls   []string
}

func (m *mockFeedFetcher) Fetch(ctx context.Context, url string) ([]domain.RawOffer, error) {
	m.mu.Lock()
	m.calls = append(m.calls, url)
	m.mu.Unlock()

	if err := m.errors[url]; err != nil {
		return nil, err
	}
	return m.records[url], nil
}

func TestFeedService_FetchAll(t *testing.T) {
	fetcher := &mockFeedFetcher{
		records: map[string][]domain.RawOffer{
			"https://feeds.example/a": {
				{Name: "Kindle Paperwhite", ImageURL: "https://i/1.jpg", TrackingURL: "https://go.adtr.example/1", ProductID: "p1"},
				{Title: "Kobo Clara", ImageURL: "https://i/2.jpg", TrackingURL: "https://go.adtr.example/2", ID: "p2"},
				{Name: "No image", TrackingURL: "https://go.adtr.example/3"},
				{Name: "Untrusted", ImageURL: "https://i/4.jpg", TrackingURL: "https://evil.example/4"},
				{Name: "No tracking", ImageURL: "https://i/5.jpg"},
			},
		},
		errors: map[string]error{
			"https://feeds.example/b": errors.New("connection refused"),
		},
	}

	svc := NewFeedService(fetcher, FeedServiceConfig{Logger: zerolog.Nop()})
	feeds := svc.FetchAll(context.Background(), []FeedSource{
		{Name: "computersalg", URL: "https://feeds.example/a", Merchant: "computersalg", Priority: 1},
		{Name: "valostore", URL: "https://feeds.example/b", Priority: 2},
	})

	if len(feeds) != 2 {
		t.Fatalf("len(feeds) = %d, want 2", len(feeds))
	}
	if len(fetcher.calls) != 2 {
		t.Errorf("fetch calls = %d, want 2", len(fetcher.calls))
	}

	a := feeds[0]
	if a.Merchant != "computersalg" || a.Priority != 1 {
		t.Errorf("feed a = %s/%d, want computersalg/1", a.Merchant, a.Priority)
	}
	if len(a.Offers) != 2 {
		t.Fatalf("eligible offers = %d, want 2", len(a.Offers))
	}
	if a.Offers[1].Name != "Kobo Clara" || a.Offers[1].SourceID != "p2" {
		t.Errorf("title/id fallback not applied: %+v", a.Offers[1])
	}

	b := feeds[1]
	if b.Merchant != "valostore" {
		t.Errorf("merchant defaults to feed name, got %q", b.Merchant)
	}
	if len(b.Offers) != 0 {
		t.Errorf("failed feed offers = %d, want 0", len(b.Offers))
	}
}

func TestFeedService_CustomTrustedPrefix(t *testing.T) {
	fetcher := &mockFeedFetcher{
		records: map[string][]domain.RawOffer{
			"u": {
				{Name: "A", ImageURL: "i", TrackingURL: "https://track.partner.example/a"},
				{Name: "B", ImageURL: "i", TrackingURL: "https://go.adtr.example/b"},
			},
		},
	}

	svc := NewFeedService(fetcher, FeedServiceConfig{TrustedPrefix: "https://track.partner.", Logger: zerolog.Nop()})
	feeds := svc.FetchAll(context.Background(), []FeedSource{{Name: "p", URL: "u"}})

	if len(feeds[0].Offers) != 1 || feeds[0].Offers[0].Name != "A" {
		t.Errorf("offers = %+v, want only A", feeds[0].Offers)
	}
}
