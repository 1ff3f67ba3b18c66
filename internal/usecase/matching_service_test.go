package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prylval/affiliates/internal/domain"
)

func offer(name, merchant string, priority int) domain.FeedOffer {
	return domain.FeedOffer{
		Name:        name,
		ImageURL:    "https://img.example.com/" + strings.ReplaceAll(name, " ", "-") + ".jpg",
		TrackingURL: "https://go.example.com/t?p=" + strings.ReplaceAll(name, " ", "+"),
		Merchant:    merchant,
		Priority:    priority,
		SourceID:    name,
	}
}

func TestNewMatchingService(t *testing.T) {
	t.Run("uses defaults when zero", func(t *testing.T) {
		svc := NewMatchingService(MatchConfig{})
		if svc.minFuzzyKeyLength != 8 {
			t.Errorf("minFuzzyKeyLength = %d, want 8 (default)", svc.minFuzzyKeyLength)
		}
		if svc.maxEditDistance != 2 {
			t.Errorf("maxEditDistance = %d, want 2 (default)", svc.maxEditDistance)
		}
	})

	t.Run("keeps provided values", func(t *testing.T) {
		svc := NewMatchingService(MatchConfig{MinFuzzyKeyLength: 10, MaxEditDistance: 1})
		if svc.minFuzzyKeyLength != 10 || svc.maxEditDistance != 1 {
			t.Errorf("got (%d, %d), want (10, 1)", svc.minFuzzyKeyLength, svc.maxEditDistance)
		}
	})
}

func TestFindBestMatch(t *testing.T) {
	svc := NewMatchingService(MatchConfig{})
	ctx := context.Background()

	t.Run("returns error for empty product name", func(t *testing.T) {
		_, err := svc.FindBestMatch(ctx, "  ", []domain.FeedOffer{offer("Kindle", "a", 1)})
		if !errors.Is(err, domain.ErrInvalidRequest) {
			t.Errorf("error = %v, want ErrInvalidRequest", err)
		}
	})

	t.Run("returns no match for empty candidate list", func(t *testing.T) {
		_, err := svc.FindBestMatch(ctx, "Kindle Paperwhite", nil)
		if !errors.Is(err, domain.ErrNoMatch) {
			t.Errorf("error = %v, want ErrNoMatch", err)
		}
	})

	t.Run("exact match on collapsed model number", func(t *testing.T) {
		candidates := []domain.FeedOffer{
			offer("Samsung Galaxy S24", "a", 1),
			offer("iPhone15 Pro", "a", 1),
		}

		result, err := svc.FindBestMatch(ctx, "iPhone 15 Pro (2023)", candidates)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Candidate.Name != "iPhone15 Pro" {
			t.Errorf("Candidate = %q, want iPhone15 Pro", result.Candidate.Name)
		}
		if result.Confidence != 1.0 {
			t.Errorf("Confidence = %v, want 1.0", result.Confidence)
		}
		if result.MatchedOn != "exact:iphone15pro" {
			t.Errorf("MatchedOn = %q, want exact:iphone15pro", result.MatchedOn)
		}
	})

	t.Run("exact match prefers earliest candidate", func(t *testing.T) {
		candidates := []domain.FeedOffer{
			offer("Kindle Paperwhite", "first", 2),
			offer("Kindle Paperwhite", "second", 1),
		}

		result, err := svc.FindBestMatch(ctx, "Kindle Paperwhite", candidates)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Candidate.Merchant != "first" {
			t.Errorf("Merchant = %q, want first", result.Candidate.Merchant)
		}
	})

	t.Run("exact stage wins over earlier fuzzy candidate", func(t *testing.T) {
		candidates := []domain.FeedOffer{
			offer("Kindle Paperwhite Signature", "fuzzy", 1),
			offer("Kindle Paperwhite", "exact", 1),
		}

		result, err := svc.FindBestMatch(ctx, "Kindle Paperwhite", candidates)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Candidate.Merchant != "exact" {
			t.Errorf("Merchant = %q, want exact", result.Candidate.Merchant)
		}
	})

	t.Run("containment match", func(t *testing.T) {
		candidates := []domain.FeedOffer{offer("Sony WH-1000XM5", "a", 1)}

		result, err := svc.FindBestMatch(ctx, "Sony WH-1000XM5 Wireless", candidates)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.MatchedOn != "contains:sony wh-1000xm5" {
			t.Errorf("MatchedOn = %q, want contains:sony wh-1000xm5", result.MatchedOn)
		}
		want := 15.0 / 24.0
		if result.Confidence != want {
			t.Errorf("Confidence = %v, want %v", result.Confidence, want)
		}
	})

	t.Run("containment takes first candidate, not best ratio", func(t *testing.T) {
		weaker := offer("Sony WH-1000XM5", "a", 1)
		stronger := offer("Sony WH-1000XM5 Wireless Black", "b", 1)
		product := "Sony WH-1000XM5 Wireless"

		result, err := svc.FindBestMatch(ctx, product, []domain.FeedOffer{weaker, stronger})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Candidate.Merchant != "a" {
			t.Errorf("Merchant = %q, want a (earlier candidate)", result.Candidate.Merchant)
		}
		if want := 15.0 / 24.0; result.Confidence != want {
			t.Errorf("Confidence = %v, want %v", result.Confidence, want)
		}

		result, err = svc.FindBestMatch(ctx, product, []domain.FeedOffer{stronger, weaker})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Candidate.Merchant != "b" {
			t.Errorf("Merchant = %q, want b when listed first", result.Candidate.Merchant)
		}
		if want := 24.0 / 30.0; result.Confidence != want {
			t.Errorf("Confidence = %v, want %v", result.Confidence, want)
		}
	})

	t.Run("levenshtein match", func(t *testing.T) {
		candidates := []domain.FeedOffer{offer("Garmin Forerunnr 265", "a", 1)}

		result, err := svc.FindBestMatch(ctx, "Garmin Forerunner 265", candidates)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.MatchedOn != "levenshtein:garmin forerunnr 265" {
			t.Errorf("MatchedOn = %q, want levenshtein:garmin forerunnr 265", result.MatchedOn)
		}
		want := 1 - 1.0/21.0
		if result.Confidence != want {
			t.Errorf("Confidence = %v, want %v", result.Confidence, want)
		}
	})

	t.Run("levenshtein keeps globally smallest distance", func(t *testing.T) {
		candidates := []domain.FeedOffer{
			offer("Garmin Forerunr 265", "distance-two", 2),
			offer("Garmin Forerunnr 265", "distance-one", 1),
		}

		result, err := svc.FindBestMatch(ctx, "Garmin Forerunner 265", candidates)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Candidate.Merchant != "distance-one" {
			t.Errorf("Merchant = %q, want distance-one", result.Candidate.Merchant)
		}
	})

	t.Run("rejects edit distance above limit", func(t *testing.T) {
		candidates := []domain.FeedOffer{offer("Logitech MX Master 3", "a", 1)}

		result, err := svc.FindBestMatch(ctx, "Logitech MX Master Three", candidates)
		if !errors.Is(err, domain.ErrNoMatch) {
			t.Errorf("error = %v, want ErrNoMatch (result %+v)", err, result)
		}
	})

	t.Run("short product key never fuzzy matches", func(t *testing.T) {
		candidates := []domain.FeedOffer{
			offer("Samsung TV 55", "a", 1),
			offer("TV", "a", 1),
			offer("TVs", "a", 1),
		}

		_, err := svc.FindBestMatch(ctx, "TV", candidates)
		if !errors.Is(err, domain.ErrNoMatch) {
			t.Errorf("error = %v, want ErrNoMatch", err)
		}
	})

	t.Run("keys under fuzzy length skip containment", func(t *testing.T) {
		candidates := []domain.FeedOffer{offer("Sonos Era 100", "a", 1)}

		_, err := svc.FindBestMatch(ctx, "Sonos", candidates)
		if !errors.Is(err, domain.ErrNoMatch) {
			t.Errorf("error = %v, want ErrNoMatch", err)
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		candidates := []domain.FeedOffer{offer("Garmin Forerunnr 265", "a", 1)}
		_, err := svc.FindBestMatch(ctx, "Garmin Forerunner 265", candidates)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
	})
}

func TestMatchConfidenceRange(t *testing.T) {
	svc := NewMatchingService(MatchConfig{})
	ctx := context.Background()

	tests := []struct {
		product   string
		candidate string
		stage     string
	}{
		{"Kindle Paperwhite", "Kindle Paperwhite (2024)", StageExact},
		{"Sony WH-1000XM5 Wireless", "Sony WH-1000XM5", StageContains},
		{"Apple Watch Ultra", "Apple Watch Ultra 2 Titanium", StageContains},
		{"Garmin Forerunner 265", "Garmin Forerunnr 265", StageLevenshtein},
		{"Philips Hue Bridge", "Philips Hue Brigde", StageLevenshtein},
	}

	for _, tt := range tests {
		t.Run(tt.product, func(t *testing.T) {
			result, err := svc.FindBestMatch(ctx, tt.product, []domain.FeedOffer{offer(tt.candidate, "a", 1)})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.HasPrefix(result.MatchedOn, tt.stage+":") {
				t.Errorf("MatchedOn = %q, want stage %s", result.MatchedOn, tt.stage)
			}
			if tt.stage == StageExact {
				if result.Confidence != 1.0 {
					t.Errorf("Confidence = %v, want 1.0", result.Confidence)
				}
				return
			}
			if result.Confidence <= 0 || result.Confidence >= 1 {
				t.Errorf("Confidence = %v, want in (0, 1)", result.Confidence)
			}
		})
	}
}

func TestKeyIndexReuse(t *testing.T) {
	svc := NewMatchingService(MatchConfig{})
	idx := NewKeyIndex([]domain.FeedOffer{
		offer("Kindle Paperwhite", "a", 1),
		offer("iPhone15 Pro", "b", 1),
	})

	for _, name := range []string{"Kindle Paperwhite", "iPhone 15 Pro"} {
		if _, err := svc.Match(context.Background(), name, idx); err != nil {
			t.Errorf("Match(%q) error = %v", name, err)
		}
	}
}

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
		{"garmin forerunner", "garmin forerunnr", 1},
		{"logitech mx master three", "logitech mx master 3", 5},
		{"väska", "vaska", 1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"/"+tt.b, func(t *testing.T) {
			if got := levenshteinDistance(tt.a, tt.b); got != tt.want {
				t.Errorf("levenshteinDistance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}
