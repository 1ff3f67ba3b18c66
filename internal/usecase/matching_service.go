package usecase

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/prylval/affiliates/internal/domain"
	"github.com/prylval/affiliates/internal/normalize"
)

// Matched-on label prefixes, one per stage.
const (
	StageExact       = "exact"
	StageContains    = "contains"
	StageLevenshtein = "levenshtein"
)

const (
	defaultMinFuzzyKeyLength = 8 // Shorter keys produce too many false substrings
	defaultMaxEditDistance   = 2
)

// MatchConfig holds configuration for the matching service
type MatchConfig struct {
	MinFuzzyKeyLength int
	MaxEditDistance   int
	Logger            zerolog.Logger
}

// MatchingService finds the best feed offer for an editorial product name
type MatchingService struct {
	minFuzzyKeyLength int
	maxEditDistance   int
	logger            zerolog.Logger
}

// NewMatchingService creates a new matching service with the given configuration
func NewMatchingService(config MatchConfig) *MatchingService {
	minLen := config.MinFuzzyKeyLength
	if minLen <= 0 {
		minLen = defaultMinFuzzyKeyLength
	}

	maxDist := config.MaxEditDistance
	if maxDist <= 0 {
		maxDist = defaultMaxEditDistance
	}

	return &MatchingService{
		minFuzzyKeyLength: minLen,
		maxEditDistance:   maxDist,
		logger:            config.Logger,
	}
}

// KeyIndex holds the expanded keys of every candidate so a whole catalog can be
// matched against one pool without re-expanding candidate names per product.
type KeyIndex struct {
	offers []domain.FeedOffer
	keys   [][]string
	exact  map[string][]int // key -> candidate positions, ascending
}

// NewKeyIndex expands the keys of every offer, preserving offer order.
func NewKeyIndex(offers []domain.FeedOffer) *KeyIndex {
	idx := &KeyIndex{
		offers: offers,
		keys:   make([][]string, len(offers)),
		exact:  make(map[string][]int),
	}
	for i, offer := range offers {
		keys := normalize.ExpandKeys(offer.Name)
		idx.keys[i] = keys
		for _, k := range keys {
			idx.exact[k] = append(idx.exact[k], i)
		}
	}
	return idx
}

// Len returns the number of indexed candidates.
func (idx *KeyIndex) Len() int {
	return len(idx.offers)
}

// FindBestMatch matches productName against candidates. It is a convenience
// wrapper around Match for one-off lookups.
func (s *MatchingService) FindBestMatch(
	ctx context.Context,
	productName string,
	candidates []domain.FeedOffer,
) (*domain.MatchResult, error) {
	return s.Match(ctx, productName, NewKeyIndex(candidates))
}

// Match runs the staged match of productName against the indexed candidates:
//
//  1. exact: any expanded key equal on both sides, confidence 1.0
//  2. contains: one key is a substring of the other, confidence shorter/longer
//  3. levenshtein: edit distance within the limit, globally smallest wins,
//     confidence 1 - distance/longer
//
// The first stage that produces a result wins. Within the exact and contains
// stages the earliest candidate wins, so feed order decides ties.
// Returns domain.ErrNoMatch when no stage matches.
func (s *MatchingService) Match(
	ctx context.Context,
	productName string,
	idx *KeyIndex,
) (*domain.MatchResult, error) {
	if strings.TrimSpace(productName) == "" {
		return nil, domain.ErrInvalidRequest
	}

	productKeys := normalize.ExpandKeys(productName)
	if len(productKeys) == 0 || idx == nil || idx.Len() == 0 {
		return nil, domain.ErrNoMatch
	}

	if result := s.matchExact(productKeys, idx); result != nil {
		s.logMatch(productName, result)
		return result, nil
	}

	result, err := s.matchContains(ctx, productKeys, idx)
	if err != nil {
		return nil, err
	}
	if result != nil {
		s.logMatch(productName, result)
		return result, nil
	}

	result, err = s.matchLevenshtein(ctx, productKeys, idx)
	if err != nil {
		return nil, err
	}
	if result != nil {
		s.logMatch(productName, result)
		return result, nil
	}

	s.logger.Debug().Str("product", productName).Strs("keys", productKeys).Msg("no match")
	return nil, domain.ErrNoMatch
}

// matchExact returns the earliest candidate sharing any key with the product.
// The label names the first product key (in expansion order) that hit it.
func (s *MatchingService) matchExact(productKeys []string, idx *KeyIndex) *domain.MatchResult {
	best := -1
	label := ""
	for _, pk := range productKeys {
		positions := idx.exact[pk]
		if len(positions) == 0 {
			continue
		}
		if best == -1 || positions[0] < best {
			best = positions[0]
			label = pk
		}
	}
	if best == -1 {
		return nil
	}
	return &domain.MatchResult{
		Candidate:  idx.offers[best],
		MatchedOn:  fmt.Sprintf("%s:%s", StageExact, label),
		Confidence: 1.0,
	}
}

// matchContains returns the first containment hit in candidate order.
func (s *MatchingService) matchContains(ctx context.Context, productKeys []string, idx *KeyIndex) (*domain.MatchResult, error) {
	for i, candidateKeys := range idx.keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, pk := range productKeys {
			pl := utf8.RuneCountInString(pk)
			if pl < s.minFuzzyKeyLength {
				continue
			}
			for _, ck := range candidateKeys {
				cl := utf8.RuneCountInString(ck)
				if cl < s.minFuzzyKeyLength {
					continue
				}
				if !strings.Contains(pk, ck) && !strings.Contains(ck, pk) {
					continue
				}
				return &domain.MatchResult{
					Candidate:  idx.offers[i],
					MatchedOn:  fmt.Sprintf("%s:%s", StageContains, ck),
					Confidence: float64(min(pl, cl)) / float64(max(pl, cl)),
				}, nil
			}
		}
	}
	return nil, nil
}

// matchLevenshtein keeps the pair with the globally smallest distance; the
// first pair found at that distance wins.
func (s *MatchingService) matchLevenshtein(ctx context.Context, productKeys []string, idx *KeyIndex) (*domain.MatchResult, error) {
	var best *domain.MatchResult
	bestDistance := s.maxEditDistance + 1

	for i, candidateKeys := range idx.keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, pk := range productKeys {
			pl := utf8.RuneCountInString(pk)
			if pl < s.minFuzzyKeyLength {
				continue
			}
			for _, ck := range candidateKeys {
				cl := utf8.RuneCountInString(ck)
				if cl < s.minFuzzyKeyLength {
					continue
				}
				// Distance is at least the length difference.
				if abs(pl-cl) >= bestDistance {
					continue
				}
				distance := levenshteinDistance(pk, ck)
				if distance < bestDistance {
					bestDistance = distance
					best = &domain.MatchResult{
						Candidate:  idx.offers[i],
						MatchedOn:  fmt.Sprintf("%s:%s", StageLevenshtein, ck),
						Confidence: 1 - float64(distance)/float64(max(pl, cl)),
					}
				}
			}
		}
	}
	return best, nil
}

func (s *MatchingService) logMatch(productName string, result *domain.MatchResult) {
	s.logger.Debug().
		Str("product", productName).
		Str("offer", result.Candidate.Name).
		Str("merchant", result.Candidate.Merchant).
		Str("matched_on", result.MatchedOn).
		Float64("confidence", result.Confidence).
		Msg("match")
}

// levenshteinDistance calculates the edit distance between two strings
func levenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return utf8.RuneCountInString(s2)
	}
	if len(s2) == 0 {
		return utf8.RuneCountInString(s1)
	}

	r1 := []rune(s1)
	r2 := []rune(s2)
	m := len(r1)
	n := len(r2)

	// Use two rows instead of full matrix for space efficiency
	prev := make([]int, n+1)
	curr := make([]int, n+1)

	for j := 0; j <= n; j++ {
		prev[j] = j
	}

	for i := 1; i <= m; i++ {
		curr[0] = i
		for j := 1; j <= n; j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[n]
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
