package usecase

import (
	"fmt"

	"github.com/prylval/affiliates/internal/domain"
)

// Overwrite policy names accepted in configuration.
const (
	PolicyPriorityOrConfidence   = "priority_or_confidence"
	PolicyPriorityThenConfidence = "priority_then_confidence"
)

// OverwritePolicy decides whether a fresh match replaces a persisted entry.
type OverwritePolicy interface {
	Name() string
	ShouldOverwrite(existing domain.AffiliateEntry, match *domain.MatchResult) bool
}

// PriorityOrConfidence replaces the entry when the new merchant priority is
// higher or the new confidence is higher. A lower-priority merchant can win
// on confidence alone.
type PriorityOrConfidence struct{}

// Name implements OverwritePolicy.
func (PriorityOrConfidence) Name() string { return PolicyPriorityOrConfidence }

// ShouldOverwrite implements OverwritePolicy.
func (PriorityOrConfidence) ShouldOverwrite(existing domain.AffiliateEntry, match *domain.MatchResult) bool {
	return match.Candidate.Priority > existing.MerchantPriority ||
		match.Confidence > existing.Confidence
}

// PriorityThenConfidence only lets confidence decide between merchants of
// equal priority; a lower-priority merchant never displaces a higher one.
type PriorityThenConfidence struct{}

// Name implements OverwritePolicy.
func (PriorityThenConfidence) Name() string { return PolicyPriorityThenConfidence }

// ShouldOverwrite implements OverwritePolicy.
func (PriorityThenConfidence) ShouldOverwrite(existing domain.AffiliateEntry, match *domain.MatchResult) bool {
	if match.Candidate.Priority != existing.MerchantPriority {
		return match.Candidate.Priority > existing.MerchantPriority
	}
	return match.Confidence > existing.Confidence
}

// ParseOverwritePolicy maps a configuration value to a policy. An empty name
// selects PriorityThenConfidence.
func ParseOverwritePolicy(name string) (OverwritePolicy, error) {
	switch name {
	case PolicyPriorityOrConfidence:
		return PriorityOrConfidence{}, nil
	case "", PolicyPriorityThenConfidence:
		return PriorityThenConfidence{}, nil
	default:
		return nil, fmt.Errorf("unknown overwrite policy %q (want %s or %s)",
			name, PolicyPriorityOrConfidence, PolicyPriorityThenConfidence)
	}
}
