package domain

import (
	"bytes"
	"encoding/json"
	"strings"
)

// EditorialProduct is a curated catalog entry the site recommends,
// independent of any merchant.
type EditorialProduct struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Key      string `json:"key"` // Normalized name, used as the affiliate map key
}

// RawOffer is a single record as delivered by a merchant feed.
// Feeds disagree on field names, so both name/title and product_id/id are accepted.
type RawOffer struct {
	Name        string     `json:"name"`
	Title       string     `json:"title"`
	ImageURL    string     `json:"image_url"`
	TrackingURL string     `json:"tracking_url"`
	ProductID   FlexString `json:"product_id"`
	ID          FlexString `json:"id"`
}

// FlexString accepts a JSON string or number. Feeds are inconsistent about
// whether product ids are quoted.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// DisplayName returns name, falling back to title.
func (r RawOffer) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Title
}

// SourceID returns product_id, falling back to id.
func (r RawOffer) SourceID() string {
	if r.ProductID != "" {
		return string(r.ProductID)
	}
	return string(r.ID)
}

// IsEligible reports whether the record can be used as a match candidate:
// it needs an image and a tracking URL behind the trusted redirect prefix.
func (r RawOffer) IsEligible(trustedPrefix string) bool {
	return r.ImageURL != "" && r.TrackingURL != "" && strings.HasPrefix(r.TrackingURL, trustedPrefix)
}

// FeedOffer is a candidate offer tagged with the merchant and priority of the
// feed it came from.
type FeedOffer struct {
	Name        string `json:"name"`
	ImageURL    string `json:"image_url"`
	TrackingURL string `json:"tracking_url"`
	Merchant    string `json:"merchant"`
	Priority    int    `json:"priority"`
	SourceID    string `json:"source_id"`
}

// Feed is the retrieved offer list of one merchant feed.
type Feed struct {
	Name     string
	Merchant string
	Priority int
	Offers   []FeedOffer
}

// MatchResult represents the result of a product matching operation
type MatchResult struct {
	Candidate  FeedOffer `json:"candidate"`
	MatchedOn  string    `json:"matchedOn"`  // e.g. "exact:iphone15pro", "contains:...", "levenshtein:..."
	Confidence float64   `json:"confidence"` // (0, 1]
}
