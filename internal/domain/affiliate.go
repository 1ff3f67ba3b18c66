package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Reserved metadata keys of the persisted affiliate map document.
const (
	MetadataPrefix     = "_"
	MetaSchemaKey      = "_schema"
	MetaUpdatedAtKey   = "_updated_at"
	MetaDescriptionKey = "_description"

	SchemaVersion      = 1
	DefaultDescription = "Automatically generated affiliate mapping"
)

// IsMetadataKey reports whether key is reserved document metadata rather than
// a product entry.
func IsMetadataKey(key string) bool {
	return strings.HasPrefix(key, MetadataPrefix)
}

// AffiliateEntry is the offer persisted for one normalized editorial name.
type AffiliateEntry struct {
	Merchant         string    `json:"merchant"`
	TrackingURL      string    `json:"tracking_url"`
	ImageURL         string    `json:"image_url"`
	SourceProductID  string    `json:"source_product_id,omitempty"`
	MatchedOn        string    `json:"matched_on,omitempty"`
	Confidence       float64   `json:"confidence"`
	MerchantPriority int       `json:"merchant_priority"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// IsDisplayable reports whether the entry carries both links the decorator needs.
func (e AffiliateEntry) IsDisplayable() bool {
	return e.TrackingURL != "" && e.ImageURL != ""
}

// AffiliateMap maps normalized product name to its entry. It never holds
// metadata keys; those live on MapDocument.
type AffiliateMap map[string]AffiliateEntry

// Keys returns the product keys in sorted order, skipping anything that looks
// like metadata.
func (m AffiliateMap) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		if IsMetadataKey(k) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len counts product entries only.
func (m AffiliateMap) Len() int {
	return len(m.Keys())
}

// Displayable returns a copy holding only entries with both a tracking and an
// image URL.
func (m AffiliateMap) Displayable() AffiliateMap {
	out := make(AffiliateMap, len(m))
	for _, k := range m.Keys() {
		if e := m[k]; e.IsDisplayable() {
			out[k] = e
		}
	}
	return out
}

// MapDocument is the persisted affiliate map: metadata plus entries.
type MapDocument struct {
	Schema      int
	UpdatedAt   time.Time
	Description string
	Entries     AffiliateMap
}

// NewMapDocument wraps entries with freshly generated metadata.
func NewMapDocument(entries AffiliateMap, now time.Time) *MapDocument {
	if entries == nil {
		entries = AffiliateMap{}
	}
	return &MapDocument{
		Schema:      SchemaVersion,
		UpdatedAt:   now.UTC(),
		Description: DefaultDescription,
		Entries:     entries,
	}
}

// MarshalJSON writes metadata keys first, then entries in key order, indented
// by two spaces so the document diffs cleanly between runs.
func (d *MapDocument) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("{\n")

	writeField := func(key string, value any, last bool) error {
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		v, err := json.MarshalIndent(value, "  ", "  ")
		if err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		buf.WriteString("  ")
		buf.Write(k)
		buf.WriteString(": ")
		buf.Write(v)
		if !last {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
		return nil
	}

	keys := d.Entries.Keys()
	if err := writeField(MetaSchemaKey, d.Schema, false); err != nil {
		return nil, err
	}
	if err := writeField(MetaUpdatedAtKey, d.UpdatedAt, false); err != nil {
		return nil, err
	}
	if err := writeField(MetaDescriptionKey, d.Description, len(keys) == 0); err != nil {
		return nil, err
	}
	for i, k := range keys {
		if err := writeField(k, d.Entries[k], i == len(keys)-1); err != nil {
			return nil, err
		}
	}

	buf.WriteString("}")
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a persisted document. Unknown metadata keys are ignored;
// an entry that is not an object yields ErrMalformedMap.
func (d *MapDocument) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedMap, err)
	}
	if raw == nil {
		return fmt.Errorf("%w: document is null", ErrMalformedMap)
	}

	doc := MapDocument{Entries: make(AffiliateMap, len(raw))}
	for key, value := range raw {
		switch {
		case key == MetaSchemaKey:
			// Older documents may carry the schema as a string; the version is
			// informational only.
			_ = json.Unmarshal(value, &doc.Schema)
		case key == MetaUpdatedAtKey:
			_ = json.Unmarshal(value, &doc.UpdatedAt)
		case key == MetaDescriptionKey:
			_ = json.Unmarshal(value, &doc.Description)
		case IsMetadataKey(key):
		default:
			var entry AffiliateEntry
			if err := json.Unmarshal(value, &entry); err != nil {
				return fmt.Errorf("%w: entry %q: %v", ErrMalformedMap, key, err)
			}
			doc.Entries[key] = entry
		}
	}

	*d = doc
	return nil
}

// CategoryCoverage counts how many products of a category got an affiliate entry.
type CategoryCoverage struct {
	Total     int            `json:"total"`
	Matched   int            `json:"matched"`
	Merchants map[string]int `json:"merchants"`
}

// Percent returns matched/total*100, or 0 for an empty category.
func (c CategoryCoverage) Percent() float64 {
	if c.Total == 0 {
		return 0
	}
	return float64(c.Matched) / float64(c.Total) * 100
}

// Coverage holds per-category statistics in the order categories were first seen.
type Coverage struct {
	order      []string
	categories map[string]*CategoryCoverage
}

// NewCoverage creates empty coverage statistics.
func NewCoverage() *Coverage {
	return &Coverage{categories: make(map[string]*CategoryCoverage)}
}

func (c *Coverage) category(name string) *CategoryCoverage {
	cc, ok := c.categories[name]
	if !ok {
		cc = &CategoryCoverage{Merchants: make(map[string]int)}
		c.categories[name] = cc
		c.order = append(c.order, name)
	}
	return cc
}

// AddProduct counts one more product in category.
func (c *Coverage) AddProduct(category string) {
	c.category(category).Total++
}

// AddMatch counts a matched product and the merchant that supplied it.
func (c *Coverage) AddMatch(category, merchant string) {
	cc := c.category(category)
	cc.Matched++
	cc.Merchants[merchant]++
}

// Categories returns category names in first-seen order.
func (c *Coverage) Categories() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Category returns the statistics of one category.
func (c *Coverage) Category(name string) (CategoryCoverage, bool) {
	cc, ok := c.categories[name]
	if !ok {
		return CategoryCoverage{}, false
	}
	return *cc, true
}

// Overall sums all categories.
func (c *Coverage) Overall() CategoryCoverage {
	total := CategoryCoverage{Merchants: make(map[string]int)}
	for _, name := range c.order {
		cc := c.categories[name]
		total.Total += cc.Total
		total.Matched += cc.Matched
		for m, n := range cc.Merchants {
			total.Merchants[m] += n
		}
	}
	return total
}

// Resolution is the outcome of one matching run.
type Resolution struct {
	Matches  AffiliateMap
	Coverage *Coverage
	Warnings []string
}
