package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/prylval/affiliates/internal/domain"
	"github.com/prylval/affiliates/internal/normalize"
)

// CatalogRepository reads the editorial catalog from a JSON file of the form
// {"category": ["product name", ...], ...}.
type CatalogRepository struct {
	path string
}

// NewCatalogRepository creates a catalog repository reading path
func NewCatalogRepository(path string) *CatalogRepository {
	return &CatalogRepository{path: path}
}

// Load returns the catalog products in document order. Categories starting
// with "_" are metadata and skipped.
func (r *CatalogRepository) Load(ctx context.Context) ([]domain.EditorialProduct, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrCatalogNotFound, r.path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()

	products, err := decodeCatalog(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrMalformedCatalog, r.path, err)
	}
	return products, nil
}

// decodeCatalog walks the top-level object with a token stream so category
// order survives; a Go map would lose it.
func decodeCatalog(r io.Reader) ([]domain.EditorialProduct, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var products []domain.EditorialProduct
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		category, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected key %v", tok)
		}

		if domain.IsMetadataKey(category) {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, err
			}
			continue
		}

		var names []string
		if err := dec.Decode(&names); err != nil {
			return nil, fmt.Errorf("category %q: %w", category, err)
		}
		for _, name := range names {
			products = append(products, domain.EditorialProduct{
				Name:     name,
				Category: category,
				Key:      normalize.Name(name),
			})
		}
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return products, nil
}
