package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/prylval/affiliates/internal/domain"
)

// AffiliateMapRepository persists the affiliate map as a JSON document
type AffiliateMapRepository struct {
	path  string
	clock domain.Clock
}

// NewAffiliateMapRepository creates a repository for the document at path.
// A nil clock means the wall clock.
func NewAffiliateMapRepository(path string, clock domain.Clock) *AffiliateMapRepository {
	if clock == nil {
		clock = domain.SystemClock
	}
	return &AffiliateMapRepository{path: path, clock: clock}
}

// Load reads the persisted entries. A missing file is an empty map, not an
// error; an unreadable file wraps domain.ErrMapUnavailable and an undecodable
// one wraps domain.ErrMalformedMap.
func (r *AffiliateMapRepository) Load(ctx context.Context) (domain.AffiliateMap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.AffiliateMap{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read affiliate map: %w", domain.ErrMapUnavailable, err)
	}

	var doc domain.MapDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		if errors.Is(err, domain.ErrMalformedMap) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedMap, err)
	}
	return doc.Entries, nil
}

// Save writes entries with fresh metadata. The document is written to a
// temporary file in the same directory and renamed over the target.
func (r *AffiliateMapRepository) Save(ctx context.Context, entries domain.AffiliateMap) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// MarshalJSON is called directly; json.Marshal would compact the indentation.
	data, err := domain.NewMapDocument(entries, r.clock.Now()).MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode affiliate map: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write affiliate map: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write affiliate map: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("failed to write affiliate map: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		return fmt.Errorf("failed to replace affiliate map: %w", err)
	}
	return nil
}
