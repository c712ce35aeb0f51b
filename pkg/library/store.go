package library

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// ErrNotFound is returned when a document id is unknown to the store.
var ErrNotFound = errors.New("document not found")

// Store holds the instruction document library. It is read-only at turn
// time; documents are authored and versioned externally.
type Store struct {
	docs   map[string]Document
	sorted []Document
	logger *slog.Logger
}

// NewStore builds a store from an in-memory document set. Used by tests and
// embedded libraries.
func NewStore(docs []Document, logger *slog.Logger) *Store {
	s := &Store{
		docs:   make(map[string]Document, len(docs)),
		logger: logger,
	}
	for _, d := range docs {
		s.docs[d.ID] = d
	}
	s.reindex()
	return s
}

// Load reads every document JSON file under dir into a store.
func Load(dir string, logger *slog.Logger) (*Store, error) {
	s := &Store{
		docs:   make(map[string]Document),
		logger: logger,
	}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		file, err := os.ReadFile(path)
		if err != nil {
			if logger != nil {
				logger.Warn("Failed to read document file", "path", path, "error", err)
			}
			return nil
		}
		var doc Document
		if err := json.Unmarshal(file, &doc); err != nil {
			if logger != nil {
				logger.Warn("Failed to unmarshal document file", "path", path, "error", err)
			}
			return nil
		}
		if doc.ID == "" {
			doc.ID = d.Name()[:len(d.Name())-5] // filename minus .json
		}
		s.docs[doc.ID] = doc
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk document directory: %w", err)
	}

	s.reindex()
	if logger != nil {
		logger.Info("Document library loaded", "dir", dir, "documents", len(s.docs))
	}
	return s, nil
}

// reindex rebuilds the tier-then-declared-order listing.
func (s *Store) reindex() {
	s.sorted = make([]Document, 0, len(s.docs))
	for _, d := range s.docs {
		s.sorted = append(s.sorted, d)
	}
	sort.Slice(s.sorted, func(i, j int) bool {
		if s.sorted[i].Tier != s.sorted[j].Tier {
			return s.sorted[i].Tier < s.sorted[j].Tier
		}
		if s.sorted[i].Order != s.sorted[j].Order {
			return s.sorted[i].Order < s.sorted[j].Order
		}
		return s.sorted[i].ID < s.sorted[j].ID
	})
}

// Get returns a document by id.
func (s *Store) Get(id string) (Document, error) {
	d, ok := s.docs[id]
	if !ok {
		return Document{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return d, nil
}

// Filter narrows a List call. Zero values match everything.
type Filter struct {
	Tier    Tier
	Mode    LoadMode
	Context *Context
}

// List returns documents matching the filter, ordered by tier then declared
// order.
func (s *Store) List(filter Filter) []Document {
	out := make([]Document, 0, len(s.sorted))
	for _, d := range s.sorted {
		if filter.Tier != 0 && d.Tier != filter.Tier {
			continue
		}
		if filter.Mode != "" && d.Mode != filter.Mode {
			continue
		}
		if filter.Context != nil && !d.EligibleFor(*filter.Context) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// Len returns the number of documents in the store.
func (s *Store) Len() int {
	return len(s.docs)
}
