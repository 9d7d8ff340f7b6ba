// Package date serves the forward lookup: one calendar date to its catalog
// entries across every configured category.
package date

import (
	"context"
	"fmt"

	"github.com/kotonoha-labs/birthdex/internal/domain"
	"github.com/kotonoha-labs/birthdex/internal/domain/catalog"
)

// CatalogSource provides the cached catalog.
type CatalogSource interface {
	Snapshot() (*catalog.Snapshot, error)
}

// Service answers date lookups.
type Service struct {
	source CatalogSource
}

// New creates a date lookup service.
func New(source CatalogSource) *Service {
	return &Service{source: source}
}

// Response is one date's entries. Every configured category is present,
// empty slices included, so clients can render a stable layout.
type Response struct {
	Date  string                     `json:"date"`
	Items map[string][]catalog.Entry `json:"items"`
}

// Lookup returns the entries for a calendar date. Feb 29 is a valid key;
// days beyond a month's length are not.
func (s *Service) Lookup(_ context.Context, month, day int) (*Response, error) {
	if !catalog.ValidDate(month, day) {
		return nil, fmt.Errorf("invalid date %d/%d: %w", month, day, domain.ErrInvalidInput)
	}

	snap, err := s.source.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	dateKey := catalog.DateKey(month, day)
	rec := snap.Dates[dateKey]

	items := make(map[string][]catalog.Entry, len(snap.Categories))
	for _, category := range snap.Categories {
		entries := rec[category.Key]
		if entries == nil {
			entries = []catalog.Entry{}
		}
		items[category.Key] = entries
	}

	return &Response{Date: dateKey, Items: items}, nil
}
