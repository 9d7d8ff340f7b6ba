package search

import (
	"context"

	"github.com/kotonoha-labs/birthdex/internal/domain"
	"github.com/kotonoha-labs/birthdex/internal/domain/catalog"
	"github.com/kotonoha-labs/birthdex/internal/domain/embedding"
)

// CatalogSource provides the cached catalog and embedding artifacts.
type CatalogSource interface {
	Snapshot() (*catalog.Snapshot, error)
	Embeddings() (*embedding.Store, error)
}

// Embedder vectorizes the input keywords, one vector per input in order.
type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([]embedding.Vector, error)
}

// Judge rates one batch of candidate phrases against a keyword. Candidate
// ids missing from the result default to weight 1.0 downstream.
type Judge interface {
	JudgeWeights(ctx context.Context, keyword string, candidates []domain.JudgeCandidate) (map[string]float64, error)
}
