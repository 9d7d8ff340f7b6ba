package search

import (
	"context"
	"sort"
	"strings"

	"github.com/kotonoha-labs/birthdex/internal/domain"
	"github.com/kotonoha-labs/birthdex/internal/domain/catalog"
	"github.com/kotonoha-labs/birthdex/internal/domain/embedding"
	"github.com/kotonoha-labs/birthdex/internal/domain/scoring"
)

// judgeWeights runs the semantic judge over every keyword in input order.
// For each keyword the nearest candidates (by embedding similarity) are
// judged in batches; candidate ids the model dropped get weight 1.0. A judge
// failure aborts the whole search rather than returning half-judged scores.
func (s *Service) judgeWeights(
	ctx context.Context,
	items []catalog.Item,
	keywords []string,
	vectors []embedding.Vector,
	store *embedding.Store,
) (scoring.SemanticWeights, error) {
	weights := scoring.SemanticWeights{}

	for index, keyword := range keywords {
		if err := ensureRemaining(ctx); err != nil {
			return nil, err
		}
		if index >= len(vectors) || len(vectors[index]) == 0 {
			continue
		}

		candidates := s.collectCandidates(items, keyword, vectors[index], store)
		for start := 0; start < len(candidates); start += s.batchSize {
			if err := ensureRemaining(ctx); err != nil {
				return nil, err
			}
			end := start + s.batchSize
			if end > len(candidates) {
				end = len(candidates)
			}
			batch := candidates[start:end]

			judged, err := s.judge.JudgeWeights(ctx, keyword, batch)
			if err != nil {
				return nil, err
			}
			for _, c := range batch {
				weight, ok := judged[c.ID]
				if !ok {
					weight = 1
				}
				weights.Set(c.ID, index, weight)
			}
		}
	}

	return weights, nil
}

// collectCandidates picks the items worth judging for one keyword: close
// enough by embedding, not already an exact lexical hit (those score full
// regardless), and carrying a non-empty meaning phrase to show the model.
func (s *Service) collectCandidates(
	items []catalog.Item,
	keyword string,
	vector embedding.Vector,
	store *embedding.Store,
) []domain.JudgeCandidate {
	var candidates []domain.JudgeCandidate
	for _, item := range items {
		if scoring.ExactMatch(item, keyword) {
			continue
		}
		best := store.Best(vector, item.ID, len(item.Meaning))
		if best.Score < s.params.EmbeddingThreshold {
			continue
		}
		phrase := pickMeaningPhrase(item, best.MeaningIndex)
		if phrase == "" {
			continue
		}
		candidates = append(candidates, domain.JudgeCandidate{
			ID:         item.ID,
			Phrase:     phrase,
			Similarity: best.Score,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Similarity > candidates[j].Similarity
	})
	if len(candidates) > s.candidateLimit {
		candidates = candidates[:s.candidateLimit]
	}
	return candidates
}

// pickMeaningPhrase prefers the meaning that won the similarity, falling
// back to all meanings joined.
func pickMeaningPhrase(item catalog.Item, meaningIndex int) string {
	if meaningIndex >= 0 && meaningIndex < len(item.Meaning) {
		if phrase := strings.TrimSpace(item.Meaning[meaningIndex]); phrase != "" {
			return phrase
		}
	}
	parts := make([]string, 0, len(item.Meaning))
	for _, meaning := range item.Meaning {
		if trimmed := strings.TrimSpace(meaning); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, " ")
}
