package scoring

import (
	"math"

	"github.com/kotonoha-labs/birthdex/internal/domain/catalog"
	"github.com/kotonoha-labs/birthdex/internal/domain/embedding"
	"github.com/kotonoha-labs/birthdex/internal/domain/textnorm"
)

// MatchDetail explains why one keyword matched one item.
type MatchDetail struct {
	Keyword string  `json:"keyword"`
	Score   float64 `json:"score"`
	Percent int     `json:"percent"`
	Source  string  `json:"source"`
	Target  string  `json:"target"`
}

// Qualifies reports whether the detail clears the match-percent gate.
func (d MatchDetail) Qualifies(p Params) bool {
	return d.Percent >= p.MatchPercentMin
}

// DetailFor builds the match explanation for one item/keyword pair, or nil
// when neither the lexical cascade nor the semantic path produced a signal.
// Lexical matches always report percent 100; semantic percents are the
// weighted score on the 0-100 scale, capped at 100 for display.
func DetailFor(
	item catalog.Item,
	keyword string,
	keywordVector embedding.Vector,
	store *embedding.Store,
	weight float64,
	p Params,
) *MatchDetail {
	normalized := textnorm.Normalize(keyword)
	if normalized == "" {
		return nil
	}

	if TextMatched(normalized, keyword, item) {
		target := TargetMeaning
		if matchedInValue(normalized, keyword, item.Name) {
			target = TargetName
		}
		return &MatchDetail{
			Keyword: keyword,
			Score:   p.MaxScore,
			Percent: 100,
			Source:  SourceText,
			Target:  target,
		}
	}

	embScore := itemEmbeddingScore(keywordVector, item, store, p)
	if embScore <= 0 {
		return nil
	}
	weighted := ApplyWeight(embScore, weight, p)
	percent := Percent(weighted, p)
	if percent > 100 {
		percent = 100
	}
	return &MatchDetail{
		Keyword: keyword,
		Score:   weighted,
		Percent: percent,
		// Names are not semantically embedded; semantic hits always point
		// at a meaning phrase.
		Source: SourceSemantic,
		Target: TargetMeaning,
	}
}

// BuildDetails builds the qualifying-or-not details of every item/keyword
// pair, keyed by item id. Items with no detail at all are absent.
func BuildDetails(
	items []catalog.Item,
	keywords []string,
	keywordVectors []embedding.Vector,
	store *embedding.Store,
	weights SemanticWeights,
	p Params,
) map[string][]MatchDetail {
	details := make(map[string][]MatchDetail)
	for _, item := range items {
		var list []MatchDetail
		for index, keyword := range keywords {
			var vec embedding.Vector
			if index < len(keywordVectors) {
				vec = keywordVectors[index]
			}
			d := DetailFor(item, keyword, vec, store, weights.Get(item.ID, index), p)
			if d != nil {
				list = append(list, *d)
			}
		}
		if len(list) > 0 {
			details[item.ID] = list
		}
	}
	return details
}

// ItemMatch summarizes how an item was reached, for result rendering.
type ItemMatch struct {
	MatchedKeywords      []string
	MatchedByEmbedding   bool
	SemanticMeaningIndex int // -1 when no phrase-level winner
	SemanticSimilarity   float64
}

// BuildMatchIndex computes the per-item match summary for one date's items.
func BuildMatchIndex(
	items []catalog.Item,
	keywords []string,
	keywordVectors []embedding.Vector,
	store *embedding.Store,
	p Params,
) map[string]ItemMatch {
	index := make(map[string]ItemMatch, len(items))

	for _, item := range items {
		match := ItemMatch{SemanticMeaningIndex: -1}

		seen := make(map[string]struct{})
		for i, keyword := range keywords {
			normalized := textnorm.Normalize(keyword)
			if normalized == "" {
				continue
			}
			for _, hit := range MatchKeyword(normalized, keywords[i], item) {
				if _, dup := seen[hit]; dup {
					continue
				}
				seen[hit] = struct{}{}
				match.MatchedKeywords = append(match.MatchedKeywords, hit)
			}
		}

		if len(keywordVectors) > 0 && !store.Empty() {
			best := embedding.Similarity{MeaningIndex: -1}
			for _, vec := range keywordVectors {
				if len(vec) == 0 {
					continue
				}
				candidate := store.Best(vec, item.ID, len(item.Meaning))
				if candidate.Score > best.Score {
					best = candidate
				}
			}
			if best.Score >= p.EmbeddingThreshold && !math.IsNaN(best.Score) {
				match.MatchedByEmbedding = true
				match.SemanticMeaningIndex = best.MeaningIndex
				match.SemanticSimilarity = best.Score
			}
		}

		index[item.ID] = match
	}
	return index
}
