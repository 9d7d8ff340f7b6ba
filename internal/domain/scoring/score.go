package scoring

import (
	"math"
	"sort"

	"github.com/kotonoha-labs/birthdex/internal/domain/catalog"
	"github.com/kotonoha-labs/birthdex/internal/domain/embedding"
	"github.com/kotonoha-labs/birthdex/internal/domain/textnorm"
)

// SemanticWeights is the sparse judge verdict: item id -> keyword index ->
// relevance multiplier. Entries are already clamped to [MinWeight, MaxWeight].
type SemanticWeights map[string]map[int]float64

// Set records one judged weight, clamping it into range.
func (w SemanticWeights) Set(itemID string, keywordIndex int, weight float64) {
	m, ok := w[itemID]
	if !ok {
		m = make(map[int]float64)
		w[itemID] = m
	}
	m[keywordIndex] = ClampWeight(weight)
}

// Get returns the weight for an item/keyword pair, defaulting to 1.0.
func (w SemanticWeights) Get(itemID string, keywordIndex int) float64 {
	if w == nil {
		return 1
	}
	m, ok := w[itemID]
	if !ok {
		return 1
	}
	weight, ok := m[keywordIndex]
	if !ok {
		return 1
	}
	return weight
}

// JudgedKeywords returns the keyword strings the judge weighed for an item,
// in keyword order.
func (w SemanticWeights) JudgedKeywords(itemID string, keywords []string) []string {
	m, ok := w[itemID]
	if !ok {
		return nil
	}
	indexes := make([]int, 0, len(m))
	for idx := range m {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)
	var out []string
	for _, idx := range indexes {
		if idx >= 0 && idx < len(keywords) {
			out = append(out, keywords[idx])
		}
	}
	return out
}

// ClampWeight forces a judge weight into [MinWeight, MaxWeight]; non-finite
// values default to 1.0.
func ClampWeight(weight float64) float64 {
	if math.IsNaN(weight) || math.IsInf(weight, 0) {
		return 1
	}
	return math.Min(MaxWeight, math.Max(MinWeight, weight))
}

// KeywordWeight returns the positional weight of a keyword: 1.0 for the
// first, linearly decreasing to the floor for the last. A single keyword
// carries full weight.
func KeywordWeight(index, totalKeywords int, p Params) float64 {
	if totalKeywords <= 1 {
		return 1
	}
	ratio := float64(index) / float64(totalKeywords-1)
	return 1 - (1-p.KeywordWeightMin)*ratio
}

// CoverageMultiplier rewards dates where more of the input keywords found a
// qualifying match: 1.0 at zero coverage, 1 + bonus at full coverage.
func CoverageMultiplier(matchedKeywords, totalKeywords int, p Params) float64 {
	if totalKeywords == 0 {
		return 1
	}
	return 1 + p.CoverageBonus*float64(matchedKeywords)/float64(totalKeywords)
}

// SimilarityScore maps a raw cosine similarity through the threshold + curve
// to a bounded score in [0, MaxScore], before any judge weight.
func SimilarityScore(similarity float64, p Params) float64 {
	if math.IsNaN(similarity) || similarity <= p.EmbeddingThreshold {
		return 0
	}
	span := math.Max(0.01, p.SimilarityCeiling-p.EmbeddingThreshold)
	raw := math.Min(1, math.Max(0, (similarity-p.EmbeddingThreshold)/span))
	normalized := math.Pow(raw, p.SimilarityCurve)
	if normalized <= 0 {
		return 0
	}
	return math.Min(p.MaxScore, math.Max(0, normalized*p.MaxScore))
}

// ApplyWeight multiplies an embedding score by a judge weight, clamping the
// weight into range and capping the result at MaxScore × MaxWeight.
func ApplyWeight(score, weight float64, p Params) float64 {
	boosted := score * ClampWeight(weight)
	return math.Min(p.MaxScore*MaxWeight, math.Max(0, boosted))
}

// Percent converts a (possibly weighted) score to the 0-100 display scale.
// Monotonic and deterministic in the score.
func Percent(score float64, p Params) int {
	if score <= 0 {
		return 0
	}
	return int(math.Round(score / p.MaxScore * 100))
}

// itemEmbeddingScore computes the unweighted curve score of the best
// similarity between the keyword vector and the item.
func itemEmbeddingScore(keyword embedding.Vector, item catalog.Item, store *embedding.Store, p Params) float64 {
	if len(keyword) == 0 || store.Empty() {
		return 0
	}
	best := store.Best(keyword, item.ID, len(item.Meaning))
	return SimilarityScore(best.Score, p)
}

// DateScore is the per-date aggregation result.
type DateScore struct {
	DateKey string
	// Score is the coverage-adjusted total.
	Score float64
	// MatchedKeywords counts input keywords that matched at least one item.
	MatchedKeywords int
	CoverageMultiplier float64
	CoverageRatio      float64
	Items              []catalog.Item
}

// ScoreDate aggregates one date: per keyword, the best of the lexical score
// and the gated weighted semantic score is summed across items, scaled by
// the positional keyword weight, then the date total gets the coverage
// multiplier.
func ScoreDate(
	dateKey string,
	items []catalog.Item,
	keywords []string,
	keywordVectors []embedding.Vector,
	store *embedding.Store,
	weights SemanticWeights,
	p Params,
) DateScore {
	var matchedKeywords int
	var total float64

	for index, keyword := range keywords {
		normalized := textnorm.Normalize(keyword)
		if normalized == "" {
			continue
		}

		keywordWeight := KeywordWeight(index, len(keywords), p)
		var keywordVector embedding.Vector
		if index < len(keywordVectors) {
			keywordVector = keywordVectors[index]
		}

		keywordMatched := false
		for _, item := range items {
			itemScore := itemKeywordScore(item, normalized, keyword, index, keywordVector, store, weights, p)
			if itemScore > 0 {
				keywordMatched = true
				total += itemScore * keywordWeight
			}
		}
		if keywordMatched {
			matchedKeywords++
		}
	}

	multiplier := CoverageMultiplier(matchedKeywords, len(keywords), p)
	ratio := 0.0
	if len(keywords) > 0 {
		ratio = float64(matchedKeywords) / float64(len(keywords))
	}

	return DateScore{
		DateKey:            dateKey,
		Score:              total * multiplier,
		MatchedKeywords:    matchedKeywords,
		CoverageMultiplier: multiplier,
		CoverageRatio:      ratio,
		Items:              items,
	}
}

// itemKeywordScore is max(text score, gated weighted semantic score) for one
// item/keyword pair. A lexical match suppresses the semantic path entirely.
func itemKeywordScore(
	item catalog.Item,
	normalizedKeyword, rawKeyword string,
	keywordIndex int,
	keywordVector embedding.Vector,
	store *embedding.Store,
	weights SemanticWeights,
	p Params,
) float64 {
	if TextMatched(normalizedKeyword, rawKeyword, item) {
		return p.MaxScore
	}

	embScore := itemEmbeddingScore(keywordVector, item, store, p)
	if embScore <= 0 {
		return 0
	}
	weighted := ApplyWeight(embScore, weights.Get(item.ID, keywordIndex), p)
	if Percent(weighted, p) < p.MatchPercentMin {
		return 0
	}
	return weighted
}
