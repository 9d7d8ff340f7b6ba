package search

import (
	"github.com/kotonoha-labs/birthdex/internal/domain/catalog"
	"github.com/kotonoha-labs/birthdex/internal/domain/embedding"
	"github.com/kotonoha-labs/birthdex/internal/domain/scoring"
)

// Response is the reverse-search payload.
type Response struct {
	Keywords []string `json:"keywords"`
	Total    int      `json:"total"`
	Results  []Result `json:"results"`
}

// Result is one ranked date. Items carries the raw catalog record; AllItems
// and MatchedItems carry the annotated views, including the monthly category
// that never contributes to the score.
type Result struct {
	Date           string                  `json:"date"`
	MatchedCount   int                     `json:"matchedCount"`
	Score          float64                 `json:"score"`
	KeywordScores  map[string]float64      `json:"keywordScores"`
	CategoryScores map[string]float64      `json:"categoryScores"`
	Items          catalog.Record          `json:"items"`
	AllItems       map[string][]ResultItem `json:"allItems"`
	MatchedItems   map[string][]ResultItem `json:"matchedItems"`
}

// ResultItem is one catalog entry annotated with how it matched.
type ResultItem struct {
	ID                   string                `json:"id"`
	Name                 string                `json:"name"`
	Meaning              []string              `json:"meaning"`
	ColorCode            string                `json:"colorCode,omitempty"`
	MatchedKeywords      []string              `json:"matchedKeywords"`
	MatchedByEmbedding   bool                  `json:"matchedByEmbedding"`
	SemanticMeaningIndex *int                  `json:"semanticMeaningIndex"`
	SemanticKeywords     []string              `json:"semanticKeywords"`
	MatchDetails         []scoring.MatchDetail `json:"matchDetails"`
	IsMatched            bool                  `json:"isMatched"`
}

// buildResult assembles the full per-date payload from the scored items.
func (s *Service) buildResult(
	snap *catalog.Snapshot,
	rec catalog.Record,
	scored scoring.DateScore,
	keywords []string,
	vectors []embedding.Vector,
	store *embedding.Store,
	weights scoring.SemanticWeights,
) Result {
	matchIndex := scoring.BuildMatchIndex(scored.Items, keywords, vectors, store, s.params)
	details := scoring.BuildDetails(scored.Items, keywords, vectors, store, weights, s.params)

	keywordScores, categoryScores := s.scoreBreakdown(scored.Items, details, keywords)
	scaleScores(keywordScores, scored.CoverageMultiplier)
	scaleScores(categoryScores, scored.CoverageMultiplier)

	allItems := s.itemsByCategory(snap, rec, scored.DateKey, matchIndex, details, weights, keywords, false)
	matchedItems := s.itemsByCategory(snap, rec, scored.DateKey, matchIndex, details, weights, keywords, true)

	return Result{
		Date:           scored.DateKey,
		MatchedCount:   countItems(matchedItems),
		Score:          scored.Score,
		KeywordScores:  keywordScores,
		CategoryScores: categoryScores,
		Items:          rec,
		AllItems:       allItems,
		MatchedItems:   matchedItems,
	}
}

// scoreBreakdown distributes qualifying detail scores over keywords and
// categories, scaled by the positional keyword weight.
func (s *Service) scoreBreakdown(
	items []catalog.Item,
	details map[string][]scoring.MatchDetail,
	keywords []string,
) (keywordScores, categoryScores map[string]float64) {
	keywordScores = make(map[string]float64, len(keywords))
	positional := make(map[string]float64, len(keywords))
	for index, keyword := range keywords {
		keywordScores[keyword] = 0
		positional[keyword] = scoring.KeywordWeight(index, len(keywords), s.params)
	}

	categoryScores = make(map[string]float64)
	for _, item := range items {
		if _, ok := categoryScores[item.Category]; !ok {
			categoryScores[item.Category] = 0
		}
	}

	for _, item := range items {
		for _, detail := range details[item.ID] {
			if !detail.Qualifies(s.params) {
				continue
			}
			weight, ok := positional[detail.Keyword]
			if !ok {
				weight = 1
			}
			weighted := detail.Score * weight
			keywordScores[detail.Keyword] += weighted
			categoryScores[item.Category] += weighted
		}
	}
	return keywordScores, categoryScores
}

func scaleScores(scores map[string]float64, multiplier float64) {
	if multiplier == 1 {
		return
	}
	for key, value := range scores {
		scores[key] = value * multiplier
	}
}

// itemsByCategory maps every record entry to its annotated form, in the
// configured category order. The monthly category has no match index entry
// and renders unmatched. Empty categories are dropped; with onlyMatched set,
// so are items below the match gate.
func (s *Service) itemsByCategory(
	snap *catalog.Snapshot,
	rec catalog.Record,
	dateKey string,
	matchIndex map[string]scoring.ItemMatch,
	details map[string][]scoring.MatchDetail,
	weights scoring.SemanticWeights,
	keywords []string,
	onlyMatched bool,
) map[string][]ResultItem {
	out := make(map[string][]ResultItem)
	for _, category := range snap.Categories {
		entries := rec[category.Key]
		list := make([]ResultItem, 0, len(entries))
		for index, entry := range entries {
			id := catalog.ItemID(dateKey, category.Key, index)
			item := s.resultItem(id, entry, matchIndex[id], details[id], weights, keywords)
			if onlyMatched && !item.IsMatched {
				continue
			}
			list = append(list, item)
		}
		if len(list) > 0 {
			out[category.Key] = list
		}
	}
	return out
}

func (s *Service) resultItem(
	id string,
	entry catalog.Entry,
	match scoring.ItemMatch,
	details []scoring.MatchDetail,
	weights scoring.SemanticWeights,
	keywords []string,
) ResultItem {
	item := ResultItem{
		ID:                 id,
		Name:               entry.Name,
		Meaning:            entry.Meaning,
		ColorCode:          entry.ColorCode,
		MatchedKeywords:    match.MatchedKeywords,
		MatchedByEmbedding: match.MatchedByEmbedding,
		SemanticKeywords:   weights.JudgedKeywords(id, keywords),
		MatchDetails:       details,
	}
	if item.MatchedKeywords == nil {
		item.MatchedKeywords = []string{}
	}
	if item.SemanticKeywords == nil {
		item.SemanticKeywords = []string{}
	}
	if item.MatchDetails == nil {
		item.MatchDetails = []scoring.MatchDetail{}
	}
	if match.MatchedByEmbedding && match.SemanticMeaningIndex >= 0 {
		idx := match.SemanticMeaningIndex
		item.SemanticMeaningIndex = &idx
	}
	for _, detail := range details {
		if detail.Qualifies(s.params) {
			item.IsMatched = true
			break
		}
	}
	return item
}

func countItems(itemsByCategory map[string][]ResultItem) int {
	var total int
	for _, list := range itemsByCategory {
		total += len(list)
	}
	return total
}
