package birthdex

import (
	"github.com/kotonoha-labs/birthdex/internal/domain/catalog"
	searchuc "github.com/kotonoha-labs/birthdex/internal/usecase/search"
)

// Entry is one catalog entry.
type Entry struct {
	Name      string
	Meaning   []string
	ColorCode string
	Source    string
}

// DateResult holds one date's entries grouped by category key. Every
// configured category is present, empty slices included.
type DateResult struct {
	Date  string
	Items map[string][]Entry
}

// MatchDetail explains why one keyword matched one item.
type MatchDetail struct {
	Keyword string
	Score   float64
	Percent int
	Source  string
	Target  string
}

// ResultItem is one catalog entry annotated with how it matched.
type ResultItem struct {
	ID                   string
	Name                 string
	Meaning              []string
	ColorCode            string
	MatchedKeywords      []string
	MatchedByEmbedding   bool
	SemanticMeaningIndex *int
	SemanticKeywords     []string
	MatchDetails         []MatchDetail
	IsMatched            bool
}

// SearchResult is one ranked date.
type SearchResult struct {
	Date           string
	MatchedCount   int
	Score          float64
	KeywordScores  map[string]float64
	CategoryScores map[string]float64
	Items          map[string][]Entry
	AllItems       map[string][]ResultItem
	MatchedItems   map[string][]ResultItem
}

// SearchResponse is the full reverse-search payload.
type SearchResponse struct {
	Keywords []string
	Total    int
	Results  []SearchResult
}

func fromEntries(entries []catalog.Entry) []Entry {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = Entry{
			Name:      e.Name,
			Meaning:   e.Meaning,
			ColorCode: e.ColorCode,
			Source:    e.Source,
		}
	}
	return out
}

func fromRecord(rec map[string][]catalog.Entry) map[string][]Entry {
	out := make(map[string][]Entry, len(rec))
	for key, entries := range rec {
		out[key] = fromEntries(entries)
	}
	return out
}

func fromResultItems(items map[string][]searchuc.ResultItem) map[string][]ResultItem {
	out := make(map[string][]ResultItem, len(items))
	for key, list := range items {
		converted := make([]ResultItem, len(list))
		for i, item := range list {
			details := make([]MatchDetail, len(item.MatchDetails))
			for j, d := range item.MatchDetails {
				details[j] = MatchDetail{
					Keyword: d.Keyword,
					Score:   d.Score,
					Percent: d.Percent,
					Source:  d.Source,
					Target:  d.Target,
				}
			}
			converted[i] = ResultItem{
				ID:                   item.ID,
				Name:                 item.Name,
				Meaning:              item.Meaning,
				ColorCode:            item.ColorCode,
				MatchedKeywords:      item.MatchedKeywords,
				MatchedByEmbedding:   item.MatchedByEmbedding,
				SemanticMeaningIndex: item.SemanticMeaningIndex,
				SemanticKeywords:     item.SemanticKeywords,
				MatchDetails:         details,
				IsMatched:            item.IsMatched,
			}
		}
		out[key] = converted
	}
	return out
}

func fromSearchResponse(resp *searchuc.Response) *SearchResponse {
	results := make([]SearchResult, len(resp.Results))
	for i, r := range resp.Results {
		results[i] = SearchResult{
			Date:           r.Date,
			MatchedCount:   r.MatchedCount,
			Score:          r.Score,
			KeywordScores:  r.KeywordScores,
			CategoryScores: r.CategoryScores,
			Items:          fromRecord(r.Items),
			AllItems:       fromResultItems(r.AllItems),
			MatchedItems:   fromResultItems(r.MatchedItems),
		}
	}
	return &SearchResponse{
		Keywords: resp.Keywords,
		Total:    resp.Total,
		Results:  results,
	}
}
