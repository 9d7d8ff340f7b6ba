// Package embedding holds the precomputed vector store and similarity math
// used by the semantic tier of reverse search.
package embedding

import (
	"math"
	"strconv"
)

// Vector is a fixed-dimensionality embedding as returned by the provider.
type Vector []float32

// Store maps item ids (and item|m<i> phrase ids) to precomputed vectors.
// Loaded once per process and never mutated; concurrent readers need no
// locking. Absence of a vector for an id is valid: no semantic signal.
type Store struct {
	Items   map[string]Vector
	Phrases map[string]Vector
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{Items: map[string]Vector{}, Phrases: map[string]Vector{}}
}

// Empty reports whether the store holds no vectors at all.
func (s *Store) Empty() bool {
	return s == nil || (len(s.Items) == 0 && len(s.Phrases) == 0)
}

// PhraseKey builds the phrase-granularity id for one meaning entry.
func PhraseKey(itemID string, meaningIndex int) string {
	return itemID + "|m" + strconv.Itoa(meaningIndex)
}

// Similarity is the best cosine similarity found for an item, with the
// winning meaning index (-1 at item granularity).
type Similarity struct {
	Score        float64
	MeaningIndex int
}

// Best returns the highest cosine similarity between the keyword vector and
// the item's vectors: phrase granularity when any meaning vector exists,
// falling back to the single item-level vector.
func (s *Store) Best(keyword Vector, itemID string, meaningCount int) Similarity {
	best := Similarity{MeaningIndex: -1}
	if len(keyword) == 0 || s == nil {
		return best
	}

	found := false
	for i := 0; i < meaningCount; i++ {
		vec, ok := s.Phrases[PhraseKey(itemID, i)]
		if !ok {
			continue
		}
		found = true
		if sim := Cosine(keyword, vec); sim > best.Score {
			best.Score = sim
			best.MeaningIndex = i
		}
	}
	if found {
		return best
	}

	if vec, ok := s.Items[itemID]; ok {
		best.Score = Cosine(keyword, vec)
	}
	return best
}

// Cosine computes dot(a,b) / (|a|·|b|) over the shared prefix of the two
// vectors. Returns 0 when either norm is 0.
func Cosine(a, b Vector) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}
