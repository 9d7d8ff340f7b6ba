package scoring

import (
	"math"
	"testing"

	"github.com/kotonoha-labs/birthdex/internal/domain/catalog"
	"github.com/kotonoha-labs/birthdex/internal/domain/embedding"
)

func testItem(dateKey, category string, index int, name string, meaning ...string) catalog.Item {
	return catalog.BuildItem(dateKey, category, index, catalog.Entry{Name: name, Meaning: meaning})
}

func TestKeywordWeight_Endpoints(t *testing.T) {
	p := DefaultParams()

	if w := KeywordWeight(0, 1, p); w != 1 {
		t.Errorf("single keyword weight = %f, want 1", w)
	}
	if w := KeywordWeight(0, 5, p); w != 1 {
		t.Errorf("first keyword weight = %f, want 1", w)
	}
	if w := KeywordWeight(4, 5, p); math.Abs(w-p.KeywordWeightMin) > 1e-9 {
		t.Errorf("last keyword weight = %f, want %f", w, p.KeywordWeightMin)
	}
	if w := KeywordWeight(1, 3, p); math.Abs(w-0.85) > 1e-9 {
		t.Errorf("middle keyword weight = %f, want 0.85", w)
	}
}

func TestKeywordWeight_Decreasing(t *testing.T) {
	p := DefaultParams()
	prev := math.Inf(1)
	for i := 0; i < 5; i++ {
		w := KeywordWeight(i, 5, p)
		if w >= prev {
			t.Errorf("weight not strictly decreasing at index %d: %f >= %f", i, w, prev)
		}
		prev = w
	}
}

func TestCoverageMultiplier(t *testing.T) {
	p := DefaultParams()

	if m := CoverageMultiplier(0, 3, p); m != 1 {
		t.Errorf("zero coverage multiplier = %f, want 1", m)
	}
	for _, total := range []int{1, 2, 5} {
		if m := CoverageMultiplier(total, total, p); math.Abs(m-1.3) > 1e-9 {
			t.Errorf("full coverage multiplier for %d keywords = %f, want 1.3", total, m)
		}
	}
	if m := CoverageMultiplier(1, 2, p); math.Abs(m-1.15) > 1e-9 {
		t.Errorf("half coverage multiplier = %f, want 1.15", m)
	}
	if m := CoverageMultiplier(0, 0, p); m != 1 {
		t.Errorf("no-keyword multiplier = %f, want 1", m)
	}
}

func TestSimilarityScore_ThresholdAndCeiling(t *testing.T) {
	p := DefaultParams()

	for _, sim := range []float64{-1, 0, 0.3, p.EmbeddingThreshold} {
		if s := SimilarityScore(sim, p); s != 0 {
			t.Errorf("SimilarityScore(%f) = %f, want 0", sim, s)
		}
	}

	// Strictly increasing above the threshold up to the ceiling.
	prev := 0.0
	for sim := 0.45; sim <= p.SimilarityCeiling; sim += 0.05 {
		s := SimilarityScore(sim, p)
		if s <= prev {
			t.Errorf("score not increasing at similarity %f: %f <= %f", sim, s, prev)
		}
		prev = s
	}

	// Clamped at and beyond the ceiling.
	atCeiling := SimilarityScore(p.SimilarityCeiling, p)
	if math.Abs(atCeiling-p.MaxScore) > 1e-9 {
		t.Errorf("score at ceiling = %f, want %f", atCeiling, p.MaxScore)
	}
	if s := SimilarityScore(0.99, p); math.Abs(s-p.MaxScore) > 1e-9 {
		t.Errorf("score beyond ceiling = %f, want %f", s, p.MaxScore)
	}
}

func TestSimilarityScore_ConcaveCurve(t *testing.T) {
	p := DefaultParams()
	// The exponent < 1 means a small excess above the threshold still yields
	// a meaningfully nonzero score: more than the linear mapping would.
	sim := 0.5
	linear := (sim - p.EmbeddingThreshold) / (p.SimilarityCeiling - p.EmbeddingThreshold) * p.MaxScore
	if s := SimilarityScore(sim, p); s <= linear {
		t.Errorf("curve score %f should exceed linear score %f", s, linear)
	}
}

func TestClampWeight(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{1.0, 1.0},
		{0.1, MinWeight},
		{2.0, MaxWeight},
		{math.NaN(), 1.0},
		{math.Inf(1), 1.0},
		{0.4, 0.4},
		{1.5, 1.5},
	}
	for _, tt := range tests {
		if got := ClampWeight(tt.in); got != tt.want {
			t.Errorf("ClampWeight(%f) = %f, want %f", tt.in, got, tt.want)
		}
	}
}

func TestApplyWeight_CappedAtMaxWeightCeiling(t *testing.T) {
	p := DefaultParams()
	if got := ApplyWeight(p.MaxScore, 1.5, p); math.Abs(got-p.MaxScore*MaxWeight) > 1e-9 {
		t.Errorf("weighted max = %f, want %f", got, p.MaxScore*MaxWeight)
	}
	if got := ApplyWeight(1.0, 99, p); math.Abs(got-MaxWeight) > 1e-9 {
		t.Errorf("overweight should clamp to 1.5x: got %f", got)
	}
}

func TestSemanticWeights_DefaultAndClamp(t *testing.T) {
	w := make(SemanticWeights)
	if got := w.Get("missing", 0); got != 1 {
		t.Errorf("absent weight = %f, want 1", got)
	}
	var nilWeights SemanticWeights
	if got := nilWeights.Get("any", 0); got != 1 {
		t.Errorf("nil map weight = %f, want 1", got)
	}

	w.Set("id", 0, 5.0)
	if got := w.Get("id", 0); got != MaxWeight {
		t.Errorf("stored weight = %f, want clamped %f", got, MaxWeight)
	}
}

func TestScoreDate_ExactTextMatch(t *testing.T) {
	p := DefaultParams()
	items := []catalog.Item{testItem("01-01", "flower", 0, "水仙", "自己愛", "うぬぼれ")}

	scored := ScoreDate("01-01", items, []string{"水仙"}, nil, nil, nil, p)
	if scored.MatchedKeywords != 1 {
		t.Fatalf("matched keywords = %d, want 1", scored.MatchedKeywords)
	}
	// One keyword: text score 2.0 × weight 1.0 × full coverage 1.3.
	if math.Abs(scored.Score-2.0*1.3) > 1e-9 {
		t.Errorf("score = %f, want %f", scored.Score, 2.0*1.3)
	}
	if math.Abs(scored.CoverageMultiplier-1.3) > 1e-9 {
		t.Errorf("coverage multiplier = %f, want 1.3", scored.CoverageMultiplier)
	}
}

func TestScoreDate_TwoKeywordsFullCoverage(t *testing.T) {
	p := DefaultParams()
	items := []catalog.Item{
		testItem("05-10", "flower", 0, "カーネーション", "勇敢"),
		testItem("05-10", "stone", 0, "エメラルド", "親切"),
	}

	scored := ScoreDate("05-10", items, []string{"勇敢", "親切"}, nil, nil, nil, p)
	if scored.MatchedKeywords != 2 {
		t.Fatalf("matched keywords = %d, want 2", scored.MatchedKeywords)
	}
	if math.Abs(scored.CoverageMultiplier-1.3) > 1e-9 {
		t.Errorf("coverage multiplier = %f, want 1.3", scored.CoverageMultiplier)
	}
	// First keyword weight 1.0, second 0.7; one text hit each.
	want := (2.0*1.0 + 2.0*0.7) * 1.3
	if math.Abs(scored.Score-want) > 1e-9 {
		t.Errorf("score = %f, want %f", scored.Score, want)
	}
}

func TestScoreDate_NoMatch(t *testing.T) {
	p := DefaultParams()
	items := []catalog.Item{testItem("01-01", "flower", 0, "水仙", "自己愛")}

	scored := ScoreDate("01-01", items, []string{"無関係"}, nil, nil, nil, p)
	if scored.Score != 0 || scored.MatchedKeywords != 0 {
		t.Errorf("expected zero score, got %+v", scored)
	}
	if scored.CoverageMultiplier != 1 {
		t.Errorf("coverage multiplier = %f, want 1", scored.CoverageMultiplier)
	}
}

func TestScoreDate_SemanticGate(t *testing.T) {
	p := DefaultParams()
	item := testItem("01-01", "flower", 0, "水仙", "自己愛")

	store := embedding.NewStore()
	keyword := embedding.Vector{1, 0}

	// Similarity 1.0 → full score 2.0, percent 100 → passes the gate.
	store.Phrases[embedding.PhraseKey(item.ID, 0)] = embedding.Vector{1, 0}
	scored := ScoreDate("01-01", []catalog.Item{item}, []string{"誇り"},
		[]embedding.Vector{keyword}, store, nil, p)
	if scored.MatchedKeywords != 1 {
		t.Fatalf("semantic match should count, got %+v", scored)
	}

	// Similarity just above threshold → low percent → gated out.
	lowSim := embedding.Vector{1, 2.2} // cos ≈ 0.414
	store.Phrases[embedding.PhraseKey(item.ID, 0)] = lowSim
	scored = ScoreDate("01-01", []catalog.Item{item}, []string{"誇り"},
		[]embedding.Vector{keyword}, store, nil, p)
	if scored.MatchedKeywords != 0 {
		t.Errorf("sub-gate semantic score should not count, got %+v", scored)
	}
}

func TestScoreDate_LexicalMatchSuppressesSemantic(t *testing.T) {
	p := DefaultParams()
	item := testItem("01-01", "flower", 0, "水仙", "自己愛")

	store := embedding.NewStore()
	store.Phrases[embedding.PhraseKey(item.ID, 0)] = embedding.Vector{1, 0}

	// Text match wins with score exactly MaxScore even when a judge weight
	// could have boosted the semantic path beyond it.
	weights := make(SemanticWeights)
	weights.Set(item.ID, 0, 1.5)

	scored := ScoreDate("01-01", []catalog.Item{item}, []string{"水仙"},
		[]embedding.Vector{{1, 0}}, store, weights, p)
	want := p.MaxScore * 1.3
	if math.Abs(scored.Score-want) > 1e-9 {
		t.Errorf("score = %f, want %f (text path only)", scored.Score, want)
	}
}
