// Package scoring implements the reverse-search matching engine: the lexical
// match cascade, the embedding similarity curve, semantic weight integration,
// per-date aggregation with positional keyword weighting and coverage bonus,
// and the per-item match explanations.
package scoring

// Match sources and targets reported in MatchDetail.
const (
	SourceText     = "text"
	SourceSemantic = "semantic"
	TargetName     = "name"
	TargetMeaning  = "meaning"
)

// Judge weight clamp range. Absent or non-finite weights default to 1.0.
const (
	MinWeight = 0.4
	MaxWeight = 1.5
)

// Params holds the scoring constants. All values have catalog-tuned defaults;
// they are configuration, not code, so the engine never reads globals.
type Params struct {
	// EmbeddingThreshold is the cosine similarity below which the semantic
	// contribution is zero.
	EmbeddingThreshold float64
	// SimilarityCeiling is the similarity mapped to the full score.
	SimilarityCeiling float64
	// SimilarityCurve is the exponent (< 1) compressing the response curve.
	SimilarityCurve float64
	// MaxScore is the score of an exact text match and the semantic score
	// ceiling before weighting.
	MaxScore float64
	// MatchPercentMin gates which matches count toward results (percent form).
	MatchPercentMin int
	// CoverageBonus scales the all-keywords-matched multiplier (1 + bonus).
	CoverageBonus float64
	// KeywordWeightMin is the positional weight floor for the last keyword.
	KeywordWeightMin float64
}

// DefaultParams returns the tuned constants of the production catalog.
func DefaultParams() Params {
	return Params{
		EmbeddingThreshold: 0.4,
		SimilarityCeiling:  0.85,
		SimilarityCurve:    0.6,
		MaxScore:           2.0,
		MatchPercentMin:    30,
		CoverageBonus:      0.3,
		KeywordWeightMin:   0.7,
	}
}
