// Package search ranks all catalog dates against free-form keywords. Lexical
// matching always runs; embedding similarity and LLM weight judging layer on
// top when a provider is configured, and the whole pipeline degrades to
// lexical-only when it is not.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kotonoha-labs/birthdex/internal/domain"
	"github.com/kotonoha-labs/birthdex/internal/domain/catalog"
	"github.com/kotonoha-labs/birthdex/internal/domain/embedding"
	"github.com/kotonoha-labs/birthdex/internal/domain/scoring"
)

const (
	// MaxKeywords caps how many keywords one search processes.
	MaxKeywords = 5
	// MaxKeywordChars caps the combined character count of the raw input.
	MaxKeywordChars = 50

	// DefaultTimeout is the wall-clock budget for one search, provider
	// calls included.
	DefaultTimeout = 120 * time.Second
	// DefaultJudgeCandidateLimit caps judged candidates per keyword.
	DefaultJudgeCandidateLimit = 50
	// DefaultJudgeBatchSize is the number of candidates per judge call.
	DefaultJudgeBatchSize = 30
)

// monthlyCategory is listed in results but never scored: its entries repeat
// for every day of a month and would drown date-specific matches.
const monthlyCategory = "stone_monthly"

// Options tunes a search service. Zero values select the defaults.
type Options struct {
	Params              scoring.Params
	Timeout             time.Duration
	JudgeCandidateLimit int
	JudgeBatchSize      int
	Logger              *zap.Logger
}

// Service runs reverse keyword searches over the catalog.
type Service struct {
	source   CatalogSource
	embedder Embedder
	judge    Judge

	params         scoring.Params
	timeout        time.Duration
	candidateLimit int
	batchSize      int
	logger         *zap.Logger
}

// New creates a search service. A nil embedder or judge disables the
// corresponding semantic tier instead of failing requests.
func New(source CatalogSource, embedder Embedder, judge Judge, opts Options) *Service {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.JudgeCandidateLimit <= 0 {
		opts.JudgeCandidateLimit = DefaultJudgeCandidateLimit
	}
	if opts.JudgeBatchSize <= 0 {
		opts.JudgeBatchSize = DefaultJudgeBatchSize
	}
	if opts.Params == (scoring.Params{}) {
		opts.Params = scoring.DefaultParams()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Service{
		source:         source,
		embedder:       embedder,
		judge:          judge,
		params:         opts.Params,
		timeout:        opts.Timeout,
		candidateLimit: opts.JudgeCandidateLimit,
		batchSize:      opts.JudgeBatchSize,
		logger:         opts.Logger,
	}
}

// Request is one reverse search. Keywords come in pre-split but otherwise
// raw; Limit <= 0 returns every matched date.
type Request struct {
	Keywords []string
	Limit    int
}

// Search ranks all dates against the request keywords.
func (s *Service) Search(ctx context.Context, req Request) (*Response, error) {
	keywords, err := normalizeKeywords(req.Keywords)
	if err != nil {
		return nil, err
	}

	snap, err := s.source.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	store, err := s.source.Embeddings()
	if err != nil {
		s.logger.Warn("embedding artifact unavailable, lexical-only search", zap.Error(err))
		store = embedding.NewStore()
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var vectors []embedding.Vector
	if s.embedder != nil {
		if err := ensureRemaining(ctx); err != nil {
			return nil, err
		}
		vectors, err = s.embedder.Embed(ctx, keywords)
		if err != nil {
			return nil, classifyProviderError("embed keywords", err)
		}
	}

	weights := scoring.SemanticWeights{}
	if s.judge != nil && len(vectors) > 0 && !store.Empty() {
		allItems := collectAllItems(snap)
		weights, err = s.judgeWeights(ctx, allItems, keywords, vectors, store)
		if err != nil {
			return nil, classifyProviderError("judge weights", err)
		}
	}

	categoryKeys := scoredCategoryKeys(snap)
	dateKeys := sortedDateKeys(snap)

	results := make([]Result, 0, len(dateKeys))
	for _, dateKey := range dateKeys {
		rec := snap.Dates[dateKey]
		items := catalog.BuildDateItems(dateKey, rec, categoryKeys)
		scored := scoring.ScoreDate(dateKey, items, keywords, vectors, store, weights, s.params)
		result := s.buildResult(snap, rec, scored, keywords, vectors, store, weights)
		if result.MatchedCount > 0 {
			results = append(results, result)
		}
	}

	// Input order is ascending date key, so equal scores stay date-ordered.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if req.Limit > 0 && len(results) > req.Limit {
		results = results[:req.Limit]
	}

	return &Response{
		Keywords: keywords,
		Total:    len(results),
		Results:  results,
	}, nil
}

// normalizeKeywords trims, dedupes, and caps the raw keywords. The character
// budget is checked against the raw input, before trimming.
func normalizeKeywords(raw []string) ([]string, error) {
	var totalChars int
	for _, value := range raw {
		totalChars += len([]rune(value))
	}
	if totalChars > MaxKeywordChars {
		return nil, fmt.Errorf("keywords are too long: %w", domain.ErrInvalidInput)
	}

	seen := make(map[string]struct{}, len(raw))
	keywords := make([]string, 0, len(raw))
	for _, value := range raw {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		keywords = append(keywords, trimmed)
	}
	if len(keywords) == 0 {
		return nil, fmt.Errorf("keywords are required: %w", domain.ErrInvalidInput)
	}
	if len(keywords) > MaxKeywords {
		keywords = keywords[:MaxKeywords]
	}
	return keywords, nil
}

// ensureRemaining fails fast once the search deadline has passed.
func ensureRemaining(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("deadline elapsed: %w", domain.ErrSearchTimeout)
	}
	return nil
}

// classifyProviderError maps deadline expiry to the timeout sentinel and
// everything else to a generic provider failure.
func classifyProviderError(op string, err error) error {
	if errors.Is(err, domain.ErrSearchTimeout) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, domain.ErrSearchTimeout)
	}
	if errors.Is(err, domain.ErrProviderFailure) {
		return err
	}
	return fmt.Errorf("%s: %w", op, domain.ErrProviderFailure)
}

// scoredCategoryKeys returns the configured category order minus the
// monthly category.
func scoredCategoryKeys(snap *catalog.Snapshot) []string {
	keys := make([]string, 0, len(snap.Categories))
	for _, c := range snap.Categories {
		if c.Key == monthlyCategory {
			continue
		}
		keys = append(keys, c.Key)
	}
	return keys
}

func sortedDateKeys(snap *catalog.Snapshot) []string {
	keys := make([]string, 0, len(snap.Dates))
	for key := range snap.Dates {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func collectAllItems(snap *catalog.Snapshot) []catalog.Item {
	categoryKeys := scoredCategoryKeys(snap)
	var items []catalog.Item
	for _, dateKey := range sortedDateKeys(snap) {
		items = append(items, catalog.BuildDateItems(dateKey, snap.Dates[dateKey], categoryKeys)...)
	}
	return items
}
