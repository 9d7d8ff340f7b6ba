// Package embedgen builds the precomputed embedding artifact: one vector per
// catalog item (meanings joined) and one per individual meaning phrase.
package embedgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kotonoha-labs/birthdex/internal/domain/catalog"
	"github.com/kotonoha-labs/birthdex/internal/domain/embedding"
)

const (
	// DefaultBatchSize is the number of texts per embeddings call.
	DefaultBatchSize = 64
	// DefaultMaxRetries bounds retries per batch.
	DefaultMaxRetries = 3
	// DefaultBackoffCap caps the exponential retry backoff.
	DefaultBackoffCap = 5 * time.Second

	baseBackoff = 500 * time.Millisecond
)

// Input is one text to embed, keyed by its artifact id.
type Input struct {
	ID   string
	Text string
}

// CollectInputs flattens the catalog into item inputs (meanings joined with
// a space) and phrase inputs (one per meaning). Items without any meaning
// text are skipped; every configured category is included.
func CollectInputs(snap *catalog.Snapshot) (items, phrases []Input) {
	for _, dateKey := range sortedDateKeys(snap) {
		rec := snap.Dates[dateKey]
		for _, category := range snap.Categories {
			for index, entry := range rec[category.Key] {
				id := catalog.ItemID(dateKey, category.Key, index)

				meanings := make([]string, 0, len(entry.Meaning))
				for _, meaning := range entry.Meaning {
					if trimmed := strings.TrimSpace(meaning); trimmed != "" {
						meanings = append(meanings, trimmed)
					}
				}
				if len(meanings) == 0 {
					continue
				}

				items = append(items, Input{ID: id, Text: strings.Join(meanings, " ")})
				for meaningIndex, meaning := range meanings {
					phrases = append(phrases, Input{
						ID:   embedding.PhraseKey(id, meaningIndex),
						Text: meaning,
					})
				}
			}
		}
	}
	return items, phrases
}

// Embedder computes one vector per input, in order.
type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([]embedding.Vector, error)
}

// Options tunes a generator. Zero values select the defaults.
type Options struct {
	BatchSize  int
	MaxRetries int
	BackoffCap time.Duration
	// Retryable classifies errors worth another attempt. Defaults to
	// everything except context expiry.
	Retryable func(error) bool
	Logger    *zap.Logger
}

// Generator embeds catalog texts batch by batch, sequentially.
type Generator struct {
	embedder   Embedder
	batchSize  int
	maxRetries int
	backoffCap time.Duration
	retryable  func(error) bool
	logger     *zap.Logger

	sleep func(time.Duration)
}

// NewGenerator creates a generator.
func NewGenerator(embedder Embedder, opts Options) *Generator {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.BackoffCap <= 0 {
		opts.BackoffCap = DefaultBackoffCap
	}
	if opts.Retryable == nil {
		opts.Retryable = func(err error) bool {
			return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Generator{
		embedder:   embedder,
		batchSize:  opts.BatchSize,
		maxRetries: opts.MaxRetries,
		backoffCap: opts.BackoffCap,
		retryable:  opts.Retryable,
		logger:     opts.Logger,
		sleep:      time.Sleep,
	}
}

// Artifact is the embeddings file layout.
type Artifact struct {
	Items   map[string]embedding.Vector `json:"items"`
	Phrases map[string]embedding.Vector `json:"phrases"`
}

// Generate embeds the whole catalog.
func (g *Generator) Generate(ctx context.Context, snap *catalog.Snapshot) (*Artifact, error) {
	items, phrases := CollectInputs(snap)
	g.logger.Info("collected embedding inputs",
		zap.Int("items", len(items)),
		zap.Int("phrases", len(phrases)),
	)

	artifact := &Artifact{
		Items:   make(map[string]embedding.Vector, len(items)),
		Phrases: make(map[string]embedding.Vector, len(phrases)),
	}
	if err := g.embedAll(ctx, items, artifact.Items); err != nil {
		return nil, fmt.Errorf("embed items: %w", err)
	}
	if err := g.embedAll(ctx, phrases, artifact.Phrases); err != nil {
		return nil, fmt.Errorf("embed phrases: %w", err)
	}
	return artifact, nil
}

func (g *Generator) embedAll(ctx context.Context, inputs []Input, out map[string]embedding.Vector) error {
	for start := 0; start < len(inputs); start += g.batchSize {
		end := start + g.batchSize
		if end > len(inputs) {
			end = len(inputs)
		}
		batch := inputs[start:end]

		texts := make([]string, len(batch))
		for i, input := range batch {
			texts[i] = input.Text
		}

		vectors, err := g.embedBatch(ctx, texts)
		if err != nil {
			return err
		}
		if len(vectors) != len(batch) {
			return fmt.Errorf("batch at %d: sent %d texts, got %d vectors", start, len(batch), len(vectors))
		}
		for i, input := range batch {
			out[input.ID] = vectors[i]
		}
	}
	return nil
}

func (g *Generator) embedBatch(ctx context.Context, texts []string) ([]embedding.Vector, error) {
	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			delay := baseBackoff << (attempt - 1)
			if delay > g.backoffCap {
				delay = g.backoffCap
			}
			g.logger.Warn("retrying embeddings batch",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)
			g.sleep(delay)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		vectors, err := g.embedder.Embed(ctx, texts)
		if err == nil {
			return vectors, nil
		}
		lastErr = err
		if !g.retryable(err) {
			break
		}
	}
	return nil, lastErr
}

// WriteArtifact saves the artifact in the nested on-disk layout.
func WriteArtifact(path string, artifact *Artifact) error {
	data, err := json.Marshal(artifact)
	if err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	return nil
}

func sortedDateKeys(snap *catalog.Snapshot) []string {
	keys := make([]string, 0, len(snap.Dates))
	for key := range snap.Dates {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
