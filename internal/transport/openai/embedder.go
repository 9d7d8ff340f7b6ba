package openai

import (
	"context"
	"fmt"
	"sort"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kotonoha-labs/birthdex/internal/domain"
	"github.com/kotonoha-labs/birthdex/internal/domain/embedding"
	"github.com/kotonoha-labs/birthdex/internal/metrics"
)

// Embedder computes keyword vectors via the OpenAI-compatible embeddings API.
type Embedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
	logger *zap.Logger
}

// NewEmbedder creates an embedding client.
func NewEmbedder(cfg Config) *Embedder {
	return &Embedder{
		client: newClient(cfg),
		model:  openai.EmbeddingModel(cfg.EmbedModel),
		logger: cfg.logger(),
	}
}

// Embed computes one vector per input in a single API call. Vectors come
// back in input order. The call is not retried; a transient failure degrades
// the whole search to its lexical tier faster than a retry loop would.
func (e *Embedder) Embed(ctx context.Context, inputs []string) ([]embedding.Vector, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	start := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:          inputs,
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	})
	if err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues("embed", string(e.model), "error").Inc()
		return nil, parseAPIError("embeddings", err)
	}
	metrics.ProviderRequestsTotal.WithLabelValues("embed", string(e.model), "success").Inc()
	metrics.ProviderRequestDuration.WithLabelValues("embed", string(e.model)).Observe(time.Since(start).Seconds())
	if resp.Usage.TotalTokens > 0 {
		metrics.ProviderTokensTotal.WithLabelValues("embed", string(e.model), "total").Add(float64(resp.Usage.TotalTokens))
	}

	if len(resp.Data) != len(inputs) {
		return nil, fmt.Errorf("embeddings count mismatch: sent %d, got %d: %w",
			len(inputs), len(resp.Data), domain.ErrProviderFailure)
	}

	data := make([]openai.Embedding, len(resp.Data))
	copy(data, resp.Data)
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	vectors := make([]embedding.Vector, len(data))
	for i, d := range data {
		vectors[i] = embedding.Vector(d.Embedding)
	}
	return vectors, nil
}
