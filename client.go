// Package birthdex embeds the birth symbol catalog in-process: load the
// data files once, then run date lookups and reverse keyword searches
// without going through the HTTP service.
package birthdex

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	catalogrepo "github.com/kotonoha-labs/birthdex/internal/repository/catalog"
	openaiTransport "github.com/kotonoha-labs/birthdex/internal/transport/openai"
	dateuc "github.com/kotonoha-labs/birthdex/internal/usecase/date"
	keywordsuc "github.com/kotonoha-labs/birthdex/internal/usecase/keywords"
	searchuc "github.com/kotonoha-labs/birthdex/internal/usecase/search"
)

const defaultResultLimit = 20

type clientConfig struct {
	catalogPath    string
	metaPath       string
	embeddingsPath string

	apiKey     string
	baseURL    string
	embedModel string
	chatModel  string
	judgeModel string

	timeout     time.Duration
	resultLimit int
	logger      *zap.Logger
}

// Option configures a Client.
type Option func(*clientConfig)

// WithDataPaths sets the catalog, metadata, and embeddings file paths.
// An empty embeddings path (or a missing file) runs in lexical-only mode.
func WithDataPaths(catalog, meta, embeddings string) Option {
	return func(c *clientConfig) {
		c.catalogPath = catalog
		c.metaPath = meta
		c.embeddingsPath = embeddings
	}
}

// WithProvider enables the semantic tier and keyword extraction.
func WithProvider(apiKey string) Option {
	return func(c *clientConfig) {
		c.apiKey = apiKey
	}
}

// WithProviderBaseURL points the provider client at a compatible endpoint.
func WithProviderBaseURL(baseURL string) Option {
	return func(c *clientConfig) {
		c.baseURL = baseURL
	}
}

// WithModels overrides the provider models. Empty strings keep the defaults;
// an empty judge model falls back to the chat model.
func WithModels(embed, chat, judge string) Option {
	return func(c *clientConfig) {
		c.embedModel = embed
		c.chatModel = chat
		c.judgeModel = judge
	}
}

// WithSearchTimeout bounds one search including all provider calls.
func WithSearchTimeout(d time.Duration) Option {
	return func(c *clientConfig) {
		c.timeout = d
	}
}

// WithResultLimit sets the default result cap for searches.
func WithResultLimit(n int) Option {
	return func(c *clientConfig) {
		c.resultLimit = n
	}
}

// WithLogger sets the logger. Defaults to a nop logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// Client is the birthdex SDK entry point.
type Client struct {
	search      *searchuc.Service
	date        *dateuc.Service
	keywords    *keywordsuc.Service
	resultLimit int
}

// New creates a Client and loads the catalog eagerly, so a bad data file
// fails here rather than on the first lookup.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		catalogPath:    "data/catalog.json",
		metaPath:       "data/meta.json",
		embeddingsPath: "data/embeddings.json",
		embedModel:     "text-embedding-3-small",
		chatModel:      "gpt-4o-mini",
		resultLimit:    defaultResultLimit,
	}
	for _, o := range opts {
		o(cfg)
	}
	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	loader := catalogrepo.New(catalogrepo.Config{
		CatalogPath:    cfg.catalogPath,
		MetaPath:       cfg.metaPath,
		EmbeddingsPath: cfg.embeddingsPath,
	}, logger)
	if err := loader.Warm(); err != nil {
		return nil, fmt.Errorf("birthdex: load catalog: %w", err)
	}

	var (
		embedder  searchuc.Embedder
		judge     searchuc.Judge
		extractor keywordsuc.Extractor
	)
	if cfg.apiKey != "" {
		provCfg := openaiTransport.Config{
			APIKey:     cfg.apiKey,
			BaseURL:    cfg.baseURL,
			EmbedModel: cfg.embedModel,
			ChatModel:  cfg.chatModel,
			JudgeModel: cfg.judgeModel,
			Logger:     logger,
		}
		embedder = openaiTransport.NewEmbedder(provCfg)
		judge = openaiTransport.NewJudge(provCfg)
		extractor = openaiTransport.NewExtractor(provCfg)
	}

	return &Client{
		search: searchuc.New(loader, embedder, judge, searchuc.Options{
			Timeout: cfg.timeout,
			Logger:  logger,
		}),
		date:        dateuc.New(loader),
		keywords:    keywordsuc.New(extractor),
		resultLimit: cfg.resultLimit,
	}, nil
}

// Date returns the catalog entries for a calendar date.
func (c *Client) Date(ctx context.Context, month, day int) (*DateResult, error) {
	resp, err := c.date.Lookup(ctx, month, day)
	if err != nil {
		return nil, fmt.Errorf("date: %w", err)
	}
	return &DateResult{Date: resp.Date, Items: fromRecord(resp.Items)}, nil
}

// SearchOptions configures one search call.
type SearchOptions struct {
	// Limit overrides the client's default result cap.
	Limit int
}

// Search ranks dates against the keywords, best first.
func (c *Client) Search(ctx context.Context, keywords []string, opts ...SearchOptions) (*SearchResponse, error) {
	limit := c.resultLimit
	if len(opts) > 0 && opts[0].Limit > 0 {
		limit = opts[0].Limit
	}
	resp, err := c.search.Search(ctx, searchuc.Request{Keywords: keywords, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return fromSearchResponse(resp), nil
}

// Keywords extracts search keywords from free text via the provider.
// Requires WithProvider.
func (c *Client) Keywords(ctx context.Context, text string) ([]string, error) {
	resp, err := c.keywords.Extract(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("keywords: %w", err)
	}
	return resp.Keywords, nil
}
