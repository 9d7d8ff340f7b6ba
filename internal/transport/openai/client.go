// Package openai talks to an OpenAI-compatible API for keyword embeddings,
// semantic weight judging, and keyword extraction.
package openai

import (
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Config holds the provider settings shared by all OpenAI-backed clients.
type Config struct {
	APIKey     string
	BaseURL    string
	EmbedModel string
	ChatModel  string
	// JudgeModel overrides ChatModel for weight judging when set.
	JudgeModel string
	Logger     *zap.Logger
}

func newClient(cfg Config) *openai.Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientCfg)
}

func (c Config) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

func (c Config) judgeModel() string {
	if c.JudgeModel != "" {
		return c.JudgeModel
	}
	return c.ChatModel
}

// supportsJSONFormat reports whether the model accepts the json_object
// response format. The gpt-5 family rejects it.
func supportsJSONFormat(model string) bool {
	return !strings.HasPrefix(model, "gpt-5")
}
