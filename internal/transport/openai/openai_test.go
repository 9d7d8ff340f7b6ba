package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kotonoha-labs/birthdex/internal/domain"
	"github.com/kotonoha-labs/birthdex/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterProviderMetrics()
	os.Exit(m.Run())
}

type embeddingsResponse struct {
	Object string `json:"object"`
	Data   []struct {
		Object    string    `json:"object"`
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

func embeddingsHandler(t *testing.T, vectors ...[]float32) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		resp := embeddingsResponse{Object: "list", Model: "test-model"}
		// Reversed order exercises the sort by Index.
		for i := len(vectors) - 1; i >= 0; i-- {
			resp.Data = append(resp.Data, struct {
				Object    string    `json:"object"`
				Embedding []float32 `json:"embedding"`
				Index     int       `json:"index"`
			}{Object: "embedding", Embedding: vectors[i], Index: i})
		}
		resp.Usage.TotalTokens = 7
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func testConfig(baseURL string) Config {
	return Config{
		APIKey:     "test-key",
		BaseURL:    baseURL,
		EmbedModel: "test-model",
		ChatModel:  "test-chat",
		Logger:     zap.NewNop(),
	}
}

func TestEmbedder_OrderedByIndex(t *testing.T) {
	server := httptest.NewServer(embeddingsHandler(t, []float32{0.1, 0.2}, []float32{0.3, 0.4}))
	defer server.Close()

	vectors, err := NewEmbedder(testConfig(server.URL)).Embed(context.Background(), []string{"勇敢", "親切"})
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(vectors) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vectors))
	}
	if vectors[0][0] != 0.1 || vectors[1][0] != 0.3 {
		t.Errorf("vectors out of input order: %v", vectors)
	}
}

func TestEmbedder_EmptyInput(t *testing.T) {
	vectors, err := NewEmbedder(testConfig("http://unused")).Embed(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vectors != nil {
		t.Errorf("expected nil for empty input, got %v", vectors)
	}
}

func TestEmbedder_CountMismatch(t *testing.T) {
	server := httptest.NewServer(embeddingsHandler(t, []float32{0.1}))
	defer server.Close()

	_, err := NewEmbedder(testConfig(server.URL)).Embed(context.Background(), []string{"a", "b"})
	if !errors.Is(err, domain.ErrProviderFailure) {
		t.Fatalf("expected ErrProviderFailure, got %v", err)
	}
}

func TestEmbedder_UpstreamErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewEmbedder(testConfig(server.URL)).Embed(context.Background(), []string{"a"})
	if !errors.Is(err, domain.ErrProviderFailure) {
		t.Fatalf("expected ErrProviderFailure, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("expected a single attempt, got %d", got)
	}
}

func chatResponse(content string) map[string]any {
	return map[string]any{
		"id":     "chatcmpl-test",
		"object": "chat.completion",
		"model":  "test-chat",
		"choices": []map[string]any{
			{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	}
}

func TestJudge_WeightsParsed(t *testing.T) {
	var gotReq struct {
		Model          string `json:"model"`
		ResponseFormat *struct {
			Type string `json:"type"`
		} `json:"response_format"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatResponse(`{"weights":[{"id":"01-01|flower|0","weight":1.4}]}`))
	}))
	defer server.Close()

	judge := NewJudge(testConfig(server.URL))
	weights, err := judge.JudgeWeights(context.Background(), "勇敢", []domain.JudgeCandidate{
		{ID: "01-01|flower|0", Phrase: "  勇気\nと行動力 ", Similarity: 0.7},
	})
	if err != nil {
		t.Fatalf("JudgeWeights failed: %v", err)
	}
	if weights["01-01|flower|0"] != 1.4 {
		t.Errorf("expected weight 1.4, got %v", weights)
	}
	if gotReq.ResponseFormat == nil || gotReq.ResponseFormat.Type != "json_object" {
		t.Errorf("expected json_object response format, got %+v", gotReq.ResponseFormat)
	}
	if len(gotReq.Messages) != 2 {
		t.Fatalf("expected system and user messages, got %d", len(gotReq.Messages))
	}
	user := gotReq.Messages[1].Content
	if want := "- 01-01|flower|0: 勇気 と行動力"; !strings.Contains(user, want) {
		t.Errorf("candidate line %q missing from prompt:\n%s", want, user)
	}
}

func TestJudge_NoCandidatesSkipsCall(t *testing.T) {
	judge := NewJudge(testConfig("http://unused"))
	weights, err := judge.JudgeWeights(context.Background(), "勇敢", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(weights) != 0 {
		t.Errorf("expected empty map, got %v", weights)
	}
}

func TestJudge_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatResponse(`{"weights":[{"id":"a","weight":1.0}]}`))
	}))
	defer server.Close()

	weights, err := NewJudge(testConfig(server.URL)).JudgeWeights(context.Background(), "k", []domain.JudgeCandidate{
		{ID: "a", Phrase: "p", Similarity: 0.6},
	})
	if err != nil {
		t.Fatalf("JudgeWeights failed: %v", err)
	}
	if weights["a"] != 1.0 {
		t.Errorf("expected weight 1.0 after retry, got %v", weights)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("expected 2 attempts, got %d", got)
	}
}

func TestJudge_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "bad request", "type": "invalid_request_error"},
		})
	}))
	defer server.Close()

	_, err := NewJudge(testConfig(server.URL)).JudgeWeights(context.Background(), "k", []domain.JudgeCandidate{
		{ID: "a", Phrase: "p", Similarity: 0.6},
	})
	if !errors.Is(err, domain.ErrProviderFailure) {
		t.Fatalf("expected ErrProviderFailure, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("expected a single attempt, got %d", got)
	}
}

func TestJudge_DeadlineSurfacesContextError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatResponse(`{"weights":[]}`))
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewJudge(testConfig(server.URL)).JudgeWeights(ctx, "k", []domain.JudgeCandidate{
		{ID: "a", Phrase: "p", Similarity: 0.6},
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded in chain, got %v", err)
	}
	if errors.Is(err, domain.ErrProviderFailure) {
		t.Error("deadline errors must not be classified as provider failures")
	}
}

func TestExtractor_Keywords(t *testing.T) {
	var gotReq struct {
		Model          string `json:"model"`
		ResponseFormat *struct {
			Type string `json:"type"`
		} `json:"response_format"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatResponse(`{"keywords":["親切","正義感"]}`))
	}))
	defer server.Close()

	keywords, err := NewExtractor(testConfig(server.URL)).Extract(context.Background(), "困っている人を見過ごさない")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(keywords) != 2 || keywords[0] != "親切" {
		t.Errorf("unexpected keywords: %v", keywords)
	}
	if gotReq.Model != "test-chat" {
		t.Errorf("expected chat model, got %q", gotReq.Model)
	}
	if gotReq.ResponseFormat == nil {
		t.Error("expected json_object response format")
	}
}

func TestExtractor_GPT5SkipsResponseFormat(t *testing.T) {
	var gotReq struct {
		ResponseFormat *struct {
			Type string `json:"type"`
		} `json:"response_format"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatResponse(`{"keywords":["冷静"]}`))
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.ChatModel = "gpt-5-mini"
	if _, err := NewExtractor(cfg).Extract(context.Background(), "text"); err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if gotReq.ResponseFormat != nil {
		t.Errorf("gpt-5 models must not request a response format, got %+v", gotReq.ResponseFormat)
	}
}
