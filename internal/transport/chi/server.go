// Package chi exposes the HTTP API: date lookup, reverse keyword search,
// and LLM keyword extraction.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kotonoha-labs/birthdex/internal/domain"
	dateuc "github.com/kotonoha-labs/birthdex/internal/usecase/date"
	keywordsuc "github.com/kotonoha-labs/birthdex/internal/usecase/keywords"
	searchuc "github.com/kotonoha-labs/birthdex/internal/usecase/search"
)

// DefaultResultLimit caps search results when the request names no limit.
const DefaultResultLimit = 20

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Options wires middleware and tunables into the server.
type Options struct {
	DefaultResultLimit int
	// Origin guards the API routes; nil disables the check.
	Origin func(http.Handler) http.Handler
	// SearchLimit / KeywordsLimit rate-limit their endpoint; nil disables.
	SearchLimit   func(http.Handler) http.Handler
	KeywordsLimit func(http.Handler) http.Handler
	Logger        *zap.Logger
}

// Server handles the public HTTP API.
type Server struct {
	search   *searchuc.Service
	date     *dateuc.Service
	keywords *keywordsuc.Service

	defaultLimit  int
	origin        func(http.Handler) http.Handler
	searchLimit   func(http.Handler) http.Handler
	keywordsLimit func(http.Handler) http.Handler
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	search *searchuc.Service,
	date *dateuc.Service,
	keywords *keywordsuc.Service,
	opts Options,
) *Server {
	if opts.DefaultResultLimit <= 0 {
		opts.DefaultResultLimit = DefaultResultLimit
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	s := &Server{
		search:        search,
		date:          date,
		keywords:      keywords,
		defaultLimit:  opts.DefaultResultLimit,
		origin:        opts.Origin,
		searchLimit:   opts.SearchLimit,
		keywordsLimit: opts.KeywordsLimit,
		logger:        opts.Logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest),
		sentinelHandler(domain.ErrOriginNotAllowed, http.StatusForbidden),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests),
		sentinelHandler(domain.ErrSearchTimeout, http.StatusGatewayTimeout),
		sentinelHandler(domain.ErrProviderUnavailable, http.StatusInternalServerError),
		sentinelHandler(domain.ErrProviderFailure, http.StatusInternalServerError),
	}
	return s
}

// Mount registers the API routes. Health stays outside the origin and
// rate-limit guards.
func (s *Server) Mount(r chi.Router) {
	r.Get("/health", s.handleHealth)
	r.Get("/metrics", s.handleMetrics)

	r.Group(func(r chi.Router) {
		if s.origin != nil {
			r.Use(s.origin)
		}
		r.With(middlewareOrNoop(s.searchLimit)).Post("/api/search", s.handleSearch)
		r.Get("/api/date", s.handleDate)
		r.With(middlewareOrNoop(s.keywordsLimit)).Post("/api/keywords", s.handleKeywords)
	})
}

func middlewareOrNoop(m func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	if m != nil {
		return m
	}
	return func(next http.Handler) http.Handler { return next }
}

// keywordsInput accepts the string-or-array union of the search request:
// a string splits on whitespace, an array takes its elements as-is.
type keywordsInput []string

func (k *keywordsInput) UnmarshalJSON(data []byte) error {
	data = []byte(strings.TrimSpace(string(data)))
	if len(data) == 0 || string(data) == "null" {
		*k = nil
		return nil
	}
	if data[0] == '"' {
		var single string
		if err := json.Unmarshal(data, &single); err != nil {
			return err
		}
		*k = strings.Fields(single)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*k = list
	return nil
}

type searchRequest struct {
	Keywords keywordsInput `json:"keywords"`
	Limit    *int          `json:"limit"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	limit := s.defaultLimit
	if req.Limit != nil {
		limit = *req.Limit
	}

	// The search runs to its own deadline even if the client goes away.
	ctx := context.WithoutCancel(r.Context())
	resp, err := s.search.Search(ctx, searchuc.Request{
		Keywords: req.Keywords,
		Limit:    limit,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDate(w http.ResponseWriter, r *http.Request) {
	month, errM := strconv.Atoi(r.URL.Query().Get("month"))
	day, errD := strconv.Atoi(r.URL.Query().Get("day"))
	if errM != nil || errD != nil {
		writeError(w, http.StatusBadRequest, "month and day must be numbers")
		return
	}

	resp, err := s.date.Lookup(r.Context(), month, day)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type keywordsRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleKeywords(w http.ResponseWriter, r *http.Request) {
	var req keywordsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	ctx := context.WithoutCancel(r.Context())
	resp, err := s.keywords.Extract(ctx, req.Text)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// safeDomainMessage returns a sentinel error message for the client without
// exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidInput,
		domain.ErrOriginNotAllowed,
		domain.ErrRateLimited,
		domain.ErrSearchTimeout,
		domain.ErrProviderUnavailable,
		domain.ErrProviderFailure,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}
