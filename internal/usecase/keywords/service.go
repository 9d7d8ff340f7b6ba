// Package keywords turns free-form self-description text into search
// keywords via the configured LLM extractor.
package keywords

import (
	"context"
	"fmt"
	"strings"

	"github.com/kotonoha-labs/birthdex/internal/domain"
)

const (
	// MaxTextChars caps the input text length.
	MaxTextChars = 500
	// MaxKeywords caps the extracted keyword count.
	MaxKeywords = 5
)

// Extractor produces candidate keywords from text, most important first.
type Extractor interface {
	Extract(ctx context.Context, text string) ([]string, error)
}

// Service handles keyword extraction requests.
type Service struct {
	extractor Extractor
}

// New creates a keyword extraction service. A nil extractor makes every
// request fail with ErrProviderUnavailable; unlike search, this endpoint
// has no degraded mode.
func New(extractor Extractor) *Service {
	return &Service{extractor: extractor}
}

// Response carries the extracted keywords, possibly empty.
type Response struct {
	Keywords []string `json:"keywords"`
}

// Extract validates the text and runs the extractor. The result is deduped
// in order and capped.
func (s *Service) Extract(ctx context.Context, text string) (*Response, error) {
	if len([]rune(text)) > MaxTextChars {
		return nil, fmt.Errorf("text is too long: %w", domain.ErrInvalidInput)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("text is required: %w", domain.ErrInvalidInput)
	}
	if s.extractor == nil {
		return nil, fmt.Errorf("keyword extraction: %w", domain.ErrProviderUnavailable)
	}

	extracted, err := s.extractor.Extract(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("extract keywords: %w", err)
	}

	seen := make(map[string]struct{}, len(extracted))
	keywords := make([]string, 0, MaxKeywords)
	for _, keyword := range extracted {
		trimmed := strings.TrimSpace(keyword)
		if trimmed == "" {
			continue
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		keywords = append(keywords, trimmed)
		if len(keywords) == MaxKeywords {
			break
		}
	}

	return &Response{Keywords: keywords}, nil
}
