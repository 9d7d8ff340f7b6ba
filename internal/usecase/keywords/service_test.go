package keywords

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kotonoha-labs/birthdex/internal/domain"
)

type fakeExtractor struct {
	keywords []string
	err      error
	gotText  string
}

func (f *fakeExtractor) Extract(_ context.Context, text string) ([]string, error) {
	f.gotText = text
	return f.keywords, f.err
}

func TestExtract(t *testing.T) {
	extractor := &fakeExtractor{keywords: []string{"親切", "正義感"}}
	svc := New(extractor)

	resp, err := svc.Extract(context.Background(), "  困っている人を見過ごさない  ")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(resp.Keywords) != 2 || resp.Keywords[0] != "親切" {
		t.Errorf("unexpected keywords: %v", resp.Keywords)
	}
	if extractor.gotText != "困っている人を見過ごさない" {
		t.Errorf("expected trimmed text, got %q", extractor.gotText)
	}
}

func TestExtract_DedupesAndCaps(t *testing.T) {
	extractor := &fakeExtractor{keywords: []string{"a", " a ", "b", "", "c", "d", "e", "f"}}
	svc := New(extractor)

	resp, err := svc.Extract(context.Background(), "text")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	want := []string{"a", "b", "c", "d", "e"}
	if len(resp.Keywords) != len(want) {
		t.Fatalf("expected %d keywords, got %v", len(want), resp.Keywords)
	}
	for i, kw := range want {
		if resp.Keywords[i] != kw {
			t.Errorf("keyword[%d] = %q, want %q", i, resp.Keywords[i], kw)
		}
	}
}

func TestExtract_EmptyModelOutputIsNotAnError(t *testing.T) {
	svc := New(&fakeExtractor{})

	resp, err := svc.Extract(context.Background(), "text")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(resp.Keywords) != 0 {
		t.Errorf("expected no keywords, got %v", resp.Keywords)
	}
}

func TestExtract_Validation(t *testing.T) {
	svc := New(&fakeExtractor{})

	if _, err := svc.Extract(context.Background(), "   "); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for blank text, got %v", err)
	}
	long := strings.Repeat("あ", MaxTextChars+1)
	if _, err := svc.Extract(context.Background(), long); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for long text, got %v", err)
	}
}

func TestExtract_NoExtractorConfigured(t *testing.T) {
	svc := New(nil)

	_, err := svc.Extract(context.Background(), "text")
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Errorf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestExtract_ProviderErrorPassesThrough(t *testing.T) {
	svc := New(&fakeExtractor{err: domain.ErrProviderFailure})

	_, err := svc.Extract(context.Background(), "text")
	if !errors.Is(err, domain.ErrProviderFailure) {
		t.Errorf("expected ErrProviderFailure, got %v", err)
	}
}
