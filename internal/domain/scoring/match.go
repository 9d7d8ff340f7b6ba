package scoring

import (
	"strings"

	"github.com/kotonoha-labs/birthdex/internal/domain/catalog"
	"github.com/kotonoha-labs/birthdex/internal/domain/textnorm"
)

// MatchKeyword runs the lexical match cascade of one keyword against one
// item. It returns the matched display strings: the raw keyword for a direct
// containment, or the item tokens the keyword contains for a compound match
// (keyword "まっすぐで誠実" containing item token "誠実"). Empty means no match.
//
// The cascade is deliberately substring-permissive rather than
// token-boundary exact: free-text Japanese input has no whitespace
// tokenization, so recall wins over precision here.
func MatchKeyword(normalizedKeyword, rawKeyword string, item catalog.Item) []string {
	if normalizedKeyword == "" {
		return nil
	}

	if strings.Contains(item.SearchText, normalizedKeyword) {
		return []string{rawKeyword}
	}

	keywordCompact := textnorm.NormalizeCompact(rawKeyword)
	if keywordCompact == "" {
		return nil
	}
	if item.SearchCompact != "" && strings.Contains(item.SearchCompact, keywordCompact) {
		return []string{rawKeyword}
	}

	var matched []string
	for _, token := range item.Tokens {
		if token.Normalized == "" || token.Compact == "" {
			continue
		}
		if len([]rune(token.Compact)) < catalog.MinTokenLength {
			continue
		}
		if strings.Contains(keywordCompact, token.Compact) {
			matched = append(matched, token.Text)
		}
	}
	return matched
}

// TextMatched reports whether the lexical cascade matches at all.
func TextMatched(normalizedKeyword, rawKeyword string, item catalog.Item) bool {
	return len(MatchKeyword(normalizedKeyword, rawKeyword, item)) > 0
}

// ExactMatch is the stricter equality check used to skip semantic judging:
// compact-normalized keyword equals the item name or any meaning token.
// Substring containment does not count.
func ExactMatch(item catalog.Item, keyword string) bool {
	compact := textnorm.NormalizeCompact(keyword)
	if compact == "" {
		return false
	}
	if textnorm.NormalizeCompact(item.Name) == compact {
		return true
	}
	for _, meaning := range item.Meaning {
		for _, token := range textnorm.Split(strings.TrimSpace(meaning)) {
			if textnorm.NormalizeCompact(token) == compact {
				return true
			}
		}
	}
	return false
}

// matchedInValue reports whether the keyword lexically matches a single
// value (name or one meaning phrase). Used to attribute a text match to a
// display target.
func matchedInValue(normalizedKeyword, rawKeyword, value string) bool {
	if normalizedKeyword == "" {
		return false
	}
	if strings.Contains(textnorm.Normalize(value), normalizedKeyword) {
		return true
	}
	keywordCompact := textnorm.NormalizeCompact(rawKeyword)
	if keywordCompact == "" {
		return false
	}
	valueCompact := textnorm.NormalizeCompact(value)
	return valueCompact != "" && strings.Contains(valueCompact, keywordCompact)
}
