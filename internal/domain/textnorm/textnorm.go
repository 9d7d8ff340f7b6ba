// Package textnorm canonicalizes catalog and keyword text for matching.
//
// Japanese free-text input mixes full-width and half-width forms and has no
// whitespace tokenization, so comparisons run on NFKC-folded lowercase text,
// optionally with a fixed separator set stripped out entirely.
package textnorm

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// stripSet is the separator/punctuation set removed by NormalizeCompact,
// covering both half-width and full-width variants.
const stripSet = " \t\n\r　/・、,，／.-—–~〜!?！？:：;；\"'“”‘’()（）[]【】{}「」『』"

// splitSet is the separator class used for tokenization.
const splitSet = " \t\n\r　/・、,，／"

// Normalize lowercases and NFKC-folds a string. Cheap form used for
// substring containment checks.
func Normalize(s string) string {
	return strings.ToLower(norm.NFKC.String(s))
}

// NormalizeCompact folds, lowercases, and strips the fixed separator set so
// that words written with different separators compare equal
// (e.g. "勇敢・親切" and "勇敢 親切").
func NormalizeCompact(s string) string {
	folded := strings.ToLower(norm.NFKC.String(s))
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if strings.ContainsRune(stripSet, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Split breaks a string on the fixed separator class, dropping empty parts.
func Split(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return strings.ContainsRune(splitSet, r)
	})
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
