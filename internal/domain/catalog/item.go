package catalog

import (
	"strconv"
	"strings"

	"github.com/kotonoha-labs/birthdex/internal/domain/textnorm"
)

// MinTokenLength excludes one-character tokens from the "keyword contains
// token" fuzzy check; shorter tokens produce too much noise.
const MinTokenLength = 2

// Token is one name/meaning fragment with its precomputed match forms.
type Token struct {
	Text       string
	Normalized string
	Compact    string
}

// Item is the derived, searchable form of one catalog entry. Immutable once
// built.
type Item struct {
	ID            string
	DateKey       string
	Category      string
	Index         int
	Name          string
	Meaning       []string
	ColorCode     string
	Source        string
	SearchText    string
	SearchCompact string
	Tokens        []Token
}

// ItemID builds the stable "dateKey|category|index" identifier.
func ItemID(dateKey, category string, index int) string {
	return dateKey + "|" + category + "|" + strconv.Itoa(index)
}

// BuildItem derives the searchable item for one entry.
func BuildItem(dateKey, category string, index int, e Entry) Item {
	joined := joinNameAndMeaning(e.Name, e.Meaning)
	return Item{
		ID:            ItemID(dateKey, category, index),
		DateKey:       dateKey,
		Category:      category,
		Index:         index,
		Name:          e.Name,
		Meaning:       e.Meaning,
		ColorCode:     e.ColorCode,
		Source:        e.Source,
		SearchText:    textnorm.Normalize(joined),
		SearchCompact: textnorm.NormalizeCompact(joined),
		Tokens:        collectTokens(e.Name, e.Meaning),
	}
}

// BuildDateItems derives the searchable items of one date record, iterating
// the given category keys in order. Callers pass the search category set
// (the monthly auxiliary category already excluded).
func BuildDateItems(dateKey string, rec Record, categoryKeys []string) []Item {
	var items []Item
	for _, category := range categoryKeys {
		for index, e := range rec[category] {
			items = append(items, BuildItem(dateKey, category, index, e))
		}
	}
	return items
}

func joinNameAndMeaning(name string, meaning []string) string {
	parts := make([]string, 0, len(meaning)+1)
	parts = append(parts, name)
	parts = append(parts, meaning...)
	return strings.Join(parts, " ")
}

func collectTokens(name string, meaning []string) []Token {
	var tokens []Token
	values := append([]string{name}, meaning...)
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		for _, text := range textnorm.Split(value) {
			tokens = append(tokens, Token{
				Text:       text,
				Normalized: textnorm.Normalize(text),
				Compact:    textnorm.NormalizeCompact(text),
			})
		}
	}
	return tokens
}
