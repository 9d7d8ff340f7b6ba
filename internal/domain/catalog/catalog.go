// Package catalog holds the typed birth-symbol catalog model: one record of
// categorized items per calendar date, plus the derived per-item search index.
package catalog

import "fmt"

// Entry is one raw catalog entry after boundary normalization (meaning is
// always a slice, never the string-or-array union of the source JSON).
type Entry struct {
	Name      string   `json:"name"`
	Meaning   []string `json:"meaning"`
	ColorCode string   `json:"colorCode,omitempty"`
	Source    string   `json:"source,omitempty"`
}

// Record is a single date's catalog: category key to entry list.
type Record map[string][]Entry

// Category describes one configured catalog category.
type Category struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Snapshot is the immutable loaded catalog. Safe for concurrent readers.
type Snapshot struct {
	Dates      map[string]Record
	Categories []Category
}

// CategoryKeys returns the configured category keys in metadata order.
func (s *Snapshot) CategoryKeys() []string {
	keys := make([]string, len(s.Categories))
	for i, c := range s.Categories {
		keys[i] = c.Key
	}
	return keys
}

// daysInMonth is the maximum day per month over a full catalog year
// (February carries 29 entries).
var daysInMonth = [12]int{31, 29, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// ValidDate reports whether month/day address a catalog date.
func ValidDate(month, day int) bool {
	if month < 1 || month > 12 {
		return false
	}
	return day >= 1 && day <= daysInMonth[month-1]
}

// DateKey formats a month/day pair as the canonical "MM-DD" key.
func DateKey(month, day int) string {
	return fmt.Sprintf("%02d-%02d", month, day)
}
