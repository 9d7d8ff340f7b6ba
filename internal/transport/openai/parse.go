package openai

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Model output is JSON in the happy path, but models wrap it in prose or
// code fences often enough that parsing degrades in steps instead of failing.

var keywordsArrayRe = regexp.MustCompile(`(?s)"keywords"\s*:\s*\[(.*?)\]`)

var quotedItemRe = regexp.MustCompile(`"([^"\\]+)"`)

// parseWeights extracts {"weights":[{"id":...,"weight":...}]} rows from
// model output. Rows with a blank id or non-numeric weight are skipped.
func parseWeights(content string) map[string]float64 {
	weights := make(map[string]float64)

	var parsed struct {
		Weights []struct {
			ID     string          `json:"id"`
			Weight json.RawMessage `json:"weight"`
		} `json:"weights"`
	}
	raw := content
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		raw = extractJSONObject(content)
		if raw == "" || json.Unmarshal([]byte(raw), &parsed) != nil {
			return weights
		}
	}

	for _, row := range parsed.Weights {
		id := strings.TrimSpace(row.ID)
		if id == "" {
			continue
		}
		var w float64
		if json.Unmarshal(row.Weight, &w) != nil {
			continue
		}
		weights[id] = w
	}
	return weights
}

// parseKeywords extracts {"keywords":["..."]} from model output, falling
// back to the outermost JSON object and finally to a regex over the raw
// text when the JSON is malformed.
func parseKeywords(content string) []string {
	for _, raw := range []string{content, extractJSONObject(content)} {
		if raw == "" {
			continue
		}
		var parsed struct {
			Keywords []string `json:"keywords"`
		}
		if json.Unmarshal([]byte(raw), &parsed) == nil && parsed.Keywords != nil {
			return trimNonEmpty(parsed.Keywords)
		}
	}

	match := keywordsArrayRe.FindStringSubmatch(content)
	if match == nil {
		return nil
	}
	var items []string
	for _, quoted := range quotedItemRe.FindAllStringSubmatch(match[1], -1) {
		items = append(items, quoted[1])
	}
	return trimNonEmpty(items)
}

// extractJSONObject slices from the first "{" to the last "}".
func extractJSONObject(content string) string {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return ""
	}
	return content[start : end+1]
}

func trimNonEmpty(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
