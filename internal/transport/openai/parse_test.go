package openai

import (
	"reflect"
	"testing"
)

func TestParseWeights_StrictJSON(t *testing.T) {
	got := parseWeights(`{"weights":[{"id":"01-01|flower|0","weight":1.3},{"id":"01-02|stone|1","weight":0.4}]}`)
	want := map[string]float64{"01-01|flower|0": 1.3, "01-02|stone|1": 0.4}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseWeights = %v, want %v", got, want)
	}
}

func TestParseWeights_SurroundingProse(t *testing.T) {
	content := "評価結果です。\n```json\n{\"weights\":[{\"id\":\"a\",\"weight\":0.9}]}\n```"
	got := parseWeights(content)
	if got["a"] != 0.9 {
		t.Errorf("expected weight 0.9 for a, got %v", got)
	}
}

func TestParseWeights_SkipsBadRows(t *testing.T) {
	got := parseWeights(`{"weights":[{"id":"","weight":1.0},{"id":"b","weight":"high"},{"id":"c","weight":1.2}]}`)
	if len(got) != 1 || got["c"] != 1.2 {
		t.Errorf("expected only c=1.2, got %v", got)
	}
}

func TestParseWeights_Garbage(t *testing.T) {
	if got := parseWeights("no json here"); len(got) != 0 {
		t.Errorf("expected empty map, got %v", got)
	}
}

func TestParseKeywords_StrictJSON(t *testing.T) {
	got := parseKeywords(`{"keywords":["親切","正義感"]}`)
	want := []string{"親切", "正義感"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseKeywords = %v, want %v", got, want)
	}
}

func TestParseKeywords_EmbeddedObject(t *testing.T) {
	got := parseKeywords("以下が結果です: {\"keywords\":[\" 勇敢 \",\"\",\"優しい\"]}")
	want := []string{"勇敢", "優しい"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseKeywords = %v, want %v", got, want)
	}
}

func TestParseKeywords_RegexFallback(t *testing.T) {
	// Trailing comma breaks both JSON passes; the regex still salvages items.
	got := parseKeywords(`{"keywords": ["冷静", "分析的",],}`)
	want := []string{"冷静", "分析的"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseKeywords = %v, want %v", got, want)
	}
}

func TestParseKeywords_Garbage(t *testing.T) {
	if got := parseKeywords("sorry, I cannot help"); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`pre {"a":1} post`, `{"a":1}`},
		{`{"a":{"b":2}}`, `{"a":{"b":2}}`},
		{"no braces", ""},
		{"}{", ""},
	}
	for _, tc := range tests {
		if got := extractJSONObject(tc.input); got != tc.expected {
			t.Errorf("extractJSONObject(%q) = %q, want %q", tc.input, got, tc.expected)
		}
	}
}
