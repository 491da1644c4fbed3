package search_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/knowledge-engine/resume-ranker/internal/search"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Empty", "", ""},
		{"Lowercases", "Go DEVELOPER", "go developer"},
		{"Punctuation collapses", "python,,, django!!  rest-api", "python django rest api"},
		{"Stopwords dropped", "I am the engineer for this job", "engineer job"},
		{"Digits removed", "5 years experience 2019", "years experience"},
		{"Digits inside words fuse", "item2go", "itemgo"},
		{"Underscore is a word character", "snake_case __init__", "snake_case __init__"},
		{"Unicode words kept whole", "café 2023 résumé!!", "café résumé"},
		{"Non-latin scripts", "Привет, мир", "привет мир"},
		{"Whitespace variants", "go\t\nrust zig", "go rust zig"},
		{"Only symbols", "!!! --- ???", ""},
		{"Apostrophe splits", "don't stop", "stop"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, search.Normalize(tt.input))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"Senior Go Engineer, 10+ years (Kubernetes/Docker)",
		"item2go C++ C# .NET",
		"Ünïcödé ÉLÈVE naïve façade",
		"The quick brown fox jumps over the lazy dog",
		"İstanbul ΟΔΟΣ straße",
	}

	for _, input := range inputs {
		once := search.Normalize(input)
		assert.Equal(t, once, search.Normalize(once), "input %q", input)
	}
}

func TestNormalizeAllStopwords(t *testing.T) {
	text := strings.Join(search.Stopwords(), " ")
	assert.Equal(t, "", search.Normalize(text))
	assert.Equal(t, "", search.Normalize(strings.ToUpper(text)))
}

func TestTokens(t *testing.T) {
	tokens := search.Tokens("Hello, World! This is a test.")
	assert.Equal(t, []string{"hello", "world", "test"}, tokens)

	assert.Empty(t, search.Tokens(""))
	assert.NotNil(t, search.Tokens(""))
}

func TestStopwords(t *testing.T) {
	words := search.Stopwords()
	assert.Len(t, words, 127)
	assert.IsIncreasing(t, words)

	assert.True(t, search.IsStopword("the"))
	assert.True(t, search.IsStopword("don"))
	assert.False(t, search.IsStopword("The"))
	assert.False(t, search.IsStopword("engineer"))

	// Callers get a copy.
	words[0] = "engineer"
	assert.False(t, search.IsStopword("engineer"))
}
