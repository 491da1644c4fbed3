package search

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"
)

// Vectorizer turns normalized text into a vector
type Vectorizer interface {
	Fit(docs []string)
	Transform(text string) []float64
}

// TermMatrix holds one L2-normalized TF-IDF row per corpus document
type TermMatrix struct {
	Vocabulary map[string]int
	Rows       [][]float64
}

// TFIDFVectorizer implements Term Frequency - Inverse Document Frequency
// over whitespace-separated normalized text.
type TFIDFVectorizer struct {
	// MinTokenLength drops tokens shorter than this many runes.
	MinTokenLength int
	Vocabulary     map[string]int
	IDF            []float64
}

func NewTFIDFVectorizer() *TFIDFVectorizer {
	return &TFIDFVectorizer{
		MinTokenLength: 1,
		Vocabulary:     make(map[string]int),
	}
}

// BuildTermMatrix fits a default vectorizer on corpus and returns its rows.
func BuildTermMatrix(corpus []string) *TermMatrix {
	return NewTFIDFVectorizer().FitTransform(corpus)
}

// Fit analyzes the corpus to build vocabulary and IDF stats.
// Any previous fit is discarded.
func (v *TFIDFVectorizer) Fit(docs []string) {
	docCount := float64(len(docs))
	wordDocCounts := make(map[string]int)

	for _, doc := range docs {
		seenInDoc := make(map[string]bool)
		for _, token := range v.tokenize(doc) {
			if !seenInDoc[token] {
				wordDocCounts[token]++
				seenInDoc[token] = true
			}
		}
	}

	// Sorted terms give every fit of the same corpus the same dimensions.
	terms := make([]string, 0, len(wordDocCounts))
	for term := range wordDocCounts {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	v.Vocabulary = make(map[string]int, len(terms))
	v.IDF = make([]float64, len(terms))
	for idx, term := range terms {
		v.Vocabulary[term] = idx
		// smoothed: idf = ln((1 + N) / (1 + df)) + 1
		v.IDF[idx] = math.Log((1+docCount)/(1+float64(wordDocCounts[term]))) + 1
	}
}

// Transform converts text to a unit-length vector over the learned
// vocabulary. Text without known tokens yields the zero vector.
func (v *TFIDFVectorizer) Transform(text string) []float64 {
	vector := make([]float64, len(v.Vocabulary))

	for _, token := range v.tokenize(text) {
		if idx, exists := v.Vocabulary[token]; exists {
			vector[idx]++
		}
	}

	// Summing in index order keeps the norm bit-identical across runs.
	var norm float64
	for idx, count := range vector {
		if count == 0 {
			continue
		}
		weight := count * v.IDF[idx]
		vector[idx] = weight
		norm += weight * weight
	}
	if norm == 0 {
		return vector
	}

	norm = math.Sqrt(norm)
	for idx := range vector {
		vector[idx] /= norm
	}
	return vector
}

// FitTransform fits on docs and returns the transformed rows in input order.
func (v *TFIDFVectorizer) FitTransform(docs []string) *TermMatrix {
	v.Fit(docs)
	rows := make([][]float64, len(docs))
	for i, doc := range docs {
		rows[i] = v.Transform(doc)
	}
	return &TermMatrix{
		Vocabulary: v.Vocabulary,
		Rows:       rows,
	}
}

func (v *TFIDFVectorizer) tokenize(text string) []string {
	fields := strings.Fields(text)
	if v.MinTokenLength <= 1 {
		return fields
	}
	tokens := fields[:0]
	for _, field := range fields {
		if utf8.RuneCountInString(field) >= v.MinTokenLength {
			tokens = append(tokens, field)
		}
	}
	return tokens
}

var _ Vectorizer = (*TFIDFVectorizer)(nil)
