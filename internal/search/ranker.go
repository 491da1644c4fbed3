package search

import (
	"math"
	"sort"
)

// RankedResult pairs a candidate's original text with its similarity to the query
type RankedResult struct {
	Index int     // position of the candidate in the input
	Text  string  // original, un-normalized candidate text
	Score float64 // cosine similarity to the query
}

// Ranker scores candidate texts against a query text.
// A Ranker is immutable and safe for concurrent use.
type Ranker struct {
	minTokenLength int
}

// Option configures a Ranker
type Option func(*Ranker)

// WithMinTokenLength ignores tokens shorter than n runes when weighting terms.
// Values below 1 are treated as 1.
func WithMinTokenLength(n int) Option {
	return func(r *Ranker) {
		if n < 1 {
			n = 1
		}
		r.minTokenLength = n
	}
}

func NewRanker(opts ...Option) *Ranker {
	r := &Ranker{minTokenLength: 1}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var defaultRanker = NewRanker()

// Rank ranks candidates against query with the default Ranker.
func Rank(query string, candidates []string) []RankedResult {
	return defaultRanker.Rank(query, candidates)
}

// Rank normalizes query and candidates, weights them in a shared TF-IDF
// space and returns the candidates by descending cosine similarity.
// Equal scores keep input order. An empty query, an empty candidate or an
// empty vocabulary scores 0; Rank never fails.
func (r *Ranker) Rank(query string, candidates []string) []RankedResult {
	results := make([]RankedResult, len(candidates))
	if len(candidates) == 0 {
		return results
	}

	corpus := make([]string, 0, len(candidates)+1)
	corpus = append(corpus, Normalize(query))
	for _, candidate := range candidates {
		corpus = append(corpus, Normalize(candidate))
	}

	vectorizer := &TFIDFVectorizer{MinTokenLength: r.minTokenLength}
	matrix := vectorizer.FitTransform(corpus)

	queryVector := matrix.Rows[0]
	for i, candidate := range candidates {
		results[i] = RankedResult{
			Index: i,
			Text:  candidate,
			Score: CosineSimilarity(queryVector, matrix.Rows[i+1]),
		}
	}

	sortResults(results)
	return results
}

// sortResults orders by (-score, index). The index makes tie order explicit.
func sortResults(results []RankedResult) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Index < results[j].Index
	})
}

// CosineSimilarity calculates the cosine similarity between two vectors.
// Mismatched lengths and zero vectors score 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
