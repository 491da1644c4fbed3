package search_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowledge-engine/resume-ranker/internal/search"
)

func TestTFIDFVectorizer(t *testing.T) {
	docs := []string{
		"apple banana",
		"apple orange",
	}

	vectorizer := search.NewTFIDFVectorizer()
	vectorizer.Fit(docs)

	require.Len(t, vectorizer.Vocabulary, 3)
	assert.Equal(t, 0, vectorizer.Vocabulary["apple"])
	assert.Equal(t, 1, vectorizer.Vocabulary["banana"])
	assert.Equal(t, 2, vectorizer.Vocabulary["orange"])

	// idf(apple) = ln(3/3) + 1 = 1
	// idf(banana) = ln(3/2) + 1 ≈ 1.405465
	assert.InDelta(t, 1.0, vectorizer.IDF[0], 1e-9)
	assert.InDelta(t, 1.405465, vectorizer.IDF[1], 1e-6)

	vec := vectorizer.Transform("apple banana")
	require.Len(t, vec, 3)
	assert.InDelta(t, 0.579739, vec[0], 1e-6)
	assert.InDelta(t, 0.814802, vec[1], 1e-6)
	assert.Equal(t, 0.0, vec[2])
}

func TestTFIDFVectorizerTermFrequency(t *testing.T) {
	vectorizer := search.NewTFIDFVectorizer()
	vectorizer.Fit([]string{"go go rust", "rust"})

	vec := vectorizer.Transform("go go rust")
	// go: 2 * (ln(3/2)+1), rust: 1 * 1
	goWeight := 2 * (math.Log(1.5) + 1)
	norm := math.Sqrt(goWeight*goWeight + 1)
	assert.InDelta(t, goWeight/norm, vec[vectorizer.Vocabulary["go"]], 1e-9)
	assert.InDelta(t, 1/norm, vec[vectorizer.Vocabulary["rust"]], 1e-9)
}

func TestTFIDFVectorizerUnitLength(t *testing.T) {
	matrix := search.BuildTermMatrix([]string{
		"golang kubernetes docker",
		"golang golang postgres",
		"",
	})
	require.Len(t, matrix.Rows, 3)

	for i, row := range matrix.Rows[:2] {
		var sum float64
		for _, w := range row {
			sum += w * w
		}
		assert.InDelta(t, 1.0, sum, 1e-9, "row %d", i)
	}
	for _, w := range matrix.Rows[2] {
		assert.Equal(t, 0.0, w)
	}
}

func TestTFIDFVectorizerEmptyVocabulary(t *testing.T) {
	matrix := search.BuildTermMatrix([]string{"", ""})
	assert.Empty(t, matrix.Vocabulary)
	require.Len(t, matrix.Rows, 2)
	assert.Empty(t, matrix.Rows[0])
	assert.Equal(t, 0.0, search.CosineSimilarity(matrix.Rows[0], matrix.Rows[1]))
}

func TestTFIDFVectorizerMinTokenLength(t *testing.T) {
	vectorizer := search.NewTFIDFVectorizer()
	vectorizer.MinTokenLength = 2
	vectorizer.Fit([]string{"c go r rust"})

	assert.Len(t, vectorizer.Vocabulary, 2)
	assert.Contains(t, vectorizer.Vocabulary, "go")
	assert.NotContains(t, vectorizer.Vocabulary, "c")
}

func TestCosineSimilarity(t *testing.T) {
	vecA := []float64{1, 0, 1}
	vecB := []float64{0, 1, 1}

	// Dot product: 1, norms: sqrt(2) each, cosine: 0.5
	assert.InDelta(t, 0.5, search.CosineSimilarity(vecA, vecB), 1e-4)

	assert.Equal(t, 0.0, search.CosineSimilarity(vecA, []float64{0, 0, 0}))
	assert.Equal(t, 0.0, search.CosineSimilarity(vecA, []float64{1, 1}))
	assert.InDelta(t, 1.0, search.CosineSimilarity(vecA, vecA), 1e-12)
}

func TestRank(t *testing.T) {
	results := search.Rank("machine learning engineer", []string{
		"Cooking recipes and baking",
		"Machine Learning Engineer, expert in PyTorch",
		"Backend engineer",
	})
	require.Len(t, results, 3)

	assert.Equal(t, 1, results[0].Index)
	assert.Equal(t, "Machine Learning Engineer, expert in PyTorch", results[0].Text)
	assert.Equal(t, 2, results[1].Index)
	assert.Equal(t, 0, results[2].Index)
	assert.Equal(t, 0.0, results[2].Score)

	assert.Greater(t, results[0].Score, results[1].Score)
	assert.Greater(t, results[1].Score, 0.0)
	assert.LessOrEqual(t, results[0].Score, 1.0+1e-12)
}

func TestRankMonotonicity(t *testing.T) {
	results := search.Rank("machine learning engineer", []string{
		"machine learning engineer expert",
		"cooking recipes and baking",
	})
	require.Len(t, results, 2)

	assert.Equal(t, 0, results[0].Index)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestRankIdenticalCandidates(t *testing.T) {
	candidates := []string{"abc", "abc", "abc"}

	for _, query := range []string{"abc", "xyz", ""} {
		results := search.Rank(query, candidates)
		require.Len(t, results, 3)
		for i, res := range results {
			assert.Equal(t, i, res.Index, "query %q", query)
			assert.Equal(t, results[0].Score, res.Score)
		}
	}
}

func TestRankTiesKeepInputOrder(t *testing.T) {
	results := search.Rank("golang", []string{
		"python developer",
		"golang developer",
		"java developer",
		"golang developer",
		"rust developer",
	})
	require.Len(t, results, 5)

	indexes := make([]int, len(results))
	for i, res := range results {
		indexes[i] = res.Index
	}
	assert.Equal(t, []int{1, 3, 0, 2, 4}, indexes)
}

func TestRankEmptyCandidates(t *testing.T) {
	results := search.Rank("anything", nil)
	assert.NotNil(t, results)
	assert.Empty(t, results)

	results = search.Rank("anything", []string{})
	assert.Empty(t, results)
}

func TestRankDegenerateText(t *testing.T) {
	results := search.Rank("", []string{"the a an", "machine learning"})
	require.Len(t, results, 2)

	assert.Equal(t, search.RankedResult{Index: 0, Text: "the a an", Score: 0}, results[0])
	assert.Equal(t, search.RankedResult{Index: 1, Text: "machine learning", Score: 0}, results[1])
}

func TestRankEmptyVocabulary(t *testing.T) {
	results := search.Rank("the and of", []string{"is was", "", "123 456"})
	require.Len(t, results, 3)
	for i, res := range results {
		assert.Equal(t, i, res.Index)
		assert.Equal(t, 0.0, res.Score)
	}
}

func TestRankDeterministic(t *testing.T) {
	query := "senior backend engineer golang kubernetes"
	candidates := []string{
		"golang engineer with kubernetes",
		"frontend react developer",
		"backend engineer, golang and postgres",
		"kubernetes operator in golang",
	}

	first := search.Rank(query, candidates)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, search.Rank(query, candidates))
	}
}

func TestRankerMinTokenLength(t *testing.T) {
	candidates := []string{"c developer", "go developer"}

	// Single-rune tokens count by default.
	results := search.NewRanker().Rank("c", candidates)
	assert.Equal(t, 0, results[0].Index)
	assert.Greater(t, results[0].Score, 0.0)

	results = search.NewRanker(search.WithMinTokenLength(2)).Rank("c", candidates)
	for i, res := range results {
		assert.Equal(t, i, res.Index)
		assert.Equal(t, 0.0, res.Score)
	}
}
