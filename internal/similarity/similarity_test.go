package similarity

import (
	"testing"

	"github.com/arturoeanton/go-phrasematch-ollama/internal/domain"
	"github.com/stretchr/testify/assert"
)

func refs() []domain.ReferenceEntry {
	return []domain.ReferenceEntry{
		{Label: "A", Embedding: domain.Embedding{1, 0}},
		{Label: "B", Embedding: domain.Embedding{0, 1}},
	}
}

func TestCosine_Symmetric(t *testing.T) {
	pairs := [][2]domain.Embedding{
		{{1, 2, 3}, {4, 5, 6}},
		{{-1, 0.5, 2}, {3, -2, 0.25}},
		{{0.1, 0.2}, {0.2, 0.1}},
	}
	for _, p := range pairs {
		assert.InDelta(t, Cosine(p[0], p[1]), Cosine(p[1], p[0]), 1e-12)
	}
}

func TestCosine_SelfIsOne(t *testing.T) {
	for _, v := range []domain.Embedding{{1, 2, 3}, {-4, 0, 0.5}, {1e-3, 1e-3}} {
		assert.InDelta(t, 1.0, Cosine(v, v), 1e-9)
	}
}

func TestCosine_ZeroVector(t *testing.T) {
	zero := domain.Embedding{0, 0, 0}
	v := domain.Embedding{1, 2, 3}

	assert.NotPanics(t, func() {
		assert.Equal(t, 0.0, Cosine(zero, v))
		assert.Equal(t, 0.0, Cosine(v, zero))
		assert.Equal(t, 0.0, Cosine(zero, zero))
	})
}

func TestCosine_Opposite(t *testing.T) {
	assert.InDelta(t, -1.0, Cosine(domain.Embedding{1, 1}, domain.Embedding{-1, -1}), 1e-12)
}

func TestCosine_LengthMismatchPanics(t *testing.T) {
	assert.Panics(t, func() {
		Cosine(domain.Embedding{1, 2}, domain.Embedding{1, 2, 3})
	})
}

func TestRank_Empty(t *testing.T) {
	got := Rank(domain.Embedding{1, 0}, nil)
	assert.Equal(t, domain.NoMatch(), got)
	assert.True(t, got.IsNoMatch())
}

func TestRank_AllAbsent(t *testing.T) {
	candidates := []domain.ReferenceEntry{{Label: "A"}, {Label: "B"}}
	assert.Equal(t, domain.NoMatch(), Rank(domain.Embedding{1, 0}, candidates))
}

func TestRank_ExactMatch(t *testing.T) {
	got := Rank(domain.Embedding{1, 0}, refs())
	assert.Equal(t, "A", got.Label)
	assert.InDelta(t, 1.0, got.Score, 1e-12)
}

func TestRank_TieKeepsFirst(t *testing.T) {
	got := Rank(domain.Embedding{0.7071, 0.7071}, refs())
	assert.Equal(t, "A", got.Label)
	assert.InDelta(t, 0.7071, got.Score, 1e-4)

	reversed := []domain.ReferenceEntry{refs()[1], refs()[0]}
	assert.Equal(t, "B", Rank(domain.Embedding{0.7071, 0.7071}, reversed).Label)
}

func TestRank_SkipsAbsentEmbedding(t *testing.T) {
	candidates := []domain.ReferenceEntry{
		{Label: "pending"},
		{Label: "B", Embedding: domain.Embedding{0, 1}},
	}
	got := Rank(domain.Embedding{1, 0}, candidates)
	assert.Equal(t, "B", got.Label)
	assert.Equal(t, 0.0, got.Score)
}

func TestRank_PicksStrictMaximum(t *testing.T) {
	candidates := []domain.ReferenceEntry{
		{Label: "far", Embedding: domain.Embedding{-1, 0, 0}},
		{Label: "close", Embedding: domain.Embedding{0.9, 0.1, 0}},
		{Label: "mid", Embedding: domain.Embedding{0.5, 0.5, 0.5}},
	}
	got := Rank(domain.Embedding{1, 0, 0}, candidates)
	assert.Equal(t, "close", got.Label)
	assert.Greater(t, got.Score, 0.9)
}

func TestRank_DoesNotMutateInputs(t *testing.T) {
	query := domain.Embedding{3, 4}
	candidates := refs()
	Rank(query, candidates)

	assert.Equal(t, domain.Embedding{3, 4}, query)
	assert.Equal(t, refs(), candidates)
}

func TestScores_MatchRank(t *testing.T) {
	query := domain.Embedding{0.2, 0.9}
	candidates := append(refs(), domain.ReferenceEntry{Label: "C"})

	scores := Scores(query, candidates)
	assert.Len(t, scores, 2)
	assert.Equal(t, "A", scores[0].Label)
	assert.Equal(t, "B", scores[1].Label)
	assert.Equal(t, Rank(query, candidates), Best(scores))
}

func TestBest_Empty(t *testing.T) {
	assert.Equal(t, domain.NoMatch(), Best(nil))
}
