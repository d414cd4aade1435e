// Package similarity ranks reference embeddings against a query by cosine similarity.
package similarity

import (
	"fmt"
	"math"

	"github.com/arturoeanton/go-phrasematch-ollama/internal/domain"
)

// Cosine returns the cosine similarity of a and b in [-1, 1].
// It returns 0 when either vector has zero magnitude. Both vectors must
// have the same length; a mismatch is a programming error and panics.
func Cosine(a, b domain.Embedding) float64 {
	if len(a) != len(b) {
		panic(fmt.Sprintf("similarity: dimension mismatch (%d != %d)", len(a), len(b)))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	normA = math.Sqrt(normA)
	normB = math.Sqrt(normB)
	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (normA * normB)
}

// Rank returns the candidate most similar to query. Candidates without an
// embedding are skipped. Ties keep the earliest candidate. When nothing can
// be compared the no-match sentinel is returned.
func Rank(query domain.Embedding, candidates []domain.ReferenceEntry) domain.MatchResult {
	best := domain.NoMatch()
	for _, c := range candidates {
		if !c.HasEmbedding() {
			continue
		}
		if score := Cosine(query, c.Embedding); score > best.Score {
			best = domain.MatchResult{Label: c.Label, Score: score}
		}
	}
	return best
}

// Scores returns the similarity of query to every candidate that has an
// embedding, in candidate order.
func Scores(query domain.Embedding, candidates []domain.ReferenceEntry) []domain.Comparison {
	out := make([]domain.Comparison, 0, len(candidates))
	for _, c := range candidates {
		if !c.HasEmbedding() {
			continue
		}
		out = append(out, domain.Comparison{Label: c.Label, Score: Cosine(query, c.Embedding)})
	}
	return out
}

// Best picks the winning comparison using the same rule as Rank: strict
// greater-than over the sentinel, first maximum wins.
func Best(scores []domain.Comparison) domain.MatchResult {
	best := domain.NoMatch()
	for _, s := range scores {
		if s.Score > best.Score {
			best = domain.MatchResult{Label: s.Label, Score: s.Score}
		}
	}
	return best
}
