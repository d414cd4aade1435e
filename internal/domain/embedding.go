package domain

// Embedding is the fixed-length vector a provider returns for one text.
// Its dimension is decided by the provider model and never changes afterwards.
type Embedding []float64

// ReferenceEntry is a labelled reference phrase and its cached embedding.
// A nil Embedding means the phrase has not been embedded yet.
type ReferenceEntry struct {
	Label     string    `json:"label"`
	Embedding Embedding `json:"-"`
}

// HasEmbedding reports whether the entry can take part in ranking.
func (r ReferenceEntry) HasEmbedding() bool {
	return r.Embedding != nil
}

// NoMatchLabel and NoMatchScore form the result returned when nothing
// could be compared. The score sits outside the valid cosine range.
const (
	NoMatchLabel = "no match"
	NoMatchScore = -1.0
)

// MatchResult is the best reference phrase for a query.
type MatchResult struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// NoMatch returns the sentinel result.
func NoMatch() MatchResult {
	return MatchResult{Label: NoMatchLabel, Score: NoMatchScore}
}

// IsNoMatch reports whether r is the sentinel result.
func (r MatchResult) IsNoMatch() bool {
	return r.Label == NoMatchLabel && r.Score == NoMatchScore
}

// Comparison is the score of a query against a single reference phrase.
type Comparison struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}
