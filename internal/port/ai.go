package port

import (
	"context"

	"github.com/arturoeanton/go-phrasematch-ollama/internal/domain"
)

// EmbeddingProvider abstracts the sentence-embedding backend.
// Implementations can target Ollama, OpenAI, or any compatible API.
type EmbeddingProvider interface {
	// ModelName returns the identifier of the embedding model.
	ModelName() string

	// Init performs the one-time, fallible readiness step. It must succeed
	// before Embed is called; Embed calls issued earlier fail with ErrNotReady.
	Init(ctx context.Context) error

	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) (domain.Embedding, error)
}

// BatchEmbedder is implemented by providers that can embed several texts in
// one round trip. The result holds one embedding per text, in input order.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([]domain.Embedding, error)
}
