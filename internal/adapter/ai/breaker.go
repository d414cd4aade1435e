package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arturoeanton/go-phrasematch-ollama/internal/domain"
	"github.com/arturoeanton/go-phrasematch-ollama/internal/port"
	"github.com/sony/gobreaker"
)

// BreakerProvider guards Embed calls of another provider with a circuit breaker.
// Init is passed through untouched.
type BreakerProvider struct {
	next    port.EmbeddingProvider
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerProvider wraps next. The breaker opens after maxFailures
// consecutive failures and half-opens again after timeout.
func NewBreakerProvider(next port.EmbeddingProvider, timeout time.Duration, maxFailures uint32) *BreakerProvider {
	settings := gobreaker.Settings{
		Name:        "embed:" + next.ModelName(),
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		// Not-ready rejections are a caller ordering problem, not a provider fault.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, port.ErrNotReady)
		},
	}
	return &BreakerProvider{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// ModelName returns the wrapped provider's model.
func (b *BreakerProvider) ModelName() string {
	return b.next.ModelName()
}

// Init implements port.EmbeddingProvider.
func (b *BreakerProvider) Init(ctx context.Context) error {
	return b.next.Init(ctx)
}

// Embed implements port.EmbeddingProvider.
func (b *BreakerProvider) Embed(ctx context.Context, text string) (domain.Embedding, error) {
	out, err := b.breaker.Execute(func() (interface{}, error) {
		return b.next.Embed(ctx, text)
	})
	if err != nil {
		return nil, b.wrapOpen(err)
	}
	return out.(domain.Embedding), nil
}

// wrapOpen marks breaker rejections as embedding failures.
func (b *BreakerProvider) wrapOpen(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: breaker (%s): %w", port.ErrEmbedding, b.breaker.Name(), err)
	}
	return err
}

// EmbedBatch runs a batch through the breaker as a single call. Providers
// without batch support are asked one text at a time inside that call.
func (b *BreakerProvider) EmbedBatch(ctx context.Context, texts []string) ([]domain.Embedding, error) {
	out, err := b.breaker.Execute(func() (interface{}, error) {
		if batcher, ok := b.next.(port.BatchEmbedder); ok {
			return batcher.EmbedBatch(ctx, texts)
		}
		embs := make([]domain.Embedding, len(texts))
		for i, text := range texts {
			emb, err := b.next.Embed(ctx, text)
			if err != nil {
				return nil, err
			}
			embs[i] = emb
		}
		return embs, nil
	})
	if err != nil {
		return nil, b.wrapOpen(err)
	}
	return out.([]domain.Embedding), nil
}

// State returns the current breaker state name.
func (b *BreakerProvider) State() string {
	return b.breaker.State().String()
}
