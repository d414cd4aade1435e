package ai

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/arturoeanton/go-phrasematch-ollama/internal/domain"
	"github.com/arturoeanton/go-phrasematch-ollama/internal/port"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// OpenAIConfig holds the settings of the OpenAI embeddings endpoint.
type OpenAIConfig struct {
	APIKey  string
	Model   string // e.g. text-embedding-3-small
	BaseURL string // empty = api.openai.com
}

// OpenAIProvider implements port.EmbeddingProvider with the official OpenAI SDK.
type OpenAIProvider struct {
	cfg    OpenAIConfig
	client openai.Client
	ready  atomic.Bool
}

// NewOpenAIProvider creates a new OpenAI-backed embedding provider.
func NewOpenAIProvider(cfg OpenAIConfig, opts ...option.RequestOption) *OpenAIProvider {
	reqOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	reqOpts = append(reqOpts, opts...)

	return &OpenAIProvider{
		cfg:    cfg,
		client: openai.NewClient(reqOpts...),
	}
}

// ModelName returns the embedding model identifier.
func (p *OpenAIProvider) ModelName() string {
	return p.cfg.Model
}

// Init verifies the API key and that the model exists.
func (p *OpenAIProvider) Init(ctx context.Context) error {
	if p.cfg.APIKey == "" {
		return fmt.Errorf("%w: OPENAI_API_KEY not configured", port.ErrProviderInit)
	}
	if _, err := p.client.Models.Get(ctx, p.cfg.Model); err != nil {
		return fmt.Errorf("%w: openai model %q: %w", port.ErrProviderInit, p.cfg.Model, err)
	}
	p.ready.Store(true)
	return nil
}

// Embed generates a vector embedding for the given text.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) (domain.Embedding, error) {
	if !p.ready.Load() {
		return nil, port.ErrNotReady
	}

	resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: openai.EmbeddingModel(p.cfg.Model),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: openai embed: %w", port.ErrEmbedding, err)
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: openai embed: empty response", port.ErrEmbedding)
	}

	return domain.Embedding(resp.Data[0].Embedding), nil
}

// EmbedBatch embeds all texts with a single request.
func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([]domain.Embedding, error) {
	if !p.ready.Load() {
		return nil, port.ErrNotReady
	}

	resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(p.cfg.Model),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: openai embed batch: %w", port.ErrEmbedding, err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: openai embed batch: got %d embeddings for %d inputs", port.ErrEmbedding, len(resp.Data), len(texts))
	}

	// Data carries its input index; do not rely on response order.
	out := make([]domain.Embedding, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(texts) || len(d.Embedding) == 0 {
			return nil, fmt.Errorf("%w: openai embed batch: bad embedding at index %d", port.ErrEmbedding, d.Index)
		}
		out[d.Index] = domain.Embedding(d.Embedding)
	}
	for i, e := range out {
		if e == nil {
			return nil, fmt.Errorf("%w: openai embed batch: missing embedding for input %d", port.ErrEmbedding, i)
		}
	}
	return out, nil
}
