package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/arturoeanton/go-phrasematch-ollama/internal/domain"
	"github.com/arturoeanton/go-phrasematch-ollama/internal/port"
)

// OllamaEndpointConfig holds the configuration for a single Ollama endpoint.
type OllamaEndpointConfig struct {
	BaseURL string // e.g. http://localhost:11434 or https://api.ollama.com
	Model   string // e.g. bge-m3, nomic-embed-text
	Token   string // Bearer token for Ollama Cloud (empty = no auth)
}

// OllamaProvider implements port.EmbeddingProvider using the Ollama REST API.
type OllamaProvider struct {
	cfg        OllamaEndpointConfig
	httpClient *http.Client
	ready      atomic.Bool
}

// NewOllamaProvider creates a new Ollama-backed embedding provider.
func NewOllamaProvider(cfg OllamaEndpointConfig, timeout time.Duration) *OllamaProvider {
	return &OllamaProvider{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ModelName returns the embedding model identifier.
func (o *OllamaProvider) ModelName() string {
	return o.cfg.Model
}

// Init checks that the configured model is available on the Ollama server.
func (o *OllamaProvider) Init(ctx context.Context) error {
	payload := map[string]interface{}{
		"model": o.cfg.Model,
	}
	if _, err := o.post(ctx, "/api/show", payload); err != nil {
		return fmt.Errorf("%w: ollama model %q: %w", port.ErrProviderInit, o.cfg.Model, err)
	}
	o.ready.Store(true)
	return nil
}

// Embed generates a vector embedding for the given text.
func (o *OllamaProvider) Embed(ctx context.Context, text string) (domain.Embedding, error) {
	if !o.ready.Load() {
		return nil, port.ErrNotReady
	}

	payload := map[string]interface{}{
		"model": o.cfg.Model,
		"input": text,
	}

	body, err := o.post(ctx, "/api/embed", payload)
	if err != nil {
		return nil, fmt.Errorf("%w: ollama embed: %w", port.ErrEmbedding, err)
	}

	var resp struct {
		Embeddings [][]float64 `json:"embeddings"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: ollama embed decode: %w", port.ErrEmbedding, err)
	}

	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0]) == 0 {
		return nil, fmt.Errorf("%w: ollama embed: empty response", port.ErrEmbedding)
	}

	return domain.Embedding(resp.Embeddings[0]), nil
}

// EmbedBatch generates embeddings for multiple texts in one call.
func (o *OllamaProvider) EmbedBatch(ctx context.Context, texts []string) ([]domain.Embedding, error) {
	if !o.ready.Load() {
		return nil, port.ErrNotReady
	}

	payload := map[string]interface{}{
		"model": o.cfg.Model,
		"input": texts,
	}

	body, err := o.post(ctx, "/api/embed", payload)
	if err != nil {
		return nil, fmt.Errorf("%w: ollama embed batch: %w", port.ErrEmbedding, err)
	}

	var resp struct {
		Embeddings [][]float64 `json:"embeddings"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: ollama embed batch decode: %w", port.ErrEmbedding, err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: ollama embed batch: got %d embeddings for %d inputs", port.ErrEmbedding, len(resp.Embeddings), len(texts))
	}

	out := make([]domain.Embedding, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		if len(e) == 0 {
			return nil, fmt.Errorf("%w: ollama embed batch: empty embedding at %d", port.ErrEmbedding, i)
		}
		out[i] = domain.Embedding(e)
	}
	return out, nil
}

// post is a helper for POST requests to the Ollama endpoint (with optional bearer token).
func (o *OllamaProvider) post(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.cfg.BaseURL+path, bytes.NewReader(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if o.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+o.cfg.Token)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama API error (%d): %s", resp.StatusCode, string(body))
	}

	return io.ReadAll(resp.Body)
}
