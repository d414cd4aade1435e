package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/arturoeanton/go-phrasematch-ollama/internal/domain"
	"github.com/arturoeanton/go-phrasematch-ollama/internal/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOllamaServer(t *testing.T, showStatus int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/show", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(showStatus)
		_, _ = w.Write([]byte(`{}`))
	})
	mux.HandleFunc("/api/embed", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		var body struct {
			Model string          `json:"model"`
			Input json.RawMessage `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "bge-m3", body.Model)

		var batch []string
		if json.Unmarshal(body.Input, &batch) == nil {
			out := make([][]float64, 0, len(batch))
			for i, text := range batch {
				if text == "drop" {
					continue
				}
				out = append(out, []float64{float64(i), 1})
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": out})
			return
		}
		var input string
		require.NoError(t, json.Unmarshal(body.Input, &input))
		if input == "empty" {
			_, _ = w.Write([]byte(`{"embeddings":[]}`))
			return
		}
		_, _ = w.Write([]byte(`{"embeddings":[[0.5,0.25,-1]]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestOllamaProvider_EmbedBeforeInit(t *testing.T) {
	srv := newOllamaServer(t, http.StatusOK)
	p := NewOllamaProvider(OllamaEndpointConfig{BaseURL: srv.URL, Model: "bge-m3", Token: "secret"}, time.Second)

	_, err := p.Embed(context.Background(), "hello")
	assert.ErrorIs(t, err, port.ErrNotReady)
}

func TestOllamaProvider_InitAndEmbed(t *testing.T) {
	srv := newOllamaServer(t, http.StatusOK)
	p := NewOllamaProvider(OllamaEndpointConfig{BaseURL: srv.URL, Model: "bge-m3", Token: "secret"}, time.Second)

	require.NoError(t, p.Init(context.Background()))
	got, err := p.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, domain.Embedding{0.5, 0.25, -1}, got)
	assert.Equal(t, "bge-m3", p.ModelName())
}

func TestOllamaProvider_InitModelMissing(t *testing.T) {
	srv := newOllamaServer(t, http.StatusNotFound)
	p := NewOllamaProvider(OllamaEndpointConfig{BaseURL: srv.URL, Model: "bge-m3"}, time.Second)

	err := p.Init(context.Background())
	assert.ErrorIs(t, err, port.ErrProviderInit)

	_, err = p.Embed(context.Background(), "hello")
	assert.ErrorIs(t, err, port.ErrNotReady)
}

func TestOllamaProvider_EmptyResponse(t *testing.T) {
	srv := newOllamaServer(t, http.StatusOK)
	p := NewOllamaProvider(OllamaEndpointConfig{BaseURL: srv.URL, Model: "bge-m3", Token: "secret"}, time.Second)
	require.NoError(t, p.Init(context.Background()))

	_, err := p.Embed(context.Background(), "empty")
	assert.ErrorIs(t, err, port.ErrEmbedding)
}

func TestOllamaProvider_Unreachable(t *testing.T) {
	p := NewOllamaProvider(OllamaEndpointConfig{BaseURL: "http://127.0.0.1:1", Model: "bge-m3"}, time.Second)
	assert.ErrorIs(t, p.Init(context.Background()), port.ErrProviderInit)
}

func TestOllamaProvider_EmbedBatch(t *testing.T) {
	srv := newOllamaServer(t, http.StatusOK)
	p := NewOllamaProvider(OllamaEndpointConfig{BaseURL: srv.URL, Model: "bge-m3", Token: "secret"}, time.Second)

	_, err := p.EmbedBatch(context.Background(), []string{"a", "b"})
	assert.ErrorIs(t, err, port.ErrNotReady)

	require.NoError(t, p.Init(context.Background()))
	got, err := p.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []domain.Embedding{{0, 1}, {1, 1}}, got)

	_, err = p.EmbedBatch(context.Background(), []string{"a", "drop"})
	assert.ErrorIs(t, err, port.ErrEmbedding)
}

func TestOllamaProvider_InitKeepsCause(t *testing.T) {
	p := NewOllamaProvider(OllamaEndpointConfig{BaseURL: "http://127.0.0.1:1", Model: "bge-m3"}, time.Second)

	err := p.Init(context.Background())
	var netErr interface{ Timeout() bool }
	assert.ErrorAs(t, err, &netErr)
}
