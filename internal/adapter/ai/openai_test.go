package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/arturoeanton/go-phrasematch-ollama/internal/domain"
	"github.com/arturoeanton/go-phrasematch-ollama/internal/port"
	"github.com/openai/openai-go/v2/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOpenAIServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/models/text-embedding-3-small", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"text-embedding-3-small","object":"model","created":1,"owned_by":"openai"}`))
	})
	mux.HandleFunc("/embeddings", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		var body struct {
			Input json.RawMessage `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		if strings.HasPrefix(string(body.Input), "[") {
			// Batch answers out of order; index decides placement.
			_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":1,"embedding":[0,1]},{"object":"embedding","index":0,"embedding":[1,0]}],"model":"text-embedding-3-small","usage":{"prompt_tokens":4,"total_tokens":4}}`))
			return
		}
		_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,"embedding":[0.1,0.2,0.3]}],"model":"text-embedding-3-small","usage":{"prompt_tokens":2,"total_tokens":2}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIProvider_MissingKey(t *testing.T) {
	p := NewOpenAIProvider(OpenAIConfig{Model: "text-embedding-3-small"})
	assert.ErrorIs(t, p.Init(context.Background()), port.ErrProviderInit)

	_, err := p.Embed(context.Background(), "hello")
	assert.ErrorIs(t, err, port.ErrNotReady)
}

func TestOpenAIProvider_InitAndEmbed(t *testing.T) {
	srv := newOpenAIServer(t)
	p := NewOpenAIProvider(
		OpenAIConfig{APIKey: "sk-test", Model: "text-embedding-3-small", BaseURL: srv.URL + "/"},
		option.WithMaxRetries(0),
	)

	require.NoError(t, p.Init(context.Background()))
	got, err := p.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, domain.Embedding{0.1, 0.2, 0.3}, got)
}

func TestOpenAIProvider_UnknownModel(t *testing.T) {
	srv := newOpenAIServer(t)
	p := NewOpenAIProvider(
		OpenAIConfig{APIKey: "sk-test", Model: "nope", BaseURL: srv.URL + "/"},
		option.WithMaxRetries(0),
	)
	assert.ErrorIs(t, p.Init(context.Background()), port.ErrProviderInit)
}

func TestOpenAIProvider_EmbedBatch(t *testing.T) {
	srv := newOpenAIServer(t)
	p := NewOpenAIProvider(
		OpenAIConfig{APIKey: "sk-test", Model: "text-embedding-3-small", BaseURL: srv.URL + "/"},
		option.WithMaxRetries(0),
	)

	_, err := p.EmbedBatch(context.Background(), []string{"a", "b"})
	assert.ErrorIs(t, err, port.ErrNotReady)

	require.NoError(t, p.Init(context.Background()))
	got, err := p.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []domain.Embedding{{1, 0}, {0, 1}}, got)

	_, err = p.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	assert.ErrorIs(t, err, port.ErrEmbedding)
}
