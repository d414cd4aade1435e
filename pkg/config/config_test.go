package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "EMBED_PROVIDER", "OLLAMA_EMBED_URL", "OLLAMA_BASE_URL", "REFERENCE_PHRASES", "QUERY_TIMEOUT_SECONDS", "DATABASE_URL", "REDIS_URL"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	assert.Equal(t, "3001", cfg.Port)
	assert.Equal(t, "ollama", cfg.EmbedProvider)
	assert.Equal(t, "http://localhost:11434", cfg.OllamaEmbedURL)
	assert.Equal(t, "bge-m3", cfg.EmbedModel())
	assert.Nil(t, cfg.ReferencePhrases)
	assert.Equal(t, time.Duration(0), cfg.QueryTimeout)
	assert.Equal(t, 50, cfg.EventLogSize)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Empty(t, cfg.RedisURL)
	assert.Equal(t, 24*time.Hour, cfg.EmbedCacheTTL)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("EMBED_PROVIDER", "openai")
	t.Setenv("OPENAI_EMBED_MODEL", "text-embedding-3-large")
	t.Setenv("REFERENCE_PHRASES", " Reset password | | Talk to support|")
	t.Setenv("QUERY_TIMEOUT_SECONDS", "5")
	t.Setenv("INIT_CONCURRENCY", "not-a-number")
	t.Setenv("BREAKER_ENABLED", "false")

	cfg := Load()
	assert.Equal(t, "text-embedding-3-large", cfg.EmbedModel())
	assert.Equal(t, []string{"Reset password", "Talk to support"}, cfg.ReferencePhrases)
	assert.Equal(t, 5*time.Second, cfg.QueryTimeout)
	assert.Equal(t, 1, cfg.InitConcurrency)
	assert.False(t, cfg.BreakerEnabled)
}

func TestLoad_OllamaBaseURLFallback(t *testing.T) {
	t.Setenv("OLLAMA_EMBED_URL", "")
	t.Setenv("OLLAMA_BASE_URL", "http://ollama:11434")

	assert.Equal(t, "http://ollama:11434", Load().OllamaEmbedURL)
}
