package ai

import (
	"fmt"
	"time"

	"github.com/arturoeanton/go-phrasematch-ollama/internal/port"
)

// Supported provider names.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// ProviderConfig selects and configures an embedding provider.
type ProviderConfig struct {
	Name    string
	Ollama  OllamaEndpointConfig
	OpenAI  OpenAIConfig
	Timeout time.Duration
}

// NewProvider returns the provider named by cfg.Name.
func NewProvider(cfg ProviderConfig) (port.EmbeddingProvider, error) {
	switch cfg.Name {
	case ProviderOllama, "":
		return NewOllamaProvider(cfg.Ollama, cfg.Timeout), nil
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg.OpenAI), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Name)
	}
}
