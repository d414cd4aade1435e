package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Server
	Port    string
	AppName string

	// Logging
	LogLevel  string
	LogFormat string // text or json

	// Embedding provider
	EmbedProvider string // ollama or openai
	EmbedTimeout  time.Duration

	// Ollama embed endpoint
	OllamaEmbedURL   string
	OllamaEmbedModel string
	OllamaEmbedToken string // Bearer token for Ollama Cloud (empty = local)

	// OpenAI
	OpenAIAPIKey     string
	OpenAIEmbedModel string
	OpenAIBaseURL    string

	// Matcher
	ReferencePhrases []string
	InitConcurrency  int
	QueryTimeout     time.Duration // 0 = no timeout
	EventLogSize     int

	// Circuit breaker around embed calls
	BreakerEnabled     bool
	BreakerMaxFailures uint32
	BreakerTimeout     time.Duration

	// Database (empty = match history and audit disabled)
	DatabaseURL string

	// Redis embedding cache (empty = disabled)
	RedisURL      string
	EmbedCacheTTL time.Duration

	// JWT for admin routes (empty secret = admin routes unprotected)
	JWTSecret string
	JWTIssuer string

	// MCP
	MCPEnabled bool
	MCPPort    string

	// Frontend
	FrontendURL string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Port:    envOrDefault("PORT", "3001"),
		AppName: envOrDefault("APP_NAME", "PhraseMatch"),

		LogLevel:  envOrDefault("LOG_LEVEL", "info"),
		LogFormat: envOrDefault("LOG_FORMAT", "text"),

		EmbedProvider: envOrDefault("EMBED_PROVIDER", "ollama"),
		EmbedTimeout:  time.Duration(envOrDefaultInt("EMBED_TIMEOUT_SECONDS", 60)) * time.Second,

		OllamaEmbedURL:   envOrDefault("OLLAMA_EMBED_URL", envOrDefault("OLLAMA_BASE_URL", "http://localhost:11434")),
		OllamaEmbedModel: envOrDefault("OLLAMA_EMBED_MODEL", "bge-m3"),
		OllamaEmbedToken: os.Getenv("OLLAMA_EMBED_TOKEN"),

		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIEmbedModel: envOrDefault("OPENAI_EMBED_MODEL", "text-embedding-3-small"),
		OpenAIBaseURL:    os.Getenv("OPENAI_BASE_URL"),

		ReferencePhrases: envList("REFERENCE_PHRASES", "|"),
		InitConcurrency:  envOrDefaultInt("INIT_CONCURRENCY", 1),
		QueryTimeout:     time.Duration(envOrDefaultInt("QUERY_TIMEOUT_SECONDS", 0)) * time.Second,
		EventLogSize:     envOrDefaultInt("EVENT_LOG_SIZE", 50),

		BreakerEnabled:     envOrDefaultBool("BREAKER_ENABLED", true),
		BreakerMaxFailures: uint32(envOrDefaultInt("BREAKER_MAX_FAILURES", 5)),
		BreakerTimeout:     time.Duration(envOrDefaultInt("BREAKER_TIMEOUT_SECONDS", 30)) * time.Second,

		DatabaseURL: os.Getenv("DATABASE_URL"),

		RedisURL:      os.Getenv("REDIS_URL"),
		EmbedCacheTTL: time.Duration(envOrDefaultInt("EMBED_CACHE_TTL_HOURS", 24)) * time.Hour,

		JWTSecret: os.Getenv("JWT_SECRET"),
		JWTIssuer: envOrDefault("JWT_ISSUER", "phrasematch"),

		MCPEnabled: envOrDefaultBool("MCP_ENABLED", false),
		MCPPort:    envOrDefault("MCP_PORT", "3002"),

		FrontendURL: envOrDefault("FRONTEND_URL", "http://localhost:3000"),
	}
}

// EmbedModel returns the model of the selected provider.
func (c *Config) EmbedModel() string {
	if c.EmbedProvider == "openai" {
		return c.OpenAIEmbedModel
	}
	return c.OllamaEmbedModel
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return fallback
}

func envOrDefaultBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

// envList splits key on sep, dropping blank items. Unset returns nil.
func envList(key, sep string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(v, sep) {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
