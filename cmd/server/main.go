package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arturoeanton/go-phrasematch-ollama/internal/adapter/ai"
	"github.com/arturoeanton/go-phrasematch-ollama/internal/adapter/cache"
	"github.com/arturoeanton/go-phrasematch-ollama/internal/adapter/store"
	"github.com/arturoeanton/go-phrasematch-ollama/internal/eventlog"
	"github.com/arturoeanton/go-phrasematch-ollama/internal/handler"
	"github.com/arturoeanton/go-phrasematch-ollama/internal/logger"
	"github.com/arturoeanton/go-phrasematch-ollama/internal/mcp"
	"github.com/arturoeanton/go-phrasematch-ollama/internal/metrics"
	"github.com/arturoeanton/go-phrasematch-ollama/internal/middleware"
	"github.com/arturoeanton/go-phrasematch-ollama/internal/port"
	"github.com/arturoeanton/go-phrasematch-ollama/internal/service"
	"github.com/arturoeanton/go-phrasematch-ollama/pkg/config"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "github.com/lib/pq"
)

const version = "1.0.0"

func main() {
	// ── Load .env file ───────────────────────────────────────────────────
	_ = godotenv.Load() // silently ignore if .env doesn't exist

	// ── Configuration ────────────────────────────────────────────────────
	cfg := config.Load()
	logger.Setup(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	slog.Info("Starting PhraseMatch",
		"port", cfg.Port,
		"provider", cfg.EmbedProvider,
		"model", cfg.EmbedModel(),
		"mcp_enabled", cfg.MCPEnabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── Database (optional) ──────────────────────────────────────────────
	var (
		history       port.HistoryWriter = port.NopHistory{}
		historyReader handler.HistoryReader
		auditWriter   port.AuditWriter
	)
	if cfg.DatabaseURL != "" {
		pgStore, err := store.NewPostgresStore(cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pgStore.Close()

		if err := pgStore.Migrate(ctx); err != nil {
			slog.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
		history, historyReader, auditWriter = pgStore, pgStore, pgStore
	}

	// ── Embedding provider ───────────────────────────────────────────────
	provider, err := ai.NewProvider(ai.ProviderConfig{
		Name: cfg.EmbedProvider,
		Ollama: ai.OllamaEndpointConfig{
			BaseURL: cfg.OllamaEmbedURL,
			Model:   cfg.OllamaEmbedModel,
			Token:   cfg.OllamaEmbedToken,
		},
		OpenAI: ai.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIEmbedModel,
			BaseURL: cfg.OpenAIBaseURL,
		},
		Timeout: cfg.EmbedTimeout,
	})
	if err != nil {
		slog.Error("invalid embedding provider", "error", err)
		os.Exit(1)
	}
	if cfg.BreakerEnabled {
		provider = ai.NewBreakerProvider(provider, cfg.BreakerTimeout, cfg.BreakerMaxFailures)
	}
	if cfg.RedisURL != "" {
		redisClient, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		provider = cache.NewEmbeddingCache(provider, redisClient, cfg.EmbedCacheTTL)
	}

	// ── Services ─────────────────────────────────────────────────────────
	matcher := service.NewMatcherService(provider, service.MatcherOptions{
		Phrases:         cfg.ReferencePhrases,
		InitConcurrency: cfg.InitConcurrency,
		QueryTimeout:    cfg.QueryTimeout,
		History:         history,
		Events:          eventlog.New(cfg.EventLogSize),
	})

	matcher.Events().Infof("Application starting...")
	go func() {
		if err := matcher.Initialize(ctx); err != nil {
			slog.Error("matcher initialization failed; retry via POST /api/v1/admin/initialize", "error", err)
		}
	}()

	// ── Fiber App ────────────────────────────────────────────────────────
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: []string{cfg.FrontendURL},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
	}))
	if auditWriter != nil {
		app.Use(middleware.AuditMiddleware(auditWriter))
	}

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	// ── Public Routes ────────────────────────────────────────────────────
	api := app.Group("/api/v1")

	handler.NewHealthHandler(cfg.AppName, version, matcher).Register(api)
	handler.NewMatchHandler(matcher).Register(api)
	handler.NewEventsHandler(matcher.Events()).Register(api)

	// ── Admin Routes ─────────────────────────────────────────────────────
	var admin fiber.Router
	if cfg.JWTSecret != "" {
		admin = api.Group("/admin", middleware.JWTMiddleware(middleware.JWTConfig{
			Secret: cfg.JWTSecret,
			Issuer: cfg.JWTIssuer,
		}))
	} else {
		slog.Warn("JWT_SECRET not set; admin routes are unauthenticated")
		admin = api.Group("/admin")
	}
	handler.NewAdminHandler(matcher, historyReader, cfg.EmbedTimeout*time.Duration(len(matcher.Phrases())+1)).Register(admin)

	// ── MCP Server (separate port) ───────────────────────────────────────
	if cfg.MCPEnabled {
		mcpServer := mcp.NewServer(matcher, cfg.MCPPort, version).WithAudit(auditWriter)
		go func() {
			if err := mcpServer.Start(); err != nil {
				slog.Error("MCP server failed", "error", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
	}()

	// ── Start ────────────────────────────────────────────────────────────
	slog.Info("Fiber listening", "port", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
