package handler

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/arturoeanton/go-phrasematch-ollama/internal/adapter/store"
	"github.com/arturoeanton/go-phrasematch-ollama/internal/domain"
	"github.com/arturoeanton/go-phrasematch-ollama/internal/middleware"
	"github.com/arturoeanton/go-phrasematch-ollama/internal/service"
	"github.com/gofiber/fiber/v3"
)

// HistoryReader is the read side of the match history and audit log.
type HistoryReader interface {
	ListMatches(ctx context.Context, limit int, label string) ([]domain.MatchRecord, error)
	MatchStats(ctx context.Context) ([]store.LabelStat, error)
	ListAuditLogs(ctx context.Context, limit int, action string) ([]domain.AuditLog, error)
}

// AdminHandler handles operator endpoints: re-initialization, history and audit.
type AdminHandler struct {
	matcher     *service.MatcherService
	history     HistoryReader // nil when no database is configured
	initTimeout time.Duration
}

// NewAdminHandler creates a new admin handler. history may be nil.
func NewAdminHandler(matcher *service.MatcherService, history HistoryReader, initTimeout time.Duration) *AdminHandler {
	return &AdminHandler{matcher: matcher, history: history, initTimeout: initTimeout}
}

// Register sets up admin routes.
func (h *AdminHandler) Register(router fiber.Router) {
	router.Post("/initialize", h.Initialize)
	router.Get("/history", h.ListHistory)
	router.Get("/history/stats", h.Stats)
	router.Get("/audit", h.ListAudit)
}

// Initialize starts matcher initialization in the background and returns 202.
// It is the retry path after a provider failure.
func (h *AdminHandler) Initialize(c fiber.Ctx) error {
	if h.matcher.Ready() {
		middleware.AuditDetail(c, "state", service.StateReady)
		return c.JSON(fiber.Map{"state": service.StateReady})
	}
	middleware.AuditDetail(c, "state", service.StateInitializing)

	go func() {
		ctx := context.Background()
		if h.initTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, h.initTimeout)
			defer cancel()
		}
		if err := h.matcher.Initialize(ctx); err != nil {
			slog.Error("matcher initialization failed", "error", err)
		}
	}()

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"state": service.StateInitializing})
}

// ListHistory returns recent matches with an optional ?label= filter.
func (h *AdminHandler) ListHistory(c fiber.Ctx) error {
	if h.history == nil {
		return historyDisabled(c)
	}
	limit, _ := strconv.Atoi(c.Query("limit", "100"))

	matches, err := h.history.ListMatches(c.Context(), limit, c.Query("label", ""))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{
		"matches": matches,
		"count":   len(matches),
	})
}

// Stats returns per-label win counts and mean scores.
func (h *AdminHandler) Stats(c fiber.Ctx) error {
	if h.history == nil {
		return historyDisabled(c)
	}
	stats, err := h.history.MatchStats(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"stats": stats})
}

// ListAudit returns audit logs with optional filtering.
func (h *AdminHandler) ListAudit(c fiber.Ctx) error {
	if h.history == nil {
		return historyDisabled(c)
	}
	limit, _ := strconv.Atoi(c.Query("limit", "100"))

	logs, err := h.history.ListAuditLogs(c.Context(), limit, c.Query("action", ""))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{
		"logs":  logs,
		"count": len(logs),
	})
}

func historyDisabled(c fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "history disabled: DATABASE_URL not configured"})
}
