package handler

import (
	"github.com/arturoeanton/go-phrasematch-ollama/internal/service"
	"github.com/gofiber/fiber/v3"
)

// HealthHandler reports liveness and matcher readiness.
type HealthHandler struct {
	appName string
	version string
	matcher *service.MatcherService
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(appName, version string, matcher *service.MatcherService) *HealthHandler {
	return &HealthHandler{appName: appName, version: version, matcher: matcher}
}

// Register sets up health routes.
func (h *HealthHandler) Register(router fiber.Router) {
	router.Get("/health", h.Health)
	router.Get("/ready", h.Ready)
}

// Health always answers 200 while the process is up.
func (h *HealthHandler) Health(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"app":     h.appName,
		"version": h.version,
		"state":   h.matcher.State(),
		"model":   h.matcher.ModelName(),
	})
}

// Ready answers 503 until the reference cache is populated.
func (h *HealthHandler) Ready(c fiber.Ctx) error {
	if !h.matcher.Ready() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"state": h.matcher.State()})
	}
	return c.JSON(fiber.Map{"state": h.matcher.State()})
}
