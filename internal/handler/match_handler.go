package handler

import (
	"errors"

	"github.com/arturoeanton/go-phrasematch-ollama/internal/middleware"
	"github.com/arturoeanton/go-phrasematch-ollama/internal/port"
	"github.com/arturoeanton/go-phrasematch-ollama/internal/service"
	"github.com/gofiber/fiber/v3"
)

// MatchHandler handles the semantic match endpoints.
type MatchHandler struct {
	matcher *service.MatcherService
}

// NewMatchHandler creates a new match handler.
func NewMatchHandler(matcher *service.MatcherService) *MatchHandler {
	return &MatchHandler{matcher: matcher}
}

// Register sets up match routes.
func (h *MatchHandler) Register(router fiber.Router) {
	router.Post("/match", h.Match)
	router.Get("/references", h.ListReferences)
}

// Match returns the reference phrase closest to the submitted text.
func (h *MatchHandler) Match(c fiber.Ctx) error {
	var body struct {
		Text string `json:"text"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	m, err := h.matcher.Query(c.Context(), body.Text)
	if err != nil {
		middleware.AuditDetail(c, "error", err.Error())
		return c.Status(errorStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}
	middleware.AuditDetail(c, "label", m.Label)
	middleware.AuditDetail(c, "score", m.Score)

	return c.JSON(fiber.Map{
		"label":       m.Label,
		"score":       m.Score,
		"no_match":    m.IsNoMatch(),
		"comparisons": m.Comparisons,
		"model":       m.Model,
		"duration_ms": m.Duration.Milliseconds(),
	})
}

// ListReferences returns the reference phrases and whether they are embedded.
func (h *MatchHandler) ListReferences(c fiber.Ctx) error {
	refs := h.matcher.References()
	dimension := 0
	if len(refs) > 0 {
		dimension = len(refs[0].Embedding)
	}

	return c.JSON(fiber.Map{
		"state":     h.matcher.State(),
		"model":     h.matcher.ModelName(),
		"phrases":   h.matcher.Phrases(),
		"embedded":  len(refs),
		"dimension": dimension,
	})
}

// errorStatus maps matcher errors onto HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, port.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, port.ErrNotReady):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, port.ErrProviderInit), errors.Is(err, port.ErrEmbedding):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}
