package middleware

import (
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/arturoeanton/go-phrasematch-ollama/internal/domain"
	"github.com/arturoeanton/go-phrasematch-ollama/internal/port"
	"github.com/gofiber/fiber/v3"
)

const auditDetailsKey = "audit_details"

// AuditDetail attaches a key/value to the audit record of the current request.
func AuditDetail(c fiber.Ctx, key string, value interface{}) {
	details, _ := c.Locals(auditDetailsKey).(map[string]interface{})
	if details == nil {
		details = map[string]interface{}{}
		c.Locals(auditDetailsKey, details)
	}
	details[key] = value
}

// auditAction classifies a request: matches and re-initializations are
// domain actions, everything else is a plain HTTP request.
func auditAction(method, path string) (action, resource string) {
	if method == fiber.MethodPost {
		switch {
		case strings.HasSuffix(path, "/admin/initialize"):
			return domain.AuditActionInitialize, "matcher"
		case strings.HasSuffix(path, "/match"):
			return domain.AuditActionMatch, "match"
		}
	}
	return domain.AuditActionHTTPRequest, "api"
}

// AuditMiddleware records every request, tagging match and initialize calls
// with their own action and any details handlers attached via AuditDetail.
func AuditMiddleware(writer port.AuditWriter) fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()

		// Fiber reuses the context, so copy what the writer needs up front.
		method := c.Method()
		path := strings.Clone(c.Path())
		ip := strings.Clone(c.IP())
		userAgent := strings.Clone(c.Get("User-Agent"))
		action, resource := auditAction(method, path)

		err := c.Next()

		subject := "anonymous"
		if uc := GetUserContext(c); uc != nil {
			subject = uc.Subject
		}

		details := map[string]interface{}{
			"method":      method,
			"path":        path,
			"status":      c.Response().StatusCode(),
			"duration_ms": time.Since(start).Milliseconds(),
		}
		if extra, ok := c.Locals(auditDetailsKey).(map[string]interface{}); ok {
			for k, v := range extra {
				details[k] = v
			}
		}
		detailsJSON, _ := json.Marshal(details)

		go func() {
			if writeErr := writer.WriteAudit(subject, action, resource, path, string(detailsJSON), ip, userAgent); writeErr != nil {
				slog.Error("failed to write audit log", "action", action, "error", writeErr)
			}
		}()

		return err
	}
}
