package handler

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/arturoeanton/go-phrasematch-ollama/internal/eventlog"
	"github.com/gofiber/fiber/v3"
)

// EventsHandler exposes the matcher event log.
type EventsHandler struct {
	log       *eventlog.Log
	keepalive time.Duration
	maxStream time.Duration
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(log *eventlog.Log) *EventsHandler {
	return &EventsHandler{log: log, keepalive: 15 * time.Second, maxStream: 5 * time.Minute}
}

// Register sets up event routes.
func (h *EventsHandler) Register(router fiber.Router) {
	events := router.Group("/events")
	events.Get("/", h.List)
	events.Get("/stream", h.StreamSSE)
}

// List returns the most recent events, newest first.
func (h *EventsHandler) List(c fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "0"))
	events := h.log.Recent(limit)
	return c.JSON(fiber.Map{
		"events": events,
		"count":  len(events),
	})
}

// StreamSSE streams new events via Server-Sent Events.
func (h *EventsHandler) StreamSSE(c fiber.Ctx) error {
	ch := h.log.Subscribe()

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	return c.SendStreamWriter(func(w *bufio.Writer) {
		defer h.log.Unsubscribe(ch)

		fmt.Fprintf(w, "event: ready\ndata: {}\n\n")
		if err := w.Flush(); err != nil {
			return
		}

		ticker := time.NewTicker(h.keepalive)
		defer ticker.Stop()
		timeout := time.After(h.maxStream)
		for {
			select {
			case ev, ok := <-ch:
				if !ok {
					return
				}
				data, _ := json.Marshal(ev)
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Level, string(data))
			case <-ticker.C:
				fmt.Fprintf(w, ": keepalive\n\n")
			case <-timeout:
				return
			}
			// A failed flush means the client went away.
			if err := w.Flush(); err != nil {
				return
			}
		}
	})
}
