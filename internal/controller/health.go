package controller

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Pinger reports whether the download store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthController interface {
	Check(c *fiber.Ctx) error
}

type healthController struct {
	store   Pinger
	timeout time.Duration
}

// NewHealthController builds a HealthController. A nil store always reports
// healthy.
func NewHealthController(store Pinger, timeout time.Duration) HealthController {
	return &healthController{store: store, timeout: timeout}
}

func (h *healthController) Check(c *fiber.Ctx) error {
	if h.store == nil {
		return c.JSON(fiber.Map{"status": "ok"})
	}

	ctx, cancel := context.WithTimeout(c.Context(), h.timeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		slog.Warn("health check failed", slog.String("error", err.Error()))
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
	}

	return c.JSON(fiber.Map{"status": "ok"})
}
