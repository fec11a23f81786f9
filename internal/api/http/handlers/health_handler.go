package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/saos/service-desk/internal/persistence"
)

// Pinger is a dependency readiness can check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SequenceReporter tells which reference-code sequencer is in use.
type SequenceReporter interface {
	Pinger
	SequenceMode() string
}

// HealthHandler answers liveness and readiness checks. Postgres is required;
// Redis only backs reference-code sequencing, so losing it marks the service
// degraded but still ready.
type HealthHandler struct {
	serviceName string
	version     string
	postgres    Pinger
	redis       SequenceReporter
}

// NewHealthHandler wires the checks. Nil dependencies report as not configured.
func NewHealthHandler(serviceName, version string, postgres *persistence.Postgres, redis *persistence.Redis) *HealthHandler {
	h := &HealthHandler{serviceName: serviceName, version: version}
	if postgres != nil {
		h.postgres = postgres
	}
	if redis != nil {
		h.redis = redis
	}
	return h
}

// NewHealthHandlerWith builds a handler over arbitrary checks.
func NewHealthHandlerWith(serviceName, version string, postgres Pinger, redis SequenceReporter) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, version: version, postgres: postgres, redis: redis}
}

// Live GET /health/live.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready GET /health/ready.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	deps := fiber.Map{}
	ready := true
	if h.postgres == nil {
		deps["postgres"] = "not configured"
		ready = false
	} else if err := h.postgres.Ping(ctx); err != nil {
		deps["postgres"] = err.Error()
		ready = false
	} else {
		deps["postgres"] = "ok"
	}

	status := "ready"
	mode := persistence.SequenceModeDatabase
	switch {
	case h.redis == nil:
		deps["redis"] = "not configured"
	default:
		mode = h.redis.SequenceMode()
		if err := h.redis.Ping(ctx); err != nil {
			deps["redis"] = err.Error()
			status = "degraded"
			mode = persistence.SequenceModeDatabase
		} else {
			deps["redis"] = "ok"
		}
	}

	if !ready {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    "DEPENDENCY_UNAVAILABLE",
				"message": "one or more dependencies unavailable",
				"details": deps,
			},
		})
	}
	return c.JSON(fiber.Map{
		"status":          status,
		"service":         h.serviceName,
		"reference_codes": mode,
		"dependencies":    deps,
	})
}
