package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type HealthHandler struct {
	pool    *pgxpool.Pool
	rdb     *redis.Client
	version string
	startAt time.Time
}

func NewHealthHandler(pool *pgxpool.Pool, rdb *redis.Client, version string) *HealthHandler {
	return &HealthHandler{
		pool:    pool,
		rdb:     rdb,
		version: version,
		startAt: time.Now(),
	}
}

// Live handles GET /health/live
func (h *HealthHandler) Live(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Ready handles GET /health/ready. Postgres is required; Redis only degrades
// the report since every cache path falls through to the database.
func (h *HealthHandler) Ready(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
	defer cancel()

	db := probe(ctx, h.pool != nil, func(ctx context.Context) error { return h.pool.Ping(ctx) })
	cache := probe(ctx, h.rdb != nil, func(ctx context.Context) error { return h.rdb.Ping(ctx).Err() })

	overall, status := "healthy", fiber.StatusOK
	switch {
	case db["status"] != "up":
		overall, status = "unhealthy", fiber.StatusServiceUnavailable
	case cache["status"] == "down":
		overall = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status":         overall,
		"checks":         fiber.Map{"database": db, "redis": cache},
		"uptime_seconds": int(time.Since(h.startAt).Seconds()),
		"version":        h.version,
	})
}

func probe(ctx context.Context, enabled bool, ping func(context.Context) error) fiber.Map {
	if !enabled {
		return fiber.Map{"status": "disabled"}
	}

	start := time.Now()
	err := ping(ctx)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		return fiber.Map{
			"status":     "down",
			"latency_ms": latency,
			"error":      "connection failed",
		}
	}
	return fiber.Map{
		"status":     "up",
		"latency_ms": latency,
	}
}
