package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/metrics"
)

// MetricsMiddleware records request duration and in-flight count for Prometheus.
func MetricsMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		if c.Path() == "/metrics" {
			return c.Next()
		}

		// Fiber hands out slices backed by the fasthttp buffer, which the
		// handler may overwrite. Copy before c.Next().
		endpoint := sanitizeEndpoint(string([]byte(c.Path())))
		method := string([]byte(c.Method()))

		metrics.RequestsInFlight.Inc()
		start := time.Now()

		err := c.Next()

		status := strconv.Itoa(c.Response().StatusCode())
		metrics.RequestDuration.WithLabelValues(endpoint, method, status).Observe(time.Since(start).Seconds())
		metrics.RequestsInFlight.Dec()

		return err
	}
}

// endpointAliases folds the legacy route names onto their canonical path.
var endpointAliases = map[string]string{
	"/api/getVideoSponsorTimes":  "/api/skipSegments",
	"/api/postVideoSponsorTimes": "/api/skipSegments",
	"/api/database/export":       "/api/database/export",
	"/database.db":               "/api/database/export",
}

// sanitizeEndpoint keeps the endpoint label bounded: unknown paths collapse
// into a single "other" series.
func sanitizeEndpoint(path string) string {
	if alias, ok := endpointAliases[path]; ok {
		return alias
	}
	switch {
	case strings.HasPrefix(path, "/api/"), strings.HasPrefix(path, "/health/"):
		if strings.Count(path, "/") == 2 {
			return path
		}
	}
	return "other"
}

// MetricsHandler serves the Prometheus /metrics endpoint via Fiber.
func MetricsHandler() fiber.Handler {
	httpHandler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	return func(c fiber.Ctx) error {
		httpHandler(c.RequestCtx())
		return nil
	}
}
