package router

import (
	"github.com/gofiber/fiber/v3"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/handler"
	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/middleware"
)

// Handlers holds all handler instances needed by the router.
type Handlers struct {
	Segment *handler.SegmentHandler
	Vote    *handler.VoteHandler
	Stats   *handler.StatsHandler
	Admin   *handler.AdminHandler
	Export  *handler.ExportHandler
	Health  *handler.HealthHandler
}

// Options configures the middleware stack.
type Options struct {
	CORSOrigins string
	BehindProxy bool
}

// Setup configures the middleware stack and all API routes on the given Fiber app.
func Setup(app *fiber.App, h *Handlers, opts Options) {
	// Order matters: the client IP must be resolved before logging and
	// rate limiting read it.
	app.Use(recoverer.New())
	app.Use(middleware.NewClientIP(opts.BehindProxy))
	app.Use(middleware.NewRequestLogger())
	app.Use(middleware.NewCORS(opts.CORSOrigins))
	app.Use(handler.MetricsMiddleware())

	app.Get("/health/live", h.Health.Live)
	app.Get("/health/ready", h.Health.Ready)
	app.Get("/metrics", handler.MetricsHandler())

	read := middleware.NewReadRateLimiter().Handler()
	submit := middleware.NewSubmitRateLimiter().Handler()
	vote := middleware.NewVoteRateLimiter().Handler()
	view := middleware.NewViewRateLimiter().Handler()
	stats := middleware.NewStatsRateLimiter().Handler()
	admin := middleware.NewAdminRateLimiter().Handler()

	api := app.Group("/api")

	// Segment routes, with the legacy names kept as aliases
	api.Get("/skipSegments", read, h.Segment.Get)
	api.Get("/getVideoSponsorTimes", read, h.Segment.Get)
	api.Post("/skipSegments", submit, h.Segment.Submit)
	api.Post("/postVideoSponsorTimes", submit, h.Segment.Submit)
	api.Get("/postVideoSponsorTimes", submit, h.Segment.Submit)
	api.Post("/viewedVideoSponsorTime", view, h.Segment.Viewed)

	// Vote routes
	api.Post("/voteOnSponsorTime", vote, h.Vote.Vote)
	api.Get("/voteOnSponsorTime", vote, h.Vote.Vote)

	// Stats routes
	api.Get("/getViewsForUser", stats, h.Stats.ViewsForUser)
	api.Get("/getSavedTimeForUser", stats, h.Stats.SavedTimeForUser)
	api.Get("/getTotalStats", read, h.Stats.Totals)
	api.Get("/getTopUsers", stats, h.Stats.TopUsers)
	api.Get("/getDaysSavedFormatted", read, h.Stats.DaysSaved)

	// Database snapshot, also under its legacy root path
	api.Get("/database/export", stats, h.Export.Export)
	app.Get("/database.db", stats, h.Export.Export)

	// Admin routes
	api.Post("/shadowBanUser", admin, h.Admin.ShadowBan)
	api.Post("/addUserAsVIP", admin, h.Admin.AddVIP)
}
