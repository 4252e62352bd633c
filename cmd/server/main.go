package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/config"
	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/db"
	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/handler"
	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/metrics"
	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/middleware"
	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/notify"
	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/repository"
	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/router"
	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/service"
)

const version = "1.0.0"

func main() {
	cfg := config.Load()
	middleware.InitLogger(cfg.LogLevel, "skiptube-go")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("failed to apply schema")
	}

	metrics.Register(pool)

	cache := service.NewCacheService(cfg.RedisURL, cfg.MetadataCacheTTL)
	defer cache.Close()

	segmentRepo := repository.NewSegmentRepo(pool)
	userRepo := repository.NewUserRepo(pool)
	statsRepo := repository.NewStatsRepo(pool)

	// Notifications go through the asynq queue when Redis is reachable and
	// are delivered inline otherwise.
	httpClient := &http.Client{Timeout: 10 * time.Second}
	metadata := service.NewMetadataService(httpClient, cache, "")
	deliverer := notify.NewDeliverer(
		notify.NewWebhookSender(httpClient, cfg.WebhookRatePerSecond),
		metadata,
		notify.Targets{
			Generic:         cfg.WebhookURLs,
			Report:          cfg.DiscordReportWebhookURL,
			Incorrect:       cfg.DiscordIncorrectWebhookURL,
			FirstSubmission: cfg.DiscordFirstSubmissionWebhookURL,
		},
	)

	var queue *asynq.Client
	if cache.Client() != nil {
		opt, err := asynq.ParseRedisURI(cfg.RedisURL)
		if err != nil {
			log.Warn().Err(err).Msg("notification queue disabled")
		} else {
			queue = asynq.NewClient(opt)
			defer queue.Close()

			worker := notify.NewWorker(opt, cfg.NotifyConcurrency, deliverer)
			if err := worker.Start(); err != nil {
				log.Fatal().Err(err).Msg("failed to start notification worker")
			}
			defer worker.Shutdown()
		}
	}
	events := notify.NewDispatcher(queue, deliverer)

	segmentSvc := service.NewSegmentService(segmentRepo, userRepo, cache, service.NewSelector(nil), events,
		service.SegmentOptions{
			MaxSegments:      cfg.MaxSegmentsPerResponse,
			VIPStartingVotes: cfg.VIPStartingVotes,
		})
	voteSvc := service.NewVoteService(segmentRepo, userRepo, cache, events)
	categorySvc := service.NewCategoryService(segmentRepo, userRepo, cache)
	statsSvc := service.NewStatsService(statsRepo, userRepo, cache).
		WithActiveUsers(service.NewActiveUsersService(httpClient, cfg.ActiveUsersSources, cfg.ActiveUsersRefresh))
	exportSvc := service.NewExportService(statsRepo, cfg.ExportDir, cfg.ExportKeep)
	adminSvc := service.NewAdminService(userRepo, cache, cfg.AdminUserID)

	go service.NewScoreWorker(pool, cache).Start(ctx)
	go func() {
		if err := service.NewStatsWorker(statsSvc, cfg.StatsCron).Start(ctx); err != nil {
			log.Error().Err(err).Msg("stats worker exited")
		}
	}()
	go func() {
		if err := exportSvc.Start(ctx, cfg.ExportCron); err != nil {
			log.Error().Err(err).Msg("export worker exited")
		}
	}()

	app := fiber.New(fiber.Config{
		AppName:      "SkipTube API",
		ServerHeader: "SkipTube",
	})

	router.Setup(app, &router.Handlers{
		Segment: handler.NewSegmentHandler(segmentSvc, cfg.GlobalSalt),
		Vote:    handler.NewVoteHandler(voteSvc, categorySvc, cfg.GlobalSalt),
		Stats:   handler.NewStatsHandler(statsSvc),
		Admin:   handler.NewAdminHandler(adminSvc),
		Export:  handler.NewExportHandler(exportSvc),
		Health:  handler.NewHealthHandler(pool, cache.Client(), version),
	}, router.Options{
		CORSOrigins: cfg.CORSOrigins,
		BehindProxy: cfg.BehindProxy,
	})

	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error().Err(err).Msg("graceful shutdown failed")
		}
	}()

	log.Info().Str("port", cfg.Port).Str("env", cfg.Environment).Str("version", version).Msg("SkipTube Go backend starting")
	if err := app.Listen(":"+cfg.Port, fiber.ListenConfig{DisableStartupMessage: true}); err != nil {
		log.Error().Err(err).Msg("server stopped")
	}
}
