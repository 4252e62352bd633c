package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// StatsWorker refreshes the global totals on a cron schedule.
type StatsWorker struct {
	stats    *StatsService
	schedule string
}

// NewStatsWorker accepts any robfig/cron spec, including "@every 10m".
func NewStatsWorker(stats *StatsService, schedule string) *StatsWorker {
	return &StatsWorker{stats: stats, schedule: schedule}
}

// Start refreshes once immediately, then on schedule until ctx is cancelled.
func (w *StatsWorker) Start(ctx context.Context) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(w.schedule, func() { w.tick(ctx) }); err != nil {
		return fmt.Errorf("stats schedule %q: %w", w.schedule, err)
	}

	log.Info().Str("component", "stats-worker").Str("schedule", w.schedule).Msg("starting")
	w.tick(ctx)
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	log.Info().Str("component", "stats-worker").Msg("stopping")
	return nil
}

func (w *StatsWorker) tick(ctx context.Context) {
	start := time.Now()
	stats, err := w.stats.Refresh(ctx)
	if err != nil {
		log.Error().Err(err).Str("component", "stats-worker").Msg("refresh failed")
		return
	}
	log.Info().Str("component", "stats-worker").
		Int("submissions", stats.TotalSubmissions).
		Dur("elapsed", time.Since(start).Round(time.Millisecond)).
		Msg("totals refreshed")
}
