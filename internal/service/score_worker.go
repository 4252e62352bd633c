package service

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/metrics"
)

// SegmentChangesChannel is the NOTIFY channel the write paths publish
// video IDs on.
const SegmentChangesChannel = "segment_changes"

// ScoreWorker listens for score and visibility changes and batches segment
// cache invalidations. It covers writes whose request-path invalidation
// failed and changes made outside the API.
type ScoreWorker struct {
	pool   *pgxpool.Pool
	cache  *CacheService
	window time.Duration
	logger zerolog.Logger

	mu      sync.Mutex
	pending map[string]struct{}
}

func NewScoreWorker(pool *pgxpool.Pool, cache *CacheService) *ScoreWorker {
	return &ScoreWorker{
		pool:    pool,
		cache:   cache,
		window:  2 * time.Second,
		logger:  log.With().Str("component", "score-worker").Logger(),
		pending: make(map[string]struct{}),
	}
}

// Start listens until ctx is cancelled, reconnecting after errors.
func (w *ScoreWorker) Start(ctx context.Context) {
	w.logger.Info().Dur("window", w.window).Msg("starting")

	for {
		err := w.listenLoop(ctx)
		if ctx.Err() != nil {
			w.logger.Info().Msg("stopping")
			return
		}
		w.logger.Warn().Err(err).Msg("listen error, reconnecting in 5s")
		select {
		case <-time.After(5 * time.Second):
		case <-ctx.Done():
			w.logger.Info().Msg("stopping")
			return
		}
	}
}

func (w *ScoreWorker) listenLoop(ctx context.Context) error {
	conn, err := w.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+SegmentChangesChannel); err != nil {
		return err
	}

	flushCtx, flushCancel := context.WithCancel(ctx)
	defer flushCancel()
	go w.flushLoop(flushCtx)

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		w.add(n.Payload)
	}
}

func (w *ScoreWorker) add(videoID string) {
	if videoID == "" {
		return
	}
	w.mu.Lock()
	w.pending[videoID] = struct{}{}
	w.mu.Unlock()
}

func (w *ScoreWorker) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(w.window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.flush(ctx)
		case <-ctx.Done():
			w.flush(context.Background())
			return
		}
	}
}

// flush drains the pending set with a single DEL. A failed batch is put
// back for the next window.
func (w *ScoreWorker) flush(ctx context.Context) int {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return 0
	}
	batch := w.pending
	w.pending = make(map[string]struct{})
	w.mu.Unlock()

	ids := make([]string, 0, len(batch))
	for id := range batch {
		ids = append(ids, id)
	}
	if err := w.cache.InvalidateSegments(ctx, ids...); err != nil {
		w.logger.Warn().Err(err).Int("videos", len(ids)).Msg("batch invalidate failed, retrying next window")
		for _, id := range ids {
			w.add(id)
		}
		return 0
	}
	metrics.InvalidationBatch.Observe(float64(len(ids)))
	w.logger.Debug().Int("videos", len(ids)).Msg("batch invalidated")
	return len(ids)
}
