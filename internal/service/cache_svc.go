package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/metrics"
	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/model"
	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/notify"
)

const (
	SegmentCacheTTL = 5 * time.Minute
	StatsCacheTTL   = 15 * time.Minute
)

// CacheService is a Redis cache-aside layer. A nil client turns every
// operation into a miss or a no-op, so callers never branch on it.
type CacheService struct {
	rdb         *redis.Client
	metadataTTL time.Duration
}

// NewCacheService connects to redisURL. An empty or unreachable URL disables
// caching instead of failing startup.
func NewCacheService(redisURL string, metadataTTL time.Duration) *CacheService {
	logger := log.With().Str("component", "cache").Logger()
	if redisURL == "" {
		logger.Info().Msg("no redis URL configured, caching disabled")
		return &CacheService{metadataTTL: metadataTTL}
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Warn().Err(err).Msg("invalid redis URL, caching disabled")
		return &CacheService{metadataTTL: metadataTTL}
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, caching disabled")
		_ = rdb.Close()
		return &CacheService{metadataTTL: metadataTTL}
	}

	logger.Info().Msg("redis connected, caching enabled")
	return &CacheService{rdb: rdb, metadataTTL: metadataTTL}
}

// NewCacheServiceWithClient wraps an existing client.
func NewCacheServiceWithClient(rdb *redis.Client, metadataTTL time.Duration) *CacheService {
	return &CacheService{rdb: rdb, metadataTTL: metadataTTL}
}

// Client returns the underlying Redis client (for health checks). May be nil.
func (c *CacheService) Client() *redis.Client {
	if c == nil {
		return nil
	}
	return c.rdb
}

// GetSegments returns the cached candidate rows for a video. Selection is
// never cached, only the rows it runs over.
func (c *CacheService) GetSegments(ctx context.Context, videoID string) ([]model.Segment, bool) {
	var segs []model.Segment
	ok := c.get(ctx, "segments", segmentsKey(videoID), &segs)
	return segs, ok
}

func (c *CacheService) SetSegments(ctx context.Context, videoID string, segs []model.Segment) {
	c.set(ctx, segmentsKey(videoID), segs, SegmentCacheTTL)
}

// InvalidateSegments drops the candidate rows for each video.
func (c *CacheService) InvalidateSegments(ctx context.Context, videoIDs ...string) error {
	if c == nil || c.rdb == nil || len(videoIDs) == 0 {
		return nil
	}
	keys := make([]string, len(videoIDs))
	for i, id := range videoIDs {
		keys[i] = segmentsKey(id)
	}
	return c.rdb.Del(ctx, keys...).Err()
}

func (c *CacheService) GetMetadata(ctx context.Context, videoID string) (notify.VideoMetadata, bool) {
	var md notify.VideoMetadata
	ok := c.get(ctx, "metadata", metadataKey(videoID), &md)
	return md, ok
}

func (c *CacheService) SetMetadata(ctx context.Context, videoID string, md notify.VideoMetadata) {
	if c == nil {
		return
	}
	c.set(ctx, metadataKey(videoID), md, c.metadataTTL)
}

func (c *CacheService) GetStats(ctx context.Context) (*model.StatsResponse, bool) {
	var s model.StatsResponse
	if !c.get(ctx, "stats", statsKey, &s) {
		return nil, false
	}
	return &s, true
}

func (c *CacheService) SetStats(ctx context.Context, s *model.StatsResponse) {
	c.set(ctx, statsKey, s, StatsCacheTTL)
}

// Close shuts down the Redis connection.
func (c *CacheService) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

// get decodes key into dst. Redis errors count as misses; the database is
// always the fallback.
func (c *CacheService) get(ctx context.Context, keyspace, key string, dst any) bool {
	if c == nil || c.rdb == nil {
		return false
	}
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("component", "cache").Str("key", key).Msg("get failed")
		}
		metrics.CacheMisses.WithLabelValues(keyspace).Inc()
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		log.Warn().Err(err).Str("component", "cache").Str("key", key).Msg("corrupt entry")
		metrics.CacheMisses.WithLabelValues(keyspace).Inc()
		return false
	}
	metrics.CacheHits.WithLabelValues(keyspace).Inc()
	return true
}

func (c *CacheService) set(ctx context.Context, key string, v any, ttl time.Duration) {
	if c == nil || c.rdb == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		log.Warn().Err(err).Str("component", "cache").Str("key", key).Msg("marshal failed")
		return
	}
	if err := c.rdb.Set(ctx, key, b, ttl).Err(); err != nil {
		log.Warn().Err(err).Str("component", "cache").Str("key", key).Msg("set failed")
	}
}

const statsKey = "stats:totals"

func segmentsKey(videoID string) string {
	return fmt.Sprintf("segments:%s", videoID)
}

func metadataKey(videoID string) string {
	return fmt.Sprintf("metadata:%s", videoID)
}
