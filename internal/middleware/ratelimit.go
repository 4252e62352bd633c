package middleware

import (
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v3"
	"golang.org/x/time/rate"
)

// Limit is a per-key token bucket: Burst requests at once, refilled at a
// steady Burst per Per.
type Limit struct {
	Burst int
	Per   time.Duration
	Key   func(c fiber.Ctx) string
}

func (l Limit) rate() rate.Limit {
	return rate.Limit(float64(l.Burst) / l.Per.Seconds())
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// Limiter keeps one token bucket per key. Buckets idle for a full refill
// period are full again and get dropped on the next sweep.
type Limiter struct {
	limit Limit
	now   func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

func NewLimiter(l Limit) *Limiter {
	return &Limiter{limit: l, now: time.Now, buckets: make(map[string]*bucket)}
}

// take spends one token for key. It reports whether the request may pass,
// how many whole tokens are left, and how long until the next one.
func (l *Limiter) take(key string) (ok bool, remaining int, retryAfter time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	b, found := l.buckets[key]
	if !found {
		b = &bucket{lim: rate.NewLimiter(l.limit.rate(), l.limit.Burst)}
		l.buckets[key] = b
	}
	b.seen = now

	ok = b.lim.AllowN(now, 1)
	tokens := b.lim.TokensAt(now)
	if tokens < 1 {
		retryAfter = time.Duration((1 - tokens) / float64(b.lim.Limit()) * float64(time.Second))
	}
	return ok, max(int(tokens), 0), retryAfter
}

func (l *Limiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.limit.Per {
		return
	}
	l.lastSweep = now
	for key, b := range l.buckets {
		if now.Sub(b.seen) >= l.limit.Per {
			delete(l.buckets, key)
		}
	}
}

// Allow spends a token for key outside of a request.
func (l *Limiter) Allow(key string) bool {
	ok, _, _ := l.take(key)
	return ok
}

// Handler rejects requests over the limit with 429 and a Retry-After.
func (l *Limiter) Handler() fiber.Handler {
	return func(c fiber.Ctx) error {
		ok, remaining, retryAfter := l.take(l.limit.Key(c))

		c.Set("X-RateLimit-Limit", strconv.Itoa(l.limit.Burst))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if ok {
			return c.Next()
		}

		secs := int(math.Ceil(retryAfter.Seconds()))
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(max(secs, 1)))
		return ErrorResponse(c, fiber.StatusTooManyRequests, "RATE_LIMITED", "Too many requests")
	}
}

// KeyByIP returns the client IP as the rate limit key.
func KeyByIP(c fiber.Ctx) string {
	return "ip:" + ClientIP(c)
}

// KeyByUserID keys on a digest of the userID query parameter so raw private
// ids are never held in memory. Falls back to IP when absent.
func KeyByUserID(c fiber.Ctx) string {
	if uid := c.Query("userID"); uid != "" {
		return "user:" + hashIPForLog(uid)
	}
	return KeyByIP(c)
}

// Per-route presets, all refilled over one minute.

func NewReadRateLimiter() *Limiter {
	return NewLimiter(Limit{Burst: 100, Per: time.Minute, Key: KeyByIP})
}

func NewVoteRateLimiter() *Limiter {
	return NewLimiter(Limit{Burst: 10, Per: time.Minute, Key: KeyByUserID})
}

func NewSubmitRateLimiter() *Limiter {
	return NewLimiter(Limit{Burst: 10, Per: time.Minute, Key: KeyByUserID})
}

func NewViewRateLimiter() *Limiter {
	return NewLimiter(Limit{Burst: 60, Per: time.Minute, Key: KeyByIP})
}

func NewStatsRateLimiter() *Limiter {
	return NewLimiter(Limit{Burst: 10, Per: time.Minute, Key: KeyByIP})
}

func NewAdminRateLimiter() *Limiter {
	return NewLimiter(Limit{Burst: 5, Per: time.Minute, Key: KeyByIP})
}
