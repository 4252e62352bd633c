package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/model"
	"github.com/mathieu-neron/SkipTube/skiptube-go/pkg/hash"
)

// TotalsStore computes global aggregates.
type TotalsStore interface {
	Totals(ctx context.Context) (*model.StatsResponse, error)
	TopContributors(ctx context.Context, sortBy model.LeaderboardSort, limit int) ([]model.Contributor, error)
}

// TopUsersLimit caps the leaderboard.
const TopUsersLimit = 100

// ContributorTotalsStore computes per-contributor aggregates.
type ContributorTotalsStore interface {
	ViewsForUser(ctx context.Context, userID string) (int, bool, error)
	SavedTimeForUser(ctx context.Context, userID string) (float64, bool, error)
}

// StatsService serves aggregate statistics. Totals are memoized in process
// and in Redis; the StatsWorker keeps them fresh.
type StatsService struct {
	totals TotalsStore
	users  ContributorTotalsStore
	cache  *CacheService
	active *ActiveUsersService
	ttl    time.Duration
	now    func() time.Time

	mu     sync.RWMutex
	last   *model.StatsResponse
	lastAt time.Time
}

func NewStatsService(totals TotalsStore, users ContributorTotalsStore, cache *CacheService) *StatsService {
	return &StatsService{totals: totals, users: users, cache: cache, ttl: StatsCacheTTL, now: time.Now}
}

// WithActiveUsers reports the extension's install base alongside the totals.
func (s *StatsService) WithActiveUsers(active *ActiveUsersService) *StatsService {
	s.active = active
	return s
}

// Totals returns the memoized global totals, computing them on a cold start.
// The active user count is attached per call and never memoized here.
func (s *StatsService) Totals(ctx context.Context) (*model.StatsResponse, error) {
	stats, err := s.memoizedTotals(ctx)
	if err != nil {
		return nil, err
	}
	out := *stats
	out.ActiveUsers = s.active.Count()
	return &out, nil
}

func (s *StatsService) memoizedTotals(ctx context.Context) (*model.StatsResponse, error) {
	s.mu.RLock()
	last, fresh := s.last, s.now().Sub(s.lastAt) < s.ttl
	s.mu.RUnlock()
	if last != nil && fresh {
		return last, nil
	}

	if cached, ok := s.cache.GetStats(ctx); ok {
		s.remember(cached)
		return cached, nil
	}
	return s.Refresh(ctx)
}

// DaysSaved converts the memoized saved-time total to days.
func (s *StatsService) DaysSaved(ctx context.Context) (*model.DaysSavedResponse, error) {
	stats, err := s.memoizedTotals(ctx)
	if err != nil {
		return nil, err
	}
	return &model.DaysSavedResponse{DaysSaved: fmt.Sprintf("%.2f", stats.MinutesSaved/60/24)}, nil
}

// TopUsers returns up to TopUsersLimit contributors ranked by sortBy.
func (s *StatsService) TopUsers(ctx context.Context, sortBy model.LeaderboardSort) (*model.TopUsersResponse, error) {
	if !sortBy.Valid() {
		return nil, fmt.Errorf("sort type %d: %w", sortBy, model.ErrInvalidInput)
	}
	rows, err := s.totals.TopContributors(ctx, sortBy, TopUsersLimit)
	if err != nil {
		return nil, fmt.Errorf("top users: %w", err)
	}

	resp := &model.TopUsersResponse{
		UserNames:        make([]string, len(rows)),
		ViewCounts:       make([]int, len(rows)),
		TotalSubmissions: make([]int, len(rows)),
		MinutesSaved:     make([]float64, len(rows)),
	}
	for i, r := range rows {
		resp.UserNames[i] = r.UserID
		resp.ViewCounts[i] = r.ViewCount
		resp.TotalSubmissions[i] = r.TotalSubmissions
		resp.MinutesSaved[i] = r.MinutesSaved
	}
	return resp, nil
}

// Refresh recomputes the totals and stores them in both memo layers.
func (s *StatsService) Refresh(ctx context.Context) (*model.StatsResponse, error) {
	stats, err := s.totals.Totals(ctx)
	if err != nil {
		return nil, fmt.Errorf("compute totals: %w", err)
	}
	stats.GeneratedAt = s.now().UTC().Format(time.RFC3339)
	s.remember(stats)
	s.cache.SetStats(ctx, stats)
	return stats, nil
}

func (s *StatsService) remember(stats *model.StatsResponse) {
	s.mu.Lock()
	s.last, s.lastAt = stats, s.now()
	s.mu.Unlock()
}

// ViewsForUser sums views over a contributor's segments.
func (s *StatsService) ViewsForUser(ctx context.Context, rawUserID string) (*model.UserViewsResponse, error) {
	views, found, err := s.users.ViewsForUser(ctx, hash.HashUserID(rawUserID))
	if err != nil {
		return nil, fmt.Errorf("views for user: %w", err)
	}
	if !found {
		return nil, model.ErrNotFound
	}
	return &model.UserViewsResponse{ViewCount: views}, nil
}

// SavedTimeForUser estimates minutes saved by a contributor's segments.
func (s *StatsService) SavedTimeForUser(ctx context.Context, rawUserID string) (*model.UserTimeSavedResponse, error) {
	minutes, found, err := s.users.SavedTimeForUser(ctx, hash.HashUserID(rawUserID))
	if err != nil {
		return nil, fmt.Errorf("saved time for user: %w", err)
	}
	if !found {
		return nil, model.ErrNotFound
	}
	return &model.UserTimeSavedResponse{TimeSaved: minutes}, nil
}
