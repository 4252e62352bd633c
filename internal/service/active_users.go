package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ActiveUsersService reports the extension's install base, summed over store
// listing endpoints that expose average_daily_users. Reads never block: they
// return the last known counts and start a background refresh at most once
// per interval. A failed refresh keeps the old counts and retries on the next
// read.
type ActiveUsersService struct {
	client   *http.Client
	sources  []string
	interval time.Duration
	now      func() time.Time
	logger   zerolog.Logger

	mu         sync.Mutex
	counts     map[string]int
	checkedAt  time.Time
	refreshing bool
}

func NewActiveUsersService(client *http.Client, sources []string, interval time.Duration) *ActiveUsersService {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &ActiveUsersService{
		client:   client,
		sources:  sources,
		interval: interval,
		now:      time.Now,
		logger:   log.With().Str("component", "active-users").Logger(),
		counts:   make(map[string]int),
	}
}

// Count returns the current total, zero until the first refresh lands.
func (s *ActiveUsersService) Count() int {
	if s == nil || len(s.sources) == 0 {
		return 0
	}

	s.mu.Lock()
	total := 0
	for _, n := range s.counts {
		total += n
	}
	stale := !s.refreshing && s.now().Sub(s.checkedAt) >= s.interval
	if stale {
		s.refreshing = true
		s.checkedAt = s.now()
	}
	s.mu.Unlock()

	if stale {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			s.refresh(ctx)
		}()
	}
	return total
}

// refresh fetches every source. Any failure clears checkedAt so the next
// read tries again instead of waiting a full interval.
func (s *ActiveUsersService) refresh(ctx context.Context) {
	fetched := make(map[string]int, len(s.sources))
	failed := false
	for _, src := range s.sources {
		n, err := s.fetch(ctx, src)
		if err != nil {
			s.logger.Warn().Err(err).Str("source", src).Msg("active user count unavailable")
			failed = true
			continue
		}
		fetched[src] = n
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for src, n := range fetched {
		s.counts[src] = n
	}
	if failed {
		s.checkedAt = time.Time{}
	} else {
		s.checkedAt = s.now()
	}
	s.refreshing = false
}

type listingResponse struct {
	AverageDailyUsers *int `json:"average_daily_users"`
}

func (s *ActiveUsersService) fetch(ctx context.Context, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("listing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("listing request: status %d", resp.StatusCode)
	}
	var body listingResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode listing: %w", err)
	}
	if body.AverageDailyUsers == nil {
		return 0, fmt.Errorf("listing has no average_daily_users")
	}
	return *body.AverageDailyUsers, nil
}
