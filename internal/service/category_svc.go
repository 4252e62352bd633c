package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/metrics"
	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/model"
	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/repository"
	"github.com/mathieu-neron/SkipTube/skiptube-go/pkg/hash"
)

const (
	ordinaryCategoryWeight   = 1
	privilegedCategoryWeight = 500

	// The submission itself counts as one vote for its category.
	implicitCategoryWeight = 1
)

// ShouldSwitchCategory reports whether the proposed category replaces the
// active one. Ties flip.
func ShouldSwitchCategory(current, next int, privileged bool) bool {
	return next-current >= 0 || privileged
}

type CategoryService struct {
	segments SegmentLocker
	users    UserStore
	cache    *CacheService
}

func NewCategoryService(segments SegmentLocker, users UserStore, cache *CacheService) *CategoryService {
	return &CategoryService{segments: segments, users: users, cache: cache}
}

// Vote records a category vote and switches the segment's category when the
// proposed one has caught up with the active one.
func (s *CategoryService) Vote(ctx context.Context, req model.CategoryVoteRequest) error {
	if !model.Categories[req.Category] {
		return fmt.Errorf("%w: %q", model.ErrInvalidCategory, req.Category)
	}

	userID := hash.HashUserID(req.RawUserID)
	voterID := hash.VoterID(req.RawUserID, req.UUID)

	isVIP, err := s.users.IsVIP(ctx, userID)
	if err != nil {
		return fmt.Errorf("check vip: %w", err)
	}
	weight := ordinaryCategoryWeight
	if isVIP {
		weight = privilegedCategoryWeight
	}

	var (
		changed  []string
		switched bool
	)
	err = s.segments.WithLockedSegment(ctx, req.UUID, func(tx repository.SegmentTx) error {
		seg := tx.Segment()

		prev, err := tx.PreviousCategoryVote(ctx, voterID)
		if err != nil {
			return fmt.Errorf("previous category vote: %w", err)
		}
		if prev != nil && prev.Category == req.Category {
			return nil
		}

		if err := tx.AddCategoryWeight(ctx, req.Category, weight); err != nil {
			return err
		}
		if prev != nil {
			if err := tx.AddCategoryWeight(ctx, prev.Category, -prev.Weight); err != nil {
				return err
			}
		}
		if err := tx.SaveCategoryVote(ctx, model.CategoryVoteRecord{
			UUID:     seg.UUID,
			VoterID:  voterID,
			HashedIP: req.HashedIP,
			Category: req.Category,
			Weight:   weight,
		}); err != nil {
			return err
		}

		if seg.Category == req.Category {
			return nil
		}

		current, found, err := tx.CategoryWeight(ctx, seg.Category)
		if err != nil {
			return err
		}
		if !found {
			current = implicitCategoryWeight
		}
		next, _, err := tx.CategoryWeight(ctx, req.Category)
		if err != nil {
			return err
		}

		if !ShouldSwitchCategory(current, next, isVIP) {
			return nil
		}
		if err := tx.SetCategory(ctx, req.Category); err != nil {
			return err
		}
		switched = true
		changed = tx.ChangedVideos()
		return nil
	})
	if err != nil {
		metrics.CategoryVotesTotal.WithLabelValues(voteOutcome(err)).Inc()
		return err
	}

	outcome := "recorded"
	if switched {
		outcome = "switched"
		if err := s.cache.InvalidateSegments(ctx, changed...); err != nil {
			log.Warn().Err(err).Str("component", "category").Strs("video_ids", changed).Msg("cache invalidate failed")
		}
	}
	metrics.CategoryVotesTotal.WithLabelValues(outcome).Inc()
	return nil
}
