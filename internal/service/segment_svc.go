package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/metrics"
	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/model"
	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/notify"
	"github.com/mathieu-neron/SkipTube/skiptube-go/pkg/hash"
)

const DefaultMaxSegments = 8

// SegmentOptions tunes the read and submit paths.
type SegmentOptions struct {
	MaxSegments      int
	VIPStartingVotes int
}

type SegmentService struct {
	store    SegmentStore
	users    UserStore
	cache    *CacheService
	selector *Selector
	events   EventPublisher
	opts     SegmentOptions
	now      func() time.Time
}

func NewSegmentService(store SegmentStore, users UserStore, cache *CacheService, selector *Selector,
	events EventPublisher, opts SegmentOptions) *SegmentService {
	if opts.MaxSegments <= 0 {
		opts.MaxSegments = DefaultMaxSegments
	}
	if selector == nil {
		selector = NewSelector(nil)
	}
	return &SegmentService{
		store:    store,
		users:    users,
		cache:    cache,
		selector: selector,
		events:   events,
		opts:     opts,
		now:      time.Now,
	}
}

// GetPublicSegments returns the segments to serve for a video. It fails with
// ErrNotFound only when nothing is stored; when everything is filtered out
// the list is empty.
func (s *SegmentService) GetPublicSegments(ctx context.Context, videoID, hashedIP string) (*model.SegmentList, error) {
	segs, err := s.candidates(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if len(segs) == 0 {
		return nil, model.ErrNotFound
	}

	list := &model.SegmentList{VideoID: videoID, Segments: s.assemble(visibleTo(segs, hashedIP))}
	metrics.SegmentsServed.Observe(float64(len(list.Segments)))
	return list, nil
}

func (s *SegmentService) candidates(ctx context.Context, videoID string) ([]model.Segment, error) {
	if segs, ok := s.cache.GetSegments(ctx, videoID); ok {
		return segs, nil
	}
	segs, err := s.store.FindByVideoID(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("load segments: %w", err)
	}
	s.cache.SetSegments(ctx, videoID, segs)
	return segs, nil
}

// visibleTo drops penalized segments, and shadow-hidden ones unless the
// requester submitted them from the same address.
func visibleTo(segs []model.Segment, hashedIP string) []model.Segment {
	out := make([]model.Segment, 0, len(segs))
	for _, seg := range segs {
		if seg.Votes <= penaltyFloor {
			continue
		}
		if seg.ShadowHidden && (hashedIP == "" || seg.HashedIP != hashedIP) {
			continue
		}
		out = append(out, seg)
	}
	return out
}

// assemble keeps one representative per overlap group, credited with the
// group's positive votes, then caps the result and orders it by start time.
func (s *SegmentService) assemble(segs []model.Segment) []model.PublicSegment {
	if len(segs) == 0 {
		return []model.PublicSegment{}
	}

	scores := make([]int, len(segs))
	for i, seg := range segs {
		scores[i] = seg.Votes
	}
	display := append([]int(nil), scores...)

	grouping := GroupOverlapping(segs)
	final := make([]int, 0, len(grouping.Groups)+len(grouping.Singletons))
	for _, group := range grouping.Groups {
		chosen, err := s.selector.Choose(group, scores, 1)
		if err != nil {
			continue
		}
		display[chosen[0]] = PositiveWeightSum(group, scores)
		final = append(final, chosen[0])
	}
	final = append(final, grouping.Singletons...)

	if len(final) > s.opts.MaxSegments {
		capped, err := s.selector.Choose(final, display, s.opts.MaxSegments)
		if err == nil {
			final = capped
		}
	}

	sort.Slice(final, func(a, b int) bool {
		sa, sb := segs[final[a]], segs[final[b]]
		if sa.StartTime != sb.StartTime {
			return sa.StartTime < sb.StartTime
		}
		return sa.UUID < sb.UUID
	})

	out := make([]model.PublicSegment, len(final))
	for i, idx := range final {
		seg := segs[idx]
		out[i] = model.PublicSegment{
			UUID:      seg.UUID,
			StartTime: seg.StartTime,
			EndTime:   seg.EndTime,
			Votes:     display[idx],
			Category:  seg.Category,
		}
	}
	return out
}

// Submit stores a new segment. Submissions from suppressed or untrustworthy
// contributors are accepted but hidden from everyone but their submitter.
func (s *SegmentService) Submit(ctx context.Context, req model.SubmitRequest) (*model.SubmitResponse, error) {
	if err := validateSubmission(&req); err != nil {
		metrics.SubmissionsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	userID := hash.HashUserID(req.RawUserID)
	uuid := hash.SegmentUUID(req.VideoID, req.StartTime, req.EndTime, userID)

	exists, err := s.store.RangeExists(ctx, req.VideoID, req.StartTime, req.EndTime)
	if err != nil {
		return nil, fmt.Errorf("check duplicate: %w", err)
	}
	if exists {
		metrics.SubmissionsTotal.WithLabelValues("duplicate").Inc()
		return nil, model.ErrConflict
	}

	isVIP, err := s.users.IsVIP(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("check vip: %w", err)
	}
	banned, err := s.users.IsShadowBanned(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("check shadow ban: %w", err)
	}
	stats, err := s.users.ContributorStats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("contributor stats: %w", err)
	}

	seg := model.Segment{
		UUID:          uuid,
		VideoID:       req.VideoID,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		Category:      req.Category,
		UserID:        userID,
		HashedIP:      req.HashedIP,
		ShadowHidden:  banned || !IsTrustworthy(stats),
		TimeSubmitted: s.now().UTC(),
	}
	if isVIP {
		seg.Votes = s.opts.VIPStartingVotes
	}

	if err := s.store.Insert(ctx, seg); err != nil {
		if errors.Is(err, model.ErrConflict) {
			metrics.SubmissionsTotal.WithLabelValues("duplicate").Inc()
		}
		return nil, err
	}

	outcome := "accepted"
	if seg.ShadowHidden {
		outcome = "hidden"
	}
	metrics.SubmissionsTotal.WithLabelValues(outcome).Inc()
	log.Info().Str("component", "segment").Str("video_id", seg.VideoID).Str("uuid", uuid).
		Bool("hidden", seg.ShadowHidden).Msg("segment submitted")

	if err := s.cache.InvalidateSegments(ctx, seg.VideoID); err != nil {
		log.Warn().Err(err).Str("component", "segment").Str("video_id", seg.VideoID).Msg("cache invalidate failed")
	}

	if stats.TotalSubmissions == 0 && !seg.ShadowHidden && s.events != nil {
		s.events.PublishSubmission(ctx, notify.SubmissionEvent{
			Kind:  notify.KindFirstSubmission,
			Video: notify.Video{ID: seg.VideoID},
			Submission: notify.Submission{
				UUID:      uuid,
				Category:  seg.Category,
				StartTime: seg.StartTime,
				EndTime:   seg.EndTime,
				User:      notify.Submitter{UUID: userID},
			},
		})
	}

	return &model.SubmitResponse{UUID: uuid, ShadowHidden: seg.ShadowHidden}, nil
}

func validateSubmission(req *model.SubmitRequest) error {
	req.VideoID = strings.TrimSpace(req.VideoID)
	switch {
	case req.VideoID == "":
		return fmt.Errorf("%w: videoID is required", model.ErrInvalidInput)
	case req.RawUserID == "":
		return fmt.Errorf("%w: userID is required", model.ErrInvalidInput)
	case !finite(req.StartTime) || !finite(req.EndTime):
		return fmt.Errorf("%w: times must be finite", model.ErrInvalidInput)
	case req.StartTime < 0:
		return fmt.Errorf("%w: startTime must not be negative", model.ErrInvalidInput)
	case req.StartTime > req.EndTime:
		return fmt.Errorf("%w: startTime must not exceed endTime", model.ErrInvalidInput)
	}

	if req.Category == "" {
		req.Category = model.DefaultCategory
	}
	if !model.Categories[req.Category] {
		return fmt.Errorf("%w: %q", model.ErrInvalidCategory, req.Category)
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Viewed counts one view of a segment.
func (s *SegmentService) Viewed(ctx context.Context, uuid string) error {
	videoID, err := s.store.IncrementViews(ctx, uuid)
	if err != nil {
		return err
	}
	if err := s.cache.InvalidateSegments(ctx, videoID); err != nil {
		log.Warn().Err(err).Str("component", "segment").Str("video_id", videoID).Msg("cache invalidate failed")
	}
	return nil
}
