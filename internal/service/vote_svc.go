package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/metrics"
	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/model"
	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/notify"
	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/repository"
	"github.com/mathieu-neron/SkipTube/skiptube-go/pkg/hash"
)

type VoteService struct {
	segments SegmentLocker
	users    UserStore
	cache    *CacheService
	events   EventPublisher
}

func NewVoteService(segments SegmentLocker, users UserStore, cache *CacheService, events EventPublisher) *VoteService {
	return &VoteService{segments: segments, users: users, cache: cache, events: events}
}

// Vote applies a score vote. An ineligible voter gets a successful result
// with Accepted=false and nothing is written.
func (s *VoteService) Vote(ctx context.Context, req model.VoteRequest) (*model.VoteResult, error) {
	switch req.Type.Kind {
	case model.VoteUpvote, model.VoteDownvote, model.VoteUndo,
		model.VoteIncorrectUpvote, model.VoteIncorrectDownvote:
	default:
		return nil, fmt.Errorf("%w: vote type %s is not requestable", model.ErrInvalidInput, req.Type)
	}

	userID := hash.HashUserID(req.RawUserID)
	voterID := hash.VoterID(req.RawUserID, req.UUID)

	isVIP, err := s.users.IsVIP(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("check vip: %w", err)
	}

	var (
		result  model.VoteResult
		event   *notify.VoteEvent
		changed []string
	)
	err = s.segments.WithLockedSegment(ctx, req.UUID, func(tx repository.SegmentTx) error {
		seg := tx.Segment()
		result.NewScore = seg.Votes
		priv := model.Privileges{IsVIP: isVIP, IsOwner: seg.UserID == userID}

		if req.Type.Kind == model.VoteUpvote && !priv.Privileged() && seg.Votes <= penaltyFloor {
			return model.ErrForbidden
		}

		eligible, hasSubmissions, err := s.eligible(ctx, tx, isVIP, userID, voterID, req.HashedIP)
		if err != nil || !eligible {
			return err
		}

		prev, err := tx.PreviousVote(ctx, voterID)
		if err != nil {
			return fmt.Errorf("previous vote: %w", err)
		}
		var prevType *model.VoteType
		if prev != nil {
			prevType = &prev.Type
		}

		t := Tally(TallyInput{
			Requested:  req.Type,
			Previous:   prevType,
			Score:      seg.Votes,
			Views:      seg.Views,
			Privileges: priv,
		})

		if err := tx.SaveVote(ctx, model.VoteRecord{
			UUID:     seg.UUID,
			VoterID:  voterID,
			HashedIP: req.HashedIP,
			Type:     t.Stored,
		}); err != nil {
			return err
		}
		if err := tx.AdjustScores(ctx, t.ScoreDelta, t.IncorrectDelta); err != nil {
			return err
		}

		if req.Type.Kind == model.VoteUpvote && t.ScoreDelta > 0 {
			if err := restoreHidden(ctx, tx, seg.UserID); err != nil {
				return err
			}
		}

		after := tx.Segment()
		changed = tx.ChangedVideos()
		result.Accepted = true
		result.NewScore = after.Votes

		if s.events != nil && req.Type.Channel() != model.ChannelNone {
			ev, err := voteEvent(ctx, tx, req.Type, priv, hasSubmissions, seg, after)
			if err != nil {
				return err
			}
			event = &ev
		}
		return nil
	})
	if err != nil {
		metrics.VotesTotal.WithLabelValues(string(req.Type.Kind), voteOutcome(err)).Inc()
		return nil, err
	}

	if !result.Accepted {
		metrics.VotesTotal.WithLabelValues(string(req.Type.Kind), "suppressed").Inc()
		log.Debug().Str("component", "vote").Str("uuid", req.UUID).Msg("vote suppressed")
		return &result, nil
	}
	metrics.VotesTotal.WithLabelValues(string(req.Type.Kind), "accepted").Inc()

	if err := s.cache.InvalidateSegments(ctx, changed...); err != nil {
		log.Warn().Err(err).Str("component", "vote").Strs("video_ids", changed).Msg("cache invalidate failed")
	}
	if event != nil {
		s.events.PublishVote(ctx, *event)
	}
	return &result, nil
}

// eligible decides whether the vote counts. VIPs always count. Everyone else
// needs a submission of their own, no shadow ban, and an IP no other voter
// on this segment has used.
func (s *VoteService) eligible(ctx context.Context, tx repository.SegmentTx, isVIP bool, userID, voterID, hashedIP string) (eligible, hasSubmissions bool, err error) {
	hasSubmissions, err = tx.HasSubmissions(ctx, userID)
	if err != nil {
		return false, false, fmt.Errorf("check submissions: %w", err)
	}
	if isVIP {
		return true, hasSubmissions, nil
	}
	if !hasSubmissions {
		return false, false, nil
	}

	banned, err := tx.IsShadowBanned(ctx, userID)
	if err != nil {
		return false, hasSubmissions, fmt.Errorf("check shadow ban: %w", err)
	}
	if banned {
		return false, hasSubmissions, nil
	}

	shared, err := tx.IPVotedAsOther(ctx, hashedIP, voterID)
	if err != nil {
		return false, hasSubmissions, fmt.Errorf("check voter ip: %w", err)
	}
	return !shared, hasSubmissions, nil
}

// restoreHidden un-hides a batch of the author's oldest hidden segments when
// an upvote shows the author has earned trust back. Banned authors stay hidden.
func restoreHidden(ctx context.Context, tx repository.SegmentTx, authorID string) error {
	hidden, err := tx.HiddenCount(ctx, authorID)
	if err != nil || hidden == 0 {
		return err
	}
	banned, err := tx.IsShadowBanned(ctx, authorID)
	if err != nil || banned {
		return err
	}
	stats, err := tx.ContributorStats(ctx, authorID)
	if err != nil {
		return err
	}
	if !IsTrustworthy(stats) {
		return nil
	}

	n, err := tx.UnhideOldest(ctx, authorID, unhideBatchSize)
	if err != nil {
		return err
	}
	log.Debug().Str("component", "vote").Int("unhidden", n).Msg("restored hidden segments")
	return nil
}

func voteEvent(ctx context.Context, tx repository.SegmentTx, vt model.VoteType, priv model.Privileges,
	hasSubmissions bool, before, after model.Segment) (notify.VoteEvent, error) {
	author, err := tx.ContributorStats(ctx, before.UserID)
	if err != nil {
		return notify.VoteEvent{}, err
	}

	kind := notify.KindVoteUp
	if vt.IsDownvote() {
		kind = notify.KindVoteDown
	}
	channel := notify.ChannelNormal
	votesBefore, votesAfter := before.Votes, after.Votes
	if vt.Channel() == model.ChannelIncorrect {
		channel = notify.ChannelIncorrect
		votesBefore, votesAfter = before.IncorrectVotes, after.IncorrectVotes
	}

	return notify.VoteEvent{
		Kind:    kind,
		Channel: channel,
		User:    notify.Voter{Status: notify.ResolveVoterStatus(priv.IsVIP, priv.IsOwner, hasSubmissions)},
		Video:   notify.Video{ID: before.VideoID},
		Submission: notify.Submission{
			UUID:      before.UUID,
			Views:     before.Views,
			Category:  after.Category,
			StartTime: before.StartTime,
			EndTime:   before.EndTime,
			User: notify.Submitter{
				UUID: before.UserID,
				Submissions: notify.SubmissionCounts{
					Total:   author.TotalSubmissions,
					Ignored: author.DownvotedSubmissions,
				},
			},
		},
		Votes: notify.VoteCounts{Before: votesBefore, After: votesAfter},
	}, nil
}

func voteOutcome(err error) string {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return "not_found"
	case errors.Is(err, model.ErrForbidden):
		return "forbidden"
	default:
		return "error"
	}
}
