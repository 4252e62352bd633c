package service

import (
	"context"

	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/model"
	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/notify"
	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/repository"
)

// SegmentLocker runs fn with the segment row locked inside a transaction.
type SegmentLocker interface {
	WithLockedSegment(ctx context.Context, uuid string, fn func(repository.SegmentTx) error) error
}

// SegmentStore is the segment storage used outside the locked write paths.
type SegmentStore interface {
	SegmentLocker
	FindByVideoID(ctx context.Context, videoID string) ([]model.Segment, error)
	RangeExists(ctx context.Context, videoID string, start, end float64) (bool, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	Insert(ctx context.Context, s model.Segment) error
	IncrementViews(ctx context.Context, uuid string) (string, error)
}

// UserStore answers privilege and suppression questions about a contributor.
type UserStore interface {
	StatsReader
	IsVIP(ctx context.Context, userID string) (bool, error)
	IsShadowBanned(ctx context.Context, userID string) (bool, error)
}

// EventPublisher receives events after their write has committed.
type EventPublisher interface {
	PublishVote(ctx context.Context, ev notify.VoteEvent)
	PublishSubmission(ctx context.Context, ev notify.SubmissionEvent)
}
