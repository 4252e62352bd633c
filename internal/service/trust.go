package service

import (
	"context"

	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/model"
)

const (
	// Contributors with this many submissions or fewer are always trusted.
	minSubmissionsForJudgement = 5

	// Above the minimum, a downvoted share at or past this ratio loses trust
	// unless the contributor's vote sum still outweighs the downvoted count.
	maxDownvotedRatio = 0.6
)

// StatsReader reads a contributor's submission snapshot.
type StatsReader interface {
	ContributorStats(ctx context.Context, userID string) (model.ContributorStats, error)
}

// IsTrustworthy decides whether a contributor's submissions should be
// publicly visible:
//
//	total <= 5                                   -> trusted
//	downvoted/total < 0.6 OR voteSum > downvoted -> trusted
func IsTrustworthy(s model.ContributorStats) bool {
	if s.TotalSubmissions <= minSubmissionsForJudgement {
		return true
	}
	ratio := float64(s.DownvotedSubmissions) / float64(s.TotalSubmissions)
	return ratio < maxDownvotedRatio || s.VoteSum > s.DownvotedSubmissions
}
