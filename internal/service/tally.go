package service

import "github.com/mathieu-neron/SkipTube/skiptube-go/internal/model"

const (
	// penaltyFloor is where a privileged or owner downvote puts a segment.
	// Segments at or below it are dropped from the read path.
	penaltyFloor = -2

	amplifyScoreThreshold = 8
	amplifyViewThreshold  = 15
	maxAmplifiedDownvote  = 10

	unhideBatchSize = 2
)

// TallyInput is everything needed to price one vote.
type TallyInput struct {
	Requested  model.VoteType
	Previous   *model.VoteType
	Score      int
	Views      int
	Privileges model.Privileges
}

// TallyResult is the vote type to persist and the net change to each score
// column. The voter's previous contribution is already netted out.
type TallyResult struct {
	Stored         model.VoteType
	NewDelta       int
	ScoreDelta     int
	IncorrectDelta int
}

// Tally prices a vote against the voter's previous stance on the segment.
// It is pure; the caller persists Stored and applies the deltas atomically.
func Tally(in TallyInput) TallyResult {
	var oldDelta, oldNormal int
	oldChannel := model.ChannelNone
	if in.Previous != nil {
		oldDelta = in.Previous.Delta()
		oldChannel = in.Previous.Channel()
		if oldChannel == model.ChannelNormal {
			oldNormal = oldDelta
		}
	}

	stored := in.Requested
	newDelta := in.Requested.Delta()

	switch in.Requested.Channel() {
	case model.ChannelNormal:
		if newDelta >= 0 {
			break
		}
		if in.Privileges.Privileged() {
			newDelta = -(in.Score - penaltyFloor - oldNormal)
			stored = model.Adjustment(newDelta)
		} else if in.Score > amplifyScoreThreshold || in.Views > amplifyViewThreshold {
			newDelta = -abs(min(maxAmplifiedDownvote, in.Score-penaltyFloor-oldNormal))
			stored = model.Adjustment(newDelta)
		}
	case model.ChannelIncorrect:
		if in.Privileges.Privileged() {
			if newDelta < 0 {
				stored = model.VoteType{Kind: model.VotePrivilegedIncorrectDownvote}
			} else {
				stored = model.VoteType{Kind: model.VotePrivilegedIncorrectUpvote}
			}
			newDelta = stored.Delta()
		}
	}

	res := TallyResult{Stored: stored, NewDelta: newDelta}
	res.apply(in.Requested.Channel(), newDelta)
	res.apply(oldChannel, -oldDelta)
	return res
}

func (r *TallyResult) apply(ch model.VoteChannel, delta int) {
	switch ch {
	case model.ChannelNormal:
		r.ScoreDelta += delta
	case model.ChannelIncorrect:
		r.IncorrectDelta += delta
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
