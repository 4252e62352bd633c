package service

import (
	"testing"

	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/model"
)

func vote(v model.VoteType) *model.VoteType { return &v }

func TestTallyDeltas(t *testing.T) {
	tests := []struct {
		name          string
		in            TallyInput
		wantStored    model.VoteType
		wantScore     int
		wantIncorrect int
	}{
		{
			name:       "fresh upvote",
			in:         TallyInput{Requested: model.Upvote, Score: 0},
			wantStored: model.Upvote, wantScore: 1,
		},
		{
			name:       "fresh downvote",
			in:         TallyInput{Requested: model.Downvote, Score: 3},
			wantStored: model.Downvote, wantScore: -1,
		},
		{
			name:       "repeated upvote nets zero",
			in:         TallyInput{Requested: model.Upvote, Previous: vote(model.Upvote), Score: 1},
			wantStored: model.Upvote, wantScore: 0,
		},
		{
			name:       "upvote changed to downvote",
			in:         TallyInput{Requested: model.Downvote, Previous: vote(model.Upvote), Score: 1},
			wantStored: model.Downvote, wantScore: -2,
		},
		{
			name:       "undo an upvote",
			in:         TallyInput{Requested: model.Undo, Previous: vote(model.Upvote), Score: 4},
			wantStored: model.Undo, wantScore: -1,
		},
		{
			name:       "undo with no previous vote",
			in:         TallyInput{Requested: model.Undo, Score: 4},
			wantStored: model.Undo,
		},
		{
			name:          "incorrect downvote",
			in:            TallyInput{Requested: model.IncorrectDownvote},
			wantStored:    model.IncorrectDownvote,
			wantIncorrect: -1,
		},
		{
			name:          "privileged incorrect downvote",
			in:            TallyInput{Requested: model.IncorrectDownvote, Privileges: model.Privileges{IsVIP: true}},
			wantStored:    model.VoteType{Kind: model.VotePrivilegedIncorrectDownvote},
			wantIncorrect: -500,
		},
		{
			name:          "owner incorrect upvote",
			in:            TallyInput{Requested: model.IncorrectUpvote, Privileges: model.Privileges{IsOwner: true}},
			wantStored:    model.VoteType{Kind: model.VotePrivilegedIncorrectUpvote},
			wantIncorrect: 500,
		},
		{
			name:          "switch from upvote to incorrect downvote",
			in:            TallyInput{Requested: model.IncorrectDownvote, Previous: vote(model.Upvote), Score: 1},
			wantStored:    model.IncorrectDownvote,
			wantScore:     -1,
			wantIncorrect: -1,
		},
		{
			name:       "vip downvote from 7",
			in:         TallyInput{Requested: model.Downvote, Score: 7, Privileges: model.Privileges{IsVIP: true}},
			wantStored: model.Adjustment(-9), wantScore: -9,
		},
		{
			name:       "amplified by score",
			in:         TallyInput{Requested: model.Downvote, Score: 20},
			wantStored: model.Adjustment(-10), wantScore: -10,
		},
		{
			name:       "amplified by views",
			in:         TallyInput{Requested: model.Downvote, Score: 3, Views: 16},
			wantStored: model.Adjustment(-5), wantScore: -5,
		},
		{
			name:       "views at threshold not amplified",
			in:         TallyInput{Requested: model.Downvote, Score: 3, Views: 15},
			wantStored: model.Downvote, wantScore: -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tally(tt.in)
			if got.Stored != tt.wantStored {
				t.Errorf("Stored = %s, want %s", got.Stored, tt.wantStored)
			}
			if got.ScoreDelta != tt.wantScore {
				t.Errorf("ScoreDelta = %d, want %d", got.ScoreDelta, tt.wantScore)
			}
			if got.IncorrectDelta != tt.wantIncorrect {
				t.Errorf("IncorrectDelta = %d, want %d", got.IncorrectDelta, tt.wantIncorrect)
			}
		})
	}
}

func TestTallyPrivilegedDownvoteLandsOnFloor(t *testing.T) {
	previous := []*model.VoteType{nil, vote(model.Upvote), vote(model.Downvote), vote(model.Adjustment(-4)), vote(model.IncorrectUpvote)}
	privileges := []model.Privileges{{IsVIP: true}, {IsOwner: true}}

	for score := -12; score <= 40; score++ {
		for _, prev := range previous {
			for _, priv := range privileges {
				for _, views := range []int{0, 100} {
					got := Tally(TallyInput{Requested: model.Downvote, Previous: prev, Score: score, Views: views, Privileges: priv})
					if after := score + got.ScoreDelta; after != penaltyFloor {
						t.Fatalf("score %d prev %v priv %+v views %d: landed on %d, want %d",
							score, prev, priv, views, after, penaltyFloor)
					}
				}
			}
		}
	}
}

func TestTallyAmplifiedDownvoteCap(t *testing.T) {
	for score := -1; score <= 60; score++ {
		for _, views := range []int{0, 16, 1000} {
			got := Tally(TallyInput{Requested: model.Downvote, Score: score, Views: views})
			if got.ScoreDelta > 0 || got.ScoreDelta < -maxAmplifiedDownvote {
				t.Fatalf("score %d views %d: delta %d outside [-%d, 0]", score, views, got.ScoreDelta, maxAmplifiedDownvote)
			}
		}
	}
}

// The score must always equal the sum of every voter's current stored delta.
func TestTallyScoreMatchesStoredVotes(t *testing.T) {
	type action struct {
		voter string
		vt    model.VoteType
		priv  model.Privileges
		views int
	}
	actions := []action{
		{"a", model.Upvote, model.Privileges{}, 0},
		{"b", model.Upvote, model.Privileges{}, 0},
		{"c", model.Downvote, model.Privileges{}, 0},
		{"a", model.Downvote, model.Privileges{}, 0},
		{"a", model.Downvote, model.Privileges{}, 0},
		{"d", model.Upvote, model.Privileges{}, 20},
		{"e", model.Downvote, model.Privileges{}, 20},
		{"vip", model.Downvote, model.Privileges{IsVIP: true}, 20},
		{"b", model.Undo, model.Privileges{}, 20},
		{"vip", model.Upvote, model.Privileges{IsVIP: true}, 20},
		{"c", model.IncorrectDownvote, model.Privileges{}, 20},
		{"owner", model.Downvote, model.Privileges{IsOwner: true}, 20},
		{"e", model.Upvote, model.Privileges{}, 20},
	}

	stored := map[string]model.VoteType{}
	score := 0
	for i, a := range actions {
		var prev *model.VoteType
		if p, ok := stored[a.voter]; ok {
			prev = &p
		}
		got := Tally(TallyInput{Requested: a.vt, Previous: prev, Score: score, Views: a.views, Privileges: a.priv})
		stored[a.voter] = got.Stored
		score += got.ScoreDelta

		sum := 0
		for _, vt := range stored {
			if vt.Channel() == model.ChannelNormal {
				sum += vt.Delta()
			}
		}
		if score != sum {
			t.Fatalf("after action %d (%s %s): score %d, stored sum %d", i, a.voter, a.vt, score, sum)
		}
	}
}
