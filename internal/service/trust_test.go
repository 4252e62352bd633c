package service

import (
	"testing"

	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/model"
)

func TestIsTrustworthy(t *testing.T) {
	tests := []struct {
		name  string
		stats model.ContributorStats
		want  bool
	}{
		{"no submissions", model.ContributorStats{}, true},
		{"five submissions all downvoted", model.ContributorStats{TotalSubmissions: 5, VoteSum: -10, DownvotedSubmissions: 5}, true},
		{"six submissions all downvoted", model.ContributorStats{TotalSubmissions: 6, VoteSum: -10, DownvotedSubmissions: 6}, false},
		{"six submissions ratio just under", model.ContributorStats{TotalSubmissions: 10, VoteSum: 0, DownvotedSubmissions: 5}, true},
		{"ratio exactly at limit", model.ContributorStats{TotalSubmissions: 10, VoteSum: 0, DownvotedSubmissions: 6}, false},
		{"bad ratio rescued by vote sum", model.ContributorStats{TotalSubmissions: 10, VoteSum: 7, DownvotedSubmissions: 6}, true},
		{"vote sum equal is not enough", model.ContributorStats{TotalSubmissions: 10, VoteSum: 6, DownvotedSubmissions: 6}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTrustworthy(tt.stats); got != tt.want {
				t.Errorf("IsTrustworthy(%+v) = %v, want %v", tt.stats, got, tt.want)
			}
		})
	}
}
