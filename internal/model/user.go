package model

// ContributorStats is a point-in-time snapshot of a contributor's history,
// used to decide trust.
type ContributorStats struct {
	TotalSubmissions     int
	VoteSum              int
	DownvotedSubmissions int
}

// Privileges describes what a voter may do on a particular segment.
type Privileges struct {
	IsVIP   bool
	IsOwner bool
}

// Privileged reports whether the voter gets VIP-or-owner scaling.
func (p Privileges) Privileged() bool {
	return p.IsVIP || p.IsOwner
}

// UserViewsResponse is the API response for a contributor's view total.
type UserViewsResponse struct {
	ViewCount int `json:"viewCount"`
}

// UserTimeSavedResponse is the API response for a contributor's saved time.
type UserTimeSavedResponse struct {
	TimeSaved float64 `json:"timeSaved"`
}

// StatsResponse is the API response for global statistics.
type StatsResponse struct {
	UserCount        int     `json:"userCount"`
	ActiveUsers      int     `json:"activeUsers"`
	ViewCount        int     `json:"viewCount"`
	TotalSubmissions int     `json:"totalSubmissions"`
	MinutesSaved     float64 `json:"minutesSaved"`
	GeneratedAt      string  `json:"generatedAt"`
}

// DaysSavedResponse carries the saved-time total in days, two decimals.
type DaysSavedResponse struct {
	DaysSaved string `json:"daysSaved"`
}

// LeaderboardSort picks the column the top-contributor list is ordered by.
type LeaderboardSort int

const (
	SortByMinutesSaved LeaderboardSort = iota
	SortByViewCount
	SortByTotalSubmissions
)

func (s LeaderboardSort) Valid() bool {
	return s >= SortByMinutesSaved && s <= SortByTotalSubmissions
}

// Contributor is one leaderboard row. UserID is the public hashed id; there
// are no display names.
type Contributor struct {
	UserID           string
	TotalSubmissions int
	ViewCount        int
	MinutesSaved     float64
}

// TopUsersResponse is the leaderboard in parallel arrays, one entry per
// contributor.
type TopUsersResponse struct {
	UserNames        []string  `json:"userNames"`
	ViewCounts       []int     `json:"viewCounts"`
	TotalSubmissions []int     `json:"totalSubmissions"`
	MinutesSaved     []float64 `json:"minutesSaved"`
}
