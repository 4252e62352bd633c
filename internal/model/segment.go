package model

import "time"

// DefaultCategory is assigned to submissions that do not name a category.
const DefaultCategory = "sponsor"

// Categories are the allowed segment category labels.
var Categories = map[string]bool{
	"sponsor":        true,
	"intro":          true,
	"outro":          true,
	"interaction":    true,
	"selfpromo":      true,
	"music_offtopic": true,
}

// Segment is one submitted time range on one video.
type Segment struct {
	UUID           string    `json:"UUID"`
	VideoID        string    `json:"videoID"`
	StartTime      float64   `json:"startTime"`
	EndTime        float64   `json:"endTime"`
	Votes          int       `json:"votes"`
	IncorrectVotes int       `json:"incorrectVotes"`
	Category       string    `json:"category"`
	Views          int       `json:"views"`
	ShadowHidden   bool      `json:"shadowHidden"`
	UserID         string    `json:"userID"`
	TimeSubmitted  time.Time `json:"timeSubmitted"`

	// HashedIP is the submitter's fingerprint from the private table.
	HashedIP string `json:"hashedIP,omitempty"`
}

// Overlaps reports whether either segment starts inside the other.
func (s Segment) Overlaps(o Segment) bool {
	return (o.StartTime >= s.StartTime && o.StartTime <= s.EndTime) ||
		(s.StartTime >= o.StartTime && s.StartTime <= o.EndTime)
}

// PublicSegment is a segment as served on the read path. Votes is the
// display score, which for a group representative is the group's vote sum.
type PublicSegment struct {
	UUID      string  `json:"UUID"`
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
	Votes     int     `json:"votes"`
	Category  string  `json:"category"`
}

// SegmentList is the result of a public segment lookup.
type SegmentList struct {
	VideoID  string
	Segments []PublicSegment
}

// SegmentListResponse is the API response for segment lookups. The three
// arrays are parallel.
type SegmentListResponse struct {
	SponsorTimes [][2]float64 `json:"sponsorTimes"`
	Votes        []int        `json:"votes"`
	UUIDs        []string     `json:"UUIDs"`
	Categories   []string     `json:"categories"`
}

// NewSegmentListResponse flattens a SegmentList into parallel arrays.
func NewSegmentListResponse(l *SegmentList) SegmentListResponse {
	resp := SegmentListResponse{
		SponsorTimes: make([][2]float64, 0, len(l.Segments)),
		Votes:        make([]int, 0, len(l.Segments)),
		UUIDs:        make([]string, 0, len(l.Segments)),
		Categories:   make([]string, 0, len(l.Segments)),
	}
	for _, s := range l.Segments {
		resp.SponsorTimes = append(resp.SponsorTimes, [2]float64{s.StartTime, s.EndTime})
		resp.Votes = append(resp.Votes, s.Votes)
		resp.UUIDs = append(resp.UUIDs, s.UUID)
		resp.Categories = append(resp.Categories, s.Category)
	}
	return resp
}

// SubmitRequest is a new segment submission after parameter parsing.
type SubmitRequest struct {
	VideoID   string
	StartTime float64
	EndTime   float64
	Category  string
	RawUserID string
	HashedIP  string
}

// SubmitResponse is the API response after a submission.
type SubmitResponse struct {
	UUID         string `json:"UUID"`
	ShadowHidden bool   `json:"-"`
}
