// Package notify delivers vote and submission events to outbound webhooks.
// Events are produced after a write commits and are never allowed to fail
// or roll back the write that produced them.
package notify

import "context"

const (
	KindVoteUp          = "vote.up"
	KindVoteDown        = "vote.down"
	KindFirstSubmission = "submission.first"
)

// Vote channels reported in VoteEvent.Channel.
const (
	ChannelNormal    = "normal"
	ChannelIncorrect = "incorrect"
)

// VoterStatus describes the voter relative to the segment.
type VoterStatus string

const (
	VoterVIP     VoterStatus = "vip"
	VoterSelf    VoterStatus = "self"
	VoterNewUser VoterStatus = "newUser"
	VoterOther   VoterStatus = "other"
)

// ResolveVoterStatus picks the voter's status; VIP wins over ownership.
func ResolveVoterStatus(isVIP, isOwner, hasSubmissions bool) VoterStatus {
	switch {
	case isVIP:
		return VoterVIP
	case isOwner:
		return VoterSelf
	case !hasSubmissions:
		return VoterNewUser
	default:
		return VoterOther
	}
}

type Voter struct {
	Status VoterStatus `json:"status"`
}

// Video is filled in by the worker from the metadata lookup.
type Video struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	Thumbnail string `json:"thumbnail"`
}

type SubmissionCounts struct {
	Total   int `json:"total"`
	Ignored int `json:"ignored"`
}

type Submitter struct {
	UUID        string           `json:"UUID"`
	Submissions SubmissionCounts `json:"submissions"`
}

type Submission struct {
	UUID      string    `json:"UUID"`
	Views     int       `json:"views"`
	Category  string    `json:"category"`
	StartTime float64   `json:"startTime"`
	EndTime   float64   `json:"endTime"`
	User      Submitter `json:"user"`
}

type VoteCounts struct {
	Before int `json:"before"`
	After  int `json:"after"`
}

// VoteEvent describes one accepted vote.
type VoteEvent struct {
	Kind       string     `json:"kind"`
	Channel    string     `json:"channel"`
	User       Voter      `json:"user"`
	Video      Video      `json:"video"`
	Submission Submission `json:"submission"`
	Votes      VoteCounts `json:"votes"`
}

// SubmissionEvent describes a contributor's first accepted submission.
type SubmissionEvent struct {
	Kind       string     `json:"kind"`
	Video      Video      `json:"video"`
	Submission Submission `json:"submission"`
}

// VideoMetadata is what a metadata lookup returns for a video.
type VideoMetadata struct {
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail"`
}

// MetadataLookup resolves display metadata for a video.
type MetadataLookup interface {
	Lookup(ctx context.Context, videoID string) (VideoMetadata, error)
}

// VideoURL is the public watch URL for a video.
func VideoURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}
