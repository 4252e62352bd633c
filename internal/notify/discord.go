package notify

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	discordColorReport     = 10813440
	discordColorIncorrect  = 16746496
	discordColorSubmission = 3066993
)

type discordMessage struct {
	Embeds []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	URL         string         `json:"url,omitempty"`
	Color       int            `json:"color"`
	Author      *discordAuthor `json:"author,omitempty"`
	Image       *discordImage  `json:"image,omitempty"`
}

type discordAuthor struct {
	Name string `json:"name"`
}

type discordImage struct {
	URL string `json:"url"`
}

// voteEmbed renders a downvote report. The link jumps to the segment start.
func voteEmbed(ev VoteEvent) discordMessage {
	color := discordColorReport
	if ev.Channel == ChannelIncorrect {
		color = discordColorIncorrect
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**%d Votes Prior | %d Votes Now | %d Views**\n\n",
		ev.Votes.Before, ev.Votes.After, ev.Submission.Views)
	fmt.Fprintf(&b, "**Submission ID:** %s\n", ev.Submission.UUID)
	fmt.Fprintf(&b, "**Category:** %s\n\n", ev.Submission.Category)
	fmt.Fprintf(&b, "**Submitted by:** %s\n\n", ev.Submission.User.UUID)
	fmt.Fprintf(&b, "**Total User Submissions:** %d\n", ev.Submission.User.Submissions.Total)
	fmt.Fprintf(&b, "**Ignored User Submissions:** %d\n\n", ev.Submission.User.Submissions.Ignored)
	fmt.Fprintf(&b, "**Timestamp:** %s to %s",
		formatTimestamp(ev.Submission.StartTime), formatTimestamp(ev.Submission.EndTime))

	embed := discordEmbed{
		Title:       ev.Video.Title,
		Description: b.String(),
		URL:         ev.Video.URL + "&t=" + strconv.Itoa(int(ev.Submission.StartTime)),
		Color:       color,
		Author:      &discordAuthor{Name: voterLabel(ev.User.Status)},
	}
	if ev.Video.Thumbnail != "" {
		embed.Image = &discordImage{URL: ev.Video.Thumbnail}
	}
	return discordMessage{Embeds: []discordEmbed{embed}}
}

func firstSubmissionEmbed(ev SubmissionEvent) discordMessage {
	embed := discordEmbed{
		Title: ev.Video.Title,
		Description: fmt.Sprintf("Submission ID: %s\n\nTimestamp: %s to %s\n\nCategory: %s",
			ev.Submission.UUID,
			formatTimestamp(ev.Submission.StartTime),
			formatTimestamp(ev.Submission.EndTime),
			ev.Submission.Category),
		URL:    ev.Video.URL + "&t=" + strconv.Itoa(int(ev.Submission.StartTime)),
		Color:  discordColorSubmission,
		Author: &discordAuthor{Name: ev.Submission.User.UUID},
	}
	if ev.Video.Thumbnail != "" {
		embed.Image = &discordImage{URL: ev.Video.Thumbnail}
	}
	return discordMessage{Embeds: []discordEmbed{embed}}
}

func voterLabel(s VoterStatus) string {
	switch s {
	case VoterVIP:
		return "Report by VIP"
	case VoterSelf:
		return "Report by Submitter"
	case VoterNewUser:
		return "Report by New User"
	default:
		return "Report"
	}
}

// formatTimestamp renders seconds as H:MM:SS.mmm, dropping the hour when zero.
func formatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	ms := int64(seconds*1000 + 0.5)
	h := ms / 3_600_000
	m := ms / 60_000 % 60
	s := ms / 1000 % 60
	frac := ms % 1000
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d.%03d", h, m, s, frac)
	}
	return fmt.Sprintf("%d:%02d.%03d", m, s, frac)
}
