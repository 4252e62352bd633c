package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Webhook target labels, also used as the metric label.
const (
	TargetGeneric         = "generic"
	TargetReport          = "report"
	TargetIncorrect       = "incorrect"
	TargetFirstSubmission = "first-submission"
)

// Targets are the configured webhook destinations. Empty URLs are skipped.
type Targets struct {
	Generic         []string
	Report          string
	Incorrect       string
	FirstSubmission string
}

// Delivery is one event bound for one webhook. Each delivery is queued and
// retried on its own, so a failing target never re-posts to the others.
// Exactly one of Vote and Submission is set.
type Delivery struct {
	Target     string           `json:"target"`
	URL        string           `json:"url"`
	Vote       *VoteEvent       `json:"vote,omitempty"`
	Submission *SubmissionEvent `json:"submission,omitempty"`
}

// Deliverer routes events to targets, enriches them with video metadata and
// posts them.
type Deliverer struct {
	sender  *WebhookSender
	meta    MetadataLookup
	targets Targets
}

func NewDeliverer(sender *WebhookSender, meta MetadataLookup, targets Targets) *Deliverer {
	return &Deliverer{sender: sender, meta: meta, targets: targets}
}

// VoteDeliveries sends the event to every generic webhook, and downvotes to
// the Discord report channel matching the vote's channel.
func (d *Deliverer) VoteDeliveries(ev VoteEvent) []Delivery {
	var out []Delivery
	for _, url := range d.targets.Generic {
		out = append(out, Delivery{Target: TargetGeneric, URL: url, Vote: &ev})
	}
	if ev.Kind == KindVoteDown {
		target, url := TargetReport, d.targets.Report
		if ev.Channel == ChannelIncorrect {
			target, url = TargetIncorrect, d.targets.Incorrect
		}
		if url != "" {
			out = append(out, Delivery{Target: target, URL: url, Vote: &ev})
		}
	}
	return out
}

// SubmissionDeliveries announces a first-time submitter.
func (d *Deliverer) SubmissionDeliveries(ev SubmissionEvent) []Delivery {
	var out []Delivery
	for _, url := range d.targets.Generic {
		out = append(out, Delivery{Target: TargetGeneric, URL: url, Submission: &ev})
	}
	if d.targets.FirstSubmission != "" {
		out = append(out, Delivery{Target: TargetFirstSubmission, URL: d.targets.FirstSubmission, Submission: &ev})
	}
	return out
}

// Deliver posts one delivery. Generic targets get the raw event, Discord
// targets an embed.
func (d *Deliverer) Deliver(ctx context.Context, del Delivery) error {
	var payload any
	switch {
	case del.Vote != nil:
		ev := *del.Vote
		ev.Video = d.video(ctx, ev.Video.ID)
		payload = ev
		if del.Target != TargetGeneric {
			payload = voteEmbed(ev)
		}
	case del.Submission != nil:
		ev := *del.Submission
		ev.Video = d.video(ctx, ev.Video.ID)
		payload = ev
		if del.Target != TargetGeneric {
			payload = firstSubmissionEmbed(ev)
		}
	default:
		return fmt.Errorf("delivery to %s carries no event", del.Target)
	}
	return d.sender.Post(ctx, del.Target, del.URL, payload)
}

// DeliverVote posts to every target synchronously and reports all failures.
func (d *Deliverer) DeliverVote(ctx context.Context, ev VoteEvent) error {
	return d.deliverAll(ctx, d.VoteDeliveries(ev))
}

func (d *Deliverer) DeliverSubmission(ctx context.Context, ev SubmissionEvent) error {
	return d.deliverAll(ctx, d.SubmissionDeliveries(ev))
}

func (d *Deliverer) deliverAll(ctx context.Context, dels []Delivery) error {
	var errs []error
	for _, del := range dels {
		if err := d.Deliver(ctx, del); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", del.Target, err))
		}
	}
	return errors.Join(errs...)
}

// video never fails: a missing title is better than a missing notification.
func (d *Deliverer) video(ctx context.Context, videoID string) Video {
	v := Video{ID: videoID, URL: VideoURL(videoID)}
	if d.meta == nil {
		return v
	}
	md, err := d.meta.Lookup(ctx, videoID)
	if err != nil {
		log.Warn().Err(err).Str("component", "notify").Str("video_id", videoID).Msg("metadata lookup failed")
		return v
	}
	v.Title = md.Title
	v.Thumbnail = md.Thumbnail
	return v
}
