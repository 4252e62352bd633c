package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/model"
	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/notify"
	"github.com/mathieu-neron/SkipTube/skiptube-go/pkg/hash"
)

const target = "target-uuid"

type voteFixture struct {
	store  *fakeStore
	events *fakePublisher
	svc    *VoteService
	author string
}

func newVoteFixture(votes, views int) *voteFixture {
	store := newFakeStore()
	events := &fakePublisher{}
	author := hash.HashUserID("author")
	store.put(model.Segment{UUID: target, VideoID: "vid", StartTime: 10, EndTime: 20, Votes: votes, Views: views, UserID: author})
	return &voteFixture{
		store:  store,
		events: events,
		svc:    NewVoteService(store, store, nil, events),
		author: author,
	}
}

func (fx *voteFixture) vote(t *testing.T, raw, ip string, vt model.VoteType) *model.VoteResult {
	t.Helper()
	res, err := fx.svc.Vote(context.Background(), model.VoteRequest{UUID: target, RawUserID: raw, HashedIP: ip, Type: vt})
	if err != nil {
		t.Fatalf("Vote(%s, %s): %v", raw, vt, err)
	}
	return res
}

func (fx *voteFixture) score() int {
	return fx.store.get(target).Votes
}

func TestVoteUnknownSegment(t *testing.T) {
	fx := newVoteFixture(0, 0)
	_, err := fx.svc.Vote(context.Background(), model.VoteRequest{UUID: "missing", RawUserID: "x", Type: model.Upvote})
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestVoteRejectsUnrequestableTypes(t *testing.T) {
	fx := newVoteFixture(0, 0)
	for _, vt := range []model.VoteType{model.Adjustment(-3), {Kind: model.VotePrivilegedIncorrectUpvote}, {Kind: "bogus"}} {
		_, err := fx.svc.Vote(context.Background(), model.VoteRequest{UUID: target, RawUserID: "x", Type: vt})
		if !errors.Is(err, model.ErrInvalidInput) {
			t.Errorf("Vote(%s) err = %v, want ErrInvalidInput", vt, err)
		}
	}
}

func TestVoteUpThenDown(t *testing.T) {
	fx := newVoteFixture(0, 0)
	fx.store.contributor("alice")

	if res := fx.vote(t, "alice", "ip-a", model.Upvote); !res.Accepted || res.NewScore != 1 {
		t.Fatalf("upvote result = %+v, want accepted score 1", res)
	}
	if res := fx.vote(t, "alice", "ip-a", model.Downvote); res.NewScore != -1 {
		t.Fatalf("downvote after upvote: score %d, want -1", res.NewScore)
	}
	if got := fx.score(); got != -1 {
		t.Errorf("stored score = %d, want -1", got)
	}
}

func TestVoteIdempotent(t *testing.T) {
	fx := newVoteFixture(0, 0)
	fx.store.contributor("alice")

	for i := 0; i < 5; i++ {
		fx.vote(t, "alice", "ip-a", model.Upvote)
	}
	if got := fx.score(); got != 1 {
		t.Errorf("score after repeated upvotes = %d, want 1", got)
	}

	fx.vote(t, "alice", "ip-a", model.Undo)
	if got := fx.score(); got != 0 {
		t.Errorf("score after undo = %d, want 0", got)
	}
}

func TestVoteIneligibleIsSilent(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, fx *voteFixture)
		voter string
		ip    string
	}{
		{
			name:  "no submissions",
			setup: func(fx *voteFixture) {},
			voter: "newcomer", ip: "ip-n",
		},
		{
			name: "shadow banned",
			setup: func(fx *voteFixture) {
				id := fx.store.contributor("troll")
				fx.store.banned[id] = true
			},
			voter: "troll", ip: "ip-t",
		},
		{
			name: "ip shared with another voter",
			setup: func(fx *voteFixture) {
				fx.store.contributor("bob")
				fx.store.contributor("sock")
				res, _ := fx.svc.Vote(context.Background(), model.VoteRequest{UUID: target, RawUserID: "bob", HashedIP: "ip-shared", Type: model.Upvote})
				if res == nil || !res.Accepted {
					panic("setup vote was not accepted")
				}
			},
			voter: "sock", ip: "ip-shared",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newVoteFixture(0, 0)
			tt.setup(t, fx)
			before := fx.score()

			res := fx.vote(t, tt.voter, tt.ip, model.Downvote)
			if res.Accepted {
				t.Error("vote should be suppressed")
			}
			if got := fx.score(); got != before {
				t.Errorf("score changed from %d to %d", before, got)
			}
		})
	}
}

func TestVoteVIPAlwaysEligible(t *testing.T) {
	fx := newVoteFixture(5, 0)
	fx.store.vips[hash.HashUserID("vip")] = true

	res := fx.vote(t, "vip", "ip-v", model.Upvote)
	if !res.Accepted || fx.score() != 6 {
		t.Errorf("vip upvote: accepted=%v score=%d, want accepted score 6", res.Accepted, fx.score())
	}
}

func TestVoteUpvoteOnPenalizedSegment(t *testing.T) {
	t.Run("ordinary voter forbidden", func(t *testing.T) {
		fx := newVoteFixture(-2, 0)
		fx.store.contributor("alice")
		_, err := fx.svc.Vote(context.Background(), model.VoteRequest{UUID: target, RawUserID: "alice", HashedIP: "ip", Type: model.Upvote})
		if !errors.Is(err, model.ErrForbidden) {
			t.Errorf("err = %v, want ErrForbidden", err)
		}
	})

	t.Run("incorrect upvote allowed", func(t *testing.T) {
		fx := newVoteFixture(-2, 0)
		fx.store.contributor("alice")
		fx.vote(t, "alice", "ip", model.IncorrectUpvote)
	})

	t.Run("owner allowed", func(t *testing.T) {
		fx := newVoteFixture(-2, 0)
		if res := fx.vote(t, "author", "ip", model.Upvote); res.NewScore != -1 {
			t.Errorf("score = %d, want -1", res.NewScore)
		}
	})

	t.Run("vip allowed", func(t *testing.T) {
		fx := newVoteFixture(-3, 0)
		fx.store.vips[hash.HashUserID("vip")] = true
		if res := fx.vote(t, "vip", "ip", model.Upvote); res.NewScore != -2 {
			t.Errorf("score = %d, want -2", res.NewScore)
		}
	})
}

func TestVotePrivilegedDownvoteLandsOnFloor(t *testing.T) {
	for _, start := range []int{-7, -2, 0, 3, 40} {
		t.Run(fmt.Sprintf("vip from %d", start), func(t *testing.T) {
			fx := newVoteFixture(start, 0)
			fx.store.vips[hash.HashUserID("vip")] = true
			fx.vote(t, "vip", "ip", model.Downvote)
			if got := fx.score(); got != -2 {
				t.Errorf("score = %d, want -2", got)
			}
		})
		t.Run(fmt.Sprintf("owner from %d", start), func(t *testing.T) {
			fx := newVoteFixture(start, 0)
			fx.vote(t, "author", "ip", model.Downvote)
			if got := fx.score(); got != -2 {
				t.Errorf("score = %d, want -2", got)
			}
		})
	}
}

func TestVoteVIPRevoteAfterOthers(t *testing.T) {
	fx := newVoteFixture(0, 0)
	fx.store.vips[hash.HashUserID("vip")] = true
	fx.store.contributor("alice")

	fx.vote(t, "vip", "ip-v", model.Upvote)
	fx.vote(t, "alice", "ip-a", model.Upvote)
	fx.vote(t, "vip", "ip-v", model.Downvote)
	if got := fx.score(); got != -2 {
		t.Errorf("score = %d, want -2", got)
	}
}

func TestVoteAmplifiedDownvote(t *testing.T) {
	fx := newVoteFixture(30, 0)
	fx.store.contributor("alice")
	fx.vote(t, "alice", "ip", model.Downvote)
	if got := fx.score(); got != 20 {
		t.Errorf("score = %d, want 20", got)
	}

	fx = newVoteFixture(2, 100)
	fx.store.contributor("alice")
	fx.vote(t, "alice", "ip", model.Downvote)
	if got := fx.score(); got != -2 {
		t.Errorf("score on heavily viewed segment = %d, want -2", got)
	}
}

func TestVoteIncorrectChannel(t *testing.T) {
	fx := newVoteFixture(3, 0)
	fx.store.contributor("alice")
	fx.vote(t, "alice", "ip", model.IncorrectDownvote)

	s := fx.store.get(target)
	if s.Votes != 3 || s.IncorrectVotes != -1 {
		t.Errorf("votes=%d incorrect=%d, want 3 and -1", s.Votes, s.IncorrectVotes)
	}

	fx.store.vips[hash.HashUserID("vip")] = true
	fx.vote(t, "vip", "ip-v", model.IncorrectDownvote)
	if got := fx.store.get(target).IncorrectVotes; got != -501 {
		t.Errorf("incorrect votes = %d, want -501", got)
	}
}

func TestVoteRestoresHiddenSegments(t *testing.T) {
	fx := newVoteFixture(0, 0)
	for i := 0; i < 3; i++ {
		fx.store.put(model.Segment{
			UUID: fmt.Sprintf("hidden-%d", i), VideoID: "other", StartTime: float64(i * 50), EndTime: float64(i*50 + 5),
			UserID: fx.author, ShadowHidden: true,
		})
	}
	fx.store.contributor("alice")

	fx.vote(t, "alice", "ip", model.Upvote)

	if fx.store.get("hidden-0").ShadowHidden || fx.store.get("hidden-1").ShadowHidden {
		t.Error("two oldest hidden segments should be visible")
	}
	if !fx.store.get("hidden-2").ShadowHidden {
		t.Error("third hidden segment should stay hidden")
	}
}

func TestVoteDoesNotRestoreBannedAuthor(t *testing.T) {
	fx := newVoteFixture(0, 0)
	fx.store.put(model.Segment{UUID: "hidden", VideoID: "other", UserID: fx.author, ShadowHidden: true})
	fx.store.banned[fx.author] = true
	fx.store.contributor("alice")

	fx.vote(t, "alice", "ip", model.Upvote)
	if !fx.store.get("hidden").ShadowHidden {
		t.Error("banned author's segment was unhidden")
	}
}

func TestVotePublishesEvent(t *testing.T) {
	fx := newVoteFixture(4, 7)
	fx.store.contributor("alice")
	fx.vote(t, "alice", "ip", model.Downvote)

	if len(fx.events.votes) != 1 {
		t.Fatalf("published %d events, want 1", len(fx.events.votes))
	}
	ev := fx.events.votes[0]
	if ev.Kind != notify.KindVoteDown || ev.Channel != notify.ChannelNormal {
		t.Errorf("kind=%s channel=%s", ev.Kind, ev.Channel)
	}
	if ev.Votes.Before != 4 || ev.Votes.After != 3 {
		t.Errorf("votes = %+v, want 4 -> 3", ev.Votes)
	}
	if ev.User.Status != notify.VoterOther {
		t.Errorf("status = %s, want other", ev.User.Status)
	}
	if ev.Submission.User.UUID != fx.author || ev.Submission.Views != 7 {
		t.Errorf("submission = %+v", ev.Submission)
	}

	fx.vote(t, "alice", "ip", model.Undo)
	if len(fx.events.votes) != 1 {
		t.Error("undo should not publish an event")
	}
}

func TestVoteSuppressedPublishesNothing(t *testing.T) {
	fx := newVoteFixture(0, 0)
	fx.vote(t, "newcomer", "ip", model.Downvote)
	if len(fx.events.votes) != 0 {
		t.Error("suppressed vote published an event")
	}
}

func TestVoteConcurrentVotersSerialize(t *testing.T) {
	fx := newVoteFixture(0, 0)
	const voters = 20
	for i := 0; i < voters; i++ {
		fx.store.contributor(fmt.Sprintf("voter-%d", i))
	}

	var wg sync.WaitGroup
	errs := make(chan error, voters)
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := fx.svc.Vote(context.Background(), model.VoteRequest{
				UUID: target, RawUserID: fmt.Sprintf("voter-%d", i), HashedIP: fmt.Sprintf("ip-%d", i), Type: model.Upvote,
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent vote: %v", err)
		}
	}
	if got := fx.score(); got != voters {
		t.Errorf("score = %d, want %d", got, voters)
	}
}

func TestVoteRestoreAnnouncesEveryTouchedVideo(t *testing.T) {
	fx := newVoteFixture(0, 0)
	fx.store.put(model.Segment{UUID: "hidden-b", VideoID: "vid-b", StartTime: 5, EndTime: 9, UserID: fx.author, ShadowHidden: true})
	fx.store.contributor("alice")

	fx.vote(t, "alice", "ip", model.Upvote)

	if fx.store.get("hidden-b").ShadowHidden {
		t.Fatal("hidden segment on the second video should be restored")
	}
	got := fx.store.notifications()
	if !slices.Equal(got, []string{"vid", "vid-b"}) {
		t.Errorf("announced videos = %v, want [vid vid-b]", got)
	}
}

func TestVoteAnnouncesOnlyRealChanges(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, fx *voteFixture)
		raw   string
		vt    model.VoteType
		want  []string
	}{
		{
			name: "suppressed newcomer",
			raw:  "newcomer",
			vt:   model.Downvote,
		},
		{
			name:  "replayed upvote",
			setup: func(t *testing.T, fx *voteFixture) {
				fx.store.contributor("alice")
				fx.vote(t, "alice", "ip", model.Upvote)
			},
			raw:   "alice",
			vt:    model.Upvote,
		},
		{
			name:  "fresh downvote",
			setup: func(_ *testing.T, fx *voteFixture) { fx.store.contributor("alice") },
			raw:   "alice",
			vt:    model.Downvote,
			want:  []string{"vid"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newVoteFixture(0, 0)
			if tt.setup != nil {
				tt.setup(t, fx)
			}
			before := len(fx.store.notifications())

			fx.vote(t, tt.raw, "ip", tt.vt)

			got := fx.store.notifications()[before:]
			if !slices.Equal(got, tt.want) {
				t.Errorf("announced videos = %v, want %v", got, tt.want)
			}
		})
	}
}
