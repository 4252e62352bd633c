package service

import (
	"context"
	"errors"
	"testing"

	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/model"
	"github.com/mathieu-neron/SkipTube/skiptube-go/pkg/hash"
)

func TestAdminAuthorization(t *testing.T) {
	store := newFakeStore()
	svc := NewAdminService(store, nil, hash.HashUserID("root-secret"))

	tests := []struct {
		name  string
		admin string
		want  error
	}{
		{"wrong admin", "guess", model.ErrForbidden},
		{"empty admin", "", model.ErrForbidden},
		{"correct admin", "root-secret", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.SetVIP(context.Background(), tt.admin, "someone", true)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}

	disabled := NewAdminService(store, nil, "")
	if err := disabled.SetVIP(context.Background(), "", "someone", true); !errors.Is(err, model.ErrForbidden) {
		t.Errorf("unconfigured admin err = %v, want ErrForbidden", err)
	}
}

func TestAdminShadowBan(t *testing.T) {
	store := newFakeStore()
	store.put(model.Segment{UUID: "s1", VideoID: "v1", UserID: "troll"})
	store.put(model.Segment{UUID: "s2", VideoID: "v2", StartTime: 5, EndTime: 6, UserID: "troll"})
	svc := NewAdminService(store, nil, hash.HashUserID("root"))

	if err := svc.SetShadowBan(context.Background(), "root", "troll", true, false); err != nil {
		t.Fatal(err)
	}
	if !store.get("s1").ShadowHidden || !store.get("s2").ShadowHidden {
		t.Error("ban should hide every segment")
	}

	if err := svc.SetShadowBan(context.Background(), "root", "troll", false, false); err != nil {
		t.Fatal(err)
	}
	if !store.get("s1").ShadowHidden {
		t.Error("lifting without unhideOld should keep segments hidden")
	}

	if err := svc.SetShadowBan(context.Background(), "root", "troll", false, true); err != nil {
		t.Fatal(err)
	}
	if store.get("s1").ShadowHidden || store.get("s2").ShadowHidden {
		t.Error("lifting with unhideOld should restore segments")
	}

	if err := svc.SetShadowBan(context.Background(), "root", "", true, false); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("empty target err = %v, want ErrInvalidInput", err)
	}
}

func TestAdminSetVIPFeedsVoting(t *testing.T) {
	store := newFakeStore()
	admin := NewAdminService(store, nil, hash.HashUserID("root"))
	if err := admin.SetVIP(context.Background(), "root", hash.HashUserID("trusted"), true); err != nil {
		t.Fatal(err)
	}

	store.put(model.Segment{UUID: target, VideoID: "vid", Votes: 12, UserID: "someone"})
	votes := NewVoteService(store, store, nil, nil)
	res, err := votes.Vote(context.Background(), model.VoteRequest{UUID: target, RawUserID: "trusted", HashedIP: "ip", Type: model.Downvote})
	if err != nil {
		t.Fatal(err)
	}
	if res.NewScore != -2 {
		t.Errorf("score = %d, want -2 after vip downvote", res.NewScore)
	}
}
