package service

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/model"
	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/notify"
	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/repository"
	"github.com/mathieu-neron/SkipTube/skiptube-go/pkg/hash"
)

// fakeStore is an in-memory stand-in for the segment and user repositories.
// WithLockedSegment holds a single mutex for the whole callback and restores
// a snapshot when the callback fails, mirroring transaction rollback.
type fakeStore struct {
	mu         sync.Mutex
	segments   map[string]*model.Segment
	votes      map[string]map[string]model.VoteRecord
	catWeights map[string]map[string]int
	catVotes   map[string]map[string]model.CategoryVoteRecord
	vips       map[string]bool
	banned     map[string]bool
	seq        int

	// notified mirrors the segment_changes announcements of committed
	// transactions, in order.
	notified []string
}

var (
	_ SegmentStore           = (*fakeStore)(nil)
	_ UserStore              = (*fakeStore)(nil)
	_ ModerationStore        = (*fakeStore)(nil)
	_ ContributorTotalsStore = (*fakeStore)(nil)
	_ repository.SegmentTx   = (*fakeTx)(nil)
)

func newFakeStore() *fakeStore {
	return &fakeStore{
		segments:   map[string]*model.Segment{},
		votes:      map[string]map[string]model.VoteRecord{},
		catWeights: map[string]map[string]int{},
		catVotes:   map[string]map[string]model.CategoryVoteRecord{},
		vips:       map[string]bool{},
		banned:     map[string]bool{},
	}
}

func (f *fakeStore) put(s model.Segment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	if s.TimeSubmitted.IsZero() {
		s.TimeSubmitted = time.Date(2024, 1, 1, 0, 0, f.seq, 0, time.UTC)
	}
	if s.Category == "" {
		s.Category = model.DefaultCategory
	}
	f.segments[s.UUID] = &s
}

func (f *fakeStore) get(uuid string) model.Segment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.segments[uuid]
}

// contributor gives rawUserID a submission on a side video so that their
// votes are eligible.
func (f *fakeStore) contributor(rawUserID string) string {
	userID := hash.HashUserID(rawUserID)
	f.mu.Lock()
	n := f.seq
	f.mu.Unlock()
	f.put(model.Segment{
		UUID:      fmt.Sprintf("side-%s-%d", rawUserID, n),
		VideoID:   "side-video",
		StartTime: float64(n * 100),
		EndTime:   float64(n*100 + 10),
		Votes:     1,
		UserID:    userID,
	})
	return userID
}

func (f *fakeStore) weight(uuid, category string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.catWeights[uuid][category]
}

func (f *fakeStore) FindByVideoID(_ context.Context, videoID string) ([]model.Segment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Segment
	for _, s := range f.segments {
		if s.VideoID == videoID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].StartTime != out[b].StartTime {
			return out[a].StartTime < out[b].StartTime
		}
		return out[a].UUID < out[b].UUID
	})
	return out, nil
}

func (f *fakeStore) RangeExists(_ context.Context, videoID string, start, end float64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.segments {
		if s.VideoID == videoID && s.StartTime == start && s.EndTime == end {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) CountByUser(_ context.Context, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.countByUser(userID), nil
}

func (f *fakeStore) countByUser(userID string) int {
	n := 0
	for _, s := range f.segments {
		if s.UserID == userID {
			n++
		}
	}
	return n
}

func (f *fakeStore) Insert(_ context.Context, s model.Segment) error {
	if exists, _ := f.RangeExists(context.Background(), s.VideoID, s.StartTime, s.EndTime); exists {
		return model.ErrConflict
	}
	f.put(s)
	return nil
}

func (f *fakeStore) IncrementViews(_ context.Context, uuid string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.segments[uuid]
	if !ok {
		return "", model.ErrNotFound
	}
	s.Views++
	return s.VideoID, nil
}

func (f *fakeStore) WithLockedSegment(_ context.Context, uuid string, fn func(repository.SegmentTx) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.segments[uuid]
	if !ok {
		return model.ErrNotFound
	}
	snap := f.snapshot()
	tx := &fakeTx{f: f, seg: *s}
	if err := fn(tx); err != nil {
		f.restore(snap)
		return err
	}
	f.notified = append(f.notified, tx.changed...)
	return nil
}

func (f *fakeStore) notifications() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.notified)
}

func (f *fakeStore) IsVIP(_ context.Context, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.vips[userID], nil
}

func (f *fakeStore) IsShadowBanned(_ context.Context, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.banned[userID], nil
}

func (f *fakeStore) ContributorStats(_ context.Context, userID string) (model.ContributorStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats(userID), nil
}

func (f *fakeStore) stats(userID string) model.ContributorStats {
	var st model.ContributorStats
	for _, s := range f.segments {
		if s.UserID != userID {
			continue
		}
		st.TotalSubmissions++
		st.VoteSum += s.Votes
		if s.Votes < 0 || s.ShadowHidden {
			st.DownvotedSubmissions++
		}
	}
	return st
}

func (f *fakeStore) SetVIP(_ context.Context, userID string, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vips[userID] = enabled
	return nil
}

func (f *fakeStore) SetShadowBan(_ context.Context, userID string, enabled, unhideOld bool) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.banned[userID] = enabled
	if !enabled && !unhideOld {
		return nil, nil
	}
	seen := map[string]bool{}
	var videos []string
	for _, s := range f.segments {
		if s.UserID != userID || s.ShadowHidden == enabled {
			continue
		}
		s.ShadowHidden = enabled
		if !seen[s.VideoID] {
			seen[s.VideoID] = true
			videos = append(videos, s.VideoID)
		}
	}
	return videos, nil
}

func (f *fakeStore) ViewsForUser(_ context.Context, userID string) (int, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	views, found := 0, false
	for _, s := range f.segments {
		if s.UserID == userID {
			views += s.Views
			found = true
		}
	}
	return views, found, nil
}

func (f *fakeStore) SavedTimeForUser(_ context.Context, userID string) (float64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	minutes, found := 0.0, false
	for _, s := range f.segments {
		if s.UserID == userID && s.Votes > -1 && !s.ShadowHidden {
			minutes += (s.EndTime - s.StartTime) / 60 * float64(s.Views)
			found = true
		}
	}
	return minutes, found, nil
}

type fakeSnapshot struct {
	segments   map[string]model.Segment
	votes      map[string]map[string]model.VoteRecord
	catWeights map[string]map[string]int
	catVotes   map[string]map[string]model.CategoryVoteRecord
}

func (f *fakeStore) snapshot() fakeSnapshot {
	segs := make(map[string]model.Segment, len(f.segments))
	for k, v := range f.segments {
		segs[k] = *v
	}
	return fakeSnapshot{
		segments:   segs,
		votes:      cloneNested(f.votes),
		catWeights: cloneNested(f.catWeights),
		catVotes:   cloneNested(f.catVotes),
	}
}

func (f *fakeStore) restore(s fakeSnapshot) {
	f.segments = make(map[string]*model.Segment, len(s.segments))
	for k, v := range s.segments {
		v := v
		f.segments[k] = &v
	}
	f.votes, f.catWeights, f.catVotes = s.votes, s.catWeights, s.catVotes
}

func cloneNested[V any](m map[string]map[string]V) map[string]map[string]V {
	out := make(map[string]map[string]V, len(m))
	for k, inner := range m {
		c := make(map[string]V, len(inner))
		for ik, v := range inner {
			c[ik] = v
		}
		out[k] = c
	}
	return out
}

// fakeTx runs with fakeStore.mu already held.
type fakeTx struct {
	f       *fakeStore
	seg     model.Segment
	changed []string
}

func (t *fakeTx) Segment() model.Segment { return t.seg }

func (t *fakeTx) touch(videoID string) {
	if !slices.Contains(t.changed, videoID) {
		t.changed = append(t.changed, videoID)
	}
}

func (t *fakeTx) ChangedVideos() []string { return t.changed }

func (t *fakeTx) PreviousVote(_ context.Context, voterID string) (*model.VoteRecord, error) {
	rec, ok := t.f.votes[t.seg.UUID][voterID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (t *fakeTx) SaveVote(_ context.Context, rec model.VoteRecord) error {
	if t.f.votes[t.seg.UUID] == nil {
		t.f.votes[t.seg.UUID] = map[string]model.VoteRecord{}
	}
	rec.UUID = t.seg.UUID
	t.f.votes[t.seg.UUID][rec.VoterID] = rec
	return nil
}

func (t *fakeTx) AdjustScores(_ context.Context, scoreDelta, incorrectDelta int) error {
	s := t.f.segments[t.seg.UUID]
	s.Votes += scoreDelta
	s.IncorrectVotes += incorrectDelta
	t.seg.Votes, t.seg.IncorrectVotes = s.Votes, s.IncorrectVotes
	if scoreDelta != 0 || incorrectDelta != 0 {
		t.touch(t.seg.VideoID)
	}
	return nil
}

func (t *fakeTx) HasSubmissions(_ context.Context, userID string) (bool, error) {
	return t.f.countByUser(userID) > 0, nil
}

func (t *fakeTx) IsShadowBanned(_ context.Context, userID string) (bool, error) {
	return t.f.banned[userID], nil
}

func (t *fakeTx) IPVotedAsOther(_ context.Context, hashedIP, voterID string) (bool, error) {
	for _, rec := range t.f.votes[t.seg.UUID] {
		if rec.HashedIP == hashedIP && rec.VoterID != voterID {
			return true, nil
		}
	}
	return false, nil
}

func (t *fakeTx) HiddenCount(_ context.Context, userID string) (int, error) {
	n := 0
	for _, s := range t.f.segments {
		if s.UserID == userID && s.ShadowHidden {
			n++
		}
	}
	return n, nil
}

func (t *fakeTx) ContributorStats(_ context.Context, userID string) (model.ContributorStats, error) {
	return t.f.stats(userID), nil
}

func (t *fakeTx) UnhideOldest(_ context.Context, userID string, limit int) (int, error) {
	var hidden []*model.Segment
	for _, s := range t.f.segments {
		if s.UserID == userID && s.ShadowHidden {
			hidden = append(hidden, s)
		}
	}
	sort.Slice(hidden, func(a, b int) bool {
		if !hidden[a].TimeSubmitted.Equal(hidden[b].TimeSubmitted) {
			return hidden[a].TimeSubmitted.Before(hidden[b].TimeSubmitted)
		}
		return hidden[a].UUID < hidden[b].UUID
	})
	n := min(limit, len(hidden))
	for _, s := range hidden[:n] {
		s.ShadowHidden = false
		t.touch(s.VideoID)
		if s.UUID == t.seg.UUID {
			t.seg.ShadowHidden = false
		}
	}
	return n, nil
}

func (t *fakeTx) PreviousCategoryVote(_ context.Context, voterID string) (*model.CategoryVoteRecord, error) {
	rec, ok := t.f.catVotes[t.seg.UUID][voterID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (t *fakeTx) SaveCategoryVote(_ context.Context, rec model.CategoryVoteRecord) error {
	if t.f.catVotes[t.seg.UUID] == nil {
		t.f.catVotes[t.seg.UUID] = map[string]model.CategoryVoteRecord{}
	}
	t.f.catVotes[t.seg.UUID][rec.VoterID] = rec
	return nil
}

func (t *fakeTx) AddCategoryWeight(_ context.Context, category string, delta int) error {
	if t.f.catWeights[t.seg.UUID] == nil {
		t.f.catWeights[t.seg.UUID] = map[string]int{}
	}
	t.f.catWeights[t.seg.UUID][category] += delta
	return nil
}

func (t *fakeTx) CategoryWeight(_ context.Context, category string) (int, bool, error) {
	w, ok := t.f.catWeights[t.seg.UUID][category]
	return w, ok, nil
}

func (t *fakeTx) SetCategory(_ context.Context, category string) error {
	t.f.segments[t.seg.UUID].Category = category
	t.seg.Category = category
	t.touch(t.seg.VideoID)
	return nil
}

// fakePublisher records published events.
type fakePublisher struct {
	mu          sync.Mutex
	votes       []notify.VoteEvent
	submissions []notify.SubmissionEvent
}

func (p *fakePublisher) PublishVote(_ context.Context, ev notify.VoteEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.votes = append(p.votes, ev)
}

func (p *fakePublisher) PublishSubmission(_ context.Context, ev notify.SubmissionEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.submissions = append(p.submissions, ev)
}
