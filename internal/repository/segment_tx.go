package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5"

	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/model"
)

// SegmentTx is the storage view available while a segment row is locked.
// Everything done through it commits or rolls back together.
type SegmentTx interface {
	// Segment returns the locked row as it was read, updated by AdjustScores
	// and SetCategory.
	Segment() model.Segment

	PreviousVote(ctx context.Context, voterID string) (*model.VoteRecord, error)
	SaveVote(ctx context.Context, rec model.VoteRecord) error
	AdjustScores(ctx context.Context, scoreDelta, incorrectDelta int) error

	HasSubmissions(ctx context.Context, userID string) (bool, error)
	IsShadowBanned(ctx context.Context, userID string) (bool, error)
	IPVotedAsOther(ctx context.Context, hashedIP, voterID string) (bool, error)

	HiddenCount(ctx context.Context, userID string) (int, error)
	ContributorStats(ctx context.Context, userID string) (model.ContributorStats, error)
	UnhideOldest(ctx context.Context, userID string, limit int) (int, error)

	PreviousCategoryVote(ctx context.Context, voterID string) (*model.CategoryVoteRecord, error)
	SaveCategoryVote(ctx context.Context, rec model.CategoryVoteRecord) error
	AddCategoryWeight(ctx context.Context, category string, delta int) error
	CategoryWeight(ctx context.Context, category string) (weight int, found bool, err error)
	SetCategory(ctx context.Context, category string) error

	// ChangedVideos lists the videos whose public segment rows were modified
	// so far. Private writes (vote records, tallies) do not count.
	ChangedVideos() []string
}

type segmentTx struct {
	tx      pgx.Tx
	seg     model.Segment
	changed []string
}

func (t *segmentTx) touch(videoID string) {
	if !slices.Contains(t.changed, videoID) {
		t.changed = append(t.changed, videoID)
	}
}

func (t *segmentTx) ChangedVideos() []string {
	return t.changed
}

func (t *segmentTx) Segment() model.Segment {
	return t.seg
}

func (t *segmentTx) PreviousVote(ctx context.Context, voterID string) (*model.VoteRecord, error) {
	rec := model.VoteRecord{UUID: t.seg.UUID, VoterID: voterID}
	var kind string
	err := t.tx.QueryRow(ctx, `
		SELECT hashed_ip, kind, amount FROM votes WHERE uuid = $1 AND user_id = $2`,
		t.seg.UUID, voterID).Scan(&rec.HashedIP, &kind, &rec.Type.Amount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec.Type.Kind = model.VoteKind(kind)
	return &rec, nil
}

// SaveVote replaces the voter's stance on the segment.
func (t *segmentTx) SaveVote(ctx context.Context, rec model.VoteRecord) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO votes (uuid, user_id, hashed_ip, kind, amount)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (uuid, user_id) DO UPDATE
		SET kind = EXCLUDED.kind, amount = EXCLUDED.amount`,
		t.seg.UUID, rec.VoterID, rec.HashedIP, string(rec.Type.Kind), rec.Type.Amount)
	if err != nil {
		return fmt.Errorf("save vote: %w", err)
	}
	return nil
}

func (t *segmentTx) AdjustScores(ctx context.Context, scoreDelta, incorrectDelta int) error {
	if scoreDelta == 0 && incorrectDelta == 0 {
		return nil
	}
	err := t.tx.QueryRow(ctx, `
		UPDATE segments
		SET votes = votes + $1, incorrect_votes = incorrect_votes + $2
		WHERE uuid = $3
		RETURNING votes, incorrect_votes`,
		scoreDelta, incorrectDelta, t.seg.UUID).Scan(&t.seg.Votes, &t.seg.IncorrectVotes)
	if err != nil {
		return fmt.Errorf("adjust scores: %w", err)
	}
	t.touch(t.seg.VideoID)
	return nil
}

func (t *segmentTx) HasSubmissions(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM segments WHERE user_id = $1)`, userID).Scan(&exists)
	return exists, err
}

func (t *segmentTx) IsShadowBanned(ctx context.Context, userID string) (bool, error) {
	return isShadowBanned(ctx, t.tx, userID)
}

// IPVotedAsOther reports whether a different voter identity sharing this
// network fingerprint has already voted on the segment.
func (t *segmentTx) IPVotedAsOther(ctx context.Context, hashedIP, voterID string) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM votes WHERE uuid = $1 AND hashed_ip = $2 AND user_id <> $3
		)`, t.seg.UUID, hashedIP, voterID).Scan(&exists)
	return exists, err
}

func (t *segmentTx) HiddenCount(ctx context.Context, userID string) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM segments WHERE user_id = $1 AND shadow_hidden`, userID).Scan(&n)
	return n, err
}

func (t *segmentTx) ContributorStats(ctx context.Context, userID string) (model.ContributorStats, error) {
	return contributorStats(ctx, t.tx, userID)
}

// UnhideOldest makes up to limit of the contributor's hidden segments visible
// again, oldest submissions first. The restored segments may sit on other
// videos than the locked one; each is recorded as changed.
func (t *segmentTx) UnhideOldest(ctx context.Context, userID string, limit int) (int, error) {
	rows, err := t.tx.Query(ctx, `
		UPDATE segments SET shadow_hidden = false
		WHERE uuid IN (
			SELECT uuid FROM segments
			WHERE user_id = $1 AND shadow_hidden
			ORDER BY time_submitted, uuid
			LIMIT $2
		)
		RETURNING video_id`, userID, limit)
	if err != nil {
		return 0, fmt.Errorf("unhide segments: %w", err)
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		var videoID string
		if err := rows.Scan(&videoID); err != nil {
			return n, fmt.Errorf("unhide segments: %w", err)
		}
		t.touch(videoID)
		n++
	}
	return n, rows.Err()
}

func (t *segmentTx) PreviousCategoryVote(ctx context.Context, voterID string) (*model.CategoryVoteRecord, error) {
	rec := model.CategoryVoteRecord{UUID: t.seg.UUID, VoterID: voterID}
	err := t.tx.QueryRow(ctx, `
		SELECT hashed_ip, category, weight FROM category_vote_records
		WHERE uuid = $1 AND user_id = $2`,
		t.seg.UUID, voterID).Scan(&rec.HashedIP, &rec.Category, &rec.Weight)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (t *segmentTx) SaveCategoryVote(ctx context.Context, rec model.CategoryVoteRecord) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO category_vote_records (uuid, user_id, hashed_ip, category, weight)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (uuid, user_id) DO UPDATE
		SET category = EXCLUDED.category, weight = EXCLUDED.weight,
		    hashed_ip = EXCLUDED.hashed_ip, time_submitted = NOW()`,
		t.seg.UUID, rec.VoterID, rec.HashedIP, rec.Category, rec.Weight)
	if err != nil {
		return fmt.Errorf("save category vote: %w", err)
	}
	return nil
}

func (t *segmentTx) AddCategoryWeight(ctx context.Context, category string, delta int) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO category_votes (uuid, category, votes)
		VALUES ($1, $2, $3)
		ON CONFLICT (uuid, category) DO UPDATE
		SET votes = category_votes.votes + EXCLUDED.votes`,
		t.seg.UUID, category, delta)
	if err != nil {
		return fmt.Errorf("add category weight: %w", err)
	}
	return nil
}

func (t *segmentTx) CategoryWeight(ctx context.Context, category string) (int, bool, error) {
	var w int
	err := t.tx.QueryRow(ctx, `
		SELECT votes FROM category_votes WHERE uuid = $1 AND category = $2`,
		t.seg.UUID, category).Scan(&w)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return w, true, nil
}

func (t *segmentTx) SetCategory(ctx context.Context, category string) error {
	_, err := t.tx.Exec(ctx, `UPDATE segments SET category = $1 WHERE uuid = $2`, category, t.seg.UUID)
	if err != nil {
		return fmt.Errorf("set category: %w", err)
	}
	t.touch(t.seg.VideoID)
	t.seg.Category = category
	return nil
}
