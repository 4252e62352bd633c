package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/model"
)

type SegmentRepo struct {
	pool *pgxpool.Pool
}

func NewSegmentRepo(pool *pgxpool.Pool) *SegmentRepo {
	return &SegmentRepo{pool: pool}
}

const segmentColumns = `
	s.uuid, s.video_id, s.start_time, s.end_time, s.votes, s.incorrect_votes,
	s.category, s.views, s.shadow_hidden, s.user_id, s.time_submitted,
	COALESCE(p.hashed_ip, '')`

func scanSegment(row pgx.Row) (model.Segment, error) {
	var s model.Segment
	err := row.Scan(
		&s.UUID, &s.VideoID, &s.StartTime, &s.EndTime, &s.Votes, &s.IncorrectVotes,
		&s.Category, &s.Views, &s.ShadowHidden, &s.UserID, &s.TimeSubmitted,
		&s.HashedIP,
	)
	return s, err
}

// FindByVideoID returns every segment stored for a video, ordered by start
// time, including the submitter fingerprint used for shadow-hidden visibility.
func (r *SegmentRepo) FindByVideoID(ctx context.Context, videoID string) ([]model.Segment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+segmentColumns+`
		FROM segments s
		LEFT JOIN segment_submissions p ON p.uuid = s.uuid
		WHERE s.video_id = $1
		ORDER BY s.start_time, s.uuid`, videoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var segments []model.Segment
	for rows.Next() {
		s, err := scanSegment(rows)
		if err != nil {
			return nil, err
		}
		segments = append(segments, s)
	}
	return segments, rows.Err()
}

// FindByUUID returns a single segment.
func (r *SegmentRepo) FindByUUID(ctx context.Context, uuid string) (*model.Segment, error) {
	s, err := scanSegment(r.pool.QueryRow(ctx, `
		SELECT `+segmentColumns+`
		FROM segments s
		LEFT JOIN segment_submissions p ON p.uuid = s.uuid
		WHERE s.uuid = $1`, uuid))
	if err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

// RangeExists reports whether any contributor already submitted exactly this
// range on this video.
func (r *SegmentRepo) RangeExists(ctx context.Context, videoID string, start, end float64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM segments WHERE video_id = $1 AND start_time = $2 AND end_time = $3
		)`, videoID, start, end).Scan(&exists)
	return exists, err
}

// CountByUser returns how many segments a contributor has submitted.
func (r *SegmentRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM segments WHERE user_id = $1`, userID).Scan(&n)
	return n, err
}

// Insert stores a new segment together with its private submitter
// fingerprint. A duplicate range or UUID yields model.ErrConflict.
func (r *SegmentRepo) Insert(ctx context.Context, s model.Segment) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO segments (uuid, video_id, start_time, end_time, votes, category,
		                      shadow_hidden, user_id, time_submitted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		s.UUID, s.VideoID, s.StartTime, s.EndTime, s.Votes, s.Category,
		s.ShadowHidden, s.UserID, s.TimeSubmitted)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrConflict
		}
		return fmt.Errorf("insert segment: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO segment_submissions (uuid, video_id, hashed_ip, time_submitted)
		VALUES ($1, $2, $3, $4)`,
		s.UUID, s.VideoID, s.HashedIP, s.TimeSubmitted)
	if err != nil {
		return fmt.Errorf("insert submission fingerprint: %w", err)
	}

	if err := notifySegmentChange(ctx, tx, s.VideoID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// IncrementViews atomically bumps the view counter and returns the video the
// segment belongs to.
func (r *SegmentRepo) IncrementViews(ctx context.Context, uuid string) (string, error) {
	var videoID string
	err := r.pool.QueryRow(ctx, `
		UPDATE segments SET views = views + 1
		WHERE uuid = $1
		RETURNING video_id`, uuid).Scan(&videoID)
	if err != nil {
		return "", notFound(err)
	}
	return videoID, nil
}

// WithLockedSegment runs fn inside a transaction holding a row lock on the
// segment. Concurrent vote and category-vote paths on the same segment are
// serialized by this lock. The transaction commits only if fn returns nil,
// and only videos whose public rows fn changed are announced on
// segment_changes.
func (r *SegmentRepo) WithLockedSegment(ctx context.Context, uuid string, fn func(SegmentTx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	seg, err := scanSegment(tx.QueryRow(ctx, `
		SELECT `+segmentColumns+`
		FROM segments s
		LEFT JOIN segment_submissions p ON p.uuid = s.uuid
		WHERE s.uuid = $1
		FOR UPDATE OF s`, uuid))
	if err != nil {
		return notFound(err)
	}

	stx := &segmentTx{tx: tx, seg: seg}
	if err := fn(stx); err != nil {
		return err
	}

	for _, videoID := range stx.ChangedVideos() {
		if err := notifySegmentChange(ctx, tx, videoID); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}
