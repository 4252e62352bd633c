package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/model"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so read helpers can
// run either standalone or inside an open transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// notFound translates pgx.ErrNoRows to model.ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return model.ErrNotFound
	}
	return err
}

// contributorStats reads submission count, vote sum and downvoted count in a
// single statement so the three numbers come from one snapshot.
func contributorStats(ctx context.Context, q querier, userID string) (model.ContributorStats, error) {
	var s model.ContributorStats
	err := q.QueryRow(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(votes), 0),
		       COUNT(*) FILTER (WHERE votes < 0 OR shadow_hidden)
		FROM segments
		WHERE user_id = $1`, userID).Scan(&s.TotalSubmissions, &s.VoteSum, &s.DownvotedSubmissions)
	return s, err
}

func notifySegmentChange(ctx context.Context, q querier, videoID string) error {
	_, err := q.Exec(ctx, `SELECT pg_notify('segment_changes', $1)`, videoID)
	return err
}
