package repository

import (
	"context"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/model"
)

type StatsRepo struct {
	pool *pgxpool.Pool
}

func NewStatsRepo(pool *pgxpool.Pool) *StatsRepo {
	return &StatsRepo{pool: pool}
}

// Totals aggregates contributor, submission, view and saved-time totals over
// all segments that are not shadow-hidden.
func (r *StatsRepo) Totals(ctx context.Context) (*model.StatsResponse, error) {
	var stats model.StatsResponse
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(DISTINCT user_id),
		       COUNT(*),
		       COALESCE(SUM(views), 0),
		       COALESCE(SUM((end_time - start_time) / 60 * views), 0)
		FROM segments
		WHERE NOT shadow_hidden`).Scan(
		&stats.UserCount, &stats.TotalSubmissions, &stats.ViewCount, &stats.MinutesSaved,
	)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// TopContributors ranks contributors by the chosen column over their segments
// that are neither shadow-hidden nor voted below -1.
func (r *StatsRepo) TopContributors(ctx context.Context, sortBy model.LeaderboardSort, limit int) ([]model.Contributor, error) {
	var order string
	switch sortBy {
	case model.SortByMinutesSaved:
		order = "minutes_saved"
	case model.SortByViewCount:
		order = "view_count"
	case model.SortByTotalSubmissions:
		order = "total_submissions"
	default:
		return nil, fmt.Errorf("sort %d: %w", sortBy, model.ErrInvalidInput)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT user_id,
		       COUNT(*) AS total_submissions,
		       COALESCE(SUM(views), 0) AS view_count,
		       COALESCE(SUM((end_time - start_time) / 60 * views), 0) AS minutes_saved
		FROM segments
		WHERE votes > -1 AND NOT shadow_hidden
		GROUP BY user_id
		ORDER BY `+order+` DESC, user_id
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Contributor
	for rows.Next() {
		var c model.Contributor
		if err := rows.Scan(&c.UserID, &c.TotalSubmissions, &c.ViewCount, &c.MinutesSaved); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// exportQuery selects the public segment columns. Fingerprints, votes and
// ban lists stay private.
const exportQuery = `COPY (
	SELECT uuid, video_id, start_time, end_time, votes, incorrect_votes,
	       category, views, shadow_hidden, user_id, time_submitted
	FROM segments
	ORDER BY time_submitted, uuid
) TO STDOUT WITH (FORMAT csv, HEADER)`

// DumpSegments streams the public segment table to w as CSV and returns the
// number of rows written.
func (r *StatsRepo) DumpSegments(ctx context.Context, w io.Writer) (int64, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Release()

	tag, err := conn.Conn().PgConn().CopyTo(ctx, w, exportQuery)
	if err != nil {
		return 0, fmt.Errorf("copy segments: %w", err)
	}
	return tag.RowsAffected(), nil
}
