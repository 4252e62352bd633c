package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/model"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

// IsVIP reports whether the hashed user ID holds voting privileges.
func (r *UserRepo) IsVIP(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM vip_users WHERE user_id = $1)`, userID).Scan(&exists)
	return exists, err
}

// SetVIP grants or revokes privileges. Repeating the current state is a no-op.
func (r *UserRepo) SetVIP(ctx context.Context, userID string, enabled bool) error {
	var err error
	if enabled {
		_, err = r.pool.Exec(ctx, `INSERT INTO vip_users (user_id) VALUES ($1) ON CONFLICT DO NOTHING`, userID)
	} else {
		_, err = r.pool.Exec(ctx, `DELETE FROM vip_users WHERE user_id = $1`, userID)
	}
	return err
}

// IsShadowBanned reports whether the hashed user ID is on the suppression list.
func (r *UserRepo) IsShadowBanned(ctx context.Context, userID string) (bool, error) {
	return isShadowBanned(ctx, r.pool, userID)
}

// SetShadowBan adds or removes a contributor from the suppression list.
// Banning hides every segment they submitted; lifting the ban unhides them
// only when unhideOld is set. Returns the videos whose segments changed.
func (r *UserRepo) SetShadowBan(ctx context.Context, userID string, enabled, unhideOld bool) ([]string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	banned, err := isShadowBanned(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	var update string
	switch {
	case enabled && !banned:
		if _, err := tx.Exec(ctx, `INSERT INTO shadow_banned_users (user_id) VALUES ($1)`, userID); err != nil {
			return nil, err
		}
		update = `UPDATE segments SET shadow_hidden = true WHERE user_id = $1 RETURNING video_id`
	case !enabled && banned:
		if _, err := tx.Exec(ctx, `DELETE FROM shadow_banned_users WHERE user_id = $1`, userID); err != nil {
			return nil, err
		}
		if unhideOld {
			update = `UPDATE segments SET shadow_hidden = false WHERE user_id = $1 RETURNING video_id`
		}
	}

	var videoIDs []string
	if update != "" {
		rows, err := tx.Query(ctx, update, userID)
		if err != nil {
			return nil, err
		}
		seen := make(map[string]bool)
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, err
			}
			if !seen[id] {
				seen[id] = true
				videoIDs = append(videoIDs, id)
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}

	return videoIDs, tx.Commit(ctx)
}

// ContributorStats returns the consistent submission snapshot used for trust.
func (r *UserRepo) ContributorStats(ctx context.Context, userID string) (model.ContributorStats, error) {
	return contributorStats(ctx, r.pool, userID)
}

// ViewsForUser sums views across a contributor's segments. found is false
// when they have never submitted.
func (r *UserRepo) ViewsForUser(ctx context.Context, userID string) (views int, found bool, err error) {
	var total *int
	err = r.pool.QueryRow(ctx, `SELECT SUM(views) FROM segments WHERE user_id = $1`, userID).Scan(&total)
	if err != nil || total == nil {
		return 0, false, err
	}
	return *total, true, nil
}

// SavedTimeForUser returns minutes saved by a contributor's visible,
// non-downvoted segments.
func (r *UserRepo) SavedTimeForUser(ctx context.Context, userID string) (minutes float64, found bool, err error) {
	var total *float64
	err = r.pool.QueryRow(ctx, `
		SELECT SUM((end_time - start_time) / 60 * views)
		FROM segments
		WHERE user_id = $1 AND votes > -1 AND NOT shadow_hidden`, userID).Scan(&total)
	if err != nil || total == nil {
		return 0, false, err
	}
	return *total, true, nil
}

func isShadowBanned(ctx context.Context, q querier, userID string) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM shadow_banned_users WHERE user_id = $1)`, userID).Scan(&exists)
	return exists, err
}
