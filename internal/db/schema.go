package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema creates the public tables (segments, category tallies, VIPs) and
// the private ones (fingerprints, votes, shadow bans).
const schema = `
CREATE TABLE IF NOT EXISTS segments (
	uuid            VARCHAR(64) PRIMARY KEY,
	video_id        VARCHAR(16) NOT NULL,
	start_time      DOUBLE PRECISION NOT NULL,
	end_time        DOUBLE PRECISION NOT NULL,
	votes           INTEGER NOT NULL DEFAULT 0,
	incorrect_votes INTEGER NOT NULL DEFAULT 0,
	category        VARCHAR(20) NOT NULL DEFAULT 'sponsor',
	views           INTEGER NOT NULL DEFAULT 0,
	shadow_hidden   BOOLEAN NOT NULL DEFAULT false,
	user_id         VARCHAR(64) NOT NULL,
	time_submitted  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CHECK (start_time <= end_time)
);
CREATE INDEX IF NOT EXISTS idx_segments_video ON segments (video_id, start_time);
CREATE INDEX IF NOT EXISTS idx_segments_user ON segments (user_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_segments_range ON segments (video_id, start_time, end_time);

CREATE TABLE IF NOT EXISTS segment_submissions (
	uuid           VARCHAR(64) PRIMARY KEY REFERENCES segments (uuid),
	video_id       VARCHAR(16) NOT NULL,
	hashed_ip      VARCHAR(64) NOT NULL,
	time_submitted TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS votes (
	uuid      VARCHAR(64) NOT NULL REFERENCES segments (uuid),
	user_id   VARCHAR(64) NOT NULL,
	hashed_ip VARCHAR(64) NOT NULL,
	kind      VARCHAR(20) NOT NULL,
	amount    INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (uuid, user_id)
);
CREATE INDEX IF NOT EXISTS idx_votes_ip ON votes (uuid, hashed_ip);

CREATE TABLE IF NOT EXISTS category_votes (
	uuid     VARCHAR(64) NOT NULL REFERENCES segments (uuid),
	category VARCHAR(20) NOT NULL,
	votes    INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (uuid, category)
);

CREATE TABLE IF NOT EXISTS category_vote_records (
	uuid           VARCHAR(64) NOT NULL REFERENCES segments (uuid),
	user_id        VARCHAR(64) NOT NULL,
	hashed_ip      VARCHAR(64) NOT NULL,
	category       VARCHAR(20) NOT NULL,
	weight         INTEGER NOT NULL,
	time_submitted TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (uuid, user_id)
);

CREATE TABLE IF NOT EXISTS vip_users (
	user_id VARCHAR(64) PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS shadow_banned_users (
	user_id VARCHAR(64) PRIMARY KEY
);
`

// Migrate creates any missing tables and indexes. It is safe to run on every
// startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
