package postgres

import (
	"context"
	"fmt"
)

// migrations are applied in order at startup. Statements are idempotent;
// there is no down path, additive changes only.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS communities (
		id                    BIGINT PRIMARY KEY,
		name                  TEXT NOT NULL DEFAULT '',
		mod_role_id           BIGINT NOT NULL DEFAULT 0,
		text_rate_per_msg     BIGINT NOT NULL DEFAULT 10,
		cooldown_seconds      BIGINT NOT NULL DEFAULT 60,
		diminishing_factor    DOUBLE PRECISION NOT NULL DEFAULT 0.5,
		minimum_reward        BIGINT NOT NULL DEFAULT 1,
		new_user_xp_threshold BIGINT NOT NULL DEFAULT 500,
		voice_rate_per_min    BIGINT NOT NULL DEFAULT 2
	)`,

	`CREATE TABLE IF NOT EXISTS roles (
		id           BIGINT PRIMARY KEY,
		community_id BIGINT NOT NULL REFERENCES communities(id) ON DELETE CASCADE,
		xp_threshold BIGINT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS channels (
		id           BIGINT PRIMARY KEY,
		community_id BIGINT NOT NULL REFERENCES communities(id) ON DELETE CASCADE,
		kind         TEXT NOT NULL CHECK (kind IN ('text', 'voice'))
	)`,

	`CREATE TABLE IF NOT EXISTS members (
		community_id         BIGINT NOT NULL REFERENCES communities(id) ON DELETE CASCADE,
		user_id              BIGINT NOT NULL,
		display_name         TEXT NOT NULL DEFAULT '',
		xp                   BIGINT NOT NULL DEFAULT 0,
		message_count        BIGINT NOT NULL DEFAULT 0,
		voice_uptime_minutes BIGINT NOT NULL DEFAULT 0,
		last_message_at      TIMESTAMPTZ,
		last_message_xp      BIGINT NOT NULL DEFAULT 0,
		PRIMARY KEY (community_id, user_id)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_roles_community ON roles (community_id, xp_threshold)`,

	`CREATE INDEX IF NOT EXISTS idx_channels_community ON channels (community_id)`,

	`CREATE INDEX IF NOT EXISTS idx_members_leaderboard ON members (community_id, xp DESC)`,
}

// Migrate applies the schema.
func Migrate(ctx context.Context, conn *Connection) error {
	for i, stmt := range migrations {
		if _, err := conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: migration %d failed: %w", i, err)
		}
	}
	return nil
}
