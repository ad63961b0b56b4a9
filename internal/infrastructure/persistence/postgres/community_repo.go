package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/guild-hub/guild-activity-hub/internal/domain/community"
	"github.com/guild-hub/guild-activity-hub/internal/domain/shared"
)

// channel kinds as persisted in the channels table.
const (
	kindText  = "text"
	kindVoice = "voice"
)

// CommunityRepository implements community.Repository for PostgreSQL.
type CommunityRepository struct {
	conn *Connection
}

// NewCommunityRepository creates a new CommunityRepository.
func NewCommunityRepository(conn *Connection) *CommunityRepository {
	return &CommunityRepository{conn: conn}
}

// Create provisions a new community row with the configuration's rates.
func (r *CommunityRepository) Create(ctx context.Context, cfg *community.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO communities (
			id, name, mod_role_id, text_rate_per_msg, cooldown_seconds,
			diminishing_factor, minimum_reward, new_user_xp_threshold, voice_rate_per_min
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.conn.Exec(ctx, query,
		cfg.ID.Int64(),
		cfg.Name,
		cfg.ModRole.Int64(),
		cfg.Text.BasePerMessage.Int64(),
		cfg.Text.CooldownSeconds,
		cfg.Text.DiminishFactor,
		cfg.Text.MinReward.Int64(),
		cfg.Text.NewUserThreshold.Int64(),
		cfg.VoiceRatePerMinute.Int64(),
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: create community: %w", err)
	}
	return nil
}

// Delete removes the community; members, roles and channels cascade.
func (r *CommunityRepository) Delete(ctx context.Context, id shared.CommunityID) error {
	tag, err := r.conn.Exec(ctx, `DELETE FROM communities WHERE id = $1`, id.Int64())
	if err != nil {
		return fmt.Errorf("postgres: delete community: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListIDs returns every known community ID.
func (r *CommunityRepository) ListIDs(ctx context.Context) ([]shared.CommunityID, error) {
	rows, err := r.conn.Query(ctx, `SELECT id FROM communities ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list communities: %w", err)
	}
	defer rows.Close()

	var ids []shared.CommunityID
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("postgres: scan community id: %w", err)
		}
		ids = append(ids, shared.CommunityID(id))
	}
	return ids, rows.Err()
}

// GetConfig assembles the full configuration from the communities, roles and
// channels tables.
func (r *CommunityRepository) GetConfig(ctx context.Context, id shared.CommunityID) (*community.Config, error) {
	query := `
		SELECT id, name, mod_role_id, text_rate_per_msg, cooldown_seconds,
		       diminishing_factor, minimum_reward, new_user_xp_threshold, voice_rate_per_min
		FROM communities
		WHERE id = $1
	`

	cfg := &community.Config{
		TextChannels:  make(map[shared.ChannelID]struct{}),
		VoiceChannels: make(map[shared.ChannelID]struct{}),
	}
	var (
		communityID int64
		modRole     int64
		baseReward  int64
		minReward   int64
		newUserXP   int64
		voiceRate   int64
	)
	err := r.conn.QueryRow(ctx, query, id.Int64()).Scan(
		&communityID,
		&cfg.Name,
		&modRole,
		&baseReward,
		&cfg.Text.CooldownSeconds,
		&cfg.Text.DiminishFactor,
		&minReward,
		&newUserXP,
		&voiceRate,
	)
	if err != nil {
		if errors.Is(err, ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: read community: %w", err)
	}
	cfg.ID = shared.CommunityID(communityID)
	cfg.ModRole = shared.RoleID(modRole)
	cfg.Text.BasePerMessage = shared.XP(baseReward)
	cfg.Text.MinReward = shared.XP(minReward)
	cfg.Text.NewUserThreshold = shared.XP(newUserXP)
	cfg.VoiceRatePerMinute = shared.XP(voiceRate)

	if err := r.loadLadder(ctx, cfg); err != nil {
		return nil, err
	}
	if err := r.loadChannels(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (r *CommunityRepository) loadLadder(ctx context.Context, cfg *community.Config) error {
	rows, err := r.conn.Query(ctx,
		`SELECT id, xp_threshold FROM roles WHERE community_id = $1 ORDER BY xp_threshold`,
		cfg.ID.Int64())
	if err != nil {
		return fmt.Errorf("postgres: read ladder: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var roleID, threshold int64
		if err := rows.Scan(&roleID, &threshold); err != nil {
			return fmt.Errorf("postgres: scan ladder step: %w", err)
		}
		cfg.Ladder = append(cfg.Ladder, community.LadderStep{
			Role:      shared.RoleID(roleID),
			Threshold: shared.XP(threshold),
		})
	}
	return rows.Err()
}

func (r *CommunityRepository) loadChannels(ctx context.Context, cfg *community.Config) error {
	rows, err := r.conn.Query(ctx,
		`SELECT id, kind FROM channels WHERE community_id = $1`,
		cfg.ID.Int64())
	if err != nil {
		return fmt.Errorf("postgres: read channels: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			channelID int64
			kind      string
		)
		if err := rows.Scan(&channelID, &kind); err != nil {
			return fmt.Errorf("postgres: scan channel: %w", err)
		}
		switch kind {
		case kindText:
			cfg.TextChannels[shared.ChannelID(channelID)] = struct{}{}
		case kindVoice:
			cfg.VoiceChannels[shared.ChannelID(channelID)] = struct{}{}
		}
	}
	return rows.Err()
}

// WriteConfig persists the full configuration in one transaction: the rates
// row is updated and the ladder and channel sets are replaced wholesale.
func (r *CommunityRepository) WriteConfig(ctx context.Context, cfg *community.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	tx, err := r.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin write config: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE communities SET
			name = $2,
			mod_role_id = $3,
			text_rate_per_msg = $4,
			cooldown_seconds = $5,
			diminishing_factor = $6,
			minimum_reward = $7,
			new_user_xp_threshold = $8,
			voice_rate_per_min = $9
		WHERE id = $1`,
		cfg.ID.Int64(),
		cfg.Name,
		cfg.ModRole.Int64(),
		cfg.Text.BasePerMessage.Int64(),
		cfg.Text.CooldownSeconds,
		cfg.Text.DiminishFactor,
		cfg.Text.MinReward.Int64(),
		cfg.Text.NewUserThreshold.Int64(),
		cfg.VoiceRatePerMinute.Int64(),
	)
	if err != nil {
		return fmt.Errorf("postgres: update community: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}

	if _, err := tx.Exec(ctx, `DELETE FROM roles WHERE community_id = $1`, cfg.ID.Int64()); err != nil {
		return fmt.Errorf("postgres: clear ladder: %w", err)
	}
	for _, step := range cfg.Ladder {
		if _, err := tx.Exec(ctx,
			`INSERT INTO roles (id, community_id, xp_threshold) VALUES ($1, $2, $3)`,
			step.Role.Int64(), cfg.ID.Int64(), step.Threshold.Int64()); err != nil {
			return fmt.Errorf("postgres: write ladder step: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM channels WHERE community_id = $1`, cfg.ID.Int64()); err != nil {
		return fmt.Errorf("postgres: clear channels: %w", err)
	}
	for ch := range cfg.TextChannels {
		if _, err := tx.Exec(ctx,
			`INSERT INTO channels (id, community_id, kind) VALUES ($1, $2, $3)`,
			ch.Int64(), cfg.ID.Int64(), kindText); err != nil {
			return fmt.Errorf("postgres: write text channel: %w", err)
		}
	}
	for ch := range cfg.VoiceChannels {
		if _, err := tx.Exec(ctx,
			`INSERT INTO channels (id, community_id, kind) VALUES ($1, $2, $3)`,
			ch.Int64(), cfg.ID.Int64(), kindVoice); err != nil {
			return fmt.Errorf("postgres: write voice channel: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit write config: %w", err)
	}
	return nil
}
