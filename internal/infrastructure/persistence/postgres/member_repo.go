package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/guild-hub/guild-activity-hub/internal/domain/member"
	"github.com/guild-hub/guild-activity-hub/internal/domain/shared"
)

// MemberRepository implements member.Repository for PostgreSQL.
type MemberRepository struct {
	conn *Connection
}

// NewMemberRepository creates a new MemberRepository.
func NewMemberRepository(conn *Connection) *MemberRepository {
	return &MemberRepository{conn: conn}
}

const memberColumns = `community_id, user_id, display_name, xp, message_count,
	voice_uptime_minutes, last_message_at, last_message_xp`

// Upsert creates the record on first observed membership; on conflict only
// the display name is refreshed, counters are never reset.
func (r *MemberRepository) Upsert(ctx context.Context, m *member.Member) error {
	query := `
		INSERT INTO members (` + memberColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (community_id, user_id)
		DO UPDATE SET display_name = EXCLUDED.display_name
	`
	_, err := r.conn.Exec(ctx, query,
		m.Community.Int64(),
		m.User.Int64(),
		m.DisplayName,
		m.XP.Int64(),
		m.MessageCount,
		m.VoiceUptimeMinutes,
		nullableTime(m.LastMessageAt),
		m.LastMessageXP.Int64(),
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert member: %w", err)
	}
	return nil
}

// Get reads one member record.
func (r *MemberRepository) Get(ctx context.Context, communityID shared.CommunityID, userID shared.UserID) (*member.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE community_id = $1 AND user_id = $2`
	m, err := r.scanMember(r.conn.QueryRow(ctx, query, communityID.Int64(), userID.Int64()))
	if err != nil {
		if errors.Is(err, ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: read member: %w", err)
	}
	return m, nil
}

// Update persists all accrual fields in a single atomic write.
func (r *MemberRepository) Update(ctx context.Context, m *member.Member) error {
	query := `
		UPDATE members SET
			display_name = $3,
			xp = $4,
			message_count = $5,
			voice_uptime_minutes = $6,
			last_message_at = $7,
			last_message_xp = $8
		WHERE community_id = $1 AND user_id = $2
	`
	tag, err := r.conn.Exec(ctx, query,
		m.Community.Int64(),
		m.User.Int64(),
		m.DisplayName,
		m.XP.Int64(),
		m.MessageCount,
		m.VoiceUptimeMinutes,
		nullableTime(m.LastMessageAt),
		m.LastMessageXP.Int64(),
	)
	if err != nil {
		return fmt.Errorf("postgres: update member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// TopByXP returns up to limit members ordered by descending XP.
func (r *MemberRepository) TopByXP(ctx context.Context, communityID shared.CommunityID, limit int) ([]*member.Member, error) {
	query := `SELECT ` + memberColumns + `
		FROM members WHERE community_id = $1
		ORDER BY xp DESC, user_id
		LIMIT $2`
	return r.queryMembers(ctx, query, communityID.Int64(), limit)
}

// ListByCommunity returns every member of a community.
func (r *MemberRepository) ListByCommunity(ctx context.Context, communityID shared.CommunityID) ([]*member.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE community_id = $1 ORDER BY user_id`
	return r.queryMembers(ctx, query, communityID.Int64())
}

// RankOf returns the member's 1-based leaderboard position.
func (r *MemberRepository) RankOf(ctx context.Context, communityID shared.CommunityID, userID shared.UserID) (int64, error) {
	query := `
		SELECT COUNT(*) + 1
		FROM members
		WHERE community_id = $1
		  AND xp > (SELECT xp FROM members WHERE community_id = $1 AND user_id = $2)
	`
	var rank int64
	err := r.conn.QueryRow(ctx, query, communityID.Int64(), userID.Int64()).Scan(&rank)
	if err != nil {
		if errors.Is(err, ErrNoRows) {
			return 0, shared.ErrNotFound
		}
		return 0, fmt.Errorf("postgres: rank of member: %w", err)
	}
	return rank, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *MemberRepository) scanMember(row rowScanner) (*member.Member, error) {
	var (
		m             member.Member
		communityID   int64
		userID        int64
		xp            int64
		lastMessageAt *time.Time
		lastMessageXP int64
	)
	err := row.Scan(
		&communityID,
		&userID,
		&m.DisplayName,
		&xp,
		&m.MessageCount,
		&m.VoiceUptimeMinutes,
		&lastMessageAt,
		&lastMessageXP,
	)
	if err != nil {
		return nil, err
	}
	m.Community = shared.CommunityID(communityID)
	m.User = shared.UserID(userID)
	m.XP = shared.XP(xp)
	m.LastMessageXP = shared.XP(lastMessageXP)
	if lastMessageAt != nil {
		m.LastMessageAt = *lastMessageAt
	}
	return &m, nil
}

func (r *MemberRepository) queryMembers(ctx context.Context, query string, args ...any) ([]*member.Member, error) {
	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query members: %w", err)
	}
	defer rows.Close()

	var out []*member.Member
	for rows.Next() {
		m, err := r.scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan member: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// nullableTime maps the zero time to NULL; a member with no rewarded message
// yet has no last_message_at.
func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
