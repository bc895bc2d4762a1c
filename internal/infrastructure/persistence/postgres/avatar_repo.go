// Package postgres implements the PostgreSQL persistence layer of the
// progression engine.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/browo-hub/progression-engine/internal/domain/progression"
	"github.com/browo-hub/progression-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// AVATAR REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// AvatarRepository implements progression.AvatarRepository for PostgreSQL.
// Skills are stored as a JSONB array so the skill set stays configurable
// without schema changes.
type AvatarRepository struct {
	conn *Connection
}

// NewAvatarRepository creates a new AvatarRepository.
func NewAvatarRepository(conn *Connection) *AvatarRepository {
	return &AvatarRepository{conn: conn}
}

// skillRow is the JSONB representation of one skill.
type skillRow struct {
	ID      string `json:"id"`
	TotalXP int    `json:"total_xp"`
	Level   int    `json:"level"`
}

// Get returns the avatar of a user.
func (r *AvatarRepository) Get(ctx context.Context, userID string) (*progression.Avatar, error) {
	query := `
		SELECT user_id, total_xp, level, title, skills, last_active_at, created_at, updated_at
		FROM avatars
		WHERE user_id = $1
	`

	row := r.conn.QueryRow(ctx, query, userID)
	avatar, err := r.scanAvatar(row)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrAvatarNotFound
		}
		return nil, fmt.Errorf("failed to get avatar: %w", err)
	}
	return avatar, nil
}

// Save stores the avatar (create or update).
func (r *AvatarRepository) Save(ctx context.Context, avatar *progression.Avatar) error {
	if avatar == nil {
		return shared.NewDomainError("progression", "Save", shared.ErrInvalidInput, "avatar is nil")
	}

	skills := make([]skillRow, 0, len(avatar.Skills))
	for _, s := range avatar.Skills {
		skills = append(skills, skillRow{
			ID:      string(s.ID),
			TotalXP: int(s.TotalXP),
			Level:   int(s.Level),
		})
	}
	skillsJSON, err := json.Marshal(skills)
	if err != nil {
		return fmt.Errorf("failed to marshal skills: %w", err)
	}

	query := `
		INSERT INTO avatars (
			user_id, total_xp, level, title, skills, last_active_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id) DO UPDATE SET
			total_xp = EXCLUDED.total_xp,
			level = EXCLUDED.level,
			title = EXCLUDED.title,
			skills = EXCLUDED.skills,
			last_active_at = EXCLUDED.last_active_at,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.conn.Exec(ctx, query,
		avatar.UserID,
		int(avatar.TotalXP),
		int(avatar.Level),
		avatar.Title,
		skillsJSON,
		avatar.LastActiveAt,
		avatar.CreatedAt,
		avatar.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save avatar: %w", err)
	}

	return nil
}

// GetAll returns all avatars, ordered by user ID.
func (r *AvatarRepository) GetAll(ctx context.Context) ([]*progression.Avatar, error) {
	query := `
		SELECT user_id, total_xp, level, title, skills, last_active_at, created_at, updated_at
		FROM avatars
		ORDER BY user_id
	`

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query avatars: %w", err)
	}
	defer rows.Close()

	avatars := make([]*progression.Avatar, 0)
	for rows.Next() {
		avatar, err := r.scanAvatar(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan avatar row: %w", err)
		}
		avatars = append(avatars, avatar)
	}
	return avatars, rows.Err()
}

// Count returns the number of avatars.
func (r *AvatarRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.conn.QueryRow(ctx, "SELECT COUNT(*) FROM avatars").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count avatars: %w", err)
	}
	return count, nil
}

// scanAvatar scans one avatar row.
func (r *AvatarRepository) scanAvatar(row pgx.Row) (*progression.Avatar, error) {
	var (
		userID, title                      string
		totalXP, level                     int
		skillsJSON                         []byte
		lastActiveAt, createdAt, updatedAt time.Time
	)
	if err := row.Scan(&userID, &totalXP, &level, &title, &skillsJSON, &lastActiveAt, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var skillRows []skillRow
	if err := json.Unmarshal(skillsJSON, &skillRows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal skills: %w", err)
	}

	skills := make([]progression.Skill, 0, len(skillRows))
	for _, s := range skillRows {
		skills = append(skills, progression.Skill{
			ID:      progression.SkillID(s.ID),
			TotalXP: progression.XP(s.TotalXP),
			Level:   progression.Level(s.Level),
		})
	}

	return &progression.Avatar{
		UserID:       userID,
		TotalXP:      progression.XP(totalXP),
		Level:        progression.Level(level),
		Title:        title,
		Skills:       skills,
		LastActiveAt: lastActiveAt,
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}, nil
}
