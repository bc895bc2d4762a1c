// Package postgres implements the PostgreSQL persistence layer of the
// progression engine.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/browo-hub/progression-engine/internal/domain/achievement"
	"github.com/browo-hub/progression-engine/internal/domain/leaderboard"
	"github.com/browo-hub/progression-engine/internal/domain/progression"
	"github.com/browo-hub/progression-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// UNLOCK REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// UnlockRepository implements achievement.UnlockRepository for PostgreSQL.
// The unique (user_id, achievement_id) constraint makes unlocks idempotent
// even across concurrent instances.
type UnlockRepository struct {
	conn *Connection
}

// NewUnlockRepository creates a new UnlockRepository.
func NewUnlockRepository(conn *Connection) *UnlockRepository {
	return &UnlockRepository{conn: conn}
}

// GetByUser returns all unlocks of a user, oldest first.
func (r *UnlockRepository) GetByUser(ctx context.Context, userID string) ([]achievement.Unlock, error) {
	query := `
		SELECT id, user_id, achievement_id, unlocked_at
		FROM achievement_unlocks
		WHERE user_id = $1
		ORDER BY unlocked_at
	`

	rows, err := r.conn.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query unlocks: %w", err)
	}
	defer rows.Close()

	unlocks := make([]achievement.Unlock, 0)
	for rows.Next() {
		var u achievement.Unlock
		if err := rows.Scan(&u.ID, &u.UserID, &u.AchievementID, &u.UnlockedAt); err != nil {
			return nil, fmt.Errorf("failed to scan unlock row: %w", err)
		}
		unlocks = append(unlocks, u)
	}
	return unlocks, rows.Err()
}

// Save stores an unlock record. Saving the same (user, achievement) pair
// twice fails with shared.ErrAlreadyExists.
func (r *UnlockRepository) Save(ctx context.Context, unlock achievement.Unlock) error {
	query := `
		INSERT INTO achievement_unlocks (id, user_id, achievement_id, unlocked_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.conn.Exec(ctx, query,
		unlock.ID, unlock.UserID, unlock.AchievementID, unlock.UnlockedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.NewDomainError("achievement", "Unlock", shared.ErrAlreadyExists, "achievement already unlocked")
		}
		return fmt.Errorf("failed to save unlock: %w", err)
	}

	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD SNAPSHOT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// SnapshotRepository implements leaderboard.SnapshotRepository for PostgreSQL.
type SnapshotRepository struct {
	conn *Connection
}

// NewSnapshotRepository creates a new SnapshotRepository.
func NewSnapshotRepository(conn *Connection) *SnapshotRepository {
	return &SnapshotRepository{conn: conn}
}

// snapshotEntryRow is the JSONB representation of one leaderboard entry.
type snapshotEntryRow struct {
	Rank   int    `json:"rank"`
	UserID string `json:"user_id"`
	Level  int    `json:"level"`
	XP     int    `json:"xp"`
	Title  string `json:"title,omitempty"`
}

// Save stores a leaderboard snapshot.
func (r *SnapshotRepository) Save(ctx context.Context, snapshot *leaderboard.Snapshot) error {
	if snapshot == nil {
		return shared.NewDomainError("leaderboard", "Save", shared.ErrInvalidInput, "snapshot is nil")
	}

	id := snapshot.ID
	if id == "" {
		id = uuid.NewString()
	}

	entries := make([]snapshotEntryRow, 0, len(snapshot.Entries))
	for _, e := range snapshot.Entries {
		entries = append(entries, snapshotEntryRow{
			Rank:   int(e.Rank),
			UserID: e.UserID,
			Level:  int(e.Level),
			XP:     int(e.XP),
			Title:  e.Title,
		})
	}
	entriesJSON, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot entries: %w", err)
	}

	_, err = r.conn.Exec(ctx, `
		INSERT INTO leaderboard_snapshots (id, scope, entries, generated_at)
		VALUES ($1, $2, $3, $4)
	`, id, snapshot.Scope.String(), entriesJSON, snapshot.GeneratedAt)
	if err != nil {
		return fmt.Errorf("failed to save leaderboard snapshot: %w", err)
	}

	return nil
}

// GetLatest returns the latest snapshot of a scope.
func (r *SnapshotRepository) GetLatest(ctx context.Context, scope leaderboard.Scope) (*leaderboard.Snapshot, error) {
	query := `
		SELECT id, entries, generated_at
		FROM leaderboard_snapshots
		WHERE scope = $1
		ORDER BY generated_at DESC
		LIMIT 1
	`

	snapshot := &leaderboard.Snapshot{Scope: scope}
	var entriesJSON []byte
	err := r.conn.QueryRow(ctx, query, scope.String()).Scan(&snapshot.ID, &entriesJSON, &snapshot.GeneratedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrLeaderboardEmpty
		}
		return nil, fmt.Errorf("failed to get leaderboard snapshot: %w", err)
	}

	var rows []snapshotEntryRow
	if err := json.Unmarshal(entriesJSON, &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot entries: %w", err)
	}

	snapshot.Entries = make([]leaderboard.Entry, 0, len(rows))
	for _, e := range rows {
		snapshot.Entries = append(snapshot.Entries, leaderboard.Entry{
			Rank:   leaderboard.Rank(e.Rank),
			UserID: e.UserID,
			Level:  progression.Level(e.Level),
			XP:     progression.XP(e.XP),
			Title:  e.Title,
		})
	}

	return snapshot, nil
}
