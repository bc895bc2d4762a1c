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
// LEDGER REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// LedgerRepository implements progression.LedgerRepository for PostgreSQL.
// The xp_events table is append-only: no update or delete statements exist.
type LedgerRepository struct {
	conn *Connection
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(conn *Connection) *LedgerRepository {
	return &LedgerRepository{conn: conn}
}

// Append adds an entry to the ledger.
func (r *LedgerRepository) Append(ctx context.Context, event *progression.XPEvent) error {
	if event == nil {
		return shared.NewDomainError("progression", "Append", shared.ErrInvalidInput, "event is nil")
	}

	query := `
		INSERT INTO xp_events (
			id, user_id, event_type, skill_id, amount, description, metadata, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	metadataJSON, err := marshalMetadata(event.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal event metadata: %w", err)
	}

	_, err = r.conn.Exec(ctx, query,
		string(event.ID),
		event.UserID,
		string(event.Type),
		event.SkillID,
		int(event.Amount),
		event.Description,
		metadataJSON,
		event.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.NewDomainError("progression", "Append", shared.ErrAlreadyExists, "duplicate event id")
		}
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}

	return nil
}

// GetByUser returns the user's entries, newest first.
func (r *LedgerRepository) GetByUser(ctx context.Context, userID string, limit int) ([]*progression.XPEvent, error) {
	query := `
		SELECT id, user_id, event_type, skill_id, amount, description, metadata, created_at
		FROM xp_events
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`
	args := []interface{}{userID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger: %w", err)
	}
	defer rows.Close()

	return r.scanEvents(rows)
}

// GetByUserSince returns the user's entries created at or after the given
// time, newest first.
func (r *LedgerRepository) GetByUserSince(ctx context.Context, userID string, since time.Time) ([]*progression.XPEvent, error) {
	query := `
		SELECT id, user_id, event_type, skill_id, amount, description, metadata, created_at
		FROM xp_events
		WHERE user_id = $1 AND created_at >= $2
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.conn.Query(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger: %w", err)
	}
	defer rows.Close()

	return r.scanEvents(rows)
}

// CountByUser returns the number of entries of a user.
func (r *LedgerRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx,
		"SELECT COUNT(*) FROM xp_events WHERE user_id = $1", userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}
	return count, nil
}

// scanEvents scans all rows into XP events.
func (r *LedgerRepository) scanEvents(rows pgx.Rows) ([]*progression.XPEvent, error) {
	events := make([]*progression.XPEvent, 0)
	for rows.Next() {
		var (
			id, userID, eventType, skillID, description string
			amount                                      int
			metadataJSON                                []byte
			createdAt                                   time.Time
		)
		if err := rows.Scan(&id, &userID, &eventType, &skillID, &amount, &description, &metadataJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger row: %w", err)
		}

		events = append(events, &progression.XPEvent{
			ID:          progression.EventID(id),
			UserID:      userID,
			Type:        progression.EventType(eventType),
			SkillID:     skillID,
			Amount:      progression.XP(amount),
			Description: description,
			Metadata:    unmarshalMetadata(progression.EventType(eventType), metadataJSON),
			CreatedAt:   createdAt,
		})
	}
	return events, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// Metadata serialization
// ─────────────────────────────────────────────────────────────────────────────

// marshalMetadata serializes event metadata as JSONB.
func marshalMetadata(m progression.Metadata) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// unmarshalMetadata restores the metadata variant from its event type.
// Unknown types and malformed payloads yield nil metadata.
func unmarshalMetadata(eventType progression.EventType, data []byte) progression.Metadata {
	if len(data) == 0 || string(data) == "{}" {
		return nil
	}

	switch eventType {
	case progression.EventTrainingCompleted:
		var m progression.TrainingMetadata
		if json.Unmarshal(data, &m) == nil {
			return m
		}
	case progression.EventPunctualCheckin:
		var m progression.CheckinMetadata
		if json.Unmarshal(data, &m) == nil {
			return m
		}
	case progression.EventCoinsEarned:
		var m progression.CoinsMetadata
		if json.Unmarshal(data, &m) == nil {
			return m
		}
	case progression.EventFeedbackGiven:
		var m progression.FeedbackMetadata
		if json.Unmarshal(data, &m) == nil {
			return m
		}
	case progression.EventDailyLogin:
		var m progression.LoginMetadata
		if json.Unmarshal(data, &m) == nil {
			return m
		}
	case progression.EventManual:
		var m progression.ManualMetadata
		if json.Unmarshal(data, &m) == nil {
			return m
		}
	case progression.EventAchievementReward:
		var m progression.RewardMetadata
		if json.Unmarshal(data, &m) == nil {
			return m
		}
	}
	return nil
}
