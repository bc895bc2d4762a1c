// Package postgres implements the PostgreSQL persistence layer of the
// progression engine.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/browo-hub/progression-engine/internal/domain/progression"
	"github.com/browo-hub/progression-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// TRACKER REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// TrackerRepository implements progression.TrackerRepository for PostgreSQL.
type TrackerRepository struct {
	conn *Connection
}

// NewTrackerRepository creates a new TrackerRepository.
func NewTrackerRepository(conn *Connection) *TrackerRepository {
	return &TrackerRepository{conn: conn}
}

// Get returns the tracker of a user.
func (r *TrackerRepository) Get(ctx context.Context, userID string) (*progression.Tracker, error) {
	query := `
		SELECT user_id, streak_current, streak_longest, streak_last_checkin,
			   quarter, q_coins_earned, q_trainings_completed, q_punctual_days, q_feedback_given,
			   t_coins_earned, t_trainings_completed, t_punctual_days, t_feedback_given,
			   updated_at
		FROM trackers
		WHERE user_id = $1
	`

	var (
		tracker     progression.Tracker
		lastCheckin *time.Time
	)
	err := r.conn.QueryRow(ctx, query, userID).Scan(
		&tracker.UserID,
		&tracker.Streak.Current,
		&tracker.Streak.Longest,
		&lastCheckin,
		&tracker.Quarterly.Quarter,
		&tracker.Quarterly.CoinsEarned,
		&tracker.Quarterly.TrainingsCompleted,
		&tracker.Quarterly.PunctualDays,
		&tracker.Quarterly.FeedbackGiven,
		&tracker.Totals.CoinsEarned,
		&tracker.Totals.TrainingsCompleted,
		&tracker.Totals.PunctualDays,
		&tracker.Totals.FeedbackGiven,
		&tracker.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.NewDomainError("progression", "Find", shared.ErrNotFound, "tracker not found")
		}
		return nil, fmt.Errorf("failed to get tracker: %w", err)
	}

	if lastCheckin != nil {
		tracker.Streak.LastCheckin = *lastCheckin
	}

	return &tracker, nil
}

// Save stores the tracker (create or update).
func (r *TrackerRepository) Save(ctx context.Context, tracker *progression.Tracker) error {
	if tracker == nil {
		return shared.NewDomainError("progression", "Save", shared.ErrInvalidInput, "tracker is nil")
	}

	query := `
		INSERT INTO trackers (
			user_id, streak_current, streak_longest, streak_last_checkin,
			quarter, q_coins_earned, q_trainings_completed, q_punctual_days, q_feedback_given,
			t_coins_earned, t_trainings_completed, t_punctual_days, t_feedback_given,
			updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (user_id) DO UPDATE SET
			streak_current = EXCLUDED.streak_current,
			streak_longest = EXCLUDED.streak_longest,
			streak_last_checkin = EXCLUDED.streak_last_checkin,
			quarter = EXCLUDED.quarter,
			q_coins_earned = EXCLUDED.q_coins_earned,
			q_trainings_completed = EXCLUDED.q_trainings_completed,
			q_punctual_days = EXCLUDED.q_punctual_days,
			q_feedback_given = EXCLUDED.q_feedback_given,
			t_coins_earned = EXCLUDED.t_coins_earned,
			t_trainings_completed = EXCLUDED.t_trainings_completed,
			t_punctual_days = EXCLUDED.t_punctual_days,
			t_feedback_given = EXCLUDED.t_feedback_given,
			updated_at = EXCLUDED.updated_at
	`

	var lastCheckin *time.Time
	if !tracker.Streak.LastCheckin.IsZero() {
		t := tracker.Streak.LastCheckin
		lastCheckin = &t
	}

	_, err := r.conn.Exec(ctx, query,
		tracker.UserID,
		tracker.Streak.Current,
		tracker.Streak.Longest,
		lastCheckin,
		tracker.Quarterly.Quarter,
		tracker.Quarterly.CoinsEarned,
		tracker.Quarterly.TrainingsCompleted,
		tracker.Quarterly.PunctualDays,
		tracker.Quarterly.FeedbackGiven,
		tracker.Totals.CoinsEarned,
		tracker.Totals.TrainingsCompleted,
		tracker.Totals.PunctualDays,
		tracker.Totals.FeedbackGiven,
		tracker.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save tracker: %w", err)
	}

	return nil
}
