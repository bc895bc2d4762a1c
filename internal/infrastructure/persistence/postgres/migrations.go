// Package postgres implements the PostgreSQL persistence layer of the
// progression engine.
package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE XP LEDGER
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create XP ledger
-- Version: 001

-- Append-only XP event ledger. Rows are never updated or deleted;
-- corrections are modeled as new compensating events.
CREATE TABLE IF NOT EXISTS xp_events (
    id UUID PRIMARY KEY,
    user_id VARCHAR(64) NOT NULL,
    event_type VARCHAR(30) NOT NULL,
    skill_id VARCHAR(30) NOT NULL DEFAULT '',
    amount INTEGER NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT positive_amount CHECK (amount > 0),
    CONSTRAINT valid_event_type CHECK (event_type IN (
        'training_completed', 'punctual_checkin', 'coins_earned',
        'feedback_given', 'daily_login', 'manual', 'achievement_reward'
    ))
);

CREATE INDEX IF NOT EXISTS idx_xp_events_user_id ON xp_events(user_id);
CREATE INDEX IF NOT EXISTS idx_xp_events_user_created ON xp_events(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_xp_events_type ON xp_events(event_type);
`

const migration001Down = `
DROP TABLE IF EXISTS xp_events;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CREATE AVATARS AND TRACKERS
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create avatars and activity trackers
-- Version: 002

-- Avatar aggregates. Skills are stored as JSONB: the skill set is
-- configurable and levels are derived from total XP.
CREATE TABLE IF NOT EXISTS avatars (
    user_id VARCHAR(64) PRIMARY KEY,
    total_xp INTEGER NOT NULL DEFAULT 0,
    level INTEGER NOT NULL DEFAULT 1,
    title VARCHAR(100) NOT NULL DEFAULT '',
    skills JSONB NOT NULL DEFAULT '[]'::jsonb,
    last_active_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_total_xp CHECK (total_xp >= 0),
    CONSTRAINT valid_level CHECK (level >= 1)
);

CREATE INDEX IF NOT EXISTS idx_avatars_total_xp ON avatars(total_xp DESC);

-- Activity trackers: daily streak, quarterly counters, lifetime totals.
CREATE TABLE IF NOT EXISTS trackers (
    user_id VARCHAR(64) PRIMARY KEY,
    streak_current INTEGER NOT NULL DEFAULT 0,
    streak_longest INTEGER NOT NULL DEFAULT 0,
    streak_last_checkin TIMESTAMP WITH TIME ZONE,
    quarter VARCHAR(10) NOT NULL DEFAULT '',
    q_coins_earned INTEGER NOT NULL DEFAULT 0,
    q_trainings_completed INTEGER NOT NULL DEFAULT 0,
    q_punctual_days INTEGER NOT NULL DEFAULT 0,
    q_feedback_given INTEGER NOT NULL DEFAULT 0,
    t_coins_earned INTEGER NOT NULL DEFAULT 0,
    t_trainings_completed INTEGER NOT NULL DEFAULT 0,
    t_punctual_days INTEGER NOT NULL DEFAULT 0,
    t_feedback_given INTEGER NOT NULL DEFAULT 0,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_streak CHECK (streak_current >= 0 AND streak_longest >= streak_current)
);
`

const migration002Down = `
DROP TABLE IF EXISTS trackers;
DROP TABLE IF EXISTS avatars;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: CREATE ACHIEVEMENTS
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: Create achievement unlocks and leaderboard snapshots
-- Version: 003

CREATE TABLE IF NOT EXISTS achievement_unlocks (
    id UUID PRIMARY KEY,
    user_id VARCHAR(64) NOT NULL,
    achievement_id VARCHAR(64) NOT NULL,
    unlocked_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    -- Idempotent unlocks: one row per (user, achievement).
    UNIQUE(user_id, achievement_id)
);

CREATE INDEX IF NOT EXISTS idx_unlocks_user_id ON achievement_unlocks(user_id);
CREATE INDEX IF NOT EXISTS idx_unlocks_achievement_id ON achievement_unlocks(achievement_id);

-- Historical leaderboard snapshots.
CREATE TABLE IF NOT EXISTS leaderboard_snapshots (
    id UUID PRIMARY KEY,
    scope VARCHAR(40) NOT NULL,
    entries JSONB NOT NULL DEFAULT '[]'::jsonb,
    generated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_lb_snapshots_scope_time ON leaderboard_snapshots(scope, generated_at DESC);
`

const migration003Down = `
DROP TABLE IF EXISTS leaderboard_snapshots;
DROP TABLE IF EXISTS achievement_unlocks;
`

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_xp_ledger",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_avatars_trackers",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
		{
			Version: 3,
			Name:    "create_achievements",
			UpSQL:   migration003Up,
			DownSQL: migration003Down,
		},
	}
}
