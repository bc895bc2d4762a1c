package progression

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 9, 0, 0, 0, time.UTC)
}

func TestDailyStreak_Checkin(t *testing.T) {
	var streak DailyStreak

	// First checkin starts the streak.
	outcome := streak.Checkin(day(2026, 1, 5))
	assert.Equal(t, StreakStarted, outcome)
	assert.Equal(t, 1, streak.Current)
	assert.Equal(t, 1, streak.Longest)

	// Second checkin the same day is a no-op.
	outcome = streak.Checkin(day(2026, 1, 5).Add(3 * time.Hour))
	assert.Equal(t, StreakUnchanged, outcome)
	assert.Equal(t, 1, streak.Current)

	// Next day extends the streak.
	outcome = streak.Checkin(day(2026, 1, 6))
	assert.Equal(t, StreakExtended, outcome)
	assert.Equal(t, 2, streak.Current)
	assert.Equal(t, 2, streak.Longest)

	outcome = streak.Checkin(day(2026, 1, 7))
	assert.Equal(t, StreakExtended, outcome)
	assert.Equal(t, 3, streak.Current)

	// A gap resets the streak; the best streak is kept.
	outcome = streak.Checkin(day(2026, 1, 10))
	assert.Equal(t, StreakReset, outcome)
	assert.Equal(t, 1, streak.Current)
	assert.Equal(t, 3, streak.Longest)
}

func TestDailyStreak_DaysMissed(t *testing.T) {
	var streak DailyStreak
	assert.Equal(t, 0, streak.DaysMissed(day(2026, 1, 5)))

	streak.Checkin(day(2026, 1, 5))
	assert.Equal(t, 0, streak.DaysMissed(day(2026, 1, 6)))
	assert.Equal(t, 2, streak.DaysMissed(day(2026, 1, 8)))
}

func TestQuarterlyStats_Apply(t *testing.T) {
	stats := QuarterlyStats{Quarter: "2026-Q1"}

	rolled := stats.Apply(EventTrainingCompleted, 1, day(2026, 2, 10))
	assert.Empty(t, rolled)
	assert.Equal(t, 1, stats.TrainingsCompleted)

	rolled = stats.Apply(EventCoinsEarned, 40, day(2026, 3, 20))
	assert.Empty(t, rolled)
	assert.Equal(t, 40, stats.CoinsEarned)
}

func TestQuarterlyStats_Rollover(t *testing.T) {
	stats := QuarterlyStats{Quarter: "2026-Q1", CoinsEarned: 500, TrainingsCompleted: 7}

	// First event of the new quarter resets all counters and counts only itself.
	rolled := stats.Apply(EventCoinsEarned, 25, day(2026, 4, 1))
	assert.Equal(t, "2026-Q1", rolled)
	assert.Equal(t, "2026-Q2", stats.Quarter)
	assert.Equal(t, 25, stats.CoinsEarned)
	assert.Equal(t, 0, stats.TrainingsCompleted)
}

func TestNewTracker(t *testing.T) {
	tracker, err := NewTracker("user1", day(2026, 1, 5))
	assert.NoError(t, err)
	assert.Equal(t, "user1", tracker.UserID)
	assert.Equal(t, "2026-Q1", tracker.Quarterly.Quarter)
	assert.Equal(t, 0, tracker.Streak.Current)

	_, err = NewTracker("", time.Time{})
	assert.ErrorIs(t, err, ErrEmptyUserID)
}

func TestTracker_RecordActivity(t *testing.T) {
	tracker, _ := NewTracker("user1", day(2026, 1, 5))

	// Trainings count in the quarter and the lifetime totals, not the streak.
	outcome := tracker.RecordActivity(EventTrainingCompleted, 1, day(2026, 1, 5))
	assert.False(t, outcome.StreakTouched)
	assert.Equal(t, 1, tracker.Quarterly.TrainingsCompleted)
	assert.Equal(t, 1, tracker.Totals.TrainingsCompleted)

	// Logins drive the streak.
	outcome = tracker.RecordActivity(EventDailyLogin, 1, day(2026, 1, 5))
	assert.True(t, outcome.StreakTouched)
	assert.Equal(t, StreakStarted, outcome.StreakOutcome)
	assert.Equal(t, 1, tracker.Streak.Current)

	outcome = tracker.RecordActivity(EventDailyLogin, 1, day(2026, 1, 6))
	assert.Equal(t, StreakExtended, outcome.StreakOutcome)
	assert.Equal(t, 2, tracker.Streak.Current)

	// A missed day resets the streak and reports the gap.
	outcome = tracker.RecordActivity(EventDailyLogin, 1, day(2026, 1, 9))
	assert.Equal(t, StreakReset, outcome.StreakOutcome)
	assert.Equal(t, 2, outcome.PreviousStreak)
	assert.Equal(t, 2, outcome.DaysMissed)
	assert.Equal(t, 1, tracker.Streak.Current)
}

func TestTracker_RecordActivity_QuarterRollover(t *testing.T) {
	tracker, _ := NewTracker("user1", day(2026, 3, 30))
	tracker.RecordActivity(EventCoinsEarned, 100, day(2026, 3, 30))

	outcome := tracker.RecordActivity(EventCoinsEarned, 50, day(2026, 4, 2))
	assert.Equal(t, "2026-Q1", outcome.QuarterRolledFrom)
	assert.Equal(t, 50, tracker.Quarterly.CoinsEarned)

	// Lifetime totals survive the rollover.
	assert.Equal(t, 150, tracker.Totals.CoinsEarned)
}
