package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/browo-hub/progression-engine/internal/domain/achievement"
	"github.com/browo-hub/progression-engine/internal/domain/leaderboard"
	"github.com/browo-hub/progression-engine/internal/domain/progression"
	"github.com/browo-hub/progression-engine/internal/domain/shared"
)

func ledgerEvent(t *testing.T, id string, createdAt time.Time) *progression.XPEvent {
	t.Helper()
	event, err := progression.NewXPEvent(progression.NewXPEventParams{
		ID:        progression.EventID(id),
		UserID:    "user1",
		Type:      progression.EventDailyLogin,
		Amount:    2,
		CreatedAt: createdAt,
	})
	assert.NoError(t, err)
	return event
}

func TestLedgerRepository_AppendAndRead(t *testing.T) {
	repo := NewLedgerRepository()
	ctx := context.Background()
	base := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		err := repo.Append(ctx, ledgerEvent(t, string(rune('a'+i)), base.Add(time.Duration(i)*time.Hour)))
		assert.NoError(t, err)
	}

	// Newest first.
	events, err := repo.GetByUser(ctx, "user1", 0)
	assert.NoError(t, err)
	assert.Len(t, events, 3)
	assert.Equal(t, progression.EventID("c"), events[0].ID)
	assert.Equal(t, progression.EventID("a"), events[2].ID)

	// Limit applies after ordering.
	events, err = repo.GetByUser(ctx, "user1", 2)
	assert.NoError(t, err)
	assert.Len(t, events, 2)
	assert.Equal(t, progression.EventID("c"), events[0].ID)

	events, err = repo.GetByUserSince(ctx, "user1", base.Add(90*time.Minute))
	assert.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Equal(t, progression.EventID("c"), events[0].ID)

	count, err := repo.CountByUser(ctx, "user1")
	assert.NoError(t, err)
	assert.Equal(t, 3, count)

	count, err = repo.CountByUser(ctx, "ghost")
	assert.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestAvatarRepository_SaveAndGet(t *testing.T) {
	repo := NewAvatarRepository()
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := repo.Get(ctx, "user1")
	assert.True(t, shared.IsNotFound(err))

	avatar, _ := progression.NewAvatar("user1", progression.DefaultSkillDefinitions(), now)
	assert.NoError(t, repo.Save(ctx, avatar))

	// The stored copy is isolated from later mutations.
	avatar.TotalXP = 999

	loaded, err := repo.Get(ctx, "user1")
	assert.NoError(t, err)
	assert.Equal(t, progression.XP(0), loaded.TotalXP)

	count, err := repo.Count(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAvatarRepository_GetAllOrdered(t *testing.T) {
	repo := NewAvatarRepository()
	ctx := context.Background()
	now := time.Now().UTC()

	for _, id := range []string{"clara", "anna", "boris"} {
		avatar, _ := progression.NewAvatar(id, nil, now)
		assert.NoError(t, repo.Save(ctx, avatar))
	}

	all, err := repo.GetAll(ctx)
	assert.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, "anna", all[0].UserID)
	assert.Equal(t, "boris", all[1].UserID)
	assert.Equal(t, "clara", all[2].UserID)
}

func TestTrackerRepository_SaveAndGet(t *testing.T) {
	repo := NewTrackerRepository()
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := repo.Get(ctx, "user1")
	assert.True(t, shared.IsNotFound(err))

	tracker, _ := progression.NewTracker("user1", now)
	tracker.Totals.TrainingsCompleted = 4
	assert.NoError(t, repo.Save(ctx, tracker))

	loaded, err := repo.Get(ctx, "user1")
	assert.NoError(t, err)
	assert.Equal(t, 4, loaded.Totals.TrainingsCompleted)
}

func TestUnlockRepository_DuplicateRejected(t *testing.T) {
	repo := NewUnlockRepository()
	ctx := context.Background()
	now := time.Now().UTC()

	unlock := achievement.Unlock{
		ID:            "u1",
		UserID:        "user1",
		AchievementID: "first_training",
		UnlockedAt:    now,
	}
	assert.NoError(t, repo.Save(ctx, unlock))

	err := repo.Save(ctx, achievement.Unlock{
		ID:            "u2",
		UserID:        "user1",
		AchievementID: "first_training",
		UnlockedAt:    now,
	})
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)

	// A different user may unlock the same achievement.
	assert.NoError(t, repo.Save(ctx, achievement.Unlock{
		ID:            "u3",
		UserID:        "user2",
		AchievementID: "first_training",
		UnlockedAt:    now,
	}))

	unlocks, err := repo.GetByUser(ctx, "user1")
	assert.NoError(t, err)
	assert.Len(t, unlocks, 1)
	assert.Equal(t, "first_training", unlocks[0].AchievementID)
}

func TestSnapshotRepository_SaveAndGetLatest(t *testing.T) {
	repo := NewSnapshotRepository()
	ctx := context.Background()

	_, err := repo.GetLatest(ctx, leaderboard.ScopeOverall)
	assert.Error(t, err)

	snapshot := &leaderboard.Snapshot{
		Scope: leaderboard.ScopeOverall,
		Entries: []leaderboard.Entry{
			{Rank: 1, UserID: "boris", Level: 4, XP: 500},
			{Rank: 2, UserID: "anna", Level: 3, XP: 300},
		},
		GeneratedAt: time.Now().UTC(),
	}
	assert.NoError(t, repo.Save(ctx, snapshot))

	got, err := repo.GetLatest(ctx, leaderboard.ScopeOverall)
	assert.NoError(t, err)
	assert.Len(t, got.Entries, 2)
	assert.Equal(t, "boris", got.Entries[0].UserID)

	// Mutating the returned snapshot must not leak into the store.
	got.Entries[0].UserID = "mallory"
	again, err := repo.GetLatest(ctx, leaderboard.ScopeOverall)
	assert.NoError(t, err)
	assert.Equal(t, "boris", again.Entries[0].UserID)

	// A newer snapshot replaces the previous one of the scope.
	assert.NoError(t, repo.Save(ctx, &leaderboard.Snapshot{
		Scope:       leaderboard.ScopeOverall,
		Entries:     []leaderboard.Entry{{Rank: 1, UserID: "clara", Level: 2, XP: 700}},
		GeneratedAt: time.Now().UTC(),
	}))
	latest, err := repo.GetLatest(ctx, leaderboard.ScopeOverall)
	assert.NoError(t, err)
	assert.Len(t, latest.Entries, 1)

	// Scopes are independent.
	_, err = repo.GetLatest(ctx, leaderboard.ScopeSkill("knowledge"))
	assert.Error(t, err)
}
