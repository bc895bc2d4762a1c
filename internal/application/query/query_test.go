package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/browo-hub/progression-engine/internal/domain/achievement"
	"github.com/browo-hub/progression-engine/internal/domain/leaderboard"
	"github.com/browo-hub/progression-engine/internal/domain/progression"
	"github.com/browo-hub/progression-engine/internal/infrastructure/persistence/memory"
)

// fakeCache - детерминированный кэш рейтинга для тестов.
type fakeCache struct {
	top     []leaderboard.Entry
	entries map[string]leaderboard.Entry
	ranks   map[string]leaderboard.Rank
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		entries: make(map[string]leaderboard.Entry),
		ranks:   make(map[string]leaderboard.Rank),
	}
}

func (c *fakeCache) UpdateScore(_ context.Context, _ leaderboard.Scope, entry leaderboard.Entry) error {
	c.entries[entry.UserID] = entry
	return nil
}

func (c *fakeCache) GetTop(context.Context, leaderboard.Scope, int) ([]leaderboard.Entry, error) {
	return c.top, nil
}

func (c *fakeCache) GetRank(_ context.Context, _ leaderboard.Scope, userID string) (leaderboard.Rank, bool, error) {
	rank, ok := c.ranks[userID]
	return rank, ok, nil
}

func (c *fakeCache) Invalidate(context.Context, leaderboard.Scope) error {
	c.top = nil
	return nil
}

func seedAvatar(t *testing.T, repo *memory.AvatarRepository, userID string, xp progression.XP) {
	t.Helper()
	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	curve := progression.DefaultCurve()

	avatar, err := progression.NewAvatar(userID, progression.DefaultSkillDefinitions(), now)
	assert.NoError(t, err)
	if xp > 0 {
		_, err = avatar.ApplyXP(progression.SkillKnowledge, xp, curve, now)
		assert.NoError(t, err)
	}
	assert.NoError(t, repo.Save(context.Background(), avatar))
}

// ══════════════════════════════════════════════════════════════════════════════
// GET AVATAR
// ══════════════════════════════════════════════════════════════════════════════

func TestGetAvatarHandler(t *testing.T) {
	avatars := memory.NewAvatarRepository()
	seedAvatar(t, avatars, "user1", 150)

	handler := NewGetAvatarHandler(avatars, nil)
	dto, err := handler.Handle(context.Background(), GetAvatarQuery{UserID: "user1"})
	assert.NoError(t, err)

	assert.Equal(t, "user1", dto.UserID)
	assert.Equal(t, 150, dto.TotalXP)
	assert.Equal(t, 2, dto.Level)
	assert.Equal(t, "Newcomer", dto.TierTitle)
	assert.Equal(t, 50, dto.CurrentLevelXP)
	assert.Equal(t, 115, dto.NextLevelXP)
	assert.Len(t, dto.Skills, 3)

	// Навыковые метаданные приходят из каталога.
	var knowledge SkillDTO
	for _, s := range dto.Skills {
		if s.ID == "knowledge" {
			knowledge = s
		}
	}
	assert.Equal(t, "Wissen", knowledge.Name)
	assert.Equal(t, 150, knowledge.TotalXP)
	assert.Equal(t, 2, knowledge.Level)
}

func TestGetAvatarHandler_NotFound(t *testing.T) {
	handler := NewGetAvatarHandler(memory.NewAvatarRepository(), nil)

	_, err := handler.Handle(context.Background(), GetAvatarQuery{UserID: "ghost"})
	assert.Error(t, err)

	_, err = handler.Handle(context.Background(), GetAvatarQuery{})
	assert.Error(t, err)
}

// ══════════════════════════════════════════════════════════════════════════════
// GET LEADERBOARD
// ══════════════════════════════════════════════════════════════════════════════

func TestGetLeaderboardHandler_FromStorage(t *testing.T) {
	avatars := memory.NewAvatarRepository()
	seedAvatar(t, avatars, "anna", 300)
	seedAvatar(t, avatars, "boris", 500)
	seedAvatar(t, avatars, "clara", 100)

	handler := NewGetLeaderboardHandler(avatars, nil, nil, nil)
	result, err := handler.Handle(context.Background(), GetLeaderboardQuery{ForUserID: "clara"})
	assert.NoError(t, err)

	assert.Equal(t, "overall", result.Scope)
	assert.False(t, result.FromCache)
	assert.Equal(t, 3, result.TotalCount)
	assert.Equal(t, "boris", result.Entries[0].UserID)
	assert.Equal(t, 1, result.Entries[0].Rank)
	assert.Equal(t, 3, result.UserRank)
}

func TestGetLeaderboardHandler_CacheHitAndWarm(t *testing.T) {
	avatars := memory.NewAvatarRepository()
	seedAvatar(t, avatars, "anna", 300)
	cache := newFakeCache()

	handler := NewGetLeaderboardHandler(avatars, cache, nil, nil)

	// Пустой кэш: строим из хранилища и прогреваем кэш. Строка кэша несёт
	// не только счёт, но и детали отображения.
	result, err := handler.Handle(context.Background(), GetLeaderboardQuery{})
	assert.NoError(t, err)
	assert.False(t, result.FromCache)
	warmed := cache.entries["anna"]
	assert.Equal(t, progression.XP(300), warmed.XP)
	assert.Equal(t, progression.Level(3), warmed.Level)

	// Заполненный кэш обслуживает запрос напрямую.
	cache.top = []leaderboard.Entry{
		{Rank: 1, UserID: "anna", Level: 3, XP: 300},
	}
	cache.ranks["anna"] = 1

	result, err = handler.Handle(context.Background(), GetLeaderboardQuery{ForUserID: "anna"})
	assert.NoError(t, err)
	assert.True(t, result.FromCache)
	assert.Equal(t, 1, result.UserRank)
	assert.Len(t, result.Entries, 1)
}

func TestGetLeaderboardHandler_SkillScope(t *testing.T) {
	avatars := memory.NewAvatarRepository()
	seedAvatar(t, avatars, "anna", 300)

	handler := NewGetLeaderboardHandler(avatars, nil, nil, nil)
	result, err := handler.Handle(context.Background(), GetLeaderboardQuery{SkillID: "knowledge"})
	assert.NoError(t, err)
	assert.Equal(t, "skill:knowledge", result.Scope)
	assert.Equal(t, 300, result.Entries[0].XP)
}

// failingAvatars имитирует недоступное хранилище агрегатов.
type failingAvatars struct {
	progression.AvatarRepository
}

func (failingAvatars) GetAll(context.Context) ([]*progression.Avatar, error) {
	return nil, errors.New("connection refused")
}

func TestGetLeaderboardHandler_SavesAndServesSnapshot(t *testing.T) {
	ctx := context.Background()
	avatars := memory.NewAvatarRepository()
	seedAvatar(t, avatars, "anna", 300)
	seedAvatar(t, avatars, "boris", 500)
	snapshots := memory.NewSnapshotRepository()

	// Построение из хранилища сохраняет снимок.
	handler := NewGetLeaderboardHandler(avatars, nil, snapshots, nil)
	_, err := handler.Handle(ctx, GetLeaderboardQuery{})
	assert.NoError(t, err)

	saved, err := snapshots.GetLatest(ctx, leaderboard.ScopeOverall)
	assert.NoError(t, err)
	assert.Len(t, saved.Entries, 2)
	assert.Equal(t, "boris", saved.Entries[0].UserID)

	// При отказе хранилища запрос обслуживается из снимка.
	degraded := NewGetLeaderboardHandler(failingAvatars{}, nil, snapshots, nil)
	result, err := degraded.Handle(ctx, GetLeaderboardQuery{ForUserID: "anna"})
	assert.NoError(t, err)
	assert.False(t, result.FromCache)
	assert.Equal(t, 2, result.TotalCount)
	assert.Equal(t, "boris", result.Entries[0].UserID)
	assert.Equal(t, 2, result.UserRank)
}

func TestGetLeaderboardHandler_NoSnapshotStorageFailureIsFatal(t *testing.T) {
	handler := NewGetLeaderboardHandler(failingAvatars{}, nil, nil, nil)

	_, err := handler.Handle(context.Background(), GetLeaderboardQuery{})
	assert.Error(t, err)
}

// ══════════════════════════════════════════════════════════════════════════════
// GET USER ACHIEVEMENTS
// ══════════════════════════════════════════════════════════════════════════════

func TestGetUserAchievementsHandler(t *testing.T) {
	ctx := context.Background()
	unlocks := memory.NewUnlockRepository()
	unlockedAt := time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC)
	assert.NoError(t, unlocks.Save(ctx, achievement.Unlock{
		ID: "u1", UserID: "user1", AchievementID: "first_training", UnlockedAt: unlockedAt,
	}))

	handler := NewGetUserAchievementsHandler(achievement.DefaultCatalog(), unlocks)

	result, err := handler.Handle(ctx, GetUserAchievementsQuery{UserID: "user1"})
	assert.NoError(t, err)
	assert.Equal(t, len(achievement.DefaultDefinitions()), result.TotalCount)
	assert.Equal(t, 1, result.UnlockedCount)

	for _, dto := range result.Achievements {
		if dto.ID == "first_training" {
			assert.True(t, dto.Unlocked)
			assert.NotNil(t, dto.UnlockedAt)
			assert.Equal(t, unlockedAt, *dto.UnlockedAt)
		} else {
			assert.False(t, dto.Unlocked)
			assert.Nil(t, dto.UnlockedAt)
		}
	}

	// Только разблокированные.
	result, err = handler.Handle(ctx, GetUserAchievementsQuery{UserID: "user1", OnlyUnlocked: true})
	assert.NoError(t, err)
	assert.Len(t, result.Achievements, 1)

	// Фильтр по категории.
	result, err = handler.Handle(ctx, GetUserAchievementsQuery{UserID: "user1", Category: "attendance"})
	assert.NoError(t, err)
	for _, dto := range result.Achievements {
		assert.Equal(t, "attendance", dto.Category)
	}
}

func TestGetUserAchievementsHandler_HiddenUntilUnlocked(t *testing.T) {
	ctx := context.Background()
	catalog := achievement.NewStaticCatalog([]achievement.Definition{
		{
			ID: "secret", Name: "Geheim", IsActive: true, IsHidden: true,
			Conditions: []achievement.Condition{
				{Type: achievement.ConditionXPEarned, Operator: achievement.OperatorGTE, Target: 1},
			},
		},
	})
	unlocks := memory.NewUnlockRepository()
	handler := NewGetUserAchievementsHandler(catalog, unlocks)

	result, err := handler.Handle(ctx, GetUserAchievementsQuery{UserID: "user1"})
	assert.NoError(t, err)
	assert.Empty(t, result.Achievements)

	assert.NoError(t, unlocks.Save(ctx, achievement.Unlock{
		ID: "u1", UserID: "user1", AchievementID: "secret", UnlockedAt: time.Now().UTC(),
	}))

	result, err = handler.Handle(ctx, GetUserAchievementsQuery{UserID: "user1"})
	assert.NoError(t, err)
	assert.Len(t, result.Achievements, 1)
}

// ══════════════════════════════════════════════════════════════════════════════
// GET XP HISTORY
// ══════════════════════════════════════════════════════════════════════════════

func TestGetXPHistoryHandler(t *testing.T) {
	ctx := context.Background()
	ledger := memory.NewLedgerRepository()
	base := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		event, err := progression.NewXPEvent(progression.NewXPEventParams{
			ID:        progression.EventID(string(rune('a' + i))),
			UserID:    "user1",
			Type:      progression.EventDailyLogin,
			Amount:    2,
			CreatedAt: base.AddDate(0, 0, i),
		})
		assert.NoError(t, err)
		assert.NoError(t, ledger.Append(ctx, event))
	}

	handler := NewGetXPHistoryHandler(ledger)

	result, err := handler.Handle(ctx, GetXPHistoryQuery{UserID: "user1", Limit: 3})
	assert.NoError(t, err)
	assert.Len(t, result.Entries, 3)
	assert.Equal(t, 5, result.TotalCount)
	assert.Equal(t, "e", result.Entries[0].ID)

	// Since ограничивает выборку по времени.
	result, err = handler.Handle(ctx, GetXPHistoryQuery{
		UserID: "user1",
		Since:  base.AddDate(0, 0, 3),
	})
	assert.NoError(t, err)
	assert.Len(t, result.Entries, 2)
}

// ══════════════════════════════════════════════════════════════════════════════
// GET SUMMARY
// ══════════════════════════════════════════════════════════════════════════════

func TestGetSummaryHandler(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC)

	avatars := memory.NewAvatarRepository()
	trackers := memory.NewTrackerRepository()
	ledger := memory.NewLedgerRepository()
	unlocks := memory.NewUnlockRepository()
	cache := newFakeCache()
	cache.ranks["user1"] = 4

	seedAvatar(t, avatars, "user1", 150)

	tracker, _ := progression.NewTracker("user1", now)
	tracker.Streak.Current = 3
	tracker.Streak.Longest = 5
	tracker.Quarterly.TrainingsCompleted = 2
	assert.NoError(t, trackers.Save(ctx, tracker))

	assert.NoError(t, unlocks.Save(ctx, achievement.Unlock{
		ID: "u1", UserID: "user1", AchievementID: "first_training", UnlockedAt: now,
	}))

	handler := NewGetSummaryHandler(
		avatars, trackers, ledger,
		achievement.DefaultCatalog(), unlocks, cache,
		nil, nil,
	)

	summary, err := handler.Handle(ctx, GetSummaryQuery{UserID: "user1"})
	assert.NoError(t, err)
	assert.Equal(t, 150, summary.Avatar.TotalXP)
	assert.Equal(t, 3, summary.Streak.Current)
	assert.Equal(t, 2, summary.Quarterly.TrainingsCompleted)
	assert.Equal(t, 1, summary.UnlockedAchievements)
	assert.Equal(t, len(achievement.DefaultDefinitions()), summary.TotalAchievements)
	assert.Equal(t, 4, summary.Rank)
}

func TestGetSummaryHandler_TrackerMissing(t *testing.T) {
	ctx := context.Background()
	avatars := memory.NewAvatarRepository()
	seedAvatar(t, avatars, "user1", 50)

	handler := NewGetSummaryHandler(
		avatars, memory.NewTrackerRepository(), memory.NewLedgerRepository(),
		achievement.DefaultCatalog(), memory.NewUnlockRepository(), nil,
		nil, nil,
	)

	// Отсутствующий трекер не валит запрос.
	summary, err := handler.Handle(ctx, GetSummaryQuery{UserID: "user1"})
	assert.NoError(t, err)
	assert.Equal(t, 0, summary.Streak.Current)
	assert.Equal(t, 0, summary.Rank)
}
