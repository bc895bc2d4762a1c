package eventhandler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/browo-hub/progression-engine/internal/domain/leaderboard"
	"github.com/browo-hub/progression-engine/internal/domain/progression"
	"github.com/browo-hub/progression-engine/internal/domain/shared"
	"github.com/browo-hub/progression-engine/internal/infrastructure/persistence/memory"
)

// recordingCache запоминает строки рейтинга по областям.
type recordingCache struct {
	entries map[string]leaderboard.Entry
	err     error
}

func newRecordingCache() *recordingCache {
	return &recordingCache{entries: make(map[string]leaderboard.Entry)}
}

func (c *recordingCache) UpdateScore(_ context.Context, scope leaderboard.Scope, entry leaderboard.Entry) error {
	if c.err != nil {
		return c.err
	}
	c.entries[scope.String()+"/"+entry.UserID] = entry
	return nil
}

func (c *recordingCache) GetTop(context.Context, leaderboard.Scope, int) ([]leaderboard.Entry, error) {
	return nil, nil
}

func (c *recordingCache) GetRank(context.Context, leaderboard.Scope, string) (leaderboard.Rank, bool, error) {
	return 0, false, nil
}

func (c *recordingCache) Invalidate(context.Context, leaderboard.Scope) error {
	return nil
}

func seedProjectionAvatar(t *testing.T, repo *memory.AvatarRepository, userID string, knowledgeXP int, title string) {
	t.Helper()
	avatar, err := progression.NewAvatar(userID, progression.DefaultSkillDefinitions(), time.Now())
	assert.NoError(t, err)
	if knowledgeXP > 0 {
		_, err = avatar.ApplyXP(progression.SkillKnowledge, progression.XP(knowledgeXP), progression.DefaultCurve(), time.Now())
		assert.NoError(t, err)
	}
	avatar.GrantTitle(title, time.Now())
	assert.NoError(t, repo.Save(context.Background(), avatar))
}

func TestOnXPGranted_UpdatesOverallEntry(t *testing.T) {
	cache := newRecordingCache()
	avatars := memory.NewAvatarRepository()
	seedProjectionAvatar(t, avatars, "user-1", 250, "Schulmeister")

	handler := NewOnXPGrantedHandler(avatars, cache, nil, nil)

	err := handler.Handle(shared.NewXPGrantedEvent("user-1", "evt-1", "", 75, 250, "manual", ""))

	assert.NoError(t, err)
	entry := cache.entries[leaderboard.ScopeOverall.String()+"/user-1"]
	assert.Equal(t, progression.XP(250), entry.XP)
	// 250 XP лежит за вторым порогом (215): сохранённая строка несёт
	// реальный уровень и звание, а не значения по умолчанию.
	assert.Equal(t, progression.Level(3), entry.Level)
	assert.Equal(t, "Schulmeister", entry.Title)
	assert.Len(t, cache.entries, 1)
}

func TestOnXPGranted_UpdatesSkillScope(t *testing.T) {
	cache := newRecordingCache()
	avatars := memory.NewAvatarRepository()
	seedProjectionAvatar(t, avatars, "user-1", 250, "")

	handler := NewOnXPGrantedHandler(avatars, cache, nil, nil)

	err := handler.Handle(shared.NewXPGrantedEvent("user-1", "evt-1", "knowledge", 50, 250, "training_completed", ""))

	assert.NoError(t, err)
	skillEntry := cache.entries[leaderboard.ScopeSkill(progression.SkillKnowledge).String()+"/user-1"]
	assert.Equal(t, progression.XP(250), skillEntry.XP)
	assert.Equal(t, progression.Level(3), skillEntry.Level)
	overall := cache.entries[leaderboard.ScopeOverall.String()+"/user-1"]
	assert.Equal(t, progression.XP(250), overall.XP)
}

func TestOnXPGranted_IgnoresOtherEvents(t *testing.T) {
	cache := newRecordingCache()
	handler := NewOnXPGrantedHandler(memory.NewAvatarRepository(), cache, nil, nil)

	err := handler.Handle(shared.NewLevelUpEvent("user-1", "", 1, 2, 100))

	assert.NoError(t, err)
	assert.Empty(t, cache.entries)
}

func TestOnXPGranted_CacheFailureSwallowed(t *testing.T) {
	cache := newRecordingCache()
	cache.err = errors.New("redis: connection refused")
	handler := NewOnXPGrantedHandler(memory.NewAvatarRepository(), cache, nil, nil)

	err := handler.Handle(shared.NewXPGrantedEvent("user-1", "evt-1", "", 10, 10, "daily_login", ""))

	assert.NoError(t, err)
	assert.Empty(t, cache.entries)
}

func TestOnXPGranted_MissingAvatarSkipsSkillScope(t *testing.T) {
	cache := newRecordingCache()
	handler := NewOnXPGrantedHandler(memory.NewAvatarRepository(), cache, nil, nil)

	err := handler.Handle(shared.NewXPGrantedEvent("ghost", "evt-1", "knowledge", 150, 150, "training_completed", ""))

	assert.NoError(t, err)
	// Общий счёт обновляется даже без агрегата, уровень выводится из кривой.
	entry := cache.entries[leaderboard.ScopeOverall.String()+"/ghost"]
	assert.Equal(t, progression.XP(150), entry.XP)
	assert.Equal(t, progression.Level(2), entry.Level)
	assert.Len(t, cache.entries, 1)
}
