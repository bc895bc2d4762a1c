package command

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/browo-hub/progression-engine/internal/domain/achievement"
	"github.com/browo-hub/progression-engine/internal/domain/progression"
	"github.com/browo-hub/progression-engine/internal/domain/shared"
	"github.com/browo-hub/progression-engine/internal/infrastructure/persistence/memory"
)

// ══════════════════════════════════════════════════════════════════════════════
// TEST FIXTURES
// ══════════════════════════════════════════════════════════════════════════════

type collectPublisher struct {
	events []shared.Event
}

func (p *collectPublisher) Publish(event shared.Event) error {
	p.events = append(p.events, event)
	return nil
}

func (p *collectPublisher) countByType(eventType shared.EventType) int {
	n := 0
	for _, e := range p.events {
		if e.EventType() == eventType {
			n++
		}
	}
	return n
}

type fakeWallet struct {
	credits map[string]int
	err     error
}

func (w *fakeWallet) Credit(_ context.Context, userID string, amount int, _ string) error {
	if w.err != nil {
		return w.err
	}
	if w.credits == nil {
		w.credits = make(map[string]int)
	}
	w.credits[userID] += amount
	return nil
}

type failingLedger struct {
	progression.LedgerRepository
}

func (f *failingLedger) Append(context.Context, *progression.XPEvent) error {
	return errors.New("connection refused")
}

type testEnv struct {
	handler   *ApplyEventHandler
	ledger    *memory.LedgerRepository
	avatars   *memory.AvatarRepository
	trackers  *memory.TrackerRepository
	unlocks   *memory.UnlockRepository
	publisher *collectPublisher
	wallet    *fakeWallet
}

func newTestEnv() *testEnv {
	return newTestEnvWithCatalog(achievement.DefaultCatalog())
}

func newTestEnvWithCatalog(catalog achievement.CatalogSource) *testEnv {
	env := &testEnv{
		ledger:    memory.NewLedgerRepository(),
		avatars:   memory.NewAvatarRepository(),
		trackers:  memory.NewTrackerRepository(),
		unlocks:   memory.NewUnlockRepository(),
		publisher: &collectPublisher{},
		wallet:    &fakeWallet{},
	}
	env.handler = NewApplyEventHandler(
		env.ledger, env.avatars, env.trackers,
		catalog, env.unlocks,
		env.publisher, env.wallet,
		nil, DefaultXPRates(), nil,
	)
	return env
}

func at(d int) time.Time {
	return time.Date(2026, 5, d, 10, 0, 0, 0, time.UTC)
}

// ══════════════════════════════════════════════════════════════════════════════
// TESTS
// ══════════════════════════════════════════════════════════════════════════════

func TestApplyEvent_TrainingGrantsXP(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	result, err := env.handler.Handle(ctx, ApplyEventCommand{
		UserID:     "user1",
		Type:       progression.EventTrainingCompleted,
		OccurredAt: at(1),
	})
	assert.NoError(t, err)
	assert.True(t, result.Persisted)
	assert.NotEmpty(t, result.EventID)
	assert.Equal(t, 50, result.XPAwarded)

	// The first training unlocks "Erste Schritte" which grants 50 bonus XP.
	assert.Len(t, result.NewAchievements, 1)
	assert.Equal(t, "first_training", result.NewAchievements[0].ID)
	assert.Equal(t, 100, result.TotalXPAwarded)
	assert.Equal(t, 100, result.NewTotalXP)
	assert.Equal(t, 2, result.NewLevel)
	assert.NotEmpty(t, result.LevelUps)

	// Avatar reached storage with the reward XP included.
	avatar, err := env.avatars.Get(ctx, "user1")
	assert.NoError(t, err)
	assert.Equal(t, progression.XP(100), avatar.TotalXP)
	assert.Equal(t, progression.XP(50), avatar.SkillXP(progression.SkillKnowledge))

	// Ledger holds the primary event plus the reward re-entry.
	count, err := env.ledger.CountByUser(ctx, "user1")
	assert.NoError(t, err)
	assert.Equal(t, 2, count)

	events, err := env.ledger.GetByUser(ctx, "user1", 0)
	assert.NoError(t, err)
	assert.True(t, events[0].IsReward(), "newest entry must be the reward")
	assert.Equal(t, progression.EventTrainingCompleted, events[1].Type)

	assert.Equal(t, 2, env.publisher.countByType(shared.EventXPGranted))
	assert.Equal(t, 1, env.publisher.countByType(shared.EventAchievementUnlocked))
}

func TestApplyEvent_AchievementUnlocksOnce(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	var last *ApplyEventResult
	for i := 1; i <= 6; i++ {
		result, err := env.handler.Handle(ctx, ApplyEventCommand{
			UserID:     "user1",
			Type:       progression.EventTrainingCompleted,
			OccurredAt: at(i),
		})
		assert.NoError(t, err)
		last = result

		if i == 5 {
			assert.Len(t, result.NewAchievements, 1)
			assert.Equal(t, "knowledge_seeker", result.NewAchievements[0].ID)
			assert.Equal(t, 50, result.CoinsGranted)
		}
	}

	// The sixth training triggers nothing new.
	assert.Empty(t, last.NewAchievements)

	unlocks, err := env.unlocks.GetByUser(ctx, "user1")
	assert.NoError(t, err)
	assert.Len(t, unlocks, 2)

	// Wallet was credited exactly once.
	assert.Equal(t, 50, env.wallet.credits["user1"])

	// 6 trainings * 50 XP + 50 reward (first_training) + 100 skill reward.
	avatar, err := env.avatars.Get(ctx, "user1")
	assert.NoError(t, err)
	assert.Equal(t, progression.XP(450), avatar.TotalXP)
	assert.Equal(t, progression.XP(400), avatar.SkillXP(progression.SkillKnowledge))
}

func TestApplyEvent_RewardChainIsBounded(t *testing.T) {
	// The reward of the first achievement pushes XP past the threshold of
	// the second; the second's reward satisfies nothing new. The chain must
	// terminate with exactly one unlock per achievement.
	catalog := achievement.NewStaticCatalog([]achievement.Definition{
		{
			ID: "spark", Name: "Funke", IsActive: true,
			Conditions: []achievement.Condition{
				{Type: achievement.ConditionXPEarned, Operator: achievement.OperatorGTE, Target: 40},
			},
			Rewards: []achievement.Reward{
				{Type: achievement.RewardXP, Amount: 100},
			},
		},
		{
			ID: "blaze", Name: "Flamme", IsActive: true,
			Conditions: []achievement.Condition{
				{Type: achievement.ConditionXPEarned, Operator: achievement.OperatorGTE, Target: 100},
			},
			Rewards: []achievement.Reward{
				{Type: achievement.RewardXP, Amount: 50},
			},
		},
	})
	env := newTestEnvWithCatalog(catalog)
	ctx := context.Background()

	result, err := env.handler.Handle(ctx, ApplyEventCommand{
		UserID:     "user1",
		Type:       progression.EventManual,
		Amount:     40,
		OccurredAt: at(1),
	})
	assert.NoError(t, err)

	// 40 manual + 100 from spark + 50 from blaze.
	assert.Equal(t, 190, result.TotalXPAwarded)
	assert.Equal(t, 190, result.NewTotalXP)
	assert.Len(t, result.NewAchievements, 2)
	assert.Equal(t, "spark", result.NewAchievements[0].ID)
	assert.Equal(t, "blaze", result.NewAchievements[1].ID)

	unlocks, err := env.unlocks.GetByUser(ctx, "user1")
	assert.NoError(t, err)
	assert.Len(t, unlocks, 2)

	count, err := env.ledger.CountByUser(ctx, "user1")
	assert.NoError(t, err)
	assert.Equal(t, 3, count)

	assert.Equal(t, 2, env.publisher.countByType(shared.EventAchievementUnlocked))
	assert.Equal(t, 3, env.publisher.countByType(shared.EventXPGranted))
}

func TestApplyEvent_TitleReward(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	for i := 1; i <= 10; i++ {
		_, err := env.handler.Handle(ctx, ApplyEventCommand{
			UserID:     "user1",
			Type:       progression.EventTrainingCompleted,
			OccurredAt: at(i),
		})
		assert.NoError(t, err)
	}

	avatar, err := env.avatars.Get(ctx, "user1")
	assert.NoError(t, err)
	assert.Equal(t, "Schulmeister", avatar.Title)
	assert.Equal(t, 1, env.publisher.countByType(shared.EventTitleGranted))
}

func TestApplyEvent_CoinsDeriveXPWithFloor(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	result, err := env.handler.Handle(ctx, ApplyEventCommand{
		UserID:     "user1",
		Type:       progression.EventCoinsEarned,
		CoinAmount: 45,
		OccurredAt: at(1),
	})
	assert.NoError(t, err)

	// floor(45 * 0.1) = 4 XP, routed to the hustle skill.
	assert.Equal(t, 4, result.XPAwarded)
	avatar, err := env.avatars.Get(ctx, "user1")
	assert.NoError(t, err)
	assert.Equal(t, progression.XP(4), avatar.SkillXP(progression.SkillHustle))

	tracker, err := env.trackers.Get(ctx, "user1")
	assert.NoError(t, err)
	assert.Equal(t, 45, tracker.Totals.CoinsEarned)
}

func TestApplyEvent_ZeroXPCoinsStillTracked(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	result, err := env.handler.Handle(ctx, ApplyEventCommand{
		UserID:     "user1",
		Type:       progression.EventCoinsEarned,
		CoinAmount: 9,
		OccurredAt: at(1),
	})
	assert.NoError(t, err)

	// floor(9 * 0.1) = 0: no ledger entry and no avatar change,
	// but the tracker counts the coins.
	assert.Equal(t, 0, result.XPAwarded)
	assert.Empty(t, result.EventID)

	count, err := env.ledger.CountByUser(ctx, "user1")
	assert.NoError(t, err)
	assert.Equal(t, 0, count)

	tracker, err := env.trackers.Get(ctx, "user1")
	assert.NoError(t, err)
	assert.Equal(t, 9, tracker.Totals.CoinsEarned)
}

func TestApplyEvent_CoinCollectorUnlockedByCounter(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	result, err := env.handler.Handle(ctx, ApplyEventCommand{
		UserID:     "user1",
		Type:       progression.EventCoinsEarned,
		CoinAmount: 340,
		OccurredAt: at(1),
	})
	assert.NoError(t, err)

	assert.Len(t, result.NewAchievements, 1)
	assert.Equal(t, "coin_collector", result.NewAchievements[0].ID)
}

func TestApplyEvent_DailyLoginStreak(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	result, err := env.handler.Handle(ctx, ApplyEventCommand{
		UserID:     "user1",
		Type:       progression.EventDailyLogin,
		OccurredAt: at(1),
	})
	assert.NoError(t, err)
	assert.True(t, result.StreakTouched)
	assert.Equal(t, 1, result.CurrentStreak)
	assert.False(t, result.StreakBroken)

	result, err = env.handler.Handle(ctx, ApplyEventCommand{
		UserID:     "user1",
		Type:       progression.EventDailyLogin,
		OccurredAt: at(2),
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, result.CurrentStreak)

	// Two missed days reset the streak.
	result, err = env.handler.Handle(ctx, ApplyEventCommand{
		UserID:     "user1",
		Type:       progression.EventDailyLogin,
		OccurredAt: at(5),
	})
	assert.NoError(t, err)
	assert.True(t, result.StreakBroken)
	assert.Equal(t, 1, result.CurrentStreak)
	assert.Equal(t, 1, env.publisher.countByType(shared.EventStreakBroken))
}

func TestApplyEvent_ManualGrant(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	result, err := env.handler.Handle(ctx, ApplyEventCommand{
		UserID:      "user1",
		Type:        progression.EventManual,
		Amount:      75,
		Description: "Bonus vom Teamlead",
		OccurredAt:  at(1),
	})
	assert.NoError(t, err)
	assert.Equal(t, 75, result.XPAwarded)

	// Manual grants have no default skill.
	avatar, err := env.avatars.Get(ctx, "user1")
	assert.NoError(t, err)
	for _, skill := range avatar.Skills {
		assert.Equal(t, progression.XP(0), skill.TotalXP)
	}
}

func TestApplyEvent_Validation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := env.handler.Handle(ctx, ApplyEventCommand{
		Type: progression.EventDailyLogin,
	})
	assert.ErrorIs(t, err, shared.ErrInvalidUserID)

	_, err = env.handler.Handle(ctx, ApplyEventCommand{
		UserID: "user1",
		Type:   "promotion",
	})
	assert.ErrorIs(t, err, shared.ErrInvalidEventType)

	_, err = env.handler.Handle(ctx, ApplyEventCommand{
		UserID: "user1",
		Type:   progression.EventManual,
	})
	assert.ErrorIs(t, err, shared.ErrInvalidAmount)

	_, err = env.handler.Handle(ctx, ApplyEventCommand{
		UserID: "user1",
		Type:   progression.EventCoinsEarned,
	})
	assert.ErrorIs(t, err, shared.ErrInvalidAmount)

	// Reward events are produced internally, never accepted from callers.
	_, err = env.handler.Handle(ctx, ApplyEventCommand{
		UserID: "user1",
		Type:   progression.EventAchievementReward,
		Amount: 100,
	})
	assert.ErrorIs(t, err, shared.ErrInvalidEventType)

	// Nothing was written.
	count, err := env.ledger.CountByUser(ctx, "user1")
	assert.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestApplyEvent_DegradedWhenLedgerFails(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	handler := NewApplyEventHandler(
		&failingLedger{}, env.avatars, env.trackers,
		achievement.DefaultCatalog(), env.unlocks,
		env.publisher, env.wallet,
		nil, DefaultXPRates(), nil,
	)

	result, err := handler.Handle(ctx, ApplyEventCommand{
		UserID:     "user1",
		Type:       progression.EventDailyLogin,
		OccurredAt: at(1),
	})
	assert.NoError(t, err)

	// The event was applied in memory but flagged as not persisted.
	assert.False(t, result.Persisted)
	assert.Equal(t, 2, result.XPAwarded)
	assert.Equal(t, 2, result.NewTotalXP)

	avatar, err := env.avatars.Get(ctx, "user1")
	assert.NoError(t, err)
	assert.Equal(t, progression.XP(2), avatar.TotalXP)
}

func TestApplyEvent_WalletFailureDegrades(t *testing.T) {
	env := newTestEnv()
	env.wallet.err = errors.New("wallet unavailable")
	ctx := context.Background()

	// 5 trainings reach knowledge_seeker which carries a coin reward.
	var last *ApplyEventResult
	for i := 1; i <= 5; i++ {
		result, err := env.handler.Handle(ctx, ApplyEventCommand{
			UserID:     "user1",
			Type:       progression.EventTrainingCompleted,
			OccurredAt: at(i),
		})
		assert.NoError(t, err)
		last = result
	}

	assert.False(t, last.Persisted)
	assert.Equal(t, 0, last.CoinsGranted)
	// The unlock itself still happened.
	assert.Len(t, last.NewAchievements, 1)
}

func TestApplyEvent_NoWalletDropsCoinReward(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	handler := NewApplyEventHandler(
		env.ledger, env.avatars, env.trackers,
		achievement.DefaultCatalog(), env.unlocks,
		env.publisher, nil,
		nil, DefaultXPRates(), nil,
	)

	var last *ApplyEventResult
	for i := 1; i <= 5; i++ {
		result, err := handler.Handle(ctx, ApplyEventCommand{
			UserID:     "user1",
			Type:       progression.EventTrainingCompleted,
			OccurredAt: at(i),
		})
		assert.NoError(t, err)
		last = result
	}

	// No wallet: the coin reward is dropped without degrading the result.
	assert.True(t, last.Persisted)
	assert.Equal(t, 0, last.CoinsGranted)
}

func TestApplyEvent_UsersAreIndependent(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := env.handler.Handle(ctx, ApplyEventCommand{
		UserID:     "user1",
		Type:       progression.EventTrainingCompleted,
		OccurredAt: at(1),
	})
	assert.NoError(t, err)

	result, err := env.handler.Handle(ctx, ApplyEventCommand{
		UserID:     "user2",
		Type:       progression.EventFeedbackGiven,
		OccurredAt: at(1),
	})
	assert.NoError(t, err)
	assert.Equal(t, 15, result.XPAwarded)

	avatar2, err := env.avatars.Get(ctx, "user2")
	assert.NoError(t, err)
	assert.Equal(t, progression.XP(15), avatar2.TotalXP)
	assert.Equal(t, progression.XP(15), avatar2.SkillXP(progression.SkillLoyalty))
}
