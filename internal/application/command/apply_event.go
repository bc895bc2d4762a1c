// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/browo-hub/progression-engine/internal/domain/achievement"
	"github.com/browo-hub/progression-engine/internal/domain/progression"
	"github.com/browo-hub/progression-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// APPLY EVENT COMMAND
// The single entry point of the progression engine. Takes one activity event,
// appends it to the XP ledger, updates the avatar and the activity tracker,
// evaluates achievements and resolves their rewards. Reward XP re-enters the
// same pipeline as achievement_reward events, bounded by an in-flight set so
// a miswired catalog cannot recurse forever.
// ══════════════════════════════════════════════════════════════════════════════

// XPRates defines how much XP each activity type grants.
// Amounts can be overridden per event via ApplyEventCommand.Amount.
type XPRates struct {
	// TrainingCompleted is the XP for finishing a training.
	TrainingCompleted int

	// PunctualCheckin is the XP for an on-time check-in.
	PunctualCheckin int

	// FeedbackGiven is the XP for submitting feedback.
	FeedbackGiven int

	// DailyLogin is the XP for the first login of the day.
	DailyLogin int

	// CoinsEarnedRate is the XP granted per coin earned.
	// The derived amount is rounded down to a whole number.
	CoinsEarnedRate float64
}

// DefaultXPRates returns the standard rate table.
func DefaultXPRates() XPRates {
	return XPRates{
		TrainingCompleted: 50,
		PunctualCheckin:   5,
		FeedbackGiven:     15,
		DailyLogin:        2,
		CoinsEarnedRate:   0.1,
	}
}

// Wallet credits coins to the external coin system.
// Achievement coin rewards go through this collaborator; the engine itself
// does not keep coin balances.
type Wallet interface {
	Credit(ctx context.Context, userID string, amount int, reason string) error
}

// ApplyEventCommand contains the data of one activity event.
type ApplyEventCommand struct {
	// UserID is the ID of the user the event belongs to.
	UserID string

	// Type is the activity type.
	Type progression.EventType

	// Amount is an explicit XP amount. Zero means derive from the rate table.
	// Required for manual events.
	Amount int

	// SkillID routes the XP to a specific skill. Empty means the default
	// skill for the event type.
	SkillID string

	// CoinAmount is the number of coins earned (for coins_earned events).
	CoinAmount int

	// Description is a human-readable description of the grant.
	Description string

	// Metadata carries event-specific details for the ledger.
	Metadata progression.Metadata

	// OccurredAt is when the activity happened (defaults to now if zero).
	OccurredAt time.Time
}

// Validate validates the command.
func (c ApplyEventCommand) Validate() error {
	if c.UserID == "" {
		return fmt.Errorf("apply_event: %w", shared.ErrInvalidUserID)
	}

	if !c.Type.IsValid() {
		return fmt.Errorf("apply_event: %q: %w", c.Type, shared.ErrInvalidEventType)
	}

	if c.Amount < 0 {
		return fmt.Errorf("apply_event: %w", shared.ErrInvalidAmount)
	}

	switch c.Type {
	case progression.EventManual:
		if c.Amount == 0 {
			return fmt.Errorf("apply_event: manual events require an explicit amount: %w", shared.ErrInvalidAmount)
		}
	case progression.EventCoinsEarned:
		if c.CoinAmount <= 0 && c.Amount == 0 {
			return fmt.Errorf("apply_event: coins_earned requires a coin amount: %w", shared.ErrInvalidAmount)
		}
	case progression.EventAchievementReward:
		return fmt.Errorf("apply_event: achievement_reward events are internal: %w", shared.ErrInvalidEventType)
	}

	return nil
}

// ApplyEventResult contains the outcome of applying one event.
type ApplyEventResult struct {
	// EventID is the ledger ID of the primary event (empty if no XP was granted).
	EventID string

	// UserID is the user the event was applied to.
	UserID string

	// XPAwarded is the XP granted by the triggering event itself.
	XPAwarded int

	// TotalXPAwarded includes XP from achievement rewards.
	TotalXPAwarded int

	// NewTotalXP is the avatar's total XP after the event.
	NewTotalXP int

	// NewLevel is the avatar's overall level after the event.
	NewLevel int

	// LevelUps lists every level transition caused by this event,
	// including those from reward XP.
	LevelUps []progression.LevelUp

	// NewAchievements lists achievements unlocked by this event.
	NewAchievements []achievement.Definition

	// CoinsGranted is the total coins credited by achievement rewards.
	CoinsGranted int

	// TitlesGranted lists titles granted by achievement rewards.
	TitlesGranted []string

	// StreakTouched is true if the event participated in the daily streak.
	StreakTouched bool

	// CurrentStreak is the streak after the event.
	CurrentStreak int

	// StreakBroken is true if the streak was reset by this event.
	StreakBroken bool

	// QuarterRolledFrom is the previous quarter label if the event caused
	// a quarterly rollover (empty otherwise).
	QuarterRolledFrom string

	// Events contains the domain events generated.
	Events []shared.Event

	// Persisted is false if the state was applied in memory but one or more
	// writes to storage failed. The caller may retry or reconcile later.
	Persisted bool

	// AppliedAt is when the event was applied.
	AppliedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// ApplyEventHandler handles the ApplyEventCommand.
// Events for the same user are serialized; different users proceed concurrently.
type ApplyEventHandler struct {
	ledger    progression.LedgerRepository
	avatars   progression.AvatarRepository
	trackers  progression.TrackerRepository
	catalog   achievement.CatalogSource
	unlocks   achievement.UnlockRepository
	evaluator *achievement.Evaluator
	curve     *progression.Curve
	publisher shared.EventPublisher
	wallet    Wallet
	logger    *slog.Logger

	rates XPRates
	locks *userLocks
}

// NewApplyEventHandler creates a new ApplyEventHandler.
// The wallet may be nil: coin rewards are then logged and dropped.
func NewApplyEventHandler(
	ledger progression.LedgerRepository,
	avatars progression.AvatarRepository,
	trackers progression.TrackerRepository,
	catalog achievement.CatalogSource,
	unlocks achievement.UnlockRepository,
	publisher shared.EventPublisher,
	wallet Wallet,
	curve *progression.Curve,
	rates XPRates,
	logger *slog.Logger,
) *ApplyEventHandler {
	if curve == nil {
		curve = progression.DefaultCurve()
	}
	if rates == (XPRates{}) {
		rates = DefaultXPRates()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &ApplyEventHandler{
		ledger:    ledger,
		avatars:   avatars,
		trackers:  trackers,
		catalog:   catalog,
		unlocks:   unlocks,
		evaluator: achievement.NewEvaluator(),
		curve:     curve,
		publisher: publisher,
		wallet:    wallet,
		logger:    logger,
		rates:     rates,
		locks:     newUserLocks(),
	}
}

// applyState carries the in-memory state of one Handle call.
type applyState struct {
	avatar      *progression.Avatar
	tracker     *progression.Tracker
	definitions []achievement.Definition
	unlocked    map[string]bool
	result      *ApplyEventResult

	// inFlight holds achievement IDs whose rewards are being resolved.
	// An achievement re-satisfied while its own reward chain is still open
	// means the catalog forms a cycle; the chain is aborted.
	inFlight map[string]bool
}

// grant describes one XP application within the pipeline: either the
// triggering event or a reward re-entry.
type grant struct {
	eventType   progression.EventType
	amount      int
	skillID     string
	coinAmount  int
	description string
	metadata    progression.Metadata
}

// Handle executes the apply event command.
func (h *ApplyEventHandler) Handle(ctx context.Context, cmd ApplyEventCommand) (*ApplyEventResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	at := cmd.OccurredAt
	if at.IsZero() {
		at = time.Now().UTC()
	}

	unlock := h.locks.lock(cmd.UserID)
	defer unlock()

	state, err := h.loadState(ctx, cmd.UserID, at)
	if err != nil {
		return nil, err
	}

	state.result = &ApplyEventResult{
		UserID:    cmd.UserID,
		Persisted: true,
		AppliedAt: at,
	}

	primary := grant{
		eventType:   cmd.Type,
		amount:      cmd.Amount,
		skillID:     cmd.SkillID,
		coinAmount:  cmd.CoinAmount,
		description: cmd.Description,
		metadata:    cmd.Metadata,
	}

	if err := h.applyGrant(ctx, state, primary, at, true); err != nil {
		return nil, err
	}

	h.persistState(ctx, state)

	state.result.NewTotalXP = int(state.avatar.TotalXP)
	state.result.NewLevel = int(state.avatar.Level)

	for _, event := range state.result.Events {
		if err := h.publisher.Publish(event); err != nil {
			h.logger.Warn("failed to publish event",
				"event_type", event.EventType(),
				"user_id", cmd.UserID,
				"error", err)
		}
	}

	return state.result, nil
}

// loadState loads the avatar, tracker, catalog and unlock set of a user,
// creating fresh aggregates on first contact.
func (h *ApplyEventHandler) loadState(ctx context.Context, userID string, at time.Time) (*applyState, error) {
	avatar, err := h.avatars.Get(ctx, userID)
	if err != nil {
		if !shared.IsNotFound(err) {
			return nil, fmt.Errorf("apply_event: failed to load avatar: %w", err)
		}
		avatar, err = progression.NewAvatar(userID, progression.DefaultSkillDefinitions(), at)
		if err != nil {
			return nil, fmt.Errorf("apply_event: failed to create avatar: %w", err)
		}
	}

	tracker, err := h.trackers.Get(ctx, userID)
	if err != nil {
		if !shared.IsNotFound(err) {
			return nil, fmt.Errorf("apply_event: failed to load tracker: %w", err)
		}
		tracker, err = progression.NewTracker(userID, at)
		if err != nil {
			return nil, fmt.Errorf("apply_event: failed to create tracker: %w", err)
		}
	}

	definitions, err := h.catalog.Definitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("apply_event: failed to load catalog: %w", err)
	}

	existing, err := h.unlocks.GetByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("apply_event: failed to load unlocks: %w", err)
	}

	unlocked := make(map[string]bool, len(existing))
	for _, u := range existing {
		unlocked[u.AchievementID] = true
	}

	return &applyState{
		avatar:      avatar,
		tracker:     tracker,
		definitions: definitions,
		unlocked:    unlocked,
		inFlight:    make(map[string]bool),
	}, nil
}

// applyGrant applies one XP grant to the in-memory state: ledger entry,
// avatar XP, tracker counters, then achievement evaluation. Reward XP
// re-enters through the same method with primary=false.
func (h *ApplyEventHandler) applyGrant(ctx context.Context, state *applyState, g grant, at time.Time, primary bool) error {
	amount, err := h.deriveAmount(g)
	if err != nil {
		return err
	}

	skillID := g.skillID
	if skillID == "" && g.eventType != progression.EventAchievementReward {
		skillID = string(progression.DefaultSkillForEventType(g.eventType))
	}

	// Events whose derived XP rounds down to zero still count toward
	// tracker counters and achievement evaluation.
	if amount > 0 {
		event, err := progression.NewXPEvent(progression.NewXPEventParams{
			ID:          progression.EventID(uuid.NewString()),
			UserID:      state.avatar.UserID,
			Type:        g.eventType,
			SkillID:     skillID,
			Amount:      progression.XP(amount),
			Description: g.description,
			Metadata:    g.metadata,
			CreatedAt:   at,
		})
		if err != nil {
			return fmt.Errorf("apply_event: %w", err)
		}

		if err := h.ledger.Append(ctx, event); err != nil {
			state.result.Persisted = false
			h.logger.Error("failed to append ledger entry",
				"user_id", event.UserID,
				"event_type", event.Type,
				"error", err)
		}

		levelUps, err := state.avatar.ApplyXP(progression.SkillID(skillID), progression.XP(amount), h.curve, at)
		if err != nil {
			return fmt.Errorf("apply_event: %w", err)
		}

		if primary {
			state.result.EventID = string(event.ID)
			state.result.XPAwarded = amount
		}
		state.result.TotalXPAwarded += amount
		state.result.LevelUps = append(state.result.LevelUps, levelUps...)

		state.result.Events = append(state.result.Events, shared.NewXPGrantedEvent(
			event.UserID, string(event.ID), skillID,
			amount, int(state.avatar.TotalXP),
			string(g.eventType), g.description,
		))
		for _, lu := range levelUps {
			xp := int(state.avatar.TotalXP)
			if lu.SkillID != "" {
				xp = int(state.avatar.SkillXP(lu.SkillID))
			}
			state.result.Events = append(state.result.Events, shared.NewLevelUpEvent(
				event.UserID, string(lu.SkillID),
				int(lu.OldLevel), int(lu.NewLevel), xp,
			))
		}
	}

	h.recordActivity(state, g, at)

	return h.evaluateAchievements(ctx, state, at)
}

// deriveAmount resolves the XP amount of a grant from the rate table.
func (h *ApplyEventHandler) deriveAmount(g grant) (int, error) {
	if g.amount > 0 {
		return g.amount, nil
	}

	switch g.eventType {
	case progression.EventTrainingCompleted:
		return h.rates.TrainingCompleted, nil
	case progression.EventPunctualCheckin:
		return h.rates.PunctualCheckin, nil
	case progression.EventFeedbackGiven:
		return h.rates.FeedbackGiven, nil
	case progression.EventDailyLogin:
		return h.rates.DailyLogin, nil
	case progression.EventCoinsEarned:
		return int(math.Floor(float64(g.coinAmount) * h.rates.CoinsEarnedRate)), nil
	default:
		return 0, fmt.Errorf("apply_event: no rate for %q: %w", g.eventType, shared.ErrInvalidAmount)
	}
}

// recordActivity updates the tracker and collects streak/quarter events.
// Reward grants do not count as user activity.
func (h *ApplyEventHandler) recordActivity(state *applyState, g grant, at time.Time) {
	if g.eventType == progression.EventAchievementReward {
		return
	}

	value := 1
	if g.eventType == progression.EventCoinsEarned {
		value = g.coinAmount
	}

	outcome := state.tracker.RecordActivity(g.eventType, value, at)

	if outcome.QuarterRolledFrom != "" {
		state.result.QuarterRolledFrom = outcome.QuarterRolledFrom
		state.result.Events = append(state.result.Events, shared.NewQuarterRolledOverEvent(
			state.tracker.UserID, outcome.QuarterRolledFrom, state.tracker.Quarterly.Quarter,
		))
	}

	if !outcome.StreakTouched {
		return
	}

	state.result.StreakTouched = true
	state.result.CurrentStreak = state.tracker.Streak.Current

	switch outcome.StreakOutcome {
	case progression.StreakExtended, progression.StreakStarted:
		isRecord := state.tracker.Streak.Current == state.tracker.Streak.Longest
		state.result.Events = append(state.result.Events, shared.NewStreakExtendedEvent(
			state.tracker.UserID, state.tracker.Streak.Current, state.tracker.Streak.Longest, isRecord,
		))
	case progression.StreakReset:
		state.result.StreakBroken = true
		state.result.Events = append(state.result.Events, shared.NewStreakBrokenEvent(
			state.tracker.UserID, outcome.PreviousStreak, outcome.DaysMissed,
		))
	}
}

// evaluateAchievements checks the catalog against the current state and
// unlocks newly satisfied achievements, resolving their rewards.
func (h *ApplyEventHandler) evaluateAchievements(ctx context.Context, state *applyState, at time.Time) error {
	satisfied, skipped := h.evaluator.Evaluate(state.definitions, achievement.EvalInput{
		Avatar:   state.avatar,
		Tracker:  state.tracker,
		Unlocked: state.unlocked,
	})

	for _, s := range skipped {
		h.logger.Warn("skipped malformed achievement condition", "detail", s.String())
	}

	for _, def := range satisfied {
		if state.inFlight[def.ID] {
			h.logger.Error("achievement reward chain forms a cycle, aborting chain",
				"achievement_id", def.ID,
				"user_id", state.avatar.UserID,
				"error", shared.ErrRewardCycleDetected)
			continue
		}

		if err := h.unlockAchievement(ctx, state, def, at); err != nil {
			return err
		}
	}

	return nil
}

// unlockAchievement records the unlock and resolves the rewards of one
// achievement. Duplicate unlocks in storage are treated as already done.
func (h *ApplyEventHandler) unlockAchievement(ctx context.Context, state *applyState, def achievement.Definition, at time.Time) error {
	state.unlocked[def.ID] = true

	unlock := achievement.Unlock{
		ID:            uuid.NewString(),
		UserID:        state.avatar.UserID,
		AchievementID: def.ID,
		UnlockedAt:    at,
	}

	if err := h.unlocks.Save(ctx, unlock); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			// Unlocked concurrently or in a previous degraded run.
			return nil
		}
		state.result.Persisted = false
		h.logger.Error("failed to save achievement unlock",
			"achievement_id", def.ID,
			"user_id", state.avatar.UserID,
			"error", err)
	}

	state.result.NewAchievements = append(state.result.NewAchievements, def)
	state.result.Events = append(state.result.Events, shared.NewAchievementUnlockedEvent(
		state.avatar.UserID, def.ID, def.Name, string(def.Rarity),
	))

	h.logger.Info("achievement unlocked",
		"achievement_id", def.ID,
		"user_id", state.avatar.UserID,
		"rarity", def.Rarity)

	state.inFlight[def.ID] = true
	defer delete(state.inFlight, def.ID)

	for _, reward := range def.Rewards {
		if err := h.resolveReward(ctx, state, def, reward, at); err != nil {
			return err
		}
	}

	return nil
}

// resolveReward applies one achievement reward.
// XP rewards re-enter the pipeline as achievement_reward grants.
func (h *ApplyEventHandler) resolveReward(ctx context.Context, state *applyState, def achievement.Definition, reward achievement.Reward, at time.Time) error {
	switch reward.Type {
	case achievement.RewardXP, achievement.RewardSkillXP:
		if reward.Amount <= 0 {
			h.logger.Warn("achievement has a non-positive XP reward, skipping",
				"achievement_id", def.ID, "amount", reward.Amount)
			return nil
		}
		return h.applyGrant(ctx, state, grant{
			eventType:   progression.EventAchievementReward,
			amount:      reward.Amount,
			skillID:     string(reward.SkillID),
			description: fmt.Sprintf("Reward for achievement %q", def.Name),
			metadata:    progression.RewardMetadata{AchievementID: def.ID},
		}, at, false)

	case achievement.RewardCoins:
		if h.wallet == nil {
			h.logger.Warn("no wallet configured, dropping coin reward",
				"achievement_id", def.ID, "amount", reward.Amount)
			return nil
		}
		reason := fmt.Sprintf("achievement:%s", def.ID)
		if err := h.wallet.Credit(ctx, state.avatar.UserID, reward.Amount, reason); err != nil {
			state.result.Persisted = false
			h.logger.Error("failed to credit coin reward",
				"achievement_id", def.ID,
				"user_id", state.avatar.UserID,
				"error", err)
			return nil
		}
		state.result.CoinsGranted += reward.Amount
		state.result.Events = append(state.result.Events, shared.NewCoinsGrantedEvent(
			state.avatar.UserID, def.ID, reward.Amount,
		))
		return nil

	case achievement.RewardTitle:
		state.avatar.GrantTitle(reward.Title, at)
		state.result.TitlesGranted = append(state.result.TitlesGranted, reward.Title)
		state.result.Events = append(state.result.Events, shared.NewTitleGrantedEvent(
			state.avatar.UserID, def.ID, reward.Title,
		))
		return nil

	default:
		h.logger.Warn("unknown reward type, skipping",
			"achievement_id", def.ID, "reward_type", reward.Type)
		return nil
	}
}

// persistState writes the avatar and tracker back to storage.
// Failures degrade the result instead of discarding the applied state.
func (h *ApplyEventHandler) persistState(ctx context.Context, state *applyState) {
	if err := h.avatars.Save(ctx, state.avatar); err != nil {
		state.result.Persisted = false
		h.logger.Error("failed to save avatar",
			"user_id", state.avatar.UserID, "error", err)
	}

	if err := h.trackers.Save(ctx, state.tracker); err != nil {
		state.result.Persisted = false
		h.logger.Error("failed to save tracker",
			"user_id", state.tracker.UserID, "error", err)
	}
}
