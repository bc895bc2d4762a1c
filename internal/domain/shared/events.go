// Package shared contains common domain types, errors and events that are
// used across all domain packages.
package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types - these drive the notification side of the engine.
// Each event represents something significant that happened in the domain.
const (
	// Progression events
	EventXPGranted         EventType = "progression.xp_granted"
	EventLevelUp           EventType = "progression.level_up"
	EventSkillLevelUp      EventType = "progression.skill_level_up"
	EventStreakExtended    EventType = "progression.streak_extended"
	EventStreakBroken      EventType = "progression.streak_broken"
	EventQuarterRolledOver EventType = "progression.quarter_rolled_over"

	// Achievement events
	EventAchievementUnlocked EventType = "achievement.unlocked"
	EventTitleGranted        EventType = "achievement.title_granted"
	EventCoinsGranted        EventType = "achievement.coins_granted"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"user_id"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.UserID
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, userID string) BaseEvent {
	return BaseEvent{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		UserID:    userID,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Progression Events
// ═══════════════════════════════════════════════════════════════════════════

// XPGrantedEvent is emitted when a user is granted XP.
type XPGrantedEvent struct {
	BaseEvent
	EventID     string `json:"event_id"`
	SkillID     string `json:"skill_id,omitempty"`
	Amount      int    `json:"amount"`
	NewTotal    int    `json:"new_total"`
	Source      string `json:"source"` // ledger event type, e.g. "training_completed"
	Description string `json:"description,omitempty"`
}

// NewXPGrantedEvent creates a new XPGrantedEvent.
func NewXPGrantedEvent(userID, eventID, skillID string, amount, newTotal int, source, description string) XPGrantedEvent {
	return XPGrantedEvent{
		BaseEvent:   NewBaseEvent(EventXPGranted, userID),
		EventID:     eventID,
		SkillID:     skillID,
		Amount:      amount,
		NewTotal:    newTotal,
		Source:      source,
		Description: description,
	}
}

// LevelUpEvent is emitted when a user's overall or skill level increases.
// SkillID is empty for the overall avatar level.
type LevelUpEvent struct {
	BaseEvent
	SkillID  string `json:"skill_id,omitempty"`
	OldLevel int    `json:"old_level"`
	NewLevel int    `json:"new_level"`
	TotalXP  int    `json:"total_xp"`
}

// NewLevelUpEvent creates a new LevelUpEvent.
func NewLevelUpEvent(userID, skillID string, oldLevel, newLevel, totalXP int) LevelUpEvent {
	eventType := EventLevelUp
	if skillID != "" {
		eventType = EventSkillLevelUp
	}
	return LevelUpEvent{
		BaseEvent: NewBaseEvent(eventType, userID),
		SkillID:   skillID,
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
		TotalXP:   totalXP,
	}
}

// IsSkillLevelUp returns true if the event concerns a skill, not the avatar.
func (e LevelUpEvent) IsSkillLevelUp() bool {
	return e.SkillID != ""
}

// StreakExtendedEvent is emitted when a user's daily streak grows.
type StreakExtendedEvent struct {
	BaseEvent
	CurrentStreak int  `json:"current_streak"`
	LongestStreak int  `json:"longest_streak"`
	IsNewRecord   bool `json:"is_new_record"`
}

// NewStreakExtendedEvent creates a new StreakExtendedEvent.
func NewStreakExtendedEvent(userID string, current, longest int, isRecord bool) StreakExtendedEvent {
	return StreakExtendedEvent{
		BaseEvent:     NewBaseEvent(EventStreakExtended, userID),
		CurrentStreak: current,
		LongestStreak: longest,
		IsNewRecord:   isRecord,
	}
}

// StreakBrokenEvent is emitted when a user's daily streak resets.
type StreakBrokenEvent struct {
	BaseEvent
	PreviousStreak int `json:"previous_streak"`
	DaysMissed     int `json:"days_missed"`
}

// NewStreakBrokenEvent creates a new StreakBrokenEvent.
func NewStreakBrokenEvent(userID string, previousStreak, daysMissed int) StreakBrokenEvent {
	return StreakBrokenEvent{
		BaseEvent:      NewBaseEvent(EventStreakBroken, userID),
		PreviousStreak: previousStreak,
		DaysMissed:     daysMissed,
	}
}

// QuarterRolledOverEvent is emitted when quarterly counters reset.
type QuarterRolledOverEvent struct {
	BaseEvent
	OldQuarter string `json:"old_quarter"`
	NewQuarter string `json:"new_quarter"`
}

// NewQuarterRolledOverEvent creates a new QuarterRolledOverEvent.
func NewQuarterRolledOverEvent(userID, oldQuarter, newQuarter string) QuarterRolledOverEvent {
	return QuarterRolledOverEvent{
		BaseEvent:  NewBaseEvent(EventQuarterRolledOver, userID),
		OldQuarter: oldQuarter,
		NewQuarter: newQuarter,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Achievement Events
// ═══════════════════════════════════════════════════════════════════════════

// AchievementUnlockedEvent is emitted when a user unlocks an achievement.
type AchievementUnlockedEvent struct {
	BaseEvent
	AchievementID   string `json:"achievement_id"`
	AchievementName string `json:"achievement_name"`
	Rarity          string `json:"rarity"`
}

// NewAchievementUnlockedEvent creates a new AchievementUnlockedEvent.
func NewAchievementUnlockedEvent(userID, achievementID, name, rarity string) AchievementUnlockedEvent {
	return AchievementUnlockedEvent{
		BaseEvent:       NewBaseEvent(EventAchievementUnlocked, userID),
		AchievementID:   achievementID,
		AchievementName: name,
		Rarity:          rarity,
	}
}

// CoinsGrantedEvent is emitted when an achievement reward grants coins.
// The wallet collaborator consumes it; the engine never re-evaluates it.
type CoinsGrantedEvent struct {
	BaseEvent
	AchievementID string `json:"achievement_id"`
	Amount        int    `json:"amount"`
}

// NewCoinsGrantedEvent creates a new CoinsGrantedEvent.
func NewCoinsGrantedEvent(userID, achievementID string, amount int) CoinsGrantedEvent {
	return CoinsGrantedEvent{
		BaseEvent:     NewBaseEvent(EventCoinsGranted, userID),
		AchievementID: achievementID,
		Amount:        amount,
	}
}

// TitleGrantedEvent is emitted when an achievement reward grants a title.
type TitleGrantedEvent struct {
	BaseEvent
	AchievementID string `json:"achievement_id"`
	Title         string `json:"title"`
}

// NewTitleGrantedEvent creates a new TitleGrantedEvent.
func NewTitleGrantedEvent(userID, achievementID, title string) TitleGrantedEvent {
	return TitleGrantedEvent{
		BaseEvent:     NewBaseEvent(EventTitleGranted, userID),
		AchievementID: achievementID,
		Title:         title,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Bus Interfaces
// ═══════════════════════════════════════════════════════════════════════════

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
