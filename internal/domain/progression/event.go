package progression

import (
	"errors"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrEmptyEventID - пустой идентификатор записи журнала.
	ErrEmptyEventID = errors.New("event id is required")

	// ErrEmptyUserID - пустой идентификатор пользователя.
	ErrEmptyUserID = errors.New("user id is required")

	// ErrUnknownEventType - нераспознанный тип события.
	ErrUnknownEventType = errors.New("unknown event type")

	// ErrNonPositiveAmount - неположительное количество XP.
	ErrNonPositiveAmount = errors.New("xp amount must be positive")

	// ErrSkillNotFound - навык не входит в агрегат.
	ErrSkillNotFound = errors.New("skill not found in aggregate")
)

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// EventType определяет тип активности, за которую начисляется XP.
type EventType string

const (
	// EventTrainingCompleted - успешно завершено обучение.
	EventTrainingCompleted EventType = "training_completed"
	// EventPunctualCheckin - пунктуальная отметка прихода.
	EventPunctualCheckin EventType = "punctual_checkin"
	// EventCoinsEarned - заработаны монеты (XP по курсу).
	EventCoinsEarned EventType = "coins_earned"
	// EventFeedbackGiven - оставлена обратная связь.
	EventFeedbackGiven EventType = "feedback_given"
	// EventDailyLogin - ежедневный вход в систему.
	EventDailyLogin EventType = "daily_login"
	// EventManual - ручное начисление администратором.
	EventManual EventType = "manual"
	// EventAchievementReward - XP-награда за разблокированное достижение.
	EventAchievementReward EventType = "achievement_reward"
)

// IsValid проверяет, что тип события распознан.
// Нераспознанные типы отклоняются до любой мутации состояния.
func (t EventType) IsValid() bool {
	switch t {
	case EventTrainingCompleted, EventPunctualCheckin, EventCoinsEarned,
		EventFeedbackGiven, EventDailyLogin, EventManual, EventAchievementReward:
		return true
	default:
		return false
	}
}

// AffectsStreak возвращает true, если событие участвует в ежедневной серии.
func (t EventType) AffectsStreak() bool {
	return t == EventDailyLogin
}

// String возвращает строковое представление типа.
func (t EventType) String() string {
	return string(t)
}

// ══════════════════════════════════════════════════════════════════════════════
// EVENT METADATA
// Метаданные моделируются как размеченное объединение по типу события:
// каждый вариант несёт только свои поля. Произвольных map-ов здесь нет.
// ══════════════════════════════════════════════════════════════════════════════

// Metadata - общий интерфейс метаданных XP-события.
type Metadata interface {
	// MetadataKind возвращает тип события, которому принадлежат метаданные.
	MetadataKind() EventType
}

// TrainingMetadata - метаданные завершения обучения.
type TrainingMetadata struct {
	TrainingID string `json:"training_id"`
	Passed     bool   `json:"passed"`
}

// MetadataKind возвращает тип события.
func (TrainingMetadata) MetadataKind() EventType { return EventTrainingCompleted }

// CheckinMetadata - метаданные пунктуальной отметки.
type CheckinMetadata struct {
	Date      string `json:"date"`
	StreakDay int    `json:"streak_day,omitempty"`
}

// MetadataKind возвращает тип события.
func (CheckinMetadata) MetadataKind() EventType { return EventPunctualCheckin }

// CoinsMetadata - метаданные заработанных монет.
type CoinsMetadata struct {
	CoinAmount int    `json:"coin_amount"`
	Reason     string `json:"reason,omitempty"`
}

// MetadataKind возвращает тип события.
func (CoinsMetadata) MetadataKind() EventType { return EventCoinsEarned }

// FeedbackMetadata - метаданные оставленной обратной связи.
type FeedbackMetadata struct {
	FeedbackID string `json:"feedback_id"`
}

// MetadataKind возвращает тип события.
func (FeedbackMetadata) MetadataKind() EventType { return EventFeedbackGiven }

// LoginMetadata - метаданные ежедневного входа.
type LoginMetadata struct {
	Date string `json:"date"`
}

// MetadataKind возвращает тип события.
func (LoginMetadata) MetadataKind() EventType { return EventDailyLogin }

// ManualMetadata - метаданные ручного начисления.
type ManualMetadata struct {
	Reason    string `json:"reason"`
	GrantedBy string `json:"granted_by,omitempty"`
}

// MetadataKind возвращает тип события.
func (ManualMetadata) MetadataKind() EventType { return EventManual }

// RewardMetadata - метаданные XP-награды за достижение.
type RewardMetadata struct {
	AchievementID string `json:"achievement_id"`
}

// MetadataKind возвращает тип события.
func (RewardMetadata) MetadataKind() EventType { return EventAchievementReward }

// ══════════════════════════════════════════════════════════════════════════════
// XP EVENT (запись журнала)
// Журнал append-only: записи никогда не изменяются и не удаляются.
// Коррекции моделируются новыми компенсирующими событиями.
// ══════════════════════════════════════════════════════════════════════════════

// EventID представляет уникальный идентификатор записи журнала.
type EventID string

// IsValid проверяет, что идентификатор непустой.
func (id EventID) IsValid() bool {
	return id != ""
}

// XPEvent - неизменяемая запись журнала начислений XP.
type XPEvent struct {
	// ID - уникальный идентификатор записи.
	ID EventID

	// UserID - идентификатор пользователя.
	UserID string

	// Type - тип активности.
	Type EventType

	// SkillID - навык, которому начислен XP (пусто = только общий XP).
	SkillID string

	// Amount - количество начисленного XP (строго положительное).
	Amount XP

	// Description - человекочитаемое описание начисления.
	Description string

	// Metadata - метаданные события (вариант по типу).
	Metadata Metadata

	// CreatedAt - время записи.
	CreatedAt time.Time
}

// NewXPEventParams содержит параметры для создания записи журнала.
type NewXPEventParams struct {
	ID          EventID
	UserID      string
	Type        EventType
	SkillID     string
	Amount      XP
	Description string
	Metadata    Metadata
	CreatedAt   time.Time
}

// NewXPEvent создаёт запись журнала с валидацией всех полей.
func NewXPEvent(params NewXPEventParams) (*XPEvent, error) {
	if !params.ID.IsValid() {
		return nil, ErrEmptyEventID
	}

	if params.UserID == "" {
		return nil, ErrEmptyUserID
	}

	if !params.Type.IsValid() {
		return nil, ErrUnknownEventType
	}

	if params.Amount <= 0 {
		return nil, ErrNonPositiveAmount
	}

	createdAt := params.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	return &XPEvent{
		ID:          params.ID,
		UserID:      params.UserID,
		Type:        params.Type,
		SkillID:     params.SkillID,
		Amount:      params.Amount,
		Description: params.Description,
		Metadata:    params.Metadata,
		CreatedAt:   createdAt,
	}, nil
}

// IsReward возвращает true, если запись порождена наградой за достижение.
func (e *XPEvent) IsReward() bool {
	return e.Type == EventAchievementReward
}

// Clone создаёт копию записи.
func (e *XPEvent) Clone() *XPEvent {
	if e == nil {
		return nil
	}
	clone := *e
	return &clone
}
