// Package achievement содержит доменную модель достижений: определения
// с условиями и наградами, записи разблокировок и вычислитель условий.
package achievement

import (
	"errors"
	"time"

	"github.com/browo-hub/progression-engine/internal/domain/progression"
)

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrEmptyAchievementID - пустой идентификатор достижения.
	ErrEmptyAchievementID = errors.New("achievement id is required")

	// ErrNoConditions - определение без условий.
	ErrNoConditions = errors.New("achievement must have at least one condition")

	// ErrInvalidTarget - отрицательная цель условия.
	ErrInvalidTarget = errors.New("condition target cannot be negative")

	// ErrUnsupportedTimeframe - квартальный период на показателе без
	// квартального счётчика.
	ErrUnsupportedTimeframe = errors.New("condition type has no quarterly counter")
)

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// Rarity определяет редкость достижения.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// IsValid проверяет, что редкость корректна.
func (r Rarity) IsValid() bool {
	switch r {
	case RarityCommon, RarityRare, RarityEpic, RarityLegendary:
		return true
	default:
		return false
	}
}

// Category определяет категорию достижения.
type Category string

const (
	CategoryLearning   Category = "learning"
	CategoryAttendance Category = "attendance"
	CategoryEngagement Category = "engagement"
	CategoryMilestone  Category = "milestone"
	CategorySpecial    Category = "special"
)

// ConditionType определяет, какой показатель проверяет условие.
type ConditionType string

const (
	// ConditionXPEarned - общий XP агрегата (или XP навыка при SkillID).
	ConditionXPEarned ConditionType = "xp_earned"
	// ConditionTrainingsCompleted - завершённых обучений.
	ConditionTrainingsCompleted ConditionType = "trainings_completed"
	// ConditionDaysPunctual - пунктуальных дней.
	ConditionDaysPunctual ConditionType = "days_punctual"
	// ConditionCoinsEarned - заработанных монет.
	ConditionCoinsEarned ConditionType = "coins_earned"
	// ConditionLevelReached - достигнутый общий уровень (или уровень навыка).
	ConditionLevelReached ConditionType = "level_reached"
	// ConditionFeedbackGiven - оставленной обратной связи.
	ConditionFeedbackGiven ConditionType = "feedback_given"
	// ConditionConsecutiveDays - текущая ежедневная серия.
	ConditionConsecutiveDays ConditionType = "consecutive_days"
)

// SupportsQuarterly сообщает, ведётся ли квартальный счётчик показателя.
// XP, уровни и серии - моментальные значения без квартального среза.
func (t ConditionType) SupportsQuarterly() bool {
	switch t {
	case ConditionTrainingsCompleted, ConditionDaysPunctual, ConditionCoinsEarned, ConditionFeedbackGiven:
		return true
	}
	return false
}

// Operator определяет оператор сравнения условия.
type Operator string

const (
	OperatorGTE Operator = "gte"
	OperatorGT  Operator = "gt"
	OperatorEQ  Operator = "eq"
	OperatorLT  Operator = "lt"
	OperatorLTE Operator = "lte"
)

// Compare применяет оператор к текущему значению и цели.
// Нераспознанный оператор возвращает false (fail-closed).
func (o Operator) Compare(current, target int) bool {
	switch o {
	case OperatorGTE:
		return current >= target
	case OperatorGT:
		return current > target
	case OperatorEQ:
		return current == target
	case OperatorLT:
		return current < target
	case OperatorLTE:
		return current <= target
	default:
		return false
	}
}

// Timeframe определяет период, за который считается показатель.
type Timeframe string

const (
	// TimeframeAllTime - за всё время (по умолчанию).
	TimeframeAllTime Timeframe = "all_time"
	// TimeframeQuarterly - за текущий квартал.
	TimeframeQuarterly Timeframe = "quarterly"
)

// RewardType определяет тип награды достижения.
type RewardType string

const (
	// RewardXP - общий XP, повторно входит в журнал.
	RewardXP RewardType = "xp"
	// RewardSkillXP - XP навыка, повторно входит в журнал.
	RewardSkillXP RewardType = "skill_xp"
	// RewardCoins - монеты, передаются кошельку (внешний коллаборатор).
	RewardCoins RewardType = "coins"
	// RewardTitle - звание, передаётся профилю.
	RewardTitle RewardType = "title"
)

// ══════════════════════════════════════════════════════════════════════════════
// DEFINITION
// ══════════════════════════════════════════════════════════════════════════════

// Condition - одно условие разблокировки достижения.
type Condition struct {
	// Type - проверяемый показатель.
	Type ConditionType

	// Operator - оператор сравнения.
	Operator Operator

	// Target - целевое значение.
	Target int

	// SkillID - навык для xp_earned/level_reached (пусто = общий).
	SkillID progression.SkillID

	// Timeframe - период показателя (пусто = all_time).
	Timeframe Timeframe
}

// EffectiveTimeframe возвращает период условия с учётом умолчания.
func (c Condition) EffectiveTimeframe() Timeframe {
	if c.Timeframe == "" {
		return TimeframeAllTime
	}
	return c.Timeframe
}

// Reward - одна награда достижения.
type Reward struct {
	// Type - тип награды.
	Type RewardType

	// Amount - количество (для xp, skill_xp, coins).
	Amount int

	// Title - текст звания (для title).
	Title string

	// SkillID - навык для skill_xp.
	SkillID progression.SkillID
}

// Definition - определение достижения из каталога.
// Каталог принадлежит административному коллаборатору; ядро только
// читает согласованный снимок на каждый проход вычислителя.
type Definition struct {
	// ID - идентификатор достижения.
	ID string

	// Name - отображаемое имя.
	Name string

	// Description - описание.
	Description string

	// Icon - иконка.
	Icon string

	// Category - категория.
	Category Category

	// Rarity - редкость.
	Rarity Rarity

	// Conditions - условия разблокировки (логическое AND).
	Conditions []Condition

	// Rewards - награды за разблокировку.
	Rewards []Reward

	// IsActive - участвует ли определение в вычислении.
	IsActive bool

	// IsHidden - скрыто ли до разблокировки.
	IsHidden bool
}

// Validate проверяет корректность определения.
func (d *Definition) Validate() error {
	if d.ID == "" {
		return ErrEmptyAchievementID
	}
	if len(d.Conditions) == 0 {
		return ErrNoConditions
	}
	for _, c := range d.Conditions {
		if c.Target < 0 {
			return ErrInvalidTarget
		}
		if c.EffectiveTimeframe() == TimeframeQuarterly && !c.Type.SupportsQuarterly() {
			return ErrUnsupportedTimeframe
		}
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// UNLOCK RECORD
// ══════════════════════════════════════════════════════════════════════════════

// Unlock - запись о разблокированном достижении.
// Инвариант: не более одной записи на пару (UserID, AchievementID).
type Unlock struct {
	// ID - идентификатор записи.
	ID string

	// UserID - идентификатор пользователя.
	UserID string

	// AchievementID - идентификатор достижения.
	AchievementID string

	// UnlockedAt - время разблокировки.
	UnlockedAt time.Time
}
