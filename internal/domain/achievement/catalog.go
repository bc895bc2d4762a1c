package achievement

import (
	"context"

	"github.com/browo-hub/progression-engine/internal/domain/progression"
)

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG
// ══════════════════════════════════════════════════════════════════════════════

// CatalogSource поставляет текущий набор определений достижений.
// Каталог редактируется административным коллаборатором; вычислитель
// читает согласованный снимок на каждый проход.
type CatalogSource interface {
	// Definitions возвращает снимок каталога.
	Definitions(ctx context.Context) ([]Definition, error)
}

// UnlockRepository определяет операции хранения записей разблокировки.
type UnlockRepository interface {
	// GetByUser возвращает все разблокировки пользователя.
	GetByUser(ctx context.Context, userID string) ([]Unlock, error)

	// Save сохраняет запись разблокировки.
	// Повторное сохранение той же пары (user, achievement) - ошибка
	// с shared.ErrAlreadyExists.
	Save(ctx context.Context, unlock Unlock) error
}

// StaticCatalog - неизменяемый каталог из фиксированного набора определений.
// Используется как каталог по умолчанию и в тестах.
type StaticCatalog struct {
	definitions []Definition
}

// NewStaticCatalog создаёт каталог из набора определений.
func NewStaticCatalog(definitions []Definition) *StaticCatalog {
	defs := make([]Definition, len(definitions))
	copy(defs, definitions)
	return &StaticCatalog{definitions: defs}
}

// Definitions возвращает снимок каталога.
func (c *StaticCatalog) Definitions(_ context.Context) ([]Definition, error) {
	defs := make([]Definition, len(c.definitions))
	copy(defs, c.definitions)
	return defs, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DEFAULT CATALOG
// Стандартный набор достижений HR-платформы. Пороговые условия на
// монотонных счётчиках используют gte: цель eq можно перескочить
// одним событием, и достижение останется недостижимым.
// ══════════════════════════════════════════════════════════════════════════════

// DefaultDefinitions возвращает стандартный каталог достижений.
func DefaultDefinitions() []Definition {
	return []Definition{
		// Learning
		{
			ID:          "first_training",
			Name:        "Erste Schritte",
			Description: "Erste Schulung erfolgreich abgeschlossen",
			Icon:        "🎯",
			Category:    CategoryLearning,
			Rarity:      RarityCommon,
			Conditions: []Condition{
				{Type: ConditionTrainingsCompleted, Operator: OperatorGTE, Target: 1},
			},
			Rewards: []Reward{
				{Type: RewardXP, Amount: 50},
			},
			IsActive: true,
		},
		{
			ID:          "knowledge_seeker",
			Name:        "Wissenssucher",
			Description: "5 Schulungen erfolgreich abgeschlossen",
			Icon:        "📚",
			Category:    CategoryLearning,
			Rarity:      RarityCommon,
			Conditions: []Condition{
				{Type: ConditionTrainingsCompleted, Operator: OperatorGTE, Target: 5},
			},
			Rewards: []Reward{
				{Type: RewardSkillXP, Amount: 100, SkillID: progression.SkillKnowledge},
				{Type: RewardCoins, Amount: 50},
			},
			IsActive: true,
		},
		{
			ID:          "training_master",
			Name:        "Schulmeister",
			Description: "10 Schulungen erfolgreich abgeschlossen",
			Icon:        "🎓",
			Category:    CategoryLearning,
			Rarity:      RarityRare,
			Conditions: []Condition{
				{Type: ConditionTrainingsCompleted, Operator: OperatorGTE, Target: 10},
			},
			Rewards: []Reward{
				{Type: RewardSkillXP, Amount: 200, SkillID: progression.SkillKnowledge},
				{Type: RewardCoins, Amount: 100},
				{Type: RewardTitle, Title: "Schulmeister"},
			},
			IsActive: true,
		},

		// Attendance
		{
			ID:          "punctual_week",
			Name:        "Pünktlichkeits-Profi",
			Description: "7 Tage pünktlich gestempelt",
			Icon:        "⏰",
			Category:    CategoryAttendance,
			Rarity:      RarityCommon,
			Conditions: []Condition{
				{Type: ConditionDaysPunctual, Operator: OperatorGTE, Target: 7},
			},
			Rewards: []Reward{
				{Type: RewardSkillXP, Amount: 75, SkillID: progression.SkillLoyalty},
				{Type: RewardCoins, Amount: 25},
			},
			IsActive: true,
		},
		{
			ID:          "punctual_month",
			Name:        "Zeitmanagement-Experte",
			Description: "30 Tage pünktlich gestempelt",
			Icon:        "🕐",
			Category:    CategoryAttendance,
			Rarity:      RarityRare,
			Conditions: []Condition{
				{Type: ConditionDaysPunctual, Operator: OperatorGTE, Target: 30},
			},
			Rewards: []Reward{
				{Type: RewardSkillXP, Amount: 150, SkillID: progression.SkillLoyalty},
				{Type: RewardCoins, Amount: 75},
				{Type: RewardTitle, Title: "Zeitmanagement-Experte"},
			},
			IsActive: true,
		},
		{
			ID:          "streak_week",
			Name:        "Woche am Stück",
			Description: "7 Tage hintereinander eingeloggt",
			Icon:        "🔥",
			Category:    CategoryAttendance,
			Rarity:      RarityCommon,
			Conditions: []Condition{
				{Type: ConditionConsecutiveDays, Operator: OperatorGTE, Target: 7},
			},
			Rewards: []Reward{
				{Type: RewardXP, Amount: 100},
			},
			IsActive: true,
		},

		// Engagement
		{
			ID:          "coin_collector",
			Name:        "Münzsammler",
			Description: "100 Coins gesammelt",
			Icon:        "🪙",
			Category:    CategoryEngagement,
			Rarity:      RarityCommon,
			Conditions: []Condition{
				{Type: ConditionCoinsEarned, Operator: OperatorGTE, Target: 100},
			},
			Rewards: []Reward{
				{Type: RewardSkillXP, Amount: 50, SkillID: progression.SkillHustle},
				{Type: RewardXP, Amount: 25},
			},
			IsActive: true,
		},
		{
			ID:          "browo_legend",
			Name:        "Browo Legend",
			Description: "2500 Coins in einem Quartal",
			Icon:        "👑",
			Category:    CategoryMilestone,
			Rarity:      RarityLegendary,
			Conditions: []Condition{
				{Type: ConditionCoinsEarned, Operator: OperatorGTE, Target: 2500, Timeframe: TimeframeQuarterly},
			},
			Rewards: []Reward{
				{Type: RewardSkillXP, Amount: 500, SkillID: progression.SkillHustle},
				{Type: RewardXP, Amount: 250},
				{Type: RewardTitle, Title: "Browo Legend"},
				{Type: RewardCoins, Amount: 250},
			},
			IsActive: true,
		},

		// Feedback
		{
			ID:          "feedback_giver",
			Name:        "Feedback-Geber",
			Description: "5 Bewertungen abgegeben",
			Icon:        "💬",
			Category:    CategoryEngagement,
			Rarity:      RarityCommon,
			Conditions: []Condition{
				{Type: ConditionFeedbackGiven, Operator: OperatorGTE, Target: 5},
			},
			Rewards: []Reward{
				{Type: RewardSkillXP, Amount: 75, SkillID: progression.SkillLoyalty},
				{Type: RewardCoins, Amount: 30},
			},
			IsActive: true,
		},
		{
			ID:          "feedback_veteran",
			Name:        "Feedback-Veteran",
			Description: "25 Bewertungen abgegeben",
			Icon:        "🗣️",
			Category:    CategoryEngagement,
			Rarity:      RarityRare,
			Conditions: []Condition{
				{Type: ConditionFeedbackGiven, Operator: OperatorGTE, Target: 25},
			},
			Rewards: []Reward{
				{Type: RewardSkillXP, Amount: 150, SkillID: progression.SkillLoyalty},
				{Type: RewardCoins, Amount: 75},
				{Type: RewardTitle, Title: "Feedback-Veteran"},
			},
			IsActive: true,
		},

		// Milestones
		{
			ID:          "level_ten",
			Name:        "Aufsteiger",
			Description: "Level 10 erreicht",
			Icon:        "🚀",
			Category:    CategoryMilestone,
			Rarity:      RarityRare,
			Conditions: []Condition{
				{Type: ConditionLevelReached, Operator: OperatorGTE, Target: 10},
			},
			Rewards: []Reward{
				{Type: RewardCoins, Amount: 100},
			},
			IsActive: true,
		},
	}
}

// DefaultCatalog возвращает статический каталог со стандартным набором.
func DefaultCatalog() *StaticCatalog {
	return NewStaticCatalog(DefaultDefinitions())
}
