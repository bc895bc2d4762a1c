package achievement

import (
	"fmt"

	"github.com/browo-hub/progression-engine/internal/domain/progression"
)

// ══════════════════════════════════════════════════════════════════════════════
// EVALUATOR
// Сравнивает текущее состояние пользователя (агрегат + трекер) с каталогом
// и определяет новые выполненные достижения. Вычислитель чистый: не мутирует
// состояние и не обращается к хранилищу - кандидаты и разблокировки
// передаются вызывающей стороной.
// ══════════════════════════════════════════════════════════════════════════════

// Evaluator вычисляет выполненность условий достижений.
type Evaluator struct{}

// NewEvaluator создаёт вычислитель.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// EvalInput - состояние пользователя для одного прохода вычислителя.
type EvalInput struct {
	// Avatar - агрегат прогрессии пользователя.
	Avatar *progression.Avatar

	// Tracker - трекер активности пользователя.
	Tracker *progression.Tracker

	// Unlocked - идентификаторы уже разблокированных достижений.
	Unlocked map[string]bool
}

// SkippedCondition описывает условие, пропущенное как некорректное.
// Такие условия вычисляются как невыполненные (fail-closed), чтобы одно
// испорченное определение каталога не остановило прогрессию всех.
// Вызывающая сторона обязана залогировать пропуски для оператора.
type SkippedCondition struct {
	AchievementID string
	Condition     Condition
	Reason        string
}

// String возвращает описание пропуска для логирования.
func (s SkippedCondition) String() string {
	return fmt.Sprintf("achievement %q: condition %q skipped: %s",
		s.AchievementID, s.Condition.Type, s.Reason)
}

// Evaluate возвращает определения, все условия которых выполнены и которые
// ещё не разблокированы пользователем. Неактивные определения пропускаются.
func (ev *Evaluator) Evaluate(definitions []Definition, input EvalInput) (satisfied []Definition, skipped []SkippedCondition) {
	for _, def := range definitions {
		if !def.IsActive {
			continue
		}
		if input.Unlocked[def.ID] {
			continue
		}
		if len(def.Conditions) == 0 {
			// Определение без условий никогда не выполняется.
			skipped = append(skipped, SkippedCondition{
				AchievementID: def.ID,
				Reason:        "definition has no conditions",
			})
			continue
		}

		all := true
		for _, cond := range def.Conditions {
			ok, skip := ev.evaluateCondition(cond, input)
			if skip != nil {
				skip.AchievementID = def.ID
				skipped = append(skipped, *skip)
			}
			if !ok {
				all = false
				break
			}
		}

		if all {
			satisfied = append(satisfied, def)
		}
	}

	return satisfied, skipped
}

// evaluateCondition вычисляет одно условие.
// Нераспознанный тип или оператор - fail-closed (false, с пометкой skip).
func (ev *Evaluator) evaluateCondition(cond Condition, input EvalInput) (bool, *SkippedCondition) {
	if cond.EffectiveTimeframe() == TimeframeQuarterly && !cond.Type.SupportsQuarterly() {
		return false, &SkippedCondition{
			Condition: cond,
			Reason:    "condition type has no quarterly counter",
		}
	}

	current, known := ev.currentValue(cond, input)
	if !known {
		return false, &SkippedCondition{
			Condition: cond,
			Reason:    "unknown condition type",
		}
	}

	switch cond.Operator {
	case OperatorGTE, OperatorGT, OperatorEQ, OperatorLT, OperatorLTE:
		return cond.Operator.Compare(current, cond.Target), nil
	default:
		return false, &SkippedCondition{
			Condition: cond,
			Reason:    "unknown operator",
		}
	}
}

// currentValue читает текущее значение показателя условия.
// Второй результат false означает нераспознанный тип условия.
func (ev *Evaluator) currentValue(cond Condition, input EvalInput) (int, bool) {
	avatar := input.Avatar
	tracker := input.Tracker

	switch cond.Type {
	case ConditionXPEarned:
		if avatar == nil {
			return 0, true
		}
		if cond.SkillID != "" {
			return int(avatar.SkillXP(cond.SkillID)), true
		}
		return int(avatar.TotalXP), true

	case ConditionLevelReached:
		if avatar == nil {
			return 1, true
		}
		if cond.SkillID != "" {
			skill, ok := avatar.Skill(cond.SkillID)
			if !ok {
				return 1, true
			}
			return int(skill.Level), true
		}
		return int(avatar.Level), true

	case ConditionConsecutiveDays:
		if tracker == nil {
			return 0, true
		}
		return tracker.Streak.Current, true

	case ConditionTrainingsCompleted:
		return counterValue(tracker, cond.EffectiveTimeframe(),
			func(t *progression.Tracker) int { return t.Quarterly.TrainingsCompleted },
			func(t *progression.Tracker) int { return t.Totals.TrainingsCompleted }), true

	case ConditionDaysPunctual:
		return counterValue(tracker, cond.EffectiveTimeframe(),
			func(t *progression.Tracker) int { return t.Quarterly.PunctualDays },
			func(t *progression.Tracker) int { return t.Totals.PunctualDays }), true

	case ConditionCoinsEarned:
		return counterValue(tracker, cond.EffectiveTimeframe(),
			func(t *progression.Tracker) int { return t.Quarterly.CoinsEarned },
			func(t *progression.Tracker) int { return t.Totals.CoinsEarned }), true

	case ConditionFeedbackGiven:
		return counterValue(tracker, cond.EffectiveTimeframe(),
			func(t *progression.Tracker) int { return t.Quarterly.FeedbackGiven },
			func(t *progression.Tracker) int { return t.Totals.FeedbackGiven }), true

	default:
		return 0, false
	}
}

// counterValue выбирает квартальный или пожизненный счётчик трекера.
func counterValue(
	tracker *progression.Tracker,
	timeframe Timeframe,
	quarterly func(*progression.Tracker) int,
	allTime func(*progression.Tracker) int,
) int {
	if tracker == nil {
		return 0
	}
	if timeframe == TimeframeQuarterly {
		return quarterly(tracker)
	}
	return allTime(tracker)
}
