package progression

import (
	"fmt"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// SKILLS
// ══════════════════════════════════════════════════════════════════════════════

// SkillID представляет идентификатор навыка.
type SkillID string

const (
	// SkillKnowledge - знания, прокачиваются обучением.
	SkillKnowledge SkillID = "knowledge"
	// SkillLoyalty - лояльность, прокачивается регулярной активностью.
	SkillLoyalty SkillID = "loyalty"
	// SkillHustle - инициативность, прокачивается заработком монет.
	SkillHustle SkillID = "hustle"
)

// SkillDefinition описывает навык каталога (отображаемые метаданные).
type SkillDefinition struct {
	ID          SkillID
	Name        string
	Description string
	Icon        string
	Color       string
}

// DefaultSkillDefinitions возвращает стандартный набор навыков.
func DefaultSkillDefinitions() []SkillDefinition {
	return []SkillDefinition{
		{SkillKnowledge, "Wissen", "Durch Schulungen und Lernen erworbenes Wissen", "🎓", "#3B82F6"},
		{SkillLoyalty, "Loyalität", "Treue und regelmäßige Aktivität im Unternehmen", "🔁", "#10B981"},
		{SkillHustle, "Hustle", "Engagement und Initiative durch Coins", "💪", "#F59E0B"},
	}
}

// DefaultSkillForEventType возвращает навык по умолчанию для типа события.
// Возвращает пустой SkillID, если навык по умолчанию не определён.
func DefaultSkillForEventType(t EventType) SkillID {
	switch t {
	case EventTrainingCompleted:
		return SkillKnowledge
	case EventPunctualCheckin, EventFeedbackGiven, EventDailyLogin:
		return SkillLoyalty
	case EventCoinsEarned:
		return SkillHustle
	default:
		return ""
	}
}

// Skill представляет трек прокачки навыка внутри агрегата.
type Skill struct {
	// ID - идентификатор навыка.
	ID SkillID

	// TotalXP - накопленный XP навыка (монотонно неубывающий).
	TotalXP XP

	// Level - уровень навыка, кешируется для отображения.
	// Источник истины - TotalXP и кривая уровней.
	Level Level
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN AGGREGATE: AVATAR
// Проекция журнала XP на одного пользователя: общий XP/уровень и навыки.
// Агрегат создаётся лениво при первом событии и мутируется только ядром
// под пользовательской блокировкой.
// ══════════════════════════════════════════════════════════════════════════════

// Avatar - агрегат прогрессии одного пользователя.
type Avatar struct {
	// UserID - идентификатор пользователя.
	UserID string

	// TotalXP - суммарный XP всех событий пользователя.
	TotalXP XP

	// Level - общий уровень, вычисляется из TotalXP.
	Level Level

	// Title - звание, присвоенное наградой достижения (опционально).
	Title string

	// Skills - навыки в порядке каталога.
	Skills []Skill

	// LastActiveAt - время последнего начисления XP.
	LastActiveAt time.Time

	// CreatedAt - время создания агрегата.
	CreatedAt time.Time

	// UpdatedAt - время последнего обновления.
	UpdatedAt time.Time
}

// NewAvatar создаёт агрегат с навыками каталога, инициализированными нулём.
func NewAvatar(userID string, skills []SkillDefinition, now time.Time) (*Avatar, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}

	if now.IsZero() {
		now = time.Now().UTC()
	}

	avatarSkills := make([]Skill, 0, len(skills))
	for _, def := range skills {
		avatarSkills = append(avatarSkills, Skill{
			ID:      def.ID,
			TotalXP: 0,
			Level:   1,
		})
	}

	return &Avatar{
		UserID:       userID,
		TotalXP:      0,
		Level:        1,
		Skills:       avatarSkills,
		LastActiveAt: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN METHODS (Business Logic)
// ══════════════════════════════════════════════════════════════════════════════

// LevelUp описывает повышение уровня, произошедшее при начислении XP.
// SkillID пустой для общего уровня аватара.
type LevelUp struct {
	SkillID  SkillID
	OldLevel Level
	NewLevel Level
}

// ApplyXP начисляет XP агрегату: общий счётчик всегда, навык - если указан.
// Уровни пересчитываются через кривую; возвращаются все повышения уровня.
// Навык, отсутствующий в агрегате, добавляется с нуля (каталог мог
// расшириться после создания агрегата).
func (a *Avatar) ApplyXP(skillID SkillID, amount XP, curve *Curve, now time.Time) ([]LevelUp, error) {
	if amount <= 0 {
		return nil, ErrNonPositiveAmount
	}

	if now.IsZero() {
		now = time.Now().UTC()
	}

	var levelUps []LevelUp

	// Общий XP и уровень.
	oldLevel := a.Level
	a.TotalXP = a.TotalXP.Add(amount)
	a.Level = curve.LevelForXP(a.TotalXP)
	if a.Level > oldLevel {
		levelUps = append(levelUps, LevelUp{
			OldLevel: oldLevel,
			NewLevel: a.Level,
		})
	}

	// Навык, если указан. Навыковый XP учитывается независимо:
	// событие с навыком входит в общий счёт, но не наоборот.
	if skillID != "" {
		idx := a.skillIndex(skillID)
		if idx < 0 {
			a.Skills = append(a.Skills, Skill{ID: skillID, TotalXP: 0, Level: 1})
			idx = len(a.Skills) - 1
		}

		skill := &a.Skills[idx]
		oldSkillLevel := skill.Level
		skill.TotalXP = skill.TotalXP.Add(amount)
		skill.Level = curve.LevelForXP(skill.TotalXP)
		if skill.Level > oldSkillLevel {
			levelUps = append(levelUps, LevelUp{
				SkillID:  skillID,
				OldLevel: oldSkillLevel,
				NewLevel: skill.Level,
			})
		}
	}

	a.LastActiveAt = now
	a.UpdatedAt = now

	return levelUps, nil
}

// Skill возвращает навык агрегата по идентификатору.
func (a *Avatar) Skill(skillID SkillID) (Skill, bool) {
	idx := a.skillIndex(skillID)
	if idx < 0 {
		return Skill{}, false
	}
	return a.Skills[idx], true
}

// SkillXP возвращает накопленный XP навыка (0, если навык не найден).
func (a *Avatar) SkillXP(skillID SkillID) XP {
	skill, ok := a.Skill(skillID)
	if !ok {
		return 0
	}
	return skill.TotalXP
}

// GrantTitle присваивает звание (награда достижения).
func (a *Avatar) GrantTitle(title string, now time.Time) {
	if title == "" {
		return
	}
	a.Title = title
	a.UpdatedAt = now
}

// Progress возвращает положение общего XP внутри текущего уровня.
func (a *Avatar) Progress(curve *Curve) LevelProgress {
	return curve.Progress(a.TotalXP)
}

// SkillProgress возвращает положение XP навыка внутри его уровня.
func (a *Avatar) SkillProgress(skillID SkillID, curve *Curve) (LevelProgress, bool) {
	skill, ok := a.Skill(skillID)
	if !ok {
		return LevelProgress{}, false
	}
	return curve.Progress(skill.TotalXP), true
}

// skillIndex возвращает индекс навыка или -1.
func (a *Avatar) skillIndex(skillID SkillID) int {
	for i := range a.Skills {
		if a.Skills[i].ID == skillID {
			return i
		}
	}
	return -1
}

// String возвращает строковое представление агрегата для логирования.
func (a *Avatar) String() string {
	return fmt.Sprintf("Avatar{User: %s, XP: %d, Level: %d, Skills: %d}",
		a.UserID, a.TotalXP, a.Level, len(a.Skills))
}

// Clone создаёт глубокую копию агрегата.
func (a *Avatar) Clone() *Avatar {
	if a == nil {
		return nil
	}

	clone := *a
	clone.Skills = make([]Skill, len(a.Skills))
	copy(clone.Skills, a.Skills)
	return &clone
}
