// Package progression содержит доменную модель прогрессии: кривую уровней,
// журнал XP-событий, агрегат аватара и трекер активности.
// Это ядро бизнес-логики - здесь нет внешних зависимостей.
package progression

import (
	"fmt"
	"sort"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// XP представляет очки опыта.
type XP int

// IsValid проверяет, что XP неотрицательный.
func (x XP) IsValid() bool {
	return x >= 0
}

// Add складывает XP.
func (x XP) Add(delta XP) XP {
	return x + delta
}

// Level представляет уровень, вычисляемый из XP.
type Level int

// IsValid проверяет, что уровень положительный (уровни начинаются с 1).
func (l Level) IsValid() bool {
	return l >= 1
}

// ══════════════════════════════════════════════════════════════════════════════
// LEVEL CURVE
// Детерминированная функция XP → уровень. Кривая прогрессивная:
// step(1) = base, step(n+1) = floor(step(n) * multiplier),
// threshold(1) = 0, threshold(n+1) = threshold(n) + step(n).
// После построения кривая неизменяема, поэтому безопасна для
// одновременного чтения из любого количества горутин.
// ══════════════════════════════════════════════════════════════════════════════

// DefaultCurveBase - базовый шаг кривой (XP для перехода с 1 на 2 уровень).
const DefaultCurveBase = 100

// DefaultCurveMultiplier - множитель роста шага между уровнями (+15%).
const DefaultCurveMultiplier = 1.15

// maxCurveLevel ограничивает таблицу порогов. Порог 200-го уровня превышает
// int64 на реалистичных параметрах кривой задолго до этой границы.
const maxCurveLevel = 200

// Curve вычисляет уровни из накопленного XP.
type Curve struct {
	base       int
	multiplier float64

	// thresholds[i] - накопительный порог уровня i+1 (thresholds[0] = 0).
	thresholds []XP
}

// Tier описывает один уровень кривой.
type Tier struct {
	// LevelNumber - номер уровня (с 1).
	LevelNumber Level

	// RequiredXP - накопительный порог входа в уровень.
	RequiredXP XP

	// Title - отображаемое звание уровня.
	Title string
}

// LevelProgress описывает положение внутри текущего уровня.
type LevelProgress struct {
	// Level - текущий уровень.
	Level Level

	// CurrentLevelXP - XP, заработанный внутри текущего уровня.
	CurrentLevelXP XP

	// NextLevelXP - XP, необходимый для перехода на следующий уровень.
	NextLevelXP XP

	// Percent - прогресс в процентах, ограничен [0, 100].
	Percent float64
}

// NewCurve создаёт кривую уровней с указанными параметрами.
// Невалидные параметры заменяются значениями по умолчанию.
// Множитель 1.0 допустим и даёт линейную кривую с постоянным шагом.
func NewCurve(base int, multiplier float64) *Curve {
	if base <= 0 {
		base = DefaultCurveBase
	}
	if multiplier < 1.0 {
		multiplier = DefaultCurveMultiplier
	}

	c := &Curve{
		base:       base,
		multiplier: multiplier,
		thresholds: make([]XP, maxCurveLevel),
	}

	step := base
	total := 0
	c.thresholds[0] = 0
	for i := 1; i < maxCurveLevel; i++ {
		total += step
		c.thresholds[i] = XP(total)
		step = int(float64(step) * multiplier)
	}

	return c
}

// DefaultCurve возвращает кривую с параметрами по умолчанию (100, 1.15).
func DefaultCurve() *Curve {
	return NewCurve(DefaultCurveBase, DefaultCurveMultiplier)
}

// LevelForXP возвращает наибольший уровень, порог которого не превышает xp.
// Для отрицательного xp возвращает 1.
func (c *Curve) LevelForXP(xp XP) Level {
	if xp < 0 {
		return 1
	}

	// Первый индекс с порогом строго выше xp; уровень равен этому индексу.
	idx := sort.Search(len(c.thresholds), func(i int) bool {
		return c.thresholds[i] > xp
	})

	return Level(idx)
}

// XPForLevel возвращает накопительный порог указанного уровня.
// Уровни меньше 1 трактуются как 1 (порог 0).
func (c *Curve) XPForLevel(level Level) XP {
	if level <= 1 {
		return 0
	}
	if int(level) > len(c.thresholds) {
		level = Level(len(c.thresholds))
	}
	return c.thresholds[level-1]
}

// Progress возвращает положение xp внутри текущего уровня.
func (c *Curve) Progress(xp XP) LevelProgress {
	if xp < 0 {
		xp = 0
	}

	level := c.LevelForXP(xp)
	levelStart := c.XPForLevel(level)
	nextStart := c.XPForLevel(level + 1)

	current := xp - levelStart
	required := nextStart - levelStart

	percent := 0.0
	if required > 0 {
		percent = float64(current) / float64(required) * 100.0
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	return LevelProgress{
		Level:          level,
		CurrentLevelXP: current,
		NextLevelXP:    required,
		Percent:        percent,
	}
}

// Tier возвращает описание уровня с порогом и званием.
func (c *Curve) Tier(level Level) Tier {
	return Tier{
		LevelNumber: level,
		RequiredXP:  c.XPForLevel(level),
		Title:       tierTitle(level),
	}
}

// Tiers возвращает первые n уровней кривой.
func (c *Curve) Tiers(n int) []Tier {
	if n <= 0 {
		return nil
	}
	if n > len(c.thresholds) {
		n = len(c.thresholds)
	}

	tiers := make([]Tier, 0, n)
	for i := 1; i <= n; i++ {
		tiers = append(tiers, c.Tier(Level(i)))
	}
	return tiers
}

// tierTitle возвращает звание для диапазона уровней.
func tierTitle(level Level) string {
	switch {
	case level < 5:
		return "Newcomer"
	case level < 10:
		return "Contributor"
	case level < 20:
		return "Professional"
	case level < 35:
		return "Expert"
	case level < 50:
		return "Veteran"
	default:
		return "Legend"
	}
}

// String возвращает строковое представление кривой для логирования.
func (c *Curve) String() string {
	return fmt.Sprintf("Curve{base: %d, multiplier: %.2f}", c.base, c.multiplier)
}
