// Package leaderboard содержит доменную модель рейтинга прогрессии.
// Рейтинг упорядочивает пользователей по накопленному опыту: либо по общему
// XP агрегата, либо по XP отдельного навыка. Порядок детерминирован:
// при равном XP выше тот, чей идентификатор лексикографически меньше.
package leaderboard

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/browo-hub/progression-engine/internal/domain/progression"
)

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrInvalidLimit возвращается при неположительном лимите выборки.
	ErrInvalidLimit = errors.New("leaderboard limit must be positive")

	// ErrEmptyBoard возвращается при построении рейтинга без участников.
	ErrEmptyBoard = errors.New("leaderboard has no participants")
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Rank представляет позицию пользователя в рейтинге.
// Rank начинается с 1 (первое место).
type Rank int

// IsValid проверяет, что ранг положительный.
func (r Rank) IsValid() bool {
	return r > 0
}

// IsTop3 возвращает true, если пользователь на пьедестале.
func (r Rank) IsTop3() bool {
	return r >= 1 && r <= 3
}

// IsTop10 возвращает true, если пользователь в топ-10.
func (r Rank) IsTop10() bool {
	return r >= 1 && r <= 10
}

// String возвращает строковое представление ранга.
func (r Rank) String() string {
	return fmt.Sprintf("#%d", r)
}

// Scope определяет показатель, по которому строится рейтинг.
// Пустой SkillID означает общий рейтинг по суммарному XP.
type Scope struct {
	SkillID progression.SkillID
}

// ScopeOverall - общий рейтинг по суммарному XP агрегата.
var ScopeOverall = Scope{}

// ScopeSkill возвращает рейтинг по XP указанного навыка.
func ScopeSkill(skillID progression.SkillID) Scope {
	return Scope{SkillID: skillID}
}

// IsOverall возвращает true для общего рейтинга.
func (s Scope) IsOverall() bool {
	return s.SkillID == ""
}

// String возвращает ключ области для кэша и логирования.
func (s Scope) String() string {
	if s.IsOverall() {
		return "overall"
	}
	return "skill:" + string(s.SkillID)
}

// ══════════════════════════════════════════════════════════════════════════════
// ENTRY
// ══════════════════════════════════════════════════════════════════════════════

// Entry представляет одну строку рейтинга.
type Entry struct {
	// Rank - позиция в рейтинге, начиная с 1.
	Rank Rank

	// UserID - идентификатор пользователя.
	UserID string

	// Level - уровень пользователя в области рейтинга.
	Level progression.Level

	// XP - опыт пользователя в области рейтинга.
	XP progression.XP

	// Title - текущий титул пользователя (может быть пустым).
	Title string
}

// String возвращает строковое представление строки для логирования.
func (e Entry) String() string {
	return fmt.Sprintf("%s %s (lvl %d, %d xp)", e.Rank, e.UserID, e.Level, e.XP)
}

// ══════════════════════════════════════════════════════════════════════════════
// BOARD
// ══════════════════════════════════════════════════════════════════════════════

// Board представляет построенный рейтинг на момент времени.
type Board struct {
	// Scope - область рейтинга.
	Scope Scope

	// Entries - строки рейтинга в порядке убывания XP.
	Entries []Entry

	// Total - общее число участников до усечения по лимиту.
	Total int

	// GeneratedAt - момент построения рейтинга.
	GeneratedAt time.Time
}

// EntryFor строит строку рейтинга из агрегата без присвоения ранга.
// Пользователи без XP в области навыка получают нулевое значение.
func EntryFor(avatar *progression.Avatar, scope Scope) Entry {
	entry := Entry{
		UserID: avatar.UserID,
		Title:  avatar.Title,
	}
	if scope.IsOverall() {
		entry.XP = avatar.TotalXP
		entry.Level = avatar.Level
		return entry
	}
	if skill, ok := avatar.Skill(scope.SkillID); ok {
		entry.XP = skill.TotalXP
		entry.Level = skill.Level
	} else {
		entry.Level = 1
	}
	return entry
}

// Build строит рейтинг из агрегатов пользователей.
// Порядок: XP по убыванию, при равенстве - идентификатор по возрастанию.
func Build(avatars []*progression.Avatar, scope Scope, limit int, now time.Time) (*Board, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	entries := make([]Entry, 0, len(avatars))
	for _, avatar := range avatars {
		if avatar == nil {
			continue
		}
		entries = append(entries, EntryFor(avatar, scope))
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].XP != entries[j].XP {
			return entries[i].XP > entries[j].XP
		}
		return entries[i].UserID < entries[j].UserID
	})

	total := len(entries)
	if len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = Rank(i + 1)
	}

	return &Board{
		Scope:       scope,
		Entries:     entries,
		Total:       total,
		GeneratedAt: now,
	}, nil
}

// RankOf возвращает позицию пользователя в рейтинге.
// Второй результат false, если пользователь не попал в выборку.
func (b *Board) RankOf(userID string) (Rank, bool) {
	for _, entry := range b.Entries {
		if entry.UserID == userID {
			return entry.Rank, true
		}
	}
	return 0, false
}

// Top возвращает первые n строк рейтинга.
func (b *Board) Top(n int) []Entry {
	if n <= 0 || len(b.Entries) == 0 {
		return nil
	}
	if n > len(b.Entries) {
		n = len(b.Entries)
	}
	out := make([]Entry, n)
	copy(out, b.Entries[:n])
	return out
}

// IsEmpty возвращает true, если рейтинг пуст.
func (b *Board) IsEmpty() bool {
	return len(b.Entries) == 0
}
