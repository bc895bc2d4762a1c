package progression

import (
	"time"

	"github.com/browo-hub/progression-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// DAILY STREAK (Серия ежедневных входов)
// ══════════════════════════════════════════════════════════════════════════════

// DailyStreak представляет серию последовательных дней с отметкой входа.
type DailyStreak struct {
	// Current - текущая серия дней.
	Current int

	// Longest - лучшая серия дней.
	Longest int

	// LastCheckin - время последней засчитанной отметки.
	LastCheckin time.Time
}

// StreakOutcome описывает результат применения отметки к серии.
type StreakOutcome int

const (
	// StreakUnchanged - повторная отметка в тот же день, серия не изменилась.
	StreakUnchanged StreakOutcome = iota
	// StreakStarted - первая отметка, серия начата с 1.
	StreakStarted
	// StreakExtended - отметка на следующий день, серия продлена.
	StreakExtended
	// StreakReset - пропущены дни, серия сброшена до 1.
	StreakReset
)

// Checkin применяет отметку входа к серии.
// Повторная отметка в тот же календарный день - no-op (идемпотентность).
// Отметка ровно на следующий день продлевает серию; больший разрыв
// сбрасывает её до 1. LastCheckin всегда сдвигается к более позднему времени.
func (s *DailyStreak) Checkin(at time.Time) StreakOutcome {
	if s.LastCheckin.IsZero() {
		s.Current = 1
		if s.Longest < 1 {
			s.Longest = 1
		}
		s.LastCheckin = at
		return StreakStarted
	}

	if timeutil.SameDay(s.LastCheckin, at) {
		if at.After(s.LastCheckin) {
			s.LastCheckin = at
		}
		return StreakUnchanged
	}

	outcome := StreakReset
	if timeutil.IsNextDay(s.LastCheckin, at) {
		s.Current++
		outcome = StreakExtended
	} else {
		s.Current = 1
	}

	if s.Current > s.Longest {
		s.Longest = s.Current
	}

	if at.After(s.LastCheckin) {
		s.LastCheckin = at
	}

	return outcome
}

// DaysMissed возвращает количество пропущенных дней перед отметкой at.
func (s *DailyStreak) DaysMissed(at time.Time) int {
	if s.LastCheckin.IsZero() {
		return 0
	}
	missed := timeutil.DaysBetween(s.LastCheckin, at) - 1
	if missed < 0 {
		return 0
	}
	return missed
}

// ══════════════════════════════════════════════════════════════════════════════
// QUARTERLY STATS (Квартальные счётчики)
// ══════════════════════════════════════════════════════════════════════════════

// QuarterlyStats - счётчики активности за текущий квартал.
// При смене квартала ("YYYY-Qn") все счётчики начинаются заново:
// первое событие нового квартала учитывает только собственный вклад.
type QuarterlyStats struct {
	// Quarter - метка отслеживаемого квартала, например "2024-Q1".
	Quarter string

	// CoinsEarned - монет заработано за квартал.
	CoinsEarned int

	// TrainingsCompleted - обучений завершено за квартал.
	TrainingsCompleted int

	// PunctualDays - пунктуальных дней за квартал.
	PunctualDays int

	// FeedbackGiven - обратной связи оставлено за квартал.
	FeedbackGiven int
}

// Apply применяет событие к квартальным счётчикам.
// Возвращает метку предыдущего квартала, если произошёл переход.
func (q *QuarterlyStats) Apply(eventType EventType, value int, at time.Time) (rolledFrom string) {
	current := timeutil.Quarter(at)

	if q.Quarter != current {
		rolledFrom = q.Quarter
		*q = QuarterlyStats{Quarter: current}
	}

	switch eventType {
	case EventCoinsEarned:
		q.CoinsEarned += value
	case EventTrainingCompleted:
		q.TrainingsCompleted += value
	case EventPunctualCheckin:
		q.PunctualDays += value
	case EventFeedbackGiven:
		q.FeedbackGiven += value
	}

	return rolledFrom
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS TRACKER
// Скользящие агрегаты пользователя, не выводимые из сырого XP:
// ежедневная серия и квартальные счётчики. Основной вход для условий
// достижений с таймфреймами.
// ══════════════════════════════════════════════════════════════════════════════

// Tracker - трекер активности одного пользователя.
type Tracker struct {
	// UserID - идентификатор пользователя.
	UserID string

	// Streak - ежедневная серия входов.
	Streak DailyStreak

	// Quarterly - счётчики текущего квартала.
	Quarterly QuarterlyStats

	// Totals - счётчики за всё время по типам событий.
	Totals LifetimeTotals

	// UpdatedAt - время последнего обновления.
	UpdatedAt time.Time
}

// LifetimeTotals - счётчики активности за всё время.
type LifetimeTotals struct {
	CoinsEarned        int
	TrainingsCompleted int
	PunctualDays       int
	FeedbackGiven      int
}

// apply применяет событие к счётчикам за всё время.
func (t *LifetimeTotals) apply(eventType EventType, value int) {
	switch eventType {
	case EventCoinsEarned:
		t.CoinsEarned += value
	case EventTrainingCompleted:
		t.TrainingsCompleted += value
	case EventPunctualCheckin:
		t.PunctualDays += value
	case EventFeedbackGiven:
		t.FeedbackGiven += value
	}
}

// NewTracker создаёт трекер для пользователя с пустыми счётчиками.
func NewTracker(userID string, now time.Time) (*Tracker, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}

	if now.IsZero() {
		now = time.Now().UTC()
	}

	return &Tracker{
		UserID:    userID,
		Quarterly: QuarterlyStats{Quarter: timeutil.Quarter(now)},
		UpdatedAt: now,
	}, nil
}

// ActivityOutcome описывает, что изменилось при записи активности.
type ActivityOutcome struct {
	// StreakOutcome - результат применения к серии (для daily_login).
	StreakOutcome StreakOutcome

	// StreakTouched - true, если событие участвовало в серии.
	StreakTouched bool

	// DaysMissed - пропущено дней перед сбросом серии.
	DaysMissed int

	// PreviousStreak - серия до сброса (для события streak_broken).
	PreviousStreak int

	// QuarterRolledFrom - метка предыдущего квартала при переходе.
	QuarterRolledFrom string
}

// RecordActivity записывает активность в трекер: квартальные счётчики,
// счётчики за всё время и, для daily_login, ежедневную серию.
func (t *Tracker) RecordActivity(eventType EventType, value int, at time.Time) ActivityOutcome {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	var outcome ActivityOutcome

	outcome.QuarterRolledFrom = t.Quarterly.Apply(eventType, value, at)
	t.Totals.apply(eventType, value)

	if eventType.AffectsStreak() {
		outcome.StreakTouched = true
		outcome.PreviousStreak = t.Streak.Current
		outcome.DaysMissed = t.Streak.DaysMissed(at)
		outcome.StreakOutcome = t.Streak.Checkin(at)
	}

	t.UpdatedAt = at

	return outcome
}

// Clone создаёт глубокую копию трекера.
func (t *Tracker) Clone() *Tracker {
	if t == nil {
		return nil
	}
	clone := *t
	return &clone
}
