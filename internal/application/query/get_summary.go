package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/browo-hub/progression-engine/internal/domain/achievement"
	"github.com/browo-hub/progression-engine/internal/domain/leaderboard"
	"github.com/browo-hub/progression-engine/internal/domain/progression"
	"github.com/browo-hub/progression-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET SUMMARY QUERY
// Сводка геймификации одного пользователя: аватар, серия, квартальная
// статистика, достижения и позиция в общем рейтинге. Собирается из
// нескольких источников; недоступный рейтинг не валит запрос.
// ══════════════════════════════════════════════════════════════════════════════

// GetSummaryQuery содержит параметры запроса сводки.
type GetSummaryQuery struct {
	// UserID - идентификатор пользователя.
	UserID string
}

// Validate проверяет корректность параметров запроса.
func (q *GetSummaryQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("get_summary: user_id is required")
	}
	return nil
}

// StreakDTO - DTO ежедневной серии.
type StreakDTO struct {
	// Current - текущая серия дней.
	Current int `json:"current"`

	// Longest - лучшая серия дней.
	Longest int `json:"longest"`

	// LastCheckin - время последней отметки.
	LastCheckin time.Time `json:"last_checkin"`
}

// QuarterlyStatsDTO - DTO квартальной статистики.
type QuarterlyStatsDTO struct {
	// Quarter - метка квартала ("2026-Q3").
	Quarter string `json:"quarter"`

	// CoinsEarned - монет заработано за квартал.
	CoinsEarned int `json:"coins_earned"`

	// TrainingsCompleted - обучений завершено за квартал.
	TrainingsCompleted int `json:"trainings_completed"`

	// PunctualDays - пунктуальных дней за квартал.
	PunctualDays int `json:"punctual_days"`

	// FeedbackGiven - обратной связи оставлено за квартал.
	FeedbackGiven int `json:"feedback_given"`
}

// SummaryDTO - сводка геймификации пользователя.
type SummaryDTO struct {
	// Avatar - агрегат с прогрессом уровней.
	Avatar *AvatarDTO `json:"avatar"`

	// Streak - ежедневная серия.
	Streak StreakDTO `json:"streak"`

	// Quarterly - статистика текущего квартала.
	Quarterly QuarterlyStatsDTO `json:"quarterly"`

	// UnlockedAchievements - количество разблокированных достижений.
	UnlockedAchievements int `json:"unlocked_achievements"`

	// TotalAchievements - количество видимых достижений каталога.
	TotalAchievements int `json:"total_achievements"`

	// Rank - позиция в общем рейтинге (0 = недоступно).
	Rank int `json:"rank,omitempty"`

	// LedgerEntries - количество записей пользователя в журнале XP.
	LedgerEntries int `json:"ledger_entries"`
}

// GetSummaryHandler обрабатывает запрос сводки.
type GetSummaryHandler struct {
	avatars  progression.AvatarRepository
	trackers progression.TrackerRepository
	ledger   progression.LedgerRepository
	catalog  achievement.CatalogSource
	unlocks  achievement.UnlockRepository
	cache    leaderboard.Cache
	curve    *progression.Curve
	logger   *slog.Logger
}

// NewGetSummaryHandler создаёт обработчик запроса сводки.
// Кэш рейтинга может быть nil: поле Rank тогда не заполняется.
func NewGetSummaryHandler(
	avatars progression.AvatarRepository,
	trackers progression.TrackerRepository,
	ledger progression.LedgerRepository,
	catalog achievement.CatalogSource,
	unlocks achievement.UnlockRepository,
	cache leaderboard.Cache,
	curve *progression.Curve,
	logger *slog.Logger,
) *GetSummaryHandler {
	if curve == nil {
		curve = progression.DefaultCurve()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GetSummaryHandler{
		avatars:  avatars,
		trackers: trackers,
		ledger:   ledger,
		catalog:  catalog,
		unlocks:  unlocks,
		cache:    cache,
		curve:    curve,
		logger:   logger,
	}
}

// Handle выполняет запрос сводки.
func (h *GetSummaryHandler) Handle(ctx context.Context, q GetSummaryQuery) (*SummaryDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	avatar, err := h.avatars.Get(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("get_summary: %w", err)
	}

	summary := &SummaryDTO{
		Avatar: buildAvatarDTO(avatar, h.curve),
	}

	tracker, err := h.trackers.Get(ctx, q.UserID)
	if err != nil && !shared.IsNotFound(err) {
		return nil, fmt.Errorf("get_summary: failed to load tracker: %w", err)
	}
	if tracker != nil {
		summary.Streak = StreakDTO{
			Current:     tracker.Streak.Current,
			Longest:     tracker.Streak.Longest,
			LastCheckin: tracker.Streak.LastCheckin,
		}
		summary.Quarterly = QuarterlyStatsDTO{
			Quarter:            tracker.Quarterly.Quarter,
			CoinsEarned:        tracker.Quarterly.CoinsEarned,
			TrainingsCompleted: tracker.Quarterly.TrainingsCompleted,
			PunctualDays:       tracker.Quarterly.PunctualDays,
			FeedbackGiven:      tracker.Quarterly.FeedbackGiven,
		}
	}

	if err := h.fillAchievements(ctx, q.UserID, summary); err != nil {
		return nil, err
	}

	count, err := h.ledger.CountByUser(ctx, q.UserID)
	if err != nil {
		h.logger.Warn("failed to count ledger entries", "user_id", q.UserID, "error", err)
	} else {
		summary.LedgerEntries = count
	}

	if h.cache != nil {
		rank, ok, err := h.cache.GetRank(ctx, leaderboard.ScopeOverall, q.UserID)
		if err != nil {
			h.logger.Warn("failed to read rank from cache", "user_id", q.UserID, "error", err)
		} else if ok {
			summary.Rank = int(rank)
		}
	}

	return summary, nil
}

// fillAchievements заполняет счётчики достижений сводки.
func (h *GetSummaryHandler) fillAchievements(ctx context.Context, userID string, summary *SummaryDTO) error {
	definitions, err := h.catalog.Definitions(ctx)
	if err != nil {
		return fmt.Errorf("get_summary: failed to load catalog: %w", err)
	}

	userUnlocks, err := h.unlocks.GetByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("get_summary: failed to load unlocks: %w", err)
	}

	unlocked := make(map[string]bool, len(userUnlocks))
	for _, u := range userUnlocks {
		unlocked[u.AchievementID] = true
	}

	for _, def := range definitions {
		if !def.IsActive {
			continue
		}
		if def.IsHidden && !unlocked[def.ID] {
			continue
		}
		summary.TotalAchievements++
		if unlocked[def.ID] {
			summary.UnlockedAchievements++
		}
	}

	return nil
}
