// Package eventhandler содержит обработчики доменных событий.
// Обработчики связывают части системы через асинхронные события:
// обновляют кэш рейтинга и передают уведомления внешним коллабораторам.
package eventhandler

import (
	"context"
	"log/slog"
	"time"

	"github.com/browo-hub/progression-engine/internal/domain/leaderboard"
	"github.com/browo-hub/progression-engine/internal/domain/progression"
	"github.com/browo-hub/progression-engine/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON XP GRANTED HANDLER
// Обновляет кэш рейтинга при каждом начислении XP: общий счёт пользователя
// и счёт в области навыка, которому начислен XP.
// ═══════════════════════════════════════════════════════════════════════════

// OnXPGrantedHandler обрабатывает событие начисления XP.
type OnXPGrantedHandler struct {
	avatars progression.AvatarRepository
	cache   leaderboard.Cache
	curve   *progression.Curve
	logger  *slog.Logger

	// timeout ограничивает время одного обновления кэша.
	timeout time.Duration
}

// NewOnXPGrantedHandler создаёт обработчик начисления XP.
func NewOnXPGrantedHandler(
	avatars progression.AvatarRepository,
	cache leaderboard.Cache,
	curve *progression.Curve,
	logger *slog.Logger,
) *OnXPGrantedHandler {
	if curve == nil {
		curve = progression.DefaultCurve()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OnXPGrantedHandler{
		avatars: avatars,
		cache:   cache,
		curve:   curve,
		logger:  logger,
		timeout: 5 * time.Second,
	}
}

// Handle обрабатывает событие. Регистрируется на шине через AsEventHandler.
func (h *OnXPGrantedHandler) Handle(event shared.Event) error {
	granted, ok := event.(shared.XPGrantedEvent)
	if !ok {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	userID := granted.AggregateID()

	// Агрегат сохраняется до публикации события, поэтому уровень и звание
	// читаются из него. Если агрегат недоступен, общий счёт обновляется
	// с уровнем, выведенным из кривой, а область навыка пропускается.
	avatar, avatarErr := h.avatars.Get(ctx, userID)
	if avatarErr != nil {
		h.logger.Warn("failed to load avatar for ranking details",
			"user_id", userID, "error", avatarErr)
	}

	overall := leaderboard.Entry{
		UserID: userID,
		XP:     progression.XP(granted.NewTotal),
		Level:  h.curve.LevelForXP(progression.XP(granted.NewTotal)),
	}
	if avatar != nil {
		overall.Title = avatar.Title
	}

	if err := h.cache.UpdateScore(ctx, leaderboard.ScopeOverall, overall); err != nil {
		h.logger.Warn("failed to update overall ranking",
			"user_id", userID, "error", err)
		return nil
	}

	if granted.SkillID != "" && avatar != nil {
		scope := leaderboard.ScopeSkill(progression.SkillID(granted.SkillID))
		if err := h.cache.UpdateScore(ctx, scope, leaderboard.EntryFor(avatar, scope)); err != nil {
			h.logger.Warn("failed to update skill ranking",
				"user_id", userID, "skill_id", granted.SkillID, "error", err)
		}
	}

	return nil
}

// AsEventHandler возвращает функцию-обработчик для подписки на шину.
func (h *OnXPGrantedHandler) AsEventHandler() shared.EventHandler {
	return h.Handle
}
