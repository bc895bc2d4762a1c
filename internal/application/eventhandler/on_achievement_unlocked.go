package eventhandler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/browo-hub/progression-engine/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// NOTIFICATION RELAY
// Переводит доменные события в уведомления внешнего коллаборатора.
// Уведомления best-effort: сбой доставки логируется и не влияет
// на применение события.
// ═══════════════════════════════════════════════════════════════════════════

// Notifier - контракт внешней системы уведомлений.
type Notifier interface {
	// Notify отправляет уведомление пользователю.
	Notify(ctx context.Context, userID, kind, message string) error
}

// NotificationRelay пересылает события прогрессии в систему уведомлений.
type NotificationRelay struct {
	notifier Notifier
	logger   *slog.Logger
	timeout  time.Duration
}

// NewNotificationRelay создаёт реле уведомлений.
func NewNotificationRelay(notifier Notifier, logger *slog.Logger) *NotificationRelay {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationRelay{
		notifier: notifier,
		logger:   logger,
		timeout:  5 * time.Second,
	}
}

// Handle обрабатывает событие. Регистрируется на шине через SubscribeAll.
func (r *NotificationRelay) Handle(event shared.Event) error {
	kind, message := r.render(event)
	if message == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.notifier.Notify(ctx, event.AggregateID(), kind, message); err != nil {
		r.logger.Warn("failed to deliver notification",
			"event_type", event.EventType(),
			"user_id", event.AggregateID(),
			"error", err)
	}

	return nil
}

// AsEventHandler возвращает функцию-обработчик для подписки на шину.
func (r *NotificationRelay) AsEventHandler() shared.EventHandler {
	return r.Handle
}

// render собирает текст уведомления. Пустой текст означает,
// что событие не требует уведомления.
func (r *NotificationRelay) render(event shared.Event) (kind, message string) {
	switch e := event.(type) {
	case shared.LevelUpEvent:
		if e.IsSkillLevelUp() {
			return "skill_level_up", fmt.Sprintf("Dein Skill %s hat Level %d erreicht!", e.SkillID, e.NewLevel)
		}
		return "level_up", fmt.Sprintf("Du hast Level %d erreicht!", e.NewLevel)

	case shared.AchievementUnlockedEvent:
		return "achievement_unlocked", fmt.Sprintf("Achievement freigeschaltet: %s", e.AchievementName)

	case shared.TitleGrantedEvent:
		return "title_granted", fmt.Sprintf("Neuer Titel: %s", e.Title)

	case shared.StreakExtendedEvent:
		if e.IsNewRecord && e.CurrentStreak > 1 {
			return "streak_record", fmt.Sprintf("Neuer Streak-Rekord: %d Tage!", e.CurrentStreak)
		}
		return "", ""

	case shared.StreakBrokenEvent:
		if e.PreviousStreak >= 3 {
			return "streak_broken", fmt.Sprintf("Dein %d-Tage-Streak ist gerissen. Heute neu starten!", e.PreviousStreak)
		}
		return "", ""

	default:
		return "", ""
	}
}
