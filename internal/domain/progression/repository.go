package progression

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Эти интерфейсы определяют контракт для работы с хранилищем данных.
// Реализации находятся в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// LedgerRepository определяет операции append-only журнала XP-событий.
// Журнал - источник истины для всех производных сумм; записи никогда
// не изменяются и не удаляются.
type LedgerRepository interface {
	// Append добавляет запись в журнал.
	Append(ctx context.Context, event *XPEvent) error

	// GetByUser возвращает записи пользователя (от новых к старым).
	GetByUser(ctx context.Context, userID string, limit int) ([]*XPEvent, error)

	// GetByUserSince возвращает записи пользователя начиная с указанного времени.
	GetByUserSince(ctx context.Context, userID string, since time.Time) ([]*XPEvent, error)

	// CountByUser возвращает количество записей пользователя.
	CountByUser(ctx context.Context, userID string) (int, error)
}

// AvatarRepository определяет операции хранения агрегатов аватара.
type AvatarRepository interface {
	// Get возвращает агрегат пользователя.
	// Возвращает ошибку с shared.ErrNotFound, если агрегата нет.
	Get(ctx context.Context, userID string) (*Avatar, error)

	// Save сохраняет агрегат (create или update).
	Save(ctx context.Context, avatar *Avatar) error

	// GetAll возвращает все агрегаты (для лидерборда).
	GetAll(ctx context.Context) ([]*Avatar, error)

	// Count возвращает количество агрегатов.
	Count(ctx context.Context) (int, error)
}

// TrackerRepository определяет операции хранения трекеров активности.
type TrackerRepository interface {
	// Get возвращает трекер пользователя.
	// Возвращает ошибку с shared.ErrNotFound, если трекера нет.
	Get(ctx context.Context, userID string) (*Tracker, error)

	// Save сохраняет трекер (create или update).
	Save(ctx context.Context, tracker *Tracker) error
}
