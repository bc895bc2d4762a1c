package leaderboard

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// CACHE INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// Cache определяет контракт кэша рейтинга.
// Реализация находится в infrastructure слое (Redis sorted sets).
// Кэш опционален: при недоступности рейтинг строится из агрегатов.
type Cache interface {
	// UpdateScore обновляет строку пользователя в области рейтинга:
	// счёт в сортированном множестве и детали отображения (уровень, звание).
	UpdateScore(ctx context.Context, scope Scope, entry Entry) error

	// GetTop возвращает первые limit строк рейтинга из кэша.
	// Возвращает nil без ошибки, если область ещё не заполнена.
	GetTop(ctx context.Context, scope Scope, limit int) ([]Entry, error)

	// GetRank возвращает позицию пользователя в области рейтинга.
	// Второй результат false, если пользователь отсутствует в кэше.
	GetRank(ctx context.Context, scope Scope, userID string) (Rank, bool, error)

	// Invalidate сбрасывает кэш области рейтинга.
	Invalidate(ctx context.Context, scope Scope) error
}

// ══════════════════════════════════════════════════════════════════════════════
// SNAPSHOT
// ══════════════════════════════════════════════════════════════════════════════

// Snapshot - сохранённое состояние рейтинга для исторического анализа.
type Snapshot struct {
	ID          string
	Scope       Scope
	Entries     []Entry
	GeneratedAt time.Time
}

// SnapshotRepository определяет контракт хранения снапшотов рейтинга.
type SnapshotRepository interface {
	// Save сохраняет снапшот рейтинга.
	Save(ctx context.Context, snapshot *Snapshot) error

	// GetLatest возвращает последний снапшот области.
	GetLatest(ctx context.Context, scope Scope) (*Snapshot, error)
}
