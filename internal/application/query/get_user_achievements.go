package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/browo-hub/progression-engine/internal/domain/achievement"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET USER ACHIEVEMENTS QUERY
// Возвращает каталог достижений со статусом разблокировки пользователя.
// Скрытые достижения показываются только после разблокировки.
// ══════════════════════════════════════════════════════════════════════════════

// GetUserAchievementsQuery содержит параметры запроса достижений.
type GetUserAchievementsQuery struct {
	// UserID - идентификатор пользователя.
	UserID string

	// OnlyUnlocked - возвращать только разблокированные достижения.
	OnlyUnlocked bool

	// Category - фильтр по категории (пустая строка = все категории).
	Category string
}

// Validate проверяет корректность параметров запроса.
func (q *GetUserAchievementsQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("get_user_achievements: user_id is required")
	}
	return nil
}

// AchievementDTO - DTO достижения со статусом разблокировки.
type AchievementDTO struct {
	// ID - идентификатор достижения.
	ID string `json:"id"`

	// Name - отображаемое имя.
	Name string `json:"name"`

	// Description - описание условий.
	Description string `json:"description"`

	// Icon - иконка достижения.
	Icon string `json:"icon"`

	// Category - категория достижения.
	Category string `json:"category"`

	// Rarity - редкость достижения.
	Rarity string `json:"rarity"`

	// Unlocked - разблокировано ли достижение пользователем.
	Unlocked bool `json:"unlocked"`

	// UnlockedAt - время разблокировки (nil, если не разблокировано).
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
}

// GetUserAchievementsResult содержит результат запроса достижений.
type GetUserAchievementsResult struct {
	// Achievements - достижения со статусом.
	Achievements []AchievementDTO `json:"achievements"`

	// UnlockedCount - количество разблокированных.
	UnlockedCount int `json:"unlocked_count"`

	// TotalCount - количество видимых достижений каталога.
	TotalCount int `json:"total_count"`
}

// GetUserAchievementsHandler обрабатывает запрос достижений.
type GetUserAchievementsHandler struct {
	catalog achievement.CatalogSource
	unlocks achievement.UnlockRepository
}

// NewGetUserAchievementsHandler создаёт обработчик запроса достижений.
func NewGetUserAchievementsHandler(
	catalog achievement.CatalogSource,
	unlocks achievement.UnlockRepository,
) *GetUserAchievementsHandler {
	return &GetUserAchievementsHandler{catalog: catalog, unlocks: unlocks}
}

// Handle выполняет запрос достижений.
func (h *GetUserAchievementsHandler) Handle(ctx context.Context, q GetUserAchievementsQuery) (*GetUserAchievementsResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	definitions, err := h.catalog.Definitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("get_user_achievements: failed to load catalog: %w", err)
	}

	userUnlocks, err := h.unlocks.GetByUser(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("get_user_achievements: failed to load unlocks: %w", err)
	}

	unlockedAt := make(map[string]time.Time, len(userUnlocks))
	for _, u := range userUnlocks {
		unlockedAt[u.AchievementID] = u.UnlockedAt
	}

	result := &GetUserAchievementsResult{
		Achievements: make([]AchievementDTO, 0, len(definitions)),
	}

	for _, def := range definitions {
		if !def.IsActive {
			continue
		}
		if q.Category != "" && string(def.Category) != q.Category {
			continue
		}

		at, unlocked := unlockedAt[def.ID]
		if def.IsHidden && !unlocked {
			continue
		}
		if q.OnlyUnlocked && !unlocked {
			continue
		}

		dto := AchievementDTO{
			ID:          def.ID,
			Name:        def.Name,
			Description: def.Description,
			Icon:        def.Icon,
			Category:    string(def.Category),
			Rarity:      string(def.Rarity),
			Unlocked:    unlocked,
		}
		if unlocked {
			t := at
			dto.UnlockedAt = &t
			result.UnlockedCount++
		}

		result.Achievements = append(result.Achievements, dto)
		result.TotalCount++
	}

	return result, nil
}
