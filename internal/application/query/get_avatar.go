// Package query contains read operations following CQRS pattern.
// Queries never modify state - they only read and return data.
// Each query is a self-contained use case with its own request/response types.
package query

import (
	"context"
	"fmt"
	"time"

	"github.com/browo-hub/progression-engine/internal/domain/progression"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET AVATAR QUERY
// Возвращает агрегат аватара с прогрессом уровня по каждому навыку.
// ══════════════════════════════════════════════════════════════════════════════

// GetAvatarQuery содержит параметры запроса аватара.
type GetAvatarQuery struct {
	// UserID - идентификатор пользователя.
	UserID string
}

// Validate проверяет корректность параметров запроса.
func (q *GetAvatarQuery) Validate() error {
	if q.UserID == "" {
		return fmt.Errorf("get_avatar: user_id is required")
	}
	return nil
}

// SkillDTO - DTO навыка с прогрессом уровня.
type SkillDTO struct {
	// ID - идентификатор навыка.
	ID string `json:"id"`

	// Name - отображаемое имя навыка.
	Name string `json:"name"`

	// Icon - иконка навыка.
	Icon string `json:"icon"`

	// Color - цвет навыка для интерфейса.
	Color string `json:"color"`

	// TotalXP - накопленный XP навыка.
	TotalXP int `json:"total_xp"`

	// Level - уровень навыка.
	Level int `json:"level"`

	// CurrentLevelXP - XP, набранный внутри текущего уровня.
	CurrentLevelXP int `json:"current_level_xp"`

	// NextLevelXP - XP, необходимый для следующего уровня.
	NextLevelXP int `json:"next_level_xp"`

	// Percent - прогресс к следующему уровню (0-100).
	Percent float64 `json:"percent"`
}

// AvatarDTO - DTO агрегата аватара.
type AvatarDTO struct {
	// UserID - идентификатор пользователя.
	UserID string `json:"user_id"`

	// TotalXP - суммарный XP.
	TotalXP int `json:"total_xp"`

	// Level - общий уровень.
	Level int `json:"level"`

	// TierTitle - звание уровневой группы.
	TierTitle string `json:"tier_title"`

	// Title - звание, выданное достижением (может быть пустым).
	Title string `json:"title,omitempty"`

	// CurrentLevelXP - XP внутри текущего уровня.
	CurrentLevelXP int `json:"current_level_xp"`

	// NextLevelXP - XP для следующего уровня.
	NextLevelXP int `json:"next_level_xp"`

	// Percent - прогресс к следующему уровню (0-100).
	Percent float64 `json:"percent"`

	// Skills - навыки с прогрессом.
	Skills []SkillDTO `json:"skills"`

	// LastActiveAt - время последней активности.
	LastActiveAt time.Time `json:"last_active_at"`
}

// GetAvatarHandler обрабатывает запрос аватара.
type GetAvatarHandler struct {
	avatars progression.AvatarRepository
	curve   *progression.Curve
}

// NewGetAvatarHandler создаёт обработчик запроса аватара.
func NewGetAvatarHandler(avatars progression.AvatarRepository, curve *progression.Curve) *GetAvatarHandler {
	if curve == nil {
		curve = progression.DefaultCurve()
	}
	return &GetAvatarHandler{avatars: avatars, curve: curve}
}

// Handle выполняет запрос аватара.
func (h *GetAvatarHandler) Handle(ctx context.Context, q GetAvatarQuery) (*AvatarDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	avatar, err := h.avatars.Get(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("get_avatar: %w", err)
	}

	return buildAvatarDTO(avatar, h.curve), nil
}

// buildAvatarDTO собирает DTO аватара с прогрессом уровней.
func buildAvatarDTO(avatar *progression.Avatar, curve *progression.Curve) *AvatarDTO {
	progress := avatar.Progress(curve)
	defs := skillDefinitionIndex()

	dto := &AvatarDTO{
		UserID:         avatar.UserID,
		TotalXP:        int(avatar.TotalXP),
		Level:          int(avatar.Level),
		TierTitle:      curve.Tier(avatar.Level).Title,
		Title:          avatar.Title,
		CurrentLevelXP: int(progress.CurrentLevelXP),
		NextLevelXP:    int(progress.NextLevelXP),
		Percent:        progress.Percent,
		Skills:         make([]SkillDTO, 0, len(avatar.Skills)),
		LastActiveAt:   avatar.LastActiveAt,
	}

	for _, skill := range avatar.Skills {
		sp, _ := avatar.SkillProgress(skill.ID, curve)
		sd := SkillDTO{
			ID:             string(skill.ID),
			TotalXP:        int(skill.TotalXP),
			Level:          int(skill.Level),
			CurrentLevelXP: int(sp.CurrentLevelXP),
			NextLevelXP:    int(sp.NextLevelXP),
			Percent:        sp.Percent,
		}
		if def, ok := defs[skill.ID]; ok {
			sd.Name = def.Name
			sd.Icon = def.Icon
			sd.Color = def.Color
		}
		dto.Skills = append(dto.Skills, sd)
	}

	return dto
}

// skillDefinitionIndex индексирует определения навыков по идентификатору.
func skillDefinitionIndex() map[progression.SkillID]progression.SkillDefinition {
	defs := progression.DefaultSkillDefinitions()
	index := make(map[progression.SkillID]progression.SkillDefinition, len(defs))
	for _, def := range defs {
		index[def.ID] = def
	}
	return index
}
