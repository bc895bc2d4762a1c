package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/browo-hub/progression-engine/internal/domain/progression"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET XP HISTORY QUERY
// Возвращает журнал начислений XP пользователя от новых к старым.
// ══════════════════════════════════════════════════════════════════════════════

// GetXPHistoryQuery содержит параметры запроса журнала.
type GetXPHistoryQuery struct {
	// UserID - идентификатор пользователя.
	UserID string

	// Limit - количество записей (по умолчанию 50, максимум 500).
	Limit int

	// Since - если задано, возвращаются записи начиная с этого времени.
	Since time.Time
}

// Validate проверяет корректность параметров запроса.
func (q *GetXPHistoryQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("get_xp_history: user_id is required")
	}
	if q.Limit < 0 {
		return errors.New("get_xp_history: limit cannot be negative")
	}
	if q.Limit == 0 {
		q.Limit = 50
	}
	if q.Limit > 500 {
		q.Limit = 500
	}
	return nil
}

// XPEntryDTO - DTO записи журнала.
type XPEntryDTO struct {
	// ID - идентификатор записи.
	ID string `json:"id"`

	// Type - тип активности.
	Type string `json:"type"`

	// SkillID - навык, которому начислен XP (пусто = только общий).
	SkillID string `json:"skill_id,omitempty"`

	// Amount - количество XP.
	Amount int `json:"amount"`

	// Description - описание начисления.
	Description string `json:"description,omitempty"`

	// CreatedAt - время записи.
	CreatedAt time.Time `json:"created_at"`
}

// GetXPHistoryResult содержит результат запроса журнала.
type GetXPHistoryResult struct {
	// Entries - записи журнала от новых к старым.
	Entries []XPEntryDTO `json:"entries"`

	// TotalCount - общее количество записей пользователя.
	TotalCount int `json:"total_count"`
}

// GetXPHistoryHandler обрабатывает запрос журнала.
type GetXPHistoryHandler struct {
	ledger progression.LedgerRepository
}

// NewGetXPHistoryHandler создаёт обработчик запроса журнала.
func NewGetXPHistoryHandler(ledger progression.LedgerRepository) *GetXPHistoryHandler {
	return &GetXPHistoryHandler{ledger: ledger}
}

// Handle выполняет запрос журнала.
func (h *GetXPHistoryHandler) Handle(ctx context.Context, q GetXPHistoryQuery) (*GetXPHistoryResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	var (
		events []*progression.XPEvent
		err    error
	)
	if q.Since.IsZero() {
		events, err = h.ledger.GetByUser(ctx, q.UserID, q.Limit)
	} else {
		events, err = h.ledger.GetByUserSince(ctx, q.UserID, q.Since)
	}
	if err != nil {
		return nil, fmt.Errorf("get_xp_history: %w", err)
	}
	if len(events) > q.Limit {
		events = events[:q.Limit]
	}

	total, err := h.ledger.CountByUser(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("get_xp_history: %w", err)
	}

	result := &GetXPHistoryResult{
		Entries:    make([]XPEntryDTO, 0, len(events)),
		TotalCount: total,
	}
	for _, e := range events {
		result.Entries = append(result.Entries, XPEntryDTO{
			ID:          string(e.ID),
			Type:        string(e.Type),
			SkillID:     e.SkillID,
			Amount:      int(e.Amount),
			Description: e.Description,
			CreatedAt:   e.CreatedAt,
		})
	}

	return result, nil
}
