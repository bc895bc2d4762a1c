package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/browo-hub/progression-engine/internal/domain/leaderboard"
	"github.com/browo-hub/progression-engine/internal/domain/progression"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEADERBOARD QUERY
// Возвращает топ-N пользователей по общему XP или по XP навыка.
// Сначала читает кэш (Redis sorted sets); при промахе или недоступности
// кэша строит рейтинг из агрегатов и прогревает кэш.
// ══════════════════════════════════════════════════════════════════════════════

// GetLeaderboardQuery содержит параметры запроса рейтинга.
type GetLeaderboardQuery struct {
	// SkillID - область рейтинга (пусто = общий рейтинг).
	SkillID string

	// Limit - количество записей (по умолчанию 20, максимум 100).
	Limit int

	// ForUserID - если задан, в результат добавляется позиция пользователя,
	// даже когда он не попал в топ.
	ForUserID string
}

// Validate проверяет корректность параметров запроса.
func (q *GetLeaderboardQuery) Validate() error {
	if q.Limit < 0 {
		return errors.New("get_leaderboard: limit cannot be negative")
	}
	if q.Limit == 0 {
		q.Limit = 20
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	return nil
}

// LeaderboardEntryDTO - DTO строки рейтинга.
type LeaderboardEntryDTO struct {
	// Rank - позиция в рейтинге (начиная с 1).
	Rank int `json:"rank"`

	// UserID - идентификатор пользователя.
	UserID string `json:"user_id"`

	// Level - уровень в области рейтинга.
	Level int `json:"level"`

	// XP - опыт в области рейтинга.
	XP int `json:"xp"`

	// Title - звание пользователя.
	Title string `json:"title,omitempty"`
}

// GetLeaderboardResult содержит результат запроса рейтинга.
type GetLeaderboardResult struct {
	// Scope - область рейтинга ("overall" или "skill:<id>").
	Scope string `json:"scope"`

	// Entries - строки рейтинга.
	Entries []LeaderboardEntryDTO `json:"entries"`

	// TotalCount - общее количество участников.
	TotalCount int `json:"total_count"`

	// UserRank - позиция запрошенного пользователя (0 = не в рейтинге).
	UserRank int `json:"user_rank,omitempty"`

	// FromCache - true, если результат получен из кэша.
	FromCache bool `json:"from_cache"`

	// GeneratedAt - момент построения рейтинга.
	GeneratedAt time.Time `json:"generated_at"`
}

// GetLeaderboardHandler обрабатывает запрос рейтинга.
type GetLeaderboardHandler struct {
	avatars   progression.AvatarRepository
	cache     leaderboard.Cache
	snapshots leaderboard.SnapshotRepository
	logger    *slog.Logger
}

// NewGetLeaderboardHandler создаёт обработчик запроса рейтинга.
// Кэш может быть nil: рейтинг тогда всегда строится из агрегатов.
// Хранилище снапшотов может быть nil: тогда при недоступности агрегатов
// запрос завершается ошибкой вместо выдачи последнего снимка.
func NewGetLeaderboardHandler(
	avatars progression.AvatarRepository,
	cache leaderboard.Cache,
	snapshots leaderboard.SnapshotRepository,
	logger *slog.Logger,
) *GetLeaderboardHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GetLeaderboardHandler{avatars: avatars, cache: cache, snapshots: snapshots, logger: logger}
}

// Handle выполняет запрос рейтинга.
func (h *GetLeaderboardHandler) Handle(ctx context.Context, q GetLeaderboardQuery) (*GetLeaderboardResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	scope := leaderboard.ScopeOverall
	if q.SkillID != "" {
		scope = leaderboard.ScopeSkill(progression.SkillID(q.SkillID))
	}

	if h.cache != nil {
		entries, err := h.cache.GetTop(ctx, scope, q.Limit)
		if err != nil {
			h.logger.Warn("leaderboard cache unavailable, falling back to storage",
				"scope", scope.String(), "error", err)
		} else if len(entries) > 0 {
			return h.resultFromCache(ctx, scope, entries, q), nil
		}
	}

	return h.buildFromStorage(ctx, scope, q)
}

// resultFromCache собирает результат из строк кэша.
func (h *GetLeaderboardHandler) resultFromCache(
	ctx context.Context,
	scope leaderboard.Scope,
	entries []leaderboard.Entry,
	q GetLeaderboardQuery,
) *GetLeaderboardResult {
	result := &GetLeaderboardResult{
		Scope:       scope.String(),
		Entries:     toEntryDTOs(entries),
		TotalCount:  len(entries),
		FromCache:   true,
		GeneratedAt: time.Now().UTC(),
	}

	if q.ForUserID != "" {
		rank, ok, err := h.cache.GetRank(ctx, scope, q.ForUserID)
		if err != nil {
			h.logger.Warn("failed to read user rank from cache",
				"user_id", q.ForUserID, "error", err)
		} else if ok {
			result.UserRank = int(rank)
		}
	}

	return result
}

// buildFromStorage строит рейтинг из агрегатов и прогревает кэш.
func (h *GetLeaderboardHandler) buildFromStorage(
	ctx context.Context,
	scope leaderboard.Scope,
	q GetLeaderboardQuery,
) (*GetLeaderboardResult, error) {
	avatars, err := h.avatars.GetAll(ctx)
	if err != nil {
		if result := h.resultFromSnapshot(ctx, scope, q); result != nil {
			h.logger.Warn("avatar storage unavailable, serving last leaderboard snapshot",
				"scope", scope.String(), "error", err)
			return result, nil
		}
		return nil, fmt.Errorf("get_leaderboard: failed to load avatars: %w", err)
	}

	board, err := leaderboard.Build(avatars, scope, q.Limit, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("get_leaderboard: %w", err)
	}

	if h.cache != nil {
		h.warmCache(ctx, scope, avatars)
	}
	h.saveSnapshot(ctx, board)

	result := &GetLeaderboardResult{
		Scope:       scope.String(),
		Entries:     toEntryDTOs(board.Entries),
		TotalCount:  board.Total,
		GeneratedAt: board.GeneratedAt,
	}

	if q.ForUserID != "" {
		if rank, ok := board.RankOf(q.ForUserID); ok {
			result.UserRank = int(rank)
		}
	}

	return result, nil
}

// warmCache заполняет кэш строками всех пользователей.
func (h *GetLeaderboardHandler) warmCache(ctx context.Context, scope leaderboard.Scope, avatars []*progression.Avatar) {
	for _, avatar := range avatars {
		if avatar == nil {
			continue
		}
		if err := h.cache.UpdateScore(ctx, scope, leaderboard.EntryFor(avatar, scope)); err != nil {
			h.logger.Warn("failed to warm leaderboard cache",
				"scope", scope.String(), "user_id", avatar.UserID, "error", err)
			return
		}
	}
}

// saveSnapshot сохраняет построенный рейтинг для выдачи при отказе хранилища.
func (h *GetLeaderboardHandler) saveSnapshot(ctx context.Context, board *leaderboard.Board) {
	if h.snapshots == nil {
		return
	}
	snapshot := &leaderboard.Snapshot{
		Scope:       board.Scope,
		Entries:     board.Entries,
		GeneratedAt: board.GeneratedAt,
	}
	if err := h.snapshots.Save(ctx, snapshot); err != nil {
		h.logger.Warn("failed to save leaderboard snapshot",
			"scope", board.Scope.String(), "error", err)
	}
}

// resultFromSnapshot выдаёт последний сохранённый снимок рейтинга.
// Возвращает nil, если хранилище снапшотов не настроено или снимка нет.
func (h *GetLeaderboardHandler) resultFromSnapshot(
	ctx context.Context,
	scope leaderboard.Scope,
	q GetLeaderboardQuery,
) *GetLeaderboardResult {
	if h.snapshots == nil {
		return nil
	}
	snapshot, err := h.snapshots.GetLatest(ctx, scope)
	if err != nil || snapshot == nil || len(snapshot.Entries) == 0 {
		return nil
	}

	entries := snapshot.Entries
	if len(entries) > q.Limit {
		entries = entries[:q.Limit]
	}

	result := &GetLeaderboardResult{
		Scope:       scope.String(),
		Entries:     toEntryDTOs(entries),
		TotalCount:  len(snapshot.Entries),
		GeneratedAt: snapshot.GeneratedAt,
	}
	if q.ForUserID != "" {
		for _, e := range snapshot.Entries {
			if e.UserID == q.ForUserID {
				result.UserRank = int(e.Rank)
				break
			}
		}
	}
	return result
}

// toEntryDTOs преобразует строки рейтинга в DTO.
func toEntryDTOs(entries []leaderboard.Entry) []LeaderboardEntryDTO {
	dtos := make([]LeaderboardEntryDTO, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, LeaderboardEntryDTO{
			Rank:   int(e.Rank),
			UserID: e.UserID,
			Level:  int(e.Level),
			XP:     int(e.XP),
			Title:  e.Title,
		})
	}
	return dtos
}
