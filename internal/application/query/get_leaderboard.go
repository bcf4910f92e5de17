package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mentora-hub/mentora-progression/internal/domain/leaderboard"
	"github.com/mentora-hub/mentora-progression/internal/domain/progression"
	"github.com/mentora-hub/mentora-progression/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEADERBOARD QUERY
// Возвращает топ-N пользователей тенанта по XP. Сначала пробует кэш,
// при промахе собирает рейтинг из хранилища и кладёт его в кэш.
// ══════════════════════════════════════════════════════════════════════════════

// GetLeaderboardQuery содержит параметры запроса лидерборда.
type GetLeaderboardQuery struct {
	TenantID string

	// Limit - количество записей (по умолчанию 20, максимум 100).
	Limit int
}

// Validate проверяет корректность параметров запроса.
func (q *GetLeaderboardQuery) Validate() error {
	if q.TenantID == "" {
		return errors.New("tenant_id is required")
	}
	if q.Limit < 0 {
		return errors.New("limit cannot be negative")
	}
	if q.Limit == 0 {
		q.Limit = 20
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	return nil
}

// LeaderboardEntryDTO - DTO записи лидерборда.
type LeaderboardEntryDTO struct {
	// Rank - позиция в списке (начиная с 1, без схлопывания ничьих).
	Rank int `json:"rank"`

	UserID      string  `json:"user_id"`
	DisplayName string  `json:"name"`
	XP          int     `json:"xp"`
	Level       int     `json:"level"`
	LevelName   string  `json:"level_name"`
	WinRate     float64 `json:"win_rate"`
	BadgeCount  int     `json:"badge_count"`
}

// LeaderboardDTO - ответ запроса лидерборда.
type LeaderboardDTO struct {
	TenantID    string                `json:"tenant_id"`
	Entries     []LeaderboardEntryDTO `json:"entries"`
	GeneratedAt time.Time             `json:"generated_at"`
	FromCache   bool                  `json:"-"`
}

// GetLeaderboardHandler обрабатывает GetLeaderboardQuery.
type GetLeaderboardHandler struct {
	engine *progression.Engine
	repo   leaderboard.Repository
	cache  leaderboard.Cache
	now    func() time.Time
}

// NewGetLeaderboardHandler создаёт новый GetLeaderboardHandler.
func NewGetLeaderboardHandler(
	engine *progression.Engine,
	repo leaderboard.Repository,
	cache leaderboard.Cache,
) *GetLeaderboardHandler {
	return &GetLeaderboardHandler{
		engine: engine,
		repo:   repo,
		cache:  cache,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Handle выполняет запрос лидерборда.
func (h *GetLeaderboardHandler) Handle(ctx context.Context, q GetLeaderboardQuery) (*LeaderboardDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("get_leaderboard: %w", err)
	}

	tenantID := shared.TenantID(q.TenantID)

	if h.cache != nil {
		if ranking, err := h.cache.GetRanking(ctx, tenantID, q.Limit); err == nil {
			return h.buildDTO(ranking, true), nil
		}
	}

	ranking, err := h.rebuild(ctx, tenantID, q.Limit)
	if err != nil {
		return nil, err
	}
	return h.buildDTO(ranking, false), nil
}

// Rebuild пересобирает рейтинг тенанта и обновляет кэш.
// Используется и обработчиком запроса при промахе кэша, и фоновым воркером.
func (h *GetLeaderboardHandler) Rebuild(ctx context.Context, tenantID shared.TenantID) (*leaderboard.Ranking, error) {
	return h.rebuild(ctx, tenantID, 0)
}

func (h *GetLeaderboardHandler) rebuild(ctx context.Context, tenantID shared.TenantID, limit int) (*leaderboard.Ranking, error) {
	entries, err := h.repo.Entries(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("get_leaderboard: failed to load entries: %w", err)
	}

	// Уровень - производная от XP, хранилище его не знает.
	levels := h.engine.Levels()
	for i := range entries {
		entries[i].Level = levels.LevelForXP(entries[i].XP)
		entries[i].LevelName = levels.Name(entries[i].Level)
	}

	// Кэш всегда хранит полный рейтинг, чтобы запросы с разными
	// лимитами не вытесняли друг друга.
	ranking := leaderboard.BuildRanking(tenantID, entries, 0, h.now())
	if h.cache != nil {
		_ = h.cache.PutRanking(ctx, ranking)
	}

	if limit > 0 && len(ranking.Entries) > limit {
		trimmed := *ranking
		trimmed.Entries = ranking.Entries[:limit]
		return &trimmed, nil
	}
	return ranking, nil
}

func (h *GetLeaderboardHandler) buildDTO(ranking *leaderboard.Ranking, fromCache bool) *LeaderboardDTO {
	dto := &LeaderboardDTO{
		TenantID:    ranking.TenantID.String(),
		Entries:     make([]LeaderboardEntryDTO, 0, len(ranking.Entries)),
		GeneratedAt: ranking.GeneratedAt,
		FromCache:   fromCache,
	}
	for _, e := range ranking.Entries {
		dto.Entries = append(dto.Entries, LeaderboardEntryDTO{
			Rank:        e.Rank,
			UserID:      e.UserID.String(),
			DisplayName: e.DisplayName,
			XP:          e.XP.Int(),
			Level:       e.Level,
			LevelName:   e.LevelName,
			WinRate:     e.WinRate,
			BadgeCount:  e.BadgeCount,
		})
	}
	return dto
}
