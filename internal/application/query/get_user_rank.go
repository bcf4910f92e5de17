package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/mentora-hub/mentora-progression/internal/domain/leaderboard"
	"github.com/mentora-hub/mentora-progression/internal/domain/progression"
	"github.com/mentora-hub/mentora-progression/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET USER RANK QUERY
// Персональный ранг пользователя: 1 + число пользователей тенанта со строго
// большим XP. При равенстве XP пользователи делят ранг, в отличие от
// последовательных позиций полного списка.
// ══════════════════════════════════════════════════════════════════════════════

// GetUserRankQuery содержит параметры запроса ранга.
type GetUserRankQuery struct {
	TenantID string
	UserID   string
}

// Validate проверяет корректность параметров запроса.
func (q *GetUserRankQuery) Validate() error {
	if q.TenantID == "" {
		return errors.New("tenant_id is required")
	}
	if q.UserID == "" {
		return errors.New("user_id is required")
	}
	return nil
}

// UserRankDTO - ответ запроса ранга.
type UserRankDTO struct {
	UserID     string `json:"user_id"`
	Rank       int    `json:"rank"`
	TotalUsers int    `json:"total_users"`
	XP         int    `json:"xp"`
	Level      int    `json:"level"`
}

// GetUserRankHandler обрабатывает GetUserRankQuery.
type GetUserRankHandler struct {
	engine *progression.Engine
	repo   leaderboard.Repository
}

// NewGetUserRankHandler создаёт новый GetUserRankHandler.
func NewGetUserRankHandler(engine *progression.Engine, repo leaderboard.Repository) *GetUserRankHandler {
	return &GetUserRankHandler{engine: engine, repo: repo}
}

// Handle выполняет запрос ранга.
func (h *GetUserRankHandler) Handle(ctx context.Context, q GetUserRankQuery) (*UserRankDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("get_user_rank: %w", err)
	}

	entries, err := h.repo.Entries(ctx, shared.TenantID(q.TenantID))
	if err != nil {
		return nil, fmt.Errorf("get_user_rank: failed to load entries: %w", err)
	}

	userID := shared.UserID(q.UserID)
	rank, err := leaderboard.UserRank(entries, userID)
	if err != nil {
		return nil, err
	}

	dto := &UserRankDTO{
		UserID:     q.UserID,
		Rank:       rank,
		TotalUsers: len(entries),
	}
	for _, e := range entries {
		if e.UserID == userID {
			dto.XP = e.XP.Int()
			dto.Level = h.engine.Levels().LevelForXP(e.XP)
			break
		}
	}
	return dto, nil
}
