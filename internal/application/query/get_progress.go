// Package query contains read operations following CQRS pattern.
// Queries never modify state - they only read and return data.
// Each query is a self-contained use case with its own request/response types.
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mentora-hub/mentora-progression/internal/domain/progression"
	"github.com/mentora-hub/mentora-progression/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PROGRESS QUERY
// Возвращает полную сводку прогрессии пользователя: XP, уровень, прогресс
// внутри уровня, серии, бейджи и последние начисления XP.
// ══════════════════════════════════════════════════════════════════════════════

// GetProgressQuery содержит параметры запроса прогрессии.
type GetProgressQuery struct {
	TenantID string
	UserID   string

	// TransactionLimit - сколько последних начислений вернуть (по умолчанию 10).
	TransactionLimit int
}

// Validate проверяет корректность параметров запроса.
func (q *GetProgressQuery) Validate() error {
	if q.TenantID == "" {
		return errors.New("tenant_id is required")
	}
	if q.UserID == "" {
		return errors.New("user_id is required")
	}
	if q.TransactionLimit < 0 {
		return errors.New("transaction_limit cannot be negative")
	}
	if q.TransactionLimit == 0 {
		q.TransactionLimit = 10
	}
	if q.TransactionLimit > 100 {
		q.TransactionLimit = 100
	}
	return nil
}

// BadgeDTO - DTO выданного бейджа.
type BadgeDTO struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	Category    string    `json:"category"`
	XPReward    int       `json:"xp_reward"`
	EarnedAt    time.Time `json:"earned_at"`
}

// XPTransactionDTO - DTO строки журнала начислений.
type XPTransactionDTO struct {
	Amount    int       `json:"amount"`
	Reason    string    `json:"reason"`
	BadgeID   string    `json:"badge_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ProgressDTO - сводка прогрессии пользователя.
type ProgressDTO struct {
	UserID          string `json:"user_id"`
	DisplayName     string `json:"display_name"`
	XP              int    `json:"xp"`
	Level           int    `json:"level"`
	LevelName       string `json:"level_name"`
	LevelColor      string `json:"level_color"`
	ProgressPercent int    `json:"progress_percent"`
	XPToNextLevel   int    `json:"xp_to_next_level"`

	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	WinRate       float64 `json:"win_rate"`
	CurrentStreak int     `json:"current_streak"`
	BestStreak    int     `json:"best_streak"`

	Badges             []BadgeDTO         `json:"badges"`
	RecentTransactions []XPTransactionDTO `json:"recent_transactions"`
}

// GetProgressHandler обрабатывает GetProgressQuery.
type GetProgressHandler struct {
	engine *progression.Engine
	states progression.StateRepository
	txLog  progression.TransactionLog
}

// NewGetProgressHandler создаёт новый GetProgressHandler.
func NewGetProgressHandler(
	engine *progression.Engine,
	states progression.StateRepository,
	txLog progression.TransactionLog,
) *GetProgressHandler {
	return &GetProgressHandler{engine: engine, states: states, txLog: txLog}
}

// Handle выполняет запрос прогрессии.
func (h *GetProgressHandler) Handle(ctx context.Context, q GetProgressQuery) (*ProgressDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("get_progress: %w", err)
	}

	ref := shared.UserRef{
		TenantID: shared.TenantID(q.TenantID),
		UserID:   shared.UserID(q.UserID),
	}

	state, err := h.states.Get(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("get_progress: %w", err)
	}

	txs, err := h.txLog.ListRecent(ctx, ref, q.TransactionLimit)
	if err != nil {
		return nil, fmt.Errorf("get_progress: failed to load transactions: %w", err)
	}

	return h.buildDTO(state, txs), nil
}

// buildDTO собирает сводку из состояния и журнала.
func (h *GetProgressHandler) buildDTO(state *progression.State, txs []progression.XPTransaction) *ProgressDTO {
	levels := h.engine.Levels()
	levelDef := levels.DefinitionForXP(state.XP)

	dto := &ProgressDTO{
		UserID:          state.Ref.UserID.String(),
		DisplayName:     state.DisplayName,
		XP:              state.XP.Int(),
		Level:           levelDef.Level,
		LevelName:       levelDef.Name,
		LevelColor:      levelDef.Color,
		ProgressPercent: levels.ProgressPercent(state.XP),
		XPToNextLevel:   levels.XPToNextLevel(state.XP).Int(),
		TotalTrades:     state.TotalTrades,
		WinningTrades:   state.WinningTrades,
		WinRate:         state.WinRate(),
		CurrentStreak:   state.CurrentStreak,
		BestStreak:      state.BestStreak,
	}
	dto.Badges = make([]BadgeDTO, 0, len(state.Badges))
	dto.RecentTransactions = make([]XPTransactionDTO, 0, len(txs))

	catalog := h.engine.Catalog()
	for _, earned := range state.Badges {
		def, ok := catalog.Get(earned.ID)
		if !ok {
			// Бейдж удалён из каталога: показываем хотя бы идентификатор.
			dto.Badges = append(dto.Badges, BadgeDTO{ID: string(earned.ID), EarnedAt: earned.EarnedAt})
			continue
		}
		dto.Badges = append(dto.Badges, BadgeDTO{
			ID:          string(def.ID),
			Name:        def.Name,
			Description: def.Description,
			Icon:        def.Icon,
			Category:    string(def.Category),
			XPReward:    def.XPReward.Int(),
			EarnedAt:    earned.EarnedAt,
		})
	}

	for _, tx := range txs {
		dto.RecentTransactions = append(dto.RecentTransactions, XPTransactionDTO{
			Amount:    tx.Amount.Int(),
			Reason:    tx.Reason,
			BadgeID:   string(tx.BadgeID),
			CreatedAt: tx.CreatedAt,
		})
	}
	return dto
}
