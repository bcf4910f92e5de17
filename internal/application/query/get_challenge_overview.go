package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mentora-hub/mentora-progression/internal/domain/challenge"
	"github.com/mentora-hub/mentora-progression/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET CHALLENGE OVERVIEW QUERY
// Сводка 30-дневного челленджа: текущий день, завершённые дни, процент
// прогресса и серия. Для пользователя без челленджа возвращает пустую
// сводку, а не ошибку.
// ══════════════════════════════════════════════════════════════════════════════

// GetChallengeOverviewQuery содержит параметры запроса сводки.
type GetChallengeOverviewQuery struct {
	TenantID string
	UserID   string

	// ChallengeID - идентификатор челленджа (по умолчанию desafio-30-dias).
	ChallengeID string
}

// Validate проверяет корректность параметров запроса.
func (q *GetChallengeOverviewQuery) Validate() error {
	if q.TenantID == "" {
		return errors.New("tenant_id is required")
	}
	if q.UserID == "" {
		return errors.New("user_id is required")
	}
	if q.ChallengeID == "" {
		q.ChallengeID = challenge.DefaultChallengeID
	}
	return nil
}

// ChallengeDayDTO - DTO одного слота дня. Сводка всегда содержит все 30
// слотов; у незавершённых дней completed_at равен null.
type ChallengeDayDTO struct {
	Day         int        `json:"day"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at"`
	Notes       string     `json:"notes,omitempty"`
}

// ChallengeOverviewDTO - сводка челленджа.
type ChallengeOverviewDTO struct {
	ChallengeID     string            `json:"challenge_id"`
	Started         bool              `json:"started"`
	StartedAt       *time.Time        `json:"started_at,omitempty"`
	TotalDays       int               `json:"total_days"`
	CurrentDay      int               `json:"current_day"`
	DaysCompleted   int               `json:"days_completed"`
	ProgressPercent int               `json:"progress_percent"`
	Streak          int               `json:"streak"`
	Completed       bool              `json:"completed"`
	Days            []ChallengeDayDTO `json:"days"`
}

// GetChallengeOverviewHandler обрабатывает GetChallengeOverviewQuery.
type GetChallengeOverviewHandler struct {
	repo challenge.Repository
}

// NewGetChallengeOverviewHandler создаёт новый GetChallengeOverviewHandler.
func NewGetChallengeOverviewHandler(repo challenge.Repository) *GetChallengeOverviewHandler {
	return &GetChallengeOverviewHandler{repo: repo}
}

// Handle выполняет запрос сводки.
func (h *GetChallengeOverviewHandler) Handle(ctx context.Context, q GetChallengeOverviewQuery) (*ChallengeOverviewDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("get_challenge_overview: %w", err)
	}

	ref := shared.UserRef{
		TenantID: shared.TenantID(q.TenantID),
		UserID:   shared.UserID(q.UserID),
	}

	ch, err := h.repo.Get(ctx, ref, q.ChallengeID)
	if err != nil {
		if shared.IsNotFound(err) {
			// Челлендж ещё не начат: день 1, ноль прогресса, 30 пустых слотов.
			return &ChallengeOverviewDTO{
				ChallengeID: q.ChallengeID,
				TotalDays:   challenge.TotalDays,
				CurrentDay:  1,
				Days:        daySlotsDTO(challenge.EmptySlots()),
			}, nil
		}
		return nil, fmt.Errorf("get_challenge_overview: %w", err)
	}

	overview := ch.BuildOverview()
	return &ChallengeOverviewDTO{
		ChallengeID:     overview.ChallengeID,
		Started:         true,
		StartedAt:       &overview.StartedAt,
		TotalDays:       challenge.TotalDays,
		CurrentDay:      overview.CurrentDay,
		DaysCompleted:   overview.DaysCompleted,
		ProgressPercent: overview.ProgressPercent,
		Streak:          overview.Streak,
		Completed:       overview.Completed,
		Days:            daySlotsDTO(overview.Days),
	}, nil
}

func daySlotsDTO(days []challenge.DayRecord) []ChallengeDayDTO {
	dto := make([]ChallengeDayDTO, 0, len(days))
	for _, d := range days {
		entry := ChallengeDayDTO{Day: d.Day, Completed: d.Completed(), Notes: d.Notes}
		if d.Completed() {
			at := d.CompletedAt
			entry.CompletedAt = &at
		}
		dto = append(dto, entry)
	}
	return dto
}
