package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mentora-hub/mentora-progression/internal/domain/leaderboard"
	"github.com/mentora-hub/mentora-progression/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESET PROGRESS COMMAND
// Administrative reset of a user's progression: XP, counters, streaks and
// badges go back to zero. The transaction log is kept for audit.
// ══════════════════════════════════════════════════════════════════════════════

// ResetProgressCommand contains the data of one reset.
type ResetProgressCommand struct {
	TenantID string
	UserID   string

	// ResetBy identifies the operator performing the reset.
	ResetBy string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c ResetProgressCommand) Validate() error {
	if c.TenantID == "" {
		return errors.New("reset_progress: tenant_id is required")
	}
	if c.UserID == "" {
		return errors.New("reset_progress: user_id is required")
	}
	if c.ResetBy == "" {
		return errors.New("reset_progress: reset_by is required")
	}
	return nil
}

// ResetProgressResult contains the outcome of the reset.
type ResetProgressResult struct {
	PreviousXP     int
	PreviousBadges int

	Events []shared.Event
}

// ResetProgressHandler handles the ResetProgressCommand.
type ResetProgressHandler struct {
	uowFactory     UnitOfWorkFactory
	cache          leaderboard.Cache
	eventPublisher shared.EventPublisher
	now            func() time.Time
}

// NewResetProgressHandler creates a new ResetProgressHandler.
func NewResetProgressHandler(
	uowFactory UnitOfWorkFactory,
	cache leaderboard.Cache,
	eventPublisher shared.EventPublisher,
) *ResetProgressHandler {
	return &ResetProgressHandler{
		uowFactory:     uowFactory,
		cache:          cache,
		eventPublisher: eventPublisher,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Handle executes the reset progress command.
func (h *ResetProgressHandler) Handle(ctx context.Context, cmd ResetProgressCommand) (*ResetProgressResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("reset_progress: validation failed: %w", err)
	}

	now := h.now()
	ref := shared.UserRef{
		TenantID: shared.TenantID(cmd.TenantID),
		UserID:   shared.UserID(cmd.UserID),
	}

	result := &ResetProgressResult{}
	err := h.uowFactory.WithinTx(ctx, func(uow UnitOfWork) error {
		state, err := uow.States().GetForUpdate(ctx, ref)
		if err != nil {
			return fmt.Errorf("reset_progress: failed to load state: %w", err)
		}

		result.PreviousXP = state.XP.Int()
		result.PreviousBadges = len(state.Badges)

		state.Reset(now)
		if err := uow.States().Save(ctx, state); err != nil {
			return fmt.Errorf("reset_progress: failed to save state: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	event := shared.NewStateResetEvent(ref, result.PreviousXP, cmd.ResetBy)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	result.Events = []shared.Event{event}
	publishAll(h.eventPublisher, result.Events)
	invalidateRanking(ctx, h.cache, ref.TenantID)

	return result, nil
}
