package command

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
// GRANT XP COMMAND
// Credits XP from outside the trade flow: promotions, support compensations,
// one-off rewards. Runs the same badge cascade as trades.
// ══════════════════════════════════════════════════════════════════════════════

// maxGrantAmount caps a single manual grant. Larger adjustments should be
// split so the transaction log stays reviewable.
const maxGrantAmount = 10000

// GrantXPCommand contains the data of one manual XP grant.
type GrantXPCommand struct {
	TenantID string
	UserID   string

	// Amount is the XP to credit, must be positive.
	Amount int

	// Reason tags the transaction log line (defaults to manual_grant).
	Reason string

	// GrantedBy identifies the operator or system issuing the grant.
	GrantedBy string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c GrantXPCommand) Validate() error {
	if c.TenantID == "" {
		return errors.New("grant_xp: tenant_id is required")
	}
	if c.UserID == "" {
		return errors.New("grant_xp: user_id is required")
	}
	if c.Amount <= 0 {
		return errors.New("grant_xp: amount must be positive")
	}
	if c.Amount > maxGrantAmount {
		return fmt.Errorf("grant_xp: amount exceeds limit of %d", maxGrantAmount)
	}
	return nil
}

// GrantXPResult contains the outcome of the grant.
type GrantXPResult struct {
	XPEarned     int
	TotalXP      int
	Level        int
	LeveledUp    bool
	NewLevelName string
	NewBadges    []progression.BadgeDefinition

	Events []shared.Event
}

// GrantXPHandler handles the GrantXPCommand.
type GrantXPHandler struct {
	engine         *progression.Engine
	uowFactory     UnitOfWorkFactory
	cache          leaderboard.Cache
	eventPublisher shared.EventPublisher
	now            func() time.Time
}

// NewGrantXPHandler creates a new GrantXPHandler.
func NewGrantXPHandler(
	engine *progression.Engine,
	uowFactory UnitOfWorkFactory,
	cache leaderboard.Cache,
	eventPublisher shared.EventPublisher,
) *GrantXPHandler {
	return &GrantXPHandler{
		engine:         engine,
		uowFactory:     uowFactory,
		cache:          cache,
		eventPublisher: eventPublisher,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Handle executes the grant XP command.
func (h *GrantXPHandler) Handle(ctx context.Context, cmd GrantXPCommand) (*GrantXPResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("grant_xp: validation failed: %w", err)
	}

	now := h.now()
	ref := shared.UserRef{
		TenantID: shared.TenantID(cmd.TenantID),
		UserID:   shared.UserID(cmd.UserID),
	}

	reason := cmd.Reason
	if reason == "" {
		reason = progression.ReasonManualGrant
	}

	var (
		state  *progression.State
		result *progression.Result
	)
	err := h.uowFactory.WithinTx(ctx, func(uow UnitOfWork) error {
		var err error
		state, err = loadOrCreateState(ctx, uow, ref, "", now)
		if err != nil {
			return err
		}

		var metadata map[string]string
		if cmd.GrantedBy != "" {
			metadata = map[string]string{"granted_by": cmd.GrantedBy}
		}
		result, err = h.engine.ApplyGrant(state, progression.XP(cmd.Amount), reason, metadata, progression.EvaluationContext{}, now)
		if err != nil {
			return err
		}

		if err := uow.States().Save(ctx, state); err != nil {
			return fmt.Errorf("grant_xp: failed to save state: %w", err)
		}
		if err := uow.Transactions().Append(ctx, result.Transactions); err != nil {
			return fmt.Errorf("grant_xp: failed to append transactions: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	events := progressionEvents(ref, result, state, cmd.CorrelationID)
	publishAll(h.eventPublisher, events)
	invalidateRanking(ctx, h.cache, ref.TenantID)

	return &GrantXPResult{
		XPEarned:     result.XPEarned.Int(),
		TotalXP:      state.XP.Int(),
		Level:        h.engine.Levels().LevelForXP(state.XP),
		LeveledUp:    result.LeveledUp,
		NewLevelName: result.NewLevelName,
		NewBadges:    result.NewBadges,
		Events:       events,
	}, nil
}
