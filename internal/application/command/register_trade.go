package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mentora-hub/mentora-progression/internal/domain/challenge"
	"github.com/mentora-hub/mentora-progression/internal/domain/leaderboard"
	"github.com/mentora-hub/mentora-progression/internal/domain/progression"
	"github.com/mentora-hub/mentora-progression/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REGISTER TRADE COMMAND
// Applies one journaled trade to the user's progression: base XP by outcome,
// streak bookkeeping and the badge cascade, all inside one transaction.
// ══════════════════════════════════════════════════════════════════════════════

// historyWindow bounds how many past outcomes badge predicates may see.
const historyWindow = 20

// RegisterTradeCommand contains the data of one registered trade.
type RegisterTradeCommand struct {
	TenantID string
	UserID   string

	// DisplayName seeds the state on first contact; ignored afterwards.
	DisplayName string

	// Outcome is win, loss or breakeven.
	Outcome progression.TradeOutcome

	// TradeAt is when the trade happened (defaults to now if zero).
	TradeAt time.Time

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c RegisterTradeCommand) Validate() error {
	if c.TenantID == "" {
		return errors.New("register_trade: tenant_id is required")
	}
	if c.UserID == "" {
		return errors.New("register_trade: user_id is required")
	}
	if !c.Outcome.IsValid() {
		return fmt.Errorf("register_trade: unknown outcome: %s", c.Outcome)
	}
	return nil
}

// RegisterTradeResult contains the outcome of applying the trade.
type RegisterTradeResult struct {
	XPEarned      int
	TotalXP       int
	Level         int
	LeveledUp     bool
	NewLevelName  string
	NewBadges     []progression.BadgeDefinition
	CurrentStreak int
	BestStreak    int

	// Events contains domain events generated.
	Events []shared.Event
}

// RegisterTradeHandler handles the RegisterTradeCommand.
type RegisterTradeHandler struct {
	engine         *progression.Engine
	uowFactory     UnitOfWorkFactory
	history        progression.TradeHistoryReader
	challenges     challenge.Repository
	cache          leaderboard.Cache
	eventPublisher shared.EventPublisher
	now            func() time.Time
}

// NewRegisterTradeHandler creates a new RegisterTradeHandler.
func NewRegisterTradeHandler(
	engine *progression.Engine,
	uowFactory UnitOfWorkFactory,
	history progression.TradeHistoryReader,
	challenges challenge.Repository,
	cache leaderboard.Cache,
	eventPublisher shared.EventPublisher,
) *RegisterTradeHandler {
	return &RegisterTradeHandler{
		engine:         engine,
		uowFactory:     uowFactory,
		history:        history,
		challenges:     challenges,
		cache:          cache,
		eventPublisher: eventPublisher,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Handle executes the register trade command.
func (h *RegisterTradeHandler) Handle(ctx context.Context, cmd RegisterTradeCommand) (*RegisterTradeResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("register_trade: validation failed: %w", err)
	}

	now := h.now()
	tradeAt := cmd.TradeAt
	if tradeAt.IsZero() {
		tradeAt = now
	}

	ref := shared.UserRef{
		TenantID: shared.TenantID(cmd.TenantID),
		UserID:   shared.UserID(cmd.UserID),
	}

	outcomes, err := h.history.RecentOutcomes(ctx, ref, historyWindow)
	if err != nil {
		return nil, fmt.Errorf("register_trade: failed to load trade history: %w", err)
	}
	// The trade being registered is part of the window predicates see.
	outcomes = append(outcomes, cmd.Outcome)

	challengeStarted, challengeDays, err := h.challengeProgress(ctx, ref)
	if err != nil {
		return nil, err
	}

	evalCtx := progression.EvaluationContext{
		TradeAt:                tradeAt,
		RecentOutcomes:         outcomes,
		ChallengeStarted:       challengeStarted,
		ChallengeDaysCompleted: challengeDays,
	}

	var (
		state  *progression.State
		result *progression.Result
	)
	err = h.uowFactory.WithinTx(ctx, func(uow UnitOfWork) error {
		state, err = loadOrCreateState(ctx, uow, ref, cmd.DisplayName, now)
		if err != nil {
			return err
		}

		result, err = h.engine.ApplyTrade(state, cmd.Outcome, evalCtx, now)
		if err != nil {
			return err
		}

		if err := uow.States().Save(ctx, state); err != nil {
			return fmt.Errorf("register_trade: failed to save state: %w", err)
		}
		if err := uow.Transactions().Append(ctx, result.Transactions); err != nil {
			return fmt.Errorf("register_trade: failed to append transactions: %w", err)
		}
		record := progression.TradeRecord{Outcome: cmd.Outcome, RecordedAt: tradeAt}
		if err := uow.TradeHistory().AppendOutcome(ctx, ref, record); err != nil {
			return fmt.Errorf("register_trade: failed to append trade history: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	events := progressionEvents(ref, result, state, cmd.CorrelationID)
	publishAll(h.eventPublisher, events)
	invalidateRanking(ctx, h.cache, ref.TenantID)

	return &RegisterTradeResult{
		XPEarned:      result.XPEarned.Int(),
		TotalXP:       state.XP.Int(),
		Level:         h.engine.Levels().LevelForXP(state.XP),
		LeveledUp:     result.LeveledUp,
		NewLevelName:  result.NewLevelName,
		NewBadges:     result.NewBadges,
		CurrentStreak: state.CurrentStreak,
		BestStreak:    state.BestStreak,
		Events:        events,
	}, nil
}

// challengeProgress reads challenge facts for badge predicates.
// Absence of a challenge is not an error.
func (h *RegisterTradeHandler) challengeProgress(ctx context.Context, ref shared.UserRef) (bool, int, error) {
	ch, err := h.challenges.Get(ctx, ref, challenge.DefaultChallengeID)
	if err != nil {
		if shared.IsNotFound(err) {
			return false, 0, nil
		}
		return false, 0, fmt.Errorf("register_trade: failed to load challenge: %w", err)
	}
	return true, ch.DaysCompleted(), nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Shared helpers for progression commands
// ──────────────────────────────────────────────────────────────────────────────

// loadOrCreateState locks the user's state, provisioning it on first contact.
func loadOrCreateState(ctx context.Context, uow UnitOfWork, ref shared.UserRef, displayName string, now time.Time) (*progression.State, error) {
	state, err := uow.States().GetForUpdate(ctx, ref)
	if err == nil {
		return state, nil
	}
	if !shared.IsNotFound(err) {
		return nil, fmt.Errorf("progression: failed to load state: %w", err)
	}

	state, err = progression.NewState(ref, displayName, now)
	if err != nil {
		return nil, err
	}
	if err := uow.States().Create(ctx, state); err != nil {
		return nil, fmt.Errorf("progression: failed to create state: %w", err)
	}
	return state, nil
}

// progressionEvents maps an engine result onto domain events.
func progressionEvents(ref shared.UserRef, result *progression.Result, state *progression.State, correlationID string) []shared.Event {
	events := make([]shared.Event, 0, 2+len(result.NewBadges))

	for _, tx := range result.Transactions {
		ev := shared.NewXPGainedEvent(ref, tx.Amount.Int(), state.XP.Int(), tx.Reason)
		if correlationID != "" {
			ev.BaseEvent = ev.BaseEvent.WithCorrelationID(correlationID)
		}
		events = append(events, ev)
	}
	for _, badge := range result.NewBadges {
		ev := shared.NewBadgeEarnedEvent(ref, string(badge.ID), badge.Name, badge.XPReward.Int())
		if correlationID != "" {
			ev.BaseEvent = ev.BaseEvent.WithCorrelationID(correlationID)
		}
		events = append(events, ev)
	}
	if result.LeveledUp {
		ev := shared.NewLevelUpEvent(ref, result.PreviousLevel, result.NewLevel, result.NewLevelName, state.XP.Int())
		if correlationID != "" {
			ev.BaseEvent = ev.BaseEvent.WithCorrelationID(correlationID)
		}
		events = append(events, ev)
	}
	return events
}

func publishAll(publisher shared.EventPublisher, events []shared.Event) {
	if publisher == nil {
		return
	}
	for _, event := range events {
		_ = publisher.Publish(event)
	}
}

// invalidateRanking drops the tenant's cached leaderboard after an XP change.
func invalidateRanking(ctx context.Context, cache leaderboard.Cache, tenantID shared.TenantID) {
	if cache == nil {
		return
	}
	_ = cache.Invalidate(ctx, tenantID)
}
