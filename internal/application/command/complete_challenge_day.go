package command

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/mentora-hub/mentora-progression/internal/domain/challenge"
	"github.com/mentora-hub/mentora-progression/internal/domain/leaderboard"
	"github.com/mentora-hub/mentora-progression/internal/domain/progression"
	"github.com/mentora-hub/mentora-progression/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETE CHALLENGE DAY COMMAND
// Marks one day of the 30-day challenge done, credits the day XP and, when
// the challenge finishes, the completion bonus. The challenge starts
// implicitly with the first touched day. Re-completing a day is an
// idempotent no-op: no XP, no events, the original timestamp stands.
// ══════════════════════════════════════════════════════════════════════════════

// CompleteChallengeDayCommand contains the data of one day completion.
type CompleteChallengeDayCommand struct {
	TenantID string
	UserID   string

	// Day is the day number (1-30).
	Day int

	// Notes is an optional journal note attached to the day.
	Notes string

	// DisplayName seeds the progression state on first contact.
	DisplayName string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c CompleteChallengeDayCommand) Validate() error {
	if c.TenantID == "" {
		return errors.New("complete_challenge_day: tenant_id is required")
	}
	if c.UserID == "" {
		return errors.New("complete_challenge_day: user_id is required")
	}
	if c.Day < 1 || c.Day > challenge.TotalDays {
		return fmt.Errorf("complete_challenge_day: day must be between 1 and %d", challenge.TotalDays)
	}
	return nil
}

// CompleteChallengeDayResult contains the outcome of the day completion.
type CompleteChallengeDayResult struct {
	Day           int
	DaysCompleted int

	// AlreadyCompleted is set when the day had been completed before:
	// the stored record is returned and no XP was credited.
	AlreadyCompleted bool
	CompletedAt      time.Time

	ChallengeCompleted bool
	XPEarned           int
	TotalXP            int
	LeveledUp          bool
	NewLevelName       string
	NewBadges          []progression.BadgeDefinition
	Overview           challenge.Overview

	Events []shared.Event
}

// CompleteChallengeDayHandler handles the CompleteChallengeDayCommand.
type CompleteChallengeDayHandler struct {
	engine         *progression.Engine
	uowFactory     UnitOfWorkFactory
	cache          leaderboard.Cache
	eventPublisher shared.EventPublisher
	now            func() time.Time
}

// NewCompleteChallengeDayHandler creates a new CompleteChallengeDayHandler.
func NewCompleteChallengeDayHandler(
	engine *progression.Engine,
	uowFactory UnitOfWorkFactory,
	cache leaderboard.Cache,
	eventPublisher shared.EventPublisher,
) *CompleteChallengeDayHandler {
	return &CompleteChallengeDayHandler{
		engine:         engine,
		uowFactory:     uowFactory,
		cache:          cache,
		eventPublisher: eventPublisher,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Handle executes the complete challenge day command.
func (h *CompleteChallengeDayHandler) Handle(ctx context.Context, cmd CompleteChallengeDayCommand) (*CompleteChallengeDayResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("complete_challenge_day: validation failed: %w", err)
	}

	now := h.now()
	ref := shared.UserRef{
		TenantID: shared.TenantID(cmd.TenantID),
		UserID:   shared.UserID(cmd.UserID),
	}

	var (
		ch     *challenge.Challenge
		state  *progression.State
		day    challenge.DayCompletion
		result *progression.Result
	)
	err := h.uowFactory.WithinTx(ctx, func(uow UnitOfWork) error {
		var err error
		ch, err = loadOrStartChallenge(ctx, uow, ref, now)
		if err != nil {
			return err
		}

		day, err = ch.CompleteDay(cmd.Day, cmd.Notes, now)
		if err != nil {
			return err
		}
		if err := uow.Challenges().Save(ctx, ch); err != nil {
			return fmt.Errorf("complete_challenge_day: failed to save challenge: %w", err)
		}

		if !day.First {
			// Повтор: запись уже есть, XP не начисляется.
			state, err = uow.States().Get(ctx, ref)
			if err != nil && !shared.IsNotFound(err) {
				return fmt.Errorf("complete_challenge_day: failed to load state: %w", err)
			}
			return nil
		}

		state, err = loadOrCreateState(ctx, uow, ref, cmd.DisplayName, now)
		if err != nil {
			return err
		}

		evalCtx := progression.EvaluationContext{
			ChallengeStarted:       true,
			ChallengeDaysCompleted: ch.DaysCompleted(),
		}
		metadata := map[string]string{
			"challenge_id": ch.ChallengeID,
			"day":          strconv.Itoa(cmd.Day),
		}
		result, err = h.engine.ApplyGrant(state, challenge.DayCompletionXP, progression.ReasonChallengeDay, metadata, evalCtx, now)
		if err != nil {
			return err
		}
		if day.Finished {
			bonusMeta := map[string]string{"challenge_id": ch.ChallengeID}
			bonus, err := h.engine.ApplyGrant(state, challenge.CompletionBonusXP, progression.ReasonChallengeBonus, bonusMeta, evalCtx, now)
			if err != nil {
				return err
			}
			mergeResults(result, bonus)
		}

		if err := uow.States().Save(ctx, state); err != nil {
			return fmt.Errorf("complete_challenge_day: failed to save state: %w", err)
		}
		if err := uow.Transactions().Append(ctx, result.Transactions); err != nil {
			return fmt.Errorf("complete_challenge_day: failed to append transactions: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !day.First {
		res := &CompleteChallengeDayResult{
			Day:              cmd.Day,
			DaysCompleted:    ch.DaysCompleted(),
			AlreadyCompleted: true,
			CompletedAt:      day.Record.CompletedAt,
			Overview:         ch.BuildOverview(),
		}
		if state != nil {
			res.TotalXP = state.XP.Int()
		}
		return res, nil
	}

	events := progressionEvents(ref, result, state, cmd.CorrelationID)
	dayEvent := shared.NewChallengeDayCompletedEvent(ref, ch.ChallengeID, cmd.Day, challenge.DayCompletionXP)
	if cmd.CorrelationID != "" {
		dayEvent.BaseEvent = dayEvent.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	events = append(events, dayEvent)
	if day.Finished {
		doneEvent := shared.NewChallengeCompletedEvent(ref, ch.ChallengeID, challenge.CompletionBonusXP)
		if cmd.CorrelationID != "" {
			doneEvent.BaseEvent = doneEvent.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		}
		events = append(events, doneEvent)
	}
	publishAll(h.eventPublisher, events)
	invalidateRanking(ctx, h.cache, ref.TenantID)

	return &CompleteChallengeDayResult{
		Day:                cmd.Day,
		DaysCompleted:      ch.DaysCompleted(),
		CompletedAt:        day.Record.CompletedAt,
		ChallengeCompleted: day.Finished,
		XPEarned:           result.XPEarned.Int(),
		TotalXP:            state.XP.Int(),
		LeveledUp:          result.LeveledUp,
		NewLevelName:       result.NewLevelName,
		NewBadges:          result.NewBadges,
		Overview:           ch.BuildOverview(),
		Events:             events,
	}, nil
}

// loadOrStartChallenge locks the user's challenge, starting it on first use.
// Shared with the notes handler: a notes write also starts the challenge.
func loadOrStartChallenge(ctx context.Context, uow UnitOfWork, ref shared.UserRef, now time.Time) (*challenge.Challenge, error) {
	ch, err := uow.Challenges().GetForUpdate(ctx, ref, challenge.DefaultChallengeID)
	if err == nil {
		return ch, nil
	}
	if !shared.IsNotFound(err) {
		return nil, fmt.Errorf("challenge: failed to load: %w", err)
	}

	ch, err = challenge.New(ref, challenge.DefaultChallengeID, now)
	if err != nil {
		return nil, err
	}
	if err := uow.Challenges().Create(ctx, ch); err != nil {
		return nil, fmt.Errorf("challenge: failed to create: %w", err)
	}
	return ch, nil
}

// mergeResults folds a follow-up grant into the primary result.
func mergeResults(dst, src *progression.Result) {
	dst.XPEarned += src.XPEarned
	dst.NewBadges = append(dst.NewBadges, src.NewBadges...)
	dst.Transactions = append(dst.Transactions, src.Transactions...)
	if src.LeveledUp {
		if !dst.LeveledUp {
			dst.PreviousLevel = src.PreviousLevel
		}
		dst.LeveledUp = true
		dst.NewLevel = src.NewLevel
		dst.NewLevelName = src.NewLevelName
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE CHALLENGE NOTES COMMAND
// Saves a journal note on a day without marking it complete. The day slot
// (and the challenge itself) is created lazily on first write.
// ══════════════════════════════════════════════════════════════════════════════

// UpdateChallengeNotesCommand sets the note of one challenge day.
type UpdateChallengeNotesCommand struct {
	TenantID string
	UserID   string
	Day      int
	Notes    string
}

// Validate validates the command.
func (c UpdateChallengeNotesCommand) Validate() error {
	if c.TenantID == "" {
		return errors.New("update_challenge_notes: tenant_id is required")
	}
	if c.UserID == "" {
		return errors.New("update_challenge_notes: user_id is required")
	}
	if c.Day < 1 || c.Day > challenge.TotalDays {
		return fmt.Errorf("update_challenge_notes: day must be between 1 and %d", challenge.TotalDays)
	}
	return nil
}

// UpdateChallengeNotesHandler handles the UpdateChallengeNotesCommand.
type UpdateChallengeNotesHandler struct {
	uowFactory UnitOfWorkFactory
	now        func() time.Time
}

// NewUpdateChallengeNotesHandler creates a new UpdateChallengeNotesHandler.
func NewUpdateChallengeNotesHandler(uowFactory UnitOfWorkFactory) *UpdateChallengeNotesHandler {
	return &UpdateChallengeNotesHandler{
		uowFactory: uowFactory,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Handle executes the update challenge notes command.
func (h *UpdateChallengeNotesHandler) Handle(ctx context.Context, cmd UpdateChallengeNotesCommand) error {
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("update_challenge_notes: validation failed: %w", err)
	}

	ref := shared.UserRef{
		TenantID: shared.TenantID(cmd.TenantID),
		UserID:   shared.UserID(cmd.UserID),
	}
	now := h.now()

	return h.uowFactory.WithinTx(ctx, func(uow UnitOfWork) error {
		ch, err := loadOrStartChallenge(ctx, uow, ref, now)
		if err != nil {
			return err
		}
		if err := ch.UpdateDayNotes(cmd.Day, cmd.Notes, now); err != nil {
			return err
		}
		if err := uow.Challenges().Save(ctx, ch); err != nil {
			return fmt.Errorf("update_challenge_notes: failed to save challenge: %w", err)
		}
		return nil
	})
}
