// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types - these drive the event-driven architecture.
// Each event represents something significant that happened in the domain.
const (
	// Progression events
	EventXPGained    EventType = "progression.xp_gained"
	EventLevelUp     EventType = "progression.level_up"
	EventBadgeEarned EventType = "progression.badge_earned"
	EventStateReset  EventType = "progression.state_reset"

	// Challenge events
	EventChallengeDayCompleted EventType = "challenge.day_completed"
	EventChallengeCompleted    EventType = "challenge.completed"

	// Leaderboard events
	EventRankChanged        EventType = "leaderboard.rank_changed"
	EventLeaderboardRebuilt EventType = "leaderboard.rebuilt"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Progression Events
// ═══════════════════════════════════════════════════════════════════════════

// XPGainedEvent is emitted every time a user gains XP.
type XPGainedEvent struct {
	BaseEvent
	TenantID string `json:"tenant_id"`
	UserID   string `json:"user_id"`
	Amount   int    `json:"amount"`
	NewTotal int    `json:"new_total"`
	Reason   string `json:"reason"` // e.g. "winning_trade", "challenge_day", "badge_reward"
}

// Payload implements Event interface.
func (e XPGainedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"tenant_id": e.TenantID,
		"user_id":   e.UserID,
		"amount":    e.Amount,
		"new_total": e.NewTotal,
		"reason":    e.Reason,
	}
}

// NewXPGainedEvent creates a new XPGainedEvent.
func NewXPGainedEvent(ref UserRef, amount, newTotal int, reason string) XPGainedEvent {
	return XPGainedEvent{
		BaseEvent: NewBaseEvent(EventXPGained, ref.String()),
		TenantID:  ref.TenantID.String(),
		UserID:    ref.UserID.String(),
		Amount:    amount,
		NewTotal:  newTotal,
		Reason:    reason,
	}
}

// LevelUpEvent is emitted exactly once per threshold crossing.
type LevelUpEvent struct {
	BaseEvent
	TenantID  string `json:"tenant_id"`
	UserID    string `json:"user_id"`
	OldLevel  int    `json:"old_level"`
	NewLevel  int    `json:"new_level"`
	LevelName string `json:"level_name"`
	TotalXP   int    `json:"total_xp"`
}

// Payload implements Event interface.
func (e LevelUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"tenant_id":  e.TenantID,
		"user_id":    e.UserID,
		"old_level":  e.OldLevel,
		"new_level":  e.NewLevel,
		"level_name": e.LevelName,
		"total_xp":   e.TotalXP,
	}
}

// NewLevelUpEvent creates a new LevelUpEvent.
func NewLevelUpEvent(ref UserRef, oldLevel, newLevel int, levelName string, totalXP int) LevelUpEvent {
	return LevelUpEvent{
		BaseEvent: NewBaseEvent(EventLevelUp, ref.String()),
		TenantID:  ref.TenantID.String(),
		UserID:    ref.UserID.String(),
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
		LevelName: levelName,
		TotalXP:   totalXP,
	}
}

// BadgeEarnedEvent is emitted when a badge predicate first becomes true.
type BadgeEarnedEvent struct {
	BaseEvent
	TenantID  string `json:"tenant_id"`
	UserID    string `json:"user_id"`
	BadgeID   string `json:"badge_id"`
	BadgeName string `json:"badge_name"`
	XPReward  int    `json:"xp_reward"`
}

// Payload implements Event interface.
func (e BadgeEarnedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"tenant_id":  e.TenantID,
		"user_id":    e.UserID,
		"badge_id":   e.BadgeID,
		"badge_name": e.BadgeName,
		"xp_reward":  e.XPReward,
	}
}

// NewBadgeEarnedEvent creates a new BadgeEarnedEvent.
func NewBadgeEarnedEvent(ref UserRef, badgeID, badgeName string, xpReward int) BadgeEarnedEvent {
	return BadgeEarnedEvent{
		BaseEvent: NewBaseEvent(EventBadgeEarned, ref.String()),
		TenantID:  ref.TenantID.String(),
		UserID:    ref.UserID.String(),
		BadgeID:   badgeID,
		BadgeName: badgeName,
		XPReward:  xpReward,
	}
}

// StateResetEvent is emitted on an explicit administrative reset.
type StateResetEvent struct {
	BaseEvent
	TenantID   string `json:"tenant_id"`
	UserID     string `json:"user_id"`
	PreviousXP int    `json:"previous_xp"`
	ResetBy    string `json:"reset_by"`
}

// Payload implements Event interface.
func (e StateResetEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"tenant_id":   e.TenantID,
		"user_id":     e.UserID,
		"previous_xp": e.PreviousXP,
		"reset_by":    e.ResetBy,
	}
}

// NewStateResetEvent creates a new StateResetEvent.
func NewStateResetEvent(ref UserRef, previousXP int, resetBy string) StateResetEvent {
	return StateResetEvent{
		BaseEvent:  NewBaseEvent(EventStateReset, ref.String()),
		TenantID:   ref.TenantID.String(),
		UserID:     ref.UserID.String(),
		PreviousXP: previousXP,
		ResetBy:    resetBy,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Challenge Events
// ═══════════════════════════════════════════════════════════════════════════

// ChallengeDayCompletedEvent is emitted when a challenge day is first completed.
type ChallengeDayCompletedEvent struct {
	BaseEvent
	TenantID    string `json:"tenant_id"`
	UserID      string `json:"user_id"`
	ChallengeID string `json:"challenge_id"`
	DayNumber   int    `json:"day_number"`
	XPGranted   int    `json:"xp_granted"`
}

// Payload implements Event interface.
func (e ChallengeDayCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"tenant_id":    e.TenantID,
		"user_id":      e.UserID,
		"challenge_id": e.ChallengeID,
		"day_number":   e.DayNumber,
		"xp_granted":   e.XPGranted,
	}
}

// NewChallengeDayCompletedEvent creates a new ChallengeDayCompletedEvent.
func NewChallengeDayCompletedEvent(ref UserRef, challengeID string, dayNumber, xpGranted int) ChallengeDayCompletedEvent {
	return ChallengeDayCompletedEvent{
		BaseEvent:   NewBaseEvent(EventChallengeDayCompleted, ref.String()),
		TenantID:    ref.TenantID.String(),
		UserID:      ref.UserID.String(),
		ChallengeID: challengeID,
		DayNumber:   dayNumber,
		XPGranted:   xpGranted,
	}
}

// ChallengeCompletedEvent is emitted when all 30 days are completed.
type ChallengeCompletedEvent struct {
	BaseEvent
	TenantID    string `json:"tenant_id"`
	UserID      string `json:"user_id"`
	ChallengeID string `json:"challenge_id"`
	BonusXP     int    `json:"bonus_xp"`
}

// Payload implements Event interface.
func (e ChallengeCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"tenant_id":    e.TenantID,
		"user_id":      e.UserID,
		"challenge_id": e.ChallengeID,
		"bonus_xp":     e.BonusXP,
	}
}

// NewChallengeCompletedEvent creates a new ChallengeCompletedEvent.
func NewChallengeCompletedEvent(ref UserRef, challengeID string, bonusXP int) ChallengeCompletedEvent {
	return ChallengeCompletedEvent{
		BaseEvent:   NewBaseEvent(EventChallengeCompleted, ref.String()),
		TenantID:    ref.TenantID.String(),
		UserID:      ref.UserID.String(),
		ChallengeID: challengeID,
		BonusXP:     bonusXP,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Leaderboard Events
// ═══════════════════════════════════════════════════════════════════════════

// LeaderboardRebuiltEvent is emitted after a snapshot rebuild of a tenant's
// leaderboard cache.
type LeaderboardRebuiltEvent struct {
	BaseEvent
	TenantID   string `json:"tenant_id"`
	EntryCount int    `json:"entry_count"`
}

// Payload implements Event interface.
func (e LeaderboardRebuiltEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"tenant_id":   e.TenantID,
		"entry_count": e.EntryCount,
	}
}

// NewLeaderboardRebuiltEvent creates a new LeaderboardRebuiltEvent.
func NewLeaderboardRebuiltEvent(tenantID TenantID, entryCount int) LeaderboardRebuiltEvent {
	return LeaderboardRebuiltEvent{
		BaseEvent:  NewBaseEvent(EventLeaderboardRebuilt, tenantID.String()),
		TenantID:   tenantID.String(),
		EntryCount: entryCount,
	}
}

// RankChangedEvent is emitted when a rebuild moves a user to a different
// leaderboard position. OldRank is zero for users entering the ranking.
type RankChangedEvent struct {
	BaseEvent
	TenantID string `json:"tenant_id"`
	UserID   string `json:"user_id"`
	OldRank  int    `json:"old_rank"`
	NewRank  int    `json:"new_rank"`
}

// Payload implements Event interface.
func (e RankChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"tenant_id": e.TenantID,
		"user_id":   e.UserID,
		"old_rank":  e.OldRank,
		"new_rank":  e.NewRank,
	}
}

// NewRankChangedEvent creates a new RankChangedEvent.
func NewRankChangedEvent(ref UserRef, oldRank, newRank int) RankChangedEvent {
	return RankChangedEvent{
		BaseEvent: NewBaseEvent(EventRankChanged, ref.String()),
		TenantID:  ref.TenantID.String(),
		UserID:    ref.UserID.String(),
		OldRank:   oldRank,
		NewRank:   newRank,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Bus Contracts
// ═══════════════════════════════════════════════════════════════════════════

// EventHandler processes domain events.
type EventHandler interface {
	// Handle processes the event. Errors are logged by the bus, not propagated
	// to the publisher.
	Handle(event Event) error

	// Name returns the handler name for logging.
	Name() string
}

// EventPublisher publishes domain events.
type EventPublisher interface {
	// Publish dispatches the event to all subscribed handlers.
	Publish(event Event) error
}

// EventSubscriber registers handlers for events.
type EventSubscriber interface {
	// Subscribe registers a handler for a specific event type.
	Subscribe(eventType EventType, handler EventHandler)

	// SubscribeAll registers a handler for all event types.
	SubscribeAll(handler EventHandler)
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
