package progression

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentora-hub/mentora-progression/internal/domain/shared"
)

func TestNewState_Validation(t *testing.T) {
	now := time.Now()

	_, err := NewState(shared.UserRef{TenantID: "", UserID: "u1"}, "x", now)
	assert.ErrorIs(t, err, shared.ErrInvalidTenantID)

	_, err = NewState(shared.UserRef{TenantID: "acme", UserID: ""}, "x", now)
	assert.ErrorIs(t, err, shared.ErrInvalidUserID)

	state, err := NewState(shared.UserRef{TenantID: "acme", UserID: "u1"}, "Trader", now)
	require.NoError(t, err)
	assert.Equal(t, XP(0), state.XP)
	assert.Empty(t, state.Badges)
}

func TestRecordTrade_StreakRules(t *testing.T) {
	state := newTestState(t)
	now := weekdayNoon

	require.NoError(t, state.RecordTrade(OutcomeWin, now))
	require.NoError(t, state.RecordTrade(OutcomeWin, now))
	assert.Equal(t, 2, state.CurrentStreak)
	assert.Equal(t, 2, state.BestStreak)

	// Безубыток тоже обрывает серию.
	require.NoError(t, state.RecordTrade(OutcomeBreakeven, now))
	assert.Equal(t, 0, state.CurrentStreak)
	assert.Equal(t, 2, state.BestStreak)

	require.NoError(t, state.RecordTrade(OutcomeWin, now))
	assert.Equal(t, 1, state.CurrentStreak)
	assert.Equal(t, 2, state.BestStreak)

	err := state.RecordTrade("draw", now)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestState_WinRate(t *testing.T) {
	state := newTestState(t)
	assert.Equal(t, float64(0), state.WinRate())

	state.TotalTrades = 4
	state.WinningTrades = 3
	assert.InDelta(t, 75.0, state.WinRate(), 0.001)
}

func TestAwardBadge_Duplicate(t *testing.T) {
	state := newTestState(t)

	require.NoError(t, state.AwardBadge(BadgeFirstTrade, weekdayNoon))
	err := state.AwardBadge(BadgeFirstTrade, weekdayNoon)
	assert.ErrorIs(t, err, shared.ErrInvariantBroken)
	assert.Len(t, state.Badges, 1)
}

func TestState_Reset(t *testing.T) {
	state := newTestState(t)
	state.XP = 500
	state.TotalTrades = 10
	state.WinningTrades = 6
	state.CurrentStreak = 2
	state.BestStreak = 4
	require.NoError(t, state.AwardBadge(BadgeFirstTrade, weekdayNoon))

	later := weekdayNoon.Add(time.Hour)
	state.Reset(later)

	assert.Equal(t, XP(0), state.XP)
	assert.Equal(t, 0, state.TotalTrades)
	assert.Equal(t, 0, state.BestStreak)
	assert.Empty(t, state.Badges)
	assert.Equal(t, later, state.UpdatedAt)
	assert.Equal(t, weekdayNoon, state.CreatedAt)
}

func TestState_Clone(t *testing.T) {
	state := newTestState(t)
	require.NoError(t, state.AwardBadge(BadgeFirstTrade, weekdayNoon))

	clone := state.Clone()
	require.NoError(t, clone.AwardBadge(BadgeTrader10, weekdayNoon))
	clone.XP = 999

	assert.Len(t, state.Badges, 1)
	assert.Equal(t, XP(0), state.XP)
	assert.Len(t, clone.Badges, 2)
}

func TestCatalog_DuplicateID(t *testing.T) {
	pred := func(_ *State, _ EvaluationContext) bool { return false }

	_, err := NewCatalog([]BadgeDefinition{
		{ID: "dup", Name: "a", Earned: pred},
		{ID: "dup", Name: "b", Earned: pred},
	})
	assert.Error(t, err)

	_, err = NewCatalog([]BadgeDefinition{{ID: "", Name: "a", Earned: pred}})
	assert.Error(t, err)

	_, err = NewCatalog([]BadgeDefinition{{ID: "x", Name: "a"}})
	assert.Error(t, err)
}

func TestDefaultCatalog_Size(t *testing.T) {
	catalog := DefaultCatalog(DefaultLevelTable())
	assert.Equal(t, 25, catalog.Count())

	def, ok := catalog.Get(BadgeFirstTrade)
	require.True(t, ok)
	assert.Equal(t, "Primeiro Trade", def.Name)
	assert.Equal(t, XP(50), def.XPReward)
}
