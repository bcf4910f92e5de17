package progression

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentora-hub/mentora-progression/internal/domain/shared"
)

// Среда, 12:00 - не задевает бейджи времени суток и выходных.
var weekdayNoon = time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)

func newTestState(t *testing.T) *State {
	t.Helper()
	ref := shared.UserRef{TenantID: "acme", UserID: "user-1"}
	state, err := NewState(ref, "Trader One", weekdayNoon)
	require.NoError(t, err)
	return state
}

func TestApplyTrade_FirstWin(t *testing.T) {
	engine := NewDefaultEngine()
	state := newTestState(t)

	result, err := engine.ApplyTrade(state, OutcomeWin, EvaluationContext{TradeAt: weekdayNoon}, weekdayNoon)
	require.NoError(t, err)

	// 30 за победный трейд + 50 за first_trade.
	assert.Equal(t, XP(80), result.XPEarned)
	assert.Equal(t, XP(80), state.XP)
	assert.Equal(t, []BadgeID{BadgeFirstTrade}, result.BadgeIDs())
	assert.False(t, result.LeveledUp)

	require.Len(t, result.Transactions, 2)
	assert.Equal(t, ReasonWinningTrade, result.Transactions[0].Reason)
	assert.Equal(t, XP(30), result.Transactions[0].Amount)
	assert.Equal(t, ReasonBadgeEarned, result.Transactions[1].Reason)
	assert.Equal(t, BadgeFirstTrade, result.Transactions[1].BadgeID)

	assert.Equal(t, 1, state.TotalTrades)
	assert.Equal(t, 1, state.WinningTrades)
	assert.Equal(t, 1, state.CurrentStreak)
}

func TestApplyTrade_LossBaseXP(t *testing.T) {
	engine := NewDefaultEngine()
	state := newTestState(t)

	result, err := engine.ApplyTrade(state, OutcomeLoss, EvaluationContext{TradeAt: weekdayNoon}, weekdayNoon)
	require.NoError(t, err)

	// 10 за трейд + 50 за first_trade: бейдж не зависит от исхода.
	assert.Equal(t, XP(60), result.XPEarned)
	assert.Equal(t, ReasonTradeRegistered, result.Transactions[0].Reason)
	assert.Equal(t, 0, state.CurrentStreak)
}

func TestApplyTrade_StreakBadges(t *testing.T) {
	engine := NewDefaultEngine()
	state := newTestState(t)
	ctx := EvaluationContext{TradeAt: weekdayNoon}

	for i := 0; i < 3; i++ {
		_, err := engine.ApplyTrade(state, OutcomeWin, ctx, weekdayNoon)
		require.NoError(t, err)
	}

	assert.Equal(t, 3, state.CurrentStreak)
	assert.Equal(t, 3, state.BestStreak)
	assert.True(t, state.HasBadge(BadgeStreak3))
	assert.False(t, state.HasBadge(BadgeStreak5))

	// Поражение обрывает серию, но рекорд и бейдж остаются.
	_, err := engine.ApplyTrade(state, OutcomeLoss, ctx, weekdayNoon)
	require.NoError(t, err)
	assert.Equal(t, 0, state.CurrentStreak)
	assert.Equal(t, 3, state.BestStreak)
	assert.True(t, state.HasBadge(BadgeStreak3))
}

func TestApplyGrant_LevelUp(t *testing.T) {
	engine := NewDefaultEngine()
	state := newTestState(t)
	state.XP = 90

	result, err := engine.ApplyGrant(state, 50, ReasonManualGrant, nil, EvaluationContext{}, weekdayNoon)
	require.NoError(t, err)

	assert.True(t, result.LeveledUp)
	assert.Equal(t, 2, result.NewLevel)
	assert.Equal(t, "Aprendiz", result.NewLevelName)
	assert.True(t, state.HasBadge(BadgeLevel2))
}

func TestApplyGrant_NoLevelUpWithinLevel(t *testing.T) {
	engine := NewDefaultEngine()
	state := newTestState(t)
	state.XP = 150
	require.NoError(t, state.AwardBadge(BadgeLevel2, weekdayNoon))

	result, err := engine.ApplyGrant(state, 10, ReasonManualGrant, nil, EvaluationContext{}, weekdayNoon)
	require.NoError(t, err)

	assert.False(t, result.LeveledUp)
	assert.Equal(t, 0, result.NewLevel)
}

func TestApplyGrant_BadgeRewardCascade(t *testing.T) {
	engine := NewDefaultEngine()
	state := newTestState(t)
	state.XP = 950
	require.NoError(t, state.AwardBadge(BadgeLevel2, weekdayNoon))

	// 950+100 = 1050 -> xp_1000 даёт ещё 100, уровень считается после каскада.
	result, err := engine.ApplyGrant(state, 100, ReasonManualGrant, nil, EvaluationContext{}, weekdayNoon)
	require.NoError(t, err)

	assert.Equal(t, XP(200), result.XPEarned)
	assert.Equal(t, XP(1150), state.XP)
	assert.Equal(t, []BadgeID{BadgeXP1000}, result.BadgeIDs())
	require.Len(t, result.Transactions, 2)
	assert.Equal(t, ReasonBadgeEarned, result.Transactions[1].Reason)
}

func TestApplyGrant_MetadataOnBaseTransaction(t *testing.T) {
	engine := NewDefaultEngine()
	state := newTestState(t)
	state.XP = 950
	require.NoError(t, state.AwardBadge(BadgeLevel2, weekdayNoon))

	meta := map[string]string{"challenge_id": "challenge_30_dias", "day": "7"}
	result, err := engine.ApplyGrant(state, 100, ReasonChallengeDay, meta, EvaluationContext{}, weekdayNoon)
	require.NoError(t, err)

	// Метаданные только на базовой транзакции, награды за бейджи без них.
	require.Len(t, result.Transactions, 2)
	assert.Equal(t, meta, result.Transactions[0].Metadata)
	assert.Nil(t, result.Transactions[1].Metadata)
}

func TestApplyGrant_InvalidAmount(t *testing.T) {
	engine := NewDefaultEngine()
	state := newTestState(t)

	_, err := engine.ApplyGrant(state, 0, ReasonManualGrant, nil, EvaluationContext{}, weekdayNoon)
	assert.ErrorIs(t, err, shared.ErrInvalidGrantAmount)

	_, err = engine.ApplyGrant(state, -5, ReasonManualGrant, nil, EvaluationContext{}, weekdayNoon)
	assert.ErrorIs(t, err, shared.ErrInvalidGrantAmount)
}

func TestApplyGrant_ChallengeBadges(t *testing.T) {
	engine := NewDefaultEngine()
	state := newTestState(t)
	require.NoError(t, state.AwardBadge(BadgeLevel2, weekdayNoon))

	ctx := EvaluationContext{ChallengeStarted: true, ChallengeDaysCompleted: 7}
	result, err := engine.ApplyGrant(state, 50, ReasonChallengeDay, nil, ctx, weekdayNoon)
	require.NoError(t, err)

	// 50 за день + 50 challenge_started + 200 challenge_week1.
	assert.Equal(t, XP(300), result.XPEarned)
	assert.ElementsMatch(t, []BadgeID{BadgeChallengeStarted, BadgeChallengeWeek1}, result.BadgeIDs())
}

func TestApplyTrade_WinrateBadges(t *testing.T) {
	engine := NewDefaultEngine()
	state := newTestState(t)
	state.TotalTrades = 19
	state.WinningTrades = 13
	require.NoError(t, state.AwardBadge(BadgeFirstTrade, weekdayNoon))
	require.NoError(t, state.AwardBadge(BadgeTrader10, weekdayNoon))

	// 20-й трейд, 14 побед -> 70%, но для winrate_60/70 мало трейдов.
	result, err := engine.ApplyTrade(state, OutcomeWin, EvaluationContext{TradeAt: weekdayNoon}, weekdayNoon)
	require.NoError(t, err)

	ids := result.BadgeIDs()
	assert.Contains(t, ids, BadgeWinrate50)
	assert.NotContains(t, ids, BadgeWinrate60)
	assert.NotContains(t, ids, BadgeWinrate70)
}

func TestApplyTrade_WinrateMasterAtHundredTrades(t *testing.T) {
	engine := NewDefaultEngine()
	state := newTestState(t)
	state.TotalTrades = 99
	state.WinningTrades = 69
	for _, id := range []BadgeID{BadgeFirstTrade, BadgeTrader10, BadgeTrader50, BadgeWinrate50, BadgeWinrate60} {
		require.NoError(t, state.AwardBadge(id, weekdayNoon))
	}

	// Ровно на 100-м трейде достигнуты и 100 трейдов, и 70% побед.
	result, err := engine.ApplyTrade(state, OutcomeWin, EvaluationContext{TradeAt: weekdayNoon}, weekdayNoon)
	require.NoError(t, err)
	assert.Contains(t, result.BadgeIDs(), BadgeWinrate70)

	// Повторной выдачи на следующем трейде нет.
	result, err = engine.ApplyTrade(state, OutcomeWin, EvaluationContext{TradeAt: weekdayNoon}, weekdayNoon)
	require.NoError(t, err)
	assert.NotContains(t, result.BadgeIDs(), BadgeWinrate70)
}

func TestApplyTrade_TimeOfDayBadges(t *testing.T) {
	engine := NewDefaultEngine()

	early := time.Date(2026, 3, 4, 6, 30, 0, 0, time.UTC)
	state := newTestState(t)
	_, err := engine.ApplyTrade(state, OutcomeLoss, EvaluationContext{TradeAt: early}, early)
	require.NoError(t, err)
	assert.True(t, state.HasBadge(BadgeEarlyBird))
	assert.False(t, state.HasBadge(BadgeNightOwl))

	late := time.Date(2026, 3, 4, 22, 5, 0, 0, time.UTC)
	state = newTestState(t)
	_, err = engine.ApplyTrade(state, OutcomeLoss, EvaluationContext{TradeAt: late}, late)
	require.NoError(t, err)
	assert.True(t, state.HasBadge(BadgeNightOwl))

	// Суббота.
	saturday := time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC)
	state = newTestState(t)
	_, err = engine.ApplyTrade(state, OutcomeLoss, EvaluationContext{TradeAt: saturday}, saturday)
	require.NoError(t, err)
	assert.True(t, state.HasBadge(BadgeWeekendWarrior))
}

func TestApplyTrade_PerfectWeek(t *testing.T) {
	engine := NewDefaultEngine()
	state := newTestState(t)

	wins := []TradeOutcome{OutcomeWin, OutcomeWin, OutcomeWin, OutcomeWin, OutcomeWin}
	ctx := EvaluationContext{TradeAt: weekdayNoon, RecentOutcomes: wins}
	_, err := engine.ApplyTrade(state, OutcomeWin, ctx, weekdayNoon)
	require.NoError(t, err)
	assert.True(t, state.HasBadge(BadgePerfectWeek))

	// Четырёх побед недостаточно.
	state = newTestState(t)
	ctx.RecentOutcomes = wins[:4]
	_, err = engine.ApplyTrade(state, OutcomeWin, ctx, weekdayNoon)
	require.NoError(t, err)
	assert.False(t, state.HasBadge(BadgePerfectWeek))
}

func TestEvaluateBadges_DivergenceGuard(t *testing.T) {
	levels := DefaultLevelTable()
	// Цепочка наград длиннее лимита проходов: каждый бейдж открывает следующий.
	catalog, err := NewCatalog([]BadgeDefinition{
		{ID: "b4", Name: "b4", Earned: xpAtLeast(400), XPReward: 0},
		{ID: "b3", Name: "b3", Earned: xpAtLeast(300), XPReward: 100},
		{ID: "b2", Name: "b2", Earned: xpAtLeast(200), XPReward: 100},
		{ID: "b1", Name: "b1", Earned: xpAtLeast(100), XPReward: 100},
	})
	require.NoError(t, err)

	engine := NewEngine(levels, catalog)
	state := newTestState(t)
	state.XP = 50

	_, err = engine.ApplyGrant(state, 50, ReasonManualGrant, nil, EvaluationContext{}, weekdayNoon)
	assert.ErrorIs(t, err, shared.ErrBadgeEvalDiverged)
}

func TestApplyTrade_NilState(t *testing.T) {
	engine := NewDefaultEngine()

	_, err := engine.ApplyTrade(nil, OutcomeWin, EvaluationContext{}, weekdayNoon)
	assert.ErrorIs(t, err, shared.ErrStateNotFound)
}

func TestApplyTrade_BadgeNeverAwardedTwice(t *testing.T) {
	engine := NewDefaultEngine()
	state := newTestState(t)
	ctx := EvaluationContext{TradeAt: weekdayNoon}

	_, err := engine.ApplyTrade(state, OutcomeWin, ctx, weekdayNoon)
	require.NoError(t, err)
	result, err := engine.ApplyTrade(state, OutcomeWin, ctx, weekdayNoon)
	require.NoError(t, err)

	assert.NotContains(t, result.BadgeIDs(), BadgeFirstTrade)
	count := 0
	for _, b := range state.Badges {
		if b.ID == BadgeFirstTrade {
			count++
		}
	}
	assert.Equal(t, 1, count)
}
