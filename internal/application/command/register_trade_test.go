package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentora-hub/mentora-progression/internal/domain/progression"
	"github.com/mentora-hub/mentora-progression/internal/domain/shared"
)

func newTradeHandler(store *memStore) (*RegisterTradeHandler, *memCache, *memPublisher) {
	cache := &memCache{}
	publisher := &memPublisher{}
	h := NewRegisterTradeHandler(
		progression.NewDefaultEngine(),
		&memFactory{store: store},
		&memHistory{store: store},
		&memChallenges{store: store},
		cache,
		publisher,
	)
	h.now = func() time.Time { return time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC) }
	return h, cache, publisher
}

func TestRegisterTrade_FirstWinProvisionsState(t *testing.T) {
	store := newMemStore()
	h, cache, publisher := newTradeHandler(store)

	result, err := h.Handle(context.Background(), RegisterTradeCommand{
		TenantID:    "acme",
		UserID:      "user-1",
		DisplayName: "Trader One",
		Outcome:     progression.OutcomeWin,
	})
	require.NoError(t, err)

	assert.Equal(t, 80, result.XPEarned)
	assert.Equal(t, 80, result.TotalXP)
	assert.Equal(t, 1, result.Level)
	assert.Equal(t, 1, result.CurrentStreak)
	require.Len(t, result.NewBadges, 1)
	assert.Equal(t, progression.BadgeFirstTrade, result.NewBadges[0].ID)

	// Состояние, журнал и история записаны.
	ref := shared.UserRef{TenantID: "acme", UserID: "user-1"}
	saved, ok := store.states[ref.String()]
	require.True(t, ok)
	assert.Equal(t, progression.XP(80), saved.XP)
	assert.Len(t, store.txs, 2)
	assert.Len(t, store.history[ref.String()], 1)

	// Кэш рейтинга сброшен, события опубликованы.
	assert.Equal(t, []shared.TenantID{"acme"}, cache.invalidated)
	assert.NotEmpty(t, publisher.published())
}

func TestRegisterTrade_Validation(t *testing.T) {
	h, _, _ := newTradeHandler(newMemStore())

	_, err := h.Handle(context.Background(), RegisterTradeCommand{UserID: "u", Outcome: progression.OutcomeWin})
	assert.Error(t, err)

	_, err = h.Handle(context.Background(), RegisterTradeCommand{TenantID: "t", Outcome: progression.OutcomeWin})
	assert.Error(t, err)

	_, err = h.Handle(context.Background(), RegisterTradeCommand{TenantID: "t", UserID: "u", Outcome: "draw"})
	assert.Error(t, err)
}

func TestRegisterTrade_StreakAcrossCalls(t *testing.T) {
	store := newMemStore()
	h, _, _ := newTradeHandler(store)
	ctx := context.Background()

	cmd := RegisterTradeCommand{TenantID: "acme", UserID: "user-1", Outcome: progression.OutcomeWin}
	for i := 0; i < 3; i++ {
		_, err := h.Handle(ctx, cmd)
		require.NoError(t, err)
	}

	result, err := h.Handle(ctx, RegisterTradeCommand{TenantID: "acme", UserID: "user-1", Outcome: progression.OutcomeLoss})
	require.NoError(t, err)
	assert.Equal(t, 0, result.CurrentStreak)
	assert.Equal(t, 3, result.BestStreak)

	ref := shared.UserRef{TenantID: "acme", UserID: "user-1"}
	assert.True(t, store.states[ref.String()].HasBadge(progression.BadgeStreak3))
	assert.Len(t, store.history[ref.String()], 4)
}

func TestRegisterTrade_TenantIsolation(t *testing.T) {
	store := newMemStore()
	h, _, _ := newTradeHandler(store)
	ctx := context.Background()

	_, err := h.Handle(ctx, RegisterTradeCommand{TenantID: "acme", UserID: "user-1", Outcome: progression.OutcomeWin})
	require.NoError(t, err)
	_, err = h.Handle(ctx, RegisterTradeCommand{TenantID: "globex", UserID: "user-1", Outcome: progression.OutcomeLoss})
	require.NoError(t, err)

	acme := store.states[shared.UserRef{TenantID: "acme", UserID: "user-1"}.String()]
	globex := store.states[shared.UserRef{TenantID: "globex", UserID: "user-1"}.String()]
	assert.Equal(t, progression.XP(80), acme.XP)
	assert.Equal(t, progression.XP(60), globex.XP)
}
