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

func TestResetProgress(t *testing.T) {
	store := newMemStore()
	cache := &memCache{}
	publisher := &memPublisher{}

	// Наполняем состояние через трейды.
	trade, _, _ := newTradeHandler(store)
	_, err := trade.Handle(context.Background(), RegisterTradeCommand{
		TenantID: "acme", UserID: "user-1", Outcome: progression.OutcomeWin,
	})
	require.NoError(t, err)

	h := NewResetProgressHandler(&memFactory{store: store}, cache, publisher)
	h.now = func() time.Time { return time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC) }

	result, err := h.Handle(context.Background(), ResetProgressCommand{
		TenantID: "acme", UserID: "user-1", ResetBy: "admin",
	})
	require.NoError(t, err)

	assert.Equal(t, 80, result.PreviousXP)
	assert.Equal(t, 1, result.PreviousBadges)

	ref := shared.UserRef{TenantID: "acme", UserID: "user-1"}
	state := store.states[ref.String()]
	assert.Equal(t, progression.XP(0), state.XP)
	assert.Empty(t, state.Badges)
	assert.Equal(t, 0, state.TotalTrades)

	// Журнал XP сохраняется для аудита.
	assert.NotEmpty(t, store.txs)
	assert.Contains(t, cache.invalidated, shared.TenantID("acme"))
}

func TestResetProgress_Validation(t *testing.T) {
	h := NewResetProgressHandler(&memFactory{store: newMemStore()}, &memCache{}, &memPublisher{})

	_, err := h.Handle(context.Background(), ResetProgressCommand{TenantID: "t", UserID: "u"})
	assert.Error(t, err)
	_, err = h.Handle(context.Background(), ResetProgressCommand{UserID: "u", ResetBy: "admin"})
	assert.Error(t, err)
}

func TestResetProgress_MissingState(t *testing.T) {
	h := NewResetProgressHandler(&memFactory{store: newMemStore()}, &memCache{}, &memPublisher{})
	h.now = time.Now

	_, err := h.Handle(context.Background(), ResetProgressCommand{TenantID: "t", UserID: "ghost", ResetBy: "admin"})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
