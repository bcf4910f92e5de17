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

func newGrantHandler(store *memStore) (*GrantXPHandler, *memCache) {
	cache := &memCache{}
	h := NewGrantXPHandler(
		progression.NewDefaultEngine(),
		&memFactory{store: store},
		cache,
		&memPublisher{},
	)
	h.now = func() time.Time { return time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC) }
	return h, cache
}

func TestGrantXP_LevelUp(t *testing.T) {
	store := newMemStore()
	h, cache := newGrantHandler(store)

	result, err := h.Handle(context.Background(), GrantXPCommand{
		TenantID:  "acme",
		UserID:    "user-1",
		Amount:    150,
		Reason:    "promo",
		GrantedBy: "ops",
	})
	require.NoError(t, err)

	assert.Equal(t, 150, result.XPEarned)
	assert.Equal(t, 2, result.Level)
	assert.True(t, result.LeveledUp)
	assert.Equal(t, "Aprendiz", result.NewLevelName)
	assert.Equal(t, []shared.TenantID{"acme"}, cache.invalidated)

	ref := shared.UserRef{TenantID: "acme", UserID: "user-1"}
	require.Len(t, store.txs, 1)
	assert.Equal(t, "promo", store.txs[0].Reason)
	assert.Equal(t, ref, store.txs[0].Ref)
	// Оператор гранта сохраняется в метаданных транзакции.
	assert.Equal(t, "ops", store.txs[0].Metadata["granted_by"])
}

func TestGrantXP_Validation(t *testing.T) {
	h, _ := newGrantHandler(newMemStore())
	ctx := context.Background()

	_, err := h.Handle(ctx, GrantXPCommand{TenantID: "t", UserID: "u", Amount: 0})
	assert.Error(t, err)
	_, err = h.Handle(ctx, GrantXPCommand{TenantID: "t", UserID: "u", Amount: -10})
	assert.Error(t, err)
	_, err = h.Handle(ctx, GrantXPCommand{TenantID: "t", UserID: "u", Amount: maxGrantAmount + 1})
	assert.Error(t, err)
	_, err = h.Handle(ctx, GrantXPCommand{TenantID: "", UserID: "u", Amount: 10})
	assert.Error(t, err)
}

func TestGrantXP_DefaultReason(t *testing.T) {
	store := newMemStore()
	h, _ := newGrantHandler(store)

	_, err := h.Handle(context.Background(), GrantXPCommand{TenantID: "acme", UserID: "user-1", Amount: 10})
	require.NoError(t, err)
	require.Len(t, store.txs, 1)
	assert.Equal(t, progression.ReasonManualGrant, store.txs[0].Reason)
	assert.Nil(t, store.txs[0].Metadata)
}
