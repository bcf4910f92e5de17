package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentora-hub/mentora-progression/internal/domain/challenge"
	"github.com/mentora-hub/mentora-progression/internal/domain/progression"
	"github.com/mentora-hub/mentora-progression/internal/domain/shared"
)

func newChallengeHandler(store *memStore) (*CompleteChallengeDayHandler, *memPublisher) {
	publisher := &memPublisher{}
	h := NewCompleteChallengeDayHandler(
		progression.NewDefaultEngine(),
		&memFactory{store: store},
		&memCache{},
		publisher,
	)
	h.now = func() time.Time { return time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC) }
	return h, publisher
}

func TestCompleteChallengeDay_FirstDayStartsChallenge(t *testing.T) {
	store := newMemStore()
	h, publisher := newChallengeHandler(store)

	result, err := h.Handle(context.Background(), CompleteChallengeDayCommand{
		TenantID: "acme",
		UserID:   "user-1",
		Day:      1,
		Notes:    "primeiro dia",
	})
	require.NoError(t, err)

	// 50 за день + 50 за challenge_started.
	assert.Equal(t, 100, result.XPEarned)
	assert.Equal(t, 1, result.DaysCompleted)
	assert.False(t, result.ChallengeCompleted)
	assert.Equal(t, 2, result.Overview.CurrentDay)
	require.Len(t, result.NewBadges, 1)
	assert.Equal(t, progression.BadgeChallengeStarted, result.NewBadges[0].ID)

	ref := shared.UserRef{TenantID: "acme", UserID: "user-1"}
	ch := store.challenges[challengeKey(ref, challenge.DefaultChallengeID)]
	require.NotNil(t, ch)
	assert.True(t, ch.IsDayCompleted(1))
	assert.NotEmpty(t, publisher.published())
}

func TestCompleteChallengeDay_DuplicateDay(t *testing.T) {
	store := newMemStore()
	h, publisher := newChallengeHandler(store)
	ctx := context.Background()

	cmd := CompleteChallengeDayCommand{TenantID: "acme", UserID: "user-1", Day: 3}
	first, err := h.Handle(ctx, cmd)
	require.NoError(t, err)
	eventsAfterFirst := len(publisher.published())
	txsAfterFirst := len(store.txs)

	// Повтор: без ошибки, существующая запись возвращается как есть.
	repeat, err := h.Handle(ctx, cmd)
	require.NoError(t, err)
	assert.True(t, repeat.AlreadyCompleted)
	assert.Equal(t, 0, repeat.XPEarned)
	assert.Equal(t, 1, repeat.DaysCompleted)
	assert.Equal(t, first.CompletedAt, repeat.CompletedAt)
	assert.Equal(t, first.TotalXP, repeat.TotalXP)

	// Ни событий, ни транзакций на повторе.
	assert.Len(t, publisher.published(), eventsAfterFirst)
	assert.Len(t, store.txs, txsAfterFirst)
}

func TestCompleteChallengeDay_TransactionMetadata(t *testing.T) {
	store := newMemStore()
	h, _ := newChallengeHandler(store)

	_, err := h.Handle(context.Background(), CompleteChallengeDayCommand{TenantID: "acme", UserID: "user-1", Day: 7})
	require.NoError(t, err)

	var dayTx *progression.XPTransaction
	for i := range store.txs {
		if store.txs[i].Reason == progression.ReasonChallengeDay {
			dayTx = &store.txs[i]
		}
	}
	require.NotNil(t, dayTx)
	assert.Equal(t, "7", dayTx.Metadata["day"])
	assert.Equal(t, challenge.DefaultChallengeID, dayTx.Metadata["challenge_id"])
}

func TestCompleteChallengeDay_Validation(t *testing.T) {
	h, _ := newChallengeHandler(newMemStore())
	ctx := context.Background()

	_, err := h.Handle(ctx, CompleteChallengeDayCommand{TenantID: "acme", UserID: "u", Day: 0})
	assert.Error(t, err)
	_, err = h.Handle(ctx, CompleteChallengeDayCommand{TenantID: "acme", UserID: "u", Day: 31})
	assert.Error(t, err)
	_, err = h.Handle(ctx, CompleteChallengeDayCommand{TenantID: "", UserID: "u", Day: 1})
	assert.Error(t, err)
}

func TestCompleteChallengeDay_FinishGrantsBonus(t *testing.T) {
	store := newMemStore()
	h, _ := newChallengeHandler(store)
	ctx := context.Background()

	for day := 1; day < challenge.TotalDays; day++ {
		_, err := h.Handle(ctx, CompleteChallengeDayCommand{TenantID: "acme", UserID: "user-1", Day: day})
		require.NoError(t, err)
	}

	result, err := h.Handle(ctx, CompleteChallengeDayCommand{TenantID: "acme", UserID: "user-1", Day: challenge.TotalDays})
	require.NoError(t, err)

	assert.True(t, result.ChallengeCompleted)
	assert.Equal(t, challenge.TotalDays, result.DaysCompleted)
	assert.Equal(t, 100, result.Overview.ProgressPercent)
	assert.Equal(t, challenge.TotalDays, result.Overview.CurrentDay)

	ids := make([]progression.BadgeID, 0, len(result.NewBadges))
	for _, b := range result.NewBadges {
		ids = append(ids, b.ID)
	}
	assert.Contains(t, ids, progression.BadgeChallengeComplete)

	// День 30: 50 + бонус 500 + награда бейджа 1000.
	assert.Equal(t, 1550, result.XPEarned)

	// Финальное событие челленджа опубликовано.
	hasCompleted := false
	for _, ev := range result.Events {
		if ev.EventType() == shared.EventChallengeCompleted {
			hasCompleted = true
		}
	}
	assert.True(t, hasCompleted)
}

func TestUpdateChallengeNotes(t *testing.T) {
	store := newMemStore()
	h, _ := newChallengeHandler(store)
	ctx := context.Background()

	_, err := h.Handle(ctx, CompleteChallengeDayCommand{TenantID: "acme", UserID: "user-1", Day: 1, Notes: "antes"})
	require.NoError(t, err)

	notesHandler := NewUpdateChallengeNotesHandler(&memFactory{store: store})
	err = notesHandler.Handle(ctx, UpdateChallengeNotesCommand{TenantID: "acme", UserID: "user-1", Day: 1, Notes: "depois"})
	require.NoError(t, err)

	ref := shared.UserRef{TenantID: "acme", UserID: "user-1"}
	ch := store.challenges[challengeKey(ref, challenge.DefaultChallengeID)]
	assert.Equal(t, "depois", ch.Days()[0].Notes)

	// Заметка на незавершённом дне создаёт запись, день остаётся открытым.
	err = notesHandler.Handle(ctx, UpdateChallengeNotesCommand{TenantID: "acme", UserID: "user-1", Day: 2, Notes: "plano"})
	require.NoError(t, err)
	ch = store.challenges[challengeKey(ref, challenge.DefaultChallengeID)]
	assert.False(t, ch.IsDayCompleted(2))
	assert.Equal(t, 1, ch.DaysCompleted())
}

func TestUpdateChallengeNotes_StartsChallengeLazily(t *testing.T) {
	store := newMemStore()
	notesHandler := NewUpdateChallengeNotesHandler(&memFactory{store: store})

	// Запись заметки до первого завершённого дня сама создаёт челлендж.
	err := notesHandler.Handle(context.Background(), UpdateChallengeNotesCommand{TenantID: "acme", UserID: "novato", Day: 1, Notes: "objetivos"})
	require.NoError(t, err)

	ref := shared.UserRef{TenantID: "acme", UserID: "novato"}
	ch := store.challenges[challengeKey(ref, challenge.DefaultChallengeID)]
	require.NotNil(t, ch)
	assert.Equal(t, 0, ch.DaysCompleted())
	assert.Equal(t, "objetivos", ch.Days()[0].Notes)
}
