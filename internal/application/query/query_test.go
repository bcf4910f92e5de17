package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentora-hub/mentora-progression/internal/domain/challenge"
	"github.com/mentora-hub/mentora-progression/internal/domain/leaderboard"
	"github.com/mentora-hub/mentora-progression/internal/domain/progression"
	"github.com/mentora-hub/mentora-progression/internal/domain/shared"
)

// Простые фейки хранилищ для тестов запросов.

type fakeStates struct {
	states map[string]*progression.State
}

func (f *fakeStates) Get(_ context.Context, ref shared.UserRef) (*progression.State, error) {
	state, ok := f.states[ref.String()]
	if !ok {
		return nil, shared.ErrStateNotFound
	}
	return state, nil
}

func (f *fakeStates) GetForUpdate(ctx context.Context, ref shared.UserRef) (*progression.State, error) {
	return f.Get(ctx, ref)
}

func (f *fakeStates) Create(_ context.Context, _ *progression.State) error { return nil }
func (f *fakeStates) Save(_ context.Context, _ *progression.State) error   { return nil }

type fakeTxLog struct {
	txs []progression.XPTransaction
}

func (f *fakeTxLog) Append(_ context.Context, _ []progression.XPTransaction) error { return nil }

func (f *fakeTxLog) ListRecent(_ context.Context, _ shared.UserRef, limit int) ([]progression.XPTransaction, error) {
	if len(f.txs) > limit {
		return f.txs[:limit], nil
	}
	return f.txs, nil
}

type fakeLeaderboardRepo struct {
	entries []leaderboard.Entry
}

func (f *fakeLeaderboardRepo) Entries(_ context.Context, _ shared.TenantID) ([]leaderboard.Entry, error) {
	return append([]leaderboard.Entry(nil), f.entries...), nil
}

type fakeCache struct {
	ranking *leaderboard.Ranking
	puts    int
}

func (f *fakeCache) GetRanking(_ context.Context, _ shared.TenantID, _ int) (*leaderboard.Ranking, error) {
	if f.ranking == nil {
		return nil, shared.WrapError("leaderboard", "GetRanking", shared.ErrNotFound, "ranking not cached", nil)
	}
	return f.ranking, nil
}

func (f *fakeCache) PutRanking(_ context.Context, ranking *leaderboard.Ranking) error {
	f.ranking = ranking
	f.puts++
	return nil
}

func (f *fakeCache) Invalidate(_ context.Context, _ shared.TenantID) error {
	f.ranking = nil
	return nil
}

type fakeChallengeRepo struct {
	challenges map[string]*challenge.Challenge
}

func (f *fakeChallengeRepo) Get(_ context.Context, ref shared.UserRef, challengeID string) (*challenge.Challenge, error) {
	ch, ok := f.challenges[ref.String()+"#"+challengeID]
	if !ok {
		return nil, shared.WrapError("challenge", "Get", shared.ErrNotFound, "challenge not found", nil)
	}
	return ch, nil
}

func (f *fakeChallengeRepo) GetForUpdate(ctx context.Context, ref shared.UserRef, challengeID string) (*challenge.Challenge, error) {
	return f.Get(ctx, ref, challengeID)
}

func (f *fakeChallengeRepo) Create(_ context.Context, _ *challenge.Challenge) error { return nil }
func (f *fakeChallengeRepo) Save(_ context.Context, _ *challenge.Challenge) error   { return nil }

// ──────────────────────────────────────────────────────────────────────────────

var (
	testNow = time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	testRef = shared.UserRef{TenantID: "acme", UserID: "user-1"}
)

func seededState(t *testing.T) *progression.State {
	t.Helper()
	state, err := progression.NewState(testRef, "Trader One", testNow)
	require.NoError(t, err)
	state.XP = 250
	state.TotalTrades = 12
	state.WinningTrades = 8
	state.CurrentStreak = 2
	state.BestStreak = 4
	require.NoError(t, state.AwardBadge(progression.BadgeFirstTrade, testNow))
	require.NoError(t, state.AwardBadge(progression.BadgeTrader10, testNow))
	return state
}

func TestGetProgress(t *testing.T) {
	state := seededState(t)
	states := &fakeStates{states: map[string]*progression.State{testRef.String(): state}}
	txLog := &fakeTxLog{txs: []progression.XPTransaction{
		{Ref: testRef, Amount: 30, Reason: progression.ReasonWinningTrade, CreatedAt: testNow},
	}}

	h := NewGetProgressHandler(progression.NewDefaultEngine(), states, txLog)
	dto, err := h.Handle(context.Background(), GetProgressQuery{TenantID: "acme", UserID: "user-1"})
	require.NoError(t, err)

	assert.Equal(t, 250, dto.XP)
	assert.Equal(t, 2, dto.Level)
	assert.Equal(t, "Aprendiz", dto.LevelName)
	// Внутри уровня 2 (100..500): (150/400)*100 = 37.5 -> 38.
	assert.Equal(t, 38, dto.ProgressPercent)
	assert.Equal(t, 250, dto.XPToNextLevel)
	assert.InDelta(t, 66.67, dto.WinRate, 0.01)
	require.Len(t, dto.Badges, 2)
	assert.Equal(t, "Primeiro Trade", dto.Badges[0].Name)
	require.Len(t, dto.RecentTransactions, 1)
	assert.Equal(t, progression.ReasonWinningTrade, dto.RecentTransactions[0].Reason)
}

func TestGetProgress_NotFound(t *testing.T) {
	h := NewGetProgressHandler(progression.NewDefaultEngine(),
		&fakeStates{states: map[string]*progression.State{}}, &fakeTxLog{})

	_, err := h.Handle(context.Background(), GetProgressQuery{TenantID: "acme", UserID: "ghost"})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGetLeaderboard_CacheMissBuildsAndCaches(t *testing.T) {
	repo := &fakeLeaderboardRepo{entries: []leaderboard.Entry{
		{UserID: "u-carol", DisplayName: "Carol", XP: 300},
		{UserID: "u-alice", DisplayName: "Alice", XP: 500},
		{UserID: "u-bob", DisplayName: "Bob", XP: 500},
	}}
	cache := &fakeCache{}

	h := NewGetLeaderboardHandler(progression.NewDefaultEngine(), repo, cache)
	h.now = func() time.Time { return testNow }

	dto, err := h.Handle(context.Background(), GetLeaderboardQuery{TenantID: "acme"})
	require.NoError(t, err)

	require.Len(t, dto.Entries, 3)
	assert.False(t, dto.FromCache)
	assert.Equal(t, 1, cache.puts)

	// Позиции последовательные даже при равном XP.
	assert.Equal(t, []int{1, 2, 3}, []int{dto.Entries[0].Rank, dto.Entries[1].Rank, dto.Entries[2].Rank})
	assert.Equal(t, "Alice", dto.Entries[0].DisplayName)
	// Уровень вычислен из XP.
	assert.Equal(t, 3, dto.Entries[0].Level)
	assert.Equal(t, "Praticante", dto.Entries[0].LevelName)

	// Повторный запрос обслуживается из кэша.
	dto, err = h.Handle(context.Background(), GetLeaderboardQuery{TenantID: "acme"})
	require.NoError(t, err)
	assert.True(t, dto.FromCache)
	assert.Equal(t, 1, cache.puts)
}

func TestGetUserRank_Duality(t *testing.T) {
	repo := &fakeLeaderboardRepo{entries: []leaderboard.Entry{
		{UserID: "u-carol", DisplayName: "Carol", XP: 300},
		{UserID: "u-alice", DisplayName: "Alice", XP: 500},
		{UserID: "u-bob", DisplayName: "Bob", XP: 500},
	}}
	h := NewGetUserRankHandler(progression.NewDefaultEngine(), repo)

	// Оба лидера делят первый ранг, хотя в списке занимают позиции 1 и 2.
	dto, err := h.Handle(context.Background(), GetUserRankQuery{TenantID: "acme", UserID: "u-bob"})
	require.NoError(t, err)
	assert.Equal(t, 1, dto.Rank)
	assert.Equal(t, 3, dto.TotalUsers)
	assert.Equal(t, 500, dto.XP)

	dto, err = h.Handle(context.Background(), GetUserRankQuery{TenantID: "acme", UserID: "u-carol"})
	require.NoError(t, err)
	assert.Equal(t, 3, dto.Rank)

	_, err = h.Handle(context.Background(), GetUserRankQuery{TenantID: "acme", UserID: "u-ghost"})
	assert.ErrorIs(t, err, shared.ErrNotInLeaderboard)
}

func TestGetChallengeOverview(t *testing.T) {
	ch, err := challenge.New(testRef, challenge.DefaultChallengeID, testNow)
	require.NoError(t, err)
	for _, day := range []int{1, 2, 3} {
		_, err = ch.CompleteDay(day, "", testNow)
		require.NoError(t, err)
	}

	repo := &fakeChallengeRepo{challenges: map[string]*challenge.Challenge{
		testRef.String() + "#" + challenge.DefaultChallengeID: ch,
	}}
	h := NewGetChallengeOverviewHandler(repo)

	dto, err := h.Handle(context.Background(), GetChallengeOverviewQuery{TenantID: "acme", UserID: "user-1"})
	require.NoError(t, err)

	assert.True(t, dto.Started)
	assert.Equal(t, 4, dto.CurrentDay)
	assert.Equal(t, 3, dto.DaysCompleted)
	assert.Equal(t, 10, dto.ProgressPercent)
	assert.Equal(t, 30, dto.TotalDays)

	// Всегда все 30 слотов: завершённые с временем, остальные пустые.
	require.Len(t, dto.Days, 30)
	assert.True(t, dto.Days[0].Completed)
	require.NotNil(t, dto.Days[0].CompletedAt)
	assert.Equal(t, testNow, *dto.Days[0].CompletedAt)
	assert.False(t, dto.Days[3].Completed)
	assert.Nil(t, dto.Days[3].CompletedAt)
}

func TestGetChallengeOverview_NotStarted(t *testing.T) {
	h := NewGetChallengeOverviewHandler(&fakeChallengeRepo{challenges: map[string]*challenge.Challenge{}})

	dto, err := h.Handle(context.Background(), GetChallengeOverviewQuery{TenantID: "acme", UserID: "user-1"})
	require.NoError(t, err)

	assert.False(t, dto.Started)
	assert.Equal(t, 1, dto.CurrentDay)
	assert.Equal(t, 0, dto.DaysCompleted)

	// Неначатый челлендж отдаёт те же 30 пустых слотов.
	require.Len(t, dto.Days, 30)
	for _, d := range dto.Days {
		assert.False(t, d.Completed)
		assert.Nil(t, d.CompletedAt)
	}
	assert.Equal(t, 1, dto.Days[0].Day)
	assert.Equal(t, 30, dto.Days[29].Day)
}
