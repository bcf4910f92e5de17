package leaderboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentora-hub/mentora-progression/internal/domain/shared"
)

func entries() []Entry {
	return []Entry{
		{UserID: "u-carol", DisplayName: "Carol", XP: 300},
		{UserID: "u-alice", DisplayName: "Alice", XP: 500},
		{UserID: "u-bob", DisplayName: "Bob", XP: 500},
	}
}

func TestBuildRanking_SequentialRanksOnTies(t *testing.T) {
	now := time.Now()
	ranking := BuildRanking("acme", entries(), 0, now)

	require.Equal(t, 3, ranking.Size())
	// Равный XP не схлопывает ранги: 1, 2, 3.
	assert.Equal(t, "Alice", ranking.Entries[0].DisplayName)
	assert.Equal(t, 1, ranking.Entries[0].Rank)
	assert.Equal(t, "Bob", ranking.Entries[1].DisplayName)
	assert.Equal(t, 2, ranking.Entries[1].Rank)
	assert.Equal(t, "Carol", ranking.Entries[2].DisplayName)
	assert.Equal(t, 3, ranking.Entries[2].Rank)
}

func TestBuildRanking_Limit(t *testing.T) {
	ranking := BuildRanking("acme", entries(), 2, time.Now())

	require.Equal(t, 2, ranking.Size())
	assert.Equal(t, "Alice", ranking.Entries[0].DisplayName)
	assert.Equal(t, "Bob", ranking.Entries[1].DisplayName)
}

func TestBuildRanking_DoesNotMutateInput(t *testing.T) {
	input := entries()
	BuildRanking("acme", input, 0, time.Now())

	assert.Equal(t, "Carol", input[0].DisplayName)
	assert.Equal(t, 0, input[0].Rank)
}

func TestUserRank_TiesShareRank(t *testing.T) {
	// Персональный ранг: оба пользователя с 500 XP получают ранг 1,
	// хотя в списке они стоят на позициях 1 и 2.
	rank, err := UserRank(entries(), "u-alice")
	require.NoError(t, err)
	assert.Equal(t, 1, rank)

	rank, err = UserRank(entries(), "u-bob")
	require.NoError(t, err)
	assert.Equal(t, 1, rank)

	rank, err = UserRank(entries(), "u-carol")
	require.NoError(t, err)
	assert.Equal(t, 3, rank)
}

func TestUserRank_NotFound(t *testing.T) {
	_, err := UserRank(entries(), "u-ghost")
	assert.ErrorIs(t, err, shared.ErrNotInLeaderboard)
}

func TestRanking_Position(t *testing.T) {
	ranking := BuildRanking("acme", entries(), 0, time.Now())

	entry, ok := ranking.Position("u-carol")
	require.True(t, ok)
	assert.Equal(t, 3, entry.Rank)

	_, ok = ranking.Position("u-ghost")
	assert.False(t, ok)
}
