package leaderboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshotOf(t *testing.T, entries []Entry) *Snapshot {
	t.Helper()
	ranking := BuildRanking("acme", entries, 0, time.Now())
	return NewSnapshot("acme", ranking, time.Now().UTC())
}

func TestNewSnapshot_Aggregates(t *testing.T) {
	s := snapshotOf(t, []Entry{
		{UserID: "u-alice", DisplayName: "Alice", XP: 600},
		{UserID: "u-bob", DisplayName: "Bob", XP: 200},
	})

	assert.Equal(t, 2, s.TotalUsers)
	assert.Equal(t, 800, s.TotalXP)
	assert.EqualValues(t, 400, s.AverageXP)
	assert.Equal(t, 1, s.GetRank("u-alice"))
	assert.Equal(t, 2, s.GetRank("u-bob"))
	assert.Equal(t, 0, s.GetRank("u-ghost"))
}

func TestNewSnapshot_NilRanking(t *testing.T) {
	s := NewSnapshot("acme", nil, time.Now().UTC())

	assert.True(t, s.IsEmpty())
	assert.Equal(t, 0, s.Count())
	assert.False(t, s.Contains("u-alice"))
}

func TestSnapshot_Page(t *testing.T) {
	s := snapshotOf(t, []Entry{
		{UserID: "u-a", DisplayName: "A", XP: 500},
		{UserID: "u-b", DisplayName: "B", XP: 400},
		{UserID: "u-c", DisplayName: "C", XP: 300},
		{UserID: "u-d", DisplayName: "D", XP: 200},
		{UserID: "u-e", DisplayName: "E", XP: 100},
	})

	page := s.Page(2, 2)
	require.Len(t, page, 2)
	assert.Equal(t, "C", page[0].DisplayName)
	assert.Equal(t, "D", page[1].DisplayName)

	assert.Equal(t, 3, s.TotalPages(2))
	assert.Nil(t, s.Page(4, 2))
	assert.Nil(t, s.Page(0, 2))
}

func TestCalculateDiff_FirstRebuild(t *testing.T) {
	next := snapshotOf(t, []Entry{
		{UserID: "u-alice", DisplayName: "Alice", XP: 500},
	})

	diff := CalculateDiff(nil, next)

	require.Len(t, diff.NewEntries, 1)
	assert.Empty(t, diff.RankShifts)
	assert.True(t, diff.HasChanges())
}

func TestCalculateDiff_RankShifts(t *testing.T) {
	old := snapshotOf(t, []Entry{
		{UserID: "u-alice", DisplayName: "Alice", XP: 500},
		{UserID: "u-bob", DisplayName: "Bob", XP: 400},
		{UserID: "u-carol", DisplayName: "Carol", XP: 300},
	})
	// Bob перегоняет Alice, Carol выпадает, Dave появляется.
	next := snapshotOf(t, []Entry{
		{UserID: "u-alice", DisplayName: "Alice", XP: 500},
		{UserID: "u-bob", DisplayName: "Bob", XP: 700},
		{UserID: "u-dave", DisplayName: "Dave", XP: 100},
	})

	diff := CalculateDiff(old, next)

	require.Len(t, diff.RankShifts, 2)
	shifts := map[string]RankShift{}
	for _, shift := range diff.RankShifts {
		shifts[shift.UserID.String()] = shift
	}

	bob := shifts["u-bob"]
	assert.Equal(t, 2, bob.OldRank)
	assert.Equal(t, 1, bob.NewRank)
	assert.Equal(t, 1, bob.Delta())

	alice := shifts["u-alice"]
	assert.Equal(t, -1, alice.Delta())

	require.Len(t, diff.NewEntries, 1)
	assert.EqualValues(t, "u-dave", diff.NewEntries[0].UserID)

	require.Len(t, diff.RemovedEntries, 1)
	assert.EqualValues(t, "u-carol", diff.RemovedEntries[0].UserID)

	improved := diff.Improved()
	require.Len(t, improved, 1)
	assert.EqualValues(t, "u-bob", improved[0].UserID)

	dropped := diff.Dropped()
	require.Len(t, dropped, 1)
	assert.EqualValues(t, "u-alice", dropped[0].UserID)
}

func TestCalculateDiff_NoChanges(t *testing.T) {
	entries := []Entry{
		{UserID: "u-alice", DisplayName: "Alice", XP: 500},
		{UserID: "u-bob", DisplayName: "Bob", XP: 400},
	}
	old := snapshotOf(t, entries)
	next := snapshotOf(t, entries)

	diff := CalculateDiff(old, next)

	assert.False(t, diff.HasChanges())
}

func TestSnapshotDiff_SignificantShifts(t *testing.T) {
	old := snapshotOf(t, []Entry{
		{UserID: "u-a", DisplayName: "A", XP: 500},
		{UserID: "u-b", DisplayName: "B", XP: 400},
		{UserID: "u-c", DisplayName: "C", XP: 300},
		{UserID: "u-d", DisplayName: "D", XP: 200},
	})
	// D прыгает с 4-го места на 1-е, остальные сдвигаются на одну позицию.
	next := snapshotOf(t, []Entry{
		{UserID: "u-a", DisplayName: "A", XP: 500},
		{UserID: "u-b", DisplayName: "B", XP: 400},
		{UserID: "u-c", DisplayName: "C", XP: 300},
		{UserID: "u-d", DisplayName: "D", XP: 900},
	})

	diff := CalculateDiff(old, next)

	significant := diff.SignificantShifts(3)
	require.Len(t, significant, 1)
	assert.EqualValues(t, "u-d", significant[0].UserID)
	assert.Equal(t, 3, significant[0].Delta())
}

func TestSnapshot_RebuildIndex(t *testing.T) {
	s := snapshotOf(t, []Entry{
		{UserID: "u-alice", DisplayName: "Alice", XP: 500},
	})

	// Имитация десериализации: индекс потерян.
	s.byID = nil
	s.RebuildIndex()

	assert.True(t, s.Contains("u-alice"))
	assert.Equal(t, 1, s.GetRank("u-alice"))
}
