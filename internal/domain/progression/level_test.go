package progression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelForXP_Thresholds(t *testing.T) {
	table := DefaultLevelTable()

	cases := []struct {
		xp    XP
		level int
	}{
		{0, 1},
		{99, 1},
		{100, 2},
		{499, 2},
		{500, 3},
		{1500, 4},
		{3500, 5},
		{7500, 6},
		{15000, 7},
		{30000, 8},
		{50000, 9},
		{75000, 10},
		{74999, 9},
		{1000000, 10},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.level, table.LevelForXP(tc.xp), "xp=%d", tc.xp)
	}
}

func TestLevelTable_Names(t *testing.T) {
	table := DefaultLevelTable()

	assert.Equal(t, "Novato", table.Name(1))
	assert.Equal(t, "Proficiente", table.Name(5))
	assert.Equal(t, "Lenda", table.Name(10))
	assert.Equal(t, "", table.Name(11))
	assert.Equal(t, 10, table.Count())
}

func TestProgressPercent(t *testing.T) {
	table := DefaultLevelTable()

	// Уровень 2: пороги 100..500, 250 XP -> (150/400)*100 = 37.5 -> 38.
	assert.Equal(t, 38, table.ProgressPercent(250))

	assert.Equal(t, 0, table.ProgressPercent(0))
	assert.Equal(t, 0, table.ProgressPercent(100))
	assert.Equal(t, 100, table.ProgressPercent(75000))
	assert.Equal(t, 100, table.ProgressPercent(999999))
}

func TestXPToNextLevel(t *testing.T) {
	table := DefaultLevelTable()

	assert.Equal(t, XP(100), table.XPToNextLevel(0))
	assert.Equal(t, XP(1), table.XPToNextLevel(99))
	assert.Equal(t, XP(400), table.XPToNextLevel(100))
	assert.Equal(t, XP(0), table.XPToNextLevel(75000))
	assert.Equal(t, XP(0), table.XPToNextLevel(200000))
}

func TestNewLevelTable_Validation(t *testing.T) {
	_, err := NewLevelTable(nil)
	assert.ErrorIs(t, err, ErrEmptyLevelTable)

	_, err = NewLevelTable([]LevelDefinition{{Level: 1, Threshold: 50}})
	assert.ErrorIs(t, err, ErrLevelTableBase)

	_, err = NewLevelTable([]LevelDefinition{
		{Level: 1, Threshold: 0},
		{Level: 2, Threshold: 100},
		{Level: 3, Threshold: 100},
	})
	assert.ErrorIs(t, err, ErrLevelTableOrder)

	_, err = NewLevelTable([]LevelDefinition{
		{Level: 1, Threshold: 0},
		{Level: 3, Threshold: 100},
	})
	assert.ErrorIs(t, err, ErrLevelTableOrder)
}

func TestLevelTable_Definition(t *testing.T) {
	table := DefaultLevelTable()

	def, ok := table.Definition(10)
	require.True(t, ok)
	assert.Equal(t, "Lenda", def.Name)
	assert.Equal(t, XP(75000), def.Threshold)
	assert.NotEmpty(t, def.Perks)

	_, ok = table.Definition(0)
	assert.False(t, ok)
}
