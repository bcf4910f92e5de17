package challenge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentora-hub/mentora-progression/internal/domain/shared"
)

var testRef = shared.UserRef{TenantID: "acme", UserID: "user-1"}

func newTestChallenge(t *testing.T) *Challenge {
	t.Helper()
	c, err := New(testRef, DefaultChallengeID, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return c
}

func TestNew_Validation(t *testing.T) {
	now := time.Now()

	_, err := New(shared.UserRef{TenantID: "", UserID: "u"}, DefaultChallengeID, now)
	assert.ErrorIs(t, err, shared.ErrInvalidTenantID)

	_, err = New(testRef, "", now)
	assert.ErrorIs(t, err, shared.ErrInvalidChallengeID)
}

func TestCompleteDay(t *testing.T) {
	c := newTestChallenge(t)
	now := time.Now()

	res, err := c.CompleteDay(1, "primeiro dia", now)
	require.NoError(t, err)
	assert.True(t, res.First)
	assert.False(t, res.Finished)
	assert.True(t, c.IsDayCompleted(1))
	assert.Equal(t, 1, c.DaysCompleted())

	// Границы диапазона.
	_, err = c.CompleteDay(0, "", now)
	assert.ErrorIs(t, err, shared.ErrInvalidDayNumber)
	_, err = c.CompleteDay(31, "", now)
	assert.ErrorIs(t, err, shared.ErrInvalidDayNumber)
}

func TestCompleteDay_RepeatIsNoOp(t *testing.T) {
	c := newTestChallenge(t)
	first := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	later := first.Add(48 * time.Hour)

	res, err := c.CompleteDay(5, "primeira vez", first)
	require.NoError(t, err)
	require.True(t, res.First)

	// Повторное завершение: без ошибки, без нового прогресса,
	// исходная метка времени сохраняется.
	res, err = c.CompleteDay(5, "", later)
	require.NoError(t, err)
	assert.False(t, res.First)
	assert.False(t, res.Finished)
	assert.Equal(t, first, res.Record.CompletedAt)
	assert.Equal(t, "primeira vez", res.Record.Notes)
	assert.Equal(t, 1, c.DaysCompleted())

	// Непустые заметки при повторе перезаписывают старые.
	res, err = c.CompleteDay(5, "revisado", later)
	require.NoError(t, err)
	assert.False(t, res.First)
	assert.Equal(t, first, res.Record.CompletedAt)
	assert.Equal(t, "revisado", res.Record.Notes)
}

func TestCompleteDay_FinishesChallenge(t *testing.T) {
	c := newTestChallenge(t)
	now := time.Now()

	for day := 1; day < TotalDays; day++ {
		res, err := c.CompleteDay(day, "", now)
		require.NoError(t, err)
		assert.False(t, res.Finished)
	}

	res, err := c.CompleteDay(TotalDays, "", now)
	require.NoError(t, err)
	assert.True(t, res.Finished)
	assert.True(t, c.IsComplete())
}

func TestCurrentDay(t *testing.T) {
	c := newTestChallenge(t)
	now := time.Now()

	assert.Equal(t, 1, c.CurrentDay())

	// Дни можно завершать не по порядку: текущий - первый пропущенный.
	_, err := c.CompleteDay(1, "", now)
	require.NoError(t, err)
	_, err = c.CompleteDay(2, "", now)
	require.NoError(t, err)
	_, err = c.CompleteDay(5, "", now)
	require.NoError(t, err)
	assert.Equal(t, 3, c.CurrentDay())

	// Завершённый челлендж остаётся на дне 30.
	for day := 1; day <= TotalDays; day++ {
		if !c.IsDayCompleted(day) {
			_, err = c.CompleteDay(day, "", now)
			require.NoError(t, err)
		}
	}
	assert.Equal(t, TotalDays, c.CurrentDay())
}

func TestStreak(t *testing.T) {
	c := newTestChallenge(t)
	now := time.Now()

	assert.Equal(t, 0, c.Streak())

	for _, day := range []int{1, 2, 3, 5, 6} {
		_, err := c.CompleteDay(day, "", now)
		require.NoError(t, err)
	}
	// Серия считается с первого дня и обрывается на первом пропуске.
	assert.Equal(t, 3, c.Streak())

	_, err := c.CompleteDay(4, "", now)
	require.NoError(t, err)
	assert.Equal(t, 6, c.Streak())
}

func TestStreak_GapAtStart(t *testing.T) {
	c := newTestChallenge(t)
	now := time.Now()

	// День 1 не завершён: серии нет, сколько бы дней ни было дальше.
	for _, day := range []int{2, 3} {
		_, err := c.CompleteDay(day, "", now)
		require.NoError(t, err)
	}
	assert.Equal(t, 0, c.Streak())
}

func TestProgressPercent(t *testing.T) {
	c := newTestChallenge(t)
	now := time.Now()

	assert.Equal(t, 0, c.ProgressPercent())

	for day := 1; day <= 7; day++ {
		_, err := c.CompleteDay(day, "", now)
		require.NoError(t, err)
	}
	// 7/30 = 23.33 -> 23.
	assert.Equal(t, 23, c.ProgressPercent())
}

func TestUpdateDayNotes(t *testing.T) {
	c := newTestChallenge(t)
	now := time.Now()

	// Заметку можно сохранить до завершения дня: день остаётся незавершённым.
	require.NoError(t, c.UpdateDayNotes(1, "plano do dia", now))
	assert.False(t, c.IsDayCompleted(1))
	assert.Equal(t, 0, c.DaysCompleted())
	require.Len(t, c.Days(), 1)
	assert.Equal(t, "plano do dia", c.Days()[0].Notes)

	// Завершение дня с пустыми заметками не стирает сохранённые.
	res, err := c.CompleteDay(1, "", now)
	require.NoError(t, err)
	assert.True(t, res.First)
	assert.Equal(t, "plano do dia", res.Record.Notes)

	require.NoError(t, c.UpdateDayNotes(1, "depois", now))
	assert.Equal(t, "depois", c.Days()[0].Notes)
	assert.True(t, c.IsDayCompleted(1))

	err = c.UpdateDayNotes(40, "x", now)
	assert.ErrorIs(t, err, shared.ErrInvalidDayNumber)
}

func TestBuildOverview(t *testing.T) {
	c := newTestChallenge(t)
	now := time.Now()

	for _, day := range []int{1, 2, 3} {
		_, err := c.CompleteDay(day, "", now)
		require.NoError(t, err)
	}

	overview := c.BuildOverview()
	assert.Equal(t, DefaultChallengeID, overview.ChallengeID)
	assert.Equal(t, 4, overview.CurrentDay)
	assert.Equal(t, 3, overview.DaysCompleted)
	assert.Equal(t, 10, overview.ProgressPercent)
	assert.Equal(t, 3, overview.Streak)
	assert.False(t, overview.Completed)

	// Все 30 слотов присутствуют всегда, завершённые помечены.
	require.Len(t, overview.Days, TotalDays)
	assert.Equal(t, 1, overview.Days[0].Day)
	assert.True(t, overview.Days[2].Completed())
	assert.False(t, overview.Days[3].Completed())
	assert.Equal(t, 30, overview.Days[29].Day)
}

func TestRestore(t *testing.T) {
	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	days := []DayRecord{
		{Day: 2, CompletedAt: started.Add(24 * time.Hour)},
		{Day: 1, CompletedAt: started},
		{Day: 4, Notes: "somente anotação"},
	}

	c := Restore(testRef, DefaultChallengeID, started, started, days)
	// Запись только с заметкой не считается завершённым днём.
	assert.Equal(t, 2, c.DaysCompleted())
	assert.Equal(t, 3, c.CurrentDay())
	assert.Equal(t, []int{1, 2, 4}, []int{c.Days()[0].Day, c.Days()[1].Day, c.Days()[2].Day})
	assert.False(t, c.IsDayCompleted(4))
}
