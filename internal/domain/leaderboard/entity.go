package leaderboard

import (
	"sort"
	"time"

	"github.com/mentora-hub/mentora-progression/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD
// Рейтинг пользователей одного тенанта по XP. Ранги в списке присваиваются
// последовательно по позиции (1, 2, 3, ...) даже при равном XP; персональный
// ранг пользователя считается как 1 + число строго превосходящих по XP.
// При равном XP эти два способа расходятся - расхождение сохранено намеренно,
// так ведёт себя продукт.
// ══════════════════════════════════════════════════════════════════════════════

// Entry - одна строка рейтинга.
type Entry struct {
	UserID      shared.UserID
	DisplayName string
	XP          shared.XP
	Level       int
	LevelName   string
	WinRate     float64
	BadgeCount  int

	// Rank присваивается при сборке рейтинга, начиная с 1.
	Rank int
}

// Ranking - собранный рейтинг одного тенанта.
type Ranking struct {
	TenantID    shared.TenantID
	Entries     []Entry
	GeneratedAt time.Time
}

// BuildRanking сортирует записи по XP (по убыванию) и присваивает
// последовательные ранги. Ничьи разрешаются по имени, затем по UserID,
// чтобы порядок был детерминированным.
func BuildRanking(tenantID shared.TenantID, entries []Entry, limit int, now time.Time) *Ranking {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)

	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].XP != sorted[j].XP {
			return sorted[i].XP > sorted[j].XP
		}
		if sorted[i].DisplayName != sorted[j].DisplayName {
			return sorted[i].DisplayName < sorted[j].DisplayName
		}
		return sorted[i].UserID < sorted[j].UserID
	})

	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	for i := range sorted {
		sorted[i].Rank = i + 1
	}

	return &Ranking{TenantID: tenantID, Entries: sorted, GeneratedAt: now}
}

// UserRank возвращает персональный ранг пользователя: 1 + число
// пользователей со строго большим XP. Не зависит от limit рейтинга.
func UserRank(entries []Entry, userID shared.UserID) (int, error) {
	var userXP shared.XP
	found := false
	for _, e := range entries {
		if e.UserID == userID {
			userXP = e.XP
			found = true
			break
		}
	}
	if !found {
		return 0, shared.ErrNotInLeaderboard
	}

	rank := 1
	for _, e := range entries {
		if e.XP > userXP {
			rank++
		}
	}
	return rank, nil
}

// Position возвращает запись пользователя внутри собранного рейтинга.
func (r *Ranking) Position(userID shared.UserID) (Entry, bool) {
	for _, e := range r.Entries {
		if e.UserID == userID {
			return e, true
		}
	}
	return Entry{}, false
}

// Size возвращает число записей рейтинга.
func (r *Ranking) Size() int {
	return len(r.Entries)
}
