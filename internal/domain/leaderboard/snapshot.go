package leaderboard

import (
	"fmt"
	"time"

	"github.com/mentora-hub/mentora-progression/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD SNAPSHOT
// Снапшот фиксирует состояние рейтинга тенанта в момент пересборки.
// Сравнение двух снапшотов даёт изменения позиций для событий
// leaderboard.rank_changed.
// ══════════════════════════════════════════════════════════════════════════════

// Snapshot - состояние рейтинга тенанта в определённый момент времени.
type Snapshot struct {
	// TenantID - тенант, для которого создан снапшот.
	TenantID shared.TenantID

	// SnapshotAt - время создания снапшота.
	SnapshotAt time.Time

	// TotalUsers - количество пользователей в снапшоте.
	TotalUsers int

	// TotalXP - суммарный XP всех пользователей.
	TotalXP int

	// AverageXP - средний XP.
	AverageXP shared.XP

	// Entries - записи рейтинга, отсортированные по рангу.
	Entries []Entry

	// byID - индекс для быстрого поиска по UserID.
	byID map[shared.UserID]Entry
}

// NewSnapshot создаёт снапшот из собранного рейтинга.
// ranking может быть nil - тогда снапшот пустой.
func NewSnapshot(tenantID shared.TenantID, ranking *Ranking, now time.Time) *Snapshot {
	s := &Snapshot{
		TenantID:   tenantID,
		SnapshotAt: now,
		Entries:    make([]Entry, 0),
		byID:       make(map[shared.UserID]Entry),
	}
	if ranking == nil {
		return s
	}

	s.Entries = make([]Entry, len(ranking.Entries))
	copy(s.Entries, ranking.Entries)

	var totalXP int
	for _, entry := range s.Entries {
		s.byID[entry.UserID] = entry
		totalXP += int(entry.XP)
	}

	s.TotalUsers = len(s.Entries)
	s.TotalXP = totalXP
	if len(s.Entries) > 0 {
		s.AverageXP = shared.XP(totalXP / len(s.Entries))
	}

	return s
}

// GetByID возвращает запись пользователя.
func (s *Snapshot) GetByID(userID shared.UserID) (Entry, bool) {
	entry, ok := s.byID[userID]
	return entry, ok
}

// GetRank возвращает ранг пользователя в снапшоте.
// Возвращает 0, если пользователь не найден.
func (s *Snapshot) GetRank(userID shared.UserID) int {
	entry, ok := s.byID[userID]
	if !ok {
		return 0
	}
	return entry.Rank
}

// Top возвращает топ-N записей.
func (s *Snapshot) Top(n int) []Entry {
	if n <= 0 {
		return nil
	}
	if n > len(s.Entries) {
		n = len(s.Entries)
	}
	result := make([]Entry, n)
	copy(result, s.Entries[:n])
	return result
}

// Page возвращает страницу рейтинга. page начинается с 1.
func (s *Snapshot) Page(page, pageSize int) []Entry {
	if page < 1 || pageSize <= 0 {
		return nil
	}

	from := (page - 1) * pageSize
	to := from + pageSize

	if from >= len(s.Entries) {
		return nil
	}
	if to > len(s.Entries) {
		to = len(s.Entries)
	}

	result := make([]Entry, to-from)
	copy(result, s.Entries[from:to])
	return result
}

// TotalPages возвращает общее количество страниц.
func (s *Snapshot) TotalPages(pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	pages := len(s.Entries) / pageSize
	if len(s.Entries)%pageSize != 0 {
		pages++
	}
	return pages
}

// IsEmpty возвращает true, если снапшот пуст.
func (s *Snapshot) IsEmpty() bool {
	return len(s.Entries) == 0
}

// Count возвращает количество записей.
func (s *Snapshot) Count() int {
	return len(s.Entries)
}

// Contains проверяет, есть ли пользователь в снапшоте.
func (s *Snapshot) Contains(userID shared.UserID) bool {
	_, ok := s.byID[userID]
	return ok
}

// String возвращает строковое представление для логирования.
func (s *Snapshot) String() string {
	return fmt.Sprintf(
		"Snapshot{Tenant: %s, Users: %d, AvgXP: %d, At: %s}",
		s.TenantID, s.TotalUsers, s.AverageXP,
		s.SnapshotAt.Format(time.RFC3339),
	)
}

// RebuildIndex перестраивает внутренний индекс byID.
// Используется после десериализации.
func (s *Snapshot) RebuildIndex() {
	s.byID = make(map[shared.UserID]Entry, len(s.Entries))
	for _, entry := range s.Entries {
		s.byID[entry.UserID] = entry
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// SNAPSHOT DIFF
// ══════════════════════════════════════════════════════════════════════════════

// RankShift - изменение позиции одного пользователя между снапшотами.
// OldRank равен 0 для пользователей, впервые попавших в рейтинг.
type RankShift struct {
	UserID  shared.UserID
	OldRank int
	NewRank int
}

// Delta возвращает величину сдвига: положительная = поднялся
// (был 10, стал 5 = +5).
func (rs RankShift) Delta() int {
	if rs.OldRank == 0 {
		return 0
	}
	return rs.OldRank - rs.NewRank
}

// SnapshotDiff - различия между двумя снапшотами одного тенанта.
type SnapshotDiff struct {
	// RankShifts - изменения позиций существующих пользователей.
	RankShifts []RankShift

	// NewEntries - пользователи, появившиеся в рейтинге.
	NewEntries []Entry

	// RemovedEntries - пользователи, выпавшие из рейтинга.
	RemovedEntries []Entry
}

// CalculateDiff вычисляет разницу между двумя снапшотами.
// oldSnapshot может быть nil (первая пересборка).
func CalculateDiff(oldSnapshot, newSnapshot *Snapshot) *SnapshotDiff {
	diff := &SnapshotDiff{
		RankShifts:     make([]RankShift, 0),
		NewEntries:     make([]Entry, 0),
		RemovedEntries: make([]Entry, 0),
	}

	if newSnapshot == nil {
		return diff
	}

	if oldSnapshot == nil || oldSnapshot.IsEmpty() {
		diff.NewEntries = append(diff.NewEntries, newSnapshot.Entries...)
		return diff
	}

	for _, newEntry := range newSnapshot.Entries {
		oldEntry, existed := oldSnapshot.GetByID(newEntry.UserID)
		if !existed {
			diff.NewEntries = append(diff.NewEntries, newEntry)
			continue
		}
		if oldEntry.Rank != newEntry.Rank {
			diff.RankShifts = append(diff.RankShifts, RankShift{
				UserID:  newEntry.UserID,
				OldRank: oldEntry.Rank,
				NewRank: newEntry.Rank,
			})
		}
	}

	for _, oldEntry := range oldSnapshot.Entries {
		if !newSnapshot.Contains(oldEntry.UserID) {
			diff.RemovedEntries = append(diff.RemovedEntries, oldEntry)
		}
	}

	return diff
}

// HasChanges возвращает true, если есть какие-либо изменения.
func (d *SnapshotDiff) HasChanges() bool {
	return len(d.RankShifts) > 0 || len(d.NewEntries) > 0 || len(d.RemovedEntries) > 0
}

// Improved возвращает пользователей, поднявшихся в рейтинге.
func (d *SnapshotDiff) Improved() []RankShift {
	result := make([]RankShift, 0)
	for _, shift := range d.RankShifts {
		if shift.Delta() > 0 {
			result = append(result, shift)
		}
	}
	return result
}

// Dropped возвращает пользователей, опустившихся в рейтинге.
func (d *SnapshotDiff) Dropped() []RankShift {
	result := make([]RankShift, 0)
	for _, shift := range d.RankShifts {
		if shift.Delta() < 0 {
			result = append(result, shift)
		}
	}
	return result
}

// SignificantShifts возвращает сдвиги с |Delta| >= threshold.
func (d *SnapshotDiff) SignificantShifts(threshold int) []RankShift {
	result := make([]RankShift, 0)
	for _, shift := range d.RankShifts {
		delta := shift.Delta()
		if delta < 0 {
			delta = -delta
		}
		if delta >= threshold {
			result = append(result, shift)
		}
	}
	return result
}
