package challenge

import (
	"math"
	"sort"
	"time"

	"github.com/mentora-hub/mentora-progression/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CHALLENGE
// 30-дневный челлендж дисциплины. Дни завершаются в произвольном порядке;
// повторное завершение - идемпотентный no-op. XP за дни начисляет движок
// прогрессии, здесь - только учёт завершений и заметок.
// ══════════════════════════════════════════════════════════════════════════════

const (
	// TotalDays - длительность челленджа в днях.
	TotalDays = 30

	// DefaultChallengeID - единственный челлендж текущего каталога.
	DefaultChallengeID = "desafio-30-dias"

	// DayCompletionXP - награда за завершение одного дня.
	DayCompletionXP = 50

	// CompletionBonusXP - бонус за завершение всех 30 дней.
	CompletionBonusXP = 500
)

// DayRecord - состояние одного дня: завершение и заметка. День может иметь
// заметку без завершения - тогда CompletedAt нулевой.
type DayRecord struct {
	Day         int
	CompletedAt time.Time
	Notes       string
}

// Completed сообщает, завершён ли день.
func (d DayRecord) Completed() bool {
	return !d.CompletedAt.IsZero()
}

// Challenge - прогресс пользователя в челлендже.
type Challenge struct {
	Ref         shared.UserRef
	ChallengeID string
	StartedAt   time.Time

	// days индексирован номером дня (1-30). Хранит и завершения,
	// и записи с одной лишь заметкой.
	days map[int]DayRecord

	UpdatedAt time.Time
}

// New создаёт пустой прогресс челленджа.
func New(ref shared.UserRef, challengeID string, now time.Time) (*Challenge, error) {
	if !ref.TenantID.IsValid() {
		return nil, shared.ErrInvalidTenantID
	}
	if !ref.UserID.IsValid() {
		return nil, shared.ErrInvalidUserID
	}
	if challengeID == "" {
		return nil, shared.ErrInvalidChallengeID
	}
	return &Challenge{
		Ref:         ref,
		ChallengeID: challengeID,
		StartedAt:   now,
		days:        make(map[int]DayRecord),
		UpdatedAt:   now,
	}, nil
}

// Restore восстанавливает прогресс из хранилища.
func Restore(ref shared.UserRef, challengeID string, startedAt, updatedAt time.Time, days []DayRecord) *Challenge {
	c := &Challenge{
		Ref:         ref,
		ChallengeID: challengeID,
		StartedAt:   startedAt,
		days:        make(map[int]DayRecord, len(days)),
		UpdatedAt:   updatedAt,
	}
	for _, d := range days {
		c.days[d.Day] = d
	}
	return c
}

// DayCompletion - итог CompleteDay.
type DayCompletion struct {
	Record DayRecord

	// First установлен при первом завершении дня. Повторное завершение -
	// no-op: время не меняется, XP вызывающая сторона не начисляет.
	First bool

	// Finished установлен, если этим днём челлендж завершён целиком.
	Finished bool
}

// CompleteDay отмечает день завершённым. Уже завершённый день не ошибка:
// запись возвращается как есть, время первого завершения неизменно,
// непустая заметка перекрывает старую.
func (c *Challenge) CompleteDay(day int, notes string, now time.Time) (DayCompletion, error) {
	if day < 1 || day > TotalDays {
		return DayCompletion{}, shared.ErrInvalidDayNumber
	}

	record := c.days[day]
	if record.Completed() {
		if notes != "" && notes != record.Notes {
			record.Notes = notes
			c.days[day] = record
			c.UpdatedAt = now
		}
		return DayCompletion{Record: record}, nil
	}

	// Первое завершение. Запись могла существовать с одной заметкой:
	// пустая новая заметка её не затирает.
	record.Day = day
	record.CompletedAt = now
	if notes != "" {
		record.Notes = notes
	}
	c.days[day] = record
	c.UpdatedAt = now

	return DayCompletion{
		Record:   record,
		First:    true,
		Finished: c.DaysCompleted() == TotalDays,
	}, nil
}

// UpdateDayNotes записывает заметку дня, не меняя статус завершения.
// Для дня без записи создаётся запись с заметкой и без времени завершения.
func (c *Challenge) UpdateDayNotes(day int, notes string, now time.Time) error {
	if day < 1 || day > TotalDays {
		return shared.ErrInvalidDayNumber
	}
	record := c.days[day]
	record.Day = day
	record.Notes = notes
	c.days[day] = record
	c.UpdatedAt = now
	return nil
}

// IsDayCompleted сообщает, завершён ли день.
func (c *Challenge) IsDayCompleted(day int) bool {
	return c.days[day].Completed()
}

// DaysCompleted возвращает число завершённых дней.
func (c *Challenge) DaysCompleted() int {
	completed := 0
	for _, d := range c.days {
		if d.Completed() {
			completed++
		}
	}
	return completed
}

// IsComplete сообщает, завершены ли все 30 дней.
func (c *Challenge) IsComplete() bool {
	return c.DaysCompleted() == TotalDays
}

// Days возвращает дни с записями (завершение или заметка) по номеру.
func (c *Challenge) Days() []DayRecord {
	result := make([]DayRecord, 0, len(c.days))
	for _, d := range c.days {
		result = append(result, d)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Day < result[j].Day })
	return result
}

// Slots возвращает все 30 дней по порядку; дни без записей - пустые слоты.
func (c *Challenge) Slots() []DayRecord {
	slots := make([]DayRecord, TotalDays)
	for i := range slots {
		day := i + 1
		record := c.days[day]
		record.Day = day
		slots[i] = record
	}
	return slots
}

// EmptySlots возвращает 30 пустых слотов для ещё не начатого челленджа.
func EmptySlots() []DayRecord {
	slots := make([]DayRecord, TotalDays)
	for i := range slots {
		slots[i] = DayRecord{Day: i + 1}
	}
	return slots
}

// CurrentDay возвращает первый незавершённый день, но не больше 30.
// Для полностью завершённого челленджа возвращает 30.
func (c *Challenge) CurrentDay() int {
	for day := 1; day <= TotalDays; day++ {
		if !c.IsDayCompleted(day) {
			return day
		}
	}
	return TotalDays
}

// Streak возвращает число подряд завершённых дней, считая с первого дня.
// Первый незавершённый день обрывает серию: дни {2,3} дают серию 0.
func (c *Challenge) Streak() int {
	streak := 0
	for day := 1; day <= TotalDays; day++ {
		if !c.IsDayCompleted(day) {
			break
		}
		streak++
	}
	return streak
}

// ProgressPercent возвращает долю завершённых дней в процентах (0-100).
func (c *Challenge) ProgressPercent() int {
	return int(math.Round(float64(c.DaysCompleted()) / float64(TotalDays) * 100))
}

// Overview - сводка прогресса для выдачи наружу.
// Days всегда содержит все 30 слотов, включая незатронутые дни.
type Overview struct {
	ChallengeID     string
	StartedAt       time.Time
	CurrentDay      int
	DaysCompleted   int
	ProgressPercent int
	Streak          int
	Completed       bool
	Days            []DayRecord
}

// BuildOverview собирает сводку по текущему состоянию.
func (c *Challenge) BuildOverview() Overview {
	return Overview{
		ChallengeID:     c.ChallengeID,
		StartedAt:       c.StartedAt,
		CurrentDay:      c.CurrentDay(),
		DaysCompleted:   c.DaysCompleted(),
		ProgressPercent: c.ProgressPercent(),
		Streak:          c.Streak(),
		Completed:       c.IsComplete(),
		Days:            c.Slots(),
	}
}
