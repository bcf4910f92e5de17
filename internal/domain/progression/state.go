package progression

import (
	"time"

	"github.com/mentora-hub/mentora-progression/internal/domain/shared"
)

// XP - псевдоним общего типа опыта.
type XP = shared.XP

// TradeOutcome - исход одного трейда.
type TradeOutcome string

const (
	OutcomeWin       TradeOutcome = "win"
	OutcomeLoss      TradeOutcome = "loss"
	OutcomeBreakeven TradeOutcome = "breakeven"
)

// IsValid проверяет допустимость исхода.
func (o TradeOutcome) IsValid() bool {
	switch o {
	case OutcomeWin, OutcomeLoss, OutcomeBreakeven:
		return true
	}
	return false
}

// EarnedBadge - факт выдачи бейджа пользователю.
type EarnedBadge struct {
	ID       BadgeID
	EarnedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// STATE
// Агрегат прогрессии одного пользователя внутри одного тенанта.
// Все мутации проходят через методы агрегата; уровень не хранится,
// а вычисляется из XP таблицей уровней.
// ══════════════════════════════════════════════════════════════════════════════

// State - состояние прогрессии пользователя.
type State struct {
	Ref shared.UserRef

	// DisplayName - имя для лидерборда.
	DisplayName string

	// XP - накопленный опыт. Никогда не убывает, кроме полного сброса.
	XP XP

	// TotalTrades / WinningTrades - счётчики для предикатов бейджей.
	TotalTrades   int
	WinningTrades int

	// CurrentStreak - длина текущей серии побед, BestStreak - рекорд.
	CurrentStreak int
	BestStreak    int

	// Badges - выданные бейджи в порядке выдачи. Каждый бейдж не более одного раза.
	Badges []EarnedBadge

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewState создаёт пустое состояние прогрессии.
func NewState(ref shared.UserRef, displayName string, now time.Time) (*State, error) {
	if !ref.TenantID.IsValid() {
		return nil, shared.ErrInvalidTenantID
	}
	if !ref.UserID.IsValid() {
		return nil, shared.ErrInvalidUserID
	}
	return &State{
		Ref:         ref,
		DisplayName: displayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// RecordTrade обновляет счётчики и серию по исходу трейда.
// Победа продлевает серию; поражение и безубыток обрывают её.
func (s *State) RecordTrade(outcome TradeOutcome, now time.Time) error {
	if !outcome.IsValid() {
		return shared.NewDomainError("progression", "RecordTrade", shared.ErrInvalidInput, "unknown trade outcome")
	}

	s.TotalTrades++
	if outcome == OutcomeWin {
		s.WinningTrades++
		s.CurrentStreak++
		if s.CurrentStreak > s.BestStreak {
			s.BestStreak = s.CurrentStreak
		}
	} else {
		s.CurrentStreak = 0
	}
	s.UpdatedAt = now
	return nil
}

// AddXP начисляет положительное количество XP.
func (s *State) AddXP(amount XP, now time.Time) error {
	if amount <= 0 {
		return shared.ErrInvalidGrantAmount
	}
	s.XP = s.XP.Add(amount)
	s.UpdatedAt = now
	return nil
}

// HasBadge сообщает, выдан ли бейдж.
func (s *State) HasBadge(id BadgeID) bool {
	for _, b := range s.Badges {
		if b.ID == id {
			return true
		}
	}
	return false
}

// AwardBadge фиксирует выдачу бейджа. Повторная выдача - нарушение инварианта.
func (s *State) AwardBadge(id BadgeID, now time.Time) error {
	if s.HasBadge(id) {
		return shared.NewDomainError("progression", "AwardBadge", shared.ErrInvariantBroken, "badge already earned")
	}
	s.Badges = append(s.Badges, EarnedBadge{ID: id, EarnedAt: now})
	s.UpdatedAt = now
	return nil
}

// WinRate возвращает процент побед (0 при отсутствии трейдов).
func (s *State) WinRate() float64 {
	if s.TotalTrades == 0 {
		return 0
	}
	return float64(s.WinningTrades) / float64(s.TotalTrades) * 100
}

// BadgeIDs возвращает идентификаторы выданных бейджей в порядке выдачи.
func (s *State) BadgeIDs() []BadgeID {
	ids := make([]BadgeID, len(s.Badges))
	for i, b := range s.Badges {
		ids[i] = b.ID
	}
	return ids
}

// Reset обнуляет прогрессию, сохраняя идентичность и дату создания.
func (s *State) Reset(now time.Time) {
	s.XP = 0
	s.TotalTrades = 0
	s.WinningTrades = 0
	s.CurrentStreak = 0
	s.BestStreak = 0
	s.Badges = nil
	s.UpdatedAt = now
}

// Clone возвращает глубокую копию состояния.
func (s *State) Clone() *State {
	clone := *s
	clone.Badges = make([]EarnedBadge, len(s.Badges))
	copy(clone.Badges, s.Badges)
	return &clone
}
