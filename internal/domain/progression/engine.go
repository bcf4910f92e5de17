package progression

import (
	"time"

	"github.com/google/uuid"

	"github.com/mentora-hub/mentora-progression/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENGINE
// Чистый движок прогрессии: применяет событие к State, начисляет XP,
// прогоняет каталог бейджей до неподвижной точки и формирует Result.
// Движок не знает о хранилище и транзакциях - это забота приложения.
// ══════════════════════════════════════════════════════════════════════════════

// Награды за события. Значения совпадают с продуктовой таблицей наград.
const (
	XPWinningTrade XP = 30
	XPTradeBase    XP = 10

	// maxBadgePasses ограничивает каскад "бейдж даёт XP -> XP даёт бейдж".
	// Три прохода достаточно для любого каталога без циклов наград.
	maxBadgePasses = 3
)

// Причины начисления XP в журнале транзакций.
const (
	ReasonWinningTrade    = "winning_trade"
	ReasonTradeRegistered = "trade_registered"
	ReasonBadgeEarned     = "badge_earned"
	ReasonManualGrant     = "manual_grant"
	ReasonChallengeDay    = "challenge_day"
	ReasonChallengeBonus  = "challenge_bonus"
)

// XPTransaction - одна строка журнала начислений XP.
type XPTransaction struct {
	ID     uuid.UUID
	Ref    shared.UserRef
	Amount XP
	Reason string
	// BadgeID заполнен только для Reason == badge_earned.
	BadgeID BadgeID
	// Metadata - контекст начисления для аудита: номер дня челленджа,
	// оператор ручного гранта. Пустая для обычных трейдов.
	Metadata  map[string]string
	CreatedAt time.Time
}

// Result - итог применения одного события к состоянию.
type Result struct {
	// XPEarned - суммарный XP события, включая награды бейджей.
	XPEarned XP

	// LeveledUp установлен, если уровень после события строго выше уровня
	// до события. Поля уровня заполнены только при LeveledUp.
	LeveledUp     bool
	PreviousLevel int
	NewLevel      int
	NewLevelName  string

	// NewBadges - бейджи, выданные этим событием, в порядке выдачи.
	NewBadges []BadgeDefinition

	// Transactions - строки журнала XP, порождённые событием.
	Transactions []XPTransaction
}

// BadgeIDs возвращает идентификаторы новых бейджей.
func (r *Result) BadgeIDs() []BadgeID {
	ids := make([]BadgeID, len(r.NewBadges))
	for i, b := range r.NewBadges {
		ids[i] = b.ID
	}
	return ids
}

// Engine - детерминированный движок прогрессии. Безопасен для
// конкурентного использования: не содержит мутируемого состояния.
type Engine struct {
	levels  *LevelTable
	catalog *Catalog
}

// NewEngine создаёт движок над таблицей уровней и каталогом бейджей.
func NewEngine(levels *LevelTable, catalog *Catalog) *Engine {
	return &Engine{levels: levels, catalog: catalog}
}

// NewDefaultEngine создаёт движок с продуктовыми каталогами.
func NewDefaultEngine() *Engine {
	levels := DefaultLevelTable()
	return NewEngine(levels, DefaultCatalog(levels))
}

// Levels возвращает таблицу уровней движка.
func (e *Engine) Levels() *LevelTable {
	return e.levels
}

// Catalog возвращает каталог бейджей движка.
func (e *Engine) Catalog() *Catalog {
	return e.catalog
}

// ApplyTrade применяет регистрацию трейда: базовый XP по исходу,
// обновление счётчиков и серии, затем каскад бейджей.
func (e *Engine) ApplyTrade(state *State, outcome TradeOutcome, ctx EvaluationContext, now time.Time) (*Result, error) {
	if state == nil {
		return nil, shared.ErrStateNotFound
	}
	if err := state.RecordTrade(outcome, now); err != nil {
		return nil, err
	}

	amount := XPTradeBase
	reason := ReasonTradeRegistered
	if outcome == OutcomeWin {
		amount = XPWinningTrade
		reason = ReasonWinningTrade
	}
	return e.apply(state, amount, reason, "", nil, ctx, now)
}

// ApplyGrant применяет внешнее начисление XP (дни челленджа, бонусы,
// ручные награды), затем каскад бейджей. Metadata попадает в строку
// журнала базового начисления.
func (e *Engine) ApplyGrant(state *State, amount XP, reason string, metadata map[string]string, ctx EvaluationContext, now time.Time) (*Result, error) {
	if state == nil {
		return nil, shared.ErrStateNotFound
	}
	if amount <= 0 {
		return nil, shared.ErrInvalidGrantAmount
	}
	if reason == "" {
		reason = ReasonManualGrant
	}
	return e.apply(state, amount, reason, "", metadata, ctx, now)
}

// apply - общий путь: базовое начисление, каскад бейджей, вычисление уровня.
func (e *Engine) apply(state *State, amount XP, reason string, badgeID BadgeID, metadata map[string]string, ctx EvaluationContext, now time.Time) (*Result, error) {
	levelBefore := e.levels.LevelForXP(state.XP)

	result := &Result{}
	if err := e.credit(state, result, amount, reason, badgeID, metadata, now); err != nil {
		return nil, err
	}
	if err := e.evaluateBadges(state, result, ctx, now); err != nil {
		return nil, err
	}

	levelAfter := e.levels.LevelForXP(state.XP)
	if levelAfter > levelBefore {
		result.LeveledUp = true
		result.PreviousLevel = levelBefore
		result.NewLevel = levelAfter
		result.NewLevelName = e.levels.Name(levelAfter)
	}
	return result, nil
}

// credit начисляет XP и пишет строку журнала.
func (e *Engine) credit(state *State, result *Result, amount XP, reason string, badgeID BadgeID, metadata map[string]string, now time.Time) error {
	if err := state.AddXP(amount, now); err != nil {
		return err
	}
	result.XPEarned += amount
	result.Transactions = append(result.Transactions, XPTransaction{
		ID:        uuid.New(),
		Ref:       state.Ref,
		Amount:    amount,
		Reason:    reason,
		BadgeID:   badgeID,
		Metadata:  metadata,
		CreatedAt: now,
	})
	return nil
}

// evaluateBadges прогоняет каталог до неподвижной точки.
// Каждый проход выдаёт все заслуженные бейджи; награды бейджей могут
// открыть новые бейджи, поэтому проходы повторяются, но не более
// maxBadgePasses раз. Превышение лимита - ошибка конфигурации каталога.
func (e *Engine) evaluateBadges(state *State, result *Result, ctx EvaluationContext, now time.Time) error {
	for pass := 0; pass < maxBadgePasses; pass++ {
		awarded := false
		for _, def := range e.catalog.All() {
			if state.HasBadge(def.ID) {
				continue
			}
			if !def.Earned(state, ctx) {
				continue
			}
			if err := state.AwardBadge(def.ID, now); err != nil {
				return err
			}
			result.NewBadges = append(result.NewBadges, def)
			awarded = true
			if def.XPReward > 0 {
				if err := e.credit(state, result, def.XPReward, ReasonBadgeEarned, def.ID, nil, now); err != nil {
					return err
				}
			}
		}
		if !awarded {
			return nil
		}
	}

	// Последний проход ещё выдавал бейджи - проверяем, сошлось ли.
	for _, def := range e.catalog.All() {
		if !state.HasBadge(def.ID) && def.Earned(state, ctx) {
			return shared.ErrBadgeEvalDiverged
		}
	}
	return nil
}
