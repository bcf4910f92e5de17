package progression

import (
	"fmt"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// BADGE CATALOG
// Статический каталог бейджей. Каждый бейдж - идентификатор, XP-награда и
// предикат над состоянием пользователя. Бейдж выдаётся не более одного раза.
// ══════════════════════════════════════════════════════════════════════════════

// BadgeID - стабильный идентификатор бейджа в каталоге.
type BadgeID string

// Идентификаторы каталога. Меняются только вместе с миграцией данных.
const (
	BadgeFirstTrade BadgeID = "first_trade"
	BadgeTrader10   BadgeID = "trader_10"
	BadgeTrader50   BadgeID = "trader_50"
	BadgeTrader100  BadgeID = "trader_100"
	BadgeTrader500  BadgeID = "trader_500"

	BadgeStreak3  BadgeID = "streak_3"
	BadgeStreak5  BadgeID = "streak_5"
	BadgeStreak10 BadgeID = "streak_10"
	BadgeStreak20 BadgeID = "streak_20"

	BadgeLevel2  BadgeID = "level_2"
	BadgeLevel5  BadgeID = "level_5"
	BadgeLevel10 BadgeID = "level_10"

	BadgeXP1000  BadgeID = "xp_1000"
	BadgeXP10000 BadgeID = "xp_10000"

	BadgeChallengeStarted  BadgeID = "challenge_started"
	BadgeChallengeWeek1    BadgeID = "challenge_week1"
	BadgeChallengeWeek2    BadgeID = "challenge_week2"
	BadgeChallengeComplete BadgeID = "challenge_complete"

	BadgeWinrate50 BadgeID = "winrate_50"
	BadgeWinrate60 BadgeID = "winrate_60"
	BadgeWinrate70 BadgeID = "winrate_70"

	BadgeEarlyBird      BadgeID = "early_bird"
	BadgeNightOwl       BadgeID = "night_owl"
	BadgeWeekendWarrior BadgeID = "weekend_warrior"
	BadgePerfectWeek    BadgeID = "perfect_week"
)

// BadgeCategory группирует бейджи для витрины.
type BadgeCategory string

const (
	CategoryTrades    BadgeCategory = "trades"
	CategoryStreaks   BadgeCategory = "streaks"
	CategoryXP        BadgeCategory = "xp"
	CategoryChallenge BadgeCategory = "challenge"
	CategoryMastery   BadgeCategory = "mastery"
	CategorySpecial   BadgeCategory = "special"
	CategoryCommunity BadgeCategory = "community"
)

// CategoryName возвращает отображаемое имя категории.
func CategoryName(category BadgeCategory) string {
	switch category {
	case CategoryTrades:
		return "Trades"
	case CategoryStreaks:
		return "Sequências"
	case CategoryXP:
		return "Experiência"
	case CategoryChallenge:
		return "Desafios"
	case CategoryMastery:
		return "Maestria"
	case CategorySpecial:
		return "Especiais"
	case CategoryCommunity:
		return "Comunidade"
	}
	return string(category)
}

// EvaluationContext - всё, что предикат бейджа может видеть помимо State.
// Собирается вызывающей стороной один раз на событие; предикаты никогда
// не обращаются к хранилищу напрямую.
type EvaluationContext struct {
	// TradeAt - время регистрируемого трейда (zero для не-трейдовых событий).
	TradeAt time.Time

	// RecentOutcomes - исходы последних трейдов, новые в конце.
	// Используется бейджем perfect_week.
	RecentOutcomes []TradeOutcome

	// ChallengeStarted - пользователь начал 30-дневный челлендж.
	ChallengeStarted bool

	// ChallengeDaysCompleted - число завершённых дней челленджа.
	ChallengeDaysCompleted int
}

// BadgePredicate решает, заслужен ли бейдж при текущем состоянии.
// Предикат обязан быть чистой функцией от (state, ctx).
type BadgePredicate func(s *State, ctx EvaluationContext) bool

// BadgeDefinition описывает один бейдж каталога.
type BadgeDefinition struct {
	ID          BadgeID
	Name        string
	Description string
	Icon        string
	Category    BadgeCategory

	// Requirement - человекочитаемое условие для витрины.
	Requirement string

	// XPReward - XP, начисляемый при выдаче. Может быть 0.
	XPReward XP

	// Earned - предикат выдачи.
	Earned BadgePredicate
}

// Catalog - неизменяемый каталог бейджей с сохранением порядка объявления.
// Порядок важен: внутри одного прохода движок оценивает бейджи по порядку.
type Catalog struct {
	ordered []BadgeDefinition
	byID    map[BadgeID]BadgeDefinition
}

// NewCatalog собирает каталог, отклоняя дубликаты идентификаторов.
func NewCatalog(defs []BadgeDefinition) (*Catalog, error) {
	byID := make(map[BadgeID]BadgeDefinition, len(defs))
	ordered := make([]BadgeDefinition, 0, len(defs))
	for _, def := range defs {
		if def.ID == "" {
			return nil, fmt.Errorf("badge catalog: empty badge id")
		}
		if def.Earned == nil {
			return nil, fmt.Errorf("badge catalog: badge %s has no predicate", def.ID)
		}
		if _, exists := byID[def.ID]; exists {
			return nil, fmt.Errorf("badge catalog: duplicate badge id %s", def.ID)
		}
		byID[def.ID] = def
		ordered = append(ordered, def)
	}
	return &Catalog{ordered: ordered, byID: byID}, nil
}

// Get возвращает определение бейджа по идентификатору.
func (c *Catalog) Get(id BadgeID) (BadgeDefinition, bool) {
	def, ok := c.byID[id]
	return def, ok
}

// All возвращает бейджи в порядке объявления.
func (c *Catalog) All() []BadgeDefinition {
	result := make([]BadgeDefinition, len(c.ordered))
	copy(result, c.ordered)
	return result
}

// Count возвращает размер каталога.
func (c *Catalog) Count() int {
	return len(c.ordered)
}

// ──────────────────────────────────────────────────────────────────────────────
// Предикаты каталога по умолчанию
// ──────────────────────────────────────────────────────────────────────────────

func tradesAtLeast(n int) BadgePredicate {
	return func(s *State, _ EvaluationContext) bool {
		return s.TotalTrades >= n
	}
}

func streakAtLeast(n int) BadgePredicate {
	return func(s *State, _ EvaluationContext) bool {
		return s.BestStreak >= n
	}
}

func levelAtLeast(table *LevelTable, n int) BadgePredicate {
	return func(s *State, _ EvaluationContext) bool {
		return table.LevelForXP(s.XP) >= n
	}
}

func xpAtLeast(threshold XP) BadgePredicate {
	return func(s *State, _ EvaluationContext) bool {
		return s.XP >= threshold
	}
}

// winrateAtLeast требует минимум трейдов, иначе ранний процент шумит.
func winrateAtLeast(percent float64, minTrades int) BadgePredicate {
	return func(s *State, _ EvaluationContext) bool {
		return s.TotalTrades >= minTrades && s.WinRate() >= percent
	}
}

func challengeDaysAtLeast(days int) BadgePredicate {
	return func(_ *State, ctx EvaluationContext) bool {
		return ctx.ChallengeDaysCompleted >= days
	}
}

// tradeHourBetween проверяет локальный час трейда в полуинтервале [from, to).
func tradeHourBetween(from, to int) BadgePredicate {
	return func(_ *State, ctx EvaluationContext) bool {
		if ctx.TradeAt.IsZero() {
			return false
		}
		hour := ctx.TradeAt.Hour()
		return hour >= from && hour < to
	}
}

func tradeOnWeekend(_ *State, ctx EvaluationContext) bool {
	if ctx.TradeAt.IsZero() {
		return false
	}
	day := ctx.TradeAt.Weekday()
	return day == time.Saturday || day == time.Sunday
}

// perfectWeek: в истории минимум 5 трейдов, и последние 5 - все победные.
func perfectWeek(_ *State, ctx EvaluationContext) bool {
	const window = 5
	if len(ctx.RecentOutcomes) < window {
		return false
	}
	recent := ctx.RecentOutcomes[len(ctx.RecentOutcomes)-window:]
	for _, outcome := range recent {
		if outcome != OutcomeWin {
			return false
		}
	}
	return true
}

// DefaultCatalog возвращает продуктовый каталог из 25 бейджей.
// Идентификаторы, названия, награды и условия совпадают с витриной Mentora AI.
func DefaultCatalog(table *LevelTable) *Catalog {
	catalog, err := NewCatalog([]BadgeDefinition{
		{ID: BadgeFirstTrade, Name: "Primeiro Trade", Description: "Registrou seu primeiro trade", Icon: "🎯", Category: CategoryTrades, Requirement: "Registrar 1 trade", XPReward: 50, Earned: tradesAtLeast(1)},
		{ID: BadgeTrader10, Name: "Trader Iniciante", Description: "Registrou 10 trades", Icon: "📊", Category: CategoryTrades, Requirement: "Registrar 10 trades", XPReward: 100, Earned: tradesAtLeast(10)},
		{ID: BadgeTrader50, Name: "Trader Ativo", Description: "Registrou 50 trades", Icon: "📈", Category: CategoryTrades, Requirement: "Registrar 50 trades", XPReward: 250, Earned: tradesAtLeast(50)},
		{ID: BadgeTrader100, Name: "Trader Dedicado", Description: "Registrou 100 trades", Icon: "🏆", Category: CategoryTrades, Requirement: "Registrar 100 trades", XPReward: 500, Earned: tradesAtLeast(100)},
		{ID: BadgeTrader500, Name: "Trader Profissional", Description: "Registrou 500 trades", Icon: "💎", Category: CategoryTrades, Requirement: "Registrar 500 trades", XPReward: 1000, Earned: tradesAtLeast(500)},

		{ID: BadgeStreak3, Name: "Sequência Inicial", Description: "3 trades vencedores seguidos", Icon: "🔥", Category: CategoryStreaks, Requirement: "3 trades vencedores consecutivos", XPReward: 75, Earned: streakAtLeast(3)},
		{ID: BadgeStreak5, Name: "Em Chamas", Description: "5 trades vencedores seguidos", Icon: "🔥🔥", Category: CategoryStreaks, Requirement: "5 trades vencedores consecutivos", XPReward: 150, Earned: streakAtLeast(5)},
		{ID: BadgeStreak10, Name: "Imparável", Description: "10 trades vencedores seguidos", Icon: "⚡", Category: CategoryStreaks, Requirement: "10 trades vencedores consecutivos", XPReward: 500, Earned: streakAtLeast(10)},
		{ID: BadgeStreak20, Name: "Lendário", Description: "20 trades vencedores seguidos", Icon: "👑", Category: CategoryStreaks, Requirement: "20 trades vencedores consecutivos", XPReward: 1500, Earned: streakAtLeast(20)},

		{ID: BadgeLevel2, Name: "Aprendiz", Description: "Alcançou o nível 2", Icon: "⭐", Category: CategoryXP, Requirement: "Alcançar nível 2 (100 XP)", XPReward: 0, Earned: levelAtLeast(table, 2)},
		{ID: BadgeLevel5, Name: "Proficiente", Description: "Alcançou o nível 5", Icon: "⭐⭐", Category: CategoryXP, Requirement: "Alcançar nível 5 (3500 XP)", XPReward: 0, Earned: levelAtLeast(table, 5)},
		{ID: BadgeLevel10, Name: "Lenda", Description: "Alcançou o nível máximo", Icon: "🌟", Category: CategoryXP, Requirement: "Alcançar nível 10 (75000 XP)", XPReward: 0, Earned: levelAtLeast(table, 10)},

		{ID: BadgeXP1000, Name: "Mil XP", Description: "Acumulou 1000 XP", Icon: "💰", Category: CategoryXP, Requirement: "Acumular 1000 XP", XPReward: 100, Earned: xpAtLeast(1000)},
		{ID: BadgeXP10000, Name: "Dez Mil XP", Description: "Acumulou 10000 XP", Icon: "💎", Category: CategoryXP, Requirement: "Acumular 10000 XP", XPReward: 500, Earned: xpAtLeast(10000)},

		{ID: BadgeChallengeStarted, Name: "Desafio Aceito", Description: "Iniciou o Desafio 30 Dias", Icon: "🚀", Category: CategoryChallenge, Requirement: "Iniciar o Desafio 30 Dias", XPReward: 50, Earned: func(_ *State, ctx EvaluationContext) bool { return ctx.ChallengeStarted }},
		{ID: BadgeChallengeWeek1, Name: "Primeira Semana", Description: "Completou 7 dias do desafio", Icon: "📅", Category: CategoryChallenge, Requirement: "Completar 7 dias do desafio", XPReward: 200, Earned: challengeDaysAtLeast(7)},
		{ID: BadgeChallengeWeek2, Name: "Duas Semanas", Description: "Completou 14 dias do desafio", Icon: "📆", Category: CategoryChallenge, Requirement: "Completar 14 dias do desafio", XPReward: 300, Earned: challengeDaysAtLeast(14)},
		{ID: BadgeChallengeComplete, Name: "Desafio Completo", Description: "Completou o Desafio 30 Dias", Icon: "🏅", Category: CategoryChallenge, Requirement: "Completar todos os 30 dias", XPReward: 1000, Earned: challengeDaysAtLeast(30)},

		{ID: BadgeWinrate50, Name: "Equilibrado", Description: "Taxa de acerto de 50%+ (mín. 20 trades)", Icon: "⚖️", Category: CategoryMastery, Requirement: "50%+ win rate com 20+ trades", XPReward: 100, Earned: winrateAtLeast(50, 20)},
		{ID: BadgeWinrate60, Name: "Consistente", Description: "Taxa de acerto de 60%+ (mín. 50 trades)", Icon: "📊", Category: CategoryMastery, Requirement: "60%+ win rate com 50+ trades", XPReward: 300, Earned: winrateAtLeast(60, 50)},
		{ID: BadgeWinrate70, Name: "Mestre", Description: "Taxa de acerto de 70%+ (mín. 100 trades)", Icon: "🎖️", Category: CategoryMastery, Requirement: "70%+ win rate com 100+ trades", XPReward: 750, Earned: winrateAtLeast(70, 100)},

		{ID: BadgeEarlyBird, Name: "Madrugador", Description: "Trade antes das 7h", Icon: "🌅", Category: CategorySpecial, Requirement: "Registrar trade antes das 7h", XPReward: 25, Earned: tradeHourBetween(0, 7)},
		{ID: BadgeNightOwl, Name: "Coruja", Description: "Trade após as 22h", Icon: "🦉", Category: CategorySpecial, Requirement: "Registrar trade após as 22h", XPReward: 25, Earned: tradeHourBetween(22, 24)},
		{ID: BadgeWeekendWarrior, Name: "Guerreiro de Fim de Semana", Description: "Trade no fim de semana", Icon: "⚔️", Category: CategorySpecial, Requirement: "Registrar trade no sábado ou domingo", XPReward: 50, Earned: tradeOnWeekend},
		{ID: BadgePerfectWeek, Name: "Semana Perfeita", Description: "5 dias de trades vencedores", Icon: "✨", Category: CategorySpecial, Requirement: "5 dias consecutivos com trades vencedores", XPReward: 500, Earned: perfectWeek},
	})
	if err != nil {
		panic(fmt.Sprintf("progression: invalid default badge catalog: %v", err))
	}
	return catalog
}
