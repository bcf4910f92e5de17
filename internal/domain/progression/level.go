package progression

import (
	"errors"
	"fmt"
	"math"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEVEL TABLE
// Статическая таблица из 10 уровней. Уровень всегда вычисляется из XP
// детерминированно и никогда не хранится отдельно от него.
// ══════════════════════════════════════════════════════════════════════════════

// MaxLevel - максимальный уровень. XP сверх порога 10 уровня накапливается,
// но 11 уровня не существует.
const MaxLevel = 10

// LevelDefinition описывает один уровень прогрессии.
type LevelDefinition struct {
	// Level - номер уровня (1-10, строго возрастающий).
	Level int

	// Threshold - минимальный XP для достижения уровня. Threshold[1] = 0.
	Threshold XP

	// Name - отображаемое имя уровня.
	Name string

	// Color - цветовой тег для UI.
	Color string

	// Perks - список привилегий, открываемых на уровне.
	Perks []string
}

// LevelTable - неизменяемая упорядоченная таблица уровней.
// Создаётся один раз при старте процесса и валидируется конструктором.
type LevelTable struct {
	levels []LevelDefinition
}

var (
	// ErrEmptyLevelTable - таблица уровней пуста.
	ErrEmptyLevelTable = errors.New("level table: no levels defined")

	// ErrLevelTableOrder - номера или пороги не строго возрастают.
	ErrLevelTableOrder = errors.New("level table: levels and thresholds must be strictly increasing")

	// ErrLevelTableBase - первый уровень должен начинаться с нулевого порога.
	ErrLevelTableBase = errors.New("level table: first level must have threshold 0")
)

// NewLevelTable создаёт таблицу уровней с валидацией инвариантов.
func NewLevelTable(levels []LevelDefinition) (*LevelTable, error) {
	if len(levels) == 0 {
		return nil, ErrEmptyLevelTable
	}
	if levels[0].Level != 1 || levels[0].Threshold != 0 {
		return nil, ErrLevelTableBase
	}
	for i := 1; i < len(levels); i++ {
		if levels[i].Level != levels[i-1].Level+1 {
			return nil, ErrLevelTableOrder
		}
		if levels[i].Threshold <= levels[i-1].Threshold {
			return nil, ErrLevelTableOrder
		}
	}

	table := make([]LevelDefinition, len(levels))
	copy(table, levels)
	return &LevelTable{levels: table}, nil
}

// DefaultLevelTable возвращает таблицу уровней продукта: от "Novato" до "Lenda".
// Пороги и названия совпадают с каталогом Mentora AI.
func DefaultLevelTable() *LevelTable {
	table, err := NewLevelTable([]LevelDefinition{
		{Level: 1, Threshold: 0, Name: "Novato", Color: "#808080", Perks: []string{"Acesso básico à plataforma"}},
		{Level: 2, Threshold: 100, Name: "Aprendiz", Color: "#00ff88", Perks: []string{"Tema Neon desbloqueado"}},
		{Level: 3, Threshold: 500, Name: "Praticante", Color: "#00ccff", Perks: []string{"Tema Oceano desbloqueado", "Estatísticas avançadas"}},
		{Level: 4, Threshold: 1500, Name: "Competente", Color: "#6a4ff0", Perks: []string{"Tema Roxo desbloqueado", "Calculadoras premium"}},
		{Level: 5, Threshold: 3500, Name: "Proficiente", Color: "#ff6600", Perks: []string{"Tema Fogo desbloqueado", "Relatórios semanais"}},
		{Level: 6, Threshold: 7500, Name: "Experiente", Color: "#ff3366", Perks: []string{"Tema Vermelho desbloqueado", "Análise de padrões"}},
		{Level: 7, Threshold: 15000, Name: "Avançado", Color: "#ffcc00", Perks: []string{"Tema Ouro desbloqueado", "Mentoria básica"}},
		{Level: 8, Threshold: 30000, Name: "Expert", Color: "#00ffcc", Perks: []string{"Tema Cyber desbloqueado", "Sala VIP"}},
		{Level: 9, Threshold: 50000, Name: "Mestre", Color: "#ff00ff", Perks: []string{"Tema Matrix desbloqueado", "Mentoria avançada"}},
		{Level: 10, Threshold: 75000, Name: "Lenda", Color: "#ffffff", Perks: []string{"Todos os temas", "Badge exclusivo", "Acesso total"}},
	})
	if err != nil {
		// Статический каталог - ошибка здесь означает опечатку в коде.
		panic(fmt.Sprintf("progression: invalid default level table: %v", err))
	}
	return table
}

// LevelForXP возвращает номер самого высокого уровня с порогом <= xp.
// Для любого xp >= 0 результат определён, так как Threshold[1] = 0.
func (t *LevelTable) LevelForXP(xp XP) int {
	for i := len(t.levels) - 1; i >= 0; i-- {
		if xp >= t.levels[i].Threshold {
			return t.levels[i].Level
		}
	}
	return t.levels[0].Level
}

// Definition возвращает определение уровня по номеру.
func (t *LevelTable) Definition(level int) (LevelDefinition, bool) {
	if level < 1 || level > len(t.levels) {
		return LevelDefinition{}, false
	}
	return t.levels[level-1], true
}

// DefinitionForXP возвращает определение текущего уровня для xp.
func (t *LevelTable) DefinitionForXP(xp XP) LevelDefinition {
	return t.levels[t.LevelForXP(xp)-1]
}

// Name возвращает имя уровня по номеру (пустая строка для неизвестного).
func (t *LevelTable) Name(level int) string {
	def, ok := t.Definition(level)
	if !ok {
		return ""
	}
	return def.Name
}

// NextThreshold возвращает порог следующего уровня и false на максимальном уровне.
func (t *LevelTable) NextThreshold(level int) (XP, bool) {
	if level < 1 || level >= len(t.levels) {
		return 0, false
	}
	return t.levels[level].Threshold, true
}

// XPToNextLevel возвращает, сколько XP осталось до следующего уровня.
// На максимальном уровне возвращает 0.
func (t *LevelTable) XPToNextLevel(xp XP) XP {
	level := t.LevelForXP(xp)
	next, ok := t.NextThreshold(level)
	if !ok {
		return 0
	}
	return next - xp
}

// ProgressPercent возвращает прогресс внутри текущего уровня в процентах (0-100).
// Округление - математическое (round), результат всегда ограничен сверху 100.
// На максимальном уровне всегда 100.
func (t *LevelTable) ProgressPercent(xp XP) int {
	level := t.LevelForXP(xp)
	next, ok := t.NextThreshold(level)
	if !ok {
		return 100
	}

	current := t.levels[level-1].Threshold
	xpInLevel := float64(xp - current)
	xpNeeded := float64(next - current)

	percent := int(math.Round(xpInLevel / xpNeeded * 100))
	if percent > 100 {
		percent = 100
	}
	return percent
}

// Count возвращает количество уровней в таблице.
func (t *LevelTable) Count() int {
	return len(t.levels)
}

// All возвращает копию всех определений уровней.
func (t *LevelTable) All() []LevelDefinition {
	result := make([]LevelDefinition, len(t.levels))
	copy(result, t.levels)
	return result
}
