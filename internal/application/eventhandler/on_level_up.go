// Package eventhandler содержит обработчики доменных событий.
// Обработчики - "реактивная" часть системы: они запускают побочные
// эффекты (логирование вех, сброс кэшей), не участвуя в основной
// транзакции события.
package eventhandler

import (
	"context"

	"github.com/mentora-hub/mentora-progression/internal/domain/leaderboard"
	"github.com/mentora-hub/mentora-progression/internal/domain/shared"
	"github.com/mentora-hub/mentora-progression/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ON LEVEL UP HANDLER
// Фиксирует веху повышения уровня и сбрасывает кэш рейтинга тенанта:
// смена уровня меняет отображаемые строки лидерборда.
// ══════════════════════════════════════════════════════════════════════════════

// OnLevelUpHandler обрабатывает событие повышения уровня.
type OnLevelUpHandler struct {
	cache leaderboard.Cache
	log   *logger.Logger
}

// NewOnLevelUpHandler создаёт новый OnLevelUpHandler.
func NewOnLevelUpHandler(cache leaderboard.Cache, log *logger.Logger) *OnLevelUpHandler {
	if log == nil {
		log = logger.Default()
	}
	return &OnLevelUpHandler{cache: cache, log: log.With(logger.Component("eventhandler"))}
}

// Name возвращает имя обработчика для логов шины.
func (h *OnLevelUpHandler) Name() string {
	return "on_level_up"
}

// Handle обрабатывает событие.
func (h *OnLevelUpHandler) Handle(event shared.Event) error {
	e, ok := event.(shared.LevelUpEvent)
	if !ok {
		return nil
	}

	h.log.Info("user leveled up",
		logger.TenantID(e.TenantID),
		logger.UserID(e.UserID),
		logger.LevelNumber(e.NewLevel),
		logger.String("level_name", e.LevelName),
		logger.XPAmount(e.TotalXP),
	)

	if h.cache != nil {
		_ = h.cache.Invalidate(context.Background(), shared.TenantID(e.TenantID))
	}
	return nil
}
