package eventhandler

import (
	"github.com/mentora-hub/mentora-progression/internal/domain/shared"
	"github.com/mentora-hub/mentora-progression/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ON BADGE EARNED HANDLER
// Журналирует выдачу бейджа. Точка расширения для будущих уведомлений.
// ══════════════════════════════════════════════════════════════════════════════

// OnBadgeEarnedHandler обрабатывает событие выдачи бейджа.
type OnBadgeEarnedHandler struct {
	log *logger.Logger
}

// NewOnBadgeEarnedHandler создаёт новый OnBadgeEarnedHandler.
func NewOnBadgeEarnedHandler(log *logger.Logger) *OnBadgeEarnedHandler {
	if log == nil {
		log = logger.Default()
	}
	return &OnBadgeEarnedHandler{log: log.With(logger.Component("eventhandler"))}
}

// Name возвращает имя обработчика для логов шины.
func (h *OnBadgeEarnedHandler) Name() string {
	return "on_badge_earned"
}

// Handle обрабатывает событие.
func (h *OnBadgeEarnedHandler) Handle(event shared.Event) error {
	e, ok := event.(shared.BadgeEarnedEvent)
	if !ok {
		return nil
	}

	h.log.Info("badge earned",
		logger.TenantID(e.TenantID),
		logger.UserID(e.UserID),
		logger.BadgeID(e.BadgeID),
		logger.String("badge_name", e.BadgeName),
		logger.XPAmount(e.XPReward),
	)
	return nil
}
