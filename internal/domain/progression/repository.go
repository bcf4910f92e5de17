package progression

import (
	"context"
	"time"

	"github.com/mentora-hub/mentora-progression/internal/domain/shared"
)

// StateRepository - хранилище состояний прогрессии.
type StateRepository interface {
	// Get возвращает состояние пользователя или shared.ErrStateNotFound.
	Get(ctx context.Context, ref shared.UserRef) (*State, error)

	// GetForUpdate возвращает состояние под блокировкой записи.
	// Сериализует конкурентные события одного пользователя.
	GetForUpdate(ctx context.Context, ref shared.UserRef) (*State, error)

	// Create сохраняет новое состояние или shared.ErrStateAlreadyExists.
	Create(ctx context.Context, state *State) error

	// Save перезаписывает существующее состояние.
	Save(ctx context.Context, state *State) error
}

// TransactionLog - журнал начислений XP, только добавление.
type TransactionLog interface {
	// Append дописывает строки журнала одного события.
	Append(ctx context.Context, txs []XPTransaction) error

	// ListRecent возвращает последние строки пользователя, новые первыми.
	ListRecent(ctx context.Context, ref shared.UserRef, limit int) ([]XPTransaction, error)
}

// TradeRecord - исход трейда с меткой времени, для предикатов истории.
type TradeRecord struct {
	Outcome    TradeOutcome
	RecordedAt time.Time
}

// TradeHistoryReader отдаёт последние исходы трейдов пользователя.
type TradeHistoryReader interface {
	// RecentOutcomes возвращает исходы последних трейдов, новые в конце.
	RecentOutcomes(ctx context.Context, ref shared.UserRef, limit int) ([]TradeOutcome, error)
}

// TradeHistoryWriter дописывает исходы трейдов.
type TradeHistoryWriter interface {
	AppendOutcome(ctx context.Context, ref shared.UserRef, record TradeRecord) error
}
