package postgres

import (
	"context"

	"github.com/mentora-hub/mentora-progression/internal/application/command"
	"github.com/mentora-hub/mentora-progression/internal/domain/challenge"
	"github.com/mentora-hub/mentora-progression/internal/domain/progression"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// UNIT OF WORK
// ══════════════════════════════════════════════════════════════════════════════

// UnitOfWorkFactory implements command.UnitOfWorkFactory over a
// PostgreSQL connection pool. Every WithinTx call opens one transaction
// and hands the callback repositories bound to it, so a progression
// event commits or rolls back atomically.
type UnitOfWorkFactory struct {
	conn *Connection
}

// NewUnitOfWorkFactory creates a new UnitOfWorkFactory.
func NewUnitOfWorkFactory(conn *Connection) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{conn: conn}
}

// WithinTx executes fn inside a read-write transaction.
func (f *UnitOfWorkFactory) WithinTx(ctx context.Context, fn func(command.UnitOfWork) error) error {
	return f.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		return fn(&unitOfWork{tx: tx})
	})
}

// unitOfWork exposes transaction-bound repositories.
type unitOfWork struct {
	tx pgx.Tx
}

func (u *unitOfWork) States() progression.StateRepository {
	return NewStateRepository(u.tx)
}

func (u *unitOfWork) Transactions() progression.TransactionLog {
	return NewXPJournal(u.tx)
}

func (u *unitOfWork) TradeHistory() progression.TradeHistoryWriter {
	return NewTradeHistoryRepository(u.tx)
}

func (u *unitOfWork) Challenges() challenge.Repository {
	return NewChallengeRepository(u.tx)
}
