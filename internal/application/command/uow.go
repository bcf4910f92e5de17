// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"

	"github.com/mentora-hub/mentora-progression/internal/domain/challenge"
	"github.com/mentora-hub/mentora-progression/internal/domain/progression"
)

// UnitOfWork groups the repositories bound to one storage transaction.
// A progression event (trade, grant, challenge day) is applied as a whole:
// either every effect commits or none of them do.
type UnitOfWork interface {
	States() progression.StateRepository
	Transactions() progression.TransactionLog
	TradeHistory() progression.TradeHistoryWriter
	Challenges() challenge.Repository
}

// UnitOfWorkFactory opens a transaction and runs fn inside it.
// An error from fn rolls the transaction back.
type UnitOfWorkFactory interface {
	WithinTx(ctx context.Context, fn func(uow UnitOfWork) error) error
}
