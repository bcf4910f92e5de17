package postgres

import (
	"context"
	"fmt"

	"github.com/mentora-hub/mentora-progression/internal/domain/progression"
	"github.com/mentora-hub/mentora-progression/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// XP JOURNAL IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// XPJournal implements progression.TransactionLog for PostgreSQL.
// The journal is append-only: rows are never updated or deleted, even
// when the owning state is reset.
type XPJournal struct {
	db Querier
}

// NewXPJournal creates a new XPJournal.
func NewXPJournal(db Querier) *XPJournal {
	return &XPJournal{db: db}
}

// Append writes the journal rows produced by one progression event.
func (r *XPJournal) Append(ctx context.Context, txs []progression.XPTransaction) error {
	if len(txs) == 0 {
		return nil
	}

	query := `
		INSERT INTO xp_transactions (
			id, tenant_id, user_id, amount, reason, badge_id, metadata, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	for _, tx := range txs {
		_, err := r.db.Exec(ctx, query,
			tx.ID,
			string(tx.Ref.TenantID),
			string(tx.Ref.UserID),
			tx.Amount.Int(),
			tx.Reason,
			string(tx.BadgeID),
			tx.Metadata,
			tx.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to append xp transaction: %w", err)
		}
	}

	return nil
}

// ListRecent returns the latest journal rows for a user, newest first.
func (r *XPJournal) ListRecent(ctx context.Context, ref shared.UserRef, limit int) ([]progression.XPTransaction, error) {
	query := `
		SELECT id, amount, reason, badge_id, metadata, created_at
		FROM xp_transactions
		WHERE tenant_id = $1 AND user_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`

	rows, err := r.db.Query(ctx, query, string(ref.TenantID), string(ref.UserID), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query xp transactions: %w", err)
	}
	defer rows.Close()

	var txs []progression.XPTransaction
	for rows.Next() {
		var tx progression.XPTransaction
		var amount int
		var badgeID string

		if err := rows.Scan(&tx.ID, &amount, &tx.Reason, &badgeID, &tx.Metadata, &tx.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan xp transaction: %w", err)
		}

		tx.Ref = ref
		tx.Amount = progression.XP(amount)
		tx.BadgeID = progression.BadgeID(badgeID)
		txs = append(txs, tx)
	}

	return txs, rows.Err()
}
