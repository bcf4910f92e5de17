package postgres

import (
	"context"
	"fmt"

	"github.com/mentora-hub/mentora-progression/internal/domain/progression"
	"github.com/mentora-hub/mentora-progression/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// TRADE HISTORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// TradeHistoryRepository implements progression.TradeHistoryReader and
// progression.TradeHistoryWriter for PostgreSQL.
type TradeHistoryRepository struct {
	db Querier
}

// NewTradeHistoryRepository creates a new TradeHistoryRepository.
func NewTradeHistoryRepository(db Querier) *TradeHistoryRepository {
	return &TradeHistoryRepository{db: db}
}

// AppendOutcome records one trade outcome.
func (r *TradeHistoryRepository) AppendOutcome(ctx context.Context, ref shared.UserRef, record progression.TradeRecord) error {
	query := `
		INSERT INTO trade_history (tenant_id, user_id, outcome, recorded_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.db.Exec(ctx, query,
		string(ref.TenantID),
		string(ref.UserID),
		string(record.Outcome),
		record.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append trade outcome: %w", err)
	}

	return nil
}

// RecentOutcomes returns the outcomes of the user's latest trades,
// oldest first so callers can append the in-flight trade at the end.
func (r *TradeHistoryRepository) RecentOutcomes(ctx context.Context, ref shared.UserRef, limit int) ([]progression.TradeOutcome, error) {
	query := `
		SELECT outcome
		FROM trade_history
		WHERE tenant_id = $1 AND user_id = $2
		ORDER BY id DESC
		LIMIT $3
	`

	rows, err := r.db.Query(ctx, query, string(ref.TenantID), string(ref.UserID), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query trade history: %w", err)
	}
	defer rows.Close()

	var outcomes []progression.TradeOutcome
	for rows.Next() {
		var outcome string
		if err := rows.Scan(&outcome); err != nil {
			return nil, fmt.Errorf("failed to scan trade outcome: %w", err)
		}
		outcomes = append(outcomes, progression.TradeOutcome(outcome))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// The query walks the log backwards; restore chronological order.
	for i, j := 0, len(outcomes)-1; i < j; i, j = i+1, j-1 {
		outcomes[i], outcomes[j] = outcomes[j], outcomes[i]
	}

	return outcomes, nil
}

// Trim deletes everything but each user's most recent keep outcomes within a
// tenant. Only the recent window feeds streak and badge evaluation, so older
// rows are pure storage cost. Returns the number of deleted rows.
func (r *TradeHistoryRepository) Trim(ctx context.Context, tenantID shared.TenantID, keep int) (int64, error) {
	if keep <= 0 {
		return 0, fmt.Errorf("trim: keep must be positive, got %d", keep)
	}

	query := `
		DELETE FROM trade_history
		WHERE id IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (
					PARTITION BY user_id ORDER BY id DESC
				) AS row_num
				FROM trade_history
				WHERE tenant_id = $1
			) ranked
			WHERE ranked.row_num > $2
		)
	`

	tag, err := r.db.Exec(ctx, query, string(tenantID), keep)
	if err != nil {
		return 0, fmt.Errorf("failed to trim trade history: %w", err)
	}

	return tag.RowsAffected(), nil
}
