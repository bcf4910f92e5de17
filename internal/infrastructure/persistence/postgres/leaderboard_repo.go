package postgres

import (
	"context"
	"fmt"

	"github.com/mentora-hub/mentora-progression/internal/domain/leaderboard"
	"github.com/mentora-hub/mentora-progression/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardRepository implements leaderboard.Repository for PostgreSQL.
// The leaderboard has no table of its own: entries are projected from
// progression_states. Rank and level are assigned by the callers.
type LeaderboardRepository struct {
	db Querier
}

// NewLeaderboardRepository creates a new LeaderboardRepository.
func NewLeaderboardRepository(db Querier) *LeaderboardRepository {
	return &LeaderboardRepository{db: db}
}

// Entries returns all leaderboard entries for a tenant, unranked.
func (r *LeaderboardRepository) Entries(ctx context.Context, tenantID shared.TenantID) ([]leaderboard.Entry, error) {
	query := `
		SELECT user_id, display_name, xp, total_trades, winning_trades,
			   jsonb_array_length(badges)
		FROM progression_states
		WHERE tenant_id = $1
		ORDER BY xp DESC
	`

	rows, err := r.db.Query(ctx, query, string(tenantID))
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard entries: %w", err)
	}
	defer rows.Close()

	var entries []leaderboard.Entry
	for rows.Next() {
		var e leaderboard.Entry
		var userID string
		var xp, totalTrades, winningTrades int

		err := rows.Scan(
			&userID,
			&e.DisplayName,
			&xp,
			&totalTrades,
			&winningTrades,
			&e.BadgeCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}

		e.UserID = shared.UserID(userID)
		e.XP = shared.XP(xp)
		if totalTrades > 0 {
			e.WinRate = float64(winningTrades) / float64(totalTrades) * 100
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
