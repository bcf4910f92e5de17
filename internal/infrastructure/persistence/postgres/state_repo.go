package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mentora-hub/mentora-progression/internal/domain/progression"
	"github.com/mentora-hub/mentora-progression/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// STATE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

const stateColumns = `tenant_id, user_id, display_name, xp, total_trades, winning_trades,
			   current_streak, best_streak, badges, created_at, updated_at`

// StateRepository implements progression.StateRepository for PostgreSQL.
// It accepts any Querier, so the same implementation serves both the
// pool-backed connection and a transaction inside a unit of work.
type StateRepository struct {
	db Querier
}

// NewStateRepository creates a new StateRepository.
func NewStateRepository(db Querier) *StateRepository {
	return &StateRepository{db: db}
}

// Get returns the progression state for a user.
func (r *StateRepository) Get(ctx context.Context, ref shared.UserRef) (*progression.State, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM progression_states
		WHERE tenant_id = $1 AND user_id = $2
	`, stateColumns)

	row := r.db.QueryRow(ctx, query, string(ref.TenantID), string(ref.UserID))
	return r.scanState(row)
}

// GetForUpdate returns the state with a row lock, serializing concurrent
// progression events for the same user. Must run inside a transaction.
func (r *StateRepository) GetForUpdate(ctx context.Context, ref shared.UserRef) (*progression.State, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM progression_states
		WHERE tenant_id = $1 AND user_id = $2
		FOR UPDATE
	`, stateColumns)

	row := r.db.QueryRow(ctx, query, string(ref.TenantID), string(ref.UserID))
	return r.scanState(row)
}

// Create inserts a new progression state.
func (r *StateRepository) Create(ctx context.Context, s *progression.State) error {
	query := `
		INSERT INTO progression_states (
			tenant_id, user_id, display_name, xp, total_trades, winning_trades,
			current_streak, best_streak, badges, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	badgesJSON, err := json.Marshal(badgesToRows(s.Badges))
	if err != nil {
		return fmt.Errorf("failed to marshal badges: %w", err)
	}

	_, err = r.db.Exec(ctx, query,
		string(s.Ref.TenantID),
		string(s.Ref.UserID),
		s.DisplayName,
		s.XP.Int(),
		s.TotalTrades,
		s.WinningTrades,
		s.CurrentStreak,
		s.BestStreak,
		badgesJSON,
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrStateAlreadyExists
		}
		return fmt.Errorf("failed to create progression state: %w", err)
	}

	return nil
}

// Save overwrites an existing progression state.
func (r *StateRepository) Save(ctx context.Context, s *progression.State) error {
	query := `
		UPDATE progression_states SET
			display_name = $1,
			xp = $2,
			total_trades = $3,
			winning_trades = $4,
			current_streak = $5,
			best_streak = $6,
			badges = $7,
			updated_at = $8
		WHERE tenant_id = $9 AND user_id = $10
	`

	badgesJSON, err := json.Marshal(badgesToRows(s.Badges))
	if err != nil {
		return fmt.Errorf("failed to marshal badges: %w", err)
	}

	result, err := r.db.Exec(ctx, query,
		s.DisplayName,
		s.XP.Int(),
		s.TotalTrades,
		s.WinningTrades,
		s.CurrentStreak,
		s.BestStreak,
		badgesJSON,
		s.UpdatedAt,
		string(s.Ref.TenantID),
		string(s.Ref.UserID),
	)
	if err != nil {
		return fmt.Errorf("failed to save progression state: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shared.ErrStateNotFound
	}

	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

// badgeRow is the JSONB shape of one earned badge.
type badgeRow struct {
	ID       string    `json:"id"`
	EarnedAt time.Time `json:"earned_at"`
}

func badgesToRows(badges []progression.EarnedBadge) []badgeRow {
	rows := make([]badgeRow, len(badges))
	for i, b := range badges {
		rows[i] = badgeRow{ID: string(b.ID), EarnedAt: b.EarnedAt}
	}
	return rows
}

func rowsToBadges(rows []badgeRow) []progression.EarnedBadge {
	badges := make([]progression.EarnedBadge, len(rows))
	for i, row := range rows {
		badges[i] = progression.EarnedBadge{
			ID:       progression.BadgeID(row.ID),
			EarnedAt: row.EarnedAt,
		}
	}
	return badges
}

// scanState scans a single progression state from a row.
func (r *StateRepository) scanState(row pgx.Row) (*progression.State, error) {
	var s progression.State
	var tenantID, userID string
	var xp int
	var badgesJSON []byte

	err := row.Scan(
		&tenantID,
		&userID,
		&s.DisplayName,
		&xp,
		&s.TotalTrades,
		&s.WinningTrades,
		&s.CurrentStreak,
		&s.BestStreak,
		&badgesJSON,
		&s.CreatedAt,
		&s.UpdatedAt,
	)

	if IsNoRows(err) {
		return nil, shared.ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan progression state: %w", err)
	}

	var badgeRows []badgeRow
	if err := json.Unmarshal(badgesJSON, &badgeRows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal badges: %w", err)
	}

	s.Ref = shared.UserRef{TenantID: shared.TenantID(tenantID), UserID: shared.UserID(userID)}
	s.XP = progression.XP(xp)
	s.Badges = rowsToBadges(badgeRows)

	return &s, nil
}
