package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/mentora-hub/mentora-progression/internal/domain/challenge"
	"github.com/mentora-hub/mentora-progression/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CHALLENGE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ChallengeRepository implements challenge.Repository for PostgreSQL.
// A challenge is stored as one header row plus one row per touched day.
type ChallengeRepository struct {
	db Querier
}

// NewChallengeRepository creates a new ChallengeRepository.
func NewChallengeRepository(db Querier) *ChallengeRepository {
	return &ChallengeRepository{db: db}
}

// Get returns the challenge progress for a user.
func (r *ChallengeRepository) Get(ctx context.Context, ref shared.UserRef, challengeID string) (*challenge.Challenge, error) {
	query := `
		SELECT started_at, updated_at
		FROM challenges
		WHERE tenant_id = $1 AND user_id = $2 AND challenge_id = $3
	`

	return r.load(ctx, ref, challengeID, query)
}

// GetForUpdate returns the challenge with a row lock on the header row.
// Must run inside a transaction.
func (r *ChallengeRepository) GetForUpdate(ctx context.Context, ref shared.UserRef, challengeID string) (*challenge.Challenge, error) {
	query := `
		SELECT started_at, updated_at
		FROM challenges
		WHERE tenant_id = $1 AND user_id = $2 AND challenge_id = $3
		FOR UPDATE
	`

	return r.load(ctx, ref, challengeID, query)
}

// Create inserts a new challenge.
func (r *ChallengeRepository) Create(ctx context.Context, c *challenge.Challenge) error {
	query := `
		INSERT INTO challenges (tenant_id, user_id, challenge_id, started_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Exec(ctx, query,
		string(c.Ref.TenantID),
		string(c.Ref.UserID),
		c.ChallengeID,
		c.StartedAt,
		c.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.NewDomainError("challenge", "Create",
				shared.ErrAlreadyExists, "challenge already started")
		}
		return fmt.Errorf("failed to create challenge: %w", err)
	}

	return r.saveDays(ctx, c)
}

// Save persists the challenge header and upserts completed days.
func (r *ChallengeRepository) Save(ctx context.Context, c *challenge.Challenge) error {
	query := `
		UPDATE challenges SET updated_at = $1
		WHERE tenant_id = $2 AND user_id = $3 AND challenge_id = $4
	`

	result, err := r.db.Exec(ctx, query,
		c.UpdatedAt,
		string(c.Ref.TenantID),
		string(c.Ref.UserID),
		c.ChallengeID,
	)
	if err != nil {
		return fmt.Errorf("failed to save challenge: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shared.NewDomainError("challenge", "Save",
			shared.ErrNotFound, "challenge not found")
	}

	return r.saveDays(ctx, c)
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func (r *ChallengeRepository) load(ctx context.Context, ref shared.UserRef, challengeID, headerQuery string) (*challenge.Challenge, error) {
	var startedAt, updatedAt time.Time

	row := r.db.QueryRow(ctx, headerQuery,
		string(ref.TenantID), string(ref.UserID), challengeID)

	err := row.Scan(&startedAt, &updatedAt)
	if IsNoRows(err) {
		return nil, shared.NewDomainError("challenge", "Get",
			shared.ErrNotFound, "challenge not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan challenge: %w", err)
	}

	days, err := r.loadDays(ctx, ref, challengeID)
	if err != nil {
		return nil, err
	}

	return challenge.Restore(ref, challengeID, startedAt, updatedAt, days), nil
}

func (r *ChallengeRepository) loadDays(ctx context.Context, ref shared.UserRef, challengeID string) ([]challenge.DayRecord, error) {
	query := `
		SELECT day, completed_at, notes
		FROM challenge_days
		WHERE tenant_id = $1 AND user_id = $2 AND challenge_id = $3
		ORDER BY day
	`

	rows, err := r.db.Query(ctx, query,
		string(ref.TenantID), string(ref.UserID), challengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query challenge days: %w", err)
	}
	defer rows.Close()

	var days []challenge.DayRecord
	for rows.Next() {
		var d challenge.DayRecord
		var completedAt *time.Time
		if err := rows.Scan(&d.Day, &completedAt, &d.Notes); err != nil {
			return nil, fmt.Errorf("failed to scan challenge day: %w", err)
		}
		if completedAt != nil {
			d.CompletedAt = *completedAt
		}
		days = append(days, d)
	}

	return days, rows.Err()
}

func (r *ChallengeRepository) saveDays(ctx context.Context, c *challenge.Challenge) error {
	// COALESCE keeps the first completion time immutable even if two
	// transactions race on the same day.
	query := `
		INSERT INTO challenge_days (
			tenant_id, user_id, challenge_id, day, completed_at, notes
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (tenant_id, user_id, challenge_id, day)
		DO UPDATE SET
			completed_at = COALESCE(challenge_days.completed_at, EXCLUDED.completed_at),
			notes = EXCLUDED.notes
	`

	for _, d := range c.Days() {
		var completedAt *time.Time
		if d.Completed() {
			at := d.CompletedAt
			completedAt = &at
		}
		_, err := r.db.Exec(ctx, query,
			string(c.Ref.TenantID),
			string(c.Ref.UserID),
			c.ChallengeID,
			d.Day,
			completedAt,
			d.Notes,
		)
		if err != nil {
			return fmt.Errorf("failed to save challenge day %d: %w", d.Day, err)
		}
	}

	return nil
}
