// Package jobs contains implementations of scheduled jobs for the
// progression service.
package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/mentora-hub/mentora-progression/internal/application/query"
	"github.com/mentora-hub/mentora-progression/internal/domain/leaderboard"
	"github.com/mentora-hub/mentora-progression/internal/domain/shared"
	"github.com/mentora-hub/mentora-progression/pkg/circuitbreaker"
	"github.com/mentora-hub/mentora-progression/pkg/logger"
	"github.com/mentora-hub/mentora-progression/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// REBUILD LEADERBOARD JOB
// ══════════════════════════════════════════════════════════════════════════════

// RebuildLeaderboardJob periodically rebuilds each configured tenant's
// leaderboard, refreshing the Redis cache from the database. It diffs the new
// ranking against the previous run and publishes rank change events for users
// whose position moved.
type RebuildLeaderboardJob struct {
	handler        *query.GetLeaderboardHandler
	eventPublisher shared.EventPublisher
	breaker        *circuitbreaker.CircuitBreaker
	retrier        *retry.Retrier
	logger         *logger.Logger

	config RebuildLeaderboardConfig

	// previous holds the last snapshot per tenant for diffing.
	// Only this job touches it, runs never overlap within one scheduler.
	previous map[shared.TenantID]*leaderboard.Snapshot

	lastStats atomic.Value // *RebuildStats
}

// RebuildLeaderboardConfig contains configuration for the rebuild job.
type RebuildLeaderboardConfig struct {
	// Tenants lists the tenant IDs whose leaderboards are rebuilt.
	Tenants []string

	// PublishRankChanges enables leaderboard.rank_changed events.
	PublishRankChanges bool

	// MinShiftForEvent is the minimum position change that produces an event.
	MinShiftForEvent int
}

// DefaultRebuildLeaderboardConfig returns sensible defaults.
func DefaultRebuildLeaderboardConfig(tenants []string) RebuildLeaderboardConfig {
	return RebuildLeaderboardConfig{
		Tenants:            tenants,
		PublishRankChanges: true,
		MinShiftForEvent:   1,
	}
}

// RebuildStats contains statistics from one rebuild run.
type RebuildStats struct {
	StartedAt        time.Time
	CompletedAt      time.Time
	Duration         time.Duration
	TenantsProcessed int
	TenantsFailed    int
	EntriesTotal     int
	RankChangesFound int
	EventsPublished  int
}

// NewRebuildLeaderboardJob creates a new rebuild leaderboard job.
func NewRebuildLeaderboardJob(
	handler *query.GetLeaderboardHandler,
	eventPublisher shared.EventPublisher,
	breaker *circuitbreaker.CircuitBreaker,
	retrier *retry.Retrier,
	log *logger.Logger,
	config RebuildLeaderboardConfig,
) *RebuildLeaderboardJob {
	if log == nil {
		log = logger.Default()
	}

	return &RebuildLeaderboardJob{
		handler:        handler,
		eventPublisher: eventPublisher,
		breaker:        breaker,
		retrier:        retrier,
		logger:         log,
		config:         config,
		previous:       make(map[shared.TenantID]*leaderboard.Snapshot),
	}
}

// Name returns the job name.
func (j *RebuildLeaderboardJob) Name() string {
	return "rebuild_leaderboard"
}

// Description returns a human-readable description.
func (j *RebuildLeaderboardJob) Description() string {
	return "Rebuilds tenant leaderboards from the database and refreshes the ranking cache"
}

// Run executes the rebuild for every configured tenant.
// One failing tenant does not stop the others.
func (j *RebuildLeaderboardJob) Run(ctx context.Context) error {
	stats := &RebuildStats{StartedAt: time.Now()}

	var firstErr error
	for _, tenant := range j.config.Tenants {
		if ctx.Err() != nil {
			firstErr = ctx.Err()
			break
		}

		tenantID := shared.TenantID(tenant)
		if err := j.rebuildTenant(ctx, tenantID, stats); err != nil {
			stats.TenantsFailed++
			if firstErr == nil {
				firstErr = err
			}
			j.logger.Error("leaderboard rebuild failed",
				logger.TenantID(tenant),
				logger.Err(err),
			)
			// Open breaker means the database is struggling, stop the sweep.
			if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
				break
			}
			continue
		}
		stats.TenantsProcessed++
	}

	stats.CompletedAt = time.Now()
	stats.Duration = stats.CompletedAt.Sub(stats.StartedAt)
	j.lastStats.Store(stats)

	j.logger.Info("leaderboard rebuild sweep finished",
		logger.Int("tenants_processed", stats.TenantsProcessed),
		logger.Int("tenants_failed", stats.TenantsFailed),
		logger.Int("entries_total", stats.EntriesTotal),
		logger.Int("rank_changes", stats.RankChangesFound),
		logger.Duration("duration", stats.Duration),
	)

	return firstErr
}

// rebuildTenant rebuilds a single tenant's leaderboard behind the circuit
// breaker, retrying transient database errors.
func (j *RebuildLeaderboardJob) rebuildTenant(ctx context.Context, tenantID shared.TenantID, stats *RebuildStats) error {
	var ranking *leaderboard.Ranking

	err := j.breaker.Execute(ctx, func(ctx context.Context) error {
		return j.retrier.Do(ctx, func(ctx context.Context) error {
			var err error
			ranking, err = j.handler.Rebuild(ctx, tenantID)
			return err
		})
	})
	if err != nil {
		return err
	}

	stats.EntriesTotal += ranking.Size()

	snapshot := leaderboard.NewSnapshot(tenantID, ranking, time.Now().UTC())
	diff := leaderboard.CalculateDiff(j.previous[tenantID], snapshot)
	j.previous[tenantID] = snapshot

	stats.RankChangesFound += len(diff.RankShifts)

	if j.eventPublisher != nil {
		j.publishEvents(tenantID, snapshot, diff, stats)
	}

	j.logger.Info("leaderboard rebuilt",
		logger.TenantID(tenantID.String()),
		logger.Int("entries", ranking.Size()),
		logger.Int("rank_changes", len(diff.RankShifts)),
	)

	return nil
}

// publishEvents emits the rebuilt event plus rank change events per shift.
func (j *RebuildLeaderboardJob) publishEvents(tenantID shared.TenantID, snapshot *leaderboard.Snapshot, diff *leaderboard.SnapshotDiff, stats *RebuildStats) {
	if err := j.eventPublisher.Publish(shared.NewLeaderboardRebuiltEvent(tenantID, snapshot.Count())); err != nil {
		j.logger.Warn("failed to publish leaderboard rebuilt event",
			logger.TenantID(tenantID.String()),
			logger.Err(err),
		)
	} else {
		stats.EventsPublished++
	}

	if !j.config.PublishRankChanges {
		return
	}

	for _, shift := range diff.SignificantShifts(j.config.MinShiftForEvent) {
		ref := shared.UserRef{TenantID: tenantID, UserID: shift.UserID}
		event := shared.NewRankChangedEvent(ref, shift.OldRank, shift.NewRank)
		if err := j.eventPublisher.Publish(event); err != nil {
			j.logger.Warn("failed to publish rank changed event",
				logger.TenantID(tenantID.String()),
				logger.UserID(shift.UserID.String()),
				logger.Err(err),
			)
			continue
		}
		stats.EventsPublished++
	}
}

// LastStats returns statistics from the most recent run, or nil before the
// first run.
func (j *RebuildLeaderboardJob) LastStats() *RebuildStats {
	stats, _ := j.lastStats.Load().(*RebuildStats)
	return stats
}
