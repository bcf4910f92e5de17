package jobs

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/mentora-hub/mentora-progression/internal/domain/shared"
	"github.com/mentora-hub/mentora-progression/pkg/circuitbreaker"
	"github.com/mentora-hub/mentora-progression/pkg/logger"
	"github.com/mentora-hub/mentora-progression/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// TRIM TRADE HISTORY JOB
// ══════════════════════════════════════════════════════════════════════════════

// HistoryTrimmer deletes trade history rows beyond the retained window.
type HistoryTrimmer interface {
	Trim(ctx context.Context, tenantID shared.TenantID, keep int) (int64, error)
}

// TrimHistoryJob removes trade outcomes older than the retained window.
// Streak and badge evaluation only ever read the most recent trades, so the
// table can be kept small without changing behavior. The XP journal is not
// touched: it is the audit trail.
type TrimHistoryJob struct {
	trimmer HistoryTrimmer
	breaker *circuitbreaker.CircuitBreaker
	retrier *retry.Retrier
	logger  *logger.Logger

	config TrimHistoryConfig

	lastTrimmed atomic.Int64
}

// TrimHistoryConfig contains configuration for the trim job.
type TrimHistoryConfig struct {
	// Tenants lists the tenant IDs whose history is trimmed.
	Tenants []string

	// KeepPerUser is how many most recent outcomes survive per user.
	// Must cover the longest lookback any badge predicate uses.
	KeepPerUser int
}

// DefaultTrimHistoryConfig returns sensible defaults.
func DefaultTrimHistoryConfig(tenants []string) TrimHistoryConfig {
	return TrimHistoryConfig{
		Tenants:     tenants,
		KeepPerUser: 100,
	}
}

// NewTrimHistoryJob creates a new trim history job.
func NewTrimHistoryJob(
	trimmer HistoryTrimmer,
	breaker *circuitbreaker.CircuitBreaker,
	retrier *retry.Retrier,
	log *logger.Logger,
	config TrimHistoryConfig,
) *TrimHistoryJob {
	if log == nil {
		log = logger.Default()
	}
	if config.KeepPerUser <= 0 {
		config.KeepPerUser = 100
	}

	return &TrimHistoryJob{
		trimmer: trimmer,
		breaker: breaker,
		retrier: retrier,
		logger:  log,
		config:  config,
	}
}

// Name returns the job name.
func (j *TrimHistoryJob) Name() string {
	return "trim_trade_history"
}

// Description returns a human-readable description.
func (j *TrimHistoryJob) Description() string {
	return "Deletes trade history rows beyond the per-user retention window"
}

// Run trims every configured tenant. One failing tenant does not stop the rest.
func (j *TrimHistoryJob) Run(ctx context.Context) error {
	startedAt := time.Now()

	var totalTrimmed int64
	var firstErr error

	for _, tenant := range j.config.Tenants {
		if ctx.Err() != nil {
			firstErr = ctx.Err()
			break
		}

		tenantID := shared.TenantID(tenant)

		var trimmed int64
		err := j.breaker.Execute(ctx, func(ctx context.Context) error {
			return j.retrier.Do(ctx, func(ctx context.Context) error {
				var err error
				trimmed, err = j.trimmer.Trim(ctx, tenantID, j.config.KeepPerUser)
				return err
			})
		})
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			j.logger.Error("trade history trim failed",
				logger.TenantID(tenant),
				logger.Err(err),
			)
			continue
		}

		totalTrimmed += trimmed
		if trimmed > 0 {
			j.logger.Info("trade history trimmed",
				logger.TenantID(tenant),
				logger.Int64("rows_deleted", trimmed),
			)
		}
	}

	j.lastTrimmed.Store(totalTrimmed)

	j.logger.Info("trade history trim sweep finished",
		logger.Int64("rows_deleted", totalTrimmed),
		logger.Duration("duration", time.Since(startedAt)),
	)

	return firstErr
}

// LastTrimmed returns how many rows the most recent run deleted.
func (j *TrimHistoryJob) LastTrimmed() int64 {
	return j.lastTrimmed.Load()
}
