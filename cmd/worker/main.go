// Package main - точка входа фонового воркера Mentora Progression.
//
// Воркер выполняет периодические задачи: пересборку лидербордов тенантов
// с обновлением Redis-кэша и ночную чистку истории трейдов за пределами
// окна ретенции.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mentora-hub/mentora-progression/config"
	"github.com/mentora-hub/mentora-progression/internal/application/query"
	"github.com/mentora-hub/mentora-progression/internal/domain/leaderboard"
	"github.com/mentora-hub/mentora-progression/internal/domain/progression"
	"github.com/mentora-hub/mentora-progression/internal/infrastructure/messaging"
	"github.com/mentora-hub/mentora-progression/internal/infrastructure/persistence/postgres"
	"github.com/mentora-hub/mentora-progression/internal/infrastructure/persistence/redis"
	"github.com/mentora-hub/mentora-progression/internal/infrastructure/scheduler"
	"github.com/mentora-hub/mentora-progression/internal/infrastructure/scheduler/jobs"
	"github.com/mentora-hub/mentora-progression/pkg/circuitbreaker"
	"github.com/mentora-hub/mentora-progression/pkg/logger"
	"github.com/mentora-hub/mentora-progression/pkg/retry"
	"github.com/mentora-hub/mentora-progression/pkg/timeutil"
)

// trimHistoryCrontab - ночная чистка в тихие часы по бразильскому времени.
const trimHistoryCrontab = "30 3 * * *"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := logger.New(logger.Options{
		Output: os.Stdout,
		Level:  logger.ParseLevel(cfg.Observability.LogLevel),
	})
	log.Info("starting Mentora Progression worker",
		logger.String("env", string(cfg.App.Environment)),
	)

	if !cfg.Scheduler.Enabled {
		log.Warn("scheduler is disabled, nothing to do")
		return nil
	}
	if len(cfg.Scheduler.Tenants) == 0 {
		log.Warn("no tenants configured for scheduled jobs, nothing to do")
		return nil
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ПОДКЛЮЧЕНИЕ К БАЗЕ ДАННЫХ (PostgreSQL)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	log.Info("database connection established")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ИНИЦИАЛИЗАЦИЯ REDIS (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	var rankingsCache leaderboard.Cache

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
		redisCfg.DialTimeout = cfg.Redis.DialTimeout
		redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
		redisCfg.WriteTimeout = cfg.Redis.WriteTimeout

		redisCache, err := redis.NewCache(redisCfg)
		if err != nil {
			// События о смене рангов полезны и без кэша.
			log.Warn("failed to connect to Redis, rebuilds will not warm the cache", logger.Err(err))
		} else {
			defer redisCache.Close()
			rankingsCache = redis.NewLeaderboardCacheWithTTL(redisCache, cfg.Redis.LeaderboardTTL)
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	eventBusConfig := messaging.DefaultInMemoryEventBusConfig()
	eventBusConfig.Logger = log
	eventBus := messaging.NewInMemoryEventBus(eventBusConfig)
	defer func() {
		_ = eventBus.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 6. ЗАВИСИМОСТИ ЗАДАЧ
	// ─────────────────────────────────────────────────────────────────────────
	engine := progression.NewDefaultEngine()
	leaderboardRepo := postgres.NewLeaderboardRepository(dbConn)
	tradeHistory := postgres.NewTradeHistoryRepository(dbConn)
	getLeaderboard := query.NewGetLeaderboardHandler(engine, leaderboardRepo, rankingsCache)

	breaker := circuitbreaker.DatabaseBreaker(func(name string, from, to circuitbreaker.State) {
		log.Warn("circuit breaker state changed",
			logger.String("breaker", name),
			logger.String("from", from.String()),
			logger.String("to", to.String()),
		)
	})
	retrier := retry.DatabaseRetrier()

	rebuildJob := jobs.NewRebuildLeaderboardJob(
		getLeaderboard,
		eventBus,
		breaker,
		retrier,
		log,
		jobs.DefaultRebuildLeaderboardConfig(cfg.Scheduler.Tenants),
	)
	trimJob := jobs.NewTrimHistoryJob(
		tradeHistory,
		breaker,
		retrier,
		log,
		jobs.DefaultTrimHistoryConfig(cfg.Scheduler.Tenants),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ПЛАНИРОВЩИК
	// ─────────────────────────────────────────────────────────────────────────
	sched, err := scheduler.New(scheduler.Config{
		Logger:            log,
		Timezone:          timeutil.SaoPauloTZ,
		MaxConcurrentJobs: cfg.Scheduler.MaxConcurrentJobs,
		JobTimeout:        cfg.Scheduler.JobTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	if err := sched.Register(rebuildJob, cfg.Scheduler.RebuildLeaderboardInterval); err != nil {
		return fmt.Errorf("failed to register rebuild job: %w", err)
	}
	if err := sched.RegisterCron(trimJob, trimHistoryCrontab); err != nil {
		return fmt.Errorf("failed to register trim job: %w", err)
	}

	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	log.Info("worker is running",
		logger.Int("tenants", len(cfg.Scheduler.Tenants)),
		logger.Duration("rebuild_interval", cfg.Scheduler.RebuildLeaderboardInterval),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 8. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case <-ctx.Done():
	}

	log.Info("stopping scheduler...")
	if err := sched.Stop(); err != nil {
		return fmt.Errorf("scheduler shutdown failed: %w", err)
	}

	log.Info("shutdown completed successfully")
	return nil
}
