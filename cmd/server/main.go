// Package main - точка входа HTTP-сервера Mentora Progression.
//
// Сервер обслуживает REST API движка прогрессии: регистрация трейдов,
// ручные начисления XP, 30-дневный челлендж, сводки прогрессии,
// лидерборд и персональные ранги.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mentora-hub/mentora-progression/config"
	"github.com/mentora-hub/mentora-progression/internal/application/command"
	"github.com/mentora-hub/mentora-progression/internal/application/eventhandler"
	"github.com/mentora-hub/mentora-progression/internal/application/query"
	"github.com/mentora-hub/mentora-progression/internal/domain/leaderboard"
	"github.com/mentora-hub/mentora-progression/internal/domain/progression"
	"github.com/mentora-hub/mentora-progression/internal/domain/shared"
	httpiface "github.com/mentora-hub/mentora-progression/internal/interface/http"
	"github.com/mentora-hub/mentora-progression/internal/interface/http/handlers"
	"github.com/mentora-hub/mentora-progression/internal/infrastructure/messaging"
	"github.com/mentora-hub/mentora-progression/internal/infrastructure/persistence/postgres"
	"github.com/mentora-hub/mentora-progression/internal/infrastructure/persistence/redis"
	"github.com/mentora-hub/mentora-progression/pkg/logger"
)

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
	log.Info("starting Mentora Progression server",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("timezone", cfg.App.Timezone),
	)

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
	// 4. ЗАПУСК МИГРАЦИЙ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("checking database migrations...")
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("database schema is up to date")

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ИНИЦИАЛИЗАЦИЯ REDIS (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	var (
		redisCache    *redis.Cache
		rankingsCache leaderboard.Cache
	)

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

		redisCache, err = redis.NewCache(redisCfg)
		if err != nil {
			// Без кэша сервис работает, просто собирает рейтинг из БД.
			log.Warn("failed to connect to Redis, ranking cache disabled", logger.Err(err))
		} else {
			defer redisCache.Close()
			rankingsCache = redis.NewLeaderboardCacheWithTTL(redisCache, cfg.Redis.LeaderboardTTL)
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. ИНИЦИАЛИЗАЦИЯ РЕПОЗИТОРИЕВ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing repositories...")
	stateRepo := postgres.NewStateRepository(dbConn)
	xpJournal := postgres.NewXPJournal(dbConn)
	tradeHistory := postgres.NewTradeHistoryRepository(dbConn)
	challengeRepo := postgres.NewChallengeRepository(dbConn)
	leaderboardRepo := postgres.NewLeaderboardRepository(dbConn)
	uowFactory := postgres.NewUnitOfWorkFactory(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ИНИЦИАЛИЗАЦИЯ EVENT BUS И ДИСПЕТЧЕРА
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing event bus...")
	eventBusConfig := messaging.DefaultInMemoryEventBusConfig()
	eventBusConfig.Logger = log
	eventBus := messaging.NewInMemoryEventBus(eventBusConfig)
	defer func() {
		log.Info("closing event bus...")
		_ = eventBus.Close()
	}()

	dispatcherConfig := messaging.DefaultDispatcherConfig(eventBus)
	dispatcherConfig.Logger = log
	dispatcher := messaging.NewDispatcher(dispatcherConfig)
	dispatcher.Use(messaging.RecoveryMiddleware(log))
	dispatcher.Use(messaging.LoggingMiddleware(log))

	dispatcher.Register(shared.EventLevelUp, eventhandler.NewOnLevelUpHandler(rankingsCache, log))
	dispatcher.Register(shared.EventBadgeEarned, eventhandler.NewOnBadgeEarnedHandler(log))

	// ─────────────────────────────────────────────────────────────────────────
	// 8. ИНИЦИАЛИЗАЦИЯ ДВИЖКА И ОБРАБОТЧИКОВ CQRS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing progression engine...")
	engine := progression.NewDefaultEngine()

	registerTrade := command.NewRegisterTradeHandler(engine, uowFactory, tradeHistory, challengeRepo, rankingsCache, eventBus)
	grantXP := command.NewGrantXPHandler(engine, uowFactory, rankingsCache, eventBus)
	completeDay := command.NewCompleteChallengeDayHandler(engine, uowFactory, rankingsCache, eventBus)
	updateNotes := command.NewUpdateChallengeNotesHandler(uowFactory)
	resetProgress := command.NewResetProgressHandler(uowFactory, rankingsCache, eventBus)

	getProgress := query.NewGetProgressHandler(engine, stateRepo, xpJournal)
	getLeaderboard := query.NewGetLeaderboardHandler(engine, leaderboardRepo, rankingsCache)
	getUserRank := query.NewGetUserRankHandler(engine, leaderboardRepo)
	getChallenge := query.NewGetChallengeOverviewHandler(challengeRepo)

	// ─────────────────────────────────────────────────────────────────────────
	// 9. HTTP СЕРВЕР
	// ─────────────────────────────────────────────────────────────────────────
	healthChecker := handlers.NewCompositeHealthChecker("v1")
	healthChecker.AddCheck("database", handlers.NewDatabaseCheck(dbConn))
	if redisCache != nil {
		healthChecker.AddCheck("cache", handlers.NewCacheCheck(redisCache))
	}

	serverCfg := httpiface.DefaultConfig()
	serverCfg.Host = cfg.Server.Host
	serverCfg.Port = cfg.Server.Port
	serverCfg.ReadTimeout = cfg.Server.ReadTimeout
	serverCfg.WriteTimeout = cfg.Server.WriteTimeout
	serverCfg.IdleTimeout = cfg.Server.IdleTimeout
	serverCfg.RequestTimeout = cfg.Server.RequestTimeout
	serverCfg.AdminAPIKeys = cfg.Server.AdminAPIKeys

	server := httpiface.NewServer(serverCfg, httpiface.Dependencies{
		RegisterTradeHandler:        registerTrade,
		GrantXPHandler:              grantXP,
		CompleteChallengeDayHandler: completeDay,
		UpdateChallengeNotesHandler: updateNotes,
		ResetProgressHandler:        resetProgress,
		GetProgressHandler:          getProgress,
		GetLeaderboardHandler:       getLeaderboard,
		GetUserRankHandler:          getUserRank,
		GetChallengeOverviewHandler: getChallenge,
		Features:                    cfg.Features,
		Logger:                      log,
		HealthChecker:               healthChecker,
	})

	errCh := server.StartAsync()
	log.Info("Mentora Progression server is running", logger.String("address", server.Address()))

	// ─────────────────────────────────────────────────────────────────────────
	// 10. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	log.Info("starting graceful shutdown...", logger.Duration("timeout", cfg.App.ShutdownTimeout))
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("shutdown completed successfully")
	return nil
}
