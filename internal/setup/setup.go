package setup

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/rueidis"
	"github.com/uptrace/bun/migrate"
	"github.com/wheresmywater/backend/internal/database"
	"github.com/wheresmywater/backend/internal/database/migrations"
	"github.com/wheresmywater/backend/internal/redis"
	"github.com/wheresmywater/backend/internal/setup/config"
	"github.com/wheresmywater/backend/internal/setup/telemetry"
	"go.uber.org/zap"
)

// ErrPendingMigrations is returned when the schema is behind and auto-migration is off.
var ErrPendingMigrations = errors.New("database migrations are pending, run `db migrate` or enable postgresql.auto_migrate")

// App bundles all core dependencies and services needed by the application.
type App struct {
	Config       *config.Config     // Application configuration
	Logger       *zap.Logger        // Main application logger
	DBLogger     *zap.Logger        // Database-specific logger
	DB           database.Client    // Database connection pool
	RedisManager *redis.Manager     // Redis connection manager
	StatusClient rueidis.Client     // Redis client for worker status reporting
	LogManager   *telemetry.Manager // Log management system
	pprofServer  *pprofServer       // Debug HTTP server for pprof
	stopTracing  func(context.Context) error
	flushSentry  func(time.Duration) bool
}

// InitializeApp bootstraps all application dependencies in the correct order.
// Workers pass their type so their logs land in a dedicated component.
func InitializeApp(
	ctx context.Context, serviceType telemetry.ServiceType, logDir string, workerType string,
) (*App, error) {
	cfg, _, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	// Sentry must be initialized before the loggers so they pick up its core
	flushSentry, err := telemetry.SetupSentry(&cfg.Common.Sentry, serviceType.String())
	if err != nil {
		return nil, err
	}

	// Logging system is initialized next to capture setup issues
	logManager := telemetry.NewManager(
		ctx, serviceType, logDir, &cfg.Common.Debug, &cfg.Common.Loki, workerType,
	)

	logger, dbLogger, err := logManager.GetLoggers()
	if err != nil {
		logManager.Stop()
		return nil, err
	}

	stopTracing := telemetry.SetupTracing(&cfg.Common.Telemetry, serviceType.String(), logger)

	db, err := openDatabase(ctx, &cfg.Common.PostgreSQL, &cfg.Common.Voting, dbLogger)
	if err != nil {
		_ = stopTracing(ctx)
		logManager.Stop()
		return nil, err
	}

	// Redis manager provides connection pools for various subsystems
	redisManager := redis.NewManager(&cfg.Common.Redis, logger)

	statusClient, err := redisManager.GetClient(redis.WorkerStatusDBIndex)
	if err != nil {
		_ = db.Close()
		_ = stopTracing(ctx)
		logManager.Stop()
		return nil, err
	}

	var pprofSrv *pprofServer
	if cfg.Common.Debug.EnablePprof {
		srv, err := startPprofServer(ctx, cfg.Common.Debug.PprofPort, logger)
		if err != nil {
			logger.Error("Failed to start pprof server", zap.Error(err))
		} else {
			pprofSrv = srv
			logger.Warn("pprof debugging endpoint enabled - this should not be used in production!")
		}
	}

	return &App{
		Config:       cfg,
		Logger:       logger,
		DBLogger:     dbLogger.Named("database"),
		DB:           db,
		RedisManager: redisManager,
		StatusClient: statusClient,
		LogManager:   logManager,
		pprofServer:  pprofSrv,
		stopTracing:  stopTracing,
		flushSentry:  flushSentry,
	}, nil
}

// Cleanup ensures graceful shutdown of all components in reverse initialization order.
// Logs but does not fail on cleanup errors so every component gets a cleanup attempt.
func (s *App) Cleanup(ctx context.Context) {
	if s.pprofServer != nil {
		if err := s.pprofServer.shutdown(ctx); err != nil {
			s.Logger.Error("Failed to shutdown pprof server", zap.Error(err))
		}
	}

	if err := s.stopTracing(ctx); err != nil {
		s.Logger.Error("Failed to flush traces", zap.Error(err))
	}

	if err := s.DB.Close(); err != nil {
		s.Logger.Error("Failed to close database connection", zap.Error(err))
	}

	if !s.flushSentry(2 * time.Second) {
		log.Printf("Timed out flushing Sentry events")
	}

	// Sync buffered logs before shutdown
	if err := s.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	if err := s.DBLogger.Sync(); err != nil {
		log.Printf("Failed to sync DB logger: %v", err)
	}

	// Stop telemetry manager to flush Loki logs
	s.LogManager.Stop()

	// Close Redis connections last as other components might need it during cleanup
	s.RedisManager.Close()
}

// openDatabase connects and makes sure the schema is current. With
// auto-migration enabled the connection applies pending migrations itself.
func openDatabase(
	ctx context.Context, cfg *config.PostgreSQL, voting *config.Voting, dbLogger *zap.Logger,
) (database.Client, error) {
	db, err := database.NewConnection(ctx, cfg, voting, dbLogger, cfg.AutoMigrate)
	if err != nil {
		return nil, err
	}

	if cfg.AutoMigrate {
		return db, nil
	}

	migrator := migrate.NewMigrator(db.DB(), migrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize migrations: %w", err)
	}

	ms, err := migrator.MigrationsWithStatus(ctx)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to check migration status: %w", err)
	}

	if err := checkPendingMigrations(ms); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// checkPendingMigrations fails when any migration has not been applied yet.
func checkPendingMigrations(ms migrate.MigrationSlice) error {
	unapplied := ms.Unapplied()
	if len(unapplied) == 0 {
		return nil
	}

	return fmt.Errorf("%w (%d pending, next %s)", ErrPendingMigrations, len(unapplied), unapplied[0].Name)
}
