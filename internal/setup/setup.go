// Package setup bootstraps the application dependencies in order: config,
// logging, database, and Redis.
package setup

import (
	"context"
	"fmt"
	"log"

	"github.com/robalyx/warden/internal/database"
	"github.com/robalyx/warden/internal/database/migrations"
	"github.com/robalyx/warden/internal/redis"
	"github.com/robalyx/warden/internal/setup/config"
	"github.com/robalyx/warden/internal/setup/logging"
	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"
)

// App bundles the core dependencies shared by the entrypoints. Each field is
// a subsystem that needs initialization and cleanup.
type App struct {
	Config       *config.Config  // Application configuration
	Logger       *zap.Logger     // Main application logger
	DBLogger     *zap.Logger     // Database-specific logger
	DB           database.Client // Database connection pool
	RedisManager *redis.Manager  // Redis connection manager
}

// InitializeApp bootstraps all application dependencies in the correct
// order, ensuring each component has its required dependencies available.
func InitializeApp(ctx context.Context, logDir string) (*App, error) {
	cfg, configPath, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	// Logging comes up next so that setup issues are captured
	logger, dbLogger, err := logging.NewLoggers(&cfg.Debug, logDir)
	if err != nil {
		return nil, err
	}

	logger.Info("Loaded configuration", zap.String("configPath", configPath))

	if cfg.LegacyMuteRoleKey {
		logger.Warn("Config contains the legacy mute.role_id key; " +
			"it is ignored in favor of roles.muted_role_id")
	}

	redisManager := redis.NewManager(&cfg.Redis, logger)

	db, err := checkAndRunMigrations(ctx, &cfg.PostgreSQL, dbLogger)
	if err != nil {
		return nil, err
	}

	return &App{
		Config:       cfg,
		Logger:       logger,
		DBLogger:     dbLogger,
		DB:           db,
		RedisManager: redisManager,
	}, nil
}

// Cleanup shuts the components down in reverse initialization order. Errors
// are logged rather than returned so every component gets its attempt.
func (a *App) Cleanup() {
	if err := a.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	if err := a.DBLogger.Sync(); err != nil {
		log.Printf("Failed to sync DB logger: %v", err)
	}

	if err := a.DB.Close(); err != nil {
		log.Printf("Failed to close database connection: %v", err)
	}

	a.RedisManager.Close()
}

// checkAndRunMigrations runs pending database migrations after an operator
// confirmation.
func checkAndRunMigrations(ctx context.Context, cfg *config.PostgreSQL, dbLogger *zap.Logger) (database.Client, error) {
	tempDB, err := database.NewConnection(ctx, cfg, dbLogger, false)
	if err != nil {
		return nil, err
	}

	migrator := migrate.NewMigrator(tempDB.DB(), migrations.Migrations)

	ms, err := migrator.MigrationsWithStatus(ctx)
	if err != nil {
		tempDB.Close()
		return nil, fmt.Errorf("failed to check migration status: %w", err)
	}

	if len(ms.Unapplied()) == 0 {
		return tempDB, nil
	}

	log.Println("Database migrations are pending. Would you like to run them now? (y/N)")

	var response string

	_, _ = fmt.Scanln(&response)

	if response != "y" && response != "Y" {
		log.Fatalf("Closing program due to incomplete migrations")
	}

	tempDB.Close()

	return database.NewConnection(ctx, cfg, dbLogger, true)
}
