// Package bootstrap wires storage, repositories and services from configuration. Both the
// API server and the rosterctl CLI start from here.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/shift-roster-api/internal/repository"
	"github.com/noah-isme/shift-roster-api/internal/service"
	"github.com/noah-isme/shift-roster-api/pkg/cache"
	"github.com/noah-isme/shift-roster-api/pkg/config"
	"github.com/noah-isme/shift-roster-api/pkg/database"
	"github.com/noah-isme/shift-roster-api/pkg/storage"
)

// App holds the wired services.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *sqlx.DB
	Redis  *redis.Client

	Files   *storage.LocalStorage
	Signer  *storage.DownloadSigner
	Metrics *service.MetricsService

	Staff       *service.StaffService
	Schedule    *service.ScheduleService
	Batches     *service.BulkSaveService
	Mirror      *service.MirrorService
	Coverage    *service.ConflictService
	Sessions    *service.ScheduleSessionService
	Reports     *service.ReportService
	Auth        *service.AuthService
	Maintenance *service.MaintenanceService

	SchedulingSessions *repository.SchedulingSessionRepository
}

// New opens the database, applies the schema and builds every service. The Redis client
// is only opened when workflows are configured to live there.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	app := &App{Config: cfg, Logger: logger, DB: db}

	var store service.SessionStore
	if cfg.Sessions.Backend == config.SessionBackendRedis {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		app.Redis = client
		store = service.NewRedisSessionStore(repository.NewSessionStateRepository(client, logger), cfg.Sessions.TTL)
	} else {
		store = service.NewMemorySessionStore(cfg.Sessions.TTL)
	}

	files, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("prepare report storage: %w", err)
	}
	app.Files = files
	app.Signer = storage.NewDownloadSigner(cfg.JWT.Secret, cfg.Reports.Retention)
	app.Metrics = service.NewMetricsService()

	loc := cfg.Schedule.Location()
	staffRepo := repository.NewStaffRepository(db)
	entryRepo := repository.NewScheduleEntryRepository(db)
	changeRepo := repository.NewChangeLogRepository(db)
	app.SchedulingSessions = repository.NewSchedulingSessionRepository(db)

	app.Staff = service.NewStaffService(db, staffRepo, changeRepo, validator.New(), logger)
	app.Schedule = service.NewScheduleService(db, staffRepo, entryRepo, changeRepo, loc, logger)
	app.Batches = service.NewBulkSaveService(db, app.Schedule, app.SchedulingSessions, app.Metrics, logger)
	app.Mirror = service.NewMirrorService(staffRepo, entryRepo, app.Batches, logger)
	app.Coverage = service.NewConflictService(staffRepo, entryRepo, logger)
	app.Sessions = service.NewScheduleSessionService(staffRepo, app.Batches, store, loc, logger)
	app.Reports = service.NewReportService(staffRepo, entryRepo, files, app.Signer, logger)
	app.Auth = service.NewAuthService(logger, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
	})
	app.Maintenance = service.NewMaintenanceService(app.SchedulingSessions, files, cfg.Sessions.StaleAfter, cfg.Reports.Retention, logger)

	return app, nil
}

// Close releases the database and Redis connections.
func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Warn("failed to close redis", zap.Error(err))
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Warn("failed to close database", zap.Error(err))
		}
	}
}
