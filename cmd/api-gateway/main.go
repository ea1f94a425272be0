package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/shift-roster-api/api/swagger"
	"github.com/noah-isme/shift-roster-api/internal/bootstrap"
	"github.com/noah-isme/shift-roster-api/internal/handler"
	"github.com/noah-isme/shift-roster-api/internal/middleware"
	"github.com/noah-isme/shift-roster-api/internal/service"
	"github.com/noah-isme/shift-roster-api/pkg/config"
	"github.com/noah-isme/shift-roster-api/pkg/jobs"
	"github.com/noah-isme/shift-roster-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/shift-roster-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/shift-roster-api/pkg/middleware/requestid"
)

// @title Shift Roster API
// @version 1.0.0
// @description Weekly staff scheduling: roster, schedule entries, editing workflows, coverage and reports.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logr)
	if err != nil {
		logr.Fatal("failed to initialise application", zap.Error(err))
	}
	defer app.Close()

	maintenance := jobs.NewQueue("maintenance", app.Maintenance.Handle, jobs.Config{
		Workers:    cfg.Maintenance.Workers,
		MaxRetries: 3,
		RetryDelay: 30 * time.Second,
		Logger:     logr,
	})
	maintenance.Start(ctx)
	defer maintenance.Stop()
	maintenance.Every(ctx, cfg.Maintenance.Interval, service.JobSweepBatches)
	maintenance.Every(ctx, cfg.Maintenance.Interval, service.JobCleanupReports)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(app.Metrics))

	handler.RegisterRoutes(r, cfg.APIPrefix, handler.Handlers{
		Staff:    handler.NewStaffHandler(app.Staff),
		Schedule: handler.NewScheduleHandler(app.Schedule, app.Batches, app.Coverage, app.Mirror),
		Session:  handler.NewSessionHandler(app.Sessions),
		Report:   handler.NewReportHandler(app.Reports, app.Signer, app.Files),
		Auth:     handler.NewAuthHandler(app.Auth),
		Metrics:  handler.NewMetricsHandler(app.Metrics, app.DB, app.Sessions),
	}, app.Auth)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.Env),
			zap.String("db_driver", cfg.Database.Driver),
			zap.String("session_backend", cfg.Sessions.Backend),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Error("server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
