package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/formation-admin-api/internal/handler"
	"github.com/noah-isme/formation-admin-api/internal/repository"
	"github.com/noah-isme/formation-admin-api/internal/service"
	"github.com/noah-isme/formation-admin-api/pkg/cache"
	"github.com/noah-isme/formation-admin-api/pkg/config"
	"github.com/noah-isme/formation-admin-api/pkg/database"
	"github.com/noah-isme/formation-admin-api/pkg/export"
	"github.com/noah-isme/formation-admin-api/pkg/logger"
)

// @title Formation Admin API
// @version 1.0.0
// @description Training session administration: sessions, trainers and their assignments.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const (
	cacheNamespace  = "formation"
	shutdownTimeout = 15 * time.Second
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db, logr); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer redisClient.Close()
	}

	app, err := newApp(ctx, cfg, db, redisClient, logr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app.router(cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logr.Info("shutdown requested")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http: %w", err)
	}
	logr.Info("server stopped")
	return nil
}

// app holds the wired handlers behind the router.
type app struct {
	logger      *zap.Logger
	auth        *service.AuthService
	metrics     *service.MetricsService
	sessions    *handler.SessionHandler
	admin       *handler.AdminHandler
	authHandler *handler.AuthHandler
	probes      *handler.MetricsHandler
}

func newApp(ctx context.Context, cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, logr *zap.Logger) (*app, error) {
	validate := validator.New()
	metrics := service.NewMetricsService()

	checks := map[string]handler.Pinger{"postgres": db}
	var cacheRepo service.CacheRepository
	if redisClient != nil {
		repo := repository.NewCacheRepository(redisClient, cacheNamespace, logr)
		cacheRepo = repo
		checks["redis"] = handler.PingFunc(repo.Ping)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.SessionTTL, logr, cfg.Cache.Enabled)

	sessionRepo := repository.NewSessionRepository(db)
	assignmentRepo := repository.NewSessionTrainerRepository(db)
	userRepo := repository.NewUserRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	if err := authSvc.EnsureAdmin(ctx, cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword); err != nil {
		return nil, fmt.Errorf("bootstrap admin: %w", err)
	}

	sessionSvc := service.NewSessionService(sessionRepo, cacheSvc, cfg.Cache.SessionTTL, validate, logr)
	assignmentSvc := service.NewAssignmentService(assignmentRepo, sessionRepo, cacheSvc, metrics, validate, logr)
	userSvc := service.NewUserService(userRepo, cacheSvc, validate, logr)
	csvExporter := export.NewCSVExporter()
	csvExporter.BOM = true
	exportSvc := service.NewExportService(sessionRepo, csvExporter, export.NewPDFExporter(), logr)

	return &app{
		logger:      logr,
		auth:        authSvc,
		metrics:     metrics,
		sessions:    handler.NewSessionHandler(sessionSvc, assignmentSvc, exportSvc),
		admin:       handler.NewAdminHandler(userSvc),
		authHandler: handler.NewAuthHandler(authSvc),
		probes:      handler.NewMetricsHandler(metrics, checks),
	}, nil
}
