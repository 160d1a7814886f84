package main

import (
	"context"
	"fmt"
	"time"

	"github.com/amirphl/utm-tracker/app/handlers"
	"github.com/amirphl/utm-tracker/app/middleware"
	"github.com/amirphl/utm-tracker/app/router"
	"github.com/amirphl/utm-tracker/app/scheduler"
	"github.com/amirphl/utm-tracker/app/services"
	businessflow "github.com/amirphl/utm-tracker/business_flow"
	"github.com/amirphl/utm-tracker/config"
	"github.com/amirphl/utm-tracker/models"
	"github.com/amirphl/utm-tracker/repository"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Application represents the main application structure
type Application struct {
	config *config.ProductionConfig
	logger *zap.Logger
	db     *gorm.DB
	redis  *redis.Client

	linkRepo  repository.UTMLinkRepository
	clickRepo repository.ClickLogRepository

	shortener   services.URLShortener
	provisioner businessflow.ShortLinkProvisioner
	bulkFlow    *businessflow.BulkImportFlowImpl
	reconciler  *scheduler.ProvisioningReconciler

	stopFuncs []func()
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig, logger *zap.Logger) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB for connection pooling configuration
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pooling
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test the connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Database connection established",
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns),
	)
	return db, nil
}

// migrateDatabase creates or updates the link tables
func migrateDatabase(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// initializeCache initializes the Cache client and verifies connectivity
func initializeCache(cfg config.CacheConfig, logger *zap.Logger) (*redis.Client, error) {
	if !cfg.Enabled || cfg.Provider != "redis" {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	// Override DB if provided in config
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis connection established", zap.Int("db", cfg.RedisDB))
	return rc, nil
}

// startCacheHealthMonitor starts a background goroutine that periodically pings Redis
// to detect connectivity issues. The returned cancel function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration, logger *zap.Logger) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(monitorCtx, 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					logger.Warn("Redis healthcheck failed", zap.Error(err))
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeShortener picks the provider client; mock keeps local setups offline
func initializeShortener(cfg *config.ShortenerConfig) services.URLShortener {
	switch cfg.Provider {
	case "mock":
		return services.NewMockURLShortener()
	default:
		return services.NewTinyURLClient(cfg)
	}
}

// initializeApplication builds the storage, services and flows shared by every command
func initializeApplication(cfg *config.ProductionConfig, logger *zap.Logger) (*Application, error) {
	db, err := initializeDatabase(cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	if cfg.Database.AutoMigrate {
		if err := migrateDatabase(db); err != nil {
			return nil, err
		}
	}

	rc, err := initializeCache(cfg.Cache, logger)
	if err != nil {
		return nil, err
	}

	app := &Application{config: cfg, logger: logger, db: db, redis: rc}
	if rc != nil {
		app.stopFuncs = append(app.stopFuncs, startCacheHealthMonitor(context.Background(), rc, cfg.Cache.CleanupInterval, logger))
	}

	// Initialize repositories
	app.linkRepo = repository.NewUTMLinkRepository(db)
	app.clickRepo = repository.NewClickLogRepository(db)

	// Initialize services
	app.shortener = initializeShortener(&cfg.Shortener)
	app.provisioner = businessflow.NewShortLinkProvisioner(app.shortener, cfg.Shortener.Timeout, logger)

	app.bulkFlow = businessflow.NewBulkImportFlow(
		app.linkRepo,
		app.shortener,
		app.provisioner,
		cfg.Shortener.FixRatePerSecond,
		cfg.Tracking.PublicBaseURL,
		logger,
	)

	app.reconciler = scheduler.NewProvisioningReconciler(
		app.linkRepo,
		app.provisioner,
		cfg.Tracking.PublicBaseURL,
		cfg.Scheduler.ReconcileSpec,
		cfg.Scheduler.ReconcileBatch,
		logger,
	)

	return app, nil
}

// buildRouter wires the HTTP flows and handlers
func (a *Application) buildRouter() (router.Router, error) {
	cfg := a.config
	cache := services.NewRedisCache(a.redis, &cfg.Cache)

	tokenService, err := services.NewTokenService(cfg.JWT.SecretKey, cfg.JWT.Issuer, cfg.JWT.Audience)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}
	a.logger.Info("Token service initialized", zap.String("issuer", cfg.JWT.Issuer), zap.String("audience", cfg.JWT.Audience))

	identity := services.NewIdentityClient(&cfg.Identity)

	// Initialize flows
	emailFlow := businessflow.NewUserEmailFlow(
		identity,
		cache,
		cfg.Identity.MaxBatchSize,
		cfg.Identity.ItemTimeout,
		cfg.Identity.Concurrency,
		a.logger,
	)
	trackFlow := businessflow.NewClickTrackingFlow(a.linkRepo, a.clickRepo, cache, a.logger)
	linkFlow := businessflow.NewUTMLinkFlow(
		a.linkRepo,
		a.clickRepo,
		a.provisioner,
		emailFlow,
		cache,
		cfg.Tracking.PublicBaseURL,
		a.logger,
	)
	dashboardFlow := businessflow.NewDashboardFlow(a.linkRepo, emailFlow, a.logger)

	// Initialize handlers
	h := router.Handlers{
		TrackClick: handlers.NewTrackClickHandler(trackFlow, a.logger),
		ShortLink:  handlers.NewShortLinkHandler(a.provisioner, a.logger),
		UTMLink:    handlers.NewUTMLinkHandler(linkFlow, a.logger),
		BulkImport: handlers.NewBulkImportHandler(a.bulkFlow, a.logger),
		Dashboard:  handlers.NewDashboardHandler(dashboardFlow, a.logger),
		UserEmail:  handlers.NewUserEmailHandler(emailFlow, a.logger),
	}

	return router.NewFiberRouter(h, middleware.NewAuthMiddleware(tokenService), cfg, a.logger), nil
}

// Close stops background workers and releases connections
func (a *Application) Close() {
	for _, fn := range a.stopFuncs {
		fn()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("Failed to close redis client", zap.Error(err))
		}
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
