package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "time/tzdata"

	franchiseapp "github.com/foodtruck/backend/internal/application/franchise"
	procurementapp "github.com/foodtruck/backend/internal/application/procurement"
	royaltyapp "github.com/foodtruck/backend/internal/application/royalty"
	"github.com/foodtruck/backend/internal/domain/procurement"
	"github.com/foodtruck/backend/internal/domain/royalty"
	"github.com/foodtruck/backend/internal/domain/shared/valueobject"
	"github.com/foodtruck/backend/internal/infrastructure/cache"
	"github.com/foodtruck/backend/internal/infrastructure/config"
	"github.com/foodtruck/backend/internal/infrastructure/event"
	"github.com/foodtruck/backend/internal/infrastructure/logger"
	"github.com/foodtruck/backend/internal/infrastructure/persistence"
	"github.com/foodtruck/backend/internal/infrastructure/scheduler"
	"github.com/foodtruck/backend/internal/infrastructure/storage"
	"github.com/foodtruck/backend/internal/infrastructure/telemetry"
	"github.com/foodtruck/backend/internal/interfaces/http/handler"
	"github.com/foodtruck/backend/internal/interfaces/http/middleware"
	"github.com/foodtruck/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx := context.Background()

	// Telemetry: traces, metrics and the log bridge share one collector
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.ExportInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	logsProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logs provider", zap.Error(err))
	}
	level, _ := logger.ParseLevel(cfg.Log.Level)
	log = logsProvider.Bridge(log, level)

	log.Info("Starting procurement and royalty engine",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", cfg.App.Version),
		zap.String("port", cfg.HTTP.Port),
	)

	// Initialize database connection
	db, err := persistence.NewDatabaseWithOptions(&cfg.Database, log, persistence.Options{
		LogLevel:      logger.MapGormLogLevel(cfg.Log.Level),
		SlowThreshold: cfg.Database.SlowThreshold,
	})
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if err := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBName:          cfg.Database.DBName,
	}, log).Register(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	dbMetrics, err := telemetry.RegisterDBMetrics(db.DB, meterProvider.Meter("foodtruck-engine/db"), telemetry.DBMetricsConfig{
		Enabled:            cfg.Telemetry.MetricsEnabled,
		SlowQueryThreshold: cfg.Telemetry.DBSlowQueryThresh,
	}, log)
	if err != nil {
		log.Fatal("Failed to register database metrics", zap.Error(err))
	}

	engineMetrics, err := telemetry.NewEngineMetrics(meterProvider.Meter("foodtruck-engine"), log)
	if err != nil {
		log.Fatal("Failed to create engine metrics", zap.Error(err))
	}

	// Initialize repositories
	orderRepo := persistence.NewGormPurchaseOrderRepository(db.DB)
	agreementRepo := persistence.NewGormAgreementRepository(db.DB)
	reportRepo := persistence.NewGormRoyaltyReportRepository(db.DB)
	salesRepo := persistence.NewGormSalesRepository(db.DB)
	orderRepo.SetQueryTimeout(cfg.Database.QueryTimeout)
	agreementRepo.SetQueryTimeout(cfg.Database.QueryTimeout)
	reportRepo.SetQueryTimeout(cfg.Database.QueryTimeout)
	salesRepo.SetQueryTimeout(cfg.Database.QueryTimeout)

	// Event bus: lifecycle log lines and event counters
	eventBus := event.NewInMemoryEventBus(log)
	lifecycleLog := event.NewLifecycleLogHandler(log)
	eventBus.Subscribe(lifecycleLog, lifecycleLog.EventTypes()...)
	eventBus.Subscribe(event.NewMetricsHandler(engineMetrics))
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Generation lock: Redis when configured, in-process otherwise
	generationLock, redisClient, err := cache.NewGenerationLockFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(!cfg.App.IsProduction()),
	).CreateLock(ctx)
	if err != nil {
		log.Fatal("Failed to create generation lock", zap.Error(err))
	}

	// Report exporter
	var exporter royalty.Exporter = storage.NewNoopExporter(log)
	if cfg.Export.S3Enabled {
		s3Exporter, err := storage.NewS3ReportExporter(ctx, &cfg.Export, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to create S3 report exporter", zap.Error(err))
		}
		if err := s3Exporter.EnsureBucket(ctx); err != nil {
			log.Fatal("Failed to prepare export bucket", zap.Error(err))
		}
		exporter = s3Exporter
	}

	// Initialize application services
	defaultCurrency, err := valueobject.ParseCurrency(cfg.Engine.DefaultCurrency)
	if err != nil {
		log.Fatal("Invalid default currency", zap.Error(err))
	}

	orderService := procurementapp.NewPurchaseOrderService(orderRepo, log)
	orderService.SetEventPublisher(eventBus)
	orderService.SetMetrics(engineMetrics)
	orderService.SetDefaultCurrency(defaultCurrency)

	agreementService := franchiseapp.NewAgreementService(agreementRepo, cfg.Engine.ReportTimeZone, log)
	agreementService.SetWriteLock(generationLock)
	agreementService.SetDefaultCurrency(defaultCurrency)

	royaltyService := royaltyapp.NewRoyaltyService(reportRepo, agreementRepo, salesRepo, generationLock, log)
	royaltyService.SetEventPublisher(eventBus)
	royaltyService.SetMetrics(engineMetrics)
	royaltyService.SetExporter(exporter)
	royaltyService.SetDefaultTimeZone(cfg.Engine.ReportLocation())
	royaltyService.SetGenerationTimeout(cfg.Engine.GenerationTimeout)

	// Monthly royalty batch
	var (
		reportScheduler *scheduler.Scheduler
		monthlyTrigger  *scheduler.MonthlyTrigger
	)
	if cfg.Scheduler.Enabled {
		reportScheduler = scheduler.NewScheduler(cfg.Scheduler, scheduler.NewReportExecutor(royaltyService, log), log)
		reportScheduler.SetJobStore(scheduler.NewGormJobStore(db.DB))
		monthlyTrigger, err = scheduler.NewMonthlyTrigger(cfg.Scheduler, cfg.Engine.ReportLocation(), reportScheduler, royaltyService, log)
		if err != nil {
			log.Fatal("Invalid scheduler configuration", zap.Error(err))
		}
		if err := reportScheduler.Start(ctx); err != nil {
			log.Fatal("Failed to start report scheduler", zap.Error(err))
		}
		if err := monthlyTrigger.Start(ctx); err != nil {
			log.Fatal("Failed to start monthly trigger", zap.Error(err))
		}
		log.Info("Monthly royalty batch scheduled",
			zap.Int("day_of_month", cfg.Scheduler.DayOfMonth),
			zap.Int("hour", cfg.Scheduler.Hour),
			zap.Int("minute", cfg.Scheduler.Minute),
		)
	}

	// Setup custom validator
	middleware.SetupValidator()

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies", zap.Error(err))
	}

	// Middleware chain: request id first so every later layer can log it
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORS(middleware.CORSConfig{
		AllowOrigins: cfg.HTTP.CORSAllowOrigins,
		AllowMethods: cfg.HTTP.CORSAllowMethods,
		AllowHeaders: cfg.HTTP.CORSAllowHeaders,
	}))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	stopCleanup := make(chan struct{})
	if cfg.HTTP.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow, cfg.HTTP.RateLimitBurst)
		go limiter.Run(cfg.HTTP.RateLimitWindow, stopCleanup)
		engine.Use(middleware.RateLimit(limiter))
	}
	engine.Use(middleware.Actor(), middleware.SpanAttributes())

	// Health check
	health := handler.NewHealthHandler(cfg.App.Version)
	health.AddCheck("database", db.Ping)
	if redisClient != nil {
		health.AddCheck("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}
	engine.GET("/health", health.Health)

	// Domain routes
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Mount("procurement", "/procurement", handler.NewProcurementHandler(orderService))
	r.Mount("franchise", "/franchise", handler.NewFranchiseHandler(agreementService))
	r.Mount("royalty", "/royalty", handler.NewRoyaltyHandler(royaltyService))
	r.Setup()

	log.Info("Routes registered",
		zap.String("base_path", r.BasePath()),
		zap.Strings("capabilities", []string{
			string(procurement.CapabilityManageOrders),
			string(procurement.CapabilityApproveOrders),
		}),
	)

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.HTTP.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	close(stopCleanup)

	if monthlyTrigger != nil {
		if err := monthlyTrigger.Stop(shutdownCtx); err != nil {
			log.Error("Error stopping monthly trigger", zap.Error(err))
		}
	}
	if reportScheduler != nil {
		if err := reportScheduler.Stop(shutdownCtx); err != nil {
			log.Error("Error stopping report scheduler", zap.Error(err))
		}
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error("Error closing redis client", zap.Error(err))
		}
	}
	if dbMetrics != nil {
		dbMetrics.Stop()
	}
	for name, shutdown := range map[string]func(context.Context) error{
		"meter":  meterProvider.Shutdown,
		"tracer": tracerProvider.Shutdown,
		"logs":   logsProvider.Shutdown,
	} {
		if err := shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down telemetry", zap.String("provider", name), zap.Error(err))
		}
	}

	log.Info("Server exited gracefully")
}
