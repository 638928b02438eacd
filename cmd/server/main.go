package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	eventapp "github.com/invoicing/backend/internal/application/event"
	invoicingapp "github.com/invoicing/backend/internal/application/invoicing"
	"github.com/invoicing/backend/internal/clock"
	"github.com/invoicing/backend/internal/infrastructure/cache"
	"github.com/invoicing/backend/internal/infrastructure/config"
	"github.com/invoicing/backend/internal/infrastructure/event"
	"github.com/invoicing/backend/internal/infrastructure/logger"
	"github.com/invoicing/backend/internal/infrastructure/persistence"
	"github.com/invoicing/backend/internal/infrastructure/scheduler"
	"github.com/invoicing/backend/internal/infrastructure/telemetry"
	"github.com/invoicing/backend/internal/interfaces/http/handler"
	"github.com/invoicing/backend/internal/interfaces/http/middleware"
	"github.com/invoicing/backend/internal/interfaces/http/router"

	_ "github.com/invoicing/backend/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

//	@title			Invoicing Backend API
//	@version		1.0
//	@description	Invoice, payment, late fee and reminder tracking API
//	@termsOfService	http://swagger.io/terms/

//	@contact.name	API Support
//	@contact.url	https://github.com/invoicing/backend
//	@contact.email	support@invoicing.example.com

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@externalDocs.description	OpenAPI
//	@externalDocs.url			https://swagger.io/resources/open-api/

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("init logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("starting invoicing backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	ctx := context.Background()

	// Initialize OpenTelemetry tracing
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("tracer provider init failed", zap.Error(err))
	}
	defer stopComponent(log, "tracer provider", tracerProvider.Shutdown)

	// Initialize OpenTelemetry metrics
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsExportInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("meter provider init failed", zap.Error(err))
	}
	defer stopComponent(log, "meter provider", meterProvider.Shutdown)

	// Bridge application logs to the OTEL Collector when enabled
	if cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled {
		logsProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
			Enabled:           true,
			CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
			ServiceName:       cfg.Telemetry.ServiceName,
			Insecure:          cfg.Telemetry.Insecure,
		}, log)
		if err != nil {
			log.Warn("logs provider init failed, continuing without OTEL logs", zap.Error(err))
		} else {
			defer stopComponent(log, "logs provider", logsProvider.Shutdown)

			bridged, err := telemetry.NewBridgedLogger(&logger.Config{
				Level:  cfg.Log.Level,
				Format: cfg.Log.Format,
				Output: cfg.Log.Output,
			}, logsProvider, cfg.Telemetry.ServiceName)
			if err != nil {
				log.Warn("bridged logger init failed", zap.Error(err))
			} else {
				log = bridged
			}
		}
	}

	// Initialize continuous profiling
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:             cfg.Telemetry.Enabled && cfg.Telemetry.ProfilingEnabled,
		ServerAddress:       cfg.Telemetry.ProfilingServer,
		ApplicationName:     cfg.Telemetry.ServiceName,
		ProfileCPU:          true,
		ProfileAllocObjects: true,
		ProfileAllocSpace:   true,
		ProfileInuseObjects: true,
		ProfileInuseSpace:   true,
		ProfileGoroutines:   true,
	}, log)
	if err != nil {
		log.Warn("profiler start failed, continuing without profiling", zap.Error(err))
	} else {
		defer func() {
			if err := profiler.Stop(); err != nil {
				log.Error("profiler stop failed", zap.Error(err))
			}
		}()
		if profiler.IsEnabled() && tracerProvider.IsEnabled() {
			if err := tracerProvider.EnableSpanProfiles(); err != nil {
				log.Warn("span profiles integration failed", zap.Error(err))
			}
		}
	}

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("closing database failed", zap.Error(err))
		}
	}()
	log.Info("database connected")

	// Register database tracing
	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:          true,
			LogFullSQL:       cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh:  cfg.Telemetry.DBSlowQueryThresh,
			DBSystem:         "postgresql",
			WithoutVariables: !cfg.Telemetry.DBLogFullSQL,
		}, log)
		if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
			log.Warn("database tracing registration failed", zap.Error(err))
		}
	}

	// Register database metrics
	dbMetricsCfg := telemetry.DefaultDBMetricsConfig()
	dbMetricsCfg.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled
	dbMetricsCfg.SlowQueryThreshold = cfg.Telemetry.DBSlowQueryThresh
	dbMetrics, err := telemetry.RegisterDBMetrics(db.DB, meterProvider, dbMetricsCfg, log)
	if err != nil {
		log.Warn("database metrics registration failed", zap.Error(err))
	}
	if dbMetrics != nil {
		dbMetrics.StartPoolStatsCollection(ctx)
		defer dbMetrics.Stop()
	}

	// Register business metrics with periodic backlog collection
	if meterProvider.IsEnabled() {
		businessMetrics, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
			Meter:           meterProvider.Meter("invoicing"),
			Logger:          log,
			BacklogProvider: telemetry.NewGormBacklogMetricsProvider(db.DB),
		})
		if err != nil {
			log.Warn("business metrics init failed", zap.Error(err))
		} else {
			telemetry.SetBusinessMetrics(businessMetrics)
			businessMetrics.StartPeriodicCollection(ctx, 5*time.Minute)
			defer businessMetrics.Stop()
		}
	}

	// Initialize repositories
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	lateFeeRepo := persistence.NewGormLateFeeRepository(db.DB)
	reminderRepo := persistence.NewGormReminderRepository(db.DB)
	outboxRepo := event.NewGormOutboxRepository(db.DB)

	// Initialize event serializer and register all event types
	eventSerializer := event.NewEventSerializer()
	event.RegisterAllEvents(eventSerializer)

	// Inject the outbox publisher so invoice domain events are persisted
	// in the same transaction as the aggregate
	outboxPublisher := event.NewOutboxPublisher(eventSerializer)
	invoiceRepo.SetOutboxEventSaver(outboxPublisher)

	// Initialize application services. One locker instance covers every
	// service so mutations of a single invoice serialize across them.
	clk := clock.NewSystemClock()
	invoiceLocker := invoicingapp.NewInvoiceLocker()
	invoiceService := invoicingapp.NewInvoiceService(invoiceRepo, paymentRepo, invoiceLocker, clk)
	paymentService := invoicingapp.NewPaymentService(paymentRepo, invoiceRepo, invoiceLocker, clk, log)
	lateFeeService := invoicingapp.NewLateFeeService(lateFeeRepo, invoiceRepo, paymentRepo, invoiceLocker, clk)
	reminderService := invoicingapp.NewReminderService(reminderRepo, invoiceRepo, clk)

	billingConfig := invoicingapp.BillingRunConfig{
		FeePercentage: decimal.NewFromFloat(cfg.Billing.FeePercentage),
		DaysBefore:    cfg.Billing.ReminderDaysBefore,
		DaysAfter:     cfg.Billing.ReminderDaysAfter,
	}
	billingRunService := invoicingapp.NewBillingRunService(lateFeeService, reminderService, billingConfig, log)

	// Idempotency store for the payment recording endpoint
	storeFactory := cache.NewIdempotencyStoreFactory(cfg.Redis, cache.WithLogger(log))
	idempotencyStore, err := storeFactory.CreateStore(cfg.Cache.Backend)
	if err != nil {
		log.Fatal("idempotency store init failed", zap.Error(err))
	}
	idempotencyMiddleware := middleware.Idempotency(middleware.IdempotencyConfig{
		Store:  idempotencyStore,
		TTL:    cfg.Cache.TTL,
		Logger: log,
	})

	// Initialize event bus and the activity log consumer. The consumer is
	// wrapped with idempotency checking so redelivered outbox entries are
	// logged once.
	eventBus := event.NewInMemoryEventBus(log)
	processedEventStore := cache.NewInMemoryProcessedEventStore()
	defer processedEventStore.Close()
	activityLogHandler := event.NewIdempotentHandler(
		invoicingapp.NewActivityLogHandler(log), processedEventStore, log)
	eventBus.Subscribe(activityLogHandler)
	log.Info("event handlers registered",
		zap.Strings("activity_log_events", activityLogHandler.EventTypes()),
	)

	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("event bus start failed", zap.Error(err))
	}
	defer stopComponent(log, "event bus", eventBus.Stop)

	// The outbox processor reads events from the outbox_events table and
	// publishes them to the event bus
	outboxProcessorConfig := event.DefaultOutboxProcessorConfig()
	outboxProcessor := event.NewOutboxProcessor(outboxRepo, eventBus, eventSerializer, outboxProcessorConfig, log)
	if err := outboxProcessor.Start(ctx); err != nil {
		log.Fatal("outbox processor start failed", zap.Error(err))
	}
	defer stopComponent(log, "outbox processor", outboxProcessor.Stop)

	// Start the daily billing trigger (if enabled)
	if cfg.Billing.SchedulerEnabled {
		billingTrigger, err := scheduler.NewBillingTrigger(scheduler.BillingTriggerConfig{
			RunHour:       cfg.Billing.RunHour,
			RunMinute:     cfg.Billing.RunMinute,
			CheckInterval: time.Minute,
		}, billingRunService, clk, log)
		if err != nil {
			log.Fatal("billing trigger init failed", zap.Error(err))
		}
		if err := billingTrigger.Start(ctx); err != nil {
			log.Fatal("billing trigger start failed", zap.Error(err))
		}
		defer stopComponent(log, "billing trigger", billingTrigger.Stop)
		log.Info("billing scheduler started",
			zap.Int("run_hour", cfg.Billing.RunHour),
			zap.Int("run_minute", cfg.Billing.RunMinute),
		)
	}

	// Initialize HTTP handlers
	invoiceHandler := handler.NewInvoiceHandler(invoiceService)
	paymentHandler := handler.NewPaymentHandler(paymentService, idempotencyMiddleware)
	lateFeeHandler := handler.NewLateFeeHandler(lateFeeService, clk)
	reminderHandler := handler.NewReminderHandler(reminderService)
	billingHandler := handler.NewBillingHandler(lateFeeService, reminderService, billingRunService, billingConfig)
	systemHandler := handler.NewSystemHandler()
	outboxHandler := handler.NewOutboxHandler(eventapp.NewOutboxService(outboxRepo, log))

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	// Initialize router with custom middleware
	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("setting trusted proxies failed", zap.Error(err))
		}
	}

	// Middleware order matters: the request ID must exist before the
	// logger and tracing read it, and recovery has to wrap everything after
	// it. Observability middleware comes last so it sees the final status.
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	// Configure CORS from config
	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Body size limit
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Rate limiting (if enabled)
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Request tracing and metrics
	if cfg.Telemetry.Enabled {
		engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     true,
		}))
		engine.Use(middleware.SpanErrorMarker())
	}
	if cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled {
		engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
			MeterProvider: meterProvider,
			ServiceName:   cfg.Telemetry.ServiceName,
			Enabled:       true,
		}))
	}
	if cfg.Telemetry.Enabled && cfg.Telemetry.ProfilingEnabled {
		engine.Use(middleware.Profiling())
	}

	// Health endpoints outside API versioning. Both gate on database
	// reachability since the service is useless without it.
	engine.GET("/health", healthHandler(db, log))
	engine.GET("/ready", healthHandler(db, log))

	// Swagger documentation endpoint
	engine.GET("/swagger/*any",
		middleware.SwaggerProtection(middleware.SwaggerConfig{
			Enabled:    cfg.Swagger.Enabled,
			AllowedIPs: cfg.Swagger.AllowedIPs,
		}),
		ginSwagger.WrapHandler(swaggerFiles.Handler),
	)

	// Setup API routes using router
	router.NewRouter(engine, router.WithAPIVersion("v1")).
		Register(
			invoiceHandler,
			paymentHandler,
			lateFeeHandler,
			reminderHandler,
			billingHandler,
			systemHandler,
			outboxHandler,
		).
		Setup()

	// Unversioned ping for load balancer checks that skip /system.
	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("server forced to shut down", zap.Error(err))
	}

	log.Info("server exited")
}

// stopComponent runs a bounded shutdown for a background component and logs
// a failure instead of propagating it, so the remaining defers still run.
func stopComponent(log *zap.Logger, name string, stop func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := stop(ctx); err != nil {
		log.Error("component shutdown failed", zap.String("component", name), zap.Error(err))
	}
}

// healthHandler reports liveness, including database reachability.
func healthHandler(db *persistence.Database, _ *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
