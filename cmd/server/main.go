package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	recipeapp "github.com/repoflow/backend/internal/application/recipe"
	"github.com/repoflow/backend/internal/infrastructure/config"
	"github.com/repoflow/backend/internal/infrastructure/logger"
	"github.com/repoflow/backend/internal/infrastructure/migration"
	"github.com/repoflow/backend/internal/infrastructure/persistence"
	"github.com/repoflow/backend/internal/infrastructure/ratelimit"
	"github.com/repoflow/backend/internal/infrastructure/recommender"
	"github.com/repoflow/backend/internal/infrastructure/telemetry"
	"github.com/repoflow/backend/internal/interfaces/gql"
	"github.com/repoflow/backend/internal/interfaces/http/handler"
	"github.com/repoflow/backend/internal/interfaces/http/middleware"
	"github.com/repoflow/backend/internal/interfaces/http/router"
	"github.com/repoflow/backend/migrations"

	_ "github.com/repoflow/backend/docs"
)

const shutdownTimeout = 30 * time.Second

//go:generate swag init -g cmd/server/main.go -d ../../ -o ../../docs

//	@title			Recipes API
//	@version		1.0
//	@description	Recipe catalog with CRUD and recommendations over REST. The same operations are served over GraphQL at /graphql.

//	@license.name	MIT

//	@host		localhost:8080
//	@BasePath	/api/v1

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.FromAppConfig(cfg.Log, cfg.App.Env))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync(log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	providers, log := setupTelemetry(ctx, cfg, log)
	defer providers.shutdown(log)

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           cfg.Profiling.Enabled,
		ServerAddress:     cfg.Profiling.ServerAddress,
		ApplicationName:   cfg.Profiling.ApplicationName,
		BasicAuthUser:     cfg.Profiling.BasicAuthUser,
		BasicAuthPassword: cfg.Profiling.BasicAuthPassword,
		ProfileTypes:      cfg.Profiling.ProfileTypes,
	}, log)
	if err != nil {
		log.Error("Failed to start profiler, continuing without it", zap.Error(err))
	} else {
		defer func() {
			if err := profiler.Stop(); err != nil {
				log.Warn("Error stopping profiler", zap.Error(err))
			}
		}()
		if profiler.IsEnabled() {
			providers.tracer.EnableSpanProfiles()
		}
	}

	log.Info("Starting recipes API",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("db_driver", cfg.Database.Driver),
	)

	gormLog := logger.NewGormLogger(log, logger.GormLevel(cfg.Log.Level), logger.SQLLogOptions{
		SlowThreshold: cfg.Telemetry.DBSlowQueryThresh,
		IncludeSQL:    cfg.App.Env != "production",
	})
	db, err := persistence.Open(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	dbSystem := "sqlite"
	if cfg.Database.Driver == config.DriverPostgres {
		dbSystem = "postgresql"
	}
	if err := db.DB.Use(telemetry.NewDBTracing(telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBSystem:        dbSystem,
	}, log)); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatal("Failed to get database handle", zap.Error(err))
	}
	dbMetrics, err := telemetry.NewDBMetrics(providers.meter.Meter("db.client"), sqlDB, cfg.Telemetry.DBSlowQueryThresh, log)
	if err != nil {
		log.Fatal("Failed to create database metrics", zap.Error(err))
	}
	defer func() { _ = dbMetrics.Stop() }()
	if err := db.DB.Use(dbMetrics); err != nil {
		log.Fatal("Failed to register database metrics", zap.Error(err))
	}

	if cfg.Database.AutoMigrate {
		if err := migrateSchema(cfg, db, log); err != nil {
			log.Fatal("Failed to migrate schema", zap.Error(err))
		}
	}

	metrics, err := telemetry.NewRecipeMetrics(providers.meter.Meter("recipes"), log)
	if err != nil {
		log.Fatal("Failed to create recipe metrics", zap.Error(err))
	}

	recipeService := recipeapp.NewRecipeService(
		persistence.NewGormRecipeRepository(db.DB),
		recipeapp.WithRecommender(recommender.New(&cfg.Recommender, log)),
		recipeapp.WithRecorder(metrics),
		recipeapp.WithLogger(log),
	)
	log.Info("Recipe service ready",
		zap.String("recommender", cfg.Recommender.Provider),
		zap.Bool("recommender_enabled", recipeService.HasRecommender()),
	)

	counter, err := ratelimit.NewFactory(cfg.Redis,
		ratelimit.WithLogger(log),
		ratelimit.WithInMemoryFallback(cfg.App.Env != "production"),
	).CreateCounter(ctx)
	if err != nil {
		log.Fatal("Failed to create rate limit counter", zap.Error(err))
	}
	defer func() {
		if err := counter.Close(); err != nil {
			log.Warn("Error closing rate limit counter", zap.Error(err))
		}
	}()

	var graphQL gin.HandlerFunc
	if cfg.GraphQL.Enabled {
		schema, err := gql.NewSchema(recipeService)
		if err != nil {
			log.Fatal("Failed to build GraphQL schema", zap.Error(err))
		}
		graphQL = gql.NewHandler(schema, gql.HandlerConfig{
			MaxDepth: cfg.GraphQL.MaxDepth,
			Logger:   log,
		}).Serve
	}

	middleware.SetupValidator()

	engine := router.NewEngine(router.Dependencies{
		Config:        cfg,
		Logger:        log,
		Recipes:       handler.NewRecipeHandler(recipeService),
		System:        handler.NewSystemHandler(cfg.App.Name, telemetry.ServiceVersion, db),
		GraphQL:       graphQL,
		Counter:       counter,
		MeterProvider: providers.meter,
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// telemetryProviders owns the OpenTelemetry providers for the process
type telemetryProviders struct {
	tracer *telemetry.TracerProvider
	meter  *telemetry.MeterProvider
	logs   *telemetry.LoggerProvider
}

// setupTelemetry starts tracing, metrics and the log bridge. Exporter
// failures are logged and the process continues without that signal. The
// returned logger tees into the OTLP log pipeline when logs are enabled.
func setupTelemetry(ctx context.Context, cfg *config.Config, log *zap.Logger) (*telemetryProviders, *zap.Logger) {
	t := cfg.Telemetry
	p := &telemetryProviders{}

	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           t.Enabled,
		CollectorEndpoint: t.CollectorEndpoint,
		SamplingRatio:     t.SamplingRatio,
		ServiceName:       t.ServiceName,
		Insecure:          t.Insecure,
	}, log)
	if err != nil {
		log.Error("Failed to initialize tracing, continuing without it", zap.Error(err))
		tp, _ = telemetry.NewTracerProvider(ctx, telemetry.Config{}, log)
	}
	p.tracer = tp

	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           t.Enabled && t.MetricsEnabled,
		CollectorEndpoint: t.CollectorEndpoint,
		ExportInterval:    t.MetricsExportInterval,
		ServiceName:       t.ServiceName,
		Insecure:          t.Insecure,
	}, log)
	if err != nil {
		log.Error("Failed to initialize metrics, continuing without them", zap.Error(err))
		mp, _ = telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{}, log)
	}
	p.meter = mp

	lp, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           t.Enabled && t.LogsEnabled,
		CollectorEndpoint: t.CollectorEndpoint,
		ServiceName:       t.ServiceName,
		Insecure:          t.Insecure,
	}, log)
	if err != nil {
		log.Error("Failed to initialize log export, continuing without it", zap.Error(err))
		return p, log
	}
	p.logs = lp
	return p, lp.Tee(log, t.ServiceName, zapcore.InfoLevel)
}

func (p *telemetryProviders) shutdown(log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if p.logs != nil {
		if err := p.logs.Shutdown(ctx); err != nil {
			log.Warn("Error shutting down log provider", zap.Error(err))
		}
	}
	if err := p.meter.Shutdown(ctx); err != nil {
		log.Warn("Error shutting down meter provider", zap.Error(err))
	}
	if err := p.tracer.Shutdown(ctx); err != nil {
		log.Warn("Error shutting down tracer provider", zap.Error(err))
	}
}

// migrateSchema brings the schema up to date: the embedded SQL migrations
// on postgres, the GORM model on sqlite.
func migrateSchema(cfg *config.Config, db *persistence.Database, log *zap.Logger) error {
	if cfg.Database.Driver != config.DriverPostgres {
		return db.AutoMigrate()
	}

	m, err := migration.Open(cfg.Database.DSN(), migrations.FS, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn("Error closing migrator", zap.Error(err))
		}
	}()

	return m.Up()
}
