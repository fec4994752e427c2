package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/repoflow/backend/internal/infrastructure/config"
	"github.com/repoflow/backend/internal/infrastructure/logger"
	"github.com/repoflow/backend/internal/infrastructure/ratelimit"
	"github.com/repoflow/backend/internal/infrastructure/telemetry"
	"github.com/repoflow/backend/internal/interfaces/http/dto"
	"github.com/repoflow/backend/internal/interfaces/http/handler"
	"github.com/repoflow/backend/internal/interfaces/http/middleware"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Dependencies are the collaborators NewEngine wires into routes
type Dependencies struct {
	Config  *config.Config
	Logger  *zap.Logger
	Recipes *handler.RecipeHandler
	System  *handler.SystemHandler
	// GraphQL serves /graphql; nil leaves the endpoint unmounted
	GraphQL gin.HandlerFunc
	// Counter backs the rate limits; nil disables them
	Counter        ratelimit.Counter
	TracerProvider trace.TracerProvider
	MeterProvider  *telemetry.MeterProvider
}

// NewEngine builds the gin engine with the middleware chain and every route.
//
// REST recipe routes are served at /recipes and /api/v1/recipes. Each
// recipe route has its own per-client limit; the recommendation route uses
// the stricter one.
func NewEngine(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	} else {
		_ = engine.SetTrustedProxies(nil)
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.AccessLog(log))
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		Enabled:        cfg.Telemetry.Enabled,
		TracerProvider: deps.TracerProvider,
	}))
	engine.Use(middleware.MarkSpanErrors())
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: deps.MeterProvider,
		Enabled:       cfg.Telemetry.MetricsEnabled,
		Logger:        log,
	}))
	engine.Use(middleware.ProfilingLabels(cfg.Profiling.Enabled))
	engine.Use(middleware.CORS(corsConfig(cfg.HTTP)))
	engine.Use(middleware.Secure(middleware.DefaultSecurityConfig()))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeNotFound, "Route not found", middleware.GetRequestID(c)))
	})
	engine.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeBadRequest, "Method not allowed", middleware.GetRequestID(c)))
	})

	limits := newLimiter(deps.Counter, cfg.HTTP, log)
	crud := cfg.HTTP.RateLimitRequests

	r := NewRouter(engine, WithAPIVersion("v1"))

	if deps.Recipes != nil {
		h := deps.Recipes
		recipes := NewDomainGroup("/recipes")
		recipes.POST("", limits.handler("recipes:create", crud), h.Create).
			GET("", limits.handler("recipes:list", crud), h.List).
			GET("/recommendation", limits.handler("recipes:recommend", cfg.HTTP.RecommendRateLimitRequests), h.Recommend).
			GET("/:id", limits.handler("recipes:get", crud), h.GetByID).
			DELETE("/:id", limits.handler("recipes:delete", crud), h.Delete)
		r.RegisterAliased(recipes)
	}

	if deps.System != nil {
		system := NewDomainGroup("/system")
		system.GET("/info", deps.System.GetSystemInfo).
			GET("/ping", deps.System.Ping)
		r.Register(system)
		engine.GET("/health", deps.System.Health)
	}

	// the document itself is registered by importing the docs package
	if cfg.HTTP.SwaggerEnabled {
		if access, err := middleware.DocsAccess(cfg.HTTP.SwaggerAllowedIPs); err != nil {
			log.Error("API docs not mounted", zap.Error(err))
		} else {
			engine.GET("/swagger/*any", access, ginSwagger.WrapHandler(swaggerFiles.Handler))
		}
	}

	r.Setup()

	if deps.GraphQL != nil {
		gql := limits.handler("graphql", crud)
		engine.POST("/graphql", gql, deps.GraphQL)
		engine.GET("/graphql", gql, deps.GraphQL)
	}

	return engine
}

func corsConfig(cfg config.HTTPConfig) middleware.CORSConfig {
	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.CORSAllowOrigins
	if len(cfg.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.CORSAllowMethods
	}
	if len(cfg.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.CORSAllowHeaders
	}
	return cors
}

// limiter hands out per-route rate limit middleware sharing one counter
type limiter struct {
	counter ratelimit.Counter
	window  time.Duration
	enabled bool
	log     *zap.Logger
}

func newLimiter(counter ratelimit.Counter, cfg config.HTTPConfig, log *zap.Logger) *limiter {
	return &limiter{
		counter: counter,
		window:  cfg.RateLimitWindow,
		enabled: cfg.RateLimitEnabled && counter != nil,
		log:     log,
	}
}

func (l *limiter) handler(name string, limit int) gin.HandlerFunc {
	if !l.enabled || limit <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return middleware.RateLimit(middleware.RateLimitConfig{
		Name:    name,
		Limit:   limit,
		Window:  l.window,
		Counter: l.counter,
		Logger:  l.log,
	})
}
