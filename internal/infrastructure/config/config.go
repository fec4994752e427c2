// Package config loads service settings from config.toml and RECIPES_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const envPrefix = "RECIPES"

type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Log         LogConfig         `mapstructure:"log"`
	HTTP        HTTPConfig        `mapstructure:"http"`
	GraphQL     GraphQLConfig     `mapstructure:"graphql"`
	Recommender RecommenderConfig `mapstructure:"recommender"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
	Profiling   ProfilingConfig   `mapstructure:"profiling"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Port string `mapstructure:"port"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json or console
	Output string `mapstructure:"output"` // stdout, stderr or a file path
}

// DatabaseConfig picks sqlite (Path, ":memory:" allowed) or postgres (the
// host fields). Lifetimes are minutes.
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Path            string `mapstructure:"path"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"`
	AutoMigrate     bool   `mapstructure:"auto_migrate"`
}

// DSN is the postgres URL with user and password escaped.
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     d.DBName,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}

// RedisConfig backs the shared rate-limit counters. Disabled, counters
// stay in process memory.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r *RedisConfig) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

type HTTPConfig struct {
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	MaxHeaderBytes    int           `mapstructure:"max_header_bytes"`
	MaxBodySize       int64         `mapstructure:"max_body_size"`
	RateLimitEnabled  bool          `mapstructure:"rate_limit_enabled"`
	RateLimitRequests int           `mapstructure:"rate_limit_requests"`
	RateLimitWindow   time.Duration `mapstructure:"rate_limit_window"`
	// the recommendation route has its own, stricter budget
	RecommendRateLimitRequests int `mapstructure:"recommend_rate_limit_requests"`
	// empty allows no cross-origin callers
	CORSAllowOrigins []string `mapstructure:"cors_allow_origins"`
	CORSAllowMethods []string `mapstructure:"cors_allow_methods"`
	CORSAllowHeaders []string `mapstructure:"cors_allow_headers"`
	TrustedProxies   []string `mapstructure:"trusted_proxies"`
	// serves the OpenAPI document and UI under /swagger/
	SwaggerEnabled bool `mapstructure:"swagger_enabled"`
	// addresses or CIDR prefixes; empty admits every client
	SwaggerAllowedIPs []string `mapstructure:"swagger_allowed_ips"`
}

type GraphQLConfig struct {
	Enabled  bool `mapstructure:"enabled"`
	MaxDepth int  `mapstructure:"max_depth"`
}

type RecommenderConfig struct {
	Provider           string        `mapstructure:"provider"` // mock, random or none
	BreakerEnabled     bool          `mapstructure:"breaker_enabled"`
	BreakerMaxFailures uint32        `mapstructure:"breaker_max_failures"`
	BreakerTimeout     time.Duration `mapstructure:"breaker_timeout"`
}

// TelemetryConfig drives OTLP export. Metrics and logs also need Enabled.
type TelemetryConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	CollectorEndpoint string  `mapstructure:"collector_endpoint"`
	SamplingRatio     float64 `mapstructure:"sampling_ratio"`
	ServiceName       string  `mapstructure:"service_name"`
	Insecure          bool    `mapstructure:"insecure"`

	DBTraceEnabled    bool          `mapstructure:"db_trace_enabled"`
	DBLogFullSQL      bool          `mapstructure:"db_log_full_sql"`
	DBSlowQueryThresh time.Duration `mapstructure:"db_slow_query_threshold"`

	MetricsEnabled        bool          `mapstructure:"metrics_enabled"`
	MetricsExportInterval time.Duration `mapstructure:"metrics_export_interval"`
	LogsEnabled           bool          `mapstructure:"logs_enabled"`
}

// ProfilingConfig drives the Pyroscope agent. ApplicationName falls back
// to the telemetry service name.
type ProfilingConfig struct {
	Enabled           bool     `mapstructure:"enabled"`
	ServerAddress     string   `mapstructure:"server_address"`
	ApplicationName   string   `mapstructure:"application_name"`
	BasicAuthUser     string   `mapstructure:"basic_auth_user"`
	BasicAuthPassword string   `mapstructure:"basic_auth_password"`
	ProfileTypes      []string `mapstructure:"profile_types"`
}

// defaults lists every key. Unmarshal only sees environment variables for
// keys viper already knows, so keys without a meaningful default are
// registered with their zero value.
var defaults = map[string]any{
	"app.name": "recipes-api",
	"app.env":  "development",
	"app.port": "8080",

	"database.driver":             DriverSQLite,
	"database.path":               "./recipes.db",
	"database.host":               "localhost",
	"database.port":               5432,
	"database.user":               "postgres",
	"database.password":           "",
	"database.dbname":             "recipes",
	"database.sslmode":            "disable",
	"database.max_open_conns":     25,
	"database.max_idle_conns":     5,
	"database.conn_max_lifetime":  60,
	"database.conn_max_idle_time": 30,
	"database.auto_migrate":       true,

	"redis.enabled":  false,
	"redis.host":     "localhost",
	"redis.port":     6379,
	"redis.password": "",
	"redis.db":       0,

	"log.level":  "info",
	"log.format": "console",
	"log.output": "stdout",

	"http.read_timeout":                  15 * time.Second,
	"http.write_timeout":                 15 * time.Second,
	"http.idle_timeout":                  time.Minute,
	"http.max_header_bytes":              1 << 20,
	"http.max_body_size":                 int64(1 << 20),
	"http.rate_limit_enabled":            true,
	"http.rate_limit_requests":           100,
	"http.rate_limit_window":             time.Minute,
	"http.recommend_rate_limit_requests": 10,
	"http.cors_allow_origins":            []string{},
	"http.cors_allow_methods":            []string{"GET", "POST", "DELETE", "OPTIONS"},
	"http.cors_allow_headers":            []string{"Content-Type", "X-Request-ID"},
	"http.trusted_proxies":               []string{},
	"http.swagger_enabled":               true,
	"http.swagger_allowed_ips":           []string{},

	"graphql.enabled":   true,
	"graphql.max_depth": 10,

	"recommender.provider":             "mock",
	"recommender.breaker_enabled":      true,
	"recommender.breaker_max_failures": 5,
	"recommender.breaker_timeout":      30 * time.Second,

	"telemetry.enabled":                 false,
	"telemetry.collector_endpoint":      "localhost:4317",
	"telemetry.sampling_ratio":          1.0,
	"telemetry.service_name":            "recipes-api",
	"telemetry.insecure":                false,
	"telemetry.db_trace_enabled":        false,
	"telemetry.db_log_full_sql":         false,
	"telemetry.db_slow_query_threshold": 200 * time.Millisecond,
	"telemetry.metrics_enabled":         false,
	"telemetry.metrics_export_interval": time.Minute,
	"telemetry.logs_enabled":            false,

	"profiling.enabled":             false,
	"profiling.server_address":      "",
	"profiling.application_name":    "",
	"profiling.basic_auth_user":     "",
	"profiling.basic_auth_password": "",
	"profiling.profile_types":       []string{"cpu", "alloc_objects", "alloc_space", "inuse_objects", "inuse_space"},
}

// Load reads ./config.toml (or ./backend, /app) when present and lets
// RECIPES_SECTION_KEY variables override it. AI_PROVIDER is an unprefixed
// alias for RECIPES_RECOMMENDER_PROVIDER.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	for _, dir := range []string{".", "./backend", "/app"} {
		v.AddConfigPath(dir)
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("recommender.provider", envPrefix+"_RECOMMENDER_PROVIDER", "AI_PROVIDER"); err != nil {
		return nil, fmt.Errorf("error binding recommender provider env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	cfg.Database.Driver = strings.ToLower(cfg.Database.Driver)
	cfg.Recommender.Provider = strings.ToLower(cfg.Recommender.Provider)
	if cfg.Profiling.ApplicationName == "" {
		cfg.Profiling.ApplicationName = cfg.Telemetry.ServiceName
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	db := c.Database
	switch {
	case db.Driver != DriverSQLite && db.Driver != DriverPostgres:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverSQLite, DriverPostgres, db.Driver)
	case db.MaxOpenConns <= 0:
		return errors.New("database.max_open_conns must be positive")
	case db.MaxIdleConns < 0:
		return errors.New("database.max_idle_conns cannot be negative")
	case db.MaxIdleConns > db.MaxOpenConns:
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			db.MaxIdleConns, db.MaxOpenConns)
	case c.HTTP.RateLimitRequests < 0 || c.HTTP.RecommendRateLimitRequests < 0:
		return errors.New("http rate limits cannot be negative")
	case c.Profiling.Enabled && c.Profiling.ServerAddress == "":
		return errors.New("profiling.server_address is required when profiling is enabled")
	case c.GraphQL.MaxDepth < 1:
		return fmt.Errorf("graphql.max_depth must be at least 1, got %d", c.GraphQL.MaxDepth)
	case c.Telemetry.SamplingRatio < 0 || c.Telemetry.SamplingRatio > 1:
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %g", c.Telemetry.SamplingRatio)
	}
	if c.App.Env == "production" {
		return c.validateProduction()
	}
	return nil
}

// validateProduction refuses settings that are only safe on a laptop.
func (c *Config) validateProduction() error {
	switch {
	case c.Database.Driver != DriverPostgres:
		return errors.New("database.driver must be postgres in production")
	case c.Database.Password == "":
		return errors.New("database.password is required in production")
	case c.Database.SSLMode == "disable":
		return errors.New("database.sslmode cannot be 'disable' in production")
	case slices.Contains(c.HTTP.CORSAllowOrigins, "*"):
		return errors.New("http.cors_allow_origins cannot be '*' in production")
	case c.Telemetry.DBLogFullSQL:
		return errors.New("telemetry.db_log_full_sql must be false in production")
	}
	return nil
}
