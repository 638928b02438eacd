package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full application configuration tree.
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Billing   BillingConfig
	Cache     CacheConfig
	Swagger   SwaggerConfig
	Telemetry TelemetryConfig
}

type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds the Postgres connection and pool settings.
// Lifetime values are in minutes.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
	ConnMaxIdleTime int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// LogConfig selects level (debug..error), format (json or console) and
// output (stdout, stderr, or a file path).
type LogConfig struct {
	Level  string
	Format string
	Output string
}

type HTTPConfig struct {
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	MaxBodySize       int64
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
	CORSAllowOrigins  []string
	CORSAllowMethods  []string
	CORSAllowHeaders  []string
	TrustedProxies    []string
}

// BillingConfig drives the daily billing run: when it fires, the late fee
// percentage applied per eligible day, and the reminder cadence around the
// due date.
type BillingConfig struct {
	SchedulerEnabled   bool
	RunHour            int
	RunMinute          int
	FeePercentage      float64
	ReminderDaysBefore int
	ReminderDaysAfter  int
}

// CacheConfig selects the payment idempotency cache backend ("memory" or
// "redis") and how long keys are retained.
type CacheConfig struct {
	Backend string
	TTL     time.Duration
}

// SwaggerConfig gates the documentation endpoint. An empty AllowedIPs list
// means no IP restriction.
type SwaggerConfig struct {
	Enabled    bool
	AllowedIPs []string
}

// TelemetryConfig covers traces, metrics, log export, database tracing and
// continuous profiling. DBLogFullSQL records complete SQL statements in
// spans and is for development only.
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool

	MetricsEnabled        bool
	MetricsExportInterval time.Duration

	LogsEnabled bool

	DBTraceEnabled    bool
	DBLogFullSQL      bool
	DBSlowQueryThresh time.Duration

	ProfilingEnabled bool
	ProfilingServer  string
}

// Load reads config.toml if present, lets INVOICING_* environment variables
// override it (INVOICING_DATABASE_PASSWORD overrides database.password),
// fills in defaults for anything left unset, and validates the result.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		// Running purely on env vars and defaults is supported.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("INVOICING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App:       loadApp(v),
		Database:  loadDatabase(v),
		Redis:     loadRedis(v),
		Log:       loadLog(v),
		HTTP:      loadHTTP(v),
		Billing:   loadBilling(v),
		Cache:     loadCache(v),
		Swagger:   loadSwagger(v),
		Telemetry: loadTelemetry(v),
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadApp(v *viper.Viper) AppConfig {
	return AppConfig{
		Name: v.GetString("app.name"),
		Env:  v.GetString("app.env"),
		Port: v.GetString("app.port"),
	}
}

func loadDatabase(v *viper.Viper) DatabaseConfig {
	return DatabaseConfig{
		Host:            v.GetString("database.host"),
		Port:            v.GetInt("database.port"),
		User:            v.GetString("database.user"),
		Password:        v.GetString("database.password"),
		DBName:          v.GetString("database.dbname"),
		SSLMode:         v.GetString("database.sslmode"),
		MaxOpenConns:    v.GetInt("database.max_open_conns"),
		MaxIdleConns:    v.GetInt("database.max_idle_conns"),
		ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
		ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
	}
}

func loadRedis(v *viper.Viper) RedisConfig {
	return RedisConfig{
		Host:     v.GetString("redis.host"),
		Port:     v.GetInt("redis.port"),
		Password: v.GetString("redis.password"),
		DB:       v.GetInt("redis.db"),
	}
}

func loadLog(v *viper.Viper) LogConfig {
	return LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
		Output: v.GetString("log.output"),
	}
}

func loadHTTP(v *viper.Viper) HTTPConfig {
	return HTTPConfig{
		ReadTimeout:       v.GetDuration("http.read_timeout"),
		WriteTimeout:      v.GetDuration("http.write_timeout"),
		IdleTimeout:       v.GetDuration("http.idle_timeout"),
		MaxHeaderBytes:    v.GetInt("http.max_header_bytes"),
		MaxBodySize:       v.GetInt64("http.max_body_size"),
		RateLimitEnabled:  v.GetBool("http.rate_limit_enabled"),
		RateLimitRequests: v.GetInt("http.rate_limit_requests"),
		RateLimitWindow:   v.GetDuration("http.rate_limit_window"),
		CORSAllowOrigins:  v.GetStringSlice("http.cors_allow_origins"),
		CORSAllowMethods:  v.GetStringSlice("http.cors_allow_methods"),
		CORSAllowHeaders:  v.GetStringSlice("http.cors_allow_headers"),
		TrustedProxies:    v.GetStringSlice("http.trusted_proxies"),
	}
}

func loadBilling(v *viper.Viper) BillingConfig {
	return BillingConfig{
		SchedulerEnabled:   v.GetBool("billing.scheduler_enabled"),
		RunHour:            v.GetInt("billing.run_hour"),
		RunMinute:          v.GetInt("billing.run_minute"),
		FeePercentage:      v.GetFloat64("billing.fee_percentage"),
		ReminderDaysBefore: v.GetInt("billing.reminder_days_before"),
		ReminderDaysAfter:  v.GetInt("billing.reminder_days_after"),
	}
}

func loadCache(v *viper.Viper) CacheConfig {
	return CacheConfig{
		Backend: v.GetString("cache.backend"),
		TTL:     v.GetDuration("cache.ttl"),
	}
}

func loadSwagger(v *viper.Viper) SwaggerConfig {
	return SwaggerConfig{
		Enabled:    v.GetBool("swagger.enabled"),
		AllowedIPs: v.GetStringSlice("swagger.allowed_ips"),
	}
}

func loadTelemetry(v *viper.Viper) TelemetryConfig {
	return TelemetryConfig{
		Enabled:               v.GetBool("telemetry.enabled"),
		CollectorEndpoint:     v.GetString("telemetry.collector_endpoint"),
		SamplingRatio:         v.GetFloat64("telemetry.sampling_ratio"),
		ServiceName:           v.GetString("telemetry.service_name"),
		Insecure:              v.GetBool("telemetry.insecure"),
		MetricsEnabled:        v.GetBool("telemetry.metrics_enabled"),
		MetricsExportInterval: v.GetDuration("telemetry.metrics_export_interval"),
		LogsEnabled:           v.GetBool("telemetry.logs_enabled"),
		DBTraceEnabled:        v.GetBool("telemetry.db_trace_enabled"),
		DBLogFullSQL:          v.GetBool("telemetry.db_log_full_sql"),
		DBSlowQueryThresh:     v.GetDuration("telemetry.db_slow_query_threshold"),
		ProfilingEnabled:      v.GetBool("telemetry.profiling_enabled"),
		ProfilingServer:       v.GetString("telemetry.profiling_server"),
	}
}

// fallback replaces a zero value with def. A zero read from viper is
// indistinguishable from "not set", so zeroes always take the default.
func fallback[T comparable](target *T, def T) {
	var zero T
	if *target == zero {
		*target = def
	}
}

func (c *Config) applyDefaults() {
	fallback(&c.App.Name, "invoicing-backend")
	fallback(&c.App.Env, "development")
	fallback(&c.App.Port, "8080")

	fallback(&c.Database.Host, "localhost")
	fallback(&c.Database.Port, 5432)
	fallback(&c.Database.User, "postgres")
	fallback(&c.Database.DBName, "invoicing")
	fallback(&c.Database.SSLMode, "disable")
	fallback(&c.Database.MaxOpenConns, 25)
	fallback(&c.Database.MaxIdleConns, 5)
	fallback(&c.Database.ConnMaxLifetime, 60)
	fallback(&c.Database.ConnMaxIdleTime, 30)

	fallback(&c.Redis.Host, "localhost")
	fallback(&c.Redis.Port, 6379)

	fallback(&c.Log.Level, "info")
	fallback(&c.Log.Format, "console")
	fallback(&c.Log.Output, "stdout")

	fallback(&c.HTTP.ReadTimeout, 15*time.Second)
	fallback(&c.HTTP.WriteTimeout, 15*time.Second)
	fallback(&c.HTTP.IdleTimeout, 60*time.Second)
	fallback(&c.HTTP.MaxHeaderBytes, 1<<20)
	fallback(&c.HTTP.MaxBodySize, 10<<20)
	fallback(&c.HTTP.RateLimitRequests, 100)
	fallback(&c.HTTP.RateLimitWindow, time.Minute)
	// CORS origins deliberately have no fallback: an empty list keeps
	// cross-origin requests blocked until origins are configured.
	if len(c.HTTP.CORSAllowMethods) == 0 {
		c.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(c.HTTP.CORSAllowHeaders) == 0 {
		c.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID", "Idempotency-Key"}
	}

	// The billing run fires at 02:00 unless a time was configured. A
	// configured 00:xx run keeps its midnight hour.
	if c.Billing.RunHour == 0 && c.Billing.RunMinute == 0 {
		c.Billing.RunHour = 2
	}
	fallback(&c.Billing.FeePercentage, 1.0)
	fallback(&c.Billing.ReminderDaysBefore, 7)
	fallback(&c.Billing.ReminderDaysAfter, 7)

	fallback(&c.Cache.Backend, "memory")
	fallback(&c.Cache.TTL, 24*time.Hour)

	fallback(&c.Telemetry.CollectorEndpoint, "localhost:4317")
	fallback(&c.Telemetry.SamplingRatio, 1.0)
	fallback(&c.Telemetry.ServiceName, "invoicing-backend")
	fallback(&c.Telemetry.MetricsExportInterval, 60*time.Second)
	fallback(&c.Telemetry.DBSlowQueryThresh, 200*time.Millisecond)
	fallback(&c.Telemetry.ProfilingServer, "http://localhost:4040")
}

func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.Billing.RunHour < 0 || c.Billing.RunHour > 23 {
		return fmt.Errorf("billing.run_hour must be between 0 and 23, got %d", c.Billing.RunHour)
	}
	if c.Billing.RunMinute < 0 || c.Billing.RunMinute > 59 {
		return fmt.Errorf("billing.run_minute must be between 0 and 59, got %d", c.Billing.RunMinute)
	}
	if c.Billing.FeePercentage < 0 || c.Billing.FeePercentage > 100 {
		return fmt.Errorf("billing.fee_percentage must be between 0 and 100, got %f", c.Billing.FeePercentage)
	}
	if c.Billing.ReminderDaysBefore < 1 {
		return fmt.Errorf("billing.reminder_days_before must be at least 1, got %d", c.Billing.ReminderDaysBefore)
	}
	if c.Billing.ReminderDaysAfter < 1 {
		return fmt.Errorf("billing.reminder_days_after must be at least 1, got %d", c.Billing.ReminderDaysAfter)
	}

	if c.Cache.Backend != "memory" && c.Cache.Backend != "redis" {
		return fmt.Errorf("cache.backend must be 'memory' or 'redis', got %q", c.Cache.Backend)
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	if c.App.Env == "production" {
		return c.validateProduction()
	}
	return nil
}

// validateProduction rejects settings that would be unsafe to ship.
func (c *Config) validateProduction() error {
	if c.Database.Password == "" {
		return fmt.Errorf("database.password is required in production")
	}
	if c.Database.SSLMode == "disable" {
		return fmt.Errorf("database.sslmode cannot be 'disable' in production")
	}
	for _, origin := range c.HTTP.CORSAllowOrigins {
		if origin == "*" {
			return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
		}
	}
	if c.Swagger.Enabled && len(c.Swagger.AllowedIPs) == 0 {
		return fmt.Errorf("swagger endpoint must be disabled or have IP restriction in production")
	}
	if c.Telemetry.DBLogFullSQL {
		return fmt.Errorf("telemetry.db_log_full_sql must be false in production to prevent sensitive data exposure in traces")
	}
	return nil
}

// DSN builds the Postgres connection URL with user and password escaped.
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr is the host:port of the Redis server.
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
