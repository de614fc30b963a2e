// Package config handles application configuration loading and validation using Viper.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Firestore   FirestoreConfig   `mapstructure:"firestore"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Games       GamesConfig       `mapstructure:"games"`
	Leaderboard LeaderboardConfig `mapstructure:"leaderboard"`
	Analytics   AnalyticsConfig   `mapstructure:"analytics"`
	Scheduler   SchedulerConfig   `mapstructure:"scheduler"`
	Webhook     WebhookConfig     `mapstructure:"webhook"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	FactsFile   string            `mapstructure:"facts_file"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port           int    `mapstructure:"port"`
	Environment    string `mapstructure:"environment"`
	LoadingTimeout int    `mapstructure:"loading_timeout"` // seconds before a request answers "taking too long"
}

// AuthConfig contains identity provider token verification settings.
type AuthConfig struct {
	Mode     string `mapstructure:"mode"` // "jwks" or "noop"
	JWKSURL  string `mapstructure:"jwks_url"`
	Audience string `mapstructure:"audience"`
	Issuer   string `mapstructure:"issuer"`
}

// FirestoreConfig contains primary document store settings.
type FirestoreConfig struct {
	ProjectID    string `mapstructure:"project_id"`
	EmulatorHost string `mapstructure:"emulator_host"`
	Collection   string `mapstructure:"collection"`
}

// DatabaseConfig contains connection settings for PostgreSQL and Redis.
type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig contains PostgreSQL database connection and pool settings.
type PostgresConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Database        string `mapstructure:"database"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	Migrate         bool   `mapstructure:"migrate"`
}

// RedisConfig contains Redis connection settings for the local profile overlay.
type RedisConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	PoolSize   int    `mapstructure:"pool_size"`
	OverlayTTL int    `mapstructure:"overlay_ttl"` // seconds
}

// GamesConfig contains mini-game timing settings.
type GamesConfig struct {
	FrameIntervalMS     int            `mapstructure:"frame_interval_ms"`
	Countdowns          map[string]int `mapstructure:"countdowns"`         // game type -> seconds
	MaxRoundLifetimeMin int            `mapstructure:"max_round_lifetime"` // minutes
}

// LeaderboardConfig contains leaderboard paging settings.
type LeaderboardConfig struct {
	PageSize    int `mapstructure:"page_size"`
	MaxPageSize int `mapstructure:"max_page_size"`
}

// AnalyticsConfig contains teacher dashboard settings.
type AnalyticsConfig struct {
	ActiveWindowHours int `mapstructure:"active_window_hours"`
	TopStudents       int `mapstructure:"top_students"`
}

// SchedulerConfig contains daily class digest scheduler settings.
type SchedulerConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	DigestTime   string `mapstructure:"digest_time"`
	Timezone     string `mapstructure:"timezone"`
	SkipWeekends bool   `mapstructure:"skip_weekends"`
}

// WebhookConfig contains teacher channel webhook notification settings.
type WebhookConfig struct {
	URL      string `mapstructure:"url"`
	Channel  string `mapstructure:"channel"`
	Username string `mapstructure:"username"`
	Enabled  bool   `mapstructure:"enabled"`
}

// MetricsConfig contains metrics exporter settings.
type MetricsConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// PrometheusConfig contains Prometheus metrics exporter settings.
type PrometheusConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig contains application logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// Load reads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/planet-heroes/")
	}

	setDefaults(v)

	// Server configuration
	_ = v.BindEnv("server.port", "SERVER_PORT", "PORT")
	_ = v.BindEnv("server.environment", "SERVER_ENVIRONMENT")
	_ = v.BindEnv("server.loading_timeout", "SERVER_LOADING_TIMEOUT")

	// Identity provider
	_ = v.BindEnv("auth.mode", "AUTH_MODE")
	_ = v.BindEnv("auth.jwks_url", "AUTH_JWKS_URL")
	_ = v.BindEnv("auth.audience", "AUTH_AUDIENCE")
	_ = v.BindEnv("auth.issuer", "AUTH_ISSUER")

	// Firestore configuration
	_ = v.BindEnv("firestore.project_id", "FIRESTORE_PROJECT_ID", "GOOGLE_CLOUD_PROJECT")
	_ = v.BindEnv("firestore.emulator_host", "FIRESTORE_EMULATOR_HOST")
	_ = v.BindEnv("firestore.collection", "FIRESTORE_COLLECTION")

	// PostgreSQL configuration
	_ = v.BindEnv("database.postgres.host", "POSTGRES_HOST")
	_ = v.BindEnv("database.postgres.port", "POSTGRES_PORT")
	_ = v.BindEnv("database.postgres.database", "POSTGRES_DB")
	_ = v.BindEnv("database.postgres.user", "POSTGRES_USER")
	_ = v.BindEnv("database.postgres.password", "POSTGRES_PASSWORD")
	_ = v.BindEnv("database.postgres.ssl_mode", "POSTGRES_SSL_MODE")
	_ = v.BindEnv("database.postgres.max_open_conns", "POSTGRES_MAX_OPEN_CONNS")
	_ = v.BindEnv("database.postgres.max_idle_conns", "POSTGRES_MAX_IDLE_CONNS")
	_ = v.BindEnv("database.postgres.conn_max_lifetime", "POSTGRES_CONN_MAX_LIFETIME")
	_ = v.BindEnv("database.postgres.migrate", "POSTGRES_MIGRATE")

	// Redis configuration
	_ = v.BindEnv("database.redis.host", "REDIS_HOST")
	_ = v.BindEnv("database.redis.port", "REDIS_PORT")
	_ = v.BindEnv("database.redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("database.redis.db", "REDIS_DB")
	_ = v.BindEnv("database.redis.pool_size", "REDIS_POOL_SIZE")
	_ = v.BindEnv("database.redis.overlay_ttl", "REDIS_OVERLAY_TTL")

	// Logging configuration
	_ = v.BindEnv("logging.level", "LOG_LEVEL")
	_ = v.BindEnv("logging.format", "LOG_FORMAT")
	_ = v.BindEnv("logging.output", "LOG_OUTPUT")

	// Scheduler and webhook
	_ = v.BindEnv("scheduler.enabled", "SCHEDULER_ENABLED")
	_ = v.BindEnv("scheduler.digest_time", "SCHEDULER_DIGEST_TIME")
	_ = v.BindEnv("scheduler.timezone", "SCHEDULER_TIMEZONE")
	_ = v.BindEnv("scheduler.skip_weekends", "SCHEDULER_SKIP_WEEKENDS")
	_ = v.BindEnv("webhook.url", "WEBHOOK_URL")
	_ = v.BindEnv("webhook.channel", "WEBHOOK_CHANNEL")
	_ = v.BindEnv("webhook.enabled", "WEBHOOK_ENABLED")

	_ = v.BindEnv("facts_file", "FACTS_FILE")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.loading_timeout", 8)
	v.SetDefault("auth.mode", "noop")
	v.SetDefault("firestore.collection", "users")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.ssl_mode", "disable")
	v.SetDefault("database.postgres.max_open_conns", 10)
	v.SetDefault("database.postgres.max_idle_conns", 5)
	v.SetDefault("database.postgres.conn_max_lifetime", 300)
	v.SetDefault("database.redis.port", 6379)
	v.SetDefault("database.redis.pool_size", 10)
	v.SetDefault("database.redis.overlay_ttl", 86400)
	v.SetDefault("games.frame_interval_ms", 16)
	v.SetDefault("games.max_round_lifetime", 15)
	v.SetDefault("games.countdowns", map[string]int{
		"waste_sorting":    30,
		"water_saver":      10,
		"energy_saver":     30,
		"ocean_cleanup":    30,
		"carbon_footprint": 30,
	})
	v.SetDefault("leaderboard.page_size", 20)
	v.SetDefault("leaderboard.max_page_size", 100)
	v.SetDefault("analytics.active_window_hours", 24)
	v.SetDefault("analytics.top_students", 10)
	v.SetDefault("scheduler.digest_time", "16:00")
	v.SetDefault("scheduler.timezone", "UTC")
	v.SetDefault("webhook.username", "Planet Heroes")
	v.SetDefault("metrics.prometheus.port", 9090)
	v.SetDefault("metrics.prometheus.path", "/metrics")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Auth.Mode {
	case "jwks":
		if c.Auth.JWKSURL == "" {
			return fmt.Errorf("auth.jwks_url is required when auth.mode is jwks")
		}
	case "noop":
	default:
		return fmt.Errorf("unsupported auth.mode %q", c.Auth.Mode)
	}
	if c.Firestore.ProjectID == "" {
		return fmt.Errorf("firestore.project_id is required")
	}
	if c.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if c.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if c.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}
	if c.Database.Redis.Host == "" {
		return fmt.Errorf("database.redis.host is required")
	}
	for game, seconds := range c.Games.Countdowns {
		if seconds <= 0 {
			return fmt.Errorf("games.countdowns.%s must be positive", game)
		}
	}
	if c.Webhook.Enabled && c.Webhook.URL == "" {
		return fmt.Errorf("webhook.url is required when webhook is enabled")
	}
	return nil
}

// GetLocation returns the timezone location.
func (c *SchedulerConfig) GetLocation() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// LoadingTimeoutDuration returns the bounded loading duration for API requests.
func (c *ServerConfig) LoadingTimeoutDuration() time.Duration {
	if c.LoadingTimeout <= 0 {
		return 8 * time.Second
	}
	return time.Duration(c.LoadingTimeout) * time.Second
}

// OverlayTTLDuration returns how long an offline profile copy is kept.
func (c *RedisConfig) OverlayTTLDuration() time.Duration {
	return time.Duration(c.OverlayTTL) * time.Second
}

// MaxRoundLifetime returns how long a round may stay unfinished.
func (c *GamesConfig) MaxRoundLifetime() time.Duration {
	if c.MaxRoundLifetimeMin <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(c.MaxRoundLifetimeMin) * time.Minute
}

// FrameInterval returns the per-frame scheduling interval for game loops.
func (c *GamesConfig) FrameInterval() time.Duration {
	if c.FrameIntervalMS <= 0 {
		return 16 * time.Millisecond
	}
	return time.Duration(c.FrameIntervalMS) * time.Millisecond
}
