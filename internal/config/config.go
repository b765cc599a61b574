package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config represents the HabitNation configuration
type Config struct {
	Env       string          `mapstructure:"env"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Jobs      JobsConfig      `mapstructure:"jobs"`
	Log       LogConfig       `mapstructure:"log"`
	Profiling ProfilingConfig `mapstructure:"profiling"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	APIPrefix       string        `mapstructure:"api_prefix"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// Addr returns host:port
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	URL             string        `mapstructure:"url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RedisConfig represents redis configuration. An empty URL disables redis
// and the in-memory cache and rate limiter are used instead.
type RedisConfig struct {
	URL    string `mapstructure:"url"`
	Prefix string `mapstructure:"prefix"`
}

// AuthConfig represents token configuration
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// RateLimitConfig represents API rate limiting
type RateLimitConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Requests     int           `mapstructure:"requests"`
	Window       time.Duration `mapstructure:"window"`
	AuthRequests int           `mapstructure:"auth_requests"`
}

// CacheConfig represents response cache lifetimes
type CacheConfig struct {
	StatsTTL       time.Duration `mapstructure:"stats_ttl"`
	LeaderboardTTL time.Duration `mapstructure:"leaderboard_ttl"`
	CatalogTTL     time.Duration `mapstructure:"catalog_ttl"`
}

// JobsConfig represents background job processing
type JobsConfig struct {
	Workers             int           `mapstructure:"workers"`
	PollInterval        time.Duration `mapstructure:"poll_interval"`
	StreakSweepInterval time.Duration `mapstructure:"streak_sweep_interval"`
}

// LogConfig represents logger configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ProfilingConfig enables the pprof endpoints
type ProfilingConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// IsDevelopment reports whether the service runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

const devSecret = "habitnation-development-secret"

// Load loads the configuration from habitnation.yml, the environment and defaults
func Load() (*Config, error) {
	v := New()
	return load(v)
}

// LoadFile loads the configuration from an explicit file path
func LoadFile(path string) (*Config, error) {
	v := New()
	v.SetConfigFile(path)
	return load(v)
}

// New returns a viper instance with defaults, search paths and
// environment bindings applied but nothing read yet
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("env", "development")

	v.SetDefault("server.port", 5000)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.api_prefix", "/api")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("database.driver", "pgx")
	v.SetDefault("database.url", "postgres://localhost:5432/habitnation?sslmode=disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.prefix", "habitnation:")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 7*24*time.Hour)

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.requests", 100)
	v.SetDefault("ratelimit.window", time.Minute)
	v.SetDefault("ratelimit.auth_requests", 10)

	v.SetDefault("cache.stats_ttl", 30*time.Second)
	v.SetDefault("cache.leaderboard_ttl", time.Minute)
	v.SetDefault("cache.catalog_ttl", 10*time.Minute)

	v.SetDefault("jobs.workers", 2)
	v.SetDefault("jobs.poll_interval", time.Second)
	v.SetDefault("jobs.streak_sweep_interval", time.Hour)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("profiling.enabled", false)

	v.SetConfigName("habitnation")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/habitnation")

	v.SetEnvPrefix("HABITNATION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unprefixed names older deployments export
	_ = v.BindEnv("auth.jwt_secret", "HABITNATION_AUTH_JWT_SECRET", "JWT_SECRET")
	_ = v.BindEnv("database.url", "HABITNATION_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("redis.url", "HABITNATION_REDIS_URL", "REDIS_URL")
	_ = v.BindEnv("server.port", "HABITNATION_SERVER_PORT", "PORT")

	return v
}

// Read reads the config file v points at, if any, and decodes it. Use it
// together with Watch when the viper instance must outlive the load.
func Read(v *viper.Viper) (*Config, error) {
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.Auth.JWTSecret == "" && config.IsDevelopment() {
		config.Auth.JWTSecret = devSecret
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// Watch re-reads the config file whenever it changes and hands the new
// configuration to onChange. Invalid edits are reported through onError
// and otherwise ignored.
func Watch(v *viper.Viper, onChange func(*Config), onError func(error)) {
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := decode(v)
		if err != nil {
			if onError != nil {
				onError(fmt.Errorf("reload %s: %w", e.Name, err))
			}
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
}

var knownDrivers = map[string]bool{
	"pgx":      true,
	"postgres": true,
	"sqlite3":  true,
	"sqlite":   true,
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	// Validate API prefix format
	if cfg.Server.APIPrefix != "" {
		if !strings.HasPrefix(cfg.Server.APIPrefix, "/") {
			return fmt.Errorf("server.api_prefix must start with '/', got: %s", cfg.Server.APIPrefix)
		}
		if strings.HasSuffix(cfg.Server.APIPrefix, "/") {
			return fmt.Errorf("server.api_prefix must not end with '/', got: %s", cfg.Server.APIPrefix)
		}
	}

	if !knownDrivers[cfg.Database.Driver] {
		return fmt.Errorf("database.driver must be one of pgx, postgres, sqlite3, sqlite, got: %s", cfg.Database.Driver)
	}

	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required outside development")
	}

	if cfg.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive, got: %s", cfg.Auth.TokenTTL)
	}

	// 0 asks the kernel for a free port
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535, got: %d", cfg.Server.Port)
	}

	return nil
}
