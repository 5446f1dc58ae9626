package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	Server   ServerConfig
	Limiter  LimiterConfig
	Lockout  LockoutConfig
	Session  SessionConfig
	Sentry   SentryConfig
	Admin    AdminConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type ServerConfig struct {
	Port            string
	Env             string
	LogLevel        string
	AllowedOrigins  []string
	TrustedProxies  []string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	CleanupInterval time.Duration
	BcryptCost      int
}

// LimiterConfig is the per-IP request budget.
type LimiterConfig struct {
	Points         int
	Duration       time.Duration
	BlockDuration  time.Duration
	BackendTimeout time.Duration // bound on each Redis consume
	BackendRetry   time.Duration // how long to stay on the insurance limiter after a failure
	LoginBurst     int           // extra per-IP cap on POST /login per minute
}

type LockoutConfig struct {
	FailureThreshold int
	Duration         time.Duration
	Retention        time.Duration
	Backend          string // "memory" or "redis"
}

type SessionConfig struct {
	Name            string
	Secret          string
	AbsoluteTimeout time.Duration
	IdleTimeout     time.Duration
	Backend         string // "memory" or "redis"
	SweepBuffer     int
}

type SentryConfig struct {
	DSN     string
	Release string
}

// AdminConfig seeds the first administrator account when both fields are set.
type AdminConfig struct {
	Email    string
	Username string
	Password string
}

const week = 7 * 24 * time.Hour

func Load() (*Config, error) {
	_ = godotenv.Load()

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "warden"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Env:             env,
			LogLevel:        getEnv("LOG_LEVEL", "info"),
			AllowedOrigins:  parseAllowedOrigins(env),
			TrustedProxies:  splitList(getEnv("TRUSTED_PROXIES", "")),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			CleanupInterval: getEnvAsDuration("CLEANUP_INTERVAL", 1*time.Minute),
			BcryptCost:      getEnvAsInt("BCRYPT_COST", 12),
		},
		Limiter: LimiterConfig{
			Points:         getEnvAsInt("LIMITER_POINTS", 100),
			Duration:       getEnvAsDuration("LIMITER_DURATION", 10*time.Second),
			BlockDuration:  getEnvAsDuration("LIMITER_BLOCK_DURATION", 10*time.Second),
			BackendTimeout: getEnvAsDuration("RATE_LIMIT_BACKEND_TIMEOUT", 200*time.Millisecond),
			BackendRetry:   getEnvAsDuration("RATE_LIMIT_BACKEND_RETRY", 5*time.Second),
			LoginBurst:     getEnvAsInt("LOGIN_BURST_LIMIT", 10),
		},
		Lockout: LockoutConfig{
			FailureThreshold: getEnvAsInt("LOCKOUT_FAILURE_THRESHOLD", 3),
			Duration:         getEnvAsDuration("LOCKOUT_DURATION", 5*time.Minute),
			Retention:        getEnvAsDuration("LOCKOUT_RETENTION", 24*time.Hour),
			Backend:          getEnv("LOCKOUT_BACKEND", "memory"),
		},
		Session: SessionConfig{
			Name:            getEnv("SESSION_NAME", "sid"),
			Secret:          getEnv("SESSION_SECRET", ""),
			AbsoluteTimeout: getEnvAsDuration("SESSION_ABSOLUTE_TIMEOUT", 4*week),
			IdleTimeout:     getEnvAsDuration("SESSION_IDLE_TIMEOUT", 1*week),
			Backend:         getEnv("SESSION_BACKEND", "redis"),
			SweepBuffer:     getEnvAsInt("SESSION_SWEEP_BUFFER", 256),
		},
		Sentry: SentryConfig{
			DSN:     getEnv("SENTRY_DSN", ""),
			Release: getEnv("SENTRY_RELEASE", ""),
		},
		Admin: AdminConfig{
			Email:    getEnv("ADMIN_EMAIL", ""),
			Username: getEnv("ADMIN_USERNAME", "admin"),
			Password: getEnv("ADMIN_PASSWORD", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required values and cross-field constraints.
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.Session.Secret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}
	if err := validateSecret(c.Session.Secret, c.Server.Env); err != nil {
		return err
	}
	if c.Limiter.Points < 1 {
		return fmt.Errorf("LIMITER_POINTS must be positive (got %d)", c.Limiter.Points)
	}
	if c.Limiter.Duration <= 0 || c.Limiter.BlockDuration < 0 {
		return fmt.Errorf("LIMITER_DURATION must be positive and LIMITER_BLOCK_DURATION non-negative")
	}
	if c.Limiter.BackendTimeout <= 0 {
		return fmt.Errorf("RATE_LIMIT_BACKEND_TIMEOUT must be positive")
	}
	if c.Lockout.FailureThreshold < 1 {
		return fmt.Errorf("LOCKOUT_FAILURE_THRESHOLD must be positive (got %d)", c.Lockout.FailureThreshold)
	}
	if c.Lockout.Duration <= 0 {
		return fmt.Errorf("LOCKOUT_DURATION must be positive")
	}
	if err := validateBackend("LOCKOUT_BACKEND", c.Lockout.Backend); err != nil {
		return err
	}
	if err := validateBackend("SESSION_BACKEND", c.Session.Backend); err != nil {
		return err
	}
	if c.Session.AbsoluteTimeout <= 0 || c.Session.IdleTimeout <= 0 {
		return fmt.Errorf("SESSION_ABSOLUTE_TIMEOUT and SESSION_IDLE_TIMEOUT must be positive")
	}
	return nil
}

func validateBackend(name, value string) error {
	switch value {
	case "memory", "redis":
		return nil
	default:
		return fmt.Errorf("%s must be \"memory\" or \"redis\" (got %q)", name, value)
	}
}

// validateSecret enforces minimum strength for the session signing secret
func validateSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("SESSION_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}
	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("SESSION_SECRET cannot be a common weak value")
		}
	}
	return nil
}

// IsProduction reports whether the server runs with ENV=production.
func (c *ServerConfig) IsProduction() bool {
	return c.Env == "production"
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

// getEnvAsDuration accepts Go durations ("10s", "5m") or bare integer seconds.
func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultVal
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseAllowedOrigins(env string) []string {
	if env == "production" {
		return splitList(getEnv("ALLOWED_ORIGINS", ""))
	}

	return []string{
		"http://localhost:3000",
		"http://localhost:5173",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
	}
}
