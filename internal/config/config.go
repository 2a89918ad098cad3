package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	USSD         USSDConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters for the admin REST surface.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// USSDConfig defines flow engine and session policy.
type USSDConfig struct {
	ServiceCode         string
	SessionTimeoutSec   int
	MaxInvalidAttempts  int
	MaxMenuOptions      int
	AllowReregistration bool
	BackendTimeoutSec   int
	CleanupIntervalSec  int
	ResponseMaxChars    int
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	SMSSenderID string
	WebhookURL  string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "member-registry"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		USSD: USSDConfig{
			ServiceCode:         getEnv("USSD_SERVICE_CODE", "*388*3#"),
			SessionTimeoutSec:   getEnvAsInt("USSD_SESSION_TIMEOUT_SECONDS", 180),
			MaxInvalidAttempts:  getEnvAsInt("USSD_MAX_INVALID_ATTEMPTS", 3),
			MaxMenuOptions:      getEnvAsInt("USSD_MAX_MENU_OPTIONS", 10),
			AllowReregistration: getEnvAsBool("USSD_ALLOW_REREGISTRATION", true),
			BackendTimeoutSec:   getEnvAsInt("USSD_BACKEND_TIMEOUT_SECONDS", 5),
			CleanupIntervalSec:  getEnvAsInt("USSD_CLEANUP_INTERVAL_SECONDS", 300),
			ResponseMaxChars:    getEnvAsInt("USSD_RESPONSE_MAX_CHARS", 160),
		},
		Notification: NotificationConfig{
			SMSSenderID: getEnv("NOTIFY_SMS_SENDER_ID", "REGISTRY"),
			WebhookURL:  getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// SessionTimeout returns the USSD inactivity window.
func (u USSDConfig) SessionTimeout() time.Duration {
	if u.SessionTimeoutSec <= 0 {
		return 3 * time.Minute
	}
	return time.Duration(u.SessionTimeoutSec) * time.Second
}

// BackendTimeout bounds directory and member store calls per request.
func (u USSDConfig) BackendTimeout() time.Duration {
	if u.BackendTimeoutSec <= 0 {
		return 5 * time.Second
	}
	return time.Duration(u.BackendTimeoutSec) * time.Second
}

// CleanupInterval controls the stale session sweep cadence.
func (u USSDConfig) CleanupInterval() time.Duration {
	if u.CleanupIntervalSec <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(u.CleanupIntervalSec) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
