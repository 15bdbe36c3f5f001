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
	Gateway      GatewayConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Settings     SettingsConfig
	Logger       LoggerConfig
	Verification VerificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name    string
	Env     string
	Host    string
	Port    string
	Version string
}

// GatewayConfig holds chat gateway credentials.
type GatewayConfig struct {
	Token   string
	GuildID string
}

// PostgresConfig holds DB connection values for the decision archive.
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

// SettingsConfig selects where the settings document is persisted.
type SettingsConfig struct {
	Backend  string // "file" or "redis"
	FilePath string
	RedisKey string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// VerificationConfig tunes the ticket flow.
type VerificationConfig struct {
	TeardownDelaySeconds int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:    getEnv("APP_NAME", "gatekeeper"),
			Env:     getEnv("APP_ENV", "development"),
			Host:    getEnv("APP_HOST", "0.0.0.0"),
			Port:    getEnv("APP_PORT", "8080"),
			Version: getEnv("APP_VERSION", "dev"),
		},
		Gateway: GatewayConfig{
			Token:   os.Getenv("GATEWAY_BOT_TOKEN"),
			GuildID: os.Getenv("GATEWAY_GUILD_ID"),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Settings: SettingsConfig{
			Backend:  getEnv("SETTINGS_BACKEND", "file"),
			FilePath: getEnv("SETTINGS_FILE", "settings.json"),
			RedisKey: getEnv("SETTINGS_REDIS_KEY", "gatekeeper:settings"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Verification: VerificationConfig{
			TeardownDelaySeconds: getEnvAsInt("TEARDOWN_DELAY_SECONDS", 30),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// TeardownDelay returns the post-decision channel deletion delay.
func (v VerificationConfig) TeardownDelay() time.Duration {
	if v.TeardownDelaySeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(v.TeardownDelaySeconds) * time.Second
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
