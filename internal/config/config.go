package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// CasdoorConfig holds the identity provider connection settings.
type CasdoorConfig struct {
	Endpoint     string
	ClientID     string
	ClientSecret string
	Cert         string
	Organization string
	Application  string
}

// StorageConfig holds the object storage gateway settings.
type StorageConfig struct {
	BaseURL    string
	ServiceKey string
	Bucket     string
}

// Config is the full runtime configuration, read from the environment.
type Config struct {
	Environment string
	Port        string
	LogLevel    slog.Level

	// Postgres
	DatabaseURL     string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// Redis; empty disables caching
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// Kafka; empty disables event publishing
	KafkaBrokers []string

	Casdoor CasdoorConfig
	Storage StorageConfig

	// Cron expression for the overdue attempt sweep
	ExpirationSweepSchedule string
}

// LoadConfig reads configuration from the environment. A .env file is
// loaded first when present, so local runs need no exported variables.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Environment:             getEnv("ENVIRONMENT", "development"),
		Port:                    getEnv("PORT", "8080"),
		LogLevel:                parseLogLevel(getEnv("LOG_LEVEL", "info")),
		DatabaseURL:             os.Getenv("DATABASE_URL"),
		MaxOpenConns:            getEnvInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:            getEnvInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime:         getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		RedisURL:                os.Getenv("REDIS_URL"),
		RedisPassword:           os.Getenv("REDIS_PASSWORD"),
		RedisDB:                 getEnvInt("REDIS_DB", 0),
		ExpirationSweepSchedule: getEnv("EXPIRATION_SWEEP_SCHEDULE", "*/1 * * * *"),
		Casdoor: CasdoorConfig{
			Endpoint:     os.Getenv("CASDOOR_ENDPOINT"),
			ClientID:     os.Getenv("CASDOOR_CLIENT_ID"),
			ClientSecret: os.Getenv("CASDOOR_CLIENT_SECRET"),
			Cert:         os.Getenv("CASDOOR_CERT"),
			Organization: os.Getenv("CASDOOR_ORGANIZATION"),
			Application:  os.Getenv("CASDOOR_APPLICATION"),
		},
		Storage: StorageConfig{
			BaseURL:    os.Getenv("STORAGE_BASE_URL"),
			ServiceKey: os.Getenv("STORAGE_SERVICE_KEY"),
			Bucket:     getEnv("STORAGE_BUCKET", "course-media"),
		},
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
