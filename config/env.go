package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App   AppConfig
	Redis RedisConfig
	DB    DBConfig
	Auth  AuthConfig
	Log   LogConfig
}

type AppConfig struct {
	Environment string
	HTTPPort    string
	GRPCPort    string
	RateLimit   string
}

type DBConfig struct {
	DSN string
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type LogConfig struct {
	Level  string
	Format string
	Output string
}

// IsProduction reports whether detailed error messages must be hidden from callers.
func (c AppConfig) IsProduction() bool {
	return c.Environment == "production"
}

func LoadConfig() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	redisEnabled, _ := strconv.ParseBool(getEnv("REDIS_ENABLED", "true"))

	tokenTTL, err := time.ParseDuration(getEnv("JWT_TTL", "24h"))
	if err != nil {
		tokenTTL = 24 * time.Hour
	}

	return Config{
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			HTTPPort:    getEnv("HTTP_PORT", "8080"),
			GRPCPort:    getEnv("GRPC_PORT", "50051"),
			RateLimit:   getEnv("RATE_LIMIT", "120-M"),
		},
		Redis: RedisConfig{
			Enabled:  redisEnabled,
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		DB: DBConfig{
			DSN: getEnv("DATABASE_DSN", "host=localhost user=postgres password=postgres dbname=invoicing port=5432 sslmode=disable"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", "change-me-in-production"),
			TokenTTL:  tokenTTL,
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
			Output: getEnv("LOG_OUTPUT", "stdout"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
