package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Feed       FeedConfig
	Generation GenerationConfig
	Auth       AuthConfig
	Cache      CacheConfig
	Telemetry  TelemetryConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	RealtimeLogPath    string
	CorsAllowedOrigins string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type FeedConfig struct {
	Driver     string // "nats" or "memory"
	NatsURL    string
	StreamName string
}

type GenerationConfig struct {
	JobURL          string
	JobName         string
	JobToken        string // static bearer token, used when no token URL is set
	JobTokenURL     string // OAuth2 client-credentials endpoint
	JobClientID     string
	JobClientSecret string
	JobTimeout      time.Duration
	TriggerOnFeed   bool
}

type AuthConfig struct {
	JwtSecret string
}

type CacheConfig struct {
	NotebookTTL time.Duration
}

type TelemetryConfig struct {
	Enabled      bool
	OtlpEndpoint string
	ServiceName  string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			RealtimeLogPath:    getEnv("REALTIME_LOG_FILE_PATH", "logs/realtime.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Feed: FeedConfig{
			Driver:     getEnv("FEED_DRIVER", "nats"),
			NatsURL:    getEnv("NATS_URL", "nats://localhost:4222"),
			StreamName: getEnv("FEED_STREAM_NAME", "SOURCES"),
		},
		Generation: GenerationConfig{
			JobURL:          getEnv("GENERATION_JOB_URL", "http://localhost:54321/functions/v1"),
			JobName:         getEnv("GENERATION_JOB_NAME", "generate-notebook-content"),
			JobToken:        getEnv("GENERATION_JOB_TOKEN", ""),
			JobTokenURL:     getEnv("GENERATION_JOB_TOKEN_URL", ""),
			JobClientID:     getEnv("GENERATION_JOB_CLIENT_ID", ""),
			JobClientSecret: getEnv("GENERATION_JOB_CLIENT_SECRET", ""),
			JobTimeout:      getEnvAsDuration("GENERATION_JOB_TIMEOUT", 5*time.Minute),
			TriggerOnFeed:   getEnvAsBool("GENERATION_TRIGGER_ON_FEED", false),
		},
		Auth: AuthConfig{
			JwtSecret: getEnv("JWT_SECRET", ""),
		},
		Cache: CacheConfig{
			NotebookTTL: getEnvAsDuration("NOTEBOOK_CACHE_TTL", 30*time.Second),
		},
		Telemetry: TelemetryConfig{
			Enabled:      getEnvAsBool("OTEL_ENABLED", false),
			OtlpEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "notebook-sources-be"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go duration strings ("90s") or bare seconds.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	if seconds := getEnvAsInt(key, -1); seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}
	return fallback
}
