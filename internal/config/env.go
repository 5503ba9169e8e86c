package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	JWTSecret          string

	AwsAccessKey string
	AwsSecretKey string
	AwsRegion    string
	BucketName   string
	UploadPrefix string

	PlatformAPIKey  string
	PlatformBaseURL string
	PlatformModel   string
	PlatformClient  string // "sdk" or "rest"

	DatabaseURL  string
	SessionStore string // "postgres" or "memory"
	SessionTTL   time.Duration

	IndexPollInterval time.Duration
	IndexPollTimeout  time.Duration
}

// LoadConfig loads the environment variables and return config
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		Environment:        getEnv("GO_ENV", "development"),
		LogFilePath:        getEnv("LOG_FILE_PATH", "logs/conversa.log"),
		CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		AwsAccessKey:       getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey:       getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:          getEnv("AWS_REGION", "us-east-2"),
		BucketName:         getEnv("BUCKET_NAME", "conversa-staging"),
		UploadPrefix:       getEnv("UPLOAD_PREFIX", "uploads"),
		PlatformAPIKey:     getEnv("PLATFORM_API_KEY", os.Getenv("OPENAI_API_KEY")),
		PlatformBaseURL:    getEnv("PLATFORM_BASE_URL", "https://api.openai.com/v1"),
		PlatformModel:      getEnv("PLATFORM_MODEL", "gpt-4o-mini"),
		PlatformClient:     getEnv("PLATFORM_CLIENT", "sdk"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		SessionStore:       getEnv("SESSION_STORE", "postgres"),
		SessionTTL:         time.Duration(getEnvInt("SESSION_TTL_HOURS", 24)) * time.Hour,
		IndexPollInterval:  time.Duration(getEnvInt("INDEX_POLL_INTERVAL_MS", 1500)) * time.Millisecond,
		IndexPollTimeout:   time.Duration(getEnvInt("INDEX_POLL_TIMEOUT_S", 120)) * time.Second,
	}

	if cfg.PlatformAPIKey == "" {
		log.Fatal("PLATFORM_API_KEY not set")
	}
	if cfg.SessionStore == "postgres" && cfg.DatabaseURL == "" {
		log.Println("WARN: DATABASE_URL not set, falling back to in-memory session store")
		cfg.SessionStore = "memory"
	}

	return cfg
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}
