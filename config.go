package identity

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig carries everything the server process needs. Values come from the
// environment, optionally seeded from a .env file.
type AppConfig struct {
	ServerAddr string
	AppEnv     string
	AppBaseURL string

	DBPath string

	JWTSigningKey string
	TokenTTL      time.Duration
	Issuer        string

	RedisAddr string
	RedisPass string

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	MailFrom string

	QueueMaxAttempts  int
	QueueBackoffBase  time.Duration
	WorkerConcurrency int
}

// LoadConfig reads the process environment. A missing signing key is fatal
// outside development; everything else has a workable default.
func LoadConfig() AppConfig {
	if err := godotenv.Load(); err != nil {
		log.Println("identity: no .env file found, relying on system env vars")
	}

	cfg := AppConfig{
		ServerAddr: getEnv("SERVER_ADDR", ":3000"),
		AppEnv:     getEnv("APP_ENV", "development"),
		AppBaseURL: getEnv("APP_BASE_URL", "http://localhost:3000"),

		DBPath: getEnv("DB_PATH", "identity.db"),

		JWTSigningKey: getEnv("JWT_SIGNING_KEY", ""),
		TokenTTL:      time.Duration(getEnvInt("TOKEN_TTL_HOURS", 168)) * time.Hour,
		Issuer:        getEnv("JWT_ISSUER", "identity"),

		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass: getEnv("REDIS_PASSWORD", ""),

		SMTPHost: getEnv("SMTP_HOST", "localhost"),
		SMTPPort: getEnvInt("SMTP_PORT", 587),
		SMTPUser: getEnv("SMTP_USER", ""),
		SMTPPass: getEnv("SMTP_PASSWORD", ""),
		MailFrom: getEnv("MAIL_FROM", "no-reply@localhost"),

		QueueMaxAttempts:  getEnvInt("QUEUE_MAX_ATTEMPTS", DefaultMaxAttempts),
		QueueBackoffBase:  getEnvDuration("QUEUE_BACKOFF_BASE", DefaultBackoffBase),
		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 1),
	}

	if cfg.JWTSigningKey == "" {
		if cfg.AppEnv != "development" {
			log.Fatal("identity: JWT_SIGNING_KEY is required outside development")
		}
		cfg.JWTSigningKey = "dev-only-insecure-signing-key"
		log.Println("identity: using insecure development signing key")
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("identity: invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	parsed, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("identity: invalid %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return parsed
}
