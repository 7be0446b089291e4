package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort             string
	MySQLDSN             string
	JWTSecret            string
	JWTAccessTokenTTL    time.Duration
	RefreshTokenTTL      time.Duration
	VerificationTokenTTL time.Duration
	TokenSweepInterval   time.Duration
	SendGridAPIKey       string
	EmailFrom            string
	EmailFromName        string
	VerifyBaseURL        string
	LogLevel             string
	LogFormat            string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignores error if not found)
	_ = godotenv.Load()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET environment variable is required")
	}

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	return &Config{
		HTTPPort:             getEnv("HTTP_PORT", "8080"),
		MySQLDSN:             mysqlDSN,
		JWTSecret:            jwtSecret,
		JWTAccessTokenTTL:    getDurationEnv("JWT_ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL:      getDurationEnv("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		VerificationTokenTTL: getDurationEnv("VERIFICATION_TOKEN_TTL", 24*time.Hour),
		TokenSweepInterval:   getDurationEnv("TOKEN_SWEEP_INTERVAL", time.Hour),
		SendGridAPIKey:       os.Getenv("SENDGRID_API_KEY"),
		EmailFrom:            getEnv("EMAIL_FROM", "no-reply@loop.example"),
		EmailFromName:        getEnv("EMAIL_FROM_NAME", "Loop"),
		VerifyBaseURL:        getEnv("VERIFY_BASE_URL", "http://localhost:8080/auth/verify"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogFormat:            getEnv("LOG_FORMAT", "text"),
	}, nil
}

func (c *Config) DSN() string {
	return c.MySQLDSN
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDurationEnv reads a duration expressed in whole minutes.
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}
