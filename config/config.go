package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port               int
	DataDir            string
	JWTSecret          string
	URLSigningSecret   string
	MaxUploadSizeMB    int
	MaxThumbSizeMB     int
	SignedURLTTLMinute int
}

func Load() (*Config, error) {
	// Optional .env for local development; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	port, err := strconv.Atoi(getEnv("PORT", "8090"))
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	maxUploadSizeMB, err := strconv.Atoi(getEnv("MAX_UPLOAD_SIZE_MB", "2048"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_SIZE_MB: %w", err)
	}

	maxThumbSizeMB, err := strconv.Atoi(getEnv("MAX_THUMB_SIZE_MB", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_THUMB_SIZE_MB: %w", err)
	}

	ttlMinutes, err := strconv.Atoi(getEnv("SIGNED_URL_TTL_MINUTES", "15"))
	if err != nil {
		return nil, fmt.Errorf("invalid SIGNED_URL_TTL_MINUTES: %w", err)
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	signingSecret := os.Getenv("URL_SIGNING_SECRET")
	if signingSecret == "" {
		return nil, fmt.Errorf("URL_SIGNING_SECRET is required")
	}

	return &Config{
		Port:               port,
		DataDir:            getEnv("DATA_DIR", "/data"),
		JWTSecret:          jwtSecret,
		URLSigningSecret:   signingSecret,
		MaxUploadSizeMB:    maxUploadSizeMB,
		MaxThumbSizeMB:     maxThumbSizeMB,
		SignedURLTTLMinute: ttlMinutes,
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
