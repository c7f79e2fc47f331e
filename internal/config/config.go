package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration, loaded once at startup.
type Config struct {
	Port          string
	Environment   string
	DBDSN         string
	JWTSecret     string
	InviteSecret  string
	SystemAccount string
	VisionAPIURL  string
	VisionAPIKey  string
	AMQPURL       string
	AMQPExchange  string
	SESRegion     string
	SESSender     string
	DebugRoutes   bool
}

// Load reads configuration from .env (if present) and the environment.
func Load() (*Config, error) {
	// Missing .env is fine, variables may come from the real environment.
	_ = godotenv.Load(".env")

	cfg := &Config{
		Port:          getEnv("PORT", "8083"),
		Environment:   getEnv("ENV", "development"),
		DBDSN:         os.Getenv("DB_DSN"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		InviteSecret:  os.Getenv("INVITE_SECRET"),
		SystemAccount: getEnv("SYSTEM_ACCOUNT_USERNAME", "safety-advisor"),
		VisionAPIURL:  os.Getenv("VISION_API_URL"),
		VisionAPIKey:  os.Getenv("VISION_API_KEY"),
		AMQPURL:       os.Getenv("AMQP_URL"),
		AMQPExchange:  getEnv("AMQP_EXCHANGE", "sniksnak.events"),
		SESRegion:     os.Getenv("SES_REGION"),
		SESSender:     os.Getenv("SES_SENDER"),
		DebugRoutes:   os.Getenv("DEBUG_ROUTES") == "true",
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required but not set")
	}
	if cfg.InviteSecret == "" {
		return nil, fmt.Errorf("INVITE_SECRET is required but not set")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
