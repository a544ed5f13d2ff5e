package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port        string
	Environment string

	// Storage backends
	AccountStore string // "mongo" or "postgres"
	DatabaseURL  string
	MongoDBURL   string
	MongoDBName  string
	RedisURL     string

	// JWT
	JWTSecret string

	// Inference
	// The original scoring model lets the initial confidence of a freshly
	// created account exceed 1.0 (verification evidence carries weight 2.5)
	// while later increments saturate at 1.0. Clamping the initial value is
	// opt-in to keep the observed behavior reproducible.
	ClampInitialConfidence bool
	IngestMaxBatch         int

	// CORS
	AllowedOrigins []string
}

func Load() (*Config, error) {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "development"),

		// Storage
		AccountStore: getEnv("ACCOUNT_STORE", "mongo"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		MongoDBURL:   getEnv("MONGODB_URL", ""),
		MongoDBName:  getEnv("MONGODB_DATABASE", "sift"),
		RedisURL:     getEnv("REDIS_URL", ""),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", ""),

		// Inference
		ClampInitialConfidence: getEnvBool("INFER_CLAMP_INITIAL_CONFIDENCE", false),
		IngestMaxBatch:         getEnvInt("INGEST_MAX_BATCH", 200),

		// CORS
		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
