// Package config handles the loading and parsing of application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// AppConfig holds all configuration settings for the application.
type AppConfig struct {
	// --- Core Settings ---
	DatabaseURL string // PostgreSQL DSN.
	ServerAddr  string // Address for the HTTP server to listen on (e.g., ":8080").

	// --- Authentication ---
	JWTSecret string // Secret key for signing JWT tokens.

	// --- Application Logic ---
	MigrationsPath     string // Path to the database migration files.
	CORSAllowedOrigins string // Comma-separated list of allowed CORS origins.

	// --- Timeouts and Intervals ---
	ShutdownTimeout time.Duration // Graceful shutdown timeout.
	CORSMaxAge      int           // Max age for CORS preflight requests in seconds.
}

// Load reads environment variables and populates the AppConfig struct.
// It sets sensible defaults for non-critical values.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		DatabaseURL: getEnv("DATABASE_URL", ""),
		ServerAddr:  getEnv("SERVER_ADDR", ":8080"),

		JWTSecret: getEnv("JWT_SECRET", ""),

		MigrationsPath:     getEnv("MIGRATIONS_PATH", "migrations"),
		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:4173"),

		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		CORSMaxAge:      getEnvAsInt("CORS_MAX_AGE", 300),
	}

	// Validate critical environment variables.
	if err := validateCriticalConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateCriticalConfig checks that essential configuration values are set.
func validateCriticalConfig(cfg *AppConfig) error {
	criticalVars := map[string]string{
		"DATABASE_URL": cfg.DatabaseURL,
		"JWT_SECRET":   cfg.JWTSecret,
	}
	var missing []string
	for name, value := range criticalVars {
		if value == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing critical environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

// --- Helper Functions for robust environment variable loading ---

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an integer environment variable or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsDuration retrieves a time.Duration environment variable or returns a default value.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	return defaultValue
}
