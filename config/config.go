// Package config provides configuration management for the exthub application.
// It handles loading and validation of configuration values from environment
// variables, with support for required variables, default values, and
// collective error reporting. Every secret is read exactly once here at
// process start and handed to the components that need it; business logic
// never touches the environment directly.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment names recognized by the application. Anything other than
// EnvProduction is treated as non-production for error reporting purposes.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// DatabaseConfig represents configuration for the PostgreSQL connection pool.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	MaxSize  int
}

// AuthConfig holds authentication-related configuration.
type AuthConfig struct {
	JWTSecret     string        // Secret key for signing JWTs
	TokenDuration time.Duration // Lifetime of issued tokens
}

// ExtensionConfig holds configuration for the extension ingestion endpoint.
type ExtensionConfig struct {
	Secret string // Shared secret presented by the build-publishing service
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port        string // Port for the HTTP server
	Environment string // development or production
}

// IsProduction reports whether the server runs in production mode.
// Production suppresses underlying error details on 500-class responses.
func (c *ServerConfig) IsProduction() bool {
	return c.Environment == EnvProduction
}

// AppConfig is the top-level configuration structure for the application.
type AppConfig struct {
	DB        *DatabaseConfig
	Auth      *AuthConfig
	Extension *ExtensionConfig
	Server    *ServerConfig
}

// getRequiredEnv returns a required environment variable, appending to the
// errors slice if it is not set.
func getRequiredEnv(key string, errors *[]string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		*errors = append(*errors, fmt.Sprintf("missing required environment variable: %s", key))
		return ""
	}
	return value
}

// getOptionalEnv returns an optional environment variable with a default.
func getOptionalEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getOptionalEnvInt returns an optional environment variable parsed as an
// int. Uses defaultValue if not set; appends an error if parsing fails.
func getOptionalEnvInt(key string, defaultValue int, errors *[]string) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valueInt, err := strconv.Atoi(valueStr)
	if err != nil {
		*errors = append(*errors, fmt.Sprintf("invalid value for %s: expected integer, got '%s': %v", key, valueStr, err))
		return defaultValue
	}
	return valueInt
}

// getOptionalEnvDuration returns an optional environment variable parsed as a
// time.Duration ("15m", "168h"). Uses defaultValue if not set; appends an
// error if parsing fails.
func getOptionalEnvDuration(key string, defaultValue time.Duration, errors *[]string) time.Duration {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valueDuration, err := time.ParseDuration(valueStr)
	if err != nil {
		*errors = append(*errors, fmt.Sprintf("invalid value for %s: expected duration string, got '%s': %v", key, valueStr, err))
		return defaultValue
	}
	return valueDuration
}

// clampPoolSize keeps the connection pool size within sane bounds.
func clampPoolSize(size int) int {
	if size < 5 {
		return 5
	}
	if size > 100 {
		return 100
	}
	return size
}

// LoadConfig creates and returns an AppConfig by reading and validating
// environment variables. It collects all errors encountered during loading
// and returns a single aggregated error if any exist.
func LoadConfig() (*AppConfig, error) {
	var errors []string

	// Database configuration
	dbUser := getRequiredEnv("DB_USER", &errors)
	dbPassword := getRequiredEnv("DB_PASSWORD", &errors)
	dbName := getRequiredEnv("DB_NAME", &errors)
	dbHost := getOptionalEnv("DB_HOST", "localhost")
	dbPort := getOptionalEnvInt("DB_PORT", 5432, &errors)
	dbPoolSize := clampPoolSize(getOptionalEnvInt("DB_POOL_SIZE", 10, &errors))

	dbConfig := &DatabaseConfig{
		Host:     dbHost,
		Port:     dbPort,
		User:     dbUser,
		Password: dbPassword,
		DBName:   dbName,
		MaxSize:  dbPoolSize,
	}

	// Auth configuration. Tokens default to a 7-day lifetime.
	jwtSecret := getRequiredEnv("JWT_SECRET", &errors)
	tokenDuration := getOptionalEnvDuration("JWT_TOKEN_DURATION", 168*time.Hour, &errors)

	authConfig := &AuthConfig{
		JWTSecret:     jwtSecret,
		TokenDuration: tokenDuration,
	}

	// Shared secret for the trusted build-publishing service.
	extensionConfig := &ExtensionConfig{
		Secret: getRequiredEnv("EXTENSION_SECRET", &errors),
	}

	// Server configuration
	environment := getOptionalEnv("APP_ENV", EnvDevelopment)
	if environment != EnvDevelopment && environment != EnvProduction {
		errors = append(errors, fmt.Sprintf("invalid value for APP_ENV: expected %s or %s, got '%s'", EnvDevelopment, EnvProduction, environment))
	}
	serverConfig := &ServerConfig{
		Port:        getOptionalEnv("PORT", "8080"),
		Environment: environment,
	}

	if len(errors) > 0 {
		return nil, fmt.Errorf("configuration errors:\n- %s", strings.Join(errors, "\n- "))
	}

	return &AppConfig{
		DB:        dbConfig,
		Auth:      authConfig,
		Extension: extensionConfig,
		Server:    serverConfig,
	}, nil
}
