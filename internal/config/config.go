// Package config provides application configuration loaded from environment variables.
package config

import (
	"errors"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Port     string
	LogLevel string

	// BackendBaseURL is the evaluation backend base URL. Required unless
	// MockMode is set.
	BackendBaseURL string

	// BackendAPIKey, when set, activates the server-side job poller. Proxy
	// requests always use the caller's key, never this one.
	BackendAPIKey string

	// MockMode serves embedded fixtures instead of calling the backend.
	MockMode bool

	// DataDir is where the console persists its local blobs.
	DataDir string

	// PollInterval is the job poll cadence.
	PollInterval time.Duration

	// BackendTimeout bounds each outbound backend request. Zero means no
	// timeout.
	BackendTimeout time.Duration

	// BackendRetryMax is the outbound retry count. Zero means a single
	// attempt; the only retry loop is the poll cycle itself.
	BackendRetryMax int

	// BackendRateLimit caps outbound requests per second. Zero disables it.
	BackendRateLimit float64

	// MaxRequestBodyBytes caps inbound request bodies.
	MaxRequestBodyBytes int64

	// OtelMetricsExporter selects the metrics exporter: "prometheus",
	// "otlp", or empty for disabled.
	OtelMetricsExporter string

	// OtelTracesExporter selects the traces exporter: "otlp", "stdout", or
	// empty for disabled.
	OtelTracesExporter string
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool retrieves an environment variable as a bool or returns a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration retrieves an environment variable as a duration or returns a default value.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat retrieves an environment variable as a float or returns a default value.
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// Load reads configuration from environment variables and returns a Config
// struct. It automatically loads a .env file if one exists and returns
// defaults for any missing variables. BACKEND_BASE_URL is required unless
// MOCK_MODE is enabled.
func Load() (*Config, error) {
	// Load .env file if it exists. Skip logging when absent (e.g. env from secrets/parameter store).
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	mockMode := getEnvAsBool("MOCK_MODE", false)

	backendBaseURL := os.Getenv("BACKEND_BASE_URL")
	if backendBaseURL == "" && !mockMode {
		return nil, errors.New("BACKEND_BASE_URL environment variable is required unless MOCK_MODE is enabled")
	}

	pollInterval := getEnvAsDuration("POLL_INTERVAL", 10*time.Second)
	if pollInterval <= 0 {
		return nil, errors.New("POLL_INTERVAL must be a positive duration")
	}

	retryMax := getEnvAsInt("BACKEND_RETRY_MAX", 0)
	if retryMax < 0 {
		return nil, errors.New("BACKEND_RETRY_MAX must not be negative")
	}

	maxBody := getEnvAsInt("MAX_REQUEST_BODY_BYTES", 10<<20)
	if maxBody <= 0 {
		return nil, errors.New("MAX_REQUEST_BODY_BYTES must be a positive integer")
	}

	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		BackendBaseURL: backendBaseURL,
		BackendAPIKey:  os.Getenv("BACKEND_API_KEY"),
		MockMode:       mockMode,
		DataDir:        getEnv("DATA_DIR", "data"),

		PollInterval:     pollInterval,
		BackendTimeout:   getEnvAsDuration("BACKEND_TIMEOUT", 0),
		BackendRetryMax:  retryMax,
		BackendRateLimit: getEnvAsFloat("BACKEND_RATE_LIMIT", 0),

		MaxRequestBodyBytes: int64(maxBody),

		OtelMetricsExporter: getEnv("OTEL_METRICS_EXPORTER", ""),
		OtelTracesExporter:  getEnv("OTEL_TRACES_EXPORTER", ""),
	}

	return cfg, nil
}
