// Package config loads runtime configuration for the derma-scan binaries.
// Values come from the environment, optionally seeded from a .env file,
// with documented defaults for local development.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Defaults used when the corresponding environment variable is unset.
const (
	DefaultPredictURL     = "http://localhost:8000/predict"
	DefaultPredictTimeout = 30 * time.Second
	DefaultCameraDevice   = 0
	DefaultGatewayAddr    = ":8000"
	DefaultModelRunnerURL = "http://localhost:9000/classify"
	DefaultDatabaseDSN    = "host=postgres user=postgres password=postgres dbname=dermascan port=5432 sslmode=disable"
	DefaultRedisAddr      = "redis:6379"
	DefaultMaxUploadBytes = 8 << 20
)

// Client holds configuration for the scanning client.
type Client struct {
	PredictURL     string
	PredictTimeout time.Duration
	CameraDevice   int
}

// Gateway holds configuration for the prediction gateway.
type Gateway struct {
	Addr           string
	ModelRunnerURL string
	DatabaseDSN    string
	RedisAddr      string
	MaxUploadBytes int64
}

// LoadClient reads and validates client configuration.
func LoadClient() (*Client, error) {
	loadDotEnv()

	cfg := &Client{
		PredictURL:     getEnv("PREDICT_URL", DefaultPredictURL),
		PredictTimeout: DefaultPredictTimeout,
		CameraDevice:   DefaultCameraDevice,
	}

	if raw := os.Getenv("PREDICT_TIMEOUT_SECONDS"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			return nil, fmt.Errorf("invalid PREDICT_TIMEOUT_SECONDS %q", raw)
		}
		cfg.PredictTimeout = time.Duration(seconds) * time.Second
	}

	if raw := os.Getenv("CAMERA_DEVICE"); raw != "" {
		device, err := strconv.Atoi(raw)
		if err != nil || device < 0 {
			return nil, fmt.Errorf("invalid CAMERA_DEVICE %q", raw)
		}
		cfg.CameraDevice = device
	}

	if err := validateHTTPURL("PREDICT_URL", cfg.PredictURL); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadGateway reads and validates gateway configuration.
func LoadGateway() (*Gateway, error) {
	loadDotEnv()

	cfg := &Gateway{
		Addr:           getEnv("GATEWAY_ADDR", DefaultGatewayAddr),
		ModelRunnerURL: getEnv("MODEL_RUNNER_URL", DefaultModelRunnerURL),
		DatabaseDSN:    getEnv("DATABASE_DSN", DefaultDatabaseDSN),
		RedisAddr:      getEnv("REDIS_ADDR", DefaultRedisAddr),
		MaxUploadBytes: DefaultMaxUploadBytes,
	}

	if raw := os.Getenv("MAX_UPLOAD_BYTES"); raw != "" {
		limit, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || limit <= 0 {
			return nil, fmt.Errorf("invalid MAX_UPLOAD_BYTES %q", raw)
		}
		cfg.MaxUploadBytes = limit
	}

	if err := validateHTTPURL("MODEL_RUNNER_URL", cfg.ModelRunnerURL); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateHTTPURL(name, raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", name, raw, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid %s %q: scheme must be http or https", name, raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("invalid %s %q: missing host", name, raw)
	}
	return nil
}

func loadDotEnv() {
	// Missing .env files are fine; real deployments set the environment.
	_ = godotenv.Load()
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
