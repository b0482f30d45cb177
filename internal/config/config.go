package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"artifact-detector/internal/errs"
)

type Config struct {
	LogLevel string
	Workers  int

	ClassifierURL     string
	ClassifierTimeout time.Duration
	ClassifierRetries int

	// Classifier input geometry; PCA models consume one channel, the rest three.
	InputWidth  int
	InputHeight int

	ScratchDir string

	PreviewMaxWidth  int
	PreviewMaxHeight int
}

// Load reads the configuration from the environment, falling back to defaults.
func Load() *Config {
	logLevel := getEnv("LOG_LEVEL", "info")
	if os.Getenv("LOG_LEVEL") == "" && os.Getenv("DEBUG") == "1" {
		logLevel = "debug"
	}

	return &Config{
		LogLevel:          logLevel,
		Workers:           getEnvInt("WORKERS", runtime.NumCPU()),
		ClassifierURL:     getEnv("CLASSIFIER_URL", "http://localhost:5000"),
		ClassifierTimeout: getEnvDuration("CLASSIFIER_TIMEOUT", 30*time.Second),
		ClassifierRetries: getEnvInt("CLASSIFIER_RETRIES", 3),
		InputWidth:        getEnvInt("INPUT_WIDTH", 256),
		InputHeight:       getEnvInt("INPUT_HEIGHT", 256),
		ScratchDir:        getEnv("SCRATCH_DIR", os.TempDir()),
		PreviewMaxWidth:   getEnvInt("PREVIEW_MAX_WIDTH", 1500),
		PreviewMaxHeight:  getEnvInt("PREVIEW_MAX_HEIGHT", 800),
	}
}

func (c *Config) Validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d: %w", c.Workers, errs.ErrInvalidArgument)
	}
	if c.InputWidth <= 0 || c.InputHeight <= 0 {
		return fmt.Errorf("invalid classifier input size %dx%d: %w", c.InputWidth, c.InputHeight, errs.ErrInvalidArgument)
	}
	if c.PreviewMaxWidth <= 0 || c.PreviewMaxHeight <= 0 {
		return fmt.Errorf("invalid preview bounds %dx%d: %w", c.PreviewMaxWidth, c.PreviewMaxHeight, errs.ErrInvalidArgument)
	}
	if c.ClassifierRetries < 0 {
		return fmt.Errorf("classifier retries must not be negative: %w", errs.ErrInvalidArgument)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
