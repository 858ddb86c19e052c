package config

import (
	"os"
	"runtime"
	"strconv"
	"time"

	"authscreen/internal/errors"
)

// Config represents the complete engine configuration
type Config struct {
	Estimator EstimatorConfig
	Screening ScreeningConfig
	Input     InputConfig
	Store     StoreConfig
	Output    OutputConfig
}

// EstimatorConfig holds optimizer and regularization settings
type EstimatorConfig struct {
	MaxIterations int
	GradTolerance float64
	RidgeTau      float64
	RidgeBeta     float64
	RidgeDelta    float64
}

// ScreeningConfig holds pipeline thresholds and concurrency settings
type ScreeningConfig struct {
	// MinAnswered gates ability estimation; below it every diagnostic is
	// null (a defined missing-data case, not an error).
	MinAnswered int
	// Parallelism bounds concurrent leave-one-out and augmented fits.
	Parallelism int
	// IterationTimeout converts a stuck optimization into a non-converged
	// result instead of sinking the batch.
	IterationTimeout time.Duration
	// CooksDenominator divides the influence quadratic form. Zero means
	// the pooled parameter-vector dimension; the exact convention is under
	// methodological review, so it stays configurable.
	CooksDenominator float64
	// MaxATTWeight caps inverse-odds weights when a quintile's propensity
	// approaches 1, instead of propagating Inf.
	MaxATTWeight float64
}

// InputConfig selects the matrix source. An XLSX workbook takes
// precedence; otherwise the CSV pair is used.
type InputConfig struct {
	XLSXPath     string
	ItemsCSV     string
	ResponsesCSV string
}

// StoreConfig holds checkpoint-store settings
type StoreConfig struct {
	Dir string
}

// OutputConfig holds persistence settings
type OutputConfig struct {
	DatabaseURL string
	// JSONPath receives records when no database is configured.
	JSONPath string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := &Config{
		Estimator: EstimatorConfig{
			MaxIterations: getEnvIntOrDefault("ESTIMATOR_MAX_ITERATIONS", 500),
			GradTolerance: getEnvFloatOrDefault("ESTIMATOR_GRAD_TOLERANCE", 1e-6),
			RidgeTau:      getEnvFloatOrDefault("ESTIMATOR_RIDGE_TAU", 0.01),
			RidgeBeta:     getEnvFloatOrDefault("ESTIMATOR_RIDGE_BETA", 0.01),
			RidgeDelta:    getEnvFloatOrDefault("ESTIMATOR_RIDGE_DELTA", 0.01),
		},
		Screening: ScreeningConfig{
			MinAnswered:      getEnvIntOrDefault("SCREENING_MIN_ANSWERED", 5),
			Parallelism:      getEnvIntOrDefault("SCREENING_PARALLELISM", runtime.NumCPU()),
			IterationTimeout: getEnvDurationOrDefault("SCREENING_ITERATION_TIMEOUT", 2*time.Minute),
			CooksDenominator: getEnvFloatOrDefault("SCREENING_COOKS_DENOMINATOR", 0),
			MaxATTWeight:     getEnvFloatOrDefault("SCREENING_MAX_ATT_WEIGHT", 100),
		},
		Input: InputConfig{
			XLSXPath:     getEnvOrDefault("INPUT_XLSX", ""),
			ItemsCSV:     getEnvOrDefault("INPUT_ITEMS_CSV", "./items.csv"),
			ResponsesCSV: getEnvOrDefault("INPUT_RESPONSES_CSV", "./responses.csv"),
		},
		Store: StoreConfig{
			Dir: getEnvOrDefault("ARTIFACT_STORE_DIR", "./artifacts"),
		},
		Output: OutputConfig{
			DatabaseURL: getEnvOrDefault("DATABASE_URL", ""),
			JSONPath:    getEnvOrDefault("OUTPUT_JSON", "./records.json"),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Estimator.MaxIterations <= 0 {
		return errors.ConfigInvalid("ESTIMATOR_MAX_ITERATIONS must be positive")
	}
	if cfg.Estimator.GradTolerance <= 0 {
		return errors.ConfigInvalid("ESTIMATOR_GRAD_TOLERANCE must be positive")
	}
	if cfg.Screening.MinAnswered < 1 {
		return errors.ConfigInvalid("SCREENING_MIN_ANSWERED must be at least 1")
	}
	if cfg.Screening.Parallelism < 1 {
		return errors.ConfigInvalid("SCREENING_PARALLELISM must be at least 1")
	}
	if cfg.Screening.MaxATTWeight <= 0 {
		return errors.ConfigInvalid("SCREENING_MAX_ATT_WEIGHT must be positive")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
