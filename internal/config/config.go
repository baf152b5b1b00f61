package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"gradelens/domain/query"
	"gradelens/internal/analysis"
	"gradelens/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `validate:"required"`
	Data     DataConfig     `validate:"required"`
	Database DatabaseConfig
	Analysis AnalysisConfig `validate:"required"`
	Log      LogConfig
	Metrics  MetricsConfig
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string `validate:"required,numeric"`
	GinMode string `validate:"oneof=debug release test"`
}

// DataConfig holds the default file source and upload limits
type DataConfig struct {
	File        string
	Sheet       string
	UploadDir   string `validate:"required"`
	MaxUploadMB int    `validate:"min=1,max=1024"`
}

// DatabaseConfig holds the optional Postgres source
type DatabaseConfig struct {
	URL   string
	Table string `validate:"required_with=URL"`
}

// Enabled reports whether a Postgres source is configured
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// AnalysisConfig holds engine defaults
type AnalysisConfig struct {
	DefaultCohortSize int `validate:"min=1"`
	BinsFile          string
	// BinSpecs is the default set merged with BinsFile overrides
	BinSpecs []query.BinSpec `validate:"required,min=1"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `validate:"oneof=ERROR WARN INFO DEBUG TRACE"`
}

// MetricsConfig toggles the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads configuration from environment variables and validates it.
// BINS_FILE entries override the built-in bin specs by target column.
func Load() (*Config, error) {
	config := &Config{
		Server:   *loadServerConfig(),
		Data:     *loadDataConfig(),
		Database: *loadDatabaseConfig(),
		Log:      LogConfig{Level: strings.ToUpper(getEnvOrDefault("LOG_LEVEL", "INFO"))},
		Metrics:  MetricsConfig{Enabled: getEnvBoolOrDefault("METRICS_ENABLED", true)},
	}

	analysisConfig, err := loadAnalysisConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load analysis configuration")
	}
	config.Analysis = *analysisConfig

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:    getEnvOrDefault("PORT", "8080"),
		GinMode: getEnvOrDefault("GIN_MODE", "debug"),
	}
}

func loadDataConfig() *DataConfig {
	return &DataConfig{
		File:        getEnvOrDefault("DATA_FILE", ""),
		Sheet:       getEnvOrDefault("EXCEL_SHEET", ""),
		UploadDir:   getEnvOrDefault("UPLOAD_DIR", "./uploads"),
		MaxUploadMB: getEnvIntOrDefault("MAX_UPLOAD_MB", 32),
	}
}

func loadDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		URL:   getEnvOrDefault("DATABASE_URL", ""),
		Table: getEnvOrDefault("DATA_TABLE", ""),
	}
}

func loadAnalysisConfig() (*AnalysisConfig, error) {
	cfg := &AnalysisConfig{
		DefaultCohortSize: getEnvIntOrDefault("DEFAULT_COHORT_SIZE", analysis.DefaultCohortSize),
		BinsFile:          getEnvOrDefault("BINS_FILE", ""),
		BinSpecs:          analysis.DefaultBinSpecs(),
	}
	if cfg.BinsFile == "" {
		return cfg, nil
	}
	overrides, err := LoadBinSpecs(cfg.BinsFile)
	if err != nil {
		return nil, err
	}
	cfg.BinSpecs = analysis.MergeBinSpecs(cfg.BinSpecs, overrides)
	return cfg, nil
}

func validateConfig(config *Config) error {
	if err := validate.Struct(config); err != nil {
		var msgs []string
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
		} else {
			msgs = append(msgs, err.Error())
		}
		return errors.ConfigInvalid(strings.Join(msgs, "; "))
	}
	for _, spec := range config.Analysis.BinSpecs {
		if err := spec.Validate(); err != nil {
			return errors.WithCode(errors.CodeConfigInvalid, err)
		}
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

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
