package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "configs/cropcast.yaml"

type Config struct {
	// HTTP Server
	Port               string        `yaml:"port"`
	CORSAllowedOrigins []string      `yaml:"cors_allowed_origins"`
	ForecastRateLimit  int           `yaml:"forecast_rate_limit"`
	ShutdownTimeout    time.Duration `yaml:"shutdown_timeout"`

	// Dataset
	DataBackend  string `yaml:"data_backend"`
	DataFile     string `yaml:"data_file"`
	SQLiteDBPath string `yaml:"sqlite_db_path"`

	// Google Sheets
	GoogleSpreadsheetID string `yaml:"google_spreadsheet_id"`
	GoogleSheetName     string `yaml:"google_sheet_name"`

	// Forecasting
	DefaultCrop    string `yaml:"default_crop"`
	DefaultPeriods int    `yaml:"default_periods"`
	MaxPeriods     int    `yaml:"max_periods"`

	// ForecastCacheSize of 0 disables result caching
	ForecastCacheSize int           `yaml:"forecast_cache_size"`
	ForecastCacheTTL  time.Duration `yaml:"forecast_cache_ttl"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Defaults returns the configuration used when neither the YAML file nor the environment set a value.
func Defaults() *Config {
	return &Config{
		Port:              "5000",
		ForecastRateLimit: 60,
		ShutdownTimeout:   30 * time.Second,

		DataBackend:  "csv",
		DataFile:     "data/crop_sales_data.csv",
		SQLiteDBPath: "./data/cropcast.db",

		GoogleSheetName: "Sales",

		DefaultCrop:    "Rice",
		DefaultPeriods: 7,
		MaxPeriods:     365,

		ForecastCacheSize: 0,
		ForecastCacheTTL:  time.Hour,

		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load builds the configuration from defaults, the optional YAML file at CONFIG_PATH, and
// environment variables, in that order of precedence (lowest first).
func Load() (*Config, error) {
	cfg := Defaults()

	path := getEnv("CONFIG_PATH", defaultConfigPath)
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	if v := getEnv("CORS_ALLOWED_ORIGINS", ""); v != "" {
		cfg.CORSAllowedOrigins = splitList(v)
	}
	cfg.ForecastRateLimit = getEnvInt("FORECAST_RATE_LIMIT", cfg.ForecastRateLimit)
	cfg.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)

	cfg.DataBackend = getEnv("DATA_BACKEND", cfg.DataBackend)
	cfg.DataFile = getEnv("DATA_FILE", cfg.DataFile)
	cfg.SQLiteDBPath = getEnv("SQLITE_DB_PATH", cfg.SQLiteDBPath)

	cfg.GoogleSpreadsheetID = getEnv("GOOGLE_SPREADSHEET_ID", cfg.GoogleSpreadsheetID)
	cfg.GoogleSheetName = getEnv("GOOGLE_SHEET_NAME", cfg.GoogleSheetName)

	cfg.DefaultCrop = getEnv("DEFAULT_CROP", cfg.DefaultCrop)
	cfg.DefaultPeriods = getEnvInt("DEFAULT_PERIODS", cfg.DefaultPeriods)
	cfg.MaxPeriods = getEnvInt("MAX_PERIODS", cfg.MaxPeriods)
	cfg.ForecastCacheSize = getEnvInt("FORECAST_CACHE_SIZE", cfg.ForecastCacheSize)
	cfg.ForecastCacheTTL = getEnvDuration("FORECAST_CACHE_TTL", cfg.ForecastCacheTTL)

	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)

	return cfg, nil
}

// loadFile overlays the YAML file at path. A missing file is not an error.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

var (
	validBackends   = []string{"csv", "sqlite", "sheets"}
	validLogLevels  = []string{"debug", "info", "warn", "warning", "error"}
	validLogFormats = []string{"text", "json"}
)

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case "csv":
		if c.DataFile == "" {
			errors = append(errors, "data file cannot be empty when using csv backend")
		}
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("SQLite database directory '%s' does not exist", dir))
			}
		}
	case "sheets":
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when using sheets backend")
		}
	}

	if strings.TrimSpace(c.DefaultCrop) == "" {
		errors = append(errors, "default crop cannot be empty")
	}
	if c.MaxPeriods < 1 {
		errors = append(errors, fmt.Sprintf("invalid max periods %d: must be at least 1", c.MaxPeriods))
	}
	if c.DefaultPeriods < 1 || c.DefaultPeriods > c.MaxPeriods {
		errors = append(errors, fmt.Sprintf("invalid default periods %d: must be between 1 and max periods (%d)", c.DefaultPeriods, c.MaxPeriods))
	}

	if c.ForecastCacheSize < 0 {
		errors = append(errors, fmt.Sprintf("invalid forecast cache size %d: must be zero (disabled) or positive", c.ForecastCacheSize))
	}
	if c.ForecastCacheSize > 0 && c.ForecastCacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("invalid forecast cache TTL %v: must be positive when caching is enabled", c.ForecastCacheTTL))
	}

	if c.ForecastRateLimit < 0 {
		errors = append(errors, fmt.Sprintf("invalid forecast rate limit %d: must be zero (disabled) or positive", c.ForecastRateLimit))
	}
	if c.ShutdownTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid shutdown timeout %v: must be at least 1 second", c.ShutdownTimeout))
	}

	if !slices.Contains(validLogLevels, strings.ToLower(c.LogLevel)) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLogLevels))
	}
	if !slices.Contains(validLogFormats, strings.ToLower(c.LogFormat)) {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be one of %v", c.LogFormat, validLogFormats))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
