package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return *Defaults()
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		wantErr     bool
		errorString string
	}{
		{
			name:    "defaults are valid",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:        "invalid port - non-numeric",
			mutate:      func(c *Config) { c.Port = "abc" },
			wantErr:     true,
			errorString: "invalid port 'abc': must be a number",
		},
		{
			name:        "invalid port - out of range high",
			mutate:      func(c *Config) { c.Port = "70000" },
			wantErr:     true,
			errorString: "invalid port 70000: must be between 1 and 65535",
		},
		{
			name:        "invalid data backend",
			mutate:      func(c *Config) { c.DataBackend = "postgres" },
			wantErr:     true,
			errorString: "invalid data backend 'postgres': must be one of [csv sqlite sheets]",
		},
		{
			name:        "csv backend missing file",
			mutate:      func(c *Config) { c.DataFile = "" },
			wantErr:     true,
			errorString: "data file cannot be empty when using csv backend",
		},
		{
			name: "sqlite backend missing database path",
			mutate: func(c *Config) {
				c.DataBackend = "sqlite"
				c.SQLiteDBPath = ""
			},
			wantErr:     true,
			errorString: "SQLite database path cannot be empty when using sqlite backend",
		},
		{
			name: "sqlite backend in current directory",
			mutate: func(c *Config) {
				c.DataBackend = "sqlite"
				c.SQLiteDBPath = "./test.db"
			},
			wantErr: false,
		},
		{
			name: "sqlite backend with missing directory",
			mutate: func(c *Config) {
				c.DataBackend = "sqlite"
				c.SQLiteDBPath = "/non/existent/dir/test.db"
			},
			wantErr:     true,
			errorString: "SQLite database directory '/non/existent/dir' does not exist",
		},
		{
			name:        "sheets backend missing spreadsheet",
			mutate:      func(c *Config) { c.DataBackend = "sheets" },
			wantErr:     true,
			errorString: "Google Spreadsheet ID is required when using sheets backend",
		},
		{
			name: "sheets backend complete",
			mutate: func(c *Config) {
				c.DataBackend = "sheets"
				c.GoogleSpreadsheetID = "sheet-123"
			},
			wantErr: false,
		},
		{
			name:        "default periods above max",
			mutate:      func(c *Config) { c.DefaultPeriods = 400 },
			wantErr:     true,
			errorString: "invalid default periods 400: must be between 1 and max periods (365)",
		},
		{
			name:        "empty default crop",
			mutate:      func(c *Config) { c.DefaultCrop = " " },
			wantErr:     true,
			errorString: "default crop cannot be empty",
		},
		{
			name:        "negative rate limit",
			mutate:      func(c *Config) { c.ForecastRateLimit = -1 },
			wantErr:     true,
			errorString: "invalid forecast rate limit -1",
		},
		{
			name:        "shutdown timeout too short",
			mutate:      func(c *Config) { c.ShutdownTimeout = 10 * time.Millisecond },
			wantErr:     true,
			errorString: "invalid shutdown timeout 10ms",
		},
		{
			name:        "negative cache size",
			mutate:      func(c *Config) { c.ForecastCacheSize = -1 },
			wantErr:     true,
			errorString: "invalid forecast cache size -1",
		},
		{
			name: "cache without TTL",
			mutate: func(c *Config) {
				c.ForecastCacheSize = 16
				c.ForecastCacheTTL = 0
			},
			wantErr:     true,
			errorString: "invalid forecast cache TTL 0s",
		},
		{
			name: "cache disabled ignores TTL",
			mutate: func(c *Config) {
				c.ForecastCacheSize = 0
				c.ForecastCacheTTL = 0
			},
			wantErr: false,
		},
		{
			name:        "unknown log format",
			mutate:      func(c *Config) { c.LogFormat = "xml" },
			wantErr:     true,
			errorString: "invalid log format 'xml'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && tt.errorString != "" && !strings.Contains(err.Error(), tt.errorString) {
				t.Errorf("Config.Validate() error = %v, want it to contain %v", err, tt.errorString)
			}
		})
	}
}

func TestConfig_ValidateAggregatesErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Port = "abc"
	cfg.MaxPeriods = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if strings.Count(err.Error(), "\n- ") < 2 {
		t.Errorf("expected several problems in one error, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	t.Run("default values", func(t *testing.T) {
		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		if cfg.Port != "5000" {
			t.Errorf("Load() Port = %v, want 5000", cfg.Port)
		}
		if cfg.DataBackend != "csv" {
			t.Errorf("Load() DataBackend = %v, want csv", cfg.DataBackend)
		}
		if cfg.DataFile != "data/crop_sales_data.csv" {
			t.Errorf("Load() DataFile = %v", cfg.DataFile)
		}
		if cfg.DefaultCrop != "Rice" || cfg.DefaultPeriods != 7 {
			t.Errorf("Load() forecast defaults = %s/%d, want Rice/7", cfg.DefaultCrop, cfg.DefaultPeriods)
		}
		if cfg.ForecastCacheSize != 0 {
			t.Errorf("Load() ForecastCacheSize = %d, want 0 (every forecast refits)", cfg.ForecastCacheSize)
		}
	})

	t.Run("environment variables", func(t *testing.T) {
		t.Setenv("PORT", "9090")
		t.Setenv("DATA_BACKEND", "sqlite")
		t.Setenv("SQLITE_DB_PATH", "/tmp/test.db")
		t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000, https://example.com")
		t.Setenv("DEFAULT_PERIODS", "14")
		t.Setenv("SHUTDOWN_TIMEOUT", "45s")
		t.Setenv("FORECAST_CACHE_TTL", "10m")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		if cfg.Port != "9090" {
			t.Errorf("Load() Port = %v, want 9090", cfg.Port)
		}
		if cfg.DataBackend != "sqlite" || cfg.SQLiteDBPath != "/tmp/test.db" {
			t.Errorf("Load() backend = %v %v", cfg.DataBackend, cfg.SQLiteDBPath)
		}
		if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://example.com" {
			t.Errorf("Load() CORSAllowedOrigins = %v", cfg.CORSAllowedOrigins)
		}
		if cfg.DefaultPeriods != 14 {
			t.Errorf("Load() DefaultPeriods = %v, want 14", cfg.DefaultPeriods)
		}
		if cfg.ShutdownTimeout != 45*time.Second {
			t.Errorf("Load() ShutdownTimeout = %v, want 45s", cfg.ShutdownTimeout)
		}
		if cfg.ForecastCacheTTL != 10*time.Minute {
			t.Errorf("Load() ForecastCacheTTL = %v, want 10m", cfg.ForecastCacheTTL)
		}
	})

	t.Run("invalid environment variables use defaults", func(t *testing.T) {
		t.Setenv("MAX_PERIODS", "invalid")
		t.Setenv("SHUTDOWN_TIMEOUT", "invalid")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		if cfg.MaxPeriods != 365 {
			t.Errorf("Load() MaxPeriods = %v, want 365 (default for invalid input)", cfg.MaxPeriods)
		}
		if cfg.ShutdownTimeout != 30*time.Second {
			t.Errorf("Load() ShutdownTimeout = %v, want 30s (default for invalid input)", cfg.ShutdownTimeout)
		}
	})
}

func TestLoadYAMLOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cropcast.yaml")
	yamlDoc := `
port: "8088"
data_backend: sheets
google_spreadsheet_id: abc
default_crop: Wheat
cors_allowed_origins:
  - http://localhost:3000
shutdown_timeout: 5s
`
	if err := os.WriteFile(path, []byte(yamlDoc), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("DEFAULT_CROP", "Maize")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != "8088" || cfg.DataBackend != "sheets" || cfg.GoogleSpreadsheetID != "abc" {
		t.Errorf("YAML values not applied: %+v", cfg)
	}
	if cfg.DefaultCrop != "Maize" {
		t.Errorf("env should override YAML, got DefaultCrop = %s", cfg.DefaultCrop)
	}
	if cfg.GoogleSheetName != "Sales" {
		t.Errorf("defaults should survive the overlay, got GoogleSheetName = %s", cfg.GoogleSheetName)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 5s", cfg.ShutdownTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("port: [unterminated"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)

	if _, err := Load(); err == nil {
		t.Fatal("expected parse error")
	}
}
