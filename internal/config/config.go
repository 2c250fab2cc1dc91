package config

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"aidance/internal/bridge"
)

// DefaultStorageQuota matches the few megabytes a browser grants local
// storage.
const DefaultStorageQuota = 5 << 20

type Config struct {
	// HTTP Server
	Port string

	// Storage
	DataBackend       string
	SQLiteDBPath      string
	DataDir           string
	StorageQuotaBytes int64
	CacheTTL          time.Duration

	// Classification bridge
	BridgeAPIURL      string
	BridgeAPIKey      string
	BridgeTextModel   string
	BridgeVisionModel string
	BridgeTimeout     time.Duration

	BudgetNearWarnings bool

	// AMQP, optional for the server
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets export
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	ExportBackfill           bool

	LogLevel string
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8081"),

		DataBackend:       getEnv("DATA_BACKEND", "memory"),
		SQLiteDBPath:      getEnv("SQLITE_DB_PATH", "./data/aidance.db"),
		DataDir:           getEnv("DATA_DIR", "data"),
		StorageQuotaBytes: getEnvInt64("STORAGE_QUOTA_BYTES", DefaultStorageQuota),
		CacheTTL:          getEnvDuration("CACHE_TTL", 5*time.Minute),

		BridgeAPIURL:      getEnv("BRIDGE_API_URL", bridge.DefaultAPIURL),
		BridgeAPIKey:      getEnv("BRIDGE_API_KEY", ""),
		BridgeTextModel:   getEnv("BRIDGE_TEXT_MODEL", bridge.DefaultTextModel),
		BridgeVisionModel: getEnv("BRIDGE_VISION_MODEL", bridge.DefaultVisionModel),
		BridgeTimeout:     getEnvDuration("BRIDGE_TIMEOUT", bridge.DefaultTimeout),

		BudgetNearWarnings: getEnvBool("BUDGET_NEAR_WARNINGS", true),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "aidance"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "export_expenses"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Expenses"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		ExportBackfill:           getEnvBool("EXPORT_BACKFILL", false),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// BridgeConfig returns the bridge settings with the fixed sampling
// parameters.
func (c *Config) BridgeConfig() bridge.Config {
	bc := bridge.DefaultConfig()
	bc.APIURL = c.BridgeAPIURL
	bc.APIKey = c.BridgeAPIKey
	bc.TextModel = c.BridgeTextModel
	bc.VisionModel = c.BridgeVisionModel
	bc.Timeout = c.BridgeTimeout
	return bc
}

// AMQPEnabled reports whether record events should be published.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

// SheetsEnabled reports whether the export worker should write to Google
// Sheets rather than its in-memory exporter.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

// Validate validates the configuration and returns an error listing every
// problem found.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{"memory", "sqlite"}
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}
	if c.DataBackend == "sqlite" && c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
	}
	if c.StorageQuotaBytes < 0 {
		errors = append(errors, fmt.Sprintf("invalid storage quota %d: must not be negative", c.StorageQuotaBytes))
	}
	if c.CacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must not be negative", c.CacheTTL))
	}

	if u, err := url.Parse(c.BridgeAPIURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errors = append(errors, fmt.Sprintf("invalid bridge API URL '%s': must be an http(s) URL", c.BridgeAPIURL))
	}
	if c.BridgeTextModel == "" || c.BridgeVisionModel == "" {
		errors = append(errors, "bridge text and vision model names cannot be empty")
	}
	if c.BridgeTimeout < time.Second || c.BridgeTimeout > 10*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid bridge timeout %v: must be between 1s and 10m", c.BridgeTimeout))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.GoogleSpreadsheetID != "" {
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when a spreadsheet ID is set")
		}
		hasFile := c.GoogleServiceAccountFile != ""
		if !hasFile && c.GoogleServiceAccountJSON == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided for sheets export")
		}
		if hasFile {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
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

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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
