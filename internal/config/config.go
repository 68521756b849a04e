package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP server
	Port string

	// Logging
	LogLevel string

	// Database
	SQLiteDBPath string

	// AMQP (optional; when unset batches are processed inline)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Receipt documents
	ReceiptHost    string
	FetchTimeout   time.Duration
	DocCacheSize   int
	DocCacheTTL    time.Duration
	ReportCacheTTL time.Duration

	// Reports
	TopLimit int

	// Google Sheets export (optional)
	SheetsSpreadsheetID string
	SheetsSheetName     string
}

func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8082"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/estratto.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "estratto"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "process_batches"),

		ReceiptHost:    getEnv("RECEIPT_HOST", "receipts.examplebank.com"),
		FetchTimeout:   getEnvDuration("FETCH_TIMEOUT", 15*time.Second),
		DocCacheSize:   getEnvInt("DOC_CACHE_SIZE", 500),
		DocCacheTTL:    getEnvDuration("DOC_CACHE_TTL", 1*time.Hour),
		ReportCacheTTL: getEnvDuration("REPORT_CACHE_TTL", 5*time.Minute),

		TopLimit: getEnvInt("TOP_LIMIT", 25),

		SheetsSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		SheetsSheetName:     getEnv("GOOGLE_SHEET_NAME", "Reports"),
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		problems = append(problems, "SQLite database path cannot be empty")
	} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				problems = append(problems, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
			}
		}
	}

	if c.AMQPURL != "" {
		if parsed, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsed.Scheme))
		}
		if c.AMQPExchange == "" {
			problems = append(problems, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			problems = append(problems, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if strings.TrimSpace(c.ReceiptHost) == "" {
		problems = append(problems, "receipt host cannot be empty")
	} else if strings.Contains(c.ReceiptHost, "/") {
		problems = append(problems, fmt.Sprintf("invalid receipt host '%s': must be a bare host name", c.ReceiptHost))
	}

	if c.FetchTimeout < time.Second {
		problems = append(problems, fmt.Sprintf("invalid fetch timeout %v: must be at least 1 second", c.FetchTimeout))
	}
	if c.DocCacheSize < 1 {
		problems = append(problems, fmt.Sprintf("invalid document cache size %d: must be at least 1", c.DocCacheSize))
	}
	if c.TopLimit < 1 || c.TopLimit > 100 {
		problems = append(problems, fmt.Sprintf("invalid top limit %d: must be between 1 and 100", c.TopLimit))
	}

	if c.SheetsSpreadsheetID != "" && c.SheetsSheetName == "" {
		problems = append(problems, "Google sheet name cannot be empty when a spreadsheet ID is provided")
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
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
