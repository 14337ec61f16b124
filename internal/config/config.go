package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"

	"spendwise/internal/core"
)

const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
)

var validBackends = []string{BackendMemory, BackendSQLite, BackendPostgres, BackendMongo}

var defaultCategories = []string{
	"Groceries", "Utilities", "Transport", "Entertainment", "Housing", "Healthcare", "Other",
}

const defaultBudgets = `{"Groceries": "300.00", "Utilities": "200.00", "Transport": "500.00", "Entertainment": "150.00", "Other": "100.00"}`

type Config struct {
	// Backend selection
	DataBackend string

	// Database
	SQLiteDBPath    string
	PostgresDSN     string
	MongoURI        string
	MongoDatabase   string
	MongoCollection string
	StoreTimeout    time.Duration

	// Aggregate cache; size 0 disables it
	CacheSize int
	CacheTTL  time.Duration

	// Presentation
	PageSize   int
	Categories []string

	// Budgets in cents per category
	Budgets core.Thresholds

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Alert worker
	AlertSchedule    string
	AlertConcurrency int

	// Telegram
	TelegramBotToken string
	TelegramChatID   int64

	// Google Sheets export
	GoogleSpreadsheetID      string
	DashboardSheetName       string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Logging
	LogLevel  string
	LogFormat string

	// problems found while decoding structured values
	parseErrors []string
}

func Load() *Config {
	cfg := &Config{
		DataBackend: getEnv("DATA_BACKEND", BackendSQLite),

		SQLiteDBPath:    getEnv("SQLITE_DB_PATH", "./data/spendwise.db"),
		PostgresDSN:     getEnv("POSTGRES_DSN", ""),
		MongoURI:        getEnv("MONGODB_URI", ""),
		MongoDatabase:   getEnv("MONGODB_DB", "spendwise"),
		MongoCollection: getEnv("MONGODB_COLLECTION", "expenses"),
		StoreTimeout:    getEnvDuration("STORE_TIMEOUT", 5*time.Second),

		CacheSize: getEnvInt("CACHE_SIZE", 0),
		CacheTTL:  getEnvDuration("CACHE_TTL", time.Minute),

		PageSize: getEnvInt("PAGE_SIZE", 10),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "spendwise"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "budget_alerts"),

		AlertSchedule:    getEnv("ALERT_SCHEDULE", "0 9 * * *"),
		AlertConcurrency: getEnvInt("ALERT_CONCURRENCY", 4),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		DashboardSheetName:       getEnv("DASHBOARD_SHEET_NAME", "Dashboard"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	if raw := getEnv("TELEGRAM_CHAT_ID", ""); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			cfg.parseErrors = append(cfg.parseErrors, fmt.Sprintf("invalid TELEGRAM_CHAT_ID '%s': must be an integer", raw))
		}
		cfg.TelegramChatID = id
	}

	categories, err := ParseCategories(getEnv("EXPENSE_CATEGORIES", ""))
	if err != nil {
		cfg.parseErrors = append(cfg.parseErrors, err.Error())
	}
	cfg.Categories = categories

	budgets, err := ParseBudgets(getEnv("EXPENSE_BUDGETS", defaultBudgets))
	if err != nil {
		cfg.parseErrors = append(cfg.parseErrors, err.Error())
	}
	cfg.Budgets = budgets

	return cfg
}

// ParseCategories decodes a JSON array of category names. An empty input
// yields the default vocabulary.
func ParseCategories(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return slices.Clone(defaultCategories), nil
	}
	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		return slices.Clone(defaultCategories), fmt.Errorf("invalid EXPENSE_CATEGORIES: %w", err)
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" && !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	if len(out) == 0 {
		return slices.Clone(defaultCategories), fmt.Errorf("invalid EXPENSE_CATEGORIES: no category names")
	}
	return out, nil
}

// ParseBudgets decodes a JSON object mapping category to an amount in
// currency units. Amounts may be JSON numbers or strings; they are converted
// to cents without going through float.
func ParseBudgets(raw string) (core.Thresholds, error) {
	var amounts map[string]decimal.Decimal
	if err := json.Unmarshal([]byte(raw), &amounts); err != nil {
		return core.Thresholds{}, fmt.Errorf("invalid EXPENSE_BUDGETS: %w", err)
	}
	out := make(core.Thresholds, len(amounts))
	for category, amount := range amounts {
		if amount.IsNegative() {
			return core.Thresholds{}, fmt.Errorf("invalid EXPENSE_BUDGETS: budget for '%s' is negative", category)
		}
		m, err := core.MoneyFromDecimal(amount)
		if err != nil {
			return core.Thresholds{}, fmt.Errorf("invalid EXPENSE_BUDGETS: budget for '%s': %w", category, err)
		}
		out[strings.TrimSpace(category)] = m
	}
	return out, nil
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	errors := slices.Clone(c.parseErrors)

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	case BackendPostgres:
		if c.PostgresDSN == "" {
			errors = append(errors, "POSTGRES_DSN is required when using postgres backend")
		}
	case BackendMongo:
		if c.MongoURI == "" {
			errors = append(errors, "MONGODB_URI is required when using mongo backend")
		}
		if c.MongoDatabase == "" || c.MongoCollection == "" {
			errors = append(errors, "MongoDB database and collection names cannot be empty")
		}
	}

	if c.StoreTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("invalid store timeout %v: must be positive", c.StoreTimeout))
	}

	if c.CacheSize < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must not be negative", c.CacheSize))
	}
	if c.CacheSize > 0 && c.CacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be positive when the cache is enabled", c.CacheTTL))
	}

	if c.PageSize < 1 || c.PageSize > 100 {
		errors = append(errors, fmt.Sprintf("invalid page size %d: must be between 1 and 100", c.PageSize))
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

	if _, err := cron.ParseStandard(c.AlertSchedule); err != nil {
		errors = append(errors, fmt.Sprintf("invalid alert schedule '%s': %v", c.AlertSchedule, err))
	}
	if c.AlertConcurrency < 1 || c.AlertConcurrency > 64 {
		errors = append(errors, fmt.Sprintf("invalid alert concurrency %d: must be between 1 and 64", c.AlertConcurrency))
	}

	if (c.TelegramBotToken == "") != (c.TelegramChatID == 0) {
		errors = append(errors, "TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID must be set together")
	}

	if c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, strings.ToLower(c.LogLevel)) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}
	if !slices.Contains([]string{"text", "json"}, strings.ToLower(c.LogFormat)) {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// TelegramEnabled reports whether Telegram delivery is configured.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != 0
}

// ExportEnabled reports whether the Google Sheets export can run.
func (c *Config) ExportEnabled() bool {
	return c.GoogleSpreadsheetID != "" && (c.GoogleServiceAccountJSON != "" || c.GoogleServiceAccountFile != "")
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
