package config

import (
	"os"
	"strconv"

	// Load environment variables from .env files when present.
	_ "github.com/joho/godotenv/autoload"
)

// Config holds all application configuration
type Config struct {
	Matching MatchingConfig
	Rules    RulesConfig
	Export   ExportConfig
	Search   SearchConfig
	Watch    WatchConfig
	Logging  LoggingConfig
}

type MatchingConfig struct {
	ExactAmountWeight int
	UTRWeight         int
	SameDayWeight     int
	AdjacentDayWeight int
	MerchantWeight    int
	MinScore          int
}

type RulesConfig struct {
	// Path to the JSON rules file. Missing files fall back to the
	// built-in system rules.
	Path string
}

type ExportConfig struct {
	// Format is "csv" or "xlsx".
	Format string
	Dir    string
}

type SearchConfig struct {
	// IndexPath is the on-disk index location; empty means in-memory.
	IndexPath string
}

type WatchConfig struct {
	// Schedule is a standard 5-field cron expression.
	Schedule     string
	StatementDir string
	ReceiptDir   string
}

type LoggingConfig struct {
	Level string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Matching: MatchingConfig{
			ExactAmountWeight: getEnvAsInt("MATCH_WEIGHT_AMOUNT", 50),
			UTRWeight:         getEnvAsInt("MATCH_WEIGHT_UTR", 40),
			SameDayWeight:     getEnvAsInt("MATCH_WEIGHT_SAME_DAY", 20),
			AdjacentDayWeight: getEnvAsInt("MATCH_WEIGHT_ADJACENT_DAY", 10),
			MerchantWeight:    getEnvAsInt("MATCH_WEIGHT_MERCHANT", 10),
			MinScore:          getEnvAsInt("MATCH_MIN_SCORE", 40),
		},
		Rules: RulesConfig{
			Path: getEnv("RULES_PATH", "rules.json"),
		},
		Export: ExportConfig{
			Format: getEnv("EXPORT_FORMAT", "csv"),
			Dir:    getEnv("EXPORT_DIR", "."),
		},
		Search: SearchConfig{
			IndexPath: getEnv("SEARCH_INDEX_PATH", ""),
		},
		Watch: WatchConfig{
			Schedule:     getEnv("WATCH_SCHEDULE", "0 2 * * *"),
			StatementDir: getEnv("WATCH_STATEMENT_DIR", "statements"),
			ReceiptDir:   getEnv("WATCH_RECEIPT_DIR", "receipts"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
