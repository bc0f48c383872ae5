package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Store  StoreConfig
	Server ServerConfig
	Parser ParserConfig
}

// StoreConfig holds template-store configuration. When DSN is set the
// Postgres store is used; otherwise the local bbolt file.
type StoreConfig struct {
	DSN             string
	BoltPath        string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr string
}

// ParserConfig holds parsing thresholds and regional defaults.
type ParserConfig struct {
	// MinChainConfidence is the merchant-detection floor below which
	// the generic path is used instead of chain-specific parsing.
	MinChainConfidence int
	// MinLearnConfidence gates template learning after a parse.
	MinLearnConfidence int
	// DefaultRegion selects the regional preset when the text gives
	// no signal (ISO territory code, e.g. "ES").
	DefaultRegion string
	// ChainTemplateDir optionally loads extra chain templates from
	// JSON files at startup.
	ChainTemplateDir string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Store: StoreConfig{
			DSN:             getEnv("STORE_DSN", ""),
			BoltPath:        getEnv("STORE_BOLT_PATH", "reciboscan.db"),
			MaxConns:        getEnvAsInt32("STORE_MAX_CONNS", 10),
			MinConns:        getEnvAsInt32("STORE_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("STORE_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("STORE_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("STORE_DIAL_TIMEOUT", 3*time.Second),
		},
		Server: ServerConfig{
			HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		},
		Parser: ParserConfig{
			MinChainConfidence: getEnvAsInt("PARSER_MIN_CHAIN_CONFIDENCE", 70),
			MinLearnConfidence: getEnvAsInt("PARSER_MIN_LEARN_CONFIDENCE", 60),
			DefaultRegion:      getEnv("PARSER_DEFAULT_REGION", "ES"),
			ChainTemplateDir:   getEnv("PARSER_CHAIN_TEMPLATE_DIR", ""),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Store.DSN == "" && c.Store.BoltPath == "" {
		return NewAppError("CONFIG_ERROR", "one of STORE_DSN or STORE_BOLT_PATH is required", ErrInvalidInput)
	}
	if c.Server.HTTPAddr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	if c.Parser.MinChainConfidence < 0 || c.Parser.MinChainConfidence > 100 {
		return NewAppError("CONFIG_ERROR", "PARSER_MIN_CHAIN_CONFIDENCE must be in [0,100]", ErrInvalidInput)
	}
	return nil
}
