package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Env         string
	LogLevel    string
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Typesense   TypesenseConfig
	Geolocation GeolocationConfig
	Embedding   EmbeddingConfig
	Search      SearchConfig
	Indexer     IndexerConfig
	OTEL        OTELConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	// Driver is "postgres" or "memory"
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	// SeedDemo loads the demo catalog into the memory driver
	SeedDemo bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// TypesenseConfig holds Typesense configuration.
// When disabled, nearest-neighbor retrieval for businesses runs in PostgreSQL.
type TypesenseConfig struct {
	URL     string
	APIKey  string
	Enabled bool
}

// GeolocationConfig holds geolocation provider configuration
type GeolocationConfig struct {
	Provider string
	APIKey   string
}

// EmbeddingConfig holds embedding provider configuration
type EmbeddingConfig struct {
	APIKey          string
	BaseURL         string
	Model           string
	Dimensions      int
	RateLimitRPM    int
	RateLimitBurst  int
	CacheTTLSeconds int
}

// SearchConfig holds retrieval tuning knobs
type SearchConfig struct {
	Timezone          string
	DefaultLimit      int
	ListingLimit      int
	MaxLimit          int
	PrefetchCap       int
	OpenNowMultiplier int
	DefaultMultiplier int
	ListingWindowCap  int
}

// IndexerConfig holds bulk reindexing configuration
type IndexerConfig struct {
	Workers   int
	BatchSize int
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			AllowedOrigins: getEnv("ALLOWED_ORIGINS", "*"),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "local_discovery"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			SeedDemo: getEnvAsBool("DB_SEED_DEMO", false),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Typesense: TypesenseConfig{
			URL:     getEnv("TYPESENSE_URL", "http://localhost:8108"),
			APIKey:  getEnv("TYPESENSE_API_KEY", "xyz"),
			Enabled: getEnvAsBool("TYPESENSE_ENABLED", false),
		},
		Geolocation: GeolocationConfig{
			Provider: getEnv("GEOLOCATION_PROVIDER", "mock"),
			APIKey:   getEnv("GEOLOCATION_API_KEY", ""),
		},
		Embedding: EmbeddingConfig{
			APIKey:          getEnv("EMBEDDING_API_KEY", ""),
			BaseURL:         getEnv("EMBEDDING_BASE_URL", "https://api.openai.com/v1"),
			Model:           getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
			Dimensions:      getEnvAsInt("EMBEDDING_DIMENSIONS", 0),
			RateLimitRPM:    getEnvAsInt("EMBEDDING_RATE_LIMIT_RPM", 600),
			RateLimitBurst:  getEnvAsInt("EMBEDDING_RATE_LIMIT_BURST", 10),
			CacheTTLSeconds: getEnvAsInt("EMBEDDING_CACHE_TTL", 60*60*24),
		},
		Search: SearchConfig{
			Timezone:          getEnv("SEARCH_TIMEZONE", "UTC"),
			DefaultLimit:      getEnvAsInt("SEARCH_DEFAULT_LIMIT", 24),
			ListingLimit:      getEnvAsInt("SEARCH_LISTING_LIMIT", 20),
			MaxLimit:          getEnvAsInt("SEARCH_MAX_LIMIT", 100),
			PrefetchCap:       getEnvAsInt("SEARCH_PREFETCH_CAP", 200),
			OpenNowMultiplier: getEnvAsInt("SEARCH_OPEN_NOW_MULTIPLIER", 10),
			DefaultMultiplier: getEnvAsInt("SEARCH_DEFAULT_MULTIPLIER", 3),
			ListingWindowCap:  getEnvAsInt("SEARCH_LISTING_WINDOW_CAP", 500),
		},
		Indexer: IndexerConfig{
			Workers:   getEnvAsInt("INDEXER_WORKERS", 4),
			BatchSize: getEnvAsInt("INDEXER_BATCH_SIZE", 200),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "local-discovery"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}

	if _, err := cfg.Search.Location(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Location returns the time zone used to evaluate opening hours
func (c *SearchConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid SEARCH_TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
