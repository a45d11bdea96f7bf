package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds configuration for the gateway
type Config struct {
	HTTPPort      string
	JWTSecret     []byte
	EncryptionKey []byte
	Database      DatabaseConfig
	Cache         CacheConfig
	Queue         QueueConfig
	Poller        PollerConfig
	LoggingSink   LoggingSinkConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// CacheConfig holds cache settings
type CacheConfig struct {
	AliasCacheSize       int
	AliasCacheTTL        time.Duration
	ProviderKeyCacheSize int
	ProviderKeyCacheTTL  time.Duration
}

// QueueConfig holds usage queue settings
type QueueConfig struct {
	UseRedis      bool
	RedisAddress  string
	RedisPassword string
	RedisDB       int
	BatchSize     int
	BatchTimeout  time.Duration
	MaxRetries    int
	RetryBackoff  time.Duration
}

// PollerConfig holds provider model polling settings
type PollerConfig struct {
	Enabled  bool
	Interval time.Duration
}

// LoggingSinkConfig holds configuration for the S3-based request log
// archive
type LoggingSinkConfig struct {
	Enabled       bool
	FlushSize     int
	FlushInterval time.Duration
	S3Bucket      string
	S3Region      string
	S3Prefix      string
	Instance      string
}

// Unset or unparseable optional variables fall back to their defaults
// rather than failing startup.

func getEnvString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v == "true" || v == "1"
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	encKeyB64 := os.Getenv("ENCRYPTION_KEY")
	if encKeyB64 == "" {
		return nil, fmt.Errorf("ENCRYPTION_KEY is required")
	}
	encKey, err := base64.StdEncoding.DecodeString(encKeyB64)
	if err != nil {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be base64 encoded: %w", err)
	}

	cfg := &Config{
		HTTPPort:      getEnvString("HTTP_PORT", "8080"),
		JWTSecret:     []byte(jwtSecret),
		EncryptionKey: encKey,
		Database: DatabaseConfig{
			URL:             dbURL,
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 1*time.Minute),
		},
		Cache: CacheConfig{
			AliasCacheSize:       getEnvInt("CACHE_ALIAS_SIZE", 500),
			AliasCacheTTL:        getEnvDuration("CACHE_ALIAS_TTL", 1*time.Minute),
			ProviderKeyCacheSize: getEnvInt("CACHE_PROVIDER_KEY_SIZE", 500),
			ProviderKeyCacheTTL:  getEnvDuration("CACHE_PROVIDER_KEY_TTL", 5*time.Minute),
		},
		Queue: QueueConfig{
			UseRedis:      getEnvBool("USAGE_QUEUE_USE_REDIS", false),
			RedisAddress:  getEnvString("REDIS_ADDRESS", "localhost:6379"),
			RedisPassword: getEnvString("REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("REDIS_DB", 0),
			BatchSize:     getEnvInt("USAGE_QUEUE_BATCH_SIZE", 100),
			BatchTimeout:  getEnvDuration("USAGE_QUEUE_BATCH_TIMEOUT", 5*time.Second),
			MaxRetries:    getEnvInt("USAGE_QUEUE_MAX_RETRIES", 3),
			RetryBackoff:  getEnvDuration("USAGE_QUEUE_RETRY_BACKOFF", 1*time.Second),
		},
		Poller: PollerConfig{
			Enabled:  getEnvBool("MODEL_POLLING_ENABLED", true),
			Interval: getEnvDuration("MODEL_POLLING_INTERVAL", 12*time.Hour),
		},
		LoggingSink: LoggingSinkConfig{
			Enabled:       getEnvBool("LOGGING_SINK_ENABLED", false),
			FlushSize:     getEnvInt("LOGGING_SINK_FLUSH_SIZE", 1000),
			FlushInterval: getEnvDuration("LOGGING_SINK_FLUSH_INTERVAL", 5*time.Minute),
			S3Bucket:      getEnvString("LOGGING_SINK_S3_BUCKET", ""),
			S3Region:      getEnvString("LOGGING_SINK_S3_REGION", "us-east-1"),
			S3Prefix:      getEnvString("LOGGING_SINK_S3_PREFIX", "logs/"),
			Instance:      getEnvString("INSTANCE_NAME", "gateway-0"),
		},
	}

	return cfg, nil
}
