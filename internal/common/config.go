package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	AWS      AWSConfig
	Redis    RedisConfig
	LLM      LLMConfig
	Pipeline PipelineConfig
}

// AppConfig holds service identity settings.
type AppConfig struct {
	Name string
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr   string
	HealthAddr string // gRPC health/reflection listener
}

// DatabaseConfig holds the extraction-job store configuration.
// DSN is either a postgres:// URL or a path to an SQLite file.
type DatabaseConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// AWSConfig holds the blob store and OCR provider configuration.
type AWSConfig struct {
	Region        string
	FormsBucket   string
	SchemasBucket string
}

// RedisConfig holds the dedup cache configuration.
type RedisConfig struct {
	Addr     string
	DB       int
	CacheTTL time.Duration
}

// LLMConfig holds language-model configuration.
type LLMConfig struct {
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float32
	Timeout     time.Duration
}

// PipelineConfig holds extraction pipeline tunables.
type PipelineConfig struct {
	Strategy         string // "typed" or "schema"
	PollInterval     time.Duration
	PollMaxAttempts  int
	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		App: AppConfig{
			Name: getEnv("APP_NAME", "formbridge"),
		},
		Server: ServerConfig{
			HTTPAddr:   getEnv("HTTP_ADDR", ":8002"),
			HealthAddr: getEnv("HEALTH_ADDR", ":8003"),
		},
		Database: DatabaseConfig{
			DSN:             getEnv("DB_URL", ""),
			MaxConns:        getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:        getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		AWS: AWSConfig{
			Region:        getEnv("AWS_REGION", "us-east-1"),
			FormsBucket:   getEnv("S3_FORM_BUCKET", ""),
			SchemasBucket: getEnv("S3_DATA_SCHEMA_BUCKET", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			DB:       getEnvAsInt("REDIS_DB", 0),
			CacheTTL: getEnvAsDuration("CACHE_TTL", time.Hour),
		},
		LLM: LLMConfig{
			Model:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			BaseURL:     getEnv("OPENAI_BASE_URL", ""),
			Temperature: getEnvAsFloat32("OPENAI_TEMPERATURE", 0.0),
			Timeout:     getEnvAsDuration("OPENAI_TIMEOUT", 45*time.Second),
		},
		Pipeline: PipelineConfig{
			Strategy:         getEnv("NORMALIZE_STRATEGY", "typed"),
			PollInterval:     getEnvAsDuration("OCR_POLL_INTERVAL", 5*time.Second),
			PollMaxAttempts:  getEnvAsInt("OCR_POLL_MAX_ATTEMPTS", 60),
			RetryMaxAttempts: getEnvAsInt("LLM_MAX_RETRIES", 3),
			RetryBaseDelay:   getEnvAsDuration("LLM_RETRY_DELAY", 2*time.Second),
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

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
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
	if c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "OPENAI_API_KEY is required", ErrInvalidInput)
	}
	if c.AWS.FormsBucket == "" {
		return NewAppError("CONFIG_ERROR", "S3_FORM_BUCKET is required", ErrInvalidInput)
	}
	if c.Pipeline.Strategy == "schema" && c.AWS.SchemasBucket == "" {
		return NewAppError("CONFIG_ERROR", "S3_DATA_SCHEMA_BUCKET is required for the schema strategy", ErrInvalidInput)
	}
	if c.Server.HTTPAddr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	return nil
}
