// Package config provides application configuration management with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.recall/config.yaml)
//  3. Default values (sensible defaults for quick start)
//
// Main configuration categories:
//   - Storage: PostgreSQL connection (see storage.go)
//   - Embedding: OpenAI-compatible embeddings endpoint and model
//   - Retrieval: default result limit and similarity threshold
//   - Chunking: chunk size, overlap, separator cascade
//   - Server: HTTP listen address
//
// Security: Sensitive data (passwords, API keys) are never logged.
// Validation: Comprehensive range checks in validation.go with clear error messages.
//
// Error Handling:
//   - Uses sentinel errors for Go-idiomatic error checking with errors.Is()
//   - Wrap with context using fmt.Errorf("%w: details", ErrXxx)
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates the embeddings API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidEmbeddingModel indicates the embedding model name is invalid.
	ErrInvalidEmbeddingModel = errors.New("invalid embedding model")

	// ErrInvalidEmbeddingDimension indicates the embedding dimension does not
	// match the vector column width.
	ErrInvalidEmbeddingDimension = errors.New("invalid embedding dimension")

	// ErrInvalidRetrievalLimit indicates the retrieval limit is out of range.
	ErrInvalidRetrievalLimit = errors.New("invalid retrieval limit")

	// ErrInvalidRetrievalThreshold indicates the similarity threshold is out of range.
	ErrInvalidRetrievalThreshold = errors.New("invalid retrieval threshold")

	// ErrInvalidChunkSize indicates the chunk size is out of range.
	ErrInvalidChunkSize = errors.New("invalid chunk size")

	// ErrInvalidChunkOverlap indicates the chunk overlap is out of range.
	ErrInvalidChunkOverlap = errors.New("invalid chunk overlap")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresPassword indicates the PostgreSQL password is invalid.
	ErrInvalidPostgresPassword = errors.New("invalid PostgreSQL password")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")

	// ErrInvalidServerAddr indicates the HTTP listen address is invalid.
	ErrInvalidServerAddr = errors.New("invalid server address")
)

const (
	// DefaultEmbeddingModel is the default OpenAI embedding model.
	// text-embedding-3-small outputs 1536 dimensions, matching the
	// vector(1536) column in the documents table.
	DefaultEmbeddingModel = "text-embedding-3-small"

	// EmbeddingDimension is the only dimension the schema accepts.
	// Changing it requires a migration of the vector column.
	EmbeddingDimension = 1536

	// DefaultRetrievalLimit is the default number of passages returned.
	DefaultRetrievalLimit = 5

	// DefaultRetrievalThreshold is the default minimum cosine similarity.
	DefaultRetrievalThreshold = 0.5

	// DefaultChunkSize is the default maximum chunk length in characters.
	DefaultChunkSize = 150

	// DefaultChunkOverlap is the default overlap between adjacent chunks.
	DefaultChunkOverlap = 20
)

// Config stores application configuration.
// SECURITY: Sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (passwords, API keys, tokens), update MarshalJSON.
type Config struct {
	// Embedding configuration
	OpenAIAPIKey       string        `mapstructure:"openai_api_key" json:"openai_api_key"` // SENSITIVE: masked in MarshalJSON
	OpenAIBaseURL      string        `mapstructure:"openai_base_url" json:"openai_base_url"`
	EmbeddingModel     string        `mapstructure:"embedding_model" json:"embedding_model"`
	EmbeddingDimension int           `mapstructure:"embedding_dimension" json:"embedding_dimension"`
	EmbeddingTimeout   time.Duration `mapstructure:"embedding_timeout" json:"embedding_timeout"`
	EmbeddingRPS       float64       `mapstructure:"embedding_rps" json:"embedding_rps"`

	// Retrieval configuration
	RetrievalLimit     int     `mapstructure:"retrieval_limit" json:"retrieval_limit"`
	RetrievalThreshold float64 `mapstructure:"retrieval_threshold" json:"retrieval_threshold"`

	// Chunking configuration
	ChunkSize       int      `mapstructure:"chunk_size" json:"chunk_size"`
	ChunkOverlap    int      `mapstructure:"chunk_overlap" json:"chunk_overlap"`
	ChunkSeparators []string `mapstructure:"chunk_separators" json:"chunk_separators"`

	// Storage configuration (see storage.go for documentation)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Server configuration
	ServerAddr string `mapstructure:"server_addr" json:"server_addr"`

	// Logging configuration
	LogLevel string `mapstructure:"log_level" json:"log_level"`
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	// Configuration directory: ~/.recall/
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".recall")

	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	if path := os.Getenv("RECALL_CONFIG"); path != "" {
		// Explicit config file wins over the search paths
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(configDir)
		v.AddConfigPath(".") // Also support current directory
	}

	setDefaults(v)
	bindEnvVariables(v)

	// Read configuration file (if exists)
	if err := v.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL, when set, has the highest priority for PostgreSQL config
	if err := cfg.applyDatabaseURL(); err != nil {
		return nil, fmt.Errorf("applying DATABASE_URL: %w", err)
	}

	// Validate immediately (fail-fast)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	// Embedding defaults
	v.SetDefault("embedding_model", DefaultEmbeddingModel)
	v.SetDefault("embedding_dimension", EmbeddingDimension)
	v.SetDefault("embedding_timeout", "30s")
	v.SetDefault("embedding_rps", 5.0)

	// Retrieval defaults
	v.SetDefault("retrieval_limit", DefaultRetrievalLimit)
	v.SetDefault("retrieval_threshold", DefaultRetrievalThreshold)

	// Chunking defaults
	v.SetDefault("chunk_size", DefaultChunkSize)
	v.SetDefault("chunk_overlap", DefaultChunkOverlap)
	v.SetDefault("chunk_separators", []string{" "})

	// PostgreSQL defaults (matching docker-compose.yml)
	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "recall")
	v.SetDefault("postgres_password", "recall_dev_password")
	v.SetDefault("postgres_db_name", "recall")
	v.SetDefault("postgres_ssl_mode", "disable")

	// Server defaults
	v.SetDefault("server_addr", ":8080")

	// Logging defaults
	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
}

// bindEnvVariables binds environment variables explicitly.
// OPENAI_API_KEY keeps its conventional name; everything else uses the
// RECALL_ prefix.
func bindEnvVariables(v *viper.Viper) {
	// Helper to panic on unexpected bind errors (hardcoded strings can't fail)
	// If this panics, it's a BUG in our code, not a runtime error
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("openai_api_key", "OPENAI_API_KEY")
	mustBind("openai_base_url", "OPENAI_BASE_URL")
	mustBind("embedding_model", "RECALL_EMBEDDING_MODEL")

	mustBind("server_addr", "RECALL_SERVER_ADDR")
	mustBind("log_level", "RECALL_LOG_LEVEL")
	mustBind("log_json", "RECALL_LOG_JSON")

	// NOTE: DATABASE_URL is applied separately in applyDatabaseURL and
	// overrides the individual postgres_* keys.
}

// maskedValue is the placeholder for masked sensitive data.
// Full-width blocks (U+2588) avoid accidental substring matches against
// real secret material.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Secrets of 8 characters or fewer are fully masked; longer secrets show
// the first and last 2 characters for debug utility.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
//
// Sensitive fields masked:
//   - PostgresPassword
//   - OpenAIAPIKey
//
// When adding new sensitive fields, update this method.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	a.OpenAIAPIKey = maskSecret(a.OpenAIAPIKey)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
