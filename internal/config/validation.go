package config

import (
	"fmt"
	"log/slog"
	"slices"
)

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	// 1. Embedding configuration validation
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("%w: OPENAI_API_KEY environment variable is required\n"+
			"Get your API key at: https://platform.openai.com/api-keys",
			ErrMissingAPIKey)
	}

	if c.EmbeddingModel == "" {
		return fmt.Errorf("%w: embedding_model cannot be empty", ErrInvalidEmbeddingModel)
	}

	// The documents table has a fixed vector(1536) column; any other
	// dimension would fail at insert time with a worse error.
	if c.EmbeddingDimension != EmbeddingDimension {
		return fmt.Errorf("%w: must be %d to match the vector column, got %d",
			ErrInvalidEmbeddingDimension, EmbeddingDimension, c.EmbeddingDimension)
	}

	// 2. Retrieval configuration validation
	if c.RetrievalLimit < 1 || c.RetrievalLimit > 100 {
		return fmt.Errorf("%w: must be between 1 and 100, got %d",
			ErrInvalidRetrievalLimit, c.RetrievalLimit)
	}

	// Cosine similarity ranges over [-1, 1]
	if c.RetrievalThreshold < -1.0 || c.RetrievalThreshold > 1.0 {
		return fmt.Errorf("%w: must be between -1.0 and 1.0, got %.4f",
			ErrInvalidRetrievalThreshold, c.RetrievalThreshold)
	}

	// 3. Chunking configuration validation
	if c.ChunkSize < 1 {
		return fmt.Errorf("%w: must be at least 1, got %d", ErrInvalidChunkSize, c.ChunkSize)
	}

	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: must be between 0 and chunk_size-1 (%d), got %d",
			ErrInvalidChunkOverlap, c.ChunkSize-1, c.ChunkOverlap)
	}

	// 4. PostgreSQL configuration validation
	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
	}

	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}

	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
	}

	if c.PostgresPassword == "" {
		return fmt.Errorf("%w: postgres_password must be set in config.yaml",
			ErrInvalidPostgresPassword)
	}

	// Warn if using the default dev password, but don't block local development
	if c.PostgresPassword == "recall_dev_password" {
		slog.Warn("Using default development password for PostgreSQL",
			"warning", "Change postgres_password in config.yaml for production deployments")
	}

	if len(c.PostgresPassword) < 8 {
		return fmt.Errorf("%w: postgres_password must be at least 8 characters (got %d)",
			ErrInvalidPostgresPassword, len(c.PostgresPassword))
	}

	// 5. PostgreSQL SSL mode validation
	// Modern SSL modes only - exclude deprecated allow/prefer (MITM vulnerable)
	// Reference: https://www.postgresql.org/docs/current/libpq-ssl.html
	validSSLModes := []string{"disable", "require", "verify-ca", "verify-full"}
	if c.PostgresSSLMode == "" {
		return fmt.Errorf("%w: postgres_ssl_mode is empty (should have default from setDefaults)",
			ErrInvalidPostgresSSLMode)
	}

	if !slices.Contains(validSSLModes, c.PostgresSSLMode) {
		return fmt.Errorf("%w: %q is not valid, must be one of: %v\n"+
			"Note: 'allow' and 'prefer' modes are deprecated (vulnerable to MITM attacks)",
			ErrInvalidPostgresSSLMode, c.PostgresSSLMode, validSSLModes)
	}

	// 6. Server validation
	if c.ServerAddr == "" {
		return fmt.Errorf("%w: server_addr cannot be empty", ErrInvalidServerAddr)
	}

	return nil
}
