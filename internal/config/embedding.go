package config

import (
	"fmt"
	"os"
)

// EmbeddingConfig configures the text embedding provider used for dish search.
type EmbeddingConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Provider   string `mapstructure:"provider"`    // "jina" or "openai-compatible"
	Model      string `mapstructure:"model"`       // Model name/ID
	APIKey     string `mapstructure:"api_key"`     // API key (can be set directly or via env var)
	APIKeyEnv  string `mapstructure:"api_key_env"` // Environment variable name for API key
	BaseURL    string `mapstructure:"base_url"`    // Base URL for OpenAI-compatible APIs
	Dimensions int    `mapstructure:"dimensions"`  // Embedding vector dimensions
}

// ResolveEnvVars loads APIKey from APIKeyEnv when no key is set directly.
func (c *EmbeddingConfig) ResolveEnvVars() {
	if c.APIKeyEnv != "" && c.APIKey == "" {
		c.APIKey = os.Getenv(c.APIKeyEnv)
	}
}

// Validate checks that the embedding configuration has all required fields.
// Returns an error describing the first validation failure, or nil if valid.
func (c *EmbeddingConfig) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("embedding: model is required")
	}
	if c.Dimensions <= 0 {
		return fmt.Errorf("embedding: dimensions must be positive")
	}

	switch c.Provider {
	case "jina":
	case "openai-compatible":
		if c.BaseURL == "" {
			return fmt.Errorf("embedding: base_url is required for openai-compatible provider")
		}
	default:
		return fmt.Errorf("embedding: unknown provider %q", c.Provider)
	}

	if c.APIKey == "" {
		return fmt.Errorf("embedding: api_key is required (set directly or via %s)", c.APIKeyEnv)
	}
	return nil
}
