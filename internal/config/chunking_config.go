package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Default chunking constants.
const (
	DefaultMaxTokensPerChunk  = 500
	DefaultChunkOverlapTokens = 50
	DefaultMaxFileSizeBytes   = 1024 * 1024
)

// ChunkingConfig holds text chunking settings. It can come from the main
// configuration or from a standalone YAML file referenced by
// chunking.config_file.
type ChunkingConfig struct {
	MaxTokensPerChunk  int   `mapstructure:"max_tokens_per_chunk"  yaml:"max_tokens_per_chunk"`
	ChunkOverlapTokens int   `mapstructure:"chunk_overlap_tokens"  yaml:"chunk_overlap_tokens"`
	MaxFileSizeBytes   int64 `mapstructure:"max_file_size_bytes"   yaml:"max_file_size_bytes"`
}

func (c *ChunkingConfig) applyDefaults() {
	if c.MaxTokensPerChunk == 0 {
		c.MaxTokensPerChunk = DefaultMaxTokensPerChunk
	}
	if c.ChunkOverlapTokens == 0 {
		c.ChunkOverlapTokens = DefaultChunkOverlapTokens
	}
	if c.MaxFileSizeBytes == 0 {
		c.MaxFileSizeBytes = DefaultMaxFileSizeBytes
	}
}

// Validate checks chunking settings for consistency.
func (c *ChunkingConfig) Validate() error {
	if c.MaxTokensPerChunk < 0 {
		return errors.New("max tokens per chunk cannot be negative")
	}
	if c.ChunkOverlapTokens < 0 {
		return errors.New("chunk overlap cannot be negative")
	}
	if c.MaxTokensPerChunk > 0 && c.ChunkOverlapTokens >= c.MaxTokensPerChunk {
		return errors.New("chunk overlap must be smaller than max tokens per chunk")
	}
	if c.MaxFileSizeBytes < 0 {
		return errors.New("max file size cannot be negative")
	}
	return nil
}

// LoadChunkingConfig reads a chunking configuration from a YAML file and
// applies defaults for unset fields.
func LoadChunkingConfig(path string) (*ChunkingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read chunking config: %w", err)
	}

	var config ChunkingConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse chunking config: %w", err)
	}
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid chunking config: %w", err)
	}
	return &config, nil
}
