package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the complete application configuration.
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Database DatabaseConfig `mapstructure:"database"`
	NATS     NATSConfig     `mapstructure:"nats"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Git      GitConfig      `mapstructure:"git"`
	Chunking ChunkingConfig `mapstructure:"chunking"`
	Log      LogConfig      `mapstructure:"log"`
}

// APIConfig holds API server configuration.
type APIConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// WorkerConfig holds worker configuration.
type WorkerConfig struct {
	QueueGroup  string        `mapstructure:"queue_group"`
	DurableName string        `mapstructure:"durable_name"`
	Concurrency int           `mapstructure:"concurrency"`
	JobTimeout  time.Duration `mapstructure:"job_timeout"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	Name           string `mapstructure:"name"`
	SSLMode        string `mapstructure:"sslmode"`
	MaxConnections int    `mapstructure:"max_connections"`
	MinConnections int    `mapstructure:"min_connections"`
}

// DSN returns the database connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// NATSConfig holds NATS configuration.
type NATSConfig struct {
	URL           string        `mapstructure:"url"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
}

// OpenAIConfig holds embeddings provider configuration.
type OpenAIConfig struct {
	APIKey               string        `mapstructure:"api_key"`
	BaseURL              string        `mapstructure:"base_url"`
	Model                string        `mapstructure:"model"`
	BatchSize            int           `mapstructure:"batch_size"`
	MaxConcurrentBatches int           `mapstructure:"max_concurrent_batches"`
	Timeout              time.Duration `mapstructure:"timeout"`
}

// GitConfig holds git clone configuration.
type GitConfig struct {
	WorkspaceDir string `mapstructure:"workspace_dir"`
	Token        string `mapstructure:"token"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// New creates a Config from viper, applying a chunking config file when
// one is configured.
func New(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if path := v.GetString("chunking.config_file"); path != "" {
		chunking, err := LoadChunkingConfig(path)
		if err != nil {
			return nil, err
		}
		config.Chunking = *chunking
	}
	config.Chunking.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Database.User == "" {
		return errors.New("database user is required")
	}
	if c.Database.Name == "" {
		return errors.New("database name is required")
	}
	if c.NATS.URL == "" {
		return errors.New("NATS URL is required")
	}
	if c.API.Port == "" {
		return errors.New("API port is required")
	}
	if c.Worker.Concurrency < 0 {
		return errors.New("worker concurrency cannot be negative")
	}
	return c.Chunking.Validate()
}
