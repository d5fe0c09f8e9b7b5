package config

import (
	"time"
)

// Config represents the complete configuration for taskpilot
type Config struct {
	// Version of the configuration format
	Version string `json:"version"`

	// API configuration for the model provider
	API APIConfig `json:"api"`

	// Agent configuration (model and prompting)
	Agent AgentConfig `json:"agent"`

	// Conversation pipeline tunables
	Conversation ConversationConfig `json:"conversation"`

	// Dedup configuration for the duplicate-request gate
	Dedup DedupConfig `json:"dedup"`

	// Logging configuration
	Logging LoggingConfig `json:"logging"`

	// Data directory configuration
	Data DataConfig `json:"data"`

	// Debug enables general debug logging
	Debug bool `json:"debug,omitempty"`
}

// APIConfig holds API-related configuration
type APIConfig struct {
	// Provider specifies the AI provider (e.g., "openrouter")
	Provider string `json:"provider" validate:"provider"`

	// BaseURL overrides the default API endpoint
	BaseURL string `json:"base_url,omitempty" validate:"omitempty,url"`

	// APIKey for authentication (can be omitted if using env vars)
	APIKey string `json:"api_key,omitempty"`

	// APIKeyEnvVar specifies the environment variable to read the API key from
	APIKeyEnvVar string `json:"api_key_env_var,omitempty"`

	// Timeout for API requests
	Timeout time.Duration `json:"timeout,omitempty" validate:"min=0"`

	// Retry configuration for API request retries
	Retry RetryConfig `json:"retry,omitempty"`
}

// RetryConfig defines retry behavior for API requests
type RetryConfig struct {
	MaxRetries   int           `json:"max_retries"`
	InitialDelay time.Duration `json:"initial_delay"`
	MaxDelay     time.Duration `json:"max_delay"`
}

// AgentConfig holds model and prompting configuration
type AgentConfig struct {
	Model        string  `json:"model"`
	Temperature  float32 `json:"temperature" validate:"min=0,max=2"`
	MaxTokens    int     `json:"max_tokens" validate:"min=1"`
	SystemPrompt string  `json:"system_prompt,omitempty"`
}

// ConversationConfig tunes the message pipeline
type ConversationConfig struct {
	// MaxContextMessages bounds the window sent to the model
	MaxContextMessages int `json:"max_context_messages" validate:"min=1"`

	// LoopWindow is the tail length compared for loop detection
	LoopWindow int `json:"loop_window" validate:"min=1"`

	// MaxTurns bounds the model/tool exchange per request
	MaxTurns int `json:"max_turns" validate:"min=1"`
}

// DedupConfig tunes the duplicate-request gate
type DedupConfig struct {
	// TTL is how long a request hash suppresses identical requests
	TTL time.Duration `json:"ttl" validate:"min=0"`

	// CleanupInterval is how often expired records are swept
	CleanupInterval time.Duration `json:"cleanup_interval" validate:"min=0"`
}

// LoggingConfig defines logging configuration
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error)
	Level string `json:"level,omitempty" validate:"log_level"`

	// Format is the output format (text, json)
	Format string `json:"format,omitempty" validate:"log_format"`

	// File is an optional path for a JSON log file alongside stderr
	File string `json:"file,omitempty"`
}

// DataConfig defines data directory configuration
type DataConfig struct {
	// Directory where application data is stored
	Directory string `json:"directory,omitempty"`

	// DatabasePath overrides the default sqlite database location
	DatabasePath string `json:"database_path,omitempty"`
}

// ConfigPrecedence defines the order of configuration loading
type ConfigPrecedence struct {
	// SystemConfig path
	SystemConfig string

	// UserConfig path
	UserConfig string

	// ProjectConfig path
	ProjectConfig string

	// LocalConfig path
	LocalConfig string

	// EnvironmentPrefix for env var overrides
	EnvironmentPrefix string
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
}

func (e ValidationError) Error() string {
	return e.Message
}

// ConfigSource indicates where a configuration value came from
type ConfigSource string

const (
	SourceDefault     ConfigSource = "default"
	SourceSystem      ConfigSource = "system"
	SourceUser        ConfigSource = "user"
	SourceProject     ConfigSource = "project"
	SourceLocal       ConfigSource = "local"
	SourceEnvironment ConfigSource = "environment"
)
