package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/afero"
)

// Loader handles loading and merging configurations from multiple sources
type Loader struct {
	fs         afero.Fs
	precedence ConfigPrecedence
	validator  *Validator
}

// NewLoader creates a new configuration loader backed by the OS filesystem
func NewLoader(precedence ConfigPrecedence) *Loader {
	return NewLoaderWithFs(afero.NewOsFs(), precedence)
}

// NewLoaderWithFs creates a loader over an arbitrary filesystem. Tests use an
// in-memory fs.
func NewLoaderWithFs(fs afero.Fs, precedence ConfigPrecedence) *Loader {
	return &Loader{
		fs:         fs,
		precedence: precedence,
		validator:  NewValidator(),
	}
}

// Load loads configuration from all sources and merges them
func (l *Loader) Load() (*Config, error) {
	// Start with default configuration
	config := DefaultConfig()

	// Load and merge configurations in order of precedence
	sources := []struct {
		path   string
		source ConfigSource
	}{
		{l.precedence.SystemConfig, SourceSystem},
		{l.precedence.UserConfig, SourceUser},
		{l.precedence.ProjectConfig, SourceProject},
		{l.precedence.LocalConfig, SourceLocal},
	}

	for _, src := range sources {
		if src.path == "" {
			continue
		}

		if cfg, err := l.loadFile(src.path); err == nil {
			config = l.mergeConfigs(config, cfg)
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load %s config from %s: %w", src.source, src.path, err)
		}
	}

	// Apply environment variable overrides
	if l.precedence.EnvironmentPrefix != "" {
		l.applyEnvironmentOverrides(config)
	}

	// Validate the final configuration
	if err := l.validator.Validate(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// loadFile loads a single configuration file
func (l *Loader) loadFile(path string) (*Config, error) {
	data, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	return &config, nil
}

// SaveFile saves configuration to a file
func (l *Loader) SaveFile(config *Config, path string) error {
	// Validate before saving
	if err := l.validator.Validate(config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	dir := filepath.Dir(path)
	if err := l.fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := afero.WriteFile(l.fs, path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// mergeConfigs merges two configurations with the second taking precedence
func (l *Loader) mergeConfigs(base, override *Config) *Config {
	result := *base

	if override.Version != "" {
		result.Version = override.Version
	}

	// Merge API config
	if override.API.Provider != "" {
		result.API.Provider = override.API.Provider
	}
	if override.API.BaseURL != "" {
		result.API.BaseURL = override.API.BaseURL
	}
	if override.API.APIKey != "" {
		result.API.APIKey = override.API.APIKey
	}
	if override.API.APIKeyEnvVar != "" {
		result.API.APIKeyEnvVar = override.API.APIKeyEnvVar
	}
	if override.API.Timeout != 0 {
		result.API.Timeout = override.API.Timeout
	}
	if override.API.Retry.MaxRetries != 0 {
		result.API.Retry.MaxRetries = override.API.Retry.MaxRetries
	}
	if override.API.Retry.InitialDelay != 0 {
		result.API.Retry.InitialDelay = override.API.Retry.InitialDelay
	}
	if override.API.Retry.MaxDelay != 0 {
		result.API.Retry.MaxDelay = override.API.Retry.MaxDelay
	}

	// Merge Agent config
	if override.Agent.Model != "" {
		result.Agent.Model = override.Agent.Model
	}
	if override.Agent.Temperature != 0 {
		result.Agent.Temperature = override.Agent.Temperature
	}
	if override.Agent.MaxTokens != 0 {
		result.Agent.MaxTokens = override.Agent.MaxTokens
	}
	if override.Agent.SystemPrompt != "" {
		result.Agent.SystemPrompt = override.Agent.SystemPrompt
	}

	// Merge Conversation config
	if override.Conversation.MaxContextMessages != 0 {
		result.Conversation.MaxContextMessages = override.Conversation.MaxContextMessages
	}
	if override.Conversation.LoopWindow != 0 {
		result.Conversation.LoopWindow = override.Conversation.LoopWindow
	}
	if override.Conversation.MaxTurns != 0 {
		result.Conversation.MaxTurns = override.Conversation.MaxTurns
	}

	// Merge Dedup config
	if override.Dedup.TTL != 0 {
		result.Dedup.TTL = override.Dedup.TTL
	}
	if override.Dedup.CleanupInterval != 0 {
		result.Dedup.CleanupInterval = override.Dedup.CleanupInterval
	}

	// Merge Logging config
	if override.Logging.Level != "" {
		result.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		result.Logging.Format = override.Logging.Format
	}
	if override.Logging.File != "" {
		result.Logging.File = override.Logging.File
	}

	// Merge Data config
	if override.Data.Directory != "" {
		result.Data.Directory = override.Data.Directory
	}
	if override.Data.DatabasePath != "" {
		result.Data.DatabasePath = override.Data.DatabasePath
	}

	if override.Debug {
		result.Debug = true
	}

	return &result
}

// applyEnvironmentOverrides applies environment variable overrides to config
func (l *Loader) applyEnvironmentOverrides(config *Config) {
	prefix := l.precedence.EnvironmentPrefix

	if apiKey := os.Getenv(prefix + "_API_KEY"); apiKey != "" {
		config.API.APIKey = apiKey
	}
	// Also honor the provider's own env var
	if config.API.APIKey == "" && config.API.APIKeyEnvVar != "" {
		if apiKey := os.Getenv(config.API.APIKeyEnvVar); apiKey != "" {
			config.API.APIKey = apiKey
		}
	}

	if model := os.Getenv(prefix + "_MODEL"); model != "" {
		config.Agent.Model = model
	}

	if baseURL := os.Getenv(prefix + "_BASE_URL"); baseURL != "" {
		config.API.BaseURL = baseURL
	}

	if level := os.Getenv(prefix + "_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if dbPath := os.Getenv(prefix + "_DB_PATH"); dbPath != "" {
		config.Data.DatabasePath = dbPath
	}

	if ttl := os.Getenv(prefix + "_DEDUP_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil {
			config.Dedup.TTL = d
		}
	}
}

// GetConfigPaths returns the configuration file paths to check
func GetConfigPaths() ConfigPrecedence {
	// Use XDG paths for cross-platform compatibility
	userConfigPath := filepath.Join(xdg.ConfigHome, "taskpilot", "config.json")

	// System config path varies by OS
	systemConfigPath := "/etc/taskpilot/config.json"
	if runtime.GOOS == "windows" {
		systemConfigPath = filepath.Join(os.Getenv("PROGRAMDATA"), "taskpilot", "config.json")
	}

	return ConfigPrecedence{
		SystemConfig:      systemConfigPath,
		UserConfig:        userConfigPath,
		ProjectConfig:     filepath.Join(".taskpilot", "config.json"),
		LocalConfig:       filepath.Join(".taskpilot", "config.local.json"),
		EnvironmentPrefix: "TASKPILOT",
	}
}

// FindConfigFile searches for a configuration file in standard locations
func FindConfigFile() (string, error) {
	paths := GetConfigPaths()

	checkPaths := []string{
		paths.LocalConfig,
		paths.ProjectConfig,
		paths.UserConfig,
		paths.SystemConfig,
	}

	for _, path := range checkPaths {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no configuration file found")
}
