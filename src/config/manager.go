package config

import (
	"fmt"
	"os"
	"sync"
)

// Manager manages configuration loading, validation, and access
type Manager struct {
	config     *Config
	loader     *Loader
	configPath string
	mu         sync.RWMutex
}

// NewManager creates a manager over the standard config locations
func NewManager() (*Manager, error) {
	precedence := GetConfigPaths()
	loader := NewLoader(precedence)

	config, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	configPath, _ := FindConfigFile()

	return &Manager{
		config:     config,
		loader:     loader,
		configPath: configPath,
	}, nil
}

// Get returns the current configuration
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// Reload re-reads configuration from all sources
func (m *Manager) Reload() error {
	config, err := m.loader.Load()
	if err != nil {
		return fmt.Errorf("failed to reload configuration: %w", err)
	}

	m.mu.Lock()
	m.config = config
	m.mu.Unlock()
	return nil
}

// Save persists the current configuration to the user config path
func (m *Manager) Save() error {
	m.mu.RLock()
	config := m.config
	path := m.configPath
	m.mu.RUnlock()

	if path == "" {
		path = GetConfigPaths().UserConfig
	}
	return m.loader.SaveFile(config, path)
}

// ResolveAPIKey returns the API key, consulting the configured env var when
// the config itself carries none.
func (m *Manager) ResolveAPIKey() (string, error) {
	config := m.Get()
	if config.API.APIKey != "" {
		return config.API.APIKey, nil
	}
	if config.API.APIKeyEnvVar != "" {
		if key := os.Getenv(config.API.APIKeyEnvVar); key != "" {
			return key, nil
		}
	}
	return "", fmt.Errorf("no API key configured (set %s or api.api_key)", config.API.APIKeyEnvVar)
}
