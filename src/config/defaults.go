package config

import (
	"time"
)

// DefaultConfig returns a default configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Version: "1.0",
		API: APIConfig{
			Provider:     "openrouter",
			APIKeyEnvVar: "OPENROUTER_API_KEY",
			Timeout:      30 * time.Second,
			Retry: RetryConfig{
				MaxRetries:   3,
				InitialDelay: 1 * time.Second,
				MaxDelay:     10 * time.Second,
			},
		},

		Agent: AgentConfig{
			Model:     "google/gemini-2.5-flash",
			MaxTokens: 4096,
		},

		Conversation: ConversationConfig{
			MaxContextMessages: 50,
			LoopWindow:         6,
			MaxTurns:           3,
		},

		Dedup: DedupConfig{
			TTL:             5 * time.Minute,
			CleanupInterval: time.Hour,
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},

		Data: DataConfig{
			Directory: GetDefaultDataPath(),
		},
	}
}
