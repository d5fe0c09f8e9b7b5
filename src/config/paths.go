package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

// StoragePaths contains paths for application storage
type StoragePaths struct {
	DatabasePath string
	LogPath      string
}

// GetDefaultStoragePaths returns default storage paths using XDG base directories
func GetDefaultStoragePaths() StoragePaths {
	// XDG_STATE_HOME holds runtime state data
	return StoragePaths{
		DatabasePath: filepath.Join(xdg.StateHome, "taskpilot", "conversations.db"),
		LogPath:      filepath.Join(xdg.StateHome, "taskpilot", "taskpilot.log"),
	}
}

// GetDefaultDataPath returns the default data directory path
func GetDefaultDataPath() string {
	return filepath.Join(xdg.DataHome, "taskpilot")
}
