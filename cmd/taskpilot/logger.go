package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lmittmann/tint"

	"github.com/taskpilot/taskpilot/src/config"
)

// createLogger picks the handler the invocation asked for: tinted stderr
// for interactive use, JSON lines in the state directory with --log-file
func createLogger(cli *CLI) *slog.Logger {
	if cli.LogFile {
		return createFileLogger(cli.LogLevel)
	}
	return createCLILogger(cli.LogLevel)
}

// createCLILogger creates a logger for interactive commands
func createCLILogger(logLevel string) *slog.Logger {
	level := parseLogLevel(logLevel)

	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level: level,
	}))
}

// createFileLogger creates a logger that writes JSON lines to the state
// directory, for non-interactive runs where stderr noise is unwanted
func createFileLogger(logLevel string) *slog.Logger {
	paths := config.GetDefaultStoragePaths()
	logDir := filepath.Dir(paths.LogPath)

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))
	}

	file, err := os.OpenFile(paths.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))
	}

	return slog.New(slog.NewJSONHandler(file, &slog.HandlerOptions{
		Level: parseLogLevel(logLevel),
	}))
}

// parseLogLevel converts string log level to slog.Level
func parseLogLevel(levelStr string) slog.Level {
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
