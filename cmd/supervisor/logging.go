package main

import (
	"log/slog"
	"os"
	"strings"
)

// levelTrace sits one step below slog.LevelDebug, matching the IAS
// TRACE/DEBUG/INFO/WARN/ERROR level set (§6) onto slog's level scale.
const levelTrace = slog.Level(-8)

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToUpper(level) {
	case "TRACE":
		logLevel = levelTrace
	case "DEBUG":
		logLevel = slog.LevelDebug
	case "WARN":
		logLevel = slog.LevelWarn
	case "ERROR":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     logLevel,
		AddSource: logLevel <= slog.LevelDebug,
	})

	return slog.New(handler).With(
		"service", appName,
		"version", Version,
		"pid", os.Getpid(),
	)
}
