package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// configureLogger installs the default logger. An invalid level falls back
// to info and the returned warning says so.
func configureLogger(rawLevel string) (*slog.Logger, string) {
	level, err := parseLogLevel(rawLevel)
	warning := ""
	if err != nil {
		level = slog.LevelInfo
		warning = fmt.Sprintf("invalid LOG_LEVEL=%q; defaulting to info", rawLevel)
	}
	logger := newLogger(level)
	slog.SetDefault(logger)
	return logger, warning
}

func parseLogLevel(raw string) (slog.Level, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return slog.LevelInfo, nil
	}
	if strings.EqualFold(value, "warning") {
		value = "warn"
	}

	if numeric, err := strconv.Atoi(value); err == nil {
		return slog.Level(numeric), nil
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", raw)
	}
	return level, nil
}

func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
