package main

import (
	"log/slog"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		raw     string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{" error ", slog.LevelError, false},
		{"-4", slog.LevelDebug, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := parseLogLevel(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseLogLevel(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestConfigureLoggerWarnsOnInvalidLevel(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	if _, warning := configureLogger("loud"); warning == "" {
		t.Error("expected a warning for an invalid level")
	}
	if _, warning := configureLogger("debug"); warning != "" {
		t.Errorf("unexpected warning %q", warning)
	}
}
