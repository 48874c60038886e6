package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const chromeWindows = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func TestParseUserAgent(t *testing.T) {
	browser, os, device := ParseUserAgent(chromeWindows)
	assert.Equal(t, "Chrome", browser)
	assert.Equal(t, "Windows", os)
	assert.Equal(t, "Desktop", device)

	browser, os, device = ParseUserAgent("")
	assert.Equal(t, "Unknown Browser", browser)
	assert.Equal(t, "Unknown OS", os)
	assert.Equal(t, "Desktop", device)
}

func TestGenerateSessionName(t *testing.T) {
	tests := []struct {
		ip   string
		want string
	}{
		{"127.0.0.1", "Chrome on Windows (Localhost)"},
		{"192.168.0.10", "Chrome on Windows (Local Network)"},
		{"not-an-ip", "Chrome on Windows (Unknown Location)"},
		{"8.8.8.8", "Chrome on Windows (8.8.8.8)"},
	}
	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			assert.Equal(t, tt.want, GenerateSessionName(chromeWindows, tt.ip))
		})
	}
}
