package utils

import (
	"fmt"
	"net"
	"strings"

	ua "github.com/mileusna/useragent"
)

// ParseUserAgent extracts useful information from User-Agent string
func ParseUserAgent(userAgent string) (browser, os, device string) {
	if userAgent == "" {
		return "Unknown Browser", "Unknown OS", "Desktop"
	}

	parsedUA := ua.Parse(userAgent)

	browser = "Unknown Browser"
	if parsedUA.Name != "" {
		browser = parsedUA.Name
	}

	os = "Unknown OS"
	if parsedUA.OS != "" {
		os = parsedUA.OS
	}

	device = "Desktop"
	switch {
	case parsedUA.Bot:
		device = "Bot"
	case parsedUA.Mobile && strings.Contains(userAgent, "iPhone"):
		device = "iPhone"
	case parsedUA.Mobile:
		device = "Mobile"
	case parsedUA.Tablet:
		device = "Tablet"
	}

	return strings.TrimSpace(browser), strings.TrimSpace(os), device
}

// NetworkLabel gives a coarse description of where a client connects from.
// No outbound lookup is made.
func NetworkLabel(ip string) string {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	switch {
	case parsed == nil:
		return "Unknown Location"
	case parsed.IsLoopback():
		return "Localhost"
	case parsed.IsPrivate():
		return "Local Network"
	default:
		return ip
	}
}

// GenerateSessionName creates a user-friendly session name such as
// "Chrome on Windows (Local Network)".
func GenerateSessionName(userAgent, ip string) string {
	browser, os, _ := ParseUserAgent(userAgent)
	return fmt.Sprintf("%s on %s (%s)", browser, os, NetworkLabel(ip))
}

// DeviceInfo is the short device string stored on a session.
func DeviceInfo(userAgent string) string {
	browser, os, device := ParseUserAgent(userAgent)
	return fmt.Sprintf("%s/%s/%s", device, os, browser)
}
